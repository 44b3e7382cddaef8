package server

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/lox/doudizhu/internal/deck"
	"github.com/lox/doudizhu/internal/game"
	"github.com/lox/doudizhu/internal/protocol"
	"github.com/lox/doudizhu/internal/roomid"
)

// RoomCapacity is the number of seats in a room; games always run with
// exactly three players.
const RoomCapacity = 3

// Room membership and lifecycle errors. Engine errors (game.Err*) pass
// through the manager wrapped, so callers can match both taxonomies with
// errors.Is.
var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomFull          = errors.New("room full")
	ErrAlreadyJoined     = errors.New("already joined")
	ErrNotReady          = errors.New("room not ready")
	ErrRestartNotAllowed = errors.New("restart not allowed")
)

// Outbound is the send capability stored per seated player: a fire-and-
// forget push into the session's outbound queue. It must never block.
type Outbound interface {
	TrySend(msg protocol.Envelope)
}

// PlayerConn is a seated player: an opaque user id plus the outbound
// capability of their session. Out may be nil in tests.
type PlayerConn struct {
	ID  uint64
	Out Outbound
}

// Room holds up to three players in join order and at most one active game.
type Room struct {
	Players []PlayerConn
	Game    *game.State
}

// RemoveResult describes the effect of removing a connection from a room.
type RemoveResult struct {
	RoomDeleted     bool
	GameInterrupted bool
	PlayerCount     int
}

// AddressedSnapshot pairs a recipient with its tailored room view, so a
// broadcast can be assembled under one lock acquisition and delivered after
// release.
type AddressedSnapshot struct {
	Conn     PlayerConn
	Snapshot protocol.RoomSnapshot
}

// RoomManager owns every room. All operations, reads included, serialize
// through one exclusive lock; per-operation work is trivial next to the
// network I/O that stays outside the critical section.
type RoomManager struct {
	mu     sync.Mutex
	rooms  map[string]*Room
	ids    *roomid.Generator
	logger zerolog.Logger
}

// NewRoomManager creates an empty manager. The id source is dedicated to
// room code generation and may be seeded for deterministic tests.
func NewRoomManager(logger zerolog.Logger, idSource roomid.RandSource) *RoomManager {
	return &RoomManager{
		rooms:  make(map[string]*Room),
		ids:    roomid.NewGenerator(idSource),
		logger: logger.With().Str("component", "rooms").Logger(),
	}
}

// CreateRoom registers a new empty room and returns its code.
func (rm *RoomManager) CreateRoom() string {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	id := rm.ids.Generate()
	for _, exists := rm.rooms[id]; exists; _, exists = rm.rooms[id] {
		id = rm.ids.Generate()
	}
	rm.rooms[id] = &Room{}
	rm.logger.Debug().Str("room", id).Msg("room created")
	return id
}

// JoinRoom seats a player in join order. Duplicate ids and full rooms are
// rejected without disturbing membership.
func (rm *RoomManager) JoinRoom(roomID string, player PlayerConn) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	room, ok := rm.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}
	for _, seated := range room.Players {
		if seated.ID == player.ID {
			return ErrAlreadyJoined
		}
	}
	if len(room.Players) >= RoomCapacity {
		return ErrRoomFull
	}
	room.Players = append(room.Players, player)
	rm.logger.Debug().Str("room", roomID).Uint64("user", player.ID).Int("players", len(room.Players)).Msg("player joined")
	return nil
}

// RemoveConnection removes the user from the room if seated. An active game
// is interrupted when the removal leaves fewer than three members; an empty
// room is deleted. Unknown rooms report ok=false; removing a non-member of
// a known room still reports a success-shaped result.
func (rm *RoomManager) RemoveConnection(roomID string, userID uint64) (RemoveResult, bool) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	room, ok := rm.rooms[roomID]
	if !ok {
		return RemoveResult{}, false
	}
	hadGame := room.Game != nil
	before := len(room.Players)
	kept := room.Players[:0]
	for _, player := range room.Players {
		if player.ID != userID {
			kept = append(kept, player)
		}
	}
	room.Players = kept
	playerCount := len(room.Players)
	removed := playerCount < before
	interrupted := hadGame && removed && playerCount < RoomCapacity
	if interrupted {
		room.Game = nil
		rm.logger.Info().Str("room", roomID).Uint64("leaver", userID).Msg("game interrupted")
	}
	if playerCount == 0 {
		delete(rm.rooms, roomID)
		return RemoveResult{RoomDeleted: true, GameInterrupted: interrupted}, true
	}
	return RemoveResult{GameInterrupted: interrupted, PlayerCount: playerCount}, true
}

// StartIfReady deals a new game for a full room. Starting an already
// running room is a no-op success; fewer than three members is NotReady.
func (rm *RoomManager) StartIfReady(roomID string, seed uint64) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	room, ok := rm.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}
	if len(room.Players) < RoomCapacity {
		return ErrNotReady
	}
	if room.Game != nil {
		return nil
	}
	room.Game = game.NewState(rm.seatedIDs(room), seed)
	rm.logger.Info().Str("room", roomID).Uint64("seed", seed).Msg("game started")
	return nil
}

// ApplyPlay delegates a play to the room's game. The returned winner id is
// valid only when won is true.
func (rm *RoomManager) ApplyPlay(roomID string, userID uint64, cards []deck.Card) (winnerID uint64, won bool, err error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	room, ok := rm.rooms[roomID]
	if !ok {
		return 0, false, ErrRoomNotFound
	}
	if room.Game == nil {
		return 0, false, ErrNotReady
	}
	seat, ok := room.Game.PlayerIndex(userID)
	if !ok {
		return 0, false, ErrRoomNotFound
	}
	outcome, err := room.Game.ApplyPlay(seat, cards)
	if err != nil {
		return 0, false, fmt.Errorf("apply play: %w", err)
	}
	if outcome.Winner != game.NoSeat {
		return room.Game.Players[outcome.Winner].ID, true, nil
	}
	return 0, false, nil
}

// PassTurn delegates a pass to the room's game.
func (rm *RoomManager) PassTurn(roomID string, userID uint64) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	room, ok := rm.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}
	if room.Game == nil {
		return ErrNotReady
	}
	seat, ok := room.Game.PlayerIndex(userID)
	if !ok {
		return ErrRoomNotFound
	}
	if _, err := room.Game.Pass(seat); err != nil {
		return fmt.Errorf("pass: %w", err)
	}
	return nil
}

// RestartGame replaces a finished game with a fresh deal over the same
// seating. Restart is only offered once a seat has gone out, and only to a
// seated requester.
func (rm *RoomManager) RestartGame(roomID string, requesterID uint64, seed uint64) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	room, ok := rm.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}
	if len(room.Players) < RoomCapacity {
		return ErrNotReady
	}
	seated := false
	for _, player := range room.Players {
		if player.ID == requesterID {
			seated = true
			break
		}
	}
	if !seated {
		return ErrRestartNotAllowed
	}
	if room.Game == nil {
		return ErrNotReady
	}
	if !room.Game.Finished() {
		return ErrRestartNotAllowed
	}
	room.Game = game.NewState(rm.seatedIDs(room), seed)
	rm.logger.Info().Str("room", roomID).Uint64("seed", seed).Msg("game restarted")
	return nil
}

// SnapshotFor projects the room through the given viewer's eyes: their own
// hand in stored order plus public seat information. Viewers who are not
// seated get an empty hand. Rooms without a running game have no snapshot.
func (rm *RoomManager) SnapshotFor(roomID string, viewerID uint64) (protocol.RoomSnapshot, bool) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	room, ok := rm.rooms[roomID]
	if !ok || room.Game == nil {
		return protocol.RoomSnapshot{}, false
	}
	return snapshotLocked(roomID, room.Game, viewerID), true
}

// SnapshotAll builds one tailored snapshot per seated connection under a
// single lock acquisition, so the fan-out can deliver after release without
// any recipient observing a torn state.
func (rm *RoomManager) SnapshotAll(roomID string) []AddressedSnapshot {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	room, ok := rm.rooms[roomID]
	if !ok || room.Game == nil {
		return nil
	}
	snapshots := make([]AddressedSnapshot, 0, len(room.Players))
	for _, player := range room.Players {
		snapshots = append(snapshots, AddressedSnapshot{
			Conn:     player,
			Snapshot: snapshotLocked(roomID, room.Game, player.ID),
		})
	}
	return snapshots
}

// RoomConnections returns a copy of the room's player list.
func (rm *RoomManager) RoomConnections(roomID string) []PlayerConn {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	room, ok := rm.rooms[roomID]
	if !ok {
		return nil
	}
	players := make([]PlayerConn, len(room.Players))
	copy(players, room.Players)
	return players
}

// RoomPlayerCount returns the member count of a room.
func (rm *RoomManager) RoomPlayerCount(roomID string) (int, bool) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	room, ok := rm.rooms[roomID]
	if !ok {
		return 0, false
	}
	return len(room.Players), true
}

// RoomStarted reports whether the room has a running game.
func (rm *RoomManager) RoomStarted(roomID string) bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	room, ok := rm.rooms[roomID]
	return ok && room.Game != nil
}

// RoomSummaries lists every room for the lobby, ordered by room id.
func (rm *RoomManager) RoomSummaries() []protocol.RoomSummary {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	summaries := make([]protocol.RoomSummary, 0, len(rm.rooms))
	for id, room := range rm.rooms {
		summaries = append(summaries, protocol.RoomSummary{
			RoomID:      id,
			PlayerCount: len(room.Players),
			Started:     room.Game != nil,
			CanJoin:     len(room.Players) < RoomCapacity,
		})
	}
	slices.SortFunc(summaries, func(a, b protocol.RoomSummary) int {
		return strings.Compare(a.RoomID, b.RoomID)
	})
	return summaries
}

func (rm *RoomManager) seatedIDs(room *Room) [3]uint64 {
	var ids [3]uint64
	for i := range ids {
		ids[i] = room.Players[i].ID
	}
	return ids
}

func snapshotLocked(roomID string, state *game.State, viewerID uint64) protocol.RoomSnapshot {
	players := make([]protocol.PlayerInfo, 0, len(state.Players))
	for i, player := range state.Players {
		players = append(players, protocol.PlayerInfo{
			ID:         player.ID,
			Name:       DisplayName(player.ID),
			HandCount:  len(player.Hand),
			IsLandlord: i == state.Landlord,
		})
	}
	yourHand := []string{}
	if seat, ok := state.PlayerIndex(viewerID); ok {
		yourHand = make([]string, 0, len(state.Players[seat].Hand))
		for _, card := range state.Players[seat].Hand {
			yourHand = append(yourHand, card.Code())
		}
	}
	var lastPlayer *uint64
	if state.LastPlayer != game.NoSeat {
		id := state.Players[state.LastPlayer].ID
		lastPlayer = &id
	}
	var lastPlay *protocol.PlayView
	if state.LastPlay != nil {
		lastPlay = &protocol.PlayView{
			Kind:     state.LastPlay.Kind.String(),
			MainRank: state.LastPlay.MainRank.String(),
			Size:     state.LastPlay.Size,
		}
	}
	return protocol.RoomSnapshot{
		RoomID:     roomID,
		Players:    players,
		Turn:       state.Players[state.Turn].ID,
		LastPlayer: lastPlayer,
		LastPlay:   lastPlay,
		YourHand:   yourHand,
	}
}
