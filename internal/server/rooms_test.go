package server

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/doudizhu/internal/deck"
	"github.com/lox/doudizhu/internal/game"
	"github.com/lox/doudizhu/internal/randutil"
	"github.com/lox/doudizhu/internal/roomid"
)

func newTestManager() *RoomManager {
	return NewRoomManager(zerolog.Nop(), randutil.New(1))
}

func parseCards(t *testing.T, codes ...string) []deck.Card {
	t.Helper()
	cards, err := deck.ParseCards(codes)
	require.NoError(t, err)
	return cards
}

// fullRoom creates a room and seats players 1, 2 and 3.
func fullRoom(t *testing.T, rm *RoomManager) string {
	t.Helper()
	roomID := rm.CreateRoom()
	for _, id := range []uint64{1, 2, 3} {
		require.NoError(t, rm.JoinRoom(roomID, PlayerConn{ID: id}))
	}
	return roomID
}

func TestCreateRoomGeneratesUniqueCodes(t *testing.T) {
	t.Parallel()
	rm := newTestManager()
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id := rm.CreateRoom()
		assert.True(t, roomid.Valid(id), "id %q", id)
		assert.False(t, seen[id], "duplicate id %q", id)
		seen[id] = true
	}
}

func TestJoinRoom(t *testing.T) {
	t.Parallel()
	rm := newTestManager()
	roomID := rm.CreateRoom()

	assert.ErrorIs(t, rm.JoinRoom("NOSUCH", PlayerConn{ID: 1}), ErrRoomNotFound)

	require.NoError(t, rm.JoinRoom(roomID, PlayerConn{ID: 1}))
	assert.ErrorIs(t, rm.JoinRoom(roomID, PlayerConn{ID: 1}), ErrAlreadyJoined)

	require.NoError(t, rm.JoinRoom(roomID, PlayerConn{ID: 2}))
	require.NoError(t, rm.JoinRoom(roomID, PlayerConn{ID: 3}))
	assert.ErrorIs(t, rm.JoinRoom(roomID, PlayerConn{ID: 4}), ErrRoomFull)

	count, ok := rm.RoomPlayerCount(roomID)
	require.True(t, ok)
	assert.Equal(t, 3, count)
}

func TestStartIfReady(t *testing.T) {
	t.Parallel()
	rm := newTestManager()
	roomID := rm.CreateRoom()

	assert.ErrorIs(t, rm.StartIfReady(roomID, 7), ErrNotReady)
	assert.ErrorIs(t, rm.StartIfReady("NOSUCH", 7), ErrRoomNotFound)

	require.NoError(t, rm.JoinRoom(roomID, PlayerConn{ID: 1}))
	require.NoError(t, rm.JoinRoom(roomID, PlayerConn{ID: 2}))
	assert.ErrorIs(t, rm.StartIfReady(roomID, 7), ErrNotReady)
	assert.False(t, rm.RoomStarted(roomID))

	require.NoError(t, rm.JoinRoom(roomID, PlayerConn{ID: 3}))
	require.NoError(t, rm.StartIfReady(roomID, 7))
	assert.True(t, rm.RoomStarted(roomID))

	// Starting a running room again must not redeal.
	running := rm.rooms[roomID].Game
	require.NoError(t, rm.StartIfReady(roomID, 99))
	assert.Same(t, running, rm.rooms[roomID].Game)
}

func TestRemoveConnection(t *testing.T) {
	t.Parallel()
	rm := newTestManager()

	_, ok := rm.RemoveConnection("NOSUCH", 1)
	assert.False(t, ok)

	roomID := fullRoom(t, rm)
	require.NoError(t, rm.StartIfReady(roomID, 7))

	// Removing a non-member succeeds without disturbing the room.
	result, ok := rm.RemoveConnection(roomID, 99)
	require.True(t, ok)
	assert.False(t, result.GameInterrupted)
	assert.Equal(t, 3, result.PlayerCount)
	assert.True(t, rm.RoomStarted(roomID))

	// Removing a seated player interrupts the running game.
	result, ok = rm.RemoveConnection(roomID, 2)
	require.True(t, ok)
	assert.True(t, result.GameInterrupted)
	assert.False(t, result.RoomDeleted)
	assert.Equal(t, 2, result.PlayerCount)
	assert.False(t, rm.RoomStarted(roomID))

	result, ok = rm.RemoveConnection(roomID, 1)
	require.True(t, ok)
	assert.False(t, result.GameInterrupted)

	result, ok = rm.RemoveConnection(roomID, 3)
	require.True(t, ok)
	assert.True(t, result.RoomDeleted)
	_, ok = rm.RoomPlayerCount(roomID)
	assert.False(t, ok, "empty room is deleted")
}

func TestApplyPlayErrors(t *testing.T) {
	t.Parallel()
	rm := newTestManager()

	_, _, err := rm.ApplyPlay("NOSUCH", 1, parseCards(t, "C3"))
	assert.ErrorIs(t, err, ErrRoomNotFound)

	roomID := fullRoom(t, rm)
	_, _, err = rm.ApplyPlay(roomID, 1, parseCards(t, "C3"))
	assert.ErrorIs(t, err, ErrNotReady, "no game running yet")

	require.NoError(t, rm.StartIfReady(roomID, 7))

	_, _, err = rm.ApplyPlay(roomID, 99, parseCards(t, "C3"))
	assert.ErrorIs(t, err, ErrRoomNotFound, "unseated user")

	state := rm.rooms[roomID].Game
	offTurn := state.Players[(state.Turn+1)%3].ID
	_, _, err = rm.ApplyPlay(roomID, offTurn, parseCards(t, "C3"))
	assert.ErrorIs(t, err, game.ErrNotYourTurn, "engine errors pass through wrapped")
}

func TestApplyPlayReportsWinner(t *testing.T) {
	t.Parallel()
	rm := newTestManager()
	roomID := fullRoom(t, rm)

	// Install a game one card from finished.
	state := &game.State{Turn: 0, LastPlayer: game.NoSeat}
	state.Players[0] = game.PlayerState{ID: 1, Hand: parseCards(t, "CK")}
	state.Players[1] = game.PlayerState{ID: 2, Hand: parseCards(t, "D5", "D6")}
	state.Players[2] = game.PlayerState{ID: 3, Hand: parseCards(t, "H7", "H8")}
	rm.rooms[roomID].Game = state

	winnerID, won, err := rm.ApplyPlay(roomID, 1, parseCards(t, "CK"))
	require.NoError(t, err)
	assert.True(t, won)
	assert.Equal(t, uint64(1), winnerID)
}

func TestPassTurn(t *testing.T) {
	t.Parallel()
	rm := newTestManager()
	roomID := fullRoom(t, rm)

	assert.ErrorIs(t, rm.PassTurn(roomID, 1), ErrNotReady)

	require.NoError(t, rm.StartIfReady(roomID, 7))
	state := rm.rooms[roomID].Game
	leader := state.Players[state.Turn].ID

	assert.ErrorIs(t, rm.PassTurn(roomID, leader), game.ErrCannotPass, "leader cannot pass a fresh trick")
	assert.ErrorIs(t, rm.PassTurn(roomID, 99), ErrRoomNotFound)
}

func TestRestartGame(t *testing.T) {
	t.Parallel()
	rm := newTestManager()
	roomID := rm.CreateRoom()
	require.NoError(t, rm.JoinRoom(roomID, PlayerConn{ID: 1}))

	assert.ErrorIs(t, rm.RestartGame(roomID, 1, 7), ErrNotReady, "room not full")

	require.NoError(t, rm.JoinRoom(roomID, PlayerConn{ID: 2}))
	require.NoError(t, rm.JoinRoom(roomID, PlayerConn{ID: 3}))
	require.NoError(t, rm.StartIfReady(roomID, 7))

	assert.ErrorIs(t, rm.RestartGame(roomID, 99, 8), ErrRestartNotAllowed, "unseated requester")
	assert.ErrorIs(t, rm.RestartGame(roomID, 1, 8), ErrRestartNotAllowed, "game still running")

	rm.rooms[roomID].Game.Players[0].Out = true
	require.NoError(t, rm.RestartGame(roomID, 1, 8))
	assert.False(t, rm.rooms[roomID].Game.Finished(), "restart deals a fresh game")
}

func TestSnapshotRedaction(t *testing.T) {
	t.Parallel()
	rm := newTestManager()
	roomID := fullRoom(t, rm)

	_, ok := rm.SnapshotFor(roomID, 1)
	assert.False(t, ok, "no snapshot before the game starts")

	require.NoError(t, rm.StartIfReady(roomID, 7))
	state := rm.rooms[roomID].Game
	landlordID := state.Players[state.Landlord].ID

	for _, viewerID := range []uint64{1, 2, 3} {
		snapshot, ok := rm.SnapshotFor(roomID, viewerID)
		require.True(t, ok)
		assert.Equal(t, roomID, snapshot.RoomID)
		assert.Equal(t, landlordID, snapshot.Turn, "landlord leads")
		assert.Nil(t, snapshot.LastPlay)
		assert.Nil(t, snapshot.LastPlayer)

		if viewerID == landlordID {
			assert.Len(t, snapshot.YourHand, 20)
		} else {
			assert.Len(t, snapshot.YourHand, 17)
		}

		landlords := 0
		for _, info := range snapshot.Players {
			if info.IsLandlord {
				landlords++
				assert.Equal(t, landlordID, info.ID)
				assert.Equal(t, 20, info.HandCount)
			} else {
				assert.Equal(t, 17, info.HandCount)
			}
			assert.Equal(t, DisplayName(info.ID), info.Name)
		}
		assert.Equal(t, 1, landlords)
	}

	// Outsiders see the public view only.
	snapshot, ok := rm.SnapshotFor(roomID, 99)
	require.True(t, ok)
	assert.Empty(t, snapshot.YourHand)
	assert.Len(t, snapshot.Players, 3)
}

func TestSnapshotAll(t *testing.T) {
	t.Parallel()
	rm := newTestManager()
	roomID := fullRoom(t, rm)

	assert.Nil(t, rm.SnapshotAll(roomID), "no fan-out before the game starts")

	require.NoError(t, rm.StartIfReady(roomID, 7))
	snapshots := rm.SnapshotAll(roomID)
	require.Len(t, snapshots, 3)

	state := rm.rooms[roomID].Game
	for _, addressed := range snapshots {
		seat, ok := state.PlayerIndex(addressed.Conn.ID)
		require.True(t, ok)
		assert.Len(t, addressed.Snapshot.YourHand, len(state.Players[seat].Hand),
			"each recipient sees exactly its own hand")
	}
}

func TestRoomSummaries(t *testing.T) {
	t.Parallel()
	rm := newTestManager()
	full := fullRoom(t, rm)
	require.NoError(t, rm.StartIfReady(full, 7))
	open := rm.CreateRoom()
	require.NoError(t, rm.JoinRoom(open, PlayerConn{ID: 10}))

	summaries := rm.RoomSummaries()
	require.Len(t, summaries, 2)
	assert.LessOrEqual(t, summaries[0].RoomID, summaries[1].RoomID, "sorted by id")

	byID := make(map[string]int)
	for i, summary := range summaries {
		byID[summary.RoomID] = i
	}
	fullSummary := summaries[byID[full]]
	assert.Equal(t, 3, fullSummary.PlayerCount)
	assert.True(t, fullSummary.Started)
	assert.False(t, fullSummary.CanJoin)

	openSummary := summaries[byID[open]]
	assert.Equal(t, 1, openSummary.PlayerCount)
	assert.False(t, openSummary.Started)
	assert.True(t, openSummary.CanJoin)
}
