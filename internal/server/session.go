package server

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lox/doudizhu/internal/deck"
	"github.com/lox/doudizhu/internal/protocol"
)

// runSession drives one connection: greet, then decode intents until the
// transport closes. Whatever the exit path, the connection leaves its room
// exactly once.
func (s *Server) runSession(c *Connection) {
	defer func() {
		s.leaveRoomIfNeeded(c)
		_ = c.Close()
	}()

	c.TrySend(protocol.MustMessage(protocol.TypeWelcome, protocol.WelcomeData{
		UserID:   c.userID,
		UserName: c.name,
	}))
	s.sendRoomList(c)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Debug().Err(err).Msg("read failed")
			}
			return
		}
		var msg protocol.Envelope
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
			c.TrySend(protocol.MustMessage(protocol.TypeError, protocol.ErrorData{Message: "invalid message"}))
			continue
		}
		s.handleIntent(c, msg)
	}
}

// handleIntent applies one client intent. Illegal attempts answer only the
// offending connection; accepted mutations broadcast tailored snapshots to
// the whole room.
func (s *Server) handleIntent(c *Connection, msg protocol.Envelope) {
	switch msg.Type {
	case protocol.TypePing:
		c.TrySend(protocol.MustMessage(protocol.TypePong, nil))

	case protocol.TypeListRooms:
		s.sendRoomList(c)

	case protocol.TypeCreateRoom:
		s.handleCreateRoom(c)

	case protocol.TypeJoinRoom:
		var data protocol.JoinRoomData
		if err := msg.Decode(&data); err != nil {
			c.TrySend(protocol.MustMessage(protocol.TypeError, protocol.ErrorData{Message: "invalid message"}))
			return
		}
		s.handleJoinRoom(c, data)

	case protocol.TypePlay:
		var data protocol.PlayData
		if err := msg.Decode(&data); err != nil {
			c.TrySend(protocol.MustMessage(protocol.TypeError, protocol.ErrorData{Message: "invalid message"}))
			return
		}
		s.handlePlay(c, data)

	case protocol.TypePass:
		s.handlePass(c)

	case protocol.TypeRestartGame:
		s.handleRestart(c)

	default:
		c.TrySend(protocol.MustMessage(protocol.TypeError, protocol.ErrorData{Message: "invalid message"}))
	}
}

func (s *Server) handleCreateRoom(c *Connection) {
	s.leaveRoomIfNeeded(c)

	roomID := s.rooms.CreateRoom()
	if err := s.rooms.JoinRoom(roomID, PlayerConn{ID: c.userID, Out: c}); err != nil {
		c.TrySend(protocol.MustMessage(protocol.TypeError, protocol.ErrorData{Message: err.Error()}))
		return
	}
	// A fresh room cannot be ready yet; the result only matters for joins.
	_ = s.rooms.StartIfReady(roomID, s.nextSeed())
	c.roomID = roomID

	playerCount, _ := s.rooms.RoomPlayerCount(roomID)
	c.TrySend(protocol.MustMessage(protocol.TypeRoomCreated, protocol.RoomCreatedData{RoomID: roomID}))
	c.TrySend(protocol.MustMessage(protocol.TypeJoined, protocol.JoinedData{
		RoomID:      roomID,
		You:         c.userID,
		YouName:     c.name,
		PlayerCount: playerCount,
		Started:     s.rooms.RoomStarted(roomID),
	}))
	s.broadcastRoomState(roomID)
	s.sendRoomList(c)
}

func (s *Server) handleJoinRoom(c *Connection, data protocol.JoinRoomData) {
	s.leaveRoomIfNeeded(c)

	roomID := strings.ToUpper(strings.TrimSpace(data.RoomID))
	if err := s.rooms.JoinRoom(roomID, PlayerConn{ID: c.userID, Out: c}); err != nil {
		c.TrySend(protocol.MustMessage(protocol.TypeError, protocol.ErrorData{Message: err.Error()}))
		return
	}
	// Third seat filled means the game deals immediately.
	_ = s.rooms.StartIfReady(roomID, s.nextSeed())
	c.roomID = roomID

	playerCount, _ := s.rooms.RoomPlayerCount(roomID)
	c.TrySend(protocol.MustMessage(protocol.TypeJoined, protocol.JoinedData{
		RoomID:      roomID,
		You:         c.userID,
		YouName:     c.name,
		PlayerCount: playerCount,
		Started:     s.rooms.RoomStarted(roomID),
	}))
	s.broadcastRoomState(roomID)
	s.sendRoomList(c)
}

func (s *Server) handlePlay(c *Connection, data protocol.PlayData) {
	if c.roomID == "" {
		c.TrySend(protocol.MustMessage(protocol.TypeError, protocol.ErrorData{Message: ErrRoomNotFound.Error()}))
		return
	}
	cards, err := deck.ParseCards(data.Cards)
	if err != nil {
		c.TrySend(protocol.MustMessage(protocol.TypePlayRejected, protocol.PlayRejectedData{Reason: "invalid card code"}))
		return
	}
	winnerID, won, err := s.rooms.ApplyPlay(c.roomID, c.userID, cards)
	if err != nil {
		c.TrySend(protocol.MustMessage(protocol.TypePlayRejected, protocol.PlayRejectedData{Reason: rejectionReason(err)}))
		return
	}
	s.broadcastRoomState(c.roomID)
	if won {
		s.broadcastToRoom(c.roomID, protocol.MustMessage(protocol.TypeGameOver, protocol.GameOverData{
			RoomID:   c.roomID,
			WinnerID: winnerID,
		}))
	}
}

func (s *Server) handlePass(c *Connection) {
	if c.roomID == "" {
		c.TrySend(protocol.MustMessage(protocol.TypeError, protocol.ErrorData{Message: ErrRoomNotFound.Error()}))
		return
	}
	if err := s.rooms.PassTurn(c.roomID, c.userID); err != nil {
		c.TrySend(protocol.MustMessage(protocol.TypeError, protocol.ErrorData{Message: rejectionReason(err)}))
		return
	}
	s.broadcastRoomState(c.roomID)
}

func (s *Server) handleRestart(c *Connection) {
	if c.roomID == "" {
		c.TrySend(protocol.MustMessage(protocol.TypeError, protocol.ErrorData{Message: ErrRoomNotFound.Error()}))
		return
	}
	if err := s.rooms.RestartGame(c.roomID, c.userID, s.nextSeed()); err != nil {
		c.TrySend(protocol.MustMessage(protocol.TypeError, protocol.ErrorData{Message: rejectionReason(err)}))
		return
	}
	s.broadcastRoomState(c.roomID)
	s.broadcastToRoom(c.roomID, protocol.MustMessage(protocol.TypeGameRestarted, protocol.GameRestartedData{RoomID: c.roomID}))
}

// leaveRoomIfNeeded detaches the session from its current room, if any,
// broadcasting the interruption when an active game lost a seat.
func (s *Server) leaveRoomIfNeeded(c *Connection) {
	if c.roomID == "" {
		return
	}
	roomID := c.roomID
	c.roomID = ""
	result, ok := s.rooms.RemoveConnection(roomID, c.userID)
	if !ok {
		return
	}
	if result.GameInterrupted && !result.RoomDeleted {
		s.broadcastToRoom(roomID, protocol.MustMessage(protocol.TypeRoomInterrupted, protocol.RoomInterruptedData{
			RoomID:      roomID,
			LeaverID:    c.userID,
			PlayerCount: result.PlayerCount,
		}))
	}
	s.broadcastRoomState(roomID)
}

func (s *Server) sendRoomList(c *Connection) {
	c.TrySend(protocol.MustMessage(protocol.TypeRoomsList, protocol.RoomsListData{
		Rooms: s.rooms.RoomSummaries(),
	}))
}

// broadcastRoomState fans tailored snapshots out to every seat. Snapshots
// are assembled under the manager lock; delivery happens after release.
func (s *Server) broadcastRoomState(roomID string) {
	for _, addressed := range s.rooms.SnapshotAll(roomID) {
		if addressed.Conn.Out == nil {
			continue
		}
		addressed.Conn.Out.TrySend(protocol.MustMessage(protocol.TypeRoomState, addressed.Snapshot))
	}
}

func (s *Server) broadcastToRoom(roomID string, msg protocol.Envelope) {
	for _, player := range s.rooms.RoomConnections(roomID) {
		if player.Out == nil {
			continue
		}
		player.Out.TrySend(msg)
	}
}

// rejectionReason strips the manager's wrapping so clients see the bare
// engine reason ("not your turn", not "apply play: not your turn").
func rejectionReason(err error) string {
	if unwrapped := errors.Unwrap(err); unwrapped != nil {
		return unwrapped.Error()
	}
	return err.Error()
}
