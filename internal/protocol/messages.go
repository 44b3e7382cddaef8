// Package protocol defines the JSON wire messages exchanged between the
// server and its websocket clients. Every frame is an envelope of the form
// {"type": "...", "data": {...}}; intents and events without a payload omit
// the data field.
package protocol

import "encoding/json"

// Client intents.
const (
	TypeCreateRoom  = "CreateRoom"
	TypeJoinRoom    = "JoinRoom"
	TypeListRooms   = "ListRooms"
	TypePlay        = "Play"
	TypePass        = "Pass"
	TypeRestartGame = "RestartGame"
	TypePing        = "Ping"
)

// Server events.
const (
	TypeWelcome         = "Welcome"
	TypeRoomCreated     = "RoomCreated"
	TypeJoined          = "Joined"
	TypeRoomsList       = "RoomsList"
	TypeRoomState       = "RoomState"
	TypePlayRejected    = "PlayRejected"
	TypeGameOver        = "GameOver"
	TypeRoomInterrupted = "RoomInterrupted"
	TypeGameRestarted   = "GameRestarted"
	TypeError           = "Error"
	TypePong            = "Pong"
)

// Envelope is the base message structure for both directions.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewMessage builds an envelope with a marshaled payload. Pass nil for
// payload-free messages like Ping and Pong.
func NewMessage(msgType string, payload any) (Envelope, error) {
	env := Envelope{Type: msgType}
	if payload == nil {
		return env, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	env.Data = data
	return env, nil
}

// MustMessage is NewMessage for payloads that cannot fail to marshal.
func MustMessage(msgType string, payload any) Envelope {
	env, err := NewMessage(msgType, payload)
	if err != nil {
		panic(err)
	}
	return env
}

// Decode unmarshals the envelope payload into v.
func (e Envelope) Decode(v any) error {
	return json.Unmarshal(e.Data, v)
}

// Client intent payloads.

type JoinRoomData struct {
	RoomID string `json:"room_id"`
}

type PlayData struct {
	Cards []string `json:"cards"`
}

// Server event payloads.

type WelcomeData struct {
	UserID   uint64 `json:"user_id"`
	UserName string `json:"user_name"`
}

type RoomCreatedData struct {
	RoomID string `json:"room_id"`
}

type JoinedData struct {
	RoomID      string `json:"room_id"`
	You         uint64 `json:"you"`
	YouName     string `json:"you_name"`
	PlayerCount int    `json:"player_count"`
	Started     bool   `json:"started"`
}

type RoomsListData struct {
	Rooms []RoomSummary `json:"rooms"`
}

// RoomSummary is one lobby entry.
type RoomSummary struct {
	RoomID      string `json:"room_id"`
	PlayerCount int    `json:"player_count"`
	Started     bool   `json:"started"`
	CanJoin     bool   `json:"can_join"`
}

// PlayerInfo is the public view of one seat: identity and hand size only.
type PlayerInfo struct {
	ID         uint64 `json:"id"`
	Name       string `json:"name"`
	HandCount  int    `json:"hand_count"`
	IsLandlord bool   `json:"is_landlord"`
}

// PlayView is the public view of the standing play.
type PlayView struct {
	Kind     string `json:"kind"`
	MainRank string `json:"main_rank"`
	Size     int    `json:"size"`
}

// RoomSnapshot is a per-viewer projection of a running game: the viewer's
// own hand plus public information about everyone else.
type RoomSnapshot struct {
	RoomID     string       `json:"room_id"`
	Players    []PlayerInfo `json:"players"`
	Turn       uint64       `json:"turn"`
	LastPlayer *uint64      `json:"last_player"`
	LastPlay   *PlayView    `json:"last_play"`
	YourHand   []string     `json:"your_hand"`
}

type PlayRejectedData struct {
	Reason string `json:"reason"`
}

type GameOverData struct {
	RoomID   string `json:"room_id"`
	WinnerID uint64 `json:"winner_id"`
}

type RoomInterruptedData struct {
	RoomID      string `json:"room_id"`
	LeaverID    uint64 `json:"leaver_id"`
	PlayerCount int    `json:"player_count"`
}

type GameRestartedData struct {
	RoomID string `json:"room_id"`
}

type ErrorData struct {
	Message string `json:"message"`
}
