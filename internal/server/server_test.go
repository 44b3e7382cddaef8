package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/doudizhu/internal/protocol"
	"github.com/lox/doudizhu/internal/randutil"
	"github.com/lox/doudizhu/internal/roomid"
)

type wsClient struct {
	t      *testing.T
	conn   *websocket.Conn
	userID uint64
}

// dialTestClient connects to the test server and consumes the greeting.
func dialTestClient(t *testing.T, wsURL string) *wsClient {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	client := &wsClient{t: t, conn: conn}
	var welcome protocol.WelcomeData
	client.readUntil(protocol.TypeWelcome).decode(t, &welcome)
	require.NotZero(t, welcome.UserID)
	require.NotEmpty(t, welcome.UserName)
	client.userID = welcome.UserID
	client.readUntil(protocol.TypeRoomsList)
	return client
}

type envelope struct{ protocol.Envelope }

func (e envelope) decode(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, e.Decode(v))
}

func (c *wsClient) read() envelope {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var env protocol.Envelope
	require.NoError(c.t, c.conn.ReadJSON(&env))
	return envelope{env}
}

// readUntil skips frames until one of the wanted type arrives.
func (c *wsClient) readUntil(msgType string) envelope {
	c.t.Helper()
	for i := 0; i < 50; i++ {
		env := c.read()
		if env.Type == msgType {
			return env
		}
	}
	c.t.Fatalf("no %s frame received", msgType)
	return envelope{}
}

func (c *wsClient) send(msgType string, payload any) {
	c.t.Helper()
	require.NoError(c.t, c.conn.WriteJSON(protocol.MustMessage(msgType, payload)))
}

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	s := NewServer(zerolog.Nop(), randutil.New(42))
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()
	s := NewServer(zerolog.Nop(), randutil.New(1))
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
}

func TestPingPong(t *testing.T) {
	t.Parallel()
	_, wsURL := newTestServer(t)
	client := dialTestClient(t, wsURL)
	client.send(protocol.TypePing, nil)
	client.readUntil(protocol.TypePong)
}

func TestMalformedFramesAnswerError(t *testing.T) {
	t.Parallel()
	_, wsURL := newTestServer(t)
	client := dialTestClient(t, wsURL)

	require.NoError(t, client.conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	var errData protocol.ErrorData
	client.readUntil(protocol.TypeError).decode(t, &errData)
	assert.Equal(t, "invalid message", errData.Message)

	client.send("NoSuchIntent", nil)
	client.readUntil(protocol.TypeError).decode(t, &errData)
	assert.Equal(t, "invalid message", errData.Message)
}

func TestGameFlowOverWebsocket(t *testing.T) {
	t.Parallel()
	_, wsURL := newTestServer(t)

	host := dialTestClient(t, wsURL)
	host.send(protocol.TypeCreateRoom, nil)

	var created protocol.RoomCreatedData
	host.readUntil(protocol.TypeRoomCreated).decode(t, &created)
	require.True(t, roomid.Valid(created.RoomID))
	roomID := created.RoomID

	var joined protocol.JoinedData
	host.readUntil(protocol.TypeJoined).decode(t, &joined)
	assert.Equal(t, roomID, joined.RoomID)
	assert.Equal(t, host.userID, joined.You)
	assert.Equal(t, 1, joined.PlayerCount)
	assert.False(t, joined.Started)

	// Join codes are normalized, so lower case with padding still lands.
	clients := []*wsClient{host}
	for i := 0; i < 2; i++ {
		guest := dialTestClient(t, wsURL)
		guest.send(protocol.TypeJoinRoom, protocol.JoinRoomData{RoomID: "  " + strings.ToLower(roomID) + " "})
		guest.readUntil(protocol.TypeJoined).decode(t, &joined)
		assert.Equal(t, roomID, joined.RoomID)
		assert.Equal(t, i+2, joined.PlayerCount)
		clients = append(clients, guest)
	}

	// The third seat starts the game; every seat gets a tailored snapshot.
	hands := make(map[uint64][]string)
	var turnID uint64
	for _, client := range clients {
		var snapshot protocol.RoomSnapshot
		client.readUntil(protocol.TypeRoomState).decode(t, &snapshot)
		require.Len(t, snapshot.Players, 3)
		assert.Nil(t, snapshot.LastPlay)
		hands[client.userID] = snapshot.YourHand
		turnID = snapshot.Turn

		landlords := 0
		for _, info := range snapshot.Players {
			if info.IsLandlord {
				landlords++
				assert.Equal(t, snapshot.Turn, info.ID, "landlord leads")
				assert.Equal(t, 20, info.HandCount)
			} else {
				assert.Equal(t, 17, info.HandCount)
			}
		}
		assert.Equal(t, 1, landlords)
		if client.userID == snapshot.Turn {
			assert.Len(t, snapshot.YourHand, 20)
		} else {
			assert.Len(t, snapshot.YourHand, 17)
		}
	}

	var leader, follower *wsClient
	for _, client := range clients {
		if client.userID == turnID {
			leader = client
		} else if follower == nil {
			follower = client
		}
	}
	require.NotNil(t, leader)
	require.NotNil(t, follower)

	// Rejections answer only the offender and never advance the game.
	var rejected protocol.PlayRejectedData
	follower.send(protocol.TypePlay, protocol.PlayData{Cards: hands[follower.userID][:1]})
	follower.readUntil(protocol.TypePlayRejected).decode(t, &rejected)
	assert.Equal(t, "not your turn", rejected.Reason)

	leader.send(protocol.TypePlay, protocol.PlayData{Cards: []string{"XX"}})
	leader.readUntil(protocol.TypePlayRejected).decode(t, &rejected)
	assert.Equal(t, "invalid card code", rejected.Reason)

	var errData protocol.ErrorData
	leader.send(protocol.TypePass, nil)
	leader.readUntil(protocol.TypeError).decode(t, &errData)
	assert.Equal(t, "cannot pass", errData.Message)

	// A legal lead broadcasts the new state to everyone.
	lead := hands[leader.userID][:1]
	leader.send(protocol.TypePlay, protocol.PlayData{Cards: lead})
	for _, client := range clients {
		var snapshot protocol.RoomSnapshot
		client.readUntil(protocol.TypeRoomState).decode(t, &snapshot)
		require.NotNil(t, snapshot.LastPlayer)
		assert.Equal(t, leader.userID, *snapshot.LastPlayer)
		require.NotNil(t, snapshot.LastPlay)
		assert.Equal(t, "Single", snapshot.LastPlay.Kind)
		assert.NotEqual(t, leader.userID, snapshot.Turn, "turn advanced")
		for _, info := range snapshot.Players {
			if info.ID == leader.userID {
				assert.Equal(t, 19, info.HandCount)
			}
		}
	}
}

func TestJoinUnknownRoom(t *testing.T) {
	t.Parallel()
	_, wsURL := newTestServer(t)
	client := dialTestClient(t, wsURL)

	client.send(protocol.TypeJoinRoom, protocol.JoinRoomData{RoomID: "NOSUCH"})
	var errData protocol.ErrorData
	client.readUntil(protocol.TypeError).decode(t, &errData)
	assert.Equal(t, "room not found", errData.Message)
}

func TestDisconnectInterruptsGame(t *testing.T) {
	t.Parallel()
	s, wsURL := newTestServer(t)

	host := dialTestClient(t, wsURL)
	host.send(protocol.TypeCreateRoom, nil)
	var created protocol.RoomCreatedData
	host.readUntil(protocol.TypeRoomCreated).decode(t, &created)

	guestA := dialTestClient(t, wsURL)
	guestA.send(protocol.TypeJoinRoom, protocol.JoinRoomData{RoomID: created.RoomID})
	guestB := dialTestClient(t, wsURL)
	guestB.send(protocol.TypeJoinRoom, protocol.JoinRoomData{RoomID: created.RoomID})

	host.readUntil(protocol.TypeRoomState)
	require.True(t, s.Rooms().RoomStarted(created.RoomID))

	require.NoError(t, guestB.conn.Close())

	var interrupted protocol.RoomInterruptedData
	host.readUntil(protocol.TypeRoomInterrupted).decode(t, &interrupted)
	assert.Equal(t, created.RoomID, interrupted.RoomID)
	assert.Equal(t, guestB.userID, interrupted.LeaverID)
	assert.Equal(t, 2, interrupted.PlayerCount)
	assert.False(t, s.Rooms().RoomStarted(created.RoomID))
}
