package server

import (
	"context"
	"fmt"
	rand "math/rand/v2"
	"net/http"
	"sync"

	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lox/doudizhu/internal/randutil"
)

// Server accepts websocket sessions and routes their intents into the room
// manager. One Server owns one RoomManager and one seedable RNG used for
// user ids and deal seeds.
type Server struct {
	logger   zerolog.Logger
	upgrader websocket.Upgrader
	rooms    *RoomManager
	clock    quartz.Clock

	rngMu sync.Mutex
	rng   *rand.Rand

	connMu      sync.Mutex
	connections map[*Connection]struct{}

	httpServer *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithClock injects the clock driving connection ping tickers; tests use a
// quartz mock to step time manually.
func WithClock(clock quartz.Clock) Option {
	return func(s *Server) {
		s.clock = clock
	}
}

// NewServer creates a server. The RNG seeds user ids, room ids, and deals;
// pass a deterministically seeded source for reproducible runs.
func NewServer(logger zerolog.Logger, rng *rand.Rand, opts ...Option) *Server {
	s := &Server{
		logger: logger.With().Str("component", "server").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clock:       quartz.NewReal(),
		rng:         rng,
		connections: make(map[*Connection]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	// The manager gets its own source so room-id draws never contend with
	// user-id and seed draws.
	s.rooms = NewRoomManager(logger, randutil.New(rng.Uint64()))
	return s
}

// Rooms exposes the room manager.
func (s *Server) Rooms() *RoomManager {
	return s.rooms
}

// Handler returns the HTTP handler serving /ws and /health.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// Start listens on addr and serves until Shutdown or a listener error.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.Handler()}
	s.logger.Info().Str("addr", addr).Msg("listening")
	return s.httpServer.ListenAndServe()
}

// Shutdown stops the listener and closes every live session.
func (s *Server) Shutdown(ctx context.Context) error {
	s.connMu.Lock()
	for conn := range s.connections {
		_ = conn.Close()
	}
	s.connMu.Unlock()

	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	wsConn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	userID := s.nextUserID()
	conn := newConnection(wsConn, userID, DisplayName(userID), s.logger, s.clock)

	s.connMu.Lock()
	s.connections[conn] = struct{}{}
	total := len(s.connections)
	s.connMu.Unlock()
	s.logger.Info().Uint64("user", userID).Int("total", total).Msg("client connected")

	go conn.writePump()
	s.runSession(conn)

	s.connMu.Lock()
	delete(s.connections, conn)
	total = len(s.connections)
	s.connMu.Unlock()
	s.logger.Info().Uint64("user", userID).Int("total", total).Msg("client disconnected")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, "ok")
}

// nextUserID draws an opaque 64-bit identity for a new session.
func (s *Server) nextUserID() uint64 {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Uint64()
}

// nextSeed draws a deal seed.
func (s *Server) nextSeed() uint64 {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Uint64()
}
