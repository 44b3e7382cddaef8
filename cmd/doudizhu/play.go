package main

import (
	"fmt"
	"io"
	"os"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/doudizhu/internal/protocol"
	"github.com/lox/doudizhu/internal/tui"
)

// PlayCmd connects to a server and runs the interactive terminal client.
type PlayCmd struct {
	URL     string `default:"ws://localhost:33030/ws" help:"Server websocket URL"`
	LogFile string `help:"Write client debug logs to this file" type:"path"`
}

func (c *PlayCmd) Run() error {
	logWriter := io.Discard
	if c.LogFile != "" {
		f, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logWriter = f
	}
	logger := log.NewWithOptions(logWriter, log.Options{
		Level:           log.DebugLevel,
		ReportTimestamp: true,
	})

	conn, _, err := websocket.DefaultDialer.Dial(c.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.URL, err)
	}
	defer conn.Close()

	// Gorilla permits only one concurrent writer.
	var writeMu sync.Mutex
	send := func(env protocol.Envelope) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(env)
	}

	model := tui.New(send, logger)
	program := tea.NewProgram(model, tea.WithAltScreen())

	go func() {
		for {
			var env protocol.Envelope
			if err := conn.ReadJSON(&env); err != nil {
				program.Send(tui.DisconnectedMsg{Err: err})
				return
			}
			logger.Debug("server message", "type", env.Type)
			program.Send(tui.ServerMsg{Envelope: env})
		}
	}()

	_, err = program.Run()
	return err
}
