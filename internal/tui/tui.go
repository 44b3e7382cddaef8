// Package tui implements the interactive terminal client for the landlord
// server: a scrolling event log, a command input, and a styled view of the
// room and the player's hand.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/lox/doudizhu/internal/protocol"
)

// ServerMsg delivers a decoded server frame into the Bubble Tea loop.
type ServerMsg struct {
	Envelope protocol.Envelope
}

// DisconnectedMsg signals that the websocket read loop ended.
type DisconnectedMsg struct {
	Err error
}

// SendFunc pushes an intent to the server.
type SendFunc func(protocol.Envelope) error

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#04B575"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	turnStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFD700"))
	landlordStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	blackCard     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAFAFA")).Background(lipgloss.Color("236")).Padding(0, 1)
	redCard       = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555")).Background(lipgloss.Color("236")).Padding(0, 1)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555"))
)

// Model is the Bubble Tea model for one client session.
type Model struct {
	send   SendFunc
	logger *log.Logger

	input    textinput.Model
	eventLog viewport.Model

	lines    []string
	userID   uint64
	userName string
	roomID   string
	snapshot *protocol.RoomSnapshot
	rooms    []protocol.RoomSummary

	width    int
	height   int
	sized    bool
	quitting bool
}

// New creates the client model. send delivers intents to the server.
func New(send SendFunc, logger *log.Logger) *Model {
	input := textinput.New()
	input.Placeholder = "create | join CODE | rooms | play C3 C4 | pass | restart | quit"
	input.Prompt = "> "
	input.PromptStyle = titleStyle
	input.CharLimit = 120
	input.Focus()

	vp := viewport.New(40, 10)

	return &Model{
		send:     send,
		logger:   logger.WithPrefix("tui"),
		input:    input,
		eventLog: vp,
	}
}

// Init starts the cursor blink.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles terminal events and server frames.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		logHeight := max(msg.Height-12, 3)
		m.eventLog.Width = msg.Width - 2
		m.eventLog.Height = logHeight
		m.input.Width = msg.Width - 4
		m.sized = true
		m.refreshLog()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyEnter:
			command := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if command == "" {
				return m, nil
			}
			return m.runCommand(command)
		}

	case ServerMsg:
		m.applyServerMessage(msg.Envelope)
		return m, nil

	case DisconnectedMsg:
		if msg.Err != nil {
			m.appendLine(errorStyle.Render(fmt.Sprintf("disconnected: %v", msg.Err)))
		} else {
			m.appendLine(dimStyle.Render("disconnected"))
		}
		m.quitting = true
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) runCommand(command string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(command)
	verb := strings.ToLower(fields[0])
	switch verb {
	case "quit", "exit":
		m.quitting = true
		return m, tea.Quit
	case "create":
		m.sendIntent(protocol.TypeCreateRoom, nil)
	case "join":
		if len(fields) != 2 {
			m.appendLine(errorStyle.Render("usage: join CODE"))
			return m, nil
		}
		m.sendIntent(protocol.TypeJoinRoom, protocol.JoinRoomData{RoomID: fields[1]})
	case "rooms":
		m.sendIntent(protocol.TypeListRooms, nil)
	case "play":
		if len(fields) < 2 {
			m.appendLine(errorStyle.Render("usage: play CODE [CODE ...]"))
			return m, nil
		}
		codes := make([]string, len(fields)-1)
		for i, code := range fields[1:] {
			codes[i] = strings.ToUpper(code)
		}
		m.sendIntent(protocol.TypePlay, protocol.PlayData{Cards: codes})
	case "pass":
		m.sendIntent(protocol.TypePass, nil)
	case "restart":
		m.sendIntent(protocol.TypeRestartGame, nil)
	case "ping":
		m.sendIntent(protocol.TypePing, nil)
	default:
		m.appendLine(errorStyle.Render(fmt.Sprintf("unknown command %q", verb)))
	}
	return m, nil
}

func (m *Model) sendIntent(msgType string, payload any) {
	env, err := protocol.NewMessage(msgType, payload)
	if err != nil {
		m.logger.Error("encode intent", "type", msgType, "err", err)
		return
	}
	if err := m.send(env); err != nil {
		m.appendLine(errorStyle.Render(fmt.Sprintf("send failed: %v", err)))
	}
}

func (m *Model) applyServerMessage(env protocol.Envelope) {
	switch env.Type {
	case protocol.TypeWelcome:
		var data protocol.WelcomeData
		if env.Decode(&data) == nil {
			m.userID = data.UserID
			m.userName = data.UserName
			m.appendLine(fmt.Sprintf("welcome, %s", titleStyle.Render(data.UserName)))
		}

	case protocol.TypeRoomCreated:
		var data protocol.RoomCreatedData
		if env.Decode(&data) == nil {
			m.appendLine(fmt.Sprintf("room %s created", titleStyle.Render(data.RoomID)))
		}

	case protocol.TypeJoined:
		var data protocol.JoinedData
		if env.Decode(&data) == nil {
			m.roomID = data.RoomID
			m.snapshot = nil
			m.appendLine(fmt.Sprintf("joined %s (%d/3 players)", titleStyle.Render(data.RoomID), data.PlayerCount))
		}

	case protocol.TypeRoomsList:
		var data protocol.RoomsListData
		if env.Decode(&data) == nil {
			m.rooms = data.Rooms
			if len(data.Rooms) == 0 {
				m.appendLine(dimStyle.Render("no rooms open"))
			}
			for _, room := range data.Rooms {
				status := "waiting"
				if room.Started {
					status = "playing"
				}
				m.appendLine(fmt.Sprintf("room %s  %d/3  %s", room.RoomID, room.PlayerCount, dimStyle.Render(status)))
			}
		}

	case protocol.TypeRoomState:
		var snapshot protocol.RoomSnapshot
		if env.Decode(&snapshot) == nil {
			m.snapshot = &snapshot
			m.roomID = snapshot.RoomID
		}

	case protocol.TypePlayRejected:
		var data protocol.PlayRejectedData
		if env.Decode(&data) == nil {
			m.appendLine(errorStyle.Render("play rejected: " + data.Reason))
		}

	case protocol.TypeGameOver:
		var data protocol.GameOverData
		if env.Decode(&data) == nil {
			name := m.seatName(data.WinnerID)
			m.appendLine(turnStyle.Render(fmt.Sprintf("game over, %s wins", name)))
			m.appendLine(dimStyle.Render("type restart to deal again"))
		}

	case protocol.TypeRoomInterrupted:
		var data protocol.RoomInterruptedData
		if env.Decode(&data) == nil {
			m.snapshot = nil
			m.appendLine(errorStyle.Render(fmt.Sprintf("game interrupted, %s left (%d remain)", m.seatName(data.LeaverID), data.PlayerCount)))
		}

	case protocol.TypeGameRestarted:
		m.appendLine(titleStyle.Render("new deal"))

	case protocol.TypeError:
		var data protocol.ErrorData
		if env.Decode(&data) == nil {
			m.appendLine(errorStyle.Render("error: " + data.Message))
		}

	case protocol.TypePong:
		m.appendLine(dimStyle.Render("pong"))

	default:
		m.logger.Debug("unhandled server message", "type", env.Type)
	}
}

// seatName resolves a user id against the current snapshot, falling back to
// the raw id when the seat is unknown.
func (m *Model) seatName(userID uint64) string {
	if m.snapshot != nil {
		for _, player := range m.snapshot.Players {
			if player.ID == userID {
				return player.Name
			}
		}
	}
	if userID == m.userID {
		return m.userName
	}
	return fmt.Sprintf("player %d", userID)
}

func (m *Model) appendLine(line string) {
	m.lines = append(m.lines, line)
	if len(m.lines) > 200 {
		m.lines = m.lines[len(m.lines)-200:]
	}
	m.refreshLog()
}

func (m *Model) refreshLog() {
	m.eventLog.SetContent(strings.Join(m.lines, "\n"))
	m.eventLog.GotoBottom()
}

// View renders the room header, hand, event log, and input.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder

	header := titleStyle.Render("doudizhu")
	if m.userName != "" {
		header += dimStyle.Render("  playing as ") + m.userName
	}
	if m.roomID != "" {
		header += dimStyle.Render("  room ") + m.roomID
	}
	b.WriteString(header + "\n\n")

	if m.snapshot != nil {
		b.WriteString(m.renderRoom(m.snapshot))
		b.WriteString("\n")
	}

	b.WriteString(m.eventLog.View() + "\n")
	b.WriteString(m.input.View() + "\n")
	return b.String()
}

func (m *Model) renderRoom(snapshot *protocol.RoomSnapshot) string {
	var b strings.Builder
	for _, player := range snapshot.Players {
		marker := "  "
		if player.ID == snapshot.Turn {
			marker = turnStyle.Render("> ")
		}
		name := player.Name
		if player.IsLandlord {
			name = landlordStyle.Render(name + " (landlord)")
		}
		b.WriteString(fmt.Sprintf("%s%s %s\n", marker, name, dimStyle.Render(fmt.Sprintf("%d cards", player.HandCount))))
	}
	if snapshot.LastPlay != nil {
		owner := ""
		if snapshot.LastPlayer != nil {
			owner = m.seatName(*snapshot.LastPlayer) + ": "
		}
		b.WriteString(dimStyle.Render(fmt.Sprintf("last play  %s%s of %s (size %d)\n",
			owner, snapshot.LastPlay.Kind, snapshot.LastPlay.MainRank, snapshot.LastPlay.Size)))
	}
	if len(snapshot.YourHand) > 0 {
		chips := make([]string, len(snapshot.YourHand))
		for i, code := range snapshot.YourHand {
			chips[i] = renderCard(code)
		}
		b.WriteString("your hand  " + strings.Join(chips, " ") + "\n")
	}
	return b.String()
}

// renderCard styles a card code chip, red for hearts, diamonds, and the red
// joker.
func renderCard(code string) string {
	if strings.HasPrefix(code, "H") || strings.HasPrefix(code, "D") || code == "RJ" {
		return redCard.Render(code)
	}
	return blackCard.Render(code)
}
