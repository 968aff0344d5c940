package monitor

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// MaxLines bounds the scrollback kept by the TUI
const MaxLines = 5000

type connState int

const (
	stateConnecting connState = iota
	stateConnected
	stateReconnecting
)

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Follow key.Binding
	Clear  key.Binding
	Quit   key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Follow, k.Clear, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

func newKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k", "pgup"),
			key.WithHelp("↑/k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j", "pgdown"),
			key.WithHelp("↓/j", "scroll down"),
		),
		Follow: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "follow"),
		),
		Clear: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// Model is the Bubble Tea model for the monitor screen
type Model struct {
	addr     string
	peer     string
	state    connState
	lastErr  error
	retryIn  time.Duration
	received uint64

	lines   []string
	partial string
	follow  bool

	viewport viewport.Model
	spinner  spinner.Model
	help     help.Model
	keys     keyMap
	width    int
	height   int
}

// NewModel creates the monitor model for addr
func NewModel(addr string) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = reconnectingStyle

	width, height := GetTerminalSize()
	m := Model{
		addr:     addr,
		follow:   true,
		viewport: viewport.New(width, height),
		spinner:  s,
		help:     help.New(),
		keys:     newKeyMap(),
		width:    width,
		height:   height,
	}
	m.resize()
	return m
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Clear):
			m.lines = nil
			m.partial = ""
			m.refresh()
			return m, nil
		case key.Matches(msg, m.keys.Follow):
			m.follow = !m.follow
			if m.follow {
				m.viewport.GotoBottom()
			}
			return m, nil
		case key.Matches(msg, m.keys.Up):
			m.follow = false
		}

	case connectedMsg:
		m.state = stateConnected
		m.peer = msg.addr
		m.lastErr = nil
		return m, nil

	case disconnectedMsg:
		m.state = stateReconnecting
		m.lastErr = msg.err
		m.retryIn = msg.retryIn
		return m, m.spinner.Tick

	case dataMsg:
		m.received += uint64(len(msg))
		m.appendData(msg)
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if m.state == stateConnected {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	if k, ok := msg.(tea.KeyMsg); ok && key.Matches(k, m.keys.Down) && m.viewport.AtBottom() {
		m.follow = true
	}
	return m, cmd
}

// appendData splits the stream into lines. CR LF and lone LF end a line;
// other control characters except tab are dropped.
func (m *Model) appendData(data []byte) {
	text := m.partial + sanitize(data)
	parts := strings.Split(text, "\n")
	m.partial = parts[len(parts)-1]
	m.lines = append(m.lines, parts[:len(parts)-1]...)
	if over := len(m.lines) - MaxLines; over > 0 {
		m.lines = append([]string(nil), m.lines[over:]...)
	}
}

func sanitize(data []byte) string {
	var b strings.Builder
	b.Grow(len(data))
	for _, r := range string(data) {
		switch {
		case r == '\n' || r == '\t':
			b.WriteRune(r)
		case r < 0x20 || r == 0x7f:
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (m *Model) refresh() {
	content := strings.Join(m.lines, "\n")
	if m.partial != "" {
		if content != "" {
			content += "\n"
		}
		content += m.partial
	}
	m.viewport.SetContent(content)
	if m.follow {
		m.viewport.GotoBottom()
	}
}

func (m *Model) resize() {
	headerHeight := lipgloss.Height(m.headerView())
	footerHeight := lipgloss.Height(m.footerView())
	m.viewport.Width = m.width
	m.viewport.Height = m.height - headerHeight - footerHeight
	if m.viewport.Height < 1 {
		m.viewport.Height = 1
	}
	m.help.Width = m.width
}

// View implements tea.Model
func (m Model) View() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.headerView(),
		m.viewport.View(),
		m.footerView(),
	)
}

func (m Model) headerView() string {
	var state string
	switch m.state {
	case stateConnected:
		state = connectedStyle.Render("● connected " + m.peer)
	case stateReconnecting:
		state = reconnectingStyle.Render(fmt.Sprintf("%s reconnecting in %s", m.spinner.View(), m.retryIn.Round(time.Millisecond)))
	default:
		state = reconnectingStyle.Render(m.spinner.View() + " connecting")
	}

	line := titleStyle.Render("serbridge") + "  " + addrStyle.Render(m.addr) + "  " + state
	return headerStyle.Width(m.width).Render(line)
}

func (m Model) footerView() string {
	status := mutedStyle.Render(fmt.Sprintf("%d bytes", m.received))
	if !m.follow {
		status += mutedStyle.Render("  (paused)")
	}
	if m.lastErr != nil && m.state != stateConnected {
		status += "  " + errorStyle.Render(m.lastErr.Error())
	}
	return footerStyle.Width(m.width).Render(status + "\n" + m.help.View(m.keys))
}
