package monitor

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok, "Update returned %T", next)
	return out
}

func TestModelSplitsLines(t *testing.T) {
	m := NewModel("bridge:2323")
	m = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 20})

	m = update(t, m, dataMsg("boot ok\r\nwifi: conn"))
	m = update(t, m, dataMsg("ected\r\n> "))

	assert.Equal(t, []string{"boot ok", "wifi: connected"}, m.lines)
	assert.Equal(t, "> ", m.partial)
	assert.Equal(t, uint64(len("boot ok\r\nwifi: connected\r\n> ")), m.received)
}

func TestModelDropsControlCharacters(t *testing.T) {
	assert.Equal(t, "a\tb\nc", sanitize([]byte("a\tb\r\n\x1b\x07c\x7f")))
}

func TestModelBoundsScrollback(t *testing.T) {
	m := NewModel("bridge:2323")
	m = update(t, m, dataMsg(strings.Repeat("x\n", MaxLines+10)))

	assert.Len(t, m.lines, MaxLines)
}

func TestModelConnectionState(t *testing.T) {
	m := NewModel("bridge:2323")
	m = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 20})
	assert.Equal(t, stateConnecting, m.state)

	m = update(t, m, connectedMsg{addr: "10.0.0.5:2323"})
	assert.Equal(t, stateConnected, m.state)
	assert.Contains(t, m.View(), "10.0.0.5:2323")

	m = update(t, m, disconnectedMsg{err: errors.New("connection closed by bridge"), retryIn: 500 * time.Millisecond})
	assert.Equal(t, stateReconnecting, m.state)
	assert.Contains(t, m.View(), "connection closed by bridge")
	assert.Contains(t, m.View(), "reconnecting in 500ms")
}

func TestModelKeys(t *testing.T) {
	m := NewModel("bridge:2323")
	m = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 20})
	m = update(t, m, dataMsg("one\ntwo\nthree"))

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("f")})
	assert.False(t, m.follow)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("f")})
	assert.True(t, m.follow)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	assert.Empty(t, m.lines)
	assert.Empty(t, m.partial)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}
