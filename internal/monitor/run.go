package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
)

// Run streams the bridge at addr until ctx is cancelled or the user quits.
// On a terminal it shows the TUI; otherwise the raw bytes go to stdout and
// connection status to stderr.
func Run(ctx context.Context, addr string) error {
	if !IsTerminal() {
		return RunRaw(ctx, addr, os.Stdout, os.Stderr)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewModel(addr), tea.WithAltScreen(), tea.WithContext(ctx))

	client := &Client{Addr: addr}
	done := make(chan error, 1)
	go func() {
		done <- client.Run(ctx, func(msg interface{}) { p.Send(msg) })
	}()

	_, err := p.Run()
	cancel()
	<-done
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("monitor: %w", err)
	}
	return nil
}

// RunRaw copies the bridge stream to out unchanged and reports connection
// changes on status.
func RunRaw(ctx context.Context, addr string, out, status io.Writer) error {
	client := &Client{Addr: addr}
	return client.Run(ctx, func(msg interface{}) {
		switch m := msg.(type) {
		case connectedMsg:
			fmt.Fprintf(status, "connected to %s\n", m.addr)
		case dataMsg:
			_, _ = out.Write(m)
		case disconnectedMsg:
			fmt.Fprintf(status, "disconnected: %v (retry in %s)\n", m.err, m.retryIn)
		}
	})
}
