package monitor

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/jpillora/backoff"
)

const readBufferSize = 4096

// Client connects to a bridge and keeps reconnecting until its context
// is cancelled.
type Client struct {
	Addr        string
	DialTimeout time.Duration

	// Backoff paces reconnect attempts. Nil uses 250ms doubling to 10s.
	Backoff *backoff.Backoff
}

type connectedMsg struct {
	addr string
}

type dataMsg []byte

type disconnectedMsg struct {
	err     error
	retryIn time.Duration
}

// Run dials, streams, and redials. handle receives connectedMsg, dataMsg
// and disconnectedMsg values in order, from a single goroutine.
func (c *Client) Run(ctx context.Context, handle func(interface{})) error {
	b := c.Backoff
	if b == nil {
		b = &backoff.Backoff{
			Factor: 2,
			Jitter: true,
			Min:    250 * time.Millisecond,
			Max:    10 * time.Second,
		}
	}
	timeout := c.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	dialer := net.Dialer{Timeout: timeout}

	for {
		conn, err := dialer.DialContext(ctx, "tcp", c.Addr)
		if err == nil {
			b.Reset()
			handle(connectedMsg{addr: conn.RemoteAddr().String()})
			err = stream(ctx, conn, handle)
		}
		if ctx.Err() != nil {
			return nil
		}

		wait := b.Duration()
		handle(disconnectedMsg{err: err, retryIn: wait})

		t := time.NewTimer(wait)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return nil
		}
	}
}

var errClosedByBridge = errors.New("connection closed by bridge")

func stream(ctx context.Context, conn net.Conn, handle func(interface{})) error {
	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer stop()
	defer conn.Close()

	buf := make([]byte, readBufferSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			handle(dataMsg(append([]byte(nil), buf[:n]...)))
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				return errClosedByBridge
			}
			return err
		}
	}
}
