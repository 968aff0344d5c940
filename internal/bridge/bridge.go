package bridge

import (
	"io"
	"time"

	"github.com/muurk/serbridge/internal/logging"
	"go.uber.org/zap"
)

const (
	// DefaultCapacity is the number of simultaneous clients
	DefaultCapacity = 4

	// MaxCapacity bounds the pool so acquisition stays a short linear scan
	MaxCapacity = 8

	// SegmentSize is one TCP segment worth of payload
	SegmentSize = 1460

	// DefaultTxBufferSize is the pending buffer capacity per connection
	DefaultTxBufferSize = 2 * SegmentSize

	// DefaultOverflowGrace is how long a connection may overflow before it is killed
	DefaultOverflowGrace = 10 * time.Second

	// DefaultIdleTimeout disconnects clients with no traffic in either direction
	DefaultIdleTimeout = 300 * time.Second

	// DefaultPulseDuration is the serial LED blink per UART chunk
	DefaultPulseDuration = 50 * time.Millisecond
)

// Config holds the bridge parameters. Zero values select the defaults,
// except IdleTimeout where zero disables idle supervision.
type Config struct {
	Capacity      int
	TxBufferSize  int
	OverflowGrace time.Duration
	IdleTimeout   time.Duration
	PulseDuration time.Duration

	// Sink receives a copy of every UART chunk (the web console).
	Sink io.Writer
	// Indicator is pulsed once per UART chunk.
	Indicator Indicator
	// OnActiveChange is called with the number of live slots whenever it changes.
	OnActiveChange func(active int)
	// Now returns the current time; tests substitute a manual clock.
	Now func() time.Time
}

// Bridge fans UART bytes out to a fixed pool of client connections.
type Bridge struct {
	config Config
	pool   *pool

	rejected uint64
	chunks   uint64
}

// New creates a Bridge with an empty pool
func New(config Config) *Bridge {
	if config.Capacity <= 0 {
		config.Capacity = DefaultCapacity
	}
	if config.Capacity > MaxCapacity {
		config.Capacity = MaxCapacity
	}
	if config.TxBufferSize <= 0 {
		config.TxBufferSize = DefaultTxBufferSize
	}
	if config.OverflowGrace <= 0 {
		config.OverflowGrace = DefaultOverflowGrace
	}
	if config.PulseDuration <= 0 {
		config.PulseDuration = DefaultPulseDuration
	}
	if config.Sink == nil {
		config.Sink = io.Discard
	}
	if config.Indicator == nil {
		config.Indicator = nopIndicator{}
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &Bridge{
		config: config,
		pool:   newPool(config.Capacity),
	}
}

// Handle dispatches one network stack event. Events for connections that
// are not bound to a slot (already released, or rejected) are ignored.
func (b *Bridge) Handle(ev Event) {
	if ev.Kind == EventConnected {
		_ = b.Accept(ev.Conn)
		return
	}

	s := b.pool.lookup(ev.Conn)
	if s == nil {
		return
	}

	switch ev.Kind {
	case EventDataReceived:
		// Send-only bridge: client input only counts as activity.
		s.lastActivity = b.config.Now()
	case EventSendComplete:
		b.onSendComplete(s)
	case EventDisconnected:
		logging.LogConnection(s.conn.RemoteAddr(), "bridge_disconnected")
		b.release(s)
	case EventReset:
		logging.Warn("Bridge connection reset",
			zap.String("remote_addr", s.conn.RemoteAddr()),
			zap.Error(ev.Err),
		)
		b.release(s)
	}
}

// Tick runs the periodic supervision: overflow grace expiry and idle timeout.
func (b *Bridge) Tick(now time.Time) {
	b.pool.forEachActive(func(s *slot) {
		if s.closing {
			return
		}
		if !s.overflowSince.IsZero() {
			b.checkGrace(s, now)
			return
		}
		if b.config.IdleTimeout > 0 && now.Sub(s.lastActivity) > b.config.IdleTimeout {
			logging.Info("Closing idle bridge connection",
				zap.String("remote_addr", s.conn.RemoteAddr()),
				zap.Duration("idle", now.Sub(s.lastActivity)),
			)
			b.forceDisconnect(s)
		}
	})
}

// Active returns the number of live connections
func (b *Bridge) Active() int {
	return b.pool.active()
}

// Capacity returns the pool size
func (b *Bridge) Capacity() int {
	return len(b.pool.slots)
}

// Close disconnects every live connection and releases all slots.
func (b *Bridge) Close() {
	b.pool.forEachActive(func(s *slot) {
		s.conn.Disconnect()
		b.release(s)
	})
}

func (b *Bridge) release(s *slot) {
	if s.empty() {
		return
	}
	b.pool.release(s)
	b.activeChanged()
}

func (b *Bridge) activeChanged() {
	if b.config.OnActiveChange != nil {
		b.config.OnActiveChange(b.pool.active())
	}
}
