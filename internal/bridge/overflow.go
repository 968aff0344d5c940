package bridge

import (
	"time"

	"github.com/muurk/serbridge/internal/logging"
	"go.uber.org/zap"
)

// overflow accounts for bytes that did not fit in the pending buffer.
func (b *Bridge) overflow(s *slot, dropped int) error {
	s.bytesDropped += uint64(dropped)
	b.stall(s, "tx buffer full", nil)
	return newBufferFull(s.conn.RemoteAddr(), dropped)
}

// stall records that the connection failed to make progress. The first
// stall of an episode is logged and timestamped; later ones only check
// whether the grace period has run out.
func (b *Bridge) stall(s *slot, reason string, err error) {
	now := b.config.Now()
	if s.overflowSince.IsZero() {
		s.overflowSince = now
		s.overflows++
		fields := []zap.Field{
			zap.String("remote_addr", s.conn.RemoteAddr()),
			zap.String("reason", reason),
			zap.Int("pending", s.pendingLen()),
		}
		if err != nil {
			fields = append(fields, zap.Error(err))
		}
		logging.Warn("Bridge connection overflowing", fields...)
		return
	}
	b.checkGrace(s, now)
}

// checkGrace kills a connection that has been overflowing for longer than
// the grace period.
func (b *Bridge) checkGrace(s *slot, now time.Time) {
	if s.closing || s.overflowSince.IsZero() {
		return
	}
	stuck := now.Sub(s.overflowSince)
	if stuck <= b.config.OverflowGrace {
		return
	}
	logging.Warn("Killing stuck bridge connection",
		zap.String("remote_addr", s.conn.RemoteAddr()),
		zap.Duration("overflowing_for", stuck),
		zap.Uint64("bytes_dropped", s.bytesDropped),
	)
	b.forceDisconnect(s)
}

// forceDisconnect closes the connection and stops feeding it. The slot is
// released when the stack reports the disconnect.
func (b *Bridge) forceDisconnect(s *slot) {
	if s.closing {
		return
	}
	s.closing = true
	if n := s.pendingLen(); n > 0 {
		s.bytesDropped += uint64(n)
		s.pending.Reset()
	}
	s.conn.Disconnect()
}
