package bridge

import (
	"github.com/muurk/serbridge/internal/logging"
	"go.uber.org/zap"
)

// Accept binds a newly accepted connection to a free slot. When the pool is
// full the connection is closed immediately, no slot is touched, and
// ErrPoolExhausted is returned.
func (b *Bridge) Accept(conn Conn) error {
	if conn == nil {
		return nil
	}
	if b.pool.lookup(conn) != nil {
		return nil
	}

	s, err := b.pool.acquire(conn, b.config.Now())
	if err != nil {
		b.rejected++
		logging.Warn("Bridge connection pool full, rejecting",
			zap.String("remote_addr", conn.RemoteAddr()),
			zap.Int("capacity", len(b.pool.slots)),
		)
		conn.Disconnect()
		return &Error{
			Type:       ErrTypePoolExhausted,
			Message:    "connection pool exhausted",
			RemoteAddr: conn.RemoteAddr(),
		}
	}

	logging.Info("Bridge connection accepted",
		zap.String("remote_addr", conn.RemoteAddr()),
		zap.Int("slot", s.index),
		zap.Int("active", b.pool.active()),
	)
	b.activeChanged()
	return nil
}
