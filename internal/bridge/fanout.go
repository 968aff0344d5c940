package bridge

import (
	"github.com/muurk/serbridge/internal/logging"
	"go.uber.org/zap"
)

// OnUARTChunk copies one chunk of serial input to the console sink and to
// every active connection, then pulses the status indicator once. Each
// connection receives the whole chunk in order, subject to its own overflow
// policy. Connections being force-closed are skipped.
func (b *Bridge) OnUARTChunk(data []byte) {
	if len(data) == 0 {
		return
	}
	b.chunks++
	logging.LogRawBytes("UART chunk", data)

	_, _ = b.config.Sink.Write(data)

	b.pool.forEachActive(func(s *slot) {
		if s.closing {
			return
		}
		if err := b.enqueue(s, data); err != nil {
			logging.Debug("Bridge enqueue incomplete",
				zap.String("remote_addr", s.conn.RemoteAddr()),
				zap.Error(err),
			)
		}
	})

	b.config.Indicator.Pulse(b.config.PulseDuration)
}
