package bridge

import (
	"time"

	"github.com/muurk/serbridge/internal/logging"
	"github.com/valyala/bytebufferpool"
	"go.uber.org/zap"
)

// enqueue appends data to the slot's pending buffer and submits it when no
// submission is outstanding. If data does not fit, the part that fits is
// buffered and flushed; when that flush empties the buffer the rest is
// retried once, otherwise it is dropped as overflow.
//
// Returns nil when everything was accepted, a buffer-full error when a
// suffix was dropped, or the submission error from flush.
func (b *Bridge) enqueue(s *slot, data []byte) error {
	var result error

	for attempt := 0; attempt < 2 && len(data) > 0; attempt++ {
		room := b.config.TxBufferSize - s.pendingLen()
		if room <= 0 {
			break
		}
		if s.pending == nil {
			s.pending = bytebufferpool.Get()
		}

		n := len(data)
		if n > room {
			n = room
		}
		_, _ = s.pending.Write(data[:n])
		data = data[n:]

		if s.readyToSend {
			result = b.flush(s)
		}
		if len(data) == 0 {
			return result
		}
		if s.pendingLen() != 0 {
			// flush did not free the buffer; no point retrying
			break
		}
	}

	if len(data) == 0 {
		return result
	}
	return b.overflow(s, len(data))
}

// flush submits the pending buffer if there is one and no submission is
// outstanding. On success ownership of the buffer moves to inFlight. On
// failure the pending bytes are discarded and the connection is treated as
// overflowing.
func (b *Bridge) flush(s *slot) error {
	if !s.readyToSend || s.pendingLen() == 0 {
		return nil
	}

	buf := s.pending
	if err := s.conn.Submit(buf); err != nil {
		dropped := buf.Len()
		buf.Reset()
		s.bytesDropped += uint64(dropped)
		b.stall(s, "submit failed", err)
		return newSubmitFailed(s.conn.RemoteAddr(), dropped, err)
	}

	s.inFlight = buf
	s.pending = nil
	s.readyToSend = false
	s.overflowSince = time.Time{}
	s.submissions++
	s.lastActivity = b.config.Now()
	return nil
}

// onSendComplete releases the in-flight buffer and sends whatever queued up
// while it was outstanding. A completion with nothing in flight is ignored.
func (b *Bridge) onSendComplete(s *slot) {
	if s.inFlight == nil {
		logging.Debug("Ignoring send completion with nothing in flight",
			zap.String("remote_addr", s.conn.RemoteAddr()),
		)
		return
	}

	s.bytesSent += uint64(s.inFlight.Len())
	bytebufferpool.Put(s.inFlight)
	s.inFlight = nil
	s.completions++
	s.readyToSend = true
	s.overflowSince = time.Time{}
	s.lastActivity = b.config.Now()

	_ = b.flush(s)
}
