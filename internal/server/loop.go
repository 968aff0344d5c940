package server

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/serbridge/internal/bridge"
	"github.com/muurk/serbridge/internal/led"
	"github.com/muurk/serbridge/internal/logging"
	"github.com/muurk/serbridge/internal/pins"
)

// run is the event loop. It is the only goroutine that touches the bridge
// and the LEDs; everything else posts to it.
func (s *Server) run(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case ev := <-s.events:
			s.bridge.Handle(ev)
		case chunk := <-s.chunks:
			s.bridge.OnUARTChunk(chunk)
		case fn := <-s.calls:
			fn()
		case now := <-ticker.C:
			s.bridge.Tick(now)
		case <-ctx.Done():
			s.bridge.Close()
			s.connLED.Close()
			s.serLED.Close()
			close(s.done)
			return
		}
	}
}

// post queues a connection event. After the loop has stopped the event is
// dropped.
func (s *Server) post(ev bridge.Event) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

// call runs fn on the event loop and waits for it
func (s *Server) call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	wrapped := func() {
		fn()
		close(finished)
	}

	select {
	case s.calls <- wrapped:
	case <-s.done:
		return errStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	<-finished
	return nil
}

// Stats returns a snapshot of the bridge
func (s *Server) Stats(ctx context.Context) (bridge.Stats, error) {
	var stats bridge.Stats
	err := s.call(ctx, func() {
		stats = s.bridge.Snapshot()
	})
	return stats, err
}

// applyPins swaps the LEDs for a new assignment. The UART routing is only
// read at startup.
func (s *Server) applyPins(ctx context.Context, a pins.Assignment) error {
	return s.call(ctx, func() {
		s.connLED.Close()
		s.serLED.Close()
		s.connLED = led.New("conn", int(a.ConnLED), s.config.GPIORoot)
		s.serLED = led.New("serial", int(a.SerLED), s.config.GPIORoot)
		s.connLED.Set(s.bridge.Active() > 0)

		logging.Info("Pins changed",
			zap.Int8("conn", a.ConnLED),
			zap.Int8("ser", a.SerLED),
			zap.Bool("swap", a.Swap),
			zap.Bool("rx_pullup", a.RxPullup),
		)
	})
}

// serialIndicator pulses whichever serial LED is current. Only the event
// loop calls it.
type serialIndicator struct {
	s *Server
}

func (i serialIndicator) Pulse(d time.Duration) {
	i.s.serLED.Pulse(d)
}
