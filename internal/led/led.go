// Package led drives status LEDs through the sysfs GPIO interface.
//
// Each LED writes "1" or "0" to <root>/gpio<N>/value. The pin is expected
// to be exported and configured as an output already. A pin of -1 yields
// an LED that does nothing.
package led

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/serbridge/internal/logging"
)

// DefaultRoot is the sysfs GPIO directory
const DefaultRoot = "/sys/class/gpio"

// LED is a single GPIO-backed indicator
type LED struct {
	name string
	pin  int
	path string

	mu     sync.Mutex
	on     bool
	gen    uint64
	timer  *time.Timer
	warned bool
}

// New returns the LED on pin under root. An empty root uses DefaultRoot.
func New(name string, pin int, root string) *LED {
	l := &LED{name: name, pin: pin}
	if pin < 0 {
		return l
	}
	if root == "" {
		root = DefaultRoot
	}
	l.path = filepath.Join(root, fmt.Sprintf("gpio%d", pin), "value")
	return l
}

// Enabled reports whether the LED is wired to a pin
func (l *LED) Enabled() bool {
	return l != nil && l.path != ""
}

// Set turns the LED on or off and cancels a pending pulse
func (l *LED) Set(on bool) {
	if !l.Enabled() {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen++
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	l.write(on)
}

// Pulse lights the LED for d. A pulse that arrives while one is running
// extends it.
func (l *LED) Pulse(d time.Duration) {
	if !l.Enabled() {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.gen++
	gen := l.gen
	if !l.on {
		l.write(true)
	}
	if l.timer != nil {
		l.timer.Stop()
	}
	l.timer = time.AfterFunc(d, func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.gen != gen {
			return
		}
		l.timer = nil
		l.write(false)
	})
}

// On reports the last state written
func (l *LED) On() bool {
	if !l.Enabled() {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.on
}

// Close stops any pending pulse and turns the LED off
func (l *LED) Close() {
	l.Set(false)
}

// write must be called with mu held
func (l *LED) write(on bool) {
	val := []byte("0")
	if on {
		val = []byte("1")
	}
	if err := writeValue(l.path, val); err != nil {
		// warn once; a missing GPIO will fail on every chunk
		if !l.warned {
			l.warned = true
			logging.Warn("Failed to drive LED",
				zap.String("led", l.name),
				zap.Int("pin", l.pin),
				zap.Error(err))
		}
		return
	}
	l.on = on
}

func writeValue(path string, val []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return err
	}
	if _, err := f.Write(val); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
