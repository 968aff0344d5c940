// Package uart reads the bridged serial line.
//
// Open puts the device into raw 8N1 mode at the configured baud rate and
// ReadLoop delivers whatever the driver returns, one chunk per read. There
// is no flow control: the reader never waits on its consumer.
package uart

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/serbridge/internal/logging"
	"github.com/muurk/serbridge/internal/pins"
)

// DefaultBaud is used when the configuration leaves the baud rate unset
const DefaultBaud = 115200

// readBufferSize is the largest chunk handed to the consumer
const readBufferSize = 1024

// Config selects the serial device
type Config struct {
	// Device is the normal UART path
	Device string
	// AltDevice is used when the pins select the swapped routing. Empty
	// means the swapped routing uses Device as well.
	AltDevice string
	Baud      int
}

// Routing is the pin configuration applied at startup
type Routing struct {
	Device   string `json:"device"`
	TxPin    int    `json:"tx_pin"`
	RxPin    int    `json:"rx_pin"`
	Swapped  bool   `json:"swapped"`
	RxPullup bool   `json:"rx_pullup"`
	Baud     int    `json:"baud"`
}

// ResolveRouting picks the device and UART pins for an assignment
func ResolveRouting(cfg Config, a pins.Assignment) Routing {
	tx, rx := a.UARTPins()
	r := Routing{
		Device:   cfg.Device,
		TxPin:    tx,
		RxPin:    rx,
		Swapped:  a.Swap,
		RxPullup: a.RxPullup,
		Baud:     cfg.Baud,
	}
	if a.Swap && cfg.AltDevice != "" {
		r.Device = cfg.AltDevice
	}
	if r.Baud <= 0 {
		r.Baud = DefaultBaud
	}
	return r
}

// Port is an open serial device
type Port struct {
	f       *os.File
	routing Routing
}

// Open opens the routed device in raw mode
func Open(r Routing) (*Port, error) {
	if r.Device == "" {
		return nil, errors.New("no serial device configured")
	}

	f, err := os.OpenFile(r.Device, os.O_RDWR|syscall.O_NOCTTY|syscall.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", r.Device, err)
	}

	if err := makeRaw(int(f.Fd()), r.Baud); err != nil {
		f.Close()
		return nil, fmt.Errorf("configure %s: %w", r.Device, err)
	}

	logging.Info("UART configured",
		zap.String("device", r.Device),
		zap.Int("baud", r.Baud),
		zap.Int("tx_pin", r.TxPin),
		zap.Int("rx_pin", r.RxPin),
		zap.Bool("rx_pullup", r.RxPullup))

	return &Port{f: f, routing: r}, nil
}

// ReadLoop reads until ctx is cancelled or the device fails, calling fn
// with each chunk. fn must not retain the slice.
func (p *Port) ReadLoop(ctx context.Context, fn func([]byte)) error {
	stop := context.AfterFunc(ctx, func() {
		if err := p.f.SetReadDeadline(time.Now()); err != nil {
			p.f.Close()
		}
	})
	defer stop()

	buf := make([]byte, readBufferSize)
	for {
		n, err := p.f.Read(buf)
		if n > 0 {
			fn(buf[:n])
		}
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("serial device %s closed", p.routing.Device)
		}
		return fmt.Errorf("read %s: %w", p.routing.Device, err)
	}
}

// Close releases the device
func (p *Port) Close() error {
	return p.f.Close()
}
