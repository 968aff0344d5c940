package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/jpillora/backoff"
	"go.uber.org/zap"

	"github.com/muurk/serbridge/internal/bridge"
	"github.com/muurk/serbridge/internal/config"
	"github.com/muurk/serbridge/internal/console"
	"github.com/muurk/serbridge/internal/discovery"
	"github.com/muurk/serbridge/internal/led"
	"github.com/muurk/serbridge/internal/logging"
	"github.com/muurk/serbridge/internal/uart"
	"github.com/muurk/serbridge/internal/version"
)

const (
	// tickInterval drives overflow grace and idle supervision
	tickInterval = time.Second

	// shutdownTimeout bounds the wait for connection goroutines
	shutdownTimeout = 10 * time.Second

	eventQueueSize = 256
	chunkQueueSize = 64
)

var errStopped = errors.New("server stopped")

// Source delivers UART chunks. *uart.Port implements it.
type Source interface {
	ReadLoop(ctx context.Context, fn func([]byte)) error
	Close() error
}

// Options configures a Server
type Options struct {
	Config *config.Config

	// Store persists pin changes made through the web API. Nil makes
	// POST /pins fail with 500.
	Store *config.Store

	// Console receives every UART chunk. Nil allocates one.
	Console *console.Ring

	// DebugLog is served on /log/text when set
	DebugLog *console.Ring

	// OpenSource opens the serial line. Nil uses uart.Open.
	OpenSource func(uart.Routing) (Source, error)
}

// Server runs the bridge: the TCP listener, the UART reader, the event
// loop that owns the bridge state, and the web console.
type Server struct {
	config     *config.Config
	store      *config.Store
	console    *console.Ring
	debugLog   *console.Ring
	openSource func(uart.Routing) (Source, error)
	routing    uart.Routing
	started    time.Time

	// owned by the event loop
	bridge  *bridge.Bridge
	connLED *led.LED
	serLED  *led.LED

	events chan bridge.Event
	chunks chan []byte
	calls  chan func()
	done   chan struct{}

	listener     net.Listener
	httpListener net.Listener
	httpServer   *http.Server
	advertiser   *discovery.Advertiser

	wg          sync.WaitGroup
	mu          sync.Mutex
	activeConns map[*tcpConn]struct{}
	closing     bool
	cancel      context.CancelFunc
	stopped     chan struct{}
	serveErr    error
}

// New creates a Server. Logging must already be initialized.
func New(opts Options) (*Server, error) {
	if opts.Config == nil {
		return nil, errors.New("server: no configuration")
	}
	cfg := opts.Config

	s := &Server{
		config:      cfg,
		store:       opts.Store,
		console:     opts.Console,
		debugLog:    opts.DebugLog,
		openSource:  opts.OpenSource,
		events:      make(chan bridge.Event, eventQueueSize),
		chunks:      make(chan []byte, chunkQueueSize),
		calls:       make(chan func()),
		done:        make(chan struct{}),
		stopped:     make(chan struct{}),
		activeConns: make(map[*tcpConn]struct{}),
	}
	if s.console == nil {
		s.console = console.NewRing(console.DefaultConsoleSize)
	}
	if s.openSource == nil {
		s.openSource = func(r uart.Routing) (Source, error) {
			return uart.Open(r)
		}
	}

	assignment := cfg.Pins
	if s.store != nil {
		assignment = s.store.Pins()
	}
	s.routing = uart.ResolveRouting(uart.Config{
		Device:    cfg.Serial.Device,
		AltDevice: cfg.Serial.AltDevice,
		Baud:      cfg.Serial.Baud,
	}, assignment)

	s.connLED = led.New("conn", int(assignment.ConnLED), cfg.GPIORoot)
	s.serLED = led.New("serial", int(assignment.SerLED), cfg.GPIORoot)

	s.bridge = bridge.New(bridge.Config{
		Capacity:      cfg.Bridge.MaxConns,
		TxBufferSize:  cfg.Bridge.TxBuffer,
		OverflowGrace: cfg.Bridge.OverflowGrace,
		IdleTimeout:   cfg.Bridge.IdleTimeout,
		Sink:          s.console,
		Indicator:     serialIndicator{s},
		OnActiveChange: func(active int) {
			s.connLED.Set(active > 0)
		},
	})

	return s, nil
}

// Listen binds the bridge port and, when configured, the HTTP address.
// Serve calls it if needed.
func (s *Server) Listen() error {
	addr := net.JoinHostPort(s.config.Bridge.Host, strconv.Itoa(s.config.Bridge.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = ln

	if s.config.HTTP.Addr != "" {
		hl, err := net.Listen("tcp", s.config.HTTP.Addr)
		if err != nil {
			ln.Close()
			return fmt.Errorf("failed to listen on %s: %w", s.config.HTTP.Addr, err)
		}
		s.httpListener = hl
		s.httpServer = &http.Server{
			Handler:           s.routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}
	}
	return nil
}

// Addr returns the bound bridge address
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// HTTPAddr returns the bound web server address, or nil when disabled
func (s *Server) HTTPAddr() net.Addr {
	if s.httpListener == nil {
		return nil
	}
	return s.httpListener.Addr()
}

// Start serves until SIGINT or SIGTERM
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.Serve(ctx)
}

// Serve runs the bridge until ctx is cancelled or Shutdown is called
func (s *Server) Serve(ctx context.Context) error {
	defer close(s.stopped)

	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	s.started = time.Now()
	logging.Info("Starting serial bridge",
		zap.String("addr", s.listener.Addr().String()),
		zap.String("device", s.routing.Device),
		zap.Int("baud", s.routing.Baud),
		zap.Int("max_conns", s.bridge.Capacity()),
		zap.String("version", version.Full()),
	)

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.acceptConnections(ctx)
	}()
	go func() {
		defer s.wg.Done()
		s.readUART(ctx)
	}()

	if s.httpServer != nil {
		logging.Info("Web console listening", zap.String("addr", s.httpListener.Addr().String()))
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.httpServer.Serve(s.httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("Web server failed", zap.Error(err))
			}
		}()
	}

	s.advertise()

	s.run(ctx)

	return s.shutdown()
}

// Shutdown stops a running Serve and waits for it to return
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel == nil {
		return errStopped
	}
	cancel()

	select {
	case <-s.stopped:
		return s.serveErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// shutdown runs after the event loop has exited
func (s *Server) shutdown() error {
	logging.Info("Shutting down server...")

	s.advertiser.Shutdown()

	if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		logging.Error("Error closing listener", zap.Error(err))
	}

	s.mu.Lock()
	s.closing = true
	conns := make([]*tcpConn, 0, len(s.activeConns))
	for c := range s.activeConns {
		conns = append(conns, c)
	}
	s.mu.Unlock()
	for _, c := range conns {
		logging.Info("Closing active connection", zap.String("remote_addr", c.RemoteAddr()))
		c.Disconnect()
	}

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := s.httpServer.Shutdown(ctx); err != nil {
			logging.Warn("Web server shutdown incomplete", zap.Error(err))
			_ = s.httpServer.Close()
		}
		cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All connections closed gracefully")
	case <-time.After(shutdownTimeout):
		logging.Warn("Shutdown timeout after 10 seconds, forcing close")
		s.serveErr = errors.New("shutdown timed out")
	}

	logging.Sync()
	return s.serveErr
}

// acceptConnections hands each accepted socket to the event loop
func (s *Server) acceptConnections(ctx context.Context) {
	b := &backoff.Backoff{
		Factor: 2,
		Jitter: true,
		Min:    5 * time.Millisecond,
		Max:    time.Second,
	}

	for {
		nc, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return
			}
			d := b.Duration()
			logging.Error("Failed to accept connection", zap.Error(err), zap.Duration("retry_in", d))
			if !sleepContext(ctx, d) {
				return
			}
			continue
		}
		b.Reset()

		c := newTCPConn(nc, s.post, s.untrack)
		if !s.track(c) {
			c.Disconnect()
			return
		}
		logging.LogConnection(c.RemoteAddr(), "connection_accepted")

		// Connected is queued before the conn's own goroutines can queue
		// anything, so the loop always sees it first.
		select {
		case s.events <- bridge.Event{Kind: bridge.EventConnected, Conn: c}:
			c.start(&s.wg)
		case <-s.done:
			c.Disconnect()
			return
		}
	}
}

func (s *Server) track(c *tcpConn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.activeConns[c] = struct{}{}
	return true
}

func (s *Server) untrack(c *tcpConn) {
	s.mu.Lock()
	delete(s.activeConns, c)
	s.mu.Unlock()
}

// ActiveConnections returns the number of open TCP connections, including
// ones the bridge has not bound or is about to reject.
func (s *Server) ActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}

// readUART feeds UART chunks to the event loop, reopening the device with
// backoff when it fails.
func (s *Server) readUART(ctx context.Context) {
	b := &backoff.Backoff{
		Factor: 2,
		Jitter: true,
		Min:    500 * time.Millisecond,
		Max:    30 * time.Second,
	}

	deliver := func(p []byte) {
		chunk := append([]byte(nil), p...)
		select {
		case s.chunks <- chunk:
		case <-s.done:
		}
	}

	for ctx.Err() == nil {
		src, err := s.openSource(s.routing)
		if err != nil {
			d := b.Duration()
			logging.Error("Failed to open serial device",
				zap.String("device", s.routing.Device),
				zap.Error(err),
				zap.Duration("retry_in", d))
			if !sleepContext(ctx, d) {
				return
			}
			continue
		}
		b.Reset()

		err = src.ReadLoop(ctx, deliver)
		_ = src.Close()
		if ctx.Err() != nil {
			return
		}

		d := b.Duration()
		logging.Warn("Serial device failed, reopening",
			zap.String("device", s.routing.Device),
			zap.Error(err),
			zap.Duration("retry_in", d))
		if !sleepContext(ctx, d) {
			return
		}
	}
}

func (s *Server) advertise() {
	if !s.config.MDNS.Enabled {
		return
	}
	port := s.listener.Addr().(*net.TCPAddr).Port
	adv, err := discovery.Advertise(s.config.MDNS.Instance, port, map[string]string{
		"baud":    strconv.Itoa(s.routing.Baud),
		"device":  s.routing.Device,
		"version": version.Short(),
	})
	if err != nil {
		// the bridge works without mDNS
		logging.Warn("mDNS advertisement failed", zap.Error(err))
		return
	}
	s.advertiser = adv
}

// sleepContext waits for d or ctx, reporting whether d elapsed
func sleepContext(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
