package server

import (
	"context"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/muurk/serbridge/internal/config"
	"github.com/muurk/serbridge/internal/pins"
	"github.com/muurk/serbridge/internal/uart"
)

// chanSource stands in for the UART
type chanSource struct {
	ch chan []byte
}

func (c *chanSource) ReadLoop(ctx context.Context, fn func([]byte)) error {
	for {
		select {
		case p := <-c.ch:
			fn(p)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *chanSource) Close() error { return nil }

type testServer struct {
	*Server
	src   *chanSource
	errc  chan error
	store *config.Store
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Bridge.Host = "127.0.0.1"
	cfg.Bridge.Port = 0
	cfg.HTTP.Addr = ""
	cfg.MDNS.Enabled = false
	cfg.Serial.Device = "/dev/null"
	cfg.Pins = pins.Assignment{ConnLED: pins.Disabled, SerLED: pins.Disabled}
	cfg.GPIORoot = t.TempDir()
	return cfg
}

func startServer(t *testing.T, cfg *config.Config, store *config.Store) *testServer {
	t.Helper()

	src := &chanSource{ch: make(chan []byte)}
	srv, err := New(Options{
		Config: cfg,
		Store:  store,
		OpenSource: func(uart.Routing) (Source, error) {
			return src, nil
		},
	})
	require.NoError(t, err)
	require.NoError(t, srv.Listen())

	ts := &testServer{Server: srv, src: src, errc: make(chan error, 1), store: store}
	go func() {
		ts.errc <- srv.Serve(context.Background())
	}()

	// Stats only returns once the event loop is running
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = srv.Stats(ctx)
	require.NoError(t, err)

	return ts
}

func (ts *testServer) stop(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	require.NoError(t, ts.Shutdown(ctx))
	require.NoError(t, <-ts.errc)
}

func (ts *testServer) uart(t *testing.T, data string) {
	t.Helper()
	select {
	case ts.src.ch <- []byte(data):
	case <-time.After(5 * time.Second):
		t.Fatal("UART reader not consuming")
	}
}

func (ts *testServer) waitActive(t *testing.T, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		stats, err := ts.Stats(context.Background())
		return err == nil && stats.Active == want
	}, 5*time.Second, 10*time.Millisecond, "want %d active bridge connections", want)
}

func dial(t *testing.T, addr net.Addr) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readN(t *testing.T, conn net.Conn, n int) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	buf := make([]byte, n)
	_, err := io.ReadFull(conn, buf)
	require.NoError(t, err)
	return string(buf)
}

func TestServeFansOutToEveryClient(t *testing.T) {
	defer goleak.VerifyNone(t)

	ts := startServer(t, testConfig(t), nil)
	defer ts.stop(t)

	a := dial(t, ts.Addr())
	b := dial(t, ts.Addr())
	ts.waitActive(t, 2)

	ts.uart(t, "AB")
	ts.uart(t, "CD")

	require.Equal(t, "ABCD", readN(t, a, 4))
	require.Equal(t, "ABCD", readN(t, b, 4))

	stats, err := ts.Stats(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 2, stats.UARTChunks)
}

func TestServeRejectsWhenPoolFull(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := testConfig(t)
	cfg.Bridge.MaxConns = 1
	ts := startServer(t, cfg, nil)
	defer ts.stop(t)

	first := dial(t, ts.Addr())
	ts.waitActive(t, 1)

	second := dial(t, ts.Addr())
	require.NoError(t, second.SetReadDeadline(time.Now().Add(5*time.Second)))
	n, err := second.Read(make([]byte, 1))
	require.Zero(t, n, "rejected client must not receive data")
	require.Error(t, err)

	stats, err := ts.Stats(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, stats.Rejected)
	require.Equal(t, 1, stats.Active)

	// the bound client is unaffected
	ts.uart(t, "still here")
	require.Equal(t, "still here", readN(t, first, 10))
}

func TestServeReleasesSlotOnClientClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := testConfig(t)
	cfg.Bridge.MaxConns = 1
	ts := startServer(t, cfg, nil)
	defer ts.stop(t)

	first := dial(t, ts.Addr())
	ts.waitActive(t, 1)
	require.NoError(t, first.Close())
	ts.waitActive(t, 0)

	again := dial(t, ts.Addr())
	ts.waitActive(t, 1)
	ts.uart(t, "x")
	require.Equal(t, "x", readN(t, again, 1))
}

func TestServeKillsStalledClientOnly(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := testConfig(t)
	cfg.Bridge.OverflowGrace = time.Second
	ts := startServer(t, cfg, nil)

	stalled := dial(t, ts.Addr())
	require.NoError(t, stalled.(*net.TCPConn).SetReadBuffer(4096))
	reader := dial(t, ts.Addr())
	ts.waitActive(t, 2)

	drained := make(chan int64, 1)
	go func() {
		n, _ := io.Copy(io.Discard, reader)
		drained <- n
	}()

	chunk := strings.Repeat("x", 1000)
	deadline := time.Now().Add(30 * time.Second)
	for {
		stats, err := ts.Stats(context.Background())
		require.NoError(t, err)
		if stats.Active == 1 {
			break
		}
		require.True(t, time.Now().Before(deadline), "stalled client was never disconnected")
		ts.uart(t, chunk)
	}

	// the reading client keeps receiving
	stats, err := ts.Stats(context.Background())
	require.NoError(t, err)
	require.Len(t, stats.Connections, 1)
	require.Equal(t, reader.LocalAddr().String(), stats.Connections[0].RemoteAddr)
	ts.uart(t, "tail")

	ts.stop(t)
	select {
	case n := <-drained:
		require.Positive(t, n)
	case <-time.After(5 * time.Second):
		t.Fatal("reading client was not closed on shutdown")
	}
}

func TestShutdownDisconnectsClients(t *testing.T) {
	defer goleak.VerifyNone(t)

	ts := startServer(t, testConfig(t), nil)
	conn := dial(t, ts.Addr())
	ts.waitActive(t, 1)

	ts.stop(t)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, err := conn.Read(make([]byte, 1))
	require.Error(t, err)
	require.Zero(t, ts.ActiveConnections())
}

func TestShutdownBeforeServe(t *testing.T) {
	srv, err := New(Options{Config: testConfig(t)})
	require.NoError(t, err)
	require.ErrorIs(t, srv.Shutdown(context.Background()), errStopped)
}

func TestNewRequiresConfig(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
}
