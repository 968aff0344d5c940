package bridge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/muurk/serbridge/internal/logging"
)

func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	logging.SetLogger(zap.New(core))
	t.Cleanup(func() { logging.SetLogger(nil) })
	return logs
}

func TestOverflowWarnsOncePerEpisode(t *testing.T) {
	logs := observeLogs(t)
	clock := newManualClock()
	b := newTestBridge(clock)
	c := newFakeConn(1)
	require.NoError(t, b.Accept(c))

	b.OnUARTChunk([]byte("!"))
	s := slotFor(b, c)

	big := make([]byte, DefaultTxBufferSize+10)
	require.True(t, IsBufferFull(b.enqueue(s, big)))
	require.True(t, IsBufferFull(b.enqueue(s, []byte("x"))))

	warnings := logs.FilterMessage("Bridge connection overflowing")
	require.Equal(t, 1, warnings.Len())
	entry := warnings.All()[0]
	require.Equal(t, zapcore.WarnLevel, entry.Level)
	require.Equal(t, c.addr, entry.ContextMap()["remote_addr"])
	require.Equal(t, "tx buffer full", entry.ContextMap()["reason"])

	// drain clears the episode; the next overflow warns again
	for c.complete(b) {
	}
	require.True(t, s.overflowSince.IsZero())

	b.OnUARTChunk([]byte("!"))
	require.True(t, IsBufferFull(b.enqueue(s, big)))
	require.Equal(t, 2, logs.FilterMessage("Bridge connection overflowing").Len())
}

func TestStuckConnectionKillIsLogged(t *testing.T) {
	logs := observeLogs(t)
	clock := newManualClock()
	b := newTestBridge(clock)
	c := newFakeConn(1)
	require.NoError(t, b.Accept(c))

	b.OnUARTChunk([]byte("!"))
	s := slotFor(b, c)
	require.True(t, IsBufferFull(b.enqueue(s, make([]byte, DefaultTxBufferSize+1))))

	clock.advance(DefaultOverflowGrace + time.Second)
	b.Tick(clock.Now())

	require.Equal(t, 1, c.disconnects)
	killed := logs.FilterMessage("Killing stuck bridge connection").All()
	require.Len(t, killed, 1)
	require.Equal(t, uint64(1), killed[0].ContextMap()["bytes_dropped"])
}

func TestFanOutLogsChunkAtDebug(t *testing.T) {
	logs := observeLogs(t)
	b := newTestBridge(newManualClock())

	b.OnUARTChunk([]byte("ok\r\n"))

	chunks := logs.FilterMessage("UART chunk").All()
	require.Len(t, chunks, 1)
	require.Equal(t, zapcore.DebugLevel, chunks[0].Level)
	require.Equal(t, "6f6b0d0a", chunks[0].ContextMap()["hex"])
	require.Equal(t, "ok..", chunks[0].ContextMap()["ascii"])
}
