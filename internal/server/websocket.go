package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/serbridge/internal/logging"
)

const (
	// Time allowed to write a message to the peer
	wsWriteWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512

	// How often the console ring is checked for new bytes
	consolePollInterval = 100 * time.Millisecond
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The console is read-only and served to any local browser
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleConsoleWebSocket streams UART output as binary messages. A start
// query argument replays from that offset; otherwise only new bytes are
// sent.
func (s *Server) handleConsoleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an error
		logging.Debug("WebSocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}
	remoteAddr := r.RemoteAddr
	logging.LogConnection(remoteAddr, "websocket_upgraded")

	start := s.console.Offset()
	if v := r.URL.Query().Get("start"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			start = n
		}
	}

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Reading is only needed for control frames and to notice the close
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	defer func() {
		_ = conn.Close()
		<-closed
		logging.LogConnection(remoteAddr, "websocket_closed")
	}()

	poll := time.NewTicker(consolePollInterval)
	defer poll.Stop()
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return

		case <-s.done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "bridge stopping"),
				time.Now().Add(wsWriteWait))
			return

		case <-poll.C:
			at, data := s.console.Since(start, 0)
			if len(data) == 0 {
				start = at
				continue
			}
			if at > start {
				logging.Debug("WebSocket console client missed data",
					zap.String("remote_addr", remoteAddr),
					zap.Uint64("missed", at-start),
				)
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
				return
			}
			start = at + uint64(len(data))

		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}
