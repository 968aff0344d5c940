package server

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/serbridge/internal/bridge"
	"github.com/muurk/serbridge/internal/logging"
	"github.com/muurk/serbridge/internal/pins"
	"github.com/muurk/serbridge/internal/uart"
	"github.com/muurk/serbridge/internal/version"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/console/text", s.console)
	mux.HandleFunc("/console/ws", s.handleConsoleWebSocket)
	if s.debugLog != nil {
		mux.Handle("/log/text", s.debugLog)
	}
	mux.HandleFunc("/pins", s.handlePins)
	mux.HandleFunc("/status", s.handleStatus)
	return logRequests(mux)
}

// pinsResponse uses 0/1 for the flags so existing web pages keep working
type pinsResponse struct {
	Conn  int8 `json:"conn"`
	Ser   int8 `json:"ser"`
	Swap  int  `json:"swap"`
	RxPup int  `json:"rxpup"`
}

func newPinsResponse(a pins.Assignment) pinsResponse {
	return pinsResponse{
		Conn:  a.ConnLED,
		Ser:   a.SerLED,
		Swap:  boolToInt(a.Swap),
		RxPup: boolToInt(a.RxPullup),
	}
}

func (s *Server) currentPins() pins.Assignment {
	if s.store != nil {
		return s.store.Pins()
	}
	return s.config.Pins
}

func (s *Server) handlePins(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, newPinsResponse(s.currentPins()))
	case http.MethodPost:
		s.setPins(w, r)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	}
}

// setPins accepts conn, ser, swap and rxpup as query or form arguments.
// Arguments that are absent keep their current value.
func (s *Server) setPins(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Malformed request", http.StatusBadRequest)
		return
	}

	a, changed, err := parsePinArgs(r, s.currentPins())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !changed {
		http.Error(w, "No pin arguments given", http.StatusBadRequest)
		return
	}

	if err := a.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if s.store == nil {
		http.Error(w, "Failed to save config", http.StatusInternalServerError)
		return
	}
	if err := s.store.SetPins(a); err != nil {
		logging.Error("Failed to save pin assignment", zap.Error(err))
		http.Error(w, "Failed to save config", http.StatusInternalServerError)
		return
	}

	if err := s.applyPins(r.Context(), a); err != nil {
		http.Error(w, "Bridge is shutting down", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parsePinArgs(r *http.Request, a pins.Assignment) (pins.Assignment, bool, error) {
	changed := false

	for _, arg := range []struct {
		name string
		dst  *int8
	}{
		{"conn", &a.ConnLED},
		{"ser", &a.SerLED},
	} {
		v := r.Form.Get(arg.name)
		if v == "" {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 8)
		if err != nil {
			return a, false, fmt.Errorf("invalid value for %s", arg.name)
		}
		*arg.dst = int8(n)
		changed = true
	}

	for _, arg := range []struct {
		name string
		dst  *bool
	}{
		{"swap", &a.Swap},
		{"rxpup", &a.RxPullup},
	} {
		v := r.Form.Get(arg.name)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return a, false, fmt.Errorf("invalid value for %s", arg.name)
		}
		*arg.dst = b
		changed = true
	}

	return a, changed, nil
}

type statusResponse struct {
	Version        version.Info    `json:"version"`
	Uptime         string          `json:"uptime"`
	Routing        uart.Routing    `json:"routing"`
	Pins           pins.Assignment `json:"pins"`
	TCPConnections int             `json:"tcp_connections"`
	ConsoleOffset  uint64          `json:"console_offset"`
	LEDs           ledStatus       `json:"leds"`
	Bridge         bridge.Stats    `json:"bridge"`
}

type ledStatus struct {
	Conn   bool `json:"conn"`
	Serial bool `json:"serial"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var (
		stats bridge.Stats
		leds  ledStatus
	)
	err := s.call(r.Context(), func() {
		stats = s.bridge.Snapshot()
		leds = ledStatus{Conn: s.connLED.On(), Serial: s.serLED.On()}
	})
	if err != nil {
		http.Error(w, "Bridge is shutting down", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{
		Version:        version.Get(),
		Uptime:         time.Since(s.started).Round(time.Second).String(),
		Routing:        s.routing,
		Pins:           s.currentPins(),
		TCPConnections: s.ActiveConnections(),
		ConsoleOffset:  s.console.Offset(),
		LEDs:           leds,
		Bridge:         stats,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// statusRecorder captures the response code for request logging. It passes
// Hijack through so the websocket upgrade still works.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logging.LogHTTPRequest(r.RemoteAddr, r.Method, r.URL.Path, rec.status)
	})
}
