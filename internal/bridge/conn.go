package bridge

import (
	"fmt"
	"time"

	"github.com/valyala/bytebufferpool"
)

// Conn is the network stack's view of one accepted client connection.
type Conn interface {
	// Submit hands buf to the network stack for transmission. It must not
	// block. On success the stack owns buf until it reports
	// EventSendComplete; on failure buf is still owned by the caller.
	// Only one submission may be outstanding per connection.
	Submit(buf *bytebufferpool.ByteBuffer) error

	// Disconnect closes the connection. The stack reports EventDisconnected
	// or EventReset afterwards.
	Disconnect()

	// RemoteAddr identifies the peer in logs and status output.
	RemoteAddr() string
}

// Indicator is a status light pulsed once per UART chunk.
type Indicator interface {
	Pulse(d time.Duration)
}

// EventKind enumerates the callbacks the network stack delivers
type EventKind int

const (
	// EventConnected is delivered once for each accepted connection
	EventConnected EventKind = iota
	// EventDataReceived is delivered when the client sent bytes (ignored apart from activity)
	EventDataReceived
	// EventSendComplete is delivered when the outstanding submission has been written
	EventSendComplete
	// EventDisconnected is delivered when the connection closed normally
	EventDisconnected
	// EventReset is delivered when the connection failed; Err carries the cause
	EventReset
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventDataReceived:
		return "data_received"
	case EventSendComplete:
		return "send_complete"
	case EventDisconnected:
		return "disconnected"
	case EventReset:
		return "reset"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is a network stack callback for one connection
type Event struct {
	Kind EventKind
	Conn Conn
	N    int   // bytes received, for EventDataReceived
	Err  error // cause, for EventReset
}

type nopIndicator struct{}

func (nopIndicator) Pulse(time.Duration) {}
