// Package bridge implements the serial-to-TCP fan-out core.
//
// A Bridge owns a fixed pool of connection slots. Every chunk of bytes read
// from the UART is copied into the pending buffer of each active slot and
// submitted to that slot's connection as soon as the previous submission has
// completed. A connection that cannot keep up overflows its pending buffer,
// loses the bytes that did not fit, and is disconnected when it makes no
// progress for the overflow grace period. Other connections and the UART
// path are never affected by one slow client.
//
// # Execution Model
//
// A Bridge is not safe for concurrent use. All methods must be called from a
// single goroutine (the server's event loop). Blocking work lives behind the
// Conn interface: Submit hands a buffer to the network stack and returns
// immediately, and the stack reports completion later through an
// EventSendComplete passed to Handle.
//
// # Buffer Ownership
//
// Each slot has two buffers:
//
//	pending   bytes queued since the last submission (owned by the slot)
//	in-flight bytes handed to Conn.Submit, owned until EventSendComplete
//
// A successful submission moves pending into in-flight. Completion returns
// the in-flight buffer to the shared bytebufferpool. A buffer is never
// shared between two slots.
//
// # Usage Example
//
//	b := bridge.New(bridge.Config{
//	    Capacity:  4,
//	    Sink:      consoleRing,
//	    Indicator: serialLED,
//	})
//
//	// from the event loop
//	b.Handle(bridge.Event{Kind: bridge.EventConnected, Conn: conn})
//	b.OnUARTChunk(chunk)
//	b.Handle(bridge.Event{Kind: bridge.EventSendComplete, Conn: conn})
//	b.Tick(time.Now())
package bridge
