package bridge

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/valyala/bytebufferpool"
)

var errBusy = errors.New("submission already outstanding")

// fakeConn is an in-memory network stack connection. Submissions are held
// until the test completes them, which lets tests inject completion order
// and failures.
type fakeConn struct {
	addr        string
	submitErr   error
	outstanding *bytebufferpool.ByteBuffer
	received    bytes.Buffer
	submits     int
	disconnects int
}

func newFakeConn(n int) *fakeConn {
	return &fakeConn{addr: fmt.Sprintf("10.0.0.%d:5000", n)}
}

func (c *fakeConn) Submit(buf *bytebufferpool.ByteBuffer) error {
	if c.submitErr != nil {
		return c.submitErr
	}
	if c.outstanding != nil {
		return errBusy
	}
	c.outstanding = buf
	c.submits++
	return nil
}

func (c *fakeConn) Disconnect() {
	c.disconnects++
}

func (c *fakeConn) RemoteAddr() string {
	return c.addr
}

// complete delivers the outstanding submission to the client and reports
// completion to the bridge. Returns false if nothing was outstanding.
func (c *fakeConn) complete(b *Bridge) bool {
	if c.outstanding == nil {
		return false
	}
	c.received.Write(c.outstanding.B)
	c.outstanding = nil
	b.Handle(Event{Kind: EventSendComplete, Conn: c})
	return true
}

// drain completes submissions until the connection has nothing in flight.
func (c *fakeConn) drain(b *Bridge) {
	for c.complete(b) {
	}
}

type manualClock struct {
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	return c.now
}

func (c *manualClock) advance(d time.Duration) {
	c.now = c.now.Add(d)
}

type countingIndicator struct {
	pulses int
	last   time.Duration
}

func (i *countingIndicator) Pulse(d time.Duration) {
	i.pulses++
	i.last = d
}

func newTestBridge(clock *manualClock) *Bridge {
	return New(Config{Now: clock.Now, IdleTimeout: DefaultIdleTimeout})
}

func slotFor(b *Bridge, c Conn) *slot {
	return b.pool.lookup(c)
}
