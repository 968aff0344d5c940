package bridge

import (
	"time"

	"github.com/valyala/bytebufferpool"
)

// slot is one reusable connection record. conn == nil marks an empty slot.
type slot struct {
	index int
	conn  Conn

	pending     *bytebufferpool.ByteBuffer // queued, not yet submitted
	inFlight    *bytebufferpool.ByteBuffer // submitted, awaiting EventSendComplete
	readyToSend bool

	overflowSince time.Time // zero unless overflowing
	closing       bool      // forced disconnect requested
	connectedAt   time.Time
	lastActivity  time.Time

	submissions  uint64
	completions  uint64
	bytesSent    uint64
	bytesDropped uint64
	overflows    uint64
}

func (s *slot) empty() bool {
	return s.conn == nil
}

func (s *slot) pendingLen() int {
	if s.pending == nil {
		return 0
	}
	return s.pending.Len()
}

func (s *slot) inFlightLen() int {
	if s.inFlight == nil {
		return 0
	}
	return s.inFlight.Len()
}

// pool is a fixed-capacity arena of slots
type pool struct {
	slots []slot
}

func newPool(capacity int) *pool {
	p := &pool{slots: make([]slot, capacity)}
	for i := range p.slots {
		p.slots[i].index = i
	}
	return p
}

// acquire claims the first empty slot for conn.
func (p *pool) acquire(conn Conn, now time.Time) (*slot, error) {
	for i := range p.slots {
		s := &p.slots[i]
		if !s.empty() {
			continue
		}
		*s = slot{
			index:        i,
			conn:         conn,
			readyToSend:  true,
			connectedAt:  now,
			lastActivity: now,
		}
		return s, nil
	}
	return nil, ErrPoolExhausted
}

// release frees the slot's buffers and marks it empty. Releasing an empty
// slot is a no-op.
func (p *pool) release(s *slot) {
	if s.empty() {
		return
	}
	if s.pending != nil {
		bytebufferpool.Put(s.pending)
	}
	// The stack may still be writing from inFlight; drop the reference and
	// let the collector reclaim it instead of recycling it.
	*s = slot{index: s.index}
}

// lookup finds the active slot bound to conn.
func (p *pool) lookup(conn Conn) *slot {
	if conn == nil {
		return nil
	}
	for i := range p.slots {
		if p.slots[i].conn == conn {
			return &p.slots[i]
		}
	}
	return nil
}

// forEachActive applies f to every non-empty slot in pool order.
func (p *pool) forEachActive(f func(s *slot)) {
	for i := range p.slots {
		if !p.slots[i].empty() {
			f(&p.slots[i])
		}
	}
}

func (p *pool) active() int {
	n := 0
	p.forEachActive(func(*slot) { n++ })
	return n
}
