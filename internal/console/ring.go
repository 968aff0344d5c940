package console

import "sync"

const (
	// DefaultConsoleSize holds the most recent UART output shown on the web console
	DefaultConsoleSize = 4096

	// DefaultDebugLogSize matches the firmware's in-memory web log
	DefaultDebugLogSize = 1400
)

// Ring is a fixed-size circular byte buffer that tracks the total number of
// bytes ever written, so readers can ask for "everything since offset N"
// and detect that they missed data. New writes overwrite the oldest bytes.
//
// All methods are safe for concurrent use. Write never fails and never
// blocks for longer than a copy.
type Ring struct {
	mu       sync.Mutex
	data     []byte
	capacity int
	// writePos is the next position to write within data
	writePos int
	// total is the number of bytes ever written; the buffer holds the
	// range [total-stored, total) where stored = min(total, capacity)
	total uint64
}

// NewRing creates a ring buffer with the given capacity in bytes
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultConsoleSize
	}
	return &Ring{
		data:     make([]byte, capacity),
		capacity: capacity,
	}
}

// Write appends p, dropping the oldest bytes when full. It always reports
// len(p) bytes written.
func (r *Ring) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	src := p
	if len(src) > r.capacity {
		// only the tail can survive; skip the rest but keep the offset honest
		skip := len(src) - r.capacity
		r.writePos = (r.writePos + skip) % r.capacity
		src = src[skip:]
	}
	for off := 0; off < len(src); {
		n := copy(r.data[r.writePos:], src[off:])
		r.writePos = (r.writePos + n) % r.capacity
		off += n
	}
	r.total += uint64(len(p))
	return len(p), nil
}

// Offset returns the total number of bytes written so far
func (r *Ring) Offset() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}

// Since returns up to max bytes starting at the absolute offset start, and
// the offset the returned bytes actually begin at. A start older than the
// oldest retained byte is moved forward to it; a start at or past the end
// returns no data. max <= 0 means no limit.
func (r *Ring) Since(start uint64, max int) (uint64, []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := r.total
	if stored > uint64(r.capacity) {
		stored = uint64(r.capacity)
	}
	oldest := r.total - stored

	if start < oldest {
		start = oldest
	}
	if start >= r.total {
		return r.total, nil
	}

	n := int(r.total - start)
	if max > 0 && n > max {
		n = max
	}

	out := make([]byte, n)
	pos := (r.writePos - int(r.total-start)) % r.capacity
	if pos < 0 {
		pos += r.capacity
	}
	for copied := 0; copied < n; {
		c := copy(out[copied:], r.data[pos:])
		copied += c
		pos = (pos + c) % r.capacity
	}
	return start, out
}
