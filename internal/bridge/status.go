package bridge

import "time"

// SlotStatus is a point-in-time view of one live connection
type SlotStatus struct {
	Slot          int        `json:"slot"`
	RemoteAddr    string     `json:"remote_addr"`
	ConnectedAt   time.Time  `json:"connected_at"`
	Pending       int        `json:"pending"`
	InFlight      int        `json:"in_flight"`
	ReadyToSend   bool       `json:"ready_to_send"`
	OverflowSince *time.Time `json:"overflow_since,omitempty"`
	Closing       bool       `json:"closing"`
	Submissions   uint64     `json:"submissions"`
	Completions   uint64     `json:"completions"`
	BytesSent     uint64     `json:"bytes_sent"`
	BytesDropped  uint64     `json:"bytes_dropped"`
	Overflows     uint64     `json:"overflows"`
}

// Stats summarizes the bridge
type Stats struct {
	Capacity    int          `json:"capacity"`
	Active      int          `json:"active"`
	Rejected    uint64       `json:"rejected"`
	UARTChunks  uint64       `json:"uart_chunks"`
	Connections []SlotStatus `json:"connections"`
}

// Snapshot returns the current state of every live slot in pool order
func (b *Bridge) Snapshot() Stats {
	stats := Stats{
		Capacity:    len(b.pool.slots),
		Rejected:    b.rejected,
		UARTChunks:  b.chunks,
		Connections: make([]SlotStatus, 0, len(b.pool.slots)),
	}
	b.pool.forEachActive(func(s *slot) {
		st := SlotStatus{
			Slot:         s.index,
			RemoteAddr:   s.conn.RemoteAddr(),
			ConnectedAt:  s.connectedAt,
			Pending:      s.pendingLen(),
			InFlight:     s.inFlightLen(),
			ReadyToSend:  s.readyToSend,
			Closing:      s.closing,
			Submissions:  s.submissions,
			Completions:  s.completions,
			BytesSent:    s.bytesSent,
			BytesDropped: s.bytesDropped,
			Overflows:    s.overflows,
		}
		if !s.overflowSince.IsZero() {
			since := s.overflowSince
			st.OverflowSince = &since
		}
		stats.Connections = append(stats.Connections, st)
	})
	stats.Active = len(stats.Connections)
	return stats
}
