package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Device is a bridge found on the network
type Device struct {
	// Instance is the advertised service name (usually the host name)
	Instance string

	// Hostname is the mDNS hostname (e.g., "workbench.local.")
	Hostname string

	// IP is the preferred address, IPv4 when available
	IP string

	// Port is the bridge TCP port
	Port int

	// Metadata holds the TXT record: baud, device, version
	Metadata map[string]string

	// DiscoveredAt is when the entry was received
	DiscoveredAt time.Time
}

// String returns a human-readable representation of the device
func (d *Device) String() string {
	return fmt.Sprintf("%s at %s (%s %s baud)", d.Instance, d.Addr(), d.SerialDevice(), d.GetMetadata("baud"))
}

// Addr returns the host:port to connect a bridge client to
func (d *Device) Addr() string {
	return net.JoinHostPort(d.IP, strconv.Itoa(d.Port))
}

// SerialDevice returns the advertised UART device path
func (d *Device) SerialDevice() string {
	return d.GetMetadata("device")
}

// Baud returns the advertised baud rate, or 0 if absent or malformed
func (d *Device) Baud() int {
	n, err := strconv.Atoi(d.GetMetadata("baud"))
	if err != nil {
		return 0
	}
	return n
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (d *Device) GetMetadata(key string) string {
	if d.Metadata == nil {
		return ""
	}
	return d.Metadata[key]
}
