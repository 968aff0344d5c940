// Package discovery advertises bridges over mDNS and finds them again.
//
// A running bridge registers itself as a "_serbridge._tcp" service on its
// TCP port, with a TXT record describing the serial line:
//
//	baud=115200
//	device=/dev/ttyS0
//	version=1.2.0
//
// Clients browse for the service type and connect to Device.Addr.
//
// # Usage Example
//
//	adv, err := discovery.Advertise("", 2323, map[string]string{"baud": "115200"})
//	if err != nil {
//	    return err
//	}
//	defer adv.Shutdown()
//
//	devices, err := discovery.NewScanner().Scan(ctx)
//	for _, d := range devices {
//	    fmt.Println(d.Instance, d.Addr())
//	}
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Bridges must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
