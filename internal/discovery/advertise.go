package discovery

import (
	"fmt"
	"os"
	"sort"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/serbridge/internal/logging"
)

// Advertiser announces a running bridge over mDNS
type Advertiser struct {
	server   *zeroconf.Server
	instance string
}

// Advertise registers the bridge port under instance. An empty instance
// uses the hostname. txt becomes the TXT record in key order.
func Advertise(instance string, port int, txt map[string]string) (*Advertiser, error) {
	if instance == "" {
		host, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("cannot determine hostname: %w", err)
		}
		instance = host
	}

	server, err := zeroconf.Register(instance, ServiceType, ServiceDomain, port, formatTXT(txt), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}

	logging.Info("Advertising bridge over mDNS",
		zap.String("instance", instance),
		zap.String("service", ServiceType),
		zap.Int("port", port),
	)

	return &Advertiser{server: server, instance: instance}, nil
}

// Instance returns the advertised instance name
func (a *Advertiser) Instance() string {
	return a.instance
}

// Shutdown withdraws the advertisement
func (a *Advertiser) Shutdown() {
	if a == nil || a.server == nil {
		return
	}
	a.server.Shutdown()
}

func formatTXT(txt map[string]string) []string {
	keys := make([]string, 0, len(txt))
	for k := range txt {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	records := make([]string, 0, len(keys))
	for _, k := range keys {
		records = append(records, k+"="+txt[k])
	}
	return records
}
