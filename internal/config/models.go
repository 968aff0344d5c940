package config

import (
	"fmt"
	"time"

	"github.com/muurk/serbridge/internal/pins"
)

// Config represents the entire configuration file
type Config struct {
	Version  int             `yaml:"version"`
	Bridge   BridgeConfig    `yaml:"bridge"`
	Serial   SerialConfig    `yaml:"serial"`
	Pins     pins.Assignment `yaml:"pins"`
	HTTP     HTTPConfig      `yaml:"http"`
	MDNS     MDNSConfig      `yaml:"mdns"`
	Log      LogConfig       `yaml:"log"`
	GPIORoot string          `yaml:"gpio_root,omitempty"` // sysfs GPIO directory for the LEDs
}

// BridgeConfig controls the TCP side of the bridge
type BridgeConfig struct {
	Host          string        `yaml:"host,omitempty"` // empty listens on all interfaces
	Port          int           `yaml:"port"`
	MaxConns      int           `yaml:"max_conns"`
	TxBuffer      int           `yaml:"tx_buffer"`      // per-connection pending buffer in bytes
	OverflowGrace time.Duration `yaml:"overflow_grace"` // how long a client may stay overflowing
	IdleTimeout   time.Duration `yaml:"idle_timeout"`   // 0 disables
}

// SerialConfig selects the UART
type SerialConfig struct {
	Device    string `yaml:"device"`
	AltDevice string `yaml:"alt_device,omitempty"` // used when pins.swap_uart is set
	Baud      int    `yaml:"baud"`
}

// HTTPConfig controls the status and console web server
type HTTPConfig struct {
	Addr string `yaml:"addr"` // empty disables the web server
}

// MDNSConfig controls service advertisement
type MDNSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Instance string `yaml:"instance,omitempty"` // defaults to the hostname
}

// LogConfig sets the log level. SERBRIDGE_LOG_LEVEL overrides it.
type LogConfig struct {
	Level string `yaml:"level,omitempty"`
}

// Default returns the configuration used when no file exists
func Default() *Config {
	return &Config{
		Version: 1,
		Bridge: BridgeConfig{
			Port:          2323,
			MaxConns:      4,
			TxBuffer:      2920,
			OverflowGrace: 10 * time.Second,
			IdleTimeout:   300 * time.Second,
		},
		Serial: SerialConfig{
			Device: "/dev/ttyS0",
			Baud:   115200,
		},
		Pins: pins.Default(),
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
		MDNS: MDNSConfig{
			Enabled: true,
		},
	}
}

// Validate checks the configuration for values the bridge cannot run with
func (c *Config) Validate() []error {
	var errs []error

	if c.Bridge.Port <= 0 || c.Bridge.Port > 65535 {
		errs = append(errs, fmt.Errorf("bridge port must be 1-65535, got %d", c.Bridge.Port))
	}
	if c.Bridge.MaxConns < 1 || c.Bridge.MaxConns > 8 {
		errs = append(errs, fmt.Errorf("bridge max_conns must be 1-8, got %d", c.Bridge.MaxConns))
	}
	if c.Bridge.TxBuffer <= 0 {
		errs = append(errs, fmt.Errorf("bridge tx_buffer must be positive, got %d", c.Bridge.TxBuffer))
	}
	if c.Bridge.OverflowGrace <= 0 {
		errs = append(errs, fmt.Errorf("bridge overflow_grace must be positive, got %s", c.Bridge.OverflowGrace))
	}
	if c.Bridge.IdleTimeout < 0 {
		errs = append(errs, fmt.Errorf("bridge idle_timeout cannot be negative, got %s", c.Bridge.IdleTimeout))
	}
	if c.Serial.Device == "" {
		errs = append(errs, fmt.Errorf("serial device cannot be empty"))
	}
	if c.Serial.Baud <= 0 {
		errs = append(errs, fmt.Errorf("serial baud must be positive, got %d", c.Serial.Baud))
	}
	if err := c.Pins.Validate(); err != nil {
		errs = append(errs, err)
	}

	return errs
}
