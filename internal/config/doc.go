// Package config loads and saves the bridge configuration.
//
// The configuration is a YAML file with one section per component:
//
//	version: 1
//	bridge:
//	  port: 2323
//	  max_conns: 4
//	  tx_buffer: 2920
//	  overflow_grace: 10s
//	  idle_timeout: 5m0s
//	serial:
//	  device: /dev/ttyS0
//	  alt_device: /dev/ttyS1
//	  baud: 115200
//	pins:
//	  conn_led: 0
//	  ser_led: 14
//	  swap_uart: false
//	  rx_pullup: true
//	http:
//	  addr: :8080
//	mdns:
//	  enabled: true
//
// # Configuration File Location
//
// Without --config the file is looked up in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/serbridge/config.yaml or $HOME/.config/serbridge/config.yaml
//   - macOS: $HOME/.config/serbridge/config.yaml
//   - Windows: %LOCALAPPDATA%\serbridge\config.yaml
//
// A missing file is not an error; Load returns Default. Saves go through a
// temporary file and a rename so a crash never leaves a truncated config.
package config
