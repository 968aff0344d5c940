package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/serbridge/internal/config"
	"github.com/muurk/serbridge/internal/console"
	"github.com/muurk/serbridge/internal/discovery"
	"github.com/muurk/serbridge/internal/logging"
	"github.com/muurk/serbridge/internal/monitor"
	"github.com/muurk/serbridge/internal/pins"
	"github.com/muurk/serbridge/internal/server"
)

// serve flags
var (
	servePort     int
	serveHost     string
	serveDevice   string
	serveBaud     int
	serveMaxConns int
	serveHTTPAddr string
	serveNoMDNS   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the serial bridge",
	Long: `Open the serial port and accept TCP clients.

Settings come from the config file; flags override them for this run only.
The web console is served on --http unless it is set to an empty string.`,
	Example: `  # Bridge /dev/ttyUSB0 at 9600 baud on the default port 2323
  serbridge serve --device /dev/ttyUSB0 --baud 9600

  # Allow two clients and disable the web console
  serbridge serve --max-conns 2 --http ""

  # Verbose logging
  serbridge serve --log-level debug`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "TCP port for bridge clients")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Address to listen on (empty = all interfaces)")
	serveCmd.Flags().StringVar(&serveDevice, "device", "", "Serial device")
	serveCmd.Flags().IntVar(&serveBaud, "baud", 0, "Serial baud rate")
	serveCmd.Flags().IntVar(&serveMaxConns, "max-conns", 0, "Maximum simultaneous TCP clients (1-8)")
	serveCmd.Flags().StringVar(&serveHTTPAddr, "http", "", "Web console address (empty string disables)")
	serveCmd.Flags().BoolVar(&serveNoMDNS, "no-mdns", false, "Do not advertise the bridge over mDNS")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Bridge.Port = servePort
	}
	if flags.Changed("host") {
		cfg.Bridge.Host = serveHost
	}
	if flags.Changed("device") {
		cfg.Serial.Device = serveDevice
	}
	if flags.Changed("baud") {
		cfg.Serial.Baud = serveBaud
	}
	if flags.Changed("max-conns") {
		cfg.Bridge.MaxConns = serveMaxConns
	}
	if flags.Changed("http") {
		cfg.HTTP.Addr = serveHTTPAddr
	}
	if serveNoMDNS {
		cfg.MDNS.Enabled = false
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return fmt.Errorf("invalid configuration:\n  %s", strings.Join(msgs, "\n  "))
	}

	level := resolveLogLevel(logLevel, cfg.Log.Level)
	debugLog := console.NewRing(console.DefaultDebugLogSize)
	if err := logging.InitializeWithDebugLog(level, debugLog); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logging.Sync()

	store, err := config.NewStore(configPath, cfg)
	if err != nil {
		return err
	}

	srv, err := server.New(server.Options{
		Config:   cfg,
		Store:    store,
		Console:  console.NewRing(console.DefaultConsoleSize),
		DebugLog: debugLog,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}

// resolveLogLevel picks the serve log level: --log-level, then
// SERBRIDGE_LOG_LEVEL, then the config file, then info.
func resolveLogLevel(flag, configured string) string {
	for _, level := range []string{flag, os.Getenv(logging.LogLevelEnvVar), configured} {
		if level != "" {
			return level
		}
	}
	return "info"
}

var discoverTimeout time.Duration

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find bridges on the local network",
	Long: `Browse mDNS for running bridges and list their address, serial
device and baud rate.`,
	Example: `  # Scan for 5 seconds (default)
  serbridge discover

  # Longer scan for busy networks
  serbridge discover --timeout 15s`,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().DurationVar(&discoverTimeout, "timeout", discovery.DefaultScanTimeout, "How long to listen for responses")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	if err := logging.Initialize(logLevel); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Scanning for bridges (timeout: %s)...\n\n", discoverTimeout)

	scanner := discovery.NewScanner()
	scanner.Timeout = discoverTimeout
	devices, err := scanner.Scan(ctx)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(devices) == 0 {
		fmt.Fprintln(out, "No bridges found.")
		fmt.Fprintln(out, "\nTroubleshooting:")
		fmt.Fprintln(out, "  - Check the bridge was started without --no-mdns")
		fmt.Fprintln(out, "  - Multicast may be blocked between networks or by a firewall")
		fmt.Fprintln(out, "  - Try increasing --timeout")
		return nil
	}

	fmt.Fprintf(out, "Found %d bridge(s):\n\n", len(devices))
	for i, d := range devices {
		fmt.Fprintf(out, "%d. %s\n", i+1, monitor.HeadingStyle.Render(d.Instance))
		fmt.Fprintf(out, "   %s %s\n", monitor.KeyStyle.Render("Address"), monitor.ValueStyle.Render(d.Addr()))
		if dev := d.SerialDevice(); dev != "" {
			fmt.Fprintf(out, "   %s %s\n", monitor.KeyStyle.Render("Device"), monitor.ValueStyle.Render(dev))
		}
		if baud := d.Baud(); baud > 0 {
			fmt.Fprintf(out, "   %s %s\n", monitor.KeyStyle.Render("Baud"), monitor.ValueStyle.Render(fmt.Sprint(baud)))
		}
		if v := d.GetMetadata("version"); v != "" {
			fmt.Fprintf(out, "   %s %s\n", monitor.KeyStyle.Render("Version"), monitor.ValueStyle.Render(v))
		}
		fmt.Fprintln(out)
	}
	fmt.Fprintln(out, "Use 'serbridge monitor <name>' to watch a bridge")
	return nil
}

var monitorCmd = &cobra.Command{
	Use:   "monitor ADDR|NAME",
	Short: "Watch a bridge's serial output",
	Long: `Connect to a bridge as a TCP client and show what it sends.

The argument is either host:port or an mDNS instance name as printed by
'serbridge discover'. The monitor reconnects when the bridge drops it.
When stdout is not a terminal the raw stream is written unchanged.`,
	Example: `  serbridge monitor 192.168.1.40:2323
  serbridge monitor workbench
  serbridge monitor workbench > capture.log`,
	Args: cobra.ExactArgs(1),
	RunE: runMonitor,
}

func runMonitor(cmd *cobra.Command, args []string) error {
	if err := logging.Initialize(logLevel); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr, err := resolveBridge(ctx, args[0])
	if err != nil {
		return err
	}
	return monitor.Run(ctx, addr)
}

// resolveBridge accepts host:port as is and looks anything else up over mDNS
func resolveBridge(ctx context.Context, target string) (string, error) {
	if strings.Contains(target, ":") {
		return target, nil
	}
	d, err := discovery.NewScanner().Find(ctx, target)
	if err != nil {
		return "", fmt.Errorf("bridge %q not found: %w", target, err)
	}
	return d.Addr(), nil
}

// pins flags
var (
	pinsConnLED  int
	pinsSerLED   int
	pinsSwap     bool
	pinsRxPullup bool
)

var pinsCmd = &cobra.Command{
	Use:   "pins",
	Short: "Show or change the LED and UART pin assignment",
	Long: `Without flags, print the pin assignment from the config file.
With flags, validate the new assignment and save it. A running bridge
applies UART changes on its next start.

Use -1 to disable an LED.`,
	Example: `  serbridge pins
  serbridge pins --conn-led 2 --ser-led -1
  serbridge pins --swap`,
	RunE: runPins,
}

func init() {
	pinsCmd.Flags().IntVar(&pinsConnLED, "conn-led", 0, "GPIO for the connection LED")
	pinsCmd.Flags().IntVar(&pinsSerLED, "ser-led", 0, "GPIO for the serial activity LED")
	pinsCmd.Flags().BoolVar(&pinsSwap, "swap", false, "Route the UART to the alternate pins")
	pinsCmd.Flags().BoolVar(&pinsRxPullup, "rx-pullup", true, "Enable the RX pull-up")
}

func runPins(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	store, err := config.NewStore(configPath, cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	a := store.Pins()

	flags := cmd.Flags()
	changed := false
	if flags.Changed("conn-led") {
		v, err := ledPin("conn-led", pinsConnLED)
		if err != nil {
			return err
		}
		a.ConnLED = v
		changed = true
	}
	if flags.Changed("ser-led") {
		v, err := ledPin("ser-led", pinsSerLED)
		if err != nil {
			return err
		}
		a.SerLED = v
		changed = true
	}
	if flags.Changed("swap") {
		a.Swap = pinsSwap
		changed = true
	}
	if flags.Changed("rx-pullup") {
		a.RxPullup = pinsRxPullup
		changed = true
	}

	if changed {
		if err := a.Validate(); err != nil {
			return err
		}
		if err := store.SetPins(a); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %s\n", monitor.SuccessStyle.Render("Saved"), store.Path())
	}

	tx, rx := a.UARTPins()
	fmt.Fprintf(out, "%s %s\n", monitor.KeyStyle.Render("Conn LED"), ledString(a.ConnLED))
	fmt.Fprintf(out, "%s %s\n", monitor.KeyStyle.Render("Serial LED"), ledString(a.SerLED))
	fmt.Fprintf(out, "%s tx=%d rx=%d swapped=%t\n", monitor.KeyStyle.Render("UART"), tx, rx, a.Swap)
	fmt.Fprintf(out, "%s %t\n", monitor.KeyStyle.Render("RX pull-up"), a.RxPullup)
	return nil
}

var errPinRange = errors.New("must be between -1 and 16")

func ledPin(name string, v int) (int8, error) {
	if v < -1 || v > 16 {
		return 0, fmt.Errorf("--%s %d: %w", name, v, errPinRange)
	}
	return int8(v), nil
}

func ledString(pin int8) string {
	if pin == pins.Disabled {
		return "disabled"
	}
	return fmt.Sprintf("GPIO%d", pin)
}
