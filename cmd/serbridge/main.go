// Serbridge exposes a serial port to several TCP clients at once.
//
// Every byte read from the UART is fanned out to each connected client.
// A small web server shows the recent console output, bridge status and the
// LED and UART pin assignment. The bridge advertises itself over mDNS so
// 'serbridge discover' and 'serbridge monitor' can find it by name.
//
// Usage:
//
//	serbridge [command] [flags]
//
// See 'serbridge --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/serbridge/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "serbridge",
	Short: "Serial to TCP bridge",
	Long: `Serbridge shares one serial port with up to eight TCP clients.

Output from the UART is copied to every connected client. Clients that
cannot keep up are given a grace period and then disconnected, so one slow
reader never stalls the others.`,
	Version:       version.Short(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default is $XDG_CONFIG_HOME/serbridge/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(pinsCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "serbridge %s\n", version.Full())
	},
}
