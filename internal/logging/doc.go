// Package logging provides structured logging for serbridge.
//
// This package wraps a package-global zap logger with convenience functions
// used throughout the bridge. Until Initialize is called (or when no level
// is configured) every call is a no-op, so library code and tests stay
// silent by default.
//
// # Log Levels
//
//   - Debug: per-chunk enqueue results, raw byte dumps, HTTP requests
//   - Info: connections accepted and closed, startup, routing
//   - Warn: pool exhaustion, overflow episodes, killed connections, resets
//   - Error: listener and UART failures
//
// # Web Debug Log
//
// InitializeWithDebugLog tees every entry into a second writer using the
// compact firmware log format, one line per entry:
//
//	12345> WARN Bridge connection overflowing {"remote_addr": "10.0.0.7:51234"}
//
// The serve command points it at a small ring buffer that the HTTP server
// exposes at /log/text, so an operator can read recent activity without
// shell access.
//
// # Usage
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
//	logging.LogConnection(remoteAddr, "bridge_accepted")
//
// All functions are safe for concurrent use once initialization is done.
package logging
