// Package console keeps recent serial output and log lines in memory for
// the web console.
//
// A Ring is a fixed-size circular byte buffer with an absolute write offset.
// The bridge writes every UART chunk into one Ring, and the logger tees its
// entries into another. The HTTP server exposes both through Ring.ServeHTTP:
//
//	GET /console/text?start=1200
//	{"len":87,"start":1200,"text":"..."}
//
// A poller keeps asking for start+len. When the returned start is larger
// than the one requested, the bytes in between were overwritten before the
// poller caught up.
package console
