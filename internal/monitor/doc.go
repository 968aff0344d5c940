// Package monitor is a terminal client for a running bridge. It connects
// as one of the TCP clients, reconnects with backoff when the bridge drops
// it, and shows the serial stream in a scrolling Bubble Tea view.
package monitor
