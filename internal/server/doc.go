// Package server runs the serial bridge process.
//
// A Server owns four kinds of goroutine:
//
//   - the accept loop, which wraps each TCP client in a bridge.Conn
//   - two goroutines per client: a writer that performs the one outstanding
//     submission, and a reader that discards client input and notices the
//     close
//   - the UART reader, which reopens the device with backoff when it fails
//   - the event loop, the only goroutine that touches the bridge.Bridge
//
// Everything reaches the bridge through the event loop's channels, so the
// bridge itself needs no locking. Submit never blocks the loop: it hands
// the buffer to the client's writer and the writer reports back with a
// send-complete event. A client that stops reading therefore only stalls
// its own writer, and the bridge disconnects it once it has been
// overflowing for longer than the grace period.
//
// # Web Console
//
// When http.addr is set the server also answers:
//
//	GET  /console/text?start=N   recent UART output as JSON
//	GET  /console/ws             UART output as binary websocket messages
//	GET  /log/text?start=N       recent log lines
//	GET  /pins                   {"conn":0,"ser":14,"swap":0,"rxpup":1}
//	POST /pins?conn=&ser=&swap=&rxpup=
//	GET  /status                 bridge and connection counters
//
// # Usage Example
//
//	srv, err := server.New(server.Options{Config: cfg, Store: store})
//	if err != nil {
//	    return err
//	}
//	return srv.Start() // blocks until SIGINT or SIGTERM
package server
