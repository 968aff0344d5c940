package server

import (
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/valyala/bytebufferpool"

	"github.com/muurk/serbridge/internal/bridge"
)

const (
	// Time allowed to write one submission to the client
	writeWait = 30 * time.Second

	// Client input is read and discarded in chunks of this size
	readBufferSize = 512
)

var (
	errConnClosed = errors.New("connection closed")
	errSubmitBusy = errors.New("submission already outstanding")
)

// tcpConn adapts a net.Conn to bridge.Conn. Submit hands the buffer to a
// writer goroutine and returns at once; the writer reports completion as
// an event. The reader discards client input and reports the close.
type tcpConn struct {
	conn    net.Conn
	addr    string
	post    func(bridge.Event)
	onClose func(*tcpConn)

	sends     chan *bytebufferpool.ByteBuffer
	closed    chan struct{}
	closeOnce sync.Once
	endOnce   sync.Once
}

func newTCPConn(conn net.Conn, post func(bridge.Event), onClose func(*tcpConn)) *tcpConn {
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
	}
	return &tcpConn{
		conn:    conn,
		addr:    conn.RemoteAddr().String(),
		post:    post,
		onClose: onClose,
		sends:   make(chan *bytebufferpool.ByteBuffer, 1),
		closed:  make(chan struct{}),
	}
}

func (c *tcpConn) start(wg *sync.WaitGroup) {
	wg.Add(2)
	go func() {
		defer wg.Done()
		c.readLoop()
	}()
	go func() {
		defer wg.Done()
		c.writeLoop()
	}()
}

func (c *tcpConn) Submit(buf *bytebufferpool.ByteBuffer) error {
	if c.isClosed() {
		return errConnClosed
	}
	select {
	case c.sends <- buf:
		return nil
	default:
		return errSubmitBusy
	}
}

func (c *tcpConn) Disconnect() {
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.conn.Close()
		if c.onClose != nil {
			c.onClose(c)
		}
	})
}

func (c *tcpConn) RemoteAddr() string {
	return c.addr
}

func (c *tcpConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// end reports the single terminal event for the connection. A close we
// initiated is a normal disconnect; anything else is a reset.
func (c *tcpConn) end(err error) {
	c.endOnce.Do(func() {
		if err == nil || errors.Is(err, io.EOF) || c.isClosed() {
			c.post(bridge.Event{Kind: bridge.EventDisconnected, Conn: c})
			return
		}
		c.post(bridge.Event{Kind: bridge.EventReset, Conn: c, Err: err})
	})
}

func (c *tcpConn) readLoop() {
	buf := make([]byte, readBufferSize)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			c.post(bridge.Event{Kind: bridge.EventDataReceived, Conn: c, N: n})
		}
		if err != nil {
			c.end(err)
			c.Disconnect()
			return
		}
	}
}

func (c *tcpConn) writeLoop() {
	for {
		select {
		case buf := <-c.sends:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			n, err := c.conn.Write(buf.B)
			if err != nil {
				c.end(err)
				c.Disconnect()
				return
			}
			c.post(bridge.Event{Kind: bridge.EventSendComplete, Conn: c, N: n})
		case <-c.closed:
			return
		}
	}
}
