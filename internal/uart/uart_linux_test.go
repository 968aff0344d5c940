package uart

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

// openPTY allocates a master/slave pair through /dev/ptmx
func openPTY(t *testing.T) (*os.File, string) {
	t.Helper()
	master, err := os.OpenFile("/dev/ptmx", os.O_RDWR|syscall.O_NOCTTY, 0)
	if err != nil {
		t.Skipf("no pty support: %v", err)
	}
	t.Cleanup(func() { master.Close() })

	fd := int(master.Fd())
	n, err := unix.IoctlGetInt(fd, unix.TIOCGPTN)
	if err != nil {
		t.Skipf("TIOCGPTN: %v", err)
	}
	if err := unix.IoctlSetPointerInt(fd, unix.TIOCSPTLCK, 0); err != nil {
		t.Skipf("TIOCSPTLCK: %v", err)
	}
	return master, fmt.Sprintf("/dev/pts/%d", n)
}

func TestReadLoopDeliversChunks(t *testing.T) {
	master, slave := openPTY(t)

	port, err := Open(Routing{Device: slave, Baud: 115200})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer port.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chunks := make(chan []byte, 16)
	done := make(chan error, 1)
	go func() {
		done <- port.ReadLoop(ctx, func(p []byte) {
			chunks <- append([]byte(nil), p...)
		})
	}()

	if _, err := master.Write([]byte("boot: ok\r\n")); err != nil {
		t.Fatal(err)
	}

	var got []byte
	deadline := time.After(2 * time.Second)
	for len(got) < len("boot: ok\r\n") {
		select {
		case c := <-chunks:
			got = append(got, c...)
		case <-deadline:
			t.Fatalf("received %q before timeout", got)
		}
	}
	if string(got) != "boot: ok\r\n" {
		t.Errorf("received %q, want raw bytes unchanged", got)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("ReadLoop() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ReadLoop did not return after cancel")
	}
}

func TestOpenRejectsUnknownBaud(t *testing.T) {
	_, slave := openPTY(t)

	if _, err := Open(Routing{Device: slave, Baud: 12345}); err == nil {
		t.Error("Open() with baud 12345 should fail")
	}
}

func TestOpenMissingDevice(t *testing.T) {
	if _, err := Open(Routing{Device: "/nonexistent/ttyS9", Baud: 115200}); err == nil {
		t.Error("Open() of a missing device should fail")
	}
	if _, err := Open(Routing{}); err == nil {
		t.Error("Open() without a device should fail")
	}
}
