//go:build !linux

package uart

import (
	"fmt"
	"runtime"
)

func makeRaw(fd int, baud int) error {
	return fmt.Errorf("serial configuration is not supported on %s", runtime.GOOS)
}
