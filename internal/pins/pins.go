// Package pins describes which GPIOs the bridge uses for its status LEDs and
// UART, and rejects assignments where two functions share a pin.
package pins

import "fmt"

// Disabled marks an LED that is not wired
const Disabled int8 = -1

// UART pin numbers for the normal and swapped routings
const (
	TxPin        = 1
	RxPin        = 3
	SwappedTxPin = 15
	SwappedRxPin = 13
)

// Assignment is the persisted pin configuration
type Assignment struct {
	ConnLED  int8 `json:"conn" yaml:"conn_led"`
	SerLED   int8 `json:"ser" yaml:"ser_led"`
	Swap     bool `json:"swap" yaml:"swap_uart"`
	RxPullup bool `json:"rxpup" yaml:"rx_pullup"`
}

// Default returns the assignment used when nothing is configured:
// conn LED on GPIO0, serial LED on GPIO14, normal UART routing.
func Default() Assignment {
	return Assignment{ConnLED: 0, SerLED: 14, RxPullup: true}
}

// UARTPins returns the TX and RX GPIO numbers selected by Swap
func (a Assignment) UARTPins() (tx, rx int) {
	if a.Swap {
		return SwappedTxPin, SwappedRxPin
	}
	return TxPin, RxPin
}

func (a Assignment) String() string {
	tx, rx := a.UARTPins()
	return fmt.Sprintf("conn=%d ser=%d swap=%t rx-pup=%t (tx=%d rx=%d)",
		a.ConnLED, a.SerLED, a.Swap, a.RxPullup, tx, rx)
}

// CollisionError reports the function whose pin is already taken
type CollisionError struct {
	Function string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("Pin assignment for %s collides with another assignment", e.Function)
}

// Validate checks the assignment for collisions. The LEDs are claimed
// first in order, then the UART pins are checked against them.
func (a Assignment) Validate() error {
	var used uint32

	claim := func(pin int8, function string) error {
		if pin < 0 {
			return nil
		}
		if pin > 16 {
			return fmt.Errorf("%s pin must be -1..16, got %d", function, pin)
		}
		if used&(1<<uint(pin)) != 0 {
			return &CollisionError{Function: function}
		}
		used |= 1 << uint(pin)
		return nil
	}

	if err := claim(a.ConnLED, "Conn LED"); err != nil {
		return err
	}
	if err := claim(a.SerLED, "Serial LED"); err != nil {
		return err
	}

	tx, rx := a.UARTPins()
	if used&(1<<uint(tx)) != 0 {
		return &CollisionError{Function: "Uart TX"}
	}
	if used&(1<<uint(rx)) != 0 {
		return &CollisionError{Function: "Uart RX"}
	}
	return nil
}

// IsCollision reports whether err is a CollisionError
func IsCollision(err error) bool {
	_, ok := err.(*CollisionError)
	return ok
}
