package pins

import "testing"

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		a         Assignment
		wantColl  string
		wantOther bool
	}{
		{"Valid: default", Default(), "", false},
		{"Valid: LEDs disabled", Assignment{ConnLED: Disabled, SerLED: Disabled}, "", false},
		{"Valid: swapped frees GPIO1", Assignment{ConnLED: 1, SerLED: 3, Swap: true}, "", false},
		{"Collision: LEDs share a pin", Assignment{ConnLED: 5, SerLED: 5}, "Serial LED", false},
		{"Collision: conn LED on TX", Assignment{ConnLED: 1, SerLED: Disabled}, "Uart TX", false},
		{"Collision: serial LED on RX", Assignment{ConnLED: Disabled, SerLED: 3}, "Uart RX", false},
		{"Collision: swapped TX", Assignment{ConnLED: 15, SerLED: 2, Swap: true}, "Uart TX", false},
		{"Collision: swapped RX", Assignment{ConnLED: 2, SerLED: 13, Swap: true}, "Uart RX", false},
		{"Invalid: pin out of range", Assignment{ConnLED: 17, SerLED: Disabled}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.a.Validate()
			switch {
			case tt.wantColl != "":
				ce, ok := err.(*CollisionError)
				if !ok {
					t.Fatalf("Validate() error = %v, want CollisionError", err)
				}
				if ce.Function != tt.wantColl {
					t.Errorf("collision on %q, want %q", ce.Function, tt.wantColl)
				}
			case tt.wantOther:
				if err == nil || IsCollision(err) {
					t.Errorf("Validate() error = %v, want range error", err)
				}
			default:
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
			}
		})
	}
}

func TestCollisionErrorMessage(t *testing.T) {
	err := Assignment{ConnLED: 4, SerLED: 4}.Validate()
	want := "Pin assignment for Serial LED collides with another assignment"
	if err == nil || err.Error() != want {
		t.Errorf("Error() = %v, want %q", err, want)
	}
}

func TestUARTPins(t *testing.T) {
	tx, rx := Assignment{}.UARTPins()
	if tx != 1 || rx != 3 {
		t.Errorf("normal routing = %d/%d, want 1/3", tx, rx)
	}
	tx, rx = Assignment{Swap: true}.UARTPins()
	if tx != 15 || rx != 13 {
		t.Errorf("swapped routing = %d/%d, want 15/13", tx, rx)
	}
}
