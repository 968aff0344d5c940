package discovery

import "testing"

func TestDevice_Addr(t *testing.T) {
	tests := []struct {
		name     string
		device   *Device
		expected string
	}{
		{"IPv4", &Device{IP: "192.168.4.16", Port: 2323}, "192.168.4.16:2323"},
		{"IPv6", &Device{IP: "fe80::1", Port: 23}, "[fe80::1]:23"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.device.Addr(); got != tt.expected {
				t.Errorf("Device.Addr() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestDevice_Metadata(t *testing.T) {
	device := &Device{
		Instance: "workbench",
		IP:       "10.0.0.2",
		Port:     2323,
		Metadata: map[string]string{"baud": "115200", "device": "/dev/ttyS0"},
	}

	if device.Baud() != 115200 {
		t.Errorf("Baud() = %d, want 115200", device.Baud())
	}
	if device.SerialDevice() != "/dev/ttyS0" {
		t.Errorf("SerialDevice() = %q", device.SerialDevice())
	}
	if device.GetMetadata("missing") != "" {
		t.Error("GetMetadata() of a missing key should be empty")
	}

	want := "workbench at 10.0.0.2:2323 (/dev/ttyS0 115200 baud)"
	if device.String() != want {
		t.Errorf("String() = %q, want %q", device.String(), want)
	}

	empty := &Device{}
	if empty.Baud() != 0 || empty.GetMetadata("baud") != "" {
		t.Error("device without metadata should report zero values")
	}
}
