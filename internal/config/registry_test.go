package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/muurk/serbridge/internal/pins"
)

func TestGetConfigDir(t *testing.T) {
	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}

	if !strings.Contains(configDir, "serbridge") {
		t.Errorf("GetConfigDir() = %v, should contain 'serbridge'", configDir)
	}

	if runtime.GOOS == "linux" && os.Getenv("XDG_CONFIG_HOME") == "" {
		if !strings.Contains(configDir, ".config") {
			t.Errorf("Unix config dir should contain '.config', got: %v", configDir)
		}
	}
}

func TestGetConfigDirXDG(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG_CONFIG_HOME only applies on Linux")
	}
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")

	configPath, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}
	if configPath != "/tmp/xdg/serbridge/config.yaml" {
		t.Errorf("GetConfigPath() = %v, want /tmp/xdg/serbridge/config.yaml", configPath)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Bridge.Port != 2323 {
		t.Errorf("Bridge.Port = %d, want 2323", cfg.Bridge.Port)
	}
	if cfg.Bridge.MaxConns != 4 {
		t.Errorf("Bridge.MaxConns = %d, want 4", cfg.Bridge.MaxConns)
	}
	if cfg.Bridge.TxBuffer != 2920 {
		t.Errorf("Bridge.TxBuffer = %d, want 2920", cfg.Bridge.TxBuffer)
	}
	if cfg.Bridge.OverflowGrace != 10*time.Second {
		t.Errorf("Bridge.OverflowGrace = %v, want 10s", cfg.Bridge.OverflowGrace)
	}
	if cfg.Bridge.IdleTimeout != 300*time.Second {
		t.Errorf("Bridge.IdleTimeout = %v, want 5m", cfg.Bridge.IdleTimeout)
	}
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("Default().Validate() = %v, want no errors", errs)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Bridge.Port != 2323 {
		t.Errorf("Load() of missing file should return defaults, got port %d", cfg.Bridge.Port)
	}
}

func TestLoadPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `version: 1
bridge:
  port: 23
  overflow_grace: 30s
serial:
  device: /dev/ttyUSB0
pins:
  swap_uart: true
  conn_led: -1
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Bridge.Port != 23 {
		t.Errorf("Bridge.Port = %d, want 23", cfg.Bridge.Port)
	}
	if cfg.Bridge.OverflowGrace != 30*time.Second {
		t.Errorf("Bridge.OverflowGrace = %v, want 30s", cfg.Bridge.OverflowGrace)
	}
	if cfg.Bridge.MaxConns != 4 {
		t.Errorf("Bridge.MaxConns = %d, want default 4", cfg.Bridge.MaxConns)
	}
	if cfg.Serial.Device != "/dev/ttyUSB0" || cfg.Serial.Baud != 115200 {
		t.Errorf("Serial = %+v", cfg.Serial)
	}
	if !cfg.Pins.Swap || cfg.Pins.ConnLED != pins.Disabled || cfg.Pins.SerLED != 14 {
		t.Errorf("Pins = %+v", cfg.Pins)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad version", "version: 2\n"},
		{"malformed yaml", "bridge: [port\n"},
		{"bad duration", "version: 1\nbridge:\n  overflow_grace: soon\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("Load() should fail")
			}
		})
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Bridge.IdleTimeout = 0
	cfg.Serial.AltDevice = "/dev/ttyS1"
	cfg.Pins = pins.Assignment{ConnLED: 2, SerLED: 4, Swap: true}

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file should not remain after Save()")
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Bridge.IdleTimeout != 0 {
		t.Errorf("IdleTimeout = %v, want 0", loaded.Bridge.IdleTimeout)
	}
	if loaded.Serial.AltDevice != "/dev/ttyS1" {
		t.Errorf("AltDevice = %q", loaded.Serial.AltDevice)
	}
	if loaded.Pins != cfg.Pins {
		t.Errorf("Pins = %+v, want %+v", loaded.Pins, cfg.Pins)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(*Config)
		wantCount int
	}{
		{"Valid: defaults", func(*Config) {}, 0},
		{"Invalid: port", func(c *Config) { c.Bridge.Port = 0 }, 1},
		{"Invalid: too many conns", func(c *Config) { c.Bridge.MaxConns = 9 }, 1},
		{"Invalid: no device and no baud", func(c *Config) { c.Serial.Device = ""; c.Serial.Baud = 0 }, 2},
		{"Invalid: pin collision", func(c *Config) { c.Pins.SerLED = c.Pins.ConnLED }, 1},
		{"Valid: idle timeout disabled", func(c *Config) { c.Bridge.IdleTimeout = 0 }, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			if errs := cfg.Validate(); len(errs) != tt.wantCount {
				t.Errorf("Validate() = %v, want %d errors", errs, tt.wantCount)
			}
		})
	}
}

func TestStoreSetPins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	store, err := NewStore(path, Default())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	a := pins.Assignment{ConnLED: 5, SerLED: 12, RxPullup: true}
	if err := store.SetPins(a); err != nil {
		t.Fatalf("SetPins() error = %v", err)
	}
	if store.Pins() != a {
		t.Errorf("Pins() = %+v, want %+v", store.Pins(), a)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Pins != a {
		t.Errorf("saved Pins = %+v, want %+v", loaded.Pins, a)
	}
}

func TestStoreSaveFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0600); err != nil {
		t.Fatal(err)
	}

	store, err := NewStore(filepath.Join(blocker, "config.yaml"), Default())
	if err != nil {
		t.Fatal(err)
	}
	a := pins.Assignment{ConnLED: 2, SerLED: pins.Disabled}
	if err := store.SetPins(a); err == nil {
		t.Error("SetPins() should fail when the directory cannot be created")
	}
	if store.Pins() != pins.Default() {
		t.Errorf("Pins() after failed save = %+v, want unchanged %+v", store.Pins(), pins.Default())
	}
}
