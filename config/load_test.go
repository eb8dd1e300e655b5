package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

const sampleYAML = `
serial:
  device: /dev/ttyACM0
  driver: BugSt
  baud: 57600
buses:
  - id: 0
    device: /dev/i2c-1
    frequency_hz: 400000
  - id: 1
    device: /dev/i2c-2
channels:
  - label: c
    bus: 0
    address: 0x20
  - label: L
    bus: 1
    address: 0x20
timing:
  settle_ms: 0
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	zero := 0
	stabilize := DefaultStabilizeMs
	want := &Config{
		Serial: SerialConfig{
			Device:        "/dev/ttyACM0",
			Driver:        "bugst",
			Baud:          57600,
			ReadTimeoutMs: DefaultReadTimeoutMs,
		},
		Buses: []BusConfig{
			{ID: 0, Device: "/dev/i2c-1", FrequencyHz: 400000, TimeoutMs: DefaultBusTimeoutMs},
			{ID: 1, Device: "/dev/i2c-2", FrequencyHz: DefaultFrequencyHz, TimeoutMs: DefaultBusTimeoutMs},
		},
		Channels: []ChannelConfig{
			{Label: "C", Bus: 0, Address: 0x20},
			{Label: "L", Bus: 1, Address: 0x20},
		},
		Timing: TimingConfig{SettleMs: &zero, PowerStabilizeMs: &stabilize},
		Intake: IntakeConfig{LineMax: DefaultLineMax, QueueDepth: DefaultIntakeQueueLen},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}

	// An explicit zero settle is kept, not replaced by the default
	if cfg.Timing.Settle() != 0 {
		t.Errorf("Settle() = %v, want 0", cfg.Timing.Settle())
	}
	if cfg.Timing.Stabilize() != DefaultStabilizeMs*time.Millisecond {
		t.Errorf("Stabilize() = %v", cfg.Timing.Stabilize())
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("channels:\n  - label: C\n    adress: 0x20\n"))
	if err == nil {
		t.Fatal("expected error for misspelled key")
	}
}

func TestParseEmptyDocument(t *testing.T) {
	// No channels: empty documents parse but fail validation
	if _, err := Parse(nil); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "otfctl.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Serial.Device != "/dev/ttyACM0" {
		t.Errorf("device = %q", cfg.Serial.Device)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if len(cfg.Channels) != 2 || cfg.Channels[0].Label != "C" || cfg.Channels[1].Label != "L" {
		t.Errorf("unexpected channels %+v", cfg.Channels)
	}
	if cfg.Serial.Driver != DefaultSerialDriver || cfg.Serial.Baud != DefaultBaud {
		t.Errorf("unexpected serial defaults %+v", cfg.Serial)
	}
	if cfg.Timing.Settle() != DefaultSettleMs*time.Millisecond {
		t.Errorf("Settle() = %v", cfg.Timing.Settle())
	}
	if cfg.Buses[0].Timeout() != DefaultBusTimeoutMs*time.Millisecond {
		t.Errorf("bus timeout = %v", cfg.Buses[0].Timeout())
	}
}
