package serial

import (
	"testing"
	"time"

	"go.bug.st/serial"

	"otfctl/config"
)

func TestNormalizeDefaults(t *testing.T) {
	opts, err := Config{Device: "/dev/ttyUSB0"}.Normalize()
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if opts.Driver != DriverTarm || opts.Baud != 115200 || opts.DataBits != 8 || opts.StopBits != 1 || opts.Parity != "N" {
		t.Errorf("unexpected defaults %+v", opts)
	}
}

func TestNormalizeErrors(t *testing.T) {
	testCases := []struct {
		name string
		cfg  Config
	}{
		{"no device", Config{}},
		{"driver", Config{Device: "x", Driver: "ftdi"}},
		{"data bits", Config{Device: "x", DataBits: 9}},
		{"stop bits", Config{Device: "x", StopBits: 3}},
		{"parity", Config{Device: "x", Parity: "M"}},
	}

	for _, tc := range testCases {
		if _, err := tc.cfg.Normalize(); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestMode(t *testing.T) {
	testCases := []struct {
		cfg  Config
		want serial.Mode
	}{
		{
			cfg:  Config{Device: "x", Baud: 9600},
			want: serial.Mode{BaudRate: 9600, DataBits: 8, StopBits: serial.OneStopBit, Parity: serial.NoParity},
		},
		{
			cfg:  Config{Device: "x", Baud: 57600, DataBits: 7, StopBits: 2, Parity: "even"},
			want: serial.Mode{BaudRate: 57600, DataBits: 7, StopBits: serial.TwoStopBits, Parity: serial.EvenParity},
		},
		{
			cfg:  Config{Device: "x", Parity: "o"},
			want: serial.Mode{BaudRate: 115200, DataBits: 8, StopBits: serial.OneStopBit, Parity: serial.OddParity},
		},
	}

	for _, tc := range testCases {
		mode, err := tc.cfg.Mode()
		if err != nil {
			t.Errorf("Mode(%+v): %v", tc.cfg, err)
			continue
		}
		if *mode != tc.want {
			t.Errorf("Mode(%+v) = %+v, want %+v", tc.cfg, *mode, tc.want)
		}
	}
}

func TestFromConfig(t *testing.T) {
	c := FromConfig(config.SerialConfig{Device: "/dev/ttyACM0", Driver: "bugst", Baud: 9600, ReadTimeoutMs: 250})
	if c.Device != "/dev/ttyACM0" || c.Driver != DriverBugst || c.Baud != 9600 || c.ReadTimeout != 250*time.Millisecond {
		t.Errorf("unexpected conversion %+v", c)
	}
}

func TestOpenRejectsBadConfig(t *testing.T) {
	if _, err := Open(nil); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := Open(&Config{Device: "/dev/null", Driver: "ftdi"}); err == nil {
		t.Error("expected error for unknown driver")
	}
}
