// Package serial opens the host-side serial link commands arrive on.
package serial

import (
	"fmt"
	"io"
	"strings"
	"time"

	"otfctl/config"
)

// Port represents a serial port interface
// This abstraction allows for different implementations:
// - Native serial (github.com/tarm/serial or go.bug.st/serial)
// - Mock serial (for testing)
type Port interface {
	io.ReadWriteCloser

	// Flush flushes any buffered data
	Flush() error
}

// Driver names
const (
	DriverTarm  = "tarm"
	DriverBugst = "bugst"
)

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyUSB0", "COM3")
	Device string

	// Driver selects the backend: "tarm" (default) or "bugst"
	Driver string

	Baud     int
	DataBits int    // 5..8, default 8
	StopBits int    // 1 or 2, default 1
	Parity   string // N, E or O, default N

	// Read timeout; a timed out read returns 0 bytes and no error
	ReadTimeout time.Duration
}

// DefaultConfig returns a default configuration for the command link
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Driver:      DriverTarm,
		Baud:        115200,
		DataBits:    8,
		StopBits:    1,
		Parity:      "N",
		ReadTimeout: 100 * time.Millisecond,
	}
}

// FromConfig converts the serial section of the process configuration.
func FromConfig(c config.SerialConfig) *Config {
	return &Config{
		Device:      c.Device,
		Driver:      c.Driver,
		Baud:        c.Baud,
		DataBits:    c.DataBits,
		StopBits:    c.StopBits,
		Parity:      c.Parity,
		ReadTimeout: c.ReadTimeout(),
	}
}

// Normalize validates the options and applies defaults for any unset values.
func (c Config) Normalize() (Config, error) {
	opts := c

	if opts.Device == "" {
		return opts, fmt.Errorf("serial device is required")
	}

	opts.Driver = strings.ToLower(strings.TrimSpace(opts.Driver))
	if opts.Driver == "" {
		opts.Driver = DriverTarm
	}
	if opts.Driver != DriverTarm && opts.Driver != DriverBugst {
		return opts, fmt.Errorf("unsupported serial driver %q", c.Driver)
	}

	if opts.Baud <= 0 {
		opts.Baud = 115200
	}

	if opts.DataBits == 0 {
		opts.DataBits = 8
	}
	if opts.DataBits < 5 || opts.DataBits > 8 {
		return opts, fmt.Errorf("invalid data bits %d: must be between 5 and 8", opts.DataBits)
	}

	if opts.StopBits == 0 {
		opts.StopBits = 1
	}
	if opts.StopBits != 1 && opts.StopBits != 2 {
		return opts, fmt.Errorf("invalid stop bits %d: supported values are 1 or 2", opts.StopBits)
	}

	parity := strings.TrimSpace(strings.ToUpper(opts.Parity))
	switch parity {
	case "", "N", "NONE":
		parity = "N"
	case "E", "EVEN":
		parity = "E"
	case "O", "ODD":
		parity = "O"
	default:
		return opts, fmt.Errorf("unsupported parity %q: expected N, E, or O", opts.Parity)
	}
	opts.Parity = parity

	return opts, nil
}

// Open opens a serial port with the configured driver
func Open(cfg *Config) (Port, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	opts, err := cfg.Normalize()
	if err != nil {
		return nil, err
	}

	switch opts.Driver {
	case DriverBugst:
		return openBugst(&opts)
	default:
		return openTarm(&opts)
	}
}
