package serial

import (
	"fmt"

	"go.bug.st/serial"
)

// BugstPort wraps the go.bug.st/serial implementation
type BugstPort struct {
	port serial.Port
}

// Mode converts the port options into the serial.Mode structure required by
// go.bug.st/serial when opening a port.
func (c Config) Mode() (*serial.Mode, error) {
	opts, err := c.Normalize()
	if err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: opts.Baud,
		DataBits: opts.DataBits,
		StopBits: serial.OneStopBit,
	}
	if opts.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	}

	switch opts.Parity {
	case "N":
		mode.Parity = serial.NoParity
	case "E":
		mode.Parity = serial.EvenParity
	case "O":
		mode.Parity = serial.OddParity
	default:
		return nil, fmt.Errorf("unsupported parity %q", opts.Parity)
	}

	return mode, nil
}

func openBugst(cfg *Config) (Port, error) {
	mode, err := cfg.Mode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(cfg.Device, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Device, err)
	}
	if cfg.ReadTimeout > 0 {
		if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
			port.Close()
			return nil, fmt.Errorf("set read timeout on %s: %w", cfg.Device, err)
		}
	}
	return &BugstPort{port: port}, nil
}

// Read reads data from the serial port; a timeout returns 0 bytes.
func (p *BugstPort) Read(b []byte) (int, error) {
	return p.port.Read(b)
}

// Write writes data to the serial port
func (p *BugstPort) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

// Close closes the serial port
func (p *BugstPort) Close() error {
	return p.port.Close()
}

// Flush waits until all written data has been transmitted.
func (p *BugstPort) Flush() error {
	return p.port.Drain()
}
