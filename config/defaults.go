package config

import (
	"strings"
	"time"
)

// Defaults
const (
	DefaultSerialDevice   = "/dev/ttyUSB0"
	DefaultSerialDriver   = "tarm"
	DefaultBaud           = 115200
	DefaultReadTimeoutMs  = 100
	DefaultFrequencyHz    = 100000
	DefaultBusTimeoutMs   = 50
	DefaultSettleMs       = 150
	DefaultStabilizeMs    = 100
	DefaultLineMax        = 128
	DefaultIntakeQueueLen = 1
)

// Default returns the configuration of the stock two-filter unit: a C-band
// and an L-band filter on bus 0.
func Default() *Config {
	cfg := &Config{
		Buses: []BusConfig{{ID: 0, Device: "/dev/i2c-1"}},
		Channels: []ChannelConfig{
			{Label: "C", Bus: 0, Address: 0x3F},
			{Label: "L", Bus: 0, Address: 0x7F},
		},
	}
	Normalize(cfg)
	return cfg
}

// Normalize fills unset values with defaults.
// It is allowed to mutate configuration.
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	s := &cfg.Serial
	if s.Device == "" {
		s.Device = DefaultSerialDevice
	}
	s.Driver = strings.ToLower(strings.TrimSpace(s.Driver))
	if s.Driver == "" {
		s.Driver = DefaultSerialDriver
	}
	if s.Baud <= 0 {
		s.Baud = DefaultBaud
	}
	if s.ReadTimeoutMs <= 0 {
		s.ReadTimeoutMs = DefaultReadTimeoutMs
	}

	for i := range cfg.Buses {
		b := &cfg.Buses[i]
		if b.FrequencyHz == 0 {
			b.FrequencyHz = DefaultFrequencyHz
		}
		if b.TimeoutMs <= 0 {
			b.TimeoutMs = DefaultBusTimeoutMs
		}
	}

	for i := range cfg.Channels {
		cfg.Channels[i].Label = strings.ToUpper(strings.TrimSpace(cfg.Channels[i].Label))
	}

	if cfg.Timing.SettleMs == nil {
		v := DefaultSettleMs
		cfg.Timing.SettleMs = &v
	}
	if cfg.Timing.PowerStabilizeMs == nil {
		v := DefaultStabilizeMs
		cfg.Timing.PowerStabilizeMs = &v
	}

	if cfg.Intake.LineMax <= 0 {
		cfg.Intake.LineMax = DefaultLineMax
	}
	if cfg.Intake.QueueDepth <= 0 {
		cfg.Intake.QueueDepth = DefaultIntakeQueueLen
	}
}

// Settle is the device processing delay inside one exchange.
func (t TimingConfig) Settle() time.Duration {
	if t.SettleMs == nil {
		return DefaultSettleMs * time.Millisecond
	}
	return time.Duration(*t.SettleMs) * time.Millisecond
}

// Stabilize is the wait after waking a filter from low power.
func (t TimingConfig) Stabilize() time.Duration {
	if t.PowerStabilizeMs == nil {
		return DefaultStabilizeMs * time.Millisecond
	}
	return time.Duration(*t.PowerStabilizeMs) * time.Millisecond
}

// ReadTimeout is the serial read timeout.
func (s SerialConfig) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutMs) * time.Millisecond
}

// Timeout is the bound on one bus transfer.
func (b BusConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutMs) * time.Millisecond
}
