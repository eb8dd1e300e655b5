package config

import (
	"fmt"
	"strings"
)

// Address range usable by filters. 0x7F is the factory default, so the
// upper reserved block is allowed.
const (
	AddressMin = 0x08
	AddressMax = 0x7F
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Serial.Driver)) {
	case "", "tarm", "bugst":
	default:
		return fmt.Errorf("serial: unsupported driver %q: expected tarm or bugst", cfg.Serial.Driver)
	}

	if cfg.Timing.SettleMs != nil && *cfg.Timing.SettleMs < 0 {
		return fmt.Errorf("timing: settle_ms must be >= 0")
	}
	if cfg.Timing.PowerStabilizeMs != nil && *cfg.Timing.PowerStabilizeMs < 0 {
		return fmt.Errorf("timing: power_stabilize_ms must be >= 0")
	}

	buses := make(map[uint8]bool, len(cfg.Buses))
	for _, b := range cfg.Buses {
		if buses[b.ID] {
			return fmt.Errorf("bus %d: declared twice", b.ID)
		}
		buses[b.ID] = true
	}

	if len(cfg.Channels) == 0 {
		return fmt.Errorf("at least one channel required")
	}

	labels := make(map[string]bool, len(cfg.Channels))
	// key = bus | address
	owners := make(map[string]string, len(cfg.Channels))

	for i, ch := range cfg.Channels {
		if len(ch.Label) != 1 || !isLetter(ch.Label[0]) {
			return fmt.Errorf("channel %d: label %q must be a single letter", i, ch.Label)
		}
		label := string(toUpper(ch.Label[0]))
		if labels[label] {
			return fmt.Errorf("channel %d: label %q used twice", i, label)
		}
		labels[label] = true

		if !buses[ch.Bus] {
			return fmt.Errorf("channel %q: bus %d is not declared", label, ch.Bus)
		}
		if ch.Address < AddressMin || ch.Address > AddressMax {
			return fmt.Errorf(
				"channel %q: address 0x%02x outside 0x%02x..0x%02x",
				label, ch.Address, AddressMin, AddressMax,
			)
		}

		key := fmt.Sprintf("%d|%d", ch.Bus, ch.Address)
		if prev, exists := owners[key]; exists {
			return fmt.Errorf(
				"address collision: bus=%d address=0x%02x used by channels %q and %q",
				ch.Bus, ch.Address, prev, label,
			)
		}
		owners[key] = label
	}

	return nil
}

// isLetter checks if a byte is a letter
func isLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

// toUpper converts a byte to uppercase
func toUpper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}
