package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"otfctl/protocol"
)

// splitArgs splits ':'-separated argument fields and checks their count.
func splitArgs(args string, want int) ([]string, error) {
	if args == "" {
		if want == 0 {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: expected %d arguments, got none", protocol.ErrInvalidArgument, want)
	}
	fields := strings.Split(args, ":")
	if len(fields) != want {
		return nil, fmt.Errorf("%w: expected %d arguments, got %d", protocol.ErrInvalidArgument, want, len(fields))
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields, nil
}

// parsePositive parses a finite number greater than zero.
func parsePositive(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", protocol.ErrInvalidArgument, s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, fmt.Errorf("%w: %q must be positive", protocol.ErrInvalidArgument, s)
	}
	return v, nil
}

// parseUint parses a decimal or 0x-prefixed unsigned value of at most bits.
func parseUint(s string, bits int) (uint64, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, bits)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", protocol.ErrInvalidArgument, s)
	}
	return v, nil
}

// formatNM renders a wavelength the way replies carry it.
func formatNM(nm float32) string {
	return strconv.FormatFloat(float64(nm), 'f', 3, 32)
}
