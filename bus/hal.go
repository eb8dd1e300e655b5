// Package bus abstracts the shared two-wire bus the filters hang off.
package bus

import "fmt"

// BusID identifies a specific I2C bus (e.g., I2C0, I2C1).
type BusID uint8

// Address is a 7-bit I2C device address.
type Address uint8

// AddressMask keeps the low 7 bits of an address.
const AddressMask = 0x7F

// Handle names one device on one bus. It is immutable once created.
type Handle struct {
	Bus     BusID
	Address Address
}

// NewHandle builds a handle, masking the address to 7 bits.
func NewHandle(bus BusID, addr Address) Handle {
	return Handle{Bus: bus, Address: addr & AddressMask}
}

func (h Handle) String() string {
	return fmt.Sprintf("i2c%d@0x%02x", h.Bus, uint8(h.Address))
}

// Driver is the abstract I2C interface that the transport session uses.
type Driver interface {
	// ConfigureBus initializes a specific I2C bus with the given frequency.
	// Returns error if bus ID is invalid or configuration fails.
	ConfigureBus(bus BusID, frequencyHz uint32) error

	// Write transmits data to a device at the given address on the specified bus.
	Write(bus BusID, addr Address, data []byte) error

	// Read reads readLen bytes from a device as a separate transaction.
	Read(bus BusID, addr Address, readLen int) ([]byte, error)
}
