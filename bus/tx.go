package bus

import (
	"errors"
	"sync"

	"tinygo.org/x/drivers"
)

// ErrBusNotConfigured is returned for buses that were never registered.
var ErrBusNotConfigured = errors.New("I2C bus not configured")

// Configurer is implemented by buses that accept a clock frequency
// (machine.I2C via a small wrapper on TinyGo targets).
type Configurer interface {
	SetBaudRate(br uint32) error
}

// TxDriver implements Driver on top of any set of drivers.I2C buses,
// which is what TinyGo's machine.I2C satisfies.
type TxDriver struct {
	mu    sync.Mutex
	buses map[BusID]drivers.I2C
}

// NewTxDriver constructs the driver
func NewTxDriver(buses map[BusID]drivers.I2C) *TxDriver {
	d := &TxDriver{buses: make(map[BusID]drivers.I2C, len(buses))}
	for id, b := range buses {
		d.buses[id] = b
	}
	return d
}

// ConfigureBus sets the bus frequency when the bus supports it.
func (d *TxDriver) ConfigureBus(bus BusID, frequencyHz uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	i2c, exists := d.buses[bus]
	if !exists {
		return ErrBusNotConfigured
	}
	if c, ok := i2c.(Configurer); ok && frequencyHz > 0 {
		return c.SetBaudRate(frequencyHz)
	}
	return nil
}

// Write transmits data to a device at the given address on the specified bus.
func (d *TxDriver) Write(bus BusID, addr Address, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	i2c, exists := d.buses[bus]
	if !exists {
		return ErrBusNotConfigured
	}

	// For write-only, we pass nil for the read buffer
	return i2c.Tx(uint16(addr), data, nil)
}

// Read performs a read-only transaction of readLen bytes.
func (d *TxDriver) Read(bus BusID, addr Address, readLen int) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	i2c, exists := d.buses[bus]
	if !exists {
		return nil, ErrBusNotConfigured
	}

	readBuf := make([]byte, readLen)
	if err := i2c.Tx(uint16(addr), nil, readBuf); err != nil {
		return nil, err
	}
	return readBuf, nil
}
