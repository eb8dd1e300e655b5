//go:build linux

package bus

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// i2c-dev ioctl requests, see linux/i2c-dev.h
const (
	ioctlI2CRetries = 0x0701
	ioctlI2CTimeout = 0x0702 // units of 10 ms
	ioctlI2CSlave   = 0x0703
)

// Linux implements Driver over /dev/i2c-N character devices.
type Linux struct {
	mu      sync.Mutex
	paths   map[BusID]string
	timeout time.Duration
	open    map[BusID]*linuxBus
}

type linuxBus struct {
	fd      int
	addr    Address
	addrSet bool
}

// NewLinux creates a driver for the given bus device paths. Every transfer
// is bounded by timeout in the kernel; zero keeps the adapter default.
func NewLinux(paths map[BusID]string, timeout time.Duration) *Linux {
	l := &Linux{
		paths:   make(map[BusID]string, len(paths)),
		timeout: timeout,
		open:    make(map[BusID]*linuxBus),
	}
	for id, p := range paths {
		l.paths[id] = p
	}
	return l
}

// ConfigureBus opens the bus device. The clock rate of an i2c-dev adapter is
// fixed by the kernel, so frequencyHz is ignored.
func (l *Linux) ConfigureBus(bus BusID, frequencyHz uint32) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := l.lockedBus(bus)
	return err
}

// Write transmits data to a device at the given address on the specified bus.
func (l *Linux) Write(bus BusID, addr Address, data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, err := l.selectAddr(bus, addr)
	if err != nil {
		return err
	}
	n, err := unix.Write(b.fd, data)
	if err != nil {
		return fmt.Errorf("i2c write: %w", err)
	}
	if n != len(data) {
		return fmt.Errorf("incomplete write: %d/%d bytes", n, len(data))
	}
	return nil
}

// Read performs a read-only transaction of readLen bytes.
func (l *Linux) Read(bus BusID, addr Address, readLen int) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, err := l.selectAddr(bus, addr)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, readLen)
	n, err := unix.Read(b.fd, buf)
	if err != nil {
		return nil, fmt.Errorf("i2c read: %w", err)
	}
	return buf[:n], nil
}

// Close releases every opened bus device.
func (l *Linux) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	for id, b := range l.open {
		if err := unix.Close(b.fd); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(l.open, id)
	}
	return firstErr
}

// selectAddr must be called with l.mu held
func (l *Linux) selectAddr(bus BusID, addr Address) (*linuxBus, error) {
	b, err := l.lockedBus(bus)
	if err != nil {
		return nil, err
	}
	if b.addrSet && b.addr == addr {
		return b, nil
	}
	if err := unix.IoctlSetInt(b.fd, ioctlI2CSlave, int(addr&AddressMask)); err != nil {
		return nil, fmt.Errorf("select address 0x%02x: %w", uint8(addr), err)
	}
	b.addr = addr
	b.addrSet = true
	return b, nil
}

// lockedBus must be called with l.mu held
func (l *Linux) lockedBus(bus BusID) (*linuxBus, error) {
	if b, ok := l.open[bus]; ok {
		return b, nil
	}
	path, ok := l.paths[bus]
	if !ok {
		return nil, ErrBusNotConfigured
	}

	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	if err := unix.IoctlSetInt(fd, ioctlI2CRetries, 0); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("set retries on %s: %w", path, err)
	}
	if l.timeout > 0 {
		ticks := int((l.timeout + 10*time.Millisecond - 1) / (10 * time.Millisecond))
		if err := unix.IoctlSetInt(fd, ioctlI2CTimeout, ticks); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("set timeout on %s: %w", path, err)
		}
	}

	b := &linuxBus{fd: fd}
	l.open[bus] = b
	return b, nil
}
