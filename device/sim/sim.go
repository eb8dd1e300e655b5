// Package sim emulates filters on an I2C bus. It implements bus.Driver so
// the whole stack can run without hardware, in tests or with -simulate.
package sim

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"otfctl/bus"
	"otfctl/device"
	"otfctl/protocol"
)

// Error codes reported in error-form responses.
const (
	ErrCodeUnknownCommand = 0x01
	ErrCodeBadParam       = 0x02
	ErrCodeCRC            = 0x03
	ErrCodeAsleep         = 0x04
)

// ErrNoDevice is returned for transfers to an address nobody answers.
var ErrNoDevice = errors.New("no device at address")

// Device is the state of one emulated filter.
type Device struct {
	Identity   string // "model|serial|firmware" as sent on the wire
	Mode       device.PowerMode
	Temp       int8
	Position   device.Position
	Wavelength float32
	Min, Max   float32

	// RejectAsleep makes wavelength writes fail while in PowerLow.
	RejectAsleep bool
}

// NewDevice returns a powered-down C-band filter.
func NewDevice() *Device {
	return &Device{
		Identity:     "OTF-320|SN000001|1.4.2",
		Mode:         device.PowerLow,
		Temp:         25,
		Position:     device.Position{XNeg: 0x8000, XPos: 0x8000, YNeg: 0x8000, YPos: 0x8000},
		Wavelength:   1550,
		Min:          1527.608,
		Max:          1565.503,
		RejectAsleep: true,
	}
}

// Request is one decoded request seen on the bus.
type Request struct {
	Handle bus.Handle
	Cmd    byte
	Params []byte
}

// Bus is an emulated I2C bus segment.
type Bus struct {
	mu      sync.Mutex
	devices map[bus.Handle]*Device
	pending map[bus.Handle][]byte
	log     []Request

	// open is the handle whose request is waiting to be read back
	open        *bus.Handle
	interleaved int

	writeErr error
	readErr  error
	corrupt  bool
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{
		devices: make(map[bus.Handle]*Device),
		pending: make(map[bus.Handle][]byte),
	}
}

// Attach places d at h, replacing any device there.
func (b *Bus) Attach(h bus.Handle, d *Device) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.devices[h] = d
}

// Device returns a snapshot of the device at h.
func (b *Bus) Device(h bus.Handle) (Device, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, ok := b.devices[h]
	if !ok {
		return Device{}, false
	}
	return *d, true
}

// Update runs fn on the live device at h.
func (b *Bus) Update(h bus.Handle, fn func(d *Device)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if d, ok := b.devices[h]; ok {
		fn(d)
	}
}

// Requests returns every request decoded so far.
func (b *Bus) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Request, len(b.log))
	copy(out, b.log)
	return out
}

// ClearRequests forgets the request log.
func (b *Bus) ClearRequests() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.log = nil
}

// Interleaved counts writes that arrived while another request was still
// waiting to be read back.
func (b *Bus) Interleaved() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.interleaved
}

// FailNextWrite makes the next Write return err.
func (b *Bus) FailNextWrite(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writeErr = err
}

// FailNextRead makes the next Read return err.
func (b *Bus) FailNextRead(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.readErr = err
}

// CorruptNextReply flips the CRC of the next response.
func (b *Bus) CorruptNextReply() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.corrupt = true
}

// ConfigureBus accepts any bus.
func (b *Bus) ConfigureBus(id bus.BusID, frequencyHz uint32) error {
	return nil
}

// Write delivers a request frame to the device at addr.
func (b *Bus) Write(id bus.BusID, addr bus.Address, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.writeErr; err != nil {
		b.writeErr = nil
		return err
	}

	h := bus.NewHandle(id, addr)
	d, ok := b.devices[h]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoDevice, h)
	}

	if b.open != nil {
		b.interleaved++
	}
	if len(data) == 0 {
		return fmt.Errorf("empty write to %s", h)
	}

	cmd, params, err := protocol.DecodeRequest(h.Address, data)
	if err != nil {
		b.log = append(b.log, Request{Handle: h, Cmd: data[0]})
		b.reply(h, protocol.EncodeErrorResponse(h.Address, data[0], ErrCodeCRC))
		return nil
	}
	b.log = append(b.log, Request{Handle: h, Cmd: cmd, Params: params})

	if cmd == device.CmdBusAddress {
		// Fire-and-forget: the device moves and answers nothing.
		if len(params) == 1 {
			next := bus.NewHandle(id, bus.Address(params[0]))
			delete(b.devices, h)
			b.devices[next] = d
		}
		return nil
	}

	payload, code := d.execute(cmd, params)
	if code != 0 {
		b.reply(h, protocol.EncodeErrorResponse(h.Address, cmd, code))
		return nil
	}
	frame, err := protocol.EncodeResponse(h.Address, cmd, payload)
	if err != nil {
		return err
	}
	b.reply(h, frame)
	return nil
}

// Read returns the pending response for addr, padded or cut to readLen.
func (b *Bus) Read(id bus.BusID, addr bus.Address, readLen int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.open = nil

	if err := b.readErr; err != nil {
		b.readErr = nil
		return nil, err
	}

	h := bus.NewHandle(id, addr)
	if _, ok := b.devices[h]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoDevice, h)
	}

	out := make([]byte, readLen)
	copy(out, b.pending[h])
	delete(b.pending, h)
	return out, nil
}

// reply must be called with b.mu held
func (b *Bus) reply(h bus.Handle, frame []byte) {
	if b.corrupt {
		b.corrupt = false
		frame[len(frame)-1] ^= 0xFF
	}
	b.pending[h] = frame
	open := h
	b.open = &open
}

// execute returns the reply payload or a non-zero error code
func (d *Device) execute(cmd byte, params []byte) ([]byte, byte) {
	switch cmd {
	case device.CmdIdentify:
		return []byte(d.Identity), 0

	case device.CmdReset:
		d.Wavelength = d.Min
		return nil, 0

	case device.CmdPowerMode:
		if len(params) == 0 {
			return []byte{byte(d.Mode)}, 0
		}
		if params[0] > byte(device.PowerNormal) {
			return nil, ErrCodeBadParam
		}
		d.Mode = device.PowerMode(params[0])
		return []byte{params[0]}, 0

	case device.CmdTemperature:
		return []byte{byte(d.Temp)}, 0

	case device.CmdMirrorPosition:
		out := make([]byte, 8)
		binary.BigEndian.PutUint16(out[0:2], d.Position.XNeg)
		binary.BigEndian.PutUint16(out[2:4], d.Position.XPos)
		binary.BigEndian.PutUint16(out[4:6], d.Position.YNeg)
		binary.BigEndian.PutUint16(out[6:8], d.Position.YPos)
		return out, 0

	case device.CmdSetMirror:
		if len(params) != 8 {
			return nil, ErrCodeBadParam
		}
		d.Position = device.Position{
			XNeg: binary.BigEndian.Uint16(params[0:2]),
			XPos: binary.BigEndian.Uint16(params[2:4]),
			YNeg: binary.BigEndian.Uint16(params[4:6]),
			YPos: binary.BigEndian.Uint16(params[6:8]),
		}
		return nil, 0

	case device.CmdWavelength:
		if len(params) == 0 {
			b := protocol.Float32Bytes(d.Wavelength)
			return b[:], 0
		}
		if len(params) != 4 {
			return nil, ErrCodeBadParam
		}
		if d.RejectAsleep && d.Mode == device.PowerLow {
			return nil, ErrCodeAsleep
		}
		wl := protocol.Float32FromBytes(params)
		if wl < d.Min || wl > d.Max {
			return nil, ErrCodeBadParam
		}
		d.Wavelength = wl
		return nil, 0

	case device.CmdWavelengthMin:
		b := protocol.Float32Bytes(d.Min)
		return b[:], 0

	case device.CmdWavelengthMax:
		b := protocol.Float32Bytes(d.Max)
		return b[:], 0

	default:
		return nil, ErrCodeUnknownCommand
	}
}
