// Package device exposes the operations of one tunable optical filter as
// plain Go calls, each backed by a single bus exchange.
package device

import (
	"encoding/binary"
	"fmt"
	"strings"

	"otfctl/bus"
	"otfctl/protocol"
)

// Command codes understood by the filter firmware.
const (
	CmdIdentify       = 0x01
	CmdReset          = 0x02
	CmdPowerMode      = 0x03
	CmdTemperature    = 0x08
	CmdBusAddress     = 0x20
	CmdSetMirror      = 0x50
	CmdMirrorPosition = 0x51
	CmdWavelength     = 0x55
	CmdWavelengthMin  = 0x56
	CmdWavelengthMax  = 0x57
)

// FactoryAddress is the bus address a filter ships with.
const FactoryAddress bus.Address = 0x7F

// Identity field capacities. Longer fields are truncated.
const (
	ModelMax    = 16
	SerialMax   = 16
	FirmwareMax = 8

	identityDelimiter = "|"
	identityReplyMax  = protocol.ParamsMax
)

// PowerMode is the device power state.
type PowerMode uint8

const (
	PowerLow    PowerMode = 0
	PowerNormal PowerMode = 1
)

func (m PowerMode) String() string {
	switch m {
	case PowerLow:
		return "Low"
	case PowerNormal:
		return "Normal"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(m))
	}
}

// Identity is what the device reports about itself.
type Identity struct {
	Model    string
	Serial   string
	Firmware string
}

// Position holds the four mirror actuator set points.
type Position struct {
	XNeg, XPos, YNeg, YPos uint16
}

// Bounds is the tunable wavelength range in nm.
type Bounds struct {
	Min, Max float32
}

// Exchanger is the transport the filter talks through.
type Exchanger interface {
	Exchange(h bus.Handle, cmd byte, params []byte, maxReply int) ([]byte, error)
	Send(h bus.Handle, cmd byte, params []byte) error
}

// Filter is one device on the bus.
type Filter struct {
	handle bus.Handle
	ex     Exchanger
}

// New returns a filter reached through ex at handle h.
func New(ex Exchanger, h bus.Handle) *Filter {
	return &Filter{handle: h, ex: ex}
}

// Handle returns the device handle.
func (f *Filter) Handle() bus.Handle {
	return f.handle
}

// Identify reads model, serial number and firmware version.
func (f *Filter) Identify() (Identity, error) {
	payload, err := f.ex.Exchange(f.handle, CmdIdentify, nil, identityReplyMax)
	if err != nil {
		return Identity{}, err
	}

	fields := strings.SplitN(string(payload), identityDelimiter, 3)
	for len(fields) < 3 {
		fields = append(fields, "")
	}
	return Identity{
		Model:    truncate(fields[0], ModelMax),
		Serial:   truncate(fields[1], SerialMax),
		Firmware: truncate(fields[2], FirmwareMax),
	}, nil
}

// Reset restarts the device firmware.
func (f *Filter) Reset() error {
	_, err := f.ex.Exchange(f.handle, CmdReset, nil, 0)
	return err
}

// PowerMode reads the current power mode.
func (f *Filter) PowerMode() (PowerMode, error) {
	payload, err := f.ex.Exchange(f.handle, CmdPowerMode, nil, 1)
	if err != nil {
		return 0, err
	}
	if len(payload) < 1 {
		return 0, fmt.Errorf("power mode: %w", protocol.ErrFrameTooShort)
	}
	return PowerMode(payload[0]), nil
}

// SetPowerMode writes the power mode. The reply payload is ignored.
func (f *Filter) SetPowerMode(m PowerMode) error {
	_, err := f.ex.Exchange(f.handle, CmdPowerMode, []byte{byte(m)}, 1)
	return err
}

// Temperature reads the device temperature in degrees Celsius.
func (f *Filter) Temperature() (int8, error) {
	payload, err := f.ex.Exchange(f.handle, CmdTemperature, nil, 1)
	if err != nil {
		return 0, err
	}
	if len(payload) < 1 {
		return 0, fmt.Errorf("temperature: %w", protocol.ErrFrameTooShort)
	}
	return int8(payload[0]), nil
}

// MirrorPosition reads the four mirror set points.
func (f *Filter) MirrorPosition() (Position, error) {
	payload, err := f.ex.Exchange(f.handle, CmdMirrorPosition, nil, 8)
	if err != nil {
		return Position{}, err
	}
	if len(payload) < 8 {
		return Position{}, fmt.Errorf("mirror position: %w", protocol.ErrFrameTooShort)
	}
	return Position{
		XNeg: binary.BigEndian.Uint16(payload[0:2]),
		XPos: binary.BigEndian.Uint16(payload[2:4]),
		YNeg: binary.BigEndian.Uint16(payload[4:6]),
		YPos: binary.BigEndian.Uint16(payload[6:8]),
	}, nil
}

// SetMirrorPosition writes the four mirror set points.
func (f *Filter) SetMirrorPosition(p Position) error {
	var params [8]byte
	binary.BigEndian.PutUint16(params[0:2], p.XNeg)
	binary.BigEndian.PutUint16(params[2:4], p.XPos)
	binary.BigEndian.PutUint16(params[4:6], p.YNeg)
	binary.BigEndian.PutUint16(params[6:8], p.YPos)
	_, err := f.ex.Exchange(f.handle, CmdSetMirror, params[:], 0)
	return err
}

// Wavelength reads the current center wavelength in nm.
func (f *Filter) Wavelength() (float32, error) {
	return f.readFloat(CmdWavelength)
}

// SetWavelength tunes the filter to nm.
func (f *Filter) SetWavelength(nm float32) error {
	b := protocol.Float32Bytes(nm)
	_, err := f.ex.Exchange(f.handle, CmdWavelength, b[:], 4)
	return err
}

// WavelengthBounds reads the tunable range. The two limits are separate
// exchanges.
func (f *Filter) WavelengthBounds() (Bounds, error) {
	lo, err := f.readFloat(CmdWavelengthMin)
	if err != nil {
		return Bounds{}, err
	}
	hi, err := f.readFloat(CmdWavelengthMax)
	if err != nil {
		return Bounds{}, err
	}
	return Bounds{Min: lo, Max: hi}, nil
}

// SetBusAddress asks the device to move to addr. Nothing is read back: a
// nil error only means the request went out, the device may not answer at
// the new address yet.
func (f *Filter) SetBusAddress(addr bus.Address) error {
	return f.ex.Send(f.handle, CmdBusAddress, []byte{byte(addr & bus.AddressMask)})
}

func (f *Filter) readFloat(cmd byte) (float32, error) {
	payload, err := f.ex.Exchange(f.handle, cmd, nil, 4)
	if err != nil {
		return 0, err
	}
	if len(payload) < 4 {
		return 0, fmt.Errorf("command 0x%02x: %w", cmd, protocol.ErrFrameTooShort)
	}
	return protocol.Float32FromBytes(payload), nil
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
