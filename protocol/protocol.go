// Package protocol implements the binary filter bus protocol: CRC-8
// protected request/response frames and the transport session that
// exchanges them with one device.
package protocol

import "otfctl/bus"

// Protocol constants
const (
	FrameMax     = 32 // Maximum frame size accepted by the bus transport
	FrameHeader  = 2  // Command code + length byte
	FrameTrailer = 1  // CRC
	FrameMin     = FrameHeader + FrameTrailer

	// ParamsMax is the largest parameter block that fits in one request.
	ParamsMax = FrameMax - FrameMin

	// ErrorFlag is OR'd into the echoed command code of an error response.
	ErrorFlag = 0x80

	dirWrite = 0x00
	dirRead  = 0x01
)

// ResponseKind tells data responses from device-reported errors.
type ResponseKind uint8

const (
	KindData ResponseKind = iota
	KindDeviceError
)

// Response is a decoded, CRC-verified response frame.
type Response struct {
	Kind      ResponseKind
	Payload   []byte // data form only
	ErrorCode byte   // error form only
}

// writeAddr is the bus address-and-direction byte of a write transfer.
func writeAddr(addr bus.Address) byte {
	return byte(addr&bus.AddressMask)<<1 | dirWrite
}

// readAddr is the bus address-and-direction byte of a read transfer.
func readAddr(addr bus.Address) byte {
	return byte(addr&bus.AddressMask)<<1 | dirRead
}
