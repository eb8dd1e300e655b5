package protocol

import (
	"fmt"

	"otfctl/bus"
)

// EncodeRequest builds [cmd][paramLen][params...][crc]. The CRC covers the
// bus write address byte followed by every preceding frame byte.
func EncodeRequest(addr bus.Address, cmd byte, params []byte) ([]byte, error) {
	if len(params) > ParamsMax {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrParamsTooLarge, len(params), ParamsMax)
	}

	out := NewScratchOutput()
	EncodeFrame(out, writeAddr(addr), cmd, params)
	return out.Result(), nil
}

// EncodeFrame writes one frame to output. dirAddr is the address-and-direction
// byte the CRC is seeded with; it is not written itself.
func EncodeFrame(output OutputBuffer, dirAddr byte, cmd byte, payload []byte) {
	cursor := output.CurPosition()

	// Length placeholder, patched once the payload is written
	output.Output([]byte{cmd, 0})
	output.Output(payload)

	changed := len(output.DataSince(cursor))
	output.Update(cursor+1, uint8(changed-FrameHeader))

	crc := frameCRC(dirAddr, output.DataSince(cursor))
	output.Output([]byte{crc})
}

// DecodeResponse validates a raw response read back after issuing cmd to
// addr. Bytes after the CRC are ignored: reads are fixed length and the
// device pads short replies.
func DecodeResponse(addr bus.Address, cmd byte, raw []byte) (Response, error) {
	if len(raw) < FrameMin {
		return Response{}, fmt.Errorf("%w: got %d bytes", ErrFrameTooShort, len(raw))
	}

	switch raw[0] {
	case cmd | ErrorFlag:
		if crc := frameCRC(readAddr(addr), raw[:2]); crc != raw[2] {
			return Response{}, fmt.Errorf("%w: expected 0x%02x, got 0x%02x", ErrCrcMismatch, crc, raw[2])
		}
		return Response{Kind: KindDeviceError, ErrorCode: raw[1]}, nil

	case cmd:
		n := int(raw[1])
		end := FrameHeader + n
		if end+FrameTrailer > len(raw) {
			return Response{}, fmt.Errorf("%w: declared %d payload bytes in a %d byte frame", ErrReplyTooLarge, n, len(raw))
		}
		if crc := frameCRC(readAddr(addr), raw[:end]); crc != raw[end] {
			return Response{}, fmt.Errorf("%w: expected 0x%02x, got 0x%02x", ErrCrcMismatch, crc, raw[end])
		}
		payload := make([]byte, n)
		copy(payload, raw[FrameHeader:end])
		return Response{Kind: KindData, Payload: payload}, nil

	default:
		return Response{}, fmt.Errorf("%w: 0x%02x for command 0x%02x", ErrUnexpectedEcho, raw[0], cmd)
	}
}

// EncodeResponse builds a data-form response frame as a device would send it.
func EncodeResponse(addr bus.Address, cmd byte, payload []byte) ([]byte, error) {
	if len(payload) > ParamsMax {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrReplyTooLarge, len(payload), ParamsMax)
	}
	out := NewScratchOutput()
	EncodeFrame(out, readAddr(addr), cmd, payload)
	return out.Result(), nil
}

// EncodeErrorResponse builds an error-form response frame.
func EncodeErrorResponse(addr bus.Address, cmd byte, code byte) []byte {
	frame := []byte{cmd | ErrorFlag, code, 0}
	frame[2] = frameCRC(readAddr(addr), frame[:2])
	return frame
}

// DecodeRequest parses a request frame written to addr. It is the device
// side of EncodeRequest.
func DecodeRequest(addr bus.Address, raw []byte) (cmd byte, params []byte, err error) {
	if len(raw) < FrameMin {
		return 0, nil, fmt.Errorf("%w: got %d bytes", ErrFrameTooShort, len(raw))
	}
	n := int(raw[1])
	end := FrameHeader + n
	if end+FrameTrailer > len(raw) {
		return 0, nil, fmt.Errorf("%w: declared %d parameter bytes in a %d byte frame", ErrParamsTooLarge, n, len(raw))
	}
	if crc := frameCRC(writeAddr(addr), raw[:end]); crc != raw[end] {
		return 0, nil, fmt.Errorf("%w: expected 0x%02x, got 0x%02x", ErrCrcMismatch, crc, raw[end])
	}
	params = make([]byte, n)
	copy(params, raw[FrameHeader:end])
	return raw[0], params, nil
}
