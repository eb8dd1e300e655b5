package protocol

import (
	"errors"
	"fmt"
)

// Error kinds. Each one maps to a stable NACK string via Kind.
var (
	ErrTransport       = errors.New("TransportError")
	ErrFrameTooShort   = errors.New("FrameTooShort")
	ErrUnexpectedEcho  = errors.New("UnexpectedEcho")
	ErrCrcMismatch     = errors.New("CrcMismatch")
	ErrDeviceRejected  = errors.New("DeviceRejected")
	ErrInvalidArgument = errors.New("InvalidArgument")
	ErrParamsTooLarge  = errors.New("ParamsTooLarge")
	ErrReplyTooLarge   = errors.New("ReplyTooLarge")
)

// KindInternal is reported for failures outside the taxonomy.
const KindInternal = "Internal"

var kinds = []error{
	ErrTransport,
	ErrFrameTooShort,
	ErrUnexpectedEcho,
	ErrCrcMismatch,
	ErrDeviceRejected,
	ErrInvalidArgument,
	ErrParamsTooLarge,
	ErrReplyTooLarge,
}

// Kind returns the short, stable name of the error kind in err's chain.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k.Error()
		}
	}
	return KindInternal
}

// TransportError wraps a physical bus failure (I/O or timeout).
// The driver error is kept unchanged and reachable via errors.Unwrap.
type TransportError struct {
	Op  string // "write" or "read"
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("bus %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// DeviceError is a response frame carrying the error flag: the device
// understood the request and declined it.
type DeviceError struct {
	Cmd  byte
	Code byte
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device rejected command 0x%02x: code 0x%02x", e.Cmd, e.Code)
}

func (e *DeviceError) Is(target error) bool { return target == ErrDeviceRejected }
