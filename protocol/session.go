package protocol

import (
	"fmt"
	"sync"
	"time"

	"otfctl/bus"
)

// DefaultSettle gives the device time to process a request before the
// response is read back.
const DefaultSettle = 150 * time.Millisecond

// Session performs request/response exchanges with devices on a shared bus.
// Every exchange holds lock from the write until the read completes.
type Session struct {
	driver bus.Driver
	lock   sync.Locker
	settle time.Duration
	sleep  func(time.Duration)
}

// NewSession creates a session over driver. lock serializes all exchanges
// on the physical bus; it must be shared by every session using the same
// driver.
func NewSession(driver bus.Driver, lock sync.Locker, settle time.Duration) *Session {
	if lock == nil {
		lock = &sync.Mutex{}
	}
	return &Session{
		driver: driver,
		lock:   lock,
		settle: settle,
		sleep:  time.Sleep,
	}
}

// Exchange sends cmd with params to h and returns the response payload.
// maxReply bounds the expected payload; the physical read is capped at
// FrameMax. A device error frame is returned as *DeviceError.
func (s *Session) Exchange(h bus.Handle, cmd byte, params []byte, maxReply int) ([]byte, error) {
	req, err := EncodeRequest(h.Address, cmd, params)
	if err != nil {
		return nil, err
	}

	readLen := FrameMin + maxReply
	if readLen > FrameMax {
		readLen = FrameMax
	}

	raw, err := s.transfer(h, req, readLen)
	if err != nil {
		return nil, err
	}

	resp, err := DecodeResponse(h.Address, cmd, raw)
	if err != nil {
		return nil, fmt.Errorf("%s command 0x%02x: %w", h, cmd, err)
	}
	if resp.Kind == KindDeviceError {
		return nil, &DeviceError{Cmd: cmd, Code: resp.ErrorCode}
	}
	if len(resp.Payload) > maxReply {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrReplyTooLarge, len(resp.Payload), maxReply)
	}
	return resp.Payload, nil
}

// Send writes cmd with params to h without reading a reply. Success only
// means the bus accepted the write.
func (s *Session) Send(h bus.Handle, cmd byte, params []byte) error {
	req, err := EncodeRequest(h.Address, cmd, params)
	if err != nil {
		return err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.driver.Write(h.Bus, h.Address, req); err != nil {
		return &TransportError{Op: "write", Err: err}
	}
	return nil
}

func (s *Session) transfer(h bus.Handle, req []byte, readLen int) ([]byte, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.driver.Write(h.Bus, h.Address, req); err != nil {
		return nil, &TransportError{Op: "write", Err: err}
	}
	if s.settle > 0 {
		s.sleep(s.settle)
	}
	raw, err := s.driver.Read(h.Bus, h.Address, readLen)
	if err != nil {
		return nil, &TransportError{Op: "read", Err: err}
	}
	return raw, nil
}
