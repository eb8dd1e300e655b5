package core

import (
	"context"

	"otfctl/monitoring"
)

// Intake framing and defaults.
const (
	StartDelimiter    = ':'
	DefaultLineMax    = 128
	DefaultQueueDepth = 1
)

// IntakeState is the framing state of the command stream.
type IntakeState uint8

const (
	IntakeIdle       IntakeState = iota // waiting for ':'
	IntakeCollecting                    // accumulating a command line
	IntakeDiscarding                    // dropping an over-long line up to its terminator
)

func (s IntakeState) String() string {
	switch s {
	case IntakeCollecting:
		return "collecting"
	case IntakeDiscarding:
		return "discarding"
	default:
		return "idle"
	}
}

// Intake frames a raw byte stream into command lines. Completed lines go
// to a bounded queue; when the queue is full Feed blocks, so a line is never
// overwritten before the dispatcher took it.
type Intake struct {
	state     IntakeState
	buf       []byte
	lineMax   int
	lines     chan string
	overflows int
}

// NewIntake creates an intake holding lines of up to lineMax characters and
// queueing up to queueDepth completed lines.
func NewIntake(lineMax, queueDepth int) *Intake {
	if lineMax <= 0 {
		lineMax = DefaultLineMax
	}
	if queueDepth <= 0 {
		queueDepth = DefaultQueueDepth
	}
	return &Intake{
		buf:     make([]byte, 0, lineMax),
		lineMax: lineMax,
		lines:   make(chan string, queueDepth),
	}
}

// Lines is the queue of completed command lines, without the leading ':'
// or the terminator.
func (in *Intake) Lines() <-chan string {
	return in.lines
}

// State returns the current framing state.
func (in *Intake) State() IntakeState {
	return in.state
}

// Overflows counts lines discarded for exceeding the line buffer.
func (in *Intake) Overflows() int {
	return in.overflows
}

// Feed runs data through the state machine. It returns ctx.Err() if ctx is
// cancelled while waiting for room in the queue. Feed must be called from
// a single goroutine.
func (in *Intake) Feed(ctx context.Context, data []byte) error {
	for _, b := range data {
		if err := in.step(ctx, b); err != nil {
			return err
		}
	}
	return nil
}

func (in *Intake) step(ctx context.Context, b byte) error {
	switch in.state {
	case IntakeIdle:
		if b == StartDelimiter {
			in.buf = in.buf[:0]
			in.state = IntakeCollecting
		}
		return nil

	case IntakeCollecting:
		if b == '\n' || b == '\r' {
			in.state = IntakeIdle
			if len(in.buf) == 0 {
				return nil
			}
			line := string(in.buf)
			in.buf = in.buf[:0]
			select {
			case in.lines <- line:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if len(in.buf) >= in.lineMax {
			// No command id yet, so nothing to NACK.
			in.overflows++
			monitoring.Logf("intake: command line longer than %d bytes discarded", in.lineMax)
			in.buf = in.buf[:0]
			in.state = IntakeDiscarding
			return nil
		}
		in.buf = append(in.buf, b)

	case IntakeDiscarding:
		if b == '\n' || b == '\r' {
			in.state = IntakeIdle
		}
	}
	return nil
}
