package core

import (
	"context"
	"errors"
	"io"
	"sync"

	"otfctl/monitoring"
)

// Options tunes the command intake.
type Options struct {
	LineMax    int
	QueueDepth int
}

// Controller ties the intake, dispatcher and channel registry to one
// command stream. It owns the lifecycle of every background sweep.
type Controller struct {
	reg        *Registry
	handlers   *Handlers
	dispatcher *Dispatcher
	intake     *Intake

	writeMu sync.Mutex
	once    sync.Once

	// reader is closed when the read loop of the previous Run has exited
	reader chan struct{}
}

// NewController wires a controller over reg using the verb table of h.
func NewController(reg *Registry, h *Handlers, opts Options) *Controller {
	return &Controller{
		reg:        reg,
		handlers:   h,
		dispatcher: NewDispatcher(h.Table()),
		intake:     NewIntake(opts.LineMax, opts.QueueDepth),
	}
}

// Dispatcher returns the command dispatcher.
func (c *Controller) Dispatcher() *Dispatcher {
	return c.dispatcher
}

// Run reads commands from port and writes one reply line per command until
// ctx is cancelled or port reaches EOF. Lines already queued at EOF are
// still answered. Run must not be called concurrently. A later Run first
// waits until the reader of the previous one has returned from its blocked
// Read, so only one goroutine ever feeds the intake.
func (c *Controller) Run(ctx context.Context, port io.ReadWriter) error {
	if prev := c.reader; prev != nil {
		select {
		case <-prev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	c.reader = done
	readErr := make(chan error, 1)
	go func() {
		defer close(done)
		readErr <- c.readLoop(ctx, port)
	}()

	lines := c.intake.Lines()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-readErr:
			c.drain(port)
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err

		case line := <-lines:
			c.handle(port, line)
		}
	}
}

// Close stops every running sweep.
func (c *Controller) Close() {
	c.once.Do(c.reg.StopAll)
}

func (c *Controller) readLoop(ctx context.Context, r io.Reader) error {
	buf := make([]byte, 64)
	for {
		n, err := r.Read(buf)
		if ctx.Err() != nil {
			// Bytes read after cancellation belong to a link nobody serves
			return ctx.Err()
		}
		if n > 0 {
			if ferr := c.intake.Feed(ctx, buf[:n]); ferr != nil {
				return ferr
			}
		}
		if err != nil {
			return err
		}
	}
}

func (c *Controller) drain(w io.Writer) {
	for {
		select {
		case line := <-c.intake.Lines():
			c.handle(w, line)
		default:
			return
		}
	}
}

func (c *Controller) handle(w io.Writer, line string) {
	reply := c.dispatcher.Execute(line)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := io.WriteString(w, reply); err != nil {
		monitoring.Logf("reply to %q not sent: %v", line, err)
	}
}
