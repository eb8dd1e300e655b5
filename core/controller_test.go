package core

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"otfctl/bus"
	"otfctl/config"
	"otfctl/device/sim"
)

type stream struct {
	io.Reader
	io.Writer
}

func TestControllerRun(t *testing.T) {
	rig := newTestRig(t)
	ctrl := NewController(rig.reg, rig.handlers, Options{})

	input := ":get-interval?C\n" +
		"garbage:bogus\n" +
		":sweep:L:1605:1570:0.5:1000\n" +
		":get-power\r"
	var out bytes.Buffer

	if err := ctrl.Run(context.Background(), stream{strings.NewReader(input), &out}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := ":ACK: (1527.608,1565.503)\n" +
		":NACK: unknown command\n" +
		":NACK: InvalidArgument\n" +
		":ACK: Canal C: Low | Canal L: Low\n"
	if out.String() != want {
		t.Errorf("replies:\n got %q\nwant %q", out.String(), want)
	}
	if rig.reg.ActiveSweep(1) != nil {
		t.Errorf("invalid sweep started")
	}
}

func TestControllerRunReadError(t *testing.T) {
	rig := newTestRig(t)
	ctrl := NewController(rig.reg, rig.handlers, Options{})

	cause := errors.New("port unplugged")
	r := io.MultiReader(strings.NewReader(":iden\n"), failingReader{cause})
	var out bytes.Buffer

	err := ctrl.Run(context.Background(), stream{r, &out})
	if !errors.Is(err, cause) {
		t.Errorf("expected %v, got %v", cause, err)
	}
	if !strings.HasPrefix(out.String(), ":ACK: Canal C: Modelo=OTF-320") {
		t.Errorf("queued command not answered: %q", out.String())
	}
}

type failingReader struct{ err error }

func (f failingReader) Read([]byte) (int, error) { return 0, f.err }

func TestControllerRunCancelled(t *testing.T) {
	rig := newTestRig(t)
	ctrl := NewController(rig.reg, rig.handlers, Options{})

	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ctrl.Run(ctx, stream{pr, io.Discard})
	}()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestControllerRunWaitsForPreviousReader(t *testing.T) {
	rig := newTestRig(t)
	ctrl := NewController(rig.reg, rig.handlers, Options{})

	// First link: the reader stays blocked in Read after cancellation
	pr, pw := io.Pipe()
	defer pw.Close()
	var stale bytes.Buffer
	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		first <- ctrl.Run(ctx, stream{pr, &stale})
	}()
	cancel()
	if err := <-first; !errors.Is(err, context.Canceled) {
		t.Fatalf("first Run: %v", err)
	}

	// Second link
	var out bytes.Buffer
	second := make(chan error, 1)
	go func() {
		second <- ctrl.Run(context.Background(), stream{strings.NewReader(":get-temp?C\n"), &out})
	}()
	select {
	case err := <-second:
		t.Fatalf("second Run returned while the old reader was still blocked: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	// Waking the old reader releases the second Run; what it read is dropped
	if _, err := pw.Write([]byte(":get-temp?L\n")); err != nil {
		t.Fatalf("pipe write: %v", err)
	}
	select {
	case err := <-second:
		if err != nil {
			t.Fatalf("second Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("second Run never started serving")
	}

	if out.String() != ":ACK: 25\n" {
		t.Errorf("second link replies = %q", out.String())
	}
	if stale.Len() != 0 {
		t.Errorf("cancelled link got replies %q", stale.String())
	}
}

func TestControllerCloseStopsSweeps(t *testing.T) {
	rig := newTestRig(t)
	ctrl := NewController(rig.reg, rig.handlers, Options{})

	if got := ctrl.Dispatcher().Execute("sweep:C:1530:1560:0.5:60000"); got != ":ACK\n" {
		t.Fatalf("sweep: %q", got)
	}
	sw := rig.reg.ActiveSweep(0)

	ctrl.Close()
	ctrl.Close()

	if rig.reg.ActiveSweep(0) != nil {
		t.Errorf("sweep still registered")
	}
	select {
	case <-sw.Done():
	default:
		t.Errorf("sweep goroutine still running")
	}
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.Default()
	zero := 0
	cfg.Timing.SettleMs = &zero
	b := sim.NewBus()
	for _, ch := range cfg.Channels {
		b.Attach(bus.NewHandle(bus.BusID(ch.Bus), bus.Address(ch.Address)), sim.NewDevice())
	}

	ctrl, err := NewFromConfig(cfg, b)
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	defer ctrl.Close()

	if ctrl.Registry().Len() != 2 {
		t.Fatalf("channels = %d, want 2", ctrl.Registry().Len())
	}
	if got := ctrl.Dispatcher().Execute("get-interval?L"); got != ":ACK: (1527.608,1565.503)\n" {
		t.Errorf("get-interval?L: %q", got)
	}
}

type unconfigurableBus struct{ *sim.Bus }

func (unconfigurableBus) ConfigureBus(bus.BusID, uint32) error {
	return errors.New("no such adapter")
}

func TestNewFromConfigBusError(t *testing.T) {
	if _, err := NewFromConfig(config.Default(), unconfigurableBus{sim.NewBus()}); err == nil {
		t.Error("expected bus configuration error")
	}
}
