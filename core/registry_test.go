package core

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"otfctl/protocol"
)

func TestRegistryLookup(t *testing.T) {
	rig := newTestRig(t)

	testCases := []struct {
		band string
		id   int
		err  error
	}{
		{"C", 0, nil},
		{"c", 0, nil},
		{"L", 1, nil},
		{" l ", 1, nil},
		{"S", 0, protocol.ErrInvalidArgument},
		{"", 0, protocol.ErrInvalidArgument},
		{"CL", 0, protocol.ErrInvalidArgument},
	}

	for _, tc := range testCases {
		id, err := rig.reg.Lookup(tc.band)
		if !errors.Is(err, tc.err) {
			t.Errorf("Lookup(%q) error = %v, want %v", tc.band, err, tc.err)
			continue
		}
		if err == nil && id != tc.id {
			t.Errorf("Lookup(%q) = %d, want %d", tc.band, id, tc.id)
		}
	}
}

func TestRegistryChannels(t *testing.T) {
	rig := newTestRig(t)

	if rig.reg.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", rig.reg.Len())
	}
	for i, want := range []struct {
		label  string
		handle string
	}{{"C", "i2c0@0x20"}, {"L", "i2c0@0x21"}} {
		ch := rig.reg.Channel(i)
		if ch.ID != i || ch.Label != want.label || ch.Filter.Handle().String() != want.handle {
			t.Errorf("channel %d = {%d %s %s}", i, ch.ID, ch.Label, ch.Filter.Handle())
		}
	}
}

func TestReplaceSweep(t *testing.T) {
	rig := newTestRig(t)
	rig.powerOn(handleC)

	params := SweepParams{Channel: 0, Min: 1530, Max: 1560, Step: 0.5, Period: time.Millisecond}
	first, _ := NewSweep(rig.reg.Channel(0).Filter, "C", params)
	second, _ := NewSweep(rig.reg.Channel(0).Filter, "C", params)

	rig.reg.ReplaceSweep(0, first)
	waitSteps(t, first, 1)

	rig.reg.ReplaceSweep(0, second)
	select {
	case <-first.Done():
	default:
		t.Fatal("previous sweep not stopped")
	}
	if rig.reg.ActiveSweep(0) != second {
		t.Errorf("active sweep not replaced")
	}
	waitSteps(t, second, 1)

	rig.reg.StopAll()
	if rig.reg.ActiveSweep(0) != nil {
		t.Errorf("StopAll left a sweep")
	}
	select {
	case <-second.Done():
	default:
		t.Fatal("StopAll did not wait for the sweep")
	}
}

// Two sweeps and a command stream share one bus. Every exchange must read
// back its own response before the next request goes out.
func TestBusExchangesNeverInterleave(t *testing.T) {
	rig := newTestRig(t)

	if got := rig.exec(t, "sweep:C:1530:1560:0.5:1"); got != ":ACK\n" {
		t.Fatalf("sweep C: %q", got)
	}
	if got := rig.exec(t, "sweep:L:1570:1605:0.5:1"); got != ":ACK\n" {
		t.Fatalf("sweep L: %q", got)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, band := range []string{"C", "L"} {
		wg.Add(1)
		go func(band string) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				reply := rig.disp.Execute("get-temp?" + band)
				if reply != ":ACK: 25\n" {
					errs <- fmt.Errorf("get-temp?%s: %q", band, reply)
					return
				}
			}
		}(band)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	waitSteps(t, rig.reg.ActiveSweep(0), 5)
	waitSteps(t, rig.reg.ActiveSweep(1), 5)
	rig.reg.StopAll()

	if n := rig.bus.Interleaved(); n != 0 {
		t.Errorf("%d requests interleaved with a pending response", n)
	}
}

// A sweep waiting out a long period must leave the bus free for commands.
func TestSweepPeriodDoesNotHoldBus(t *testing.T) {
	rig := newTestRig(t)

	if got := rig.exec(t, "sweep:C:1530:1560:0.5:2000"); got != ":ACK\n" {
		t.Fatalf("sweep: %q", got)
	}
	sw := rig.reg.ActiveSweep(0)
	if sw == nil {
		t.Fatal("no sweep installed")
	}
	waitSteps(t, sw, 1)

	start := time.Now()
	if got := rig.exec(t, "get-temp?C"); got != ":ACK: 25\n" {
		t.Fatalf("get-temp?C: %q", got)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("get-temp took %v while the sweep was between steps", elapsed)
	}
	if sw.Steps() != 1 {
		t.Errorf("sweep issued %d writes inside one period", sw.Steps())
	}
}
