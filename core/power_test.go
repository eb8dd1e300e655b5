package core

import (
	"errors"
	"sync"
	"testing"
	"time"

	"otfctl/device"
)

type fakePower struct {
	mode    device.PowerMode
	readErr error
	writes  []device.PowerMode
}

func (f *fakePower) PowerMode() (device.PowerMode, error) {
	return f.mode, f.readErr
}

func (f *fakePower) SetPowerMode(m device.PowerMode) error {
	f.writes = append(f.writes, m)
	f.mode = m
	return nil
}

func TestEnsurePowerOn(t *testing.T) {
	testCases := []struct {
		name       string
		mode       device.PowerMode
		wantWrites int
		wantSleeps int
	}{
		{name: "low", mode: device.PowerLow, wantWrites: 1, wantSleeps: 1},
		{name: "normal", mode: device.PowerNormal, wantWrites: 0, wantSleeps: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := &fakePower{mode: tc.mode}
			var sleeps []time.Duration

			err := ensurePowerOn(f, DefaultStabilize, func(d time.Duration) { sleeps = append(sleeps, d) })
			if err != nil {
				t.Fatalf("ensurePowerOn: %v", err)
			}
			if len(f.writes) != tc.wantWrites {
				t.Errorf("writes = %v, want %d", f.writes, tc.wantWrites)
			}
			if len(sleeps) != tc.wantSleeps {
				t.Errorf("sleeps = %v, want %d", sleeps, tc.wantSleeps)
			}
			if tc.wantSleeps > 0 && sleeps[0] != DefaultStabilize {
				t.Errorf("slept %v, want %v", sleeps[0], DefaultStabilize)
			}
			if f.mode != device.PowerNormal {
				t.Errorf("mode = %v, want Normal", f.mode)
			}
		})
	}
}

func TestEnsurePowerOnReadError(t *testing.T) {
	cause := errors.New("bus down")
	f := &fakePower{readErr: cause}

	err := ensurePowerOn(f, DefaultStabilize, func(time.Duration) { t.Error("unexpected sleep") })
	if !errors.Is(err, cause) {
		t.Errorf("expected %v, got %v", cause, err)
	}
	if len(f.writes) != 0 {
		t.Errorf("wrote %v after failed read", f.writes)
	}
}

func TestEnsurePowerOnAlreadyNormalOnBus(t *testing.T) {
	rig := newTestRig(t)
	rig.powerOn(handleC)
	rig.bus.ClearRequests()

	if err := rig.handlers.EnsurePowerOn(0); err != nil {
		t.Fatalf("EnsurePowerOn: %v", err)
	}
	reqs := rig.bus.Requests()
	if len(reqs) != 1 || reqs[0].Cmd != device.CmdPowerMode || len(reqs[0].Params) != 0 {
		t.Errorf("expected a single power mode read, got %+v", reqs)
	}
	if len(rig.sleeps) != 0 {
		t.Errorf("unexpected stabilization wait %v", rig.sleeps)
	}
}

func TestStabilizeWaitReleasesBusLock(t *testing.T) {
	rig := newTestRig(t)
	lock := rig.reg.BusLock().(*sync.Mutex)

	waits := 0
	rig.handlers.sleep = func(time.Duration) {
		waits++
		if !lock.TryLock() {
			t.Error("bus lock held during the stabilization wait")
			return
		}
		lock.Unlock()
	}

	if got := rig.exec(t, "set-wl:C:1555.0"); got != ":ACK\n" {
		t.Fatalf("set-wl: got %q", got)
	}
	if waits != 1 {
		t.Errorf("waits = %d, want 1", waits)
	}
}
