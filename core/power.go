package core

import (
	"time"

	"otfctl/device"
)

// DefaultStabilize is how long a filter needs after leaving low power.
const DefaultStabilize = 100 * time.Millisecond

// PowerController is the part of the filter the power helper needs.
type PowerController interface {
	PowerMode() (device.PowerMode, error)
	SetPowerMode(m device.PowerMode) error
}

// ensurePowerOn wakes a filter that is in low power and waits for it to
// stabilize. A filter already in Normal mode sees only the mode read. The
// wait happens after the exchange released the bus lock.
func ensurePowerOn(f PowerController, stabilize time.Duration, sleep func(time.Duration)) error {
	mode, err := f.PowerMode()
	if err != nil {
		return err
	}
	if mode != device.PowerLow {
		return nil
	}
	if err := f.SetPowerMode(device.PowerNormal); err != nil {
		return err
	}
	if stabilize > 0 {
		sleep(stabilize)
	}
	return nil
}
