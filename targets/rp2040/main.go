//go:build rp2040 || rp2350

package main

import (
	"context"
	"fmt"
	"machine"
	"time"

	"tinygo.org/x/drivers"

	"otfctl/bus"
	"otfctl/config"
	"otfctl/core"
	"otfctl/monitoring"
)

func main() {
	// Clear any watchdog state left over from a previous boot
	if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0}); err != nil {
		return
	}

	// I2C0 default pins: SDA=GP4, SCL=GP5
	if err := machine.I2C0.Configure(machine.I2CConfig{Frequency: config.DefaultFrequencyHz}); err != nil {
		println("i2c0 configure failed:", err.Error())
		return
	}

	monitoring.SetLogger(func(format string, args ...interface{}) {
		println(fmt.Sprintf(format, args...))
	})

	cfg := config.Default()
	driver := bus.NewTxDriver(map[bus.BusID]drivers.I2C{0: machine.I2C0})

	ctrl, err := core.NewFromConfig(cfg, driver)
	if err != nil {
		println("setup failed:", err.Error())
		return
	}
	defer ctrl.Close()

	port := &usbPort{serial: machine.Serial}
	for {
		// The USB link comes and goes with the host; serve it again each time
		if err := ctrl.Run(context.Background(), port); err != nil {
			println("command link:", err.Error())
		}
		time.Sleep(100 * time.Millisecond)
	}
}
