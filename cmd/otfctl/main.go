//go:build linux

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"otfctl/bus"
	"otfctl/config"
	"otfctl/core"
	"otfctl/device/sim"
	"otfctl/host/serial"
	"otfctl/monitoring"
)

var (
	configPath = flag.String("config", "", "YAML configuration file (built-in defaults when empty)")
	device     = flag.String("device", "", "Serial device path, overrides the configuration")
	simulate   = flag.Bool("simulate", false, "Talk to emulated filters instead of I2C hardware")
)

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *device != "" {
		cfg.Serial.Device = *device
	}

	driver, closeBus := openBus(cfg)
	defer closeBus()

	ctrl, err := core.NewFromConfig(cfg, driver)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer ctrl.Close()

	port, err := serial.Open(serial.FromConfig(cfg.Serial))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer port.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	monitoring.Logf("listening on %s (%s), %d channels", cfg.Serial.Device, cfg.Serial.Driver, len(cfg.Channels))
	if err := ctrl.Run(ctx, port); err != nil && ctx.Err() == nil {
		monitoring.Logf("command link closed: %v", err)
	}
}

func loadConfig() (*config.Config, error) {
	if *configPath == "" {
		return config.Default(), nil
	}
	return config.Load(*configPath)
}

// openBus returns the bus driver and a function releasing it.
func openBus(cfg *config.Config) (bus.Driver, func()) {
	if *simulate {
		b := sim.NewBus()
		for _, ch := range cfg.Channels {
			d := sim.NewDevice()
			if ch.Label == "L" {
				d.Min, d.Max, d.Wavelength = 1570.0, 1605.0, 1590.0
			}
			b.Attach(bus.NewHandle(bus.BusID(ch.Bus), bus.Address(ch.Address)), d)
		}
		monitoring.Logf("simulating %d filters", len(cfg.Channels))
		return b, func() {}
	}

	paths := make(map[bus.BusID]string, len(cfg.Buses))
	timeout := 0
	for _, b := range cfg.Buses {
		paths[bus.BusID(b.ID)] = b.Device
		if b.TimeoutMs > timeout {
			timeout = b.TimeoutMs
		}
	}
	l := bus.NewLinux(paths, config.BusConfig{TimeoutMs: timeout}.Timeout())
	return l, func() {
		if err := l.Close(); err != nil {
			monitoring.Logf("close i2c: %v", err)
		}
	}
}
