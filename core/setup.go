package core

import (
	"fmt"

	"otfctl/bus"
	"otfctl/config"
	"otfctl/monitoring"
)

// NewFromConfig configures every declared bus on driver and builds a
// controller for the configured channels.
func NewFromConfig(cfg *config.Config, driver bus.Driver) (*Controller, error) {
	for _, b := range cfg.Buses {
		if err := driver.ConfigureBus(bus.BusID(b.ID), b.FrequencyHz); err != nil {
			return nil, fmt.Errorf("configure bus %d: %w", b.ID, err)
		}
	}

	specs := make([]ChannelSpec, 0, len(cfg.Channels))
	for _, ch := range cfg.Channels {
		h := bus.NewHandle(bus.BusID(ch.Bus), bus.Address(ch.Address))
		specs = append(specs, ChannelSpec{Label: ch.Label, Handle: h})
		monitoring.Logf("channel %s on %s", ch.Label, h)
	}

	reg := NewRegistry(driver, cfg.Timing.Settle(), specs)
	h := NewHandlers(reg, cfg.Timing.Stabilize())
	return NewController(reg, h, Options{
		LineMax:    cfg.Intake.LineMax,
		QueueDepth: cfg.Intake.QueueDepth,
	}), nil
}

// Registry returns the channel registry.
func (c *Controller) Registry() *Registry {
	return c.reg
}
