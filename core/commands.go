package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"otfctl/bus"
	"otfctl/device"
	"otfctl/protocol"
)

// Addresses a filter may be moved to. The top of the range includes the
// factory address.
const (
	AddressMin bus.Address = 0x08
	AddressMax bus.Address = device.FactoryAddress
)

// Handlers implements the command verbs over a channel registry.
type Handlers struct {
	reg       *Registry
	stabilize time.Duration
	sleep     func(time.Duration)
}

// NewHandlers creates the verb handlers. stabilize is the wait after waking
// a filter from low power.
func NewHandlers(reg *Registry, stabilize time.Duration) *Handlers {
	return &Handlers{reg: reg, stabilize: stabilize, sleep: time.Sleep}
}

// Table returns the static command table.
func (h *Handlers) Table() []Command {
	return []Command{
		{Verb: "iden", Handler: h.handleIden},
		{Verb: "get-interval", Handler: h.handleGetInterval},
		{Verb: "get-wl", Handler: h.handleGetWavelength},
		{Verb: "set-wl", Handler: h.handleSetWavelength},
		{Verb: "sweep", Handler: h.handleSweep},
		{Verb: "stop", Handler: h.handleStop},
		{Verb: "get-sweep", Handler: h.handleGetSweep},
		{Verb: "powerup", Handler: h.handlePowerUp},
		{Verb: "powerdown", Handler: h.handlePowerDown},
		{Verb: "get-power", Handler: h.handleGetPower},
		{Verb: "get-temp", Handler: h.handleGetTemp},
		{Verb: "get-pos", Handler: h.handleGetPosition},
		{Verb: "set-pos", Handler: h.handleSetPosition},
		{Verb: "reset", Handler: h.handleReset},
		{Verb: "set-addr", Handler: h.handleSetAddress},
	}
}

// EnsurePowerOn wakes channel id if it is in low power.
func (h *Handlers) EnsurePowerOn(id int) error {
	return ensurePowerOn(h.reg.Channel(id).Filter, h.stabilize, h.sleep)
}

// handleIden reads the identity of every channel. Per-channel failures
// are reported inline.
func (h *Handlers) handleIden(args string, out *strings.Builder) error {
	return h.eachChannel(out, func(ch *Channel) (string, error) {
		id, err := ch.Filter.Identify()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Modelo=%s, S/N=%s, FW=%s", id.Model, id.Serial, id.Firmware), nil
	})
}

func (h *Handlers) handleGetInterval(args string, out *strings.Builder) error {
	ch, err := h.channel(args)
	if err != nil {
		return err
	}
	b, err := ch.Filter.WavelengthBounds()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "(%s,%s)", formatNM(b.Min), formatNM(b.Max))
	return nil
}

// handleGetWavelength wakes the filter before reading; a filter in low
// power reports a stale value.
func (h *Handlers) handleGetWavelength(args string, out *strings.Builder) error {
	ch, err := h.channel(args)
	if err != nil {
		return err
	}
	if err := h.EnsurePowerOn(ch.ID); err != nil {
		return err
	}
	nm, err := ch.Filter.Wavelength()
	if err != nil {
		return err
	}
	out.WriteString(formatNM(nm))
	return nil
}

// handleSetWavelength tunes a channel, replacing any sweep on it.
// Format: set-wl:<band>:<nm>
func (h *Handlers) handleSetWavelength(args string, out *strings.Builder) error {
	fields, err := splitArgs(args, 2)
	if err != nil {
		return err
	}
	id, err := h.reg.Lookup(fields[0])
	if err != nil {
		return err
	}
	nm, err := parsePositive(fields[1])
	if err != nil {
		return err
	}

	if err := h.EnsurePowerOn(id); err != nil {
		return err
	}
	h.reg.ReplaceSweep(id, nil)
	return h.reg.Channel(id).Filter.SetWavelength(float32(nm))
}

// handleSweep starts a background sweep, replacing any sweep on the channel.
// Format: sweep:<band>:<min>:<max>:<step>:<period_ms>
func (h *Handlers) handleSweep(args string, out *strings.Builder) error {
	fields, err := splitArgs(args, 5)
	if err != nil {
		return err
	}
	id, err := h.reg.Lookup(fields[0])
	if err != nil {
		return err
	}

	var vals [3]float64
	for i := range vals {
		if vals[i], err = parsePositive(fields[i+1]); err != nil {
			return err
		}
	}
	periodMs, err := parseUint(fields[4], 32)
	if err != nil {
		return err
	}

	ch := h.reg.Channel(id)
	sw, err := NewSweep(ch.Filter, ch.Label, SweepParams{
		Channel: id,
		Min:     vals[0],
		Max:     vals[1],
		Step:    vals[2],
		Period:  time.Duration(periodMs) * time.Millisecond,
	})
	if err != nil {
		return err
	}

	h.reg.ReplaceSweep(id, nil)
	if err := h.EnsurePowerOn(id); err != nil {
		return err
	}
	h.reg.ReplaceSweep(id, sw)
	return nil
}

func (h *Handlers) handleStop(args string, out *strings.Builder) error {
	fields, err := splitArgs(args, 1)
	if err != nil {
		return err
	}
	id, err := h.reg.Lookup(fields[0])
	if err != nil {
		return err
	}
	h.reg.ReplaceSweep(id, nil)
	return nil
}

func (h *Handlers) handleGetSweep(args string, out *strings.Builder) error {
	id, err := h.reg.Lookup(args)
	if err != nil {
		return err
	}
	sw := h.reg.ActiveSweep(id)
	if sw == nil {
		out.WriteString("idle")
		return nil
	}
	p := sw.Params()
	fmt.Fprintf(out, "%.3f,%.3f,%.3f,%d", p.Min, p.Max, p.Step, p.Period.Milliseconds())
	return nil
}

func (h *Handlers) handlePowerUp(args string, out *strings.Builder) error {
	return h.eachChannel(out, func(ch *Channel) (string, error) {
		if err := h.EnsurePowerOn(ch.ID); err != nil {
			return "", err
		}
		return "ON", nil
	})
}

func (h *Handlers) handlePowerDown(args string, out *strings.Builder) error {
	return h.eachChannel(out, func(ch *Channel) (string, error) {
		h.reg.ReplaceSweep(ch.ID, nil)
		if err := ch.Filter.SetPowerMode(device.PowerLow); err != nil {
			return "", err
		}
		return "OFF", nil
	})
}

func (h *Handlers) handleGetPower(args string, out *strings.Builder) error {
	return h.eachChannel(out, func(ch *Channel) (string, error) {
		mode, err := ch.Filter.PowerMode()
		if err != nil {
			return "", err
		}
		return mode.String(), nil
	})
}

func (h *Handlers) handleGetTemp(args string, out *strings.Builder) error {
	ch, err := h.channel(args)
	if err != nil {
		return err
	}
	c, err := ch.Filter.Temperature()
	if err != nil {
		return err
	}
	out.WriteString(strconv.Itoa(int(c)))
	return nil
}

func (h *Handlers) handleGetPosition(args string, out *strings.Builder) error {
	ch, err := h.channel(args)
	if err != nil {
		return err
	}
	p, err := ch.Filter.MirrorPosition()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "(%d,%d,%d,%d)", p.XNeg, p.XPos, p.YNeg, p.YPos)
	return nil
}

// Format: set-pos:<band>:<x->:<x+>:<y->:<y+>
func (h *Handlers) handleSetPosition(args string, out *strings.Builder) error {
	fields, err := splitArgs(args, 5)
	if err != nil {
		return err
	}
	id, err := h.reg.Lookup(fields[0])
	if err != nil {
		return err
	}
	var axes [4]uint16
	for i := range axes {
		v, err := parseUint(fields[i+1], 16)
		if err != nil {
			return err
		}
		axes[i] = uint16(v)
	}
	return h.reg.Channel(id).Filter.SetMirrorPosition(device.Position{
		XNeg: axes[0], XPos: axes[1], YNeg: axes[2], YPos: axes[3],
	})
}

func (h *Handlers) handleReset(args string, out *strings.Builder) error {
	fields, err := splitArgs(args, 1)
	if err != nil {
		return err
	}
	id, err := h.reg.Lookup(fields[0])
	if err != nil {
		return err
	}
	h.reg.ReplaceSweep(id, nil)
	return h.reg.Channel(id).Filter.Reset()
}

// handleSetAddress asks a device to move to a new bus address. The channel
// keeps talking to the old address; the move takes effect on the next start
// with an updated configuration.
// Format: set-addr:<band>:<addr>
func (h *Handlers) handleSetAddress(args string, out *strings.Builder) error {
	fields, err := splitArgs(args, 2)
	if err != nil {
		return err
	}
	id, err := h.reg.Lookup(fields[0])
	if err != nil {
		return err
	}
	v, err := parseUint(fields[1], 8)
	if err != nil {
		return err
	}
	addr := bus.Address(v)
	if addr < AddressMin || addr > AddressMax {
		return fmt.Errorf("%w: address 0x%02x out of range", protocol.ErrInvalidArgument, v)
	}
	return h.reg.Channel(id).Filter.SetBusAddress(addr)
}

// channel resolves a query-style band argument.
func (h *Handlers) channel(band string) (*Channel, error) {
	id, err := h.reg.Lookup(band)
	if err != nil {
		return nil, err
	}
	return h.reg.Channel(id), nil
}

// eachChannel runs fn on every channel and joins the per-channel results.
// A failing channel is reported inline; the command itself succeeds.
func (h *Handlers) eachChannel(out *strings.Builder, fn func(ch *Channel) (string, error)) error {
	for i := 0; i < h.reg.Len(); i++ {
		ch := h.reg.Channel(i)
		if i > 0 {
			out.WriteString(" | ")
		}
		text, err := fn(ch)
		if err != nil {
			text = "ERROR " + protocol.Kind(err)
		}
		fmt.Fprintf(out, "Canal %s: %s", ch.Label, text)
	}
	return nil
}
