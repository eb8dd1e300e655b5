package core

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"otfctl/bus"
	"otfctl/device"
	"otfctl/protocol"
)

// Channel is one logical filter: its device and the sweep driving it, if any.
type Channel struct {
	ID     int
	Label  string
	Filter *device.Filter

	sweep *Sweep
}

// Registry holds the fixed channel table and owns the bus lock. Channels
// are created once and indexed by small integer id.
type Registry struct {
	busMu    sync.Mutex
	session  *protocol.Session
	channels []Channel
}

// ChannelSpec describes one channel to create.
type ChannelSpec struct {
	Label  string
	Handle bus.Handle
}

// NewRegistry builds the channel table over driver. All channels share one
// transport session, which takes the registry's bus lock for every
// exchange. Labels must be unique single letters; that is checked by config
// validation.
func NewRegistry(driver bus.Driver, settle time.Duration, specs []ChannelSpec) *Registry {
	r := &Registry{channels: make([]Channel, len(specs))}
	r.session = protocol.NewSession(driver, &r.busMu, settle)
	for i, s := range specs {
		r.channels[i] = Channel{
			ID:     i,
			Label:  strings.ToUpper(s.Label),
			Filter: device.New(r.session, s.Handle),
		}
	}
	return r
}

// BusLock is the lock every bus exchange must hold.
func (r *Registry) BusLock() sync.Locker {
	return &r.busMu
}

// Len returns the number of channels.
func (r *Registry) Len() int {
	return len(r.channels)
}

// Channel returns the channel with the given id.
func (r *Registry) Channel(id int) *Channel {
	return &r.channels[id]
}

// Lookup resolves a band letter, case-insensitively, to a channel id.
func (r *Registry) Lookup(band string) (int, error) {
	band = strings.TrimSpace(band)
	if len(band) != 1 {
		return 0, fmt.Errorf("%w: band %q", protocol.ErrInvalidArgument, band)
	}
	for i := range r.channels {
		if strings.EqualFold(r.channels[i].Label, band) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown band %q", protocol.ErrInvalidArgument, band)
}

// ReplaceSweep is the only way to change a channel's sweep. The reference
// is swapped under the bus lock, the previous sweep is stopped and waited
// for outside of it (it may itself be waiting for the lock), then next is
// started. next may be nil to just stop.
func (r *Registry) ReplaceSweep(id int, next *Sweep) {
	ch := &r.channels[id]

	r.busMu.Lock()
	prev := ch.sweep
	ch.sweep = next
	r.busMu.Unlock()

	if prev != nil {
		prev.Stop()
	}
	if next != nil {
		next.Start()
	}
}

// ActiveSweep returns the channel's running sweep, or nil.
func (r *Registry) ActiveSweep(id int) *Sweep {
	r.busMu.Lock()
	defer r.busMu.Unlock()
	return r.channels[id].sweep
}

// StopAll stops every running sweep.
func (r *Registry) StopAll() {
	for i := range r.channels {
		r.ReplaceSweep(i, nil)
	}
}
