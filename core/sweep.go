package core

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"otfctl/monitoring"
	"otfctl/protocol"
)

// sweepTolerance lets a step that lands on max (up to float error) count.
const sweepTolerance = 1e-9

// MaxSweepPoints bounds the wavelengths visited in one pass.
const MaxSweepPoints = math.MaxInt32

// SweepParams describes a repeating wavelength ramp. Immutable once the
// sweep starts.
type SweepParams struct {
	Channel int
	Min     float64
	Max     float64
	Step    float64
	Period  time.Duration
}

// Validate checks 0 < Min < Max, Step > 0, Period > 0 and that one pass
// stays under MaxSweepPoints.
func (p SweepParams) Validate() error {
	for _, v := range []float64{p.Min, p.Max, p.Step} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite sweep parameter", protocol.ErrInvalidArgument)
		}
	}
	if p.Min <= 0 || p.Max <= p.Min {
		return fmt.Errorf("%w: sweep range (%g,%g)", protocol.ErrInvalidArgument, p.Min, p.Max)
	}
	if p.Step <= 0 {
		return fmt.Errorf("%w: sweep step %g", protocol.ErrInvalidArgument, p.Step)
	}
	if p.Period <= 0 {
		return fmt.Errorf("%w: sweep period %v", protocol.ErrInvalidArgument, p.Period)
	}
	if (p.Max-p.Min)/p.Step >= MaxSweepPoints {
		return fmt.Errorf("%w: sweep step %g too small for range (%g,%g)", protocol.ErrInvalidArgument, p.Step, p.Min, p.Max)
	}
	return nil
}

// Points returns the number of wavelengths visited per pass.
func (p SweepParams) Points() int {
	return int(math.Floor((p.Max-p.Min)/p.Step+sweepTolerance)) + 1
}

// WavelengthSetter is the part of the filter a sweep drives.
type WavelengthSetter interface {
	SetWavelength(nm float32) error
}

// Sweep steps one channel's wavelength from Min to Max and starts over,
// until stopped. Cancellation is cooperative: the loop checks it before
// and after every exchange and while waiting between steps.
type Sweep struct {
	params SweepParams
	label  string
	filter WavelengthSetter

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	startOnce sync.Once
	started   atomic.Bool
	steps     atomic.Uint64
}

// NewSweep validates p and prepares a sweep; it does not run until Start.
func NewSweep(filter WavelengthSetter, label string, p SweepParams) (*Sweep, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Sweep{
		params: p,
		label:  label,
		filter: filter,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}, nil
}

// Params returns the sweep parameters.
func (s *Sweep) Params() SweepParams {
	return s.params
}

// Steps returns how many wavelength writes were issued so far.
func (s *Sweep) Steps() uint64 {
	return s.steps.Load()
}

// Start launches the sweep goroutine. Calling it again has no effect.
func (s *Sweep) Start() {
	s.startOnce.Do(func() {
		s.started.Store(true)
		go s.run()
	})
}

// Stop cancels the sweep and waits until the goroutine has exited, so the
// bus lock is never left held by a dying sweep.
func (s *Sweep) Stop() {
	s.cancel()
	if s.started.Load() {
		<-s.done
	}
}

// Done is closed once a started sweep has exited.
func (s *Sweep) Done() <-chan struct{} {
	return s.done
}

func (s *Sweep) run() {
	defer close(s.done)

	p := s.params
	points := p.Points()
	timer := time.NewTimer(p.Period)
	timer.Stop()
	defer timer.Stop()

	for {
		if s.ctx.Err() != nil {
			return
		}
		for i := 0; i < points; i++ {
			if s.ctx.Err() != nil {
				return
			}

			nm := p.Min + float64(i)*p.Step
			if err := s.filter.SetWavelength(float32(nm)); err != nil {
				monitoring.Logf("sweep %s: set %.3f nm: %v", s.label, nm, err)
			}
			s.steps.Add(1)

			if s.ctx.Err() != nil {
				return
			}

			timer.Reset(p.Period)
			select {
			case <-s.ctx.Done():
				return
			case <-timer.C:
			}
		}
	}
}
