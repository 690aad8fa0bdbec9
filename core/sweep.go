package core

import (
	"context"
	"fmt"
	"time"
)

// SweepParams steps the steering azimuth across a span, rendering the
// pattern cut at each step. Tick of zero runs the sweep as fast as
// the loop allows; a positive Tick paces it in wall-clock time.
type SweepParams struct {
	StartDeg float64
	EndDeg   float64
	Steps    int
	Tick     time.Duration
}

// SweepFrame is one rendered sweep step.
type SweepFrame struct {
	Index      int
	SteerAzDeg float64
	Cut        *AzimuthCut
}

// SweepEngine drives a steering sweep over a fixed array and notifies
// registered listeners with each rendered frame.
type SweepEngine struct {
	array     *Array
	listeners []func(SweepFrame)
}

// NewSweepEngine builds an engine over the given array.
func NewSweepEngine(a *Array) *SweepEngine {
	return &SweepEngine{array: a}
}

// AddListener registers a callback invoked on every frame. Listeners
// run synchronously on the sweep goroutine, in registration order.
func (se *SweepEngine) AddListener(fn func(SweepFrame)) {
	se.listeners = append(se.listeners, fn)
}

// Run executes the sweep, blocking until it completes or ctx is
// cancelled.
func (se *SweepEngine) Run(ctx context.Context, p SweepParams) error {
	if p.Steps < 1 {
		return fmt.Errorf("%w: sweep steps must be >= 1, got %d", ErrBadConfig, p.Steps)
	}

	var ticker *time.Ticker
	if p.Tick > 0 {
		ticker = time.NewTicker(p.Tick)
		defer ticker.Stop()
	}

	for i := 0; i < p.Steps; i++ {
		if ticker != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		angle := p.StartDeg
		if p.Steps > 1 {
			angle += (p.EndDeg - p.StartDeg) * float64(i) / float64(p.Steps-1)
		}

		frame := SweepFrame{
			Index:      i,
			SteerAzDeg: angle,
			Cut:        se.array.AzimuthPattern(angle),
		}
		for _, fn := range se.listeners {
			fn(frame)
		}
	}

	return nil
}
