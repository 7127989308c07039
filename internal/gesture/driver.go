package gesture

import (
	"context"
	"sync/atomic"
	"time"
)

// DefaultInterval is the pause between two scroll calls of a run.
const DefaultInterval = 50 * time.Millisecond

// Scroller performs one OS-level scroll. Positive units scroll up.
// Implementations swallow their own failures.
type Scroller interface {
	Scroll(units int)
}

// ScrollerFunc adapts a function to the Scroller interface.
type ScrollerFunc func(units int)

// Scroll calls f(units).
func (f ScrollerFunc) Scroll(units int) {
	f(units)
}

// Driver starts continuous scroll runs.
type Driver struct {
	scroller Scroller
	interval time.Duration
	started  atomic.Int64
}

// NewDriver creates a Driver that scrolls through s. A non-positive interval
// uses DefaultInterval.
func NewDriver(s Scroller, interval time.Duration) *Driver {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Driver{
		scroller: s,
		interval: interval,
	}
}

// Interval returns the pause between scroll calls.
func (d *Driver) Interval() time.Duration {
	return d.interval
}

// Started returns how many runs the driver has started.
func (d *Driver) Started() int64 {
	return d.started.Load()
}

// Start launches a run scrolling in the direction of label on its own
// goroutine. The run repeats until Stop is called.
func (d *Driver) Start(label Label) *Run {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Run{
		label:  label,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	d.started.Add(1)
	go r.loop(ctx, d.scroller, d.interval)
	return r
}

// Run is one continuous scroll task.
type Run struct {
	label  Label
	cancel context.CancelFunc
	done   chan struct{}
	ticks  atomic.Int64
}

func (r *Run) loop(ctx context.Context, s Scroller, interval time.Duration) {
	defer close(r.done)

	units := r.label.ScrollUnits()
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		if ctx.Err() != nil {
			return
		}

		s.Scroll(units)
		r.ticks.Add(1)

		timer.Reset(interval)
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
	}
}

// Label returns the gesture the run scrolls for.
func (r *Run) Label() Label {
	return r.label
}

// Stop signals the run to exit. It does not wait.
func (r *Run) Stop() {
	r.cancel()
}

// Wait blocks until the run has exited or timeout elapses, and reports
// whether the run exited.
func (r *Run) Wait(timeout time.Duration) bool {
	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case <-r.done:
		return true
	case <-t.C:
		return false
	}
}

// Done is closed once the run goroutine has exited.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Ticks returns how many scroll calls the run has issued.
func (r *Run) Ticks() int64 {
	return r.ticks.Load()
}
