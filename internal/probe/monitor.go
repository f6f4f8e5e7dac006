package probe

import (
	"context"
	"time"
)

// Monitor polls a Prober on a fixed interval and reports transitions. The
// first probe runs immediately and always reports, so consumers learn the
// initial state; after that onChange fires only when the answer flips.
type Monitor struct {
	prober   Prober
	interval time.Duration
	onChange func(up bool)
}

// NewMonitor builds a monitor. onChange is called from the monitor's own
// goroutine; it must be safe to call there.
func NewMonitor(prober Prober, interval time.Duration, onChange func(up bool)) *Monitor {
	return &Monitor{prober: prober, interval: interval, onChange: onChange}
}

// Run probes until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	known := false
	first := true
	for {
		up := m.prober.Probe(ctx)
		// A cancelled dial reports down; don't let that escape as a
		// transition during shutdown.
		if ctx.Err() != nil {
			return
		}
		if first || up != known {
			m.onChange(up)
			known = up
			first = false
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
