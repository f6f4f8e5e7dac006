package probe

import (
	"context"
	"sync"
)

// FakeProber replays a scripted sequence of answers; once the script is
// exhausted the last answer repeats. The zero value always answers false.
type FakeProber struct {
	mu     sync.Mutex
	Script []bool
	index  int
	probes int
}

func (f *FakeProber) Probe(_ context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probes++
	if len(f.Script) == 0 {
		return false
	}
	v := f.Script[f.index]
	if f.index < len(f.Script)-1 {
		f.index++
	}
	return v
}

// ProbeCount returns how many probes have run.
func (f *FakeProber) ProbeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.probes
}
