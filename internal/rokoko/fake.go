package rokoko

import (
	"context"
	"sync"
)

// FakeCaller is a scripted Caller for tests. Outcomes are returned in script
// order; once the script is exhausted the last outcome repeats. The zero
// value answers every call with Success("").
type FakeCaller struct {
	mu     sync.Mutex
	Script []Outcome
	index  int
	calls  []Action

	// Gate, when set, makes Call block until a value is received (or the
	// channel is closed). Lets tests hold a dispatch in flight.
	Gate chan struct{}
}

func (f *FakeCaller) Call(_ context.Context, action Action) Outcome {
	f.mu.Lock()
	f.calls = append(f.calls, action)
	out := Success("")
	if len(f.Script) > 0 {
		out = f.Script[f.index]
		if f.index < len(f.Script)-1 {
			f.index++
		}
	}
	gate := f.Gate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return out
}

// Calls returns a copy of the actions passed to Call so far.
func (f *FakeCaller) Calls() []Action {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Action, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallCount returns how many calls have been made.
func (f *FakeCaller) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
