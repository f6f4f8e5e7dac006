// Package status provides a thread-safe state tracker for the bridge.
// The drain loop writes to it through the sink methods; HTTP handlers and
// the web panel read consistent copies via Snapshot.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/rokoko-bridge/internal/bridge"
	"github.com/sweeney/rokoko-bridge/internal/rokoko"
)

// MappingEntry is one button binding shown on the panel.
type MappingEntry struct {
	Button int
	Action rokoko.Action
}

// Settings contains bridge configuration for display.
type Settings struct {
	StudioAddr string // host:port the commands and probes go to
	DebounceMs int64
	ProbeMs    int64
	PollMs     int64
	HTTPAddr   string
	Broker     string // empty when MQTT announcing is disabled
	Mapping    []MappingEntry
}

// ActionCounts tallies the dispatches of one action.
type ActionCounts struct {
	Dispatched  int
	Succeeded   int
	Rejected    int
	Unreachable int
}

// Counts holds per-action tallies. Value type, safe to copy.
type Counts struct {
	Calibrate ActionCounts
	Start     ActionCounts
	Stop      ActionCounts
}

func (c *Counts) bump(action rokoko.Action, kind rokoko.OutcomeKind) {
	var a *ActionCounts
	switch action {
	case rokoko.ActionCalibrate:
		a = &c.Calibrate
	case rokoko.ActionStartRecording:
		a = &c.Start
	case rokoko.ActionStopRecording:
		a = &c.Stop
	default:
		return
	}
	a.Dispatched++
	switch kind {
	case rokoko.KindSuccess:
		a.Succeeded++
	case rokoko.KindRejected:
		a.Rejected++
	case rokoko.KindUnreachable:
		a.Unreachable++
	}
}

// Snapshot is a point-in-time view of bridge state. It is a value type,
// safe to use after the lock is released.
type Snapshot struct {
	Controller     bool
	ControllerName string
	Reachable      bool
	Checked        bool // false until the first probe has reported
	Recording      bool
	Counts         Counts
	StartTime      time.Time
	Now            time.Time
	Settings       Settings
}

// Uptime returns the duration since the bridge started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable bridge state behind an RWMutex. It implements
// bridge.Sink so the drain loop can feed it directly.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and settings.
func NewTracker(startTime time.Time, settings Settings) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Settings:  settings,
		},
	}
}

// Log implements bridge.Sink. Only dispatch outcomes move the counters;
// plain log lines pass through untracked.
func (t *Tracker) Log(u bridge.Update) {
	if u.Action == "" {
		return
	}
	t.mu.Lock()
	t.snap.Counts.bump(u.Action, u.Result)
	t.mu.Unlock()
}

// Status implements bridge.Sink.
func (t *Tracker) Status(u bridge.Update) {
	t.mu.Lock()
	switch u.Channel {
	case bridge.ChannelController:
		t.snap.Controller = u.Active
		t.snap.ControllerName = u.Detail
	case bridge.ChannelConnectivity:
		t.snap.Reachable = u.Active
		t.snap.Checked = true
	case bridge.ChannelRecording:
		t.snap.Recording = u.Active
	}
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the bridge state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
