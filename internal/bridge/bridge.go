// Package bridge is the dispatch core. It owns the debounce state, turns
// controller button presses into Rokoko Studio API calls, and fans every
// result out to sinks through a single-consumer update queue. API calls run
// in short-lived goroutines so the polling cadence never waits on the
// network.
package bridge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sweeney/rokoko-bridge/internal/pad"
	"github.com/sweeney/rokoko-bridge/internal/rokoko"
)

// queueSize buffers update bursts so producers are not stalled by a briefly
// busy drain loop.
const queueSize = 128

// Engine consumes controller events and dispatches Studio commands.
//
// HandleEvent must only be called from the polling goroutine; the debounce
// state is unsynchronized on purpose. Post and PostConnectivity are safe
// from any goroutine until Close.
type Engine struct {
	caller   rokoko.Caller
	mapping  map[int]rokoko.Action
	debounce time.Duration
	now      func() time.Time

	updates  chan Update
	last     map[rokoko.Action]time.Time
	attached bool

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewEngine builds an engine dispatching to caller. mapping binds button
// indices to actions; presses of unmapped buttons are dropped. A nil now
// uses the wall clock.
func NewEngine(caller rokoko.Caller, mapping map[int]rokoko.Action, debounce time.Duration, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	owned := make(map[int]rokoko.Action, len(mapping))
	for btn, action := range mapping {
		owned[btn] = action
	}
	return &Engine{
		caller:   caller,
		mapping:  owned,
		debounce: debounce,
		now:      now,
		updates:  make(chan Update, queueSize),
		last:     make(map[rokoko.Action]time.Time),
	}
}

// Updates returns the queue for the drain loop. Closed by Close.
func (e *Engine) Updates() <-chan Update {
	return e.updates
}

// Post enqueues an update produced outside the engine, stamping the time if
// unset.
func (e *Engine) Post(u Update) {
	if u.Time.IsZero() {
		u.Time = e.now()
	}
	e.updates <- u
}

// PostConnectivity reports a Studio reachability transition. The monitor
// calls this only on change, so the log stays quiet while the state holds.
func (e *Engine) PostConnectivity(up bool, addr string) {
	e.Post(StatusUpdate(ChannelConnectivity, up, addr))
	if up {
		e.Post(LogUpdate(SeveritySuccess, "Rokoko Studio reachable at "+addr))
	} else {
		e.Post(LogUpdate(SeverityError, "Rokoko Studio not reachable at "+addr))
	}
}

// HandleEvent feeds one controller event into the engine.
func (e *Engine) HandleEvent(ev pad.Event) {
	switch ev.Type {
	case pad.EventAttached:
		e.attached = true
		e.Post(StatusUpdate(ChannelController, true, ev.Name))
		e.Post(LogUpdate(SeveritySuccess, "Controller connected: "+ev.Name))
	case pad.EventDetached:
		e.attached = false
		e.Post(StatusUpdate(ChannelController, false, ""))
		e.Post(LogUpdate(SeverityError, "Controller disconnected"))
	case pad.EventButton:
		e.handleButton(ev.Button)
	}
}

func (e *Engine) handleButton(button int) {
	if !e.attached {
		return
	}
	action, ok := e.mapping[button]
	if !ok {
		return
	}
	now := e.now()
	if last, ok := e.last[action]; ok && now.Sub(last) < e.debounce {
		e.Post(LogUpdate(SeverityInfo, "Debounced — ignoring repeated press"))
		return
	}
	// Mark before dispatching so a press landing while the call is still
	// in flight already sees the fresh timestamp.
	e.last[action] = now

	e.Post(LogUpdate(SeverityInfo, triggerText(action)))
	e.wg.Add(1)
	go e.dispatch(action)
}

func (e *Engine) dispatch(action rokoko.Action) {
	defer e.wg.Done()
	out := e.caller.Call(context.Background(), action)

	u := LogUpdate(outcomeSeverity(out), outcomeText(action, out))
	u.Action = action
	u.Result = out.Kind
	e.Post(u)

	if active, changed := recordingChange(action, out); changed {
		e.Post(StatusUpdate(ChannelRecording, active, ""))
	}
}

// Close waits for in-flight dispatches, then closes the update queue so the
// drain loop can finish. Nothing may post after Close.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		e.wg.Wait()
		close(e.updates)
	})
}

// recordingChange reports whether a successful outcome flips the recording
// indicator, and to what. The flag is optimistic; Studio is not queried.
func recordingChange(action rokoko.Action, out rokoko.Outcome) (active, changed bool) {
	if out.Kind != rokoko.KindSuccess {
		return false, false
	}
	switch action {
	case rokoko.ActionStartRecording:
		return true, true
	case rokoko.ActionStopRecording:
		return false, true
	}
	return false, false
}

func triggerText(action rokoko.Action) string {
	switch action {
	case rokoko.ActionCalibrate:
		return "Calibrating (3 s countdown)…"
	case rokoko.ActionStartRecording:
		return "Starting recording…"
	case rokoko.ActionStopRecording:
		return "Stopping recording…"
	}
	return string(action)
}

func actionNoun(action rokoko.Action) string {
	switch action {
	case rokoko.ActionCalibrate:
		return "Calibration"
	case rokoko.ActionStartRecording:
		return "Recording start"
	case rokoko.ActionStopRecording:
		return "Recording stop"
	}
	return string(action)
}

func outcomeText(action rokoko.Action, out rokoko.Outcome) string {
	switch out.Kind {
	case rokoko.KindSuccess:
		switch action {
		case rokoko.ActionCalibrate:
			return "Calibration successful: " + out.Description
		case rokoko.ActionStartRecording:
			return "Recording started: " + out.Description
		case rokoko.ActionStopRecording:
			return "Recording stopped: " + out.Description
		}
		return actionNoun(action) + ": " + out.Description
	case rokoko.KindRejected:
		return fmt.Sprintf("%s: %s — %s", actionNoun(action), out.Status, out.Description)
	default:
		return fmt.Sprintf("%s failed — Rokoko Studio unreachable (%s)", actionNoun(action), out.Description)
	}
}

func outcomeSeverity(out rokoko.Outcome) Severity {
	if out.Kind == rokoko.KindSuccess {
		return SeveritySuccess
	}
	return SeverityError
}
