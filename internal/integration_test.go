// Integration tests for the full pipeline: controller events through the
// dispatch engine and drain loop into every sink, using a scripted Studio
// caller and a recording announcer. The HTTP panel test serves the real
// handler on a loopback listener.
package internal

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/sweeney/rokoko-bridge/internal/announce"
	"github.com/sweeney/rokoko-bridge/internal/bridge"
	"github.com/sweeney/rokoko-bridge/internal/config"
	"github.com/sweeney/rokoko-bridge/internal/pad"
	"github.com/sweeney/rokoko-bridge/internal/rokoko"
	"github.com/sweeney/rokoko-bridge/internal/status"
	"github.com/sweeney/rokoko-bridge/internal/web"
)

// fakeClock is a mutex-guarded test clock. The engine stamps updates from
// dispatch goroutines, so Now must be safe for concurrent use.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 12, 20, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// collectSink records every update the drain loop delivers and signals each
// dispatch outcome, so tests can hold the next press until the previous
// Studio call has fully resolved.
type collectSink struct {
	mu       sync.Mutex
	logs     []bridge.Update
	statuses []bridge.Update
	outcomes chan bridge.Update
}

func newCollectSink() *collectSink {
	return &collectSink{outcomes: make(chan bridge.Update, 16)}
}

func (s *collectSink) Log(u bridge.Update) {
	s.mu.Lock()
	s.logs = append(s.logs, u)
	s.mu.Unlock()
	if u.Action != "" {
		s.outcomes <- u
	}
}

func (s *collectSink) Status(u bridge.Update) {
	s.mu.Lock()
	s.statuses = append(s.statuses, u)
	s.mu.Unlock()
}

func (s *collectSink) waitOutcome(t *testing.T) bridge.Update {
	t.Helper()
	select {
	case u := <-s.outcomes:
		return u
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a dispatch outcome")
		return bridge.Update{}
	}
}

func (s *collectSink) logTexts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.logs))
	for i, u := range s.logs {
		out[i] = u.Text
	}
	return out
}

// statusFlags returns the Active sequence seen on one status channel.
func (s *collectSink) statusFlags(ch bridge.Channel) []bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []bool
	for _, u := range s.statuses {
		if u.Channel == ch {
			out = append(out, u.Active)
		}
	}
	return out
}

func countText(texts []string, substr string) int {
	n := 0
	for _, s := range texts {
		if strings.Contains(s, substr) {
			n++
		}
	}
	return n
}

var testButtons = map[int]rokoko.Action{
	3: rokoko.ActionCalibrate,
	0: rokoko.ActionStartRecording,
	1: rokoko.ActionStopRecording,
}

// pipeline assembles the production wiring on fakes: engine, drain loop,
// tracker, MQTT sink and collector.
type pipeline struct {
	clock     *fakeClock
	caller    *rokoko.FakeCaller
	engine    *bridge.Engine
	tracker   *status.Tracker
	announcer *announce.FakeAnnouncer
	collect   *collectSink
	drained   chan struct{}
}

func newPipeline(script ...rokoko.Outcome) *pipeline {
	p := &pipeline{
		clock:     newFakeClock(),
		caller:    &rokoko.FakeCaller{Script: script},
		announcer: announce.NewFakeAnnouncer(),
		collect:   newCollectSink(),
		drained:   make(chan struct{}),
	}
	p.tracker = status.NewTracker(p.clock.Now(), config.Defaults().Settings())
	p.engine = bridge.NewEngine(p.caller, testButtons, 5*time.Second, p.clock.Now)
	sink := announce.NewSink(p.announcer, zerolog.Nop())
	go func() {
		bridge.Drain(p.engine.Updates(), p.tracker, sink, p.collect)
		close(p.drained)
	}()
	return p
}

func (p *pipeline) attach(name string) {
	p.engine.HandleEvent(pad.Event{Type: pad.EventAttached, Name: name})
}

func (p *pipeline) press(button int) {
	p.engine.HandleEvent(pad.Event{Type: pad.EventButton, Button: button})
}

// shutdown closes the engine and waits for the drain loop, so every sink
// has seen every update before the test asserts.
func (p *pipeline) shutdown() {
	p.engine.Close()
	<-p.drained
}

// TestIntegrationFullSession runs a calibrate / start / stop session and
// checks the Studio calls, the tracker, the collector and the announcer.
func TestIntegrationFullSession(t *testing.T) {
	p := newPipeline(
		rokoko.Success("Calibrating"),
		rokoko.Success("Started recording"),
		rokoko.Success("Stopped recording"),
	)
	p.attach("Wireless Controller")

	p.press(3)
	out := p.collect.waitOutcome(t)
	if out.Text != "Calibration successful: Calibrating" {
		t.Errorf("calibrate outcome = %q", out.Text)
	}
	if out.Severity != bridge.SeveritySuccess {
		t.Errorf("calibrate severity = %q, want success", out.Severity)
	}

	p.press(0)
	out = p.collect.waitOutcome(t)
	if out.Text != "Recording started: Started recording" {
		t.Errorf("start outcome = %q", out.Text)
	}

	p.press(1)
	out = p.collect.waitOutcome(t)
	if out.Text != "Recording stopped: Stopped recording" {
		t.Errorf("stop outcome = %q", out.Text)
	}

	p.shutdown()

	want := []rokoko.Action{rokoko.ActionCalibrate, rokoko.ActionStartRecording, rokoko.ActionStopRecording}
	calls := p.caller.Calls()
	if len(calls) != len(want) {
		t.Fatalf("studio calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, calls[i], want[i])
		}
	}

	snap := p.tracker.Snapshot()
	if !snap.Controller || snap.ControllerName != "Wireless Controller" {
		t.Errorf("controller state = %v %q", snap.Controller, snap.ControllerName)
	}
	if snap.Recording {
		t.Error("recording should be idle again after the stop succeeded")
	}
	for _, c := range []struct {
		name   string
		counts status.ActionCounts
	}{
		{"calibrate", snap.Counts.Calibrate},
		{"start", snap.Counts.Start},
		{"stop", snap.Counts.Stop},
	} {
		if c.counts.Dispatched != 1 || c.counts.Succeeded != 1 {
			t.Errorf("%s counts = %+v, want 1 dispatched / 1 succeeded", c.name, c.counts)
		}
	}

	if got := p.collect.statusFlags(bridge.ChannelRecording); len(got) != 2 || !got[0] || got[1] {
		t.Errorf("recording status sequence = %v, want [true false]", got)
	}

	// The announcer sees the three status changes (controller attach plus
	// the two recording flips) and the three dispatch outcomes. Plain log
	// lines never reach the broker.
	var statusN, eventN int
	for _, u := range p.announcer.Updates {
		if u.Kind == bridge.UpdateStatus {
			statusN++
		} else {
			eventN++
		}
	}
	if statusN != 3 || eventN != 3 {
		t.Errorf("announced %d status / %d event updates, want 3 / 3", statusN, eventN)
	}
	for i, payload := range p.announcer.Payloads {
		var doc map[string]json.RawMessage
		if err := json.Unmarshal(payload, &doc); err != nil {
			t.Fatalf("payload %d: invalid JSON: %v", i, err)
		}
		if _, ok := doc["bridge"]; !ok {
			t.Errorf("payload %d lacks the bridge envelope: %s", i, payload)
		}
	}
}

// TestIntegrationRejectionKeepsState verifies a declined start leaves the
// recording indicator alone and is reported with the translated status.
func TestIntegrationRejectionKeepsState(t *testing.T) {
	p := newPipeline(rokoko.Rejected(4, "Recording is already in progress"))
	p.attach("Wireless Controller")

	p.press(0)
	out := p.collect.waitOutcome(t)
	want := "Recording start: RECORDING_ALREADY_STARTED — Recording is already in progress"
	if out.Text != want {
		t.Errorf("outcome text = %q, want %q", out.Text, want)
	}
	if out.Severity != bridge.SeverityError {
		t.Errorf("severity = %q, want error", out.Severity)
	}

	p.shutdown()

	snap := p.tracker.Snapshot()
	if snap.Counts.Start.Dispatched != 1 || snap.Counts.Start.Rejected != 1 {
		t.Errorf("start counts = %+v, want 1 dispatched / 1 rejected", snap.Counts.Start)
	}
	if snap.Recording {
		t.Error("a rejected start must not flip the recording flag")
	}
	if got := p.collect.statusFlags(bridge.ChannelRecording); len(got) != 0 {
		t.Errorf("recording status updates = %v, want none", got)
	}
}

// TestIntegrationUnreachableStudio verifies transport failures surface as
// unreachable outcomes.
func TestIntegrationUnreachableStudio(t *testing.T) {
	p := newPipeline(rokoko.Unreachable("connection refused"))
	p.attach("Wireless Controller")

	p.press(3)
	out := p.collect.waitOutcome(t)
	want := "Calibration failed — Rokoko Studio unreachable (connection refused)"
	if out.Text != want {
		t.Errorf("outcome text = %q, want %q", out.Text, want)
	}
	if out.Severity != bridge.SeverityError {
		t.Errorf("severity = %q, want error", out.Severity)
	}

	p.shutdown()

	snap := p.tracker.Snapshot()
	if snap.Counts.Calibrate.Dispatched != 1 || snap.Counts.Calibrate.Unreachable != 1 {
		t.Errorf("calibrate counts = %+v, want 1 dispatched / 1 unreachable", snap.Counts.Calibrate)
	}
}

// TestIntegrationDebounce presses calibrate three times: twice inside one
// window, then once after it has elapsed.
func TestIntegrationDebounce(t *testing.T) {
	p := newPipeline()
	p.attach("Wireless Controller")

	p.press(3)
	p.collect.waitOutcome(t)
	p.press(3)
	p.clock.Advance(5 * time.Second)
	p.press(3)
	p.collect.waitOutcome(t)

	p.shutdown()

	if n := p.caller.CallCount(); n != 2 {
		t.Errorf("studio calls = %d, want 2 (middle press debounced)", n)
	}
	if n := countText(p.collect.logTexts(), "Debounced"); n != 1 {
		t.Errorf("debounce log lines = %d, want 1", n)
	}
	snap := p.tracker.Snapshot()
	if snap.Counts.Calibrate.Dispatched != 2 {
		t.Errorf("dispatched = %d, want 2", snap.Counts.Calibrate.Dispatched)
	}
}

// TestIntegrationConnectivity verifies probe reports reach the tracker and
// produce one log line per transition.
func TestIntegrationConnectivity(t *testing.T) {
	p := newPipeline()

	p.engine.PostConnectivity(false, "127.0.0.1:14053")
	p.engine.PostConnectivity(true, "127.0.0.1:14053")

	p.shutdown()

	snap := p.tracker.Snapshot()
	if !snap.Checked {
		t.Error("tracker should be marked checked after the first probe report")
	}
	if !snap.Reachable {
		t.Error("tracker should end reachable")
	}
	texts := p.collect.logTexts()
	if countText(texts, "Rokoko Studio not reachable at 127.0.0.1:14053") != 1 {
		t.Errorf("missing down log, got %v", texts)
	}
	if countText(texts, "Rokoko Studio reachable at 127.0.0.1:14053") != 1 {
		t.Errorf("missing up log, got %v", texts)
	}
	if got := p.collect.statusFlags(bridge.ChannelConnectivity); len(got) != 2 || got[0] || !got[1] {
		t.Errorf("connectivity status sequence = %v, want [false true]", got)
	}
}

// TestIntegrationDetachStopsDispatch verifies presses are dropped while no
// controller is attached.
func TestIntegrationDetachStopsDispatch(t *testing.T) {
	p := newPipeline()
	p.attach("Wireless Controller")
	p.engine.HandleEvent(pad.Event{Type: pad.EventDetached})
	p.press(3)

	p.shutdown()

	if n := p.caller.CallCount(); n != 0 {
		t.Errorf("studio calls = %d, want 0 while no controller is attached", n)
	}
	if countText(p.collect.logTexts(), "Controller disconnected") != 1 {
		t.Error("missing disconnect log")
	}
	snap := p.tracker.Snapshot()
	if snap.Controller {
		t.Error("tracker should show the controller gone")
	}
	if got := p.collect.statusFlags(bridge.ChannelController); len(got) != 2 || !got[0] || got[1] {
		t.Errorf("controller status sequence = %v, want [true false]", got)
	}
}

// TestIntegrationStatusEndpoint serves the panel on a real loopback
// listener and checks the JSON it reports after a session.
func TestIntegrationStatusEndpoint(t *testing.T) {
	p := newPipeline(rokoko.Success("Calibrating"))
	hub := web.NewHub()
	srv := web.New("127.0.0.1:0", p.tracker, hub)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() { _ = srv.Serve(ln) }()
	defer func() { _ = srv.Shutdown(context.Background()) }()

	p.attach("Wireless Controller")
	p.press(3)
	p.collect.waitOutcome(t)
	p.shutdown()

	resp, err := http.Get("http://" + ln.Addr().String() + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}

	var doc status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		t.Fatalf("decode /index.json: %v", err)
	}
	if !doc.Status.Controller.Connected || doc.Status.Controller.Name != "Wireless Controller" {
		t.Errorf("controller = %+v", doc.Status.Controller)
	}
	if doc.Status.Counts.Calibrate.Dispatched != 1 || doc.Status.Counts.Calibrate.Succeeded != 1 {
		t.Errorf("calibrate counts = %+v", doc.Status.Counts.Calibrate)
	}
	if doc.Status.Config.StudioAddr != "127.0.0.1:14053" {
		t.Errorf("studio addr = %q", doc.Status.Config.StudioAddr)
	}
	if len(doc.Status.Config.Mapping) != 3 {
		t.Errorf("mapping entries = %d, want 3", len(doc.Status.Config.Mapping))
	}
}

// TestIntegrationLifecyclePayload verifies a shutdown snapshot travels
// through the announcer unchanged.
func TestIntegrationLifecyclePayload(t *testing.T) {
	p := newPipeline()
	p.attach("Wireless Controller")
	p.shutdown()

	snap := p.tracker.Snapshot()
	raw := status.FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM")
	err := p.announcer.AnnounceSystem(announce.SystemEvent{
		Timestamp:  p.clock.Now(),
		Event:      "SHUTDOWN",
		Reason:     "SIGTERM",
		RawPayload: raw,
	})
	if err != nil {
		t.Fatalf("announce system: %v", err)
	}

	if len(p.announcer.SystemPayloads) != 1 {
		t.Fatalf("system payloads = %d, want 1", len(p.announcer.SystemPayloads))
	}
	var doc status.StatusJSON
	if err := json.Unmarshal(p.announcer.SystemPayloads[0], &doc); err != nil {
		t.Fatalf("system payload is not valid JSON: %v", err)
	}
	if doc.Status.Event != "SHUTDOWN" || doc.Status.Reason != "SIGTERM" {
		t.Errorf("event/reason = %q/%q, want SHUTDOWN/SIGTERM", doc.Status.Event, doc.Status.Reason)
	}
	if !doc.Status.Controller.Connected {
		t.Error("snapshot payload should carry the controller state")
	}
}
