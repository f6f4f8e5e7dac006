package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string         `json:"event,omitempty"`
	Reason        string         `json:"reason,omitempty"`
	Controller    ControllerJSON `json:"controller"`
	Studio        StudioJSON     `json:"studio"`
	Recording     bool           `json:"recording"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	StartTime     string         `json:"start_time"`
	Timestamp     string         `json:"timestamp"`
	Counts        CountsJSON     `json:"action_counts"`
	Config        ConfigJSON     `json:"config"`
}

// ControllerJSON reports controller attachment state.
type ControllerJSON struct {
	Connected bool   `json:"connected"`
	Name      string `json:"name,omitempty"`
}

// StudioJSON reports Rokoko Studio reachability.
type StudioJSON struct {
	Reachable bool   `json:"reachable"`
	Checked   bool   `json:"checked"`
	Addr      string `json:"addr"`
}

// ActionCountsJSON is the JSON representation of one action's tallies.
type ActionCountsJSON struct {
	Dispatched  int `json:"dispatched"`
	Succeeded   int `json:"succeeded"`
	Rejected    int `json:"rejected"`
	Unreachable int `json:"unreachable"`
}

// CountsJSON is the JSON representation of the dispatch counters.
type CountsJSON struct {
	Calibrate ActionCountsJSON `json:"calibrate"`
	Start     ActionCountsJSON `json:"start_recording"`
	Stop      ActionCountsJSON `json:"stop_recording"`
}

// MappingJSON is one button binding.
type MappingJSON struct {
	Button int    `json:"button"`
	Action string `json:"action"`
}

// ConfigJSON is the JSON representation of bridge config.
type ConfigJSON struct {
	StudioAddr string        `json:"studio_addr"`
	DebounceMs int64         `json:"debounce_ms"`
	ProbeMs    int64         `json:"probe_ms"`
	PollMs     int64         `json:"poll_ms"`
	HTTPAddr   string        `json:"http_addr"`
	Broker     string        `json:"broker,omitempty"`
	Mapping    []MappingJSON `json:"mapping"`
}

func countsJSON(a ActionCounts) ActionCountsJSON {
	return ActionCountsJSON{
		Dispatched:  a.Dispatched,
		Succeeded:   a.Succeeded,
		Rejected:    a.Rejected,
		Unreachable: a.Unreachable,
	}
}

func buildInner(snap Snapshot) StatusInner {
	mapping := make([]MappingJSON, 0, len(snap.Settings.Mapping))
	for _, m := range snap.Settings.Mapping {
		mapping = append(mapping, MappingJSON{Button: m.Button, Action: string(m.Action)})
	}

	return StatusInner{
		Controller: ControllerJSON{
			Connected: snap.Controller,
			Name:      snap.ControllerName,
		},
		Studio: StudioJSON{
			Reachable: snap.Reachable,
			Checked:   snap.Checked,
			Addr:      snap.Settings.StudioAddr,
		},
		Recording:     snap.Recording,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		Counts: CountsJSON{
			Calibrate: countsJSON(snap.Counts.Calibrate),
			Start:     countsJSON(snap.Counts.Start),
			Stop:      countsJSON(snap.Counts.Stop),
		},
		Config: ConfigJSON{
			StudioAddr: snap.Settings.StudioAddr,
			DebounceMs: snap.Settings.DebounceMs,
			ProbeMs:    snap.Settings.ProbeMs,
			PollMs:     snap.Settings.PollMs,
			HTTPAddr:   snap.Settings.HTTPAddr,
			Broker:     snap.Settings.Broker,
			Mapping:    mapping,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
