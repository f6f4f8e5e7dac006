// Package announce publishes bridge activity to MQTT so home-automation
// setups can react to recording state or surface Studio trouble. Announcing
// is optional; the bridge runs fine without a broker configured.
package announce

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/sweeney/rokoko-bridge/internal/bridge"
)

// Topics is the topic set derived from the configured prefix.
type Topics struct {
	Events string // dispatch outcomes, not retained
	Status string // indicator changes, retained so consumers see last state
	System string // lifecycle events
}

// NewTopics builds the topic set under prefix, e.g. "rokoko/bridge".
func NewTopics(prefix string) Topics {
	return Topics{
		Events: prefix + "/events",
		Status: prefix + "/status",
		System: prefix + "/system",
	}
}

// Announcer publishes bridge updates to a broker.
type Announcer interface {
	// Announce sends one queue update (outcome or indicator change).
	// Returns error if publishing fails (should not crash the process).
	Announce(u bridge.Update) error

	// AnnounceSystem sends a lifecycle event.
	AnnounceSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// SystemEvent represents a lifecycle event (e.g., startup, shutdown).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
}

// EventPayload is the message structure on the events topic.
type EventPayload struct {
	Bridge EventInner `json:"bridge"`
}

// EventInner contains the dispatch outcome details.
type EventInner struct {
	Timestamp string `json:"timestamp"`
	Severity  string `json:"severity"`
	Text      string `json:"text"`
	Action    string `json:"action,omitempty"`
	Result    string `json:"result,omitempty"`
}

// FormatEventPayload creates the JSON payload for a log update.
func FormatEventPayload(u bridge.Update) ([]byte, error) {
	payload := EventPayload{
		Bridge: EventInner{
			Timestamp: u.Time.UTC().Format(time.RFC3339),
			Severity:  string(u.Severity),
			Text:      u.Text,
			Action:    string(u.Action),
			Result:    string(u.Result),
		},
	}
	return json.Marshal(payload)
}

// StatusPayload is the message structure on the status topic.
type StatusPayload struct {
	Bridge StatusInner `json:"bridge"`
}

// StatusInner contains the indicator change details.
type StatusInner struct {
	Timestamp string `json:"timestamp"`
	Channel   string `json:"channel"`
	Active    bool   `json:"active"`
	Detail    string `json:"detail,omitempty"`
}

// FormatStatusPayload creates the JSON payload for a status update.
func FormatStatusPayload(u bridge.Update) ([]byte, error) {
	payload := StatusPayload{
		Bridge: StatusInner{
			Timestamp: u.Time.UTC().Format(time.RFC3339),
			Channel:   string(u.Channel),
			Active:    u.Active,
			Detail:    u.Detail,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload is the message structure on the system topic.
// Used for simple events that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// Sink adapts an Announcer to the update queue. Indicator changes are always
// forwarded; log lines only when they carry a dispatch outcome, so debounce
// notices and the like stay off the wire.
type Sink struct {
	announcer Announcer
	log       zerolog.Logger
}

// NewSink wraps announcer for use on the drain loop.
func NewSink(announcer Announcer, log zerolog.Logger) Sink {
	return Sink{announcer: announcer, log: log}
}

func (s Sink) Log(u bridge.Update) {
	if u.Action == "" {
		return
	}
	if err := s.announcer.Announce(u); err != nil {
		s.log.Warn().Err(err).Msg("announce outcome failed")
	}
}

func (s Sink) Status(u bridge.Update) {
	if err := s.announcer.Announce(u); err != nil {
		s.log.Warn().Err(err).Msg("announce status failed")
	}
}
