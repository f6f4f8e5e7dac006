package bridge

import (
	"time"

	"github.com/sweeney/rokoko-bridge/internal/rokoko"
)

// Severity grades a log line for display.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// Channel names a status indicator on the panel.
type Channel string

const (
	ChannelController   Channel = "controller"
	ChannelConnectivity Channel = "connectivity"
	ChannelRecording    Channel = "recording"
)

// UpdateKind separates log lines from status indicator changes.
type UpdateKind string

const (
	UpdateLog    UpdateKind = "log"
	UpdateStatus UpdateKind = "status"
)

// Update is one message on the sink queue. Log updates carry Severity and
// Text; status updates carry Channel, Active and Detail. Updates produced by
// a dispatch also carry the action and outcome kind so sinks can keep
// counters without parsing text.
type Update struct {
	Kind UpdateKind `json:"kind"`
	Time time.Time  `json:"time"`

	Severity Severity `json:"severity,omitempty"`
	Text     string   `json:"text,omitempty"`

	Channel Channel `json:"channel,omitempty"`
	Active  bool    `json:"active,omitempty"`
	Detail  string  `json:"detail,omitempty"`

	Action rokoko.Action      `json:"action,omitempty"`
	Result rokoko.OutcomeKind `json:"result,omitempty"`
}

// LogUpdate builds a log line update.
func LogUpdate(sev Severity, text string) Update {
	return Update{Kind: UpdateLog, Severity: sev, Text: text}
}

// StatusUpdate builds a status indicator update.
func StatusUpdate(ch Channel, active bool, detail string) Update {
	return Update{Kind: UpdateStatus, Channel: ch, Active: active, Detail: detail}
}

// Sink consumes updates. Implementations are called from the single drain
// goroutine, one update at a time, and must not block for long.
type Sink interface {
	Log(u Update)
	Status(u Update)
}

// Drain delivers every queued update to every sink in order. It returns when
// the queue is closed. Run it in exactly one goroutine.
func Drain(updates <-chan Update, sinks ...Sink) {
	for u := range updates {
		for _, s := range sinks {
			if u.Kind == UpdateLog {
				s.Log(u)
			} else {
				s.Status(u)
			}
		}
	}
}
