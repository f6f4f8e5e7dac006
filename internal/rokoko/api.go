// Package rokoko is the client adapter for the Rokoko Studio command API.
// Studio exposes a small HTTP surface on localhost; the bridge uses exactly
// three commands (calibrate, start recording, stop recording), each a single
// POST with a fixed JSON payload. The fake implementation allows testing the
// dispatch pipeline without a running Studio instance.
package rokoko

import (
	"context"
	"fmt"
)

// Action is one of the logical operations the bridge can trigger.
type Action string

const (
	ActionCalibrate      Action = "CALIBRATE"
	ActionStartRecording Action = "START_RECORDING"
	ActionStopRecording  Action = "STOP_RECORDING"
)

// Path returns the URL path of the Studio command for this action.
func (a Action) Path() string {
	switch a {
	case ActionCalibrate:
		return "calibrate"
	case ActionStartRecording:
		return "recording/start"
	case ActionStopRecording:
		return "recording/stop"
	}
	return ""
}

// Payload returns the fixed request body for this action. The values match
// what Studio expects; none of them are user-configurable.
func (a Action) Payload() any {
	switch a {
	case ActionCalibrate:
		return calibratePayload{
			CountdownDelay: 3,
			SkipSuit:       false,
			SkipGloves:     false,
			UseCustomPose:  false,
			Pose:           "straight-arms-down",
		}
	case ActionStartRecording:
		return startPayload{Filename: ""}
	case ActionStopRecording:
		return stopPayload{BackToLive: true}
	}
	return struct{}{}
}

type calibratePayload struct {
	CountdownDelay int    `json:"countdown_delay"`
	SkipSuit       bool   `json:"skip_suit"`
	SkipGloves     bool   `json:"skip_gloves"`
	UseCustomPose  bool   `json:"use_custom_pose"`
	Pose           string `json:"pose"`
}

type startPayload struct {
	Filename string `json:"filename"`
}

type stopPayload struct {
	BackToLive bool `json:"back_to_live"`
}

// OutcomeKind is the tri-state result class of one API call.
type OutcomeKind string

const (
	// KindSuccess: Studio accepted the command (response_code 0).
	KindSuccess OutcomeKind = "SUCCESS"
	// KindRejected: Studio answered but declined the command.
	KindRejected OutcomeKind = "REJECTED"
	// KindUnreachable: no usable answer (transport error or malformed body).
	KindUnreachable OutcomeKind = "UNREACHABLE"
)

// Outcome is the result of one API call. Exactly one of the three kinds.
// Every dispatch forwards its outcome to the sink queue.
type Outcome struct {
	Kind        OutcomeKind
	Code        int    // response_code, meaningful for REJECTED only
	Status      string // symbolic name for Code, e.g. "RECORDING_ALREADY_STARTED"
	Description string // Studio's description, or the transport/parse error
}

// Success builds a SUCCESS outcome.
func Success(description string) Outcome {
	return Outcome{Kind: KindSuccess, Status: responseCodes[0], Description: description}
}

// Rejected builds a REJECTED outcome with the translated status name.
func Rejected(code int, description string) Outcome {
	return Outcome{Kind: KindRejected, Code: code, Status: StatusName(code), Description: description}
}

// Unreachable builds an UNREACHABLE outcome carrying the failure reason.
func Unreachable(reason string) Outcome {
	return Outcome{Kind: KindUnreachable, Description: reason}
}

// responseCodes translates Studio response codes to symbolic names.
// Code 2 is unassigned by Studio and intentionally absent.
var responseCodes = map[int]string{
	0: "OK",
	1: "NO_CALIBRATEABLE_ACTORS",
	3: "CALIBRATION_ALREADY_ONGOING",
	4: "RECORDING_ALREADY_STARTED",
	5: "RECORDING_NOT_STARTED",
	6: "UNEXPECTED_ERROR",
}

// StatusName returns the symbolic name for a Studio response code, or
// "UNKNOWN (n)" for codes not in the table.
func StatusName(code int) string {
	if name, ok := responseCodes[code]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN (%d)", code)
}

// Caller issues one Studio command and reports the outcome. Implementations
// must never block longer than the request timeout and must not panic; all
// failure modes are folded into the outcome.
type Caller interface {
	Call(ctx context.Context, action Action) Outcome
}
