// Package pad turns raw game controller input into discrete events. The
// Reader interface hides the hardware so the dispatch engine and tests can
// run against a scripted fake; RealReader backs it with the first joystick
// device the OS exposes.
//
// Poll is not safe for concurrent use. The bridge polls from a single
// goroutine on a fixed cadence, and edge detection relies on that.
package pad

import "fmt"

// EventType classifies a controller event.
type EventType string

const (
	// EventAttached: a controller was found. Name carries the device name.
	EventAttached EventType = "ATTACHED"
	// EventDetached: the active controller went away.
	EventDetached EventType = "DETACHED"
	// EventButton: a button transitioned from released to pressed.
	EventButton EventType = "BUTTON"
)

// Event is one controller state change observed between two polls.
type Event struct {
	Type   EventType
	Name   string // device name, ATTACHED only
	Button int    // button index, BUTTON only
}

// Reader yields controller events. Poll never blocks on hardware and returns
// nil when nothing happened.
type Reader interface {
	Poll() []Event
	Close() error
}

// ButtonName names the face buttons of a PlayStation controller as the Linux
// joystick driver numbers them. Other indices fall back to the number.
func ButtonName(button int) string {
	switch button {
	case 0:
		return "Cross"
	case 1:
		return "Circle"
	case 2:
		return "Square"
	case 3:
		return "Triangle"
	}
	return fmt.Sprintf("Button %d", button)
}

// pressedButtons returns the indices of buttons that are down in cur but
// were up in prev, in ascending order.
func pressedButtons(prev, cur uint32) []int {
	edges := cur &^ prev
	if edges == 0 {
		return nil
	}
	var out []int
	for i := 0; i < 32; i++ {
		if edges&(1<<uint(i)) != 0 {
			out = append(out, i)
		}
	}
	return out
}
