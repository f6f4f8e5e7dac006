package pad

import (
	"time"

	"github.com/0xcafed00d/joystick"
)

const (
	// maxDevices is how many joystick ids to try when scanning.
	maxDevices = 8
	// rescanEvery limits how often a detached reader rescans for devices.
	rescanEvery = time.Second
)

// RealReader reads the first available joystick device. While no device is
// attached it rescans at most once per rescanEvery; button edges are derived
// from the bitmask difference between consecutive reads.
type RealReader struct {
	js       joystick.Joystick
	buttons  uint32
	lastScan time.Time
}

// NewReader returns a RealReader that has not yet attached to a device.
// The first Poll scans immediately.
func NewReader() *RealReader {
	return &RealReader{}
}

func (r *RealReader) Poll() []Event {
	if r.js == nil {
		return r.scan()
	}
	state, err := r.js.Read()
	if err != nil {
		// Read failures mean the device is gone. Drop it and let the
		// next poll start scanning again.
		r.js.Close()
		r.js = nil
		r.buttons = 0
		return []Event{{Type: EventDetached}}
	}
	pressed := pressedButtons(r.buttons, state.Buttons)
	r.buttons = state.Buttons
	if len(pressed) == 0 {
		return nil
	}
	events := make([]Event, 0, len(pressed))
	for _, b := range pressed {
		events = append(events, Event{Type: EventButton, Button: b})
	}
	return events
}

func (r *RealReader) scan() []Event {
	now := time.Now()
	if !r.lastScan.IsZero() && now.Sub(r.lastScan) < rescanEvery {
		return nil
	}
	r.lastScan = now
	for id := 0; id < maxDevices; id++ {
		js, err := joystick.Open(id)
		if err != nil {
			continue
		}
		state, err := js.Read()
		if err != nil {
			js.Close()
			continue
		}
		r.js = js
		// Seed the mask from the first read so buttons already held at
		// attach time do not fire as presses.
		r.buttons = state.Buttons
		return []Event{{Type: EventAttached, Name: js.Name()}}
	}
	return nil
}

func (r *RealReader) Close() error {
	if r.js != nil {
		r.js.Close()
		r.js = nil
	}
	return nil
}
