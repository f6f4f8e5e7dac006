package announce

import (
	"github.com/sweeney/rokoko-bridge/internal/bridge"
)

// FakeAnnouncer records published messages for test assertions.
type FakeAnnouncer struct {
	// Updates contains all queue updates that were announced.
	Updates []bridge.Update

	// Payloads contains the JSON payloads of announced updates.
	Payloads [][]byte

	// SystemEvents contains all system events that were announced.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for system events.
	SystemPayloads [][]byte

	// AnnounceError, if set, will be returned by Announce.
	AnnounceError error

	// AnnounceSystemError, if set, will be returned by AnnounceSystem.
	AnnounceSystemError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeAnnouncer creates a FakeAnnouncer for testing.
func NewFakeAnnouncer() *FakeAnnouncer {
	return &FakeAnnouncer{}
}

// Announce records the update.
func (f *FakeAnnouncer) Announce(u bridge.Update) error {
	if f.AnnounceError != nil {
		return f.AnnounceError
	}

	f.Updates = append(f.Updates, u)

	var payload []byte
	var err error
	if u.Kind == bridge.UpdateStatus {
		payload, err = FormatStatusPayload(u)
	} else {
		payload, err = FormatEventPayload(u)
	}
	if err != nil {
		return err
	}
	f.Payloads = append(f.Payloads, payload)

	return nil
}

// AnnounceSystem records the system event.
func (f *FakeAnnouncer) AnnounceSystem(event SystemEvent) error {
	if f.AnnounceSystemError != nil {
		return f.AnnounceSystemError
	}

	f.SystemEvents = append(f.SystemEvents, event)

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemPayloads = append(f.SystemPayloads, payload)

	return nil
}

// Close marks the announcer as closed.
func (f *FakeAnnouncer) Close() error {
	f.Closed = true
	return nil
}

// Reset clears recorded messages.
func (f *FakeAnnouncer) Reset() {
	f.Updates = nil
	f.Payloads = nil
	f.SystemEvents = nil
	f.SystemPayloads = nil
}
