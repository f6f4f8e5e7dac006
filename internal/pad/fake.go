package pad

// FakeReader replays scripted event batches, one batch per Poll call.
// After the script is exhausted every Poll returns nil, as a real idle
// controller would.
type FakeReader struct {
	Batches [][]Event
	index   int
	Closed  bool
}

// NewFakeReader returns a FakeReader that replays the given batches.
func NewFakeReader(batches ...[]Event) *FakeReader {
	return &FakeReader{Batches: batches}
}

func (f *FakeReader) Poll() []Event {
	if f.index >= len(f.Batches) {
		return nil
	}
	batch := f.Batches[f.index]
	f.index++
	return batch
}

func (f *FakeReader) Close() error {
	f.Closed = true
	return nil
}

// Press is shorthand for a single button press batch.
func Press(button int) []Event {
	return []Event{{Type: EventButton, Button: button}}
}

// Attach is shorthand for an attach batch.
func Attach(name string) []Event {
	return []Event{{Type: EventAttached, Name: name}}
}

// Detach is shorthand for a detach batch.
func Detach() []Event {
	return []Event{{Type: EventDetached}}
}
