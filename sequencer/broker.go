package sequencer

import "sync/atomic"

type (
	// Event is something the core publishes for visual consumers
	Event interface {
		event()
	}

	// NoteSounded is published once per dispatch. InstrumentID is the id the
	// track asked for, even when a fallback voice played the note.
	NoteSounded struct {
		TrackID          string
		BeatID           string
		ScaleDegree      int
		Octave           int
		InstrumentID     string
		PitchName        string // e.g. "E4"
		DurationNotation string // notation, or seconds such as "0.375s"
		Frequency        float64
		AudioTime        float64
		Fallback         bool
	}

	// StepAdvanced is published after each tick of a track, carrying the step
	// the track will play next
	StepAdvanced struct {
		TrackID string
		Step    int
	}

	// Publisher receives events. Publish must not block.
	Publisher interface {
		Publish(e Event)
	}

	// Broker is a Publisher backed by a buffered channel. Events that do not
	// fit are dropped and counted, never waited on.
	Broker struct {
		events  chan Event
		dropped atomic.Uint64
	}
)

func (NoteSounded) event()  {}
func (StepAdvanced) event() {}

// NewBroker creates a broker holding up to size undelivered events
func NewBroker(size int) *Broker {
	if size <= 0 {
		size = 1024
	}
	return &Broker{events: make(chan Event, size)}
}

// Publish implements Publisher
func (b *Broker) Publish(e Event) {
	if !TrySend(b.events, e) {
		b.dropped.Add(1)
	}
}

// Events is the receive side for consumers
func (b *Broker) Events() <-chan Event {
	return b.events
}

// Dropped returns how many events were discarded because the buffer was full
func (b *Broker) Dropped() uint64 {
	return b.dropped.Load()
}

// TrySend sends v on c if there is room. It never blocks.
func TrySend[T any](c chan<- T, v T) bool {
	select {
	case c <- v:
	default:
		return false
	}
	return true
}
