package midi

import (
	"github.com/pkg/errors"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"stepseq/debug"
)

// System real-time status bytes
const (
	statusStart    = 0xFA
	statusContinue = 0xFB
	statusStop     = 0xFC
)

// RemoteAction is what a remote control message asks for
type RemoteAction int

const (
	RemoteStartAll RemoteAction = iota
	RemoteStopAll
	RemoteToggleTrack
)

// RemoteEvent is one decoded control message. Track is the track index for
// RemoteToggleTrack.
type RemoteEvent struct {
	Action RemoteAction
	Track  int
}

// Remote turns a MIDI input into transport controls: Start/Continue and Stop
// real-time messages start and stop everything, and keys from BaseNote
// upwards toggle tracks 0, 1, 2...
type Remote struct {
	BaseNote uint8

	name   string
	stop   func()
	events chan RemoteEvent
}

// NewRemote creates a remote that is not listening to a port. Feed it with
// Handle.
func NewRemote(baseNote uint8) *Remote {
	return &Remote{
		BaseNote: baseNote,
		events:   make(chan RemoteEvent, 32),
	}
}

// OpenRemote listens on the first input port whose name contains portName
func OpenRemote(portName string, baseNote uint8) (*Remote, error) {
	in, err := findIn(portName)
	if err != nil {
		return nil, err
	}
	r := NewRemote(baseNote)
	if err := r.listen(in); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Remote) listen(in drivers.In) error {
	stop, err := gomidi.ListenTo(in, r.Handle, gomidi.HandleError(func(err error) {
		debug.Warn("midi", "remote %s: %v", in.String(), err)
	}))
	if err != nil {
		return errors.Wrapf(err, "listen %s", in.String())
	}
	r.name = in.String()
	r.stop = stop
	debug.Log("midi", "remote open: %s base=%d", r.name, r.BaseNote)
	return nil
}

// Name returns the input port name
func (r *Remote) Name() string {
	return r.name
}

// Handle decodes one message. Events that do not fit in the buffer are
// dropped.
func (r *Remote) Handle(msg gomidi.Message, timestampms int32) {
	var ev RemoteEvent
	var channel, key, velocity uint8

	switch {
	case len(msg) == 1 && (msg[0] == statusStart || msg[0] == statusContinue):
		ev = RemoteEvent{Action: RemoteStartAll}
	case len(msg) == 1 && msg[0] == statusStop:
		ev = RemoteEvent{Action: RemoteStopAll}
	case msg.GetNoteOn(&channel, &key, &velocity) && velocity > 0:
		if key < r.BaseNote {
			return
		}
		ev = RemoteEvent{Action: RemoteToggleTrack, Track: int(key - r.BaseNote)}
	default:
		return
	}

	select {
	case r.events <- ev:
	default:
		debug.Warn("midi", "remote event dropped: %+v", ev)
	}
}

// Events delivers decoded control messages
func (r *Remote) Events() <-chan RemoteEvent {
	return r.events
}

// Close stops listening. Events is not closed.
func (r *Remote) Close() error {
	if r.stop != nil {
		r.stop()
		r.stop = nil
	}
	return nil
}
