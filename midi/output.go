package midi

import (
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"stepseq/debug"
	"stepseq/sequencer"
)

// Controller numbers sent by Output
const (
	CCVolume      uint8 = 7
	CCRelease     uint8 = 72
	CCAttack      uint8 = 73
	CCAllNotesOff uint8 = 123
)

// Velocity for every note. Loudness is carried by CC7.
const Velocity uint8 = 100

// Sender writes one message to a port
type Sender func(msg gomidi.Message) error

// afterFunc schedules f and returns a function that cancels it
type afterFunc func(d time.Duration, f func()) (stop func() bool)

func timerAfter(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

type noteKey struct {
	channel uint8
	key     uint8
}

type heldNote struct {
	stop func() bool
}

type channelState struct {
	voiceID string
	volume  int // -1 until sent
}

// Output is a sequencer.AudioEngine that plays voices on a MIDI port. Each
// voice owns a channel; program and envelope are sent when the voice on a
// channel changes. Note-offs run on timers.
type Output struct {
	mu    sync.Mutex
	port  drivers.Out
	send  Sender
	after afterFunc

	gains    map[string]float64 // voice id -> dB
	channels map[uint8]*channelState
	held     map[string]map[noteKey]*heldNote // track id -> sounding notes
}

// NewOutput creates an output writing through send. A nil send logs notes
// without playing them.
func NewOutput(send Sender) *Output {
	return &Output{
		send:     send,
		after:    timerAfter,
		gains:    make(map[string]float64),
		channels: make(map[uint8]*channelState),
		held:     make(map[string]map[noteKey]*heldNote),
	}
}

// OpenOutput opens the first output port whose name contains portName. An
// empty name takes the first port.
func OpenOutput(portName string) (*Output, error) {
	port, err := findOut(portName)
	if err != nil {
		return nil, err
	}
	send, err := gomidi.SendTo(port)
	if err != nil {
		return nil, errors.Wrapf(err, "open output %s", port.String())
	}
	o := NewOutput(send)
	o.port = port
	debug.Log("midi", "output open: %s", port.String())
	return o, nil
}

// PortName returns the open port's name, or "" when notes are only logged
func (o *Output) PortName() string {
	if o.port == nil {
		return ""
	}
	return o.port.String()
}

// VolumeCC maps decibels to a CC7 value on the General MIDI curve
// (dB = 40 * log10(cc / 127)).
func VolumeCC(db float64) uint8 {
	if db <= sequencer.MinGainDB {
		return 0
	}
	v := math.Round(127 * math.Pow(10, min(db, 0)/40))
	return uint8(min(max(v, 0), 127))
}

// EnvelopeCC maps an envelope time in seconds to a 0-127 controller value,
// with 127 at two seconds or more.
func EnvelopeCC(seconds float64) uint8 {
	return uint8(math.Round(127 * min(max(seconds, 0)/2, 1)))
}

// SetVoiceGain implements sequencer.AudioEngine. The volume is sent with the
// voice's next note.
func (o *Output) SetVoiceGain(voiceID string, db float64) {
	o.mu.Lock()
	o.gains[voiceID] = db
	o.mu.Unlock()
}

// TriggerNote implements sequencer.AudioEngine
func (o *Output) TriggerNote(n sequencer.NoteTrigger) {
	o.mu.Lock()
	defer o.mu.Unlock()

	ch := n.Voice.Channel
	o.prepareChannelLocked(n.Voice)

	k := noteKey{channel: ch, key: n.Pitch.MIDI}
	notes := o.held[n.TrackID]
	if notes == nil {
		notes = make(map[noteKey]*heldNote)
		o.held[n.TrackID] = notes
	}
	// retrigger: end the previous instance first
	if prev, ok := notes[k]; ok {
		prev.stop()
		o.sendLocked(gomidi.NoteOff(ch, k.key))
	}

	o.sendLocked(gomidi.NoteOn(ch, k.key, Velocity))

	h := &heldNote{}
	trackID := n.TrackID
	h.stop = o.after(n.Duration.Duration(), func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		if o.held[trackID][k] != h {
			return
		}
		delete(o.held[trackID], k)
		o.sendLocked(gomidi.NoteOff(k.channel, k.key))
	})
	notes[k] = h

	debug.LogEvery(64, "midi", "note on ch=%d key=%d voice=%s dur=%s", ch, k.key, n.Voice.ID, n.Duration)
}

// CancelTrack implements sequencer.AudioEngine
func (o *Output) CancelTrack(trackID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := o.releaseTrackLocked(trackID)
	debug.Log("midi", "cancel track=%s released=%d", trackID, n)
}

// ReleaseAll implements sequencer.AudioEngine. Every used channel also gets
// All Notes Off, which catches notes held by the synth past their note-off.
func (o *Output) ReleaseAll() {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for id := range o.held {
		n += o.releaseTrackLocked(id)
	}
	for ch := range o.channels {
		o.sendLocked(gomidi.ControlChange(ch, CCAllNotesOff, 0))
	}
	debug.Log("midi", "release all: notes=%d channels=%d", n, len(o.channels))
}

// Sounding returns how many notes are waiting for their note-off
func (o *Output) Sounding() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, notes := range o.held {
		n += len(notes)
	}
	return n
}

// Close releases everything and closes the port
func (o *Output) Close() error {
	o.ReleaseAll()
	if o.port == nil {
		return nil
	}
	return o.port.Close()
}

func (o *Output) prepareChannelLocked(v sequencer.Voice) {
	ch := v.Channel
	st, ok := o.channels[ch]
	if !ok {
		st = &channelState{volume: -1}
		o.channels[ch] = st
	}
	if st.voiceID != v.ID {
		o.sendLocked(gomidi.ProgramChange(ch, v.Program))
		o.sendLocked(gomidi.ControlChange(ch, CCAttack, EnvelopeCC(v.Envelope.Attack)))
		o.sendLocked(gomidi.ControlChange(ch, CCRelease, EnvelopeCC(v.Envelope.Release)))
		st.voiceID = v.ID
		debug.Log("midi", "ch=%d voice=%s program=%d", ch, v.ID, v.Program)
	}

	db, ok := o.gains[v.ID]
	if !ok {
		db = 0
	}
	if vol := int(VolumeCC(db)); vol != st.volume {
		o.sendLocked(gomidi.ControlChange(ch, CCVolume, uint8(vol)))
		st.volume = vol
	}
}

func (o *Output) releaseTrackLocked(trackID string) int {
	notes := o.held[trackID]
	for k, h := range notes {
		h.stop()
		o.sendLocked(gomidi.NoteOff(k.channel, k.key))
	}
	delete(o.held, trackID)
	return len(notes)
}

func (o *Output) sendLocked(msg gomidi.Message) {
	if o.send == nil {
		debug.LogEvery(256, "midi", "no output: %s", msg)
		return
	}
	if err := o.send(msg); err != nil {
		debug.Warn("midi", "send %s: %v", msg, err)
	}
}
