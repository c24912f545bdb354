package sequencer

import (
	"math"

	"stepseq/debug"
	"stepseq/theory"
)

// MinGainDB is the gain used for silent tracks instead of -Inf
const MinGainDB = -60.0

// NoteTrigger is one note-on request to the audio engine
type NoteTrigger struct {
	TrackID  string
	Voice    Voice
	Pitch    theory.Pitch
	Duration Resolved
	At       float64 // clock time, seconds
}

// AudioEngine is the sound-producing side. Every method is called from the
// tick path and must return without waiting.
type AudioEngine interface {
	TriggerNote(n NoteTrigger)
	SetVoiceGain(voiceID string, db float64)
	// CancelTrack drops the track's pending note-offs and silences its notes
	CancelTrack(trackID string)
	ReleaseAll()
}

// PitchResolver is the music-theory lookup
type PitchResolver interface {
	NameAndFrequencyFor(scaleDegree, octave int) (theory.Pitch, error)
}

// NoteDispatcher turns a beat into one engine trigger and one NoteSounded
type NoteDispatcher struct {
	engine      AudioEngine
	pitches     PitchResolver
	instruments InstrumentResolver
	publisher   Publisher
	fallback    Voice
	drums       PitchResolver // used for FamilyDrums voices when set
}

// NewNoteDispatcher wires a dispatcher. The fallback voice is DefaultVoice.
func NewNoteDispatcher(engine AudioEngine, pitches PitchResolver, instruments InstrumentResolver, publisher Publisher) *NoteDispatcher {
	return &NoteDispatcher{
		engine:      engine,
		pitches:     pitches,
		instruments: instruments,
		publisher:   publisher,
		fallback:    DefaultVoice(),
	}
}

// SetFallback replaces the voice used when an instrument is not ready
func (d *NoteDispatcher) SetFallback(v Voice) {
	d.fallback = v
}

// SetDrumKit makes drum-family voices take their pitch from kit instead of
// the scale
func (d *NoteDispatcher) SetDrumKit(kit PitchResolver) {
	d.drums = kit
}

// GainDB converts a linear volume to decibels, floored at MinGainDB
func GainDB(volume float64) float64 {
	if !(volume > 0) {
		return MinGainDB
	}
	return max(20*math.Log10(min(volume, 1)), MinGainDB)
}

// Dispatch plays beat with the track's instrument, octave and volume. The
// beat's own octave is ignored. An instrument that is not ready is replaced
// by the fallback voice; the published event still names the track's
// instrument.
func (d *NoteDispatcher) Dispatch(track Track, beat Beat, dur Resolved, at float64) {
	voice, ok := d.instruments.Resolve(track.InstrumentID)
	if !ok {
		debug.Warn("dispatch", "track=%s instrument=%s: %v, using %s", track.ID, track.InstrumentID, ErrResourceUnavailable, d.fallback.ID)
		voice = d.fallback
	}

	pitches := d.pitches
	if voice.Family == FamilyDrums && d.drums != nil {
		pitches = d.drums
	}
	pitch, err := pitches.NameAndFrequencyFor(beat.ScaleDegree, track.Octave)
	if err != nil {
		debug.Warn("dispatch", "%v", &ValidationError{TrackID: track.ID, BeatID: beat.ID, Reason: err.Error()})
		return
	}

	d.engine.SetVoiceGain(voice.ID, GainDB(track.Volume))
	d.engine.TriggerNote(NoteTrigger{
		TrackID:  track.ID,
		Voice:    voice,
		Pitch:    pitch,
		Duration: dur,
		At:       at,
	})

	d.publisher.Publish(NoteSounded{
		TrackID:          track.ID,
		BeatID:           beat.ID,
		ScaleDegree:      beat.ScaleDegree,
		Octave:           track.Octave,
		InstrumentID:     track.InstrumentID,
		PitchName:        pitch.Name,
		DurationNotation: dur.String(),
		Frequency:        pitch.Frequency,
		AudioTime:        at,
		Fallback:         !ok,
	})
	debug.Log("dispatch", "track=%s beat=%s pitch=%s dur=%s at=%.3f", track.ID, beat.ID, pitch.Name, dur, at)
}

// Cancel drops everything the engine still has pending for a track
func (d *NoteDispatcher) Cancel(trackID string) {
	d.engine.CancelTrack(trackID)
}

// ReleaseAll silences every sounding note
func (d *NoteDispatcher) ReleaseAll() {
	d.engine.ReleaseAll()
}
