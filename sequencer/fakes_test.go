package sequencer

import (
	"strconv"
	"sync"
	"testing"

	"stepseq/theory"
)

type recordingEngine struct {
	mu        sync.Mutex
	triggers  []NoteTrigger
	gains     map[string]float64
	cancelled []string
	releases  int
}

func newRecordingEngine() *recordingEngine {
	return &recordingEngine{gains: make(map[string]float64)}
}

func (e *recordingEngine) TriggerNote(n NoteTrigger) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.triggers = append(e.triggers, n)
}

func (e *recordingEngine) SetVoiceGain(voiceID string, db float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gains[voiceID] = db
}

func (e *recordingEngine) CancelTrack(trackID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelled = append(e.cancelled, trackID)
}

func (e *recordingEngine) ReleaseAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.releases++
}

func (e *recordingEngine) Triggers() []NoteTrigger {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]NoteTrigger(nil), e.triggers...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(e Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) Notes() []NoteSounded {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []NoteSounded
	for _, e := range p.events {
		if n, ok := e.(NoteSounded); ok {
			out = append(out, n)
		}
	}
	return out
}

func (p *recordingPublisher) Steps(trackID string) []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []int
	for _, e := range p.events {
		if s, ok := e.(StepAdvanced); ok && s.TrackID == trackID {
			out = append(out, s.Step)
		}
	}
	return out
}

// rig is a coordinator on a manual clock with recording collaborators
type rig struct {
	clock      *ManualClock
	store      *Store
	registry   *Registry
	engine     *recordingEngine
	publisher  *recordingPublisher
	dispatcher *NoteDispatcher
	coord      *Coordinator
}

func newRig(t *testing.T) *rig {
	t.Helper()
	scale, err := theory.NewScale("C", theory.ScaleMajor)
	if err != nil {
		t.Fatalf("scale: %v", err)
	}
	r := &rig{
		clock:     NewManualClock(),
		store:     NewStore(),
		registry:  NewRegistry(),
		engine:    newRecordingEngine(),
		publisher: &recordingPublisher{},
	}
	r.registry.Register(NewVoice("piano", FamilyPiano, 0))
	r.registry.MarkReady("piano")
	r.dispatcher = NewNoteDispatcher(r.engine, scale, r.registry, r.publisher)
	r.coord = NewCoordinator(r.clock, r.store, r.dispatcher, r.publisher)
	return r
}

// addTrack adds a playing piano track with one-step beats at steps
func (r *rig) addTrack(id string, steps ...int) {
	t := Track{ID: id, InstrumentID: "piano", Octave: 4, Volume: 1, Playing: true}
	for _, s := range steps {
		t.Beats = append(t.Beats, Beat{ID: id + "-" + strconv.Itoa(s), Step: s, DurationSteps: 1})
	}
	r.store.AddTrack(t)
}

// dispatched returns (track, beat) pairs in dispatch order
func (r *rig) dispatched() [][2]string {
	var out [][2]string
	for _, n := range r.publisher.Notes() {
		out = append(out, [2]string{n.TrackID, n.BeatID})
	}
	return out
}
