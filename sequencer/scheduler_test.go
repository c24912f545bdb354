package sequencer

import (
	"testing"

	"github.com/pkg/errors"
)

func newTestScheduler(r *rig, trackID string) *TrackScheduler {
	s := NewTrackScheduler(r.clock, r.dispatcher)
	s.Initialize(trackID, 16, AccessorFor(r.store, trackID), func(step int) {
		r.publisher.Publish(StepAdvanced{TrackID: trackID, Step: step})
	})
	return s
}

// stepsPlayed returns the tick index of every note a track sounded
func stepsPlayed(r *rig, trackID string) []int64 {
	var out []int64
	for _, n := range r.publisher.Notes() {
		if n.TrackID == trackID {
			out = append(out, int64(n.AudioTime/StepSeconds(16, r.clock.Tempo())+0.5))
		}
	}
	return out
}

func TestSchedulerStartIsIdempotent(t *testing.T) {
	r := newRig(t)
	r.addTrack("a", 0)
	s := newTestScheduler(r, "a")
	s.Start()
	s.Start()
	r.clock.Start()
	r.clock.Advance(1)

	if got := len(r.publisher.Notes()); got != 1 {
		t.Fatalf("double Start dispatched %d notes, want 1", got)
	}
}

func TestSchedulerAdvancesAndWraps(t *testing.T) {
	r := newRig(t)
	r.addTrack("a", 0)
	s := newTestScheduler(r, "a")
	s.Start()
	r.clock.Start()
	r.clock.Advance(17)

	steps := r.publisher.Steps("a")
	if len(steps) != 17 || steps[14] != 15 || steps[15] != 0 || steps[16] != 1 {
		t.Fatalf("steps = %v", steps)
	}
	if got := stepsPlayed(r, "a"); len(got) != 2 || got[0] != 0 || got[1] != 16 {
		t.Fatalf("played at %v, want [0 16]", got)
	}
	if s.Step() != 1 {
		t.Fatalf("Step() = %d, want 1", s.Step())
	}
}

func TestSchedulerHearsMovedBeatNextTick(t *testing.T) {
	r := newRig(t)
	r.addTrack("a", 6)
	s := newTestScheduler(r, "a")
	s.Start()
	r.clock.Start()

	r.clock.Advance(5) // steps 0-4
	if err := r.store.MoveBeat("a", "a-6", 8); err != nil {
		t.Fatal(err)
	}
	r.clock.Advance(11) // rest of the cycle
	if got := stepsPlayed(r, "a"); len(got) != 1 || got[0] != 8 {
		t.Fatalf("moved forward: played at %v, want [8]", got)
	}

	// moved behind the playhead: silent until the next cycle
	r.clock.Advance(7) // steps 0-6, beat at 8
	if err := r.store.MoveBeat("a", "a-6", 5); err != nil {
		t.Fatal(err)
	}
	r.clock.Advance(9)
	if got := stepsPlayed(r, "a"); len(got) != 1 {
		t.Fatalf("moved back: played at %v, want only [8]", got)
	}
	r.clock.Advance(6)
	if got := stepsPlayed(r, "a"); len(got) != 2 || got[1] != 37 {
		t.Fatalf("next cycle: played at %v, want [8 37]", got)
	}
}

func TestSchedulerUsesLiveTrackSettings(t *testing.T) {
	r := newRig(t)
	r.addTrack("a", 0, 1)
	s := newTestScheduler(r, "a")
	s.Start()
	r.clock.Start()

	r.clock.Advance(1)
	if err := r.store.SetOctave("a", 5); err != nil {
		t.Fatal(err)
	}
	if err := r.store.SetVolume("a", 0); err != nil {
		t.Fatal(err)
	}
	r.clock.Advance(1)

	notes := r.publisher.Notes()
	if len(notes) != 2 || notes[0].Octave != 4 || notes[1].Octave != 5 {
		t.Fatalf("notes = %+v", notes)
	}
	if r.engine.gains["piano"] != MinGainDB {
		t.Fatalf("gain = %v, want %v", r.engine.gains["piano"], MinGainDB)
	}
}

func TestSchedulerLiveMute(t *testing.T) {
	r := newRig(t)
	r.addTrack("a", 0, 1, 2)
	s := newTestScheduler(r, "a")
	s.Start()
	r.clock.Start()

	r.clock.Advance(1)
	r.store.SetMuted("a", true)
	r.clock.Advance(1)
	r.store.SetMuted("a", false)
	r.clock.Advance(1)

	if got := stepsPlayed(r, "a"); len(got) != 2 || got[0] != 0 || got[1] != 2 {
		t.Fatalf("played at %v, want [0 2]", got)
	}
	if steps := r.publisher.Steps("a"); len(steps) != 3 {
		t.Fatalf("muted track should keep stepping, steps = %v", steps)
	}
}

func TestSchedulerSurvivesBadReads(t *testing.T) {
	r := newRig(t)
	calls := 0
	s := NewTrackScheduler(r.clock, r.dispatcher)
	s.Initialize("a", 4, func() (Track, error) {
		calls++
		switch calls {
		case 1:
			panic("editor gone")
		case 2:
			return Track{}, errors.New("locked")
		}
		return Track{ID: "a", InstrumentID: "piano", Octave: 4, Volume: 1, Beats: []Beat{
			{ID: "x", Step: 2, DurationSteps: 1},
			{ID: "y", Step: 3, DurationSteps: 1},
		}}, nil
	}, nil)
	s.Start()
	r.clock.Start()
	r.clock.Advance(4)

	notes := r.publisher.Notes()
	if len(notes) != 2 || notes[0].BeatID != "x" || notes[1].BeatID != "y" {
		t.Fatalf("notes = %+v", notes)
	}
	if s.Step() != 0 {
		t.Fatalf("step = %d, want 0", s.Step())
	}
}

func TestSchedulerSkipsMalformedBeats(t *testing.T) {
	r := newRig(t)
	r.store.AddTrack(Track{ID: "a", InstrumentID: "piano", Octave: 4, Volume: 1, Beats: []Beat{
		{ID: "neg", Step: -1, DurationSteps: 1},
		{ID: "far", Step: 16, DurationSteps: 1},
		{ID: "zero", Step: 0, DurationSteps: 0},
		{ID: "ok", Step: 1, DurationSteps: 2},
	}})
	s := newTestScheduler(r, "a")
	s.Start()
	r.clock.Start()
	r.clock.Advance(16)

	notes := r.publisher.Notes()
	if len(notes) != 2 {
		t.Fatalf("notes = %+v", notes)
	}
	if notes[0].BeatID != "zero" || notes[0].DurationNotation != "sixteenth" {
		t.Fatalf("coerced beat = %+v", notes[0])
	}
	if notes[1].BeatID != "ok" || notes[1].DurationNotation != "eighth" {
		t.Fatalf("valid beat = %+v", notes[1])
	}
}

func TestSchedulerStopResetsAndCancels(t *testing.T) {
	r := newRig(t)
	r.addTrack("a", 0)
	s := newTestScheduler(r, "a")
	s.Start()
	r.clock.Start()
	r.clock.Advance(5)

	s.Stop()
	s.Stop()
	if s.Step() != 0 || s.Started() {
		t.Fatalf("after stop: step=%d started=%v", s.Step(), s.Started())
	}
	if len(r.engine.cancelled) != 1 || r.engine.cancelled[0] != "a" {
		t.Fatalf("cancelled = %v", r.engine.cancelled)
	}

	r.clock.Advance(16)
	if got := len(r.publisher.Notes()); got != 1 {
		t.Fatalf("stopped scheduler dispatched, notes = %d", got)
	}
}
