package sequencer

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"stepseq/debug"
)

// StepFunc is called after every tick with the step the track plays next
type StepFunc func(step int)

// TrackScheduler plays one track against the shared clock. On every tick it
// reads the track fresh through its accessor, so edits made between ticks are
// heard on the next tick without rebuilding anything.
type TrackScheduler struct {
	mu          sync.Mutex
	clock       Clock
	dispatcher  *NoteDispatcher
	trackID     string
	cycleLength int
	read        TrackAccessor
	onStep      StepFunc

	step        int
	started     bool
	unsubscribe func()
}

// NewTrackScheduler creates a scheduler bound to clock. Call Initialize
// before Start.
func NewTrackScheduler(clock Clock, dispatcher *NoteDispatcher) *TrackScheduler {
	return &TrackScheduler{clock: clock, dispatcher: dispatcher}
}

// Initialize wires the track. read must return the live track every time it
// is called. Timing does not start until Start.
func (s *TrackScheduler) Initialize(trackID string, cycleLength int, read TrackAccessor, onStep StepFunc) {
	if cycleLength <= 0 {
		cycleLength = DefaultCycleLength
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trackID = trackID
	s.cycleLength = cycleLength
	s.read = read
	s.onStep = onStep
	s.step = 0
}

// TrackID returns the id given to Initialize
func (s *TrackScheduler) TrackID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trackID
}

// Step returns the step the next tick will play
func (s *TrackScheduler) Step() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// Started reports whether the scheduler is following the clock
func (s *TrackScheduler) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// Start subscribes to the clock from step 0. Starting twice is a no-op.
func (s *TrackScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.step = 0
	s.unsubscribe = s.clock.Subscribe(s.OnTick)
	debug.Log("sched", "start track=%s cycle=%d", s.trackID, s.cycleLength)
}

// Stop unsubscribes, cancels the track's pending note-offs and rewinds to
// step 0. Stopping a stopped scheduler is a no-op.
func (s *TrackScheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.step = 0
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	trackID := s.trackID
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	s.dispatcher.Cancel(trackID)
	debug.Log("sched", "stop track=%s", trackID)
}

// OnTick plays the beats on the current step and advances. It never blocks
// and never fails: a bad read plays nothing this step, a bad beat is skipped.
func (s *TrackScheduler) OnTick(tick Tick) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	step := s.step
	cycle := s.cycleLength

	track, err := s.readTrack()
	if err != nil {
		debug.Warn("sched", "track=%s step=%d: %v", s.trackID, step, err)
	} else if !track.Muted {
		tempo := s.clock.Tempo()
		for _, b := range track.Beats {
			if b.Step < 0 || b.Step >= cycle {
				// once per cycle is enough
				if step == 0 {
					debug.Warn("sched", "%v", &ValidationError{TrackID: s.trackID, BeatID: b.ID, Reason: fmt.Sprintf("step %d outside cycle of %d", b.Step, cycle)})
				}
				continue
			}
			if b.Step != step {
				continue
			}
			dur := ResolveDuration(b.DurationSteps, cycle, tempo)
			if dur.Coerced {
				debug.Warn("sched", "%v", &ValidationError{TrackID: s.trackID, BeatID: b.ID, Reason: fmt.Sprintf("duration %d steps, playing 1", b.DurationSteps)})
			}
			s.dispatcher.Dispatch(track, b, dur, tick.Time)
		}
	}

	s.step = (step + 1) % cycle
	next := s.step
	onStep := s.onStep
	s.mu.Unlock()

	if onStep != nil {
		onStep(next)
	}
}

// readTrack calls the accessor, turning a panic into ErrTransientRead
func (s *TrackScheduler) readTrack() (t Track, err error) {
	if s.read == nil {
		return Track{}, errors.Wrap(ErrTransientRead, "no accessor")
	}
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrapf(ErrTransientRead, "panic: %v", r)
		}
	}()
	t, err = s.read()
	if err != nil {
		return Track{}, errors.Wrapf(ErrTransientRead, "%v", err)
	}
	if t.ID == "" {
		t.ID = s.trackID
	}
	return t, nil
}
