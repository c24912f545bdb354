package sequencer

import (
	"strconv"
	"sync"

	"github.com/pkg/errors"

	"stepseq/debug"
)

// Beat is one note occurrence. Step and DurationSteps are relative to the
// cycle length of the track it belongs to. DurationSteps may be longer than
// the cycle.
type Beat struct {
	ID            string `json:"id" yaml:"id"`
	Step          int    `json:"step" yaml:"step"`
	ScaleDegree   int    `json:"scaleDegree" yaml:"scaleDegree"`
	Octave        int    `json:"octave" yaml:"octave"` // not used for pitch, the track octave wins
	DurationSteps int    `json:"durationSteps" yaml:"durationSteps"`
}

// Track is one playable lane
type Track struct {
	ID           string  `json:"id" yaml:"id"`
	Beats        []Beat  `json:"beats" yaml:"beats"`
	InstrumentID string  `json:"instrument" yaml:"instrument"`
	Octave       int     `json:"octave" yaml:"octave"`
	Volume       float64 `json:"volume" yaml:"volume"` // linear, 0-1
	Muted        bool    `json:"muted" yaml:"muted"`
	Playing      bool    `json:"playing" yaml:"playing"`
}

// Source is the read-only view of tracks the coordinator plays from.
// Snapshot is called once per tick per track and must return the current
// state, never a copy cached earlier.
type Source interface {
	Snapshot(trackID string) (Track, error)
}

// TrackAccessor reads one track's current state
type TrackAccessor func() (Track, error)

// AccessorFor binds a Source to one track
func AccessorFor(src Source, trackID string) TrackAccessor {
	return func() (Track, error) {
		return src.Snapshot(trackID)
	}
}

// Store holds tracks and their beats. It stands in for the editor: every
// method is safe to call while tracks are playing.
type Store struct {
	mu       sync.RWMutex
	tracks   map[string]*Track
	order    []string
	nextBeat int
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{tracks: make(map[string]*Track)}
}

// AddTrack adds or replaces a track. Beats without an id are given one.
func (s *Store) AddTrack(t Track) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t.Beats = append([]Beat(nil), t.Beats...)
	for i := range t.Beats {
		if t.Beats[i].ID == "" {
			t.Beats[i].ID = s.newBeatIDLocked()
		}
	}
	if _, ok := s.tracks[t.ID]; !ok {
		s.order = append(s.order, t.ID)
	}
	s.tracks[t.ID] = &t
	debug.Log("store", "add track=%s beats=%d", t.ID, len(t.Beats))
}

// RemoveTrack deletes a track
func (s *Store) RemoveTrack(trackID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tracks[trackID]; !ok {
		return errors.Wrapf(ErrUnknownTrack, "remove %s", trackID)
	}
	delete(s.tracks, trackID)
	for i, id := range s.order {
		if id == trackID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Snapshot implements Source. The returned beats are a fresh copy.
func (s *Store) Snapshot(trackID string) (Track, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tracks[trackID]
	if !ok {
		return Track{}, errors.Wrapf(ErrUnknownTrack, "snapshot %s", trackID)
	}
	out := *t
	out.Beats = append([]Beat(nil), t.Beats...)
	return out, nil
}

// Tracks returns snapshots of every track in insertion order
func (s *Store) Tracks() []Track {
	s.mu.RLock()
	ids := append([]string(nil), s.order...)
	s.mu.RUnlock()

	out := make([]Track, 0, len(ids))
	for _, id := range ids {
		if t, err := s.Snapshot(id); err == nil {
			out = append(out, t)
		}
	}
	return out
}

// AddBeat appends a beat to a track and returns it with its id set
func (s *Store) AddBeat(trackID string, b Beat) (Beat, error) {
	var out Beat
	err := s.edit(trackID, func(t *Track) error {
		if b.ID == "" {
			b.ID = s.newBeatIDLocked()
		}
		t.Beats = append(t.Beats, b)
		out = b
		return nil
	})
	return out, err
}

// MoveBeat sets a beat's step
func (s *Store) MoveBeat(trackID, beatID string, step int) error {
	return s.editBeat(trackID, beatID, func(b *Beat) { b.Step = step })
}

// ResizeBeat sets a beat's duration in steps
func (s *Store) ResizeBeat(trackID, beatID string, durationSteps int) error {
	return s.editBeat(trackID, beatID, func(b *Beat) { b.DurationSteps = durationSteps })
}

// RemoveBeat deletes a beat
func (s *Store) RemoveBeat(trackID, beatID string) error {
	return s.edit(trackID, func(t *Track) error {
		for i := range t.Beats {
			if t.Beats[i].ID == beatID {
				t.Beats = append(t.Beats[:i:i], t.Beats[i+1:]...)
				return nil
			}
		}
		return errors.Wrapf(ErrUnknownBeat, "track %s beat %s", trackID, beatID)
	})
}

// SetMuted sets a track's mute state
func (s *Store) SetMuted(trackID string, muted bool) error {
	return s.edit(trackID, func(t *Track) error { t.Muted = muted; return nil })
}

// SetVolume sets a track's linear volume, clamped to 0-1
func (s *Store) SetVolume(trackID string, volume float64) error {
	return s.edit(trackID, func(t *Track) error {
		t.Volume = min(max(volume, 0), 1)
		return nil
	})
}

// SetOctave sets the octave used for every beat of the track
func (s *Store) SetOctave(trackID string, octave int) error {
	return s.edit(trackID, func(t *Track) error { t.Octave = octave; return nil })
}

// SetInstrument sets a track's instrument id
func (s *Store) SetInstrument(trackID, instrumentID string) error {
	return s.edit(trackID, func(t *Track) error { t.InstrumentID = instrumentID; return nil })
}

// SetPlaying sets whether the track takes part in StartAll
func (s *Store) SetPlaying(trackID string, playing bool) error {
	return s.edit(trackID, func(t *Track) error { t.Playing = playing; return nil })
}

func (s *Store) edit(trackID string, fn func(t *Track) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tracks[trackID]
	if !ok {
		return errors.Wrapf(ErrUnknownTrack, "edit %s", trackID)
	}
	return fn(t)
}

func (s *Store) editBeat(trackID, beatID string, fn func(b *Beat)) error {
	return s.edit(trackID, func(t *Track) error {
		for i := range t.Beats {
			if t.Beats[i].ID == beatID {
				fn(&t.Beats[i])
				return nil
			}
		}
		return errors.Wrapf(ErrUnknownBeat, "track %s beat %s", trackID, beatID)
	})
}

func (s *Store) newBeatIDLocked() string {
	s.nextBeat++
	return "b" + strconv.Itoa(s.nextBeat)
}
