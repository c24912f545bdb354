package sequencer

import (
	"sync"

	"stepseq/debug"
)

// Tempo limits applied by Coordinator.SetTempo
const (
	MinTempo = 20.0
	MaxTempo = 300.0
)

// Coordinator owns the running TrackSchedulers and is the only writer of the
// shared clock
type Coordinator struct {
	mu         sync.Mutex
	clock      Clock
	source     Source
	dispatcher *NoteDispatcher
	publisher  Publisher

	schedulers map[string]*TrackScheduler
	order      []string // start order, which is also tick order
}

// NewCoordinator wires a coordinator to an explicitly constructed clock
func NewCoordinator(clock Clock, source Source, dispatcher *NoteDispatcher, publisher Publisher) *Coordinator {
	return &Coordinator{
		clock:      clock,
		source:     source,
		dispatcher: dispatcher,
		publisher:  publisher,
		schedulers: make(map[string]*TrackScheduler),
	}
}

// Clock returns the shared clock
func (c *Coordinator) Clock() Clock {
	return c.clock
}

// ClampTempo limits bpm to [MinTempo, MaxTempo]
func ClampTempo(bpm float64) float64 {
	if !(bpm > 0) {
		return DefaultTempo
	}
	return min(max(bpm, MinTempo), MaxTempo)
}

// StartAll replaces whatever is playing with every track that is playing,
// unmuted and has at least one beat. All schedulers are wired before the
// clock starts, so they share step 0.
func (c *Coordinator) StartAll(tracks []Track, tempo float64, cycleLength int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopAllLocked(false)
	if cycleLength <= 0 {
		cycleLength = DefaultCycleLength
	}
	c.clock.SetTempo(ClampTempo(tempo))
	c.clock.SetCycleLength(cycleLength)

	for _, t := range tracks {
		if !t.Playing || t.Muted || len(t.Beats) == 0 {
			continue
		}
		c.addLocked(t.ID, cycleLength).Start()
	}
	if len(c.order) == 0 {
		debug.Log("coord", "startAll: nothing to play")
		return
	}

	c.clock.Reset()
	c.clock.Start()
	debug.Log("coord", "startAll tracks=%v tempo=%.2f cycle=%d", c.order, c.clock.Tempo(), cycleLength)
}

// StartOne adds a track to what is playing. If the clock is already running
// the track's step 0 is the next tick, which need not line up with the bar
// position of the other tracks.
func (c *Coordinator) StartOne(track Track, cycleLength int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.schedulers[track.ID]; ok {
		debug.Log("coord", "startOne: track=%s already playing", track.ID)
		return
	}
	if cycleLength <= 0 {
		cycleLength = c.clock.CycleLength()
	}
	running := c.clock.Running()
	if !running {
		c.clock.SetCycleLength(cycleLength)
	}
	c.addLocked(track.ID, cycleLength).Start()
	if !running {
		c.clock.Reset()
		c.clock.Start()
	}
	debug.Log("coord", "startOne track=%s cycle=%d joined=%v", track.ID, cycleLength, running)
}

// StopOne disposes one track's scheduler. When none remain the clock is
// stopped and rewound.
func (c *Coordinator) StopOne(trackID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.schedulers[trackID]
	if !ok {
		return
	}
	s.Stop()
	delete(c.schedulers, trackID)
	for i, id := range c.order {
		if id == trackID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	debug.Log("coord", "stopOne track=%s remaining=%d", trackID, len(c.order))

	if len(c.order) == 0 {
		c.clock.Stop()
		c.clock.Reset()
	}
}

// StopAll disposes every scheduler, stops the clock and releases every
// sounding note, including ones sustained past the stop point.
func (c *Coordinator) StopAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopAllLocked(true)
}

func (c *Coordinator) stopAllLocked(release bool) {
	for _, id := range c.order {
		c.schedulers[id].Stop()
	}
	c.schedulers = make(map[string]*TrackScheduler)
	c.order = nil
	c.clock.Stop()
	c.clock.Reset()
	if release {
		c.dispatcher.ReleaseAll()
		debug.Log("coord", "stopAll")
	}
}

// ToggleAll stops everything if the clock is running, otherwise starts
// every eligible track. Reports whether playback is now running.
func (c *Coordinator) ToggleAll(tracks []Track, tempo float64, cycleLength int) bool {
	if c.clock.Running() {
		c.StopAll()
		return false
	}
	c.StartAll(tracks, tempo, cycleLength)
	return c.clock.Running()
}

// ToggleOne stops a playing track or starts a stopped one. Reports whether
// the track is now playing.
func (c *Coordinator) ToggleOne(track Track, cycleLength int) bool {
	if c.IsPlaying(track.ID) {
		c.StopOne(track.ID)
		return false
	}
	c.StartOne(track, cycleLength)
	return true
}

// SetTempo changes the tempo for ticks that have not happened yet
func (c *Coordinator) SetTempo(bpm float64) {
	c.clock.SetTempo(ClampTempo(bpm))
}

// Tempo returns the clock tempo
func (c *Coordinator) Tempo() float64 {
	return c.clock.Tempo()
}

// Running reports whether the clock is running
func (c *Coordinator) Running() bool {
	return c.clock.Running()
}

// Playing returns the ids of scheduled tracks in tick order
func (c *Coordinator) Playing() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.order...)
}

// IsPlaying reports whether a track has a scheduler
func (c *Coordinator) IsPlaying(trackID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.schedulers[trackID]
	return ok
}

func (c *Coordinator) addLocked(trackID string, cycleLength int) *TrackScheduler {
	s := NewTrackScheduler(c.clock, c.dispatcher)
	s.Initialize(trackID, cycleLength, AccessorFor(c.source, trackID), func(step int) {
		c.publisher.Publish(StepAdvanced{TrackID: trackID, Step: step})
	})
	c.schedulers[trackID] = s
	c.order = append(c.order, trackID)
	return s
}
