package sequencer

import (
	"sync"
	"time"

	"stepseq/debug"
)

// Tick is one step of the master clock
type Tick struct {
	Index int64   // ticks since the clock was last reset
	Time  float64 // seconds since the clock was last reset, at the start of this tick
}

// Clock is the shared tempo and tick source. It knows nothing about tracks.
// Subscribers are called in subscription order, one tick at a time, and must
// not block.
type Clock interface {
	Start()
	Stop()
	Reset() // back to position zero
	Running() bool
	Position() int64

	SetTempo(bpm float64)
	Tempo() float64
	SetCycleLength(steps int)
	CycleLength() int

	Subscribe(fn func(Tick)) (unsubscribe func())
}

// tickHub is the subscriber list shared by the clock implementations
type tickHub struct {
	mu     sync.Mutex
	nextID int
	subs   []subscriber
}

type subscriber struct {
	id int
	fn func(Tick)
}

func (h *tickHub) subscribe(fn func(Tick)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	h.subs = append(h.subs, subscriber{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			for i, s := range h.subs {
				if s.id == id {
					h.subs = append(h.subs[:i:i], h.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// fire calls subscribers outside the lock so they may (un)subscribe
func (h *tickHub) fire(t Tick) {
	h.mu.Lock()
	subs := make([]subscriber, len(h.subs))
	copy(subs, h.subs)
	h.mu.Unlock()

	for _, s := range subs {
		s.fn(t)
	}
}

// transport is the tempo/position state common to both clocks
type transport struct {
	mu          sync.Mutex
	tempo       float64
	cycleLength int
	running     bool
	pos         int64
	elapsed     float64
}

func newTransport() transport {
	return transport{tempo: DefaultTempo, cycleLength: DefaultCycleLength}
}

func (t *transport) SetTempo(bpm float64) {
	if !(bpm > 0) {
		return
	}
	t.mu.Lock()
	t.tempo = bpm
	t.mu.Unlock()
	debug.Log("clock", "tempo=%.2f", bpm)
}

func (t *transport) Tempo() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tempo
}

func (t *transport) SetCycleLength(steps int) {
	if steps <= 0 {
		return
	}
	t.mu.Lock()
	t.cycleLength = steps
	t.mu.Unlock()
}

func (t *transport) CycleLength() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cycleLength
}

func (t *transport) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *transport) Position() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pos
}

func (t *transport) Reset() {
	t.mu.Lock()
	t.pos = 0
	t.elapsed = 0
	t.mu.Unlock()
}

// advanceLocked claims the next tick. The step length is read from the tempo
// in effect now, so tempo changes only touch ticks that have not happened yet.
func (t *transport) advanceLocked() (Tick, float64) {
	tick := Tick{Index: t.pos, Time: t.elapsed}
	step := StepSeconds(t.cycleLength, t.tempo)
	t.pos++
	t.elapsed += step
	return tick, step
}

// TickerClock is a real-time Clock driven by a goroutine. The first tick fires
// as soon as Start is called.
type TickerClock struct {
	transport
	hub  tickHub
	stop chan struct{}
}

// NewTickerClock creates a stopped clock at the default tempo
func NewTickerClock() *TickerClock {
	return &TickerClock{transport: newTransport()}
}

func (c *TickerClock) Subscribe(fn func(Tick)) func() {
	return c.hub.subscribe(fn)
}

// Start is a no-op if the clock is already running
func (c *TickerClock) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	c.running = true
	c.stop = make(chan struct{})
	go c.run(c.stop)
	debug.Log("clock", "start pos=%d tempo=%.2f", c.pos, c.tempo)
}

// Stop does not wait for the tick goroutine, so it is safe to call from a
// tick subscriber.
func (c *TickerClock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.running = false
	close(c.stop)
	c.stop = nil
	debug.Log("clock", "stop pos=%d", c.pos)
}

func (c *TickerClock) run(stop <-chan struct{}) {
	next := time.Now()
	for {
		if wait := time.Until(next); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-stop:
				timer.Stop()
				return
			case <-timer.C:
			}
		}

		c.mu.Lock()
		select {
		case <-stop:
			c.mu.Unlock()
			return
		default:
		}
		tick, step := c.advanceLocked()
		c.mu.Unlock()

		c.hub.fire(tick)
		next = next.Add(time.Duration(step * float64(time.Second)))
	}
}

// ManualClock is a Clock advanced by the caller. Used for offline rendering
// and tests.
type ManualClock struct {
	transport
	hub tickHub
}

// NewManualClock creates a stopped manual clock at the default tempo
func NewManualClock() *ManualClock {
	return &ManualClock{transport: newTransport()}
}

func (c *ManualClock) Subscribe(fn func(Tick)) func() {
	return c.hub.subscribe(fn)
}

func (c *ManualClock) Start() {
	c.mu.Lock()
	c.running = true
	c.mu.Unlock()
}

func (c *ManualClock) Stop() {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
}

// Advance fires up to n ticks, stopping early if the clock is stopped by a
// subscriber. It returns the number of ticks fired.
func (c *ManualClock) Advance(n int) int {
	fired := 0
	for i := 0; i < n; i++ {
		c.mu.Lock()
		if !c.running {
			c.mu.Unlock()
			break
		}
		tick, _ := c.advanceLocked()
		c.mu.Unlock()

		c.hub.fire(tick)
		fired++
	}
	return fired
}
