package sequencer

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestManualClockSubscriberOrder(t *testing.T) {
	c := NewManualClock()
	var got []string
	c.Subscribe(func(Tick) { got = append(got, "a") })
	c.Subscribe(func(Tick) { got = append(got, "b") })
	c.Subscribe(func(Tick) { got = append(got, "c") })

	if n := c.Advance(1); n != 0 {
		t.Fatalf("stopped clock fired %d ticks", n)
	}
	c.Start()
	c.Advance(2)

	want := []string{"a", "b", "c", "a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestManualClockUnsubscribe(t *testing.T) {
	c := NewManualClock()
	var n int
	unsubscribe := c.Subscribe(func(Tick) { n++ })
	c.Start()
	c.Advance(3)
	unsubscribe()
	unsubscribe()
	c.Advance(3)
	if n != 3 {
		t.Fatalf("subscriber called %d times, want 3", n)
	}
}

func TestManualClockTempoAffectsFutureTicksOnly(t *testing.T) {
	c := NewManualClock()
	c.SetTempo(120)
	var ticks []Tick
	c.Subscribe(func(tk Tick) { ticks = append(ticks, tk) })
	c.Start()

	c.Advance(2)
	c.SetTempo(60)
	c.Advance(2)

	// 120 bpm, 16 steps: 0.125s per step. 60 bpm: 0.25s.
	want := []float64{0, 0.125, 0.25, 0.5}
	for i, w := range want {
		if !approx(ticks[i].Time, w) {
			t.Fatalf("tick %d time = %v, want %v", i, ticks[i].Time, w)
		}
		if ticks[i].Index != int64(i) {
			t.Fatalf("tick %d index = %d", i, ticks[i].Index)
		}
	}
}

func TestManualClockStopFromSubscriber(t *testing.T) {
	c := NewManualClock()
	c.Subscribe(func(tk Tick) {
		if tk.Index == 2 {
			c.Stop()
		}
	})
	c.Start()
	if n := c.Advance(10); n != 3 {
		t.Fatalf("fired %d ticks, want 3", n)
	}
	if c.Position() != 3 {
		t.Fatalf("position = %d, want 3", c.Position())
	}
	c.Reset()
	if c.Position() != 0 {
		t.Fatalf("position after reset = %d", c.Position())
	}
}

func TestClockIgnoresInvalidSettings(t *testing.T) {
	c := NewManualClock()
	c.SetTempo(0)
	c.SetTempo(-5)
	c.SetCycleLength(0)
	if c.Tempo() != DefaultTempo || c.CycleLength() != DefaultCycleLength {
		t.Fatalf("tempo=%v cycle=%d", c.Tempo(), c.CycleLength())
	}
}

func TestTickerClockStartStop(t *testing.T) {
	c := NewTickerClock()
	c.SetTempo(300)
	c.SetCycleLength(32) // 25ms per step

	var n atomic.Int64
	first := make(chan struct{}, 1)
	c.Subscribe(func(Tick) {
		n.Add(1)
		TrySend(first, struct{}{})
	})

	c.Start()
	c.Start()
	select {
	case <-first:
	case <-time.After(time.Second):
		t.Fatal("no tick within a second of Start")
	}
	if !c.Running() {
		t.Fatal("clock not running")
	}

	c.Stop()
	c.Stop()
	if c.Running() {
		t.Fatal("clock still running after Stop")
	}
	time.Sleep(30 * time.Millisecond)
	stopped := n.Load()
	time.Sleep(100 * time.Millisecond)
	if got := n.Load(); got != stopped {
		t.Fatalf("ticks after stop: %d -> %d", stopped, got)
	}
}
