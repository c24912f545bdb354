package sequencer

import (
	"strconv"
	"time"
)

// Notation is a symbolic note length. Empty means the length has no exact
// musical name and must be played by seconds.
type Notation string

const (
	NotationNone         Notation = ""
	NotationThirtySecond Notation = "thirty-second"
	NotationSixteenth    Notation = "sixteenth"
	NotationEighth       Notation = "eighth"
	NotationQuarter      Notation = "quarter"
	NotationHalf         Notation = "half"
	NotationWhole        Notation = "whole"
)

// Defaults substituted for non-positive inputs
const (
	DefaultTempo       = 120.0
	DefaultCycleLength = 16
)

// notations is keyed by how many of the note fit in one cycle
var notations = map[int]Notation{
	32: NotationThirtySecond,
	16: NotationSixteenth,
	8:  NotationEighth,
	4:  NotationQuarter,
	2:  NotationHalf,
	1:  NotationWhole,
}

// Resolved is a step duration converted to wall-clock time
type Resolved struct {
	Steps             int
	Fraction          float64 // Steps / cycle length, may exceed 1
	WholeCycleSeconds float64 // (60 / tempo) * 4
	Seconds           float64
	Notation          Notation

	// Coerced is set when an input was out of range and replaced
	Coerced bool
}

// ResolveDuration converts a duration in steps to seconds and, where one
// exists, a symbolic notation. It never fails: durationSteps <= 0 becomes 1,
// cycleLength <= 0 becomes DefaultCycleLength and tempo <= 0 becomes
// DefaultTempo, with Coerced set on the result.
func ResolveDuration(durationSteps, cycleLength int, tempo float64) Resolved {
	var r Resolved
	if durationSteps <= 0 {
		durationSteps = 1
		r.Coerced = true
	}
	if cycleLength <= 0 {
		cycleLength = DefaultCycleLength
		r.Coerced = true
	}
	if !(tempo > 0) {
		tempo = DefaultTempo
		r.Coerced = true
	}

	r.Steps = durationSteps
	r.Fraction = float64(durationSteps) / float64(cycleLength)
	r.WholeCycleSeconds = (60 / tempo) * 4
	r.Seconds = r.Fraction * r.WholeCycleSeconds

	// Exact only when steps divides the cycle into a power of two
	if cycleLength%durationSteps == 0 {
		r.Notation = notations[cycleLength/durationSteps]
	}
	return r
}

// Symbolic reports whether the duration has a musical name
func (r Resolved) Symbolic() bool {
	return r.Notation != NotationNone
}

// Duration returns the length as a time.Duration
func (r Resolved) Duration() time.Duration {
	return time.Duration(r.Seconds * float64(time.Second))
}

// String returns the notation, or the length in seconds when there is none
func (r Resolved) String() string {
	if r.Symbolic() {
		return string(r.Notation)
	}
	return strconv.FormatFloat(r.Seconds, 'f', -1, 64) + "s"
}

// StepSeconds is the length of one step at tempo for a cycle of cycleLength
func StepSeconds(cycleLength int, tempo float64) float64 {
	return ResolveDuration(1, cycleLength, tempo).Seconds
}
