package theory

import (
	"fmt"
	"math"
	"strings"
)

// ScaleType names a set of intervals
type ScaleType string

const (
	ScaleChromatic     ScaleType = "chromatic"
	ScaleMajor         ScaleType = "major"
	ScaleMinor         ScaleType = "minor"
	ScalePentatonic    ScaleType = "pentatonic"
	ScaleDorian        ScaleType = "dorian"
	ScalePhrygian      ScaleType = "phrygian"
	ScaleLydian        ScaleType = "lydian"
	ScaleMixolydian    ScaleType = "mixolydian"
	ScaleLocrian       ScaleType = "locrian"
	ScaleHarmonicMinor ScaleType = "harmonic-minor"
	ScaleBlues         ScaleType = "blues"
	ScaleWholeTone     ScaleType = "whole-tone"
)

// Scale definitions - intervals from root (semitones), one octave, no repeat
// of the octave note
var scales = map[ScaleType][]int{
	ScaleChromatic:     {0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11},
	ScaleMajor:         {0, 2, 4, 5, 7, 9, 11},
	ScaleMinor:         {0, 2, 3, 5, 7, 8, 10},
	ScalePentatonic:    {0, 2, 4, 7, 9},
	ScaleDorian:        {0, 2, 3, 5, 7, 9, 10},
	ScalePhrygian:      {0, 1, 3, 5, 7, 8, 10},
	ScaleLydian:        {0, 2, 4, 6, 7, 9, 11},
	ScaleMixolydian:    {0, 2, 4, 5, 7, 9, 10},
	ScaleLocrian:       {0, 1, 3, 5, 6, 8, 10},
	ScaleHarmonicMinor: {0, 2, 3, 5, 7, 8, 11},
	ScaleBlues:         {0, 3, 5, 6, 7, 10},
	ScaleWholeTone:     {0, 2, 4, 6, 8, 10},
}

var noteNames = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Pitch is a resolved note
type Pitch struct {
	Name      string  // e.g. "E4"
	MIDI      uint8   // MIDI note number
	Frequency float64 // Hz, equal temperament, A4 = 440
}

// Scale maps scale degrees to pitches. Degree 0 is the root; degrees past the
// last interval continue into the next octave, negative degrees go below.
type Scale struct {
	Root      int // pitch class of the root, 0 = C
	Type      ScaleType
	intervals []int
}

// NewScale builds a scale from a root name ("C", "F#", ...) and scale type
func NewScale(root string, t ScaleType) (*Scale, error) {
	pc, err := PitchClass(root)
	if err != nil {
		return nil, err
	}
	intervals, ok := scales[t]
	if !ok {
		return nil, fmt.Errorf("unknown scale %q", t)
	}
	return &Scale{Root: pc, Type: t, intervals: intervals}, nil
}

// ScaleTypes returns the known scale names
func ScaleTypes() []ScaleType {
	return []ScaleType{
		ScaleChromatic, ScaleMajor, ScaleMinor, ScalePentatonic,
		ScaleDorian, ScalePhrygian, ScaleLydian, ScaleMixolydian, ScaleLocrian,
		ScaleHarmonicMinor, ScaleBlues, ScaleWholeTone,
	}
}

// PitchClass parses a note name without octave ("C", "F#", "Bb")
func PitchClass(name string) (int, error) {
	n := strings.TrimSpace(name)
	if n == "" {
		return 0, fmt.Errorf("empty note name")
	}
	letter := strings.ToUpper(n[:1])
	pc := -1
	for i, nn := range noteNames {
		if nn == letter {
			pc = i
			break
		}
	}
	if pc < 0 {
		return 0, fmt.Errorf("unknown note name %q", name)
	}
	switch n[1:] {
	case "":
	case "#":
		pc++
	case "b":
		pc--
	default:
		return 0, fmt.Errorf("unknown note name %q", name)
	}
	return (pc + 12) % 12, nil
}

// NameAndFrequencyFor resolves a degree in the given octave. Octave numbering
// follows scientific pitch notation, so degree 0 octave 4 in C is middle C.
func (s *Scale) NameAndFrequencyFor(degree, octave int) (Pitch, error) {
	n := len(s.intervals)
	octShift := floorDiv(degree, n)
	idx := degree - octShift*n

	midi := 12*(octave+octShift+1) + s.Root + s.intervals[idx]
	if midi < 0 || midi > 127 {
		return Pitch{}, fmt.Errorf("degree %d octave %d is out of MIDI range (%d)", degree, octave, midi)
	}
	return Pitch{
		Name:      fmt.Sprintf("%s%d", noteNames[midi%12], midi/12-1),
		MIDI:      uint8(midi),
		Frequency: Frequency(midi),
	}, nil
}

// Frequency returns the equal-tempered frequency of a MIDI note
func Frequency(midi int) float64 {
	return 440 * math.Pow(2, float64(midi-69)/12)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
