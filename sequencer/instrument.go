package sequencer

import (
	"strings"
	"sync"
)

// InstrumentFamily groups instruments that share default voice parameters
type InstrumentFamily int

const (
	FamilyGeneric InstrumentFamily = iota
	FamilyPiano
	FamilyBass
	FamilyLead
	FamilyPad
	FamilyPluck
	FamilyDrums
)

// Envelope times are in seconds, sustain is a 0-1 level
type Envelope struct {
	Attack  float64
	Decay   float64
	Sustain float64
	Release float64
}

// FamilyDefaults are the voice parameters a family starts from
type FamilyDefaults struct {
	Name     string
	Program  uint8 // General MIDI program
	Envelope Envelope
}

// familyDefaults maps each family to its default voice. FamilyGeneric is the
// fallback for anything not in the table.
var familyDefaults = map[InstrumentFamily]FamilyDefaults{
	FamilyGeneric: {Name: "generic", Program: 0, Envelope: Envelope{Attack: 0.01, Decay: 0.1, Sustain: 0.7, Release: 0.3}},
	FamilyPiano:   {Name: "piano", Program: 0, Envelope: Envelope{Attack: 0.005, Decay: 0.3, Sustain: 0.4, Release: 0.8}},
	FamilyBass:    {Name: "bass", Program: 33, Envelope: Envelope{Attack: 0.01, Decay: 0.2, Sustain: 0.8, Release: 0.1}},
	FamilyLead:    {Name: "lead", Program: 80, Envelope: Envelope{Attack: 0.02, Decay: 0.1, Sustain: 0.9, Release: 0.2}},
	FamilyPad:     {Name: "pad", Program: 88, Envelope: Envelope{Attack: 0.8, Decay: 0.5, Sustain: 0.8, Release: 1.5}},
	FamilyPluck:   {Name: "pluck", Program: 24, Envelope: Envelope{Attack: 0.001, Decay: 0.4, Sustain: 0.0, Release: 0.2}},
	FamilyDrums:   {Name: "drums", Program: 0, Envelope: Envelope{Attack: 0.001, Decay: 0.2, Sustain: 0.0, Release: 0.05}},
}

// DefaultsFor returns the defaults for f, or the generic entry
func DefaultsFor(f InstrumentFamily) FamilyDefaults {
	if d, ok := familyDefaults[f]; ok {
		return d
	}
	return familyDefaults[FamilyGeneric]
}

func (f InstrumentFamily) String() string {
	return DefaultsFor(f).Name
}

// ParseFamily maps a family name to its value; unknown names are generic
func ParseFamily(name string) InstrumentFamily {
	name = strings.ToLower(strings.TrimSpace(name))
	for f, d := range familyDefaults {
		if d.Name == name {
			return f
		}
	}
	return FamilyGeneric
}

// Voice is a playable instrument
type Voice struct {
	ID       string
	Family   InstrumentFamily
	Channel  uint8 // 0-15
	Program  uint8
	Envelope Envelope
}

// DefaultVoiceID names the shared fallback voice
const DefaultVoiceID = "default"

// DefaultVoice is substituted when a track's instrument is not ready
func DefaultVoice() Voice {
	return NewVoice(DefaultVoiceID, FamilyGeneric, 0)
}

// NewVoice builds a voice from its family defaults
func NewVoice(id string, family InstrumentFamily, channel uint8) Voice {
	d := DefaultsFor(family)
	return Voice{
		ID:       id,
		Family:   family,
		Channel:  channel & 0x0F,
		Program:  d.Program,
		Envelope: d.Envelope,
	}
}

// InstrumentResolver looks up a ready voice. ok is false when the
// instrument is unknown or still loading. Must not block.
type InstrumentResolver interface {
	Resolve(instrumentID string) (v Voice, ok bool)
}

// Registry is an InstrumentResolver whose voices become ready over time
type Registry struct {
	mu     sync.RWMutex
	voices map[string]*registered
}

type registered struct {
	voice Voice
	ready bool
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{voices: make(map[string]*registered)}
}

// Register adds a voice that is not ready yet
func (r *Registry) Register(v Voice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.voices[v.ID] = &registered{voice: v}
}

// MarkReady flags a registered voice as playable. Returns false if unknown.
func (r *Registry) MarkReady(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.voices[id]
	if !ok {
		return false
	}
	reg.ready = true
	return true
}

// Resolve implements InstrumentResolver
func (r *Registry) Resolve(id string) (Voice, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.voices[id]
	if !ok || !reg.ready {
		return Voice{}, false
	}
	return reg.voice, true
}

// IDs returns the registered instrument ids
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.voices))
	for id := range r.voices {
		ids = append(ids, id)
	}
	return ids
}
