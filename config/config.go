package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"stepseq/sequencer"
	"stepseq/theory"
)

// MIDIConfig selects the ports. Names match by case-insensitive substring;
// an empty output name takes the first port.
type MIDIConfig struct {
	OutputPort string `yaml:"outputPort,omitempty"`
	RemotePort string `yaml:"remotePort,omitempty"` // empty disables the remote
	RemoteBase uint8  `yaml:"remoteBaseNote,omitempty"`
}

// ScaleConfig picks the pitch collaborator
type ScaleConfig struct {
	Root string           `yaml:"root"`
	Type theory.ScaleType `yaml:"type"`
}

// InstrumentConfig declares a voice. LoadDelayMs simulates an instrument
// that takes time to become ready; until then its tracks use the fallback.
type InstrumentConfig struct {
	ID          string `yaml:"id"`
	Family      string `yaml:"family"`
	Channel     uint8  `yaml:"channel"`
	LoadDelayMs int    `yaml:"loadDelayMs,omitempty"`
}

// Config is the main configuration structure
type Config struct {
	Tempo       float64            `yaml:"tempo"`
	CycleLength int                `yaml:"cycleLength"`
	LogFile     string             `yaml:"logFile,omitempty"`
	Palette     string             `yaml:"palette,omitempty"` // GIMP .gpl file, empty for the built-in one
	MIDI        MIDIConfig         `yaml:"midi,omitempty"`
	Scale       ScaleConfig        `yaml:"scale"`
	DrumKit     string             `yaml:"drumKit,omitempty"` // theory.KitNames, used by drums-family instruments
	Instruments []InstrumentConfig `yaml:"instruments,omitempty"`
	Tracks      []sequencer.Track  `yaml:"tracks,omitempty"`
}

// DefaultConfig returns a two-track demo session
func DefaultConfig() *Config {
	return &Config{
		Tempo:       sequencer.DefaultTempo,
		CycleLength: sequencer.DefaultCycleLength,
		MIDI:        MIDIConfig{RemoteBase: 36},
		Scale:       ScaleConfig{Root: "C", Type: theory.ScaleMinor},
		DrumKit:     theory.DefaultKit,
		Instruments: []InstrumentConfig{
			{ID: "keys", Family: "piano", Channel: 0},
			{ID: "bass", Family: "bass", Channel: 1, LoadDelayMs: 1500},
		},
		Tracks: []sequencer.Track{
			{
				ID: "keys", InstrumentID: "keys", Octave: 4, Volume: 0.8, Playing: true,
				Beats: []sequencer.Beat{
					{Step: 0, ScaleDegree: 0, DurationSteps: 2},
					{Step: 4, ScaleDegree: 2, DurationSteps: 2},
					{Step: 8, ScaleDegree: 4, DurationSteps: 2},
					{Step: 12, ScaleDegree: 2, DurationSteps: 3},
				},
			},
			{
				ID: "bass", InstrumentID: "bass", Octave: 2, Volume: 1, Playing: true,
				Beats: []sequencer.Beat{
					{Step: 2, ScaleDegree: 0, DurationSteps: 1},
					{Step: 6, ScaleDegree: 0, DurationSteps: 1},
					{Step: 10, ScaleDegree: 3, DurationSteps: 1},
					{Step: 14, ScaleDegree: 4, DurationSteps: 1},
				},
			},
		},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "stepseq"), nil
}

// ConfigPath returns the full path to config.yaml
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the config at path, or returns defaults if there is none. An
// empty path means ConfigPath. Missing fields keep their defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return DefaultConfig(), nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errors.Wrap(err, "read config")
	}

	cfg := DefaultConfig()
	cfg.Instruments = nil
	cfg.Tracks = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid %s", path)
	}
	return cfg, nil
}

// Save writes the config to path, creating its directory. An empty path
// means ConfigPath.
func (c *Config) Save(path string) error {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "create config dir")
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "encode config")
	}
	return errors.Wrap(os.WriteFile(path, data, 0644), "write config")
}

// Validate checks what cannot be repaired at play time. Beat-level problems
// are left to the scheduler, which skips them.
func (c *Config) Validate() error {
	if c.Tempo < sequencer.MinTempo || c.Tempo > sequencer.MaxTempo {
		return errors.Errorf("tempo %v outside %v-%v", c.Tempo, sequencer.MinTempo, sequencer.MaxTempo)
	}
	if c.CycleLength <= 0 {
		return errors.Errorf("cycleLength %d must be positive", c.CycleLength)
	}
	if _, err := theory.NewScale(c.Scale.Root, c.Scale.Type); err != nil {
		return errors.Wrap(err, "scale")
	}

	seen := make(map[string]bool)
	for _, inst := range c.Instruments {
		if inst.ID == "" {
			return errors.New("instrument without id")
		}
		if seen[inst.ID] {
			return errors.Errorf("duplicate instrument %q", inst.ID)
		}
		if inst.Channel > 15 {
			return errors.Errorf("instrument %q: channel %d outside 0-15", inst.ID, inst.Channel)
		}
		seen[inst.ID] = true
	}

	tracks := make(map[string]bool)
	for _, t := range c.Tracks {
		if strings.TrimSpace(t.ID) == "" {
			return errors.New("track without id")
		}
		if tracks[t.ID] {
			return errors.Errorf("duplicate track %q", t.ID)
		}
		if t.Volume < 0 || t.Volume > 1 {
			return errors.Errorf("track %q: volume %v outside 0-1", t.ID, t.Volume)
		}
		tracks[t.ID] = true
	}
	return nil
}

// Voices builds the declared voices
func (c *Config) Voices() []sequencer.Voice {
	out := make([]sequencer.Voice, 0, len(c.Instruments))
	for _, inst := range c.Instruments {
		out = append(out, sequencer.NewVoice(inst.ID, sequencer.ParseFamily(inst.Family), inst.Channel))
	}
	return out
}

// FindInstrument finds an instrument config by id
func (c *Config) FindInstrument(id string) *InstrumentConfig {
	for i := range c.Instruments {
		if c.Instruments[i].ID == id {
			return &c.Instruments[i]
		}
	}
	return nil
}

// SetTracks replaces the saved tracks, e.g. with Store.Tracks before Save
func (c *Config) SetTracks(tracks []sequencer.Track) {
	c.Tracks = append([]sequencer.Track(nil), tracks...)
}
