package config

import (
	"os"
	"path/filepath"
	"testing"

	"stepseq/sequencer"
	"stepseq/theory"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Tempo != sequencer.DefaultTempo || len(cfg.Tracks) == 0 {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := DefaultConfig()
	cfg.Tempo = 96
	cfg.MIDI.OutputPort = "fluid"
	cfg.SetTracks([]sequencer.Track{{
		ID: "lead", InstrumentID: "keys", Octave: 5, Volume: 0.5, Muted: true,
		Beats: []sequencer.Beat{{ID: "b1", Step: 3, ScaleDegree: -2, DurationSteps: 5}},
	}})
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Tempo != 96 || got.MIDI.OutputPort != "fluid" {
		t.Fatalf("got %+v", got)
	}
	if len(got.Tracks) != 1 {
		t.Fatalf("tracks = %+v", got.Tracks)
	}
	tr := got.Tracks[0]
	if tr.ID != "lead" || !tr.Muted || tr.Octave != 5 || len(tr.Beats) != 1 || tr.Beats[0].ScaleDegree != -2 {
		t.Fatalf("track = %+v", tr)
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`tempo: 140
tracks:
  - id: hats
    instrument: kit
    octave: 3
    volume: 1
    playing: true
    beats:
      - step: 0
        durationSteps: 1
`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Tempo != 140 || cfg.CycleLength != sequencer.DefaultCycleLength {
		t.Fatalf("tempo=%v cycle=%d", cfg.Tempo, cfg.CycleLength)
	}
	if cfg.Scale.Type != theory.ScaleMinor || len(cfg.Instruments) != 0 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if len(cfg.Tracks) != 1 || cfg.Tracks[0].InstrumentID != "kit" {
		t.Fatalf("tracks = %+v", cfg.Tracks)
	}
}

func TestLoadRejectsBadConfig(t *testing.T) {
	tests := map[string]string{
		"garbage":   "tempo: [",
		"tempo":     "tempo: 1000",
		"cycle":     "cycleLength: -4",
		"scale":     "scale: {root: H, type: major}",
		"channel":   "instruments: [{id: a, channel: 16}]",
		"duplicate": "tracks: [{id: a}, {id: a}]",
		"volume":    "tracks: [{id: a, volume: 1.5}]",
	}
	for name, body := range tests {
		path := filepath.Join(t.TempDir(), name+".yaml")
		if err := os.WriteFile(path, []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestVoices(t *testing.T) {
	cfg := DefaultConfig()
	voices := cfg.Voices()
	if len(voices) != 2 || voices[1].ID != "bass" || voices[1].Family != sequencer.FamilyBass || voices[1].Channel != 1 {
		t.Fatalf("voices = %+v", voices)
	}
	if inst := cfg.FindInstrument("bass"); inst == nil || inst.LoadDelayMs != 1500 {
		t.Fatalf("FindInstrument = %+v", inst)
	}
}
