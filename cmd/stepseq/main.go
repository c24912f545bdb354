package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver

	"stepseq/config"
	"stepseq/debug"
	"stepseq/midi"
	"stepseq/sequencer"
	"stepseq/theme"
	"stepseq/theory"
	"stepseq/tui"
)

func main() {
	var (
		configPath = flag.String("config", "", "session file (default ~/.config/stepseq/config.yaml)")
		listPorts  = flag.Bool("list-ports", false, "list MIDI ports and exit")
		headless   = flag.Bool("headless", false, "play without the TUI, printing notes")
		bars       = flag.Int("bars", 4, "with -headless, stop after N cycles (0 = until interrupted)")
		logPath    = flag.String("log", "", "debug log file (overrides logFile in the config)")
		save       = flag.Bool("save", false, "write the session back to the config file on exit")
	)
	flag.Parse()

	if *listPorts {
		if err := printPorts(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if path := firstNonEmpty(*logPath, cfg.LogFile); path != "" {
		if err := debug.Enable(path); err != nil {
			fmt.Fprintf(os.Stderr, "debug log: %v\n", err)
		}
		defer debug.Disable()
	}

	app, err := build(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer app.close()

	if *headless {
		app.runHeadless(*bars)
	} else {
		th := theme.New(nil)
		if cfg.Palette != "" {
			if p, err := theme.LoadGPL(cfg.Palette); err == nil {
				th = theme.New(p)
			} else {
				debug.Warn("main", "palette: %v", err)
			}
		}
		m := tui.NewModel(app.coord, app.store, app.broker, app.remote, th, cfg.CycleLength)
		p := tea.NewProgram(m, tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	}

	if *save {
		cfg.Tempo = app.coord.Tempo()
		cfg.SetTracks(app.store.Tracks())
		if err := cfg.Save(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "save: %v\n", err)
		}
	}
}

// app is every long-lived component, constructed once and passed explicitly
type app struct {
	cfg      *config.Config
	clock    *sequencer.TickerClock
	broker   *sequencer.Broker
	store    *sequencer.Store
	registry *sequencer.Registry
	output   *midi.Output
	remote   *midi.Remote
	coord    *sequencer.Coordinator
	loading  []*time.Timer
}

func build(cfg *config.Config) (*app, error) {
	scale, err := theory.NewScale(cfg.Scale.Root, cfg.Scale.Type)
	if err != nil {
		return nil, errors.Wrap(err, "scale")
	}

	a := &app{
		cfg:      cfg,
		clock:    sequencer.NewTickerClock(),
		broker:   sequencer.NewBroker(1024),
		store:    sequencer.NewStore(),
		registry: sequencer.NewRegistry(),
	}
	a.clock.SetTempo(sequencer.ClampTempo(cfg.Tempo))
	a.clock.SetCycleLength(cfg.CycleLength)

	for _, t := range cfg.Tracks {
		a.store.AddTrack(t)
	}

	// Voices with a load delay stay on the fallback voice until ready
	for _, v := range cfg.Voices() {
		a.registry.Register(v)
		delay := time.Duration(cfg.FindInstrument(v.ID).LoadDelayMs) * time.Millisecond
		if delay <= 0 {
			a.registry.MarkReady(v.ID)
			continue
		}
		id := v.ID
		a.loading = append(a.loading, time.AfterFunc(delay, func() {
			a.registry.MarkReady(id)
			debug.Log("main", "instrument %s ready", id)
		}))
	}

	a.output, err = midi.OpenOutput(cfg.MIDI.OutputPort)
	if err != nil {
		debug.Warn("main", "no MIDI output, notes are logged only: %v", err)
		a.output = midi.NewOutput(nil)
	}

	if cfg.MIDI.RemotePort != "" {
		a.remote, err = midi.OpenRemote(cfg.MIDI.RemotePort, cfg.MIDI.RemoteBase)
		if err != nil {
			debug.Warn("main", "remote: %v", err)
		}
	}

	dispatcher := sequencer.NewNoteDispatcher(a.output, scale, a.registry, a.broker)
	dispatcher.SetDrumKit(theory.GetKit(cfg.DrumKit))
	a.coord = sequencer.NewCoordinator(a.clock, a.store, dispatcher, a.broker)
	return a, nil
}

func (a *app) close() {
	for _, t := range a.loading {
		t.Stop()
	}
	a.coord.StopAll()
	if a.remote != nil {
		a.remote.Close()
	}
	if err := a.output.Close(); err != nil {
		debug.Warn("main", "close output: %v", err)
	}
}

// runHeadless plays every eligible track and prints each note until bars
// cycles have passed or the process is interrupted
func (a *app) runHeadless(bars int) {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	var remote <-chan midi.RemoteEvent
	if a.remote != nil {
		remote = a.remote.Events()
	}

	a.coord.StartAll(a.store.Tracks(), a.coord.Tempo(), a.cfg.CycleLength)
	if !a.coord.Running() {
		fmt.Println("nothing to play")
		return
	}
	if name := a.output.PortName(); name != "" {
		fmt.Printf("playing on %s\n", name)
	} else {
		fmt.Println("no MIDI output, printing only")
	}

	cycle := a.cfg.CycleLength
	done := make(chan struct{}, 1)
	if bars > 0 {
		limit := int64(bars * cycle)
		unsubscribe := a.clock.Subscribe(func(t sequencer.Tick) {
			if t.Index+1 >= limit {
				sequencer.TrySend(done, struct{}{})
			}
		})
		defer unsubscribe()
	}

	for {
		select {
		case ev := <-a.broker.Events():
			if n, ok := ev.(sequencer.NoteSounded); ok {
				fallback := ""
				if n.Fallback {
					fallback = " (fallback)"
				}
				fmt.Printf("%8.3fs  %-8s %-4s %-13s %s%s\n", n.AudioTime, n.TrackID, n.PitchName, n.DurationNotation, n.InstrumentID, fallback)
			}
		case ev := <-remote:
			tracks := a.store.Tracks()
			switch ev.Action {
			case midi.RemoteStartAll:
				if !a.coord.Running() {
					a.coord.StartAll(tracks, a.coord.Tempo(), cycle)
				}
			case midi.RemoteStopAll:
				a.coord.StopAll()
			case midi.RemoteToggleTrack:
				if ev.Track < len(tracks) {
					a.coord.ToggleOne(tracks[ev.Track], cycle)
				}
			}
		case <-done:
			a.coord.StopAll()
			return
		case <-interrupt:
			return
		}
	}
}

func printPorts() error {
	ports, err := midi.ListPorts()
	if err != nil {
		return err
	}
	fmt.Println("=== MIDI Input Ports ===")
	for i, p := range ports.In {
		fmt.Printf("  %d: %s\n", i, p)
	}
	fmt.Println("\n=== MIDI Output Ports ===")
	for i, p := range ports.Out {
		fmt.Printf("  %d: %s\n", i, p)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
