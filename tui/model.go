package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"stepseq/debug"
	"stepseq/midi"
	"stepseq/sequencer"
	"stepseq/theme"
	"stepseq/widgets"
)

const tempoStep = 5.0

type Model struct {
	Coord       *sequencer.Coordinator
	Store       *sequencer.Store
	Broker      *sequencer.Broker
	Remote      *midi.Remote // may be nil
	Theme       *theme.Theme
	CycleLength int

	selected  int
	playheads map[string]int
	lastNote  map[string]sequencer.NoteSounded
	status    string
	quitting  bool
}

// EventMsg carries one broker event into the update loop
type EventMsg struct {
	Event sequencer.Event
}

type RemoteMsg midi.RemoteEvent

func NewModel(coord *sequencer.Coordinator, store *sequencer.Store, broker *sequencer.Broker, remote *midi.Remote, th *theme.Theme, cycleLength int) Model {
	if cycleLength <= 0 {
		cycleLength = sequencer.DefaultCycleLength
	}
	return Model{
		Coord:       coord,
		Store:       store,
		Broker:      broker,
		Remote:      remote,
		Theme:       th,
		CycleLength: cycleLength,
		playheads:   make(map[string]int),
		lastNote:    make(map[string]sequencer.NoteSounded),
	}
}

func ListenForEvents(broker *sequencer.Broker) tea.Cmd {
	return func() tea.Msg {
		return EventMsg{Event: <-broker.Events()}
	}
}

func ListenForRemote(remote *midi.Remote) tea.Cmd {
	if remote == nil {
		return nil
	}
	return func() tea.Msg {
		return RemoteMsg(<-remote.Events())
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		ListenForEvents(m.Broker),
		ListenForRemote(m.Remote),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg.String())

	case EventMsg:
		m.apply(msg.Event)
		return m, ListenForEvents(m.Broker)

	case RemoteMsg:
		m.handleRemote(midi.RemoteEvent(msg))
		return m, ListenForRemote(m.Remote)
	}

	return m, nil
}

func (m Model) handleKey(key string) (tea.Model, tea.Cmd) {
	tracks := m.Store.Tracks()

	switch key {
	case "q", "ctrl+c":
		m.quitting = true
		m.Coord.StopAll()
		return m, tea.Quit

	case " ", "p":
		m.toggleAll(tracks)

	case "s", "enter":
		if t, ok := m.selectedTrack(tracks); ok {
			m.toggleOne(t)
		}

	case "m":
		if t, ok := m.selectedTrack(tracks); ok {
			m.Store.SetMuted(t.ID, !t.Muted)
		}

	case "+", "=":
		m.Coord.SetTempo(m.Coord.Tempo() + tempoStep)

	case "-", "_":
		m.Coord.SetTempo(m.Coord.Tempo() - tempoStep)

	case "<", ",":
		if t, ok := m.selectedTrack(tracks); ok {
			m.Store.SetOctave(t.ID, t.Octave-1)
		}

	case ">", ".":
		if t, ok := m.selectedTrack(tracks); ok {
			m.Store.SetOctave(t.ID, t.Octave+1)
		}

	case "[":
		if t, ok := m.selectedTrack(tracks); ok {
			m.Store.SetVolume(t.ID, t.Volume-0.1)
		}

	case "]":
		if t, ok := m.selectedTrack(tracks); ok {
			m.Store.SetVolume(t.ID, t.Volume+0.1)
		}

	case "j", "down":
		if m.selected < len(tracks)-1 {
			m.selected++
		}

	case "k", "up":
		if m.selected > 0 {
			m.selected--
		}

	case "1", "2", "3", "4", "5", "6", "7", "8":
		idx := int(key[0] - '1')
		if idx < len(tracks) {
			m.selected = idx
		}
	}

	return m, nil
}

func (m *Model) handleRemote(ev midi.RemoteEvent) {
	tracks := m.Store.Tracks()
	switch ev.Action {
	case midi.RemoteStartAll:
		if !m.Coord.Running() {
			m.toggleAll(tracks)
		}
	case midi.RemoteStopAll:
		if m.Coord.Running() {
			m.toggleAll(tracks)
		}
	case midi.RemoteToggleTrack:
		if ev.Track < len(tracks) {
			m.toggleOne(tracks[ev.Track])
		}
	}
}

func (m *Model) toggleAll(tracks []sequencer.Track) {
	clear(m.playheads)
	if m.Coord.ToggleAll(tracks, m.Coord.Tempo(), m.CycleLength) {
		m.status = "playing"
	} else {
		m.status = "stopped"
	}
	debug.Log("tui", "toggle all: %s", m.status)
}

func (m *Model) toggleOne(t sequencer.Track) {
	if m.Coord.ToggleOne(t, m.CycleLength) {
		m.status = t.ID + " started"
	} else {
		delete(m.playheads, t.ID)
		m.status = t.ID + " stopped"
	}
}

// apply updates playheads and last notes from an event
func (m *Model) apply(ev sequencer.Event) {
	switch e := ev.(type) {
	case sequencer.StepAdvanced:
		if !m.Coord.IsPlaying(e.TrackID) {
			return
		}
		// Step is the step to play next
		m.playheads[e.TrackID] = (e.Step - 1 + m.CycleLength) % m.CycleLength
	case sequencer.NoteSounded:
		m.lastNote[e.TrackID] = e
	}
}

func (m Model) selectedTrack(tracks []sequencer.Track) (sequencer.Track, bool) {
	if m.selected < 0 || m.selected >= len(tracks) {
		return sequencer.Track{}, false
	}
	return tracks[m.selected], true
}

// Playhead returns the step last played by a track, or -1
func (m Model) Playhead(trackID string) int {
	if p, ok := m.playheads[trackID]; ok {
		return p
	}
	return -1
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())
	nameStyle := lipgloss.NewStyle().Foreground(m.Theme.FG()).Width(10)
	selStyle := lipgloss.NewStyle().Foreground(m.Theme.Cursor()).Bold(true).Width(10)
	warnStyle := lipgloss.NewStyle().Foreground(m.Theme.Warning())

	playState := "STOP"
	if m.Coord.Running() {
		playState = "PLAY"
	}
	header := headerStyle.Render(fmt.Sprintf("stepseq  %s  %3.0fbpm  %d steps", playState, m.Coord.Tempo(), m.CycleLength))
	if dropped := m.Broker.Dropped(); dropped > 0 {
		header += warnStyle.Render(fmt.Sprintf("  dropped:%d", dropped))
	}
	if m.Remote != nil {
		header += dimStyle.Render("  remote:" + m.Remote.Name())
	}

	var rows []string
	for i, t := range m.Store.Tracks() {
		starts := make(map[int]int, len(t.Beats))
		for _, b := range t.Beats {
			starts[b.Step] = max(starts[b.Step], b.DurationSteps)
		}
		row := widgets.StepRow{
			Cells:    widgets.Cells(m.CycleLength, starts),
			Playhead: m.Playhead(t.ID),
			Muted:    t.Muted,
		}

		marker := " "
		name := nameStyle.Render(t.ID)
		if i == m.selected {
			marker = string(m.Theme.Symbols.Selected)
			name = selStyle.Render(t.ID)
		}
		flags := " "
		if t.Muted {
			flags = string(m.Theme.Symbols.Muted)
		}

		info := fmt.Sprintf("%-6s o%d %3.0f%%", t.InstrumentID, t.Octave, t.Volume*100)
		if n, ok := m.lastNote[t.ID]; ok {
			info += fmt.Sprintf("  %-4s %s", n.PitchName, n.DurationNotation)
			if n.Fallback {
				info += warnStyle.Render(string(m.Theme.Symbols.Fallback))
			}
		}

		rows = append(rows, fmt.Sprintf("%s %s %s %s  %s", marker, name, flags, widgets.RenderStepRow(row, m.Theme), dimStyle.Render(info)))
	}

	help := dimStyle.Render(widgets.RenderKeyLine([]widgets.KeyBinding{
		{Key: "space", Desc: "play all"},
		{Key: "s", Desc: "play track"},
		{Key: "m", Desc: "mute"},
		{Key: "j/k", Desc: "select"},
		{Key: "</>", Desc: "octave"},
		{Key: "[/]", Desc: "volume"},
		{Key: "+/-", Desc: "tempo"},
		{Key: "q", Desc: "quit"},
	}))

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n\n")
	if len(rows) == 0 {
		out.WriteString(dimStyle.Render("  no tracks"))
	} else {
		out.WriteString(strings.Join(rows, "\n"))
	}
	out.WriteString("\n\n")
	out.WriteString(help)
	if m.status != "" {
		out.WriteString("\n")
		out.WriteString(dimStyle.Render(m.status))
	}
	return out.String()
}
