package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"stepseq/theme"
)

// CellState is what one step of a track shows
type CellState int

const (
	CellEmpty CellState = iota
	CellActive
	CellHeld
)

// StepRow is the input to RenderStepRow. Playhead is -1 when the track is
// not playing.
type StepRow struct {
	Cells    []CellState
	Playhead int
	Muted    bool
}

// Cells lays out beats on a cycle: the start step is active, the steps it
// is held for are held. Steps outside the cycle are ignored.
func Cells(cycleLength int, starts map[int]int) []CellState {
	cells := make([]CellState, cycleLength)
	for step, dur := range starts {
		if step < 0 || step >= cycleLength {
			continue
		}
		for i := 1; i < dur && step+i < cycleLength; i++ {
			if cells[step+i] == CellEmpty {
				cells[step+i] = CellHeld
			}
		}
	}
	for step := range starts {
		if step >= 0 && step < cycleLength {
			cells[step] = CellActive
		}
	}
	return cells
}

// RenderStepRow renders one track's cycle, a space between each bar of four
func RenderStepRow(row StepRow, th *theme.Theme) string {
	dim := lipgloss.NewStyle().Foreground(th.Muted())
	active := lipgloss.NewStyle().Foreground(th.Active())
	if row.Muted {
		active = dim
	}
	playhead := lipgloss.NewStyle().Foreground(th.Success()).Bold(true)

	var out strings.Builder
	for i, c := range row.Cells {
		if i > 0 && i%4 == 0 {
			out.WriteString(" ")
		}
		var r rune
		style := dim
		switch c {
		case CellActive:
			r, style = th.Symbols.StepActive, active
		case CellHeld:
			r, style = th.Symbols.StepHeld, active
		default:
			r = th.Symbols.StepEmpty
		}
		if i == row.Playhead {
			style = playhead
			if c == CellEmpty {
				r = th.Symbols.StepPlayhead
			}
		}
		out.WriteString(style.Render(string(r)))
	}
	return out.String()
}

// RenderKeyHelp formats key bindings in a friendly way
func RenderKeyHelp(sections []KeySection) string {
	var lines []string
	for _, sec := range sections {
		if sec.Title != "" {
			lines = append(lines, sec.Title)
		}
		for _, k := range sec.Keys {
			lines = append(lines, fmt.Sprintf("  %-12s %s", k.Key, k.Desc))
		}
	}
	return strings.Join(lines, "\n")
}

// RenderKeyLine formats key bindings on one line: "key:desc  key:desc"
func RenderKeyLine(keys []KeyBinding) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k.Key + ":" + k.Desc
	}
	return strings.Join(parts, "  ")
}

// KeySection groups related key bindings
type KeySection struct {
	Title string
	Keys  []KeyBinding
}

// KeyBinding is a single key and its description
type KeyBinding struct {
	Key  string
	Desc string
}
