package widgets

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"go-surface/display"
	"go-surface/lcd"
	"go-surface/theme"
)

const cellWidth = 7

// PreviewCell is what a virtual surface shows for one cell
type PreviewCell struct {
	Label  string
	Color  display.Color
	Hidden bool
	Value  int
}

// PreviewState is a snapshot of a Preview
type PreviewState struct {
	Rows, Cols int
	MaxValue   int
	Cells      []PreviewCell
	Groups     []string
	Banner     string // full-screen text, "" when none
	Writes     uint64
}

// Preview is a display.Sink that keeps what a real surface would show, so
// the terminal can mirror it.
type Preview struct {
	mu    sync.Mutex
	state PreviewState
}

// NewPreview creates a preview with cfg's grid
func NewPreview(cfg display.Config) *Preview {
	cells := make([]PreviewCell, cfg.Rows*cfg.Cols)
	for i := range cells {
		cells[i].Value = display.ValueOff
	}
	return &Preview{state: PreviewState{
		Rows:     cfg.Rows,
		Cols:     cfg.Cols,
		MaxValue: cfg.MaxValue,
		Cells:    cells,
		Groups:   make([]string, cfg.Groups),
	}}
}

func (p *Preview) cell(addr display.Address) (*PreviewCell, error) {
	if addr.Row < 0 || addr.Row >= p.state.Rows || addr.Col < 0 || addr.Col >= p.state.Cols {
		return nil, fmt.Errorf("preview: no cell at %s", addr)
	}
	return &p.state.Cells[addr.Row*p.state.Cols+addr.Col], nil
}

func (p *Preview) WriteValue(addr display.Address, value int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, err := p.cell(addr)
	if err != nil {
		return err
	}
	c.Value = value
	p.state.Writes++
	return nil
}

func (p *Preview) WriteLabel(addr display.Address, e display.Element) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, err := p.cell(addr)
	if err != nil {
		return err
	}
	c.Label = e.Label
	c.Color = e.Color
	c.Hidden = e.Visible == display.Hidden
	p.state.Writes++
	return nil
}

func (p *Preview) WriteGroupLabel(group int, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if group < 0 || group >= len(p.state.Groups) {
		return fmt.Errorf("preview: no group %d", group)
	}
	p.state.Groups[group] = text
	p.state.Writes++
	return nil
}

func (p *Preview) WriteFullScreenText(text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Banner = text
	p.state.Writes++
	return nil
}

// Snapshot returns a copy of the current state
func (p *Preview) Snapshot() PreviewState {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.state
	s.Cells = append([]PreviewCell(nil), p.state.Cells...)
	s.Groups = append([]string(nil), p.state.Groups...)
	return s
}

// renderBar draws a value as a cellWidth wide bar
func renderBar(c PreviewCell, maxValue int, sym theme.Symbols) string {
	switch {
	case c.Hidden:
		return strings.Repeat(string(sym.Hidden), cellWidth)
	case c.Value == display.ValueOff:
		return strings.Repeat(string(sym.Off), cellWidth)
	}
	filled := cellWidth
	if maxValue > 1 {
		filled = (c.Value*cellWidth + maxValue/2) / (maxValue - 1)
	}
	filled = min(max(filled, 0), cellWidth)
	return strings.Repeat(string(sym.BarFull), filled) + strings.Repeat(string(sym.BarEmpty), cellWidth-filled)
}

// RenderPreview draws a preview: group labels on top, then a label line
// and a value bar line per row. selected (row-major index, -1 for none)
// is shown reversed. A banner replaces the whole grid.
func RenderPreview(s PreviewState, th *theme.Theme, selected int) string {
	width := s.Cols*(cellWidth+1) - 1
	if s.Banner != "" {
		banner := lipgloss.NewStyle().
			Foreground(th.FG()).
			Bold(true).
			Width(width).
			Align(lipgloss.Center).
			Render(lcd.ASCII(s.Banner))
		// keep the grid's height so the layout doesn't jump
		n := s.Rows * 2
		if len(s.Groups) > 0 {
			n++
		}
		rows := make([]string, n)
		rows[0] = banner
		return strings.Join(rows, "\n")
	}

	var lines []string
	if len(s.Groups) > 0 {
		span := s.Cols / len(s.Groups)
		groupStyle := lipgloss.NewStyle().Foreground(th.Accent())
		var line strings.Builder
		for g, text := range s.Groups {
			if g > 0 {
				line.WriteString(" ")
			}
			w := span*(cellWidth+1) - 1
			line.WriteString(groupStyle.Render(lcd.Center(text, w)))
		}
		lines = append(lines, line.String())
	}

	dim := lipgloss.NewStyle().Foreground(th.Muted())
	for row := 0; row < s.Rows; row++ {
		var labels, bars []string
		for col := 0; col < s.Cols; col++ {
			idx := row*s.Cols + col
			c := s.Cells[idx]

			label := lcd.Fit(c.Label, cellWidth)
			style := lipgloss.NewStyle().Foreground(th.Tag(c.Color))
			if c.Hidden {
				label = lcd.Fit("", cellWidth)
				style = dim
			}
			if idx == selected {
				style = style.Reverse(true)
			}
			labels = append(labels, style.Render(label))
			bars = append(bars, lipgloss.NewStyle().Foreground(th.Tag(c.Color)).Render(renderBar(c, s.MaxValue, th.Symbols)))
		}
		lines = append(lines, strings.Join(labels, " "), strings.Join(bars, " "))
	}
	return strings.Join(lines, "\n")
}
