package theme

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"go-surface/display"
)

type Theme struct {
	Palette *Palette // resolves display color tags
	UI      *Palette // gradient for the monitor chrome
	Symbols Symbols
}

type Symbols struct {
	BarFull  rune // █ value bar filled
	BarEmpty rune // ░ value bar empty
	Off      rune // · value switched off
	Hidden   rune // ╳ hidden cell
}

// New builds a theme; ui may be nil to reuse the tag palette for chrome
func New(tags, ui *Palette) *Theme {
	if tags == nil {
		tags = Default()
	}
	if ui == nil {
		ui = tags
	}
	return &Theme{
		Palette: tags,
		UI:      ui,
		Symbols: Symbols{
			BarFull:  '█',
			BarEmpty: '░',
			Off:      '·',
			Hidden:   '╳',
		},
	}
}

// Color roles mapped to UI palette positions (0-1)
const (
	RoleBG      = 0.0
	RoleMuted   = 1.0
	RoleFG      = 0.9
	RoleAccent  = 0.5
	RoleWarning = 0.2
)

// Style helpers

func (t *Theme) BG() lipgloss.Color {
	return rgbToLipgloss(t.UI.Blend(RoleBG))
}

func (t *Theme) FG() lipgloss.Color {
	return rgbToLipgloss(t.UI.Blend(RoleFG))
}

func (t *Theme) Accent() lipgloss.Color {
	return rgbToLipgloss(t.UI.Blend(RoleAccent))
}

func (t *Theme) Muted() lipgloss.Color {
	return rgbToLipgloss(t.UI.Blend(RoleMuted))
}

func (t *Theme) Warning() lipgloss.Color {
	return rgbToLipgloss(t.UI.Blend(RoleWarning))
}

// Tag returns the lipgloss color for a display color tag. NoColor falls
// back to the foreground so unlabelled cells stay readable.
func (t *Theme) Tag(c display.Color) lipgloss.Color {
	if c == display.NoColor {
		return t.FG()
	}
	return rgbToLipgloss(t.Palette.Tag(c))
}

func rgbToLipgloss(c RGB) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2]))
}
