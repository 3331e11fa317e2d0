package theme

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go-surface/display"
)

// RGB is an 8-bit per channel color
type RGB [3]uint8

// Palette resolves the opaque display.Color tags used by pages into RGB.
// Tag 0 is always "no color" and maps to Colors[0].
type Palette struct {
	Name   string
	Colors []RGB
}

// Default is the built-in palette, ordered to match the bank's track colors
func Default() *Palette {
	return &Palette{
		Name: "default",
		Colors: []RGB{
			{0, 0, 0},       // none
			{255, 0, 0},     // red
			{255, 100, 0},   // orange
			{255, 200, 0},   // yellow
			{0, 255, 0},     // green
			{0, 200, 200},   // cyan
			{0, 100, 255},   // blue
			{150, 0, 200},   // purple
			{255, 80, 180},  // pink
			{255, 255, 255}, // white
			{100, 100, 100}, // grey
		},
	}
}

// ReadGPL parses a GIMP palette. Rows are "R G B [name]"; the header,
// comments and rows that aren't three bytes are skipped.
func ReadGPL(r io.Reader) (*Palette, error) {
	p := &Palette{}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if name, ok := strings.CutPrefix(line, "Name:"); ok {
			p.Name = strings.TrimSpace(name)
			continue
		}
		if rgb, ok := parseRow(line); ok {
			p.Colors = append(p.Colors, rgb)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(p.Colors) == 0 {
		return nil, errors.New("palette has no colors")
	}
	return p, nil
}

func parseRow(line string) (RGB, bool) {
	fields := strings.Fields(line)
	if len(fields) < 3 || strings.HasPrefix(line, "#") {
		return RGB{}, false
	}
	var rgb RGB
	for i := range rgb {
		v, err := strconv.ParseUint(fields[i], 10, 8)
		if err != nil {
			return RGB{}, false
		}
		rgb[i] = uint8(v)
	}
	return rgb, true
}

// LoadGPL reads a .gpl palette file
func LoadGPL(path string) (*Palette, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p, err := ReadGPL(f)
	if err != nil {
		return nil, fmt.Errorf("palette %s: %w", path, err)
	}
	return p, nil
}

// MustLoadGPL is LoadGPL for palettes named on the command line or in config
func MustLoadGPL(path string) *Palette {
	p, err := LoadGPL(path)
	if err != nil {
		panic(err)
	}
	return p
}

// Tag returns the RGB for a display color tag; tags past the end use the
// last color
func (p *Palette) Tag(c display.Color) RGB {
	return p.Colors[min(int(c), len(p.Colors)-1)]
}

// Len is the number of colors, i.e. the number of usable tags
func (p *Palette) Len() int {
	return len(p.Colors)
}

// Blend treats the palette as a gradient and returns the color at pos
// (0 = first, 1 = last)
func (p *Palette) Blend(pos float64) RGB {
	last := len(p.Colors) - 1
	x := max(0, min(pos, 1)) * float64(last)
	i := min(int(x), last)
	if i == last {
		return p.Colors[last]
	}
	t := x - float64(i)
	a, b := p.Colors[i], p.Colors[i+1]
	var out RGB
	for ch := range out {
		out[ch] = uint8(float64(a[ch]) + (float64(b[ch])-float64(a[ch]))*t)
	}
	return out
}
