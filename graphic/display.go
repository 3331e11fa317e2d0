// Package graphic renders display cells into a grayscale framebuffer for
// small OLED/LCD panels that are driven as bitmaps rather than text.
package graphic

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"go-surface/display"
	"go-surface/lcd"
)

const (
	barHeight = 3
	lineH     = 13 // basicfont 7x13
	glyphW    = 7
	ascent    = 11
)

// PresentFunc pushes a region of the framebuffer to the panel
type PresentFunc func(img *image.Gray, r image.Rectangle) error

type cell struct {
	label   string
	colored bool
	hidden  bool
	value   int
}

// Display is a display.Sink that draws into an image.Gray. Each write
// repaints one cell rectangle and presents only that rectangle.
// A colored cell is drawn inverted since the panel has no hues.
type Display struct {
	mu       sync.Mutex
	img      *image.Gray
	present  PresentFunc
	rows     int
	cols     int
	groups   int
	maxValue int
	cellW    int
	cellH    int
	header   int // group label band height, 0 without groups

	cells []cell
}

// New builds a width x height framebuffer laid out as cfg's grid. Groups,
// if any, get a one-line band across the top.
func New(width, height int, cfg display.Config, present PresentFunc) (*Display, error) {
	header := 0
	if cfg.Groups > 0 {
		header = lineH
	}
	if cfg.Rows <= 0 || cfg.Cols <= 0 {
		return nil, fmt.Errorf("graphic: bad grid %dx%d", cfg.Rows, cfg.Cols)
	}
	cellW, cellH := width/cfg.Cols, (height-header)/cfg.Rows
	if cellW < glyphW || cellH < lineH+barHeight {
		return nil, fmt.Errorf("graphic: %dx%d is too small for a %dx%d grid", width, height, cfg.Rows, cfg.Cols)
	}
	if present == nil {
		present = func(*image.Gray, image.Rectangle) error { return nil }
	}

	d := &Display{
		img:      image.NewGray(image.Rect(0, 0, width, height)),
		present:  present,
		rows:     cfg.Rows,
		cols:     cfg.Cols,
		groups:   cfg.Groups,
		maxValue: cfg.MaxValue,
		cellW:    cellW,
		cellH:    cellH,
		header:   header,
		cells:    make([]cell, cfg.Rows*cfg.Cols),
	}
	for i := range d.cells {
		d.cells[i].value = display.ValueOff
	}
	return d, nil
}

// Image returns a copy of the current frame
func (d *Display) Image() *image.Gray {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := image.NewGray(d.img.Rect)
	copy(out.Pix, d.img.Pix)
	return out
}

// CellRect is the framebuffer area of a cell
func (d *Display) CellRect(addr display.Address) image.Rectangle {
	x := addr.Col * d.cellW
	y := d.header + addr.Row*d.cellH
	return image.Rect(x, y, x+d.cellW, y+d.cellH)
}

func (d *Display) groupRect(g int) image.Rectangle {
	w := d.img.Rect.Dx()
	return image.Rect(g*w/d.groups, 0, (g+1)*w/d.groups, d.header)
}

func (d *Display) index(addr display.Address) (int, error) {
	if addr.Row < 0 || addr.Row >= d.rows || addr.Col < 0 || addr.Col >= d.cols {
		return 0, fmt.Errorf("graphic: no cell at %s", addr)
	}
	return addr.Row*d.cols + addr.Col, nil
}

func fill(img *image.Gray, r image.Rectangle, y uint8) {
	draw.Draw(img, r, image.NewUniform(color.Gray{Y: y}), image.Point{}, draw.Src)
}

func (d *Display) text(r image.Rectangle, s string, y uint8, centered bool) {
	chars := r.Dx() / glyphW
	if centered {
		s = lcd.Center(lcd.ASCII(s), chars)
	} else {
		s = lcd.Fit(lcd.ASCII(s), chars)
	}
	dr := font.Drawer{
		Dst:  d.img,
		Src:  image.NewUniform(color.Gray{Y: y}),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(r.Min.X, r.Min.Y+ascent),
	}
	dr.DrawString(s)
}

// paint redraws one cell; caller holds mu
func (d *Display) paint(idx int) image.Rectangle {
	c := d.cells[idx]
	r := d.CellRect(display.Address{Row: idx / d.cols, Col: idx % d.cols})

	bg, fg := uint8(0x00), uint8(0xFF)
	if c.colored {
		bg, fg = fg, bg
	}
	fill(d.img, r, 0x00)
	if c.hidden {
		return r
	}

	fill(d.img, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+lineH), bg)
	d.text(r, c.label, fg, false)

	if c.value != display.ValueOff && d.maxValue > 0 {
		w := r.Dx() - 2
		if d.maxValue > 1 {
			w = w * c.value / (d.maxValue - 1)
		}
		bar := image.Rect(r.Min.X+1, r.Max.Y-barHeight-1, r.Min.X+1+w, r.Max.Y-1)
		fill(d.img, bar, 0xFF)
	}
	return r
}

func (d *Display) update(addr display.Address, fn func(c *cell)) error {
	d.mu.Lock()
	idx, err := d.index(addr)
	if err != nil {
		d.mu.Unlock()
		return err
	}
	fn(&d.cells[idx])
	r := d.paint(idx)
	d.mu.Unlock()

	return d.present(d.img, r)
}

func (d *Display) WriteValue(addr display.Address, value int) error {
	return d.update(addr, func(c *cell) { c.value = value })
}

func (d *Display) WriteLabel(addr display.Address, e display.Element) error {
	return d.update(addr, func(c *cell) {
		c.label = e.Label
		c.colored = e.Color != display.NoColor
		c.hidden = e.Visible == display.Hidden
	})
}

func (d *Display) WriteGroupLabel(group int, text string) error {
	if group < 0 || group >= d.groups {
		return fmt.Errorf("graphic: no group %d", group)
	}
	d.mu.Lock()
	r := d.groupRect(group)
	fill(d.img, r, 0x00)
	d.text(r, text, 0xFF, true)
	d.mu.Unlock()

	return d.present(d.img, r)
}

// WriteFullScreenText clears the frame and centres text on it
func (d *Display) WriteFullScreenText(text string) error {
	d.mu.Lock()
	r := d.img.Rect
	fill(d.img, r, 0x00)
	if text != "" {
		mid := (r.Dy() - lineH) / 2
		d.text(image.Rect(0, mid, r.Dx(), mid+lineH), text, 0xFF, true)
	}
	d.mu.Unlock()

	return d.present(d.img, r)
}
