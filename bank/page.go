package bank

import (
	"fmt"
	"slices"
	"sync"

	"go-surface/debug"
	"go-surface/display"
)

// Mode selects which track parameter the page edits
type Mode int

const (
	ModeVolume Mode = iota
	ModePan
	numModes
)

func (m Mode) String() string {
	switch m {
	case ModeVolume:
		return "Volume"
	case ModePan:
		return "Pan"
	default:
		return "?"
	}
}

func (m Mode) get(t Track) int {
	if m == ModePan {
		return t.Pan
	}
	return t.Volume
}

func (m Mode) set(t *Track, v int) {
	if m == ModePan {
		t.Pan = v
	} else {
		t.Volume = v
	}
}

// Page lays a bank out on one or more display caches: track i goes to
// cell (i/cols, i%cols) of each cache that has room for it.
type Page struct {
	bank *Bank

	mu     sync.Mutex
	mode   Mode
	caches []*display.Cache
}

func NewPage(b *Bank) *Page {
	return &Page{bank: b}
}

func (p *Page) Bank() *Bank {
	return p.bank
}

// Attach starts mirroring the page onto c
func (p *Page) Attach(c *display.Cache) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if slices.Contains(p.caches, c) {
		return
	}
	p.caches = append(p.caches, c)
	p.renderTo(c, p.bank.Tracks())
}

// Detach stops mirroring onto c
func (p *Page) Detach(c *display.Cache) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.caches = slices.DeleteFunc(p.caches, func(x *display.Cache) bool { return x == c })
}

// Caches returns the attached caches
func (p *Page) Caches() []*display.Cache {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.caches)
}

func (p *Page) Mode() Mode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mode
}

// SetMode switches the edited parameter and announces it on every display
func (p *Page) SetMode(m Mode) {
	if m < 0 || m >= numModes {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mode = m
	tracks := p.bank.Tracks()
	for _, c := range p.caches {
		c.Notify(m.String())
		p.renderTo(c, tracks)
	}
	debug.Log("page", "mode %s", m)
}

// NextMode cycles through the modes
func (p *Page) NextMode() Mode {
	m := (p.Mode() + 1) % numModes
	p.SetMode(m)
	return m
}

// TrackAt maps a cell of c back to a track index
func TrackAt(c *display.Cache, row, col int) int {
	return row*c.Config().Cols + col
}

// HandleEncoder nudges the current parameter of a track by delta
func (p *Page) HandleEncoder(track, delta int) {
	p.edit(track, func(m Mode, t *Track) { m.set(t, m.get(*t)+delta) })
}

// SetValue sets the current parameter of a track (absolute controls)
func (p *Page) SetValue(track, value int) {
	p.edit(track, func(m Mode, t *Track) { m.set(t, value) })
}

// ToggleMute mutes or unmutes a track; muted tracks are hidden
func (p *Page) ToggleMute(track int) {
	p.edit(track, func(m Mode, t *Track) { t.Muted = !t.Muted })
}

func (p *Page) edit(track int, fn func(m Mode, t *Track)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	mode := p.mode
	t, ok := p.bank.Update(track, func(t *Track) { fn(mode, t) })
	if !ok {
		return
	}
	for _, c := range p.caches {
		p.pushTrack(c, track, t)
	}
}

// Render pushes the whole page to every attached display
func (p *Page) Render() {
	p.mu.Lock()
	defer p.mu.Unlock()
	tracks := p.bank.Tracks()
	for _, c := range p.caches {
		p.renderTo(c, tracks)
	}
}

func scale(v, top int) int {
	return v * top / (ParamMax + 1)
}

// pushTrack updates one track's cell; caller holds mu
func (p *Page) pushTrack(c *display.Cache, i int, t Track) {
	cfg := c.Config()
	if i >= cfg.Rows*cfg.Cols {
		return
	}
	row, col := i/cfg.Cols, i%cfg.Cols
	c.UpdateElement(row, col,
		display.WithLabel(t.Name),
		display.WithColor(t.Color),
		display.WithVisible(!t.Muted),
	)
	c.UpdateValue(row, col, scale(p.mode.get(t), cfg.MaxValue))
}

// renderTo pushes every cell and group label of c; caller holds mu
func (p *Page) renderTo(c *display.Cache, tracks []Track) {
	cfg := c.Config()
	cells := cfg.Rows * cfg.Cols
	for i := 0; i < cells; i++ {
		if i < len(tracks) {
			p.pushTrack(c, i, tracks[i])
		} else {
			c.ClearCell(i/cfg.Cols, i%cfg.Cols)
		}
	}

	if cfg.Groups == 0 {
		return
	}
	per := cells / cfg.Groups
	for g := 0; g < cfg.Groups; g++ {
		first, last := g*per, min((g+1)*per, len(tracks))
		text := ""
		if first < last {
			text = fmt.Sprintf("%s %d-%d", p.mode, first+1, last)
		}
		c.UpdateGroupLabel(g, text)
	}
}
