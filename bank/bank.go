// Package bank holds the mixer state shown on the surfaces and the page
// that maps it onto display caches.
package bank

import (
	"fmt"
	"sync"

	"go-surface/display"
)

// Parameter range shared by volume and pan
const (
	ParamMax   = 127
	PanCenter  = 64
	VolumeUnit = 100 // 0 dB
)

// Track is one channel strip.
type Track struct {
	Name   string        `json:"name"`
	Color  display.Color `json:"color"`
	Volume int           `json:"volume"` // 0-127
	Pan    int           `json:"pan"`    // 0-127, 64 = center
	Muted  bool          `json:"muted,omitempty"`
}

// Bank is an ordered set of tracks, safe for concurrent use.
type Bank struct {
	mu     sync.RWMutex
	name   string
	tracks []Track
}

// New creates a bank of n tracks with default names, cycling colors 1-10.
func New(name string, n int) *Bank {
	tracks := make([]Track, n)
	for i := range tracks {
		tracks[i] = Track{
			Name:   fmt.Sprintf("Trk %d", i+1),
			Color:  display.Color(i%10 + 1),
			Volume: VolumeUnit,
			Pan:    PanCenter,
		}
	}
	return &Bank{name: name, tracks: tracks}
}

func (b *Bank) Name() string {
	return b.name
}

// Len returns the number of tracks.
func (b *Bank) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.tracks)
}

// Tracks returns a snapshot of all tracks.
func (b *Bank) Tracks() []Track {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Track, len(b.tracks))
	copy(out, b.tracks)
	return out
}

// Track returns a copy of track i.
func (b *Bank) Track(i int) (Track, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if i < 0 || i >= len(b.tracks) {
		return Track{}, false
	}
	return b.tracks[i], true
}

// Update applies fn to track i under the write lock and returns the result.
func (b *Bank) Update(i int, fn func(t *Track)) (Track, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i < 0 || i >= len(b.tracks) {
		return Track{}, false
	}
	fn(&b.tracks[i])
	t := &b.tracks[i]
	t.Volume = clampParam(t.Volume)
	t.Pan = clampParam(t.Pan)
	return *t, true
}

// Rename sets a track name.
func (b *Bank) Rename(i int, name string) bool {
	_, ok := b.Update(i, func(t *Track) { t.Name = name })
	return ok
}

// SetColor sets a track color tag.
func (b *Bank) SetColor(i int, c display.Color) bool {
	_, ok := b.Update(i, func(t *Track) { t.Color = c })
	return ok
}

func clampParam(v int) int {
	if v < 0 {
		return 0
	}
	if v > ParamMax {
		return ParamMax
	}
	return v
}
