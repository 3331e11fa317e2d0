// Package display implements a differential update cache for slow
// hardware displays (MIDI sysex scribble strips, LED grids, small OLEDs).
//
// UI code mutates the pending state as often as it likes. Flush diffs that
// state against a shadow of what the hardware last received and writes only
// the fields that changed, after value edits have settled for a short
// window. A notification overlay can take over the whole display for a
// fixed number of ticks.
package display

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go-surface/debug"
)

// Default timings
const (
	DefaultSettleWindow         = 200 * time.Millisecond
	DefaultNotificationDuration = time.Second
	DefaultTickInterval         = 100 * time.Millisecond
	DefaultFlushInterval        = time.Second / 30
)

// ErrInvalidConfig is returned by New for unusable dimensions
var ErrInvalidConfig = errors.New("display: invalid config")

// Config describes the grid and timing of one display
type Config struct {
	Name     string // used in debug logs
	Rows     int
	Cols     int
	Groups   int
	MaxValue int

	SettleWindow         time.Duration
	NotificationDuration time.Duration
	TickInterval         time.Duration
	FlushInterval        time.Duration

	Clock Clock
}

func (c *Config) validate() error {
	if c.Rows <= 0 || c.Cols <= 0 {
		return fmt.Errorf("%w: grid %dx%d", ErrInvalidConfig, c.Rows, c.Cols)
	}
	if c.Groups < 0 {
		return fmt.Errorf("%w: %d groups", ErrInvalidConfig, c.Groups)
	}
	if c.MaxValue <= 0 {
		return fmt.Errorf("%w: max value %d", ErrInvalidConfig, c.MaxValue)
	}
	if c.SettleWindow < 0 || c.NotificationDuration < 0 || c.TickInterval < 0 || c.FlushInterval < 0 {
		return fmt.Errorf("%w: negative duration", ErrInvalidConfig)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = "display"
	}
	if c.SettleWindow == 0 {
		c.SettleWindow = DefaultSettleWindow
	}
	if c.NotificationDuration == 0 {
		c.NotificationDuration = DefaultNotificationDuration
	}
	if c.TickInterval == 0 {
		c.TickInterval = DefaultTickInterval
	}
	if c.FlushInterval == 0 {
		c.FlushInterval = DefaultFlushInterval
	}
	if c.Clock == nil {
		c.Clock = SystemClock{}
	}
}

// Stats counts flush activity since construction
type Stats struct {
	Flushes   uint64 // flushes that wrote something
	Writes    uint64 // ops delivered
	Failures  uint64 // ops the sink rejected
	Debounced uint64 // flushes skipped inside the settle window
}

// Cache is a differential display cache for one hardware endpoint
type Cache struct {
	cfg  Config
	sink Sink

	mu         sync.Mutex
	buf        *buffer
	lastEdit   time.Time
	bypass     bool   // skip the settle window for one flush
	generation uint64 // bumped whenever the shadow is invalidated
	notice     notification
	stats      Stats

	flushMu sync.Mutex // serialises Flush so sink writes never interleave
}

// New creates a cache writing to sink. The shadow starts unknown, so the
// first flush sends every field a caller has set.
func New(sink Sink, cfg Config) (*Cache, error) {
	if sink == nil {
		return nil, fmt.Errorf("%w: nil sink", ErrInvalidConfig)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	return &Cache{
		cfg:    cfg,
		sink:   sink,
		buf:    newBuffer(cfg.Rows, cfg.Cols, cfg.Groups),
		notice: notification{duration: ticksFor(cfg.NotificationDuration, cfg.TickInterval)},
	}, nil
}

// Config returns the effective configuration
func (c *Cache) Config() Config {
	return c.cfg
}

func (c *Cache) index(row, col int) int {
	if row < 0 || row >= c.cfg.Rows || col < 0 || col >= c.cfg.Cols {
		panic(fmt.Sprintf("display %s: cell (%d,%d) outside %dx%d grid", c.cfg.Name, row, col, c.cfg.Rows, c.cfg.Cols))
	}
	return row*c.cfg.Cols + col
}

func (c *Cache) checkGroup(group int) {
	if group < 0 || group >= c.cfg.Groups {
		panic(fmt.Sprintf("display %s: group %d outside [0,%d)", c.cfg.Name, group, c.cfg.Groups))
	}
}

// clamp keeps value inside [0, MaxValue) unless it is ValueOff
func (c *Cache) clamp(value int) int {
	switch {
	case value == ValueOff:
		return value
	case value < 0:
		return 0
	case value >= c.cfg.MaxValue:
		return c.cfg.MaxValue - 1
	}
	return value
}

// UpdateValue sets the pending value of a cell and restarts the settle window
func (c *Cache) UpdateValue(row, col, value int) {
	idx := c.index(row, col)
	value = c.clamp(value)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.buf.set(idx, Cell{Value: value}, FieldValue)
	c.lastEdit = c.cfg.Clock.Now()
}

// UpdateElement sets any of label, color and visibility. Fields without an
// option are left as they are.
func (c *Cache) UpdateElement(row, col int, opts ...ElementOption) {
	idx := c.index(row, col)
	var u elementUpdate
	for _, opt := range opts {
		opt(&u)
	}
	if u.mask == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.buf.set(idx, u.cell, u.mask)
}

// UpdateGroupLabel sets the pending text of a group header
func (c *Cache) UpdateGroupLabel(group int, text string) {
	c.checkGroup(group)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.buf.setGroup(group, text)
}

// ClearCell switches the value off and blanks label and color
func (c *Cache) ClearCell(row, col int) {
	idx := c.index(row, col)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.buf.set(idx, Cell{Value: ValueOff}, FieldValue|FieldLabel|FieldColor)
}

// Pending returns the latest requested state of a cell
func (c *Cache) Pending(row, col int) Cell {
	idx := c.index(row, col)

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.pending[idx]
}

// Sent returns what the hardware was last sent for a cell and which of its
// fields are known
func (c *Cache) Sent(row, col int) (Cell, Field) {
	idx := c.index(row, col)

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.shadow[idx], c.buf.known[idx]
}

// Dirty reports whether pending state still has to reach the hardware
func (c *Cache) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.isDirty()
}

// Stats returns a copy of the flush counters
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Reset forgets what the hardware shows (e.g. after a reconnect). Pending
// is kept; the next flush past the settle window re-sends all of it.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidateLocked()
	debug.Log("display", "%s: reset", c.cfg.Name)
}

// ForceFlush makes the next flush re-send everything without waiting for
// the settle window
func (c *Cache) ForceFlush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidateLocked()
	c.bypass = true
}

func (c *Cache) invalidateLocked() {
	c.buf.invalidate()
	c.generation++
}

// Flush writes pending changes to the sink. It is cheap when nothing is
// dirty and does nothing while value edits are still settling. Fields whose
// write fails stay dirty and are retried by the next flush.
//
// While a notification is active Flush writes its text once per Notify and
// then leaves the hardware alone. If something outside the cache overwrites
// the screen, the overlay is not re-asserted.
func (c *Cache) Flush() error {
	c.flushMu.Lock()
	defer c.flushMu.Unlock()

	c.mu.Lock()
	if c.notice.active() {
		text, seq, pending := c.notice.pendingWrite()
		c.mu.Unlock()
		if !pending {
			return nil
		}
		return c.writeOverlay(text, seq)
	}
	blank := c.notice.blank
	c.mu.Unlock()

	if blank {
		if err := c.clearOverlay(); err != nil {
			return err
		}
	}
	return c.flushCells()
}

func (c *Cache) writeOverlay(text string, seq uint64) error {
	err := c.sink.WriteFullScreenText(text)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.stats.Failures++
		return fmt.Errorf("display %s: write notification: %w", c.cfg.Name, err)
	}
	c.notice.written(seq)
	c.stats.Writes++
	return nil
}

// clearOverlay blanks a notification that is no longer active
func (c *Cache) clearOverlay() error {
	err := c.sink.WriteFullScreenText("")

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.stats.Failures++
		return fmt.Errorf("display %s: clear notification: %w", c.cfg.Name, err)
	}
	c.notice.blanked()
	c.stats.Writes++
	return nil
}

func (c *Cache) flushCells() error {
	c.mu.Lock()
	if !c.buf.isDirty() {
		c.bypass = false
		c.mu.Unlock()
		return nil
	}
	if !c.bypass {
		if elapsed := c.cfg.Clock.Now().Sub(c.lastEdit); elapsed < c.cfg.SettleWindow {
			c.stats.Debounced++
			c.mu.Unlock()
			return nil
		}
	}
	c.bypass = false
	ops := c.buf.diff()
	gen := c.generation
	c.mu.Unlock()

	if len(ops) == 0 {
		return nil
	}

	failed, err := send(c.sink, ops)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen == c.generation {
		c.buf.commit(ops, failed)
	}
	c.stats.Flushes++
	for _, f := range failed {
		if f {
			c.stats.Failures++
		} else {
			c.stats.Writes++
		}
	}
	debug.LogEvery(50, "flush", "%s: %d ops", c.cfg.Name, len(ops))
	if err != nil {
		return fmt.Errorf("display %s: %w", c.cfg.Name, err)
	}
	return nil
}
