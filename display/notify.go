package display

import (
	"time"

	"go-surface/debug"
)

// notification is the overlay state machine: idle when remaining is zero
type notification struct {
	duration  int // ticks
	message   string
	remaining int
	seq       uint64 // bumped by every Notify
	sentSeq   uint64
	onScreen  bool // some notification text reached the hardware
	blank     bool // an ended overlay is still on the hardware
}

func ticksFor(d, tick time.Duration) int {
	n := int(d / tick)
	if n < 1 {
		n = 1
	}
	return n
}

func (n *notification) active() bool {
	return n.remaining > 0
}

func (n *notification) start(message string) {
	n.message = message
	n.remaining = n.duration
	n.seq++
}

// pendingWrite returns the message if the current notification has not
// reached the hardware yet
func (n *notification) pendingWrite() (string, uint64, bool) {
	return n.message, n.seq, n.sentSeq != n.seq
}

func (n *notification) written(seq uint64) {
	n.sentSeq = seq
	n.onScreen = true
}

func (n *notification) blanked() {
	n.blank = false
	n.onScreen = false
}

// tick counts down and reports whether the notification just expired
func (n *notification) tick() bool {
	if n.remaining == 0 {
		return false
	}
	n.remaining--
	if n.remaining == 0 {
		n.end()
		return true
	}
	return false
}

func (n *notification) cancel() bool {
	if n.remaining == 0 {
		return false
	}
	n.remaining = 0
	n.end()
	return true
}

func (n *notification) end() {
	n.blank = n.onScreen
}

// Notify shows message over the whole display for the notification
// duration. A notification already showing is replaced and its countdown
// restarts.
func (c *Cache) Notify(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notice.start(message)
	debug.Log("notify", "%s: %q for %d ticks", c.cfg.Name, message, c.notice.duration)
}

// CancelNotification ends the notification now; the next flush redraws the
// normal content
func (c *Cache) CancelNotification() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.notice.cancel() {
		c.restoreLocked()
	}
}

// IsNotificationActive reports whether a notification owns the display
func (c *Cache) IsNotificationActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.notice.active()
}

// Notification returns the active message, if any
func (c *Cache) Notification() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.notice.active() {
		return "", false
	}
	return c.notice.message, true
}

// Tick advances the notification countdown by one tick. When it runs out
// the suppressed content is re-sent in full on the next flush.
func (c *Cache) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.notice.tick() {
		c.restoreLocked()
	}
}

// restoreLocked forces a full redraw after the overlay has covered the display
func (c *Cache) restoreLocked() {
	c.invalidateLocked()
	c.bypass = true
	debug.Log("notify", "%s: overlay done, redrawing", c.cfg.Name)
}
