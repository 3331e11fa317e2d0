package display

import (
	"context"
	"time"

	"go-surface/debug"
)

// Run drives the notification countdown and periodic flushes until ctx is
// done (blocking - run in a goroutine)
func (c *Cache) Run(ctx context.Context) {
	tick := time.NewTicker(c.cfg.TickInterval)
	flush := time.NewTicker(c.cfg.FlushInterval)
	defer tick.Stop()
	defer flush.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			c.Tick()
		case <-flush.C:
			if err := c.Flush(); err != nil {
				debug.LogEvery(10, "flush", "%s: %v", c.cfg.Name, err)
			}
		}
	}
}
