package coordinator

import (
	"context"
	"time"

	"github.com/CefBoud/corelog/logging"
)

// RunCleanupSweep periodically evicts stale members and rebalances any
// group that needs it, taking the same mutex as foreground operations
// without holding it across blocking I/O (spec §4.5, §5). It blocks
// until ctx is cancelled.
func (c *Coordinator) RunCleanupSweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sweepOnce()
		}
	}
}

func (c *Coordinator) sweepOnce() {
	c.mu.Lock()
	var stale []string
	for id, g := range c.groups {
		if c.needsRebalancingLocked(g) {
			stale = append(stale, id)
		}
	}
	c.mu.Unlock()

	for _, id := range stale {
		c.Rebalance(id)
		logging.Debug("cleanup sweep rebalanced group %v", id)
	}
}
