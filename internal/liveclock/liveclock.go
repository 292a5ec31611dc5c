// Package liveclock drives the cosmetic per-second duration counters shown
// next to alerts. It runs on its own clock, reads previously-observed
// values only, and never writes back to the authoritative alert state.
package liveclock

import (
	"context"
	"sync"
	"time"

	"github.com/lanathlor/Forge-sub000/pkg/models"
)

type counter struct {
	alertID string
	seconds int64
}

// Clock tracks one consumer's displayed alert durations at 1 Hz.
type Clock struct {
	mu       sync.Mutex
	counters map[string]*counter
	interval time.Duration
}

// New creates a Clock. A zero interval defaults to one second.
func New(interval time.Duration) *Clock {
	if interval <= 0 {
		interval = time.Second
	}
	return &Clock{
		counters: make(map[string]*counter),
		interval: interval,
	}
}

// Observe reconciles the displayed set against the authoritative alerts.
// A newly displayed alert seeds its counter from the alert's authoritative
// duration; an alert whose id changed (new episode) resets to the new
// authoritative value; alerts no longer present collapse to zero and are
// dropped.
func (c *Clock) Observe(alerts []*models.Alert) {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[string]struct{}, len(alerts))
	for _, alert := range alerts {
		seen[alert.RepositoryID] = struct{}{}

		existing, ok := c.counters[alert.RepositoryID]
		if !ok || existing.alertID != alert.ID {
			c.counters[alert.RepositoryID] = &counter{
				alertID: alert.ID,
				seconds: alert.StuckDurationSecs,
			}
		}
	}

	for repo := range c.counters {
		if _, ok := seen[repo]; !ok {
			delete(c.counters, repo)
		}
	}
}

// Tick advances every displayed counter by one second.
func (c *Clock) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, ctr := range c.counters {
		ctr.seconds++
	}
}

// Seconds returns the displayed duration for a repository's alert. Zero
// when nothing is displayed for it.
func (c *Clock) Seconds(repositoryID string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ctr, ok := c.counters[repositoryID]; ok {
		return ctr.seconds
	}
	return 0
}

// Run ticks until the context is canceled.
func (c *Clock) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Tick()
		}
	}
}
