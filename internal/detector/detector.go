// Package detector periodically reclassifies repositories as stuck or
// unstuck based on elapsed time since their last activity. It is the only
// component that advances an alert's authoritative duration.
package detector

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lanathlor/Forge-sub000/internal/alerts"
	"github.com/lanathlor/Forge-sub000/internal/store"
	"github.com/lanathlor/Forge-sub000/pkg/models"
)

// Thresholds is the severity ladder: elapsed inactivity while in a working
// status maps to a severity. Values must be strictly increasing.
type Thresholds struct {
	Low      time.Duration
	Medium   time.Duration
	High     time.Duration
	Critical time.Duration
}

// Classify maps elapsed inactivity to a severity. ok is false below the
// first rung.
func (t Thresholds) Classify(elapsed time.Duration) (severity models.Severity, ok bool) {
	switch {
	case elapsed >= t.Critical:
		return models.SeverityCritical, true
	case elapsed >= t.High:
		return models.SeverityHigh, true
	case elapsed >= t.Medium:
		return models.SeverityMedium, true
	case elapsed >= t.Low:
		return models.SeverityLow, true
	}
	return "", false
}

// Detector is the periodic stuck evaluator.
type Detector struct {
	store  *store.Store
	alerts *alerts.Store
	logger *logrus.Entry

	mu         sync.RWMutex
	thresholds Thresholds

	interval time.Duration
	now      func() time.Time
}

// New creates a Detector scanning the given stores.
func New(st *store.Store, al *alerts.Store, thresholds Thresholds, interval time.Duration, logger *logrus.Entry) *Detector {
	return &Detector{
		store:      st,
		alerts:     al,
		logger:     logger,
		thresholds: thresholds,
		interval:   interval,
		now:        time.Now,
	}
}

// SetNow overrides the clock. Tests only.
func (d *Detector) SetNow(now func() time.Time) { d.now = now }

// SetThresholds atomically replaces the severity ladder, used by config
// hot reload. The next evaluation uses the new values; an evaluation in
// progress finishes with the old ones.
func (d *Detector) SetThresholds(t Thresholds) {
	d.mu.Lock()
	d.thresholds = t
	d.mu.Unlock()
}

// Interval returns the configured tick period.
func (d *Detector) Interval() time.Duration { return d.interval }

// Run evaluates on a fixed tick until the context is canceled. Each
// evaluation runs through exec, the hub's mutation serializer, so ticks
// never race with event delivery. changed is invoked after an evaluation
// that mutated the alert set.
func (d *Detector) Run(ctx context.Context, exec func(func()), changed func()) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			exec(func() {
				if d.Evaluate(d.now()) && changed != nil {
					changed()
				}
			})
		}
	}
}

// Evaluate runs one full scan at the given instant and reports whether any
// alert was raised, escalated, or cleared. Re-evaluating an unchanged
// snapshot a second time produces no further mutations.
func (d *Detector) Evaluate(now time.Time) bool {
	d.mu.RLock()
	thresholds := d.thresholds
	d.mu.RUnlock()

	mutated := false
	for _, entry := range d.store.Snapshot() {
		if d.evaluateEntry(entry, thresholds, now) {
			mutated = true
		}
	}
	return mutated
}

func (d *Detector) evaluateEntry(entry *models.RepoSessionState, thresholds Thresholds, now time.Time) bool {
	existing := d.alerts.Get(entry.RepositoryID)

	// Statuses outside the working subset are never stuck; idle and
	// paused in particular. Leaving the subset resolves the episode.
	if !entry.ClaudeStatus.Working() {
		if existing == nil {
			return false
		}
		d.alerts.Clear(entry.RepositoryID)
		d.logger.WithFields(logrus.Fields{
			"repository": entry.RepositoryID,
			"status":     entry.ClaudeStatus,
		}).Info("Alert cleared: left working status")
		return true
	}

	elapsed := now.Sub(entry.LastActivity)
	severity, stuck := thresholds.Classify(elapsed)
	if !stuck {
		// Activity resumed below the first rung: destroy, not downgrade.
		if existing == nil {
			return false
		}
		d.alerts.Clear(entry.RepositoryID)
		d.logger.WithField("repository", entry.RepositoryID).Info("Alert cleared: activity resumed")
		return true
	}

	prevDuration := int64(0)
	if existing != nil {
		prevDuration = existing.StuckDurationSecs
	}
	id := d.alerts.Raise(entry.RepositoryID, severity, entry.LastActivity, now)

	switch {
	case existing == nil:
		d.logger.WithFields(logrus.Fields{
			"repository": entry.RepositoryID,
			"severity":   severity,
			"alert":      id,
		}).Warn("Stuck alert raised")
		return true
	case severity.Level() > existing.Severity.Level():
		d.logger.WithFields(logrus.Fields{
			"repository": entry.RepositoryID,
			"severity":   severity,
			"alert":      id,
		}).Warn("Stuck alert escalated")
		return true
	default:
		// Duration refresh alone still needs fan-out so observers see
		// the authoritative counter advance.
		current := d.alerts.Get(entry.RepositoryID)
		return current != nil && current.StuckDurationSecs != prevDuration
	}
}
