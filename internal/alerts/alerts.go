// Package alerts manages the stuck-alert lifecycle: raise, acknowledge,
// clear. A repository has zero or one alert at any time; each new stuck
// episode gets a fresh alert id.
package alerts

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lanathlor/Forge-sub000/pkg/models"
)

// Store holds the active alerts keyed by repository.
type Store struct {
	mu     sync.RWMutex
	active map[string]*models.Alert
}

// New creates an empty alert store.
func New() *Store {
	return &Store{
		active: make(map[string]*models.Alert),
	}
}

// Raise creates or refreshes the alert for a repository and returns its
// id. When an alert already exists, the severity is bumped only upwards
// and the duration is refreshed; acknowledgment is preserved. stuckSince
// is the activity timestamp the episode is measured from.
func (s *Store) Raise(repositoryID string, severity models.Severity, stuckSince, now time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	alert, ok := s.active[repositoryID]
	if !ok {
		alert = &models.Alert{
			ID:           uuid.NewString(),
			RepositoryID: repositoryID,
			Severity:     severity,
			StuckSince:   stuckSince,
		}
		s.active[repositoryID] = alert
	} else if severity.Level() > alert.Severity.Level() {
		alert.Severity = severity
	}

	secs := int64(now.Sub(alert.StuckSince) / time.Second)
	if secs > alert.StuckDurationSecs {
		alert.StuckDurationSecs = secs
	}
	return alert.ID
}

// Clear destroys the alert for a repository. Unknown repositories are a
// no-op.
func (s *Store) Clear(repositoryID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, repositoryID)
}

// Acknowledge marks the repository's alert as acknowledged and reports
// whether this call changed it. Idempotent; unknown repositories are a
// no-op, since acknowledging an alert that already cleared is valid and
// harmless.
func (s *Store) Acknowledge(repositoryID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	alert, ok := s.active[repositoryID]
	if !ok || alert.Acknowledged {
		return false
	}
	alert.Acknowledged = true
	return true
}

// Get returns a copy of the repository's alert, or nil when none exists.
func (s *Store) Get(repositoryID string) *models.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if alert, ok := s.active[repositoryID]; ok {
		return alert.Clone()
	}
	return nil
}

// Active returns copies of all current alerts. Order is unspecified.
func (s *Store) Active() []*models.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Alert, 0, len(s.active))
	for _, alert := range s.active {
		result = append(result, alert.Clone())
	}
	return result
}

// Unacknowledged reports whether the repository has an alert that has not
// been acknowledged. This is the source for the derived needsAttention
// projection.
func (s *Store) Unacknowledged(repositoryID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	alert, ok := s.active[repositoryID]
	return ok && !alert.Acknowledged
}

// Len returns the number of active alerts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.active)
}
