// Package store holds the in-memory per-repository session state.
// It is thread-safe for concurrent readers; writes arrive from a single
// delivery path (the hub's mutation loop).
package store

import (
	"sync"
	"time"

	"github.com/lanathlor/Forge-sub000/pkg/models"
)

// Store is the keyed snapshot of repository session state.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*models.RepoSessionState
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		sessions: make(map[string]*models.RepoSessionState),
	}
}

// Upsert merges a partial delta into the entry for its repository,
// creating the entry on first sight. Fields absent from the delta retain
// their prior values; LastActivity is taken verbatim from the event, never
// compared against the current value.
func (s *Store) Upsert(delta *models.StatusDelta) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyLocked(delta)
}

// ApplyResync replaces the entire keyed set with the repositories present
// in the resync. Entries absent from the resync are evicted.
func (s *Store) ApplyResync(deltas []*models.StatusDelta) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = make(map[string]*models.RepoSessionState, len(deltas))
	for _, d := range deltas {
		s.applyLocked(d)
	}
}

func (s *Store) applyLocked(delta *models.StatusDelta) {
	entry, ok := s.sessions[delta.RepositoryID]
	if !ok {
		entry = &models.RepoSessionState{
			RepositoryID: delta.RepositoryID,
			ClaudeStatus: models.StatusIdle,
		}
		s.sessions[delta.RepositoryID] = entry
	}

	if delta.RepositoryName != nil {
		entry.RepositoryName = *delta.RepositoryName
	}
	if delta.SessionID != nil {
		entry.SessionID = *delta.SessionID
	}
	if delta.ClaudeStatus != nil {
		entry.ClaudeStatus = *delta.ClaudeStatus
	}
	if delta.CurrentTask != nil {
		entry.CurrentTask = *delta.CurrentTask
	}
	if delta.LastActivity != nil {
		entry.LastActivity = *delta.LastActivity
	}
}

// Snapshot returns a consistent copy of all entries. Order is unspecified.
func (s *Store) Snapshot() []*models.RepoSessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.RepoSessionState, 0, len(s.sessions))
	for _, entry := range s.sessions {
		result = append(result, entry.Clone())
	}
	return result
}

// Get returns a copy of one repository's entry, or nil when unknown.
func (s *Store) Get(repositoryID string) *models.RepoSessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.sessions[repositoryID]
	if !ok {
		return nil
	}
	return entry.Clone()
}

// LastActivity returns the recorded activity timestamp for a repository.
// The zero time is returned for unknown repositories.
func (s *Store) LastActivity(repositoryID string) time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if entry, ok := s.sessions[repositoryID]; ok {
		return entry.LastActivity
	}
	return time.Time{}
}

// Len returns the number of tracked repositories.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
