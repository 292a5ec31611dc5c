// Package models defines the shared data types for the live status
// aggregation core: per-repository session state, stuck alerts, and the
// events delivered over the upstream push channel.
package models

import "time"

// ClaudeStatus is the agent-activity classification self-reported by the
// upstream session. It is distinct from the derived stuck alert: an agent
// can report StatusStuck on its own, independent of the time-based
// classification made by the detector.
type ClaudeStatus string

const (
	StatusWriting      ClaudeStatus = "writing"
	StatusThinking     ClaudeStatus = "thinking"
	StatusWaitingInput ClaudeStatus = "waiting_input"
	StatusStuck        ClaudeStatus = "stuck"
	StatusPaused       ClaudeStatus = "paused"
	StatusIdle         ClaudeStatus = "idle"
)

// Valid reports whether s is one of the known status values.
func (s ClaudeStatus) Valid() bool {
	switch s {
	case StatusWriting, StatusThinking, StatusWaitingInput, StatusStuck, StatusPaused, StatusIdle:
		return true
	}
	return false
}

// Working reports whether the status belongs to the working subset that the
// detector considers eligible for stuck classification.
func (s ClaudeStatus) Working() bool {
	switch s {
	case StatusWriting, StatusThinking, StatusWaitingInput:
		return true
	}
	return false
}

// DisplayPriority returns the rank of this status for display ordering.
// Lower is more important. Writing and thinking share the top rank.
func (s ClaudeStatus) DisplayPriority() int {
	switch s {
	case StatusWriting, StatusThinking:
		return 0
	case StatusWaitingInput:
		return 1
	case StatusStuck:
		return 2
	case StatusPaused:
		return 3
	case StatusIdle:
		return 4
	default:
		return 5
	}
}

// RepoSessionState is the aggregated view of one repository's agent session.
// Identity is RepositoryID; there is exactly one entry per repository.
type RepoSessionState struct {
	RepositoryID   string       `json:"repository_id"`
	RepositoryName string       `json:"repository_name"`
	SessionID      string       `json:"session_id,omitempty"`
	ClaudeStatus   ClaudeStatus `json:"claude_status"`
	CurrentTask    string       `json:"current_task,omitempty"`
	LastActivity   time.Time    `json:"last_activity"`

	// NeedsAttention is derived: true while an unacknowledged alert exists
	// for this repository. It is computed from the alert store on read and
	// never settable from an incoming event.
	NeedsAttention bool `json:"needs_attention"`
}

// Clone returns a copy of the state. All fields are value types, so a
// shallow copy is a full copy.
func (r *RepoSessionState) Clone() *RepoSessionState {
	c := *r
	return &c
}
