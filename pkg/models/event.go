package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType discriminates the payloads delivered over the push channel.
type EventType string

const (
	// EventDelta carries a partial update for a single repository.
	EventDelta EventType = "delta"
	// EventResync carries the full authoritative set of repositories and
	// replaces the entire store contents.
	EventResync EventType = "resync"
	// EventSignal carries a transport-level notice (connected, error,
	// closed). Signals never reach the status store.
	EventSignal EventType = "signal"
)

// StatusDelta is a partial update for one repository. Nil fields were not
// present in the incoming event and must retain their prior values. The
// LastActivity timestamp is taken verbatim; the transport is the sole
// source of ordering.
type StatusDelta struct {
	RepositoryID   string        `json:"repository_id"`
	RepositoryName *string       `json:"repository_name,omitempty"`
	SessionID      *string       `json:"session_id,omitempty"`
	ClaudeStatus   *ClaudeStatus `json:"claude_status,omitempty"`
	CurrentTask    *string       `json:"current_task,omitempty"`
	LastActivity   *time.Time    `json:"last_activity,omitempty"`
}

// SignalKind identifies a transport-level signal.
type SignalKind string

const (
	SignalConnected SignalKind = "connected"
	SignalError     SignalKind = "error"
	SignalClosed    SignalKind = "closed"
)

// Signal is a transport-level notice from the push channel.
type Signal struct {
	Kind   SignalKind `json:"type"`
	Detail string     `json:"detail,omitempty"`
}

// RawEvent is one unit delivered by the push channel: exactly one of Delta,
// Resync, or Signal is set, matching Type.
type RawEvent struct {
	Type   EventType      `json:"type"`
	Delta  *StatusDelta   `json:"delta,omitempty"`
	Resync []*StatusDelta `json:"resync,omitempty"`
	Signal *Signal        `json:"signal,omitempty"`
}

// Validate checks that the event's payload matches its declared type.
func (e *RawEvent) Validate() error {
	switch e.Type {
	case EventDelta:
		if e.Delta == nil {
			return fmt.Errorf("delta event without delta payload")
		}
		if e.Delta.RepositoryID == "" {
			return fmt.Errorf("delta event without repository_id")
		}
		if e.Delta.ClaudeStatus != nil && !e.Delta.ClaudeStatus.Valid() {
			return fmt.Errorf("delta event with unknown status %q", *e.Delta.ClaudeStatus)
		}
	case EventResync:
		for i, d := range e.Resync {
			if d == nil || d.RepositoryID == "" {
				return fmt.Errorf("resync entry %d without repository_id", i)
			}
		}
	case EventSignal:
		if e.Signal == nil {
			return fmt.Errorf("signal event without signal payload")
		}
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	return nil
}

// ParseRawEvent decodes a single push-channel payload and validates it.
func ParseRawEvent(data []byte) (*RawEvent, error) {
	var ev RawEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return &ev, nil
}
