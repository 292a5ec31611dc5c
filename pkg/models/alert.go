package models

import "time"

// Severity is the escalation level of a stuck alert. Levels only ever
// increase while an episode remains unresolved.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Level returns the numeric rank of the severity for comparisons.
func (s Severity) Level() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// AtLeast reports whether s is the same or a higher level than other.
func (s Severity) AtLeast(other Severity) bool {
	return s.Level() >= other.Level()
}

// Alert is the materialized record of one stuck episode. A repository has
// zero or one alert at any time; a new episode after a cleared one gets a
// new ID.
type Alert struct {
	ID                string    `json:"id"`
	RepositoryID      string    `json:"repository_id"`
	Severity          Severity  `json:"severity"`
	Acknowledged      bool      `json:"acknowledged"`
	StuckSince        time.Time `json:"stuck_since"`
	StuckDurationSecs int64     `json:"stuck_duration_seconds"`
}

// Clone returns a copy of the alert.
func (a *Alert) Clone() *Alert {
	c := *a
	return &c
}
