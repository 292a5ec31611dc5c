package models

// ConnectionPhase is the lifecycle phase of the upstream connection.
type ConnectionPhase string

const (
	ConnPhaseConnecting ConnectionPhase = "connecting"
	ConnPhaseConnected  ConnectionPhase = "connected"
	ConnPhaseError      ConnectionPhase = "error"
)

// ConnectionState is the process-wide view of the push-channel connection.
// Reason is only set while the phase is error.
type ConnectionState struct {
	Phase  ConnectionPhase `json:"phase"`
	Reason string          `json:"reason,omitempty"`
}

// Connected reports whether the transport currently has a live connection.
func (c ConnectionState) Connected() bool {
	return c.Phase == ConnPhaseConnected
}
