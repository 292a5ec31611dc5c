package errors

import (
	"fmt"
	"time"
)

// TransportDisconnected creates a connection-lost error
func TransportDisconnected(endpoint string, cause error) *ForgeError {
	return Wrap(cause, ErrCodeTransportDisconnected,
		fmt.Sprintf("push channel disconnected: %s", endpoint)).
		WithDetail("endpoint", endpoint)
}

// TransportRefused creates a connection-refused error
func TransportRefused(endpoint string, cause error) *ForgeError {
	return Wrap(cause, ErrCodeTransportRefused,
		fmt.Sprintf("push channel refused connection: %s", endpoint)).
		WithDetail("endpoint", endpoint)
}

// MalformedEvent creates an unparseable-event error. The offending payload
// is carried in the details for logging; it never crashes the store.
func MalformedEvent(payload string, cause error) *ForgeError {
	return Wrap(cause, ErrCodeMalformedEvent, "event could not be merged").
		WithDetail("payload", payload)
}

// StaleData creates a freshness warning for a snapshot served while
// disconnected. This is advisory, not fatal.
func StaleData(age time.Duration) *ForgeError {
	return New(ErrCodeStaleData,
		fmt.Sprintf("snapshot is %s old while disconnected", age.Round(time.Second))).
		WithDetail("age_seconds", int64(age.Seconds()))
}

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *ForgeError {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *ForgeError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// HubStopped creates an error for operations against a stopped hub
func HubStopped() *ForgeError {
	return New(ErrCodeHubStopped, "hub has been stopped")
}
