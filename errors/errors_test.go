package errors

import (
	"fmt"
	"testing"
	"time"
)

func TestForgeError(t *testing.T) {
	// Test basic error creation
	err := New(ErrCodeMalformedEvent, "bad payload")
	if err.Code != ErrCodeMalformedEvent {
		t.Errorf("expected code %s, got %s", ErrCodeMalformedEvent, err.Code)
	}

	// Test error wrapping
	cause := fmt.Errorf("underlying error")
	wrapped := Wrap(cause, ErrCodeTransportDisconnected, "connection lost")

	if wrapped.Unwrap() != cause {
		t.Error("Unwrap should return the cause")
	}

	// Test Is function
	if !Is(wrapped, ErrCodeTransportDisconnected) {
		t.Error("Is should return true for matching code")
	}

	if Is(wrapped, ErrCodeMalformedEvent) {
		t.Error("Is should return false for non-matching code")
	}

	// Test WithDetail
	detailed := err.WithDetail("repository", "core").WithDetail("attempt", 3)
	if detailed.Details["repository"] != "core" {
		t.Error("WithDetail should add details")
	}
}

func TestErrorConstructors(t *testing.T) {
	// Test TransportDisconnected
	err := TransportDisconnected("unix:///tmp/forge.sock", fmt.Errorf("EOF"))
	if err.Code != ErrCodeTransportDisconnected {
		t.Errorf("expected code %s, got %s", ErrCodeTransportDisconnected, err.Code)
	}
	if err.Details["endpoint"] != "unix:///tmp/forge.sock" {
		t.Error("TransportDisconnected should include endpoint detail")
	}

	// Test StaleData
	err = StaleData(90 * time.Second)
	if err.Code != ErrCodeStaleData {
		t.Errorf("expected code %s, got %s", ErrCodeStaleData, err.Code)
	}
	if err.Details["age_seconds"] != int64(90) {
		t.Error("StaleData should include age detail")
	}
}

func TestGetCode(t *testing.T) {
	if GetCode(nil) != "" {
		t.Error("GetCode(nil) should return empty code")
	}

	wrapped := fmt.Errorf("outer: %w", MalformedEvent("{", fmt.Errorf("unexpected EOF")))
	if GetCode(wrapped) != ErrCodeMalformedEvent {
		t.Error("GetCode should unwrap to find the code")
	}
}
