// Package testutil provides fake upstream status endpoints for tests.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lanathlor/Forge-sub000/pkg/models"
)

// StreamServer is a fake push endpoint with one long-lived stream per
// connection. Payloads written to Send are delivered to whichever
// connection is current; the server counts connections so tests can
// assert on transport lifecycle.
type StreamServer struct {
	srv   *httptest.Server
	send  chan string
	conns atomic.Int64
}

// NewStreamServer starts a StreamServer torn down with the test.
func NewStreamServer(t *testing.T) *StreamServer {
	t.Helper()
	s := &StreamServer{send: make(chan string, 64)}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintf(w, ": connected\n\n")
		flusher.Flush()
		s.conns.Add(1)

		for {
			select {
			case <-r.Context().Done():
				return
			case payload, ok := <-s.send:
				if !ok {
					return
				}
				fmt.Fprintf(w, "data: %s\n\n", payload)
				flusher.Flush()
			}
		}
	}))
	t.Cleanup(s.srv.Close)
	return s
}

// URL returns the endpoint to point an adapter at.
func (s *StreamServer) URL() string {
	return s.srv.URL
}

// Connections returns how many streams have been accepted so far.
func (s *StreamServer) Connections() int64 {
	return s.conns.Load()
}

// CloseClientConnections severs every active stream, simulating an
// upstream outage.
func (s *StreamServer) CloseClientConnections() {
	s.srv.CloseClientConnections()
}

// Send queues one raw payload for the current stream.
func (s *StreamServer) Send(payload string) {
	s.send <- payload
}

// SendDelta queues a partial status update for one repository.
func (s *StreamServer) SendDelta(repoID string, status models.ClaudeStatus, activity time.Time) {
	s.Send(fmt.Sprintf(
		`{"type":"delta","delta":{"repository_id":%q,"repository_name":%q,"claude_status":%q,"last_activity":%q}}`,
		repoID, repoID, status, activity.Format(time.RFC3339)))
}

// NewScriptedServer serves each payload list received on connections as
// one stream, then ends it so the client reconnects. Closing the channel
// ends the current handler; tests should close it before the server shuts
// down.
func NewScriptedServer(t *testing.T, connections chan []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			t.Error("response writer does not support flushing")
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintf(w, ": connected\n\n")
		flusher.Flush()

		payloads, ok := <-connections
		if !ok {
			return
		}
		for _, p := range payloads {
			fmt.Fprintf(w, "data: %s\n\n", p)
			flusher.Flush()
		}
	}))
}

// WaitFor polls cond until it holds or the deadline passes.
func WaitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}
