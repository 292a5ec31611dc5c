// Package transport owns the single connection to the upstream push
// channel. It consumes the server-sent event stream, keeps the
// process-wide connection state current, and reconnects with bounded
// exponential backoff. Transport failures are reported through the
// connection state, never propagated to downstream components.
package transport

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	forgeerr "github.com/lanathlor/Forge-sub000/errors"
	"github.com/lanathlor/Forge-sub000/pkg/models"
)

const (
	scannerInitialBuffer = 64 * 1024
	scannerMaxBuffer     = 10 * 1024 * 1024
)

// Options configures the adapter.
type Options struct {
	// Endpoint is the push channel URL. A bare path or unix:// prefix is
	// dialed as a unix socket.
	Endpoint string

	// RetryMinBackoff and RetryMaxBackoff bound the reconnect delay.
	RetryMinBackoff time.Duration
	RetryMaxBackoff time.Duration

	Logger *logrus.Entry
}

// Adapter is the push-channel consumer. One Run loop at a time; the loop is
// the single retry path, so concurrent reconnect attempts cannot happen.
type Adapter struct {
	endpoint     string
	streamURL    string
	streamClient *http.Client
	minBackoff   time.Duration
	maxBackoff   time.Duration
	logger       *logrus.Entry

	mu      sync.RWMutex
	state   models.ConnectionState
	onState func(models.ConnectionState)
}

// New creates an Adapter for the configured endpoint.
func New(opts Options) *Adapter {
	minBackoff := opts.RetryMinBackoff
	if minBackoff <= 0 {
		minBackoff = 250 * time.Millisecond
	}
	maxBackoff := opts.RetryMaxBackoff
	if maxBackoff < minBackoff {
		maxBackoff = 30 * time.Second
	}

	endpoint := strings.TrimSpace(opts.Endpoint)
	streamURL := endpoint
	client := &http.Client{Timeout: 0} // no timeout: the stream is long-lived

	if socketPath, ok := unixSocketPath(endpoint); ok {
		client.Transport = &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", socketPath)
			},
		}
		streamURL = "http://unix/events"
	}

	return &Adapter{
		endpoint:     endpoint,
		streamURL:    streamURL,
		streamClient: client,
		minBackoff:   minBackoff,
		maxBackoff:   maxBackoff,
		logger:       opts.Logger,
		state:        models.ConnectionState{Phase: models.ConnPhaseConnecting},
	}
}

func unixSocketPath(endpoint string) (string, bool) {
	if strings.HasPrefix(endpoint, "unix://") {
		return strings.TrimPrefix(endpoint, "unix://"), true
	}
	if strings.HasPrefix(endpoint, "/") {
		return endpoint, true
	}
	return "", false
}

// OnStateChange registers a callback invoked synchronously with every
// connection-state transition. Must be set before Run.
func (a *Adapter) OnStateChange(fn func(models.ConnectionState)) {
	a.mu.Lock()
	a.onState = fn
	a.mu.Unlock()
}

// ConnectionState returns the current connection state.
func (a *Adapter) ConnectionState() models.ConnectionState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

func (a *Adapter) setState(state models.ConnectionState) {
	a.mu.Lock()
	changed := a.state != state
	a.state = state
	fn := a.onState
	a.mu.Unlock()

	if changed && fn != nil {
		fn(state)
	}
}

// Run connects and consumes the stream until the context is canceled,
// delivering each well-formed event to deliver on this goroutine. On
// stream errors it backs off and reconnects; downstream keeps serving the
// last known snapshot in the meantime. Cancellation is cooperative: an
// in-flight connection attempt is abandoned via the request context.
func (a *Adapter) Run(ctx context.Context, deliver func(*models.RawEvent)) {
	backoff := a.minBackoff

	for {
		if ctx.Err() != nil {
			return
		}

		a.setState(models.ConnectionState{Phase: models.ConnPhaseConnecting})

		connected, err := a.consumeStream(ctx, deliver)
		if ctx.Err() != nil {
			return
		}

		// A stream that reached connected resets the ladder; only
		// consecutive failed dials keep doubling.
		if connected {
			backoff = a.minBackoff
		}

		reason := "stream closed"
		if err != nil {
			reason = err.Error()
		}
		a.setState(models.ConnectionState{Phase: models.ConnPhaseError, Reason: reason})
		a.logger.WithField("backoff", backoff).WithError(err).Warn("Push channel lost, reconnecting")

		if !sleepWithContext(ctx, backoff) {
			return
		}
		backoff *= 2
		if backoff > a.maxBackoff {
			backoff = a.maxBackoff
		}
	}
}

// consumeStream runs one connection: dial, then scan SSE lines until the
// stream ends. Returns whether the stream reached connected, so the
// caller can reset its backoff.
func (a *Adapter) consumeStream(ctx context.Context, deliver func(*models.RawEvent)) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.streamURL, nil)
	if err != nil {
		return false, forgeerr.TransportRefused(a.endpoint, err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := a.streamClient.Do(req)
	if err != nil {
		return false, forgeerr.TransportRefused(a.endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, forgeerr.TransportRefused(a.endpoint, nil).
			WithDetail("status", resp.StatusCode)
	}

	a.setState(models.ConnectionState{Phase: models.ConnPhaseConnected})

	scanner := bufio.NewScanner(resp.Body)
	buf := make([]byte, 0, scannerInitialBuffer)
	scanner.Buffer(buf, scannerMaxBuffer)

	for scanner.Scan() {
		line := scanner.Text()

		// Skip SSE comments and keepalives.
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		payload := strings.TrimPrefix(line, "data: ")
		event, err := models.ParseRawEvent([]byte(payload))
		if err != nil {
			// Malformed events are dropped; one bad delta never affects
			// other repositories or tears down the connection.
			a.logger.WithError(forgeerr.MalformedEvent(payload, err)).Warn("Dropping event")
			continue
		}

		if event.Type == models.EventSignal {
			a.handleSignal(event.Signal)
			continue
		}
		deliver(event)
	}

	if err := scanner.Err(); err != nil {
		return true, forgeerr.TransportDisconnected(a.endpoint, err)
	}
	return true, nil
}

// handleSignal folds upstream transport signals into the connection state.
func (a *Adapter) handleSignal(sig *models.Signal) {
	switch sig.Kind {
	case models.SignalConnected:
		a.setState(models.ConnectionState{Phase: models.ConnPhaseConnected})
	case models.SignalError:
		a.setState(models.ConnectionState{Phase: models.ConnPhaseError, Reason: sig.Detail})
	case models.SignalClosed:
		// The server announced the stream is ending; the read loop will
		// observe EOF shortly and reconnect.
		a.logger.WithField("detail", sig.Detail).Debug("Upstream announced close")
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
