// Package hub multiplexes the single upstream subscription to any number
// of UI observers. It owns the transport adapter, the status and alert
// stores, and the stuck detector, and serializes every mutation (event
// delivery, detector ticks, acknowledgments) onto one goroutine so they
// can never race.
package hub

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lanathlor/Forge-sub000/config"
	forgeerr "github.com/lanathlor/Forge-sub000/errors"
	"github.com/lanathlor/Forge-sub000/internal/alerts"
	"github.com/lanathlor/Forge-sub000/internal/detector"
	"github.com/lanathlor/Forge-sub000/internal/rank"
	"github.com/lanathlor/Forge-sub000/internal/store"
	"github.com/lanathlor/Forge-sub000/internal/transport"
	"github.com/lanathlor/Forge-sub000/logging"
	"github.com/lanathlor/Forge-sub000/pkg/models"
)

// Hub is the fan-out point between the push channel and the UI surfaces.
type Hub struct {
	logger *logrus.Entry

	store    *store.Store
	alerts   *alerts.Store
	detector *detector.Detector
	adapter  *transport.Adapter

	// mutations is the single write path: event delivery, detector ticks,
	// and acknowledgments all run as closures on one goroutine.
	mutations chan func()

	mu        sync.Mutex
	observers map[int64]*Observer
	nextID    int64

	// session covers the transport and detector goroutines. It exists
	// only while at least one observer is subscribed.
	sessionCancel context.CancelFunc
	sessionDone   chan struct{}

	rootCtx    context.Context
	rootCancel context.CancelFunc
	loopDone   chan struct{}
	stopped    bool

	lastEventAt time.Time
}

// New creates a Hub from the given configuration and starts its mutation
// loop. The transport is not connected until the first observer
// subscribes.
func New(cfg *config.Config) *Hub {
	logger := logging.NewLogger("hub")

	st := store.New()
	al := alerts.New()
	det := detector.New(st, al, detector.Thresholds{
		Low:      cfg.Detector.LowThreshold.Std(),
		Medium:   cfg.Detector.MediumThreshold.Std(),
		High:     cfg.Detector.HighThreshold.Std(),
		Critical: cfg.Detector.CriticalThreshold.Std(),
	}, cfg.Detector.TickInterval.Std(), logging.NewLogger("detector"))

	adapter := transport.New(transport.Options{
		Endpoint:        cfg.Transport.Endpoint,
		RetryMinBackoff: cfg.Transport.RetryMinBackoff.Std(),
		RetryMaxBackoff: cfg.Transport.RetryMaxBackoff.Std(),
		Logger:          logging.NewLogger("transport"),
	})

	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		logger:     logger,
		store:      st,
		alerts:     al,
		detector:   det,
		adapter:    adapter,
		mutations:  make(chan func(), 128),
		observers:  make(map[int64]*Observer),
		rootCtx:    ctx,
		rootCancel: cancel,
		loopDone:   make(chan struct{}),
	}

	adapter.OnStateChange(func(state models.ConnectionState) {
		// Connection transitions ride the mutation queue so observers see
		// them in order relative to event-driven snapshots.
		h.enqueue(func() {
			h.broadcast(UpdateConnection)
		})
	})

	go h.mutationLoop()
	return h
}

// mutationLoop is the single writer into the stores.
func (h *Hub) mutationLoop() {
	defer close(h.loopDone)
	for {
		select {
		case <-h.rootCtx.Done():
			return
		case fn := <-h.mutations:
			fn()
		}
	}
}

func (h *Hub) enqueue(fn func()) {
	select {
	case h.mutations <- fn:
	case <-h.rootCtx.Done():
	}
}

// enqueueWait runs fn on the mutation goroutine and waits for it.
func (h *Hub) enqueueWait(fn func()) error {
	done := make(chan struct{})
	h.enqueue(func() {
		fn()
		close(done)
	})
	select {
	case <-done:
		return nil
	case <-h.rootCtx.Done():
		return forgeerr.HubStopped()
	}
}

// deliver routes one push-channel event into the status store.
func (h *Hub) deliver(event *models.RawEvent) {
	h.enqueue(func() {
		switch event.Type {
		case models.EventDelta:
			h.store.Upsert(event.Delta)
		case models.EventResync:
			h.store.ApplyResync(event.Resync)
			// Repositories evicted by the resync lose their alerts too.
			for _, alert := range h.alerts.Active() {
				if h.store.Get(alert.RepositoryID) == nil {
					h.alerts.Clear(alert.RepositoryID)
				}
			}
		default:
			return
		}
		h.lastEventAt = time.Now()
		h.broadcast(UpdateSnapshot)
	})
}

// Subscribe registers a new observer with an optional filter. The first
// observer brings up the shared transport; it is reused by all later
// observers.
func (h *Hub) Subscribe(filter rank.Filter) (*Observer, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		return nil, forgeerr.HubStopped()
	}

	h.nextID++
	obs := newObserver(h, h.nextID, filter)
	h.observers[h.nextID] = obs

	if h.sessionCancel == nil {
		h.startSessionLocked()
	}

	h.logger.WithField("observer", obs.id).Debug("Observer subscribed")

	// Prime the new observer with the current state so it has data
	// before the next event arrives.
	h.enqueue(func() {
		obs.publish(h.project(), h.alerts.Active(), h.adapter.ConnectionState(), UpdateSnapshot)
	})
	return obs, nil
}

// startSessionLocked brings up the transport and detector. Caller holds
// h.mu.
func (h *Hub) startSessionLocked() {
	ctx, cancel := context.WithCancel(h.rootCtx)
	done := make(chan struct{})
	h.sessionCancel = cancel
	h.sessionDone = done

	h.logger.Info("First observer: connecting push channel")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		h.adapter.Run(ctx, h.deliver)
	}()
	go func() {
		defer wg.Done()
		h.detector.Run(ctx, h.enqueue, func() {
			h.broadcast(UpdateSnapshot)
		})
	}()
	go func() {
		wg.Wait()
		close(done)
	}()
}

// unsubscribe removes one observer; the last observer out tears down the
// shared transport. In-flight reconnect attempts are abandoned via
// context cancellation.
func (h *Hub) unsubscribe(id int64) {
	h.mu.Lock()
	obs, ok := h.observers[id]
	if ok {
		delete(h.observers, id)
	}
	var cancel context.CancelFunc
	if ok && len(h.observers) == 0 && h.sessionCancel != nil {
		cancel = h.sessionCancel
		h.sessionCancel = nil
		h.sessionDone = nil
	}
	h.mu.Unlock()

	if !ok {
		return
	}
	obs.close()
	h.logger.WithField("observer", id).Debug("Observer unsubscribed")

	if cancel != nil {
		h.logger.Info("Last observer gone: tearing down push channel")
		cancel()
	}
}

// Acknowledge marks the repository's alert as acknowledged. Idempotent;
// unknown repositories are a harmless no-op. The mutation is serialized
// with event delivery and detector ticks.
func (h *Hub) Acknowledge(repositoryID string) error {
	return h.enqueueWait(func() {
		if h.alerts.Acknowledge(repositoryID) {
			h.logger.WithField("repository", repositoryID).Info("Alert acknowledged")
		}
		h.broadcast(UpdateSnapshot)
	})
}

// Select resolves a repository picked from any ranked view. The core does
// no navigation; it returns the current entry for the caller to act on.
func (h *Hub) Select(repositoryID string, sessionID string) (*models.RepoSessionState, bool) {
	entry := h.store.Get(repositoryID)
	if entry == nil {
		return nil, false
	}
	if sessionID != "" && entry.SessionID != sessionID {
		// The session the caller saw is gone; still return the live entry.
		h.logger.WithFields(logrus.Fields{
			"repository": repositoryID,
			"session":    sessionID,
		}).Debug("Selected session superseded")
	}
	entry.NeedsAttention = h.alerts.Unacknowledged(repositoryID)
	return entry, true
}

// Current returns the ranked projection, active alerts, and connection
// state as a one-shot read, without a subscription.
func (h *Hub) Current(filter rank.Filter) ([]*models.RepoSessionState, []*models.Alert, models.ConnectionState) {
	projected := h.project()
	ranked := rank.Rank(rank.Apply(projected, filter))
	return ranked, h.alerts.Active(), h.adapter.ConnectionState()
}

// ConnectionState returns the transport's current state.
func (h *Hub) ConnectionState() models.ConnectionState {
	return h.adapter.ConnectionState()
}

// StaleWarning returns a STALE_DATA advisory when the hub is disconnected
// and the snapshot is older than bound. Nil while connected or fresh.
func (h *Hub) StaleWarning(bound time.Duration) error {
	if h.adapter.ConnectionState().Connected() {
		return nil
	}
	var last time.Time
	_ = h.enqueueWait(func() { last = h.lastEventAt })
	if last.IsZero() {
		return nil
	}
	if age := time.Since(last); age > bound {
		return forgeerr.StaleData(age)
	}
	return nil
}

// ApplyConfig installs reloaded detection thresholds. Presentation windows
// are observer-side and unaffected.
func (h *Hub) ApplyConfig(cfg *config.Config) {
	h.detector.SetThresholds(detector.Thresholds{
		Low:      cfg.Detector.LowThreshold.Std(),
		Medium:   cfg.Detector.MediumThreshold.Std(),
		High:     cfg.Detector.HighThreshold.Std(),
		Critical: cfg.Detector.CriticalThreshold.Std(),
	})
	h.logger.Info("Detection thresholds reloaded")
	h.enqueue(func() { h.broadcast(UpdateConfigReload) })
}

// Stop shuts the hub down: all observers are closed and the transport is
// torn down. The hub cannot be reused afterwards.
func (h *Hub) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	observers := make([]*Observer, 0, len(h.observers))
	for _, obs := range h.observers {
		observers = append(observers, obs)
	}
	h.observers = make(map[int64]*Observer)
	cancel := h.sessionCancel
	h.sessionCancel = nil
	h.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	for _, obs := range observers {
		obs.close()
	}
	h.rootCancel()
	<-h.loopDone
	h.logger.Info("Hub stopped")
}

// project joins the status store with the alert store, computing the
// derived needsAttention field. Runs on snapshot copies, so no store lock
// is held while projecting.
func (h *Hub) project() []*models.RepoSessionState {
	snapshot := h.store.Snapshot()
	for _, entry := range snapshot {
		entry.NeedsAttention = h.alerts.Unacknowledged(entry.RepositoryID)
	}
	return snapshot
}

// broadcast fans the current projection out to every observer. Called
// from the mutation goroutine only.
func (h *Hub) broadcast(kind UpdateType) {
	projected := h.project()
	activeAlerts := h.alerts.Active()
	connState := h.adapter.ConnectionState()

	h.mu.Lock()
	observers := make([]*Observer, 0, len(h.observers))
	for _, obs := range h.observers {
		observers = append(observers, obs)
	}
	h.mu.Unlock()

	for _, obs := range observers {
		obs.publish(projected, activeAlerts, connState, kind)
	}
}
