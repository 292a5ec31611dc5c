package hub

import (
	"context"
	"sync"
	"time"

	"github.com/lanathlor/Forge-sub000/internal/liveclock"
	"github.com/lanathlor/Forge-sub000/internal/rank"
	"github.com/lanathlor/Forge-sub000/pkg/models"
)

// UpdateType tells an observer why it received an update.
type UpdateType string

const (
	// UpdateSnapshot follows a store or alert mutation.
	UpdateSnapshot UpdateType = "snapshot"
	// UpdateConnection follows a transport state transition.
	UpdateConnection UpdateType = "connection"
	// UpdateConfigReload follows a configuration reload.
	UpdateConfigReload UpdateType = "config_reload"
)

// Update is one fan-out delivery: the observer's filtered, ranked view
// plus the alert set and connection state.
type Update struct {
	Type       UpdateType
	Ranked     []*models.RepoSessionState
	Alerts     []*models.Alert
	Connection models.ConnectionState
}

// Observer is one independent subscriber: a UI surface with its own
// filter, live clock, and cancellation. Unsubscribing one observer never
// disturbs the others.
type Observer struct {
	id     int64
	hub    *Hub
	filter rank.Filter
	clock  *liveclock.Clock

	ch chan Update

	mu     sync.Mutex
	last   []*models.RepoSessionState
	closed bool

	clockCancel context.CancelFunc

	unsubOnce sync.Once
}

func newObserver(h *Hub, id int64, filter rank.Filter) *Observer {
	clockCtx, clockCancel := context.WithCancel(context.Background())
	obs := &Observer{
		id:          id,
		hub:         h,
		filter:      filter,
		clock:       liveclock.New(time.Second),
		ch:          make(chan Update, 16),
		clockCancel: clockCancel,
	}
	// The cosmetic 1 Hz clock is per observer and never touches the
	// mutation path's locks.
	go obs.clock.Run(clockCtx)
	return obs
}

// Updates is the observer's delivery channel. It is closed on
// unsubscribe.
func (o *Observer) Updates() <-chan Update {
	return o.ch
}

// Clock returns the observer's live duration clock.
func (o *Observer) Clock() *liveclock.Clock {
	return o.clock
}

// Ranked returns the most recently published ranked view. It is a pure,
// synchronous read: keyboard-style "jump to Nth" routing uses this and is
// unaffected by an in-flight reconnect.
func (o *Observer) Ranked() []*models.RepoSessionState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last
}

// SelectNth returns the Nth highest-priority entry of the most recent
// ranked view (zero-based), or nil when out of range.
func (o *Observer) SelectNth(n int) *models.RepoSessionState {
	o.mu.Lock()
	defer o.mu.Unlock()
	if n < 0 || n >= len(o.last) {
		return nil
	}
	return o.last[n]
}

// Unsubscribe removes the observer from the hub. Idempotent. The shared
// transport survives as long as any other observer remains.
func (o *Observer) Unsubscribe() {
	o.unsubOnce.Do(func() {
		o.hub.unsubscribe(o.id)
	})
}

// publish delivers one update. Slow consumers lose intermediate updates
// rather than stalling the hub; the latest ranked view is always
// available synchronously through Ranked.
func (o *Observer) publish(projected []*models.RepoSessionState, activeAlerts []*models.Alert, conn models.ConnectionState, kind UpdateType) {
	ranked := rank.Rank(rank.Apply(projected, o.filter))

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.last = ranked
	o.clock.Observe(activeAlerts)

	// The send is non-blocking, so holding the mutex here is cheap and
	// prevents a send racing a concurrent close of the channel.
	select {
	case o.ch <- Update{
		Type:       kind,
		Ranked:     ranked,
		Alerts:     activeAlerts,
		Connection: conn,
	}:
	default:
	}
}

// close marks the observer dead and closes its channel. Called by the hub
// with the observer already removed from the fan-out set.
func (o *Observer) close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.closed = true
	o.clockCancel()
	close(o.ch)
}
