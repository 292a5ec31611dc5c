package hub

import (
	"testing"
	"time"

	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanathlor/Forge-sub000/config"
	"github.com/lanathlor/Forge-sub000/logging"
	"github.com/lanathlor/Forge-sub000/pkg/models"
	"github.com/lanathlor/Forge-sub000/testutil"
)

func testConfig(endpoint string) *config.Config {
	cfg := config.Default()
	cfg.Transport.Endpoint = endpoint
	cfg.Transport.RetryMinBackoff = config.Duration(10 * time.Millisecond)
	cfg.Transport.RetryMaxBackoff = config.Duration(50 * time.Millisecond)
	cfg.Detector.TickInterval = config.Duration(20 * time.Millisecond)
	cfg.Detector.LowThreshold = config.Duration(100 * time.Millisecond)
	cfg.Detector.MediumThreshold = config.Duration(200 * time.Millisecond)
	cfg.Detector.HighThreshold = config.Duration(300 * time.Millisecond)
	cfg.Detector.CriticalThreshold = config.Duration(400 * time.Millisecond)
	return cfg
}

// drainUntil consumes updates until the predicate matches one, failing
// after a timeout.
func drainUntil(t *testing.T, obs *Observer, pred func(Update) bool, msg string) Update {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case u, ok := <-obs.Updates():
			if !ok {
				t.Fatalf("%s: channel closed", msg)
			}
			if pred(u) {
				return u
			}
		case <-deadline:
			t.Fatal(msg)
		}
	}
}

func findRepo(ranked []*models.RepoSessionState, id string) *models.RepoSessionState {
	for _, e := range ranked {
		if e.RepositoryID == id {
			return e
		}
	}
	return nil
}

func TestEventsReachSubscriber(t *testing.T) {
	ps := testutil.NewStreamServer(t)
	h := New(testConfig(ps.URL()))
	defer h.Stop()

	obs, err := h.Subscribe(nil)
	require.NoError(t, err)
	defer obs.Unsubscribe()

	ps.SendDelta("r1", models.StatusWriting, time.Now())

	update := drainUntil(t, obs, func(u Update) bool {
		return findRepo(u.Ranked, "r1") != nil
	}, "expected r1 to arrive")

	entry := findRepo(update.Ranked, "r1")
	assert.Equal(t, models.StatusWriting, entry.ClaudeStatus)
	assert.False(t, entry.NeedsAttention)
}

func TestObserverFilterProjection(t *testing.T) {
	ps := testutil.NewStreamServer(t)
	h := New(testConfig(ps.URL()))
	defer h.Stop()

	working, err := h.Subscribe(func(e *models.RepoSessionState) bool {
		return e.ClaudeStatus.Working()
	})
	require.NoError(t, err)
	defer working.Unsubscribe()

	everything, err := h.Subscribe(nil)
	require.NoError(t, err)
	defer everything.Unsubscribe()

	now := time.Now()
	ps.SendDelta("busy", models.StatusWriting, now)
	ps.SendDelta("asleep", models.StatusIdle, now)

	all := drainUntil(t, everything, func(u Update) bool {
		return len(u.Ranked) == 2
	}, "unfiltered observer should see both repositories")
	assert.NotNil(t, findRepo(all.Ranked, "asleep"))

	filtered := drainUntil(t, working, func(u Update) bool {
		return findRepo(u.Ranked, "busy") != nil
	}, "filtered observer should see the working repository")
	assert.Nil(t, findRepo(filtered.Ranked, "asleep"),
		"idle repository is outside the working filter")
}

// Scenario B end to end: a stuck repository raises an alert, needsAttention
// flips on, acknowledging flips it off while the duration keeps growing.
func TestStuckAlertAndAcknowledge(t *testing.T) {
	ps := testutil.NewStreamServer(t)
	h := New(testConfig(ps.URL()))
	defer h.Stop()

	obs, err := h.Subscribe(nil)
	require.NoError(t, err)
	defer obs.Unsubscribe()

	// Activity old enough to be past the critical rung already.
	ps.SendDelta("r1", models.StatusWriting, time.Now().Add(-time.Hour))

	update := drainUntil(t, obs, func(u Update) bool {
		e := findRepo(u.Ranked, "r1")
		return e != nil && e.NeedsAttention && len(u.Alerts) == 1
	}, "expected an unacknowledged alert for r1")

	alert := update.Alerts[0]
	assert.Equal(t, models.SeverityCritical, alert.Severity)
	durationBefore := alert.StuckDurationSecs

	require.NoError(t, h.Acknowledge("r1"))

	update = drainUntil(t, obs, func(u Update) bool {
		e := findRepo(u.Ranked, "r1")
		return e != nil && !e.NeedsAttention && len(u.Alerts) == 1 && u.Alerts[0].Acknowledged
	}, "acknowledge should clear needsAttention but keep the alert")

	assert.GreaterOrEqual(t, update.Alerts[0].StuckDurationSecs, durationBefore,
		"duration keeps accruing for acknowledged alerts")

	// Idempotent: a second acknowledge changes nothing.
	require.NoError(t, h.Acknowledge("r1"))
	ranked, _, _ := h.Current(nil)
	entry := findRepo(ranked, "r1")
	require.NotNil(t, entry)
	assert.False(t, entry.NeedsAttention)
}

func TestAcknowledgeLogsTransitionOnce(t *testing.T) {
	ps := testutil.NewStreamServer(t)
	h := New(testConfig(ps.URL()))
	defer h.Stop()

	hook := logrustest.NewLocal(logging.NewLogger("hub").Logger)
	defer hook.Reset()

	obs, err := h.Subscribe(nil)
	require.NoError(t, err)
	defer obs.Unsubscribe()

	ps.SendDelta("r1", models.StatusWriting, time.Now().Add(-time.Hour))
	drainUntil(t, obs, func(u Update) bool { return len(u.Alerts) == 1 }, "alert for r1")

	require.NoError(t, h.Acknowledge("r1"))
	// Repeated acknowledge changes nothing and must not log again.
	require.NoError(t, h.Acknowledge("r1"))

	count := 0
	for _, entry := range hook.AllEntries() {
		if entry.Message == "Alert acknowledged" {
			count++
			assert.Equal(t, "r1", entry.Data["repository"])
		}
	}
	assert.Equal(t, 1, count)
}

func TestAcknowledgeUnknownRepositoryIsNoop(t *testing.T) {
	ps := testutil.NewStreamServer(t)
	h := New(testConfig(ps.URL()))
	defer h.Stop()

	assert.NoError(t, h.Acknowledge("ghost"))
}

func TestUnsubscribeDoesNotDisturbOthers(t *testing.T) {
	ps := testutil.NewStreamServer(t)
	h := New(testConfig(ps.URL()))
	defer h.Stop()

	first, err := h.Subscribe(nil)
	require.NoError(t, err)
	second, err := h.Subscribe(nil)
	require.NoError(t, err)
	defer second.Unsubscribe()

	first.Unsubscribe()
	// Unsubscribe is idempotent.
	first.Unsubscribe()

	ps.SendDelta("r1", models.StatusThinking, time.Now())

	update := drainUntil(t, second, func(u Update) bool {
		return findRepo(u.Ranked, "r1") != nil
	}, "remaining observer keeps receiving updates")
	assert.Equal(t, models.StatusThinking, findRepo(update.Ranked, "r1").ClaudeStatus)
}

func TestTransportTornDownAndReestablished(t *testing.T) {
	ps := testutil.NewStreamServer(t)
	h := New(testConfig(ps.URL()))
	defer h.Stop()

	obs, err := h.Subscribe(nil)
	require.NoError(t, err)

	testutil.WaitFor(t, func() bool { return ps.Connections() >= 1 }, "first observer connects the transport")
	before := ps.Connections()

	obs.Unsubscribe()
	// With zero observers the transport may be torn down; give the
	// cancellation a moment to land.
	time.Sleep(50 * time.Millisecond)

	obs2, err := h.Subscribe(nil)
	require.NoError(t, err)
	defer obs2.Unsubscribe()

	testutil.WaitFor(t, func() bool { return ps.Connections() > before },
		"a new observer transparently re-establishes the transport")
}

func TestSnapshotSurvivesDisconnect(t *testing.T) {
	ps := testutil.NewStreamServer(t)
	h := New(testConfig(ps.URL()))
	defer h.Stop()

	obs, err := h.Subscribe(nil)
	require.NoError(t, err)
	defer obs.Unsubscribe()

	ps.SendDelta("r1", models.StatusWriting, time.Now())
	drainUntil(t, obs, func(u Update) bool {
		return findRepo(u.Ranked, "r1") != nil
	}, "r1 should arrive before the outage")

	// Kill the upstream entirely.
	ps.CloseClientConnections()

	drainUntil(t, obs, func(u Update) bool {
		return u.Type == UpdateConnection && u.Connection.Phase == models.ConnPhaseError
	}, "outage must surface as an error connection state")

	// Stale-but-available: the last known snapshot is still served.
	ranked, _, _ := h.Current(nil)
	require.NotNil(t, findRepo(ranked, "r1"))
	assert.Equal(t, models.StatusWriting, findRepo(ranked, "r1").ClaudeStatus)
}

func TestResyncReplacesStateAndAlerts(t *testing.T) {
	ps := testutil.NewStreamServer(t)
	h := New(testConfig(ps.URL()))
	defer h.Stop()

	obs, err := h.Subscribe(nil)
	require.NoError(t, err)
	defer obs.Unsubscribe()

	// r1 becomes stuck and alerted.
	ps.SendDelta("r1", models.StatusWriting, time.Now().Add(-time.Hour))
	drainUntil(t, obs, func(u Update) bool { return len(u.Alerts) == 1 }, "alert for r1")

	// Full resync that no longer contains r1.
	ps.Send(`{"type":"resync","resync":[{"repository_id":"r2","claude_status":"idle"}]}`)

	update := drainUntil(t, obs, func(u Update) bool {
		return findRepo(u.Ranked, "r2") != nil && findRepo(u.Ranked, "r1") == nil
	}, "resync replaces the keyed set")
	assert.Empty(t, update.Alerts, "alerts for evicted repositories are destroyed")
}

func TestSelectNthAgainstLatestRanking(t *testing.T) {
	ps := testutil.NewStreamServer(t)
	h := New(testConfig(ps.URL()))
	defer h.Stop()

	obs, err := h.Subscribe(nil)
	require.NoError(t, err)
	defer obs.Unsubscribe()

	now := time.Now()
	ps.SendDelta("writer", models.StatusWriting, now)
	ps.SendDelta("idler", models.StatusIdle, now)

	drainUntil(t, obs, func(u Update) bool { return len(u.Ranked) == 2 }, "both repos ranked")

	require.NotNil(t, obs.SelectNth(0))
	assert.Equal(t, "writer", obs.SelectNth(0).RepositoryID)
	assert.Equal(t, "idler", obs.SelectNth(1).RepositoryID)
	assert.Nil(t, obs.SelectNth(2))
	assert.Nil(t, obs.SelectNth(-1))
}

func TestSelectReturnsLiveEntry(t *testing.T) {
	ps := testutil.NewStreamServer(t)
	h := New(testConfig(ps.URL()))
	defer h.Stop()

	obs, err := h.Subscribe(nil)
	require.NoError(t, err)
	defer obs.Unsubscribe()

	ps.SendDelta("r1", models.StatusWriting, time.Now())
	drainUntil(t, obs, func(u Update) bool {
		return findRepo(u.Ranked, "r1") != nil
	}, "r1 arrives")

	entry, ok := h.Select("r1", "")
	require.True(t, ok)
	assert.Equal(t, "r1", entry.RepositoryID)

	_, ok = h.Select("ghost", "")
	assert.False(t, ok)
}

func TestSubscribeAfterStopFails(t *testing.T) {
	ps := testutil.NewStreamServer(t)
	h := New(testConfig(ps.URL()))
	h.Stop()

	_, err := h.Subscribe(nil)
	assert.Error(t, err)
}

func TestApplyConfigReloadsThresholds(t *testing.T) {
	ps := testutil.NewStreamServer(t)
	cfg := testConfig(ps.URL())
	// Start with rungs far in the future so nothing is ever stuck.
	cfg.Detector.LowThreshold = config.Duration(time.Hour)
	cfg.Detector.MediumThreshold = config.Duration(2 * time.Hour)
	cfg.Detector.HighThreshold = config.Duration(3 * time.Hour)
	cfg.Detector.CriticalThreshold = config.Duration(4 * time.Hour)

	h := New(cfg)
	defer h.Stop()

	obs, err := h.Subscribe(nil)
	require.NoError(t, err)
	defer obs.Unsubscribe()

	ps.SendDelta("r1", models.StatusWriting, time.Now().Add(-10*time.Minute))
	drainUntil(t, obs, func(u Update) bool {
		return findRepo(u.Ranked, "r1") != nil
	}, "r1 arrives")

	_, activeAlerts, _ := h.Current(nil)
	assert.Empty(t, activeAlerts, "nothing stuck under the tall ladder")

	h.ApplyConfig(testConfig(ps.URL()))

	drainUntil(t, obs, func(u Update) bool { return len(u.Alerts) == 1 },
		"reloaded thresholds classify r1 as stuck on a later tick")
}
