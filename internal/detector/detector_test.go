package detector

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanathlor/Forge-sub000/internal/alerts"
	"github.com/lanathlor/Forge-sub000/internal/store"
	"github.com/lanathlor/Forge-sub000/pkg/models"
)

var base = time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

func testThresholds() Thresholds {
	return Thresholds{
		Low:      2 * time.Minute,
		Medium:   5 * time.Minute,
		High:     10 * time.Minute,
		Critical: 20 * time.Minute,
	}
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l.WithField("component", "detector-test")
}

func newFixture() (*store.Store, *alerts.Store, *Detector) {
	st := store.New()
	al := alerts.New()
	d := New(st, al, testThresholds(), time.Second, quietLogger())
	return st, al, d
}

func seed(st *store.Store, id string, status models.ClaudeStatus, activity time.Time) {
	st.Upsert(&models.StatusDelta{
		RepositoryID: id,
		ClaudeStatus: &status,
		LastActivity: &activity,
	})
}

func TestClassify(t *testing.T) {
	th := testThresholds()

	testCases := []struct {
		name     string
		elapsed  time.Duration
		severity models.Severity
		stuck    bool
	}{
		{"below first rung", time.Minute, "", false},
		{"at low", 2 * time.Minute, models.SeverityLow, true},
		{"between low and medium", 4 * time.Minute, models.SeverityLow, true},
		{"at medium", 5 * time.Minute, models.SeverityMedium, true},
		{"at high", 10 * time.Minute, models.SeverityHigh, true},
		{"at critical", 20 * time.Minute, models.SeverityCritical, true},
		{"far past critical", 5 * time.Hour, models.SeverityCritical, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			severity, stuck := th.Classify(tc.elapsed)
			assert.Equal(t, tc.stuck, stuck)
			if tc.stuck {
				assert.Equal(t, tc.severity, severity)
			}
		})
	}
}

// Scenario A: a repository writing at t0 with no further events escalates
// low -> medium -> high as ticks cross each threshold.
func TestEscalationLadder(t *testing.T) {
	st, al, d := newFixture()
	seed(st, "r1", models.StatusWriting, base)

	d.Evaluate(base.Add(3 * time.Minute))
	require.NotNil(t, al.Get("r1"))
	assert.Equal(t, models.SeverityLow, al.Get("r1").Severity)
	firstID := al.Get("r1").ID

	d.Evaluate(base.Add(6 * time.Minute))
	assert.Equal(t, models.SeverityMedium, al.Get("r1").Severity)

	d.Evaluate(base.Add(11 * time.Minute))
	assert.Equal(t, models.SeverityHigh, al.Get("r1").Severity)

	// Same episode throughout.
	assert.Equal(t, firstID, al.Get("r1").ID)
	assert.Equal(t, 1, al.Len())
}

func TestIdleAndPausedNeverStuck(t *testing.T) {
	st, al, d := newFixture()
	seed(st, "idle", models.StatusIdle, base)
	seed(st, "paused", models.StatusPaused, base)
	seed(st, "selfstuck", models.StatusStuck, base)

	d.Evaluate(base.Add(2 * time.Hour))
	assert.Equal(t, 0, al.Len(),
		"only the working subset is eligible for time-based classification")
}

// Scenario C: resuming activity clears the alert entirely, not just a
// severity downgrade.
func TestActivityResumeClears(t *testing.T) {
	st, al, d := newFixture()
	seed(st, "r1", models.StatusWriting, base)

	d.Evaluate(base.Add(12 * time.Minute))
	require.NotNil(t, al.Get("r1"))

	now := base.Add(13 * time.Minute)
	seed(st, "r1", models.StatusThinking, now)

	changed := d.Evaluate(now)
	assert.True(t, changed)
	assert.Nil(t, al.Get("r1"), "alert destroyed, not downgraded")
}

func TestLeavingWorkingSubsetClears(t *testing.T) {
	st, al, d := newFixture()
	seed(st, "r1", models.StatusThinking, base)

	d.Evaluate(base.Add(6 * time.Minute))
	require.NotNil(t, al.Get("r1"))

	status := models.StatusPaused
	st.Upsert(&models.StatusDelta{RepositoryID: "r1", ClaudeStatus: &status})

	d.Evaluate(base.Add(7 * time.Minute))
	assert.Nil(t, al.Get("r1"))
}

func TestEvaluateIdempotent(t *testing.T) {
	st, al, d := newFixture()
	seed(st, "r1", models.StatusWriting, base)

	now := base.Add(3 * time.Minute)
	first := d.Evaluate(now)
	assert.True(t, first)
	id := al.Get("r1").ID

	second := d.Evaluate(now)
	assert.False(t, second, "same snapshot, same instant: no further mutations")
	assert.Equal(t, id, al.Get("r1").ID)
	assert.Equal(t, 1, al.Len())
}

func TestSeverityMonotoneUnderRepeatedTicks(t *testing.T) {
	st, al, d := newFixture()
	seed(st, "r1", models.StatusWaitingInput, base)

	prev := 0
	for _, offset := range []time.Duration{
		2 * time.Minute, 3 * time.Minute, 5 * time.Minute, 8 * time.Minute,
		10 * time.Minute, 15 * time.Minute, 20 * time.Minute, time.Hour,
	} {
		d.Evaluate(base.Add(offset))
		alert := al.Get("r1")
		require.NotNil(t, alert)
		assert.GreaterOrEqual(t, alert.Severity.Level(), prev,
			"severity never decreases while the condition holds")
		prev = alert.Severity.Level()
	}
	assert.Equal(t, models.SeverityCritical, al.Get("r1").Severity)
}

func TestDurationAdvancesForAcknowledgedAlert(t *testing.T) {
	st, al, d := newFixture()
	seed(st, "r1", models.StatusWriting, base)

	d.Evaluate(base.Add(3 * time.Minute))
	al.Acknowledge("r1")

	changed := d.Evaluate(base.Add(4 * time.Minute))
	assert.True(t, changed, "duration refresh is an observable mutation")

	alert := al.Get("r1")
	assert.True(t, alert.Acknowledged, "acknowledgment survives refreshes")
	assert.Equal(t, int64(240), alert.StuckDurationSecs)
}

func TestAtMostOneAlertPerRepository(t *testing.T) {
	st, al, d := newFixture()
	seed(st, "r1", models.StatusWriting, base)
	seed(st, "r2", models.StatusThinking, base)

	for i := 1; i <= 30; i++ {
		d.Evaluate(base.Add(time.Duration(i) * time.Minute))
	}
	assert.Equal(t, 2, al.Len())
}

func TestThresholdHotReload(t *testing.T) {
	st, al, d := newFixture()
	seed(st, "r1", models.StatusWriting, base)

	now := base.Add(90 * time.Second)
	d.Evaluate(now)
	assert.Nil(t, al.Get("r1"))

	d.SetThresholds(Thresholds{
		Low:      time.Minute,
		Medium:   2 * time.Minute,
		High:     3 * time.Minute,
		Critical: 4 * time.Minute,
	})

	d.Evaluate(now)
	require.NotNil(t, al.Get("r1"), "new ladder applies on the next evaluation")
	assert.Equal(t, models.SeverityLow, al.Get("r1").Severity)
}
