package liveclock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lanathlor/Forge-sub000/pkg/models"
)

func alert(id, repo string, secs int64) *models.Alert {
	return &models.Alert{
		ID:                id,
		RepositoryID:      repo,
		Severity:          models.SeverityLow,
		StuckDurationSecs: secs,
	}
}

func TestSeedsFromAuthoritativeValue(t *testing.T) {
	c := New(time.Second)
	c.Observe([]*models.Alert{alert("a1", "r1", 120)})

	assert.Equal(t, int64(120), c.Seconds("r1"))
}

func TestTickIncrements(t *testing.T) {
	c := New(time.Second)
	c.Observe([]*models.Alert{alert("a1", "r1", 120)})

	c.Tick()
	c.Tick()
	c.Tick()

	assert.Equal(t, int64(123), c.Seconds("r1"))
}

func TestReObserveSameEpisodeKeepsLocalCount(t *testing.T) {
	c := New(time.Second)
	c.Observe([]*models.Alert{alert("a1", "r1", 120)})
	c.Tick()
	c.Tick()

	// Authoritative refresh of the same episode does not reset the
	// cosmetic counter.
	c.Observe([]*models.Alert{alert("a1", "r1", 125)})
	assert.Equal(t, int64(122), c.Seconds("r1"))
}

func TestNewEpisodeResets(t *testing.T) {
	c := New(time.Second)
	c.Observe([]*models.Alert{alert("a1", "r1", 300)})
	c.Tick()

	c.Observe([]*models.Alert{alert("a2", "r1", 5)})
	assert.Equal(t, int64(5), c.Seconds("r1"))
}

func TestDisappearanceCollapsesToZero(t *testing.T) {
	c := New(time.Second)
	c.Observe([]*models.Alert{alert("a1", "r1", 300)})

	c.Observe(nil)
	assert.Equal(t, int64(0), c.Seconds("r1"))

	// Ticking after removal stays at zero.
	c.Tick()
	assert.Equal(t, int64(0), c.Seconds("r1"))
}

func TestIndependentRepositories(t *testing.T) {
	c := New(time.Second)
	c.Observe([]*models.Alert{
		alert("a1", "r1", 10),
		alert("b1", "r2", 20),
	})
	c.Tick()

	c.Observe([]*models.Alert{alert("b1", "r2", 21)})

	assert.Equal(t, int64(0), c.Seconds("r1"))
	assert.Equal(t, int64(21), c.Seconds("r2"))
}
