package eventhandler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gd-practice/gd-coach/internal/domain/shared"
	"github.com/gd-practice/gd-coach/internal/infrastructure/messaging"
)

var at = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

type flag struct{ n int }

func (f *flag) Invalidate() { f.n++ }

func TestOnProgressChanged_InvalidatesOnStateEvents(t *testing.T) {
	bus := messaging.NewInMemoryEventBus(messaging.DefaultInMemoryEventBusConfig())
	defer bus.Close()

	a, b := &flag{}, &flag{}
	require.NoError(t, NewOnProgressChangedHandler(a, b).Register(bus))

	require.NoError(t, bus.Publish(shared.NewResponseRecordedEvent(at, false, 20, 20, 1, "2024-01-01")))
	require.NoError(t, bus.Publish(shared.NewSessionsChangedEvent(at, "s1", "added", "", 1)))
	require.NoError(t, bus.Publish(shared.NewBadgeEarnedEvent(at, "first_practice", "First Steps")))

	assert.Equal(t, 2, a.n)
	assert.Equal(t, 2, b.n)
}

func TestOnMilestone_Counts(t *testing.T) {
	bus := messaging.NewInMemoryEventBus(messaging.DefaultInMemoryEventBusConfig())
	defer bus.Close()

	h := NewOnMilestoneHandler(nil)
	require.NoError(t, h.Register(bus))

	require.NoError(t, bus.Publish(shared.NewBadgeEarnedEvent(at, "streak_3", "Getting Warm")))
	require.NoError(t, bus.Publish(shared.NewLevelUpEvent(at, 2, 3, "Learner")))
	require.NoError(t, bus.Publish(shared.NewStreakBrokenEvent(at, 4, "2023-12-29")))
	require.NoError(t, bus.Publish(shared.NewStreakAtRiskEvent(at, 5, "2023-12-31")))
	require.NoError(t, bus.Publish(shared.NewProgressResetEvent(at)))

	c := h.Counts()
	assert.Equal(t, 1, c.Badges)
	assert.Equal(t, "streak_3", c.LastBadgeID)
	assert.Equal(t, 1, c.LevelUps)
	assert.Equal(t, 3, c.HighestLevel)
	assert.Equal(t, 1, c.StreaksBroken)
	assert.Equal(t, 1, c.StreakAlerts)
}

func TestPayloadInt(t *testing.T) {
	p := map[string]interface{}{"a": 3, "b": float64(7), "c": "x"}
	assert.Equal(t, 3, payloadInt(p, "a"))
	assert.Equal(t, 7, payloadInt(p, "b"))
	assert.Equal(t, 0, payloadInt(p, "c"))
	assert.Equal(t, 0, payloadInt(p, "missing"))
}
