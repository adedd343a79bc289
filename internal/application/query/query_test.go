package query

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gd-practice/gd-coach/internal/application/progress"
	"github.com/gd-practice/gd-coach/internal/application/sessions"
	"github.com/gd-practice/gd-coach/internal/domain/practice"
	"github.com/gd-practice/gd-coach/internal/domain/shared"
	"github.com/gd-practice/gd-coach/pkg/timeutil"
)

type countingProgress struct {
	calls int
	xp    int
}

func (c *countingProgress) Summary() progress.Summary {
	c.calls++
	var s progress.Summary
	s.Record.XP = c.xp
	s.Title = "Beginner"
	return s
}

type fixedStats sessions.Stats

func (f fixedStats) Stats() sessions.Stats { return sessions.Stats(f) }

func TestGetDashboard_CachesUntilInvalidated(t *testing.T) {
	p := &countingProgress{xp: 10}
	clock := &timeutil.FixedClock{T: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	h := NewGetDashboardHandler(p, fixedStats{Sessions: 2, Words: 40}, timeutil.ClockFunc(func() time.Time { return clock.T }), time.UTC)

	d := h.Handle()
	assert.Equal(t, 10, d.Record.XP)
	assert.Equal(t, 2, d.Sessions.Sessions)
	assert.Equal(t, "2024-01-01", d.Day)
	assert.Equal(t, practice.DailyQuote(clock.T, time.UTC), d.Quote)

	p.xp = 99
	assert.Equal(t, 10, h.Handle().Record.XP)
	assert.Equal(t, 1, p.calls)

	h.Invalidate()
	assert.Equal(t, 99, h.Handle().Record.XP)
	assert.Equal(t, 2, p.calls)

	clock.T = clock.T.Add(24 * time.Hour)
	assert.Equal(t, "2024-01-02", h.Handle().Day)
	assert.Equal(t, 3, p.calls)
}

func TestTopicsHandler_RandomTopic(t *testing.T) {
	h := NewTopicsHandler(rand.New(rand.NewPCG(1, 2)))

	info, ok := practice.CategoryTechnology.Info()
	require.True(t, ok)
	current := info.Topics[0]
	for i := 0; i < 50; i++ {
		topic, err := h.RandomTopic(RandomTopicQuery{Category: practice.CategoryTechnology, Current: current})
		require.NoError(t, err)
		assert.NotEqual(t, current, topic)
		assert.Contains(t, info.Topics, topic)
	}

	_, err := h.RandomTopic(RandomTopicQuery{Category: "gardening"})
	assert.ErrorIs(t, err, shared.ErrUnknownCategory)
	assert.Len(t, h.Categories(), 6)
}
