package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gd-practice/gd-coach/internal/domain/gamification"
	"github.com/gd-practice/gd-coach/internal/domain/shared"
	"github.com/gd-practice/gd-coach/internal/infrastructure/persistence/memory"
	"github.com/gd-practice/gd-coach/internal/infrastructure/persistence/writebehind"
	"github.com/gd-practice/gd-coach/pkg/timeutil"
)

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("down") }

func TestCheckpointJob(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	w := writebehind.New(store)
	defer w.Close(ctx)

	require.NoError(t, w.Submit("gd_gamification", []byte(`{"xp":15}`)))

	job := NewCheckpointJob(w, store)
	require.NoError(t, job.Run(ctx))

	got, err := store.Get(ctx, "gd_gamification")
	require.NoError(t, err)
	assert.JSONEq(t, `{"xp":15}`, string(got))
	assert.Equal(t, int64(1), job.Stats().Runs)

	failing := NewCheckpointJob(w, failingPinger{})
	err = failing.Run(ctx)
	assert.ErrorContains(t, err, "ping: down")
	assert.Equal(t, int64(1), failing.Stats().Failed)
}

type recordSource struct{ r gamification.Record }

func (s recordSource) Snapshot() gamification.Record { return s.r }

type capture struct{ events []shared.Event }

func (c *capture) Publish(e shared.Event) error {
	c.events = append(c.events, e)
	return nil
}

func day(s string) *string { return &s }

func TestAtRisk(t *testing.T) {
	tests := []struct {
		name   string
		streak int
		last   *string
		want   bool
	}{
		{"never practiced", 0, nil, false},
		{"practiced today", 3, day("2024-03-04"), false},
		{"practiced yesterday", 3, day("2024-03-03"), true},
		{"already broken", 3, day("2024-03-01"), false},
		{"future date", 3, day("2024-03-05"), false},
		{"garbage date", 3, day("yesterday"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gamification.NewRecord()
			r.CurrentStreak = tt.streak
			r.LastPracticeDate = tt.last
			assert.Equal(t, tt.want, AtRisk(r, "2024-03-04"))
		})
	}
}

func TestStreakReminderJob_OncePerDay(t *testing.T) {
	r := gamification.NewRecord()
	r.CurrentStreak = 4
	r.LastPracticeDate = day("2024-03-03")

	pub := &capture{}
	clock := timeutil.FixedClock{T: time.Date(2024, 3, 4, 20, 0, 0, 0, time.UTC)}
	job := NewStreakReminderJob(recordSource{r}, pub, clock, time.UTC)

	require.NoError(t, job.Run(context.Background()))
	require.NoError(t, job.Run(context.Background()))

	require.Len(t, pub.events, 1)
	e := pub.events[0]
	assert.Equal(t, shared.EventStreakAtRisk, e.EventType())
	assert.Equal(t, 4, e.Payload()["current_streak"])
	assert.Equal(t, "2024-03-03", e.Payload()["last_practice"])
}

func TestStreakReminderJob_UsesConfiguredZone(t *testing.T) {
	r := gamification.NewRecord()
	r.CurrentStreak = 2
	r.LastPracticeDate = day("2024-03-04")

	// 20:00 UTC on the 4th is already the 5th in Kolkata.
	loc := time.FixedZone("IST", 5*3600+1800)
	pub := &capture{}
	clock := timeutil.FixedClock{T: time.Date(2024, 3, 4, 20, 0, 0, 0, time.UTC)}

	require.NoError(t, NewStreakReminderJob(recordSource{r}, pub, clock, time.UTC).Run(context.Background()))
	assert.Empty(t, pub.events)

	require.NoError(t, NewStreakReminderJob(recordSource{r}, pub, clock, loc).Run(context.Background()))
	assert.Len(t, pub.events, 1)
}
