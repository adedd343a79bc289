package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gd-practice/gd-coach/pkg/logger"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type funcJob struct {
	name string
	run  func(ctx context.Context) error
}

func (j funcJob) Name() string                  { return j.name }
func (j funcJob) Description() string           { return "test job " + j.name }
func (j funcJob) Run(ctx context.Context) error { return j.run(ctx) }

func newTestScheduler(clock *fakeClock) *Scheduler {
	return New(
		WithLogger(logger.Discard()),
		WithLocation(time.UTC),
		WithClock(clock.Now),
		WithTick(5*time.Millisecond),
	)
}

func TestScheduler_Register(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 3, 4, 10, 0, 30, 0, time.UTC)}
	s := newTestScheduler(clock)
	noop := funcJob{name: "noop", run: func(context.Context) error { return nil }}

	assert.ErrorIs(t, s.Register(nil, Every(time.Minute)), ErrNilJob)
	assert.ErrorIs(t, s.Register(noop, nil), ErrNilSchedule)
	require.NoError(t, s.RegisterCron(noop, DailyAt(20)))
	assert.ErrorIs(t, s.Register(noop, Every(time.Minute)), ErrJobAlreadyExists)
	assert.Error(t, s.RegisterCron(funcJob{name: "bad"}, "nope"))

	info, err := s.JobInfo("noop")
	require.NoError(t, err)
	assert.Equal(t, "0 20 * * *", info.Schedule)
	assert.Equal(t, time.Date(2024, 3, 4, 20, 0, 0, 0, time.UTC), info.NextRun)
	assert.True(t, info.Enabled)

	_, err = s.JobInfo("missing")
	assert.ErrorIs(t, err, ErrJobNotFound)

	require.NoError(t, s.Unregister("noop"))
	assert.Empty(t, s.ListJobs())
	assert.ErrorIs(t, s.Unregister("noop"), ErrJobNotFound)
}

func TestScheduler_RunsDueJobs(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)}
	s := newTestScheduler(clock)

	ran := make(chan struct{}, 10)
	require.NoError(t, s.Register(funcJob{name: "tick", run: func(context.Context) error {
		ran <- struct{}{}
		return nil
	}}, Every(time.Minute)))

	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrSchedulerAlreadyRunning)
	assert.True(t, s.IsRunning())

	select {
	case <-ran:
		t.Fatal("job ran before it was due")
	case <-time.After(30 * time.Millisecond):
	}

	clock.Advance(61 * time.Second)
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("job did not run")
	}

	require.NoError(t, s.Stop())
	assert.ErrorIs(t, s.Stop(), ErrSchedulerNotRunning)

	info, err := s.JobInfo("tick")
	require.NoError(t, err)
	assert.Equal(t, int64(1), info.RunCount)
	assert.Equal(t, time.Date(2024, 3, 4, 10, 2, 1, 0, time.UTC), info.NextRun)
	require.NotNil(t, info.LastResult)
	assert.True(t, info.LastResult.Success())
}

func TestScheduler_DisabledJobDoesNotRun(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)}
	s := newTestScheduler(clock)

	ran := make(chan struct{}, 10)
	require.NoError(t, s.Register(funcJob{name: "tick", run: func(context.Context) error {
		ran <- struct{}{}
		return nil
	}}, Every(time.Minute)))
	require.NoError(t, s.DisableJob("tick"))
	assert.ErrorIs(t, s.DisableJob("missing"), ErrJobNotFound)

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	clock.Advance(2 * time.Minute)
	select {
	case <-ran:
		t.Fatal("disabled job ran")
	case <-time.After(30 * time.Millisecond):
	}

	require.NoError(t, s.EnableJob("tick"))
	info, _ := s.JobInfo("tick")
	assert.Equal(t, clock.Now().Add(time.Minute), info.NextRun)
}

func TestScheduler_RunNowRecordsFailures(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)}
	s := newTestScheduler(clock)
	boom := errors.New("boom")

	require.NoError(t, s.Register(funcJob{name: "fail", run: func(ctx context.Context) error {
		_, ok := logger.FromContextOK(ctx)
		assert.True(t, ok)
		return boom
	}}, Every(time.Hour)))

	result, err := s.RunNow(context.Background(), "fail")
	assert.ErrorIs(t, err, boom)
	assert.True(t, result.Manual)
	assert.False(t, result.Success())

	_, err = s.RunNow(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)

	m := s.Metrics()
	assert.Equal(t, int64(1), m.TotalExecutions)
	assert.Equal(t, int64(1), m.TotalFailures)
	assert.Equal(t, int64(1), m.FailuresByJob["fail"])
	assert.Zero(t, m.SuccessRate)

	info, _ := s.JobInfo("fail")
	assert.Equal(t, int64(1), info.FailCount)
}

func TestScheduler_JobTimeout(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)}
	s := New(WithClock(clock.Now), WithJobTimeout(10*time.Millisecond), WithLogger(logger.Discard()))

	require.NoError(t, s.Register(funcJob{name: "slow", run: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}, Every(time.Hour)))

	_, err := s.RunNow(context.Background(), "slow")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
