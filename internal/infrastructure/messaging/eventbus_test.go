package messaging

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gd-practice/gd-coach/internal/domain/shared"
)

var testTime = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

func TestInMemoryEventBus_RoutesByType(t *testing.T) {
	bus := NewInMemoryEventBus(DefaultInMemoryEventBusConfig())
	defer bus.Close()

	var badges, all []shared.EventType
	require.NoError(t, bus.Subscribe(shared.EventBadgeEarned, func(e shared.Event) error {
		badges = append(badges, e.EventType())
		return nil
	}))
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		all = append(all, e.EventType())
		return nil
	}))

	require.NoError(t, bus.Publish(shared.NewBadgeEarnedEvent(testTime, "first_practice", "First Steps")))
	require.NoError(t, bus.Publish(shared.NewProgressResetEvent(testTime)))

	assert.Equal(t, []shared.EventType{shared.EventBadgeEarned}, badges)
	assert.Equal(t, []shared.EventType{shared.EventBadgeEarned, shared.EventProgressReset}, all)

	snap := bus.Metrics().Snapshot()
	assert.Equal(t, int64(2), snap.TotalPublished)
	assert.Equal(t, int64(3), snap.TotalHandlerExecs)
}

func TestInMemoryEventBus_HandlerFailuresAreContained(t *testing.T) {
	bus := NewInMemoryEventBus(DefaultInMemoryEventBusConfig())
	defer bus.Close()

	var reached bool
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { panic("boom") }))
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { return errors.New("nope") }))
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		reached = true
		return nil
	}))

	assert.NoError(t, bus.Publish(shared.NewProgressResetEvent(testTime)))
	assert.True(t, reached)

	snap := bus.Metrics().Snapshot()
	assert.Equal(t, int64(2), snap.HandlerFailures)
	assert.InDelta(t, 1.0/3.0, snap.HandlerSuccessRate, 0.001)
}

func TestInMemoryEventBus_Async(t *testing.T) {
	cfg := DefaultInMemoryEventBusConfig()
	cfg.AsyncMode = true
	bus := NewInMemoryEventBus(cfg)

	var count atomic.Int32
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		count.Add(1)
		return nil
	}))

	for i := 0; i < 20; i++ {
		require.NoError(t, bus.Publish(shared.NewSessionsChangedEvent(testTime, "s1", "added", "", i)))
	}
	bus.Wait()
	assert.Equal(t, int32(20), count.Load())

	require.NoError(t, bus.Close())
	assert.ErrorIs(t, bus.Publish(shared.NewProgressResetEvent(testTime)), ErrEventBusClosed)
	assert.ErrorIs(t, bus.SubscribeAll(func(shared.Event) error { return nil }), ErrEventBusClosed)
}

func TestInMemoryEventBus_Middleware(t *testing.T) {
	bus := NewInMemoryEventBus(DefaultInMemoryEventBusConfig())
	defer bus.Close()

	var mu sync.Mutex
	var seen []string
	bus.Use(func(next shared.EventHandler) shared.EventHandler {
		return func(e shared.Event) error {
			mu.Lock()
			seen = append(seen, string(e.EventType()))
			mu.Unlock()
			return next(e)
		}
	})
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { return nil }))
	require.NoError(t, bus.Publish(shared.NewLevelUpEvent(testTime, 1, 2, "Beginner")))

	assert.Equal(t, []string{"progress.level_up"}, seen)
}

func TestInMemoryEventBus_NilArguments(t *testing.T) {
	bus := NewInMemoryEventBus(DefaultInMemoryEventBusConfig())
	defer bus.Close()

	assert.Error(t, bus.Subscribe(shared.EventLevelUp, nil))
	assert.Error(t, bus.SubscribeAll(nil))
	assert.Error(t, bus.Publish(nil))
}

func TestEnvelope_RoundTrip(t *testing.T) {
	data, err := encodeEnvelope("inst-1", shared.NewBadgeEarnedEvent(testTime, "streak_3", "On Fire"))
	require.NoError(t, err)

	env, err := decodeEnvelope(data)
	require.NoError(t, err)
	assert.Equal(t, "inst-1", env.InstanceID)

	ev := env.event()
	assert.Equal(t, shared.EventBadgeEarned, ev.EventType())
	assert.Equal(t, shared.ProgressAggregateID, ev.AggregateID())
	assert.True(t, testTime.Equal(ev.OccurredAt()))
	assert.Equal(t, "streak_3", ev.Payload()["badge_id"])

	_, err = decodeEnvelope([]byte(`{"instance_id":"x"}`))
	assert.Error(t, err)
	_, err = decodeEnvelope([]byte(`not json`))
	assert.Error(t, err)
}
