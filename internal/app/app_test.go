package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gd-practice/gd-coach/config"
	"github.com/gd-practice/gd-coach/internal/application/command"
	"github.com/gd-practice/gd-coach/internal/domain/practice"
	"github.com/gd-practice/gd-coach/internal/infrastructure/persistence/memory"
	"github.com/gd-practice/gd-coach/pkg/logger"
	"github.com/gd-practice/gd-coach/pkg/timeutil"
)

func testConfig() *config.Config {
	return &config.Config{
		App:      config.AppConfig{Name: "gd-coach", Location: time.UTC},
		Storage:  config.StorageConfig{Driver: config.DriverMemory, WriteTimeout: time.Second},
		Events:   config.EventsConfig{Driver: config.EventsMemory},
		Feedback: config.FeedbackConfig{AnalysisTimeout: time.Second},
		Features: config.LoadFeatureFlags(),
	}
}

func TestApp_PersistsAcrossRestarts(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	clock := timeutil.FixedClock{T: time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)}

	a, err := New(ctx, testConfig(), logger.Discard(), WithStore(store), WithClock(clock))
	require.NoError(t, err)
	assert.Nil(t, a.Analyzer)

	created, err := a.CreateSession.Handle(ctx, command.CreateSessionCommand{
		Title:       "Mock GD",
		Category:    practice.CategoryTechnology,
		CustomTopic: "AI in hiring",
	})
	require.NoError(t, err)

	submitted, err := a.SubmitResponse.Handle(ctx, command.SubmitResponseCommand{
		SessionID: created.Session.ID,
		Text:      "Automation should assist recruiters, not replace them.",
	})
	require.NoError(t, err)
	assert.True(t, submitted.AnalysisFailed)

	xp := a.Progress.Snapshot().XP
	assert.Positive(t, xp)
	assert.Equal(t, xp, a.Dashboard.Handle().Record.XP)
	assert.GreaterOrEqual(t, a.Milestones.Counts().Badges, 1)

	require.NoError(t, a.Close(ctx))

	again, err := New(ctx, testConfig(), logger.Discard(), WithStore(store), WithClock(clock))
	require.NoError(t, err)
	defer again.Close(ctx)

	assert.Equal(t, xp, again.Progress.Snapshot().XP)
	sessions := again.Sessions.List()
	require.Len(t, sessions, 1)
	assert.Equal(t, "AI in hiring", sessions[0].Topic)
	require.Len(t, sessions[0].Entries, 1)
	require.NotNil(t, sessions[0].Entries[0].Analysis)
	assert.Equal(t, practice.AnalysisUnavailable, *sessions[0].Entries[0].Analysis)
}

func TestApp_BadCatalogPath(t *testing.T) {
	cfg := testConfig()
	cfg.Gamification.BadgeCatalogPath = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := New(context.Background(), cfg, nil, WithStore(memory.New()))
	assert.ErrorContains(t, err, "read badge catalog")
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	s, err := OpenStore(ctx, config.StorageConfig{
		Driver:     config.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "nested", "gd.db"),
	}, logger.Discard())
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "k", []byte("v")))
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))
	require.NoError(t, s.Close())

	_, err = OpenStore(ctx, config.StorageConfig{Driver: "etcd"}, logger.Discard())
	assert.ErrorContains(t, err, `unknown storage driver "etcd"`)
}

func TestConnectPostgresNeedsURL(t *testing.T) {
	_, err := ConnectPostgres(context.Background(), config.StorageConfig{Driver: config.DriverPostgres})
	assert.ErrorContains(t, err, "DATABASE_URL")
}

func TestRedisConfigKeepsDefaults(t *testing.T) {
	rc := redisConfig(config.RedisConfig{Host: "cache", Port: 6380, KeyPrefix: "gd:"})
	assert.Equal(t, "cache:6380", rc.Addr())
	assert.Equal(t, 10, rc.PoolSize)
	assert.Equal(t, 5*time.Second, rc.DialTimeout)
}
