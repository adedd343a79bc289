// Package app assembles the GD Coach object graph from configuration. The
// API server and the gdctl CLI both build on it.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gd-practice/gd-coach/config"
	"github.com/gd-practice/gd-coach/internal/application/account"
	"github.com/gd-practice/gd-coach/internal/application/command"
	"github.com/gd-practice/gd-coach/internal/application/eventhandler"
	"github.com/gd-practice/gd-coach/internal/application/progress"
	"github.com/gd-practice/gd-coach/internal/application/query"
	"github.com/gd-practice/gd-coach/internal/application/sessions"
	"github.com/gd-practice/gd-coach/internal/domain/practice"
	"github.com/gd-practice/gd-coach/internal/domain/shared"
	"github.com/gd-practice/gd-coach/internal/infrastructure/catalog"
	"github.com/gd-practice/gd-coach/internal/infrastructure/external/feedback"
	"github.com/gd-practice/gd-coach/internal/infrastructure/messaging"
	"github.com/gd-practice/gd-coach/internal/infrastructure/persistence/kv"
	"github.com/gd-practice/gd-coach/internal/infrastructure/persistence/memory"
	"github.com/gd-practice/gd-coach/internal/infrastructure/persistence/postgres"
	"github.com/gd-practice/gd-coach/internal/infrastructure/persistence/redis"
	"github.com/gd-practice/gd-coach/internal/infrastructure/persistence/sqlite"
	"github.com/gd-practice/gd-coach/internal/infrastructure/persistence/writebehind"
	"github.com/gd-practice/gd-coach/pkg/logger"
	"github.com/gd-practice/gd-coach/pkg/retry"
	"github.com/gd-practice/gd-coach/pkg/timeutil"
)

// EventBus is a closable publish/subscribe transport.
type EventBus interface {
	shared.EventBus
	Close() error
}

// App holds every long-lived component. Close releases them in reverse
// dependency order.
type App struct {
	Config *config.Config
	Log    *logger.Logger

	Store  kv.Store
	Writer *writebehind.Writer
	Events EventBus

	Progress *progress.Engine
	Sessions *sessions.Store
	Account  *account.Service
	Analyzer practice.Analyzer

	CreateSession  *command.CreateSessionHandler
	SubmitResponse *command.SubmitResponseHandler
	Delete         *command.DeleteHandler
	Dashboard      *query.GetDashboardHandler
	Topics         *query.TopicsHandler

	Milestones *eventhandler.OnMilestoneHandler

	clock timeutil.Clock
}

// Option configures New.
type Option func(*App)

// WithClock overrides the time source of every component.
func WithClock(c timeutil.Clock) Option {
	return func(a *App) { a.clock = c }
}

// WithStore skips opening the configured backend.
func WithStore(s kv.Store) Option {
	return func(a *App) { a.Store = s }
}

// New opens storage and wires the application.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger, opts ...Option) (*App, error) {
	if log == nil {
		log = logger.Discard()
	}
	a := &App{Config: cfg, Log: log, clock: timeutil.SystemClock{}}
	for _, opt := range opts {
		opt(a)
	}

	badges, err := catalog.Load(cfg.Gamification.BadgeCatalogPath)
	if err != nil {
		return nil, err
	}

	if a.Store == nil {
		a.Store, err = OpenStore(ctx, cfg.Storage, log)
		if err != nil {
			return nil, err
		}
	}

	a.Events, err = openEventBus(ctx, cfg, a.Store, log)
	if err != nil {
		a.Store.Close()
		return nil, err
	}

	a.Writer = writebehind.New(a.Store,
		writebehind.WithLogger(log),
		writebehind.WithWriteTimeout(cfg.Storage.WriteTimeout),
		writebehind.WithRetrier(retry.StorageRetrier()),
	)

	a.Progress = progress.NewEngine(ctx, a.Store, a.Writer,
		progress.WithCatalog(badges),
		progress.WithEventPublisher(a.Events),
		progress.WithClock(a.clock),
		progress.WithLocation(cfg.App.Location),
		progress.WithLogger(log),
	)
	a.Sessions = sessions.New(ctx, a.Store, a.Writer,
		sessions.WithEventPublisher(a.Events),
		sessions.WithClock(a.clock),
		sessions.WithLogger(log),
	)
	a.Account = account.New(ctx, a.Store, a.Writer,
		account.WithClock(a.clock),
		account.WithLogger(log),
	)

	if cfg.Features.Enabled(config.FeatureFeedbackAI) && cfg.Feedback.BaseURL != "" {
		a.Analyzer = newFeedbackClient(cfg.Feedback, log)
	} else {
		log.Info("AI feedback disabled, entries keep the fallback analysis")
	}

	a.CreateSession = command.NewCreateSessionHandler(a.Sessions, a.Progress, a.clock, log)
	a.SubmitResponse = command.NewSubmitResponseHandler(a.Sessions, a.Progress, a.Analyzer,
		command.WithClock(a.clock),
		command.WithAnalysisTimeout(cfg.Feedback.AnalysisTimeout),
		command.WithLogger(log),
	)
	a.Delete = command.NewDeleteHandler(a.Sessions, log)
	a.Dashboard = query.NewGetDashboardHandler(a.Progress, a.Sessions, a.clock, cfg.App.Location)
	a.Topics = query.NewTopicsHandler(nil)

	a.Milestones = eventhandler.NewOnMilestoneHandler(log)
	if err := errors.Join(
		eventhandler.NewOnProgressChangedHandler(a.Dashboard).Register(a.Events),
		a.Milestones.Register(a.Events),
	); err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("register event handlers: %w", err)
	}

	return a, nil
}

// Close flushes queued writes, then stops the event bus and the store.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Writer != nil {
		if err := a.Writer.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush writes: %w", err))
		}
	}
	if a.Events != nil {
		if err := a.Events.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close events: %w", err))
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	return errors.Join(errs...)
}

// ══════════════════════════════════════════════════════════════════════════════
// STORAGE
// ══════════════════════════════════════════════════════════════════════════════

// OpenStore opens the blob backend selected by cfg.Driver. Postgres
// migrations run before the store is returned.
func OpenStore(ctx context.Context, cfg config.StorageConfig, log *logger.Logger) (kv.Store, error) {
	log = log.With(logger.String("driver", cfg.Driver))

	switch cfg.Driver {
	case config.DriverSQLite:
		s, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Info("storage ready", logger.String("path", cfg.SQLitePath))
		return s, nil

	case config.DriverRedis:
		rc := redisConfig(cfg.Redis)
		s, err := redis.Dial(rc)
		if err != nil {
			return nil, err
		}
		log.Info("storage ready", logger.String("addr", rc.Addr()))
		return s, nil

	case config.DriverPostgres:
		conn, err := ConnectPostgres(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := postgres.NewMigrator(conn).Migrate(ctx); err != nil {
			conn.Close()
			return nil, err
		}
		log.Info("storage ready", logger.String("namespace", cfg.PostgresNamespace))
		return postgres.NewStore(conn, cfg.PostgresNamespace), nil

	case config.DriverMemory:
		log.Warn("using in-memory storage, progress is lost on exit")
		return memory.New(), nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}

// ConnectPostgres opens the pool described by cfg without touching the
// schema.
func ConnectPostgres(ctx context.Context, cfg config.StorageConfig) (*postgres.Connection, error) {
	if cfg.PostgresURL == "" {
		return nil, fmt.Errorf("postgres storage needs DATABASE_URL")
	}
	return postgres.Connect(ctx, cfg.PostgresURL, postgres.PoolSettings{
		MaxConns: int32(cfg.PostgresMaxConns),
		MinConns: int32(cfg.PostgresMinConns),
	})
}

func redisConfig(c config.RedisConfig) redis.Config {
	rc := redis.DefaultConfig()
	rc.Host = c.Host
	rc.Port = c.Port
	rc.Password = c.Password
	rc.DB = c.DB
	rc.KeyPrefix = c.KeyPrefix
	if c.PoolSize > 0 {
		rc.PoolSize = c.PoolSize
	}
	if c.MinIdleConns > 0 {
		rc.MinIdleConns = c.MinIdleConns
	}
	if c.DialTimeout > 0 {
		rc.DialTimeout = c.DialTimeout
	}
	if c.ReadTimeout > 0 {
		rc.ReadTimeout = c.ReadTimeout
	}
	if c.WriteTimeout > 0 {
		rc.WriteTimeout = c.WriteTimeout
	}
	return rc
}

// ══════════════════════════════════════════════════════════════════════════════
// EVENTS
// ══════════════════════════════════════════════════════════════════════════════

func openEventBus(ctx context.Context, cfg *config.Config, store kv.Store, log *logger.Logger) (EventBus, error) {
	local := messaging.InMemoryEventBusConfig{
		AsyncMode:      cfg.Events.Async,
		WorkerPoolSize: cfg.Events.Workers,
		SlowHandler:    100 * time.Millisecond,
		Logger:         log,
	}

	relay := cfg.Events.Driver == config.EventsRedis || cfg.Features.Enabled(config.FeatureEventsRelay)
	if !relay {
		return messaging.NewInMemoryEventBus(local), nil
	}

	rs, reuse := store.(*redis.Store)
	if !reuse {
		var err error
		if rs, err = redis.Dial(redisConfig(cfg.Storage.Redis)); err != nil {
			return nil, fmt.Errorf("event relay: %w", err)
		}
	}
	bus, err := messaging.NewRedisEventBus(ctx, messaging.RedisEventBusConfig{
		Client:         rs.Client(),
		ChannelName:    cfg.Events.Channel,
		LocalBusConfig: local,
		Logger:         log,
	})
	if err != nil {
		if !reuse {
			rs.Close()
		}
		return nil, err
	}
	log.Info("relaying events over redis", logger.String("channel", cfg.Events.Channel))
	if reuse {
		return bus, nil
	}
	return &ownedClientBus{RedisEventBus: bus, client: rs}, nil
}

// ownedClientBus closes the dedicated relay connection with the bus.
type ownedClientBus struct {
	*messaging.RedisEventBus
	client *redis.Store
}

func (b *ownedClientBus) Close() error {
	return errors.Join(b.RedisEventBus.Close(), b.client.Close())
}

// ══════════════════════════════════════════════════════════════════════════════
// FEEDBACK
// ══════════════════════════════════════════════════════════════════════════════

func newFeedbackClient(cfg config.FeedbackConfig, log *logger.Logger) *feedback.Client {
	fc := feedback.DefaultClientConfig(cfg.BaseURL)
	if cfg.RequestTimeout > 0 {
		fc.Timeout = cfg.RequestTimeout
	}
	if cfg.MaxRetries > 0 {
		fc.MaxAttempts = cfg.MaxRetries
	}
	if cfg.CircuitBreakerThreshold > 0 {
		fc.BreakerThreshold = cfg.CircuitBreakerThreshold
	}
	if cfg.CircuitBreakerTimeout > 0 {
		fc.BreakerTimeout = cfg.CircuitBreakerTimeout
	}
	fc.RateLimiterConfig.RequestsPerSecond = cfg.RateLimit
	if cfg.RateLimitBurst > 0 {
		fc.RateLimiterConfig.BurstSize = cfg.RateLimitBurst
	}
	fc.Logger = log
	return feedback.NewClient(fc)
}
