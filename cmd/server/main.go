// Command server runs the GD Coach HTTP API together with its background
// jobs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gd-practice/gd-coach/config"
	"github.com/gd-practice/gd-coach/internal/app"
	"github.com/gd-practice/gd-coach/internal/infrastructure/persistence/kv"
	"github.com/gd-practice/gd-coach/internal/infrastructure/scheduler"
	"github.com/gd-practice/gd-coach/internal/infrastructure/scheduler/jobs"
	httpapi "github.com/gd-practice/gd-coach/internal/interface/http"
	"github.com/gd-practice/gd-coach/internal/interface/http/handlers"
	"github.com/gd-practice/gd-coach/pkg/logger"
	"github.com/gd-practice/gd-coach/pkg/timeutil"
)

// maxPendingWrites is the write-behind backlog above which /health fails.
const maxPendingWrites = 64

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION & LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(logger.Options{
		Output:    os.Stdout,
		Level:     logger.ParseLevel(cfg.Observability.LogLevel),
		AddCaller: cfg.Observability.LogCaller,
	}).With(logger.String("app", cfg.App.Name), logger.String("env", string(cfg.App.Environment)))

	log.Info("starting GD Coach server",
		logger.String("version", cfg.App.Version),
		logger.String("timezone", cfg.App.Timezone),
		logger.String("storage", cfg.Storage.Driver),
		logger.String("events", cfg.Events.Driver),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. APPLICATION
	// ─────────────────────────────────────────────────────────────────────────
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer closeCancel()
		if err := a.Close(closeCtx); err != nil {
			log.Error("failed to close application cleanly", logger.Err(err))
		}
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 3. HEALTH CHECKS
	// ─────────────────────────────────────────────────────────────────────────
	health := handlers.NewCompositeHealthChecker(cfg.App.Version)
	if p, ok := a.Store.(kv.Pinger); ok {
		health.AddCheck("storage", handlers.NewStoreCheck(p))
	}
	health.AddCheck("write_behind", handlers.NewFuncCheck(func() bool {
		return a.Writer.Pending() < maxPendingWrites
	}, "write-behind backlog too large"))

	// ─────────────────────────────────────────────────────────────────────────
	// 4. SCHEDULER
	// ─────────────────────────────────────────────────────────────────────────
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched, err = setupScheduler(cfg, a, log)
		if err != nil {
			return fmt.Errorf("failed to set up scheduler: %w", err)
		}
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	serverCfg := httpapi.DefaultConfig()
	serverCfg.Host = cfg.HTTP.Host
	serverCfg.Port = cfg.HTTP.Port
	serverCfg.JWTSecret = cfg.HTTP.JWTSecret
	serverCfg.TokenTTL = cfg.HTTP.TokenTTL
	serverCfg.Version = cfg.App.Version
	if cfg.HTTP.ReadTimeout > 0 {
		serverCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	}
	if cfg.HTTP.WriteTimeout > 0 {
		serverCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	}

	server := httpapi.NewServer(serverCfg, httpapi.Dependencies{
		Account:        a.Account,
		Progress:       a.Progress,
		Sessions:       a.Sessions,
		CreateSession:  a.CreateSession,
		SubmitResponse: a.SubmitResponse,
		Delete:         a.Delete,
		Dashboard:      a.Dashboard,
		Topics:         a.Topics,
		Features:       cfg.Features,
		HealthChecker:  health,
		Logger:         log,
	})
	errCh := server.StartAsync()

	log.Info("GD Coach server is running", logger.String("address", serverCfg.Address()))

	// ─────────────────────────────────────────────────────────────────────────
	// 6. WAIT & SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			log.Error("server error", logger.Err(err))
			runErr = err
		}
	case <-ctx.Done():
	}

	log.Info("starting graceful shutdown", logger.Duration("timeout", cfg.App.ShutdownTimeout))
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", logger.Err(err))
	}
	if sched != nil {
		if err := sched.Stop(); err != nil {
			log.Warn("failed to stop scheduler", logger.Err(err))
		}
	}

	// Queued writes are flushed by the deferred a.Close.
	log.Info("shutdown completed", logger.Int("pending_writes", a.Writer.Pending()))
	return runErr
}

// setupScheduler registers the checkpoint job and, when the feature is on,
// the evening streak reminder.
func setupScheduler(cfg *config.Config, a *app.App, log *logger.Logger) (*scheduler.Scheduler, error) {
	sched := scheduler.New(
		scheduler.WithLogger(log),
		scheduler.WithLocation(cfg.App.Location),
		scheduler.WithJobTimeout(cfg.Scheduler.JobTimeout),
	)

	var pinger jobs.Pinger
	if p, ok := a.Store.(kv.Pinger); ok {
		pinger = p
	}
	checkpoint := jobs.NewCheckpointJob(a.Writer, pinger)
	if err := sched.Register(checkpoint, scheduler.Every(cfg.Scheduler.CheckpointInterval)); err != nil {
		return nil, err
	}

	if cfg.Features.Enabled(config.FeatureStreakReminders) {
		reminder := jobs.NewStreakReminderJob(a.Progress, a.Events, timeutil.SystemClock{}, cfg.App.Location)
		if err := sched.RegisterCron(reminder, scheduler.DailyAt(cfg.Scheduler.StreakReminderHour)); err != nil {
			return nil, err
		}
	}
	return sched, nil
}
