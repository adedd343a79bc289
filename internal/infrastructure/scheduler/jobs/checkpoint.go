// Package jobs contains the scheduled jobs of the GD Coach server.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gd-practice/gd-coach/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CHECKPOINT JOB
// ══════════════════════════════════════════════════════════════════════════════

// Flusher drains queued writes to durable storage.
type Flusher interface {
	Flush(ctx context.Context) error
	Pending() int
}

// Pinger reports whether a backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CheckpointStats is the outcome of the last checkpoint.
type CheckpointStats struct {
	Runs    int64
	Flushed int
	Failed  int64
	LastErr error
}

// CheckpointJob periodically flushes the write-behind queue and probes the
// backing store, so a crash loses at most one interval of progress.
type CheckpointJob struct {
	flusher Flusher
	pinger  Pinger

	mu    sync.Mutex
	stats CheckpointStats
}

// NewCheckpointJob creates a CheckpointJob. pinger may be nil.
func NewCheckpointJob(flusher Flusher, pinger Pinger) *CheckpointJob {
	return &CheckpointJob{flusher: flusher, pinger: pinger}
}

// Name implements scheduler.Job.
func (j *CheckpointJob) Name() string { return "checkpoint" }

// Description implements scheduler.Job.
func (j *CheckpointJob) Description() string {
	return "Flushes queued progress writes and pings the store"
}

// Run implements scheduler.Job.
func (j *CheckpointJob) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)
	pending := j.flusher.Pending()

	var errs []error
	if err := j.flusher.Flush(ctx); err != nil {
		errs = append(errs, fmt.Errorf("flush: %w", err))
	}
	if j.pinger != nil {
		if err := j.pinger.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("ping: %w", err))
		}
	}
	err := errors.Join(errs...)

	j.mu.Lock()
	j.stats.Runs++
	j.stats.Flushed = pending
	j.stats.LastErr = err
	if err != nil {
		j.stats.Failed++
	}
	j.mu.Unlock()

	if pending > 0 {
		log.Debug("checkpoint flushed", logger.Int("pending", pending))
	}
	return err
}

// Stats returns the checkpoint counters.
func (j *CheckpointJob) Stats() CheckpointStats {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.stats
}
