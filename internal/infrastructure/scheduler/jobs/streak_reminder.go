package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gd-practice/gd-coach/internal/domain/gamification"
	"github.com/gd-practice/gd-coach/internal/domain/shared"
	"github.com/gd-practice/gd-coach/pkg/logger"
	"github.com/gd-practice/gd-coach/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// STREAK REMINDER JOB
// ══════════════════════════════════════════════════════════════════════════════

// ProgressSnapshotter exposes the current progress record.
type ProgressSnapshotter interface {
	Snapshot() gamification.Record
}

// StreakReminderJob runs in the evening and announces a streak that will
// break at midnight: the last practice was yesterday and nothing was
// recorded today. It fires at most once per calendar day.
type StreakReminderJob struct {
	progress ProgressSnapshotter
	events   shared.EventPublisher
	clock    timeutil.Clock
	loc      *time.Location

	mu       sync.Mutex
	lastSent string
}

// NewStreakReminderJob creates a StreakReminderJob.
func NewStreakReminderJob(progress ProgressSnapshotter, events shared.EventPublisher, clock timeutil.Clock, loc *time.Location) *StreakReminderJob {
	if events == nil {
		events = shared.NopPublisher{}
	}
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	if loc == nil {
		loc = time.Local
	}
	return &StreakReminderJob{progress: progress, events: events, clock: clock, loc: loc}
}

// Name implements scheduler.Job.
func (j *StreakReminderJob) Name() string { return "streak_reminder" }

// Description implements scheduler.Job.
func (j *StreakReminderJob) Description() string {
	return "Warns when today's practice is all that keeps the streak alive"
}

// Run implements scheduler.Job.
func (j *StreakReminderJob) Run(ctx context.Context) error {
	now := j.clock.Now()
	today := timeutil.DateKey(now, j.loc)

	record := j.progress.Snapshot()
	if !AtRisk(record, today) {
		return nil
	}

	j.mu.Lock()
	if j.lastSent == today {
		j.mu.Unlock()
		return nil
	}
	j.lastSent = today
	j.mu.Unlock()

	last := *record.LastPracticeDate
	if err := j.events.Publish(shared.NewStreakAtRiskEvent(now, record.CurrentStreak, last)); err != nil {
		return fmt.Errorf("publish streak reminder: %w", err)
	}
	logger.FromContext(ctx).Info("streak reminder sent",
		logger.Streak(record.CurrentStreak),
		logger.String("last_practice", last),
	)
	return nil
}

// AtRisk reports whether the streak in r survives only if the user
// practices on day today (YYYY-MM-DD).
func AtRisk(r gamification.Record, today string) bool {
	if r.CurrentStreak < 1 || r.LastPracticeDate == nil || *r.LastPracticeDate >= today {
		return false
	}
	gap, err := timeutil.DaysBetween(*r.LastPracticeDate, today)
	return err == nil && gap == 1
}
