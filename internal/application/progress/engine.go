// Package progress owns the live gamification record of one user: it
// applies the award rules under a lock, queues the snapshot for durable
// storage and announces what changed.
package progress

import (
	"context"
	"sync"
	"time"

	"github.com/gd-practice/gd-coach/internal/domain/gamification"
	"github.com/gd-practice/gd-coach/internal/domain/shared"
	"github.com/gd-practice/gd-coach/internal/infrastructure/persistence/kv"
	"github.com/gd-practice/gd-coach/pkg/logger"
	"github.com/gd-practice/gd-coach/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// Loader reads the persisted record once at startup.
type Loader interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// Persister accepts snapshots for durable storage without blocking on I/O.
type Persister interface {
	Submit(key string, value []byte) error
	Delete(key string) error
}

// ══════════════════════════════════════════════════════════════════════════════
// ENGINE
// ══════════════════════════════════════════════════════════════════════════════

// Engine serializes every mutation of the record. Reads observe the
// in-memory state, which is always at least as new as what is on disk.
type Engine struct {
	mu      sync.RWMutex
	record  gamification.Record
	pending *gamification.BadgeDefinition

	catalog   *gamification.Catalog
	persister Persister
	events    shared.EventPublisher
	clock     timeutil.Clock
	loc       *time.Location
	log       *logger.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithCatalog replaces the default badge catalog.
func WithCatalog(c *gamification.Catalog) Option {
	return func(e *Engine) { e.catalog = c }
}

// WithEventPublisher sets where change events go.
func WithEventPublisher(p shared.EventPublisher) Option {
	return func(e *Engine) { e.events = p }
}

// WithClock overrides the time source.
func WithClock(c timeutil.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithLocation sets the zone that decides which calendar day a response
// belongs to.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) { e.loc = loc }
}

// WithLogger sets the engine logger.
func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// NewEngine builds the engine and loads the persisted record. A missing
// record starts from zero; an unreadable one is logged and replaced by
// the default.
func NewEngine(ctx context.Context, loader Loader, persister Persister, opts ...Option) *Engine {
	e := &Engine{
		record:    gamification.NewRecord(),
		catalog:   gamification.DefaultCatalog(),
		persister: persister,
		events:    shared.NopPublisher{},
		clock:     timeutil.SystemClock{},
		loc:       time.Local,
		log:       logger.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With(logger.Component("progress"))
	e.load(ctx, loader)
	return e
}

func (e *Engine) load(ctx context.Context, loader Loader) {
	if loader == nil {
		return
	}
	blob, err := loader.Get(ctx, gamification.StorageKey)
	if err != nil {
		if !kv.IsNotFound(err) {
			e.log.Warn("failed to load progress, starting fresh",
				logger.StorageKey(gamification.StorageKey),
				logger.Err(err),
			)
		}
		return
	}

	rec, err := gamification.DecodeRecord(blob)
	if err != nil {
		e.log.Warn("corrupt progress record, starting fresh",
			logger.StorageKey(gamification.StorageKey),
			logger.Err(err),
		)
		return
	}
	e.record = rec
	e.log.Info("progress loaded",
		logger.XPAmount(rec.XP),
		logger.Streak(rec.CurrentStreak),
		logger.Int("badges", len(rec.EarnedBadgeIDs)),
	)
}

// ══════════════════════════════════════════════════════════════════════════════
// MUTATIONS
// ══════════════════════════════════════════════════════════════════════════════

// RecordResponse counts one practice response made now.
func (e *Engine) RecordResponse(ctx context.Context, isVoice bool) gamification.ResponseAward {
	e.mu.Lock()
	now := e.clock.Now()
	today := timeutil.DateKey(now, e.loc)
	award := gamification.ApplyResponse(&e.record, e.catalog, today, isVoice)
	e.surface(award.NewBadges)
	snapshot := e.record.Clone()
	e.persist(ctx, snapshot)
	e.mu.Unlock()

	events := []shared.Event{
		shared.NewResponseRecordedEvent(now, isVoice, award.XPGained, snapshot.XP, snapshot.CurrentStreak, today),
	}
	if award.Streak == gamification.StreakBroken {
		events = append(events, shared.NewStreakBrokenEvent(now, award.PreviousStreak, award.PreviousDay))
	}
	e.publish(ctx, append(events, e.awardEvents(now, award.Award)...))

	e.logFor(ctx).Debug("response recorded",
		logger.Bool("voice", isVoice),
		logger.XPAmount(award.XPGained),
		logger.Streak(snapshot.CurrentStreak),
		logger.String("streak_outcome", string(award.Streak)),
	)
	return award
}

// RecordSessionCreate counts a newly created practice session.
func (e *Engine) RecordSessionCreate(ctx context.Context) gamification.Award {
	now := e.clock.Now()

	e.mu.Lock()
	award := gamification.ApplySessionCreate(&e.record, e.catalog)
	e.surface(award.NewBadges)
	snapshot := e.record.Clone()
	e.persist(ctx, snapshot)
	e.mu.Unlock()

	events := []shared.Event{shared.NewSessionRecordedEvent(now, award.XPGained, snapshot.TotalSessions)}
	e.publish(ctx, append(events, e.awardEvents(now, award)...))
	return award
}

// DismissBadge clears the pending badge notification.
func (e *Engine) DismissBadge() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending = nil
}

// Reset wipes all progress in memory and removes the durable record.
func (e *Engine) Reset(ctx context.Context) {
	e.mu.Lock()
	e.record = gamification.NewRecord()
	e.pending = nil
	if err := e.persister.Delete(gamification.StorageKey); err != nil {
		e.logFor(ctx).Warn("failed to queue progress delete", logger.Err(err))
	}
	e.mu.Unlock()
	e.publish(ctx, []shared.Event{shared.NewProgressResetEvent(e.clock.Now())})
	e.logFor(ctx).Info("progress reset")
}

// surface puts the first new badge in catalog order into the pending
// slot. Caller holds the lock.
func (e *Engine) surface(badges []gamification.BadgeDefinition) {
	if len(badges) == 0 {
		return
	}
	b := badges[0]
	e.pending = &b
}

// persist queues snapshot. Caller holds the lock so queued snapshots
// follow mutation order.
func (e *Engine) persist(ctx context.Context, snapshot gamification.Record) {
	blob, err := snapshot.Encode()
	if err != nil {
		e.logFor(ctx).Error("failed to encode progress", logger.Err(err))
		return
	}
	if err := e.persister.Submit(gamification.StorageKey, blob); err != nil {
		e.logFor(ctx).Warn("failed to queue progress write", logger.Err(err))
	}
}

func (e *Engine) awardEvents(now time.Time, a gamification.Award) []shared.Event {
	var events []shared.Event
	for _, b := range a.NewBadges {
		events = append(events, shared.NewBadgeEarnedEvent(now, b.ID, b.Title))
	}
	if a.LeveledUp() {
		events = append(events, shared.NewLevelUpEvent(now, a.LevelBefore.Int(), a.LevelAfter.Int(), a.LevelAfter.Title()))
	}
	return events
}

func (e *Engine) publish(ctx context.Context, events []shared.Event) {
	for _, ev := range events {
		if err := e.events.Publish(ev); err != nil {
			e.logFor(ctx).Warn("failed to publish event",
				logger.String("event_type", string(ev.EventType())),
				logger.Err(err),
			)
		}
	}
}

func (e *Engine) logFor(ctx context.Context) *logger.Logger {
	if l, ok := logger.FromContextOK(ctx); ok {
		return l.With(logger.Component("progress"))
	}
	return e.log
}

// ══════════════════════════════════════════════════════════════════════════════
// VIEWS
// ══════════════════════════════════════════════════════════════════════════════

// Snapshot returns a copy of the record.
func (e *Engine) Snapshot() gamification.Record {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.record.Clone()
}

// PendingBadge returns the badge waiting to be shown, if any.
func (e *Engine) PendingBadge() (gamification.BadgeDefinition, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.pending == nil {
		return gamification.BadgeDefinition{}, false
	}
	return *e.pending, true
}

// LevelInfo returns the position on the level curve.
func (e *Engine) LevelInfo() shared.LevelInfo {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.record.Level()
}

// LevelTitle returns the title for the current level.
func (e *Engine) LevelTitle() string {
	return e.LevelInfo().Level.Title()
}

// EarnedBadges returns earned badges in catalog order.
func (e *Engine) EarnedBadges() []gamification.BadgeDefinition {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.catalog.Earned(e.record)
}

// Catalog returns the badge catalog in use.
func (e *Engine) Catalog() *gamification.Catalog {
	return e.catalog
}

// WeeklyDays returns the last seven days of activity, oldest first.
func (e *Engine) WeeklyDays() []gamification.WeeklyDay {
	now := e.clock.Now()
	e.mu.RLock()
	defer e.mu.RUnlock()
	return gamification.WeeklyDays(e.record, now, e.loc)
}

// WeeklyCount sums the last seven days of activity.
func (e *Engine) WeeklyCount() int {
	now := e.clock.Now()
	e.mu.RLock()
	defer e.mu.RUnlock()
	return gamification.WeeklyCount(e.record, now, e.loc)
}

// Summary is a consistent read of every derived view.
type Summary struct {
	Record       gamification.Record            `json:"record"`
	Level        shared.LevelInfo               `json:"level"`
	Title        string                         `json:"title"`
	EarnedBadges []gamification.BadgeDefinition `json:"earnedBadges"`
	Weekly       []gamification.WeeklyDay       `json:"weekly"`
	WeeklyCount  int                            `json:"weeklyCount"`
	PendingBadge *gamification.BadgeDefinition  `json:"pendingBadge,omitempty"`
}

// Summary reads all views under one lock.
func (e *Engine) Summary() Summary {
	now := e.clock.Now()
	e.mu.RLock()
	defer e.mu.RUnlock()

	lvl := e.record.Level()
	s := Summary{
		Record:       e.record.Clone(),
		Level:        lvl,
		Title:        lvl.Level.Title(),
		EarnedBadges: e.catalog.Earned(e.record),
		Weekly:       gamification.WeeklyDays(e.record, now, e.loc),
	}
	for _, d := range s.Weekly {
		s.WeeklyCount += d.Count
	}
	if e.pending != nil {
		b := *e.pending
		s.PendingBadge = &b
	}
	return s
}
