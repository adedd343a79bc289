package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Subscribers use them to refresh derived views
// after the gamification record or the session list changes.
const (
	// Progress events
	EventResponseRecorded EventType = "progress.response_recorded"
	EventSessionRecorded  EventType = "progress.session_recorded"
	EventBadgeEarned      EventType = "progress.badge_earned"
	EventLevelUp          EventType = "progress.level_up"
	EventStreakBroken     EventType = "progress.streak_broken"
	EventProgressReset    EventType = "progress.reset"
	EventStreakAtRisk     EventType = "progress.streak_at_risk"

	// Practice events
	EventSessionsChanged EventType = "sessions.changed"
)

// ProgressAggregateID identifies the single per-process progress record.
const ProgressAggregateID = "progress"

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	AggregateId string    `json:"aggregate_id"`
	Version     int       `json:"version"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event stamped at the given time.
func NewBaseEvent(eventType EventType, aggregateID string, at time.Time) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   at,
		AggregateId: aggregateID,
		Version:     1,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Progress Events
// ═══════════════════════════════════════════════════════════════════════════

// ResponseRecordedEvent is emitted after a practice response is counted.
type ResponseRecordedEvent struct {
	BaseEvent
	IsVoice       bool   `json:"is_voice"`
	XPGained      int    `json:"xp_gained"`
	TotalXP       int    `json:"total_xp"`
	CurrentStreak int    `json:"current_streak"`
	Day           string `json:"day"`
}

// Payload implements Event interface.
func (e ResponseRecordedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"is_voice":       e.IsVoice,
		"xp_gained":      e.XPGained,
		"total_xp":       e.TotalXP,
		"current_streak": e.CurrentStreak,
		"day":            e.Day,
	}
}

// NewResponseRecordedEvent creates a new ResponseRecordedEvent.
func NewResponseRecordedEvent(at time.Time, isVoice bool, xpGained, totalXP, streak int, day string) ResponseRecordedEvent {
	return ResponseRecordedEvent{
		BaseEvent:     NewBaseEvent(EventResponseRecorded, ProgressAggregateID, at),
		IsVoice:       isVoice,
		XPGained:      xpGained,
		TotalXP:       totalXP,
		CurrentStreak: streak,
		Day:           day,
	}
}

// SessionRecordedEvent is emitted after a session creation is counted.
type SessionRecordedEvent struct {
	BaseEvent
	XPGained      int `json:"xp_gained"`
	TotalSessions int `json:"total_sessions"`
}

// Payload implements Event interface.
func (e SessionRecordedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"xp_gained":      e.XPGained,
		"total_sessions": e.TotalSessions,
	}
}

// NewSessionRecordedEvent creates a new SessionRecordedEvent.
func NewSessionRecordedEvent(at time.Time, xpGained, totalSessions int) SessionRecordedEvent {
	return SessionRecordedEvent{
		BaseEvent:     NewBaseEvent(EventSessionRecorded, ProgressAggregateID, at),
		XPGained:      xpGained,
		TotalSessions: totalSessions,
	}
}

// BadgeEarnedEvent is emitted once per newly granted badge.
type BadgeEarnedEvent struct {
	BaseEvent
	BadgeID string `json:"badge_id"`
	Title   string `json:"title"`
}

// Payload implements Event interface.
func (e BadgeEarnedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"badge_id": e.BadgeID,
		"title":    e.Title,
	}
}

// NewBadgeEarnedEvent creates a new BadgeEarnedEvent.
func NewBadgeEarnedEvent(at time.Time, badgeID, title string) BadgeEarnedEvent {
	return BadgeEarnedEvent{
		BaseEvent: NewBaseEvent(EventBadgeEarned, ProgressAggregateID, at),
		BadgeID:   badgeID,
		Title:     title,
	}
}

// LevelUpEvent is emitted when total XP crosses a level boundary.
type LevelUpEvent struct {
	BaseEvent
	OldLevel int    `json:"old_level"`
	NewLevel int    `json:"new_level"`
	Title    string `json:"title"`
}

// Payload implements Event interface.
func (e LevelUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"old_level": e.OldLevel,
		"new_level": e.NewLevel,
		"title":     e.Title,
	}
}

// NewLevelUpEvent creates a new LevelUpEvent.
func NewLevelUpEvent(at time.Time, oldLevel, newLevel int, title string) LevelUpEvent {
	return LevelUpEvent{
		BaseEvent: NewBaseEvent(EventLevelUp, ProgressAggregateID, at),
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
		Title:     title,
	}
}

// StreakBrokenEvent is emitted when a response restarts the streak at 1.
type StreakBrokenEvent struct {
	BaseEvent
	PreviousStreak int    `json:"previous_streak"`
	LastPractice   string `json:"last_practice"`
}

// Payload implements Event interface.
func (e StreakBrokenEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"previous_streak": e.PreviousStreak,
		"last_practice":   e.LastPractice,
	}
}

// NewStreakBrokenEvent creates a new StreakBrokenEvent.
func NewStreakBrokenEvent(at time.Time, previous int, lastPractice string) StreakBrokenEvent {
	return StreakBrokenEvent{
		BaseEvent:      NewBaseEvent(EventStreakBroken, ProgressAggregateID, at),
		PreviousStreak: previous,
		LastPractice:   lastPractice,
	}
}

// ProgressResetEvent is emitted after all progress is wiped.
type ProgressResetEvent struct {
	BaseEvent
}

// Payload implements Event interface.
func (e ProgressResetEvent) Payload() map[string]interface{} {
	return map[string]interface{}{}
}

// NewProgressResetEvent creates a new ProgressResetEvent.
func NewProgressResetEvent(at time.Time) ProgressResetEvent {
	return ProgressResetEvent{BaseEvent: NewBaseEvent(EventProgressReset, ProgressAggregateID, at)}
}

// StreakAtRiskEvent is emitted by the evening reminder when the user
// practiced yesterday but not yet today.
type StreakAtRiskEvent struct {
	BaseEvent
	CurrentStreak int    `json:"current_streak"`
	LastPractice  string `json:"last_practice"`
}

// Payload implements Event interface.
func (e StreakAtRiskEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"current_streak": e.CurrentStreak,
		"last_practice":  e.LastPractice,
	}
}

// NewStreakAtRiskEvent creates a new StreakAtRiskEvent.
func NewStreakAtRiskEvent(at time.Time, streak int, lastPractice string) StreakAtRiskEvent {
	return StreakAtRiskEvent{
		BaseEvent:     NewBaseEvent(EventStreakAtRisk, ProgressAggregateID, at),
		CurrentStreak: streak,
		LastPractice:  lastPractice,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Practice Events
// ═══════════════════════════════════════════════════════════════════════════

// SessionsChangedEvent is emitted after any mutation of the session list.
// AggregateID is the affected session.
type SessionsChangedEvent struct {
	BaseEvent
	Change  string `json:"change"` // added, deleted, entry_added, entry_updated, entry_deleted
	EntryID string `json:"entry_id,omitempty"`
	Count   int    `json:"count"`
}

// Payload implements Event interface.
func (e SessionsChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"change":   e.Change,
		"entry_id": e.EntryID,
		"count":    e.Count,
	}
}

// NewSessionsChangedEvent creates a new SessionsChangedEvent.
func NewSessionsChangedEvent(at time.Time, sessionID, change, entryID string, count int) SessionsChangedEvent {
	return SessionsChangedEvent{
		BaseEvent: NewBaseEvent(EventSessionsChanged, sessionID, at),
		Change:    change,
		EntryID:   entryID,
		Count:     count,
	}
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}

// NopPublisher discards events.
type NopPublisher struct{}

// Publish implements EventPublisher.
func (NopPublisher) Publish(Event) error { return nil }
