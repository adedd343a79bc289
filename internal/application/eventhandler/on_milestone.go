package eventhandler

import (
	"fmt"
	"sync"

	"github.com/gd-practice/gd-coach/internal/domain/shared"
	"github.com/gd-practice/gd-coach/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ON MILESTONE HANDLER
// Records badges, level ups, broken streaks and streak reminders. Events relayed from other
// instances arrive as plain payload maps, so fields are read from Payload.
// ══════════════════════════════════════════════════════════════════════════════

// MilestoneCounts tallies what the handler has seen.
type MilestoneCounts struct {
	Badges        int
	LevelUps      int
	StreaksBroken int
	StreakAlerts  int
	LastBadgeID   string
	HighestLevel  int
}

// OnMilestoneHandler logs milestones.
type OnMilestoneHandler struct {
	log *logger.Logger

	mu     sync.Mutex
	counts MilestoneCounts
}

// NewOnMilestoneHandler creates a new OnMilestoneHandler.
func NewOnMilestoneHandler(log *logger.Logger) *OnMilestoneHandler {
	if log == nil {
		log = logger.Discard()
	}
	return &OnMilestoneHandler{log: log.With(logger.Component("milestones"))}
}

// Handle processes one milestone event.
func (h *OnMilestoneHandler) Handle(e shared.Event) error {
	p := e.Payload()

	h.mu.Lock()
	defer h.mu.Unlock()

	switch e.EventType() {
	case shared.EventBadgeEarned:
		id := fmt.Sprint(p["badge_id"])
		h.counts.Badges++
		h.counts.LastBadgeID = id
		h.log.Info("badge earned",
			logger.BadgeID(id),
			logger.String("title", fmt.Sprint(p["title"])),
		)
	case shared.EventLevelUp:
		lvl := payloadInt(p, "new_level")
		h.counts.LevelUps++
		if lvl > h.counts.HighestLevel {
			h.counts.HighestLevel = lvl
		}
		h.log.Info("level up",
			logger.GameLevel(lvl),
			logger.Int("old_level", payloadInt(p, "old_level")),
			logger.String("title", fmt.Sprint(p["title"])),
		)
	case shared.EventStreakBroken:
		h.counts.StreaksBroken++
		h.log.Info("streak broken",
			logger.Streak(payloadInt(p, "previous_streak")),
			logger.String("last_practice", fmt.Sprint(p["last_practice"])),
		)
	case shared.EventStreakAtRisk:
		h.counts.StreakAlerts++
		h.log.Warn("streak at risk: practice today to keep it",
			logger.Streak(payloadInt(p, "current_streak")),
			logger.String("last_practice", fmt.Sprint(p["last_practice"])),
		)
	}
	return nil
}

// Counts returns a copy of the tallies.
func (h *OnMilestoneHandler) Counts() MilestoneCounts {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.counts
}

// Register subscribes the handler to milestone events.
func (h *OnMilestoneHandler) Register(sub shared.EventSubscriber) error {
	for _, et := range []shared.EventType{shared.EventBadgeEarned, shared.EventLevelUp, shared.EventStreakBroken, shared.EventStreakAtRisk} {
		if err := sub.Subscribe(et, h.Handle); err != nil {
			return err
		}
	}
	return nil
}

func payloadInt(p map[string]interface{}, key string) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
