package gamification

import (
	"fmt"

	"github.com/gd-practice/gd-coach/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// BADGES
// ══════════════════════════════════════════════════════════════════════════════

// RequirementType is the metric a badge threshold applies to.
type RequirementType string

const (
	RequirementTotalResponses RequirementType = "total_responses"
	RequirementVoiceResponses RequirementType = "voice_responses"
	RequirementStreak         RequirementType = "streak"
	RequirementSessions       RequirementType = "sessions"
	RequirementFirstPractice  RequirementType = "first_practice"
)

// IsValid reports whether t is a known metric.
func (t RequirementType) IsValid() bool {
	switch t {
	case RequirementTotalResponses, RequirementVoiceResponses, RequirementStreak,
		RequirementSessions, RequirementFirstPractice:
		return true
	}
	return false
}

// Requirement is a metric and the threshold it must reach.
type Requirement struct {
	Type  RequirementType `json:"type" yaml:"type"`
	Count int             `json:"count" yaml:"count"`
}

// BadgeDefinition is immutable catalog data.
type BadgeDefinition struct {
	ID          string      `json:"id" yaml:"id"`
	Title       string      `json:"title" yaml:"title"`
	Description string      `json:"description" yaml:"description"`
	Emoji       string      `json:"emoji" yaml:"emoji"`
	Color       string      `json:"color" yaml:"color"`
	Requirement Requirement `json:"requirement" yaml:"requirement"`
}

// SatisfiedBy reports whether r meets the badge's requirement. Streak
// badges accept either the current or the longest streak.
func (b BadgeDefinition) SatisfiedBy(r Record) bool {
	n := b.Requirement.Count
	switch b.Requirement.Type {
	case RequirementTotalResponses, RequirementFirstPractice:
		return r.TotalResponses >= n
	case RequirementVoiceResponses:
		return r.VoiceResponses >= n
	case RequirementStreak:
		return r.CurrentStreak >= n || r.LongestStreak >= n
	case RequirementSessions:
		return r.TotalSessions >= n
	default:
		return false
	}
}

// Catalog is the ordered badge list. Order decides which of several
// badges earned together is surfaced to the user.
type Catalog struct {
	badges []BadgeDefinition
	index  map[string]int
}

// NewCatalog validates defs and builds a catalog in the given order.
func NewCatalog(defs []BadgeDefinition) (*Catalog, error) {
	if len(defs) == 0 {
		return nil, catalogErr(fmt.Errorf("catalog is empty"))
	}

	c := &Catalog{
		badges: make([]BadgeDefinition, len(defs)),
		index:  make(map[string]int, len(defs)),
	}
	for i, d := range defs {
		switch {
		case d.ID == "":
			return nil, catalogErr(fmt.Errorf("badge %d: id is required", i))
		case !d.Requirement.Type.IsValid():
			return nil, catalogErr(fmt.Errorf("badge %q: unknown requirement type %q", d.ID, d.Requirement.Type))
		case d.Requirement.Count < 1:
			return nil, catalogErr(fmt.Errorf("badge %q: count must be at least 1", d.ID))
		}
		if _, dup := c.index[d.ID]; dup {
			return nil, catalogErr(fmt.Errorf("badge %q: duplicate id", d.ID))
		}
		c.badges[i] = d
		c.index[d.ID] = i
	}
	return c, nil
}

func catalogErr(err error) error {
	return shared.WrapError("gamification", "NewCatalog", shared.ErrInvalidCatalog, "invalid badge catalog", err)
}

// All returns the badges in catalog order.
func (c *Catalog) All() []BadgeDefinition {
	out := make([]BadgeDefinition, len(c.badges))
	copy(out, c.badges)
	return out
}

// Len returns the number of badges.
func (c *Catalog) Len() int { return len(c.badges) }

// Get looks up a badge by id.
func (c *Catalog) Get(id string) (BadgeDefinition, bool) {
	i, ok := c.index[id]
	if !ok {
		return BadgeDefinition{}, false
	}
	return c.badges[i], true
}

// Earned returns the badges r has earned, in catalog order. Earned ids
// missing from the catalog are skipped.
func (c *Catalog) Earned(r Record) []BadgeDefinition {
	out := make([]BadgeDefinition, 0, len(r.EarnedBadgeIDs))
	for _, b := range c.badges {
		if r.HasBadge(b.ID) {
			out = append(out, b)
		}
	}
	return out
}

// Evaluate grants every badge that r now satisfies and has not earned,
// appending their ids and adding XPBadgeBonus for each. It returns the
// new badges in catalog order.
//
// The bonus XP never feeds back into a requirement, so one pass is enough.
func (c *Catalog) Evaluate(r *Record) []BadgeDefinition {
	var granted []BadgeDefinition
	for _, b := range c.badges {
		if r.HasBadge(b.ID) || !b.SatisfiedBy(*r) {
			continue
		}
		r.EarnedBadgeIDs = append(r.EarnedBadgeIDs, b.ID)
		r.XP += XPBadgeBonus
		granted = append(granted, b)
	}
	return granted
}

// DefaultCatalog returns the built-in badge set.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(defaultBadges)
	if err != nil {
		panic(err)
	}
	return c
}

var defaultBadges = []BadgeDefinition{
	{ID: "first_practice", Title: "First Steps", Description: "Complete your first practice response", Emoji: "🥇", Color: "#F59E0B",
		Requirement: Requirement{Type: RequirementFirstPractice, Count: 1}},
	{ID: "streak_3", Title: "Getting Warm", Description: "Practice 3 days in a row", Emoji: "🔥", Color: "#EF4444",
		Requirement: Requirement{Type: RequirementStreak, Count: 3}},
	{ID: "streak_7", Title: "On Fire", Description: "Practice 7 days in a row", Emoji: "🔥", Color: "#DC2626",
		Requirement: Requirement{Type: RequirementStreak, Count: 7}},
	{ID: "streak_30", Title: "Unstoppable", Description: "Practice 30 days in a row", Emoji: "💎", Color: "#7C3AED",
		Requirement: Requirement{Type: RequirementStreak, Count: 30}},
	{ID: "responses_10", Title: "Active Learner", Description: "Submit 10 practice responses", Emoji: "📝", Color: "#0F6B5E",
		Requirement: Requirement{Type: RequirementTotalResponses, Count: 10}},
	{ID: "responses_50", Title: "Knowledge Seeker", Description: "Submit 50 practice responses", Emoji: "🧠", Color: "#6366F1",
		Requirement: Requirement{Type: RequirementTotalResponses, Count: 50}},
	{ID: "responses_100", Title: "GD Champion", Description: "Submit 100 practice responses", Emoji: "🏆", Color: "#F59E0B",
		Requirement: Requirement{Type: RequirementTotalResponses, Count: 100}},
	{ID: "voice_5", Title: "Voice Pioneer", Description: "Submit 5 voice responses", Emoji: "🎙️", Color: "#E8734A",
		Requirement: Requirement{Type: RequirementVoiceResponses, Count: 5}},
	{ID: "voice_20", Title: "Voice Master", Description: "Submit 20 voice responses", Emoji: "🎤", Color: "#DC2626",
		Requirement: Requirement{Type: RequirementVoiceResponses, Count: 20}},
	{ID: "sessions_5", Title: "Explorer", Description: "Create 5 practice sessions", Emoji: "🗺️", Color: "#2563EB",
		Requirement: Requirement{Type: RequirementSessions, Count: 5}},
	{ID: "sessions_15", Title: "Dedicated Scholar", Description: "Create 15 practice sessions", Emoji: "🎓", Color: "#7C3AED",
		Requirement: Requirement{Type: RequirementSessions, Count: 15}},
}
