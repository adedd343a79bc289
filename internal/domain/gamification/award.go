package gamification

import (
	"github.com/gd-practice/gd-coach/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// AWARDS
// ══════════════════════════════════════════════════════════════════════════════

// Award summarizes one mutation of the record.
type Award struct {
	XPGained    int               `json:"xpGained"`
	NewBadges   []BadgeDefinition `json:"newBadges"`
	LevelBefore shared.Level      `json:"levelBefore"`
	LevelAfter  shared.Level      `json:"levelAfter"`
}

// LeveledUp reports whether the award crossed a level boundary.
func (a Award) LeveledUp() bool {
	return a.LevelAfter > a.LevelBefore
}

// ResponseAward is the result of counting one practice response.
type ResponseAward struct {
	Award
	Day            string        `json:"day"`
	Streak         StreakOutcome `json:"streak"`
	PreviousStreak int           `json:"previousStreak"`
	PreviousDay    string        `json:"previousDay,omitempty"`
}

// ResponseXP is the base XP for one response, streak bonus included.
func ResponseXP(isVoice bool) int {
	if isVoice {
		return XPVoiceResponse + XPStreakBonus
	}
	return XPTextResponse + XPStreakBonus
}

// ApplyResponse counts a response made on day today: activity histogram,
// base XP with the streak-day bonus, streak transition, counters and
// badge evaluation, in that order.
func ApplyResponse(r *Record, c *Catalog, today string, isVoice bool) ResponseAward {
	startXP := r.XP
	res := ResponseAward{
		Award:          Award{LevelBefore: r.Level().Level},
		Day:            today,
		PreviousStreak: r.CurrentStreak,
	}
	if r.LastPracticeDate != nil {
		res.PreviousDay = *r.LastPracticeDate
	}

	if r.WeeklyActivity == nil {
		r.WeeklyActivity = map[string]int{}
	}
	r.WeeklyActivity[today]++

	r.XP += ResponseXP(isVoice)
	res.Streak = ApplyStreak(r, today)

	r.TotalResponses++
	if isVoice {
		r.VoiceResponses++
	}

	res.NewBadges = c.Evaluate(r)
	res.XPGained = r.XP - startXP
	res.LevelAfter = r.Level().Level
	return res
}

// ApplySessionCreate counts a newly created practice session.
func ApplySessionCreate(r *Record, c *Catalog) Award {
	startXP := r.XP
	res := Award{LevelBefore: r.Level().Level}

	r.TotalSessions++
	r.XP += XPSessionCreate

	res.NewBadges = c.Evaluate(r)
	res.XPGained = r.XP - startXP
	res.LevelAfter = r.Level().Level
	return res
}
