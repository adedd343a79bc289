package gamification

import (
	"github.com/gd-practice/gd-coach/pkg/timeutil"
)

// StreakOutcome tells what a response did to the streak.
type StreakOutcome string

const (
	StreakStarted   StreakOutcome = "started"   // first response ever
	StreakSameDay   StreakOutcome = "same_day"  // already practiced today
	StreakContinued StreakOutcome = "continued" // practiced yesterday
	StreakBroken    StreakOutcome = "broken"    // gap of two or more days
)

// ApplyStreak advances the streak for a response made on day today
// (YYYY-MM-DD) and records today as the last practice date.
//
// A last practice date that cannot be parsed counts as a break. A day
// earlier than the last practice date leaves the record untouched and
// reports StreakSameDay, so the last practice date never moves back.
func ApplyStreak(r *Record, today string) StreakOutcome {
	var outcome StreakOutcome

	switch {
	case r.LastPracticeDate == nil:
		outcome = StreakStarted
		r.CurrentStreak = 1
	case *r.LastPracticeDate == today:
		return StreakSameDay
	default:
		gap, err := timeutil.DaysBetween(*r.LastPracticeDate, today)
		switch {
		case err == nil && (gap == 0 || today < *r.LastPracticeDate):
			return StreakSameDay
		case err == nil && gap == 1:
			outcome = StreakContinued
			r.CurrentStreak++
		default:
			outcome = StreakBroken
			r.CurrentStreak = 1
		}
	}

	if r.CurrentStreak > r.LongestStreak {
		r.LongestStreak = r.CurrentStreak
	}

	d := today
	r.LastPracticeDate = &d
	return outcome
}
