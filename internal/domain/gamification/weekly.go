package gamification

import (
	"time"

	"github.com/gd-practice/gd-coach/pkg/timeutil"
)

// WeekLength is the size of the activity window.
const WeekLength = 7

// WeeklyDay is one bar of the activity chart.
type WeeklyDay struct {
	Date  string `json:"date"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// WeeklyDays returns the seven days ending with now's day in loc, oldest
// first. Days without activity count zero.
func WeeklyDays(r Record, now time.Time, loc *time.Location) []WeeklyDay {
	days := timeutil.LastNDays(now, loc, WeekLength)
	out := make([]WeeklyDay, len(days))
	for i, d := range days {
		key := d.Format(timeutil.FormatDate)
		out[i] = WeeklyDay{
			Date:  key,
			Label: timeutil.WeekdayInitial(d.Weekday()),
			Count: r.WeeklyActivity[key],
		}
	}
	return out
}

// WeeklyCount sums activity over the same seven-day window.
func WeeklyCount(r Record, now time.Time, loc *time.Location) int {
	total := 0
	for _, d := range WeeklyDays(r, now, loc) {
		total += d.Count
	}
	return total
}
