package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// CRON
// ══════════════════════════════════════════════════════════════════════════════

// CronExpression is a parsed 5-field cron expression:
// minute hour day-of-month month day-of-week.
//
// Each field accepts *, */n, n, n-m, n-m/s and comma separated lists of those.
//
//   - "*/5 * * * *"  every 5 minutes
//   - "0 20 * * *"   every day at 20:00
//   - "0 9 * * 1-5"  weekdays at 09:00
type CronExpression struct {
	raw      string
	minutes  fieldSet
	hours    fieldSet
	days     fieldSet
	months   fieldSet
	weekdays fieldSet
}

// fieldSet is a bitmask of allowed values; every cron field fits in 64 bits.
type fieldSet uint64

func (f fieldSet) has(v int) bool { return f&(1<<uint(v)) != 0 }

type fieldSpec struct {
	name     string
	min, max int
}

var cronFields = [5]fieldSpec{
	{"minute", 0, 59},
	{"hour", 0, 23},
	{"day", 1, 31},
	{"month", 1, 12},
	{"weekday", 0, 6},
}

// Frequently used expressions.
const (
	EveryMinute      = "* * * * *"
	EveryHour        = "0 * * * *"
	EveryDayMidnight = "0 0 * * *"
)

// DailyAt returns the expression that fires once a day at hour:00.
func DailyAt(hour int) string {
	return fmt.Sprintf("0 %d * * *", hour)
}

// ParseCronExpression parses a cron expression string.
func ParseCronExpression(expr string) (*CronExpression, error) {
	fields := strings.Fields(expr)
	if len(fields) != len(cronFields) {
		return nil, fmt.Errorf("invalid cron expression %q: expected 5 fields, got %d", expr, len(fields))
	}

	sets := make([]fieldSet, len(cronFields))
	for i, spec := range cronFields {
		set, err := parseField(fields[i], spec.min, spec.max)
		if err != nil {
			return nil, fmt.Errorf("invalid %s field: %w", spec.name, err)
		}
		sets[i] = set
	}

	return &CronExpression{
		raw:      expr,
		minutes:  sets[0],
		hours:    sets[1],
		days:     sets[2],
		months:   sets[3],
		weekdays: sets[4],
	}, nil
}

// MustParseCronExpression parses a cron expression or panics.
// Use only for constants.
func MustParseCronExpression(expr string) *CronExpression {
	ce, err := ParseCronExpression(expr)
	if err != nil {
		panic(err)
	}
	return ce
}

func parseField(field string, min, max int) (fieldSet, error) {
	var set fieldSet
	for _, part := range strings.Split(field, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return 0, fmt.Errorf("empty list element in %q", field)
		}

		rangePart, step := part, 1
		if i := strings.IndexByte(part, '/'); i >= 0 {
			s, err := strconv.Atoi(part[i+1:])
			if err != nil || s <= 0 {
				return 0, fmt.Errorf("invalid step value: %s", part[i+1:])
			}
			rangePart, step = part[:i], s
		}

		start, end := min, max
		switch {
		case rangePart == "*":
		case strings.Contains(rangePart, "-"):
			bounds := strings.SplitN(rangePart, "-", 2)
			var err error
			if start, err = strconv.Atoi(bounds[0]); err != nil {
				return 0, fmt.Errorf("invalid range start: %s", bounds[0])
			}
			if end, err = strconv.Atoi(bounds[1]); err != nil {
				return 0, fmt.Errorf("invalid range end: %s", bounds[1])
			}
		default:
			v, err := strconv.Atoi(rangePart)
			if err != nil {
				return 0, fmt.Errorf("invalid value: %s", rangePart)
			}
			start = v
			if step == 1 {
				end = v
			}
		}

		if start < min || end > max || start > end {
			return 0, fmt.Errorf("value out of range [%d-%d]: %s", min, max, part)
		}
		for v := start; v <= end; v += step {
			set |= 1 << uint(v)
		}
	}
	return set, nil
}

// String returns the original cron expression.
func (ce *CronExpression) String() string {
	return ce.raw
}

// Next returns the first matching minute strictly after the given time,
// evaluated in the time's location. It returns the zero time for
// expressions that never match, such as "0 0 31 2 *".
func (ce *CronExpression) Next(after time.Time) time.Time {
	t := after.Truncate(time.Minute).Add(time.Minute)

	// Five years always contains a leap day.
	limit := t.AddDate(5, 0, 0)
	for t.Before(limit) {
		if !ce.months.has(int(t.Month())) {
			t = time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, t.Location())
			continue
		}
		if !ce.days.has(t.Day()) || !ce.weekdays.has(int(t.Weekday())) {
			t = time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, t.Location())
			continue
		}
		if !ce.hours.has(t.Hour()) {
			t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour()+1, 0, 0, 0, t.Location())
			continue
		}
		if !ce.minutes.has(t.Minute()) {
			t = t.Add(time.Minute)
			continue
		}
		return t
	}
	return time.Time{}
}

// ══════════════════════════════════════════════════════════════════════════════
// INTERVAL
// ══════════════════════════════════════════════════════════════════════════════

// IntervalSchedule runs a job at a fixed interval.
type IntervalSchedule struct {
	Interval time.Duration
}

// Every returns an IntervalSchedule for d.
func Every(d time.Duration) IntervalSchedule {
	return IntervalSchedule{Interval: d}
}

// Next implements Schedule.
func (s IntervalSchedule) Next(t time.Time) time.Time {
	return t.Add(s.Interval)
}

func (s IntervalSchedule) String() string {
	return "@every " + s.Interval.String()
}
