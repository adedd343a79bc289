// Package gamification holds the practice progress record and the pure
// rules that mutate it: XP awards, the daily streak, badge unlocking and
// the weekly activity window. It performs no I/O; the progress engine in
// the application layer owns locking, persistence and events.
package gamification

import (
	"encoding/json"
	"slices"

	"github.com/gd-practice/gd-coach/internal/domain/shared"
)

// StorageKey is the blob-store key the record is persisted under.
const StorageKey = "gd_gamification"

// XP awards.
const (
	XPTextResponse  = 15
	XPVoiceResponse = 25
	XPStreakBonus   = 5
	XPSessionCreate = 10
	XPBadgeBonus    = 50
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS RECORD
// ══════════════════════════════════════════════════════════════════════════════

// Record is the whole gamification state of one user. Its JSON form is
// the persisted wire format.
type Record struct {
	XP               int            `json:"xp"`
	CurrentStreak    int            `json:"currentStreak"`
	LongestStreak    int            `json:"longestStreak"`
	LastPracticeDate *string        `json:"lastPracticeDate"`
	TotalResponses   int            `json:"totalResponses"`
	VoiceResponses   int            `json:"voiceResponses"`
	TotalSessions    int            `json:"totalSessions"`
	EarnedBadgeIDs   []string       `json:"earnedBadgeIds"`
	WeeklyActivity   map[string]int `json:"weeklyActivity"`
}

// NewRecord returns the zeroed default record.
func NewRecord() Record {
	return Record{
		EarnedBadgeIDs: []string{},
		WeeklyActivity: map[string]int{},
	}
}

// Clone returns a deep copy safe to hand outside the engine lock.
func (r Record) Clone() Record {
	out := r
	if r.LastPracticeDate != nil {
		d := *r.LastPracticeDate
		out.LastPracticeDate = &d
	}
	out.EarnedBadgeIDs = slices.Clone(r.EarnedBadgeIDs)
	if out.EarnedBadgeIDs == nil {
		out.EarnedBadgeIDs = []string{}
	}
	out.WeeklyActivity = make(map[string]int, len(r.WeeklyActivity))
	for k, v := range r.WeeklyActivity {
		out.WeeklyActivity[k] = v
	}
	return out
}

// HasBadge reports whether id has been earned.
func (r Record) HasBadge(id string) bool {
	return slices.Contains(r.EarnedBadgeIDs, id)
}

// Level returns the current position on the level curve.
func (r Record) Level() shared.LevelInfo {
	return shared.XP(r.XP).LevelInfo()
}

// normalize repairs a decoded record so the counters are non-negative,
// voice responses never exceed total responses, the longest streak is at
// least the current one and earned badges form a set.
func (r *Record) normalize() {
	clamp := func(v *int) {
		if *v < 0 {
			*v = 0
		}
	}
	clamp(&r.XP)
	clamp(&r.CurrentStreak)
	clamp(&r.LongestStreak)
	clamp(&r.TotalResponses)
	clamp(&r.VoiceResponses)
	clamp(&r.TotalSessions)

	if r.VoiceResponses > r.TotalResponses {
		r.TotalResponses = r.VoiceResponses
	}
	if r.LongestStreak < r.CurrentStreak {
		r.LongestStreak = r.CurrentStreak
	}

	seen := make(map[string]struct{}, len(r.EarnedBadgeIDs))
	ids := make([]string, 0, len(r.EarnedBadgeIDs))
	for _, id := range r.EarnedBadgeIDs {
		if _, dup := seen[id]; dup || id == "" {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	r.EarnedBadgeIDs = ids

	if r.WeeklyActivity == nil {
		r.WeeklyActivity = map[string]int{}
	}
}

// Encode serializes the record in its persisted form.
func (r Record) Encode() ([]byte, error) {
	if r.EarnedBadgeIDs == nil {
		r.EarnedBadgeIDs = []string{}
	}
	if r.WeeklyActivity == nil {
		r.WeeklyActivity = map[string]int{}
	}
	return json.Marshal(r)
}

// DecodeRecord parses a persisted record. Missing fields take their zero
// values; a blob that is not a JSON object is an error.
func DecodeRecord(data []byte) (Record, error) {
	r := NewRecord()
	if err := json.Unmarshal(data, &r); err != nil {
		return NewRecord(), shared.WrapError("gamification", "Decode", shared.ErrInvalidProgress, "invalid progress record", err)
	}
	r.normalize()
	return r, nil
}
