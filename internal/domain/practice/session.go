// Package practice describes GD practice sessions: a titled topic in a
// category, holding the user's responses newest first.
package practice

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gd-practice/gd-coach/internal/domain/shared"
)

// StorageKey is the blob-store key the session list is persisted under.
const StorageKey = "gd_practice_sessions"

// AnalysisUnavailable is stored when feedback could not be generated.
const AnalysisUnavailable = "Analysis unavailable. Please try again later."

// ══════════════════════════════════════════════════════════════════════════════
// ENTITIES
// ══════════════════════════════════════════════════════════════════════════════

// Entry is one submitted response.
type Entry struct {
	ID        string           `json:"id"`
	Text      string           `json:"text"`
	InputMode shared.InputMode `json:"inputMode"`
	Analysis  *string          `json:"analysis"`
	WordCount int              `json:"wordCount"`
	CreatedAt time.Time        `json:"createdAt"`
}

// HasAnalysis reports whether feedback has been attached.
func (e Entry) HasAnalysis() bool {
	return e.Analysis != nil
}

// Session is a practice topic with its responses, newest first.
type Session struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Category        Category   `json:"category"`
	Topic           string     `json:"topic"`
	Entries         []Entry    `json:"entries"`
	CreatedAt       time.Time  `json:"createdAt"`
	LastPracticedAt *time.Time `json:"lastPracticedAt"`
}

// FindEntry returns the index of the entry with id, or -1.
func (s *Session) FindEntry(id string) int {
	for i := range s.Entries {
		if s.Entries[i].ID == id {
			return i
		}
	}
	return -1
}

// TotalWords sums word counts over all entries.
func (s *Session) TotalWords() int {
	total := 0
	for _, e := range s.Entries {
		total += e.WordCount
	}
	return total
}

// Clone returns a deep copy.
func (s Session) Clone() Session {
	out := s
	out.Entries = make([]Entry, len(s.Entries))
	for i, e := range s.Entries {
		if e.Analysis != nil {
			a := *e.Analysis
			e.Analysis = &a
		}
		out.Entries[i] = e
	}
	if s.LastPracticedAt != nil {
		t := *s.LastPracticedAt
		out.LastPracticedAt = &t
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// FACTORIES
// ══════════════════════════════════════════════════════════════════════════════

// NewSessionParams carries user input for a new session.
type NewSessionParams struct {
	Title         string
	Description   string
	Category      Category
	SelectedTopic string
	CustomTopic   string
}

// NewSession validates the input and builds an empty session. A non-blank
// custom topic wins over the selected one.
func NewSession(p NewSessionParams, now time.Time) (Session, error) {
	title := strings.TrimSpace(p.Title)
	if title == "" {
		return Session{}, shared.ErrEmptyTitle
	}
	if !p.Category.IsValid() {
		return Session{}, shared.ErrUnknownCategory
	}

	topic := strings.TrimSpace(p.CustomTopic)
	if topic == "" {
		topic = strings.TrimSpace(p.SelectedTopic)
	}

	return Session{
		ID:          uuid.NewString(),
		Title:       title,
		Description: strings.TrimSpace(p.Description),
		Category:    p.Category,
		Topic:       topic,
		Entries:     []Entry{},
		CreatedAt:   now,
	}, nil
}

// NewEntry trims text and builds an entry without analysis.
func NewEntry(text string, mode shared.InputMode, now time.Time) (Entry, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Entry{}, shared.ErrEmptyResponse
	}
	if !mode.IsValid() {
		return Entry{}, shared.ErrInvalidInputMode
	}
	return Entry{
		ID:        uuid.NewString(),
		Text:      trimmed,
		InputMode: mode,
		WordCount: shared.WordCount(trimmed),
		CreatedAt: now,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// CODEC
// ══════════════════════════════════════════════════════════════════════════════

// EncodeList serializes sessions in their persisted form.
func EncodeList(sessions []Session) ([]byte, error) {
	if sessions == nil {
		sessions = []Session{}
	}
	return json.Marshal(sessions)
}

// DecodeList parses a persisted session list. Sessions without an id are
// dropped; nil entry slices become empty.
func DecodeList(data []byte) ([]Session, error) {
	var raw []Session
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, shared.WrapError("practice", "Decode", shared.ErrInvalidFormat, "invalid session list", err)
	}
	out := make([]Session, 0, len(raw))
	for _, s := range raw {
		if s.ID == "" {
			continue
		}
		if s.Entries == nil {
			s.Entries = []Entry{}
		}
		out = append(out, s)
	}
	return out, nil
}
