// Package query contains read operations (CQRS - Queries).
package query

import (
	"sync"
	"time"

	"github.com/gd-practice/gd-coach/internal/application/progress"
	"github.com/gd-practice/gd-coach/internal/application/sessions"
	"github.com/gd-practice/gd-coach/internal/domain/practice"
	"github.com/gd-practice/gd-coach/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET DASHBOARD QUERY
// Everything the home screen shows: level and title, streak, the weekly
// chart, earned badges, session totals and the quote of the day.
// ══════════════════════════════════════════════════════════════════════════════

// ProgressReader reads the gamification views.
type ProgressReader interface {
	Summary() progress.Summary
}

// SessionStatsReader reads session totals.
type SessionStatsReader interface {
	Stats() sessions.Stats
}

// Dashboard is the home screen view.
type Dashboard struct {
	progress.Summary
	Sessions sessions.Stats `json:"sessions"`
	Quote    practice.Quote `json:"quote"`
	Day      string         `json:"day"`
}

// GetDashboardHandler builds the dashboard and keeps the last result
// until Invalidate is called or the calendar day changes.
type GetDashboardHandler struct {
	progress ProgressReader
	sessions SessionStatsReader
	clock    timeutil.Clock
	loc      *time.Location

	mu     sync.Mutex
	cached *Dashboard
}

// NewGetDashboardHandler creates a new GetDashboardHandler.
func NewGetDashboardHandler(p ProgressReader, s SessionStatsReader, clock timeutil.Clock, loc *time.Location) *GetDashboardHandler {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	if loc == nil {
		loc = time.Local
	}
	return &GetDashboardHandler{progress: p, sessions: s, clock: clock, loc: loc}
}

// Handle returns the dashboard.
func (h *GetDashboardHandler) Handle() Dashboard {
	now := h.clock.Now()
	day := timeutil.DateKey(now, h.loc)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cached != nil && h.cached.Day == day {
		return *h.cached
	}

	d := Dashboard{
		Summary:  h.progress.Summary(),
		Sessions: h.sessions.Stats(),
		Quote:    practice.DailyQuote(now, h.loc),
		Day:      day,
	}
	h.cached = &d
	return d
}

// Invalidate drops the cached dashboard.
func (h *GetDashboardHandler) Invalidate() {
	h.mu.Lock()
	h.cached = nil
	h.mu.Unlock()
}
