// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"

	"github.com/gd-practice/gd-coach/internal/domain/gamification"
	"github.com/gd-practice/gd-coach/internal/domain/practice"
)

// SessionStore is the slice of the session store the commands mutate.
type SessionStore interface {
	Add(ctx context.Context, session practice.Session)
	Get(id string) (practice.Session, error)
	Delete(ctx context.Context, id string) error
	AddEntry(ctx context.Context, sessionID string, entry practice.Entry) error
	UpdateEntryAnalysis(ctx context.Context, sessionID, entryID, analysis string) error
	DeleteEntry(ctx context.Context, sessionID, entryID string) error
}

// ProgressRecorder awards XP for practice activity.
type ProgressRecorder interface {
	RecordResponse(ctx context.Context, isVoice bool) gamification.ResponseAward
	RecordSessionCreate(ctx context.Context) gamification.Award
}
