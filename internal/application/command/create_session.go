package command

import (
	"context"
	"fmt"

	"github.com/gd-practice/gd-coach/internal/domain/gamification"
	"github.com/gd-practice/gd-coach/internal/domain/practice"
	"github.com/gd-practice/gd-coach/pkg/logger"
	"github.com/gd-practice/gd-coach/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE SESSION COMMAND
// Opens a new practice session on a topic and awards the session XP.
// ══════════════════════════════════════════════════════════════════════════════

// CreateSessionCommand contains the user's input for a new session.
type CreateSessionCommand struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Category    practice.Category `json:"category"`

	// SelectedTopic is one of the category's suggestions.
	SelectedTopic string `json:"selectedTopic"`

	// CustomTopic wins over SelectedTopic when non-blank.
	CustomTopic string `json:"customTopic"`
}

// CreateSessionResult is the created session and what it earned.
type CreateSessionResult struct {
	Session practice.Session   `json:"session"`
	Award   gamification.Award `json:"award"`
}

// CreateSessionHandler handles CreateSessionCommand.
type CreateSessionHandler struct {
	sessions SessionStore
	progress ProgressRecorder
	clock    timeutil.Clock
	log      *logger.Logger
}

// NewCreateSessionHandler creates a new CreateSessionHandler.
func NewCreateSessionHandler(sessions SessionStore, progress ProgressRecorder, clock timeutil.Clock, log *logger.Logger) *CreateSessionHandler {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	if log == nil {
		log = logger.Discard()
	}
	return &CreateSessionHandler{
		sessions: sessions,
		progress: progress,
		clock:    clock,
		log:      log.With(logger.Component("create_session")),
	}
}

// Handle validates the input, stores the session and records the award.
// Nothing is stored when validation fails.
func (h *CreateSessionHandler) Handle(ctx context.Context, cmd CreateSessionCommand) (*CreateSessionResult, error) {
	session, err := practice.NewSession(practice.NewSessionParams{
		Title:         cmd.Title,
		Description:   cmd.Description,
		Category:      cmd.Category,
		SelectedTopic: cmd.SelectedTopic,
		CustomTopic:   cmd.CustomTopic,
	}, h.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("create_session: %w", err)
	}

	h.sessions.Add(ctx, session)
	award := h.progress.RecordSessionCreate(ctx)

	h.log.Info("session created",
		logger.SessionID(session.ID),
		logger.String("category", string(session.Category)),
		logger.XPAmount(award.XPGained),
	)
	return &CreateSessionResult{Session: session, Award: award}, nil
}
