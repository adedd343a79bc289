package command

import (
	"context"
	"fmt"

	"github.com/gd-practice/gd-coach/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// DELETE COMMANDS
// Remove a whole session or a single entry. Earned XP is kept.
// ══════════════════════════════════════════════════════════════════════════════

// DeleteSessionCommand names the session to remove.
type DeleteSessionCommand struct {
	SessionID string
}

// DeleteEntryCommand names the entry to remove.
type DeleteEntryCommand struct {
	SessionID string
	EntryID   string
}

// DeleteHandler handles both delete commands.
type DeleteHandler struct {
	sessions SessionStore
	log      *logger.Logger
}

// NewDeleteHandler creates a new DeleteHandler.
func NewDeleteHandler(sessions SessionStore, log *logger.Logger) *DeleteHandler {
	if log == nil {
		log = logger.Discard()
	}
	return &DeleteHandler{sessions: sessions, log: log.With(logger.Component("delete"))}
}

// DeleteSession removes the session and all its entries.
func (h *DeleteHandler) DeleteSession(ctx context.Context, cmd DeleteSessionCommand) error {
	if err := h.sessions.Delete(ctx, cmd.SessionID); err != nil {
		return fmt.Errorf("delete_session: %w", err)
	}
	h.log.Info("session deleted", logger.SessionID(cmd.SessionID))
	return nil
}

// DeleteEntry removes one entry.
func (h *DeleteHandler) DeleteEntry(ctx context.Context, cmd DeleteEntryCommand) error {
	if err := h.sessions.DeleteEntry(ctx, cmd.SessionID, cmd.EntryID); err != nil {
		return fmt.Errorf("delete_entry: %w", err)
	}
	h.log.Info("entry deleted", logger.SessionID(cmd.SessionID), logger.EntryID(cmd.EntryID))
	return nil
}
