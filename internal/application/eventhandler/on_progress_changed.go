// Package eventhandler contains reactions to domain events: cache
// invalidation and milestone logging.
package eventhandler

import (
	"github.com/gd-practice/gd-coach/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ON PROGRESS CHANGED HANDLER
// Drops cached read models whenever progress or sessions change.
// ══════════════════════════════════════════════════════════════════════════════

// Invalidator is a read model that can be told it is stale.
type Invalidator interface {
	Invalidate()
}

// OnProgressChangedHandler invalidates read models.
type OnProgressChangedHandler struct {
	targets []Invalidator
}

// NewOnProgressChangedHandler creates a handler for the given read models.
func NewOnProgressChangedHandler(targets ...Invalidator) *OnProgressChangedHandler {
	return &OnProgressChangedHandler{targets: targets}
}

// Handle invalidates every target. It never fails.
func (h *OnProgressChangedHandler) Handle(shared.Event) error {
	for _, t := range h.targets {
		t.Invalidate()
	}
	return nil
}

// Register subscribes the handler to every event that changes what the
// read models show.
func (h *OnProgressChangedHandler) Register(sub shared.EventSubscriber) error {
	for _, et := range []shared.EventType{
		shared.EventResponseRecorded,
		shared.EventSessionRecorded,
		shared.EventProgressReset,
		shared.EventSessionsChanged,
	} {
		if err := sub.Subscribe(et, h.Handle); err != nil {
			return err
		}
	}
	return nil
}
