package query

import (
	"math/rand/v2"

	"github.com/gd-practice/gd-coach/internal/domain/practice"
	"github.com/gd-practice/gd-coach/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// TOPIC QUERIES
// ══════════════════════════════════════════════════════════════════════════════

// RandomTopicQuery asks for a suggestion different from Current.
type RandomTopicQuery struct {
	Category practice.Category
	Current  string
}

// TopicsHandler serves category metadata and random topics.
type TopicsHandler struct {
	rng *rand.Rand
}

// NewTopicsHandler creates a new TopicsHandler. A nil rng uses the global
// source.
func NewTopicsHandler(rng *rand.Rand) *TopicsHandler {
	return &TopicsHandler{rng: rng}
}

// Categories lists every category with its topics.
func (h *TopicsHandler) Categories() []practice.CategoryInfo {
	return practice.Categories()
}

// RandomTopic picks a topic from the category.
func (h *TopicsHandler) RandomTopic(q RandomTopicQuery) (string, error) {
	topic, ok := practice.RandomTopic(q.Category, q.Current, h.rng)
	if !ok {
		return "", shared.ErrUnknownCategory
	}
	return topic, nil
}
