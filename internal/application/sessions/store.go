// Package sessions keeps the ordered list of practice sessions in memory
// and queues a full snapshot after every change.
package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/gd-practice/gd-coach/internal/domain/practice"
	"github.com/gd-practice/gd-coach/internal/domain/shared"
	"github.com/gd-practice/gd-coach/internal/infrastructure/persistence/kv"
	"github.com/gd-practice/gd-coach/pkg/logger"
	"github.com/gd-practice/gd-coach/pkg/timeutil"
)

// Change kinds carried by shared.SessionsChangedEvent.
const (
	ChangeAdded        = "added"
	ChangeDeleted      = "deleted"
	ChangeEntryAdded   = "entry_added"
	ChangeEntryUpdated = "entry_updated"
	ChangeEntryDeleted = "entry_deleted"
)

// Loader reads the persisted list once at startup.
type Loader interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// Persister accepts snapshots without blocking on I/O.
type Persister interface {
	Submit(key string, value []byte) error
}

// Store holds sessions newest first, entries newest first.
type Store struct {
	mu       sync.RWMutex
	sessions []practice.Session

	persister Persister
	events    shared.EventPublisher
	clock     timeutil.Clock
	log       *logger.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithEventPublisher sets where change events go.
func WithEventPublisher(p shared.EventPublisher) Option {
	return func(s *Store) { s.events = p }
}

// WithClock overrides the event time source.
func WithClock(c timeutil.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithLogger sets the store logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Store) { s.log = l }
}

// New builds the store and loads the persisted list. Missing or
// unreadable data starts an empty list.
func New(ctx context.Context, loader Loader, persister Persister, opts ...Option) *Store {
	s := &Store{
		sessions:  []practice.Session{},
		persister: persister,
		events:    shared.NopPublisher{},
		clock:     timeutil.SystemClock{},
		log:       logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.Component("sessions"))

	if loader != nil {
		s.load(ctx, loader)
	}
	return s
}

func (s *Store) load(ctx context.Context, loader Loader) {
	blob, err := loader.Get(ctx, practice.StorageKey)
	if err != nil {
		if !kv.IsNotFound(err) {
			s.log.Warn("failed to load sessions", logger.Err(err))
		}
		return
	}
	list, err := practice.DecodeList(blob)
	if err != nil {
		s.log.Warn("corrupt session list, starting empty", logger.Err(err))
		return
	}
	s.sessions = list
	s.log.Info("sessions loaded", logger.Int("count", len(list)))
}

// ══════════════════════════════════════════════════════════════════════════════
// MUTATIONS
// ══════════════════════════════════════════════════════════════════════════════

// Add puts session at the front of the list.
func (s *Store) Add(ctx context.Context, session practice.Session) {
	session = session.Clone()
	if session.Entries == nil {
		session.Entries = []practice.Entry{}
	}

	s.mu.Lock()
	s.sessions = append([]practice.Session{session}, s.sessions...)
	count := len(s.sessions)
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.publish(ctx, session.ID, ChangeAdded, "", count)
}

// Delete removes a session and all of its entries.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return shared.ErrSessionNotFound
	}
	s.sessions = append(s.sessions[:i:i], s.sessions[i+1:]...)
	count := len(s.sessions)
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.publish(ctx, id, ChangeDeleted, "", count)
	return nil
}

// AddEntry puts entry at the front of the session's entries and marks the
// session as practiced at the entry's creation time.
func (s *Store) AddEntry(ctx context.Context, sessionID string, entry practice.Entry) error {
	if entry.Analysis != nil {
		a := *entry.Analysis
		entry.Analysis = &a
	}

	s.mu.Lock()
	i := s.indexLocked(sessionID)
	if i < 0 {
		s.mu.Unlock()
		return shared.ErrSessionNotFound
	}
	sess := &s.sessions[i]
	sess.Entries = append([]practice.Entry{entry}, sess.Entries...)
	practiced := entry.CreatedAt
	sess.LastPracticedAt = &practiced
	count := len(sess.Entries)
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.publish(ctx, sessionID, ChangeEntryAdded, entry.ID, count)
	return nil
}

// UpdateEntryAnalysis attaches feedback text to an entry.
func (s *Store) UpdateEntryAnalysis(ctx context.Context, sessionID, entryID, analysis string) error {
	s.mu.Lock()
	i := s.indexLocked(sessionID)
	if i < 0 {
		s.mu.Unlock()
		return shared.ErrSessionNotFound
	}
	sess := &s.sessions[i]
	j := sess.FindEntry(entryID)
	if j < 0 {
		s.mu.Unlock()
		return shared.ErrEntryNotFound
	}
	a := analysis
	sess.Entries[j].Analysis = &a
	count := len(sess.Entries)
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.publish(ctx, sessionID, ChangeEntryUpdated, entryID, count)
	return nil
}

// DeleteEntry removes one entry from a session.
func (s *Store) DeleteEntry(ctx context.Context, sessionID, entryID string) error {
	s.mu.Lock()
	i := s.indexLocked(sessionID)
	if i < 0 {
		s.mu.Unlock()
		return shared.ErrSessionNotFound
	}
	sess := &s.sessions[i]
	j := sess.FindEntry(entryID)
	if j < 0 {
		s.mu.Unlock()
		return shared.ErrEntryNotFound
	}
	sess.Entries = append(sess.Entries[:j:j], sess.Entries[j+1:]...)
	count := len(sess.Entries)
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.publish(ctx, sessionID, ChangeEntryDeleted, entryID, count)
	return nil
}

func (s *Store) indexLocked(id string) int {
	for i := range s.sessions {
		if s.sessions[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) persistLocked(ctx context.Context) {
	blob, err := practice.EncodeList(s.sessions)
	if err != nil {
		logFor(ctx, s.log).Error("failed to encode sessions", logger.Err(err))
		return
	}
	if err := s.persister.Submit(practice.StorageKey, blob); err != nil {
		logFor(ctx, s.log).Warn("failed to queue sessions write", logger.Err(err))
	}
}

func (s *Store) publish(ctx context.Context, sessionID, change, entryID string, count int) {
	ev := shared.NewSessionsChangedEvent(s.clock.Now(), sessionID, change, entryID, count)
	if err := s.events.Publish(ev); err != nil {
		logFor(ctx, s.log).Warn("failed to publish sessions change",
			logger.SessionID(sessionID),
			logger.Err(err),
		)
	}
}

func logFor(ctx context.Context, fallback *logger.Logger) *logger.Logger {
	if l, ok := logger.FromContextOK(ctx); ok {
		return l
	}
	return fallback
}

// ══════════════════════════════════════════════════════════════════════════════
// READS
// ══════════════════════════════════════════════════════════════════════════════

// Get returns a copy of one session.
func (s *Store) Get(id string) (practice.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexLocked(id)
	if i < 0 {
		return practice.Session{}, shared.ErrSessionNotFound
	}
	return s.sessions[i].Clone(), nil
}

// List returns copies of all sessions, newest first.
func (s *Store) List() []practice.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]practice.Session, len(s.sessions))
	for i := range s.sessions {
		out[i] = s.sessions[i].Clone()
	}
	return out
}

// Stats aggregates the list for the dashboard.
type Stats struct {
	Sessions      int        `json:"sessions"`
	Entries       int        `json:"entries"`
	Words         int        `json:"words"`
	LastPracticed *time.Time `json:"lastPracticed,omitempty"`
}

// Stats counts sessions, entries and words.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{Sessions: len(s.sessions)}
	for i := range s.sessions {
		sess := &s.sessions[i]
		st.Entries += len(sess.Entries)
		st.Words += sess.TotalWords()
		if lp := sess.LastPracticedAt; lp != nil && (st.LastPracticed == nil || lp.After(*st.LastPracticed)) {
			t := *lp
			st.LastPracticed = &t
		}
	}
	return st
}
