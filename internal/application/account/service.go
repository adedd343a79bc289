// Package account manages the single local profile: sign up, sign in,
// sign out, profile edits and the onboarding flag.
package account

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/gd-practice/gd-coach/internal/domain/profile"
	"github.com/gd-practice/gd-coach/internal/domain/shared"
	"github.com/gd-practice/gd-coach/internal/infrastructure/persistence/kv"
	"github.com/gd-practice/gd-coach/pkg/logger"
	"github.com/gd-practice/gd-coach/pkg/timeutil"
)

const onboardingDone = "true"

// Loader reads persisted state once at startup.
type Loader interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// Persister queues durable writes.
type Persister interface {
	Submit(key string, value []byte) error
	Delete(key string) error
}

// Service holds the signed-in profile, if any.
type Service struct {
	mu        sync.RWMutex
	current   *profile.Profile
	onboarded bool

	persister Persister
	clock     timeutil.Clock
	hashCost  int
	log       *logger.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source for CreatedAt.
func WithClock(c timeutil.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithLogger sets the service logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithHashCost sets the bcrypt cost.
func WithHashCost(cost int) Option {
	return func(s *Service) { s.hashCost = cost }
}

// New builds the service and loads the stored profile and onboarding flag.
func New(ctx context.Context, loader Loader, persister Persister, opts ...Option) *Service {
	s := &Service{
		persister: persister,
		clock:     timeutil.SystemClock{},
		hashCost:  bcrypt.DefaultCost,
		log:       logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.Component("account"))

	if loader != nil {
		s.load(ctx, loader)
	}
	return s
}

func (s *Service) load(ctx context.Context, loader Loader) {
	blob, err := loader.Get(ctx, profile.StorageKey)
	switch {
	case err == nil:
		p, err := profile.Decode(blob)
		if err != nil {
			s.log.Warn("corrupt stored profile, signed out", logger.Err(err))
			break
		}
		s.current = &p
	case !kv.IsNotFound(err):
		s.log.Warn("failed to load profile", logger.Err(err))
	}

	flag, err := loader.Get(ctx, profile.OnboardingKey)
	switch {
	case err == nil:
		s.onboarded = string(flag) == onboardingDone
	case !kv.IsNotFound(err):
		s.log.Warn("failed to load onboarding flag", logger.Err(err))
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// AUTHENTICATION
// ══════════════════════════════════════════════════════════════════════════════

// SignUp replaces any stored profile with a new one.
func (s *Service) SignUp(ctx context.Context, name, email, password string) (profile.Profile, error) {
	if err := profile.ValidatePassword(password); err != nil {
		return profile.Profile{}, err
	}
	p, err := profile.New(name, email, s.clock.Now())
	if err != nil {
		return profile.Profile{}, err
	}
	if p.PasswordHash, err = s.hash(password); err != nil {
		return profile.Profile{}, err
	}

	s.mu.Lock()
	s.current = &p
	s.persistLocked(ctx, p)
	s.mu.Unlock()

	s.logFor(ctx).Info("profile signed up", logger.String("profile_id", p.ID))
	return p.Public(), nil
}

// SignIn authenticates against the stored profile when the address
// matches it. Any other address creates a fresh profile named after the
// address's local part.
func (s *Service) SignIn(ctx context.Context, email, password string) (profile.Profile, error) {
	if err := profile.ValidateEmail(email); err != nil {
		return profile.Profile{}, err
	}
	if err := profile.ValidatePassword(password); err != nil {
		return profile.Profile{}, err
	}

	s.mu.RLock()
	var existing *profile.Profile
	if s.current != nil && s.current.Email == profile.NormalizeEmail(email) {
		p := *s.current
		existing = &p
	}
	s.mu.RUnlock()

	if existing != nil {
		return s.signInExisting(ctx, *existing, password)
	}

	p, err := profile.FromEmail(email, s.clock.Now())
	if err != nil {
		return profile.Profile{}, err
	}
	if p.PasswordHash, err = s.hash(password); err != nil {
		return profile.Profile{}, err
	}

	s.mu.Lock()
	s.current = &p
	s.persistLocked(ctx, p)
	s.mu.Unlock()

	s.logFor(ctx).Info("profile signed in (new)", logger.String("profile_id", p.ID))
	return p.Public(), nil
}

// Knows reports whether email belongs to the stored profile, i.e. whether
// SignIn would check a password instead of creating a profile.
func (s *Service) Knows(email string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current != nil && s.current.Email == profile.NormalizeEmail(email)
}

func (s *Service) signInExisting(ctx context.Context, p profile.Profile, password string) (profile.Profile, error) {
	if p.PasswordHash == "" {
		// Profiles stored without a hash adopt the first password used.
		hash, err := s.hash(password)
		if err != nil {
			return profile.Profile{}, err
		}
		p.PasswordHash = hash
		s.mu.Lock()
		if s.current != nil && s.current.ID == p.ID {
			s.current = &p
			s.persistLocked(ctx, p)
		}
		s.mu.Unlock()
	} else if err := bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return profile.Profile{}, shared.ErrInvalidCredentials
		}
		return profile.Profile{}, fmt.Errorf("compare password: %w", err)
	}

	s.logFor(ctx).Info("profile signed in (existing)", logger.String("profile_id", p.ID))
	return p.Public(), nil
}

// SignOut forgets the profile. Signing out twice is harmless.
func (s *Service) SignOut(ctx context.Context) {
	s.mu.Lock()
	s.current = nil
	if err := s.persister.Delete(profile.StorageKey); err != nil {
		s.logFor(ctx).Warn("failed to queue profile delete", logger.Err(err))
	}
	s.mu.Unlock()
	s.logFor(ctx).Info("profile signed out")
}

func (s *Service) hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE
// ══════════════════════════════════════════════════════════════════════════════

// Current returns the signed-in profile without its hash.
func (s *Service) Current() (profile.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return profile.Profile{}, shared.ErrProfileNotFound
	}
	return s.current.Public(), nil
}

// IsAuthenticated reports whether a profile is signed in.
func (s *Service) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current != nil
}

// UpdateProfile applies name and avatar edits to the signed-in profile.
func (s *Service) UpdateProfile(ctx context.Context, u profile.Update) (profile.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return profile.Profile{}, shared.ErrProfileNotFound
	}
	updated, err := s.current.Apply(u)
	if err != nil {
		return profile.Profile{}, err
	}
	s.current = &updated
	s.persistLocked(ctx, updated)
	return updated.Public(), nil
}

// CompleteOnboarding records that the intro was seen.
func (s *Service) CompleteOnboarding(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onboarded = true
	if err := s.persister.Submit(profile.OnboardingKey, []byte(onboardingDone)); err != nil {
		s.logFor(ctx).Warn("failed to queue onboarding flag", logger.Err(err))
	}
}

// HasSeenOnboarding reports the onboarding flag.
func (s *Service) HasSeenOnboarding() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.onboarded
}

func (s *Service) persistLocked(ctx context.Context, p profile.Profile) {
	blob, err := p.Encode()
	if err != nil {
		s.logFor(ctx).Error("failed to encode profile", logger.Err(err))
		return
	}
	if err := s.persister.Submit(profile.StorageKey, blob); err != nil {
		s.logFor(ctx).Warn("failed to queue profile write", logger.Err(err))
	}
}

func (s *Service) logFor(ctx context.Context) *logger.Logger {
	if l, ok := logger.FromContextOK(ctx); ok {
		return l.With(logger.Component("account"))
	}
	return s.log
}
