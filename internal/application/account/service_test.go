package account

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/gd-practice/gd-coach/internal/domain/profile"
	"github.com/gd-practice/gd-coach/internal/domain/shared"
	"github.com/gd-practice/gd-coach/internal/infrastructure/persistence/memory"
	"github.com/gd-practice/gd-coach/internal/infrastructure/persistence/writebehind"
	"github.com/gd-practice/gd-coach/pkg/timeutil"
)

var now = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

type keyLog struct {
	mu      sync.Mutex
	values  map[string][]byte
	deletes []string
}

func (k *keyLog) Submit(key string, value []byte) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.values == nil {
		k.values = map[string][]byte{}
	}
	k.values[key] = value
	return nil
}

func (k *keyLog) Delete(key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.values, key)
	k.deletes = append(k.deletes, key)
	return nil
}

func (k *keyLog) profile(t *testing.T) profile.Profile {
	t.Helper()
	k.mu.Lock()
	defer k.mu.Unlock()
	blob, ok := k.values[profile.StorageKey]
	require.True(t, ok)
	p, err := profile.Decode(blob)
	require.NoError(t, err)
	return p
}

func newService(t *testing.T) (*Service, *keyLog) {
	t.Helper()
	k := &keyLog{}
	s := New(context.Background(), memory.New(), k,
		WithClock(timeutil.FixedClock{T: now}),
		WithHashCost(bcrypt.MinCost),
	)
	return s, k
}

func TestService_SignUp(t *testing.T) {
	s, k := newService(t)
	ctx := context.Background()

	p, err := s.SignUp(ctx, "  Asha ", " Asha@Example.COM ", "secret1")
	require.NoError(t, err)

	assert.Equal(t, "Asha", p.Name)
	assert.Equal(t, "asha@example.com", p.Email)
	assert.True(t, now.Equal(p.CreatedAt))
	assert.Contains(t, profile.SignUpAvatars, p.AvatarEmoji)
	assert.Empty(t, p.PasswordHash)
	assert.True(t, s.IsAuthenticated())

	stored := k.profile(t)
	assert.Equal(t, p.ID, stored.ID)
	require.NotEmpty(t, stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secret1")))
}

func TestService_SignUpValidation(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	_, err := s.SignUp(ctx, "Asha", "asha@example.com", "123")
	assert.ErrorIs(t, err, shared.ErrWeakPassword)
	_, err = s.SignUp(ctx, "", "asha@example.com", "secret1")
	assert.ErrorIs(t, err, shared.ErrEmptyName)
	_, err = s.SignUp(ctx, "Asha", "not-an-email", "secret1")
	assert.ErrorIs(t, err, shared.ErrInvalidEmail)

	assert.False(t, s.IsAuthenticated())
}

func TestService_SignInExistingChecksPassword(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	created, err := s.SignUp(ctx, "Asha", "asha@example.com", "secret1")
	require.NoError(t, err)

	p, err := s.SignIn(ctx, "ASHA@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, p.ID)

	_, err = s.SignIn(ctx, "asha@example.com", "wrong-one")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
	assert.True(t, shared.IsUnauthorized(err))

	cur, err := s.Current()
	require.NoError(t, err)
	assert.Equal(t, created.ID, cur.ID)
}

func TestService_Knows(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	assert.False(t, s.Knows("asha@example.com"))

	_, err := s.SignUp(ctx, "Asha", "asha@example.com", "secret1")
	require.NoError(t, err)
	assert.True(t, s.Knows(" Asha@Example.com "))
	assert.False(t, s.Knows("ravi@example.org"))

	s.SignOut(ctx)
	assert.False(t, s.Knows("asha@example.com"))
}

func TestService_SignInNewAddressCreatesProfile(t *testing.T) {
	s, k := newService(t)
	ctx := context.Background()
	_, err := s.SignUp(ctx, "Asha", "asha@example.com", "secret1")
	require.NoError(t, err)

	p, err := s.SignIn(ctx, "ravi.k@example.org", "another")
	require.NoError(t, err)

	assert.Equal(t, "ravi.k", p.Name)
	assert.Equal(t, "ravi.k@example.org", p.Email)
	assert.Equal(t, profile.DefaultAvatar, p.AvatarEmoji)
	assert.Equal(t, p.ID, k.profile(t).ID)
}

func TestService_SignInValidation(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	_, err := s.SignIn(ctx, "nope", "secret1")
	assert.ErrorIs(t, err, shared.ErrInvalidEmail)
	_, err = s.SignIn(ctx, "a@b.co", "12345")
	assert.ErrorIs(t, err, shared.ErrWeakPassword)
}

func TestService_SignInAdoptsPasswordForUnhashedProfile(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	legacy := profile.Profile{ID: "p1", Name: "Asha", Email: "asha@example.com", CreatedAt: now, AvatarEmoji: "🚀"}
	blob, err := legacy.Encode()
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, profile.StorageKey, blob))

	k := &keyLog{}
	s := New(ctx, store, k, WithHashCost(bcrypt.MinCost))

	p, err := s.SignIn(ctx, "asha@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)
	assert.NotEmpty(t, k.profile(t).PasswordHash)

	_, err = s.SignIn(ctx, "asha@example.com", "other-pass")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestService_SignOut(t *testing.T) {
	s, k := newService(t)
	ctx := context.Background()
	_, err := s.SignUp(ctx, "Asha", "asha@example.com", "secret1")
	require.NoError(t, err)

	s.SignOut(ctx)
	s.SignOut(ctx)

	assert.False(t, s.IsAuthenticated())
	_, err = s.Current()
	assert.ErrorIs(t, err, shared.ErrProfileNotFound)
	assert.Equal(t, []string{profile.StorageKey, profile.StorageKey}, k.deletes)
}

func TestService_UpdateProfile(t *testing.T) {
	s, k := newService(t)
	ctx := context.Background()

	name := "New Name"
	_, err := s.UpdateProfile(ctx, profile.Update{Name: &name})
	assert.ErrorIs(t, err, shared.ErrProfileNotFound)

	_, err = s.SignUp(ctx, "Asha", "asha@example.com", "secret1")
	require.NoError(t, err)

	avatar := "🦊"
	p, err := s.UpdateProfile(ctx, profile.Update{Name: &name, AvatarEmoji: &avatar})
	require.NoError(t, err)
	assert.Equal(t, "New Name", p.Name)
	assert.Equal(t, "🦊", p.AvatarEmoji)
	assert.Equal(t, "New Name", k.profile(t).Name)

	bad := "🍕"
	_, err = s.UpdateProfile(ctx, profile.Update{AvatarEmoji: &bad})
	assert.True(t, shared.IsValidation(err))
	cur, _ := s.Current()
	assert.Equal(t, "🦊", cur.AvatarEmoji)
}

func TestService_OnboardingSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	w := writebehind.New(store)

	s := New(ctx, store, w, WithHashCost(bcrypt.MinCost))
	assert.False(t, s.HasSeenOnboarding())
	s.CompleteOnboarding(ctx)
	_, err := s.SignUp(ctx, "Asha", "asha@example.com", "secret1")
	require.NoError(t, err)
	require.NoError(t, w.Close(ctx))

	reloaded := New(ctx, store, &keyLog{})
	assert.True(t, reloaded.HasSeenOnboarding())
	cur, err := reloaded.Current()
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", cur.Email)
}

func TestService_CorruptProfileStartsSignedOut(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.Set(ctx, profile.StorageKey, []byte("{")))
	require.NoError(t, store.Set(ctx, profile.OnboardingKey, []byte("yes")))

	s := New(ctx, store, &keyLog{})

	assert.False(t, s.IsAuthenticated())
	assert.False(t, s.HasSeenOnboarding())
}
