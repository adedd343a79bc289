// Package profile is the single local user account: who is signed in,
// their display name and avatar, and whether onboarding was completed.
package profile

import (
	"encoding/json"
	"math/rand/v2"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gd-practice/gd-coach/internal/domain/shared"
)

// Storage keys.
const (
	StorageKey    = "gd_auth_user"
	OnboardingKey = "gd_onboarding_done"
)

// MinPasswordLength is enforced on sign up and sign in.
const MinPasswordLength = 6

// DefaultAvatar is given to profiles created by signing in.
const DefaultAvatar = "😊"

// SignUpAvatars are drawn at random for new sign ups.
var SignUpAvatars = []string{"😊", "🚀", "🎯", "💡", "🌟", "🎓"}

// Avatars is the full set a user may pick from.
var Avatars = []string{"😊", "🚀", "🎯", "💡", "🌟", "🎓", "🦊", "🐱", "🦁", "🐸", "🌺", "⚡"}

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// Profile is the signed-in user.
type Profile struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	CreatedAt    time.Time `json:"createdAt"`
	AvatarEmoji  string    `json:"avatarEmoji"`
	PasswordHash string    `json:"passwordHash,omitempty"`
}

// NormalizeEmail lower-cases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks the address shape after normalization.
func ValidateEmail(email string) error {
	if !emailPattern.MatchString(NormalizeEmail(email)) {
		return shared.ErrInvalidEmail
	}
	return nil
}

// ValidatePassword enforces MinPasswordLength.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return shared.ErrWeakPassword
	}
	return nil
}

// IsAvatar reports whether emoji is one of Avatars.
func IsAvatar(emoji string) bool {
	return slices.Contains(Avatars, emoji)
}

// New builds a profile for a sign up. The password hash is set by the
// caller.
func New(name, email string, now time.Time) (Profile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Profile{}, shared.ErrEmptyName
	}
	if err := ValidateEmail(email); err != nil {
		return Profile{}, err
	}
	return Profile{
		ID:          uuid.NewString(),
		Name:        name,
		Email:       NormalizeEmail(email),
		CreatedAt:   now,
		AvatarEmoji: SignUpAvatars[rand.IntN(len(SignUpAvatars))],
	}, nil
}

// FromEmail builds the profile created when someone signs in with an
// address that has no local profile. The name is the address's local part.
func FromEmail(email string, now time.Time) (Profile, error) {
	if err := ValidateEmail(email); err != nil {
		return Profile{}, err
	}
	normalized := NormalizeEmail(email)
	name, _, _ := strings.Cut(strings.TrimSpace(email), "@")
	return Profile{
		ID:          uuid.NewString(),
		Name:        name,
		Email:       normalized,
		CreatedAt:   now,
		AvatarEmoji: DefaultAvatar,
	}, nil
}

// Update carries optional profile edits.
type Update struct {
	Name        *string `json:"name,omitempty"`
	AvatarEmoji *string `json:"avatarEmoji,omitempty"`
}

// Apply validates and merges u into p.
func (p Profile) Apply(u Update) (Profile, error) {
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if name == "" {
			return p, shared.ErrEmptyName
		}
		p.Name = name
	}
	if u.AvatarEmoji != nil {
		if !IsAvatar(*u.AvatarEmoji) {
			return p, shared.NewDomainError("profile", "Update", shared.ErrInvalidInput, "unknown avatar")
		}
		p.AvatarEmoji = *u.AvatarEmoji
	}
	return p, nil
}

// Public strips the password hash.
func (p Profile) Public() Profile {
	p.PasswordHash = ""
	return p
}

// Encode serializes the profile for storage.
func (p Profile) Encode() ([]byte, error) {
	return json.Marshal(p)
}

// Decode parses a stored profile.
func Decode(data []byte) (Profile, error) {
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return Profile{}, shared.WrapError("profile", "Decode", shared.ErrInvalidFormat, "invalid stored profile", err)
	}
	return p, nil
}
