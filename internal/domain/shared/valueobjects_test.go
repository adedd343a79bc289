package shared

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestXP_LevelInfo(t *testing.T) {
	tests := []struct {
		name string
		xp   XP
		want LevelInfo
	}{
		{"zero", 0, LevelInfo{Level: 1, CurrentXP: 0, XPForNext: 100, Progress: 0}},
		{"just below first boundary", 99, LevelInfo{Level: 1, CurrentXP: 99, XPForNext: 100, Progress: 0.99}},
		{"exactly first boundary", 100, LevelInfo{Level: 2, CurrentXP: 0, XPForNext: 130, Progress: 0}},
		{"inside level 2", 150, LevelInfo{Level: 2, CurrentXP: 50, XPForNext: 130, Progress: 50.0 / 130.0}},
		{"level 3", 230, LevelInfo{Level: 3, CurrentXP: 0, XPForNext: 169, Progress: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.xp.LevelInfo()
			assert.Equal(t, tt.want.Level, got.Level)
			assert.Equal(t, tt.want.CurrentXP, got.CurrentXP)
			assert.Equal(t, tt.want.XPForNext, got.XPForNext)
			assert.InDelta(t, tt.want.Progress, got.Progress, 1e-9)
		})
	}
}

func TestXP_LevelInfoProgressBounds(t *testing.T) {
	for xp := 0; xp < 20000; xp += 37 {
		info := XP(xp).LevelInfo()
		require.GreaterOrEqual(t, info.Progress, 0.0)
		require.Less(t, info.Progress, 1.0)
		require.Less(t, info.CurrentXP, info.XPForNext)
	}
}

func TestLevel_Title(t *testing.T) {
	assert.Equal(t, "Beginner", Level(1).Title())
	assert.Equal(t, "Beginner", Level(2).Title())
	assert.Equal(t, "Learner", Level(3).Title())
	assert.Equal(t, "Speaker", Level(8).Title())
	assert.Equal(t, "Debater", Level(12).Title())
	assert.Equal(t, "Orator", Level(16).Title())
	assert.Equal(t, "Rhetorician", Level(20).Title())
	assert.Equal(t, "GD Legend", Level(21).Title())
}

func TestParseInputMode(t *testing.T) {
	m, err := ParseInputMode(" Voice ")
	require.NoError(t, err)
	assert.True(t, m.IsVoice())

	m, err = ParseInputMode("")
	require.NoError(t, err)
	assert.Equal(t, InputText, m)

	_, err = ParseInputMode("video")
	assert.True(t, IsValidation(err))
}

func TestWordCount(t *testing.T) {
	assert.Equal(t, 0, WordCount("   "))
	assert.Equal(t, 4, WordCount("  India should\tinvest\nmore "))
}

func TestDomainError_Is(t *testing.T) {
	assert.True(t, IsNotFound(ErrSessionNotFound))
	assert.True(t, errors.Is(ErrSessionNotFound, ErrSessionNotFound))
	assert.False(t, IsNotFound(ErrEmptyResponse))
	assert.True(t, IsValidation(ErrEmptyResponse))
	assert.True(t, IsUnauthorized(ErrInvalidCredentials))

	wrapped := WrapError("persistence", "Get", ErrServiceUnavailable, "redis down", errors.New("dial tcp"))
	assert.True(t, IsRetryable(wrapped))
	assert.Contains(t, wrapped.Error(), "dial tcp")
}
