package shared

import (
	"math"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════
// XP Value Object (Experience Points)
// ═══════════════════════════════════════════════════════════════════════════

// XP represents experience points earned through practice.
type XP int

// IsValid checks if the XP value is non-negative.
func (x XP) IsValid() bool {
	return x >= 0
}

// Int returns the underlying int value.
func (x XP) Int() int {
	return int(x)
}

// Add adds XP and returns the result, floored at zero.
func (x XP) Add(amount int) XP {
	result := XP(int(x) + amount)
	if result < 0 {
		return 0
	}
	return result
}

// LevelInfo describes where an XP total sits on the level curve.
type LevelInfo struct {
	Level     Level   `json:"level"`
	CurrentXP int     `json:"currentXp"`
	XPForNext int     `json:"xpForNext"`
	Progress  float64 `json:"progress"`
}

// LevelInfo walks the level curve: level 1 needs 100 XP and every later
// level needs floor(100 * 1.3^(level-1)).
func (x XP) LevelInfo() LevelInfo {
	level := MinLevel
	need := 100
	remaining := int(x)
	if remaining < 0 {
		remaining = 0
	}

	for remaining >= need {
		remaining -= need
		level++
		need = level.Requirement()
	}

	return LevelInfo{
		Level:     level,
		CurrentXP: remaining,
		XPForNext: need,
		Progress:  float64(remaining) / float64(need),
	}
}

// Level calculates the level based on XP.
func (x XP) Level() Level {
	return x.LevelInfo().Level
}

// ═══════════════════════════════════════════════════════════════════════════
// Level Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Level is a position on the level curve, starting at 1.
type Level int

// MinLevel is the level of a fresh record.
const MinLevel Level = 1

// IsValid checks if the level is at least MinLevel.
func (l Level) IsValid() bool {
	return l >= MinLevel
}

// Int returns the underlying int value.
func (l Level) Int() int {
	return int(l)
}

// Requirement returns the XP needed to complete this level.
func (l Level) Requirement() int {
	if l <= MinLevel {
		return 100
	}
	return int(math.Floor(100 * math.Pow(1.3, float64(l-1))))
}

// Title returns the tier name shown next to the level.
func (l Level) Title() string {
	switch {
	case l <= 2:
		return "Beginner"
	case l <= 5:
		return "Learner"
	case l <= 8:
		return "Speaker"
	case l <= 12:
		return "Debater"
	case l <= 16:
		return "Orator"
	case l <= 20:
		return "Rhetorician"
	default:
		return "GD Legend"
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// InputMode Value Object
// ═══════════════════════════════════════════════════════════════════════════

// InputMode records how a response was captured.
type InputMode string

const (
	InputText  InputMode = "text"
	InputVoice InputMode = "voice"
)

// IsValid reports whether m is text or voice.
func (m InputMode) IsValid() bool {
	return m == InputText || m == InputVoice
}

// IsVoice reports whether the response was dictated.
func (m InputMode) IsVoice() bool {
	return m == InputVoice
}

// String returns the wire value.
func (m InputMode) String() string {
	return string(m)
}

// ParseInputMode accepts "text" or "voice" in any case. Empty means text.
func ParseInputMode(s string) (InputMode, error) {
	switch InputMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", InputText:
		return InputText, nil
	case InputVoice:
		return InputVoice, nil
	default:
		return "", ErrInvalidInputMode
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Word count
// ═══════════════════════════════════════════════════════════════════════════

// WordCount counts whitespace-separated tokens.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
