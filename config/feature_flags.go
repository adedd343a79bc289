package config

import (
	"hash/fnv"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// FeatureFlags manages feature toggles with optional percentage rollout.
type FeatureFlags struct {
	mu sync.RWMutex

	features map[string]*Feature

	// userOverrides maps a user key (email) to per-feature switches.
	userOverrides map[string]map[string]bool
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// Rollout percentage (0-100). Users are bucketed by a hash of their key.
	RolloutPercent int
}

// Predefined feature flag names.
const (
	FeatureFeedbackAI      = "feedback.ai"          // Ask the AI service for evaluations
	FeatureVoiceInput      = "practice.voice_input" // Accept voice-transcribed responses
	FeatureAuthSignup      = "auth.signup"          // Allow new sign ups over HTTP
	FeatureEventsRelay     = "events.relay"         // Relay change events between instances
	FeatureStreakReminders = "scheduler.streak_reminders"
)

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features:      make(map[string]*Feature),
		userOverrides: make(map[string]map[string]bool),
	}
	ff.initializeDefaults()
	ff.loadFromEnvironment()
	return ff
}

func (ff *FeatureFlags) initializeDefaults() {
	for _, f := range []Feature{
		{Name: FeatureFeedbackAI, Description: "AI feedback on responses", Enabled: true, RolloutPercent: 100},
		{Name: FeatureVoiceInput, Description: "Voice input mode", Enabled: true, RolloutPercent: 100},
		{Name: FeatureAuthSignup, Description: "Sign up endpoint", Enabled: true, RolloutPercent: 100},
		{Name: FeatureEventsRelay, Description: "Cross-instance event relay", Enabled: false, RolloutPercent: 0},
		{Name: FeatureStreakReminders, Description: "Evening streak check", Enabled: true, RolloutPercent: 100},
	} {
		f := f
		ff.features[f.Name] = &f
	}
}

// loadFromEnvironment loads feature flag overrides from env vars.
// Format: FEATURE_<NAME>=true|false|<percent>
// Example: FEATURE_FEEDBACK_AI=false
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		val := os.Getenv(featureNameToEnvKey(name))
		if val == "" {
			continue
		}
		if b, err := strconv.ParseBool(val); err == nil {
			feature.Enabled = b
			if b {
				feature.RolloutPercent = 100
			} else {
				feature.RolloutPercent = 0
			}
			continue
		}
		if p, err := strconv.Atoi(val); err == nil && p >= 0 && p <= 100 {
			feature.Enabled = p > 0
			feature.RolloutPercent = p
		}
	}
}

// "feedback.ai" -> "FEATURE_FEEDBACK_AI"
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled reports whether a feature is on. An empty user key only sees
// fully rolled out features.
func (ff *FeatureFlags) IsEnabled(featureName, userKey string) bool {
	if ff == nil {
		return false
	}
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	if userKey != "" {
		if overrides, ok := ff.userOverrides[userKey]; ok {
			if enabled, ok := overrides[featureName]; ok {
				return enabled
			}
		}
	}

	feature, ok := ff.features[featureName]
	if !ok || !feature.Enabled {
		return false
	}
	if feature.RolloutPercent >= 100 {
		return true
	}
	if userKey == "" {
		return false
	}
	return isInRollout(userKey, featureName, feature.RolloutPercent)
}

// Enabled is IsEnabled without a user.
func (ff *FeatureFlags) Enabled(featureName string) bool {
	return ff.IsEnabled(featureName, "")
}

func isInRollout(userKey, featureName string, percent int) bool {
	h := fnv.New32a()
	h.Write([]byte(featureName))
	h.Write([]byte(strings.ToLower(userKey)))
	return int(h.Sum32()%100) < percent
}

// SetUserOverride forces a feature on or off for one user.
func (ff *FeatureFlags) SetUserOverride(userKey, featureName string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if ff.userOverrides[userKey] == nil {
		ff.userOverrides[userKey] = make(map[string]bool)
	}
	ff.userOverrides[userKey][featureName] = enabled
}

// SetEnabled toggles a feature globally.
func (ff *FeatureFlags) SetEnabled(featureName string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if f, ok := ff.features[featureName]; ok {
		f.Enabled = enabled
		if enabled {
			f.RolloutPercent = 100
		} else {
			f.RolloutPercent = 0
		}
	}
}

// All returns a copy of every flag, sorted by name.
func (ff *FeatureFlags) All() []Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	out := make([]Feature, 0, len(ff.features))
	for _, f := range ff.features {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
