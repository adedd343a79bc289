package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/gd-practice/gd-coach/config"
	"github.com/gd-practice/gd-coach/internal/application/command"
	"github.com/gd-practice/gd-coach/internal/application/query"
	"github.com/gd-practice/gd-coach/internal/domain/gamification"
	"github.com/gd-practice/gd-coach/internal/domain/practice"
	"github.com/gd-practice/gd-coach/internal/domain/profile"
	"github.com/gd-practice/gd-coach/internal/domain/shared"
	"github.com/gd-practice/gd-coach/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"name":    "GD Coach API",
		"version": s.config.Version,
		"endpoints": map[string]string{
			"health":   "/health",
			"auth":     "/api/v1/auth/signin",
			"sessions": "/api/v1/sessions",
			"progress": "/api/v1/progress",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Healthy {
			writeJSON(w, r, http.StatusServiceUnavailable, status)
			return
		}
		writeJSON(w, r, http.StatusOK, status)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"uptime":  s.Uptime().String(),
		"version": s.config.Version,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// AUTH & PROFILE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type signUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expiresAt"`
	Profile   profile.Profile `json:"profile"`
	Onboarded bool            `json:"onboarded"`
}

type profileResponse struct {
	Profile   profile.Profile `json:"profile"`
	Onboarded bool            `json:"onboarded"`
}

// handleSignUp handles POST /api/v1/auth/signup
func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	if !s.enabled(config.FeatureAuthSignup, "") {
		writeJSONError(w, http.StatusForbidden, "signup_disabled", "Sign up is disabled")
		return
	}

	var req signUpRequest
	if !decodeBody(w, r, &req) {
		return
	}

	p, err := s.deps.Account.SignUp(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeToken(w, r, http.StatusCreated, p)
}

// handleSignIn handles POST /api/v1/auth/signin
func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !decodeBody(w, r, &req) {
		return
	}
	// An unknown address signs up a new profile.
	if !s.deps.Account.Knows(req.Email) && !s.enabled(config.FeatureAuthSignup, "") {
		writeJSONError(w, http.StatusForbidden, "signup_disabled", "Sign up is disabled")
		return
	}

	p, err := s.deps.Account.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeToken(w, r, http.StatusOK, p)
}

func (s *Server) writeToken(w http.ResponseWriter, r *http.Request, status int, p profile.Profile) {
	token, expiresAt, err := s.auth.Issue(p.ID, p.Email)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("issue token: %w", err))
		return
	}
	writeJSON(w, r, status, authResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Profile:   p,
		Onboarded: s.deps.Account.HasSeenOnboarding(),
	})
}

// handleSignOut handles POST /api/v1/auth/signout
func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	s.deps.Account.SignOut(r.Context())
	writeJSON(w, r, http.StatusOK, map[string]bool{"signedOut": true})
}

// handleGetProfile handles GET /api/v1/profile
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.Account.Current()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, profileResponse{Profile: p, Onboarded: s.deps.Account.HasSeenOnboarding()})
}

// handleUpdateProfile handles PATCH /api/v1/profile
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var u profile.Update
	if !decodeBody(w, r, &u) {
		return
	}

	p, err := s.deps.Account.UpdateProfile(r.Context(), u)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, profileResponse{Profile: p, Onboarded: s.deps.Account.HasSeenOnboarding()})
}

// handleCompleteOnboarding handles POST /api/v1/onboarding/complete
func (s *Server) handleCompleteOnboarding(w http.ResponseWriter, r *http.Request) {
	s.deps.Account.CompleteOnboarding(r.Context())
	writeJSON(w, r, http.StatusOK, map[string]bool{"onboarded": true})
}

// ══════════════════════════════════════════════════════════════════════════════
// SESSION HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleListSessions handles GET /api/v1/sessions
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.deps.Sessions.List())
}

// handleCreateSession handles POST /api/v1/sessions
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var cmd command.CreateSessionCommand
	if !decodeBody(w, r, &cmd) {
		return
	}

	result, err := s.deps.CreateSession.Handle(r.Context(), cmd)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, result)
}

// handleGetSession handles GET /api/v1/sessions/{id}
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.deps.Sessions.Get(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, session)
}

// handleDeleteSession handles DELETE /api/v1/sessions/{id}
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.deps.Delete.DeleteSession(r.Context(), command.DeleteSessionCommand{SessionID: id}); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"deleted": id})
}

type submitResponseRequest struct {
	Text      string `json:"text"`
	InputMode string `json:"inputMode"`
}

// handleSubmitResponse handles POST /api/v1/sessions/{id}/entries
func (s *Server) handleSubmitResponse(w http.ResponseWriter, r *http.Request) {
	var req submitResponseRequest
	if !decodeBody(w, r, &req) {
		return
	}

	mode, err := shared.ParseInputMode(req.InputMode)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if mode.IsVoice() && !s.enabled(config.FeatureVoiceInput, s.userKey()) {
		writeJSONError(w, http.StatusForbidden, "voice_input_disabled", "Voice input is disabled")
		return
	}

	result, err := s.deps.SubmitResponse.Handle(r.Context(), command.SubmitResponseCommand{
		SessionID: mux.Vars(r)["id"],
		Text:      req.Text,
		InputMode: mode,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, result)
}

// handleDeleteEntry handles DELETE /api/v1/sessions/{id}/entries/{entryId}
func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	err := s.deps.Delete.DeleteEntry(r.Context(), command.DeleteEntryCommand{
		SessionID: vars["id"],
		EntryID:   vars["entryId"],
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"deleted": vars["entryId"]})
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetProgress handles GET /api/v1/progress
func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.deps.Progress.Summary())
}

// handleResetProgress handles POST /api/v1/progress/reset
func (s *Server) handleResetProgress(w http.ResponseWriter, r *http.Request) {
	s.deps.Progress.Reset(r.Context())
	writeJSON(w, r, http.StatusOK, s.deps.Progress.Summary())
}

// handleGetDashboard handles GET /api/v1/dashboard
func (s *Server) handleGetDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.deps.Dashboard.Handle())
}

type badgeView struct {
	gamification.BadgeDefinition
	Earned bool `json:"earned"`
}

// handleListBadges handles GET /api/v1/badges
func (s *Server) handleListBadges(w http.ResponseWriter, r *http.Request) {
	record := s.deps.Progress.Snapshot()
	all := s.deps.Progress.Catalog().All()

	views := make([]badgeView, 0, len(all))
	for _, b := range all {
		views = append(views, badgeView{BadgeDefinition: b, Earned: record.HasBadge(b.ID)})
	}
	writeJSON(w, r, http.StatusOK, views)
}

// handlePendingBadge handles GET /api/v1/badges/pending
func (s *Server) handlePendingBadge(w http.ResponseWriter, r *http.Request) {
	b, ok := s.deps.Progress.PendingBadge()
	if !ok {
		writeJSON(w, r, http.StatusOK, map[string]interface{}{"badge": nil})
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]interface{}{"badge": b})
}

// handleDismissBadge handles POST /api/v1/badges/pending/dismiss
func (s *Server) handleDismissBadge(w http.ResponseWriter, r *http.Request) {
	s.deps.Progress.DismissBadge()
	writeJSON(w, r, http.StatusOK, map[string]bool{"dismissed": true})
}

// ══════════════════════════════════════════════════════════════════════════════
// TOPIC HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleCategories handles GET /api/v1/categories
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.deps.Topics.Categories())
}

// handleRandomTopic handles GET /api/v1/topics/{category}/random?current=...
func (s *Server) handleRandomTopic(w http.ResponseWriter, r *http.Request) {
	topic, err := s.deps.Topics.RandomTopic(query.RandomTopicQuery{
		Category: practice.Category(mux.Vars(r)["category"]),
		Current:  r.URL.Query().Get("current"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"topic": topic})
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "Request body too large")
			return false
		}
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid request payload")
		return false
	}
	return true
}

// writeError maps domain errors onto status codes.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var de *shared.DomainError
	message := err.Error()
	if errors.As(err, &de) {
		message = de.Message
	}

	switch {
	case shared.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, "not_found", message)
	case shared.IsValidation(err):
		writeJSONError(w, http.StatusBadRequest, "validation_error", message)
	case shared.IsUnauthorized(err):
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", message)
	case shared.IsExternalService(err):
		logger.FromContext(r.Context()).Warn("upstream unavailable",
			logger.String("path", r.URL.Path),
			logger.Err(err),
		)
		writeJSONError(w, http.StatusServiceUnavailable, "service_unavailable", message)
	default:
		logger.FromContext(r.Context()).Error("request failed",
			logger.String("path", r.URL.Path),
			logger.Err(err),
		)
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}

func (s *Server) enabled(feature, userKey string) bool {
	if s.deps.Features == nil {
		return true
	}
	return s.deps.Features.IsEnabled(feature, userKey)
}

func (s *Server) userKey() string {
	if p, err := s.deps.Account.Current(); err == nil {
		return p.Email
	}
	return ""
}
