package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/gd-practice/gd-coach/internal/application/account"
	"github.com/gd-practice/gd-coach/internal/application/command"
	"github.com/gd-practice/gd-coach/internal/application/progress"
	"github.com/gd-practice/gd-coach/internal/application/query"
	"github.com/gd-practice/gd-coach/internal/application/sessions"
	"github.com/gd-practice/gd-coach/internal/domain/practice"
	"github.com/gd-practice/gd-coach/internal/domain/shared"
	"github.com/gd-practice/gd-coach/internal/infrastructure/persistence/memory"
	"github.com/gd-practice/gd-coach/internal/infrastructure/persistence/writebehind"
	"github.com/gd-practice/gd-coach/internal/interface/http/handlers"
	"github.com/gd-practice/gd-coach/pkg/timeutil"
)

var clock = timeutil.FixedClock{T: time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)}

type stubAnalyzer struct {
	reply string
	err   error
}

func (s stubAnalyzer) Analyze(context.Context, practice.AnalysisRequest) (string, error) {
	return s.reply, s.err
}

type gate map[string]bool

func (g gate) IsEnabled(feature, _ string) bool {
	on, ok := g[feature]
	return !ok || on
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
}

type testServer struct {
	t       *testing.T
	handler http.Handler
	store   *memory.Store
	writer  *writebehind.Writer
}

func newTestServer(t *testing.T, analyzer practice.Analyzer, features FeatureGate) *testServer {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	wb := writebehind.New(store)
	t.Cleanup(func() { _ = wb.Close(context.Background()) })

	acct := account.New(ctx, store, wb, account.WithClock(clock), account.WithHashCost(bcrypt.MinCost))
	st := sessions.New(ctx, store, wb, sessions.WithClock(clock))
	eng := progress.NewEngine(ctx, store, wb, progress.WithClock(clock), progress.WithLocation(time.UTC))

	health := handlers.NewCompositeHealthChecker("test")
	health.AddCheck("store", handlers.NewStoreCheck(store))

	cfg := DefaultConfig()
	cfg.JWTSecret = "test-secret"
	cfg.RateLimitPerMinute = 0

	srv := NewServer(cfg, Dependencies{
		Account:        acct,
		Progress:       eng,
		Sessions:       st,
		CreateSession:  command.NewCreateSessionHandler(st, eng, clock, nil),
		SubmitResponse: command.NewSubmitResponseHandler(st, eng, analyzer, command.WithClock(clock)),
		Delete:         command.NewDeleteHandler(st, nil),
		Dashboard:      query.NewGetDashboardHandler(eng, st, clock, time.UTC),
		Topics:         query.NewTopicsHandler(nil),
		Features:       features,
		HealthChecker:  health,
	})
	return &testServer{t: t, handler: srv.Handler(), store: store, writer: wb}
}

func (ts *testServer) do(method, path, token string, body interface{}) (int, envelope) {
	ts.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(ts.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	var env envelope
	require.NoError(ts.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func (ts *testServer) signUp() string {
	ts.t.Helper()
	code, env := ts.do(http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"name": "Asha", "email": "asha@example.com", "password": "secret1",
	})
	require.Equal(ts.t, http.StatusCreated, code)
	var out authResponse
	require.NoError(ts.t, json.Unmarshal(env.Data, &out))
	require.NotEmpty(ts.t, out.Token)
	assert.Empty(ts.t, out.Profile.PasswordHash)
	return out.Token
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func TestPracticeFlow(t *testing.T) {
	ts := newTestServer(t, stubAnalyzer{reply: "Clear stance. 8/10"}, nil)
	token := ts.signUp()

	code, env := ts.do(http.MethodPost, "/api/v1/sessions", token, command.CreateSessionCommand{
		Title:         "Remote work",
		Category:      practice.CategoryBusiness,
		SelectedTopic: "Is remote work here to stay?",
	})
	require.Equal(t, http.StatusCreated, code)
	created := decode[command.CreateSessionResult](t, env)
	assert.Equal(t, 10, created.Award.XPGained)

	code, env = ts.do(http.MethodPost, "/api/v1/sessions/"+created.Session.ID+"/entries", token, map[string]string{
		"text": "Hybrid models balance focus and collaboration",
	})
	require.Equal(t, http.StatusCreated, code)
	submitted := decode[command.SubmitResponseResult](t, env)
	require.NotNil(t, submitted.Entry.Analysis)
	assert.Equal(t, "Clear stance. 8/10", *submitted.Entry.Analysis)
	assert.Equal(t, 6, submitted.Entry.WordCount)

	code, env = ts.do(http.MethodGet, "/api/v1/progress", token, nil)
	require.Equal(t, http.StatusOK, code)
	summary := decode[progress.Summary](t, env)
	assert.Equal(t, 10+20+50, summary.Record.XP)
	assert.Equal(t, 1, summary.Record.CurrentStreak)
	require.NotNil(t, summary.PendingBadge)
	assert.Equal(t, "first_practice", summary.PendingBadge.ID)

	code, env = ts.do(http.MethodGet, "/api/v1/badges/pending", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), "first_practice")

	code, _ = ts.do(http.MethodPost, "/api/v1/badges/pending/dismiss", token, nil)
	require.Equal(t, http.StatusOK, code)
	_, env = ts.do(http.MethodGet, "/api/v1/badges/pending", token, nil)
	assert.JSONEq(t, `{"badge":null}`, string(env.Data))

	_, env = ts.do(http.MethodGet, "/api/v1/badges", token, nil)
	badges := decode[[]badgeView](t, env)
	require.Len(t, badges, 11)
	assert.True(t, badges[0].Earned)
	assert.False(t, badges[1].Earned)

	_, env = ts.do(http.MethodGet, "/api/v1/sessions/"+created.Session.ID, token, nil)
	session := decode[practice.Session](t, env)
	require.Len(t, session.Entries, 1)

	code, _ = ts.do(http.MethodDelete, "/api/v1/sessions/"+created.Session.ID+"/entries/"+submitted.Entry.ID, token, nil)
	require.Equal(t, http.StatusOK, code)
	code, _ = ts.do(http.MethodDelete, "/api/v1/sessions/"+created.Session.ID, token, nil)
	require.Equal(t, http.StatusOK, code)

	_, env = ts.do(http.MethodGet, "/api/v1/sessions", token, nil)
	assert.Empty(t, decode[[]practice.Session](t, env))

	// Deleting sessions keeps earned XP.
	_, env = ts.do(http.MethodGet, "/api/v1/dashboard", token, nil)
	dash := decode[query.Dashboard](t, env)
	assert.Equal(t, 80, dash.Record.XP)
	assert.Equal(t, 0, dash.Sessions.Sessions)

	code, env = ts.do(http.MethodPost, "/api/v1/progress/reset", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0, decode[progress.Summary](t, env).Record.XP)
}

func TestAnalysisFallback(t *testing.T) {
	ts := newTestServer(t, stubAnalyzer{err: errors.New("boom")}, nil)
	token := ts.signUp()

	_, env := ts.do(http.MethodPost, "/api/v1/sessions", token, command.CreateSessionCommand{
		Title: "AI", Category: practice.CategoryTechnology, CustomTopic: "AI tutors",
	})
	id := decode[command.CreateSessionResult](t, env).Session.ID

	code, env := ts.do(http.MethodPost, "/api/v1/sessions/"+id+"/entries", token, map[string]string{
		"text": "Tutors scale", "inputMode": "voice",
	})
	require.Equal(t, http.StatusCreated, code)
	res := decode[command.SubmitResponseResult](t, env)
	assert.True(t, res.AnalysisFailed)
	require.NotNil(t, res.Entry.Analysis)
	assert.Equal(t, practice.AnalysisUnavailable, *res.Entry.Analysis)
}

func TestErrorMapping(t *testing.T) {
	ts := newTestServer(t, stubAnalyzer{reply: "ok"}, nil)
	token := ts.signUp()

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   interface{}
		status int
		code   string
	}{
		{"no token", http.MethodGet, "/api/v1/sessions", "", nil, http.StatusUnauthorized, "unauthorized"},
		{"bad token", http.MethodGet, "/api/v1/sessions", "nope", nil, http.StatusUnauthorized, "unauthorized"},
		{"unknown session", http.MethodGet, "/api/v1/sessions/missing", token, nil, http.StatusNotFound, "not_found"},
		{"delete unknown entry", http.MethodDelete, "/api/v1/sessions/missing/entries/x", token, nil, http.StatusNotFound, "not_found"},
		{"empty title", http.MethodPost, "/api/v1/sessions", token, map[string]string{"title": " ", "category": "business"}, http.StatusBadRequest, "validation_error"},
		{"unknown category", http.MethodPost, "/api/v1/sessions", token, map[string]string{"title": "x", "category": "sports"}, http.StatusBadRequest, "validation_error"},
		{"bad input mode", http.MethodPost, "/api/v1/sessions/missing/entries", token, map[string]string{"text": "hi", "inputMode": "video"}, http.StatusBadRequest, "validation_error"},
		{"bad avatar", http.MethodPatch, "/api/v1/profile", token, map[string]string{"avatarEmoji": "🍕"}, http.StatusBadRequest, "validation_error"},
		{"wrong password", http.MethodPost, "/api/v1/auth/signin", "", map[string]string{"email": "asha@example.com", "password": "wrong-pw"}, http.StatusUnauthorized, "unauthorized"},
		{"weak password", http.MethodPost, "/api/v1/auth/signup", "", map[string]string{"name": "R", "email": "r@example.com", "password": "123"}, http.StatusBadRequest, "validation_error"},
		{"unknown topic category", http.MethodGet, "/api/v1/topics/sports/random", "", nil, http.StatusBadRequest, "validation_error"},
		{"no such route", http.MethodGet, "/api/v1/nothing", token, nil, http.StatusNotFound, "not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := ts.do(tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.status, code)
			assert.False(t, env.Success)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
		})
	}
}

func TestWriteErrorStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{shared.ErrProfileNotFound, http.StatusNotFound, "not_found"},
		{shared.ErrFeedbackUnavailable, http.StatusServiceUnavailable, "service_unavailable"},
		{shared.ErrFeedbackRateLimited, http.StatusServiceUnavailable, "service_unavailable"},
		{fmt.Errorf("analyze: %w", shared.ErrTimeout), http.StatusServiceUnavailable, "service_unavailable"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	s := &Server{}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.writeError(rec, httptest.NewRequest(http.MethodGet, "/api/v1/progress", nil), tt.err)

			assert.Equal(t, tt.status, rec.Code)
			var env envelope
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
		})
	}
}

func TestMalformedBody(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signin", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignOutRevokesTokens(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	token := ts.signUp()

	code, _ := ts.do(http.MethodPost, "/api/v1/onboarding/complete", token, nil)
	require.Equal(t, http.StatusOK, code)

	_, env := ts.do(http.MethodGet, "/api/v1/profile", token, nil)
	prof := decode[profileResponse](t, env)
	assert.Equal(t, "Asha", prof.Profile.Name)
	assert.True(t, prof.Onboarded)

	code, _ = ts.do(http.MethodPost, "/api/v1/auth/signout", token, nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = ts.do(http.MethodGet, "/api/v1/profile", token, nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	// Signing back in with the same email creates a fresh profile.
	code, env = ts.do(http.MethodPost, "/api/v1/auth/signin", "", map[string]string{
		"email": "asha@example.com", "password": "another",
	})
	require.Equal(t, http.StatusOK, code)
	again := decode[authResponse](t, env)
	assert.Equal(t, "asha", again.Profile.Name)
	assert.True(t, again.Onboarded)
}

func TestFeatureGates(t *testing.T) {
	ts := newTestServer(t, stubAnalyzer{reply: "ok"}, gate{"practice.voice_input": false})
	token := ts.signUp()

	_, env := ts.do(http.MethodPost, "/api/v1/sessions", token, map[string]string{
		"title": "x", "category": "abstract", "selectedTopic": "Zero",
	})
	id := decode[command.CreateSessionResult](t, env).Session.ID

	code, env := ts.do(http.MethodPost, "/api/v1/sessions/"+id+"/entries", token, map[string]string{
		"text": "hello", "inputMode": "voice",
	})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "voice_input_disabled", env.Error.Code)

	closed := newTestServer(t, nil, gate{"auth.signup": false})
	code, _ = closed.do(http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"name": "A", "email": "a@example.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusForbidden, code)
}

func TestSignInCannotSignUpWhenDisabled(t *testing.T) {
	features := gate{}
	ts := newTestServer(t, nil, features)
	token := ts.signUp()
	features["auth.signup"] = false

	code, env := ts.do(http.MethodPost, "/api/v1/auth/signin", "", map[string]string{
		"email": "mallory@example.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "signup_disabled", env.Error.Code)

	// The owner keeps access and can still sign in.
	code, env = ts.do(http.MethodGet, "/api/v1/profile", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "asha@example.com", decode[profileResponse](t, env).Profile.Email)

	code, _ = ts.do(http.MethodPost, "/api/v1/auth/signin", "", map[string]string{
		"email": "Asha@Example.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusOK, code)
}

func TestPublicEndpoints(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	code, env := ts.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, decode[handlers.HealthStatus](t, env).Healthy)

	code, env = ts.do(http.MethodGet, "/api/v1/categories", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]practice.CategoryInfo](t, env), 6)

	code, env = ts.do(http.MethodGet, "/api/v1/topics/technology/random?current=x", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, decode[map[string]string](t, env)["topic"])
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := newRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.False(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("5.6.7.8"))

	now = now.Add(61 * time.Second)
	assert.True(t, rl.Allow("1.2.3.4"))
}
