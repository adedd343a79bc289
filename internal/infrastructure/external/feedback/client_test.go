package feedback

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gd-practice/gd-coach/internal/domain/practice"
	"github.com/gd-practice/gd-coach/internal/domain/shared"
	"github.com/gd-practice/gd-coach/pkg/circuitbreaker"
)

var req = practice.AnalysisRequest{
	Category: practice.CategoryTechnology,
	Topic:    "AI in classrooms",
	Text:     "AI can personalise learning.",
}

func testConfig(url string) ClientConfig {
	cfg := DefaultClientConfig(url)
	cfg.Timeout = 2 * time.Second
	cfg.RetryDelay = time.Millisecond
	cfg.RateLimiterConfig = RateLimiterConfig{}
	return cfg
}

func TestClient_Analyze(t *testing.T) {
	var got completionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/text/llm/", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"completion":"  Good structure. 7/10  "}`))
	}))
	defer srv.Close()

	text, err := NewClient(testConfig(srv.URL + "/")).Analyze(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "Good structure. 7/10", text)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, req.Prompt(), got.Messages[0].Content)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"completion":"ok"}`))
	}))
	defer srv.Close()

	text, err := NewClient(testConfig(srv.URL)).Analyze(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := NewClient(testConfig(srv.URL)).Analyze(context.Background(), req)
	assert.ErrorIs(t, err, shared.ErrFeedbackUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_InvalidResponse(t *testing.T) {
	for name, body := range map[string]string{
		"not json":         `<html>`,
		"empty completion": `{"completion":"   "}`,
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			_, err := NewClient(testConfig(srv.URL)).Analyze(context.Background(), req)
			assert.ErrorIs(t, err, shared.ErrFeedbackInvalidResponse)
		})
	}
}

func TestClient_BreakerOpensAfterFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.MaxAttempts = 1
	cfg.BreakerThreshold = 2
	c := NewClient(cfg)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := c.Analyze(ctx, req)
		assert.ErrorIs(t, err, shared.ErrFeedbackUnavailable)
	}
	assert.Equal(t, circuitbreaker.StateOpen, c.BreakerState())

	_, err := c.Analyze(ctx, req)
	assert.ErrorIs(t, err, shared.ErrFeedbackUnavailable)
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_NoBaseURL(t *testing.T) {
	_, err := NewClient(DefaultClientConfig("")).Analyze(context.Background(), req)
	assert.ErrorIs(t, err, shared.ErrFeedbackUnavailable)
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(RateLimiterConfig{RequestsPerSecond: 1, BurstSize: 2, WaitTimeout: 0})
	rl.now = func() time.Time { return now }
	rl.lastRefill = now
	ctx := context.Background()

	require.NoError(t, rl.Allow(ctx))
	require.NoError(t, rl.Allow(ctx))
	assert.ErrorIs(t, rl.Allow(ctx), shared.ErrFeedbackRateLimited)

	now = now.Add(time.Second)
	assert.InDelta(t, 1.0, rl.Available(), 0.001)
	require.NoError(t, rl.Allow(ctx))

	now = now.Add(10 * time.Second)
	assert.InDelta(t, 2.0, rl.Available(), 0.001)
	rl.RecordRateLimitHit()
	assert.InDelta(t, 0.0, rl.Available(), 0.001)
}

func TestRateLimiter_Disabled(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{})
	for i := 0; i < 10; i++ {
		require.NoError(t, rl.Allow(context.Background()))
	}
}
