// Package feedback implements the AI text generation client that writes
// evaluations of practice responses.
package feedback

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gd-practice/gd-coach/internal/domain/practice"
	"github.com/gd-practice/gd-coach/internal/domain/shared"
	"github.com/gd-practice/gd-coach/pkg/circuitbreaker"
	"github.com/gd-practice/gd-coach/pkg/logger"
	"github.com/gd-practice/gd-coach/pkg/retry"
)

const completionPath = "/text/llm/"

// maxResponseBytes caps how much of a reply is read.
const maxResponseBytes = 1 << 20

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the feedback client.
type ClientConfig struct {
	// BaseURL is the text generation service root; the completion path
	// is appended to it.
	BaseURL string

	// Timeout bounds a single HTTP attempt.
	Timeout time.Duration

	// MaxAttempts includes the first try.
	MaxAttempts int

	// RetryDelay overrides the first backoff delay when positive.
	RetryDelay time.Duration

	// BreakerThreshold is how many failed requests open the breaker.
	BreakerThreshold int

	// BreakerTimeout is how long the breaker stays open.
	BreakerTimeout time.Duration

	RateLimiterConfig RateLimiterConfig

	Logger *logger.Logger
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL:           baseURL,
		Timeout:           30 * time.Second,
		MaxAttempts:       3,
		BreakerThreshold:  3,
		BreakerTimeout:    time.Minute,
		RateLimiterConfig: DefaultRateLimiterConfig(),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// WIRE FORMAT
// ══════════════════════════════════════════════════════════════════════════════

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Messages []message `json:"messages"`
}

type completionResponse struct {
	Completion string `json:"completion"`
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client implements practice.Analyzer over HTTP.
type Client struct {
	config      ClientConfig
	httpClient  *http.Client
	retrier     *retry.Retrier
	breaker     *circuitbreaker.CircuitBreaker
	rateLimiter *RateLimiter
	log         *logger.Logger
}

var _ practice.Analyzer = (*Client)(nil)

// NewClient creates a new feedback client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = logger.Discard()
	}
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	log := config.Logger.With(logger.Component("feedback"))

	c := &Client{
		config:      config,
		httpClient:  &http.Client{Timeout: config.Timeout},
		rateLimiter: NewRateLimiter(config.RateLimiterConfig),
		log:         log,
	}
	retryOpts := []retry.Option{
		retry.WithMaxAttempts(config.MaxAttempts),
		retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
			log.Debug("retrying feedback request",
				logger.Int("attempt", attempt),
				logger.Duration("delay", delay),
				logger.Err(err),
			)
		}),
	}
	if config.RetryDelay > 0 {
		retryOpts = append(retryOpts, retry.WithInitialDelay(config.RetryDelay))
	}
	c.retrier = retry.FeedbackRetrier(retryOpts...)
	c.breaker = circuitbreaker.FeedbackBreaker(config.BreakerThreshold, config.BreakerTimeout,
		func(name string, from, to circuitbreaker.State) {
			log.Warn("feedback breaker state changed",
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		},
	)
	return c
}

// Analyze asks the service to evaluate req and returns its text.
func (c *Client) Analyze(ctx context.Context, req practice.AnalysisRequest) (string, error) {
	if c.config.BaseURL == "" {
		return "", shared.ErrFeedbackUnavailable
	}

	var completion string
	start := time.Now()
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.retrier.Do(ctx, func(ctx context.Context) error {
			text, err := c.complete(ctx, req.Prompt())
			if err != nil {
				return err
			}
			completion = text
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
			return "", fmt.Errorf("%w: %w", shared.ErrFeedbackUnavailable, err)
		}
		return "", err
	}

	c.log.Debug("feedback received",
		logger.Latency(time.Since(start)),
		logger.Int("chars", len(completion)),
	)
	return completion, nil
}

// complete performs one HTTP attempt. Transient failures are marked
// retryable.
func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	if err := c.rateLimiter.Allow(ctx); err != nil {
		return "", retry.Permanent(err)
	}

	body, err := json.Marshal(completionRequest{Messages: []message{{Role: "user", Content: prompt}}})
	if err != nil {
		return "", retry.Permanent(fmt.Errorf("marshal body: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+completionPath, bytes.NewReader(body))
	if err != nil {
		return "", retry.Permanent(fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %w", shared.ErrTimeout, err)
		}
		return "", retry.Retryable(fmt.Errorf("%w: %w", shared.ErrFeedbackUnavailable, err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", retry.Retryable(fmt.Errorf("%w: read response: %w", shared.ErrFeedbackUnavailable, err))
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		c.rateLimiter.RecordRateLimitHit()
		return "", retry.Retryable(shared.ErrFeedbackRateLimited)
	case resp.StatusCode >= 500:
		return "", retry.Retryable(fmt.Errorf("%w: status %d", shared.ErrFeedbackUnavailable, resp.StatusCode))
	case resp.StatusCode >= 400:
		return "", fmt.Errorf("%w: status %d", shared.ErrFeedbackUnavailable, resp.StatusCode)
	}

	var out completionResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("%w: %w", shared.ErrFeedbackInvalidResponse, err)
	}
	text := strings.TrimSpace(out.Completion)
	if text == "" {
		return "", shared.ErrFeedbackInvalidResponse
	}
	return text, nil
}

// BreakerState reports the circuit breaker state.
func (c *Client) BreakerState() circuitbreaker.State {
	return c.breaker.State()
}
