package command

import (
	"context"
	"fmt"
	"time"

	"github.com/gd-practice/gd-coach/internal/domain/gamification"
	"github.com/gd-practice/gd-coach/internal/domain/practice"
	"github.com/gd-practice/gd-coach/internal/domain/shared"
	"github.com/gd-practice/gd-coach/pkg/logger"
	"github.com/gd-practice/gd-coach/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUBMIT RESPONSE COMMAND
// Adds a spoken or typed response to a session, awards XP and attaches
// written feedback from the analyzer.
// ══════════════════════════════════════════════════════════════════════════════

// DefaultAnalysisTimeout bounds one feedback request including retries.
const DefaultAnalysisTimeout = 45 * time.Second

// SubmitResponseCommand contains one response.
type SubmitResponseCommand struct {
	SessionID string           `json:"sessionId"`
	Text      string           `json:"text"`
	InputMode shared.InputMode `json:"inputMode"`
}

// SubmitResponseResult carries the stored entry and the award.
type SubmitResponseResult struct {
	Entry practice.Entry             `json:"entry"`
	Award gamification.ResponseAward `json:"award"`

	// AnalysisFailed is set when the stored analysis is the fallback text.
	AnalysisFailed bool `json:"analysisFailed"`
}

// SubmitResponseHandler handles SubmitResponseCommand.
type SubmitResponseHandler struct {
	sessions SessionStore
	progress ProgressRecorder
	analyzer practice.Analyzer
	clock    timeutil.Clock
	timeout  time.Duration
	log      *logger.Logger
}

// SubmitResponseOption configures a SubmitResponseHandler.
type SubmitResponseOption func(*SubmitResponseHandler)

// WithClock overrides the entry time source.
func WithClock(c timeutil.Clock) SubmitResponseOption {
	return func(h *SubmitResponseHandler) { h.clock = c }
}

// WithAnalysisTimeout bounds the feedback request.
func WithAnalysisTimeout(d time.Duration) SubmitResponseOption {
	return func(h *SubmitResponseHandler) { h.timeout = d }
}

// WithLogger sets the handler logger.
func WithLogger(l *logger.Logger) SubmitResponseOption {
	return func(h *SubmitResponseHandler) { h.log = l }
}

// NewSubmitResponseHandler creates a new SubmitResponseHandler.
func NewSubmitResponseHandler(sessions SessionStore, progress ProgressRecorder, analyzer practice.Analyzer, opts ...SubmitResponseOption) *SubmitResponseHandler {
	h := &SubmitResponseHandler{
		sessions: sessions,
		progress: progress,
		analyzer: analyzer,
		clock:    timeutil.SystemClock{},
		timeout:  DefaultAnalysisTimeout,
		log:      logger.Discard(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.log = h.log.With(logger.Component("submit_response"))
	return h
}

// Handle stores the entry, records the response, then asks for feedback.
// A feedback failure never fails the command; the entry keeps the
// fallback analysis instead.
func (h *SubmitResponseHandler) Handle(ctx context.Context, cmd SubmitResponseCommand) (*SubmitResponseResult, error) {
	mode := cmd.InputMode
	if mode == "" {
		mode = shared.InputText
	}
	entry, err := practice.NewEntry(cmd.Text, mode, h.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("submit_response: %w", err)
	}

	session, err := h.sessions.Get(cmd.SessionID)
	if err != nil {
		return nil, fmt.Errorf("submit_response: %w", err)
	}
	if err := h.sessions.AddEntry(ctx, session.ID, entry); err != nil {
		return nil, fmt.Errorf("submit_response: %w", err)
	}

	result := &SubmitResponseResult{
		Entry: entry,
		Award: h.progress.RecordResponse(ctx, mode.IsVoice()),
	}

	analysis, err := h.analyze(ctx, practice.AnalysisRequest{
		Category: session.Category,
		Topic:    session.Topic,
		Text:     entry.Text,
	})
	if err != nil {
		h.log.Warn("feedback unavailable",
			logger.SessionID(session.ID),
			logger.EntryID(entry.ID),
			logger.Err(err),
		)
		analysis = practice.AnalysisUnavailable
		result.AnalysisFailed = true
	}

	// The session may have been deleted while feedback was pending.
	if err := h.sessions.UpdateEntryAnalysis(ctx, session.ID, entry.ID, analysis); err != nil {
		h.log.Debug("entry gone before analysis arrived",
			logger.SessionID(session.ID),
			logger.EntryID(entry.ID),
			logger.Err(err),
		)
	}
	result.Entry.Analysis = &analysis

	h.log.Info("response submitted",
		logger.SessionID(session.ID),
		logger.EntryID(entry.ID),
		logger.Bool("voice", mode.IsVoice()),
		logger.XPAmount(result.Award.XPGained),
	)
	return result, nil
}

func (h *SubmitResponseHandler) analyze(ctx context.Context, req practice.AnalysisRequest) (string, error) {
	if h.analyzer == nil {
		return "", shared.ErrFeedbackUnavailable
	}
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}
	return h.analyzer.Analyze(ctx, req)
}
