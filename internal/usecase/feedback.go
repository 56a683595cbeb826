package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"interview-agent/internal/domain"
	"interview-agent/internal/scoring"
)

// RatingsOracle produces the per-phase ratings payload for a transcript.
type RatingsOracle interface {
	Chat(ctx context.Context, model string, messages []domain.ChatMessage) (string, error)
}

// FeedbackService rates a finished session. The oracle supplies per-phase
// ratings and prose; the overall score is always recomputed deterministically
// and the oracle's own overall number is discarded.
type FeedbackService struct {
	store  SessionStore
	oracle RatingsOracle
	model  string
}

type FeedbackInput struct {
	SessionID string
}

type FeedbackOutput struct {
	SessionID       string
	OverallScore    int
	OverallFeedback string
	PhaseAnalysis   []domain.PhaseScore
	Improvements    []string
	Strengths       []string
}

// ratingsResponse is the shape the ratings oracle is instructed to return.
type ratingsResponse struct {
	OverallFeedback struct {
		Score    any    `json:"score"`
		Feedback string `json:"feedback"`
	} `json:"overallFeedback"`
	PhaseAnalysis []domain.PhaseScore `json:"phaseAnalysis"`
	Improvements  []string            `json:"improvements"`
	Strengths     []string            `json:"strengths"`
}

func NewFeedbackService(store SessionStore, oracle RatingsOracle, model string) (*FeedbackService, error) {
	if store == nil {
		return nil, errors.New("usecase: session store must not be nil")
	}
	if oracle == nil {
		return nil, errors.New("usecase: ratings oracle must not be nil")
	}
	if strings.TrimSpace(model) == "" {
		return nil, errors.New("usecase: ratings model must not be empty")
	}
	return &FeedbackService{store: store, oracle: oracle, model: model}, nil
}

// Generate rates the session's transcript. A ratings failure aborts scoring;
// there is no partial result and no retry.
func (s *FeedbackService) Generate(ctx context.Context, in FeedbackInput) (FeedbackOutput, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		return FeedbackOutput{}, newError(ErrorInvalidInput, "missing_session_id", nil)
	}

	state, found, err := s.store.LoadSession(ctx, sessionID)
	if err != nil {
		return FeedbackOutput{}, newError(ErrorInternal, "session_load_error", err)
	}
	if !found {
		return FeedbackOutput{}, newError(ErrorNotFound, "session_not_found", nil)
	}
	if len(state.History) == 0 {
		return FeedbackOutput{}, newError(ErrorInvalidInput, "empty_transcript", nil)
	}

	raw, err := s.oracle.Chat(ctx, s.model, []domain.ChatMessage{
		{Role: "system", Content: "You are an experienced interviewer who evaluates candidate answers precisely and provides concrete feedback."},
		{Role: "user", Content: ratingsPrompt(&state)},
	})
	if err != nil {
		if status, ok := upstreamStatusCode(err); ok && status == 429 {
			return FeedbackOutput{}, newError(ErrorRateLimited, "ratings_rate_limited", err)
		}
		return FeedbackOutput{}, newError(ErrorUpstream, "ratings_error", err)
	}

	var parsed ratingsResponse
	if decErr := json.Unmarshal([]byte(strings.TrimSpace(raw)), &parsed); decErr != nil {
		return FeedbackOutput{}, newError(ErrorUpstream, "ratings_malformed_response", decErr)
	}

	// The narrative's own score is overwritten: only the deterministic
	// aggregation is authoritative.
	overall := scoring.Aggregate(parsed.PhaseAnalysis)

	return FeedbackOutput{
		SessionID:       sessionID,
		OverallScore:    overall,
		OverallFeedback: parsed.OverallFeedback.Feedback,
		PhaseAnalysis:   parsed.PhaseAnalysis,
		Improvements:    parsed.Improvements,
		Strengths:       parsed.Strengths,
	}, nil
}
