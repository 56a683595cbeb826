package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/require"

	"interview-agent/internal/domain"
	"interview-agent/internal/usecase"
)

type stubTurns struct {
	out usecase.TurnOutput
	err error
	in  usecase.TurnInput
}

func (s *stubTurns) Turn(_ context.Context, in usecase.TurnInput) (usecase.TurnOutput, error) {
	s.in = in
	return s.out, s.err
}

type stubFeedback struct {
	out usecase.FeedbackOutput
	err error
	in  usecase.FeedbackInput
}

func (s *stubFeedback) Generate(_ context.Context, in usecase.FeedbackInput) (usecase.FeedbackOutput, error) {
	s.in = in
	return s.out, s.err
}

func makeEvent(path, body string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Path:       path,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       body,
	}
}

func parseBody[T any](t *testing.T, body string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(body), &v))
	return v
}

func TestNewHandler_ValidatesDependencies(t *testing.T) {
	_, err := NewHandler(nil, &stubFeedback{})
	require.Error(t, err)
	_, err = NewHandler(&stubTurns{}, nil)
	require.Error(t, err)
}

func TestHandle_TurnHappyPath(t *testing.T) {
	turns := &stubTurns{out: usecase.TurnOutput{
		SessionID:      "s-1",
		Reply:          "next question",
		CurrentPhaseID: "gakuchika",
		TotalTurns:     4,
	}}
	h, err := NewHandler(turns, &stubFeedback{})
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), makeEvent("/turn", `{"sessionId":"s-1","utterance":"my answer","industry":"it"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, usecase.TurnInput{SessionID: "s-1", Utterance: "my answer", Industry: "it"}, turns.in)

	out := parseBody[turnResponse](t, resp.Body)
	require.Equal(t, "next question", out.Reply)
	require.Equal(t, "gakuchika", out.CurrentPhase)
	require.Equal(t, 4, out.TotalTurns)
	require.NotEmpty(t, resp.Headers["X-Correlation-Id"])
}

func TestHandle_MintsSessionIDWhenMissing(t *testing.T) {
	orig := newUUID
	newUUID = func() string { return "minted-id" }
	defer func() { newUUID = orig }()

	turns := &stubTurns{out: usecase.TurnOutput{SessionID: "minted-id", Reply: "hello"}}
	h, err := NewHandler(turns, &stubFeedback{})
	require.NoError(t, err)

	_, err = h.Handle(context.Background(), makeEvent("/turn", `{"utterance":"hi","industry":"it"}`))
	require.NoError(t, err)
	require.Equal(t, "minted-id", turns.in.SessionID)
}

func TestHandle_InvalidBody(t *testing.T) {
	h, err := NewHandler(&stubTurns{}, &stubFeedback{})
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), makeEvent("/turn", `not-json`))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	out := parseBody[errorResponse](t, resp.Body)
	require.Equal(t, string(usecase.ErrorInvalidInput), out.Error)
}

func TestHandle_MapsUseCaseErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "invalid input", err: &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "empty_utterance"}, status: http.StatusBadRequest, code: string(usecase.ErrorInvalidInput)},
		{name: "not found", err: &usecase.Error{Code: usecase.ErrorNotFound, Reason: "session_not_found"}, status: http.StatusNotFound, code: string(usecase.ErrorNotFound)},
		{name: "conflict", err: &usecase.Error{Code: usecase.ErrorConflict, Reason: "session_write_conflict"}, status: http.StatusConflict, code: string(usecase.ErrorConflict)},
		{name: "rate limited", err: &usecase.Error{Code: usecase.ErrorRateLimited, Reason: "generation_rate_limited"}, status: http.StatusTooManyRequests, code: string(usecase.ErrorRateLimited)},
		{name: "upstream", err: &usecase.Error{Code: usecase.ErrorUpstream, Reason: "generation_error"}, status: http.StatusBadGateway, code: string(usecase.ErrorUpstream)},
		{name: "internal", err: &usecase.Error{Code: usecase.ErrorInternal, Reason: "session_save_error"}, status: http.StatusInternalServerError, code: string(usecase.ErrorInternal)},
		{name: "unexpected", err: errors.New("boom"), status: http.StatusInternalServerError, code: string(usecase.ErrorInternal)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			turns := &stubTurns{err: tc.err}
			h, err := NewHandler(turns, &stubFeedback{})
			require.NoError(t, err)

			resp, err := h.Handle(context.Background(), makeEvent("/turn", `{"sessionId":"s-1","utterance":"x"}`))
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)

			out := parseBody[errorResponse](t, resp.Body)
			require.Equal(t, tc.code, out.Error)
		})
	}
}

func TestHandle_FeedbackPath(t *testing.T) {
	fb := &stubFeedback{out: usecase.FeedbackOutput{
		SessionID:       "s-1",
		OverallScore:    88,
		OverallFeedback: "solid interview",
		PhaseAnalysis:   []domain.PhaseScore{{PhaseID: "p1", Score: 10.0, Rationale: "good"}},
		Improvements:    []string{"be more concrete"},
		Strengths:       []string{"clear structure"},
	}}
	h, err := NewHandler(&stubTurns{}, fb)
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), makeEvent("/feedback", `{"sessionId":"s-1"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, usecase.FeedbackInput{SessionID: "s-1"}, fb.in)

	out := parseBody[feedbackResponse](t, resp.Body)
	require.Equal(t, 88, out.OverallScore)
	require.Equal(t, "solid interview", out.OverallFeedback)
	require.Len(t, out.PhaseAnalysis, 1)
}

func TestHandle_UsesProvidedCorrelationID_CaseInsensitive(t *testing.T) {
	turns := &stubTurns{out: usecase.TurnOutput{SessionID: "s-1", Reply: "ok"}}
	h, err := NewHandler(turns, &stubFeedback{})
	require.NoError(t, err)

	event := makeEvent("/turn", `{"sessionId":"s-1","utterance":"x"}`)
	event.Headers["x-correlation-id"] = "corr-123"
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, "corr-123", resp.Headers["X-Correlation-Id"])
}
