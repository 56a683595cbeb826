// Package handler adapts API Gateway events to the interview use cases. It
// owns request parsing, session id minting, correlation ids, and the mapping
// from error codes to HTTP statuses; everything else lives below it.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"interview-agent/internal/domain"
	"interview-agent/internal/usecase"
)

type TurnUseCase interface {
	Turn(ctx context.Context, in usecase.TurnInput) (usecase.TurnOutput, error)
}

type FeedbackUseCase interface {
	Generate(ctx context.Context, in usecase.FeedbackInput) (usecase.FeedbackOutput, error)
}

type Handler struct {
	turns    TurnUseCase
	feedback FeedbackUseCase
}

type turnRequest struct {
	SessionID string `json:"sessionId"`
	Utterance string `json:"utterance"`
	Industry  string `json:"industry"`
}

type turnResponse struct {
	SessionID    string `json:"sessionId"`
	Reply        string `json:"reply"`
	CurrentPhase string `json:"currentPhase"`
	Finished     bool   `json:"finished"`
	TotalTurns   int    `json:"totalTurns"`
}

type feedbackRequest struct {
	SessionID string `json:"sessionId"`
}

type feedbackResponse struct {
	SessionID       string              `json:"sessionId"`
	OverallScore    int                 `json:"overallScore"`
	OverallFeedback string              `json:"overallFeedback"`
	PhaseAnalysis   []domain.PhaseScore `json:"phaseAnalysis"`
	Improvements    []string            `json:"improvements"`
	Strengths       []string            `json:"strengths"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewHandler(turns TurnUseCase, feedback FeedbackUseCase) (*Handler, error) {
	if turns == nil {
		return nil, errors.New("handler: turn use case must not be nil")
	}
	if feedback == nil {
		return nil, errors.New("handler: feedback use case must not be nil")
	}
	return &Handler{turns: turns, feedback: feedback}, nil
}

// Handle dispatches one API Gateway event by path.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	correlationID := correlationIDFrom(event.Headers)

	switch {
	case strings.HasSuffix(event.Path, "/feedback"):
		return h.handleFeedback(ctx, event, correlationID), nil
	default:
		return h.handleTurn(ctx, event, correlationID), nil
	}
}

func (h *Handler) handleTurn(ctx context.Context, event events.APIGatewayProxyRequest, correlationID string) events.APIGatewayProxyResponse {
	var req turnRequest
	if err := json.Unmarshal([]byte(event.Body), &req); err != nil {
		return errorJSON(http.StatusBadRequest, usecase.ErrorInvalidInput, correlationID)
	}

	// A missing session id starts a new session; subsequent turns must echo
	// the id back.
	if strings.TrimSpace(req.SessionID) == "" {
		req.SessionID = newUUID()
	}

	out, err := h.turns.Turn(ctx, usecase.TurnInput{
		SessionID: req.SessionID,
		Utterance: req.Utterance,
		Industry:  req.Industry,
	})
	if err != nil {
		return mapError(err, correlationID)
	}

	return okJSON(turnResponse{
		SessionID:    out.SessionID,
		Reply:        out.Reply,
		CurrentPhase: out.CurrentPhaseID,
		Finished:     out.Finished,
		TotalTurns:   out.TotalTurns,
	}, correlationID)
}

func (h *Handler) handleFeedback(ctx context.Context, event events.APIGatewayProxyRequest, correlationID string) events.APIGatewayProxyResponse {
	var req feedbackRequest
	if err := json.Unmarshal([]byte(event.Body), &req); err != nil {
		return errorJSON(http.StatusBadRequest, usecase.ErrorInvalidInput, correlationID)
	}

	out, err := h.feedback.Generate(ctx, usecase.FeedbackInput{SessionID: req.SessionID})
	if err != nil {
		return mapError(err, correlationID)
	}

	return okJSON(feedbackResponse{
		SessionID:       out.SessionID,
		OverallScore:    out.OverallScore,
		OverallFeedback: out.OverallFeedback,
		PhaseAnalysis:   out.PhaseAnalysis,
		Improvements:    out.Improvements,
		Strengths:       out.Strengths,
	}, correlationID)
}

func mapError(err error, correlationID string) events.APIGatewayProxyResponse {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		return errorJSON(http.StatusInternalServerError, usecase.ErrorInternal, correlationID)
	}
	switch ucErr.Code {
	case usecase.ErrorInvalidInput:
		return errorJSON(http.StatusBadRequest, ucErr.Code, correlationID)
	case usecase.ErrorNotFound:
		return errorJSON(http.StatusNotFound, ucErr.Code, correlationID)
	case usecase.ErrorConflict:
		return errorJSON(http.StatusConflict, ucErr.Code, correlationID)
	case usecase.ErrorRateLimited:
		return errorJSON(http.StatusTooManyRequests, ucErr.Code, correlationID)
	case usecase.ErrorUpstream:
		return errorJSON(http.StatusBadGateway, ucErr.Code, correlationID)
	default:
		return errorJSON(http.StatusInternalServerError, usecase.ErrorInternal, correlationID)
	}
}

func okJSON(payload any, correlationID string) events.APIGatewayProxyResponse {
	body, err := json.Marshal(payload)
	if err != nil {
		return errorJSON(http.StatusInternalServerError, usecase.ErrorInternal, correlationID)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers:    responseHeaders(correlationID),
		Body:       string(body),
	}
}

func errorJSON(status int, code usecase.ErrorCode, correlationID string) events.APIGatewayProxyResponse {
	body, _ := json.Marshal(errorResponse{Error: string(code)})
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    responseHeaders(correlationID),
		Body:       string(body),
	}
}

func responseHeaders(correlationID string) map[string]string {
	return map[string]string{
		"Content-Type":     "application/json",
		"X-Correlation-Id": correlationID,
	}
}

func correlationIDFrom(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, "x-correlation-id") && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return newUUID()
}

var newUUID = func() string {
	return uuid.NewString()
}
