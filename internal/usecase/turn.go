package usecase

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"

	"interview-agent/internal/domain"
	"interview-agent/internal/policy"
	"interview-agent/internal/repository"
)

const defaultMaxUtterance = 4000

// SessionStore persists session state: one load and one save per turn.
type SessionStore interface {
	LoadSession(ctx context.Context, sessionID string) (domain.SessionState, bool, error)
	SaveSession(ctx context.Context, sessionID string, state domain.SessionState) error
}

// Extractor is the assess stage: utterance in, partial slot map out.
type Extractor interface {
	Extract(ctx context.Context, history []domain.Exchange, utterance string, expectedSlots []string) (domain.ExtractionResult, error)
}

// Generator produces the literal interviewer utterance for an objective.
// Unlike extraction, its failure is fatal to the turn.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// WorkflowBuilder materializes a phase chain at first contact.
type WorkflowBuilder interface {
	Build(industry string, rng *rand.Rand) (domain.WorkflowDefinition, error)
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

// TurnService orchestrates one interview turn: load, extract, merge, decide,
// compose, persist once.
type TurnService struct {
	store        SessionStore
	extractor    Extractor
	generator    Generator
	builder      WorkflowBuilder
	maxUtterance int
}

type TurnInput struct {
	SessionID string
	Utterance string
	Industry  string
}

type TurnOutput struct {
	SessionID      string
	Reply          string
	CurrentPhaseID string
	Finished       bool
	TotalTurns     int
}

func NewTurnService(store SessionStore, extractor Extractor, generator Generator, builder WorkflowBuilder, maxUtterance int) (*TurnService, error) {
	if store == nil {
		return nil, errors.New("usecase: session store must not be nil")
	}
	if extractor == nil {
		return nil, errors.New("usecase: extractor must not be nil")
	}
	if generator == nil {
		return nil, errors.New("usecase: generator must not be nil")
	}
	if builder == nil {
		return nil, errors.New("usecase: workflow builder must not be nil")
	}
	if maxUtterance <= 0 {
		maxUtterance = defaultMaxUtterance
	}
	return &TurnService{
		store:        store,
		extractor:    extractor,
		generator:    generator,
		builder:      builder,
		maxUtterance: maxUtterance,
	}, nil
}

// Turn processes one candidate utterance. State is persisted exactly once,
// after every decision is final; any error before that point leaves the
// stored session untouched.
func (s *TurnService) Turn(ctx context.Context, in TurnInput) (TurnOutput, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		return TurnOutput{}, newError(ErrorInvalidInput, "missing_session_id", nil)
	}
	utterance := strings.TrimSpace(in.Utterance)
	if utterance == "" {
		return TurnOutput{}, newError(ErrorInvalidInput, "empty_utterance", nil)
	}
	if len(utterance) > s.maxUtterance {
		return TurnOutput{}, newError(ErrorInvalidInput, "utterance_too_long", nil)
	}

	state, found, err := s.store.LoadSession(ctx, sessionID)
	if err != nil {
		return TurnOutput{}, newError(ErrorInternal, "session_load_error", err)
	}
	if !found {
		industry := strings.TrimSpace(in.Industry)
		if industry == "" {
			return TurnOutput{}, newError(ErrorInvalidInput, "missing_industry", nil)
		}
		workflow, buildErr := s.builder.Build(industry, newRand())
		if buildErr != nil {
			return TurnOutput{}, newError(ErrorInvalidInput, "unknown_industry", buildErr)
		}
		state = domain.NewSessionState(sessionID, workflow)
	}

	// Terminal sessions are no-ops: fixed closing line, nothing mutated,
	// nothing persisted.
	if state.Finished {
		return TurnOutput{
			SessionID:      sessionID,
			Reply:          closingMessage(&state),
			CurrentPhaseID: state.CurrentPhaseID,
			Finished:       true,
			TotalTurns:     state.TotalTurns,
		}, nil
	}

	phase, ok := state.Workflow.PhaseByID(state.CurrentPhaseID)
	if !ok {
		phase, _ = state.Workflow.PhaseByID(state.Workflow.FirstPhaseID())
	}

	// Assess stage. Extraction is best-effort: a failed or malformed oracle
	// response degrades to an empty result and the turn proceeds.
	result, extractErr := s.extractor.Extract(ctx, state.History, utterance, phase.ExpectedSlots)
	if extractErr != nil {
		result = domain.ExtractionResult{}
	}
	state.MergeFulfillment(phase.ID, result.Values)

	decision := policy.Apply(&state)

	var objective string
	switch {
	case decision.Finished:
		objective = closingMessage(&state)
	case decision.Outcome == policy.OutcomeRetry:
		objective = followUpObjective(decision.TargetSlot, state.AttemptCounts[decision.PhaseID])
	default:
		next, _ := state.Workflow.PhaseByID(decision.NextPhaseID)
		objective = next.Prompt
	}

	// Respond stage. Generation failure aborts the turn with zero persists so
	// no partially-applied turn is ever stored.
	reply, genErr := s.generator.Generate(ctx, interviewerPrompt(state.History, utterance, objective))
	if genErr != nil {
		if status, ok := upstreamStatusCode(genErr); ok && status == 429 {
			return TurnOutput{}, newError(ErrorRateLimited, "generation_rate_limited", genErr)
		}
		return TurnOutput{}, newError(ErrorUpstream, "generation_error", genErr)
	}
	reply = strings.Trim(strings.TrimSpace(reply), `"`)

	state.History = append(state.History,
		domain.Exchange{Speaker: domain.SpeakerCandidate, Text: utterance},
		domain.Exchange{Speaker: domain.SpeakerInterviewer, Text: reply},
	)

	if saveErr := s.store.SaveSession(ctx, sessionID, state); saveErr != nil {
		if errors.Is(saveErr, repository.ErrRevisionConflict) {
			return TurnOutput{}, newError(ErrorConflict, "session_write_conflict", saveErr)
		}
		return TurnOutput{}, newError(ErrorInternal, "session_save_error", saveErr)
	}

	return TurnOutput{
		SessionID:      sessionID,
		Reply:          reply,
		CurrentPhaseID: state.CurrentPhaseID,
		Finished:       state.Finished,
		TotalTurns:     state.TotalTurns,
	}, nil
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}

var newRand = func() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}
