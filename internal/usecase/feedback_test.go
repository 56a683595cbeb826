package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"interview-agent/internal/domain"
)

type mockRatings struct {
	response string
	err      error
	prompt   string
}

func (m *mockRatings) Chat(_ context.Context, _ string, messages []domain.ChatMessage) (string, error) {
	if len(messages) > 0 {
		m.prompt = messages[len(messages)-1].Content
	}
	return m.response, m.err
}

func finishedState() domain.SessionState {
	state := domain.NewSessionState("s-1", domain.WorkflowDefinition{
		Industry: "it",
		Phases: []domain.Phase{
			{ID: "p1", Prompt: "q1", ExpectedSlots: []string{"a"}, Next: domain.TerminalPhaseID},
		},
	})
	state.Finished = true
	state.CurrentPhaseID = domain.TerminalPhaseID
	state.History = []domain.Exchange{
		{Speaker: domain.SpeakerInterviewer, Text: "first question"},
		{Speaker: domain.SpeakerCandidate, Text: "an answer"},
	}
	return state
}

func TestNewFeedbackService_ValidatesDependencies(t *testing.T) {
	_, err := NewFeedbackService(nil, &mockRatings{}, "gpt-4o-mini")
	require.Error(t, err)
	_, err = NewFeedbackService(&mockStore{}, nil, "gpt-4o-mini")
	require.Error(t, err)
	_, err = NewFeedbackService(&mockStore{}, &mockRatings{}, " ")
	require.Error(t, err)
}

func TestGenerate_OverallScoreIsRecomputedNotTrusted(t *testing.T) {
	store := &mockStore{state: finishedState(), found: true}
	// The oracle claims 100; five 10s score 88 after the curve.
	oracle := &mockRatings{response: `{
		"overallFeedback": {"score": 100, "feedback": "narrative"},
		"phaseAnalysis": [
			{"phase": "p1", "score": 10, "feedback": "f"},
			{"phase": "p2", "score": 10, "feedback": "f"},
			{"phase": "p3", "score": 10, "feedback": "f"},
			{"phase": "p4", "score": 10, "feedback": "f"},
			{"phase": "p5", "score": 10, "feedback": "f"}
		],
		"improvements": ["i1"],
		"strengths": ["s1"]
	}`}
	s, err := NewFeedbackService(store, oracle, "gpt-4o-mini")
	require.NoError(t, err)

	out, err := s.Generate(context.Background(), FeedbackInput{SessionID: "s-1"})
	require.NoError(t, err)
	require.Equal(t, 88, out.OverallScore, "narrative score must be overwritten by the deterministic aggregate")
	require.Equal(t, "narrative", out.OverallFeedback)
	require.Len(t, out.PhaseAnalysis, 5)
	require.Equal(t, []string{"i1"}, out.Improvements)
}

func TestGenerate_PromptCarriesTranscriptAndWorkflow(t *testing.T) {
	store := &mockStore{state: finishedState(), found: true}
	oracle := &mockRatings{response: `{"overallFeedback":{"score":0,"feedback":""},"phaseAnalysis":[]}`}
	s, err := NewFeedbackService(store, oracle, "gpt-4o-mini")
	require.NoError(t, err)

	_, err = s.Generate(context.Background(), FeedbackInput{SessionID: "s-1"})
	require.NoError(t, err)
	require.Contains(t, oracle.prompt, "an answer")
	require.Contains(t, oracle.prompt, "p1")
	require.Contains(t, oracle.prompt, "Interview finished: true")
}

func TestGenerate_MissingSession(t *testing.T) {
	store := &mockStore{found: false}
	s, err := NewFeedbackService(store, &mockRatings{}, "gpt-4o-mini")
	require.NoError(t, err)

	_, err = s.Generate(context.Background(), FeedbackInput{SessionID: "s-1"})
	requireCode(t, err, ErrorNotFound)
}

func TestGenerate_EmptyTranscript(t *testing.T) {
	state := finishedState()
	state.History = nil
	store := &mockStore{state: state, found: true}
	s, err := NewFeedbackService(store, &mockRatings{}, "gpt-4o-mini")
	require.NoError(t, err)

	_, err = s.Generate(context.Background(), FeedbackInput{SessionID: "s-1"})
	requireCode(t, err, ErrorInvalidInput)
}

func TestGenerate_RatingsFailureAborts(t *testing.T) {
	store := &mockStore{state: finishedState(), found: true}
	oracle := &mockRatings{err: errors.New("ratings down")}
	s, err := NewFeedbackService(store, oracle, "gpt-4o-mini")
	require.NoError(t, err)

	_, err = s.Generate(context.Background(), FeedbackInput{SessionID: "s-1"})
	requireCode(t, err, ErrorUpstream)
}

func TestGenerate_MalformedRatingsAborts(t *testing.T) {
	store := &mockStore{state: finishedState(), found: true}
	oracle := &mockRatings{response: "this is not JSON"}
	s, err := NewFeedbackService(store, oracle, "gpt-4o-mini")
	require.NoError(t, err)

	_, err = s.Generate(context.Background(), FeedbackInput{SessionID: "s-1"})
	requireCode(t, err, ErrorUpstream)
}

func TestGenerate_NonNumericPhaseScoresContributeZero(t *testing.T) {
	store := &mockStore{state: finishedState(), found: true}
	oracle := &mockRatings{response: `{
		"overallFeedback": {"score": "50", "feedback": "f"},
		"phaseAnalysis": [
			{"phase": "p1", "score": "not-a-number", "feedback": "f"},
			{"phase": "p2", "score": 5, "feedback": "f"}
		]
	}`}
	s, err := NewFeedbackService(store, oracle, "gpt-4o-mini")
	require.NoError(t, err)

	out, err := s.Generate(context.Background(), FeedbackInput{SessionID: "s-1"})
	require.NoError(t, err)
	// sum 5 of max 20 → 25, below every curve bracket.
	require.Equal(t, 25, out.OverallScore)
}
