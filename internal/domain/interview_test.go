package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testWorkflow() WorkflowDefinition {
	return WorkflowDefinition{
		Industry: "it",
		Phases: []Phase{
			{ID: "self_intro", ExpectedSlots: []string{"name", "university", "faculty"}, Next: "gakuchika"},
			{ID: "gakuchika", ExpectedSlots: []string{"activity_detail"}, Next: TerminalPhaseID},
		},
	}
}

func TestNewSessionState(t *testing.T) {
	s := NewSessionState("s-1", testWorkflow())
	require.Equal(t, "s-1", s.SessionID)
	require.Equal(t, "self_intro", s.CurrentPhaseID)
	require.False(t, s.Finished)
	require.Zero(t, s.TotalTurns)
	require.NotNil(t, s.Fulfillment)
	require.NotNil(t, s.AttemptCounts)
	require.Empty(t, s.History)
}

func TestFirstPhaseID_EmptyWorkflow(t *testing.T) {
	var w WorkflowDefinition
	require.Equal(t, TerminalPhaseID, w.FirstPhaseID())
}

func TestPhaseByID(t *testing.T) {
	w := testWorkflow()

	p, ok := w.PhaseByID("gakuchika")
	require.True(t, ok)
	require.True(t, p.IsTerminalTarget())

	_, ok = w.PhaseByID("nope")
	require.False(t, ok)
}

func TestMergeFulfillment_MonotonicUnion(t *testing.T) {
	s := NewSessionState("s-1", testWorkflow())

	s.MergeFulfillment("self_intro", map[string]string{"name": "Alice", "university": ""})
	require.Equal(t, map[string]string{"name": "Alice"}, s.Fulfillment["self_intro"])

	// A filled slot survives later contradicting or empty extractions.
	s.MergeFulfillment("self_intro", map[string]string{"name": "Bob", "university": "Keio"})
	require.Equal(t, "Alice", s.Fulfillment["self_intro"]["name"])
	require.Equal(t, "Keio", s.Fulfillment["self_intro"]["university"])

	s.MergeFulfillment("self_intro", nil)
	require.Equal(t, "Alice", s.Fulfillment["self_intro"]["name"])
}

func TestMergeFulfillment_NilMaps(t *testing.T) {
	var s SessionState
	s.MergeFulfillment("gakuchika", map[string]string{"activity_detail": "robotics club"})
	require.Equal(t, "robotics club", s.Fulfillment["gakuchika"]["activity_detail"])
}

func TestMissingSlots_DeclaredOrder(t *testing.T) {
	w := testWorkflow()
	s := NewSessionState("s-1", w)
	phase := w.Phases[0]

	require.Equal(t, []string{"name", "university", "faculty"}, s.MissingSlots(phase))

	s.MergeFulfillment("self_intro", map[string]string{"university": "Keio"})
	require.Equal(t, []string{"name", "faculty"}, s.MissingSlots(phase))

	s.MergeFulfillment("self_intro", map[string]string{"name": "Alice", "faculty": "Engineering"})
	require.Empty(t, s.MissingSlots(phase))
}
