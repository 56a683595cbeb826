// Package policy is the per-turn phase transition state machine. It is pure
// in-memory logic over SessionState: no I/O, no randomness.
package policy

import "interview-agent/internal/domain"

const (
	// MaxAttemptsPerPhase is the follow-up ceiling before a phase is marked
	// failed and the interview moves on.
	MaxAttemptsPerPhase = 3

	// MaxTotalTurns is the global safety valve against runaway sessions.
	MaxTotalTurns = 15
)

// Outcome classifies what the policy decided for a turn.
type Outcome string

const (
	// OutcomeAdvance: every expected slot was filled, move to the next phase.
	OutcomeAdvance Outcome = "advance"
	// OutcomeForceAdvance: attempt ceiling hit, phase marked failed, move on.
	OutcomeForceAdvance Outcome = "force_advance"
	// OutcomeRetry: stay in the phase and target its first missing slot.
	OutcomeRetry Outcome = "retry"
	// OutcomeTerminal: the session was already finished; nothing changed.
	OutcomeTerminal Outcome = "terminal"
)

// Decision is the policy's verdict for one turn.
type Decision struct {
	Outcome     Outcome
	PhaseID     string // phase the decision was made against
	NextPhaseID string // phase current after the decision (may equal PhaseID)
	TargetSlot  string // first missing slot, set only on retry
	Finished    bool
}

// Apply runs one transition against the state, mutating it in place. The
// terminal state has no outgoing transitions: a finished session is returned
// untouched.
func Apply(state *domain.SessionState) Decision {
	if state.Finished {
		return Decision{
			Outcome:     OutcomeTerminal,
			PhaseID:     state.CurrentPhaseID,
			NextPhaseID: state.CurrentPhaseID,
			Finished:    true,
		}
	}

	state.TotalTurns++

	phase, ok := state.Workflow.PhaseByID(state.CurrentPhaseID)
	if !ok {
		// Unknown phase id in persisted state: restart from the opening phase
		// rather than wedging the session.
		state.CurrentPhaseID = state.Workflow.FirstPhaseID()
		phase, _ = state.Workflow.PhaseByID(state.CurrentPhaseID)
	}

	d := Decision{PhaseID: phase.ID}

	missing := state.MissingSlots(phase)
	switch {
	case len(missing) == 0:
		d.Outcome = OutcomeAdvance
		advance(state, phase)
	case state.AttemptCounts[phase.ID] >= MaxAttemptsPerPhase:
		d.Outcome = OutcomeForceAdvance
		state.FailedPhases = appendUnique(state.FailedPhases, phase.ID)
		advance(state, phase)
	default:
		d.Outcome = OutcomeRetry
		if state.AttemptCounts == nil {
			state.AttemptCounts = map[string]int{}
		}
		state.AttemptCounts[phase.ID]++
		d.TargetSlot = missing[0]
	}

	if state.TotalTurns >= MaxTotalTurns && !state.Finished {
		state.Finished = true
		state.CurrentPhaseID = domain.TerminalPhaseID
	}

	d.NextPhaseID = state.CurrentPhaseID
	d.Finished = state.Finished
	return d
}

func advance(state *domain.SessionState, phase domain.Phase) {
	if phase.IsTerminalTarget() {
		state.Finished = true
		state.CurrentPhaseID = domain.TerminalPhaseID
		return
	}
	state.CurrentPhaseID = phase.Next
	if state.AttemptCounts == nil {
		state.AttemptCounts = map[string]int{}
	}
	state.AttemptCounts[phase.Next] = 0
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}
