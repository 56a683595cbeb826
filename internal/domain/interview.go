package domain

// TerminalPhaseID is the sentinel a phase points at when it is the last one
// in the workflow.
const TerminalPhaseID = "end"

// Speaker labels used in session history.
const (
	SpeakerCandidate   = "candidate"
	SpeakerInterviewer = "interviewer"
)

// Phase is a single interview stage. Immutable once the workflow is
// materialized: slot bookkeeping is keyed by phase identity.
type Phase struct {
	ID            string   `json:"id"`
	Prompt        string   `json:"prompt"`
	ExpectedSlots []string `json:"expectedSlots"`
	Next          string   `json:"next"`
}

// IsTerminalTarget reports whether advancing past this phase ends the interview.
func (p Phase) IsTerminalTarget() bool {
	return p.Next == TerminalPhaseID
}

// WorkflowDefinition is the ordered phase chain for one session, materialized
// exactly once at first contact and reused verbatim on every later turn.
type WorkflowDefinition struct {
	Industry string  `json:"industry"`
	Phases   []Phase `json:"phases"`
}

// PhaseByID returns the phase with the given id, or false if absent.
func (w WorkflowDefinition) PhaseByID(id string) (Phase, bool) {
	for _, p := range w.Phases {
		if p.ID == id {
			return p, true
		}
	}
	return Phase{}, false
}

// FirstPhaseID returns the id of the opening phase.
func (w WorkflowDefinition) FirstPhaseID() string {
	if len(w.Phases) == 0 {
		return TerminalPhaseID
	}
	return w.Phases[0].ID
}

// Exchange is one persisted utterance in session history.
type Exchange struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// SessionState is the mutable session aggregate. It is loaded at the start of
// a turn, mutated in memory, and persisted exactly once at the end.
type SessionState struct {
	SessionID      string                       `json:"sessionId"`
	Workflow       WorkflowDefinition           `json:"workflow"`
	CurrentPhaseID string                       `json:"currentPhaseId"`
	Fulfillment    map[string]map[string]string `json:"fulfillment"`
	AttemptCounts  map[string]int               `json:"attemptCounts"`
	FailedPhases   []string                     `json:"failedPhases"`
	Finished       bool                         `json:"finished"`
	TotalTurns     int                          `json:"totalTurns"`
	History        []Exchange                   `json:"history"`
	Revision       int                          `json:"revision"`
}

// NewSessionState creates the initial state for a freshly materialized workflow.
func NewSessionState(sessionID string, workflow WorkflowDefinition) SessionState {
	return SessionState{
		SessionID:      sessionID,
		Workflow:       workflow,
		CurrentPhaseID: workflow.FirstPhaseID(),
		Fulfillment:    map[string]map[string]string{},
		AttemptCounts:  map[string]int{},
		FailedPhases:   []string{},
		History:        []Exchange{},
	}
}

// PhaseFulfillment returns the slot map for a phase, allocating it on first use.
func (s *SessionState) PhaseFulfillment(phaseID string) map[string]string {
	if s.Fulfillment == nil {
		s.Fulfillment = map[string]map[string]string{}
	}
	m, ok := s.Fulfillment[phaseID]
	if !ok {
		m = map[string]string{}
		s.Fulfillment[phaseID] = m
	}
	return m
}

// MergeFulfillment applies extracted values to a phase as a monotonic union:
// a slot that already holds a value is never overwritten or cleared.
func (s *SessionState) MergeFulfillment(phaseID string, values map[string]string) {
	if len(values) == 0 {
		return
	}
	m := s.PhaseFulfillment(phaseID)
	for slot, value := range values {
		if value == "" {
			continue
		}
		if _, exists := m[slot]; exists {
			continue
		}
		m[slot] = value
	}
}

// MissingSlots returns the phase's expected slots that are still unfilled, in
// declared order.
func (s *SessionState) MissingSlots(phase Phase) []string {
	filled := s.Fulfillment[phase.ID]
	missing := make([]string, 0, len(phase.ExpectedSlots))
	for _, slot := range phase.ExpectedSlots {
		if filled[slot] == "" {
			missing = append(missing, slot)
		}
	}
	return missing
}

// ExtractionResult is the ephemeral per-turn output of the fulfillment
// extractor. Only its merged effect on SessionState survives the turn.
type ExtractionResult struct {
	Values   map[string]string
	Complete bool
	Missing  []string
}

// PhaseScore is one externally produced per-phase rating. Score is kept raw
// because the ratings oracle is not trusted to return a number.
type PhaseScore struct {
	PhaseID   string `json:"phase"`
	Score     any    `json:"score"`
	Rationale string `json:"feedback"`
}
