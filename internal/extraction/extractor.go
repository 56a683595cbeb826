// Package extraction turns a candidate utterance into a partial slot→value
// map. The primary path is a fallible language oracle; a few deterministic
// pattern fallbacks cover slots the oracle is known to miss.
package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"interview-agent/internal/domain"
)

// Oracle is the semantic-extraction service. Its output is untrusted text.
type Oracle interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// historyWindow bounds how much conversation context is sent to the oracle:
// the last four exchanges per speaker.
const historyWindow = 8

// assessorResponse is the strict structure the oracle is instructed to return.
type assessorResponse struct {
	Values     map[string]*string `json:"values"`
	IsComplete bool               `json:"isComplete"`
	Missing    []string           `json:"missing"`
}

// Extractor implements the assess stage of a turn. It never mutates session
// state; callers merge the returned values themselves.
type Extractor struct {
	oracle    Oracle
	fallbacks []Fallback
}

// New creates an Extractor. Fallbacks may be nil; each fallback fires only
// for its own slot and only when the oracle left that slot empty.
func New(oracle Oracle, fallbacks ...Fallback) (*Extractor, error) {
	if oracle == nil {
		return nil, errors.New("extraction: oracle must not be nil")
	}
	return &Extractor{oracle: oracle, fallbacks: fallbacks}, nil
}

// Extract asks the oracle which expected slots the latest utterance fills.
// Oracle failures and malformed output degrade to an empty result; the error
// return is reserved for programming mistakes (empty slot list).
func (e *Extractor) Extract(ctx context.Context, history []domain.Exchange, utterance string, expectedSlots []string) (domain.ExtractionResult, error) {
	if len(expectedSlots) == 0 {
		return domain.ExtractionResult{}, errors.New("extraction: expected slots must not be empty")
	}

	values := map[string]string{}

	raw, err := e.oracle.Generate(ctx, assessorPrompt(history, utterance, expectedSlots))
	if err == nil {
		if parsed, ok := parseAssessorResponse(raw); ok {
			for _, slot := range expectedSlots {
				v := parsed.Values[slot]
				if v == nil {
					continue
				}
				if trimmed := strings.TrimSpace(*v); trimmed != "" {
					values[slot] = trimmed
				}
			}
		}
	}

	for _, fb := range e.fallbacks {
		slot := fb.Slot()
		if values[slot] != "" || !containsSlot(expectedSlots, slot) {
			continue
		}
		if v, ok := fb.Extract(utterance); ok {
			values[slot] = v
		}
	}

	missing := make([]string, 0, len(expectedSlots))
	for _, slot := range expectedSlots {
		if values[slot] == "" {
			missing = append(missing, slot)
		}
	}

	return domain.ExtractionResult{
		Values:   values,
		Complete: len(missing) == 0,
		Missing:  missing,
	}, nil
}

func containsSlot(slots []string, slot string) bool {
	for _, s := range slots {
		if s == slot {
			return true
		}
	}
	return false
}

func assessorPrompt(history []domain.Exchange, utterance string, expectedSlots []string) string {
	var b strings.Builder
	b.WriteString("You are an interview assessment specialist. From the conversation history and the candidate's latest statement, determine which of the listed assessment items have been adequately answered.\n\n")
	b.WriteString("Conversation history:\n")
	window := history
	if len(window) > historyWindow {
		window = window[len(window)-historyWindow:]
	}
	if len(window) == 0 {
		b.WriteString("(interview not yet started)\n")
	}
	for _, ex := range window {
		label := "Interviewer"
		if ex.Speaker == domain.SpeakerCandidate {
			label = "Candidate"
		}
		fmt.Fprintf(&b, "%s: %s\n", label, ex.Text)
	}
	b.WriteString("\nCandidate's latest statement:\n")
	b.WriteString(utterance)
	b.WriteString("\n\nAssessment items:\n")
	for _, slot := range expectedSlots {
		fmt.Fprintf(&b, "- %s\n", slot)
	}
	b.WriteString("\nRespond with a single JSON object and nothing else:\n")
	b.WriteString(`{"values": {"item": "answer content or null"}, "isComplete": true/false, "missing": ["unanswered items"]}`)
	b.WriteString("\n\nRules: extract only what the candidate actually said; never infer or invent values; set isComplete true only when every item has a concrete answer.")
	return b.String()
}

// parseAssessorResponse tolerates prose and code fences around the JSON: it
// takes the outermost {...} fragment and attempts a strict decode of that.
func parseAssessorResponse(raw string) (assessorResponse, bool) {
	fragment, ok := firstJSONFragment(raw)
	if !ok {
		return assessorResponse{}, false
	}
	var out assessorResponse
	if err := json.Unmarshal([]byte(fragment), &out); err != nil {
		return assessorResponse{}, false
	}
	return out, true
}

func firstJSONFragment(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}
