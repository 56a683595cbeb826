package usecase

import (
	"fmt"
	"strings"

	"interview-agent/internal/domain"
)

// recentExchangeWindow bounds the conversation context given to the
// generation and ratings prompts: the last four rounds.
const recentExchangeWindow = 8

// followUpPhrases are rotated deterministically on the phase attempt count so
// repeated probes for the same phase do not read identically.
var followUpPhrases = []string{
	"Could you tell me a little more about %s?",
	"Could you be more specific about %s?",
	"I would like to hear more detail on %s, if you don't mind.",
}

func followUpObjective(slot string, attempt int) string {
	phrase := followUpPhrases[attempt%len(followUpPhrases)]
	return fmt.Sprintf(phrase, slotLabel(slot))
}

// slotLabel renders a slot id as human-readable text for follow-up questions.
func slotLabel(slot string) string {
	return strings.ReplaceAll(slot, "_", " ")
}

// closingMessage is the fixed terminal objective; it addresses the candidate
// by name when the opening phase captured one.
func closingMessage(state *domain.SessionState) string {
	address := ""
	if name := state.Fulfillment["self_intro"]["name"]; name != "" {
		address = name + ", "
	}
	return address + "thank you very much for your time today. This concludes the interview."
}

func renderHistory(history []domain.Exchange, limit int) string {
	window := history
	if limit > 0 && len(window) > limit {
		window = window[len(window)-limit:]
	}
	var b strings.Builder
	for i, ex := range window {
		if i > 0 {
			b.WriteByte('\n')
		}
		label := "Interviewer"
		if ex.Speaker == domain.SpeakerCandidate {
			label = "Candidate"
		}
		fmt.Fprintf(&b, "%s: %s", label, ex.Text)
	}
	return b.String()
}

// interviewerPrompt asks the generation oracle for the literal next
// interviewer utterance serving the given objective.
func interviewerPrompt(history []domain.Exchange, utterance, objective string) string {
	rendered := renderHistory(history, recentExchangeWindow)
	if rendered == "" {
		rendered = "The interview has just begun."
	}
	return strings.Join([]string{
		"You are a seasoned, courteous interviewer at a large company, with over ten years of interviewing experience. You are respectful, never intimidating, and you keep candidates at ease.",
		"",
		"Interview so far:",
		rendered,
		"",
		"Candidate's latest statement:",
		`"` + utterance + `"`,
		"",
		"Your next objective:",
		objective,
		"",
		"Rules: speak naturally and professionally; keep it to one concise question or statement; build on the conversation without repeating yourself; no greetings or preamble.",
		"",
		"Produce only the interviewer's next utterance.",
	}, "\n")
}

// ratingsPrompt builds the per-phase rating request from the full transcript,
// the materialized workflow, and the fulfillment map.
func ratingsPrompt(state *domain.SessionState) string {
	var phases strings.Builder
	for _, p := range state.Workflow.Phases {
		filled := make([]string, 0, len(p.ExpectedSlots))
		for _, slot := range p.ExpectedSlots {
			if state.Fulfillment[p.ID][slot] != "" {
				filled = append(filled, slot)
			}
		}
		status := "in progress"
		switch {
		case containsString(state.FailedPhases, p.ID):
			status = "failed"
		case len(filled) == 0:
			status = "not started"
		case len(filled) == len(p.ExpectedSlots):
			status = "complete"
		}
		fmt.Fprintf(&phases, "- %s: expected %s; answered %s; status %s\n",
			p.ID, strings.Join(p.ExpectedSlots, ", "), orNone(filled), status)
	}

	return strings.Join([]string{
		"You are an experienced interviewer. Analyze the interview transcript and structured progress below and provide detailed feedback.",
		"",
		"Interview phases:",
		phases.String(),
		"Failed phases: " + orNone(state.FailedPhases),
		fmt.Sprintf("Interview finished: %v", state.Finished),
		"",
		"Strict grading scale per phase (0-10): 0-1 clearly inadequate; 2-3 below average; 4-5 average, lacking depth; 6-7 above average, concrete and logical; 8-9 excellent; 10 flawless. Filler words and evasive answers lower the score.",
		"",
		"Return a single JSON object of this exact shape:",
		`{"overallFeedback": {"score": 0, "feedback": "7-10 sentences"}, "phaseAnalysis": [{"phase": "phase id", "score": 0, "feedback": "3-4 sentences"}], "improvements": ["three concrete points"], "strengths": ["three concrete points"]}`,
		"",
		"Rate only phases that actually took place, one phaseAnalysis entry per phase, using the phase ids above.",
		"",
		"Transcript:",
		renderHistory(state.History, 0),
	}, "\n")
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func orNone(list []string) string {
	if len(list) == 0 {
		return "none"
	}
	return strings.Join(list, ", ")
}
