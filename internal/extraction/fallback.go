package extraction

import (
	"regexp"
	"strings"
)

// Fallback is a deterministic per-slot extractor consulted when the oracle
// leaves its slot empty. Implementations are locale-specific and pluggable so
// they can be swapped without touching the transition policy.
type Fallback interface {
	Slot() string
	Extract(utterance string) (string, bool)
}

// DefaultFallbacks returns the fallbacks shipped with the engine: the slots
// the oracle is least reliable on during the opening phase.
func DefaultFallbacks() []Fallback {
	return []Fallback{NameFallback{}, ActivitiesFallback{}}
}

// NameFallback pattern-matches self-introduction name statements.
type NameFallback struct{}

// The lead-in is case-insensitive but the captured words must be capitalized,
// otherwise "I am a student" would capture as a name.
var namePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i:\bmy name is )([A-Z][\w'-]*(?: [A-Z][\w'-]*){0,3})`),
	regexp.MustCompile(`(?i:\bi am )([A-Z][\w'-]*(?: [A-Z][\w'-]*){0,3})\b`),
	regexp.MustCompile(`(?i:\bi'm )([A-Z][\w'-]*(?: [A-Z][\w'-]*){0,3})\b`),
	regexp.MustCompile(`(?i:\bplease call me )([A-Z][\w'-]*(?: [A-Z][\w'-]*){0,3})`),
}

func (NameFallback) Slot() string { return "name" }

func (NameFallback) Extract(utterance string) (string, bool) {
	for _, p := range namePatterns {
		m := p.FindStringSubmatch(utterance)
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[1])
		// "I am a student" style captures are not names.
		if len(name) < 2 || strings.EqualFold(name, "a") || strings.EqualFold(name, "the") {
			continue
		}
		return name, true
	}
	return "", false
}

// ActivitiesFallback catches short free-text summaries of what the candidate
// did as a student.
type ActivitiesFallback struct{}

var activityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:as a student|during university|during college|in university|in college)[, ]+(?:i )?([^.!?]{4,})`),
	regexp.MustCompile(`(?i)\bi (?:was|have been) (?:involved in|part of|a member of) ([^.!?]{4,})`),
	regexp.MustCompile(`(?i)\bi spent (?:my|most of my) (?:time|student years) ([^.!?]{4,})`),
}

func (ActivitiesFallback) Slot() string { return "university_activities" }

func (ActivitiesFallback) Extract(utterance string) (string, bool) {
	for _, p := range activityPatterns {
		m := p.FindStringSubmatch(utterance)
		if m == nil {
			continue
		}
		activity := strings.TrimSpace(m[1])
		if len(activity) > 3 {
			return activity, true
		}
	}
	return "", false
}
