// Package workflow materializes the per-session interview phase chain.
//
// Randomization happens here and only here: Build is a pure function of the
// industry tag and the supplied random source, and its output is persisted
// with the session so later turns read the snapshot instead of recomputing.
package workflow

import (
	_ "embed"
	"errors"
	"fmt"
	"math/rand"

	"gopkg.in/yaml.v3"

	"interview-agent/internal/domain"
)

//go:embed bank.yaml
var bankYAML []byte

// Fixed phase ids for the non-randomized parts of the chain.
const (
	PhaseSelfIntro  = "self_intro"
	PhaseMotivation = "industry_motivation"
	PhaseGakuchika  = "gakuchika"
)

type bankQuestion struct {
	ID            string   `yaml:"id"`
	Prompt        string   `yaml:"prompt"`
	ExpectedSlots []string `yaml:"expectedSlots"`
}

type questionBank struct {
	IndustryNames map[string]string         `yaml:"industryNames"`
	Industries    map[string][]bankQuestion `yaml:"industries"`
}

// motivationVariant is one of the randomly chosen motivation slot sets.
type motivationVariant struct {
	slots        []string
	promptSuffix string
}

var motivationVariants = []motivationVariant{
	{
		slots:        []string{"motivation", "company_choice", "company_challenges"},
		promptSuffix: "Why this industry and why our company rather than a competitor? What do you see as our biggest challenge, and how could you contribute to it?",
	},
	{
		slots:        []string{"motivation", "company_choice", "future_goal"},
		promptSuffix: "Why this industry and why our company rather than a competitor? Please also tell me about your goals for the future.",
	},
}

// traitPhases are mutually exclusive: exactly one appears per session.
var traitPhases = []domain.Phase{
	{
		ID:            "strength",
		Prompt:        "Thank you. Next I would like to ask about your strengths. Please tell me about a personal strength, together with a concrete episode that illustrates it.",
		ExpectedSlots: []string{"strength", "example", "outcome"},
	},
	{
		ID:            "weakness",
		Prompt:        "Thank you. Next I would like to ask about areas for improvement. Please tell me about a weakness of yours and what you are doing to address it.",
		ExpectedSlots: []string{"weakness", "coping_strategy"},
	},
	{
		ID:            "personality",
		Prompt:        "Thank you. Next I would like to ask how others see you. What kind of person do people around you say you are? Please include a concrete episode.",
		ExpectedSlots: []string{"personality_type", "example", "outcome"},
	},
}

// Builder materializes workflow definitions from the embedded question bank.
type Builder struct {
	bank questionBank
}

// NewBuilder parses and validates the embedded question bank. Bank problems
// surface here, at process start, never mid-session.
func NewBuilder() (*Builder, error) {
	var bank questionBank
	if err := yaml.Unmarshal(bankYAML, &bank); err != nil {
		return nil, fmt.Errorf("workflow: parse question bank: %w", err)
	}
	if len(bank.Industries) == 0 {
		return nil, errors.New("workflow: question bank has no industries")
	}
	for industry, questions := range bank.Industries {
		if len(questions) == 0 {
			return nil, fmt.Errorf("workflow: industry %q has no questions", industry)
		}
		for _, q := range questions {
			if q.ID == "" || q.Prompt == "" || len(q.ExpectedSlots) == 0 {
				return nil, fmt.Errorf("workflow: industry %q has an incomplete question", industry)
			}
		}
	}
	return &Builder{bank: bank}, nil
}

// Industries returns the industry tags the bank can serve.
func (b *Builder) Industries() []string {
	tags := make([]string, 0, len(b.bank.Industries))
	for tag := range b.bank.Industries {
		tags = append(tags, tag)
	}
	return tags
}

// Build materializes the phase chain for one session. It must be called at
// most once per session: the chain contains random picks, and recomputing it
// mid-session would invalidate all slot bookkeeping keyed by phase id.
func (b *Builder) Build(industry string, rng *rand.Rand) (domain.WorkflowDefinition, error) {
	questions, ok := b.bank.Industries[industry]
	if !ok {
		return domain.WorkflowDefinition{}, fmt.Errorf("workflow: unknown industry %q", industry)
	}
	if rng == nil {
		return domain.WorkflowDefinition{}, errors.New("workflow: random source must not be nil")
	}

	industryQ := questions[rng.Intn(len(questions))]
	trait := traitPhases[rng.Intn(len(traitPhases))]
	motivation := motivationVariants[rng.Intn(len(motivationVariants))]

	industryName := b.bank.IndustryNames[industry]
	if industryName == "" {
		industryName = industry
	}

	phases := []domain.Phase{
		{
			ID:            PhaseSelfIntro,
			Prompt:        "To begin, please introduce yourself briefly. Tell me your name, where you studied, and what you spent your time on as a student.",
			ExpectedSlots: []string{"name", "education", "university_activities"},
			Next:          PhaseMotivation,
		},
		{
			ID:            PhaseMotivation,
			Prompt:        fmt.Sprintf("Thank you. Next I would like to ask about your motivation. Regarding your interest in %s: %s", industryName, motivation.promptSuffix),
			ExpectedSlots: motivation.slots,
			Next:          PhaseGakuchika,
		},
		{
			ID:            PhaseGakuchika,
			Prompt:        "Thank you. Next I would like to ask about your time as a student. Please tell me in detail about the effort you put the most energy into.",
			ExpectedSlots: []string{"topic", "actions", "outcome"},
			Next:          trait.ID,
		},
		{
			ID:            trait.ID,
			Prompt:        trait.Prompt,
			ExpectedSlots: trait.ExpectedSlots,
			Next:          industryQ.ID,
		},
		{
			ID:            industryQ.ID,
			Prompt:        "Thank you. Finally, a question about the industry itself. " + industryQ.Prompt,
			ExpectedSlots: industryQ.ExpectedSlots,
			Next:          domain.TerminalPhaseID,
		},
	}

	return domain.WorkflowDefinition{Industry: industry, Phases: phases}, nil
}
