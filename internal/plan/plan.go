// Package plan loads planner outputs for injection into coder prompts.
// A plan file is a planner run artifact; the plan for a problem is the first
// successful planner repetition for that id. Lookup is strictly by problem
// id: a coder slice that reaches outside the originating planner slice gets
// ErrMissingPlan for those problems, never a guessed fallback.
package plan

import (
	"errors"
	"fmt"
	"strings"

	"github.com/planjudge/planjudge/internal/result"
)

// ErrMissingPlan means no plan exists for a requested problem id. Recorded
// per problem, never fatal for the run.
var ErrMissingPlan = errors.New("no plan for problem")

// Set is a read-only id → plan mapping plus the model that produced it.
type Set struct {
	Model string
	plans map[string]string
}

// Load reads a planner result artifact and extracts one plan per problem id.
func Load(path string) (*Set, error) {
	store := result.NewStore("")
	set, err := store.Read(path)
	if err != nil {
		return nil, fmt.Errorf("loading plan file: %w", err)
	}
	if set.Spec.Mode != result.ModePlanner && set.Spec.Mode != result.ModeGolden {
		return nil, fmt.Errorf("plan file %s: mode %q is not a planner run", path, set.Spec.Mode)
	}
	plans := make(map[string]string)
	for _, id := range set.ProblemIDs() {
		if r, ok := set.FirstSuccess(id); ok && strings.TrimSpace(r.Output) != "" {
			plans[id] = r.Output
		}
	}
	model := set.Spec.ModelShort
	if model == "" {
		model = set.Spec.Model
	}
	return &Set{Model: model, plans: plans}, nil
}

// Len returns the number of plans in the set.
func (s *Set) Len() int { return len(s.plans) }

// Lookup returns the plan for a problem id, or ErrMissingPlan.
func (s *Set) Lookup(problemID string) (string, error) {
	p, ok := s.plans[problemID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingPlan, problemID)
	}
	return p, nil
}

// Inject appends the plan to a prompt inside execution-plan tags, the format
// coder agents are instructed to follow.
func Inject(prompt, planText string) string {
	return prompt + "\n\n<execution_plan>\n" + planText + "\n</execution_plan>"
}
