package plan_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/planjudge/planjudge/internal/plan"
	"github.com/planjudge/planjudge/internal/result"
)

func writePlannerArtifact(t *testing.T) string {
	t.Helper()
	store := result.NewStore(t.TempDir())
	spec := result.RunSpec{
		Model:       "claude-opus-4-20250514",
		ModelShort:  "opus",
		Mode:        result.ModePlanner,
		SliceStart:  0,
		SliceEnd:    3,
		Repetitions: 2,
	}
	set := &result.ResultSet{
		Spec:     spec,
		Complete: true,
		Results: []result.RunResult{
			{ProblemID: "p-0", Repetition: 0, Error: "invocation failed: timeout"},
			{ProblemID: "p-0", Repetition: 1, OK: true, Output: "plan for p-0"},
			{ProblemID: "p-1", Repetition: 0, OK: true, Output: "plan for p-1"},
			{ProblemID: "p-1", Repetition: 1, OK: true, Output: "second plan for p-1"},
			{ProblemID: "p-2", Repetition: 0, Error: "invocation failed: rate limited"},
			{ProblemID: "p-2", Repetition: 1, Error: "invocation failed: rate limited"},
		},
	}
	path, err := store.Write(spec, set)
	if err != nil {
		t.Fatalf("writing planner artifact: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	set, err := plan.Load(writePlannerArtifact(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if set.Model != "opus" {
		t.Errorf("model: got %q, want opus", set.Model)
	}
	// p-0 has a failed first repetition; the plan is the first success.
	if got, err := set.Lookup("p-0"); err != nil || got != "plan for p-0" {
		t.Errorf("Lookup(p-0): got %q, %v", got, err)
	}
	// p-1's first success wins over later repetitions.
	if got, _ := set.Lookup("p-1"); got != "plan for p-1" {
		t.Errorf("Lookup(p-1): got %q", got)
	}
	if set.Len() != 2 {
		t.Errorf("Len: got %d, want 2", set.Len())
	}
}

func TestLookupMissing(t *testing.T) {
	set, err := plan.Load(writePlannerArtifact(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	// p-2 never succeeded, so it has no plan.
	if _, err := set.Lookup("p-2"); !errors.Is(err, plan.ErrMissingPlan) {
		t.Errorf("expected ErrMissingPlan, got %v", err)
	}
	if _, err := set.Lookup("p-9"); !errors.Is(err, plan.ErrMissingPlan) {
		t.Errorf("expected ErrMissingPlan for unknown id, got %v", err)
	}
}

func TestLoadRejectsCoderArtifact(t *testing.T) {
	store := result.NewStore(t.TempDir())
	spec := result.RunSpec{Model: "m", Mode: result.ModeCoder, SliceStart: 0, SliceEnd: 1, Repetitions: 1}
	path, err := store.Write(spec, &result.ResultSet{Spec: spec, Complete: true})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := plan.Load(path); err == nil {
		t.Error("expected error loading a coder artifact as plans")
	}
}

func TestInject(t *testing.T) {
	got := plan.Inject("Fix the bug.", "1. Find it\n2. Fix it")
	if !strings.Contains(got, "<execution_plan>\n1. Find it\n2. Fix it\n</execution_plan>") {
		t.Errorf("missing execution plan tags: %q", got)
	}
	if !strings.HasPrefix(got, "Fix the bug.") {
		t.Errorf("prompt not preserved: %q", got)
	}
}
