package result_test

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/planjudge/planjudge/internal/result"
)

func sampleSpec() result.RunSpec {
	return result.RunSpec{
		Model:       "claude-haiku-4-5-20251001",
		ModelShort:  "haiku",
		Mode:        result.ModePlanner,
		SliceStart:  0,
		SliceEnd:    3,
		Repetitions: 2,
	}
}

func sampleSet() *result.ResultSet {
	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	return &result.ResultSet{
		Spec:     sampleSpec(),
		Complete: true,
		Results: []result.RunResult{
			{ProblemID: "p-0", Model: "m", Mode: result.ModePlanner, Repetition: 0, Output: "plan a", Timestamp: ts, OK: true},
			{ProblemID: "p-0", Model: "m", Mode: result.ModePlanner, Repetition: 1, Timestamp: ts, Error: "invocation failed: rate limited"},
			{ProblemID: "p-1", Model: "m", Mode: result.ModePlanner, Repetition: 0, Output: "plan b", Timestamp: ts, OK: true},
		},
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	store := result.NewStore(t.TempDir())
	set := sampleSet()
	path, err := store.Write(set.Spec, set)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := store.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !reflect.DeepEqual(got, set) {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", got, set)
	}
}

func TestReadSpecMatchesWrite(t *testing.T) {
	store := result.NewStore(t.TempDir())
	set := sampleSet()
	if _, err := store.Write(set.Spec, set); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := store.ReadSpec(set.Spec)
	if err != nil {
		t.Fatalf("ReadSpec: %v", err)
	}
	if len(got.Results) != 3 {
		t.Errorf("expected 3 results, got %d", len(got.Results))
	}
}

func TestPathDeterministic(t *testing.T) {
	store := result.NewStore("/data/results")
	spec := sampleSpec()
	a := store.Path(spec)
	b := store.Path(spec)
	if a != b {
		t.Errorf("paths differ: %q vs %q", a, b)
	}
	want := filepath.Join("/data/results", "planner", "haiku_s0-3_k2", "results.json")
	if a != want {
		t.Errorf("path: got %q, want %q", a, want)
	}
}

func TestKeyIncludesPlanModel(t *testing.T) {
	spec := sampleSpec()
	spec.Mode = result.ModeCoder
	spec.PlanModel = "opus"
	if got, want := result.Key(spec), "haiku_with_opus-plan_s0-3_k2"; got != want {
		t.Errorf("key: got %q, want %q", got, want)
	}
}

func TestKeySanitizesModelPath(t *testing.T) {
	spec := sampleSpec()
	spec.ModelShort = "org/model:v1"
	if got, want := result.Key(spec), "org_model_v1_s0-3_k2"; got != want {
		t.Errorf("key: got %q, want %q", got, want)
	}
}

func TestReadNotFound(t *testing.T) {
	store := result.NewStore(t.TempDir())
	_, err := store.Read(filepath.Join(store.BaseDir, "missing.json"))
	if !errors.Is(err, result.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReadCorrupt(t *testing.T) {
	dir := t.TempDir()
	store := result.NewStore(dir)

	tests := []struct {
		name string
		data string
	}{
		{"not json", "not json at all"},
		{"wrong shape", `{"spec": {}, "results": "nope"}`},
		{"missing metadata", `{"complete": true, "results": []}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".json")
			if err := os.WriteFile(path, []byte(tt.data), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := store.Read(path)
			if !errors.Is(err, result.ErrCorruptResult) {
				t.Fatalf("expected ErrCorruptResult, got %v", err)
			}
		})
	}
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	store := result.NewStore(t.TempDir())
	set := sampleSet()
	path, err := store.Write(set.Spec, set)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "results.json" {
		t.Errorf("expected only results.json, got %v", entries)
	}
}

func TestJudgmentsRoundTrip(t *testing.T) {
	store := result.NewStore(t.TempDir())
	js := &result.JudgmentSet{
		JudgeModel:    "judge-1",
		GoldenPath:    "golden/results.json",
		CandidatePath: "candidate/results.json",
		Verdicts: []result.Verdict{
			{ProblemID: "p-0", Category: result.CategoryWin, Rationale: "better coverage"},
			{ProblemID: "p-1", Category: result.CategoryError, Rationale: "no verdict token in judge output", Raw: "garbled"},
		},
	}
	path, err := store.WriteJudgments("haiku_s0-2_k1", "judge-1", js)
	if err != nil {
		t.Fatalf("WriteJudgments: %v", err)
	}
	got, err := result.ReadJudgments(path)
	if err != nil {
		t.Fatalf("ReadJudgments: %v", err)
	}
	if !reflect.DeepEqual(got, js) {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", got, js)
	}
}

func TestResultSetHelpers(t *testing.T) {
	set := sampleSet()
	if got := set.ProblemIDs(); len(got) != 2 || got[0] != "p-0" || got[1] != "p-1" {
		t.Errorf("ProblemIDs: got %v", got)
	}
	if r, ok := set.FirstSuccess("p-0"); !ok || r.Output != "plan a" {
		t.Errorf("FirstSuccess(p-0): got %+v, %v", r, ok)
	}
	if _, ok := set.FirstSuccess("p-9"); ok {
		t.Error("expected no success for unknown problem")
	}
	if got := set.FailingProblems(); len(got) != 1 || got[0] != "p-0" {
		t.Errorf("FailingProblems: got %v", got)
	}
}
