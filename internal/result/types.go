package result

import "time"

// Mode is the role a model plays in a run.
type Mode string

const (
	ModePlanner Mode = "planner"
	ModeCoder   Mode = "coder"
	ModeGolden  Mode = "golden"
)

// ValidMode reports whether m is one of the known run modes.
func ValidMode(m Mode) bool {
	switch m {
	case ModePlanner, ModeCoder, ModeGolden:
		return true
	}
	return false
}

// RunSpec fully determines a run: same spec, same output location, comparable
// results. Immutable once resolved.
type RunSpec struct {
	Model       string `json:"model"`
	ModelShort  string `json:"model_short"`
	Mode        Mode   `json:"mode"`
	SliceStart  int    `json:"slice_start"`
	SliceEnd    int    `json:"slice_end"`
	Repetitions int    `json:"repetitions"`
	ConfigFile  string `json:"config_file,omitempty"`
	PlanFile    string `json:"plan_file,omitempty"`
	PlanModel   string `json:"plan_model,omitempty"`
}

// RunResult is one model invocation outcome: one per (problem, repetition).
type RunResult struct {
	ProblemID  string    `json:"problem_id"`
	Model      string    `json:"model"`
	Mode       Mode      `json:"mode"`
	Repetition int       `json:"repetition"`
	Output     string    `json:"output,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	OK         bool      `json:"ok"`
	Error      string    `json:"error,omitempty"`
	Tokens     int       `json:"tokens,omitempty"`
	CostUSD    float64   `json:"cost_usd,omitempty"`
}

// ResultSet is the complete, ordered output of one run. Results are always
// sorted by (problem id, repetition) before a set is written, so the artifact
// never depends on completion order. Complete is false when the run was
// cancelled before every sliced problem resolved.
type ResultSet struct {
	Spec     RunSpec     `json:"spec"`
	Complete bool        `json:"complete"`
	Results  []RunResult `json:"results"`
}

// ProblemIDs returns the distinct problem ids in the set, in result order.
func (s *ResultSet) ProblemIDs() []string {
	var ids []string
	seen := make(map[string]bool)
	for _, r := range s.Results {
		if !seen[r.ProblemID] {
			seen[r.ProblemID] = true
			ids = append(ids, r.ProblemID)
		}
	}
	return ids
}

// ByProblem groups results by problem id, preserving repetition order.
func (s *ResultSet) ByProblem() map[string][]RunResult {
	byID := make(map[string][]RunResult)
	for _, r := range s.Results {
		byID[r.ProblemID] = append(byID[r.ProblemID], r)
	}
	return byID
}

// FirstSuccess returns the first successful repetition for a problem id.
func (s *ResultSet) FirstSuccess(problemID string) (RunResult, bool) {
	for _, r := range s.Results {
		if r.ProblemID == problemID && r.OK {
			return r, true
		}
	}
	return RunResult{}, false
}

// FailingProblems returns ids of problems with at least one failed repetition,
// in result order.
func (s *ResultSet) FailingProblems() []string {
	var ids []string
	seen := make(map[string]bool)
	for _, r := range s.Results {
		if !r.OK && !seen[r.ProblemID] {
			seen[r.ProblemID] = true
			ids = append(ids, r.ProblemID)
		}
	}
	return ids
}

// Category is a judge verdict class.
type Category string

const (
	CategoryWin   Category = "win"
	CategoryLose  Category = "lose"
	CategoryTie   Category = "tie"
	CategoryError Category = "error"
)

// Verdict is the judge's categorical assessment of one candidate output
// against the golden reference for the same problem.
type Verdict struct {
	ProblemID string   `json:"problem_id"`
	Category  Category `json:"category"`
	Rationale string   `json:"rationale,omitempty"`
	Raw       string   `json:"raw,omitempty"`
}

// JudgmentSet is the persisted artifact of one judging invocation.
type JudgmentSet struct {
	JudgeModel    string    `json:"judge_model"`
	GoldenPath    string    `json:"golden_path"`
	CandidatePath string    `json:"candidate_path"`
	Verdicts      []Verdict `json:"verdicts"`
}
