package report

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/planjudge/planjudge/internal/corpus"
)

// Scorer decides whether a predicted answer satisfies a problem. Pluggable
// per task type; ExactMatch is the default.
type Scorer func(p corpus.Problem, predicted string) bool

// ExactMatch scores a prediction correct when it equals the reference answer
// after whitespace trimming.
func ExactMatch(p corpus.Problem, predicted string) bool {
	return strings.TrimSpace(predicted) == strings.TrimSpace(p.Answer)
}

// LoadPredictions reads a predictions file: a JSON object mapping problem id
// to predicted answer.
func LoadPredictions(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading predictions %s: %w", path, err)
	}
	var preds map[string]string
	if err := json.Unmarshal(data, &preds); err != nil {
		return nil, fmt.Errorf("parsing predictions %s: %w", path, err)
	}
	return preds, nil
}

// EvalSummary is the direct-eval metric bundle.
type EvalSummary struct {
	Total    int      `json:"total"`
	Passed   int      `json:"passed"`
	PassRate float64  `json:"pass_rate"`
	Failing  []string `json:"failing,omitempty"`
}

// Score evaluates predictions against the problems' reference answers.
// A problem with no prediction counts as failing.
func Score(preds map[string]string, problems []corpus.Problem, scorer Scorer) *EvalSummary {
	if scorer == nil {
		scorer = ExactMatch
	}
	s := &EvalSummary{Total: len(problems)}
	for _, p := range problems {
		predicted, ok := preds[p.ID]
		if ok && scorer(p, predicted) {
			s.Passed++
		} else {
			s.Failing = append(s.Failing, p.ID)
		}
	}
	sort.Strings(s.Failing)
	if s.Total > 0 {
		s.PassRate = float64(s.Passed) / float64(s.Total)
	}
	return s
}
