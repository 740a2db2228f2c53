// Package report aggregates verdicts and scored predictions into summary
// metrics. Aggregation is pure and recomputable from stored artifacts.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/planjudge/planjudge/internal/result"
)

// categoryOrder fixes the display order of verdict categories.
var categoryOrder = []result.Category{
	result.CategoryWin,
	result.CategoryLose,
	result.CategoryTie,
	result.CategoryError,
}

// Summary is the metric bundle computed from a collection of verdicts.
type Summary struct {
	Total    int                         `json:"total"`
	Counts   map[result.Category]int     `json:"counts"`
	Rates    map[result.Category]float64 `json:"rates"`
	Problems map[string]result.Category  `json:"problems"`
}

// Summarize computes per-category counts and rates over the verdicts.
func Summarize(verdicts []result.Verdict) *Summary {
	s := &Summary{
		Total:    len(verdicts),
		Counts:   make(map[result.Category]int),
		Rates:    make(map[result.Category]float64),
		Problems: make(map[string]result.Category),
	}
	for _, v := range verdicts {
		s.Counts[v.Category]++
		s.Problems[v.ProblemID] = v.Category
	}
	if s.Total > 0 {
		for cat, n := range s.Counts {
			s.Rates[cat] = float64(n) / float64(s.Total)
		}
	}
	return s
}

// ErrorProblems returns ids whose verdict is the error category, sorted.
func (s *Summary) ErrorProblems() []string {
	var ids []string
	for id, cat := range s.Problems {
		if cat == result.CategoryError {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Render formats a judgment artifact as table, markdown, or json.
func Render(js *result.JudgmentSet, format string, w io.Writer) error {
	s := Summarize(js.Verdicts)
	switch format {
	case "markdown":
		return writeMarkdown(js.JudgeModel, s, w)
	case "json":
		return writeJSON(s, w)
	default:
		return writeTable(js.JudgeModel, s, w)
	}
}

func writeTable(judgeModel string, s *Summary, w io.Writer) error {
	fmt.Fprintf(w, "Judge: %s  (%d problems)\n", judgeModel, s.Total)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERDICT\tCOUNT\tRATE")
	fmt.Fprintln(tw, strings.Repeat("-", 30))
	for _, cat := range categoryOrder {
		fmt.Fprintf(tw, "%s\t%d\t%.0f%%\n", cat, s.Counts[cat], s.Rates[cat]*100)
	}
	return tw.Flush()
}

func writeMarkdown(judgeModel string, s *Summary, w io.Writer) error {
	fmt.Fprintf(w, "Judge: %s (%d problems)\n\n", judgeModel, s.Total)
	fmt.Fprintln(w, "| Verdict | Count | Rate |")
	fmt.Fprintln(w, "|---|---|---|")
	for _, cat := range categoryOrder {
		fmt.Fprintf(w, "| %s | %d | %.0f%% |\n", cat, s.Counts[cat], s.Rates[cat]*100)
	}
	return nil
}

func writeJSON(s *Summary, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// RunSummary describes the success/failure split of one inference run.
type RunSummary struct {
	Problems  int
	Succeeded int
	Failing   []string
	Tokens    int
	CostUSD   float64
}

// SummarizeRun computes the per-problem success split of a result set. A
// problem counts as succeeded only when every repetition succeeded.
func SummarizeRun(set *result.ResultSet) *RunSummary {
	s := &RunSummary{}
	byProblem := set.ByProblem()
	ids := set.ProblemIDs()
	sort.Strings(ids)
	for _, id := range ids {
		s.Problems++
		ok := true
		for _, rr := range byProblem[id] {
			if !rr.OK {
				ok = false
			}
			s.Tokens += rr.Tokens
			s.CostUSD += rr.CostUSD
		}
		if ok {
			s.Succeeded++
		} else {
			s.Failing = append(s.Failing, id)
		}
	}
	return s
}

// Print writes the run summary in the engine's final-output format.
func (s *RunSummary) Print(w io.Writer) {
	fmt.Fprintf(w, "%d/%d problems succeeded", s.Succeeded, s.Problems)
	if s.Tokens > 0 {
		fmt.Fprintf(w, " (%d tokens", s.Tokens)
		if s.CostUSD > 0 {
			fmt.Fprintf(w, ", $%.2f", s.CostUSD)
		}
		fmt.Fprint(w, ")")
	}
	fmt.Fprintln(w)
	if len(s.Failing) > 0 {
		fmt.Fprintf(w, "failing: %s\n", strings.Join(s.Failing, ", "))
	}
}
