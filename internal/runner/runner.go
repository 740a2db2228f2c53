// Package runner dispatches inference over a problem slice and commits the
// outcome as a single result artifact.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/planjudge/planjudge/internal/config"
	"github.com/planjudge/planjudge/internal/corpus"
	"github.com/planjudge/planjudge/internal/llm"
	"github.com/planjudge/planjudge/internal/plan"
	"github.com/planjudge/planjudge/internal/pricing"
	"github.com/planjudge/planjudge/internal/result"
)

// Runner executes one RunSpec over a problem slice. Independent (problem,
// repetition) pairs are dispatched concurrently up to the configured bound;
// outcomes are collected and committed in canonical (problem id, repetition)
// order, so the artifact never depends on completion order.
type Runner struct {
	Client  llm.Client
	Store   *result.Store
	Cfg     *config.Config
	Retry   llm.Policy
	Pricing *pricing.Table // optional; nil disables cost accounting

	// now is replaced in tests to make artifacts reproducible.
	Now func() time.Time
}

// Run executes the spec and writes the result set exactly once.
//
// Re-invoking with an identical spec resumes rather than overwrites: problems
// that already have a full set of successful repetitions in the stored
// artifact are kept as-is and skipped; everything else (including previously
// failed problems) is re-run, and the merged set is atomically republished.
func (r *Runner) Run(ctx context.Context, spec result.RunSpec, problems []corpus.Problem, plans *plan.Set) (*result.ResultSet, string, error) {
	now := r.Now
	if now == nil {
		now = time.Now
	}

	done := make(map[string][]result.RunResult)
	prior, err := r.Store.ReadSpec(spec)
	switch {
	case err == nil:
		for id, rs := range prior.ByProblem() {
			if allSuccessful(rs, spec.Repetitions) {
				done[id] = rs
			}
		}
		if len(done) > 0 {
			fmt.Printf("Resuming: %d problem(s) already complete\n", len(done))
		}
	case errors.Is(err, result.ErrNotFound):
		// Fresh run.
	default:
		return nil, "", err
	}

	k := spec.Repetitions
	type task struct {
		problem corpus.Problem
		rep     int
	}
	var tasks []task
	for _, p := range problems {
		if _, ok := done[p.ID]; ok {
			continue
		}
		for rep := 0; rep < k; rep++ {
			tasks = append(tasks, task{problem: p, rep: rep})
		}
	}

	outcomes := make([]result.RunResult, len(tasks))
	dispatched := make([]bool, len(tasks))
	jobs := make([]Job, len(tasks))
	for i, t := range tasks {
		i, t := i, t
		jobs[i] = func() error {
			dispatched[i] = true
			outcomes[i] = r.runOne(ctx, spec, t.problem, t.rep, plans, now)
			return nil
		}
	}
	RunPool(ctx, r.Cfg.Concurrency, jobs)
	cancelled := ctx.Err() != nil

	// Keep only problems where every repetition resolved; a cancelled run
	// publishes the fully-resolved subset and is marked incomplete.
	resolved := make(map[string]int)
	for i := range tasks {
		if dispatched[i] {
			resolved[tasks[i].problem.ID]++
		}
	}
	var results []result.RunResult
	for _, rs := range done {
		results = append(results, rs...)
	}
	for i := range tasks {
		if dispatched[i] && resolved[tasks[i].problem.ID] == k {
			results = append(results, outcomes[i])
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].ProblemID != results[j].ProblemID {
			return results[i].ProblemID < results[j].ProblemID
		}
		return results[i].Repetition < results[j].Repetition
	})

	covered := make(map[string]bool)
	for _, rr := range results {
		covered[rr.ProblemID] = true
	}
	complete := true
	for _, p := range problems {
		if !covered[p.ID] {
			complete = false
			break
		}
	}
	if cancelled {
		complete = false
	}

	set := &result.ResultSet{Spec: spec, Complete: complete, Results: results}
	path, err := r.Store.Write(spec, set)
	if err != nil {
		return nil, "", fmt.Errorf("writing results: %w", err)
	}
	return set, path, nil
}

func (r *Runner) runOne(ctx context.Context, spec result.RunSpec, p corpus.Problem, rep int, plans *plan.Set, now func() time.Time) result.RunResult {
	rr := result.RunResult{
		ProblemID:  p.ID,
		Model:      spec.Model,
		Mode:       spec.Mode,
		Repetition: rep,
		Timestamp:  now().UTC(),
	}

	prompt := r.Cfg.Prompts.Instructions(spec.Mode) + "\n\n" + p.Statement
	if spec.Mode == result.ModeCoder && plans != nil {
		planText, err := plans.Lookup(p.ID)
		if err != nil {
			rr.Error = err.Error()
			return rr
		}
		prompt = plan.Inject(prompt, planText)
	}

	resp, err := r.Retry.Do(ctx, func(ctx context.Context) (*llm.Response, error) {
		return r.Client.Invoke(ctx, prompt, llm.Options{
			Model:       spec.Model,
			MaxTokens:   r.Cfg.Client.MaxTokens,
			Temperature: r.Cfg.Client.Temperature,
		})
	})
	if err != nil {
		log.Printf("warning: %s rep %d: %v", p.ID, rep, err)
		rr.Error = err.Error()
		return rr
	}

	rr.OK = true
	rr.Output = resp.Text
	rr.Tokens = resp.InputTokens + resp.OutputTokens
	if r.Pricing != nil {
		rr.CostUSD = r.Pricing.Cost(spec.Model, resp.InputTokens, resp.OutputTokens)
	}
	return rr
}

func allSuccessful(rs []result.RunResult, k int) bool {
	if len(rs) != k {
		return false
	}
	for _, r := range rs {
		if !r.OK {
			return false
		}
	}
	return true
}
