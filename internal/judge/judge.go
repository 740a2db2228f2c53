// Package judge pairs golden and candidate results and scores each pair with
// an LLM judge.
package judge

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/planjudge/planjudge/internal/corpus"
	"github.com/planjudge/planjudge/internal/llm"
	"github.com/planjudge/planjudge/internal/result"
	"github.com/planjudge/planjudge/internal/runner"
)

// ErrSliceMismatch means golden and candidate sets do not cover the same
// problem ids. Fatal for the judging invocation.
var ErrSliceMismatch = errors.New("golden and candidate cover different problems")

const promptTemplate = `You are an expert evaluator comparing outputs for software engineering tasks.

## Task Description
%s

## Golden Reference (Ground Truth)
%s

## Candidate Output (To Evaluate)
%s

Compare the candidate against the golden reference: problem understanding,
coverage of every required change, correctness, and level of useful detail.
Explain your reasoning, then end your reply with exactly one line:

VERDICT: WIN

where WIN means the candidate is better than the golden reference, LOSE means
it is worse, and TIE means they are comparable.`

// Pipeline judges candidate results against a golden reference, one verdict
// per problem, concurrently up to Concurrency.
type Pipeline struct {
	Client      llm.Client
	Model       string
	MaxTokens   int
	Concurrency int
	Retry       llm.Policy
	// Limit caps the number of problems judged (0 = all), taken in id order.
	Limit int
	// Lookup resolves a problem id to its corpus entry for the prompt's task
	// description. Nil means verdicts are judged on outputs alone.
	Lookup func(id string) (corpus.Problem, bool)
}

// Judge scores every problem present in both sets. Per-problem issues (no
// successful output on either side, unparseable judge replies) become error
// verdicts; only a slice mismatch aborts. Verdicts are returned in problem-id
// order regardless of completion order.
func (p *Pipeline) Judge(ctx context.Context, golden, candidate *result.ResultSet) (*result.JudgmentSet, error) {
	goldenIDs := golden.ProblemIDs()
	candidateIDs := candidate.ProblemIDs()
	if err := sameIDs(goldenIDs, candidateIDs); err != nil {
		return nil, err
	}

	ids := append([]string(nil), goldenIDs...)
	sort.Strings(ids)
	if p.Limit > 0 && len(ids) > p.Limit {
		ids = ids[:p.Limit]
	}

	verdicts := make([]result.Verdict, len(ids))
	jobs := make([]runner.Job, len(ids))
	for i, id := range ids {
		i, id := i, id
		jobs[i] = func() error {
			verdicts[i] = p.judgeOne(ctx, id, golden, candidate)
			return nil
		}
	}
	runner.RunPool(ctx, p.Concurrency, jobs)
	if ctx.Err() != nil {
		// Undispatched slots stay zero-valued; keep only resolved verdicts.
		var resolved []result.Verdict
		for _, v := range verdicts {
			if v.ProblemID != "" {
				resolved = append(resolved, v)
			}
		}
		verdicts = resolved
	}

	return &result.JudgmentSet{JudgeModel: p.Model, Verdicts: verdicts}, nil
}

func (p *Pipeline) judgeOne(ctx context.Context, id string, golden, candidate *result.ResultSet) result.Verdict {
	v := result.Verdict{ProblemID: id, Category: result.CategoryError}

	goldenOut, goldenOK := golden.FirstSuccess(id)
	candidateOut, candidateOK := candidate.FirstSuccess(id)
	if !goldenOK || !candidateOK {
		v.Rationale = noSuccessDetail(goldenOK, candidateOK)
		return v
	}

	statement := ""
	if p.Lookup != nil {
		if prob, ok := p.Lookup(id); ok {
			statement = prob.Statement
		}
	}
	prompt := fmt.Sprintf(promptTemplate, statement, goldenOut.Output, candidateOut.Output)

	resp, err := p.Retry.Do(ctx, func(ctx context.Context) (*llm.Response, error) {
		return p.Client.Invoke(ctx, prompt, llm.Options{Model: p.Model, MaxTokens: p.MaxTokens})
	})
	if err != nil {
		log.Printf("warning: judging %s: %v", id, err)
		v.Rationale = err.Error()
		return v
	}

	v.Raw = resp.Text
	category, ok := ParseVerdict(resp.Text)
	if !ok {
		v.Rationale = "no verdict token in judge output"
		return v
	}
	v.Category = category
	v.Rationale = strings.TrimSpace(resp.Text)
	return v
}

func noSuccessDetail(goldenOK, candidateOK bool) string {
	switch {
	case !goldenOK && !candidateOK:
		return "no successful output in golden or candidate set"
	case !goldenOK:
		return "no successful output in golden set"
	default:
		return "no successful output in candidate set"
	}
}

func sameIDs(golden, candidate []string) error {
	g := append([]string(nil), golden...)
	c := append([]string(nil), candidate...)
	sort.Strings(g)
	sort.Strings(c)
	if len(g) != len(c) {
		return fmt.Errorf("%w: golden has %d, candidate has %d", ErrSliceMismatch, len(g), len(c))
	}
	for i := range g {
		if g[i] != c[i] {
			return fmt.Errorf("%w: golden has %q, candidate has %q", ErrSliceMismatch, g[i], c[i])
		}
	}
	return nil
}
