//go:build integration

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/planjudge/planjudge/internal/config"
	"github.com/planjudge/planjudge/internal/corpus"
	"github.com/planjudge/planjudge/internal/judge"
	"github.com/planjudge/planjudge/internal/llm"
	"github.com/planjudge/planjudge/internal/result"
	"github.com/planjudge/planjudge/internal/runner"
)

// fakeGateway answers chat-completions requests. Judge prompts (recognised by
// the verdict instruction) always get a TIE; everything else echoes a canned
// completion.
func fakeGateway(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		text := "completed the task"
		if len(req.Messages) > 0 && strings.Contains(req.Messages[0].Content, "VERDICT") {
			text = "Both outputs are comparable.\nVERDICT: TIE"
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": text}},
			},
			"usage": map[string]int{"prompt_tokens": 5, "completion_tokens": 5},
		})
	}))
}

func writeCorpus(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corpus.yaml")
	data := `
- id: proj__task-1
  statement: Fix the off-by-one in the pager.
- id: proj__task-2
  statement: Handle empty input in the parser.
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunAndJudgeCycle(t *testing.T) {
	srv := fakeGateway(t)
	defer srv.Close()

	cfg := config.Default()
	cfg.Client.BaseURL = srv.URL
	cfg.Client.APIKeyEnv = ""
	cfg.CorpusFile = writeCorpus(t)
	cfg.ResultsDir = t.TempDir()

	corp, err := corpus.Load(cfg.CorpusFile)
	if err != nil {
		t.Fatalf("loading corpus: %v", err)
	}
	problems, err := corp.Slice(0, 2)
	if err != nil {
		t.Fatalf("slicing corpus: %v", err)
	}

	store := result.NewStore(cfg.ResultsDir)
	client := llm.NewHTTPClient(cfg.Client.BaseURL, "", 10*time.Second)
	retry := llm.NewPolicy(2, time.Millisecond, 10*time.Millisecond, 2.0, false)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	r := &runner.Runner{Client: client, Store: store, Cfg: cfg, Retry: retry}

	goldenSpec, err := cfg.Resolve("sonnet", result.ModeGolden, "0:2", 1, "", "")
	if err != nil {
		t.Fatalf("resolving golden spec: %v", err)
	}
	golden, goldenPath, err := r.Run(ctx, goldenSpec, problems, nil)
	if err != nil {
		t.Fatalf("golden run: %v", err)
	}
	if !golden.Complete {
		t.Fatal("golden run incomplete")
	}

	candidateSpec, err := cfg.Resolve("haiku", result.ModePlanner, "0:2", 1, "", "")
	if err != nil {
		t.Fatalf("resolving candidate spec: %v", err)
	}
	candidate, _, err := r.Run(ctx, candidateSpec, problems, nil)
	if err != nil {
		t.Fatalf("candidate run: %v", err)
	}

	p := &judge.Pipeline{
		Client:      client,
		Model:       cfg.Judge.Model,
		MaxTokens:   cfg.Judge.MaxTokens,
		Concurrency: cfg.Concurrency,
		Retry:       retry,
		Lookup:      corp.Lookup,
	}
	js, err := p.Judge(ctx, golden, candidate)
	if err != nil {
		t.Fatalf("judging: %v", err)
	}
	if len(js.Verdicts) != 2 {
		t.Fatalf("verdicts: got %d, want 2", len(js.Verdicts))
	}
	for _, v := range js.Verdicts {
		if v.Category != result.CategoryTie {
			t.Errorf("%s: got %v, want tie", v.ProblemID, v.Category)
		}
	}

	jsPath, err := store.WriteJudgments(result.Key(candidateSpec), cfg.Judge.Model, js)
	if err != nil {
		t.Fatalf("writing judgments: %v", err)
	}
	if _, err := os.Stat(jsPath); err != nil {
		t.Errorf("judgments not on disk: %v", err)
	}
	if _, err := os.Stat(goldenPath); err != nil {
		t.Errorf("golden artifact not on disk: %v", err)
	}
}
