package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/planjudge/planjudge/internal/config"
	"github.com/planjudge/planjudge/internal/corpus"
	"github.com/planjudge/planjudge/internal/judge"
	"github.com/planjudge/planjudge/internal/report"
	"github.com/planjudge/planjudge/internal/result"
)

var (
	flagGolden     string
	flagCandidate  string
	flagJudgeModel string
	flagProblems   int
	flagJParallel  int
)

func newJudgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "judge",
		Short: "Judge candidate results against a golden reference",
		RunE:  runJudge,
	}
	cmd.Flags().StringVar(&flagGolden, "golden", "", "golden results artifact (required)")
	cmd.Flags().StringVar(&flagCandidate, "candidate", "", "candidate results artifact (required)")
	cmd.Flags().StringVar(&flagJudgeModel, "judge", "", "judge model alias or identifier (default from config)")
	cmd.Flags().IntVar(&flagProblems, "problems", 0, "judge only the first N problems (0 = all)")
	cmd.Flags().IntVar(&flagJParallel, "parallel", 0, "override configured concurrency")
	cmd.MarkFlagRequired("golden")
	cmd.MarkFlagRequired("candidate")
	return cmd
}

func runJudge(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if flagJParallel > 0 {
		cfg.Concurrency = flagJParallel
	}
	judgeModel := cfg.Judge.Model
	if flagJudgeModel != "" {
		judgeModel, _ = cfg.ResolveModel(flagJudgeModel)
	}

	store := result.NewStore(cfg.ResultsDir)
	golden, err := store.Read(flagGolden)
	if err != nil {
		return err
	}
	candidate, err := store.Read(flagCandidate)
	if err != nil {
		return err
	}

	corp, err := corpus.Load(cfg.CorpusFile)
	if err != nil {
		return err
	}

	p := &judge.Pipeline{
		Client:      newClient(cfg),
		Model:       judgeModel,
		MaxTokens:   cfg.Judge.MaxTokens,
		Concurrency: cfg.Concurrency,
		Retry:       retryPolicy(cfg),
		Limit:       flagProblems,
		Lookup:      corp.Lookup,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Judging %s against %s with %s...\n",
		filepath.Dir(flagCandidate), filepath.Dir(flagGolden), judgeModel)
	js, err := p.Judge(ctx, golden, candidate)
	if err != nil {
		return err
	}
	js.GoldenPath = flagGolden
	js.CandidatePath = flagCandidate

	path, err := store.WriteJudgments(result.Key(candidate.Spec), judgeModel, js)
	if err != nil {
		return err
	}
	fmt.Printf("Saved to: %s\n\n", path)

	if err := report.Render(js, "table", os.Stdout); err != nil {
		return err
	}
	summary := report.Summarize(js.Verdicts)
	if errs := summary.ErrorProblems(); len(errs) > 0 {
		return fmt.Errorf("%d problem(s) ended in error verdicts: %v", len(errs), errs)
	}
	return nil
}
