package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/planjudge/planjudge/internal/config"
	"github.com/planjudge/planjudge/internal/corpus"
	"github.com/planjudge/planjudge/internal/llm"
	"github.com/planjudge/planjudge/internal/plan"
	"github.com/planjudge/planjudge/internal/pricing"
	"github.com/planjudge/planjudge/internal/report"
	"github.com/planjudge/planjudge/internal/result"
	"github.com/planjudge/planjudge/internal/runner"
	"github.com/planjudge/planjudge/internal/sandbox"
)

var (
	flagModel    string
	flagMode     string
	flagSlice    string
	flagReps     int
	flagPlanFile string
	flagParallel int
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run inference over a problem slice",
		RunE:  runInference,
	}
	cmd.Flags().StringVar(&flagModel, "model", "", "model alias or full identifier (required)")
	cmd.Flags().StringVar(&flagMode, "mode", "planner", "run mode (planner, coder, golden)")
	cmd.Flags().StringVar(&flagSlice, "slice", "0:1", "problem slice, e.g. 0:3")
	cmd.Flags().IntVarP(&flagReps, "repetitions", "k", 1, "repetitions per problem")
	cmd.Flags().StringVar(&flagPlanFile, "plan-file", "", "planner results to inject (coder mode)")
	cmd.Flags().IntVar(&flagParallel, "parallel", 0, "override configured concurrency")
	cmd.MarkFlagRequired("model")
	return cmd
}

func runInference(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if flagParallel > 0 {
		cfg.Concurrency = flagParallel
	}

	spec, err := cfg.Resolve(flagModel, result.Mode(flagMode), flagSlice, flagReps, cfgFile, flagPlanFile)
	if err != nil {
		return err
	}

	corp, err := corpus.Load(cfg.CorpusFile)
	if err != nil {
		return err
	}
	problems, err := corp.Slice(spec.SliceStart, spec.SliceEnd)
	if err != nil {
		return err
	}

	var plans *plan.Set
	if spec.Mode == result.ModeCoder && spec.PlanFile != "" {
		plans, err = plan.Load(spec.PlanFile)
		if err != nil {
			return err
		}
		spec.PlanModel = plans.Model
		fmt.Printf("Loaded %d plan(s) from %s\n", plans.Len(), plans.Model)
	}

	var table *pricing.Table
	if cfg.PricingFile != "" {
		table, err = pricing.Load(cfg.PricingFile)
		if err != nil {
			log.Printf("warning: %v", err)
		}
	}

	r := &runner.Runner{
		Client:  newClient(cfg),
		Store:   result.NewStore(cfg.ResultsDir),
		Cfg:     cfg,
		Retry:   retryPolicy(cfg),
		Pricing: table,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Running %s × %s (slice %d:%d, k=%d)...\n",
		spec.ModelShort, spec.Mode, spec.SliceStart, spec.SliceEnd, spec.Repetitions)
	set, path, err := r.Run(ctx, spec, problems, plans)
	if err != nil {
		return err
	}
	fmt.Printf("Saved to: %s\n", path)

	summary := report.SummarizeRun(set)
	summary.Print(os.Stdout)
	if !set.Complete {
		return fmt.Errorf("run interrupted: %d of %d problems resolved", summary.Problems, len(problems))
	}
	if len(summary.Failing) > 0 {
		return fmt.Errorf("%d problem(s) failed", len(summary.Failing))
	}
	return nil
}

func newClient(cfg *config.Config) llm.Client {
	if cfg.Client.Backend == "sandbox" {
		return &sandbox.Client{
			Image:   cfg.Sandbox.Image,
			Command: cfg.Sandbox.Command,
			Env:     cfg.Sandbox.Env,
			Timeout: time.Duration(cfg.Sandbox.TimeoutMinutes) * time.Minute,
		}
	}
	return llm.NewHTTPClient(cfg.Client.BaseURL, cfg.Client.APIKeyEnv, cfg.InvokeTimeout())
}

func retryPolicy(cfg *config.Config) llm.Policy {
	return llm.NewPolicy(
		cfg.Retry.MaxAttempts,
		time.Duration(cfg.Retry.InitialIntervalMS)*time.Millisecond,
		time.Duration(cfg.Retry.MaxIntervalMS)*time.Millisecond,
		cfg.Retry.Multiplier,
		cfg.Retry.Jitter,
	)
}
