package cmd

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"github.com/planjudge/planjudge/internal/config"
	"github.com/planjudge/planjudge/internal/corpus"
	"github.com/planjudge/planjudge/internal/report"
)

var flagEvalIDs string

func newEvalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval <predictions.json>",
		Short: "Score a predictions file against corpus reference answers",
		Args:  cobra.ExactArgs(1),
		RunE:  runEval,
	}
	cmd.Flags().StringVar(&flagEvalIDs, "ids", "", "comma-separated problem ids to evaluate (default: all predicted)")
	return cmd
}

func runEval(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	preds, err := report.LoadPredictions(args[0])
	if err != nil {
		return err
	}
	corp, err := corpus.Load(cfg.CorpusFile)
	if err != nil {
		return err
	}

	keep := map[string]bool{}
	if flagEvalIDs != "" {
		for _, id := range strings.Split(flagEvalIDs, ",") {
			keep[strings.TrimSpace(id)] = true
		}
	}

	var problems []corpus.Problem
	for id := range preds {
		if len(keep) > 0 && !keep[id] {
			continue
		}
		p, ok := corp.Lookup(id)
		if !ok {
			log.Printf("warning: prediction for unknown problem %q", id)
			continue
		}
		problems = append(problems, p)
	}
	if len(problems) == 0 {
		return fmt.Errorf("no predictions match the corpus")
	}

	summary := report.Score(preds, problems, report.ExactMatch)
	fmt.Printf("%d/%d passed (%.0f%%)\n", summary.Passed, summary.Total, summary.PassRate*100)
	if len(summary.Failing) > 0 {
		fmt.Printf("failing: %s\n", strings.Join(summary.Failing, ", "))
		return fmt.Errorf("%d prediction(s) failed", len(summary.Failing))
	}
	return nil
}
