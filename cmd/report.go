package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/planjudge/planjudge/internal/report"
	"github.com/planjudge/planjudge/internal/result"
)

var flagFormat string

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <judgments.json>",
		Short: "Render a stored judgment artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			js, err := result.ReadJudgments(args[0])
			if err != nil {
				return err
			}
			return report.Render(js, flagFormat, os.Stdout)
		},
	}
	cmd.Flags().StringVar(&flagFormat, "format", "table", "output format (table, markdown, json)")
	return cmd
}
