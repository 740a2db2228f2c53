package cmd

import (
	"github.com/spf13/cobra"
)

var cfgFile string

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "planjudge",
		Short: "Run/judge orchestration for LLM plan evaluation",
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config override file (built-in defaults when empty)")
	root.AddCommand(newRunCmd())
	root.AddCommand(newJudgeCmd())
	root.AddCommand(newEvalCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newReportCmd())
	return root
}
