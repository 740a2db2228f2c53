package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/planjudge/planjudge/internal/config"
	"github.com/planjudge/planjudge/internal/corpus"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List model aliases and corpus problems",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Println("Models:")
			aliases := make([]string, 0, len(cfg.Models))
			for alias := range cfg.Models {
				aliases = append(aliases, alias)
			}
			sort.Strings(aliases)
			for _, alias := range aliases {
				fmt.Printf("  - %s -> %s\n", alias, cfg.Models[alias])
			}

			corp, err := corpus.Load(cfg.CorpusFile)
			if err != nil {
				return err
			}
			fmt.Printf("\nProblems (%d):\n", corp.Len())
			for i, p := range corp.All() {
				fmt.Printf("  %3d  %s\n", i, p.ID)
			}
			return nil
		},
	}
}
