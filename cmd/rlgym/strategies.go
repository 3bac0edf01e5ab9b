package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stellarlinkco/rlgym/internal/extract"
)

func newStrategiesCmd(st *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "strategies",
		Short: "List the configured extraction strategies in priority order",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := st.loadConfig()
			if err != nil {
				return err
			}

			e, err := extract.FromNames(cfg.Extractor.Groups)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, name := range e.StrategyNames() {
				fmt.Fprintln(out, name)
			}
			return nil
		},
	}
}
