package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stellarlinkco/rlgym/internal/store"
)

func newHistoryCmd(st *cliState) *cobra.Command {
	var (
		limit      int
		policyName string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded episodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := st.loadConfig()
			if err != nil {
				return err
			}

			db, err := store.Open(cfg.Storage)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := cmd.Context()
			episodes, err := db.ListEpisodes(ctx, store.EpisodeFilter{Policy: policyName, Limit: limit})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(episodes) == 0 {
				fmt.Fprintln(out, "no episodes recorded")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tPOLICY\tREWARD\tPASSED\tFAILURE\tWHEN")
			for _, ep := range episodes {
				fmt.Fprintf(w, "%s\t%s\t%.3f\t%v\t%s\t%s\n",
					ep.ID, ep.Policy, ep.Reward, ep.Passed, ep.FailureKind,
					ep.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			if err := w.Flush(); err != nil {
				return err
			}

			sum, err := db.Summarize(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "\n%d episodes, %d passed, mean reward %.3f\n",
				sum.Episodes, sum.Passed, sum.MeanReward)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum episodes to list")
	cmd.Flags().StringVar(&policyName, "policy", "", "filter by policy name")
	return cmd
}
