package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stellarlinkco/rlgym/internal/app"
	"github.com/stellarlinkco/rlgym/internal/policy"
	"github.com/stellarlinkco/rlgym/internal/store"
)

func newRunCmd(st *cliState) *cobra.Command {
	var (
		episodes   int
		policyName string
		response   string
		noStore    bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run episodes against the configured policy",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := st.loadConfig()
			if err != nil {
				return err
			}

			logger, err := zap.NewProduction()
			if err != nil {
				return fmt.Errorf("rlgym: init logger: %w", err)
			}
			defer logger.Sync()

			ctx := cmd.Context()

			var p policy.Policy
			if strings.TrimSpace(response) != "" {
				p = policy.Echo(response)
			} else {
				if policyName != "" {
					cfg.Policy.DefaultProvider = policyName
				}
				p, err = policy.DefaultFromConfig(cfg)
				if err != nil {
					return err
				}
			}

			e, err := app.BuildEnv(ctx, cfg)
			if err != nil {
				return err
			}
			if err := e.Setup(ctx); err != nil {
				return err
			}
			defer e.Close()

			var db store.Store
			if !noStore {
				db, err = store.Open(cfg.Storage)
				if err != nil {
					return err
				}
				defer db.Close()
			}

			runner, err := app.NewRunner(e, db, logger)
			if err != nil {
				return err
			}

			sum, err := runner.RunEpisodes(ctx, p, episodes)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "episodes:    %d\n", sum.Episodes)
			fmt.Fprintf(out, "passed:      %d\n", sum.Passed)
			fmt.Fprintf(out, "mean reward: %.3f\n", sum.MeanReward)
			return nil
		},
	}

	cmd.Flags().IntVarP(&episodes, "episodes", "n", 1, "number of episodes to run")
	cmd.Flags().StringVar(&policyName, "policy", "", "policy provider name (overrides config default)")
	cmd.Flags().StringVar(&response, "response", "", "score this fixed response instead of calling a provider")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "skip persisting episodes")
	return cmd
}
