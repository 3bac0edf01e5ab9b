package main

import (
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/stellarlinkco/rlgym/internal/config"
)

type cliState struct {
	configPath string
	cfg        *config.Config
}

var (
	osExit                 = os.Exit
	stderrWriter io.Writer = os.Stderr
)

func main() {
	_ = godotenv.Load()

	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(stderrWriter, err)
		osExit(1)
	}
}

func newRootCmd() *cobra.Command {
	st := &cliState{}

	root := &cobra.Command{
		Use:           "rlgym",
		Short:         "Run single-step RL episodes against an LLM policy",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&st.configPath, "config", "", "path to config file")

	root.AddCommand(newRunCmd(st))
	root.AddCommand(newHistoryCmd(st))
	root.AddCommand(newStrategiesCmd(st))
	return root
}

func (st *cliState) loadConfig() (*config.Config, error) {
	if st.cfg != nil {
		return st.cfg, nil
	}
	cfg, err := config.Load(st.configPath)
	if err != nil {
		return nil, err
	}
	st.cfg = cfg
	return cfg, nil
}
