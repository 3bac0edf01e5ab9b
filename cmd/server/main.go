package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/stellarlinkco/rlgym/api"
	"github.com/stellarlinkco/rlgym/internal/app"
	"github.com/stellarlinkco/rlgym/internal/config"
	"github.com/stellarlinkco/rlgym/internal/policy"
	"github.com/stellarlinkco/rlgym/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("RLGYM_CONFIG"))
	if err != nil {
		return err
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("server: init logger: %w", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	e, err := app.BuildEnv(ctx, cfg)
	if err != nil {
		return err
	}
	if err := e.Setup(ctx); err != nil {
		return err
	}
	defer e.Close()

	db, err := store.Open(cfg.Storage)
	if err != nil {
		return err
	}
	defer db.Close()

	runner, err := app.NewRunner(e, db, logger)
	if err != nil {
		return err
	}

	policies, err := policy.NewRegistryFromConfig(cfg)
	if err != nil {
		return err
	}

	srv, err := api.NewServer(cfg, runner, db, policies, logger)
	if err != nil {
		return err
	}

	logger.Info("listening", zap.String("addr", cfg.Server.Addr))
	return srv.Run(cfg.Server.Addr)
}
