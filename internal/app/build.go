// Package app wires configuration into a runnable environment and drives
// episodes against a policy.
package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/stellarlinkco/rlgym/internal/config"
	"github.com/stellarlinkco/rlgym/internal/dataset"
	"github.com/stellarlinkco/rlgym/internal/env"
	"github.com/stellarlinkco/rlgym/internal/extract"
	"github.com/stellarlinkco/rlgym/internal/rubric"
	"github.com/stellarlinkco/rlgym/internal/verify"
)

// BuildEnv assembles dataset, extractor, verifier and rubric from config.
// The returned environment is not yet set up.
func BuildEnv(ctx context.Context, cfg *config.Config) (*env.Env, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config")
	}

	sampler, err := buildSampler(ctx, cfg.Dataset)
	if err != nil {
		return nil, err
	}

	extractor, err := extract.FromNames(cfg.Extractor.Groups)
	if err != nil {
		return nil, err
	}

	verifier, err := buildVerifier(cfg.Verifier)
	if err != nil {
		return nil, err
	}

	var rb *rubric.Rubric
	if len(cfg.Rewards) > 0 {
		rb, err = rubric.New(cfg.Rewards)
		if err != nil {
			return nil, err
		}
	}

	return env.New(sampler, extractor, verifier, rb)
}

func buildSampler(ctx context.Context, cfg config.DatasetConfig) (dataset.Sampler, error) {
	policy := dataset.Exhaust
	if cfg.Wrap {
		policy = dataset.Wrap
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Source)) {
	case "", "generator":
		return dataset.NewGenerator(cfg.Seed), nil
	case "jsonl":
		return dataset.LoadJSONL(ctx, cfg.Path, cfg.Seed, policy)
	default:
		return nil, fmt.Errorf("app: unknown dataset source %q", cfg.Source)
	}
}

func buildVerifier(cfg config.VerifierConfig) (*verify.Verifier, error) {
	vcfg := verify.Config{
		Backend:     cfg.Backend,
		Timeout:     cfg.Timeout,
		SandboxMode: cfg.SandboxMode,
		MemoryMB:    cfg.MemoryMB,
		CPUs:        cfg.CPUs,
	}

	if path := strings.TrimSpace(cfg.ProgramPath); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("app: read comparison program %q: %w", path, err)
		}
		vcfg.Program = string(b)
	}

	return verify.New(vcfg)
}
