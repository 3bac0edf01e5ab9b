package app

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stellarlinkco/rlgym/internal/env"
	"github.com/stellarlinkco/rlgym/internal/policy"
	"github.com/stellarlinkco/rlgym/internal/store"
)

// Runner drives episodes against a policy, persisting each completed
// episode to the store.
type Runner struct {
	env    *env.Env
	store  store.Store
	logger *zap.Logger
}

// RunSummary aggregates a batch of episodes.
type RunSummary struct {
	Episodes   int
	Passed     int
	MeanReward float64
}

// NewRunner builds a runner. A nil logger falls back to a no-op logger; a
// nil store disables persistence.
func NewRunner(e *env.Env, st store.Store, logger *zap.Logger) (*Runner, error) {
	if e == nil {
		return nil, errors.New("app: nil environment")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{env: e, store: st, logger: logger}, nil
}

// RunEpisode plays one full reset -> respond -> step cycle and records the
// outcome.
func (r *Runner) RunEpisode(ctx context.Context, p policy.Policy) (*store.EpisodeRecord, error) {
	if r == nil {
		return nil, errors.New("app: nil runner")
	}
	if p == nil {
		return nil, errors.New("app: nil policy")
	}

	obs, err := r.env.Reset(ctx)
	if err != nil {
		return nil, err
	}
	point, _ := r.env.Current()

	start := time.Now()
	response, err := p.Respond(ctx, string(obs))
	if err != nil {
		return nil, err
	}

	result, err := r.env.Step(ctx, env.Action{LLMResponse: response})
	if err != nil {
		return nil, err
	}

	rec := &store.EpisodeRecord{
		ID:          uuid.NewString(),
		Question:    point.Question,
		GroundTruth: point.FinalAnswer,
		RawResponse: response,
		Reward:      result.Reward,
		Breakdown:   result.RewardBreakdown,
		Policy:      p.Name(),
		LatencyMs:   time.Since(start).Milliseconds(),
		CreatedAt:   time.Now(),
	}
	if v, ok := result.Info["extracted"].(string); ok {
		rec.Extracted = v
	}
	if v, ok := result.Info["verifier_details"].(string); ok {
		rec.Details = v
	}
	if v, ok := result.Info["verifier_passed"].(bool); ok {
		rec.Passed = v
	}
	if v, ok := result.Info["failure"].(string); ok {
		rec.FailureKind = v
	}

	if r.store != nil {
		if err := r.store.SaveEpisode(ctx, rec); err != nil {
			return nil, err
		}
	}

	r.logger.Info("episode complete",
		zap.String("episode_id", rec.ID),
		zap.String("policy", rec.Policy),
		zap.Float64("reward", rec.Reward),
		zap.Bool("passed", rec.Passed),
		zap.String("failure", rec.FailureKind),
		zap.Int64("latency_ms", rec.LatencyMs),
	)
	return rec, nil
}

// RunEpisodes plays n sequential episodes. Setup and protocol errors stop
// the batch; scored failures do not.
func (r *Runner) RunEpisodes(ctx context.Context, p policy.Policy, n int) (*RunSummary, error) {
	if n <= 0 {
		n = 1
	}

	sum := &RunSummary{}
	var total float64
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		rec, err := r.RunEpisode(ctx, p)
		if err != nil {
			// An exhausted dataset ends the batch early; anything else
			// is a real fault.
			if errors.Is(err, env.ErrEmptyDataset) && sum.Episodes > 0 {
				break
			}
			return sum, err
		}

		sum.Episodes++
		total += rec.Reward
		if rec.Passed {
			sum.Passed++
		}
	}

	if sum.Episodes > 0 {
		sum.MeanReward = total / float64(sum.Episodes)
	}
	r.logger.Info("run complete",
		zap.Int("episodes", sum.Episodes),
		zap.Int("passed", sum.Passed),
		zap.Float64("mean_reward", sum.MeanReward),
	)
	return sum, nil
}
