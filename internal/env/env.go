// Package env implements the single-step episode state machine: one reset
// draws a question, one step scores the policy's response and terminates.
package env

import (
	"context"
	"errors"
	"fmt"

	"github.com/stellarlinkco/rlgym/internal/dataset"
	"github.com/stellarlinkco/rlgym/internal/extract"
	"github.com/stellarlinkco/rlgym/internal/rubric"
	"github.com/stellarlinkco/rlgym/internal/verify"
)

var (
	// ErrEmptyDataset reports that Reset could not draw a datapoint.
	ErrEmptyDataset = errors.New("env: dataset cannot supply a datapoint")
	// ErrNoActiveEpisode reports a Step without a preceding Reset.
	ErrNoActiveEpisode = errors.New("env: no active episode")
)

// TerminalObservation is surfaced after a step, when no further decision
// remains for the policy.
const TerminalObservation = "episode complete"

// Observation is the text surfaced to the policy at a decision point.
type Observation string

// Action wraps the policy's raw textual response.
type Action struct {
	LLMResponse string
}

// StepResult is the terminal outcome of one episode.
type StepResult struct {
	Observation     Observation
	Reward          float64
	RewardBreakdown map[string]float64
	Done            bool
	Info            map[string]any
}

// Env orchestrates dataset -> extraction -> verification -> reward for
// single-step episodes. Reset and Step mutate shared episode state and
// must be sequenced by the caller.
type Env struct {
	sampler   dataset.Sampler
	extractor *extract.Extractor
	verifier  *verify.Verifier
	rubric    *rubric.Rubric

	current *dataset.DataPoint
	done    bool
}

// New builds an environment over its three collaborators. A nil rubric
// falls back to the default verification-only weighting.
func New(s dataset.Sampler, ex *extract.Extractor, vf *verify.Verifier, rb *rubric.Rubric) (*Env, error) {
	if s == nil {
		return nil, errors.New("env: nil sampler")
	}
	if ex == nil {
		return nil, errors.New("env: nil extractor")
	}
	if vf == nil {
		return nil, errors.New("env: nil verifier")
	}
	if rb == nil {
		rb = rubric.Default()
	}
	return &Env{sampler: s, extractor: ex, verifier: vf, rubric: rb}, nil
}

// Setup initializes the extractor and the verifier's isolated execution
// context. It must succeed before the first episode.
func (e *Env) Setup(ctx context.Context) error {
	if e == nil {
		return errors.New("env: nil environment")
	}
	if err := e.extractor.Setup(); err != nil {
		return err
	}
	if err := e.verifier.Setup(ctx); err != nil {
		_ = e.extractor.Teardown()
		return err
	}
	return nil
}

// Close releases extractor and verifier resources.
func (e *Env) Close() error {
	if e == nil {
		return nil
	}
	err := e.extractor.Teardown()
	if verr := e.verifier.Teardown(); err == nil {
		err = verr
	}
	return err
}

// Reset starts a new episode, silently discarding any active one. It
// returns the drawn question as the observation.
func (e *Env) Reset(ctx context.Context) (Observation, error) {
	if e == nil {
		return "", errors.New("env: nil environment")
	}
	if ctx == nil {
		return "", errors.New("env: nil context")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	p, err := e.sampler.Sample()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEmptyDataset, err)
	}

	e.current = &p
	e.done = false
	return Observation(p.Question), nil
}

// Step consumes the policy's action, scores it and concludes the episode.
// A missing extraction is a zero-reward outcome, not an error, and skips
// the verifier entirely. Exactly one Step is meaningful per Reset.
func (e *Env) Step(ctx context.Context, action Action) (*StepResult, error) {
	if e == nil {
		return nil, errors.New("env: nil environment")
	}
	if ctx == nil {
		return nil, errors.New("env: nil context")
	}
	if e.current == nil || e.done {
		return nil, ErrNoActiveEpisode
	}

	info := map[string]any{
		"question":     e.current.Question,
		"ground_truth": e.current.FinalAnswer,
		"raw_response": action.LLMResponse,
	}

	extracted, ok, err := e.extractor.Extract(action.LLMResponse)
	if err != nil {
		return nil, err
	}
	info["extracted"] = extracted

	if !ok {
		e.done = true
		info["failure"] = "no_extraction"
		return &StepResult{
			Observation:     TerminalObservation,
			Reward:          0,
			RewardBreakdown: map[string]float64{rubric.ComponentExtraction: 0},
			Done:            true,
			Info:            info,
		}, nil
	}

	res, err := e.verifier.Verify(ctx, extracted, e.current.FinalAnswer)
	if err != nil {
		return nil, err
	}

	e.done = true
	total, breakdown := e.rubric.Score(map[string]float64{
		rubric.ComponentExtraction:   1,
		rubric.ComponentVerification: res.Score,
	})

	info["verifier_details"] = res.Details
	info["verifier_passed"] = res.Passed
	if res.FailureKind != "" {
		info["failure"] = res.FailureKind
	}

	return &StepResult{
		Observation:     TerminalObservation,
		Reward:          total,
		RewardBreakdown: breakdown,
		Done:            true,
		Info:            info,
	}, nil
}

// Active reports whether an episode is awaiting its step.
func (e *Env) Active() bool {
	return e != nil && e.current != nil && !e.done
}

// Current returns the datapoint of the episode in progress, if any.
func (e *Env) Current() (dataset.DataPoint, bool) {
	if e == nil || e.current == nil {
		return dataset.DataPoint{}, false
	}
	return *e.current, true
}
