package verify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/stellarlinkco/rlgym/internal/extract"
)

var (
	// ErrSetup reports that the isolated execution context could not be
	// created. Fatal: no episode may proceed to reward computation.
	ErrSetup = errors.New("verify: setup failed")
	// ErrNotReady reports use of a verifier outside its ready state.
	ErrNotReady = errors.New("verify: verifier not ready")
	// ErrEmptyResponse reports a Verify call with nothing to compare. The
	// environment filters these out before the sandbox is ever invoked.
	ErrEmptyResponse = errors.New("verify: empty extracted response")
)

// Failure kinds surfaced in Result.FailureKind and step info.
const (
	FailTimeout   = "timeout"
	FailExecution = "execution"
)

// Result is the verdict of one comparison run.
type Result struct {
	Passed      bool
	Score       float64 // 0.0 - 1.0
	Details     string
	FailureKind string // empty, FailTimeout or FailExecution
}

// Config selects the isolation backend and its limits.
type Config struct {
	Backend     string        // "yaegi" (default) or "python"
	Timeout     time.Duration // wall clock per Verify, default 5s
	SandboxMode string        // python backend: "docker", "host" or "disabled"
	MemoryMB    int           // docker memory limit, default 128
	CPUs        float64       // docker cpu limit, default 0.5
	Program     string        // comparison source, backend default when empty
}

type state int

const (
	stateUninitialized state = iota
	stateReady
	stateTornDown
)

// runner is the isolation boundary. run executes the comparison program
// against two canonical values; a false verdict is not an error.
type runner interface {
	setup(ctx context.Context) error
	run(ctx context.Context, response, truth string) (passed bool, details string, err error)
	teardown() error
}

// Verifier executes untrusted comparison logic in an isolated context and
// converts the outcome into a structured verdict. Safe to reuse across
// sequential episodes once Setup has succeeded.
type Verifier struct {
	cfg Config
	run runner

	mu sync.Mutex
	st state
}

// New builds a verifier from config. The execution context is not acquired
// until Setup.
func New(cfg Config) (*Verifier, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	var r runner
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "yaegi":
		cfg.Backend = "yaegi"
		r = newYaegiRunner(cfg.Program)
	case "python":
		pr, err := newPythonRunner(cfg)
		if err != nil {
			return nil, err
		}
		r = pr
	default:
		return nil, fmt.Errorf("verify: unknown backend %q", cfg.Backend)
	}

	return &Verifier{cfg: cfg, run: r}, nil
}

// Setup acquires the isolated execution context and probes that it can run
// the configured comparison program.
func (v *Verifier) Setup(ctx context.Context) error {
	if v == nil {
		return fmt.Errorf("%w: nil verifier", ErrSetup)
	}
	if ctx == nil {
		return fmt.Errorf("%w: nil context", ErrSetup)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	switch v.st {
	case stateReady:
		return nil
	case stateTornDown:
		return fmt.Errorf("%w: verifier torn down", ErrSetup)
	}

	if err := v.run.setup(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrSetup, err)
	}
	v.st = stateReady
	return nil
}

// Teardown releases the execution context. Safe to call more than once.
func (v *Verifier) Teardown() error {
	if v == nil {
		return nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.st != stateReady {
		v.st = stateTornDown
		return nil
	}
	v.st = stateTornDown
	return v.run.teardown()
}

// Verify compares an extracted response against the ground truth inside
// the isolated context. Both sides get the same canonicalization, so a
// truth that is itself boxed compares against an unwrapped response.
// Timeouts and comparison-program crashes come back as failed verdicts,
// never as errors: they are episode outcomes, not caller faults.
func (v *Verifier) Verify(ctx context.Context, extracted, groundTruth string) (*Result, error) {
	if v == nil {
		return nil, ErrNotReady
	}
	if ctx == nil {
		return nil, errors.New("verify: nil context")
	}
	if strings.TrimSpace(extracted) == "" {
		return nil, ErrEmptyResponse
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.st != stateReady {
		return nil, ErrNotReady
	}

	response := extract.CanonicalAnswer(extracted)
	truth := extract.CanonicalAnswer(groundTruth)

	runCtx, cancel := context.WithTimeout(ctx, v.cfg.Timeout)
	defer cancel()

	passed, details, err := v.run.run(runCtx, response, truth)
	if runCtx.Err() != nil {
		// A timed-out context must never be reused: drop it and acquire
		// a fresh one so the next episode starts clean.
		_ = v.run.teardown()
		v.st = stateUninitialized
		if rerr := v.recover(ctx); rerr != nil {
			return nil, rerr
		}
		return &Result{
			Passed:      false,
			Score:       0,
			Details:     fmt.Sprintf("comparison timed out after %s", v.cfg.Timeout),
			FailureKind: FailTimeout,
		}, nil
	}
	if err != nil {
		return &Result{
			Passed:      false,
			Score:       0,
			Details:     err.Error(),
			FailureKind: FailExecution,
		}, nil
	}

	res := &Result{Passed: passed, Details: details}
	if passed {
		res.Score = 1
	}
	return res, nil
}

// AbandonedExecutions reports how many timed-out comparisons are still
// running detached from any episode. Only the in-process backend can leak
// executions this way; a growing count on a long-running job means the
// comparison program does not terminate.
func (v *Verifier) AbandonedExecutions() int64 {
	if v == nil {
		return 0
	}
	if c, ok := v.run.(interface{ abandoned() int64 }); ok {
		return c.abandoned()
	}
	return 0
}

func (v *Verifier) recover(ctx context.Context) error {
	if err := v.run.setup(ctx); err != nil {
		return fmt.Errorf("%w: recreate after timeout: %v", ErrSetup, err)
	}
	v.st = stateReady
	return nil
}
