package extract

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSetup reports a failed resource acquisition during Setup.
	ErrSetup = errors.New("extract: setup failed")
	// ErrNotReady reports use of an extractor outside its ready state.
	ErrNotReady = errors.New("extract: extractor not ready")
)

type state int

const (
	stateUninitialized state = iota
	stateReady
	stateTornDown
)

// Group is an ordered unit of fallback strategies. Within a group the first
// strategy that matches wins.
type Group struct {
	Name       string
	Strategies []Strategy
}

// Extractor applies groups of strategies in declared priority order and
// returns the canonical value from the first group that produces one. It
// must be Setup before first use and torn down when no longer needed.
type Extractor struct {
	groups []Group
	st     state
}

// New builds an extractor from ordered groups.
func New(groups ...Group) (*Extractor, error) {
	if len(groups) == 0 {
		return nil, errors.New("extract: no groups")
	}
	for _, g := range groups {
		if len(g.Strategies) == 0 {
			return nil, fmt.Errorf("extract: group %q has no strategies", g.Name)
		}
	}
	return &Extractor{groups: groups}, nil
}

// Default returns the standard extractor: boxed answers first, tagged
// answers next. Only delimiter-wrapped content extracts, so a response
// that merely mentions a number stays a no-match and never reaches the
// verifier. Lenient chains with the bare-number fallback are opt-in
// through FromNames.
func Default() (*Extractor, error) {
	return New(
		Group{Name: "delimited", Strategies: []Strategy{
			BoxedStrategy{},
			NewAnswerTagStrategy(),
		}},
	)
}

// Setup initializes every strategy that holds resources. A failure midway
// rolls back the strategies already set up, in reverse order.
func (e *Extractor) Setup() error {
	if e == nil {
		return fmt.Errorf("%w: nil extractor", ErrSetup)
	}
	if e.st == stateReady {
		return nil
	}
	if e.st == stateTornDown {
		return fmt.Errorf("%w: extractor torn down", ErrSetup)
	}

	var done []Initializer
	for _, g := range e.groups {
		for _, s := range g.Strategies {
			init, ok := s.(Initializer)
			if !ok {
				continue
			}
			if err := init.Setup(); err != nil {
				for i := len(done) - 1; i >= 0; i-- {
					_ = done[i].Teardown()
				}
				return fmt.Errorf("%w: strategy %q: %v", ErrSetup, s.Name(), err)
			}
			done = append(done, init)
		}
	}

	e.st = stateReady
	return nil
}

// Teardown releases strategy resources. Safe to call more than once.
func (e *Extractor) Teardown() error {
	if e == nil || e.st != stateReady {
		return nil
	}

	var firstErr error
	for _, g := range e.groups {
		for _, s := range g.Strategies {
			if init, ok := s.(Initializer); ok {
				if err := init.Teardown(); err != nil && firstErr == nil {
					firstErr = fmt.Errorf("extract: teardown %q: %w", s.Name(), err)
				}
			}
		}
	}

	e.st = stateTornDown
	return firstErr
}

// Extract runs the groups in priority order. No match is a normal outcome
// reported as ok=false; the only error is lifecycle misuse.
func (e *Extractor) Extract(response string) (string, bool, error) {
	if e == nil || e.st != stateReady {
		return "", false, ErrNotReady
	}

	for _, g := range e.groups {
		for _, s := range g.Strategies {
			if v, ok := s.Extract(response); ok {
				return v, true, nil
			}
		}
	}
	return "", false, nil
}

// StrategyNames lists the configured strategies per group, in order.
func (e *Extractor) StrategyNames() []string {
	if e == nil {
		return nil
	}
	var out []string
	for _, g := range e.groups {
		for _, s := range g.Strategies {
			name := s.Name()
			if g.Name != "" {
				name = g.Name + "/" + name
			}
			out = append(out, name)
		}
	}
	return out
}

// FromNames builds groups from configured strategy names. Each outer slice
// element is one group.
func FromNames(groups [][]string) (*Extractor, error) {
	if len(groups) == 0 {
		return Default()
	}

	built := make([]Group, 0, len(groups))
	for i, names := range groups {
		g := Group{Name: fmt.Sprintf("group%d", i+1)}
		for _, name := range names {
			s, err := strategyByName(name)
			if err != nil {
				return nil, err
			}
			g.Strategies = append(g.Strategies, s)
		}
		built = append(built, g)
	}
	return New(built...)
}

func strategyByName(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "boxed":
		return BoxedStrategy{}, nil
	case "answer_tag", "tag_answer", "xml_answer":
		return NewAnswerTagStrategy(), nil
	case "last_number":
		return LastNumberStrategy{}, nil
	case "code_fence":
		return CodeFenceStrategy{}, nil
	default:
		return nil, fmt.Errorf("extract: unknown strategy %q", name)
	}
}
