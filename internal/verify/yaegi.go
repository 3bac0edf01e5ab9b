package verify

import (
	"context"
	"fmt"
	"go/parser"
	"go/token"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// The yaegi backend interprets a Go comparison program in-process. Each run
// gets a fresh interpreter, so nothing leaks across calls, and imports are
// restricted to a small stdlib whitelist: no filesystem, exec or network
// access from comparison code.

const defaultGoProgram = `
import (
	"strconv"
	"strings"
)

func Compare(response, truth string) (bool, error) {
	a := strings.TrimSpace(response)
	b := strings.TrimSpace(truth)
	if a == b {
		return true, nil
	}

	fa, errA := strconv.ParseFloat(strings.ReplaceAll(a, ",", ""), 64)
	fb, errB := strconv.ParseFloat(strings.ReplaceAll(b, ",", ""), 64)
	if errA != nil || errB != nil {
		return false, nil
	}
	d := fa - fb
	if d < 0 {
		d = -d
	}
	return d < 1e-9, nil
}
`

var yaegiAllowedImports = map[string]bool{
	"strings":       true,
	"strconv":       true,
	"fmt":           true,
	"math":          true,
	"regexp":        true,
	"sort":          true,
	"unicode":       true,
	"encoding/json": true,
}

type yaegiRunner struct {
	program string
	dropped atomic.Int64
}

func newYaegiRunner(program string) *yaegiRunner {
	if strings.TrimSpace(program) == "" {
		program = defaultGoProgram
	}
	return &yaegiRunner{program: program}
}

// setup validates imports and compiles the program once in a throwaway
// interpreter, so a broken comparison program fails before any episode.
func (r *yaegiRunner) setup(ctx context.Context) error {
	if err := r.validateImports(); err != nil {
		return err
	}
	if _, err := r.compile(); err != nil {
		return err
	}
	return ctx.Err()
}

func (r *yaegiRunner) teardown() error { return nil }

func (r *yaegiRunner) run(ctx context.Context, response, truth string) (bool, string, error) {
	compare, err := r.compile()
	if err != nil {
		return false, "", err
	}

	type outcome struct {
		passed bool
		err    error
	}
	ch := make(chan outcome, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				ch <- outcome{err: fmt.Errorf("comparison panicked: %v", rec)}
			}
		}()
		passed, err := compare(response, truth)
		ch <- outcome{passed: passed, err: err}
	}()

	select {
	case out := <-ch:
		if out.err != nil {
			return false, "", out.err
		}
		details := "values differ"
		if out.passed {
			details = "values match"
		}
		return out.passed, details, nil
	case <-ctx.Done():
		// The interpreter cannot be interrupted mid-evaluation: the
		// goroutine is abandoned with its interpreter and keeps running
		// until the comparison returns. Nothing it computes is observed,
		// but a comparison that never returns pins a goroutine for the
		// life of the process, so abandonments are counted for callers
		// to alert on.
		r.dropped.Add(1)
		return false, "", ctx.Err()
	}
}

func (r *yaegiRunner) abandoned() int64 { return r.dropped.Load() }

func (r *yaegiRunner) source() string {
	if strings.Contains(r.program, "package ") {
		return r.program
	}
	return "package main\n\n" + r.program
}

func (r *yaegiRunner) compile() (func(string, string) (bool, error), error) {
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("yaegi: load stdlib: %w", err)
	}

	if _, err := i.Eval(r.source()); err != nil {
		return nil, fmt.Errorf("yaegi: compile comparison program: %w", err)
	}

	v, err := i.Eval("main.Compare")
	if err != nil {
		return nil, fmt.Errorf("yaegi: comparison program must define Compare: %w", err)
	}
	fn, ok := v.Interface().(func(string, string) (bool, error))
	if !ok {
		return nil, fmt.Errorf("yaegi: Compare must be func(string, string) (bool, error), got %T", v.Interface())
	}
	return fn, nil
}

// validateImports parses the program and checks every import declaration,
// aliased and blank ones included, against the whitelist.
func (r *yaegiRunner) validateImports() error {
	f, err := parser.ParseFile(token.NewFileSet(), "compare.go", r.source(), parser.ImportsOnly)
	if err != nil {
		return fmt.Errorf("yaegi: parse comparison program: %w", err)
	}
	for _, imp := range f.Imports {
		path, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			return fmt.Errorf("yaegi: malformed import path %s", imp.Path.Value)
		}
		if !yaegiAllowedImports[path] {
			return fmt.Errorf("yaegi: import %q not allowed in comparison code", path)
		}
	}
	return nil
}
