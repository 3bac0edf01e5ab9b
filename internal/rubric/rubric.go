// Package rubric aggregates per-component reward scores into a single
// scalar reward plus an auditable breakdown.
package rubric

import (
	"errors"
	"fmt"
	"strings"
)

// Component names used by the default rubric.
const (
	ComponentExtraction   = "extraction"
	ComponentVerification = "verification"
)

// Rubric is a set of named, weighted reward components. The total reward
// is the weighted sum of the component scores supplied at scoring time;
// components without a score contribute zero.
type Rubric struct {
	weights map[string]float64
}

// New builds a rubric from component weights. Weights must be
// non-negative; at least one component is required.
func New(weights map[string]float64) (*Rubric, error) {
	if len(weights) == 0 {
		return nil, errors.New("rubric: no components")
	}

	r := &Rubric{weights: make(map[string]float64, len(weights))}
	for name, w := range weights {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, errors.New("rubric: empty component name")
		}
		if w < 0 {
			return nil, fmt.Errorf("rubric: component %q has negative weight %v", name, w)
		}
		r.weights[name] = w
	}
	return r, nil
}

// Default weighs verification alone: extraction success carries no reward
// of its own.
func Default() *Rubric {
	r, _ := New(map[string]float64{
		ComponentExtraction:   0,
		ComponentVerification: 1,
	})
	return r
}

// Score combines component scores into a total reward and a per-component
// breakdown. The breakdown holds weighted contributions and always sums to
// the total; zero-weight components are left out since they cannot
// contribute.
func (r *Rubric) Score(scores map[string]float64) (total float64, breakdown map[string]float64) {
	breakdown = make(map[string]float64, len(scores))
	if r == nil {
		return 0, breakdown
	}
	for name, s := range scores {
		w, ok := r.weights[name]
		if !ok || w == 0 {
			continue
		}
		contribution := w * s
		breakdown[name] = contribution
		total += contribution
	}
	return total, breakdown
}

// Weight reports the configured weight for a component.
func (r *Rubric) Weight(name string) (float64, bool) {
	if r == nil {
		return 0, false
	}
	w, ok := r.weights[name]
	return w, ok
}
