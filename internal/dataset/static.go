package dataset

import (
	"fmt"
	"math/rand"
	"strings"
)

// WrapPolicy controls what Sample does once a static dataset's cursor
// passes the last point.
type WrapPolicy int

const (
	// Exhaust makes Sample fail with ErrExhausted past the end.
	Exhaust WrapPolicy = iota
	// Wrap restarts the permutation from the beginning.
	Wrap
)

// Static is a finite ordered dataset with a seeded permutation and an
// internal cursor. Two Static datasets built from the same points and seed
// yield identical Sample sequences.
type Static struct {
	points []DataPoint
	perm   []int
	cursor int
	policy WrapPolicy
}

// NewStatic builds a static dataset from validated points. The permutation
// is fixed at construction from the seed.
func NewStatic(points []DataPoint, seed int64, policy WrapPolicy) (*Static, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: no datapoints", ErrValidation)
	}
	owned := make([]DataPoint, len(points))
	for i, p := range points {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("dataset: point %d: %w", i, err)
		}
		owned[i] = p
	}

	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(len(owned))

	return &Static{
		points: owned,
		perm:   perm,
		policy: policy,
	}, nil
}

// FromRecords builds a static dataset from heterogeneous records. Each
// record needs non-empty "question" and "final_answer" string fields; any
// upstream renaming happens before this call. "rationale" is optional and
// remaining keys are kept as metadata.
func FromRecords(records []map[string]any, seed int64, policy WrapPolicy) (*Static, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no records", ErrValidation)
	}

	points := make([]DataPoint, 0, len(records))
	for i, rec := range records {
		q, err := stringField(rec, "question")
		if err != nil {
			return nil, fmt.Errorf("dataset: record %d: %w", i, err)
		}
		a, err := stringField(rec, "final_answer")
		if err != nil {
			return nil, fmt.Errorf("dataset: record %d: %w", i, err)
		}

		p := DataPoint{Question: q, FinalAnswer: a}
		if r, ok := rec["rationale"].(string); ok {
			p.Rationale = strings.TrimSpace(r)
		}
		for k, v := range rec {
			switch k {
			case "question", "final_answer", "rationale":
				continue
			}
			if p.Metadata == nil {
				p.Metadata = make(map[string]any)
			}
			p.Metadata[k] = v
		}
		points = append(points, p)
	}

	return NewStatic(points, seed, policy)
}

// Len reports the number of points.
func (s *Static) Len() int {
	if s == nil {
		return 0
	}
	return len(s.points)
}

// At returns the point at index i under the seeded permutation.
func (s *Static) At(i int) (DataPoint, error) {
	if s == nil || i < 0 || i >= len(s.points) {
		return DataPoint{}, fmt.Errorf("dataset: index %d out of range", i)
	}
	return s.points[s.perm[i]], nil
}

// Sample returns the next point under the permutation, advancing the
// cursor. Past the end it wraps or fails depending on the policy.
func (s *Static) Sample() (DataPoint, error) {
	if s == nil || len(s.points) == 0 {
		return DataPoint{}, fmt.Errorf("%w: no datapoints", ErrValidation)
	}

	if s.cursor >= len(s.points) {
		if s.policy == Exhaust {
			return DataPoint{}, fmt.Errorf("%w: %d points consumed", ErrExhausted, len(s.points))
		}
		s.cursor = 0
	}

	p := s.points[s.perm[s.cursor]]
	s.cursor++
	return p, nil
}

func stringField(rec map[string]any, key string) (string, error) {
	v, ok := rec[key]
	if !ok {
		return "", fmt.Errorf("%w: missing %q", ErrValidation, key)
	}
	str, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %q: expected string, got %T", ErrValidation, key, v)
	}
	str = strings.TrimSpace(str)
	if str == "" {
		return "", fmt.Errorf("%w: empty %q", ErrValidation, key)
	}
	return str, nil
}
