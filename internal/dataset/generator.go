package dataset

import (
	"fmt"
	"math/rand"
)

// Generator is an unbounded dataset that synthesizes arithmetic word
// problems on demand. State advances monotonically with each Sample and is
// owned by the instance, never process-wide.
type Generator struct {
	rng   *rand.Rand
	count int
}

// NewGenerator creates a generator dataset with its own PRNG state.
func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Sample synthesizes a fresh question/answer pair. It never exhausts.
func (g *Generator) Sample() (DataPoint, error) {
	if g == nil || g.rng == nil {
		return DataPoint{}, fmt.Errorf("%w: nil generator", ErrValidation)
	}

	a := g.rng.Intn(90) + 10
	b := g.rng.Intn(90) + 10
	g.count++

	var question string
	var answer int
	switch g.rng.Intn(3) {
	case 0:
		question = fmt.Sprintf("What is %d + %d?", a, b)
		answer = a + b
	case 1:
		if a < b {
			a, b = b, a
		}
		question = fmt.Sprintf("What is %d - %d?", a, b)
		answer = a - b
	default:
		question = fmt.Sprintf("What is %d * %d?", a, b)
		answer = a * b
	}

	return DataPoint{
		Question:    question,
		FinalAnswer: fmt.Sprintf("\\boxed{%d}", answer),
		Metadata: map[string]any{
			"synthetic": true,
			"sequence":  g.count,
		},
	}, nil
}
