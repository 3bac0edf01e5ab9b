package dataset

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation reports malformed input data at construction time.
	ErrValidation = errors.New("dataset: validation failed")
	// ErrExhausted reports a static dataset whose cursor passed the end
	// under the non-wrapping policy.
	ErrExhausted = errors.New("dataset: exhausted")
)

// DataPoint is one question/ground-truth pair. Question and FinalAnswer are
// always non-empty once a DataPoint has been accepted into a dataset.
type DataPoint struct {
	Question    string
	FinalAnswer string
	Rationale   string
	Metadata    map[string]any
}

// Validate checks that the required fields are non-empty.
func (p DataPoint) Validate() error {
	if strings.TrimSpace(p.Question) == "" {
		return fmt.Errorf("%w: empty question", ErrValidation)
	}
	if strings.TrimSpace(p.FinalAnswer) == "" {
		return fmt.Errorf("%w: empty final_answer", ErrValidation)
	}
	return nil
}

// Sampler supplies datapoints one at a time. Static datasets advance a
// seeded cursor; generator datasets synthesize a fresh point per call.
type Sampler interface {
	Sample() (DataPoint, error)
}

// Sized is the optional capability of samplers with a known length.
type Sized interface {
	Len() int
}
