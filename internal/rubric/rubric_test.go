package rubric

import "testing"

func TestDefault_VerificationOnly(t *testing.T) {
	r := Default()

	total, breakdown := r.Score(map[string]float64{
		ComponentExtraction:   1,
		ComponentVerification: 1,
	})
	if total != 1 {
		t.Fatalf("total: got %v want 1", total)
	}
	if breakdown[ComponentVerification] != 1 {
		t.Fatalf("verification contribution: got %v want 1", breakdown[ComponentVerification])
	}
	if breakdown[ComponentExtraction] != 0 {
		t.Fatalf("extraction contribution: got %v want 0", breakdown[ComponentExtraction])
	}
}

func TestScore_WeightedSum(t *testing.T) {
	r, err := New(map[string]float64{
		ComponentExtraction:   0.2,
		ComponentVerification: 0.8,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	total, breakdown := r.Score(map[string]float64{
		ComponentExtraction:   1,
		ComponentVerification: 0.5,
	})
	want := 0.2 + 0.8*0.5
	if total != want {
		t.Fatalf("total: got %v want %v", total, want)
	}

	sum := 0.0
	for _, v := range breakdown {
		sum += v
	}
	if sum != total {
		t.Fatalf("breakdown does not sum to total: %v vs %v", sum, total)
	}
}

func TestScore_IgnoresUnknownComponents(t *testing.T) {
	r := Default()
	total, breakdown := r.Score(map[string]float64{"style": 1})
	if total != 0 || len(breakdown) != 0 {
		t.Fatalf("unknown component scored: total=%v breakdown=%v", total, breakdown)
	}
}

func TestNew_RejectsBadWeights(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatalf("New: expected error for empty weights")
	}
	if _, err := New(map[string]float64{"x": -1}); err == nil {
		t.Fatalf("New: expected error for negative weight")
	}
}
