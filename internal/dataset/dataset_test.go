package dataset

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func testPoints(n int) []DataPoint {
	out := make([]DataPoint, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, DataPoint{
			Question:    string(rune('a' + i)),
			FinalAnswer: string(rune('A' + i)),
		})
	}
	return out
}

func TestStatic_SeededOrderIsReproducible(t *testing.T) {
	points := testPoints(8)

	first, err := NewStatic(points, 42, Exhaust)
	if err != nil {
		t.Fatalf("NewStatic: %v", err)
	}
	second, err := NewStatic(points, 42, Exhaust)
	if err != nil {
		t.Fatalf("NewStatic: %v", err)
	}

	for i := 0; i < len(points); i++ {
		a, err := first.Sample()
		if err != nil {
			t.Fatalf("first.Sample %d: %v", i, err)
		}
		b, err := second.Sample()
		if err != nil {
			t.Fatalf("second.Sample %d: %v", i, err)
		}
		if a.Question != b.Question {
			t.Fatalf("sample %d diverged: %q vs %q", i, a.Question, b.Question)
		}
	}
}

func TestStatic_DifferentSeedsPermuteDifferently(t *testing.T) {
	points := testPoints(16)

	a, err := NewStatic(points, 1, Exhaust)
	if err != nil {
		t.Fatalf("NewStatic: %v", err)
	}
	b, err := NewStatic(points, 2, Exhaust)
	if err != nil {
		t.Fatalf("NewStatic: %v", err)
	}

	same := true
	for i := 0; i < len(points); i++ {
		pa, _ := a.Sample()
		pb, _ := b.Sample()
		if pa.Question != pb.Question {
			same = false
			break
		}
	}
	if same {
		t.Fatalf("seeds 1 and 2 produced identical permutations of %d points", len(points))
	}
}

func TestStatic_ExhaustPolicy(t *testing.T) {
	ds, err := NewStatic(testPoints(2), 7, Exhaust)
	if err != nil {
		t.Fatalf("NewStatic: %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := ds.Sample(); err != nil {
			t.Fatalf("Sample %d: %v", i, err)
		}
	}
	if _, err := ds.Sample(); !errors.Is(err, ErrExhausted) {
		t.Fatalf("Sample past end: got %v want ErrExhausted", err)
	}
}

func TestStatic_WrapPolicy(t *testing.T) {
	ds, err := NewStatic(testPoints(2), 7, Wrap)
	if err != nil {
		t.Fatalf("NewStatic: %v", err)
	}

	seen := make([]string, 0, 4)
	for i := 0; i < 4; i++ {
		p, err := ds.Sample()
		if err != nil {
			t.Fatalf("Sample %d: %v", i, err)
		}
		seen = append(seen, p.Question)
	}
	if seen[0] != seen[2] || seen[1] != seen[3] {
		t.Fatalf("wrap did not replay the permutation: %v", seen)
	}
}

func TestStatic_ValidatesPoints(t *testing.T) {
	_, err := NewStatic([]DataPoint{{Question: "q"}}, 0, Exhaust)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("empty final_answer: got %v want ErrValidation", err)
	}

	_, err = NewStatic(nil, 0, Exhaust)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("empty dataset: got %v want ErrValidation", err)
	}
}

func TestFromRecords(t *testing.T) {
	records := []map[string]any{
		{"question": "2+2?", "final_answer": "4", "difficulty": "easy"},
		{"question": "3+3?", "final_answer": "6", "rationale": "3+3=6"},
	}

	ds, err := FromRecords(records, 0, Exhaust)
	if err != nil {
		t.Fatalf("FromRecords: %v", err)
	}
	if ds.Len() != 2 {
		t.Fatalf("Len: got %d want 2", ds.Len())
	}

	found := false
	for i := 0; i < ds.Len(); i++ {
		p, err := ds.At(i)
		if err != nil {
			t.Fatalf("At %d: %v", i, err)
		}
		if p.Question == "2+2?" {
			found = true
			if p.Metadata["difficulty"] != "easy" {
				t.Fatalf("metadata not kept: %v", p.Metadata)
			}
		}
	}
	if !found {
		t.Fatalf("record missing from dataset")
	}
}

func TestFromRecords_MissingField(t *testing.T) {
	_, err := FromRecords([]map[string]any{{"question": "q"}}, 0, Exhaust)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("missing final_answer: got %v want ErrValidation", err)
	}

	_, err = FromRecords([]map[string]any{{"question": "q", "final_answer": 4}}, 0, Exhaust)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("non-string final_answer: got %v want ErrValidation", err)
	}
}

func TestGenerator_NeverExhausts(t *testing.T) {
	g := NewGenerator(11)
	for i := 0; i < 100; i++ {
		p, err := g.Sample()
		if err != nil {
			t.Fatalf("Sample %d: %v", i, err)
		}
		if err := p.Validate(); err != nil {
			t.Fatalf("Sample %d invalid: %v", i, err)
		}
	}
}

func TestGenerator_StateAdvancesMonotonically(t *testing.T) {
	g := NewGenerator(11)
	prev := 0
	for i := 0; i < 10; i++ {
		p, err := g.Sample()
		if err != nil {
			t.Fatalf("Sample %d: %v", i, err)
		}
		seq, ok := p.Metadata["sequence"].(int)
		if !ok {
			t.Fatalf("Sample %d: missing sequence metadata", i)
		}
		if seq <= prev {
			t.Fatalf("sequence did not advance: %d after %d", seq, prev)
		}
		prev = seq
	}
}

func TestLoadJSONL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "points.jsonl")
	content := `{"question":"2+2?","final_answer":"\\boxed{4}"}

{"question":"5*3?","final_answer":"15"}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	ds, err := LoadJSONL(context.Background(), path, 3, Exhaust)
	if err != nil {
		t.Fatalf("LoadJSONL: %v", err)
	}
	if ds.Len() != 2 {
		t.Fatalf("Len: got %d want 2", ds.Len())
	}
}

func TestLoadJSONL_BadLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "points.jsonl")
	if err := os.WriteFile(path, []byte("not json\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if _, err := LoadJSONL(context.Background(), path, 0, Exhaust); err == nil {
		t.Fatalf("LoadJSONL: expected error for malformed line")
	}
}
