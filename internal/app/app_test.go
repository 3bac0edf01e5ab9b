package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stellarlinkco/rlgym/internal/config"
	"github.com/stellarlinkco/rlgym/internal/env"
	"github.com/stellarlinkco/rlgym/internal/policy"
	"github.com/stellarlinkco/rlgym/internal/store"
)

func writeFixture(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "points.jsonl")
	content := `{"question":"2+2?","final_answer":"\\boxed{4}"}
{"question":"3+3?","final_answer":"\\boxed{6}"}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestBuildEnv_GeneratorDefaults(t *testing.T) {
	cfg := config.Default()

	e, err := BuildEnv(context.Background(), cfg)
	if err != nil {
		t.Fatalf("BuildEnv: %v", err)
	}
	if err := e.Setup(context.Background()); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer e.Close()

	if _, err := e.Reset(context.Background()); err != nil {
		t.Fatalf("Reset: %v", err)
	}
}

func TestBuildEnv_UnknownSource(t *testing.T) {
	cfg := config.Default()
	cfg.Dataset.Source = "parquet"

	if _, err := BuildEnv(context.Background(), cfg); err == nil {
		t.Fatalf("BuildEnv: expected error for unknown source")
	}
}

func TestRunner_RunEpisodes(t *testing.T) {
	cfg := config.Default()
	cfg.Dataset.Seed = 9

	e, err := BuildEnv(context.Background(), cfg)
	if err != nil {
		t.Fatalf("BuildEnv: %v", err)
	}
	if err := e.Setup(context.Background()); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer e.Close()

	st := store.NewMemoryStore()
	r, err := NewRunner(e, st, nil)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	// Answers with the current question's ground truth, so every episode
	// should score full reward.
	oracle := &policy.Scripted{ID: "oracle", Fn: func(string) string {
		p, _ := e.Current()
		return p.FinalAnswer
	}}

	sum, err := r.RunEpisodes(context.Background(), oracle, 5)
	if err != nil {
		t.Fatalf("RunEpisodes: %v", err)
	}
	if sum.Episodes != 5 || sum.Passed != 5 || sum.MeanReward != 1 {
		t.Fatalf("RunEpisodes: %+v", sum)
	}

	list, err := st.ListEpisodes(context.Background(), store.EpisodeFilter{})
	if err != nil {
		t.Fatalf("ListEpisodes: %v", err)
	}
	if len(list) != 5 {
		t.Fatalf("stored episodes: got %d want 5", len(list))
	}
	if list[0].Policy != "oracle" || list[0].ID == "" {
		t.Fatalf("stored episode: %+v", list[0])
	}
}

func TestRunner_UnextractableResponsesScoreZero(t *testing.T) {
	cfg := config.Default()

	e, err := BuildEnv(context.Background(), cfg)
	if err != nil {
		t.Fatalf("BuildEnv: %v", err)
	}
	if err := e.Setup(context.Background()); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer e.Close()

	r, err := NewRunner(e, nil, nil)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	rec, err := r.RunEpisode(context.Background(), policy.Echo("no idea"))
	if err != nil {
		t.Fatalf("RunEpisode: %v", err)
	}
	if rec.Reward != 0 || rec.FailureKind != "no_extraction" {
		t.Fatalf("RunEpisode: %+v", rec)
	}
}

func TestRunner_ExhaustedDatasetEndsBatch(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Dataset.Source = "jsonl"
	cfg.Dataset.Path = writeFixture(t, dir)

	e, err := BuildEnv(context.Background(), cfg)
	if err != nil {
		t.Fatalf("BuildEnv: %v", err)
	}
	if err := e.Setup(context.Background()); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer e.Close()

	r, err := NewRunner(e, nil, nil)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	sum, err := r.RunEpisodes(context.Background(), policy.Echo(`\boxed{4}`), 10)
	if err != nil {
		t.Fatalf("RunEpisodes: %v", err)
	}
	if sum.Episodes != 2 {
		t.Fatalf("RunEpisodes past exhaustion: %+v", sum)
	}

	// A fresh batch on the same exhausted dataset fails outright.
	if _, err := r.RunEpisodes(context.Background(), policy.Echo("x"), 1); !errors.Is(err, env.ErrEmptyDataset) {
		t.Fatalf("RunEpisodes on exhausted dataset: got %v want ErrEmptyDataset", err)
	}
}
