package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
dataset:
  source: jsonl
  path: data/points.jsonl
  seed: 42
  wrap: true
extractor:
  groups:
    - [boxed, answer_tag]
    - [last_number]
verifier:
  backend: python
  timeout: 2s
  sandbox_mode: host
rewards:
  verification: 0.8
  extraction: 0.2
storage:
  type: memory
policy:
  default_provider: openai
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Dataset.Source != "jsonl" || cfg.Dataset.Seed != 42 || !cfg.Dataset.Wrap {
		t.Fatalf("dataset config: %+v", cfg.Dataset)
	}
	if len(cfg.Extractor.Groups) != 2 || cfg.Extractor.Groups[0][0] != "boxed" {
		t.Fatalf("extractor config: %+v", cfg.Extractor)
	}
	if cfg.Verifier.Backend != "python" || cfg.Verifier.Timeout != 2*time.Second {
		t.Fatalf("verifier config: %+v", cfg.Verifier)
	}
	if cfg.Rewards["verification"] != 0.8 {
		t.Fatalf("rewards config: %+v", cfg.Rewards)
	}
	if cfg.Policy.DefaultProvider != "openai" {
		t.Fatalf("policy config: %+v", cfg.Policy)
	}
}

func TestLoad_MissingExplicitPath(t *testing.T) {
	if _, err := Load("does/not/exist.yaml"); err == nil {
		t.Fatalf("Load: expected error for missing explicit path")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Dataset.Source != "generator" {
		t.Fatalf("default dataset source: %q", cfg.Dataset.Source)
	}
	if cfg.Verifier.Backend != "yaegi" || cfg.Verifier.Timeout != 5*time.Second {
		t.Fatalf("default verifier: %+v", cfg.Verifier)
	}
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("default server addr: %q", cfg.Server.Addr)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("RLGYM_SANDBOX_MODE", "host")

	cfg := Default()
	if cfg.Policy.Providers["claude"].APIKey != "sk-test" {
		t.Fatalf("env override missing: %+v", cfg.Policy.Providers)
	}
	if cfg.Verifier.SandboxMode != "host" {
		t.Fatalf("sandbox mode override missing: %+v", cfg.Verifier)
	}
}
