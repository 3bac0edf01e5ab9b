package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultPath = "configs/config.yaml"

type Config struct {
	Dataset   DatasetConfig      `yaml:"dataset"`
	Extractor ExtractorConfig    `yaml:"extractor"`
	Verifier  VerifierConfig     `yaml:"verifier"`
	Rewards   map[string]float64 `yaml:"rewards,omitempty"`
	Storage   StorageConfig      `yaml:"storage"`
	Policy    PolicyConfig       `yaml:"policy"`
	Server    ServerConfig       `yaml:"server"`
}

type DatasetConfig struct {
	Source string `yaml:"source,omitempty"` // "jsonl" or "generator"
	Path   string `yaml:"path,omitempty"`
	Seed   int64  `yaml:"seed"`
	Wrap   bool   `yaml:"wrap,omitempty"`
}

type ExtractorConfig struct {
	// Groups are ordered fallback groups of strategy names. Empty means
	// the default chain.
	Groups [][]string `yaml:"groups,omitempty"`
}

type VerifierConfig struct {
	Backend     string        `yaml:"backend,omitempty"` // "yaegi" or "python"
	Timeout     time.Duration `yaml:"timeout,omitempty"`
	SandboxMode string        `yaml:"sandbox_mode,omitempty"`
	MemoryMB    int           `yaml:"memory_mb,omitempty"`
	CPUs        float64       `yaml:"cpus,omitempty"`
	ProgramPath string        `yaml:"program_path,omitempty"`
}

type StorageConfig struct {
	Type string `yaml:"type,omitempty"` // "sqlite" or "memory"
	Path string `yaml:"path,omitempty"`
}

type PolicyConfig struct {
	DefaultProvider string                    `yaml:"default_provider,omitempty"`
	Providers       map[string]ProviderConfig `yaml:"providers,omitempty"`
}

type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url,omitempty"`
	Model   string `yaml:"model,omitempty"`
}

type ServerConfig struct {
	Addr string `yaml:"addr,omitempty"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads a YAML config and applies defaults and env-var overrides. A
// missing file at the default path falls back to Default.
func Load(path string) (*Config, error) {
	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = DefaultPath
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return Default(), nil
		}
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Dataset.Source) == "" {
		c.Dataset.Source = "generator"
	}

	if strings.TrimSpace(c.Verifier.Backend) == "" {
		c.Verifier.Backend = "yaegi"
	}
	if c.Verifier.Timeout <= 0 {
		c.Verifier.Timeout = 5 * time.Second
	}
	if v := strings.TrimSpace(os.Getenv("RLGYM_SANDBOX_MODE")); v != "" {
		c.Verifier.SandboxMode = v
	}

	if strings.TrimSpace(c.Storage.Type) == "" {
		c.Storage.Type = "sqlite"
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		c.Storage.Path = "data/rlgym.db"
	}

	if c.Policy.Providers == nil {
		c.Policy.Providers = make(map[string]ProviderConfig)
	}
	if strings.TrimSpace(c.Policy.DefaultProvider) == "" {
		c.Policy.DefaultProvider = "claude"
	}
	if v := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")); v != "" {
		p := c.Policy.Providers["claude"]
		p.APIKey = v
		c.Policy.Providers["claude"] = p
	}
	if v := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); v != "" {
		p := c.Policy.Providers["openai"]
		p.APIKey = v
		c.Policy.Providers["openai"] = p
	}

	if strings.TrimSpace(c.Server.Addr) == "" {
		c.Server.Addr = ":8080"
	}
}
