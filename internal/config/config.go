// Package config resolves run configuration. Built-in defaults are an
// explicit immutable object; an optional override file replaces fields
// last-writer-wins. Resolution is pure: nothing here touches process-global
// state.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/planjudge/planjudge/internal/corpus"
	"github.com/planjudge/planjudge/internal/result"
)

// ErrConfig means the configuration is malformed or references unknown
// fields. Always fatal: a run never starts on a bad config.
var ErrConfig = errors.New("invalid configuration")

type Config struct {
	// Models maps short aliases to full model identifiers.
	Models     map[string]string `yaml:"models"`
	CorpusFile string            `yaml:"corpus_file"`
	ResultsDir string            `yaml:"results_dir"`
	// Concurrency bounds in-flight model invocations for both inference and
	// judging.
	Concurrency int           `yaml:"concurrency"`
	Prompts     Prompts       `yaml:"prompts"`
	Client      ClientConfig  `yaml:"client"`
	Sandbox     SandboxConfig `yaml:"sandbox"`
	Retry       RetryConfig   `yaml:"retry"`
	Judge       JudgeConfig   `yaml:"judge"`
	PricingFile string        `yaml:"pricing_file"`
}

// Prompts holds the mode-specific instruction blocks prepended to each
// problem statement.
type Prompts struct {
	Planner string `yaml:"planner"`
	Coder   string `yaml:"coder"`
	Golden  string `yaml:"golden"`
}

// ClientConfig configures the model invocation backend.
type ClientConfig struct {
	// Backend selects "http" (chat-completions endpoint) or "sandbox"
	// (containerised agent).
	Backend        string  `yaml:"backend"`
	BaseURL        string  `yaml:"base_url"`
	APIKeyEnv      string  `yaml:"api_key_env"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	MaxTokens      int     `yaml:"max_tokens"`
	Temperature    float64 `yaml:"temperature"`
}

// SandboxConfig configures the containerised agent backend.
type SandboxConfig struct {
	Image          string            `yaml:"image"`
	Command        []string          `yaml:"command"`
	Env            map[string]string `yaml:"env"`
	TimeoutMinutes int               `yaml:"timeout_minutes"`
}

// RetryConfig is the bounded-attempt policy for transient invocation
// failures.
type RetryConfig struct {
	MaxAttempts       int     `yaml:"max_attempts"`
	InitialIntervalMS int     `yaml:"initial_interval_ms"`
	MaxIntervalMS     int     `yaml:"max_interval_ms"`
	Multiplier        float64 `yaml:"multiplier"`
	Jitter            bool    `yaml:"jitter"`
}

// JudgeConfig configures the pairwise judge.
type JudgeConfig struct {
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Models: map[string]string{
			"haiku":  "claude-haiku-4-5-20251001",
			"sonnet": "claude-sonnet-4-20250514",
			"opus":   "claude-opus-4-20250514",
		},
		CorpusFile:  "corpus.yaml",
		ResultsDir:  "results",
		Concurrency: 4,
		Prompts: Prompts{
			Planner: "Write a detailed implementation plan for resolving the issue below. Do not write code; describe the changes file by file.",
			Coder:   "Resolve the issue below. Produce the full change as a unified diff.",
			Golden:  "Write the reference implementation plan for resolving the issue below, covering every required change.",
		},
		Client: ClientConfig{
			Backend:        "http",
			BaseURL:        "https://api.anthropic.com/v1",
			APIKeyEnv:      "ANTHROPIC_API_KEY",
			TimeoutSeconds: 120,
			MaxTokens:      4096,
			Temperature:    0,
		},
		Sandbox: SandboxConfig{
			Image:          "planjudge-agent:latest",
			Command:        []string{"bash", "/agent.sh"},
			TimeoutMinutes: 10,
		},
		Retry: RetryConfig{
			MaxAttempts:       3,
			InitialIntervalMS: 500,
			MaxIntervalMS:     8000,
			Multiplier:        2.0,
			Jitter:            true,
		},
		Judge: JudgeConfig{
			Model:     "claude-haiku-4-5-20251001",
			MaxTokens: 1024,
		},
	}
}

// Load returns the defaults with the override file applied on top. Fields set
// in the override replace defaults; unset fields keep their default value;
// map entries merge by key with override values winning. Unknown fields are
// an ErrConfig.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrConfig, path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrConfig, path, err)
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfig, path, err)
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1")
	}
	if cfg.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}
	if cfg.Retry.Multiplier < 1.0 {
		return fmt.Errorf("retry.multiplier must be at least 1.0")
	}
	switch cfg.Client.Backend {
	case "http", "sandbox":
	default:
		return fmt.Errorf("client.backend must be http or sandbox, got %q", cfg.Client.Backend)
	}
	if cfg.Client.TimeoutSeconds < 1 {
		return fmt.Errorf("client.timeout_seconds must be at least 1")
	}
	return nil
}

// ResolveModel expands a short alias to (full identifier, short name). An
// unknown name passes through with itself as the short name.
func (c *Config) ResolveModel(name string) (full, short string) {
	if f, ok := c.Models[name]; ok {
		return f, name
	}
	for alias, f := range c.Models {
		if f == name {
			return name, alias
		}
	}
	return name, name
}

// InvokeTimeout is the per-attempt model invocation timeout.
func (c *Config) InvokeTimeout() time.Duration {
	return time.Duration(c.Client.TimeoutSeconds) * time.Second
}

// Resolve produces the immutable RunSpec for one run.
func (c *Config) Resolve(model string, mode result.Mode, sliceExpr string, k int, configFile, planFile string) (result.RunSpec, error) {
	if !result.ValidMode(mode) {
		return result.RunSpec{}, fmt.Errorf("%w: unknown mode %q", ErrConfig, mode)
	}
	if k < 1 {
		return result.RunSpec{}, fmt.Errorf("%w: repetitions must be at least 1", ErrConfig)
	}
	if planFile != "" && mode != result.ModeCoder {
		return result.RunSpec{}, fmt.Errorf("%w: plan file is only valid in coder mode", ErrConfig)
	}
	start, end, err := corpus.ParseSlice(sliceExpr)
	if err != nil {
		return result.RunSpec{}, err
	}
	full, short := c.ResolveModel(model)
	return result.RunSpec{
		Model:       full,
		ModelShort:  short,
		Mode:        mode,
		SliceStart:  start,
		SliceEnd:    end,
		Repetitions: k,
		ConfigFile:  configFile,
		PlanFile:    planFile,
	}, nil
}

// Instructions returns the instruction block for a mode.
func (p Prompts) Instructions(mode result.Mode) string {
	switch mode {
	case result.ModePlanner:
		return p.Planner
	case result.ModeCoder:
		return p.Coder
	case result.ModeGolden:
		return p.Golden
	}
	return ""
}
