// Package config loads the pipeline's YAML configuration: the node
// graph itself, evaluator thresholds, refinement limits, Best-of-N
// fan-out, and per-provider LLM settings (spec §6).
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/arabicverse/qasida/internal/engine"
)

// Config is the top-level application configuration.
type Config struct {
	Server     ServerConfig              `yaml:"server"`
	Database   DatabaseConfig            `yaml:"database"`
	Providers  map[string]ProviderConfig `yaml:"providers"`
	Pipeline   engine.PipelineDefinition `yaml:"pipeline"`
	Evaluation EvaluationConfig          `yaml:"evaluation"`
	Refinement RefinementConfig          `yaml:"refinement"`
	BestOfN    int                       `yaml:"best_of_n"`
	Scheduler  SchedulerConfig           `yaml:"scheduler"`
	Output     OutputConfig              `yaml:"output"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig holds the Postgres connection string for the persistent
// execution-capture store.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// ProviderConfig holds one LLM adapter's settings.
type ProviderConfig struct {
	Type        string  `yaml:"type"` // "openai" or "gemini"
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxRetries  int     `yaml:"max_retries"`
}

// EvaluationConfig holds the evaluator's dimension weights and acceptance
// threshold (spec §4.5).
type EvaluationConfig struct {
	Weights struct {
		Prosody    float64 `yaml:"prosody"`
		Rhyme      float64 `yaml:"rhyme"`
		LineCount  float64 `yaml:"line_count"`
		Diacritics float64 `yaml:"diacritics"`
	} `yaml:"weights"`
	AcceptThreshold float64 `yaml:"accept_threshold"`
	MinProsody      float64 `yaml:"min_prosody"`
	MinRhyme        float64 `yaml:"min_rhyme"`
}

// RefinementConfig holds the refiner chain's iteration limits (spec §4.6).
type RefinementConfig struct {
	MaxIterations int     `yaml:"max_iterations"`
	TargetQuality float64 `yaml:"target_quality"`
	Epsilon       float64 `yaml:"epsilon"`
	ExitWhen      string  `yaml:"exit_when"`
}

// SchedulerConfig holds settings for the scheduled batch-generation job.
type SchedulerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"` // cron expression
	Prompts  []string `yaml:"prompts"`
}

// OutputConfig holds the directory the capture subsystem and the harmony
// compiler write their per-execution artifacts to: "{id}.json",
// "{id}_structured.json", and "{id}_harmony.txt" — the only persistent
// state spec §4.7/§4.8 call for beyond the execution repository itself.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

func defaults() *Config {
	return &Config{
		Server:    ServerConfig{Host: "0.0.0.0", Port: 8080},
		Providers: map[string]ProviderConfig{},
		BestOfN:   1,
		Evaluation: EvaluationConfig{
			AcceptThreshold: 0.85,
		},
		Refinement: RefinementConfig{
			MaxIterations: 5,
			TargetQuality: 0.85,
			Epsilon:       0.0,
		},
		Output: OutputConfig{Dir: "./output"},
	}
}

// Load reads a YAML configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if cfg.Providers == nil {
		cfg.Providers = map[string]ProviderConfig{}
	}
	return cfg, nil
}

// LoadDefault tries "config.yaml" in the current directory, falling back
// to defaults() when the file doesn't exist.
func LoadDefault() (*Config, error) {
	cfg, err := Load("config.yaml")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaults(), nil
		}
		return nil, err
	}
	return cfg, nil
}
