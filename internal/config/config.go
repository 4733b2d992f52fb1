// Package config provides configuration loading and management for sitesmith.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration.
type Config struct {
	LLM        LLMConfig        `json:"llm"        mapstructure:"llm"`
	Budgets    Budgets          `json:"budgets"    mapstructure:"budgets"`
	Evaluation EvaluationPolicy `json:"evaluation" mapstructure:"evaluation"`
	Tools      ToolsConfig      `json:"tools"      mapstructure:"tools"`
	OutputDir  string           `json:"output_dir" mapstructure:"output_dir"`
}

// LLMConfig describes the reasoning-service endpoint shared by all agents.
type LLMConfig struct {
	Provider       string `json:"provider"                  mapstructure:"provider"`
	Model          string `json:"model,omitempty"           mapstructure:"model"`
	BaseURL        string `json:"base_url,omitempty"        mapstructure:"base_url"`
	APIKeyEnv      string `json:"api_key_env,omitempty"     mapstructure:"api_key_env"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" mapstructure:"timeout_seconds"`
}

// Timeout returns the per-call reasoning-service timeout.
func (c LLMConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Budgets defines run limits: the refine-iteration ceiling, the per-task
// retry bound, and the transient-retry bound on adapter calls.
type Budgets struct {
	MaxIterations  int `json:"max_iterations"            mapstructure:"max_iterations"`
	RetryLimit     int `json:"retry_limit"               mapstructure:"retry_limit"`
	AdapterRetries int `json:"adapter_retries,omitempty" mapstructure:"adapter_retries"`
}

// EvaluationPolicy maps evaluator scores to verdicts. Thresholds are applied
// by the orchestrator, not hardcoded in the evaluator.
type EvaluationPolicy struct {
	PassingThreshold int `json:"passing_threshold" mapstructure:"passing_threshold"`
	RefineThreshold  int `json:"refine_threshold"  mapstructure:"refine_threshold"`
}

// ToolsConfig toggles the generator's capability tools.
type ToolsConfig struct {
	EnableRecords   bool   `json:"enable_records"              mapstructure:"enable_records"`
	EnableWebSearch bool   `json:"enable_web_search"           mapstructure:"enable_web_search"`
	EnableCommands  bool   `json:"enable_commands"             mapstructure:"enable_commands"`
	RecordsBaseURL  string `json:"records_base_url,omitempty"  mapstructure:"records_base_url"`
	SearchAPIKeyEnv string `json:"search_api_key_env,omitempty" mapstructure:"search_api_key_env"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LLM: LLMConfig{
			Provider:       "deepseek",
			Model:          "deepseek-chat",
			BaseURL:        "https://api.deepseek.com",
			APIKeyEnv:      "DEEPSEEK_API_KEY",
			TimeoutSeconds: 60,
		},
		Budgets: Budgets{
			MaxIterations:  3,
			RetryLimit:     3,
			AdapterRetries: 3,
		},
		Evaluation: EvaluationPolicy{
			PassingThreshold: 75,
			RefineThreshold:  40,
		},
		Tools: ToolsConfig{
			EnableRecords:   true,
			EnableWebSearch: false,
		},
		OutputDir: "outputs",
	}
}

// Load reads the config file selected through viper, validates it against
// the embedded schema, and unmarshals it over the defaults. A missing file
// yields the defaults.
func Load(repoRoot string) (Config, error) {
	path := viper.GetString("config")
	if path == "" {
		path = filepath.Join(".sitesmith", "config.json")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(repoRoot, path)
	}
	viper.SetConfigFile(path)
	viper.SetConfigType("json")

	cfg := Default()
	if err := viper.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := ValidateSettings(viper.AllSettings()); err != nil {
		return Config{}, err
	}
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Check(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Check enforces the invariants the schema cannot express.
func (c Config) Check() error {
	if c.Budgets.MaxIterations <= 0 {
		return fmt.Errorf("budgets.max_iterations must be > 0")
	}
	if c.Budgets.RetryLimit <= 0 {
		return fmt.Errorf("budgets.retry_limit must be > 0")
	}
	if c.Evaluation.PassingThreshold < c.Evaluation.RefineThreshold {
		return fmt.Errorf("evaluation.passing_threshold must be >= refine_threshold")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir is required")
	}
	return nil
}
