// Package config provides unified configuration loading for ecosim.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/nvandessel/ecosim/internal/params"
	"gopkg.in/yaml.v3"
)

// DirName is the per-user directory holding config, the database and logs.
const DirName = ".ecosim"

// EcosimConfig contains all ecosim configuration settings.
type EcosimConfig struct {
	// LLM contains settings for the question-answering assistant.
	LLM LLMConfig `json:"llm" yaml:"llm"`

	// Logging contains settings for operational and decision logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Server configures the dashboard HTTP server.
	Server ServerConfig `json:"server" yaml:"server"`

	// Simulation holds the parameters used when a run does not override them.
	Simulation params.Parameters `json:"simulation" yaml:"simulation"`

	// Backup configures history backups.
	Backup BackupConfig `json:"backup" yaml:"backup"`
}

// BackupConfig configures history backups.
type BackupConfig struct {
	// Compression writes gzip V2 backups; false writes plain JSON.
	Compression bool `json:"compression" yaml:"compression"`

	Retention RetentionConfig `json:"retention" yaml:"retention"`
}

// RetentionConfig limits how many backups are kept. A backup survives if
// any configured limit keeps it.
type RetentionConfig struct {
	MaxCount     int    `json:"max_count" yaml:"max_count"`
	MaxAge       string `json:"max_age,omitempty" yaml:"max_age,omitempty"`               // e.g. "30d", "2w"
	MaxTotalSize string `json:"max_total_size,omitempty" yaml:"max_total_size,omitempty"` // e.g. "100MB"
}

// LoggingConfig configures ecosim's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables decision logging to ~/.ecosim/decisions.jsonl.
	// "trace" additionally includes full assistant prompt/response content.
	Level string `json:"level" yaml:"level"`
}

// ServerConfig configures the dashboard server.
type ServerConfig struct {
	// Addr is the listen address. "localhost:0" lets the OS pick a port.
	Addr string `json:"addr" yaml:"addr"`

	// AskPerMinute limits assistant requests across all dashboard clients.
	AskPerMinute float64 `json:"ask_per_minute" yaml:"ask_per_minute"`
}

// LLMConfig configures the text-completion backend.
type LLMConfig struct {
	// Provider identifies the LLM backend: "anthropic", "openai", "ollama", or "" for the offline fallback.
	Provider string `json:"provider" yaml:"provider"`

	// APIKey is the API key for the provider. Supports ${VAR} syntax for env vars.
	// Not required for ollama.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL is the API endpoint URL. Used for ollama or custom OpenAI-compatible endpoints.
	// Defaults: ollama=http://localhost:11434/v1, openai=https://api.openai.com/v1
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// Model is the model used to answer questions.
	Model string `json:"model,omitempty" yaml:"model,omitempty"`

	// MaxTokens caps the length of each answer.
	MaxTokens int `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`

	// Timeout is the maximum duration to wait for LLM responses.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// Enabled indicates whether the remote provider is used at all.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// FallbackToRules answers from the built-in reference content when the
	// provider is disabled or unavailable.
	FallbackToRules bool `json:"fallback_to_rules" yaml:"fallback_to_rules"`
}

// RedactedAPIKey returns the API key with most characters masked.
// Shows first 4 and last 4 characters, e.g., "sk-a...xyz9".
// Returns "" for empty keys and "(set)" for keys shorter than 12 chars.
func (c LLMConfig) RedactedAPIKey() string {
	if c.APIKey == "" {
		return ""
	}
	if len(c.APIKey) < 12 {
		return "(set)"
	}
	return c.APIKey[:4] + "..." + c.APIKey[len(c.APIKey)-4:]
}

// String implements fmt.Stringer to prevent accidental API key logging.
func (c LLMConfig) String() string {
	return fmt.Sprintf("LLMConfig{Provider:%s, Enabled:%t, APIKey:%s, Model:%s}",
		c.Provider, c.Enabled, c.RedactedAPIKey(), c.Model)
}

// Default returns an EcosimConfig with sensible defaults.
func Default() *EcosimConfig {
	return &EcosimConfig{
		LLM: LLMConfig{
			Provider:        "",
			Model:           "",
			MaxTokens:       150,
			Timeout:         30 * time.Second,
			Enabled:         false,
			FallbackToRules: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Server: ServerConfig{
			Addr:         "localhost:0",
			AskPerMinute: 20,
		},
		Simulation: params.Default(),
		Backup: BackupConfig{
			Compression: true,
			Retention:   RetentionConfig{MaxCount: 10},
		},
	}
}

// Dir returns ~/.ecosim, or ./.ecosim when the home directory is unknown.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DirName
	}
	return filepath.Join(home, DirName)
}

// Path returns the default config file location.
func Path() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.ecosim/config.yaml -> environment variables
func Load() (*EcosimConfig, error) {
	return LoadFrom(Dir())
}

// LoadFrom is Load with dir in place of ~/.ecosim.
func LoadFrom(dir string) (*EcosimConfig, error) {
	config := Default()

	configPath := filepath.Join(dir, "config.yaml")
	if _, statErr := os.Stat(configPath); statErr == nil {
		fileConfig, loadErr := LoadFromFile(configPath)
		if loadErr != nil {
			return nil, fmt.Errorf("loading config file: %w", loadErr)
		}
		config = fileConfig
	}

	applyEnvOverrides(config)

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
// Fields missing from the file keep their defaults.
func LoadFromFile(path string) (*EcosimConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	config.LLM.APIKey = expandEnvVars(config.LLM.APIKey)

	return config, nil
}

// Save writes the configuration to path, creating parent directories.
func (c *EcosimConfig) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate checks that the configuration is valid.
func (c *EcosimConfig) Validate() error {
	if c.LLM.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative, got %v", c.LLM.Timeout)
	}

	if c.LLM.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be non-negative, got %d", c.LLM.MaxTokens)
	}

	validProviders := map[string]bool{"": true, "anthropic": true, "openai": true, "ollama": true}
	if !validProviders[c.LLM.Provider] {
		return fmt.Errorf("invalid provider: %s (valid: anthropic, openai, ollama, or empty)", c.LLM.Provider)
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	if c.Server.AskPerMinute < 0 {
		return fmt.Errorf("ask_per_minute must be non-negative, got %v", c.Server.AskPerMinute)
	}

	if c.Backup.Retention.MaxCount < 0 {
		return fmt.Errorf("backup max_count must be non-negative, got %d", c.Backup.Retention.MaxCount)
	}

	if err := c.Simulation.Validate(); err != nil {
		return fmt.Errorf("simulation defaults: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *EcosimConfig) {
	if v := os.Getenv("ECOSIM_LLM_PROVIDER"); v != "" {
		config.LLM.Provider = v
	}

	if v := os.Getenv("ECOSIM_LLM_ENABLED"); v != "" {
		config.LLM.Enabled = v == "true" || v == "1"
	}

	if v := os.Getenv("ECOSIM_LLM_MODEL"); v != "" {
		config.LLM.Model = v
	}

	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" && config.LLM.Provider == "anthropic" {
		config.LLM.APIKey = v
	}

	if v := os.Getenv("OPENAI_API_KEY"); v != "" && config.LLM.Provider == "openai" {
		config.LLM.APIKey = v
	}

	// Ollama uses OLLAMA_HOST for base URL (no API key needed)
	if config.LLM.Provider == "ollama" {
		if v := os.Getenv("OLLAMA_HOST"); v != "" {
			config.LLM.BaseURL = v
		} else if config.LLM.BaseURL == "" {
			config.LLM.BaseURL = "http://localhost:11434/v1"
		}
	}

	if v := os.Getenv("ECOSIM_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}

	if v := os.Getenv("ECOSIM_SERVER_ADDR"); v != "" {
		config.Server.Addr = v
	}

	if v := os.Getenv("ECOSIM_STEPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Simulation.Steps = n
		}
	}
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
