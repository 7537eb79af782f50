package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	config := Default()

	if config.LLM.Provider != "" {
		t.Errorf("expected empty Provider, got '%s'", config.LLM.Provider)
	}
	if config.LLM.Enabled {
		t.Error("expected LLM.Enabled to be false by default")
	}
	if !config.LLM.FallbackToRules {
		t.Error("expected LLM.FallbackToRules to be true by default")
	}
	if config.LLM.Timeout != 30*time.Second {
		t.Errorf("expected Timeout 30s, got %v", config.LLM.Timeout)
	}
	if config.LLM.MaxTokens != 150 {
		t.Errorf("expected MaxTokens 150, got %d", config.LLM.MaxTokens)
	}
	if config.Logging.Level != "info" {
		t.Errorf("expected Logging.Level 'info', got '%s'", config.Logging.Level)
	}
	if config.Server.Addr != "localhost:0" {
		t.Errorf("expected Server.Addr 'localhost:0', got '%s'", config.Server.Addr)
	}
	if config.Simulation.Steps != 50 {
		t.Errorf("expected Simulation.Steps 50, got %d", config.Simulation.Steps)
	}
	if !config.Backup.Compression || config.Backup.Retention.MaxCount != 10 {
		t.Errorf("expected compressed backups keeping 10, got %+v", config.Backup)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
llm:
  provider: anthropic
  api_key: test-key
  model: claude-3-haiku-20240307
  timeout: 10s
  enabled: true
  fallback_to_rules: false

simulation:
  plant_growth_rate: 0.3
  steps: 120

backup:
  retention:
    max_age: 30d
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	config, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if config.LLM.Provider != "anthropic" {
		t.Errorf("expected Provider 'anthropic', got '%s'", config.LLM.Provider)
	}
	if config.LLM.APIKey != "test-key" {
		t.Errorf("expected APIKey 'test-key', got '%s'", config.LLM.APIKey)
	}
	if config.LLM.Timeout != 10*time.Second {
		t.Errorf("expected Timeout 10s, got %v", config.LLM.Timeout)
	}
	if !config.LLM.Enabled {
		t.Error("expected Enabled to be true")
	}
	if config.LLM.FallbackToRules {
		t.Error("expected FallbackToRules to be false")
	}
	if config.Simulation.PlantGrowthRate != 0.3 {
		t.Errorf("expected PlantGrowthRate 0.3, got %v", config.Simulation.PlantGrowthRate)
	}
	if config.Simulation.Steps != 120 {
		t.Errorf("expected Steps 120, got %d", config.Simulation.Steps)
	}
	// Unspecified simulation fields keep their defaults.
	if config.Simulation.InitialPlants != 100 {
		t.Errorf("expected InitialPlants default 100, got %v", config.Simulation.InitialPlants)
	}
	if config.LLM.MaxTokens != 150 {
		t.Errorf("expected MaxTokens default 150, got %d", config.LLM.MaxTokens)
	}
	if config.Backup.Retention.MaxAge != "30d" || config.Backup.Retention.MaxCount != 10 {
		t.Errorf("expected backup max_age 30d with default max_count, got %+v", config.Backup.Retention)
	}
	if !config.Backup.Compression {
		t.Error("expected backup compression default true")
	}
}

func TestLoadFromFile_EnvExpansion(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
llm:
  provider: anthropic
  api_key: ${TEST_API_KEY}
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	t.Setenv("TEST_API_KEY", "expanded-key-value")

	config, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if config.LLM.APIKey != "expanded-key-value" {
		t.Errorf("expected APIKey 'expanded-key-value', got '%s'", config.LLM.APIKey)
	}
}

func TestLoadFromFile_Errors(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("llm: [unclosed"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(bad); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestLoad_UsesHomeConfigAndEnv(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("ECOSIM_LLM_PROVIDER", "")
	t.Setenv("ECOSIM_LOG_LEVEL", "debug")
	t.Setenv("ECOSIM_STEPS", "75")

	dir := filepath.Join(home, DirName)
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server:\n  addr: localhost:9999\n"), 0600); err != nil {
		t.Fatal(err)
	}

	config, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if config.Server.Addr != "localhost:9999" {
		t.Errorf("expected Addr from file, got '%s'", config.Server.Addr)
	}
	if config.Logging.Level != "debug" {
		t.Errorf("expected Level from env, got '%s'", config.Logging.Level)
	}
	if config.Simulation.Steps != 75 {
		t.Errorf("expected Steps from env, got %d", config.Simulation.Steps)
	}
}

func TestLoadFrom_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("ECOSIM_LLM_PROVIDER", "")
	t.Setenv("ECOSIM_LOG_LEVEL", "")
	t.Setenv("ECOSIM_SERVER_ADDR", "")
	t.Setenv("ECOSIM_STEPS", "")

	config, err := LoadFrom(filepath.Join(t.TempDir(), "nowhere"))
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if config.Server.Addr != "localhost:0" || config.Simulation.Steps != 50 {
		t.Errorf("expected defaults, got %+v", config)
	}
}

func TestEnvOverrides(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		check func(t *testing.T, c *EcosimConfig)
	}{
		{
			name: "anthropic key only applies to anthropic provider",
			env:  map[string]string{"ECOSIM_LLM_PROVIDER": "anthropic", "ANTHROPIC_API_KEY": "sk-ant", "OPENAI_API_KEY": "sk-oai"},
			check: func(t *testing.T, c *EcosimConfig) {
				if c.LLM.APIKey != "sk-ant" {
					t.Errorf("APIKey = %q, want sk-ant", c.LLM.APIKey)
				}
			},
		},
		{
			name: "ollama default base url",
			env:  map[string]string{"ECOSIM_LLM_PROVIDER": "ollama", "OLLAMA_HOST": ""},
			check: func(t *testing.T, c *EcosimConfig) {
				if c.LLM.BaseURL != "http://localhost:11434/v1" {
					t.Errorf("BaseURL = %q", c.LLM.BaseURL)
				}
			},
		},
		{
			name: "enabled flag and model",
			env:  map[string]string{"ECOSIM_LLM_ENABLED": "1", "ECOSIM_LLM_MODEL": "gpt-4o-mini"},
			check: func(t *testing.T, c *EcosimConfig) {
				if !c.LLM.Enabled || c.LLM.Model != "gpt-4o-mini" {
					t.Errorf("LLM = %v", c.LLM)
				}
			},
		},
		{
			name: "invalid steps ignored",
			env:  map[string]string{"ECOSIM_STEPS": "many"},
			check: func(t *testing.T, c *EcosimConfig) {
				if c.Simulation.Steps != 50 {
					t.Errorf("Steps = %d, want 50", c.Simulation.Steps)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			c := Default()
			applyEnvOverrides(c)
			tt.check(t, c)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *EcosimConfig)
		wantErr string
	}{
		{"bad provider", func(c *EcosimConfig) { c.LLM.Provider = "subagent" }, "invalid provider"},
		{"negative timeout", func(c *EcosimConfig) { c.LLM.Timeout = -time.Second }, "timeout"},
		{"bad level", func(c *EcosimConfig) { c.Logging.Level = "loud" }, "invalid log level"},
		{"negative tokens", func(c *EcosimConfig) { c.LLM.MaxTokens = -1 }, "max_tokens"},
		{"negative backup count", func(c *EcosimConfig) { c.Backup.Retention.MaxCount = -1 }, "max_count"},
		{"simulation out of range", func(c *EcosimConfig) { c.Simulation.Steps = 1000 }, "simulation defaults"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	c := Default()
	c.LLM.Provider = "openai"
	c.LLM.Timeout = 12 * time.Second
	c.Simulation.HumanImpact = 0.8

	if err := c.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if loaded.LLM.Provider != "openai" || loaded.LLM.Timeout != 12*time.Second || loaded.Simulation.HumanImpact != 0.8 {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
}

func TestRedactedAPIKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"", ""},
		{"short", "(set)"},
		{"sk-abcdefghijklmnop", "sk-a...mnop"},
	}
	for _, tt := range tests {
		c := LLMConfig{APIKey: tt.key}
		if got := c.RedactedAPIKey(); got != tt.want {
			t.Errorf("RedactedAPIKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}

	c := LLMConfig{Provider: "anthropic", APIKey: "sk-ant-secret-value-1234"}
	if strings.Contains(c.String(), "secret") {
		t.Errorf("String() leaked API key: %s", c.String())
	}
}
