package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/nvandessel/ecosim/internal/backup"
	"github.com/nvandessel/ecosim/internal/config"
	"github.com/nvandessel/ecosim/internal/params"
	"github.com/spf13/cobra"
)

const simulationPrefix = "simulation."

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage ecosim configuration",
		Long: `View and modify ecosim configuration settings.

Configuration is stored in ~/.ecosim/config.yaml (or config.yaml under --home).

Examples:
  ecosim config list                            # Show all settings
  ecosim config get llm.provider                # Get a specific setting
  ecosim config set llm.provider anthropic      # Set a setting
  ecosim config set simulation.steps 120        # Change a default parameter
  ecosim config set backup.retention.max_age 30d
  ecosim config set llm.api_key $ANTHROPIC_API_KEY`,
	}

	cmd.AddCommand(
		newConfigListCmd(),
		newConfigGetCmd(),
		newConfigSetCmd(),
	)

	return cmd
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFrom(dataDir(cmd))
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if jsonOutput(cmd) {
				// Redact API key before JSON serialization to prevent leakage
				redacted := *cfg
				redacted.LLM.APIKey = cfg.LLM.RedactedAPIKey()
				return printJSON(cmd, redacted)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration (%s):\n\n", filepath.Join(dataDir(cmd), "config.yaml"))
			fmt.Fprintln(out, "LLM Settings:")
			for _, key := range []string{"llm.provider", "llm.enabled", "llm.api_key", "llm.base_url", "llm.model", "llm.max_tokens", "llm.timeout", "llm.fallback_to_rules"} {
				value, _ := getConfigValue(cfg, key)
				fmt.Fprintf(out, "  %-30s %v\n", key+":", displayValue(value))
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Logging and Server:")
			for _, key := range []string{"logging.level", "server.addr", "server.ask_per_minute"} {
				value, _ := getConfigValue(cfg, key)
				fmt.Fprintf(out, "  %-30s %v\n", key+":", displayValue(value))
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Backup:")
			for _, key := range []string{"backup.compression", "backup.retention.max_count", "backup.retention.max_age", "backup.retention.max_total_size"} {
				value, _ := getConfigValue(cfg, key)
				fmt.Fprintf(out, "  %-30s %v\n", key+":", displayValue(value))
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Simulation Defaults:")
			for _, key := range params.Keys() {
				value, _ := getConfigValue(cfg, simulationPrefix+key)
				fmt.Fprintf(out, "  %-30s %v\n", simulationPrefix+key+":", value)
			}

			return nil
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]

			cfg, err := config.LoadFrom(dataDir(cmd))
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			value, found := getConfigValue(cfg, key)
			if !found {
				return fmt.Errorf("unknown configuration key: %s", key)
			}

			if jsonOutput(cmd) {
				return printJSON(cmd, map[string]interface{}{
					"key":   key,
					"value": value,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", key, value)
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			value := args[1]

			cfg, err := config.LoadFrom(dataDir(cmd))
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if err := setConfigValue(cfg, key, value); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid value for %s: %w", key, err)
			}

			if err := cfg.Save(filepath.Join(dataDir(cmd), "config.yaml")); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			shown := value
			if key == "llm.api_key" {
				shown = cfg.LLM.RedactedAPIKey()
			}
			if jsonOutput(cmd) {
				return printJSON(cmd, map[string]interface{}{
					"status": "updated",
					"key":    key,
					"value":  shown,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, shown)
			return nil
		},
	}
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.EcosimConfig, key string) (interface{}, bool) {
	if name, ok := strings.CutPrefix(key, simulationPrefix); ok {
		v, err := params.Get(cfg.Simulation, name)
		if err != nil {
			return nil, false
		}
		return v, true
	}

	switch key {
	case "llm.provider":
		return cfg.LLM.Provider, true
	case "llm.api_key":
		return cfg.LLM.RedactedAPIKey(), true
	case "llm.base_url":
		return cfg.LLM.BaseURL, true
	case "llm.model":
		return cfg.LLM.Model, true
	case "llm.max_tokens":
		return cfg.LLM.MaxTokens, true
	case "llm.timeout":
		return cfg.LLM.Timeout.String(), true
	case "llm.enabled":
		return cfg.LLM.Enabled, true
	case "llm.fallback_to_rules":
		return cfg.LLM.FallbackToRules, true
	case "logging.level":
		return cfg.Logging.Level, true
	case "server.addr":
		return cfg.Server.Addr, true
	case "server.ask_per_minute":
		return cfg.Server.AskPerMinute, true
	case "backup.compression":
		return cfg.Backup.Compression, true
	case "backup.retention.max_count":
		return cfg.Backup.Retention.MaxCount, true
	case "backup.retention.max_age":
		return cfg.Backup.Retention.MaxAge, true
	case "backup.retention.max_total_size":
		return cfg.Backup.Retention.MaxTotalSize, true
	default:
		return nil, false
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.EcosimConfig, key, value string) error {
	if name, ok := strings.CutPrefix(key, simulationPrefix); ok {
		if err := params.Set(&cfg.Simulation, name, value); err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
		return nil
	}

	switch key {
	case "llm.provider":
		validProviders := map[string]bool{"": true, "anthropic": true, "openai": true, "ollama": true}
		if !validProviders[value] {
			return fmt.Errorf("invalid provider: %s (valid: anthropic, openai, ollama, or empty)", value)
		}
		cfg.LLM.Provider = value
	case "llm.api_key":
		cfg.LLM.APIKey = value
	case "llm.base_url":
		cfg.LLM.BaseURL = value
	case "llm.model":
		cfg.LLM.Model = value
	case "llm.max_tokens":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid max_tokens: %s", value)
		}
		cfg.LLM.MaxTokens = n
	case "llm.timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %s", value)
		}
		cfg.LLM.Timeout = d
	case "llm.enabled":
		cfg.LLM.Enabled = value == "true" || value == "1"
	case "llm.fallback_to_rules":
		cfg.LLM.FallbackToRules = value == "true" || value == "1"
	case "logging.level":
		cfg.Logging.Level = value
	case "server.addr":
		cfg.Server.Addr = value
	case "server.ask_per_minute":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid ask_per_minute: %s", value)
		}
		cfg.Server.AskPerMinute = f
	case "backup.compression":
		cfg.Backup.Compression = value == "true" || value == "1"
	case "backup.retention.max_count":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid max_count: %s", value)
		}
		cfg.Backup.Retention.MaxCount = n
	case "backup.retention.max_age":
		if value != "" {
			if _, err := backup.ParseDuration(value); err != nil {
				return err
			}
		}
		cfg.Backup.Retention.MaxAge = value
	case "backup.retention.max_total_size":
		if value != "" {
			if _, err := backup.ParseSize(value); err != nil {
				return err
			}
		}
		cfg.Backup.Retention.MaxTotalSize = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

// displayValue renders empty strings as "(not set)".
func displayValue(v interface{}) interface{} {
	if s, ok := v.(string); ok && s == "" {
		return "(not set)"
	}
	return v
}
