package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/nvandessel/ecosim/internal/assistant"
	"github.com/nvandessel/ecosim/internal/config"
	"github.com/nvandessel/ecosim/internal/content"
	"github.com/nvandessel/ecosim/internal/llm"
	"github.com/nvandessel/ecosim/internal/logging"
	"github.com/nvandessel/ecosim/internal/store"
	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ecosim",
		Short: "Ecosystem simulator - plants, herbivores and predators",
		Long: `ecosim simulates a three-species food chain under adjustable
environmental conditions and explains the outcome.

It also answers ecology questions, serves conservation guides and a
short quiz, and can run as a browser dashboard or an MCP tool server.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")
	rootCmd.PersistentFlags().String("home", "", "Data directory (default ~/.ecosim)")
	rootCmd.PersistentFlags().Bool("no-store", false, "Keep feedback, quiz attempts and scenarios in memory only")

	rootCmd.AddCommand(
		newVersionCmd(),
		newSimulateCmd(),
		newAskCmd(),
		newTipsCmd(),
		newSpeciesCmd(),
		newResourcesCmd(),
		newQuizCmd(),
		newFeedbackCmd(),
		newScenarioCmd(),
		newConfigCmd(),
		newBackupCmd(),
		newServeCmd(),
		newMCPServerCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			if jsonOutput(cmd) {
				return printJSON(cmd, map[string]string{"version": version})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ecosim version %s\n", version)
			return nil
		},
	}
}

// jsonOutput reports whether --json was given.
func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

// printJSON writes v to the command's output as indented JSON.
func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// dataDir returns --home, or ~/.ecosim when unset.
func dataDir(cmd *cobra.Command) string {
	if home, _ := cmd.Flags().GetString("home"); home != "" {
		return home
	}
	return config.Dir()
}

// loadConfig loads and validates configuration from the data directory.
func loadConfig(cmd *cobra.Command) (*config.EcosimConfig, error) {
	cfg, err := config.LoadFrom(dataDir(cmd))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// openStore opens the SQLite store in the data directory, or a memory
// store when --no-store is set.
func openStore(cmd *cobra.Command) (store.Store, error) {
	if noStore, _ := cmd.Flags().GetBool("no-store"); noStore {
		return store.NewMemoryStore(), nil
	}
	st, err := store.NewSQLiteStore(dataDir(cmd))
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return st, nil
}

// newLoggers builds the operational logger and the decision log.
// The decision log is nil below debug level.
func newLoggers(cmd *cobra.Command, cfg *config.EcosimConfig) (*slog.Logger, *logging.DecisionLogger) {
	logger := logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())
	return logger, logging.NewDecisionLogger(dataDir(cmd), cfg.Logging.Level)
}

// newAssistant selects the LLM backend from cfg. A disabled provider
// answers from the built-in reference content.
func newAssistant(cfg *config.EcosimConfig, lib *content.Library, logger *slog.Logger, trace *logging.DecisionLogger) *assistant.Assistant {
	var client llm.Client
	if !cfg.LLM.Enabled {
		client = llm.NewFallbackClient(lib)
	} else {
		client = llm.NewClient(llm.ClientConfig{
			Provider:        cfg.LLM.Provider,
			APIKey:          cfg.LLM.APIKey,
			BaseURL:         cfg.LLM.BaseURL,
			Model:           cfg.LLM.Model,
			Timeout:         cfg.LLM.Timeout,
			MaxTokens:       cfg.LLM.MaxTokens,
			FallbackToRules: cfg.LLM.FallbackToRules,
		})
	}
	logger.Debug("assistant configured", "provider", llm.ProviderName(client))
	return assistant.New(client, logger, trace)
}
