package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nvandessel/ecosim/internal/content"
	"github.com/spf13/cobra"
)

func newAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask the ecosystem assistant a question",
		Long: `Ask a question about ecosystems, species or the simulation parameters.

Answers come from the configured LLM provider, or from the built-in
reference material when no provider is enabled.

Examples:
  ecosim ask "Why are predators important?"
  ecosim ask --suggestions`,
		RunE: func(cmd *cobra.Command, args []string) error {
			lib := content.Default()

			if showSuggestions, _ := cmd.Flags().GetBool("suggestions"); showSuggestions || len(args) == 0 {
				if jsonOutput(cmd) {
					return printJSON(cmd, map[string]any{"suggestions": lib.Suggestions})
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Try asking:")
				for _, s := range lib.Suggestions {
					fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", s)
				}
				return nil
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, trace := newLoggers(cmd, cfg)
			defer trace.Close()

			timeout := cfg.LLM.Timeout
			if timeout <= 0 {
				timeout = 30 * time.Second
			}
			ctx, cancel := context.WithTimeout(context.Background(), timeout+timeout/2)
			defer cancel()

			ans, err := newAssistant(cfg, lib, logger, trace).Ask(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}

			if jsonOutput(cmd) {
				return printJSON(cmd, ans)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n%s\n", ans.Text, ans.Tip)
			return nil
		},
	}

	cmd.Flags().Bool("suggestions", false, "List suggested questions")

	return cmd
}
