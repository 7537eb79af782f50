package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nvandessel/ecosim/internal/content"
	"github.com/nvandessel/ecosim/internal/sanitize"
	"github.com/nvandessel/ecosim/internal/store"
	"github.com/spf13/cobra"
)

func newFeedbackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback [message]",
		Short: "Leave feedback, or list feedback with --list",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := context.Background()
			out := cmd.OutOrStdout()

			if list, _ := cmd.Flags().GetBool("list"); list {
				limit, _ := cmd.Flags().GetInt("limit")
				entries, err := st.ListFeedback(ctx, limit)
				if err != nil {
					return fmt.Errorf("failed to list feedback: %w", err)
				}
				if jsonOutput(cmd) {
					return printJSON(cmd, map[string]any{"feedback": entries, "count": len(entries)})
				}
				if len(entries) == 0 {
					fmt.Fprintln(out, "No feedback yet.")
				}
				for _, fb := range entries {
					fmt.Fprintf(out, "[%s] %s\n", fb.CreatedAt.Format("2006-01-02 15:04"), fb.Message)
				}
				return nil
			}

			if len(args) == 0 {
				return fmt.Errorf("feedback message is required")
			}

			fb, err := st.AddFeedback(ctx, sanitize.Feedback(strings.Join(args, " ")))
			if errors.Is(err, store.ErrInvalid) {
				return fmt.Errorf("feedback message is empty")
			}
			if err != nil {
				return fmt.Errorf("failed to store feedback: %w", err)
			}

			if jsonOutput(cmd) {
				return printJSON(cmd, map[string]any{"id": fb.ID, "message": content.FeedbackThanks})
			}
			fmt.Fprintln(out, content.FeedbackThanks)
			return nil
		},
	}

	cmd.Flags().Bool("list", false, "List stored feedback, newest first")
	cmd.Flags().Int("limit", 20, "Maximum entries to list (0 for all)")

	return cmd
}
