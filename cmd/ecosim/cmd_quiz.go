package main

import (
	"context"
	"fmt"

	"github.com/nvandessel/ecosim/internal/content"
	"github.com/nvandessel/ecosim/internal/store"
	"github.com/spf13/cobra"
)

func newQuizCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quiz",
		Short: "Test your ecology knowledge",
		Long: `Test your ecology knowledge.

Examples:
  ecosim quiz list
  ecosim quiz answer 1 "Photosynthesis"
  ecosim quiz score`,
	}

	cmd.AddCommand(
		newQuizListCmd(),
		newQuizAnswerCmd(),
		newQuizScoreCmd(),
	)

	return cmd
}

func newQuizListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the quiz questions and their options",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			questions := content.Default().Questions()

			if jsonOutput(cmd) {
				type item struct {
					Index    int      `json:"index"`
					Question string   `json:"question"`
					Options  []string `json:"options"`
				}
				items := make([]item, len(questions))
				for i, q := range questions {
					items[i] = item{Index: i + 1, Question: q.Text, Options: q.Options}
				}
				return printJSON(cmd, map[string]any{"questions": items})
			}

			out := cmd.OutOrStdout()
			for i, q := range questions {
				fmt.Fprintf(out, "%d. %s\n", i+1, q.Text)
				for _, o := range q.Options {
					fmt.Fprintf(out, "   - %s\n", o)
				}
			}
			return nil
		},
	}
}

func newQuizAnswerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "answer <question> <option>",
		Short: "Answer a quiz question by number or text",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := content.Default().Check(args[0], args[1])
			if err != nil {
				return err
			}

			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := context.Background()
			if _, err := st.RecordQuizAttempt(ctx, store.QuizAttempt{
				Question: res.Question, Answer: res.Given, Correct: res.Correct,
			}); err != nil {
				return fmt.Errorf("failed to record attempt: %w", err)
			}
			score, err := st.QuizScore(ctx)
			if err != nil {
				return fmt.Errorf("failed to load score: %w", err)
			}

			if jsonOutput(cmd) {
				return printJSON(cmd, map[string]any{
					"result":  res,
					"message": res.Message(),
					"score":   score,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\nScore: %d/%d\n", res.Message(), score.Correct, score.Total)
			return nil
		},
	}
}

func newQuizScoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "score",
		Short: "Show correct answers out of all recorded attempts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			score, err := st.QuizScore(context.Background())
			if err != nil {
				return fmt.Errorf("failed to load score: %w", err)
			}

			if jsonOutput(cmd) {
				return printJSON(cmd, score)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Score: %d/%d\n", score.Correct, score.Total)
			return nil
		},
	}
}
