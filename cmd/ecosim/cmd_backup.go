package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/nvandessel/ecosim/internal/backup"
	"github.com/nvandessel/ecosim/internal/config"
	"github.com/nvandessel/ecosim/internal/store"
	"github.com/spf13/cobra"
)

func newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Export feedback, quiz attempts and scenarios to a backup file",
		Long: `Backup the session history (feedback, quiz attempts, saved scenarios)
to a compressed file.

Default location: ~/.ecosim/backups/ecosim-backup-YYYYMMDD-HHMMSS.mmm.json.gz
Older backups are removed according to backup.retention (default: keep 10).

Examples:
  ecosim backup                              # Backup to the default location
  ecosim backup --output ~/.ecosim/backups/before-reset.json.gz
  ecosim backup --no-compress                # Plain JSON backup
  ecosim backup list                         # List backups
  ecosim backup verify <file>                # Check a backup's checksum
  ecosim backup restore <file> --mode replace`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputPath, _ := cmd.Flags().GetString("output")
			noCompress, _ := cmd.Flags().GetBool("no-compress")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			compress := cfg.Backup.Compression && !noCompress

			dir := backup.DefaultDir(dataDir(cmd))
			if outputPath == "" {
				outputPath = backup.GeneratePath(dir, compress)
			} else {
				resolved, err := backup.ResolvePath(outputPath, []string{dir})
				if err != nil {
					return err
				}
				outputPath = resolved
			}

			policy, err := retentionPolicy(cfg)
			if err != nil {
				return err
			}

			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			archive, err := backup.Backup(context.Background(), st, outputPath, compress)
			if err != nil {
				return fmt.Errorf("backup failed: %w", err)
			}

			deleted, err := backup.ApplyRetention(filepath.Dir(outputPath), policy)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to apply retention: %v\n", err)
			}

			h := archive.History
			if jsonOutput(cmd) {
				var sizeBytes int64
				if info, err := os.Stat(outputPath); err == nil {
					sizeBytes = info.Size()
				}
				return printJSON(cmd, map[string]any{
					"path":           outputPath,
					"version":        archive.Version,
					"compressed":     compress,
					"size_bytes":     sizeBytes,
					"feedback_count": len(h.Feedback),
					"attempt_count":  len(h.QuizAttempts),
					"scenario_count": len(h.Scenarios),
					"rotated":        len(deleted),
				})
			}

			versionLabel := "v2/gzip"
			if !compress {
				versionLabel = "v1/json"
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Backup created: %d feedback, %d quiz attempts, %d scenarios (%s)\n",
				len(h.Feedback), len(h.QuizAttempts), len(h.Scenarios), versionLabel)
			fmt.Fprintf(out, "  Path: %s\n", outputPath)
			if len(deleted) > 0 {
				fmt.Fprintf(out, "  Removed %d old backup(s)\n", len(deleted))
			}
			return nil
		},
	}

	cmd.Flags().String("output", "", "Output file inside the backups directory (default: timestamped name)")
	cmd.Flags().Bool("no-compress", false, "Write a plain JSON (V1) backup")

	cmd.AddCommand(
		newBackupListCmd(),
		newBackupVerifyCmd(),
		newBackupRestoreCmd(),
	)

	return cmd
}

func newBackupListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List backups, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			backups, err := backup.List(backup.DefaultDir(dataDir(cmd)))
			if err != nil {
				return err
			}

			if jsonOutput(cmd) {
				return printJSON(cmd, map[string]any{"backups": backups, "count": len(backups)})
			}

			out := cmd.OutOrStdout()
			if len(backups) == 0 {
				fmt.Fprintln(out, "No backups found.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "FILE\tFORMAT\tSIZE\tRECORDS\tCREATED")
			for _, b := range backups {
				records := "-"
				if b.Version == backup.FormatV2 {
					if header, err := backup.ReadV2Header(b.Path); err == nil {
						records = fmt.Sprintf("%d", header.FeedbackCount+header.AttemptCount+header.ScenarioCount)
					}
				}
				fmt.Fprintf(w, "%s\tv%d\t%d\t%s\t%s\n",
					filepath.Base(b.Path), b.Version, b.Size, records, b.CreatedAt.Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}
}

func newBackupVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <file>",
		Short: "Verify a backup's integrity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			version, err := backup.DetectFormat(path)
			if err != nil {
				return err
			}

			// V1 files carry no checksum; a successful parse is the check.
			if version == backup.FormatV2 {
				err = backup.VerifyChecksum(path)
			} else {
				_, err = backup.Read(path)
			}
			if err != nil {
				return fmt.Errorf("verification failed: %w", err)
			}

			if jsonOutput(cmd) {
				return printJSON(cmd, map[string]any{"path": path, "version": version, "valid": true})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: OK (v%d)\n", filepath.Base(path), version)
			return nil
		},
	}
}

func newBackupRestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore <file>",
		Short: "Restore history from a backup file",
		Long: `Restore feedback, quiz attempts and scenarios from a backup (V1 or V2,
auto-detected). The file must be inside the backups directory.

Modes:
  merge   - Keep existing records and skip duplicates (default)
  replace - Clear the history first, then restore`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			modeFlag, _ := cmd.Flags().GetString("mode")
			mode, err := store.ParseRestoreMode(modeFlag)
			if err != nil {
				return err
			}

			inputPath, err := backup.ResolvePath(args[0], []string{backup.DefaultDir(dataDir(cmd))})
			if err != nil {
				return err
			}

			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			result, err := backup.Restore(context.Background(), st, inputPath, mode)
			if err != nil {
				return fmt.Errorf("restore failed: %w", err)
			}

			if jsonOutput(cmd) {
				return printJSON(cmd, map[string]any{"mode": mode, "result": result})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Restore complete (mode: %s)\n", mode)
			fmt.Fprintf(out, "  Feedback:      %d restored, %d skipped\n", result.FeedbackRestored, result.FeedbackSkipped)
			fmt.Fprintf(out, "  Quiz attempts: %d restored, %d skipped\n", result.AttemptsRestored, result.AttemptsSkipped)
			fmt.Fprintf(out, "  Scenarios:     %d restored, %d skipped\n", result.ScenariosRestored, result.ScenariosSkipped)
			return nil
		},
	}

	cmd.Flags().String("mode", string(store.RestoreMerge), "Restore mode: merge or replace")

	return cmd
}

// retentionPolicy builds the backup retention policy from configuration.
func retentionPolicy(cfg *config.EcosimConfig) (backup.RetentionPolicy, error) {
	r := cfg.Backup.Retention
	policy, err := backup.NewRetentionPolicy(r.MaxCount, r.MaxAge, r.MaxTotalSize)
	if err != nil {
		return nil, fmt.Errorf("invalid backup retention: %w", err)
	}
	return policy, nil
}
