package main

import (
	"context"
	"fmt"

	"github.com/nvandessel/ecosim/internal/content"
	"github.com/nvandessel/ecosim/internal/mcp"
	"github.com/spf13/cobra"
)

func newMCPServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp-server",
		Short: "Run as an MCP server over stdio",
		Long: `Run ecosim as a Model Context Protocol server on stdin/stdout.

Tools: ecosim_simulate, ecosim_ask, ecosim_tips, ecosim_quiz, ecosim_feedback,
ecosim_backup, ecosim_restore.
Resources: ecosim://resources, ecosim://species, ecosim://tips/{species}.

Logs go to stderr. Tool calls are audited to audit.jsonl in the data directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			policy, err := retentionPolicy(cfg)
			if err != nil {
				return err
			}
			logger, trace := newLoggers(cmd, cfg)
			defer trace.Close()

			st, err := openStore(cmd)
			if err != nil {
				return err
			}

			lib := content.Default()
			server, err := mcp.NewServer(&mcp.Config{
				Name:      "ecosim",
				Version:   version,
				Dir:        dataDir(cmd),
				NoCompress: !cfg.Backup.Compression,
				Retention:  policy,
				Store:      st,
				Assistant:  newAssistant(cfg, lib, logger, trace),
				Library:    lib,
				Defaults:   cfg.Simulation,
				Logger:     logger,
				Trace:      trace,
			})
			if err != nil {
				st.Close()
				return fmt.Errorf("failed to create MCP server: %w", err)
			}

			logger.Info("mcp server starting", "version", version)
			return server.Run(context.Background())
		},
	}
}
