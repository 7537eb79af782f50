package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/nvandessel/ecosim/internal/content"
	"github.com/nvandessel/ecosim/internal/dashboard"
	"github.com/nvandessel/ecosim/internal/ratelimit"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the browser dashboard",
		Long: `Start the browser dashboard: parameter sliders, live population
charts, the assistant, conservation tips, the quiz and feedback.

The server listens on server.addr from the config (default localhost with a
random port) until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				cfg.Server.Addr = addr
			}
			noOpen, _ := cmd.Flags().GetBool("no-open")

			logger, trace := newLoggers(cmd, cfg)
			defer trace.Close()

			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			lib := content.Default()
			srv := dashboard.NewServer(dashboard.Options{
				Addr:       cfg.Server.Addr,
				Defaults:   cfg.Simulation,
				Assistant:  newAssistant(cfg, lib, logger, trace),
				Library:    lib,
				Store:      st,
				AskLimiter: ratelimit.PerMinute(cfg.Server.AskPerMinute, 5),
				Logger:     logger,
				Trace:      trace,
			})

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			// Handle SIGINT/SIGTERM for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			notifySignals(sigCh)
			defer signal.Stop(sigCh)

			go func() {
				select {
				case <-sigCh:
					cancel()
				case <-ctx.Done():
				}
			}()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe(ctx) }()

			// Wait for server to start
			deadline := time.Now().Add(3 * time.Second)
			for time.Now().Before(deadline) && srv.Addr() == "" {
				select {
				case err := <-errCh:
					return fmt.Errorf("server error: %w", err)
				case <-time.After(10 * time.Millisecond):
				}
			}

			addr := srv.Addr()
			if addr == "" {
				return fmt.Errorf("server failed to start")
			}

			url := "http://" + addr
			fmt.Fprintf(cmd.OutOrStdout(), "Dashboard running at %s\n", url)
			fmt.Fprintf(cmd.OutOrStdout(), "Press Ctrl-C to stop.\n")

			if !noOpen {
				if err := dashboard.OpenBrowser(url); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Could not open browser: %v\nOpen %s manually.\n", err, url)
				}
			}

			// Block until server exits
			if err := <-errCh; err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
	cmd.Flags().Bool("no-open", false, "Don't open a browser")

	return cmd
}
