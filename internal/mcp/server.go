// Package mcp provides an MCP (Model Context Protocol) server for ecosim.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nvandessel/ecosim/internal/assistant"
	"github.com/nvandessel/ecosim/internal/backup"
	"github.com/nvandessel/ecosim/internal/content"
	"github.com/nvandessel/ecosim/internal/logging"
	"github.com/nvandessel/ecosim/internal/params"
	"github.com/nvandessel/ecosim/internal/ratelimit"
	"github.com/nvandessel/ecosim/internal/store"
)

// Server wraps the MCP SDK server and provides ecosim-specific tools.
type Server struct {
	server       *sdk.Server
	store        store.Store
	library      *content.Library
	assistant    *assistant.Assistant
	defaults     params.Parameters
	toolLimiters ratelimit.ToolLimiters
	backupDir    string
	compress     bool
	retention    backup.RetentionPolicy
	auditLogger  *AuditLogger
	logger       *slog.Logger
	trace        *logging.DecisionLogger
	closeOnce    sync.Once
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "ecosim")
	Version string // Server version

	// Dir receives audit.jsonl. Empty disables auditing.
	Dir string

	// BackupDir holds backups written and read by the backup tools.
	// Defaults to the backups directory under Dir; with both empty the
	// backup tools report an error.
	BackupDir string

	// NoCompress writes plain JSON backups.
	NoCompress bool

	// Retention prunes BackupDir after each backup. Nil keeps the last 10.
	Retention backup.RetentionPolicy

	// Store is owned by the server and closed by Close.
	Store     store.Store
	Assistant *assistant.Assistant
	Library   *content.Library
	Defaults  params.Parameters
	Logger    *slog.Logger
	Trace     *logging.DecisionLogger
}

// NewServer creates a new MCP server with ecosim tools and resources.
func NewServer(cfg *Config) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("mcp: nil config")
	}

	st := cfg.Store
	if st == nil {
		st = store.NewMemoryStore()
	}
	lib := cfg.Library
	if lib == nil {
		lib = content.Default()
	}
	defaults := cfg.Defaults
	if defaults == (params.Parameters{}) {
		defaults = params.Default()
	}
	if err := defaults.Validate(); err != nil {
		return nil, fmt.Errorf("invalid default parameters: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	backupDir := cfg.BackupDir
	if backupDir == "" && cfg.Dir != "" {
		backupDir = backup.DefaultDir(cfg.Dir)
	}
	retention := cfg.Retention
	if retention == nil {
		retention = &backup.CountPolicy{MaxCount: backup.DefaultMaxCount}
	}

	var audit *AuditLogger
	if cfg.Dir != "" {
		audit = NewAuditLogger(cfg.Dir)
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, req *sdk.InitializedRequest) {
			logger.Debug("mcp client initialized")
		},
	})

	s := &Server{
		server:       mcpServer,
		store:        st,
		library:      lib,
		assistant:    cfg.Assistant,
		defaults:     defaults,
		toolLimiters: ratelimit.NewToolLimiters(),
		backupDir:    backupDir,
		compress:     !cfg.NoCompress,
		retention:    retention,
		auditLogger:  audit,
		logger:       logger,
		trace:        cfg.Trace,
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Run starts the MCP server over stdio transport.
// This blocks until the client disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)

	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	err := s.server.Run(ctx, &sdk.StdioTransport{})

	if closeErr := s.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

// Close closes the store and the audit log. It is safe to call more than once.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = errors.Join(s.store.Close(), s.auditLogger.Close())
	})
	return err
}
