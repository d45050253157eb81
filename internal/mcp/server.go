package mcp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/servicecache/internal/collection"
	"github.com/dshills/servicecache/internal/config"
	"github.com/dshills/servicecache/internal/executor"
	"github.com/dshills/servicecache/internal/factory"
	"github.com/dshills/servicecache/internal/ingest"
	"github.com/dshills/servicecache/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "servicecache"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp         *server.MCPServer
	cfg         *config.Config
	storage     *storage.SQLiteStorage
	executor    *executor.Executor
	collections *collection.Set
	loaders     map[string]*ingest.Loader // by prefix
	logger      *slog.Logger
}

// NewServer opens the database and builds one collection per configured
// service.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	// Initialize storage
	store, err := storage.NewSQLiteStorage(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	exec := executor.New(cfg.Workers, logger)
	set := collection.NewSet()
	loaders := make(map[string]*ingest.Loader, len(cfg.Services))

	for _, svc := range cfg.Services {
		if err := store.EnsureService(context.Background(), svc.Prefix); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to prepare service %s: %w", svc.Name, err)
		}

		f, err := factory.NewSQLFactory(svc.Prefix)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		c, err := collection.New(svc.Name, f, store, collection.Options{
			Executor:        exec,
			Logger:          logger,
			LookupCacheSize: cfg.LookupCacheSize,
		})
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		set.Add(c)

		loader, err := ingest.New(store, svc.Prefix, logger)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		loaders[svc.Prefix] = loader
	}

	// Create MCP server
	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:         mcpServer,
		cfg:         cfg,
		storage:     store,
		executor:    exec,
		collections: set,
		loaders:     loaders,
		logger:      logger,
	}

	// Register tools
	if err := s.registerTools(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	return s, nil
}

// Collections returns the configured collections.
func (s *Server) Collections() *collection.Set {
	return s.collections
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.Close() }()
	return server.ServeStdio(s.mcp)
}

// Close aborts outstanding queries, waits for them and closes the database.
func (s *Server) Close() error {
	s.executor.AbortAll()
	s.executor.Wait()
	return s.storage.Close()
}

// registerTools registers all MCP tools
func (s *Server) registerTools() error {
	s.mcp.AddTool(queryCollectionTool(), s.handleQueryCollection)
	s.mcp.AddTool(trackForURLTool(), s.handleTrackForURL)
	s.mcp.AddTool(collectionStatusTool(), s.handleCollectionStatus)
	s.mcp.AddTool(ingestCatalogTool(), s.handleIngestCatalog)
	return nil
}
