package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dshills/servicecache/internal/config"
	"github.com/dshills/servicecache/internal/ingest"
	"github.com/dshills/servicecache/internal/mcp"
	"github.com/dshills/servicecache/internal/storage"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version information and exit")
	catalog := flag.String("ingest", "", "load a JSON catalog into --service and exit")
	service := flag.String("service", "", "service name or prefix for --ingest")
	flag.Parse()

	// Handle version flag
	if *showVersion {
		fmt.Printf("Service Cache MCP Server\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", storage.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", storage.DriverName)
		os.Exit(0)
	}

	// Log startup info to stderr (stdout reserved for MCP protocol)
	log.SetOutput(os.Stderr)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *catalog != "" {
		if err := runIngest(ctx, cfg, *catalog, *service); err != nil {
			log.Fatalf("Ingest failed: %v", err)
		}
		return
	}

	log.Printf("Service Cache MCP Server v%s starting...", version)
	log.Printf("Build Mode: %s, Driver: %s, Database: %s",
		storage.BuildMode, storage.DriverName, cfg.DBPath)

	// Create MCP server
	server, err := mcp.NewServer(cfg, nil)
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start server in a goroutine
	errChan := make(chan error, 1)
	go func() {
		log.Printf("MCP server ready with %d services, listening on stdio...", len(cfg.Services))
		errChan <- server.Serve(ctx)
	}()

	// Wait for shutdown signal or error
	select {
	case sig := <-sigChan:
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	case err := <-errChan:
		if err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}

	log.Println("Server stopped")
}

// runIngest loads a catalog file into one configured service
func runIngest(ctx context.Context, cfg *config.Config, path, name string) error {
	if name == "" {
		return fmt.Errorf("--service is required with --ingest")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	svc, ok := cfg.Service(name)
	if !ok {
		return fmt.Errorf("unknown service %q", name)
	}

	cat, err := ingest.LoadCatalogFile(path)
	if err != nil {
		return err
	}

	store, err := storage.NewSQLiteStorage(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	loader, err := ingest.New(store, svc.Prefix, nil)
	if err != nil {
		return err
	}

	stats, err := loader.Load(ctx, cat, &ingest.Config{
		Workers:   cfg.Ingest.Workers,
		BatchSize: cfg.Ingest.BatchSize,
	})
	if err != nil {
		return err
	}

	log.Printf("Loaded %s: %d artists, %d albums, %d genres, %d tracks (%d failed) in %v",
		svc.Name, stats.Artists, stats.Albums, stats.Genres, stats.Tracks, stats.TracksFailed, stats.Duration)
	for _, msg := range stats.ErrorMessages {
		log.Printf("  %s", msg)
	}
	return nil
}
