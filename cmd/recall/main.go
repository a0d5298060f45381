package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"

	"github.com/dshills/recall-mcp/internal/config"
	"github.com/dshills/recall-mcp/internal/mcp"
	"github.com/dshills/recall-mcp/internal/storage"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: recall.yaml in ~/.recall or cwd)")
	showVersion := flag.Bool("version", false, "Print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("Recall MCP Server\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", storage.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", storage.DriverName)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Log to stderr; stdout is reserved for the MCP protocol.
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "recall",
	})
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	logger.Info("starting",
		"version", version,
		"build_mode", storage.BuildMode,
		"driver", storage.DriverName,
		"vector_backend", cfg.VectorBackend,
		"data_dir", cfg.DataDir)

	server, err := mcp.NewServer(cfg, logger)
	if err != nil {
		logger.Fatal("failed to create server", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		logger.Info("listening on stdio")
		errChan <- server.Serve(ctx)
	}()

	select {
	case sig := <-sigChan:
		logger.Info("shutting down", "signal", sig)
		cancel()
	case err := <-errChan:
		if err != nil {
			logger.Fatal("server error", "error", err)
		}
	}

	logger.Info("stopped")
}
