// Package main provides the entry point for the scout MCP server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/raphaelgruber/scout/internal/config"
	"github.com/raphaelgruber/scout/internal/db"
	"github.com/raphaelgruber/scout/internal/server"
	"github.com/raphaelgruber/scout/internal/service"
	"github.com/raphaelgruber/scout/internal/session"
	"github.com/raphaelgruber/scout/internal/tools"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Setup logger (dual output: stderr text + file JSON)
	logger, cleanup := config.SetupLogger(config.LoggerOptions{File: cfg.LogFile, Level: cfg.LogLevel})
	defer cleanup()

	logger.Info("scout-mcp starting",
		"version", version,
		"llm_provider", cfg.LLMProvider,
		"llm_model", cfg.LLMModel,
		"session_store", cfg.SessionStore,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	stack, err := service.NewStack(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build search stack", "error", err)
		os.Exit(1)
	}

	sessions := tools.MemorySessions(session.NewPool())
	if cfg.SessionStore == config.StoreSurreal {
		dbClient, err := db.Open(ctx, db.ConfigFrom(cfg), logger)
		if err != nil {
			logger.Error("failed to open session database", "error", err)
			os.Exit(1)
		}
		defer func() {
			_ = dbClient.Close(context.Background())
		}()

		sessions = func(ctx context.Context, conversationID, persona string) (session.Store, error) {
			store, err := dbClient.Session(ctx, conversationID, persona, db.WithMetrics(stack.Metrics))
			if err != nil {
				return nil, err
			}
			return store, nil
		}
	}

	srv := server.New(version, logger)
	srv.Setup()

	tools.RegisterAll(srv.MCPServer(), &tools.Dependencies{
		NewOrchestrator: func(store session.Store) tools.Orchestrator {
			return stack.Orchestrator(store)
		},
		Sessions: sessions,
		Logger:   logger,
	})
	logger.Info("server ready, awaiting connections")

	// Run server (blocks until disconnect or context cancelled)
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("shutdown complete", "stats", stack.Metrics.Snapshot().Named())
}

