package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/comanda/internal/api"
	"github.com/MikeSquared-Agency/comanda/internal/config"
	"github.com/MikeSquared-Agency/comanda/internal/hermes"
	"github.com/MikeSquared-Agency/comanda/internal/processor"
	"github.com/MikeSquared-Agency/comanda/internal/store"
)

func serveCommand(cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the order service: NATS consumer and HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cfg)
		},
	}
}

func runServe(cfg config.Config) error {
	setupLogging(cfg.LogLevel, os.Stdout)
	slog.Info("comanda starting", "port", cfg.Port, "version", version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database
	if cfg.DatabaseURL == "" {
		return codeError(3, "DATABASE_URL is required")
	}
	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	slog.Info("database connected")

	// Catalog and parser
	lookup, closeLookup, err := buildLookup(ctx, cfg, db)
	if err != nil {
		return codeError(3, "catalog: %s", err)
	}
	defer closeLookup()
	parser, err := buildParser(cfg, lookup)
	if err != nil {
		return codeError(3, "parser: %s", err)
	}

	// NATS/Hermes
	connectCtx, cancelConnect := context.WithTimeout(ctx, 10*time.Second)
	hermesClient, err := hermes.NewClient(connectCtx, cfg.NatsURL, cfg.NatsToken, slog.Default())
	cancelConnect()
	if err != nil {
		return fmt.Errorf("connect NATS: %w", err)
	}
	defer hermesClient.Close()
	slog.Info("NATS connected", "url", cfg.NatsURL)

	proc := processor.New(parser, db, hermesClient, slog.Default())
	if err := hermesClient.Subscribe(hermes.SubjectMessageReceived, proc.HandleMessageReceived); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	// HTTP API
	srv := api.NewServer(cfg.Port, cfg.APIToken, proc, db)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	if err := hermesClient.Publish(hermes.SubjectAgentRegistered, hermes.AgentRegistered{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Port:      cfg.Port,
		Version:   version,
	}); err != nil {
		slog.Warn("failed to publish registration", "error", err)
	}

	slog.Info("comanda ready", "port", cfg.Port)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown failed", "error", err)
	}
	slog.Info("comanda stopped")
	return nil
}
