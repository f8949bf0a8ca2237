package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/comanda/internal/catalog"
	"github.com/MikeSquared-Agency/comanda/internal/config"
	"github.com/MikeSquared-Agency/comanda/internal/importer"
	"github.com/MikeSquared-Agency/comanda/internal/orderparse"
	"github.com/MikeSquared-Agency/comanda/internal/processor"
	"github.com/MikeSquared-Agency/comanda/internal/store"
)

type importFlags struct {
	dir    string
	file   string
	state  string
	source string
	dryRun bool
}

func importCommand(cfg config.Config) *cobra.Command {
	var flags importFlags
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Ingest exported chat files and JSONL event dumps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cfg, flags)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.dir, "dir", "", "Directory of .txt chat exports and .jsonl event dumps")
	f.StringVar(&flags.file, "file", "", "Import a single file instead of a directory")
	f.StringVar(&flags.state, "state", importer.DefaultStatePath, "Resume state file")
	f.StringVar(&flags.source, "source", string(orderparse.SourceChatMobile), "Source recorded for chat export messages")
	f.BoolVar(&flags.dryRun, "dry-run", false, "Parse only: nothing is stored and no state is saved")
	return cmd
}

func runImport(cfg config.Config, flags importFlags) error {
	setupLogging(cfg.LogLevel, os.Stderr)
	if flags.dir == "" && flags.file == "" {
		return codeError(3, "one of --dir or --file is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		primary catalog.Lookup
		orders  processor.OrderWriter
	)
	if cfg.DatabaseURL != "" {
		db, err := store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		primary = db
		if !flags.dryRun {
			orders = db
		}
	} else if !flags.dryRun {
		return codeError(3, "DATABASE_URL is required unless --dry-run is set")
	}

	lookup, closeLookup, err := buildLookup(ctx, cfg, primary)
	if err != nil {
		return codeError(3, "catalog: %s", err)
	}
	defer closeLookup()
	parser, err := buildParser(cfg, lookup)
	if err != nil {
		return codeError(3, "parser: %s", err)
	}

	// Historical imports are not announced on the bus.
	proc := processor.New(parser, orders, nil, slog.Default())
	runner := importer.NewRunner(importer.Config{
		Dir:        flags.dir,
		SingleFile: flags.file,
		StatePath:  flags.state,
		DryRun:     flags.dryRun,
		Source:     orderparse.Source(flags.source),
	}, proc, slog.Default())

	sum, err := runner.Run(ctx)
	if sum != nil {
		fmt.Fprint(os.Stdout, sum.Format())
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return codeError(1, "import interrupted, progress saved")
		}
		return err
	}
	return nil
}
