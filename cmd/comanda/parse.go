package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/comanda/internal/catalog"
	"github.com/MikeSquared-Agency/comanda/internal/config"
	"github.com/MikeSquared-Agency/comanda/internal/orderparse"
)

type parseFlags struct {
	dialect       string
	prices        string
	markers       string
	source        string
	fallbackPrice float64
}

func parseCommand(cfg config.Config) *cobra.Command {
	var flags parseFlags
	cmd := &cobra.Command{
		Use:   "parse [file|-]",
		Short: "Parse one order message offline and print the result as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			return runParse(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), path, cfg, flags)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.dialect, "dialect", "auto", "Dialect: auto, mobile-emoji, web-no-emoji or document-extract")
	f.StringVar(&flags.prices, "prices", cfg.PriceFile, "YAML price table; without it every price is estimated")
	f.StringVar(&flags.markers, "markers", cfg.MarkersFile, "YAML marker vocabulary")
	f.StringVar(&flags.source, "source", string(orderparse.SourceChatMobile), "Message source: chat-mobile, chat-web or document")
	f.Float64Var(&flags.fallbackPrice, "fallback-price", cfg.FallbackPrice, "Unit price used when a code is not in the price table")
	return cmd
}

func runParse(ctx context.Context, stdin io.Reader, stdout io.Writer, path string, cfg config.Config, flags parseFlags) error {
	setupLogging(cfg.LogLevel, os.Stderr)
	if ctx == nil {
		ctx = context.Background()
	}

	dialect, err := orderparse.ParseDialect(flags.dialect)
	if err != nil {
		return codeError(3, "invalid --dialect: %s", err)
	}

	text, err := readInput(stdin, path)
	if err != nil {
		return codeError(3, "reading input: %s", err)
	}

	var lookup catalog.Lookup
	if flags.prices != "" {
		prices, err := catalog.LoadStatic(flags.prices)
		if err != nil {
			return codeError(3, "%s", err)
		}
		lookup = prices
	}

	pcfg := cfg
	pcfg.FallbackPrice = flags.fallbackPrice
	pcfg.MarkersFile = flags.markers
	parser, err := buildParser(pcfg, lookup)
	if err != nil {
		return codeError(3, "%s", err)
	}

	res, err := parser.Parse(ctx, orderparse.RawMessage{
		ID:         "cli",
		Source:     orderparse.Source(flags.source),
		Text:       text,
		Dialect:    dialect,
		ReceivedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func readInput(stdin io.Reader, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}
