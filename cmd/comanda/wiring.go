package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MikeSquared-Agency/comanda/internal/catalog"
	"github.com/MikeSquared-Agency/comanda/internal/config"
	"github.com/MikeSquared-Agency/comanda/internal/orderparse"
)

// buildLookup layers the optional redis cache over primary and appends the
// static price file, if any. primary may be nil. The returned cleanup closes
// the redis client.
func buildLookup(ctx context.Context, cfg config.Config, primary catalog.Lookup) (catalog.Lookup, func(), error) {
	lookup := primary
	cleanup := func() {}

	if lookup != nil && cfg.RedisURL != "" {
		rdb, err := catalog.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			slog.Warn("redis unavailable, catalog lookups uncached", "error", err)
		} else {
			lookup = catalog.NewCached(lookup, rdb, cfg.LookupCacheTTL, slog.Default())
			cleanup = func() { rdb.Close() }
			slog.Info("catalog cache ready", "ttl", cfg.LookupCacheTTL)
		}
	}

	if cfg.PriceFile != "" {
		prices, err := catalog.LoadStatic(cfg.PriceFile)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		slog.Info("price file loaded", "path", cfg.PriceFile, "products", prices.Len())
		if lookup == nil {
			lookup = prices
		} else {
			lookup = catalog.Chain(lookup, prices)
		}
	}
	return lookup, cleanup, nil
}

func buildParser(cfg config.Config, lookup catalog.Lookup) (*orderparse.Parser, error) {
	if cfg.FallbackPrice < 0 {
		return nil, fmt.Errorf("fallback price must not be negative, got %v", cfg.FallbackPrice)
	}
	opts := []orderparse.Option{
		orderparse.WithFallbackPrice(cfg.FallbackPrice),
		orderparse.WithLookupConcurrency(cfg.LookupConcurrency),
		orderparse.WithLogger(slog.Default().With("component", "parser")),
	}
	if cfg.MarkersFile != "" {
		vocab, err := orderparse.LoadVocabulary(cfg.MarkersFile)
		if err != nil {
			return nil, err
		}
		g, err := orderparse.Compile(vocab)
		if err != nil {
			return nil, fmt.Errorf("compile markers: %w", err)
		}
		opts = append(opts, orderparse.WithGrammar(g))
		slog.Info("marker vocabulary loaded", "path", cfg.MarkersFile)
	}
	return orderparse.New(lookup, opts...), nil
}
