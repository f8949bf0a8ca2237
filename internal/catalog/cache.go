package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "comanda:catalog:"
	missMarker = "-"
	defaultTTL = 10 * time.Minute
	missTTLDiv = 5
)

// Cached is a read-through redis cache in front of another Lookup.
// Misses are cached too, for a fifth of the TTL.
type Cached struct {
	next   Lookup
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCached(next Lookup, rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *Cached {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Cached{next: next, rdb: rdb, ttl: ttl, logger: logger}
}

// NewRedisClient builds a client from a redis:// URL and pings it.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func (c *Cached) Lookup(ctx context.Context, code string) (Product, error) {
	key := keyPrefix + CodeKey(code)

	raw, err := c.rdb.Get(ctx, key).Result()
	switch {
	case err == nil:
		if raw == missMarker {
			return Product{}, fmt.Errorf("%w: %s", ErrNotFound, code)
		}
		var p Product
		if jerr := json.Unmarshal([]byte(raw), &p); jerr == nil {
			return p, nil
		}
		c.logger.Warn("discarding corrupt catalog cache entry", "key", key)
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Warn("catalog cache read failed", "key", key, "error", err)
	}

	p, err := c.next.Lookup(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.set(ctx, key, missMarker, c.ttl/missTTLDiv)
		}
		return Product{}, err
	}

	data, err := json.Marshal(p)
	if err == nil {
		c.set(ctx, key, string(data), c.ttl)
	}
	return p, nil
}

// Invalidate drops a cached entry, e.g. after an inventory price change.
func (c *Cached) Invalidate(ctx context.Context, code string) error {
	return c.rdb.Del(ctx, keyPrefix+CodeKey(code)).Err()
}

func (c *Cached) set(ctx context.Context, key, value string, ttl time.Duration) {
	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		c.logger.Warn("catalog cache write failed", "key", key, "error", err)
	}
}
