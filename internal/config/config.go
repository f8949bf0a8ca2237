package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port              int
	NatsURL           string
	NatsToken         string
	DatabaseURL       string
	RedisURL          string
	LogLevel          string
	APIToken          string
	FallbackPrice     float64
	MarkersFile       string
	PriceFile         string
	LookupCacheTTL    time.Duration
	LookupConcurrency int
}

func Load() Config {
	return Config{
		Port:              envInt("COMANDA_PORT", 8760),
		NatsURL:           envStr("NATS_URL", "nats://hermes:4222"),
		NatsToken:         envStr("NATS_TOKEN", ""),
		DatabaseURL:       envStr("DATABASE_URL", ""),
		RedisURL:          envStr("REDIS_URL", ""),
		LogLevel:          envStr("LOG_LEVEL", "info"),
		APIToken:          envStr("COMANDA_API_TOKEN", ""),
		FallbackPrice:     envFloat("COMANDA_FALLBACK_PRICE", 25000),
		MarkersFile:       envStr("COMANDA_MARKERS_FILE", ""),
		PriceFile:         envStr("COMANDA_PRICE_FILE", ""),
		LookupCacheTTL:    envDuration("COMANDA_LOOKUP_CACHE_TTL", 10*time.Minute),
		LookupConcurrency: envInt("COMANDA_LOOKUP_CONCURRENCY", 4),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
