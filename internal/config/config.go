package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr             string
	DBDriver             string
	DatabaseURL          string
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool

	JWTSecret string
	JWTTTL    time.Duration

	LogLevel  string
	LogFormat string

	RedisURL       string
	IdempotencyTTL time.Duration

	PageSize    int
	MaxPageSize int
}

// Load reads the process environment, after merging a .env file when one exists.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from the given lookup function.
func FromEnv(lookup func(string) string) (Config, error) {
	get := func(key, def string) string {
		v := strings.TrimSpace(lookup(key))
		if v == "" {
			return def
		}
		return v
	}

	cfg := Config{
		HTTPAddr:             get("HTTP_ADDR", ":8080"),
		DBDriver:             strings.ToLower(get("DB_DRIVER", "postgres")),
		DatabaseURL:          get("DATABASE_URL", ""),
		CORSAllowCredentials: get("CORS_ALLOW_CREDENTIALS", "false") == "true",
		JWTSecret:            get("JWT_SECRET", ""),
		LogLevel:             get("LOG_LEVEL", "info"),
		LogFormat:            get("LOG_FORMAT", "text"),
		RedisURL:             get("REDIS_URL", ""),
	}

	for _, o := range strings.Split(get("CORS_ALLOWED_ORIGINS", ""), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
		}
	}

	var err error
	if cfg.JWTTTL, err = parseDuration("JWT_TTL", get("JWT_TTL", "168h")); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = parseDuration("IDEMPOTENCY_TTL", get("IDEMPOTENCY_TTL", "24h")); err != nil {
		return Config{}, err
	}
	if cfg.PageSize, err = parsePositive("PAGE_SIZE", get("PAGE_SIZE", "10")); err != nil {
		return Config{}, err
	}
	if cfg.MaxPageSize, err = parsePositive("MAX_PAGE_SIZE", get("MAX_PAGE_SIZE", "100")); err != nil {
		return Config{}, err
	}
	if cfg.PageSize > cfg.MaxPageSize {
		return Config{}, fmt.Errorf("PAGE_SIZE (%d) exceeds MAX_PAGE_SIZE (%d)", cfg.PageSize, cfg.MaxPageSize)
	}

	switch cfg.DBDriver {
	case "postgres", "sqlite":
	default:
		return Config{}, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	var missing []string
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return Config{}, errors.New("missing env: " + strings.Join(missing, ", "))
	}

	return cfg, nil
}

func parseDuration(key, v string) (time.Duration, error) {
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, v)
	}
	return d, nil
}

func parsePositive(key, v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", key, v)
	}
	return n, nil
}
