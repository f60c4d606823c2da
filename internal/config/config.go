package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	RedisURL           string
	CORSAllowedOrigins []string

	ZipDataPath   string
	TaxRatesPath  string
	CatalogDBPath string

	S3Bucket       string
	S3Region       string
	S3Endpoint     string
	S3UsePathStyle bool
	S3PresignTTL   time.Duration

	ModelMaxBytes    int64
	GeometryTimeout  time.Duration
	GeometryCacheTTL time.Duration

	FetchTimeout       time.Duration
	FetchMaxAttempts   int
	FetchBackoffBase   time.Duration
	FetchJitterPercent float64

	CircuitFetchMinRequests  int
	CircuitFetchFailureRatio float64
	CircuitFetchOpenFor      time.Duration

	QuoteRateLimitMax    int
	QuoteRateLimitWindow time.Duration

	SecurityHeadersEnabled bool
	SecurityHSTSEnabled    bool
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		RedisURL:           strings.TrimSpace(k.String("REDIS_URL")),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		ZipDataPath:   strings.TrimSpace(k.String("ZIP_DATA_PATH")),
		TaxRatesPath:  strings.TrimSpace(k.String("TAX_RATES_PATH")),
		CatalogDBPath: strings.TrimSpace(k.String("CATALOG_DB_PATH")),

		S3Bucket:       strings.TrimSpace(k.String("S3_BUCKET")),
		S3Region:       valueOrDefault(k.String("S3_REGION"), "us-east-1"),
		S3Endpoint:     strings.TrimSpace(k.String("S3_ENDPOINT")),
		S3UsePathStyle: parseBool(k.String("S3_USE_PATH_STYLE")),
		S3PresignTTL:   parseDuration(k.String("S3_PRESIGN_TTL"), "15m"),

		ModelMaxBytes:    parseInt64(k.String("MODEL_MAX_BYTES"), 64<<20),
		GeometryTimeout:  parseDuration(k.String("GEOMETRY_TIMEOUT"), "10s"),
		GeometryCacheTTL: parseDuration(k.String("GEOMETRY_CACHE_TTL"), "24h"),

		FetchTimeout:       parseDuration(k.String("FETCH_TIMEOUT"), "15s"),
		FetchMaxAttempts:   parseInt(k.String("FETCH_MAX_ATTEMPTS"), 3),
		FetchBackoffBase:   parseDuration(k.String("FETCH_BACKOFF_BASE"), "200ms"),
		FetchJitterPercent: parseFloat(k.String("FETCH_JITTER_PERCENT"), 20),

		CircuitFetchMinRequests:  parseInt(k.String("CIRCUIT_FETCH_MIN_REQ"), 10),
		CircuitFetchFailureRatio: parseFloat(k.String("CIRCUIT_FETCH_FAILURE_RATE"), 0.5),
		CircuitFetchOpenFor:      parseDuration(k.String("CIRCUIT_FETCH_OPEN_FOR"), "30s"),

		QuoteRateLimitMax:    parseInt(k.String("QUOTE_RATE_LIMIT_MAX"), 30),
		QuoteRateLimitWindow: parseDuration(k.String("QUOTE_RATE_LIMIT_WINDOW"), "1m"),

		SecurityHeadersEnabled: parseBoolDefault(k.String("SECURITY_HEADERS_ENABLED"), true),
		SecurityHSTSEnabled:    parseBool(k.String("SECURITY_HSTS_ENABLED")),
	}

	if cfg.ZipDataPath == "" {
		return nil, errors.New("ZIP_DATA_PATH is required")
	}
	if cfg.TaxRatesPath == "" {
		return nil, errors.New("TAX_RATES_PATH is required")
	}
	if cfg.ModelMaxBytes <= 0 {
		return nil, errors.New("MODEL_MAX_BYTES must be positive")
	}
	if cfg.CircuitFetchFailureRatio <= 0 || cfg.CircuitFetchFailureRatio > 1 {
		return nil, errors.New("CIRCUIT_FETCH_FAILURE_RATE must be in (0, 1]")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string) bool {
	return parseBoolDefault(value, false)
}

func parseBoolDefault(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func parseInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func parseInt64(value string, fallback int64) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func parseFloat(value string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
