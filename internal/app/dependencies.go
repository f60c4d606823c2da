// Package app assembles the quote service's collaborators from configuration and
// exposes them as an HTTP router.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/printquote/internal/catalog"
	"github.com/noah-isme/printquote/internal/config"
	"github.com/noah-isme/printquote/internal/geometry"
	"github.com/noah-isme/printquote/internal/health"
	"github.com/noah-isme/printquote/internal/quote"
	"github.com/noah-isme/printquote/internal/ratelimit"
	"github.com/noah-isme/printquote/internal/ratetable"
	"github.com/noah-isme/printquote/internal/resilience"
	"github.com/noah-isme/printquote/internal/storage"
)

// Dependencies enumerates core services shared across modules to make wiring explicit.
type Dependencies struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Redis   *redis.Client
	Objects *storage.S3Store
	Catalog *catalog.Catalog
	Tables  *ratetable.Tables
	Limiter ratelimit.Allower
	Quotes  *quote.Service

	catalogDB *sql.DB
}

// Options carries settings that do not come from config.Config.
type Options struct {
	RedisMetrics bool
	// Objects overrides S3 store construction, mainly for tests.
	Objects *storage.S3Store
}

// Build loads the rate tables and catalog and connects optional backends. Missing
// rate tables and an unreachable configured Redis are startup errors.
func Build(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts Options) (*Dependencies, error) {
	if cfg == nil {
		return nil, errors.New("app: config is required")
	}
	deps := &Dependencies{Config: cfg, Logger: logger}

	tables, err := ratetable.LoadFiles(cfg.ZipDataPath, cfg.TaxRatesPath)
	if err != nil {
		return nil, fmt.Errorf("load rate tables: %w", err)
	}
	deps.Tables = tables
	zips, states := tables.Len()
	logger.Info().Int("zips", zips).Int("states", states).Msg("rate tables loaded")

	if err := deps.loadCatalog(ctx); err != nil {
		return nil, err
	}

	rdb, err := NewRedis(ctx, cfg.RedisURL, opts.RedisMetrics, logger)
	if err != nil {
		deps.Close()
		return nil, err
	}
	deps.Redis = rdb

	deps.Objects = opts.Objects
	if deps.Objects == nil && cfg.S3Bucket != "" {
		store, err := storage.NewS3Store(ctx, storage.S3Config{
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			Endpoint:     cfg.S3Endpoint,
			UsePathStyle: cfg.S3UsePathStyle,
			MaxBytes:     cfg.ModelMaxBytes,
		})
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("initialise object storage: %w", err)
		}
		deps.Objects = store
	}

	deps.Limiter = NewLimiter(rdb, cfg.QuoteRateLimitMax, cfg.QuoteRateLimitWindow)
	deps.Quotes = quote.NewService(quote.Dependencies{
		Materials:       deps.Catalog,
		Rates:           deps.Tables,
		Extractor:       deps.extractor(),
		Models:          deps.modelResolver(),
		MaxModelBytes:   cfg.ModelMaxBytes,
		GeometryTimeout: cfg.GeometryTimeout,
		FetchTimeout:    cfg.FetchTimeout,
		Logger:          logger,
	})
	return deps, nil
}

// NewRedis connects to url with tracing and optional metrics instrumentation. An
// empty url returns a nil client.
func NewRedis(ctx context.Context, url string, metrics bool, logger zerolog.Logger) (*redis.Client, error) {
	if url == "" {
		logger.Info().Msg("redis not configured; geometry cache disabled, in-process rate limiting")
		return nil, nil
	}
	redisOpts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metrics {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// NewLimiter returns a Redis sliding window when rdb is set and an in-process
// limiter otherwise. A non-positive max disables limiting.
func NewLimiter(rdb *redis.Client, max int, window time.Duration) ratelimit.Allower {
	if max <= 0 {
		return nil
	}
	if rdb != nil {
		return ratelimit.SlidingWindow{Client: rdb, Prefix: "rl:", Window: window, Max: max}
	}
	return ratelimit.NewMemory(window, max)
}

// NewFetchClient builds the retrying, circuit-broken client used for file_url models.
func NewFetchClient(cfg *config.Config, logger zerolog.Logger) resilience.HTTPClient {
	breaker := resilience.NewBreaker(cfg.CircuitFetchMinRequests, cfg.CircuitFetchFailureRatio, cfg.CircuitFetchOpenFor).
		WithTarget("model-fetch").
		WithLogger(logger)
	return resilience.HTTPClient{
		Client:      &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		Breaker:     breaker,
		BaseBackoff: cfg.FetchBackoffBase,
		MaxAttempts: cfg.FetchMaxAttempts,
		Jitter:      cfg.FetchJitterPercent / 100,
		Timeout:     cfg.FetchTimeout,
		Target:      "model-fetch",
		Logger:      logger,
	}
}

// Close releases the Redis client and catalog database.
func (d *Dependencies) Close() {
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error().Err(err).Msg("close redis")
		}
	}
	if d.catalogDB != nil {
		if err := d.catalogDB.Close(); err != nil {
			d.Logger.Error().Err(err).Msg("close catalog database")
		}
	}
}

func (d *Dependencies) loadCatalog(ctx context.Context) error {
	path := d.Config.CatalogDBPath
	if path == "" {
		d.Catalog = catalog.Defaults()
	} else {
		db, err := catalog.OpenDB(ctx, path)
		if err != nil {
			return fmt.Errorf("open catalog: %w", err)
		}
		if err := catalog.Migrate(ctx, db); err != nil {
			db.Close()
			return fmt.Errorf("migrate catalog: %w", err)
		}
		c, err := catalog.Store{DB: db}.Load(ctx)
		if err != nil {
			db.Close()
			return fmt.Errorf("load catalog: %w", err)
		}
		d.catalogDB = db
		d.Catalog = c
	}
	if incomplete := d.Catalog.Incomplete(); len(incomplete) > 0 {
		d.Logger.Warn().Strs("materials", incomplete).Msg("catalog has materials missing density or price")
	}
	d.Logger.Info().Int("materials", d.Catalog.Len()).Str("source", valueOr(path, "defaults")).Msg("catalog loaded")
	return nil
}

func (d *Dependencies) extractor() geometry.Extractor {
	var next geometry.Extractor = geometry.STLExtractor{}
	if d.Redis == nil {
		return next
	}
	return geometry.CachedExtractor{
		Next:   next,
		Cache:  geometry.NewCache(d.Redis, d.Config.GeometryCacheTTL),
		Prefix: "geometry:",
		Logger: d.Logger,
	}
}

func (d *Dependencies) modelResolver() storage.Resolver {
	resolver := storage.Resolver{
		URLs: storage.URLFetcher{Client: NewFetchClient(d.Config, d.Logger), MaxBytes: d.Config.ModelMaxBytes},
	}
	if d.Objects != nil {
		resolver.Objects = d.Objects
	}
	return resolver
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

type readinessChecker struct {
	redis   *redis.Client
	objects *storage.S3Store
}

func (c readinessChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.redis == nil {
		return health.ErrNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.redis.Ping(ctx).Err()
}

func (c readinessChecker) PingStorage(ctx context.Context, timeout time.Duration) error {
	if c.objects == nil {
		return health.ErrNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.objects.Ping(ctx)
}
