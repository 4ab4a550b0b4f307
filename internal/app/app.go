// Package app wires configuration into a ready resolver engine and its
// outcome sinks. Both the worker manager and the debug CLI start here.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"go.uber.org/zap"

	"probate-resolver/internal/common/aws"
	"probate-resolver/internal/common/config"
	"probate-resolver/internal/common/database"
	"probate-resolver/internal/common/limiter"
	"probate-resolver/internal/common/logger"
	"probate-resolver/internal/common/observability"
	"probate-resolver/internal/common/retry"
	"probate-resolver/internal/common/zoho"
	"probate-resolver/internal/outcome"
	"probate-resolver/internal/resolver/engine"
	"probate-resolver/internal/resolver/names"
	"probate-resolver/internal/resolver/oracle"
	"probate-resolver/internal/resolver/profilecache"
	"probate-resolver/internal/resolver/source"
)

// Options selects which outbound infrastructure is opened.
type Options struct {
	// Sinks opens the configured outcome sinks.
	Sinks bool
	// Startup is the retry policy for dependencies that may still be booting.
	Startup retry.Policy
}

// StartupPolicy retries a dependency for roughly a minute.
func StartupPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: 15,
		BaseDelay:   2 * time.Second,
		Factor:      1.5,
		MaxDelay:    10 * time.Second,
	}
}

type App struct {
	Config        *config.Config
	Logger        logger.Logger
	Engine        *engine.Engine
	Sink          *outcome.Fanout
	Observability *observability.Observability

	closers []func() error
}

// New builds the engine from cfg. Failures of required dependencies are
// returned; the caller owns Close.
func New(ctx context.Context, cfg *config.Config, zapLog *zap.Logger, opts Options) (*App, error) {
	if zapLog == nil {
		zapLog = zap.NewNop()
	}
	if opts.Startup.MaxAttempts == 0 {
		opts.Startup = StartupPolicy()
	}
	log := logger.NewZapAdapter(zapLog)
	a := &App{Config: cfg, Logger: log}

	a.Observability = observability.New(cfg.App.Name, zapLog)
	a.closers = append(a.closers, func() error {
		a.Observability.Shutdown()
		return nil
	})

	es, err := a.elasticsearch(ctx, opts.Startup)
	if err != nil {
		a.Close()
		return nil, err
	}

	lim := limiter.New(cfg.Limiter.MaxConcurrent)
	registry, err := source.Build(cfg, es, lim, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("build sources: %w", err)
	}

	store, err := a.profileStore(ctx, opts.Startup)
	if err != nil {
		a.Close()
		return nil, err
	}
	cache := profilecache.New(store, log)

	predicates := names.DefaultPredicates()
	matcher, survivors := oracle.Build(cfg, predicates, log)

	a.Engine = engine.New(cfg.Resolver, engine.Deps{
		Registry:      registry,
		Oracle:        matcher,
		Survivors:     survivors,
		Cache:         cache,
		Predicates:    predicates,
		Observability: a.Observability,
		Logger:        log,
	})

	var sinks []outcome.Sink
	if opts.Sinks {
		sinks, err = a.sinks(ctx, opts.Startup)
		if err != nil {
			a.Close()
			return nil, err
		}
	}
	a.Sink = outcome.NewFanout(log, sinks...)

	log.Info("resolver ready", map[string]interface{}{
		"sources": len(registry.All()),
		"oracle":  cfg.Oracle.Mode,
		"cache":   store != nil,
		"sinks":   len(sinks),
	})
	return a, nil
}

// Close releases every opened dependency in reverse order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warn("close failed", map[string]interface{}{"error": err.Error()})
		}
	}
	a.closers = nil
}

func (a *App) elasticsearch(ctx context.Context, policy retry.Policy) (*elasticsearch.Client, error) {
	needed := false
	for _, s := range a.Config.Sources {
		if s.Enabled && s.Kind == config.SourceKindRecords {
			needed = true
		}
	}
	if !needed {
		return nil, nil
	}

	client, err := database.NewElasticsearch(a.Config.Database.Elasticsearch)
	if err != nil {
		return nil, err
	}
	if err := a.connect(ctx, "Elasticsearch connection", policy, client.Ping); err != nil {
		return nil, err
	}
	return client.Client, nil
}

func (a *App) profileStore(ctx context.Context, policy retry.Policy) (profilecache.Store, error) {
	if !a.Config.Cache.RedisEnabled {
		return nil, nil
	}
	redisCfg := a.Config.Database.Redis
	if redisCfg.PoolSize <= 0 {
		redisCfg.PoolSize = database.ProfilePoolSize(a.Config.Resolver.BatchConcurrency, a.Config.Resolver.MaxDeepFetches)
	}
	client, err := database.NewRedis(redisCfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, client.Close)
	if err := a.connect(ctx, "Redis connection", policy, client.Ping); err != nil {
		return nil, err
	}
	ttl := time.Duration(a.Config.Cache.TTLHours) * time.Hour
	return profilecache.NewRedisStore(client.Client, a.Config.Cache.KeyPrefix, ttl), nil
}

func (a *App) sinks(ctx context.Context, policy retry.Policy) ([]outcome.Sink, error) {
	var sinks []outcome.Sink
	cfg := a.Config

	if cfg.Database.Postgres.Enabled {
		pg, err := database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pg.Close)
		if err := a.connect(ctx, "PostgreSQL connection", policy, pg.Ping); err != nil {
			return nil, err
		}
		sinks = append(sinks, outcome.NewPostgresStore(pg.DB, a.Logger))
	}

	if cfg.Integrations.AWS.SNS.Enabled {
		client, err := aws.NewSNSClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			return nil, fmt.Errorf("sns client: %w", err)
		}
		sinks = append(sinks, outcome.NewSNSPublisher(client, cfg.Integrations.AWS.SNS.TopicARN, a.Logger))
	}

	if cfg.Integrations.AWS.SES.Enabled {
		client, err := aws.NewSESClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			return nil, fmt.Errorf("ses client: %w", err)
		}
		ses := cfg.Integrations.AWS.SES
		sinks = append(sinks, outcome.NewReviewMailer(client, ses.Sender, ses.Recipients, a.Logger))
	}

	if cfg.Integrations.Zoho.Enabled {
		crm := zoho.NewCRMClient(cfg.Integrations.Zoho.BaseURL, cfg.Integrations.Zoho.AuthToken, 30*time.Second)
		sinks = append(sinks, outcome.NewCRMSink(crm, a.Logger))
	}

	return sinks, nil
}

func (a *App) connect(ctx context.Context, name string, policy retry.Policy, ping func(context.Context) error) error {
	err := retry.Do(ctx, policy, func(ctx context.Context, _ int) error {
		return ping(ctx)
	}, func(attempt int, err error, next time.Duration) {
		a.Logger.Warn(name+" failed, retrying...", map[string]interface{}{
			"error":       err.Error(),
			"attempt":     attempt,
			"maxRetries":  policy.MaxAttempts,
			"nextRetryIn": next.String(),
		})
	})
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	a.Logger.Info(name+" established", nil)
	return nil
}
