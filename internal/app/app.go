package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/votsa/ssr/internal/config"
	"github.com/votsa/ssr/internal/continuation"
	handlers "github.com/votsa/ssr/internal/http"
	"github.com/votsa/ssr/internal/identity"
	"github.com/votsa/ssr/internal/obs"
	"github.com/votsa/ssr/internal/providers"
	"github.com/votsa/ssr/internal/routes"
	"github.com/votsa/ssr/internal/search"
	"github.com/votsa/ssr/internal/validator"
)

type App struct {
	Router      http.Handler
	Gateway     search.Gateway
	Search      *search.Service
	Sessions    *continuation.Sessions
	RateLimiter search.RateLimiter
	Metrics     *obs.Metrics

	redis *redis.Client
}

// NewGateway picks the in-process mock or the remote APIs depending on mode.
func NewGateway(cfg *config.Config, ids identity.IDGenerator, metrics *obs.Metrics, logger *slog.Logger) search.Gateway {
	if cfg.Mode == config.ModeMock {
		return providers.NewMockUpstream(providers.MockOptions{AvgLatency: 0.05})
	}
	return providers.NewUpstream(providers.UpstreamConfig{
		SearchURL:          cfg.SearchAPIURL,
		AvailabilityURL:    cfg.AvailabilityAPIURL,
		APIKey:             cfg.AvailabilityAPIKey,
		Currency:           cfg.Currency,
		Language:           cfg.Language,
		Brand:              cfg.Brand,
		DeviceType:         "desktop",
		DefaultCountryCode: cfg.DefaultCountryCode,
	}, &http.Client{Timeout: cfg.UpstreamTimeout}, ids, metrics, logger)
}

// NewSearchService wires poller, engine, anchor resolver and coalescer
// around a gateway.
func NewSearchService(cfg *config.Config, gateway search.Gateway, metrics *obs.Metrics, logger *slog.Logger) *search.Service {
	poller := search.NewPoller(gateway, metrics, logger, search.WithDelay(cfg.PollDelay))
	engine := search.NewEngine(gateway, poller, cfg.PollMaxIterations, metrics, logger)
	anchors := search.NewAnchorResolver(gateway, poller, logger)

	return search.NewService(engine, anchors, poller, search.NewCoalescer(metrics, cfg.ComputeTimeout), metrics, search.ServiceConfig{
		ComputeTimeout:           cfg.ComputeTimeout,
		AnchorPageLoadIterations: cfg.AnchorPageLoadIterations,
		AnchorRefineIterations:   cfg.AnchorRefineIterations,
		OffersRefreshIterations:  cfg.OffersRefreshIterations,
	})
}

func SetAppConfig(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ids := identity.UUIDGenerator{}
	customRegistry := prometheus.NewRegistry()
	metrics := obs.NewMetrics(customRegistry)

	gateway := NewGateway(cfg, ids, metrics, logger)
	svc := NewSearchService(cfg, gateway, metrics, logger)

	var (
		store       continuation.Store
		redisClient *redis.Client
	)
	if cfg.RedisURL != "" {
		client, err := continuation.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		redisClient = client
		store = continuation.NewRedisStore(client, cfg.SessionTTL, lockTTL(cfg), ids.NewID)
		logger.Info("session store", "backend", "redis")
	} else {
		store = continuation.NewMemoryStore(cfg.SessionTTL)
		logger.Info("session store", "backend", "memory")
	}
	sessions := continuation.NewSessions(store, svc, svc, logger)

	rl := search.NewIPRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	h := handlers.NewHandler(svc, sessions, rl, validator.New(), ids, metrics, logger)

	router := routes.GetRoutes(h, metrics, logger, routes.Options{
		RequestTimeout:     cfg.RequestTimeout,
		DefaultCountryCode: cfg.DefaultCountryCode,
		IDs:                ids,
	})

	logger.Info("app configured", "mode", cfg.Mode, "env", cfg.Env)

	return &App{
		Router:      router,
		Gateway:     gateway,
		Search:      svc,
		Sessions:    sessions,
		RateLimiter: rl,
		Metrics:     metrics,
		redis:       redisClient,
	}, nil
}

// lockTTL keeps a load-more lock alive for the whole request, including the
// page reconcile and the offers refresh that follows it.
func lockTTL(cfg *config.Config) time.Duration {
	ttl := cfg.RequestTimeout
	if d := 2 * cfg.ComputeTimeout; d > ttl {
		ttl = d
	}
	return ttl + 5*time.Second
}

// Close releases the session store connection, if any.
func (a *App) Close() error {
	if a.redis == nil {
		return nil
	}
	return a.redis.Close()
}
