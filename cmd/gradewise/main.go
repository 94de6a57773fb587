package main

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	cacheadapter "github.com/gradewise/gradewise/internal/adapter/cache"
	"github.com/gradewise/gradewise/internal/adapter/provider"
	"github.com/gradewise/gradewise/internal/config"
	"github.com/gradewise/gradewise/internal/domain"
	httptransport "github.com/gradewise/gradewise/internal/http"
	"github.com/gradewise/gradewise/internal/http/handler"
	httpmiddleware "github.com/gradewise/gradewise/internal/http/middleware"
	apimiddleware "github.com/gradewise/gradewise/internal/middleware"
	"github.com/gradewise/gradewise/internal/repository"
	"github.com/gradewise/gradewise/internal/server"
	"github.com/gradewise/gradewise/internal/service"
	authservice "github.com/gradewise/gradewise/internal/service/auth"
	"github.com/gradewise/gradewise/internal/session"
	"github.com/gradewise/gradewise/internal/signer"
	"github.com/gradewise/gradewise/internal/telemetry"
)

func main() {
	app := fx.New(
		fx.Provide(
			newConfig,
			newLogger,
			newTelemetry,
			newSnowflake,
			newTokenStore,
			newSigner,
			newGate,
			newProviderClient,
			newSessionBinder,
			newRateLimiter,
			authservice.NewFlow,
			service.NewDashboard,
			handler.NewAuthHandler,
			handler.NewDashboardHandler,
			newSessionMiddleware,
			httptransport.NewRouter,
			server.NewHTTPServer,
		),
		fx.Invoke(useTelemetry, startHTTPServer),
	)

	app.Run()
}

func newConfig() (config.Config, error) {
	return config.Load()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Environment == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func newTelemetry(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*telemetry.Provider, error) {
	provider, err := telemetry.New(context.Background(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("telemetry init: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return provider.Shutdown(stopCtx)
		},
	})

	return provider, nil
}

func newSnowflake() (*snowflake.Node, error) {
	node, err := snowflake.NewNode(1)
	return node, err
}

// newTokenStore selects the persistence backend. Redis is the default; the
// in-memory store survives only for the process lifetime and is meant for
// local development and demo deployments.
func newTokenStore(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (repository.TokenStore, error) {
	switch cfg.TokenStore {
	case config.StoreRedis:
		client, err := newRedisClient(lc, cfg)
		if err != nil {
			return nil, err
		}
		return cacheadapter.NewRedisTokenStore(client), nil
	case config.StorePostgres:
		pool, err := newPGXPool(lc, cfg)
		if err != nil {
			return nil, err
		}
		store := repository.NewPostgresTokenStore(pool)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure token schema: %w", err)
		}
		return store, nil
	case config.StoreMemory:
		logger.Warn("using in-memory token store; tokens will not survive restarts")
		return repository.NewMemoryTokenStore(), nil
	default:
		return nil, fmt.Errorf("unknown token store backend %q", cfg.TokenStore)
	}
}

func newRedisClient(lc fx.Lifecycle, cfg config.Config) (redis.UniversalClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

func newPGXPool(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			pool.Close()
			return nil
		},
	})

	return pool, nil
}

// newSigner returns a nil signer when no consumer credential is configured.
// Config validation only permits that in demo mode; signed calls then fail
// closed with a configuration error instead of reaching the provider.
func newSigner(cfg config.Config) (*signer.Signer, error) {
	if cfg.ConsumerKey == "" {
		return nil, nil
	}
	return signer.New(signer.Config{
		Consumer: domain.Credential{Key: cfg.ConsumerKey, Secret: cfg.ConsumerSecret},
	})
}

func newGate(s *signer.Signer, cfg config.Config) *signer.Gate {
	return signer.NewGate(s, domain.Credential{Key: cfg.AdminKey, Secret: cfg.AdminSecret})
}

func newProviderClient(cfg config.Config, s *signer.Signer, gate *signer.Gate) provider.Client {
	return provider.NewHTTPClient(provider.Config{
		BaseURL:         cfg.ProviderBaseURL,
		ForwardVerifier: cfg.ForwardVerifier,
		Timeout:         cfg.ProviderTimeout,
	}, s, gate, nil)
}

func newSessionBinder(cfg config.Config) *session.Binder {
	return session.NewBinder(cfg.SessionSecret, cfg.SessionTTL, cfg.SecureCookies)
}

func newRateLimiter(cfg config.Config) *apimiddleware.RateLimiter {
	return apimiddleware.NewRateLimiter(cfg.RateLimitRPM)
}

func newSessionMiddleware(binder *session.Binder, cfg config.Config) *httpmiddleware.Session {
	return &httpmiddleware.Session{Binder: binder, DemoMode: cfg.DemoMode}
}

func startHTTPServer(lc fx.Lifecycle, srv *server.HTTPServer, cfg config.Config, logger *zap.Logger) {
	addr := ":" + cfg.HTTPPort
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runCtx, stop := context.WithCancel(context.Background())
			cancel = stop
			done = make(chan struct{})

			go func() {
				if err := srv.Run(runCtx, addr); err != nil {
					logger.Error("http server stopped", zap.Error(err))
				}
				close(done)
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
			}
			if done == nil {
				return nil
			}
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func useTelemetry(*telemetry.Provider) {}
