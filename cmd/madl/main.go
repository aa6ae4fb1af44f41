package main

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/ffarras/multi-ad-login/internal/bootstrap"
	"github.com/ffarras/multi-ad-login/internal/config"
	"github.com/ffarras/multi-ad-login/internal/directory"
	httptransport "github.com/ffarras/multi-ad-login/internal/http"
	"github.com/ffarras/multi-ad-login/internal/http/handler"
	"github.com/ffarras/multi-ad-login/internal/middleware"
	"github.com/ffarras/multi-ad-login/internal/profile"
	"github.com/ffarras/multi-ad-login/internal/repository"
	"github.com/ffarras/multi-ad-login/internal/server"
	"github.com/ffarras/multi-ad-login/internal/service"
	"github.com/ffarras/multi-ad-login/internal/telemetry"
)

func main() {
	app := fx.New(
		fx.Provide(
			newConfig,
			newLogger,
			newTelemetry,
			newSnowflake,
			newPGXPool,
			newProfileRepository,
			newAccountRepository,
			newDirectoryClient,
			newProfileResolver,
			newRateLimiter,
			newAuthService,
			newProfileService,
			newReconciler,
			newAuthHandler,
			newProfileHandler,
			httptransport.NewRouter,
			server.NewHTTPServer,
		),
		fx.Invoke(useTelemetry, bootstrap.EnsureSchema, startHTTPServer),
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
	return snowflake.NewNode(1)
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

func newProfileRepository(pool *pgxpool.Pool) repository.ProfileRepository {
	return repository.NewPostgresProfileRepo(pool)
}

func newAccountRepository(pool *pgxpool.Pool) repository.AccountRepository {
	return repository.NewPostgresAccountRepo(pool)
}

func newDirectoryClient(logger *zap.Logger) directory.Client {
	return directory.NewLDAPClient(logger)
}

func newProfileResolver(profiles repository.ProfileRepository, logger *zap.Logger) *profile.Resolver {
	return profile.NewResolver(profiles, logger)
}

func newRateLimiter(cfg config.Config) *middleware.RateLimiter {
	return middleware.NewRateLimiter(cfg.RateLimitRPM)
}

func newAuthService(resolver *profile.Resolver, client directory.Client, logger *zap.Logger) *service.AuthService {
	return service.NewAuthService(resolver, client, logger)
}

func newProfileService(profiles repository.ProfileRepository, logger *zap.Logger) *service.ProfileService {
	return service.NewProfileService(profiles, logger)
}

func newReconciler(accounts repository.AccountRepository, node *snowflake.Node, cfg config.Config, logger *zap.Logger) *service.Reconciler {
	return service.NewReconciler(accounts, node, cfg.DefaultRole, logger)
}

func newAuthHandler(auth *service.AuthService, reconciler *service.Reconciler, logger *zap.Logger) *handler.AuthHandler {
	return handler.NewAuthHandler(auth, reconciler, logger)
}

func newProfileHandler(profiles *service.ProfileService, logger *zap.Logger) *handler.ProfileHandler {
	return handler.NewProfileHandler(profiles, logger)
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
