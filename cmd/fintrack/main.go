package main

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	cacheadapter "github.com/smallbiznis/fintrack-auth/internal/adapter/cache"
	"github.com/smallbiznis/fintrack-auth/internal/bootstrap"
	"github.com/smallbiznis/fintrack-auth/internal/config"
	httptransport "github.com/smallbiznis/fintrack-auth/internal/http"
	"github.com/smallbiznis/fintrack-auth/internal/http/handler"
	httpmiddleware "github.com/smallbiznis/fintrack-auth/internal/http/middleware"
	"github.com/smallbiznis/fintrack-auth/internal/jwt"
	apimiddleware "github.com/smallbiznis/fintrack-auth/internal/middleware"
	"github.com/smallbiznis/fintrack-auth/internal/password"
	"github.com/smallbiznis/fintrack-auth/internal/repository"
	"github.com/smallbiznis/fintrack-auth/internal/server"
	"github.com/smallbiznis/fintrack-auth/internal/service"
	"github.com/smallbiznis/fintrack-auth/internal/telemetry"
)

func main() {
	app := fx.New(
		fx.Provide(
			newConfig,
			newLogger,
			newTelemetry,
			newTracer,
			newSnowflake,
			newUserRepository,
			newRedisClient,
			newAttemptStore,
			newPasswordHasher,
			newTokenGenerator,
			newRateLimiter,
			service.NewAuthService,
			handler.NewAuthHandler,
			httpmiddleware.NewAuth,
			httptransport.NewRouter,
			server.NewHTTPServer,
		),
		fx.Invoke(bootstrap.EnsureAdmin, startHTTPServer),
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
	if cfg.IsDevelopment() {
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

func newTracer(provider *telemetry.Provider) trace.Tracer {
	return provider.Tracer()
}

func newSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}

func newUserRepository(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (repository.UserRepository, error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		pool, err := newPGXPool(lc, cfg)
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := repository.RunMigrations(ctx, pool); err != nil {
			return nil, err
		}
		logger.Info("credential store ready", zap.String("driver", cfg.StoreDriver))
		return repository.NewPostgresUserRepo(pool), nil
	case config.StoreMemory:
		logger.Warn("using in-memory credential store; accounts are lost on restart")
		return repository.NewMemoryUserRepo(), nil
	default:
		db, err := newMongoDatabase(lc, cfg)
		if err != nil {
			return nil, err
		}
		repo := repository.NewMongoUserRepo(db)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := repo.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		logger.Info("credential store ready", zap.String("driver", config.StoreMongo), zap.String("database", cfg.MongoDatabase))
		return repo, nil
	}
}

func newMongoDatabase(lc fx.Lifecycle, cfg config.Config) (*mongo.Database, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Disconnect(ctx)
		},
	})

	return client.Database(cfg.MongoDatabase), nil
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

// newRedisClient returns nil when REDIS_ADDR is unset.
func newRedisClient(lc fx.Lifecycle, cfg config.Config) (redis.UniversalClient, error) {
	if cfg.RedisAddr == "" {
		return nil, nil
	}
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

func newAttemptStore(client redis.UniversalClient, logger *zap.Logger) repository.LoginAttemptStore {
	if client == nil {
		logger.Info("login attempt limiter using process memory")
		return repository.NewMemoryAttemptStore()
	}
	return cacheadapter.NewRedisAttemptStore(client)
}

func newPasswordHasher(cfg config.Config) (password.Hasher, error) {
	return password.New(cfg.PasswordHasher, password.Options{BcryptCost: cfg.BcryptCost})
}

func newTokenGenerator(cfg config.Config) (*jwt.Generator, error) {
	return jwt.NewGenerator([]byte(cfg.JWTSecret), cfg.AccessTokenTTL, cfg.JWTIssuer)
}

func newRateLimiter(cfg config.Config) *apimiddleware.RateLimiter {
	return apimiddleware.NewRateLimiter(cfg.RateLimitRPM)
}

func startHTTPServer(lc fx.Lifecycle, srv *server.HTTPServer, logger *zap.Logger) {
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := srv.Listen()
			if err != nil {
				return err
			}
			runCtx, stop := context.WithCancel(context.Background())
			cancel = stop
			done = make(chan struct{})

			go func() {
				if err := srv.Serve(runCtx, ln); err != nil {
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
