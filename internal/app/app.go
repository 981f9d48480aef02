package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/beck-00/financial-model-generator/internal/auth"
	"github.com/beck-00/financial-model-generator/internal/config"
	"github.com/beck-00/financial-model-generator/internal/event"
	handler "github.com/beck-00/financial-model-generator/internal/handler/http"
	"github.com/beck-00/financial-model-generator/internal/password"
	"github.com/beck-00/financial-model-generator/internal/repository"
	"github.com/beck-00/financial-model-generator/internal/repository/memory"
	"github.com/beck-00/financial-model-generator/internal/repository/postgres"
	redisrepo "github.com/beck-00/financial-model-generator/internal/repository/redis"
	"github.com/beck-00/financial-model-generator/internal/service"
	"github.com/beck-00/financial-model-generator/migrations"
	"github.com/beck-00/financial-model-generator/pkg/database"
	"github.com/beck-00/financial-model-generator/pkg/health"
	pkgkafka "github.com/beck-00/financial-model-generator/pkg/kafka"
	"github.com/beck-00/financial-model-generator/pkg/middleware"
	"github.com/beck-00/financial-model-generator/pkg/tracing"
)

const (
	serviceName    = "auth-service"
	serviceVersion = "0.1.0"
	tokenIssuer    = "auth-service"
)

// App wires together all dependencies and runs the auth service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *goredis.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	authService    *service.AuthService
	tracerShutdown tracing.ShutdownFunc

	sweepCancel context.CancelFunc
	sweepDone   sync.WaitGroup
}

// NewApp creates a new application instance, initializing all dependencies.
// Every resource acquired before a failure is released before returning.
func NewApp(cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			_ = a.releaseResources()
		}
	}()

	a.tracerShutdown, err = tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Insecure:       cfg.Environment == "development",
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	healthHandler := health.NewHandler()

	users, ledger, err := a.initStorage(ctx, healthHandler)
	if err != nil {
		return nil, err
	}

	publisher := a.initEvents(ctx, healthHandler)

	hasher, err := password.New(cfg.PasswordHasher, cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("init password hasher: %w", err)
	}

	codec, err := auth.NewCodec(cfg.JWTSecret, cfg.JWTAlgorithm, auth.WithIssuer(tokenIssuer))
	if err != nil {
		return nil, fmt.Errorf("init token codec: %w", err)
	}

	a.authService, err = service.NewAuthService(users, ledger, codec, hasher, publisher, service.TokenConfig{
		AccessTTL:  cfg.JWTAccessExpiry,
		RefreshTTL: cfg.JWTRefreshExpiry,
		Retention:  cfg.RefreshRetention,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("init auth service: %w", err)
	}

	router := handler.NewRouter(a.authService, codec, healthHandler, logger, middleware.CORSConfig{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Environment:    cfg.Environment,
	})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// initStorage opens the credential store and the refresh token ledger for the
// configured backend and registers their health checks.
func (a *App) initStorage(ctx context.Context, h *health.Handler) (repository.UserRepository, repository.RefreshTokenLedger, error) {
	cfg := a.cfg

	if cfg.LedgerBackend == config.LedgerMemory {
		a.logger.Warn("using in-memory storage; all accounts and sessions are lost on restart")
		return memory.NewUserRepository(), memory.NewLedger(), nil
	}

	pgCfg := database.PostgresConfig{
		Host:            cfg.PostgresHost,
		Port:            cfg.PostgresPort,
		User:            cfg.PostgresUser,
		Password:        cfg.PostgresPass,
		DBName:          cfg.PostgresDB,
		SSLMode:         cfg.PostgresSSL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: cfg.DBMaxConnLife,
		MaxConnIdleTime: cfg.DBMaxConnIdle,
	}
	pool, err := database.NewPostgresPool(ctx, &pgCfg, a.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool
	a.logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)

	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, serviceName); err != nil {
		a.logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}

	if err := database.RunMigrations(ctx, pool, migrations.FS, a.logger); err != nil {
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	a.logger.Info("database migrations completed")

	if cfg.SlowQueryMillis > 0 {
		database.SetSlowQueryLogging(cfg.SlowQueryThreshold(), a.logger)
	}

	h.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})

	users := postgres.NewUserRepository(pool)

	if cfg.LedgerBackend != config.LedgerRedis {
		return users, postgres.NewLedgerRepository(pool), nil
	}

	client, err := database.NewRedisClient(ctx, database.RedisConfig{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, a.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.redis = client
	a.logger.Info("connected to Redis",
		slog.String("host", cfg.RedisHost),
		slog.Int("port", cfg.RedisPort),
	)

	h.RegisterCritical("redis", func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})

	// Expired keys linger for the retention window so a replayed token still
	// reads as expired rather than unknown.
	return users, redisrepo.NewLedgerRepository(client, cfg.RefreshRetention), nil
}

// initEvents returns the Kafka-backed publisher when Kafka is enabled. A broker
// that cannot be reached at startup leaves the service running degraded.
func (a *App) initEvents(ctx context.Context, h *health.Handler) event.Publisher {
	if !a.cfg.KafkaEnabled {
		return event.NoopPublisher{}
	}

	producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(a.cfg.KafkaBrokers), a.logger)
	a.producer = producer

	if err := pingKafkaWithRetry(ctx, producer, a.logger); err != nil {
		a.logger.Warn("kafka producer ping failed after retries, continuing in degraded mode",
			slog.String("error", err.Error()),
		)
	} else {
		a.logger.Info("kafka producer initialized", slog.Any("brokers", a.cfg.KafkaBrokers))
	}

	h.RegisterNonCritical("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})

	return event.NewProducer(producer, a.logger)
}

// Handler returns the HTTP handler serving the auth API.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run starts the HTTP server and the expired-token sweeper, then blocks until
// the context is canceled or the server fails.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	sweepCtx, sweepCancel := context.WithCancel(ctx)
	a.sweepCancel = sweepCancel
	a.sweepDone.Add(1)
	go func() {
		defer a.sweepDone.Done()
		a.runTokenSweeper(sweepCtx)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-errCh:
	}

	return errors.Join(runErr, a.Shutdown())
}

// runTokenSweeper periodically purges ledger rows past their retention window.
func (a *App) runTokenSweeper(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purged, err := a.authService.PurgeExpiredTokens(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				a.logger.Error("refresh token sweep error", slog.String("error", err.Error()))
			} else if purged > 0 {
				a.logger.Info("expired refresh tokens purged", slog.Int64("purged", purged))
			}
		}
	}
}

// Shutdown gracefully stops all components in order:
// 1. HTTP server (drain in-flight requests)
// 2. Token sweeper
// 3. Tracer (flush spans from drained requests)
// 4. Kafka producer
// 5. Redis client
// 6. PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.sweepCancel != nil {
		a.sweepCancel()
		a.sweepDone.Wait()
	}

	errs = append(errs, a.releaseResources())

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// releaseResources flushes the tracer and closes every backing connection
// that was opened. It is safe on a partially built App.
func (a *App) releaseResources() error {
	var errs []error

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.pool != nil {
		a.pool.Close()
	}

	return errors.Join(errs...)
}

// pingKafkaWithRetry attempts to ping the Kafka producer with exponential
// backoff (3 attempts, 1s/2s/4s with ±25% jitter).
func pingKafkaWithRetry(ctx context.Context, producer *pkgkafka.Producer, logger *slog.Logger) error {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		err := producer.Ping(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt < 2 {
			base := time.Duration(1<<uint(attempt)) * time.Second
			jitter := time.Duration(float64(base) * 0.25 * (2*rand.Float64() - 1)) // #nosec G404 -- retry jitter
			wait := base + jitter
			logger.Warn("kafka producer ping failed, retrying",
				slog.Int("attempt", attempt+1),
				slog.Int("max_attempts", 3),
				slog.Duration("backoff", wait),
				slog.String("error", lastErr.Error()),
			)
			select {
			case <-ctx.Done():
				return fmt.Errorf("kafka ping: context canceled during retry: %w", ctx.Err())
			case <-time.After(wait):
			}
		}
	}
	return fmt.Errorf("kafka producer ping failed after 3 attempts: %w", lastErr)
}
