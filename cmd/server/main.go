package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/irfndi/capm-lab-go/internal/api"
	"github.com/irfndi/capm-lab-go/internal/api/handlers"
	"github.com/irfndi/capm-lab-go/internal/cache"
	"github.com/irfndi/capm-lab-go/internal/capm"
	"github.com/irfndi/capm-lab-go/internal/config"
	"github.com/irfndi/capm-lab-go/internal/database"
	"github.com/irfndi/capm-lab-go/internal/logging"
	"github.com/irfndi/capm-lab-go/internal/middleware"
	"github.com/irfndi/capm-lab-go/internal/services"
	"github.com/irfndi/capm-lab-go/internal/telemetry"
)

const sweepInterval = 5 * time.Minute

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Failed to load .env: %v\n", err)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := newLogger(cfg)
	defer func() {
		if err := logger.Shutdown(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to shutdown logger: %v\n", err)
		}
	}()
	logging.ConfigureLogrus(cfg.LogLevel)

	telemetryConfig := *telemetry.DefaultConfig()
	telemetryConfig.Enabled = cfg.Telemetry.Enabled
	telemetryConfig.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	telemetryConfig.Environment = cfg.Environment
	telemetryConfig.SampleRate = cfg.Telemetry.SampleRate
	if cfg.Telemetry.ServiceName != "" {
		telemetryConfig.ServiceName = cfg.Telemetry.ServiceName
	}

	provider, err := telemetry.InitTelemetry(telemetryConfig, logger.Logger())
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			logger.WithError(err).Error("Failed to shutdown telemetry")
		}
	}()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	deps, err := connectBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	presets, err := newPresetStore(ctx, deps)
	if err != nil {
		return err
	}

	store := newSessionStore(ctx, cfg, deps, logger.WithComponent("session_sweeper"))

	lab := services.NewLabService(
		store,
		presets,
		capm.BetaAxis{Min: cfg.CAPM.BetaMin, Max: cfg.CAPM.BetaMax, Points: cfg.CAPM.SMLPoints},
		logger,
		telemetry.NewBusinessTracer(),
	)

	adminMiddleware, err := middleware.NewAdminMiddleware(cfg.Security.AdminAPIKeyHash, cfg.Environment, cfg.Security.BcryptCost)
	if err != nil {
		return fmt.Errorf("failed to initialize admin middleware: %w", err)
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	api.SetupRoutes(router, cfg, lab, logger, adminMiddleware, deps.checkers())

	readTimeout, writeTimeout := cfg.Server.Timeouts()
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       15 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.LogStartup(telemetry.ServiceName, telemetry.ServiceVersion, cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.LogShutdown(telemetry.ServiceName, "signal received: "+sig.String())
	case err := <-serverErr:
		return fmt.Errorf("failed to start server: %w", err)
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Logger().Info("Server exited")
	return nil
}

func newLogger(cfg *config.Config) *logging.StandardLogger {
	if !cfg.Telemetry.Enabled {
		return logging.NewStandardLogger(cfg.LogLevel)
	}
	return logging.NewStandardOTLPLogger(logging.OTLPConfig{
		Enabled:        true,
		Endpoint:       cfg.Telemetry.OTLPEndpoint,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: telemetry.ServiceVersion,
		Environment:    cfg.Environment,
		LogLevel:       cfg.LogLevel,
	})
}

// backends holds the optional connections. Either may be nil.
type backends struct {
	db    *database.PostgresDB
	redis *database.RedisClient
}

func connectBackends(ctx context.Context, cfg *config.Config) (*backends, error) {
	deps := &backends{}

	if cfg.Redis.Enabled {
		redisClient, err := database.NewRedisConnection(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		deps.redis = redisClient
	}

	if cfg.Database.Enabled {
		db, err := database.NewPostgresConnection(ctx, cfg.Database)
		if err != nil {
			deps.Close()
			return nil, err
		}
		deps.db = db
	}

	return deps, nil
}

func (b *backends) checkers() map[string]handlers.HealthChecker {
	checkers := make(map[string]handlers.HealthChecker)
	if b.db != nil {
		checkers["database"] = b.db
	}
	if b.redis != nil {
		checkers["redis"] = b.redis
	}
	return checkers
}

func (b *backends) Close() {
	b.db.Close()
	b.redis.Close()
}

// newPresetStore returns nil when no database is configured, which leaves
// the lab on its built-in presets.
func newPresetStore(ctx context.Context, deps *backends) (services.PresetStore, error) {
	if deps.db == nil {
		return nil, nil
	}
	repo := database.NewPresetRepository(deps.db.Pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

func newSessionStore(ctx context.Context, cfg *config.Config, deps *backends, logger *slog.Logger) cache.SessionStore {
	ttl := cfg.Session.SessionTTL()
	if cfg.Session.Store == config.SessionStoreRedis && deps.redis != nil {
		return cache.NewRedisSessionStore(deps.redis.Client, ttl)
	}

	store := cache.NewMemorySessionStore(ttl)
	go sweepSessions(ctx, store, sweepInterval, logger)
	return store
}

func sweepSessions(ctx context.Context, store *cache.MemorySessionStore, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := store.Sweep(); removed > 0 {
				logger.Debug("Expired sessions removed", "count", removed)
			}
		}
	}
}
