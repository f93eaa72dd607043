package setup

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/amethyx/accessbot/internal/database"
	"github.com/amethyx/accessbot/internal/database/migrations"
	"github.com/amethyx/accessbot/internal/redis"
	"github.com/amethyx/accessbot/internal/setup/config"
	"github.com/amethyx/accessbot/internal/setup/telemetry"
	"github.com/redis/rueidis"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"
)

// ErrPendingMigrations is returned when the schema is behind and auto-migration is off.
var ErrPendingMigrations = errors.New("database migrations are pending")

// App bundles the core dependencies needed by the bot.
// Each field represents a subsystem that needs initialization and cleanup.
type App struct {
	Config       *config.Config     // Application configuration
	ConfigDir    string             // Directory the config files were read from
	Logger       *zap.Logger        // Main application logger
	DBLogger     *zap.Logger        // Database-specific logger
	DB           database.Client    // Database connection pool
	RedisManager *redis.Manager     // Redis connection manager
	StatusClient rueidis.Client     // Redis client for worker status, nil when Redis is not configured
	LogManager   *telemetry.Manager // Log management system
}

// Options control how the application is initialized.
type Options struct {
	// ConfigDir is searched before the default config paths.
	ConfigDir string
	// LogDir is where session log directories are created.
	LogDir string
	// AutoMigrate applies pending migrations instead of refusing to start.
	AutoMigrate bool
}

// InitializeApp bootstraps all application dependencies in order,
// ensuring each component has its required dependencies available.
func InitializeApp(ctx context.Context, component string, opts Options) (*App, error) {
	// Load app configuration
	cfg, configDir, err := config.LoadConfig(opts.ConfigDir)
	if err != nil {
		return nil, err
	}

	// Logging system is initialized next to capture setup issues
	logManager := telemetry.NewManager(component, opts.LogDir, &cfg.Common.Debug, &cfg.Common.Telemetry)

	logger, dbLogger, err := logManager.GetLoggers()
	if err != nil {
		return nil, err
	}

	logger.Info("Loaded configuration", zap.String("dir", configDir))

	// Initialize database with migration check
	db, err := checkAndRunMigrations(ctx, &cfg.Common.PostgreSQL, dbLogger, opts.AutoMigrate)
	if err != nil {
		return nil, err
	}

	// Redis is optional and only carries worker heartbeats
	redisManager := redis.NewManager(&cfg.Common.Redis, logger)

	var statusClient rueidis.Client

	if cfg.Common.Redis.Host != "" {
		statusClient, err = redisManager.GetClient(redis.WorkerStatusDBIndex)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
	} else {
		logger.Warn("Redis is not configured, worker status reporting is disabled")
	}

	// Bundle all initialized components
	return &App{
		Config:       cfg,
		ConfigDir:    configDir,
		Logger:       logger,
		DBLogger:     dbLogger.Named("database"),
		DB:           db,
		RedisManager: redisManager,
		StatusClient: statusClient,
		LogManager:   logManager,
	}, nil
}

// Cleanup shuts components down in reverse initialization order.
// Logs but does not fail on cleanup errors so every component gets a cleanup attempt.
func (a *App) Cleanup(ctx context.Context) {
	// Close Redis connections
	a.RedisManager.Close()

	// Close database connections
	if err := a.DB.Close(); err != nil {
		log.Printf("Failed to close database connection: %v", err)
	}

	// Flush exported telemetry
	a.LogManager.Stop(ctx)

	// Sync buffered logs last
	if err := a.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	if err := a.DBLogger.Sync(); err != nil {
		log.Printf("Failed to sync DB logger: %v", err)
	}
}

// checkAndRunMigrations connects and makes sure the schema is current.
func checkAndRunMigrations(
	ctx context.Context, cfg *config.PostgreSQL, dbLogger *zap.Logger, autoMigrate bool,
) (database.Client, error) {
	if autoMigrate {
		return database.NewConnection(ctx, cfg, dbLogger, true)
	}

	db, err := database.NewConnection(ctx, cfg, dbLogger, false)
	if err != nil {
		return nil, err
	}

	migrator := migrate.NewMigrator(db.DB(), migrations.Migrations)

	ms, err := migrator.MigrationsWithStatus(ctx)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to check migration status: %w", err)
	}

	if unapplied := ms.Unapplied(); len(unapplied) > 0 {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %s (run `db migrate` or start with --migrate)", ErrPendingMigrations, unapplied)
	}

	return db, nil
}
