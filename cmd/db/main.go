package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/amethyx/accessbot/internal/database"
	"github.com/amethyx/accessbot/internal/database/migrations"
	"github.com/amethyx/accessbot/internal/setup/config"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

var ErrNameRequired = errors.New("NAME argument required")

// deps is filled in before each command runs.
type deps struct {
	db       database.Client
	migrator *migrate.Migrator
	logger   *zap.Logger
}

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	d := &deps{}

	app := &cli.Command{
		Name:  "db",
		Usage: "Database management tool",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Directory holding common.toml and bot.toml",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Initialize migration tables",
				Action: d.with(func(ctx context.Context, _ *cli.Command) error {
					return d.migrator.Init(ctx)
				}),
			},
			{
				Name:   "migrate",
				Usage:  "Run pending migrations",
				Action: d.with(d.migrate),
			},
			{
				Name:   "rollback",
				Usage:  "Rollback the last migration group",
				Action: d.with(d.rollback),
			},
			{
				Name:   "status",
				Usage:  "Show migration status",
				Action: d.with(d.status),
			},
			{
				Name:      "create",
				Usage:     "Create a new Go migration file",
				ArgsUsage: "NAME",
				Action:    d.with(d.create),
			},
		},
	}

	return app.Run(context.Background(), os.Args)
}

// with connects before running action and disconnects afterwards.
func (d *deps) with(action cli.ActionFunc) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		if err := d.setup(ctx, c.String("config")); err != nil {
			return err
		}
		defer d.db.Close()

		return action(ctx, c)
	}
}

// setup initializes the database connection and migrator.
func (d *deps) setup(ctx context.Context, configDir string) error {
	cfg, _, err := config.LoadConfig(configDir)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	db, err := database.NewConnection(ctx, &cfg.Common.PostgreSQL, logger, false)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	d.db = db
	d.migrator = migrate.NewMigrator(db.DB(), migrations.Migrations)
	d.logger = logger

	return nil
}

func (d *deps) migrate(ctx context.Context, _ *cli.Command) error {
	if err := d.migrator.Lock(ctx); err != nil {
		return err
	}
	defer d.migrator.Unlock(ctx) //nolint:errcheck // -

	group, err := d.migrator.Migrate(ctx)
	if err != nil {
		return err
	}

	if group.IsZero() {
		d.logger.Info("No new migrations to run (database is up to date)")
		return nil
	}

	d.logger.Info("Successfully migrated", zap.String("group", group.String()))

	return nil
}

func (d *deps) rollback(ctx context.Context, _ *cli.Command) error {
	if err := d.migrator.Lock(ctx); err != nil {
		return err
	}
	defer d.migrator.Unlock(ctx) //nolint:errcheck // -

	group, err := d.migrator.Rollback(ctx)
	if err != nil {
		return err
	}

	if group.IsZero() {
		d.logger.Info("No groups to roll back")
		return nil
	}

	d.logger.Info("Successfully rolled back", zap.String("group", group.String()))

	return nil
}

func (d *deps) status(ctx context.Context, _ *cli.Command) error {
	ms, err := d.migrator.MigrationsWithStatus(ctx)
	if err != nil {
		return err
	}

	d.logger.Info("Migration status",
		zap.String("migrations", ms.String()),
		zap.String("unapplied", ms.Unapplied().String()),
		zap.String("last_group", ms.LastGroup().String()))

	return nil
}

func (d *deps) create(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() != 1 {
		return ErrNameRequired
	}

	mf, err := d.migrator.CreateGoMigration(ctx, c.Args().First())
	if err != nil {
		return err
	}

	d.logger.Info("Created Go migration",
		zap.String("name", mf.Name),
		zap.String("path", mf.Path))

	return nil
}
