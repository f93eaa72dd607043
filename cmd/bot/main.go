package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/amethyx/accessbot/internal/bot"
	"github.com/amethyx/accessbot/internal/setup"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// BotLogDir specifies where bot log files are stored.
const BotLogDir = "logs/bot_logs"

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	app := &cli.Command{
		Name:  "bot",
		Usage: "Run the access and ticket lifecycle bot",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Directory holding common.toml and bot.toml",
			},
			&cli.StringFlag{
				Name:  "log-dir",
				Value: BotLogDir,
				Usage: "Directory for session logs",
			},
			&cli.BoolFlag{
				Name:  "migrate",
				Usage: "Apply pending database migrations on startup",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return runBot(ctx, setup.Options{
				ConfigDir:   c.String("config"),
				LogDir:      c.String("log-dir"),
				AutoMigrate: c.Bool("migrate"),
			})
		},
	}

	return app.Run(context.Background(), os.Args)
}

func runBot(ctx context.Context, opts setup.Options) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize application with required dependencies
	app, err := setup.InitializeApp(ctx, "bot", opts)
	if err != nil {
		return err
	}
	defer app.Cleanup(context.WithoutCancel(ctx))

	discordBot, err := bot.New(app)
	if err != nil {
		app.Logger.Error("Failed to create bot", zap.Error(err))
		return err
	}

	log.Println("Bot has been started. Waiting for interrupt signal to gracefully shutdown...")

	if err := discordBot.Run(ctx); err != nil {
		app.Logger.Error("Bot exited with error", zap.Error(err))
		return err
	}

	return nil
}
