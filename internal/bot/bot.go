package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/amethyx/accessbot/internal/discord"
	"github.com/amethyx/accessbot/internal/grant"
	"github.com/amethyx/accessbot/internal/keylock"
	"github.com/amethyx/accessbot/internal/notify"
	"github.com/amethyx/accessbot/internal/rest"
	"github.com/amethyx/accessbot/internal/setup"
	"github.com/amethyx/accessbot/internal/worker/access"
	"github.com/amethyx/accessbot/internal/worker/core"
	"github.com/amethyx/accessbot/internal/worker/rearm"
	"github.com/amethyx/accessbot/internal/worker/ticket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// closeTimeout bounds closing the gateway connection.
const closeTimeout = 10 * time.Second

// Bot wires the gateway, the grant boundary and the background workers together.
// Every component shares one lock table so same-member and same-channel work
// never interleaves.
type Bot struct {
	gateway   *discord.Gateway
	processor *grant.Processor
	tickets   *ticket.Worker
	access    *access.Worker
	rearm     *rearm.Worker
	server    *rest.Server
	logger    *zap.Logger
}

// New builds every component from the initialized application.
func New(app *setup.App) (*Bot, error) {
	cfg := &app.Config.Bot
	repo := app.DB.Model()
	logger := app.Logger
	locker := keylock.New()

	var monitor *core.Monitor
	if app.StatusClient != nil {
		monitor = core.NewMonitor(app.StatusClient, logger)
	}

	channels := discord.NewChannelEvents(repo.Ticket(), locker, logger)

	gateway, err := discord.NewGateway(cfg.Discord.Token, channels, monitor, logger)
	if err != nil {
		return nil, err
	}

	platform := discord.NewRestPlatform(gateway.Rest(), logger)
	notifier := notify.New(platform, cfg, logger)

	processor := grant.New(
		repo.Membership(),
		repo.Guild(),
		platform,
		notifier,
		locker,
		core.NewStatusReporter(app.StatusClient, grant.WorkerType, logger),
		cfg,
		app.LogManager.GetWorkerLogger(grant.WorkerType),
	)

	ticketWorker := ticket.New(
		repo.Ticket(),
		platform,
		locker,
		core.NewStatusReporter(app.StatusClient, ticket.WorkerType, logger),
		gateway.Ready(),
		cfg.Worker.TicketPeriod(),
		cfg.Worker.TicketLifetime(),
		app.LogManager.GetWorkerLogger(ticket.WorkerType),
	)

	accessWorker := access.New(
		repo.Membership(),
		repo.Guild(),
		platform,
		notifier,
		locker,
		core.NewStatusReporter(app.StatusClient, access.WorkerType, logger),
		gateway.Ready(),
		cfg.Worker.AccessPeriod(),
		app.LogManager.GetWorkerLogger(access.WorkerType),
	)

	rearmWorker, err := rearm.New(
		gateway,
		core.NewStatusReporter(app.StatusClient, rearm.WorkerType, logger),
		gateway.Ready(),
		cfg.Worker.RearmSchedule,
		logger,
	)
	if err != nil {
		return nil, err
	}

	return &Bot{
		gateway:   gateway,
		processor: processor,
		tickets:   ticketWorker,
		access:    accessWorker,
		rearm:     rearmWorker,
		server:    rest.NewServer(processor, &cfg.API, logger),
		logger:    logger.Named("bot"),
	}, nil
}

// Run starts every component and blocks until ctx is cancelled or one of them fails.
// Accepted grants are drained before the gateway is closed.
func (b *Bot) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return b.gateway.Start(ctx)
	})

	g.Go(func() error {
		return b.server.Run(ctx)
	})

	g.Go(func() error {
		b.processor.Start(ctx)
		return nil
	})

	g.Go(func() error {
		b.tickets.Start(ctx)
		return nil
	})

	g.Go(func() error {
		b.access.Start(ctx)
		return nil
	})

	g.Go(func() error {
		b.rearm.Start(ctx)
		return nil
	})

	b.logger.Info("Bot started", zap.String("api_addr", b.server.Addr()))

	err := g.Wait()

	// Draining grants still needs the REST client, so the gateway closes last
	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
	defer cancel()

	b.gateway.Close(closeCtx)

	if err != nil {
		return fmt.Errorf("bot stopped: %w", err)
	}

	b.logger.Info("Bot stopped")

	return nil
}
