package discord

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/amethyx/accessbot/internal/worker/core"
	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/disgo/rest"
	"go.uber.org/zap"
)

// eventTimeout bounds the work done for a single gateway event.
const eventTimeout = 30 * time.Second

// Gateway owns the Discord connection and signals readiness.
type Gateway struct {
	client    bot.Client
	channels  *ChannelEvents
	monitor   *core.Monitor
	ready     chan struct{}
	readyOnce sync.Once
	logger    *zap.Logger
}

// NewGateway creates the Discord client. The connection is opened by Start.
// A nil monitor leaves the status command without data.
func NewGateway(token string, channels *ChannelEvents, monitor *core.Monitor, logger *zap.Logger) (*Gateway, error) {
	g := &Gateway{
		channels: channels,
		monitor:  monitor,
		ready:    make(chan struct{}),
		logger:   logger.Named("gateway"),
	}

	client, err := disgo.New(token,
		bot.WithGatewayConfigOpts(
			gateway.WithIntents(gateway.IntentGuilds),
		),
		bot.WithEventListeners(&events.ListenerAdapter{
			OnReady:                         g.onReady,
			OnGuildChannelDelete:            g.onGuildChannelDelete,
			OnApplicationCommandInteraction: g.onApplicationCommand,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord client: %w", err)
	}

	g.client = client

	return g, nil
}

// Rest returns the REST client shared with the platform adapter.
func (g *Gateway) Rest() rest.Rest {
	return g.client.Rest()
}

// Ready is closed once the first READY event arrives.
func (g *Gateway) Ready() <-chan struct{} {
	return g.ready
}

// Start opens the gateway connection.
func (g *Gateway) Start(ctx context.Context) error {
	g.logger.Info("Opening gateway")

	if err := g.client.OpenGateway(ctx); err != nil {
		return fmt.Errorf("failed to open gateway: %w", err)
	}

	return nil
}

// Close shuts the gateway connection down.
func (g *Gateway) Close(ctx context.Context) {
	g.client.Close(ctx)
	g.logger.Info("Gateway closed")
}

// RegisterCommands overwrites the global application commands. Safe to repeat.
func (g *Gateway) RegisterCommands(ctx context.Context) error {
	_, err := g.client.Rest().SetGlobalCommands(g.client.ApplicationID(), Commands(), rest.WithCtx(ctx))
	if err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}

	return nil
}

func (g *Gateway) onReady(_ *events.Ready) {
	g.readyOnce.Do(func() {
		g.logger.Info("Gateway ready")
		close(g.ready)
	})
}

func (g *Gateway) onGuildChannelDelete(event *events.GuildChannelDelete) {
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	if err := g.channels.ChannelDeleted(ctx, uint64(event.ChannelID)); err != nil {
		g.logger.Error("Failed to handle channel deletion",
			zap.Uint64("channel_id", uint64(event.ChannelID)),
			zap.Error(err))
	}
}

func (g *Gateway) onApplicationCommand(event *events.ApplicationCommandInteractionCreate) {
	if event.Data.CommandName() != StatusCommandName {
		return
	}

	var statuses []core.Status

	if g.monitor != nil {
		ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
		defer cancel()

		var err error

		statuses, err = g.monitor.GetAllStatuses(ctx)
		if err != nil {
			g.logger.Error("Failed to get worker statuses", zap.Error(err))
		}
	}

	err := event.CreateMessage(discord.NewMessageCreateBuilder().
		SetEmbeds(StatusEmbed(statuses, time.Now())).
		SetEphemeral(true).
		Build())
	if err != nil {
		g.logger.Error("Failed to respond to status command", zap.Error(err))
	}
}
