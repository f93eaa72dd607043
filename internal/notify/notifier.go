package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amethyx/accessbot/internal/database/types"
	"github.com/amethyx/accessbot/internal/discord"
	"github.com/amethyx/accessbot/internal/setup/config"
	"github.com/amethyx/accessbot/pkg/utils"
	"go.uber.org/zap"
)

// cleanupTimeout bounds deleting the mention once the caller's context is gone.
const cleanupTimeout = 10 * time.Second

// Notifier posts access notifications to a guild's notification channel.
type Notifier struct {
	platform discord.Platform
	config   *config.BotConfig
	logger   *zap.Logger
	now      func() time.Time
}

// New creates a Notifier.
func New(platform discord.Platform, cfg *config.BotConfig, logger *zap.Logger) *Notifier {
	return &Notifier{
		platform: platform,
		config:   cfg,
		logger:   logger.Named("notifier"),
		now:      time.Now,
	}
}

// Notify sends the embed for state followed by a short lived mention of the member.
// It does nothing when the guild has no notification channel, the state is unknown,
// or the member has left the guild.
func (n *Notifier) Notify(
	ctx context.Context, state State, guildID, memberID uint64, guild *types.GuildConfig,
) error {
	if !guild.HasNotificationChannel() {
		return nil
	}

	if !state.Valid() {
		n.logger.Warn("Unknown notification state", zap.String("state", string(state)))
		return nil
	}

	channelID := *guild.NotificationChannelID

	member, err := n.platform.FetchMember(ctx, guildID, memberID)
	if errors.Is(err, discord.ErrMemberNotFound) {
		n.logger.Debug("Member left before notification",
			zap.Uint64("guild_id", guildID),
			zap.Uint64("member_id", memberID),
			zap.String("state", string(state)))

		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to fetch member: %w", err)
	}

	embed, ok := buildEmbed(state, member.Mention(), guild, n.config, n.now())
	if !ok {
		return nil
	}

	if _, err := n.platform.SendEmbed(ctx, channelID, embed); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}

	messageID, err := n.platform.SendMention(ctx, channelID, memberID)
	if err != nil {
		return fmt.Errorf("failed to send mention: %w", err)
	}

	// The mention is removed even when ctx ends early
	utils.ContextSleep(ctx, time.Duration(n.config.Notify.PingDelay)*time.Millisecond)

	cleanupCtx, cancel := utils.Detached(ctx, cleanupTimeout)
	defer cancel()

	if err := n.platform.DeleteMessage(cleanupCtx, channelID, messageID); err != nil {
		return fmt.Errorf("failed to delete mention: %w", err)
	}

	n.logger.Debug("Sent notification",
		zap.Uint64("guild_id", guildID),
		zap.Uint64("member_id", memberID),
		zap.String("state", string(state)))

	return nil
}
