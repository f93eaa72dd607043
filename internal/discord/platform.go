package discord

import (
	"context"
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"go.uber.org/zap"
)

// Member is the subset of a guild member the engine needs.
type Member struct {
	ID       uint64
	Username string
	Nick     string
}

// Mention returns the mention markup for the member.
func (m *Member) Mention() string {
	return discord.UserMention(snowflake.ID(m.ID))
}

// Platform is the set of chat platform operations used by the engine.
// Role and deletion calls treat "already in the desired state" as success.
type Platform interface {
	AddRole(ctx context.Context, guildID, memberID, roleID uint64) error
	RemoveRole(ctx context.Context, guildID, memberID, roleID uint64) error
	DeleteChannel(ctx context.Context, channelID uint64) error
	SendEmbed(ctx context.Context, channelID uint64, embed discord.Embed) (uint64, error)
	SendMention(ctx context.Context, channelID, memberID uint64) (uint64, error)
	DeleteMessage(ctx context.Context, channelID, messageID uint64) error
	FetchMember(ctx context.Context, guildID, memberID uint64) (*Member, error)
}

// RestPlatform implements Platform over the Discord REST API.
type RestPlatform struct {
	rest   rest.Rest
	logger *zap.Logger
}

// NewRestPlatform creates a RestPlatform.
func NewRestPlatform(client rest.Rest, logger *zap.Logger) *RestPlatform {
	return &RestPlatform{
		rest:   client,
		logger: logger.Named("platform"),
	}
}

// AddRole gives the member the role. Returns ErrMemberNotFound if they left.
func (p *RestPlatform) AddRole(ctx context.Context, guildID, memberID, roleID uint64) error {
	err := p.rest.AddMemberRole(
		snowflake.ID(guildID), snowflake.ID(memberID), snowflake.ID(roleID),
		rest.WithCtx(ctx), rest.WithReason("Access granted"),
	)
	if IsUnknown(err, CodeUnknownMember) {
		return ErrMemberNotFound
	}

	if err != nil {
		return fmt.Errorf("failed to add role: %w", err)
	}

	return nil
}

// RemoveRole takes the role from the member. A missing member or role counts as removed.
func (p *RestPlatform) RemoveRole(ctx context.Context, guildID, memberID, roleID uint64) error {
	err := p.rest.RemoveMemberRole(
		snowflake.ID(guildID), snowflake.ID(memberID), snowflake.ID(roleID),
		rest.WithCtx(ctx), rest.WithReason("Access expired"),
	)
	if IsUnknown(err, CodeUnknownMember, CodeUnknownRole) {
		p.logger.Debug("Role already absent",
			zap.Uint64("guild_id", guildID),
			zap.Uint64("member_id", memberID))

		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to remove role: %w", err)
	}

	return nil
}

// DeleteChannel deletes a channel. A channel that is already gone counts as deleted.
func (p *RestPlatform) DeleteChannel(ctx context.Context, channelID uint64) error {
	err := p.rest.DeleteChannel(snowflake.ID(channelID), rest.WithCtx(ctx))
	if IsUnknown(err, CodeUnknownChannel) || IsNotFound(err) {
		p.logger.Debug("Channel already deleted", zap.Uint64("channel_id", channelID))
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to delete channel: %w", err)
	}

	return nil
}

// SendEmbed posts an embed and returns the message ID.
func (p *RestPlatform) SendEmbed(ctx context.Context, channelID uint64, embed discord.Embed) (uint64, error) {
	message, err := p.rest.CreateMessage(snowflake.ID(channelID), discord.NewMessageCreateBuilder().
		SetEmbeds(embed).
		SetAllowedMentions(&discord.AllowedMentions{}).
		Build(), rest.WithCtx(ctx))
	if err != nil {
		return 0, fmt.Errorf("failed to send embed: %w", err)
	}

	return uint64(message.ID), nil
}

// SendMention posts a message that only pings the member and returns its ID.
func (p *RestPlatform) SendMention(ctx context.Context, channelID, memberID uint64) (uint64, error) {
	userID := snowflake.ID(memberID)

	message, err := p.rest.CreateMessage(snowflake.ID(channelID), discord.NewMessageCreateBuilder().
		SetContent(discord.UserMention(userID)).
		SetAllowedMentions(&discord.AllowedMentions{Users: []snowflake.ID{userID}}).
		Build(), rest.WithCtx(ctx))
	if err != nil {
		return 0, fmt.Errorf("failed to send mention: %w", err)
	}

	return uint64(message.ID), nil
}

// DeleteMessage deletes a message. A message or channel that is already gone counts as deleted.
func (p *RestPlatform) DeleteMessage(ctx context.Context, channelID, messageID uint64) error {
	err := p.rest.DeleteMessage(snowflake.ID(channelID), snowflake.ID(messageID), rest.WithCtx(ctx))
	if IsUnknown(err, CodeUnknownMessage, CodeUnknownChannel) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}

	return nil
}

// FetchMember looks up a guild member. Returns ErrMemberNotFound if they left.
func (p *RestPlatform) FetchMember(ctx context.Context, guildID, memberID uint64) (*Member, error) {
	member, err := p.rest.GetMember(snowflake.ID(guildID), snowflake.ID(memberID), rest.WithCtx(ctx))
	if IsUnknown(err, CodeUnknownMember) || IsNotFound(err) {
		return nil, ErrMemberNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to fetch member: %w", err)
	}

	result := &Member{
		ID:       uint64(member.User.ID),
		Username: member.User.Username,
	}
	if member.Nick != nil {
		result.Nick = *member.Nick
	}

	return result, nil
}
