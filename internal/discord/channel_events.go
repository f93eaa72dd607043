package discord

import (
	"context"
	"fmt"

	"github.com/amethyx/accessbot/internal/keylock"
	"go.uber.org/zap"
)

// TicketMarker records ticket deletion state.
type TicketMarker interface {
	MarkDeleted(ctx context.Context, channelID uint64) (bool, error)
	MarkChannelRemoved(ctx context.Context, channelID uint64) error
}

// ChannelEvents keeps ticket records in step with channels deleted on the platform.
type ChannelEvents struct {
	tickets TicketMarker
	locker  *keylock.Locker
	logger  *zap.Logger
}

// NewChannelEvents creates a ChannelEvents handler.
func NewChannelEvents(tickets TicketMarker, locker *keylock.Locker, logger *zap.Logger) *ChannelEvents {
	return &ChannelEvents{
		tickets: tickets,
		locker:  locker,
		logger:  logger.Named("channel_events"),
	}
}

// ChannelDeleted marks the ticket for the channel deleted and its channel removed.
// Channels that are not tickets are ignored by the store.
func (h *ChannelEvents) ChannelDeleted(ctx context.Context, channelID uint64) error {
	return h.locker.Do(ctx, keylock.ChannelKey(channelID), func(ctx context.Context) error {
		marked, err := h.tickets.MarkDeleted(ctx, channelID)
		if err != nil {
			return fmt.Errorf("failed to mark ticket deleted: %w", err)
		}

		if err := h.tickets.MarkChannelRemoved(ctx, channelID); err != nil {
			return fmt.Errorf("failed to mark ticket channel removed: %w", err)
		}

		if marked {
			h.logger.Info("Ticket channel deleted on platform", zap.Uint64("channel_id", channelID))
		}

		return nil
	})
}
