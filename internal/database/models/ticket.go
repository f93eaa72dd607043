package models

import (
	"context"
	"fmt"
	"time"

	"github.com/amethyx/accessbot/internal/database/dbretry"
	"github.com/amethyx/accessbot/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// TicketModel handles database operations for support tickets.
type TicketModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewTicket creates a TicketModel.
func NewTicket(db *bun.DB, logger *zap.Logger) *TicketModel {
	return &TicketModel{
		db:     db,
		logger: logger.Named("db_ticket"),
	}
}

// CreateTicket starts tracking a ticket channel. Tracking an existing channel is a no-op.
func (m *TicketModel) CreateTicket(ctx context.Context, ticket *types.Ticket) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(ticket).
			On("CONFLICT (channel_id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create ticket: %w", err)
		}

		return nil
	})
}

// ListNonDeleted returns the channel IDs of open tickets created at or before createdBefore.
func (m *TicketModel) ListNonDeleted(ctx context.Context, createdBefore time.Time) ([]uint64, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]uint64, error) {
		var channelIDs []uint64

		err := m.db.NewSelect().
			Model((*types.Ticket)(nil)).
			Column("channel_id").
			Where("deleted_at IS NULL").
			Where("created_at <= ?", createdBefore).
			Order("created_at ASC").
			Scan(ctx, &channelIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to list open tickets: %w", err)
		}

		return channelIDs, nil
	})
}

// ListOrphaned returns tickets marked deleted whose channel was never confirmed removed.
func (m *TicketModel) ListOrphaned(ctx context.Context) ([]uint64, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]uint64, error) {
		var channelIDs []uint64

		err := m.db.NewSelect().
			Model((*types.Ticket)(nil)).
			Column("channel_id").
			Where("deleted_at IS NOT NULL").
			Where("channel_removed_at IS NULL").
			Order("deleted_at ASC").
			Scan(ctx, &channelIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to list orphaned tickets: %w", err)
		}

		return channelIDs, nil
	})
}

// MarkDeleted marks a ticket deleted. Returns false if it was already deleted or unknown.
func (m *TicketModel) MarkDeleted(ctx context.Context, channelID uint64) (bool, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (bool, error) {
		result, err := m.db.NewUpdate().
			Model((*types.Ticket)(nil)).
			Set("deleted_at = ?", time.Now()).
			Where("channel_id = ?", channelID).
			Where("deleted_at IS NULL").
			Exec(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to mark ticket deleted: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return false, fmt.Errorf("failed to get affected rows: %w", err)
		}

		return affected > 0, nil
	})
}

// MarkChannelRemoved records that the ticket channel no longer exists on the platform.
func (m *TicketModel) MarkChannelRemoved(ctx context.Context, channelID uint64) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewUpdate().
			Model((*types.Ticket)(nil)).
			Set("channel_removed_at = ?", time.Now()).
			Where("channel_id = ?", channelID).
			Where("channel_removed_at IS NULL").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to mark ticket channel removed: %w", err)
		}

		return nil
	})
}
