package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/amethyx/accessbot/internal/database/dbretry"
	"github.com/amethyx/accessbot/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// MembershipModel handles database operations for access memberships.
type MembershipModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewMembership creates a MembershipModel.
func NewMembership(db *bun.DB, logger *zap.Logger) *MembershipModel {
	return &MembershipModel{
		db:     db,
		logger: logger.Named("db_membership"),
	}
}

// ListWithoutAccess returns members that still hold access but whose membership expired.
func (m *MembershipModel) ListWithoutAccess(ctx context.Context, now time.Time) ([]types.MemberRef, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]types.MemberRef, error) {
		var refs []types.MemberRef

		err := m.db.NewSelect().
			Model((*types.Membership)(nil)).
			Column("guild_id", "member_id").
			Where("revoked_at IS NULL").
			Where("expires_at IS NOT NULL").
			Where("expires_at <= ?", now).
			Order("expires_at ASC").
			Scan(ctx, &refs)
		if err != nil {
			return nil, fmt.Errorf("failed to list members without access: %w", err)
		}

		return refs, nil
	})
}

// StillWithoutAccess reports whether a single membership still matches ListWithoutAccess.
func (m *MembershipModel) StillWithoutAccess(ctx context.Context, guildID, memberID uint64, now time.Time) (bool, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (bool, error) {
		exists, err := m.db.NewSelect().
			Model((*types.Membership)(nil)).
			Where("guild_id = ?", guildID).
			Where("member_id = ?", memberID).
			Where("revoked_at IS NULL").
			Where("expires_at IS NOT NULL").
			Where("expires_at <= ?", now).
			Exists(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to check membership: %w", err)
		}

		return exists, nil
	})
}

// MarkRevoked records the revocation of an expired membership.
// Returns true only for the call that performed the transition.
func (m *MembershipModel) MarkRevoked(ctx context.Context, guildID, memberID uint64, at time.Time) (bool, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (bool, error) {
		result, err := m.db.NewUpdate().
			Model((*types.Membership)(nil)).
			Set("revoked_at = ?", at).
			Set("tier = ?", types.TierRevoked).
			Where("guild_id = ?", guildID).
			Where("member_id = ?", memberID).
			Where("revoked_at IS NULL").
			Where("expires_at IS NOT NULL").
			Where("expires_at <= ?", at).
			Exec(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to mark membership revoked: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return false, fmt.Errorf("failed to get affected rows: %w", err)
		}

		if affected > 0 {
			m.logger.Debug("Marked membership revoked",
				zap.Uint64("guild_id", guildID),
				zap.Uint64("member_id", memberID))
		}

		return affected > 0, nil
	})
}

// RecordGrant stores a grant and clears any revocation.
// The stored expiry follows Membership.MergeExpiry so a grant never shortens active access.
func (m *MembershipModel) RecordGrant(ctx context.Context, membership *types.Membership) error {
	return dbretry.Transaction(ctx, m.db, func(ctx context.Context, tx bun.Tx) error {
		var existing types.Membership

		err := tx.NewSelect().
			Model(&existing).
			Where("guild_id = ?", membership.GuildID).
			Where("member_id = ?", membership.MemberID).
			For("UPDATE").
			Scan(ctx)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("failed to load membership: %w", err)
		default:
			membership.ExpiresAt = existing.MergeExpiry(membership.ExpiresAt)
		}

		_, err = tx.NewInsert().
			Model(membership).
			On("CONFLICT (guild_id, member_id) DO UPDATE").
			Set("tier = EXCLUDED.tier").
			Set("granted_at = EXCLUDED.granted_at").
			Set("expires_at = EXCLUDED.expires_at").
			Set("revoked_at = NULL").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to record grant: %w", err)
		}

		return nil
	})
}
