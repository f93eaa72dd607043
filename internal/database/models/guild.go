package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/amethyx/accessbot/internal/database/dbretry"
	"github.com/amethyx/accessbot/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// GuildModel handles database operations for guild configuration.
type GuildModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewGuild creates a GuildModel.
func NewGuild(db *bun.DB, logger *zap.Logger) *GuildModel {
	return &GuildModel{
		db:     db,
		logger: logger.Named("db_guild"),
	}
}

// GetGuildConfig loads the configuration of a guild.
// A guild without a row gets an empty config, which disables every feature.
func (m *GuildModel) GetGuildConfig(ctx context.Context, guildID uint64) (*types.GuildConfig, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.GuildConfig, error) {
		cfg := &types.GuildConfig{GuildID: guildID}

		err := m.db.NewSelect().
			Model(cfg).
			WherePK().
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			m.logger.Debug("No config stored for guild", zap.Uint64("guild_id", guildID))
			return &types.GuildConfig{GuildID: guildID}, nil
		}

		if err != nil {
			return nil, fmt.Errorf("failed to get guild config: %w", err)
		}

		return cfg, nil
	})
}

// SaveGuildConfig inserts or replaces the configuration of a guild.
func (m *GuildModel) SaveGuildConfig(ctx context.Context, cfg *types.GuildConfig) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(cfg).
			On("CONFLICT (guild_id) DO UPDATE").
			Set("access_role_id = EXCLUDED.access_role_id").
			Set("notification_channel_id = EXCLUDED.notification_channel_id").
			Set("vouch_channel_id = EXCLUDED.vouch_channel_id").
			Set("honeypot_channel_id = EXCLUDED.honeypot_channel_id").
			Set("accent_color = EXCLUDED.accent_color").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to save guild config: %w", err)
		}

		return nil
	})
}
