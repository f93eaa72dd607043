package migrations

import (
	"context"
	"fmt"

	"github.com/amethyx/accessbot/internal/database/types"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		tables := []struct {
			model any
			name  string
		}{
			{(*types.GuildConfig)(nil), "guild_configs"},
			{(*types.Ticket)(nil), "tickets"},
			{(*types.Membership)(nil), "memberships"},
		}

		for _, table := range tables {
			_, err := db.NewCreateTable().
				Model(table.model).
				IfNotExists().
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to create table %s: %w", table.name, err)
			}
		}

		_, err := db.NewRaw(`
			-- Ticket sweep indexes
			CREATE INDEX IF NOT EXISTS idx_tickets_open
			ON tickets (created_at ASC)
			WHERE deleted_at IS NULL;

			CREATE INDEX IF NOT EXISTS idx_tickets_orphaned
			ON tickets (deleted_at ASC)
			WHERE deleted_at IS NOT NULL AND channel_removed_at IS NULL;

			-- Access sweep index
			CREATE INDEX IF NOT EXISTS idx_memberships_expiring
			ON memberships (expires_at ASC)
			WHERE revoked_at IS NULL AND expires_at IS NOT NULL;
		`).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create indexes: %w", err)
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		_, err := db.NewRaw("DROP TABLE IF EXISTS memberships, tickets, guild_configs CASCADE").Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to drop tables: %w", err)
		}

		return nil
	})
}
