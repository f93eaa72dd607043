package database

import (
	"github.com/amethyx/accessbot/internal/database/models"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Repository provides access to all database models.
type Repository struct {
	guild      *models.GuildModel
	ticket     *models.TicketModel
	membership *models.MembershipModel
}

// NewRepository creates a new repository instance with all models.
func NewRepository(db *bun.DB, logger *zap.Logger) *Repository {
	return &Repository{
		guild:      models.NewGuild(db, logger),
		ticket:     models.NewTicket(db, logger),
		membership: models.NewMembership(db, logger),
	}
}

// Guild returns the guild config model repository.
func (r *Repository) Guild() *models.GuildModel {
	return r.guild
}

// Ticket returns the ticket model repository.
func (r *Repository) Ticket() *models.TicketModel {
	return r.ticket
}

// Membership returns the membership model repository.
func (r *Repository) Membership() *models.MembershipModel {
	return r.membership
}
