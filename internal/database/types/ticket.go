package types

import "time"

// Ticket is a support channel tracked for automatic cleanup.
type Ticket struct {
	ChannelID        uint64     `bun:",pk"`
	GuildID          uint64     `bun:",notnull"`
	OwnerMemberID    uint64     `bun:",notnull"`
	CreatedAt        time.Time  `bun:",notnull,default:current_timestamp"`
	DeletedAt        *time.Time `bun:",nullzero"`
	ChannelRemovedAt *time.Time `bun:",nullzero"`
}

// IsDeleted reports whether the ticket has been marked deleted.
func (t *Ticket) IsDeleted() bool {
	return t.DeletedAt != nil
}
