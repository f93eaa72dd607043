package types

import "time"

// Membership records a member's access entitlement within a guild.
// A member holds access while RevokedAt is nil and loses it once ExpiresAt passes.
type Membership struct {
	GuildID   uint64     `bun:",pk"`
	MemberID  uint64     `bun:",pk"`
	Tier      Tier       `bun:",notnull"`
	GrantedAt time.Time  `bun:",notnull"`
	ExpiresAt *time.Time `bun:",nullzero"`
	RevokedAt *time.Time `bun:",nullzero"`
}

// HasAccess reports whether the membership still grants access at the given time.
func (m *Membership) HasAccess(now time.Time) bool {
	if m.RevokedAt != nil {
		return false
	}

	return m.ExpiresAt == nil || m.ExpiresAt.After(now)
}

// MergeExpiry returns the expiry a new grant leaves on this membership.
// While the membership is not revoked a nil side wins and otherwise the later
// expiry is kept. A revoked membership takes the new expiry as is.
func (m *Membership) MergeExpiry(next *time.Time) *time.Time {
	if m.RevokedAt != nil {
		return next
	}

	if m.ExpiresAt == nil || next == nil {
		return nil
	}

	if m.ExpiresAt.After(*next) {
		expires := *m.ExpiresAt
		return &expires
	}

	return next
}

// MemberRef identifies a member within a guild.
type MemberRef struct {
	GuildID  uint64 `bun:"guild_id"`
	MemberID uint64 `bun:"member_id"`
}
