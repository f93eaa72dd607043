package types

// GuildConfig stores per-guild settings owned by the admin flow.
// A nil pointer field means the feature is not configured.
type GuildConfig struct {
	GuildID               uint64  `bun:",pk"`
	AccessRoleID          *uint64 `bun:",nullzero"`
	NotificationChannelID *uint64 `bun:",nullzero"`
	VouchChannelID        *uint64 `bun:",nullzero"`
	HoneypotChannelID     *uint64 `bun:",nullzero"`
	AccentColor           *int    `bun:",nullzero"`
}

// HasAccessRole reports whether role mutation is enabled for the guild.
func (c *GuildConfig) HasAccessRole() bool {
	return c != nil && c.AccessRoleID != nil && *c.AccessRoleID != 0
}

// HasNotificationChannel reports whether notifications are enabled for the guild.
func (c *GuildConfig) HasNotificationChannel() bool {
	return c != nil && c.NotificationChannelID != nil && *c.NotificationChannelID != 0
}

// HasVouchChannel reports whether a vouch channel is configured.
func (c *GuildConfig) HasVouchChannel() bool {
	return c != nil && c.VouchChannelID != nil && *c.VouchChannelID != 0
}

// EmbedColor returns the guild accent color or fallback when unset.
func (c *GuildConfig) EmbedColor(fallback int) int {
	if c == nil || c.AccentColor == nil {
		return fallback
	}

	return *c.AccentColor
}
