package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/amethyx/accessbot/internal/setup/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".toml"), []byte(content), 0o600))
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, "common", "version = 1\n[postgresql]\nhost = \"db\"\n")
	writeConfig(t, dir, "bot", "version = 1\n[discord]\ntoken = \"abc\"\n[tier_durations]\nemulator = 24\n")

	cfg, usedDir, err := config.LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, dir, usedDir)
	assert.Equal(t, "db", cfg.Common.PostgreSQL.Host)
	assert.Equal(t, 5432, cfg.Common.PostgreSQL.Port)
	assert.Equal(t, "info", cfg.Common.Debug.LogLevel)
	assert.Equal(t, "abc", cfg.Bot.Discord.Token)
	assert.Equal(t, 5000, cfg.Bot.API.Port)
	assert.Equal(t, "@every 10m", cfg.Bot.Worker.RearmSchedule)
	assert.Equal(t, time.Hour, cfg.Bot.Worker.TicketPeriod())
	assert.Zero(t, cfg.Bot.Worker.TicketLifetime())
	assert.Equal(t, time.Minute, cfg.Bot.Worker.AccessPeriod())
	assert.Equal(t, 1500, cfg.Bot.Notify.PingDelay)
	assert.Equal(t, 24*time.Hour, cfg.Bot.TierDuration("emulator"))
	assert.Zero(t, cfg.Bot.TierDuration("full_package"))
}

func TestLoadConfigVersionChecks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		common  string
		bot     string
		wantErr error
	}{
		{
			name:    "missing common version",
			common:  "[debug]\nlog_level = \"debug\"\n",
			bot:     "version = 1\n",
			wantErr: config.ErrConfigVersionMissing,
		},
		{
			name:    "outdated bot version",
			common:  "version = 1\n",
			bot:     "version = 99\n",
			wantErr: config.ErrConfigVersionMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			writeConfig(t, dir, "common", tt.common)
			writeConfig(t, dir, "bot", tt.bot)

			_, _, err := config.LoadConfig(dir)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoadConfigEnvironmentOverride(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "common", "version = 1\n")
	writeConfig(t, dir, "bot", "version = 1\n[discord]\ntoken = \"from-file\"\n")

	t.Setenv("ACCESSBOT_BOT__DISCORD__TOKEN", "from-env")

	cfg, _, err := config.LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Bot.Discord.Token)
}
