package discord_test

import (
	"testing"
	"time"

	"github.com/amethyx/accessbot/internal/discord"
	"github.com/amethyx/accessbot/internal/worker/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusEmbed(t *testing.T) {
	t.Parallel()

	now := time.Now()

	tests := []struct {
		name       string
		statuses   []core.Status
		wantColor  int
		wantFields int
	}{
		{
			name:       "no workers",
			statuses:   nil,
			wantColor:  0xED4245,
			wantFields: 0,
		},
		{
			name: "all healthy",
			statuses: []core.Status{
				{WorkerID: "b-worker-id", WorkerType: "ticket_sweeper", LastSeen: now, IsHealthy: true},
				{WorkerID: "a-worker-id", WorkerType: "access_sweeper", LastSeen: now, IsHealthy: true, LastSweep: now},
			},
			wantColor:  0x57F287,
			wantFields: 2,
		},
		{
			name: "stale worker",
			statuses: []core.Status{
				{WorkerID: "a", WorkerType: "access_sweeper", LastSeen: now.Add(-time.Hour), IsHealthy: true},
			},
			wantColor:  0xED4245,
			wantFields: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			embed := discord.StatusEmbed(tt.statuses, now)

			assert.Equal(t, "Worker Status", embed.Title)
			assert.Equal(t, tt.wantColor, embed.Color)
			require.Len(t, embed.Fields, tt.wantFields)
		})
	}
}

func TestStatusEmbedOrdersByType(t *testing.T) {
	t.Parallel()

	now := time.Now()
	embed := discord.StatusEmbed([]core.Status{
		{WorkerID: "1", WorkerType: "ticket_sweeper", LastSeen: now, IsHealthy: true},
		{WorkerID: "2", WorkerType: "access_sweeper", LastSeen: now, IsHealthy: false},
	}, now)

	require.Len(t, embed.Fields, 2)
	assert.Contains(t, embed.Fields[0].Name, "access_sweeper")
	assert.Contains(t, embed.Fields[0].Value, "Unhealthy")
	assert.Contains(t, embed.Fields[1].Name, "ticket_sweeper")
}

func TestCommands(t *testing.T) {
	t.Parallel()

	commands := discord.Commands()
	require.Len(t, commands, 1)
	assert.Equal(t, discord.StatusCommandName, commands[0].CommandName())
}
