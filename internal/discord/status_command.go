package discord

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/amethyx/accessbot/internal/worker/core"
	"github.com/disgoorg/disgo/discord"
)

const (
	// StatusCommandName is the slash command that shows worker health.
	StatusCommandName = "status"

	healthyColor   = 0x57F287
	unhealthyColor = 0xED4245
)

// Commands returns the application commands the bot registers.
func Commands() []discord.ApplicationCommandCreate {
	return []discord.ApplicationCommandCreate{
		discord.SlashCommandCreate{
			Name:        StatusCommandName,
			Description: "Show the state of the background workers",
		},
	}
}

// StatusEmbed renders worker statuses for the status command.
func StatusEmbed(statuses []core.Status, now time.Time) discord.Embed {
	sort.Slice(statuses, func(i, j int) bool {
		if statuses[i].WorkerType != statuses[j].WorkerType {
			return statuses[i].WorkerType < statuses[j].WorkerType
		}
		return statuses[i].WorkerID < statuses[j].WorkerID
	})

	embed := discord.NewEmbedBuilder().
		SetTitle("Worker Status").
		SetTimestamp(now)

	allHealthy := true

	for _, status := range statuses {
		state := "Online"

		switch {
		case status.IsStale(now):
			state = "Offline"
			allHealthy = false
		case !status.IsHealthy:
			state = "Unhealthy"
			allHealthy = false
		}

		lines := []string{
			"State: " + state,
			fmt.Sprintf("Processed: %d, failed: %d", status.Processed, status.Failed),
		}
		if status.CurrentTask != "" {
			lines = append(lines, "Task: "+status.CurrentTask)
		}
		if !status.LastSweep.IsZero() {
			lines = append(lines, fmt.Sprintf("Last sweep: <t:%d:R>", status.LastSweep.Unix()))
		}

		embed.AddField(
			fmt.Sprintf("%s `%s`", status.WorkerType, shortID(status.WorkerID)),
			strings.Join(lines, "\n"),
			false,
		)
	}

	if len(statuses) == 0 {
		embed.SetDescription("No workers have reported yet.")
		allHealthy = false
	}

	if allHealthy {
		embed.SetColor(healthyColor)
	} else {
		embed.SetColor(unhealthyColor)
	}

	return embed.Build()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
