package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/amethyx/accessbot/internal/database/types"
	"github.com/amethyx/accessbot/internal/setup/config"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
)

// RemovedColor is the embed color of the expiry notice.
const RemovedColor = 0xFF244C

// Embed titles per state.
const (
	TitleAdded         = "Email Gen Access Added"
	TitleEmulator      = "Emulator Access Added"
	TitlePaperReceipts = "Paper Receipts Access Added"
	TitleFullPackage   = "Full Access Added"
	TitleRemoved       = "Subscription Expired"
)

// buildEmbed renders the embed for a state. ok is false for unknown states.
func buildEmbed(
	state State, mention string, guild *types.GuildConfig, cfg *config.BotConfig, now time.Time,
) (embed discord.Embed, ok bool) {
	n := cfg.Notify
	thanks := fmt.Sprintf("Thank you for choosing %s %s", n.BrandName, mention)

	email := link("Email Gen Tutorial", n.EmailTutorialURL)
	emulator := link("Emulator Tutorial", n.EmulatorTutorialURL)
	paper := link("Paper Receipt Tutorial", n.PaperTutorialURL)

	builder := discord.NewEmbedBuilder().SetColor(guild.EmbedColor(cfg.Discord.EmbedColor))

	var vouch string

	switch state {
	case StateAdded:
		builder.SetTitle(TitleAdded).
			SetDescription(thanks+"\nYou can now use the receipt generator by typing\n /menu or /generator").
			AddField("Tutorial", "We recommend you watch "+email, false)
		vouch = "Please vouch for us in %s"

	case StateEmulator:
		builder.SetTitle(TitleEmulator).
			SetDescription(thanks+"\nYou can use the emulators at "+n.AccountURL).
			AddField("Tutorial", emulator, false)
		vouch = "Please vouch in %s"

	case StatePaperReceipts:
		builder.SetTitle(TitlePaperReceipts).
			SetDescription(thanks+"\nYou can use the emulators at "+n.AccountURL).
			AddField("Tutorial", paper, false)
		vouch = "Please vouch in %s"

	case StateFullPackage:
		builder.SetTitle(TitleFullPackage).
			SetDescription(thanks+
				"\nEmulators and paper receipts: "+n.AccountURL+
				"\nEmail receipts: /menu or /generate").
			AddField("Tutorial", strings.Join([]string{paper, email, emulator}, ", "), false)
		vouch = "Please vouch in %s"

	case StateRemoved:
		return discord.NewEmbedBuilder().
			SetTitle(TitleRemoved).
			SetDescription(mention + ", your subscription has ended.").
			SetColor(RemovedColor).
			SetTimestamp(now).
			Build(), true

	default:
		return discord.Embed{}, false
	}

	if guild.HasVouchChannel() {
		builder.AddField("Vouch", fmt.Sprintf(vouch, discord.ChannelMention(snowflake.ID(*guild.VouchChannelID))), false)
	}

	return builder.Build(), true
}

// link renders a markdown link, or just the label when no URL is configured.
func link(label, url string) string {
	if url == "" {
		return label
	}
	return "[" + label + "](" + url + ")"
}
