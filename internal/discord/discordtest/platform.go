// Package discordtest provides an in-memory Platform for tests.
package discordtest

import (
	"context"
	"sync"

	"github.com/amethyx/accessbot/internal/discord"
	discordapi "github.com/disgoorg/disgo/discord"
)

// RoleCall records a role mutation.
type RoleCall struct {
	GuildID  uint64
	MemberID uint64
	RoleID   uint64
}

// SentEmbed records an embed sent to a channel.
type SentEmbed struct {
	ChannelID uint64
	Embed     discordapi.Embed
}

// SentMention records a mention message.
type SentMention struct {
	ChannelID uint64
	MemberID  uint64
	MessageID uint64
}

// DeletedMessage records a message deletion.
type DeletedMessage struct {
	ChannelID uint64
	MessageID uint64
}

// Platform is a recording discord.Platform. Roles are tracked per guild and member
// so idempotency can be asserted. Error fields make the matching call fail.
type Platform struct {
	mu sync.Mutex

	roles map[RoleCall]struct{}

	AddCalls       []RoleCall
	RemoveCalls    []RoleCall
	DeleteChannels []uint64
	Embeds         []SentEmbed
	Mentions       []SentMention
	Deleted        []DeletedMessage

	// Members that left the guild, keyed by member ID.
	Departed map[uint64]bool

	AddErr        error
	RemoveErr     error
	SendErr       error
	DeleteMsgErr  error
	ChannelErrors map[uint64]error

	// OnAddRole and OnRemoveRole run inside the call, after recording it.
	OnAddRole    func()
	OnRemoveRole func()

	nextMessageID uint64
}

var _ discord.Platform = (*Platform)(nil)

// New creates an empty Platform.
func New() *Platform {
	return &Platform{
		roles:         make(map[RoleCall]struct{}),
		Departed:      make(map[uint64]bool),
		ChannelErrors: make(map[uint64]error),
		nextMessageID: 1000,
	}
}

// HasRole reports whether the member currently holds the role.
func (p *Platform) HasRole(guildID, memberID, roleID uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, ok := p.roles[RoleCall{GuildID: guildID, MemberID: memberID, RoleID: roleID}]
	return ok
}

// GiveRole sets a role without recording a call.
func (p *Platform) GiveRole(guildID, memberID, roleID uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.roles[RoleCall{GuildID: guildID, MemberID: memberID, RoleID: roleID}] = struct{}{}
}

func (p *Platform) AddRole(_ context.Context, guildID, memberID, roleID uint64) error {
	p.mu.Lock()
	call := RoleCall{GuildID: guildID, MemberID: memberID, RoleID: roleID}
	p.AddCalls = append(p.AddCalls, call)
	hook := p.OnAddRole
	err := p.AddErr
	if err == nil {
		p.roles[call] = struct{}{}
	}
	p.mu.Unlock()

	if hook != nil {
		hook()
	}

	return err
}

func (p *Platform) RemoveRole(_ context.Context, guildID, memberID, roleID uint64) error {
	p.mu.Lock()
	call := RoleCall{GuildID: guildID, MemberID: memberID, RoleID: roleID}
	p.RemoveCalls = append(p.RemoveCalls, call)
	hook := p.OnRemoveRole
	err := p.RemoveErr
	if err == nil {
		delete(p.roles, call)
	}
	p.mu.Unlock()

	if hook != nil {
		hook()
	}

	return err
}

func (p *Platform) DeleteChannel(_ context.Context, channelID uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.DeleteChannels = append(p.DeleteChannels, channelID)

	return p.ChannelErrors[channelID]
}

func (p *Platform) SendEmbed(_ context.Context, channelID uint64, embed discordapi.Embed) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.SendErr != nil {
		return 0, p.SendErr
	}

	p.Embeds = append(p.Embeds, SentEmbed{ChannelID: channelID, Embed: embed})
	p.nextMessageID++

	return p.nextMessageID, nil
}

func (p *Platform) SendMention(_ context.Context, channelID, memberID uint64) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.SendErr != nil {
		return 0, p.SendErr
	}

	p.nextMessageID++
	p.Mentions = append(p.Mentions, SentMention{ChannelID: channelID, MemberID: memberID, MessageID: p.nextMessageID})

	return p.nextMessageID, nil
}

func (p *Platform) DeleteMessage(_ context.Context, channelID, messageID uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Deleted = append(p.Deleted, DeletedMessage{ChannelID: channelID, MessageID: messageID})

	return p.DeleteMsgErr
}

func (p *Platform) FetchMember(_ context.Context, _, memberID uint64) (*discord.Member, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Departed[memberID] {
		return nil, discord.ErrMemberNotFound
	}

	return &discord.Member{ID: memberID, Username: "member"}, nil
}

// Calls is a copy of everything a Platform recorded.
type Calls struct {
	AddCalls       []RoleCall
	RemoveCalls    []RoleCall
	DeleteChannels []uint64
	Embeds         []SentEmbed
	Mentions       []SentMention
	Deleted        []DeletedMessage
}

// Snapshot returns copies of the recorded calls.
func (p *Platform) Snapshot() Calls {
	p.mu.Lock()
	defer p.mu.Unlock()

	return Calls{
		AddCalls:       append([]RoleCall(nil), p.AddCalls...),
		RemoveCalls:    append([]RoleCall(nil), p.RemoveCalls...),
		DeleteChannels: append([]uint64(nil), p.DeleteChannels...),
		Embeds:         append([]SentEmbed(nil), p.Embeds...),
		Mentions:       append([]SentMention(nil), p.Mentions...),
		Deleted:        append([]DeletedMessage(nil), p.Deleted...),
	}
}
