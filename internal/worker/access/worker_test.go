package access_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/amethyx/accessbot/internal/database/types"
	"github.com/amethyx/accessbot/internal/discord/discordtest"
	"github.com/amethyx/accessbot/internal/keylock"
	"github.com/amethyx/accessbot/internal/notify"
	"github.com/amethyx/accessbot/internal/setup/config"
	"github.com/amethyx/accessbot/internal/worker/access"
	"github.com/amethyx/accessbot/internal/worker/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// feedStore returns a fixed disqualification feed, regardless of revocations,
// so repeated sweeps see the same members like a listing taken before a renewal.
// StillWithoutAccess and MarkRevoked mirror the SQL predicate
// "revoked_at IS NULL AND expires_at IS NOT NULL AND expires_at <= now",
// with every listed member expired unless renewed.
type feedStore struct {
	mu      sync.Mutex
	feed    []types.MemberRef
	revoked map[types.MemberRef]time.Time
	renewed map[types.MemberRef]bool
	markErr error
	onList  func()
}

func newFeedStore(feed ...types.MemberRef) *feedStore {
	return &feedStore{
		feed:    feed,
		revoked: make(map[types.MemberRef]time.Time),
		renewed: make(map[types.MemberRef]bool),
	}
}

func (s *feedStore) ListWithoutAccess(context.Context, time.Time) ([]types.MemberRef, error) {
	s.mu.Lock()
	refs := append([]types.MemberRef(nil), s.feed...)
	onList := s.onList
	s.mu.Unlock()

	if onList != nil {
		onList()
	}

	return refs, nil
}

func (s *feedStore) StillWithoutAccess(_ context.Context, guildID, memberID uint64, _ time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lapsed(types.MemberRef{GuildID: guildID, MemberID: memberID}), nil
}

func (s *feedStore) MarkRevoked(_ context.Context, guildID, memberID uint64, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.markErr != nil {
		return false, s.markErr
	}

	ref := types.MemberRef{GuildID: guildID, MemberID: memberID}
	if !s.lapsed(ref) {
		return false, nil
	}

	s.revoked[ref] = at

	return true, nil
}

func (s *feedStore) lapsed(ref types.MemberRef) bool {
	_, revoked := s.revoked[ref]
	return !revoked && !s.renewed[ref]
}

// renew behaves like a grant with a future expiry.
func (s *feedStore) renew(guildID, memberID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref := types.MemberRef{GuildID: guildID, MemberID: memberID}
	delete(s.revoked, ref)
	s.renewed[ref] = true
}

func (s *feedStore) isRevoked(guildID, memberID uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.revoked[types.MemberRef{GuildID: guildID, MemberID: memberID}]
	return ok
}

type guildStore map[uint64]*types.GuildConfig

func (g guildStore) GetGuildConfig(_ context.Context, guildID uint64) (*types.GuildConfig, error) {
	if cfg, ok := g[guildID]; ok {
		return cfg, nil
	}
	return &types.GuildConfig{GuildID: guildID}, nil
}

func ptr(v uint64) *uint64 { return &v }

func newWorker(store access.MembershipStore, guilds guildStore, platform *discordtest.Platform) *access.Worker {
	return newReadyWorker(store, guilds, platform, nil)
}

func newReadyWorker(
	store access.MembershipStore, guilds guildStore, platform *discordtest.Platform, ready <-chan struct{},
) *access.Worker {
	cfg := &config.BotConfig{Notify: config.Notify{PingDelay: 1, BrandName: "AmethyX"}}

	return access.New(
		store,
		guilds,
		platform,
		notify.New(platform, cfg, zap.NewNop()),
		keylock.New(),
		core.NewStatusReporter(nil, access.WorkerType, zap.NewNop()),
		ready,
		time.Minute,
		zap.NewNop(),
	)
}

func TestSweepAcrossGuilds(t *testing.T) {
	t.Parallel()

	// Guild 1 has a role and a notification channel, guild 2 has neither
	guilds := guildStore{
		1: {GuildID: 1, AccessRoleID: ptr(100), NotificationChannelID: ptr(500)},
		2: {GuildID: 2},
	}
	store := newFeedStore(
		types.MemberRef{GuildID: 1, MemberID: 7},
		types.MemberRef{GuildID: 1, MemberID: 8},
		types.MemberRef{GuildID: 2, MemberID: 9},
	)

	platform := discordtest.New()
	platform.GiveRole(1, 7, 100)
	platform.GiveRole(1, 8, 100)

	result := newWorker(store, guilds, platform).Sweep(t.Context())

	assert.True(t, result.Complete)
	assert.Equal(t, 3, result.Revoked)
	assert.Equal(t, 2, result.Notified)
	assert.Zero(t, result.Failed)

	calls := platform.Snapshot()
	assert.ElementsMatch(t, []discordtest.RoleCall{
		{GuildID: 1, MemberID: 7, RoleID: 100},
		{GuildID: 1, MemberID: 8, RoleID: 100},
	}, calls.RemoveCalls)
	assert.False(t, platform.HasRole(1, 7, 100))

	require.Len(t, calls.Embeds, 2)
	for _, sent := range calls.Embeds {
		assert.Equal(t, uint64(500), sent.ChannelID)
		assert.Equal(t, notify.TitleRemoved, sent.Embed.Title)
	}

	assert.True(t, store.isRevoked(2, 9))
}

func TestSweepNotifiesOncePerTransition(t *testing.T) {
	t.Parallel()

	guilds := guildStore{1: {GuildID: 1, AccessRoleID: ptr(100), NotificationChannelID: ptr(500)}}
	store := newFeedStore(types.MemberRef{GuildID: 1, MemberID: 7})
	platform := discordtest.New()
	worker := newWorker(store, guilds, platform)

	first := worker.Sweep(t.Context())
	assert.Equal(t, 1, first.Revoked)

	for range 2 {
		result := worker.Sweep(t.Context())
		assert.Zero(t, result.Failed)
		assert.Zero(t, result.Revoked)
		assert.Equal(t, 1, result.Skipped)
	}

	calls := platform.Snapshot()
	assert.Len(t, calls.RemoveCalls, 1)
	assert.Len(t, calls.Embeds, 1)
}

func TestSweepSkipsMemberRenewedAfterListing(t *testing.T) {
	t.Parallel()

	guilds := guildStore{1: {GuildID: 1, AccessRoleID: ptr(100), NotificationChannelID: ptr(500)}}
	store := newFeedStore(
		types.MemberRef{GuildID: 1, MemberID: 7},
		types.MemberRef{GuildID: 1, MemberID: 8},
	)

	platform := discordtest.New()
	platform.GiveRole(1, 7, 100)
	platform.GiveRole(1, 8, 100)

	// Member 7 is granted again between the listing and the member lock
	store.onList = func() { store.renew(1, 7) }

	result := newWorker(store, guilds, platform).Sweep(t.Context())

	assert.True(t, result.Complete)
	assert.Equal(t, 1, result.Revoked)
	assert.Equal(t, 1, result.Skipped)
	assert.Zero(t, result.Failed)

	calls := platform.Snapshot()
	assert.Equal(t, []discordtest.RoleCall{{GuildID: 1, MemberID: 8, RoleID: 100}}, calls.RemoveCalls)
	assert.True(t, platform.HasRole(1, 7, 100))
	assert.False(t, store.isRevoked(1, 7))
	assert.True(t, store.isRevoked(1, 8))
	require.Len(t, calls.Embeds, 1)
}

func TestSweepLeavesMemberOnRemovalFailure(t *testing.T) {
	t.Parallel()

	guilds := guildStore{1: {GuildID: 1, AccessRoleID: ptr(100), NotificationChannelID: ptr(500)}}
	store := newFeedStore(
		types.MemberRef{GuildID: 1, MemberID: 7},
		types.MemberRef{GuildID: 1, MemberID: 8},
	)

	platform := discordtest.New()
	platform.RemoveErr = errors.New("missing permissions")

	result := newWorker(store, guilds, platform).Sweep(t.Context())

	assert.True(t, result.Complete)
	assert.Equal(t, 2, result.Failed)
	assert.Len(t, platform.Snapshot().RemoveCalls, 2)
	assert.Empty(t, platform.Snapshot().Embeds)
	assert.False(t, store.isRevoked(1, 7))

	// Next sweep succeeds and notifies
	platform.RemoveErr = nil

	result = newWorker(store, guilds, platform).Sweep(t.Context())
	assert.Equal(t, 2, result.Revoked)
	assert.Len(t, platform.Snapshot().Embeds, 2)
}

func TestSweepStoreFailureContinues(t *testing.T) {
	t.Parallel()

	guilds := guildStore{1: {GuildID: 1, AccessRoleID: ptr(100)}}
	store := newFeedStore(
		types.MemberRef{GuildID: 1, MemberID: 7},
		types.MemberRef{GuildID: 1, MemberID: 8},
	)
	store.markErr = errors.New("connection reset by peer")

	platform := discordtest.New()
	result := newWorker(store, guilds, platform).Sweep(t.Context())

	assert.True(t, result.Complete)
	assert.Equal(t, 2, result.Failed)
	assert.Len(t, platform.Snapshot().RemoveCalls, 2)
}

func TestSweepEmptyFeed(t *testing.T) {
	t.Parallel()

	platform := discordtest.New()
	result := newWorker(newFeedStore(), guildStore{}, platform).Sweep(t.Context())

	assert.True(t, result.Complete)
	assert.Zero(t, result.Revoked)
	assert.Empty(t, platform.Snapshot().RemoveCalls)
}

func TestStartWaitsForReadiness(t *testing.T) {
	t.Parallel()

	guilds := guildStore{1: {GuildID: 1, AccessRoleID: ptr(100)}}
	store := newFeedStore(types.MemberRef{GuildID: 1, MemberID: 7})

	platform := discordtest.New()
	platform.GiveRole(1, 7, 100)

	ready := make(chan struct{})
	worker := newReadyWorker(store, guilds, platform, ready)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan struct{})

	go func() {
		worker.Start(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, platform.Snapshot().RemoveCalls)
	assert.False(t, store.isRevoked(1, 7))

	close(ready)
	require.Eventually(t, func() bool {
		return store.isRevoked(1, 7)
	}, 2*time.Second, 5*time.Millisecond)
	assert.Len(t, platform.Snapshot().RemoveCalls, 1)

	cancel()
	<-done
}
