package access

import (
	"context"
	"fmt"
	"time"

	"github.com/amethyx/accessbot/internal/database/types"
	"github.com/amethyx/accessbot/internal/discord"
	"github.com/amethyx/accessbot/internal/keylock"
	"github.com/amethyx/accessbot/internal/notify"
	"github.com/amethyx/accessbot/internal/worker/core"
	"github.com/amethyx/accessbot/pkg/utils"
	"go.uber.org/zap"
)

// WorkerType identifies the access sweeper in status reports.
const WorkerType = "access_sweeper"

// MembershipStore is the membership storage used by the sweeper.
type MembershipStore interface {
	ListWithoutAccess(ctx context.Context, now time.Time) ([]types.MemberRef, error)
	StillWithoutAccess(ctx context.Context, guildID, memberID uint64, now time.Time) (bool, error)
	MarkRevoked(ctx context.Context, guildID, memberID uint64, at time.Time) (bool, error)
}

// GuildStore loads guild configuration.
type GuildStore interface {
	GetGuildConfig(ctx context.Context, guildID uint64) (*types.GuildConfig, error)
}

// Notifier sends access notifications.
type Notifier interface {
	Notify(ctx context.Context, state notify.State, guildID, memberID uint64, guild *types.GuildConfig) error
}

// Result summarizes one sweep.
type Result struct {
	Revoked  int
	Notified int
	Skipped  int
	Failed   int
	Complete bool
}

// Worker periodically revokes access from members who no longer qualify.
type Worker struct {
	memberships MembershipStore
	guilds      GuildStore
	platform    discord.Platform
	notifier    Notifier
	locker      *keylock.Locker
	reporter    *core.StatusReporter
	ready       <-chan struct{}
	interval    time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

// New creates an access sweeper. Sweeping starts once ready is closed.
func New(
	memberships MembershipStore,
	guilds GuildStore,
	platform discord.Platform,
	notifier Notifier,
	locker *keylock.Locker,
	reporter *core.StatusReporter,
	ready <-chan struct{},
	interval time.Duration,
	logger *zap.Logger,
) *Worker {
	return &Worker{
		memberships: memberships,
		guilds:      guilds,
		platform:    platform,
		notifier:    notifier,
		locker:      locker,
		reporter:    reporter,
		ready:       ready,
		interval:    interval,
		logger:      logger.Named(WorkerType),
		now:         time.Now,
	}
}

// Start runs sweeps until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Access Sweeper started",
		zap.String("worker_id", w.reporter.GetWorkerID()),
		zap.Duration("interval", w.interval))

	w.reporter.Start(ctx)
	defer w.reporter.Stop()

	if !utils.WaitReady(ctx, w.ready) {
		return
	}

	for {
		result := w.Sweep(ctx)
		w.reporter.RecordSweep(result.Revoked, result.Failed)
		w.reporter.UpdateStatus("Idle")

		if !utils.IntervalSleep(ctx, w.interval, w.logger, "access sweeper") {
			return
		}
	}
}

// Sweep revokes access from every member the store reports as disqualified.
// A failure for one member is logged and the sweep moves on.
func (w *Worker) Sweep(ctx context.Context) Result {
	var result Result

	err := core.Safely(func() error {
		w.reporter.UpdateStatus("Revoking expired access")

		refs, err := w.memberships.ListWithoutAccess(ctx, w.now())
		if err != nil {
			return fmt.Errorf("failed to list members without access: %w", err)
		}

		for _, ref := range refs {
			if utils.ContextGuard(ctx) {
				return nil
			}

			var revoked, notified bool

			err := w.locker.Do(ctx, keylock.MemberKey(ref.GuildID, ref.MemberID), func(ctx context.Context) error {
				return core.Safely(func() error {
					var err error
					revoked, notified, err = w.revoke(ctx, ref)
					return err
				})
			})
			if err != nil {
				w.logger.Error("Failed to revoke access",
					zap.Uint64("guild_id", ref.GuildID),
					zap.Uint64("member_id", ref.MemberID),
					zap.Error(err))

				result.Failed++

				continue
			}

			if !revoked {
				result.Skipped++
				continue
			}

			result.Revoked++
			if notified {
				result.Notified++
			}
		}

		result.Complete = true

		return nil
	})
	if err != nil {
		w.logger.Error("Access sweep aborted", zap.Error(err))
	}

	if result.Revoked > 0 || result.Failed > 0 {
		w.logger.Info("Access sweep finished",
			zap.Int("revoked", result.Revoked),
			zap.Int("notified", result.Notified),
			zap.Int("failed", result.Failed))
	}

	return result
}

// revoke removes the role and records the revocation. The listing is taken before
// the member lock, so qualification is checked again under it and a member renewed
// in between is skipped. The removed notice is only sent by the call that performed
// the transition. A failed role removal leaves the membership untouched so the next
// sweep tries again.
func (w *Worker) revoke(ctx context.Context, ref types.MemberRef) (revoked, notified bool, err error) {
	guild, err := w.guilds.GetGuildConfig(ctx, ref.GuildID)
	if err != nil {
		return false, false, fmt.Errorf("failed to get guild config: %w", err)
	}

	now := w.now()

	lapsed, err := w.memberships.StillWithoutAccess(ctx, ref.GuildID, ref.MemberID, now)
	if err != nil {
		return false, false, fmt.Errorf("failed to recheck membership: %w", err)
	}

	if !lapsed {
		w.logger.Debug("Skipping member that regained access",
			zap.Uint64("guild_id", ref.GuildID),
			zap.Uint64("member_id", ref.MemberID))

		return false, false, nil
	}

	if guild.HasAccessRole() {
		if err := w.platform.RemoveRole(ctx, ref.GuildID, ref.MemberID, *guild.AccessRoleID); err != nil {
			return false, false, err
		}
	}

	transitioned, err := w.memberships.MarkRevoked(ctx, ref.GuildID, ref.MemberID, now)
	if err != nil {
		return false, false, fmt.Errorf("failed to mark membership revoked: %w", err)
	}

	if !transitioned {
		return true, false, nil
	}

	if err := w.notifier.Notify(ctx, notify.StateRemoved, ref.GuildID, ref.MemberID, guild); err != nil {
		w.logger.Warn("Failed to send removed notification",
			zap.Uint64("guild_id", ref.GuildID),
			zap.Uint64("member_id", ref.MemberID),
			zap.Error(err))

		return true, false, nil
	}

	return true, guild.HasNotificationChannel(), nil
}
