package grant

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/amethyx/accessbot/internal/database/types"
	"github.com/amethyx/accessbot/internal/discord"
	"github.com/amethyx/accessbot/internal/keylock"
	"github.com/amethyx/accessbot/internal/notify"
	"github.com/amethyx/accessbot/internal/setup/config"
	"github.com/amethyx/accessbot/internal/worker/core"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// WorkerType identifies the grant processor in status reports.
const WorkerType = "grant_processor"

var (
	// ErrInvalidRequest is returned for a request without guild or member.
	ErrInvalidRequest = errors.New("invalid grant request")
	// ErrQueueFull is returned when the grant queue has no free slot.
	ErrQueueFull = errors.New("grant queue is full")
	// ErrStopped is returned once the processor has begun shutting down.
	ErrStopped = errors.New("grant processor stopped")
)

// Request is an inbound grant event.
type Request struct {
	GuildID  uint64
	MemberID uint64
	Tier     types.Tier
}

// MembershipStore records grants.
type MembershipStore interface {
	RecordGrant(ctx context.Context, membership *types.Membership) error
}

// GuildStore loads guild configuration.
type GuildStore interface {
	GetGuildConfig(ctx context.Context, guildID uint64) (*types.GuildConfig, error)
}

// Notifier sends access notifications.
type Notifier interface {
	Notify(ctx context.Context, state notify.State, guildID, memberID uint64, guild *types.GuildConfig) error
}

// Processor applies grant events on a bounded pool of workers.
type Processor struct {
	memberships MembershipStore
	guilds      GuildStore
	platform    discord.Platform
	notifier    Notifier
	locker      *keylock.Locker
	reporter    *core.StatusReporter
	config      *config.BotConfig
	logger      *zap.Logger
	now         func() time.Time

	queue  chan Request
	mu     sync.RWMutex
	closed bool

	processed atomic.Int64
	failed    atomic.Int64
}

// New creates a Processor. Requests are accepted right away and handled once Start runs.
func New(
	memberships MembershipStore,
	guilds GuildStore,
	platform discord.Platform,
	notifier Notifier,
	locker *keylock.Locker,
	reporter *core.StatusReporter,
	cfg *config.BotConfig,
	logger *zap.Logger,
) *Processor {
	return &Processor{
		memberships: memberships,
		guilds:      guilds,
		platform:    platform,
		notifier:    notifier,
		locker:      locker,
		reporter:    reporter,
		config:      cfg,
		logger:      logger.Named(WorkerType),
		now:         time.Now,
		queue:       make(chan Request, max(cfg.Grant.QueueSize, 1)),
	}
}

// Grant schedules a grant and returns without waiting for it to be applied.
func (p *Processor) Grant(_ context.Context, req Request) error {
	if req.GuildID == 0 || req.MemberID == 0 {
		return ErrInvalidRequest
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrStopped
	}

	select {
	case p.queue <- req:
		return nil
	default:
		return fmt.Errorf("%w: %d pending", ErrQueueFull, len(p.queue))
	}
}

// Start processes grants until ctx is cancelled, then drains the accepted ones.
// Draining is bounded by the configured shutdown timeout.
func (p *Processor) Start(ctx context.Context) {
	workers := max(p.config.Grant.Workers, 1)

	p.logger.Info("Grant Processor started",
		zap.String("worker_id", p.reporter.GetWorkerID()),
		zap.Int("workers", workers),
		zap.Int("queue_size", cap(p.queue)))

	p.reporter.Start(ctx)
	defer p.reporter.Stop()

	// Accepted grants outlive ctx until the drain deadline
	jobCtx, cancelJobs := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelJobs()

	workerPool := pool.New().WithMaxGoroutines(workers)
	for range workers {
		workerPool.Go(func() {
			for req := range p.queue {
				p.process(jobCtx, req)
			}
		})
	}

	<-ctx.Done()

	p.mu.Lock()
	p.closed = true
	pending := len(p.queue)
	close(p.queue)
	p.mu.Unlock()

	p.logger.Info("Draining grant queue", zap.Int("pending", pending))

	drainTimeout := time.Duration(p.config.Grant.ShutdownTimeout) * time.Millisecond
	timer := time.AfterFunc(drainTimeout, cancelJobs)
	defer timer.Stop()

	workerPool.Wait()

	p.logger.Info("Grant Processor stopped",
		zap.Int64("processed", p.processed.Load()),
		zap.Int64("failed", p.failed.Load()))
}

func (p *Processor) process(ctx context.Context, req Request) {
	p.reporter.UpdateStatus(fmt.Sprintf("Granting %d/%d", req.GuildID, req.MemberID))

	err := core.Safely(func() error {
		return p.apply(ctx, req)
	})
	if err != nil {
		p.failed.Add(1)
		p.logger.Error("Failed to process grant",
			zap.Uint64("guild_id", req.GuildID),
			zap.Uint64("member_id", req.MemberID),
			zap.String("tier", req.Tier.String()),
			zap.Error(err))
	} else {
		p.processed.Add(1)
	}

	p.reporter.RecordSweep(int(p.processed.Load()), int(p.failed.Load()))
	p.reporter.UpdateStatus("Idle")
}

// apply adds the role, records the grant and notifies the member under the member key.
// Each step is attempted even if an earlier one failed.
func (p *Processor) apply(ctx context.Context, req Request) error {
	tier := types.ParseTier(req.Tier.String())

	guild, err := p.guilds.GetGuildConfig(ctx, req.GuildID)
	if err != nil {
		return fmt.Errorf("failed to get guild config: %w", err)
	}

	return p.locker.Do(ctx, keylock.MemberKey(req.GuildID, req.MemberID), func(ctx context.Context) error {
		var errs []error

		if guild.HasAccessRole() {
			if err := p.platform.AddRole(ctx, req.GuildID, req.MemberID, *guild.AccessRoleID); err != nil {
				errs = append(errs, err)
			}
		}

		if err := p.memberships.RecordGrant(ctx, p.membership(req, tier)); err != nil {
			errs = append(errs, fmt.Errorf("failed to record grant: %w", err))
		}

		if err := p.notifier.Notify(ctx, notify.StateForTier(tier), req.GuildID, req.MemberID, guild); err != nil {
			errs = append(errs, fmt.Errorf("failed to notify: %w", err))
		}

		if len(errs) == 0 {
			p.logger.Debug("Granted access",
				zap.Uint64("guild_id", req.GuildID),
				zap.Uint64("member_id", req.MemberID),
				zap.String("tier", tier.DisplayName()))
		}

		return errors.Join(errs...)
	})
}

func (p *Processor) membership(req Request, tier types.Tier) *types.Membership {
	now := p.now()

	membership := &types.Membership{
		GuildID:   req.GuildID,
		MemberID:  req.MemberID,
		Tier:      tier,
		GrantedAt: now,
	}

	if duration := p.config.TierDuration(tier.String()); duration > 0 {
		expiresAt := now.Add(duration)
		membership.ExpiresAt = &expiresAt
	}

	return membership
}
