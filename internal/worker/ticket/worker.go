package ticket

import (
	"context"
	"fmt"
	"time"

	"github.com/amethyx/accessbot/internal/discord"
	"github.com/amethyx/accessbot/internal/keylock"
	"github.com/amethyx/accessbot/internal/worker/core"
	"github.com/amethyx/accessbot/pkg/utils"
	"go.uber.org/zap"
)

// WorkerType identifies the ticket sweeper in status reports.
const WorkerType = "ticket_sweeper"

// Store is the ticket storage used by the sweeper.
type Store interface {
	ListNonDeleted(ctx context.Context, createdBefore time.Time) ([]uint64, error)
	ListOrphaned(ctx context.Context) ([]uint64, error)
	MarkDeleted(ctx context.Context, channelID uint64) (bool, error)
	MarkChannelRemoved(ctx context.Context, channelID uint64) error
}

// Result summarizes one sweep.
type Result struct {
	Deleted  int
	Orphans  int
	Failed   int
	Complete bool
}

// Worker periodically deletes ticket channels past their time-to-live.
type Worker struct {
	tickets  Store
	platform discord.Platform
	locker   *keylock.Locker
	reporter *core.StatusReporter
	ready    <-chan struct{}
	interval time.Duration
	ttl      time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// New creates a ticket sweeper. Sweeping starts once ready is closed.
func New(
	tickets Store,
	platform discord.Platform,
	locker *keylock.Locker,
	reporter *core.StatusReporter,
	ready <-chan struct{},
	interval, ttl time.Duration,
	logger *zap.Logger,
) *Worker {
	return &Worker{
		tickets:  tickets,
		platform: platform,
		locker:   locker,
		reporter: reporter,
		ready:    ready,
		interval: interval,
		ttl:      ttl,
		logger:   logger.Named(WorkerType),
		now:      time.Now,
	}
}

// Start runs sweeps until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Ticket Sweeper started",
		zap.String("worker_id", w.reporter.GetWorkerID()),
		zap.Duration("interval", w.interval),
		zap.Duration("ttl", w.ttl))

	w.reporter.Start(ctx)
	defer w.reporter.Stop()

	if !utils.WaitReady(ctx, w.ready) {
		return
	}

	for {
		result := w.Sweep(ctx)
		w.reporter.RecordSweep(result.Deleted+result.Orphans, result.Failed)
		w.reporter.UpdateStatus("Idle")

		if !utils.IntervalSleep(ctx, w.interval, w.logger, "ticket sweeper") {
			return
		}
	}
}

// Sweep retries orphaned channel deletions, then deletes expired tickets.
// Failures are logged per ticket and never stop the sweep.
func (w *Worker) Sweep(ctx context.Context) Result {
	var result Result

	err := core.Safely(func() error {
		w.reporter.UpdateStatus("Retrying orphaned channels")

		orphans, err := w.tickets.ListOrphaned(ctx)
		if err != nil {
			return fmt.Errorf("failed to list orphaned tickets: %w", err)
		}

		for _, channelID := range orphans {
			if utils.ContextGuard(ctx) {
				return nil
			}

			if err := w.item(ctx, channelID, w.removeChannel); err != nil {
				w.logger.Error("Failed to remove orphaned ticket channel",
					zap.Uint64("channel_id", channelID),
					zap.Error(err))

				result.Failed++

				continue
			}

			result.Orphans++
		}

		w.reporter.UpdateStatus("Deleting expired tickets")

		expired, err := w.tickets.ListNonDeleted(ctx, w.now().Add(-w.ttl))
		if err != nil {
			return fmt.Errorf("failed to list open tickets: %w", err)
		}

		for _, channelID := range expired {
			if utils.ContextGuard(ctx) {
				return nil
			}

			if err := w.item(ctx, channelID, w.deleteTicket); err != nil {
				w.logger.Error("Failed to delete ticket",
					zap.Uint64("channel_id", channelID),
					zap.Error(err))

				result.Failed++

				continue
			}

			result.Deleted++
		}

		result.Complete = true

		return nil
	})
	if err != nil {
		w.logger.Error("Ticket sweep aborted", zap.Error(err))
	}

	if result.Deleted > 0 || result.Orphans > 0 || result.Failed > 0 {
		w.logger.Info("Ticket sweep finished",
			zap.Int("deleted", result.Deleted),
			zap.Int("orphans", result.Orphans),
			zap.Int("failed", result.Failed))
	}

	return result
}

// item runs fn for one channel under its key, recovering panics.
func (w *Worker) item(ctx context.Context, channelID uint64, fn func(context.Context, uint64) error) error {
	return w.locker.Do(ctx, keylock.ChannelKey(channelID), func(ctx context.Context) error {
		return core.Safely(func() error {
			return fn(ctx, channelID)
		})
	})
}

// deleteTicket marks the ticket deleted before removing its channel, so a crash
// in between leaves an orphan for the next sweep instead of a live record.
func (w *Worker) deleteTicket(ctx context.Context, channelID uint64) error {
	marked, err := w.tickets.MarkDeleted(ctx, channelID)
	if err != nil {
		return fmt.Errorf("failed to mark ticket deleted: %w", err)
	}

	if !marked {
		// Deleted since the listing; the orphan pass picks up any leftover channel
		return nil
	}

	return w.removeChannel(ctx, channelID)
}

// removeChannel deletes the channel and records that it is gone.
func (w *Worker) removeChannel(ctx context.Context, channelID uint64) error {
	if err := w.platform.DeleteChannel(ctx, channelID); err != nil {
		return err
	}

	if err := w.tickets.MarkChannelRemoved(ctx, channelID); err != nil {
		return fmt.Errorf("failed to mark ticket channel removed: %w", err)
	}

	w.logger.Debug("Deleted ticket channel", zap.Uint64("channel_id", channelID))

	return nil
}
