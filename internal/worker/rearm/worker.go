package rearm

import (
	"context"
	"fmt"
	"time"

	"github.com/amethyx/accessbot/internal/worker/core"
	"github.com/amethyx/accessbot/pkg/utils"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// WorkerType identifies the re-arm worker in status reports.
const WorkerType = "rearm"

// runTimeout bounds a single registration attempt.
const runTimeout = 30 * time.Second

// Registrar re-registers the bot's interactive components.
type Registrar interface {
	RegisterCommands(ctx context.Context) error
}

// Worker re-registers interactive components once the gateway is ready
// and again on every tick of its schedule.
type Worker struct {
	registrar Registrar
	reporter  *core.StatusReporter
	ready     <-chan struct{}
	schedule  cron.Schedule
	spec      string
	logger    *zap.Logger
}

// New creates a re-arm worker for a standard cron spec or descriptor such as "@every 10m".
func New(
	registrar Registrar,
	reporter *core.StatusReporter,
	ready <-chan struct{},
	spec string,
	logger *zap.Logger,
) (*Worker, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid rearm schedule %q: %w", spec, err)
	}

	return &Worker{
		registrar: registrar,
		reporter:  reporter,
		ready:     ready,
		schedule:  schedule,
		spec:      spec,
		logger:    logger.Named(WorkerType),
	}, nil
}

// Start registers once after readiness, then follows the schedule until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Rearm Worker started",
		zap.String("worker_id", w.reporter.GetWorkerID()),
		zap.String("schedule", w.spec))

	w.reporter.Start(ctx)
	defer w.reporter.Stop()

	if !utils.WaitReady(ctx, w.ready) {
		return
	}

	w.Rearm(ctx)

	scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	scheduler.Schedule(w.schedule, cron.FuncJob(func() {
		w.Rearm(ctx)
	}))
	scheduler.Start()

	<-ctx.Done()

	<-scheduler.Stop().Done()
	w.logger.Info("Rearm Worker stopped")
}

// Rearm runs one registration and records the outcome.
func (w *Worker) Rearm(ctx context.Context) error {
	if utils.ContextGuard(ctx) {
		return ctx.Err()
	}

	w.reporter.UpdateStatus("Registering commands")
	defer w.reporter.UpdateStatus("Idle")

	runCtx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	err := core.Safely(func() error {
		return w.registrar.RegisterCommands(runCtx)
	})

	if err != nil {
		w.reporter.RecordSweep(0, 1)
		w.logger.Error("Failed to rearm commands", zap.Error(err))

		return err
	}

	w.reporter.RecordSweep(1, 0)
	w.logger.Debug("Commands rearmed")

	return nil
}
