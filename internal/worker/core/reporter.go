package core

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

// StatusReporter periodically publishes a worker's status.
// A nil client disables publishing while still tracking the status locally.
type StatusReporter struct {
	monitor  *Monitor
	status   Status
	interval time.Duration
	stopChan chan struct{}
	stopped  bool
	mu       sync.Mutex
	logger   *zap.Logger
}

// NewStatusReporter creates a new status reporter for a worker.
func NewStatusReporter(client rueidis.Client, workerType string, logger *zap.Logger) *StatusReporter {
	logger = logger.Named("status_reporter")

	var monitor *Monitor
	if client != nil {
		monitor = NewMonitor(client, logger)
	}

	return &StatusReporter{
		monitor: monitor,
		status: Status{
			WorkerID:   uuid.New().String(),
			WorkerType: workerType,
			IsHealthy:  true,
		},
		interval: HeartbeatInterval,
		stopChan: make(chan struct{}),
		logger:   logger,
	}
}

// Start begins periodic status reporting until ctx is done or Stop is called.
func (r *StatusReporter) Start(ctx context.Context) {
	r.mu.Lock()
	if r.stopped || r.monitor == nil {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		r.report(ctx)

		for {
			select {
			case <-ticker.C:
				r.report(ctx)
			case <-ctx.Done():
				return
			case <-r.stopChan:
				return
			}
		}
	}()
}

// Stop ends status reporting.
func (r *StatusReporter) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.stopped {
		close(r.stopChan)
		r.stopped = true
	}
}

// UpdateStatus sets the task the worker is currently performing.
func (r *StatusReporter) UpdateStatus(task string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.status.CurrentTask = task
}

// RecordSweep stores the outcome of a completed sweep.
// A sweep where every item failed marks the worker unhealthy.
func (r *StatusReporter) RecordSweep(processed, failed int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.status.LastSweep = time.Now()
	r.status.Processed = processed
	r.status.Failed = failed
	r.status.IsHealthy = failed == 0 || processed > 0
}

// SetHealthy updates the health status.
func (r *StatusReporter) SetHealthy(healthy bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.status.IsHealthy = healthy
}

// Status returns a copy of the current status.
func (r *StatusReporter) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.status
}

// GetWorkerID returns the unique worker ID.
func (r *StatusReporter) GetWorkerID() string {
	return r.status.WorkerID
}

func (r *StatusReporter) report(ctx context.Context) {
	if err := r.monitor.ReportStatus(ctx, r.Status()); err != nil {
		r.logger.Error("Failed to report status", zap.Error(err))
	}
}
