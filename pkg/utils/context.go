package utils

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// SleepResult represents the outcome of a context-aware sleep operation.
type SleepResult int

const (
	// SleepCompleted indicates the sleep duration completed normally.
	SleepCompleted SleepResult = iota
	// SleepCancelled indicates the context was cancelled during sleep.
	SleepCancelled
)

// ContextSleep sleeps for the specified duration while respecting context cancellation.
// Returns SleepCompleted if the full duration elapsed, SleepCancelled if context was cancelled.
func ContextSleep(ctx context.Context, duration time.Duration) SleepResult {
	if duration <= 0 {
		if ContextGuard(ctx) {
			return SleepCancelled
		}

		return SleepCompleted
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-timer.C:
		return SleepCompleted
	case <-ctx.Done():
		return SleepCancelled
	}
}

// IntervalSleep waits between sweep passes and logs when the wait is cut short.
// Returns true if the loop should continue, false if it should return.
func IntervalSleep(ctx context.Context, duration time.Duration, logger *zap.Logger, workerName string) bool {
	if ContextSleep(ctx, duration) == SleepCancelled {
		logger.Info("Context cancelled during pause, stopping " + workerName)
		return false
	}

	return true
}

// ContextGuard checks if the context is cancelled and returns true if so.
// This is useful at the beginning of loops or before starting long-running operations.
func ContextGuard(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// WaitReady blocks until ready is closed or the context is cancelled.
// Returns true once ready, false if the context ended first.
func WaitReady(ctx context.Context, ready <-chan struct{}) bool {
	select {
	case <-ready:
		return !ContextGuard(ctx)
	case <-ctx.Done():
		return false
	}
}

// Detached returns a context that keeps the values of ctx but is not cancelled with it,
// bounded by timeout. Used for cleanup that must run even while shutting down.
func Detached(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}
