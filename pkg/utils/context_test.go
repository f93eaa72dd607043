package utils_test

import (
	"context"
	"testing"
	"time"

	"github.com/amethyx/accessbot/pkg/utils"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestContextSleep(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		duration       time.Duration
		cancelAfter    time.Duration
		cancelUpfront  bool
		expectedResult utils.SleepResult
	}{
		{
			name:           "sleep completes normally",
			duration:       10 * time.Millisecond,
			expectedResult: utils.SleepCompleted,
		},
		{
			name:           "context cancelled before sleep completes",
			duration:       time.Second,
			cancelAfter:    10 * time.Millisecond,
			expectedResult: utils.SleepCancelled,
		},
		{
			name:           "zero duration sleep",
			duration:       0,
			expectedResult: utils.SleepCompleted,
		},
		{
			name:           "zero duration on cancelled context",
			duration:       0,
			cancelUpfront:  true,
			expectedResult: utils.SleepCancelled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx, cancel := context.WithCancel(t.Context())
			defer cancel()

			if tt.cancelUpfront {
				cancel()
			}

			if tt.cancelAfter > 0 {
				go func() {
					time.Sleep(tt.cancelAfter)
					cancel()
				}()
			}

			assert.Equal(t, tt.expectedResult, utils.ContextSleep(ctx, tt.duration))
		})
	}
}

func TestIntervalSleep(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	assert.True(t, utils.IntervalSleep(ctx, time.Millisecond, zap.NewNop(), "test worker"))

	cancel()
	assert.False(t, utils.IntervalSleep(ctx, time.Second, zap.NewNop(), "test worker"))
}

func TestWaitReady(t *testing.T) {
	t.Parallel()

	t.Run("ready closed", func(t *testing.T) {
		t.Parallel()

		ready := make(chan struct{})
		go close(ready)

		assert.True(t, utils.WaitReady(t.Context(), ready))
	})

	t.Run("context cancelled first", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
		defer cancel()

		assert.False(t, utils.WaitReady(ctx, make(chan struct{})))
	})
}

func TestDetached(t *testing.T) {
	t.Parallel()

	parent, cancel := context.WithCancel(t.Context())
	cancel()

	ctx, stop := utils.Detached(parent, time.Second)
	defer stop()

	assert.False(t, utils.ContextGuard(ctx))
	assert.True(t, utils.ContextGuard(parent))
}
