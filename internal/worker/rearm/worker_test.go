package rearm_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amethyx/accessbot/internal/worker/core"
	"github.com/amethyx/accessbot/internal/worker/rearm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type registrar struct {
	calls atomic.Int32
	err   error
	panic bool
}

func (r *registrar) RegisterCommands(context.Context) error {
	r.calls.Add(1)
	if r.panic {
		panic("boom")
	}
	return r.err
}

func newWorker(t *testing.T, reg rearm.Registrar, ready <-chan struct{}, spec string) (*rearm.Worker, *core.StatusReporter) {
	t.Helper()

	reporter := core.NewStatusReporter(nil, rearm.WorkerType, zap.NewNop())
	worker, err := rearm.New(reg, reporter, ready, spec, zap.NewNop())
	require.NoError(t, err)

	return worker, reporter
}

func TestNewRejectsInvalidSchedule(t *testing.T) {
	t.Parallel()

	reporter := core.NewStatusReporter(nil, rearm.WorkerType, zap.NewNop())
	_, err := rearm.New(&registrar{}, reporter, nil, "not a schedule", zap.NewNop())
	require.Error(t, err)
}

func TestRearm(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		reg     *registrar
		wantErr bool
		healthy bool
	}{
		{name: "success", reg: &registrar{}, healthy: true},
		{name: "failure", reg: &registrar{err: errors.New("rate limited")}, wantErr: true},
		{name: "panic", reg: &registrar{panic: true}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			worker, reporter := newWorker(t, tt.reg, nil, "@every 1h")

			err := worker.Rearm(t.Context())
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}

			assert.Equal(t, int32(1), tt.reg.calls.Load())
			assert.Equal(t, tt.healthy, reporter.Status().IsHealthy)
			assert.Equal(t, "Idle", reporter.Status().CurrentTask)
		})
	}
}

func TestRearmSkipsCancelledContext(t *testing.T) {
	t.Parallel()

	reg := &registrar{}
	worker, _ := newWorker(t, reg, nil, "@every 1h")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, worker.Rearm(ctx), context.Canceled)
	assert.Zero(t, reg.calls.Load())
}

func TestStartWaitsForReadiness(t *testing.T) {
	t.Parallel()

	reg := &registrar{}
	ready := make(chan struct{})
	worker, _ := newWorker(t, reg, ready, "@every 1h")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		worker.Start(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, reg.calls.Load())

	close(ready)

	require.Eventually(t, func() bool {
		return reg.calls.Load() == 1
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestStartFollowsSchedule(t *testing.T) {
	t.Parallel()

	reg := &registrar{}
	ready := make(chan struct{})
	close(ready)
	worker, _ := newWorker(t, reg, ready, "@every 1s")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		worker.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return reg.calls.Load() >= 2
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	<-done
}
