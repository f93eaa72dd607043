package keylock_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amethyx/accessbot/internal/keylock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeys(t *testing.T) {
	t.Parallel()

	assert.Equal(t, keylock.MemberKey(1, 7), keylock.MemberKey(1, 7))
	assert.NotEqual(t, keylock.MemberKey(1, 7), keylock.MemberKey(17, 0))
	assert.NotEqual(t, keylock.MemberKey(1, 7), keylock.ChannelKey(7))
}

func TestDoSerializesSameKey(t *testing.T) {
	t.Parallel()

	locker := keylock.New()
	key := keylock.MemberKey(1, 7)

	var (
		active  atomic.Int32
		maxSeen atomic.Int32
		wg      sync.WaitGroup
	)

	for range 50 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			err := locker.Do(t.Context(), key, func(context.Context) error {
				n := active.Add(1)
				for {
					m := maxSeen.Load()
					if n <= m || maxSeen.CompareAndSwap(m, n) {
						break
					}
				}

				time.Sleep(time.Millisecond)
				active.Add(-1)

				return nil
			})
			assert.NoError(t, err)
		}()
	}

	wg.Wait()

	assert.Equal(t, int32(1), maxSeen.Load())
	assert.Zero(t, locker.Len())
}

func TestDoRunsDistinctKeysInParallel(t *testing.T) {
	t.Parallel()

	locker := keylock.New()
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- locker.Do(t.Context(), keylock.ChannelKey(1), func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()

	<-started

	// A different key must not wait for the held one
	err := locker.Do(t.Context(), keylock.ChannelKey(2), func(context.Context) error {
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, locker.Len())

	close(release)
	require.NoError(t, <-done)
	assert.Zero(t, locker.Len())
}

func TestDoReturnsErrorAndReleases(t *testing.T) {
	t.Parallel()

	locker := keylock.New()
	key := keylock.MemberKey(3, 4)
	errBoom := errors.New("boom")

	err := locker.Do(t.Context(), key, func(context.Context) error { return errBoom })
	require.ErrorIs(t, err, errBoom)

	ran := false
	err = locker.Do(t.Context(), key, func(context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Zero(t, locker.Len())
}

func TestDoHonorsContextWhileWaiting(t *testing.T) {
	t.Parallel()

	locker := keylock.New()
	key := keylock.ChannelKey(9)
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- locker.Do(t.Context(), key, func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()

	<-started

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()

	ran := false
	err := locker.Do(ctx, key, func(context.Context) error {
		ran = true
		return nil
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, ran)

	close(release)
	require.NoError(t, <-done)
	assert.Zero(t, locker.Len())
}
