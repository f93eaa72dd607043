// Package keylock serializes operations that share a key while letting
// operations on different keys run in parallel.
package keylock

import (
	"context"
	"strconv"
	"sync"
)

// Key identifies the state an operation mutates.
type Key string

// MemberKey is the key for a member's access within a guild.
func MemberKey(guildID, memberID uint64) Key {
	return Key("member:" + strconv.FormatUint(guildID, 10) + ":" + strconv.FormatUint(memberID, 10))
}

// ChannelKey is the key for a ticket channel.
func ChannelKey(channelID uint64) Key {
	return Key("channel:" + strconv.FormatUint(channelID, 10))
}

// entry is a one-slot semaphore shared by every caller of a key.
// refs counts holders and waiters; the entry is dropped when it reaches zero.
type entry struct {
	sem  chan struct{}
	refs int
}

// Locker hands out per-key mutual exclusion. The zero value is not usable; use New.
type Locker struct {
	mu      sync.Mutex
	entries map[Key]*entry
}

// New creates an empty Locker.
func New() *Locker {
	return &Locker{entries: make(map[Key]*entry)}
}

// Do runs fn while no other Do call for the same key is running.
// If ctx ends while waiting, fn is not run and the context error is returned.
// The error of fn is returned unchanged.
func (l *Locker) Do(ctx context.Context, key Key, fn func(ctx context.Context) error) error {
	e := l.acquire(key)
	defer l.release(key, e)

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-e.sem }()

	return fn(ctx)
}

// Len returns the number of keys currently held or waited on.
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.entries)
}

func (l *Locker) acquire(key Key) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		l.entries[key] = e
	}

	e.refs++

	return e
}

func (l *Locker) release(key Key, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}
