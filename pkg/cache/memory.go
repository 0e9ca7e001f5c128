// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"context"
	"sync"
	"time"

	"github.com/LeeDigitalWorks/zapup/pkg/utils"
)

const defaultCleanupInterval = time.Minute

type memEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

func (e memEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryFacility is an in-process Facility on a sharded map. Expired
// entries are invisible immediately and purged by a background timer.
type MemoryFacility struct {
	store *utils.ShardedMap[memEntry]

	mu           sync.Mutex
	cleanupTimer *time.Timer
	stopped      bool
}

// NewMemoryFacility returns a facility that purges expired entries every
// cleanupInterval (one minute when zero). Call Close to stop the purge.
func NewMemoryFacility(cleanupInterval time.Duration) *MemoryFacility {
	if cleanupInterval <= 0 {
		cleanupInterval = defaultCleanupInterval
	}
	f := &MemoryFacility{
		store: utils.NewShardedMap[memEntry](),
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleanupTimer = time.AfterFunc(cleanupInterval, func() {
		f.purge()
		f.mu.Lock()
		defer f.mu.Unlock()
		if !f.stopped {
			f.cleanupTimer.Reset(cleanupInterval)
		}
	})
	return f
}

func (f *MemoryFacility) purge() int {
	now := time.Now()
	return f.store.DeleteIf(func(_ string, e memEntry) bool {
		return e.expired(now)
	})
}

// Close stops the background purge.
func (f *MemoryFacility) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	f.cleanupTimer.Stop()
	return nil
}

func (f *MemoryFacility) Get(_ context.Context, key string) (string, bool, error) {
	e, ok := f.store.Load(key)
	if !ok || e.expired(time.Now()) {
		return "", false, nil
	}
	return e.value, true, nil
}

func (f *MemoryFacility) Set(_ context.Context, key, value string, ttl time.Duration) error {
	f.store.Store(key, newEntry(value, ttl))
	return nil
}

func (f *MemoryFacility) Drop(_ context.Context, key string) error {
	f.store.Delete(key)
	return nil
}

func (f *MemoryFacility) SetIfAbsent(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	stored := false
	now := time.Now()
	f.store.Compute(key, func(cur memEntry, loaded bool) (memEntry, bool) {
		if loaded && !cur.expired(now) {
			return cur, true
		}
		stored = true
		return newEntry(value, ttl), true
	})
	return stored, nil
}

func newEntry(value string, ttl time.Duration) memEntry {
	e := memEntry{value: value}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	return e
}
