// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package upload

import (
	"context"
	"fmt"
	"time"

	"github.com/LeeDigitalWorks/zapup/pkg/cache"
	"github.com/LeeDigitalWorks/zapup/pkg/logger"

	"github.com/google/uuid"
)

// ReservationTTL is how long an allocated key stays reserved in the cache.
const ReservationTTL = time.Second

// IDFunc returns a random identifier for a key candidate.
type IDFunc func() string

// Allocator hands out object keys that no concurrent caller receives.
type Allocator struct {
	cache       cache.Facility
	newID       IDFunc
	maxAttempts int
	ttl         time.Duration
}

// AllocatorOption configures an Allocator.
type AllocatorOption func(*Allocator)

// WithIDFunc replaces the UUIDv4 generator.
func WithIDFunc(fn IDFunc) AllocatorOption {
	return func(a *Allocator) { a.newID = fn }
}

// WithMaxAttempts bounds the retries of a colliding allocation.
func WithMaxAttempts(n int) AllocatorOption {
	return func(a *Allocator) {
		if n > 0 {
			a.maxAttempts = n
		}
	}
}

func NewAllocator(c cache.Facility, opts ...AllocatorOption) *Allocator {
	a := &Allocator{
		cache:       c,
		newID:       uuid.NewString,
		maxAttempts: 10,
		ttl:         ReservationTTL,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Allocate returns prefix + random id + suffix. With checkCollision the
// candidate is reserved through an atomic set-if-absent, and a candidate
// already reserved by another caller is replaced by a fresh one.
func (a *Allocator) Allocate(ctx context.Context, prefix, suffix string, checkCollision bool) (string, error) {
	if !checkCollision {
		return prefix + a.newID() + suffix, nil
	}

	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		key := prefix + a.newID() + suffix

		reserved, err := a.cache.SetIfAbsent(ctx, key, "1", a.ttl)
		if err != nil {
			return "", fmt.Errorf("%w: reserve %s: %w", ErrBackend, key, err)
		}
		if reserved {
			return key, nil
		}

		allocationRetries.Inc()
		logger.Debug().
			Str("key", key).
			Int("attempt", attempt).
			Msg("Key already reserved, trying another one")
	}

	return "", fmt.Errorf("%w: after %d attempts", ErrAllocationExhausted, a.maxAttempts)
}
