// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

// Package cache provides the shared key-value facility used for short-lived
// reservations. RedisFacility backs deployments with several processes;
// MemoryFacility serves single-process runs and tests.
package cache

import (
	"context"
	"time"
)

// Facility is a string key-value store with per-entry TTL.
//
// SetIfAbsent must be atomic across every process sharing the facility:
// of all concurrent callers for the same key exactly one observes true.
type Facility interface {
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key. A zero ttl keeps the entry until dropped.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Drop(ctx context.Context, key string) error
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
}
