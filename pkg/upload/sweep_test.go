// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package upload

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_CleanupExpired(t *testing.T) {
	settings := testSettings()
	settings.TempRetention = time.Hour
	f := newFixture(t, settings)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	f.store.Seed(testBucket, "tmp/image/old.png", nil, "image/png", now.Add(-2*time.Hour))
	f.store.Seed(testBucket, "tmp/image/fresh.png", nil, "image/png", now.Add(-30*time.Minute))
	f.store.Seed(testBucket, "image/permanent.png", nil, "image/png", now.Add(-48*time.Hour))

	count, err := f.manager.CleanupExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, ok := f.store.Data(testBucket, "tmp/image/old.png")
	assert.False(t, ok)
	_, ok = f.store.Data(testBucket, "tmp/image/fresh.png")
	assert.True(t, ok)
	_, ok = f.store.Data(testBucket, "image/permanent.png")
	assert.True(t, ok)
}

func TestManager_CleanupExpiredManyObjects(t *testing.T) {
	settings := testSettings()
	settings.SweepConcurrency = 4
	f := newFixture(t, settings)
	now := time.Now()

	for i := range 200 {
		f.store.Seed(testBucket, fmt.Sprintf("tmp/image/%03d.png", i), nil, "image/png", now.Add(-3*time.Hour))
	}

	count, err := f.manager.CleanupExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 200, count)
	assert.Equal(t, 200, f.store.Calls("remove"))
}

func TestManager_CleanupExpiredPerObjectFailures(t *testing.T) {
	f := newFixture(t, testSettings())
	now := time.Now()
	for _, k := range []string{"tmp/a", "tmp/b", "tmp/c"} {
		f.store.Seed(testBucket, k, nil, "", now.Add(-3*time.Hour))
	}
	f.store.FailOn("remove", func(key string) error {
		if key == "tmp/b" {
			return errors.New("denied")
		}
		return nil
	})

	count, err := f.manager.CleanupExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	_, ok := f.store.Data(testBucket, "tmp/b")
	assert.True(t, ok)
}

func TestManager_CleanupExpiredListFailure(t *testing.T) {
	f := newFixture(t, testSettings())
	f.store.FailOn("list", func(string) error { return errors.New("no route to host") })

	count, err := f.manager.CleanupExpired(context.Background(), time.Now())
	assert.ErrorIs(t, err, ErrBackend)
	assert.Zero(t, count)
}

func TestManager_CleanupExpiredCancelled(t *testing.T) {
	f := newFixture(t, testSettings())
	now := time.Now()
	for i := range 10 {
		f.store.Seed(testBucket, fmt.Sprintf("tmp/%d", i), nil, "", now.Add(-3*time.Hour))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	count, err := f.manager.CleanupExpired(ctx, now)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, count)
	assert.Zero(t, f.store.Calls("remove"))
}

func TestManager_CleanupExpiredCancelledMidway(t *testing.T) {
	settings := testSettings()
	settings.SweepConcurrency = 1
	f := newFixture(t, settings)
	now := time.Now()
	for i := range 20 {
		f.store.Seed(testBucket, fmt.Sprintf("tmp/%02d", i), nil, "", now.Add(-3*time.Hour))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.store.FailOn("remove", func(key string) error {
		if key == "tmp/04" {
			cancel()
		}
		return nil
	})

	count, err := f.manager.CleanupExpired(ctx, now)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, count, 20)
	assert.GreaterOrEqual(t, count, 5)
}

func TestManager_CleanupExpiredRateLimited(t *testing.T) {
	settings := testSettings()
	settings.SweepRateLimit = 1000
	f := newFixture(t, settings)
	now := time.Now()
	for i := range 5 {
		f.store.Seed(testBucket, fmt.Sprintf("tmp/%d", i), nil, "", now.Add(-3*time.Hour))
	}

	count, err := f.manager.CleanupExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestManager_ClearBucket(t *testing.T) {
	f := newFixture(t, testSettings())
	now := time.Now()
	f.store.Seed(testBucket, "tmp/a", nil, "", now)
	f.store.Seed(testBucket, "image/b.png", nil, "", now)
	f.store.Seed(testBucket, "c", nil, "", now)

	count, err := f.manager.ClearBucket(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	for range f.store.List(context.Background(), testBucket, "", true) {
		t.Fatal("bucket should be empty")
	}
}
