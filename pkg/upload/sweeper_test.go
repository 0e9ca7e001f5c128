// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package upload

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestSweeper_RunsPeriodically(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t, testSettings())
	now := time.Now()
	f.store.Seed(testBucket, "tmp/old.png", nil, "image/png", now.Add(-3*time.Hour))

	s := NewSweeper(context.Background(), f.manager, SweeperConfig{
		Interval: 10 * time.Millisecond,
		Jitter:   0.1,
		Timeout:  time.Second,
	})
	s.Start()

	require.Eventually(t, func() bool {
		_, ok := f.store.Data(testBucket, "tmp/old.png")
		return !ok
	}, 2*time.Second, 5*time.Millisecond)

	s.Stop()
}

func TestSweeper_Disabled(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t, testSettings())
	s := NewSweeper(context.Background(), f.manager, SweeperConfig{})
	s.Start()
	s.Stop()

	assert.Zero(t, f.store.Calls("list"))
}

func TestSweeper_RunOnce(t *testing.T) {
	f := newFixture(t, testSettings())
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	f.store.Seed(testBucket, "tmp/a", nil, "", now.Add(-3*time.Hour))
	f.store.Seed(testBucket, "tmp/b", nil, "", now)

	s := NewSweeper(context.Background(), f.manager, DefaultSweeperConfig())
	defer s.Stop()
	s.now = func() time.Time { return now }

	count, err := s.RunOnce()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
