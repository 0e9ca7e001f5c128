// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package upload

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/LeeDigitalWorks/zapup/pkg/logger"
	"github.com/LeeDigitalWorks/zapup/pkg/objstore"
)

// CleanupExpired deletes temporary objects last modified before
// now - TempRetention and returns how many were deleted.
//
// Per-object failures are logged and skipped. A listing failure or a
// cancelled ctx stops the sweep after in-flight deletes finish; the count
// so far is returned with ErrBackend or ctx.Err() respectively.
func (m *Manager) CleanupExpired(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.Add(-m.settings.TempRetention)
	return m.sweep(ctx, "cleanup", m.settings.TempPrefix, func(info objstore.ObjectInfo) bool {
		return info.LastModified.Before(cutoff)
	})
}

// ClearBucket deletes every object in the bucket, temporary or not.
func (m *Manager) ClearBucket(ctx context.Context) (int, error) {
	return m.sweep(ctx, "clear", "", func(objstore.ObjectInfo) bool { return true })
}

// sweep streams the listing under prefix into a fixed pool of delete
// workers. Nothing beyond one pending key per worker is buffered.
func (m *Manager) sweep(ctx context.Context, name, prefix string, match func(objstore.ObjectInfo) bool) (int, error) {
	sweepRuns.Inc()
	start := time.Now()
	defer func() { sweepDuration.Observe(time.Since(start).Seconds()) }()

	log := logger.With("sweep").With().Str("sweep", name).Str("prefix", prefix).Logger()

	keys := make(chan string, m.concurrency)
	var wg sync.WaitGroup
	var deleted, failed atomic.Int64

	for range m.concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for key := range keys {
				if ctx.Err() != nil {
					continue
				}
				if m.limiter != nil {
					if err := m.limiter.Wait(ctx); err != nil {
						continue
					}
				}

				err := m.store.Remove(ctx, m.settings.Bucket, key)
				switch {
				case err == nil:
					deleted.Add(1)
					sweepDeleted.Inc()
				case errors.Is(err, objstore.ErrNotFound):
					log.Debug().Str("key", key).Msg("Object already gone")
				case ctx.Err() != nil:
				default:
					failed.Add(1)
					sweepDeleteErrors.Inc()
					log.Error().Err(err).Str("key", key).Msg("Failed to delete object")
				}
			}
		}()
	}

	var listErr error
	var scanned int64
feed:
	for info, err := range m.store.List(ctx, m.settings.Bucket, prefix, true) {
		if err != nil {
			listErr = err
			break
		}
		scanned++
		if !match(info) {
			continue
		}
		select {
		case keys <- info.Key:
		case <-ctx.Done():
			break feed
		}
	}
	close(keys)
	wg.Wait()

	count := int(deleted.Load())
	if err := ctx.Err(); err != nil {
		log.Warn().Err(err).Int("deleted", count).Msg("Sweep cancelled")
		return count, err
	}
	if listErr != nil {
		log.Error().Err(listErr).Int("deleted", count).Msg("Sweep listing failed")
		return count, fmt.Errorf("%w: list %s: %w", ErrBackend, prefix, listErr)
	}

	log.Info().
		Int64("scanned", scanned).
		Int("deleted", count).
		Int64("failed", failed.Load()).
		Dur("took", time.Since(start)).
		Msg("Sweep finished")
	return count, nil
}
