// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/LeeDigitalWorks/zapup/pkg/logger"
	"github.com/LeeDigitalWorks/zapup/pkg/objstore"

	"github.com/dustin/go-humanize"
	"golang.org/x/time/rate"
)

// ObjectRecord is what the store reports about a key, classified by state.
type ObjectRecord struct {
	Key          ObjectKey
	MimeType     string
	Size         int64
	LastModified time.Time
}

// Manager moves objects through the temporary to permanent lifecycle and
// reclaims the ones left behind.
type Manager struct {
	settings    Settings
	store       objstore.Store
	allocator   *Allocator
	client      *http.Client
	locks       *keyLocker
	limiter     *rate.Limiter
	concurrency int
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithHTTPClient sets the client used by IngestFromURL.
func WithHTTPClient(c *http.Client) ManagerOption {
	return func(m *Manager) { m.client = c }
}

func NewManager(settings Settings, store objstore.Store, allocator *Allocator, opts ...ManagerOption) *Manager {
	m := &Manager{
		settings:    settings,
		store:       store,
		allocator:   allocator,
		client:      &http.Client{Timeout: 30 * time.Second},
		locks:       newKeyLocker(),
		concurrency: settings.SweepConcurrency,
	}
	if m.concurrency <= 0 {
		m.concurrency = 8
	}
	if settings.SweepRateLimit > 0 {
		burst := max(1, int(settings.SweepRateLimit))
		m.limiter = rate.NewLimiter(rate.Limit(settings.SweepRateLimit), burst)
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Settings() Settings {
	return m.settings
}

// Exists reports whether key is present in the bucket.
func (m *Manager) Exists(ctx context.Context, key string) (bool, error) {
	_, err := m.store.Stat(ctx, m.settings.Bucket, key)
	if errors.Is(err, objstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: stat %s: %w", ErrBackend, key, err)
	}
	return true, nil
}

// Describe returns the record for key.
func (m *Manager) Describe(ctx context.Context, key string) (*ObjectRecord, error) {
	info, err := m.store.Stat(ctx, m.settings.Bucket, key)
	if errors.Is(err, objstore.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %w", ErrBackend, key, err)
	}
	return &ObjectRecord{
		Key:          m.settings.ParseKey(key),
		MimeType:     info.ContentType,
		Size:         info.Size,
		LastModified: info.LastModified,
	}, nil
}

// Promote copies tempKey to its permanent key and deletes the temporary
// copy, returning the permanent key.
//
// A failed copy fails the promotion and deletes nothing. A failed delete
// after a successful copy is NOT returned: it is logged and counted in
// zapup_upload_promote_orphans_total, and the leftover temporary copy is
// reclaimed by CleanupExpired once it ages out.
//
// Promotions of the same key are serialized; the later one observes
// ErrNotFound.
func (m *Manager) Promote(ctx context.Context, tempKey string) (string, error) {
	key := m.settings.ParseKey(tempKey)
	if key.State != StateTemporary {
		promotionsTotal.WithLabelValues("not_temporary").Inc()
		return "", fmt.Errorf("%w: %s", ErrNotTemporary, tempKey)
	}
	if key.Permanent == "" {
		return "", fmt.Errorf("%w: %q has no name after the temporary prefix", ErrValidation, tempKey)
	}

	unlock := m.locks.lock(tempKey)
	defer unlock()

	exists, err := m.Exists(ctx, tempKey)
	if err != nil {
		promotionsTotal.WithLabelValues("error").Inc()
		return "", err
	}
	if !exists {
		promotionsTotal.WithLabelValues("not_found").Inc()
		return "", fmt.Errorf("%w: %s", ErrNotFound, tempKey)
	}

	if err := m.store.Copy(ctx, m.settings.Bucket, key.Permanent, tempKey); err != nil {
		promotionsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("%w: copy %s: %w", ErrBackend, tempKey, err)
	}

	if err := m.store.Remove(ctx, m.settings.Bucket, tempKey); err != nil {
		promoteOrphans.Inc()
		logger.Warn().Err(err).
			Str("key", tempKey).
			Str("permanent_key", key.Permanent).
			Msg("Promoted object but failed to delete temporary copy")
	}

	promotionsTotal.WithLabelValues("ok").Inc()
	logger.Debug().Str("key", tempKey).Str("permanent_key", key.Permanent).Msg("Promoted object")
	return key.Permanent, nil
}

// Remove deletes key, temporary or permanent.
func (m *Manager) Remove(ctx context.Context, key string) error {
	err := m.store.Remove(ctx, m.settings.Bucket, key)
	if errors.Is(err, objstore.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return fmt.Errorf("%w: remove %s: %w", ErrBackend, key, err)
	}
	return nil
}

// EnsureBucket creates the bucket with a public-read policy when it does
// not exist yet. It reports whether the bucket was created.
func (m *Manager) EnsureBucket(ctx context.Context) (bool, error) {
	bucket := m.settings.Bucket

	exists, err := m.store.BucketExists(ctx, bucket)
	if err != nil {
		return false, fmt.Errorf("%w: bucket exists %s: %w", ErrBackend, bucket, err)
	}
	if exists {
		return false, nil
	}

	if err := m.store.MakeBucket(ctx, bucket, m.settings.Region); err != nil {
		return false, fmt.Errorf("%w: make bucket %s: %w", ErrBackend, bucket, err)
	}
	if err := m.store.SetBucketPolicy(ctx, bucket, objstore.PublicReadPolicy(bucket)); err != nil {
		return true, fmt.Errorf("%w: set policy %s: %w", ErrBackend, bucket, err)
	}

	logger.Info().Str("bucket", bucket).Str("region", m.settings.Region).Msg("Created bucket")
	return true, nil
}

// IngestFromURL downloads rawURL and stores it directly under a new
// permanent key. The response Content-Type must be whitelisted and the
// body may not exceed the configured maximum size.
func (m *Manager) IngestFromURL(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: url %q: %w", ErrValidation, rawURL, err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: fetch %s: %w", ErrBackend, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: fetch %s: status %d", ErrBackend, rawURL, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !m.settings.Allows(contentType) {
		return "", fmt.Errorf("%w: content type %q is not allowed", ErrValidation, contentType)
	}
	contentType = normalizeMime(contentType)

	if resp.ContentLength > m.settings.MaxSize {
		return "", fmt.Errorf("%w: body of %s exceeds %s", ErrValidation,
			humanize.IBytes(uint64(resp.ContentLength)), humanize.IBytes(uint64(m.settings.MaxSize)))
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, m.settings.MaxSize+1))
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %w", ErrBackend, rawURL, err)
	}
	if int64(len(body)) > m.settings.MaxSize {
		return "", fmt.Errorf("%w: body exceeds %s", ErrValidation, humanize.IBytes(uint64(m.settings.MaxSize)))
	}

	key, err := m.allocator.Allocate(ctx, m.settings.storagePrefix(contentType), extensionFor(contentType), false)
	if err != nil {
		return "", err
	}
	if err := m.store.Put(ctx, m.settings.Bucket, key, bytes.NewReader(body), int64(len(body)), contentType); err != nil {
		return "", fmt.Errorf("%w: put %s: %w", ErrBackend, key, err)
	}

	ingestedBytes.Add(float64(len(body)))
	logger.Info().
		Str("url", rawURL).
		Str("key", key).
		Str("size", humanize.IBytes(uint64(len(body)))).
		Msg("Ingested remote object")
	return key, nil
}
