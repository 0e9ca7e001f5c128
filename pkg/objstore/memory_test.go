// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package objstore

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ Store = (*MemoryStore)(nil)
var _ Store = (*S3Store)(nil)
var _ Store = (*MinioStore)(nil)

func TestMemoryStore_PutStatCopyRemove(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	m := NewMemoryStore()
	m.Now = func() time.Time { return now }

	require.NoError(t, m.Put(ctx, "b", "tmp/a.png", strings.NewReader("png"), 3, "image/png"))

	info, err := m.Stat(ctx, "b", "tmp/a.png")
	require.NoError(t, err)
	assert.Equal(t, int64(3), info.Size)
	assert.Equal(t, "image/png", info.ContentType)
	assert.Equal(t, now, info.LastModified)

	require.NoError(t, m.Copy(ctx, "b", "a.png", "tmp/a.png"))
	data, ok := m.Data("b", "a.png")
	require.True(t, ok)
	assert.Equal(t, "png", string(data))

	require.NoError(t, m.Remove(ctx, "b", "tmp/a.png"))
	_, err = m.Stat(ctx, "b", "tmp/a.png")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, m.Remove(ctx, "b", "tmp/a.png"), ErrNotFound)
	assert.ErrorIs(t, m.Copy(ctx, "b", "x", "tmp/a.png"), ErrNotFound)

	assert.Equal(t, 2, m.Calls("remove"))
	assert.Equal(t, 2, m.Calls("copy"))
}

func TestMemoryStore_List(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemoryStore()
	mod := time.Now()
	m.Seed("b", "tmp/b.png", nil, "image/png", mod)
	m.Seed("b", "tmp/a.png", nil, "image/png", mod)
	m.Seed("b", "tmp/nested/c.png", nil, "image/png", mod)
	m.Seed("b", "a.png", nil, "image/png", mod)

	collect := func(recursive bool) []string {
		var keys []string
		for info, err := range m.List(ctx, "b", "tmp/", recursive) {
			require.NoError(t, err)
			keys = append(keys, info.Key)
		}
		return keys
	}

	assert.Equal(t, []string{"tmp/a.png", "tmp/b.png", "tmp/nested/c.png"}, collect(true))
	assert.Equal(t, []string{"tmp/a.png", "tmp/b.png"}, collect(false))
}

func TestMemoryStore_ListSkipsDeletedDuringIteration(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemoryStore()
	m.Seed("b", "tmp/a", nil, "", time.Now())
	m.Seed("b", "tmp/b", nil, "", time.Now())

	var keys []string
	for info, err := range m.List(ctx, "b", "tmp/", true) {
		require.NoError(t, err)
		keys = append(keys, info.Key)
		if info.Key == "tmp/a" {
			require.NoError(t, m.Remove(ctx, "b", "tmp/b"))
		}
	}
	assert.Equal(t, []string{"tmp/a"}, keys)
}

func TestMemoryStore_ListCancelled(t *testing.T) {
	t.Parallel()
	m := NewMemoryStore()
	m.Seed("b", "tmp/a", nil, "", time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var errs []error
	for _, err := range m.List(ctx, "b", "tmp/", true) {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], context.Canceled)
}

func TestMemoryStore_FailOn(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemoryStore()
	boom := errors.New("boom")
	m.Seed("b", "tmp/a", nil, "", time.Now())
	m.Seed("b", "tmp/b", nil, "", time.Now())

	m.FailOn("remove", func(key string) error {
		if key == "tmp/a" {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, m.Remove(ctx, "b", "tmp/a"), boom)
	assert.NoError(t, m.Remove(ctx, "b", "tmp/b"))

	m.FailOn("remove", nil)
	assert.NoError(t, m.Remove(ctx, "b", "tmp/a"))
}

func TestMemoryStore_Buckets(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemoryStore()

	ok, err := m.BucketExists(ctx, "b")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.MakeBucket(ctx, "b", ""))
	require.NoError(t, m.SetBucketPolicy(ctx, "b", PublicReadPolicy("b")))

	ok, err = m.BucketExists(ctx, "b")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, m.Policy("b"), "arn:aws:s3:::b/*")
	assert.Contains(t, m.Policy("b"), "AllowPublicRead")
}

func TestMemoryStore_PresignUpload(t *testing.T) {
	t.Parallel()
	m := NewMemoryStore()
	out, err := m.PresignUpload(context.Background(), PresignRequest{
		Bucket:      "b",
		Key:         "tmp/a.png",
		ExpiresAt:   time.Now().Add(time.Minute),
		ContentType: "image/png",
		MinSize:     1,
		MaxSize:     10,
	})
	require.NoError(t, err)
	assert.Equal(t, "http://memory.local/b", out.URL)
	assert.Equal(t, "tmp/a.png", out.Fields["key"])
	assert.Equal(t, "1-10", out.Fields["x-zapup-length-range"])
}
