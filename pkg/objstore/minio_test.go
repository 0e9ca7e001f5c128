// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package objstore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMinioStore(t *testing.T, handler http.Handler) *MinioStore {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store, err := NewMinioStore(MinioConfig{
		Endpoint:  strings.TrimPrefix(server.URL, "http://"),
		AccessKey: "test-key",
		SecretKey: "test-secret",
		Region:    "us-east-1",
	})
	require.NoError(t, err)
	return store
}

func TestMinioStore_StatNotFound(t *testing.T) {
	t.Parallel()

	store := newTestMinioStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := store.Stat(context.Background(), "uploads", "tmp/missing.png")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMinioStore_PresignUpload(t *testing.T) {
	t.Parallel()

	store := newTestMinioStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("presign must not call the server, got %s %s", r.Method, r.URL.Path)
	}))

	out, err := store.PresignUpload(context.Background(), PresignRequest{
		Bucket:      "uploads",
		Key:         "tmp/images/a.png",
		ExpiresAt:   time.Now().Add(5 * time.Minute),
		ContentType: "image/png",
		MinSize:     1024,
		MaxSize:     4 << 20,
	})
	require.NoError(t, err)
	assert.Contains(t, out.URL, "uploads")
	assert.Equal(t, "tmp/images/a.png", out.Fields["key"])
	assert.Equal(t, "image/png", out.Fields["Content-Type"])
	assert.NotEmpty(t, out.Fields["policy"])
}

func TestMapMinioError(t *testing.T) {
	t.Parallel()
	assert.Nil(t, mapMinioError(nil))
	assert.ErrorIs(t, mapMinioError(minio.ErrorResponse{Code: "NoSuchKey"}), ErrNotFound)
	assert.ErrorIs(t, mapMinioError(minio.ErrorResponse{Code: "NoSuchBucket"}), ErrBucketNotFound)
	assert.ErrorIs(t, mapMinioError(minio.ErrorResponse{StatusCode: http.StatusNotFound}), ErrNotFound)

	other := minio.ErrorResponse{Code: "AccessDenied", StatusCode: http.StatusForbidden}
	assert.Equal(t, other, mapMinioError(other))
}
