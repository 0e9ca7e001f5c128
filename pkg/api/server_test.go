// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/LeeDigitalWorks/zapup/pkg/cache"
	"github.com/LeeDigitalWorks/zapup/pkg/objstore"
	"github.com/LeeDigitalWorks/zapup/pkg/upload"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, prefix string) (*objstore.MemoryStore, http.Handler) {
	t.Helper()
	settings := upload.DefaultSettings()
	settings.Bucket = "uploads"
	settings.StoragePrefix = "images/"

	facility := cache.NewMemoryFacility(0)
	t.Cleanup(func() { _ = facility.Close() })

	store := objstore.NewMemoryStore()
	alloc := upload.NewAllocator(facility)
	srv := NewServer(
		upload.NewIssuer(settings, store, alloc),
		upload.NewManager(settings, store, alloc),
		Config{RoutePrefix: prefix},
	)
	return store, srv.Handler()
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIssueToken(t *testing.T) {
	_, h := newTestServer(t, "")

	rec := do(t, h, http.MethodPost, "/upload-token?mime=image/png", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var token upload.UploadToken
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &token))
	assert.True(t, strings.HasPrefix(token.Key, "tmp/images/"))
	assert.True(t, strings.HasSuffix(token.Key, ".png"))
	assert.Equal(t, "http://memory.local/uploads", token.URL)
	assert.Equal(t, token.Key, token.Fields["key"])
}

func TestIssueTokenRejectsMime(t *testing.T) {
	_, h := newTestServer(t, "")

	rec := do(t, h, http.MethodPost, "/upload-token?mime=application/zip", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "ValidationError")
}

func TestIssueTokenLegacyRouteWithPrefix(t *testing.T) {
	_, h := newTestServer(t, "/v1")

	rec := do(t, h, http.MethodGet, "/v1/s3/token?mime=image/gif", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/s3/token?mime=image/gif", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPromote(t *testing.T) {
	store, h := newTestServer(t, "")
	store.Seed("uploads", "tmp/images/a.png", []byte("x"), "image/png", time.Now())

	rec := do(t, h, http.MethodPost, "/objects/promote", `{"key":"images/a.png"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, h, http.MethodPost, "/objects/promote", `{"key":"tmp/images/missing.png"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPost, "/objects/promote", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/objects/promote", `{"key":"tmp/images/a.png"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"key":"images/a.png"}`, rec.Body.String())

	rec = do(t, h, http.MethodHead, "/objects/images/a.png", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRemove(t *testing.T) {
	store, h := newTestServer(t, "")
	store.Seed("uploads", "images/a.png", nil, "image/png", time.Now())

	rec := do(t, h, http.MethodHead, "/objects/images/a.png", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodDelete, "/objects/images/a.png", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodDelete, "/objects/images/a.png", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodHead, "/objects/images/a.png", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBackendErrorStatus(t *testing.T) {
	store, h := newTestServer(t, "")
	store.FailOn("presign", func(string) error { return assert.AnError })

	rec := do(t, h, http.MethodPost, "/upload-token?mime=image/png", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	_, h := newTestServer(t, "")

	req := httptest.NewRequest(http.MethodOptions, "/upload-token", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
