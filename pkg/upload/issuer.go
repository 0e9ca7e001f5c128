// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package upload

import (
	"context"
	"fmt"
	"mime"
	"strings"
	"time"

	"github.com/LeeDigitalWorks/zapup/pkg/logger"
	"github.com/LeeDigitalWorks/zapup/pkg/objstore"
)

// UploadToken is the credential handed to an external uploader. The
// uploader POSTs a multipart form with Fields and a "file" part to URL.
type UploadToken struct {
	URL       string            `json:"post_url"`
	Key       string            `json:"key"`
	Fields    map[string]string `json:"form_data"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// preferredExtensions pins the extension for types where the mime
// database lists several.
var preferredExtensions = map[string]string{
	"image/jpeg":      ".jpeg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"image/svg+xml":   ".svg",
	"video/mp4":       ".mp4",
	"application/pdf": ".pdf",
}

// extensionFor returns the key suffix for mimeType, or "" when none is known.
func extensionFor(mimeType string) string {
	mimeType = normalizeMime(mimeType)
	if ext, ok := preferredExtensions[mimeType]; ok {
		return ext
	}
	exts, err := mime.ExtensionsByType(mimeType)
	if err != nil || len(exts) == 0 {
		return ""
	}
	return exts[0]
}

// Issuer validates upload requests and obtains presigned credentials.
type Issuer struct {
	settings  Settings
	store     objstore.Store
	allocator *Allocator
	now       func() time.Time
}

func NewIssuer(settings Settings, store objstore.Store, allocator *Allocator) *Issuer {
	return &Issuer{
		settings:  settings,
		store:     store,
		allocator: allocator,
		now:       time.Now,
	}
}

// IssueToken allocates a temporary key for mimeType and returns a
// credential restricted to that key, that content type and the configured
// size range. A disallowed mime type fails before any backend call.
func (i *Issuer) IssueToken(ctx context.Context, mimeType string) (*UploadToken, error) {
	if !i.settings.Allows(mimeType) {
		return nil, fmt.Errorf("%w: mime type %q is not allowed", ErrValidation, mimeType)
	}
	contentType := normalizeMime(mimeType)

	key, err := i.allocator.Allocate(ctx, i.settings.storagePrefix(contentType), extensionFor(contentType), true)
	if err != nil {
		return nil, err
	}
	path := i.settings.TempKey(key)
	expiresAt := i.now().Add(i.settings.TokenExpiry)

	presigned, err := i.store.PresignUpload(ctx, objstore.PresignRequest{
		Bucket:      i.settings.Bucket,
		Key:         path,
		ExpiresAt:   expiresAt,
		ContentType: contentType,
		MinSize:     i.settings.MinSize,
		MaxSize:     i.settings.MaxSize,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: presign %s: %w", ErrBackend, path, err)
	}

	url := presigned.URL
	if i.settings.PostURL != "" {
		url = strings.TrimRight(i.settings.PostURL, "/") + "/" + i.settings.Bucket
	}

	tokensIssued.WithLabelValues(contentType).Inc()
	logger.Debug().
		Str("key", path).
		Str("mime", contentType).
		Time("expires_at", expiresAt).
		Msg("Issued upload token")

	return &UploadToken{
		URL:       url,
		Key:       path,
		Fields:    presigned.Fields,
		ExpiresAt: expiresAt,
	}, nil
}
