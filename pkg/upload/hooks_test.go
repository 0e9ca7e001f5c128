// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package upload

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHooks_Finalize(t *testing.T) {
	f := newFixture(t, testSettings())
	f.store.Seed(testBucket, "tmp/image/a.png", nil, "image/png", time.Now())
	f.store.Seed(testBucket, "tmp/image/b.png", nil, "image/png", time.Now())
	f.store.Seed(testBucket, "tmp/image/c.png", nil, "image/png", time.Now())

	doc := map[string]any{
		"uri":     "tmp/image/a.png",
		"gallery": []any{"tmp/image/b.png", "image/already.png", 42},
		"thumbs":  []string{"tmp/image/c.png"},
		"title":   "tmp/not-a-field-we-finalize",
		"cover":   "image/existing.png",
	}

	err := NewHooks(f.manager).Finalize(context.Background(), doc, "uri", "gallery", "thumbs", "cover", "missing")
	require.NoError(t, err)

	assert.Equal(t, "image/a.png", doc["uri"])
	assert.Equal(t, []any{"image/b.png", "image/already.png", 42}, doc["gallery"])
	assert.Equal(t, []string{"image/c.png"}, doc["thumbs"])
	assert.Equal(t, "tmp/not-a-field-we-finalize", doc["title"])
	assert.Equal(t, "image/existing.png", doc["cover"])
	assert.NotContains(t, doc, "missing")
	assert.Equal(t, 3, f.store.Calls("copy"))
}

func TestHooks_FinalizeMissingObject(t *testing.T) {
	f := newFixture(t, testSettings())
	doc := map[string]any{"uri": "tmp/image/gone.png"}

	err := NewHooks(f.manager).Finalize(context.Background(), doc, "uri")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "tmp/image/gone.png", doc["uri"])
}

func TestHooks_AfterDelete(t *testing.T) {
	f := newFixture(t, testSettings())
	f.store.Seed(testBucket, "image/a.png", nil, "image/png", time.Now())

	err := NewHooks(f.manager).AfterDelete(context.Background(), "image/a.png", "image/gone.png", "")
	require.NoError(t, err)
	_, ok := f.store.Data(testBucket, "image/a.png")
	assert.False(t, ok)

	f.store.FailOn("remove", func(string) error { return errors.New("denied") })
	err = NewHooks(f.manager).AfterDelete(context.Background(), "image/b.png")
	assert.ErrorIs(t, err, ErrBackend)
}
