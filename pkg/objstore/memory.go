// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package objstore

import (
	"context"
	"fmt"
	"io"
	"iter"
	"slices"
	"strings"
	"sync"
	"time"
)

type memObject struct {
	data         []byte
	contentType  string
	lastModified time.Time
}

type memBucket struct {
	region  string
	policy  string
	objects map[string]*memObject
}

// MemoryStore keeps buckets and objects in process. It counts calls per
// operation and supports injected failures, which makes it the fake of
// choice for tests; `store_driver: memory` also runs it for local work.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*memBucket
	calls   map[string]int
	fail    map[string]func(key string) error

	// Now stamps LastModified on writes. Defaults to time.Now.
	Now func() time.Time
	// BaseURL prefixes presigned upload URLs.
	BaseURL string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		buckets: make(map[string]*memBucket),
		calls:   make(map[string]int),
		fail:    make(map[string]func(string) error),
		Now:     time.Now,
		BaseURL: "http://memory.local",
	}
}

// FailOn makes op ("put", "copy", "remove", "stat", "list", ...) return the
// error produced by fn for matching keys. fn returning nil lets the call
// through. A nil fn clears the injection.
func (m *MemoryStore) FailOn(op string, fn func(key string) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if fn == nil {
		delete(m.fail, op)
		return
	}
	m.fail[op] = fn
}

// Calls returns how many times op was invoked.
func (m *MemoryStore) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// TotalCalls returns the number of calls across all operations.
func (m *MemoryStore) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		n += c
	}
	return n
}

// Seed stores an object directly, bypassing call accounting. Used to
// simulate an external uploader.
func (m *MemoryStore) Seed(bucket, key string, data []byte, contentType string, modTime time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.bucketLocked(bucket)
	b.objects[key] = &memObject{data: slices.Clone(data), contentType: contentType, lastModified: modTime}
}

// Policy returns the bucket policy last applied to bucket.
func (m *MemoryStore) Policy(bucket string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.buckets[bucket]; ok {
		return b.policy
	}
	return ""
}

// Data returns a copy of the object bytes.
func (m *MemoryStore) Data(bucket, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.buckets[bucket]
	if !ok {
		return nil, false
	}
	obj, ok := b.objects[key]
	if !ok {
		return nil, false
	}
	return slices.Clone(obj.data), true
}

// bucketLocked returns bucket, creating it implicitly. Explicit creation
// through MakeBucket only matters for BucketExists.
func (m *MemoryStore) bucketLocked(bucket string) *memBucket {
	b, ok := m.buckets[bucket]
	if !ok {
		b = &memBucket{objects: make(map[string]*memObject)}
		m.buckets[bucket] = b
	}
	return b
}

func (m *MemoryStore) enter(op, key string) error {
	m.calls[op]++
	if fn, ok := m.fail[op]; ok {
		return fn(key)
	}
	return nil
}

func (m *MemoryStore) PresignUpload(_ context.Context, req PresignRequest) (*PresignedUpload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("presign", req.Key); err != nil {
		return nil, err
	}
	return &PresignedUpload{
		URL: fmt.Sprintf("%s/%s", strings.TrimRight(m.BaseURL, "/"), req.Bucket),
		Fields: map[string]string{
			"key":                  req.Key,
			"Content-Type":         req.ContentType,
			"x-zapup-expires":      req.ExpiresAt.UTC().Format(time.RFC3339),
			"x-zapup-length-range": fmt.Sprintf("%d-%d", req.MinSize, req.MaxSize),
		},
	}, nil
}

func (m *MemoryStore) Put(_ context.Context, bucket, key string, r io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("memory: read body: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("put", key); err != nil {
		return err
	}
	m.bucketLocked(bucket).objects[key] = &memObject{data: data, contentType: contentType, lastModified: m.Now()}
	return nil
}

func (m *MemoryStore) Copy(_ context.Context, bucket, dstKey, srcKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("copy", srcKey); err != nil {
		return err
	}
	b := m.bucketLocked(bucket)
	src, ok := b.objects[srcKey]
	if !ok {
		return ErrNotFound
	}
	b.objects[dstKey] = &memObject{data: slices.Clone(src.data), contentType: src.contentType, lastModified: m.Now()}
	return nil
}

func (m *MemoryStore) Remove(_ context.Context, bucket, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("remove", key); err != nil {
		return err
	}
	b := m.bucketLocked(bucket)
	if _, ok := b.objects[key]; !ok {
		return ErrNotFound
	}
	delete(b.objects, key)
	return nil
}

func (m *MemoryStore) Stat(_ context.Context, bucket, key string) (ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("stat", key); err != nil {
		return ObjectInfo{}, err
	}
	obj, ok := m.bucketLocked(bucket).objects[key]
	if !ok {
		return ObjectInfo{}, ErrNotFound
	}
	return obj.info(key), nil
}

func (o *memObject) info(key string) ObjectInfo {
	return ObjectInfo{
		Key:          key,
		Size:         int64(len(o.data)),
		ContentType:  o.contentType,
		LastModified: o.lastModified,
	}
}

// List walks a sorted snapshot of the matching keys, looking each one up
// again when it is reached so deletions made while iterating are skipped.
func (m *MemoryStore) List(ctx context.Context, bucket, prefix string, recursive bool) iter.Seq2[ObjectInfo, error] {
	return func(yield func(ObjectInfo, error) bool) {
		m.mu.Lock()
		if err := m.enter("list", prefix); err != nil {
			m.mu.Unlock()
			yield(ObjectInfo{}, err)
			return
		}
		var keys []string
		for k := range m.bucketLocked(bucket).objects {
			if !strings.HasPrefix(k, prefix) {
				continue
			}
			if !recursive && strings.Contains(k[len(prefix):], "/") {
				continue
			}
			keys = append(keys, k)
		}
		m.mu.Unlock()
		slices.Sort(keys)

		for _, k := range keys {
			if err := ctx.Err(); err != nil {
				yield(ObjectInfo{}, err)
				return
			}
			m.mu.Lock()
			obj, ok := m.buckets[bucket].objects[k]
			var info ObjectInfo
			if ok {
				info = obj.info(k)
			}
			m.mu.Unlock()
			if !ok {
				continue
			}
			if !yield(info, nil) {
				return
			}
		}
	}
}

func (m *MemoryStore) BucketExists(_ context.Context, bucket string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("bucket_exists", bucket); err != nil {
		return false, err
	}
	b, ok := m.buckets[bucket]
	return ok && b.region != "", nil
}

func (m *MemoryStore) MakeBucket(_ context.Context, bucket, region string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("make_bucket", bucket); err != nil {
		return err
	}
	if region == "" {
		region = "us-east-1"
	}
	m.bucketLocked(bucket).region = region
	return nil
}

func (m *MemoryStore) SetBucketPolicy(_ context.Context, bucket, policy string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("set_bucket_policy", bucket); err != nil {
		return err
	}
	m.bucketLocked(bucket).policy = policy
	return nil
}
