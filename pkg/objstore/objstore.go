// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

// Package objstore is the thin capability layer over the remote binary
// store. Implementations exist for S3 (aws-sdk-go-v2), MinIO (minio-go)
// and an in-process memory store used by tests and local development.
package objstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"time"
)

var (
	// ErrNotFound is returned by Stat and Remove when the key is absent.
	ErrNotFound = errors.New("object not found")
	// ErrBucketNotFound is returned when the configured bucket does not exist.
	ErrBucketNotFound = errors.New("bucket not found")
)

// ObjectInfo is the metadata the store reports for a key.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	ETag         string
	LastModified time.Time
}

// PresignRequest describes the constraints a direct upload must satisfy.
// The store enforces them; nothing re-validates the uploaded bytes.
type PresignRequest struct {
	Bucket      string
	Key         string
	ExpiresAt   time.Time
	ContentType string
	MinSize     int64
	MaxSize     int64
}

// PresignedUpload is a browser-style POST upload: the uploader sends a
// multipart form to URL carrying Fields plus a "file" part.
type PresignedUpload struct {
	URL    string
	Fields map[string]string
}

// Store is the object store capability the upload subsystem depends on.
type Store interface {
	PresignUpload(ctx context.Context, req PresignRequest) (*PresignedUpload, error)
	Put(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error
	// Copy duplicates srcKey to dstKey within bucket.
	Copy(ctx context.Context, bucket, dstKey, srcKey string) error
	Remove(ctx context.Context, bucket, key string) error
	Stat(ctx context.Context, bucket, key string) (ObjectInfo, error)
	// List lazily yields objects under prefix, fetching pages on demand.
	// Breaking out of the loop stops paging. A non-nil error is yielded
	// at most once and ends the sequence.
	List(ctx context.Context, bucket, prefix string, recursive bool) iter.Seq2[ObjectInfo, error]
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket, region string) error
	SetBucketPolicy(ctx context.Context, bucket, policy string) error
}

// PublicReadPolicy returns a bucket policy allowing anonymous GetObject on
// every key of bucket.
func PublicReadPolicy(bucket string) string {
	policy := map[string]any{
		"Version": "2012-10-17",
		"Statement": []map[string]any{
			{
				"Sid":       "AllowPublicRead",
				"Effect":    "Allow",
				"Principal": map[string]any{"AWS": []string{"*"}},
				"Action":    []string{"s3:GetObject"},
				"Resource":  []string{fmt.Sprintf("arn:aws:s3:::%s/*", bucket)},
			},
		},
	}
	b, _ := json.Marshal(policy)
	return string(b)
}
