// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package objstore

import (
	"context"
	"fmt"
	"io"
	"iter"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig holds connection details for a MinIO (or any S3-compatible)
// endpoint reached through minio-go.
type MinioConfig struct {
	Endpoint  string // host:port, no scheme
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string
}

// MinioStore implements Store with minio-go.
type MinioStore struct {
	client *minio.Client
}

func NewMinioStore(cfg MinioConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio: create client: %w", err)
	}
	return &MinioStore{client: client}, nil
}

func (m *MinioStore) PresignUpload(ctx context.Context, req PresignRequest) (*PresignedUpload, error) {
	policy := minio.NewPostPolicy()
	if err := policy.SetBucket(req.Bucket); err != nil {
		return nil, fmt.Errorf("minio: presign %s: %w", req.Key, err)
	}
	if err := policy.SetKey(req.Key); err != nil {
		return nil, fmt.Errorf("minio: presign %s: %w", req.Key, err)
	}
	if err := policy.SetExpires(req.ExpiresAt.UTC()); err != nil {
		return nil, fmt.Errorf("minio: presign %s: %w", req.Key, err)
	}
	if err := policy.SetContentType(req.ContentType); err != nil {
		return nil, fmt.Errorf("minio: presign %s: %w", req.Key, err)
	}
	if err := policy.SetContentLengthRange(req.MinSize, req.MaxSize); err != nil {
		return nil, fmt.Errorf("minio: presign %s: %w", req.Key, err)
	}

	u, fields, err := m.client.PresignedPostPolicy(ctx, policy)
	if err != nil {
		return nil, fmt.Errorf("minio: presign %s: %w", req.Key, mapMinioError(err))
	}
	return &PresignedUpload{URL: u.String(), Fields: fields}, nil
}

func (m *MinioStore) Put(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error {
	_, err := m.client.PutObject(ctx, bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("minio: put %s: %w", key, mapMinioError(err))
	}
	return nil
}

func (m *MinioStore) Copy(ctx context.Context, bucket, dstKey, srcKey string) error {
	_, err := m.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: bucket, Object: dstKey},
		minio.CopySrcOptions{Bucket: bucket, Object: srcKey},
	)
	if err != nil {
		return fmt.Errorf("minio: copy %s to %s: %w", srcKey, dstKey, mapMinioError(err))
	}
	return nil
}

// Remove deletes key. RemoveObject succeeds for absent keys, so the key is
// stat'ed first to report ErrNotFound.
func (m *MinioStore) Remove(ctx context.Context, bucket, key string) error {
	if _, err := m.Stat(ctx, bucket, key); err != nil {
		return err
	}
	if err := m.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("minio: remove %s: %w", key, mapMinioError(err))
	}
	return nil
}

func (m *MinioStore) Stat(ctx context.Context, bucket, key string) (ObjectInfo, error) {
	info, err := m.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("minio: stat %s: %w", key, mapMinioError(err))
	}
	return ObjectInfo{
		Key:          info.Key,
		Size:         info.Size,
		ContentType:  info.ContentType,
		ETag:         info.ETag,
		LastModified: info.LastModified,
	}, nil
}

// List adapts minio's channel listing to a lazy sequence. Stopping early
// cancels the listing goroutine inside minio-go.
func (m *MinioStore) List(ctx context.Context, bucket, prefix string, recursive bool) iter.Seq2[ObjectInfo, error] {
	return func(yield func(ObjectInfo, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		objects := m.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{
			Prefix:    prefix,
			Recursive: recursive,
		})
		for obj := range objects {
			if obj.Err != nil {
				yield(ObjectInfo{}, fmt.Errorf("minio: list %s: %w", prefix, mapMinioError(obj.Err)))
				return
			}
			info := ObjectInfo{
				Key:          obj.Key,
				Size:         obj.Size,
				ContentType:  obj.ContentType,
				ETag:         obj.ETag,
				LastModified: obj.LastModified,
			}
			if !yield(info, nil) {
				return
			}
		}
	}
}

func (m *MinioStore) BucketExists(ctx context.Context, bucket string) (bool, error) {
	ok, err := m.client.BucketExists(ctx, bucket)
	if err != nil {
		return false, fmt.Errorf("minio: bucket exists %s: %w", bucket, err)
	}
	return ok, nil
}

func (m *MinioStore) MakeBucket(ctx context.Context, bucket, region string) error {
	if err := m.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("minio: make bucket %s: %w", bucket, err)
	}
	return nil
}

func (m *MinioStore) SetBucketPolicy(ctx context.Context, bucket, policy string) error {
	if err := m.client.SetBucketPolicy(ctx, bucket, policy); err != nil {
		return fmt.Errorf("minio: set bucket policy %s: %w", bucket, err)
	}
	return nil
}

func mapMinioError(err error) error {
	if err == nil {
		return nil
	}
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NotFound":
		return ErrNotFound
	case "NoSuchBucket":
		return ErrBucketNotFound
	}
	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return err
}
