// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"github.com/LeeDigitalWorks/zapup/pkg/cache"
	"github.com/LeeDigitalWorks/zapup/pkg/env"
	"github.com/LeeDigitalWorks/zapup/pkg/logger"
	"github.com/LeeDigitalWorks/zapup/pkg/objstore"
	"github.com/LeeDigitalWorks/zapup/pkg/upload"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"
)

// registerStackFlags declares the settings shared by every command that
// talks to the bucket.
func registerStackFlags(f *pflag.FlagSet) {
	d := upload.DefaultSettings()

	// Bucket and store
	f.String("bucket", "", "Bucket name (required)")
	f.String("region", d.Region, "Bucket region, used when creating the bucket")
	f.String("store_driver", "s3", "Object store driver: s3, minio or memory")
	f.String("store_endpoint", "", "Store endpoint. Empty for AWS S3; host:port or URL for MinIO")
	f.String("store_access_key", "", "Store access key")
	f.String("store_secret_key", "", "Store secret key")
	f.Bool("store_use_ssl", true, "Use TLS to reach a MinIO endpoint given without scheme")
	f.Bool("store_path_style", false, "Use path-style addressing for S3")

	// Upload policy
	f.String("temp_prefix", d.TempPrefix, "Key prefix of temporary objects")
	f.String("storage_prefix", "", "Fixed key prefix of stored objects")
	f.Bool("storage_prefix_from_mime", false, "Use '<mime major type>/' as key prefix instead of storage_prefix")
	f.StringSlice("mime_types", d.MimeTypes, "Allowed mime types")
	f.Duration("token_expiry", d.TokenExpiry, "Lifetime of upload tokens")
	f.Int64("min_size", d.MinSize, "Minimum upload size in bytes")
	f.Int64("max_size", d.MaxSize, "Maximum upload size in bytes")
	f.Duration("temp_retention", d.TempRetention, "Age after which unpromoted temporary objects are swept")
	f.String("post_url", "", "Override the upload URL returned in tokens (bucket is appended)")

	// Reservation cache
	f.String("cache_driver", "memory", "Reservation cache driver: memory or redis")
	f.String("redis_addr", "localhost:6379", "Redis address")
	f.String("redis_password", "", "Redis password")
	f.Int("redis_db", 0, "Redis database")
	f.String("redis_key_prefix", cache.DefaultRedisConfig().KeyPrefix, "Prefix of reservation keys")
	f.Int("allocate_max_attempts", d.AllocateMaxAttempts, "Key allocation attempts before giving up")

	// Sweep
	f.Int("sweep_concurrency", d.SweepConcurrency, "Concurrent deletes during a sweep")
	f.Float64("sweep_rate_limit", 0, "Maximum sweep deletes per second (0 = unlimited)")

	f.Duration("timeout", time.Hour, "Deadline for one-shot commands (0 = none)")
}

// loadSettings resolves the upload policy from flags, env and config file.
func loadSettings(fl *FlagLoader) (upload.Settings, error) {
	s := upload.Settings{
		Bucket:              fl.String("bucket"),
		Region:              fl.String("region"),
		MimeTypes:           fl.StringSlice("mime_types"),
		MinSize:             fl.Int64("min_size"),
		MaxSize:             fl.Int64("max_size"),
		TokenExpiry:         fl.Duration("token_expiry"),
		TempPrefix:          fl.String("temp_prefix"),
		StoragePrefix:       fl.String("storage_prefix"),
		PrefixFromMime:      fl.Bool("storage_prefix_from_mime"),
		TempRetention:       fl.Duration("temp_retention"),
		PostURL:             fl.String("post_url"),
		AllocateMaxAttempts: fl.Int("allocate_max_attempts"),
		SweepConcurrency:    fl.Int("sweep_concurrency"),
		SweepRateLimit:      fl.Float64("sweep_rate_limit"),
	}
	if err := s.Validate(); err != nil {
		return upload.Settings{}, err
	}
	return s, nil
}

func openStore(ctx context.Context, fl *FlagLoader, region string) (objstore.Store, error) {
	endpoint := fl.String("store_endpoint")

	switch driver := fl.String("store_driver"); driver {
	case "s3":
		return objstore.NewS3Store(ctx, objstore.S3Config{
			Endpoint:        endpoint,
			Region:          region,
			AccessKeyID:     fl.String("store_access_key"),
			SecretAccessKey: fl.String("store_secret_key"),
			PathStyle:       fl.Bool("store_path_style"),
		})
	case "minio":
		useSSL := fl.Bool("store_use_ssl")
		if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
			endpoint = u.Host
			useSSL = u.Scheme == "https"
		}
		return objstore.NewMinioStore(objstore.MinioConfig{
			Endpoint:  endpoint,
			AccessKey: fl.String("store_access_key"),
			SecretKey: fl.String("store_secret_key"),
			UseSSL:    useSSL,
			Region:    region,
		})
	case "memory":
		if env.IsProduction() {
			return nil, errors.New("memory store driver is not allowed in production")
		}
		logger.Warn().Msg("Using in-memory object store; nothing is persisted")
		return objstore.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

func openCache(fl *FlagLoader) (cache.Facility, io.Closer, error) {
	switch driver := fl.String("cache_driver"); driver {
	case "memory":
		f := cache.NewMemoryFacility(0)
		return f, f, nil
	case "redis":
		f, err := cache.NewRedisFacility(cache.RedisConfig{
			Addr:      fl.String("redis_addr"),
			Password:  fl.String("redis_password"),
			DB:        fl.Int("redis_db"),
			PoolSize:  10,
			KeyPrefix: fl.String("redis_key_prefix"),
		})
		if err != nil {
			return nil, nil, err
		}
		return f, f, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache driver %q", driver)
	}
}

// stack is the wired upload subsystem for one command invocation.
type stack struct {
	settings upload.Settings
	store    objstore.Store
	issuer   *upload.Issuer
	manager  *upload.Manager
	closers  []io.Closer
}

func buildStack(ctx context.Context, fl *FlagLoader) (*stack, error) {
	settings, err := loadSettings(fl)
	if err != nil {
		return nil, err
	}

	store, err := openStore(ctx, fl, settings.Region)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	facility, closer, err := openCache(fl)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}

	alloc := upload.NewAllocator(facility, upload.WithMaxAttempts(settings.AllocateMaxAttempts))
	s := &stack{
		settings: settings,
		store:    store,
		issuer:   upload.NewIssuer(settings, store, alloc),
		manager:  upload.NewManager(settings, store, alloc),
		closers:  []io.Closer{closer},
	}

	logger.Debug().
		Str("bucket", settings.Bucket).
		Str("store", fl.String("store_driver")).
		Str("cache", fl.String("cache_driver")).
		Strs("mime_types", settings.MimeTypes).
		Str("max_size", humanize.IBytes(uint64(settings.MaxSize))).
		Dur("temp_retention", settings.TempRetention).
		Msg("Upload stack ready")
	return s, nil
}

func (s *stack) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// commandContext is cancelled on SIGINT/SIGTERM and, for one-shot
// commands, after the configured timeout.
func commandContext(d time.Duration) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	if d <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	return ctx, func() {
		cancel()
		stop()
	}
}
