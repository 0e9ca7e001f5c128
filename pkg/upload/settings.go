// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package upload

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Settings is the immutable upload policy shared by the issuer and the
// lifecycle manager.
type Settings struct {
	Bucket string
	Region string

	MimeTypes   []string
	MinSize     int64
	MaxSize     int64
	TokenExpiry time.Duration

	TempPrefix string
	// StoragePrefix is prepended to every allocated key unless
	// PrefixFromMime is set, in which case "<major>/" is used instead.
	StoragePrefix  string
	PrefixFromMime bool

	TempRetention time.Duration

	// PostURL, when set, replaces the upload URL returned by the store
	// with "<PostURL>/<Bucket>".
	PostURL string

	AllocateMaxAttempts int
	SweepConcurrency    int
	// SweepRateLimit caps sweep deletes per second. Zero means unlimited.
	SweepRateLimit float64
}

func DefaultSettings() Settings {
	return Settings{
		Region:              "us-east-1",
		MimeTypes:           []string{"image/jpeg", "image/png", "image/gif"},
		MinSize:             1024,
		MaxSize:             4 << 20,
		TokenExpiry:         5 * time.Minute,
		TempPrefix:          "tmp/",
		TempRetention:       2 * time.Hour,
		AllocateMaxAttempts: 10,
		SweepConcurrency:    8,
	}
}

// Validate rejects settings that cannot produce a working policy.
func (s Settings) Validate() error {
	switch {
	case s.Bucket == "":
		return fmt.Errorf("%w: bucket is required", ErrValidation)
	case s.MinSize < 0:
		return fmt.Errorf("%w: min size %d is negative", ErrValidation, s.MinSize)
	case s.MinSize > s.MaxSize:
		return fmt.Errorf("%w: min size %d exceeds max size %d", ErrValidation, s.MinSize, s.MaxSize)
	case len(s.MimeTypes) == 0:
		return fmt.Errorf("%w: mime whitelist is empty", ErrValidation)
	case s.TokenExpiry <= 0:
		return fmt.Errorf("%w: token expiry must be positive", ErrValidation)
	case s.TempRetention <= 0:
		return fmt.Errorf("%w: temp retention must be positive", ErrValidation)
	case s.TempPrefix == "":
		return fmt.Errorf("%w: temp prefix is required", ErrValidation)
	case s.PrefixFromMime && s.StoragePrefix != "":
		return fmt.Errorf("%w: storage prefix and mime-derived prefix are exclusive", ErrValidation)
	}
	return nil
}

// Allows reports whether mimeType is whitelisted. Matching ignores case
// and mime parameters.
func (s Settings) Allows(mimeType string) bool {
	want := normalizeMime(mimeType)
	return slices.ContainsFunc(s.MimeTypes, func(m string) bool {
		return normalizeMime(m) == want
	})
}

func (s Settings) storagePrefix(mimeType string) string {
	if !s.PrefixFromMime {
		return s.StoragePrefix
	}
	major, _, _ := strings.Cut(normalizeMime(mimeType), "/")
	return major + "/"
}

func normalizeMime(mimeType string) string {
	mimeType, _, _ = strings.Cut(mimeType, ";")
	return strings.ToLower(strings.TrimSpace(mimeType))
}

// State is the lifecycle state encoded in an object key.
type State int

const (
	StatePermanent State = iota
	StateTemporary
)

func (s State) String() string {
	if s == StateTemporary {
		return "temporary"
	}
	return "permanent"
}

// ObjectKey is a parsed key. Permanent is the key the object has, or will
// have after promotion.
type ObjectKey struct {
	Raw       string
	State     State
	Permanent string
}

// ParseKey classifies key against the temporary prefix.
func (s Settings) ParseKey(key string) ObjectKey {
	if rest, ok := strings.CutPrefix(key, s.TempPrefix); ok {
		return ObjectKey{Raw: key, State: StateTemporary, Permanent: rest}
	}
	return ObjectKey{Raw: key, State: StatePermanent, Permanent: key}
}

// TempKey returns the temporary path for a permanent key.
func (s Settings) TempKey(permanent string) string {
	return s.TempPrefix + permanent
}
