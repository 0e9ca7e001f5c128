// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package upload

import "errors"

// Error taxonomy. Every error returned by this package wraps exactly one
// of these, together with the underlying cause when there is one.
var (
	// ErrValidation reports a disallowed mime type or inconsistent settings.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound reports an object absent on stat, remove or promote.
	ErrNotFound = errors.New("object not found")
	// ErrNotTemporary reports a promote on a key outside the temporary prefix.
	ErrNotTemporary = errors.New("object is not temporary")
	// ErrAllocationExhausted reports the allocator ran out of attempts.
	// It is transient; retrying the whole request is safe.
	ErrAllocationExhausted = errors.New("key allocation exhausted")
	// ErrBackend wraps unexpected store or cache failures. Not retried here.
	ErrBackend = errors.New("backend failure")
)
