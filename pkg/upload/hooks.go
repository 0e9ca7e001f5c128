// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package upload

import (
	"context"
	"errors"
	"fmt"

	"github.com/LeeDigitalWorks/zapup/pkg/logger"
)

// Hooks adapt the lifecycle to code that persists documents referencing
// uploaded objects.
type Hooks struct {
	manager *Manager
}

func NewHooks(manager *Manager) *Hooks {
	return &Hooks{manager: manager}
}

// Finalize promotes the temporary keys referenced by doc[field] for each
// field and writes the permanent keys back into doc. A field may hold a
// string or a list of strings; other values and keys that are already
// permanent are left untouched. Call it before persisting doc.
func (h *Hooks) Finalize(ctx context.Context, doc map[string]any, fields ...string) error {
	settings := h.manager.settings
	promote := func(field string, v any) (any, error) {
		s, ok := v.(string)
		if !ok || settings.ParseKey(s).State != StateTemporary {
			return v, nil
		}
		key, err := h.manager.Promote(ctx, s)
		if err != nil {
			return nil, fmt.Errorf("finalize %s: %w", field, err)
		}
		return key, nil
	}

	for _, field := range fields {
		switch v := doc[field].(type) {
		case []any:
			for i, item := range v {
				next, err := promote(field, item)
				if err != nil {
					return err
				}
				v[i] = next
			}
		case []string:
			for i, item := range v {
				next, err := promote(field, item)
				if err != nil {
					return err
				}
				v[i] = next.(string)
			}
		default:
			next, err := promote(field, v)
			if err != nil {
				return err
			}
			if next != nil {
				doc[field] = next
			}
		}
	}
	return nil
}

// AfterDelete removes the objects a deleted document referenced. Objects
// already gone are logged and skipped; other failures are returned joined.
func (h *Hooks) AfterDelete(ctx context.Context, keys ...string) error {
	var errs []error
	for _, key := range keys {
		if key == "" {
			continue
		}
		err := h.manager.Remove(ctx, key)
		if errors.Is(err, ErrNotFound) {
			logger.Warn().Str("key", key).Msg("Object referenced by deleted document is already gone")
			continue
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
