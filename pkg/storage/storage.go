// Package storage is the device-local persistence boundary. The web storefront
// kept this state in browser storage; here it is a narrow namespaced KV port
// with embedded and shared backends behind it.
package storage

import (
	"context"
	"errors"
	"strings"
)

const keyNamespace = "lh"

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("storage: key not found")

// Store is the minimal surface every backend provides. Writes are
// last-write-wins when the backend is shared between processes.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	Close() error
}

// Key joins the parts under the shared namespace, skipping empty segments.
func Key(parts ...string) string {
	clean := []string{keyNamespace}
	for _, part := range parts {
		if part == "" {
			continue
		}
		clean = append(clean, strings.TrimSpace(part))
	}
	return strings.Join(clean, ":")
}
