// Package blob stores attachment bytes under random keys in S3 or a local
// directory.
package blob

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ALT-F4-LLC/trackmove/internal/config"
)

// ErrNotFound is returned by Get for unknown keys.
var ErrNotFound = errors.New("blob not found")

// Store puts and gets opaque objects.
type Store interface {
	// Put stores body under a new random key and returns the key.
	Put(ctx context.Context, body []byte, contentType string) (string, error)
	// Get returns the bytes stored under key.
	Get(ctx context.Context, key string) ([]byte, error)
}

// NewKey returns a fresh collision-resistant object key.
func NewKey() string {
	return uuid.NewString()
}

// Open returns the store selected by cfg.Backend.
func Open(ctx context.Context, cfg config.Blob) (Store, error) {
	switch cfg.Backend {
	case config.BackendS3:
		return NewS3Store(ctx, cfg)
	case config.BackendFS:
		return NewFSStore(cfg.Dir)
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.Backend)
	}
}
