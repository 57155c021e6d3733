// Package storage provides the persistent key-value stores that back the
// feed cache and the saved-feed list.
package storage

import (
	"context"
	"errors"
)

var (
	ErrNotFound      = errors.New("key not found")
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// Store is a string key-value store. Get returns ErrNotFound for absent keys
// and Set returns ErrQuotaExceeded when a value does not fit.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}
