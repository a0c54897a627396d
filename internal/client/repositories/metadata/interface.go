// Package metadata persists small string values under well-known keys.
// The credential store keeps the bearer token and the display name here.
package metadata

import (
	"context"
)

// Repository is a durable string key/value map.
//
// Get returns ("", false, nil) when the key is absent.
type Repository interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, keys ...string) error
}
