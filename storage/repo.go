// Package storage is the durable, on-device mirror of the session: a flat
// string-keyed, string-valued store. Structured values are stored as JSON.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
)

// Repo defines the interface for durable key/value storage.
// Implementations must be safe for concurrent use and must make a completed
// Set or Remove visible to the next Get.
type Repo interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Remove deletes keys. Missing keys are not an error.
	Remove(ctx context.Context, keys ...string) error
}

// SetJSON stores v under key as JSON.
func SetJSON(ctx context.Context, r Repo, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("[SetJSON] %s: %w", key, err)
	}
	return r.Set(ctx, key, string(b))
}
