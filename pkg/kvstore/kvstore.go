package kvstore

import (
	"context"
	"errors"
	"fmt"
)

// ErrKeyNotFound is returned when a key has no stored value.
var ErrKeyNotFound = errors.New("kvstore: key not found")

// Store is a flat key-value persistence boundary. Each concern of the
// integrity core (entity collections, version map, lock map, audit log) is
// serialized as a single JSON document under its own namespaced key. Writes
// are atomic at single-key granularity; there are no multi-key transactions.
type Store interface {
	// Get unmarshals the value stored under key into dest.
	// Returns ErrKeyNotFound when the key is absent.
	Get(ctx context.Context, key string, dest interface{}) error
	// Set marshals value and stores it under key, replacing any prior value.
	Set(ctx context.Context, key string, value interface{}) error
	// Delete removes the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// Keys lists stored keys having the given prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Key builds a namespaced store key, e.g. Key("attendance", "versions").
func Key(namespace, concern string) string {
	if namespace == "" {
		return concern
	}
	return fmt.Sprintf("%s:%s", namespace, concern)
}
