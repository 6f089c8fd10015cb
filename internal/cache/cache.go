// Package cache provides TTL-based key-value storage used for webhook
// event deduplication.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"
)

var (
	ErrNotFound = errors.New("key not found")
	ErrExpired  = errors.New("key expired")
)

// Cache provides TTL-based key-value storage.
type Cache interface {
	// Get retrieves a value by key. Returns ErrNotFound if not present.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with the given TTL. If TTL is 0, use default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key.
	Delete(ctx context.Context, key string) error

	// Exists checks if a key exists and is not expired.
	Exists(ctx context.Context, key string) (bool, error)

	// Close releases resources.
	Close() error
}

// TTLDedup is the retention window for webhook event deduplication.
const TTLDedup = 5 * time.Minute

// Factory creates a cache from decoded driver options.
type Factory func(opts map[string]any) (Cache, error)

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]Factory)
)

// Register registers a cache driver factory by name.
// This is typically called from init() in driver packages.
func Register(name string, factory Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = factory
}

// NewFromConfig creates a cache for the named driver, passing it the
// matching options from the [cache.drivers.<driver>] config section.
func NewFromConfig(driver string, driverOpts map[string]any) (Cache, error) {
	factoriesMu.RLock()
	factory, ok := factories[driver]
	factoriesMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown cache driver: %s", driver)
	}

	var opts map[string]any
	if driverOpts != nil {
		if raw, ok := driverOpts[driver]; ok {
			if err := mapstructure.Decode(raw, &opts); err != nil {
				return nil, fmt.Errorf("invalid options for cache driver %s: %w", driver, err)
			}
		}
	}

	return factory(opts)
}

// DecodeOptions decodes raw driver options into a typed options struct.
// Driver packages use this to interpret their config section.
func DecodeOptions(opts map[string]any, out any) error {
	if opts == nil {
		return nil
	}
	return mapstructure.Decode(opts, out)
}
