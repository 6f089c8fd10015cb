// Package memory implements an in-memory cache with TTL support.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/hrbotdev/hrbot/internal/cache"
)

func init() {
	cache.Register("memory", func(opts map[string]any) (cache.Cache, error) {
		var o Options
		if err := cache.DecodeOptions(opts, &o); err != nil {
			return nil, err
		}
		defaultTTL := time.Duration(o.DefaultTTLSeconds) * time.Second
		if defaultTTL == 0 {
			defaultTTL = cache.TTLDedup
		}
		cleanup := time.Duration(o.CleanupIntervalSeconds) * time.Second
		return New(defaultTTL, cleanup), nil
	})
}

// Options are the memory driver's config options.
type Options struct {
	DefaultTTLSeconds      int `mapstructure:"default_ttl_seconds"`
	CleanupIntervalSeconds int `mapstructure:"cleanup_interval_seconds"`
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Store is an in-memory Cache implementation.
// Expired entries are dropped lazily on access and, when a cleanup
// interval is configured, by a background sweeper.
type Store struct {
	mu         sync.RWMutex
	entries    map[string]entry
	defaultTTL time.Duration
	done       chan struct{}
	closeOnce  sync.Once
}

// New creates a new in-memory cache. cleanupInterval of 0 disables the
// background sweeper (lazy expiration only).
func New(defaultTTL, cleanupInterval time.Duration) *Store {
	s := &Store{
		entries:    make(map[string]entry),
		defaultTTL: defaultTTL,
		done:       make(chan struct{}),
	}

	if cleanupInterval > 0 {
		go s.sweep(cleanupInterval)
	}

	return s
}

func (s *Store) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			s.mu.Lock()
			for key, e := range s.entries {
				if now.After(e.expiresAt) {
					delete(s.entries, key)
				}
			}
			s.mu.Unlock()
		}
	}
}

// Get retrieves a value by key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, cache.ErrNotFound
	}
	if time.Now().After(e.expiresAt) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, cache.ErrExpired
	}

	// Copy so callers cannot mutate the cached value.
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

// Set stores a value with the given TTL.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	stored := make([]byte, len(value))
	copy(stored, value)

	s.mu.Lock()
	s.entries[key] = entry{value: stored, expiresAt: time.Now().Add(ttl)}
	s.mu.Unlock()
	return nil
}

// Delete removes a key.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Exists checks if a key exists and is not expired.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return false, nil
	}
	if time.Now().After(e.expiresAt) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return false, nil
	}
	return true, nil
}

// Close stops the background sweeper.
func (s *Store) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}

var _ cache.Cache = (*Store)(nil)
