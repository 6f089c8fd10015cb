// Package slackbot receives Slack event callbacks, filters and
// deduplicates them, and relays questions to the leave assistant.
package slackbot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/hrbotdev/hrbot/internal/cache"
)

// DedupStore tracks recently processed Slack events so retried webhook
// deliveries are acknowledged without reprocessing. Events are keyed by
// type, event timestamp, and user; entries expire with the remainder of
// the dedup window so an event older than the window is never held.
type DedupStore struct {
	cache  cache.Cache
	window time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewDedupStore creates a DedupStore with the given retention window.
// A window of 0 uses cache.TTLDedup.
func NewDedupStore(c cache.Cache, window time.Duration, logger *slog.Logger) *DedupStore {
	if window <= 0 {
		window = cache.TTLDedup
	}
	return &DedupStore{
		cache:  c,
		window: window,
		logger: logger,
		now:    time.Now,
	}
}

// Seen reports whether this event was already processed within the
// window, recording it if not. Events missing any key component, or
// whose timestamp already fell out of the window, are never treated as
// duplicates and are not recorded.
func (d *DedupStore) Seen(ctx context.Context, eventType, eventTS, userID string) (bool, error) {
	if eventType == "" || eventTS == "" || userID == "" {
		return false, nil
	}

	remaining := d.window
	// Slack timestamps are "seconds.microseconds" since epoch.
	if secs, err := strconv.ParseFloat(eventTS, 64); err == nil {
		age := d.now().Sub(time.Unix(0, int64(secs*float64(time.Second))))
		if age >= d.window {
			return false, nil
		}
		if age > 0 {
			remaining = d.window - age
		}
	}

	key := fmt.Sprintf("%s_%s_%s", eventType, eventTS, userID)
	exists, err := d.cache.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("dedup lookup: %w", err)
	}
	if exists {
		d.logger.Debug("duplicate slack event", "key", key)
		return true, nil
	}

	if err := d.cache.Set(ctx, key, []byte("1"), remaining); err != nil {
		return false, fmt.Errorf("dedup record: %w", err)
	}
	return false, nil
}
