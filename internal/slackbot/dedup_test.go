package slackbot

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/hrbotdev/hrbot/internal/cache/memory"
)

func slackTS(t time.Time) string {
	return fmt.Sprintf("%d.%06d", t.Unix(), t.Nanosecond()/1000)
}

func newTestDedup(t *testing.T, window time.Duration) *DedupStore {
	t.Helper()
	c := memory.New(window, 0)
	t.Cleanup(func() { c.Close() })
	return NewDedupStore(c, window, slog.New(slog.DiscardHandler))
}

func TestDedupStore_FirstSeenThenDuplicate(t *testing.T) {
	d := newTestDedup(t, time.Minute)
	ts := slackTS(time.Now())

	seen, err := d.Seen(context.Background(), "app_mention", ts, "U123")
	if err != nil {
		t.Fatalf("Seen failed: %v", err)
	}
	if seen {
		t.Error("first delivery flagged as duplicate")
	}

	seen, err = d.Seen(context.Background(), "app_mention", ts, "U123")
	if err != nil {
		t.Fatalf("Seen failed: %v", err)
	}
	if !seen {
		t.Error("retry not flagged as duplicate")
	}
}

func TestDedupStore_KeyComponentsDistinguish(t *testing.T) {
	d := newTestDedup(t, time.Minute)
	ts := slackTS(time.Now())

	if _, err := d.Seen(context.Background(), "app_mention", ts, "U123"); err != nil {
		t.Fatal(err)
	}

	cases := []struct{ typ, eventTS, user string }{
		{"message", ts, "U123"},
		{"app_mention", slackTS(time.Now().Add(time.Second)), "U123"},
		{"app_mention", ts, "U456"},
	}
	for _, tc := range cases {
		seen, err := d.Seen(context.Background(), tc.typ, tc.eventTS, tc.user)
		if err != nil {
			t.Fatal(err)
		}
		if seen {
			t.Errorf("distinct event %v flagged as duplicate", tc)
		}
	}
}

func TestDedupStore_MissingFieldsNeverDuplicate(t *testing.T) {
	d := newTestDedup(t, time.Minute)

	for range 2 {
		seen, err := d.Seen(context.Background(), "app_mention", "", "U123")
		if err != nil {
			t.Fatal(err)
		}
		if seen {
			t.Error("event without timestamp flagged as duplicate")
		}
	}

	if seen, _ := d.Seen(context.Background(), "", "123.000", "U123"); seen {
		t.Error("event without type flagged as duplicate")
	}
	if seen, _ := d.Seen(context.Background(), "message", "123.000", ""); seen {
		t.Error("event without user flagged as duplicate")
	}
}

func TestDedupStore_StaleEventOutsideWindow(t *testing.T) {
	d := newTestDedup(t, time.Minute)
	stale := slackTS(time.Now().Add(-2 * time.Minute))

	for range 2 {
		seen, err := d.Seen(context.Background(), "app_mention", stale, "U123")
		if err != nil {
			t.Fatal(err)
		}
		if seen {
			t.Error("event older than the window flagged as duplicate")
		}
	}
}

func TestDedupStore_EntryExpiresWithWindowRemainder(t *testing.T) {
	c := memory.New(time.Minute, 0)
	defer c.Close()
	d := NewDedupStore(c, 200*time.Millisecond, slog.New(slog.DiscardHandler))

	// Aged 150ms into a 200ms window: the entry should live ~50ms, not a
	// full window.
	ts := slackTS(time.Now().Add(-150 * time.Millisecond))

	if seen, _ := d.Seen(context.Background(), "message", ts, "U123"); seen {
		t.Fatal("first delivery flagged as duplicate")
	}

	time.Sleep(100 * time.Millisecond)

	exists, err := c.Exists(context.Background(), "message_"+ts+"_U123")
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Error("entry outlived the dedup window")
	}
}
