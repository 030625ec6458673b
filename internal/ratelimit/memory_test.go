package ratelimit

import (
	"context"
	"testing"
	"time"
)

func newTestMemory(limit int, period time.Duration) (*Memory, *time.Time) {
	m := NewMemory(limit, period)
	now := time.Now()
	m.now = func() time.Time { return now }
	return m, &now
}

func TestMemory_FixedWindow(t *testing.T) {
	m, _ := newTestMemory(5, time.Minute)
	defer m.Close()
	ctx := context.Background()

	var firstReset time.Time
	for i := 0; i < 5; i++ {
		res, err := m.Allow(ctx, "1.2.3.4")
		if err != nil {
			t.Fatalf("allow %d: %v", i, err)
		}
		if !res.Allowed {
			t.Fatalf("request %d denied, want allowed", i+1)
		}
		if i == 0 {
			firstReset = res.ResetAt
		}
	}

	res, err := m.Allow(ctx, "1.2.3.4")
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if res.Allowed {
		t.Fatalf("6th request allowed, want denied")
	}
	if !res.ResetAt.Equal(firstReset) {
		// deny must report the window's original expiry
		t.Fatalf("ResetAt = %v, want %v", res.ResetAt, firstReset)
	}
}

func TestMemory_WindowExpiryResetsCount(t *testing.T) {
	m, now := newTestMemory(2, time.Minute)
	defer m.Close()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if res, _ := m.Allow(ctx, "client"); !res.Allowed {
			t.Fatalf("request %d denied during first window", i+1)
		}
	}
	if res, _ := m.Allow(ctx, "client"); res.Allowed {
		t.Fatalf("over-limit request allowed")
	}

	*now = now.Add(time.Minute + time.Second)

	res, err := m.Allow(ctx, "client")
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if !res.Allowed {
		t.Fatalf("request after window expiry denied")
	}
	if res.Remaining != 1 {
		// count restarted at 1, so one of two remains
		t.Fatalf("Remaining = %d, want 1", res.Remaining)
	}
}

func TestMemory_KeysAreIndependent(t *testing.T) {
	m, _ := newTestMemory(1, time.Minute)
	defer m.Close()
	ctx := context.Background()

	if res, _ := m.Allow(ctx, "a"); !res.Allowed {
		t.Fatalf("first request for a denied")
	}
	if res, _ := m.Allow(ctx, "a"); res.Allowed {
		t.Fatalf("second request for a allowed")
	}
	if res, _ := m.Allow(ctx, "b"); !res.Allowed {
		t.Fatalf("first request for b denied")
	}
}

func TestMemory_SweepEvictsExpiredWindows(t *testing.T) {
	m, now := newTestMemory(5, time.Minute)
	defer m.Close()
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		if _, err := m.Allow(ctx, key); err != nil {
			t.Fatalf("allow %s: %v", key, err)
		}
	}

	*now = now.Add(2 * time.Minute)
	m.Allow(ctx, "d") // fresh window that must survive
	m.sweep()

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.windows) != 1 {
		t.Fatalf("windows after sweep = %d, want 1", len(m.windows))
	}
	if _, ok := m.windows["d"]; !ok {
		t.Fatalf("live window evicted")
	}
}
