package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count   int
	resetAt time.Time
}

// Memory is a single-process fixed-window limiter. Expired windows are
// evicted by a janitor so the map does not grow with the client set.
type Memory struct {
	limit  int
	period time.Duration

	mu      sync.Mutex
	windows map[string]*window

	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

func NewMemory(limit int, period time.Duration) *Memory {
	m := &Memory{
		limit:   limit,
		period:  period,
		windows: make(map[string]*window),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go m.janitor()
	return m
}

func (m *Memory) Allow(_ context.Context, key string) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	w, ok := m.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{count: 1, resetAt: now.Add(m.period)}
		m.windows[key] = w
		return Result{Allowed: true, Remaining: m.limit - 1, ResetAt: w.resetAt}, nil
	}

	if w.count >= m.limit {
		return Result{Allowed: false, Remaining: 0, ResetAt: w.resetAt}, nil
	}

	w.count++
	return Result{Allowed: true, Remaining: m.limit - w.count, ResetAt: w.resetAt}, nil
}

func (m *Memory) Close() {
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *Memory) janitor() {
	ticker := time.NewTicker(m.period)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *Memory) sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for key, w := range m.windows {
		if !now.Before(w.resetAt) {
			delete(m.windows, key)
		}
	}
}
