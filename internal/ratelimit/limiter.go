// Package ratelimit implements fixed-window admission control. Requests
// are counted in discrete, non-overlapping windows; a window is replaced,
// never incremented, once its expiry has passed.
package ratelimit

import (
	"context"
	"time"
)

type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}
