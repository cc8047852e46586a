package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const captureKey = "followups:last_capture"

// RunGuard keeps a TTL marker for the last completed capture so a scheduler
// that double-fires does not scrape the dashboard twice in one window.
type RunGuard struct {
	client *redis.Client
}

func NewRunGuard(addr string) *RunGuard {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	return &RunGuard{client: rdb}
}

func (g *RunGuard) Ping(ctx context.Context) error {
	return g.client.Ping(ctx).Err()
}

// MarkCaptured records a completed run, expiring after ttl.
func (g *RunGuard) MarkCaptured(ctx context.Context, ttl time.Duration) error {
	return g.client.Set(ctx, captureKey, time.Now().UTC().Format(time.RFC3339), ttl).Err()
}

// RecentlyCaptured reports whether a run completed within the marker's TTL.
func (g *RunGuard) RecentlyCaptured(ctx context.Context) (bool, error) {
	val, err := g.client.Exists(ctx, captureKey).Result()
	if err != nil {
		return false, err
	}
	return val == 1, nil
}
