package verify

import (
	"context"
	"time"

	"github.com/go-redis/redis/v7"
)

// DefaultReplayWindow matches the timestamp skew Slack allows.
const DefaultReplayWindow = 5 * time.Minute

// ReplayGuard remembers signatures it has been shown.
type ReplayGuard interface {
	// Seen records sig and reports whether it had already been recorded.
	Seen(ctx context.Context, sig string) (bool, error)
}

// RedisReplayGuard keeps each signature in Redis for the replay window.
type RedisReplayGuard struct {
	client redis.Cmdable
	window time.Duration
	prefix string
}

// NewRedisReplayGuard returns a guard storing keys under "slack-sig:".
func NewRedisReplayGuard(client redis.Cmdable, window time.Duration) *RedisReplayGuard {
	if window <= 0 {
		window = DefaultReplayWindow
	}
	return &RedisReplayGuard{client: client, window: window, prefix: "slack-sig:"}
}

func (g *RedisReplayGuard) Seen(ctx context.Context, sig string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	set, err := g.client.SetNX(g.prefix+sig, time.Now().Unix(), g.window).Result()
	if err != nil {
		return false, err
	}
	return !set, nil
}
