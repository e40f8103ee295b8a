package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

type redisNotifier struct {
	rdb     *goredis.Client
	channel string
	logger  *slog.Logger
}

// NewRedisNotifier publishes events on a single Redis pub/sub channel.
func NewRedisNotifier(addr, channel string, logger *slog.Logger) (Notifier, error) {
	if channel == "" {
		return nil, fmt.Errorf("redis channel required")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	logger.Info("realtime notifier initialized", "driver", "redis", "addr", addr, "channel", channel)
	return &redisNotifier{rdb: rdb, channel: channel, logger: logger}, nil
}

func (n *redisNotifier) Publish(ctx context.Context, event ChangeEvent) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}
	return n.rdb.Publish(ctx, n.channel, raw).Err()
}

func (n *redisNotifier) Close() error {
	return n.rdb.Close()
}
