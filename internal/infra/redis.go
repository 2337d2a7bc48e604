package infra

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisConnectTimeout bounds both the dial and the startup ping; a lock
// backend that is slow to answer is treated as down.
const redisConnectTimeout = 3 * time.Second

// NewRedis creates the client backing the per-negocio caja locks and the
// health probe. Connectivity is validated at startup so a misconfigured URL
// fails the boot instead of the first abrir request.
func NewRedis(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	opts.DialTimeout = redisConnectTimeout
	opts.MinIdleConns = 2

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), redisConnectTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}
