package config

import (
	"context"
	"fmt"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ConnectRedis returns a lock client for the run guard. The caller closes
// the returned redis client.
func ConnectRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, *redislock.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		PoolSize: 10,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("connect redis %s: %w", cfg.Address, err)
	}
	return rdb, redislock.New(rdb), nil
}
