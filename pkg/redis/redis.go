package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Alijeyrad/carevisit_backend/config"
)

// Options maps central config to client options, filling in pool and timeout
// defaults.
func Options(c config.RedisConfig) *goredis.Options {
	return &goredis.Options{
		Addr:         c.Addr,
		Username:     c.Username,
		Password:     c.Password,
		DB:           c.DB,
		PoolSize:     orDefault(c.PoolSize, 10),
		MinIdleConns: orDefault(c.MinIdleConns, 2),
		DialTimeout:  seconds(c.DialTimeoutSeconds, 5),
		ReadTimeout:  seconds(c.ReadTimeoutSeconds, 3),
		WriteTimeout: seconds(c.WriteTimeoutSeconds, 3),
	}
}

// NewRedisFromCentral connects and pings.
func NewRedisFromCentral(c config.RedisConfig) (*goredis.Client, error) {
	if c.Addr == "" {
		return nil, fmt.Errorf("redis addr is empty")
	}

	rdb := goredis.NewClient(Options(c))

	ctx, cancel := context.WithTimeout(context.Background(), seconds(c.DialTimeoutSeconds, 5))
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func seconds(v, def int) time.Duration {
	return time.Duration(orDefault(v, def)) * time.Second
}
