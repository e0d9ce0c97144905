package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var RedisClient *redis.Client

// InitRedis accepts REDIS_URL as a redis:// or rediss:// URL, or REDIS_ADDR
// as host:port with REDIS_PASSWORD and REDIS_DB alongside.
func InitRedis() error {
	opt, err := redisOptions()
	if err != nil {
		return err
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("redis ping %s: %w", opt.Addr, err)
	}

	RedisClient = client
	return nil
}

func redisOptions() (*redis.Options, error) {
	if url := os.Getenv("REDIS_URL"); url != "" {
		if !strings.HasPrefix(url, "redis://") && !strings.HasPrefix(url, "rediss://") {
			return nil, fmt.Errorf("REDIS_URL must start with redis:// or rediss://")
		}
		return redis.ParseURL(url)
	}

	db, err := intEnv("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}
	return &redis.Options{
		Addr:     getenv("REDIS_ADDR", "localhost:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       int(db),
	}, nil
}
