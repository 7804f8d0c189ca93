package cache

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andresuchdata/stockopt/backend-go/internal/config"
)

const (
	defaultScenarioTTL = time.Hour
	redisPingTimeout   = 5 * time.Second
)

// dialRedis connects to the scenario cache and returns the client together
// with the TTL applied to cached runs.
func dialRedis(cfg config.CacheConfig) (*redis.Client, time.Duration, error) {
	opts, err := buildRedisOptions(cfg)
	if err != nil {
		return nil, 0, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, 0, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}

	return client, scenarioTTL(cfg.ScenarioTTLSeconds), nil
}

func scenarioTTL(seconds int) time.Duration {
	if seconds <= 0 {
		return defaultScenarioTTL
	}
	return time.Duration(seconds) * time.Second
}

// buildRedisOptions prefers a full URL and falls back to host, port and db.
func buildRedisOptions(cfg config.CacheConfig) (*redis.Options, error) {
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		return opt, nil
	}

	host, port := cfg.RedisHost, cfg.RedisPort
	if host == "" {
		host = "127.0.0.1"
	}
	if port == "" {
		port = "6379"
	}
	return &redis.Options{
		Addr:     net.JoinHostPort(host, port),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, nil
}

// keyScanner is the subset of the redis client used to drop cached runs.
type keyScanner interface {
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	Unlink(ctx context.Context, keys ...string) *redis.IntCmd
}

// unlinkPrefix walks the keyspace with SCAN and unlinks every key under
// prefix, one page at a time. It returns the number of keys removed.
func unlinkPrefix(ctx context.Context, rdb keyScanner, prefix string, pageSize int64) (int64, error) {
	var (
		cursor  uint64
		removed int64
	)
	match := prefix + ":*"
	for {
		keys, next, err := rdb.Scan(ctx, cursor, match, pageSize).Result()
		if err != nil {
			return removed, fmt.Errorf("scan %s: %w", match, err)
		}
		if len(keys) > 0 {
			n, err := rdb.Unlink(ctx, keys...).Result()
			if err != nil {
				return removed, fmt.Errorf("unlink %d keys: %w", len(keys), err)
			}
			removed += n
		}
		if next == 0 {
			return removed, nil
		}
		cursor = next
	}
}
