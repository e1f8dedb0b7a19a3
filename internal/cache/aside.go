package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Aside implements the cache-aside pattern: try the cache, fall back to the
// loader, then populate. A broken or absent cache never fails the request.
// The loader must fill dest itself.
func Aside(ctx context.Context, key string, dest interface{}, ttl time.Duration, load func() error) error {
	if client != nil {
		raw, err := client.Get(ctx, key).Result()
		if err == nil {
			if jsonErr := json.Unmarshal([]byte(raw), dest); jsonErr == nil {
				return nil
			}
			// Corrupt entry: drop it and fall through to the loader.
			client.Del(ctx, key)
		} else if !errors.Is(err, redis.Nil) {
			// Redis trouble is already counted by the metrics hook; fall
			// through and serve from source.
			_ = err
		}
	}

	if err := load(); err != nil {
		return err
	}

	if client != nil {
		if data, jsonErr := json.Marshal(dest); jsonErr == nil {
			client.Set(ctx, key, data, ttl)
		}
	}
	return nil
}
