package cache

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (hit bool, err error)
	SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// SiteKey holds a tenant's public landing page.
func SiteKey(login string) string { return "unistep:site:" + login }

// StatsKey holds a tenant's dashboard statistics.
func StatsKey(login string) string { return "unistep:stats:" + login }

// ReadThrough serves key from c, or calls load and stores its result. Cache
// errors are logged and never fail the call; a nil c always loads.
func ReadThrough[T any](ctx context.Context, c Cache, log logrus.FieldLogger, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	if c != nil {
		var cached T
		hit, err := c.GetJSON(ctx, key, &cached)
		if err != nil {
			log.WithError(err).WithField("key", key).Warn("cache read failed")
		}
		if hit {
			return cached, nil
		}
	}

	v, err := load(ctx)
	if err != nil {
		return v, err
	}

	if c != nil {
		if err := c.SetJSON(ctx, key, v, ttl); err != nil {
			log.WithError(err).WithField("key", key).Warn("cache write failed")
		}
	}
	return v, nil
}
