package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/emr/emr/internal/platform/metrics"
)

// Cache stores small serialized read models (hospital settings, dashboard
// stats). A miss is not an error.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Remember returns the cached value for key or computes, stores and returns
// it. Cache failures are logged and fall through to load.
func Remember[T any](ctx context.Context, c Cache, log zerolog.Logger, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	label, _, _ := strings.Cut(key, ":")

	if data, ok, err := c.Get(ctx, key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache get failed")
	} else if ok {
		var v T
		if err := json.Unmarshal(data, &v); err == nil {
			metrics.RecordCacheLookup(label, true)
			return v, nil
		}
		log.Warn().Str("key", key).Msg("discarding undecodable cache entry")
	}
	metrics.RecordCacheLookup(label, false)

	v, err := load(ctx)
	if err != nil {
		return v, err
	}

	data, err := json.Marshal(v)
	if err != nil {
		return v, fmt.Errorf("encode cache entry %s: %w", key, err)
	}
	if err := c.Set(ctx, key, data, ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
	return v, nil
}

// Invalidate deletes keys and logs, rather than returns, a failure.
func Invalidate(ctx context.Context, c Cache, log zerolog.Logger, keys ...string) {
	if err := c.Delete(ctx, keys...); err != nil {
		log.Warn().Err(err).Strs("keys", keys).Msg("cache invalidate failed")
	}
}
