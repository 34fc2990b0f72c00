// Package cache provides the Redis report cache and PostgreSQL
// LISTEN/NOTIFY driven invalidation.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"ledgertree/pkg/logger"
)

const (
	keyPrefix      = "ledgertree"
	versionKey     = "ledgertree:reports:version"
	bumpChannel    = "ledgertree:reports:bump"
	DefaultTTL     = 10 * time.Minute
	maxKeyReadable = 2
)

// ReportCache stores finished reports in Redis as zstd-compressed JSON.
// Keys embed a global version; Bump makes every existing entry unreachable.
// A nil *ReportCache is valid and calls loaders directly.
type ReportCache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
	enc    *zstd.Encoder
	dec    *zstd.Decoder
}

// NewReportCache creates the cache. ttl <= 0 uses DefaultTTL.
func NewReportCache(client *redis.Client, ttl time.Duration) (*ReportCache, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	return &ReportCache{client: client, ttl: ttl, enc: enc, dec: dec}, nil
}

// Close releases the compression state. The Redis client is not closed.
func (c *ReportCache) Close() {
	if c == nil {
		return
	}
	_ = c.enc.Close()
	c.dec.Close()
}

// Version returns the current cache version, initialising when missing.
func (c *ReportCache) Version(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, versionKey).Int64()
	if errors.Is(err, redis.Nil) {
		// Another process may initialise concurrently; keep whichever won.
		if err := c.client.SetNX(ctx, versionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, versionKey).Int64()
	}
	if err != nil {
		return 0, err
	}
	if ver <= 0 {
		if err := c.client.Set(ctx, versionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		ver = 1
	}
	return ver, nil
}

// BuildKey composes a versioned key. The first parts stay readable, the
// full part list is hashed so arbitrary filter values are safe.
func (c *ReportCache) BuildKey(ctx context.Context, parts ...string) (string, error) {
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	readable := parts
	if len(readable) > maxKeyReadable {
		readable = readable[:maxKeyReadable]
	}
	segs := append([]string{keyPrefix}, readable...)
	segs = append(segs, "v"+strconv.FormatInt(ver, 10), hex.EncodeToString(sum[:12]))
	return strings.Join(segs, ":"), nil
}

// FetchJSON loads a cached value into dest or populates it using the
// loader. Concurrent misses on the same key share one loader call.
// Failing to store a computed value is logged, not returned.
func (c *ReportCache) FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("cache: loader required")
	}
	if c == nil || c.client == nil {
		value, err := loader(ctx)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, dest)
	}

	payload, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		raw, decErr := c.dec.DecodeAll(payload, nil)
		if decErr == nil {
			return json.Unmarshal(raw, dest)
		}
		logger.Warn(ctx, "discarding unreadable cache entry", "key", key, "error", decErr)
	case !errors.Is(err, redis.Nil):
		return err
	}

	v, err, shared := c.group.Do(key, func() (any, error) {
		value, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		if err := c.client.Set(ctx, key, c.enc.EncodeAll(raw, nil), c.ttl).Err(); err != nil {
			logger.Warn(ctx, "report cache write failed", "key", key, "error", err)
		}
		return raw, nil
	})
	if err != nil {
		return err
	}
	if shared {
		logger.Debug(ctx, "report computation shared", "key", key)
	}
	return json.Unmarshal(v.([]byte), dest)
}

// Bump invalidates every cached report by incrementing the version and
// publishing it.
func (c *ReportCache) Bump(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Incr(ctx, versionKey).Result()
	if err != nil {
		return 0, err
	}
	if err := c.client.Publish(ctx, bumpChannel, strconv.FormatInt(ver, 10)).Err(); err != nil {
		return ver, err
	}
	return ver, nil
}

// Ping checks the Redis connection.
func (c *ReportCache) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}
