package redis

import (
	"context"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/turtacn/chemindex/internal/domain/record"
	"github.com/turtacn/chemindex/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/chemindex/pkg/errors"
)

// ErrCacheMiss reports that no document is cached under the key.
var ErrCacheMiss = errors.New(errors.ErrCodeNotFound, "cache miss")

// nullMarker is cached for ids the loader reported as missing.
const nullMarker = "__null__"

// Loader fetches a record from the backing store on a cache miss.
type Loader = func(ctx context.Context) (*record.Record, error)

// RecordCache stores record index documents by kind and id.
type RecordCache struct {
	client  *Client
	logger  logging.Logger
	prefix  string
	ttl     time.Duration
	nullTTL time.Duration
	group   singleflight.Group
}

type CacheOption func(*RecordCache)

// WithPrefix sets the key prefix shared by all cache entries.
func WithPrefix(prefix string) CacheOption {
	return func(c *RecordCache) { c.prefix = prefix }
}

// WithTTL sets the lifetime of cached records. Each write adds up to 10%
// jitter in either direction.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *RecordCache) { c.ttl = ttl }
}

// WithNullTTL sets how long a missing record is remembered.
func WithNullTTL(ttl time.Duration) CacheOption {
	return func(c *RecordCache) { c.nullTTL = ttl }
}

// NewRecordCache creates a cache on client.
func NewRecordCache(client *Client, log logging.Logger, opts ...CacheOption) *RecordCache {
	if log == nil {
		log = logging.NewNopLogger()
	}
	c := &RecordCache{
		client:  client,
		logger:  log.Named("record_cache"),
		prefix:  "chemindex:",
		ttl:     10 * time.Minute,
		nullTTL: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key returns the cache key of the record of kind with id.
func (c *RecordCache) Key(kind record.Kind, id string) string {
	return c.prefix + "record:" + kind.String() + ":" + id
}

func (c *RecordCache) jitterTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	jitter := float64(ttl) * 0.1 * (rand.Float64()*2 - 1)
	return ttl + time.Duration(jitter)
}

// Get returns the cached record. It returns ErrCacheMiss when nothing is
// cached and record.ErrRecordNotFound when the id is remembered as missing.
func (c *RecordCache) Get(ctx context.Context, kind record.Kind, id string) (*record.Record, error) {
	data, err := c.client.Get(ctx, c.Key(kind, id)).Bytes()
	if err == redis.Nil {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "failed to get from cache")
	}
	if string(data) == nullMarker {
		return nil, record.ErrRecordNotFound.WithDetail("id=" + id)
	}
	return record.FromDocument(kind, record.Document{ID: id, Source: data})
}

// Set caches r under its kind and id.
func (c *RecordCache) Set(ctx context.Context, r *record.Record) error {
	data, err := r.MarshalJSON()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode record")
	}
	if err := c.client.Set(ctx, c.Key(r.Kind(), r.ID()), data, c.jitterTTL(c.ttl)).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to set cache")
	}
	return nil
}

// SetMany caches records in one pipeline.
func (c *RecordCache) SetMany(ctx context.Context, records []*record.Record) error {
	if len(records) == 0 {
		return nil
	}
	pipe := c.client.Pipeline()
	for _, r := range records {
		data, err := r.MarshalJSON()
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode record")
		}
		pipe.Set(ctx, c.Key(r.Kind(), r.ID()), data, c.jitterTTL(c.ttl))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to set cache batch")
	}
	return nil
}

// Invalidate drops the cached records of kind with the given ids.
func (c *RecordCache) Invalidate(ctx context.Context, kind record.Kind, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = c.Key(kind, id)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to invalidate cache")
	}
	return nil
}

// GetOrLoad returns the cached record or calls load once per key across
// concurrent callers and caches its result. The boolean reports a cache hit.
// A loader result of record.ErrRecordNotFound is remembered for the null TTL.
// Cache read and write failures are logged and fall through to load.
func (c *RecordCache) GetOrLoad(ctx context.Context, kind record.Kind, id string, load Loader) (*record.Record, bool, error) {
	r, err := c.Get(ctx, kind, id)
	switch {
	case err == nil:
		return r, true, nil
	case errors.IsCode(err, errors.ErrCodeRecordNotFound):
		return nil, true, err
	case err != ErrCacheMiss:
		c.logger.Warn("cache read failed",
			logging.String(logging.FieldKind, kind.String()),
			logging.String(logging.FieldRecordID, id),
			logging.Err(err))
	}

	key := c.Key(kind, id)
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		loaded, loadErr := load(ctx)
		if loadErr != nil {
			if errors.IsCode(loadErr, errors.ErrCodeRecordNotFound) {
				if setErr := c.client.Set(ctx, key, nullMarker, c.nullTTL).Err(); setErr != nil {
					c.logger.Warn("failed to cache missing record", logging.Err(setErr))
				}
			}
			return nil, loadErr
		}
		if setErr := c.Set(ctx, loaded); setErr != nil {
			c.logger.Warn("failed to fill cache",
				logging.String(logging.FieldRecordID, id),
				logging.Err(setErr))
		}
		return loaded, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*record.Record), false, nil
}

// Flush removes every cached record of kind and returns the number of keys
// deleted.
func (c *RecordCache) Flush(ctx context.Context, kind record.Kind) (int64, error) {
	var deleted int64
	var cursor uint64
	match := c.prefix + "record:" + kind.String() + ":*"
	for {
		keys, next, err := c.client.Scan(ctx, cursor, match, 100).Result()
		if err != nil {
			return deleted, errors.Wrap(err, errors.ErrCodeCacheError, "failed to scan cache")
		}
		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, errors.Wrap(err, errors.ErrCodeCacheError, "failed to flush cache")
			}
			deleted += n
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return deleted, nil
}

//Personal.AI order the ending
