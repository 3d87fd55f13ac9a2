// Package local provides an in-process record cache for deployments that
// run without Redis.
package local

import (
	"context"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/turtacn/chemindex/internal/domain/record"
	"github.com/turtacn/chemindex/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/chemindex/pkg/errors"
)

// DefaultSize is the number of records kept when no size is given.
const DefaultSize = 1024

// RecordCache keeps encoded record documents in a bounded LRU. Entries are
// decoded on every read so callers never share a record.
type RecordCache struct {
	entries *lru.Cache[string, []byte]
	group   singleflight.Group
	logger  logging.Logger
}

// NewRecordCache creates a cache holding at most size records.
func NewRecordCache(size int, log logging.Logger) (*RecordCache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	entries, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "failed to create local cache")
	}
	return &RecordCache{entries: entries, logger: log.Named("local_cache")}, nil
}

func kindPrefix(kind record.Kind) string {
	return kind.String() + ":"
}

func key(kind record.Kind, id string) string {
	return kindPrefix(kind) + id
}

// Len returns the number of cached records.
func (c *RecordCache) Len() int {
	return c.entries.Len()
}

func (c *RecordCache) get(kind record.Kind, id string) (*record.Record, bool) {
	data, ok := c.entries.Get(key(kind, id))
	if !ok {
		return nil, false
	}
	r, err := record.FromDocument(kind, record.Document{ID: id, Source: data})
	if err != nil {
		c.entries.Remove(key(kind, id))
		return nil, false
	}
	return r, true
}

// Set caches r under its kind and id.
func (c *RecordCache) Set(_ context.Context, r *record.Record) error {
	data, err := r.MarshalJSON()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode record")
	}
	c.entries.Add(key(r.Kind(), r.ID()), data)
	return nil
}

// SetMany caches every record.
func (c *RecordCache) SetMany(ctx context.Context, records []*record.Record) error {
	for _, r := range records {
		if err := c.Set(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// GetOrLoad returns the cached record or calls load once per key across
// concurrent callers. The boolean reports a cache hit. Missing records are
// not remembered.
func (c *RecordCache) GetOrLoad(ctx context.Context, kind record.Kind, id string, load func(ctx context.Context) (*record.Record, error)) (*record.Record, bool, error) {
	if r, ok := c.get(kind, id); ok {
		return r, true, nil
	}
	v, err, _ := c.group.Do(key(kind, id), func() (interface{}, error) {
		loaded, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.Set(ctx, loaded); err != nil {
			c.logger.Warn("failed to fill cache",
				logging.String(logging.FieldRecordID, id),
				logging.Err(err))
		}
		return loaded, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*record.Record), false, nil
}

// Flush removes every cached record of kind and returns how many were
// removed.
func (c *RecordCache) Flush(_ context.Context, kind record.Kind) (int64, error) {
	prefix := kindPrefix(kind)
	var removed int64
	for _, k := range c.entries.Keys() {
		if strings.HasPrefix(k, prefix) && c.entries.Remove(k) {
			removed++
		}
	}
	return removed, nil
}

//Personal.AI order the ending
