package indexing

import (
	"context"
	"time"

	"github.com/turtacn/chemindex/internal/domain/record"
	"github.com/turtacn/chemindex/internal/infrastructure/storage/minio"
	"github.com/turtacn/chemindex/pkg/types/common"
)

// RecordStore persists records, one index per kind.
type RecordStore interface {
	IndexName(kind record.Kind) (string, error)
	EnsureIndices(ctx context.Context, kinds ...record.Kind) error
	DropIndices(ctx context.Context, kinds ...record.Kind) error
	Save(ctx context.Context, r *record.Record) error
	SaveAll(ctx context.Context, kind record.Kind, records []*record.Record) (*common.BulkResult, error)
	Get(ctx context.Context, kind record.Kind, id string) (*record.Record, error)
	FindByHash(ctx context.Context, kind record.Kind, hashes []int64, after []interface{}, size int) (common.CursorPage[*record.Record], error)
	Count(ctx context.Context, kind record.Kind) (int64, error)
}

// RecordCache is a read-through cache in front of the store.
type RecordCache interface {
	Set(ctx context.Context, r *record.Record) error
	SetMany(ctx context.Context, records []*record.Record) error
	GetOrLoad(ctx context.Context, kind record.Kind, id string, load func(ctx context.Context) (*record.Record, error)) (*record.Record, bool, error)
	Flush(ctx context.Context, kind record.Kind) (int64, error)
}

// EventPublisher publishes domain events to a topic.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key, eventType string, payload interface{}) error
}

// IndexLock serializes index administration across processes.
type IndexLock interface {
	Lock(ctx context.Context) error
	Unlock(ctx context.Context) error
}

// SnapshotStore archives record exports.
type SnapshotStore interface {
	Upload(ctx context.Context, kind record.Kind, records []*record.Record) (*minio.SnapshotInfo, error)
	ReadRecords(ctx context.Context, kind record.Kind, key string, fn func(*record.Record) error) (int, error)
	List(ctx context.Context, kind record.Kind) ([]minio.SnapshotInfo, error)
}

// Metrics receives indexing observations.
type Metrics interface {
	ObserveBuild(kind string, d time.Duration, err error)
	ExtractionFailure(kind, step string)
	ObserveIndexOp(op string, d time.Duration, err error)
	DocumentsIndexed(kind string, indexed, failed int)
	CacheAccess(kind string, hit bool)
	EventPublished(topic string, err error)
	IngestMessage(err error)
}

type nopMetrics struct{}

func (nopMetrics) ObserveBuild(string, time.Duration, error)   {}
func (nopMetrics) ExtractionFailure(string, string)            {}
func (nopMetrics) ObserveIndexOp(string, time.Duration, error) {}
func (nopMetrics) DocumentsIndexed(string, int, int)           {}
func (nopMetrics) CacheAccess(string, bool)                    {}
func (nopMetrics) EventPublished(string, error)                {}
func (nopMetrics) IngestMessage(error)                         {}

//Personal.AI order the ending
