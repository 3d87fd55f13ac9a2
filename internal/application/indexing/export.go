package indexing

import (
	"context"

	"github.com/turtacn/chemindex/internal/domain/record"
	"github.com/turtacn/chemindex/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/chemindex/internal/infrastructure/storage/minio"
	"github.com/turtacn/chemindex/pkg/errors"
)

// RestoreReport summarizes Exporter.Restore.
type RestoreReport struct {
	Key     string `json:"key" yaml:"key"`
	Read    int    `json:"read" yaml:"read"`
	Indexed int    `json:"indexed" yaml:"indexed"`
	Failed  int    `json:"failed" yaml:"failed"`
}

// Exporter copies index contents to and from the snapshot store.
type Exporter struct {
	store     RecordStore
	snapshots SnapshotStore
	pageSize  int
	logger    logging.Logger
}

// NewExporter creates an exporter reading pageSize records per search page
// and restoring pageSize records per bulk request.
func NewExporter(store RecordStore, snapshots SnapshotStore, pageSize int, logger logging.Logger) *Exporter {
	if pageSize <= 0 {
		pageSize = 500
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Exporter{store: store, snapshots: snapshots, pageSize: pageSize, logger: logger.Named("exporter")}
}

// Export walks every record of kind whose structural hash contains all of
// hashes (every record when hashes is empty) and uploads them as one
// snapshot.
func (e *Exporter) Export(ctx context.Context, kind record.Kind, hashes []int64) (*minio.SnapshotInfo, error) {
	var (
		all   []*record.Record
		after []interface{}
	)
	for {
		page, err := e.store.FindByHash(ctx, kind, hashes, after, e.pageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Items...)
		if !page.HasMore() {
			break
		}
		after = page.Next
	}

	info, err := e.snapshots.Upload(ctx, kind, all)
	if err != nil {
		return nil, err
	}
	e.logger.Info("records exported",
		logging.String(logging.FieldKind, string(kind)),
		logging.String("key", info.Key),
		logging.Int("records", info.Records))
	return info, nil
}

// Restore indexes every record of the snapshot key into kind's index,
// keeping record ids.
func (e *Exporter) Restore(ctx context.Context, kind record.Kind, key string) (*RestoreReport, error) {
	report := &RestoreReport{Key: key}
	batch := make([]*record.Record, 0, e.pageSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		res, err := e.store.SaveAll(ctx, kind, batch)
		if err != nil {
			return err
		}
		report.Indexed += res.Indexed
		report.Failed += res.Failed
		batch = batch[:0]
		return nil
	}

	n, err := e.snapshots.ReadRecords(ctx, kind, key, func(r *record.Record) error {
		batch = append(batch, r)
		if len(batch) >= e.pageSize {
			return flush()
		}
		return nil
	})
	report.Read = n
	if err != nil {
		return report, err
	}
	if err := flush(); err != nil {
		return report, err
	}

	e.logger.Info("snapshot restored",
		logging.String(logging.FieldKind, string(kind)),
		logging.String("key", key),
		logging.Int("indexed", report.Indexed),
		logging.Int("failed", report.Failed))
	return report, nil
}

// Snapshots lists the stored snapshots of kind.
func (e *Exporter) Snapshots(ctx context.Context, kind record.Kind) ([]minio.SnapshotInfo, error) {
	if !kind.Valid() {
		return nil, errors.InvalidParam("unknown record kind").WithDetail("kind=" + string(kind))
	}
	return e.snapshots.List(ctx, kind)
}

//Personal.AI order the ending
