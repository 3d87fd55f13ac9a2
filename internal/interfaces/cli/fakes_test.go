package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/chemindex/internal/application/indexing"
	"github.com/turtacn/chemindex/internal/config"
	"github.com/turtacn/chemindex/internal/domain/record"
	"github.com/turtacn/chemindex/internal/domain/structure"
	"github.com/turtacn/chemindex/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/chemindex/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/chemindex/internal/infrastructure/storage/minio"
	httpapi "github.com/turtacn/chemindex/internal/interfaces/http"
	"github.com/turtacn/chemindex/internal/testutil/chemfake"
	"github.com/turtacn/chemindex/pkg/errors"
	"github.com/turtacn/chemindex/pkg/types/common"
)

func init() {
	chemfake.Register()
}

type mockService struct {
	mock.Mock
}

var _ indexing.Service = (*mockService)(nil)

func (m *mockService) Build(kind record.Kind, obj structure.Object, opts ...record.Option) (*record.Record, error) {
	args := m.Called(kind, obj)
	r, _ := args.Get(0).(*record.Record)
	return r, args.Error(1)
}

func (m *mockService) IndexStructure(ctx context.Context, kind record.Kind, obj structure.Object, opts ...record.Option) (*record.Record, error) {
	args := m.Called(ctx, kind, obj)
	r, _ := args.Get(0).(*record.Record)
	return r, args.Error(1)
}

// IngestBatch accepts either a report or a func computing one from the loaders.
func (m *mockService) IngestBatch(ctx context.Context, kind record.Kind, loaders []indexing.StructureLoader) (*indexing.BatchReport, error) {
	args := m.Called(ctx, kind, loaders)
	if fn, ok := args.Get(0).(func([]indexing.StructureLoader) *indexing.BatchReport); ok {
		return fn(loaders), args.Error(1)
	}
	r, _ := args.Get(0).(*indexing.BatchReport)
	return r, args.Error(1)
}

func (m *mockService) Get(ctx context.Context, kind record.Kind, id string) (*record.Record, error) {
	args := m.Called(ctx, kind, id)
	r, _ := args.Get(0).(*record.Record)
	return r, args.Error(1)
}

func (m *mockService) FindExact(ctx context.Context, kind record.Kind, obj structure.Object, size int) (common.CursorPage[*record.Record], error) {
	args := m.Called(ctx, kind, obj, size)
	return args.Get(0).(common.CursorPage[*record.Record]), args.Error(1)
}

func (m *mockService) Page(ctx context.Context, kind record.Kind, hashes []int64, after []interface{}, size int) (common.CursorPage[*record.Record], error) {
	args := m.Called(ctx, kind, hashes, after, size)
	return args.Get(0).(common.CursorPage[*record.Record]), args.Error(1)
}

func (m *mockService) Reconstruct(ctx context.Context, kind record.Kind, id string, session structure.Session) (structure.Object, error) {
	args := m.Called(ctx, kind, id, session)
	o, _ := args.Get(0).(structure.Object)
	return o, args.Error(1)
}

func (m *mockService) Count(ctx context.Context, kind record.Kind) (int64, error) {
	args := m.Called(ctx, kind)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockService) EnsureIndices(ctx context.Context, kinds ...record.Kind) error {
	return m.Called(ctx, kinds).Error(0)
}

func (m *mockService) DropIndices(ctx context.Context, kinds ...record.Kind) error {
	return m.Called(ctx, kinds).Error(0)
}

type fakeArchive struct {
	exported []int64
	info     *minio.SnapshotInfo
	report   *indexing.RestoreReport
	snaps    []minio.SnapshotInfo
	err      error
}

func (a *fakeArchive) Export(_ context.Context, _ record.Kind, hashes []int64) (*minio.SnapshotInfo, error) {
	a.exported = hashes
	return a.info, a.err
}

func (a *fakeArchive) Restore(_ context.Context, _ record.Kind, key string) (*indexing.RestoreReport, error) {
	if a.err != nil {
		return nil, a.err
	}
	r := *a.report
	r.Key = key
	return &r, nil
}

func (a *fakeArchive) Snapshots(context.Context, record.Kind) ([]minio.SnapshotInfo, error) {
	return a.snaps, a.err
}

// fakeBackend hands out fixed collaborators and records what was used.
type fakeBackend struct {
	svc     *mockService
	archive *fakeArchive
	cfg     *config.Config
	used    bool
	closed  bool
}

func (b *fakeBackend) Service() (indexing.Service, error) {
	b.used = true
	if b.svc == nil {
		return nil, errors.New(errors.ErrCodeServiceUnavailable, "no service")
	}
	return b.svc, nil
}

func (b *fakeBackend) Archive() (Archive, error) {
	b.used = true
	if b.archive == nil {
		return nil, errMinIODisabled
	}
	return b.archive, nil
}

func (b *fakeBackend) Server() (*httpapi.Server, error) {
	return nil, errors.New(errors.ErrCodeServiceUnavailable, "no server")
}

func (b *fakeBackend) Worker(context.Context) (*kafka.Consumer, error) {
	return nil, errKafkaDisabled
}

func (b *fakeBackend) Close() error {
	b.closed = true
	return nil
}

func contextWith(c *CLIContext) context.Context {
	return context.WithValue(context.Background(), cliContextKey{}, c)
}

// execute runs the root command against b and returns stdout.
// execute runs the root command against b with the in-memory toolkit
// configured through the environment.
func execute(t *testing.T, b *fakeBackend, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("CHEMINDEX_INGEST_TOOLKIT", chemfake.ToolkitName)
	return run(t, b, stdin, args...)
}

func run(t *testing.T, b *fakeBackend, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand(func(cfg *config.Config, _ logging.Logger) Backend {
		b.cfg = cfg
		return b
	})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func testRecord(t *testing.T, id, name string, hashes ...int64) *record.Record {
	t.Helper()
	m := map[string]interface{}{"record_id": id, "name": name, "has_error": 0}
	if len(hashes) > 0 {
		m["structural_hash"] = hashes
	}
	r, err := record.FromMapping(record.KindMolecule, m)
	require.NoError(t, err)
	return r
}

//Personal.AI order the ending
