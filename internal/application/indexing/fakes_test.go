package indexing

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/turtacn/chemindex/internal/domain/record"
	"github.com/turtacn/chemindex/internal/infrastructure/storage/minio"
	"github.com/turtacn/chemindex/pkg/errors"
	"github.com/turtacn/chemindex/pkg/types/common"
)

// memStore is an in-memory RecordStore.
type memStore struct {
	mu      sync.Mutex
	docs    map[record.Kind]map[string]*record.Record
	saveErr error
	bulkErr error
	reject  map[string]bool // by record name
	ensured [][]record.Kind
	dropped [][]record.Kind
}

func newMemStore() *memStore {
	return &memStore{docs: map[record.Kind]map[string]*record.Record{}, reject: map[string]bool{}}
}

func (s *memStore) IndexName(kind record.Kind) (string, error) {
	if !kind.Valid() {
		return "", errors.InvalidParam("unknown record kind")
	}
	return "idx-" + string(kind), nil
}

func (s *memStore) EnsureIndices(_ context.Context, kinds ...record.Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensured = append(s.ensured, kinds)
	return nil
}

func (s *memStore) DropIndices(_ context.Context, kinds ...record.Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropped = append(s.dropped, kinds)
	return nil
}

func (s *memStore) put(r *record.Record) {
	if s.docs[r.Kind()] == nil {
		s.docs[r.Kind()] = map[string]*record.Record{}
	}
	s.docs[r.Kind()][r.ID()] = r
}

func (s *memStore) Save(_ context.Context, r *record.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.put(r)
	return nil
}

func (s *memStore) SaveAll(_ context.Context, kind record.Kind, records []*record.Record) (*common.BulkResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bulkErr != nil {
		return nil, s.bulkErr
	}
	res := &common.BulkResult{}
	for _, r := range records {
		if s.reject[r.Name] {
			res.Failed++
			res.Errors = append(res.Errors, common.BulkItemError{
				ID: r.ID(), Index: "idx-" + string(kind), Status: 400,
				Type: "mapper_parsing_exception", Reason: "bad field",
			})
			continue
		}
		s.put(r)
		res.Indexed++
	}
	return res, nil
}

func (s *memStore) Get(_ context.Context, kind record.Kind, id string) (*record.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.docs[kind][id]
	if !ok {
		return nil, record.ErrRecordNotFound.WithDetail("id=" + id)
	}
	return r, nil
}

func (s *memStore) FindByHash(_ context.Context, kind record.Kind, hashes []int64, after []interface{}, size int) (common.CursorPage[*record.Record], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matches []*record.Record
	for _, r := range s.docs[kind] {
		if containsAll(r.StructuralHash, hashes) {
			matches = append(matches, r)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID() < matches[j].ID() })

	page := common.CursorPage[*record.Record]{Total: int64(len(matches))}
	for _, r := range matches {
		if len(after) > 0 && r.ID() <= after[0].(string) {
			continue
		}
		if len(page.Items) == size {
			break
		}
		page.Items = append(page.Items, r)
	}
	if len(page.Items) == size && size > 0 {
		page.Next = []interface{}{page.Items[size-1].ID()}
	}
	return page, nil
}

func containsAll(have, want []int64) bool {
	set := make(map[int64]bool, len(have))
	for _, h := range have {
		set[h] = true
	}
	for _, w := range want {
		if !set[w] {
			return false
		}
	}
	return true
}

func (s *memStore) Count(_ context.Context, kind record.Kind) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.docs[kind])), nil
}

// memCache is an in-memory RecordCache.
type memCache struct {
	mu      sync.Mutex
	items   map[string]*record.Record
	setErr  error
	flushed []record.Kind
}

func newMemCache() *memCache {
	return &memCache{items: map[string]*record.Record{}}
}

func cacheKey(kind record.Kind, id string) string { return string(kind) + "/" + id }

func (c *memCache) Set(_ context.Context, r *record.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.items[cacheKey(r.Kind(), r.ID())] = r
	return nil
}

func (c *memCache) SetMany(ctx context.Context, records []*record.Record) error {
	for _, r := range records {
		if err := c.Set(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func (c *memCache) GetOrLoad(ctx context.Context, kind record.Kind, id string, load func(ctx context.Context) (*record.Record, error)) (*record.Record, bool, error) {
	c.mu.Lock()
	r, ok := c.items[cacheKey(kind, id)]
	c.mu.Unlock()
	if ok {
		return r, true, nil
	}
	r, err := load(ctx)
	if err != nil {
		return nil, false, err
	}
	_ = c.Set(ctx, r)
	return r, false, nil
}

func (c *memCache) Flush(_ context.Context, kind record.Kind) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flushed = append(c.flushed, kind)
	var n int64
	for k, r := range c.items {
		if r.Kind() == kind {
			delete(c.items, k)
			n++
		}
	}
	return n, nil
}

func (c *memCache) has(kind record.Kind, id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[cacheKey(kind, id)]
	return ok
}

// mockPublisher is a testify mock of EventPublisher.
type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishEvent(ctx context.Context, topic, key, eventType string, payload interface{}) error {
	return m.Called(ctx, topic, key, eventType, payload).Error(0)
}

// mockSnapshots is a testify mock of SnapshotStore.
type mockSnapshots struct {
	mock.Mock
}

func (m *mockSnapshots) Upload(ctx context.Context, kind record.Kind, records []*record.Record) (*minio.SnapshotInfo, error) {
	args := m.Called(ctx, kind, records)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*minio.SnapshotInfo), args.Error(1)
}

func (m *mockSnapshots) ReadRecords(ctx context.Context, kind record.Kind, key string, fn func(*record.Record) error) (int, error) {
	args := m.Called(ctx, kind, key, fn)
	return args.Int(0), args.Error(1)
}

func (m *mockSnapshots) List(ctx context.Context, kind record.Kind) ([]minio.SnapshotInfo, error) {
	args := m.Called(ctx, kind)
	return args.Get(0).([]minio.SnapshotInfo), args.Error(1)
}

// fakeLock counts lock calls.
type fakeLock struct {
	mu      sync.Mutex
	lockErr error
	locks   int
	unlocks int
}

func (l *fakeLock) Lock(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lockErr != nil {
		return l.lockErr
	}
	l.locks++
	return nil
}

func (l *fakeLock) Unlock(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.unlocks++
	return nil
}

// recordingMetrics keeps the observations it receives.
type recordingMetrics struct {
	mu          sync.Mutex
	builds      int
	failedSteps []string
	indexed     int
	rejected    int
	cacheHits   int
	cacheMisses int
	events      int
	ingested    int
	ingestErrs  int
}

func (m *recordingMetrics) ObserveBuild(string, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.builds++
}

func (m *recordingMetrics) ExtractionFailure(_, step string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failedSteps = append(m.failedSteps, step)
}

func (m *recordingMetrics) ObserveIndexOp(string, time.Duration, error) {}

func (m *recordingMetrics) DocumentsIndexed(_ string, indexed, failed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.indexed += indexed
	m.rejected += failed
}

func (m *recordingMetrics) CacheAccess(_ string, hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hit {
		m.cacheHits++
	} else {
		m.cacheMisses++
	}
}

func (m *recordingMetrics) EventPublished(string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events++
}

func (m *recordingMetrics) IngestMessage(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.ingestErrs++
	} else {
		m.ingested++
	}
}

//Personal.AI order the ending
