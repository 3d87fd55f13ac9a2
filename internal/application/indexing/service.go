// Package indexing turns chemical structures into search records and keeps
// the search index, record cache and event stream in step.
package indexing

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/chemindex/internal/domain/record"
	"github.com/turtacn/chemindex/internal/domain/structure"
	"github.com/turtacn/chemindex/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/chemindex/pkg/errors"
	"github.com/turtacn/chemindex/pkg/types/common"
)

// Ingest error policies.
const (
	PolicyPropagate = "propagate"
	PolicySkip      = "skip"
	PolicyLog       = "log"
)

// EventRecordIndexed is the event type of RecordIndexedEvent.
const EventRecordIndexed = "record.indexed"

var ErrNoStructuralHash = errors.New(errors.ErrCodeValidation, "query structure has no structural hash")

// Config tunes the service.
type Config struct {
	// ErrorPolicy is one of propagate, skip or log.
	ErrorPolicy string
	Concurrency int
	EventsTopic string
}

// Service is the indexing use-case surface shared by the HTTP API, the CLI
// and the ingest worker.
type Service interface {
	Build(kind record.Kind, obj structure.Object, opts ...record.Option) (*record.Record, error)
	IndexStructure(ctx context.Context, kind record.Kind, obj structure.Object, opts ...record.Option) (*record.Record, error)
	IngestBatch(ctx context.Context, kind record.Kind, loaders []StructureLoader) (*BatchReport, error)
	Get(ctx context.Context, kind record.Kind, id string) (*record.Record, error)
	FindExact(ctx context.Context, kind record.Kind, obj structure.Object, size int) (common.CursorPage[*record.Record], error)
	Page(ctx context.Context, kind record.Kind, hashes []int64, after []interface{}, size int) (common.CursorPage[*record.Record], error)
	Reconstruct(ctx context.Context, kind record.Kind, id string, session structure.Session) (structure.Object, error)
	Count(ctx context.Context, kind record.Kind) (int64, error)
	EnsureIndices(ctx context.Context, kinds ...record.Kind) error
	DropIndices(ctx context.Context, kinds ...record.Kind) error
}

// StructureLoader produces the structure of one ingest unit. The object
// must not be shared with any other loader.
type StructureLoader func() (structure.Object, error)

// RecordIndexedEvent is published after a record reaches the index.
type RecordIndexedEvent struct {
	RecordID       string      `json:"record_id"`
	Kind           record.Kind `json:"kind"`
	Index          string      `json:"index"`
	Name           string      `json:"name,omitempty"`
	StructuralHash []int64     `json:"structural_hash,omitempty"`
	HasError       *bool       `json:"has_error,omitempty"`
	IndexedAt      time.Time   `json:"indexed_at"`
}

// ItemError describes one unit of a batch that did not reach the index.
type ItemError struct {
	Position int    `json:"position" yaml:"position"`
	RecordID string `json:"record_id,omitempty" yaml:"record_id,omitempty"`
	Step     string `json:"step,omitempty" yaml:"step,omitempty"`
	Code     string `json:"code" yaml:"code"`
	Message  string `json:"message" yaml:"message"`
}

// BatchReport summarizes IngestBatch.
type BatchReport struct {
	Kind    record.Kind   `json:"kind" yaml:"kind"`
	Total   int           `json:"total" yaml:"total"`
	Built   int           `json:"built" yaml:"built"`
	Indexed int           `json:"indexed" yaml:"indexed"`
	Failed  int           `json:"failed" yaml:"failed"`
	Errors  []ItemError   `json:"errors,omitempty" yaml:"errors,omitempty"`
	Took    time.Duration `json:"took" yaml:"took"`
}

// Option wires an optional collaborator.
type Option func(*serviceImpl)

// WithCache puts cache in front of record lookups.
func WithCache(cache RecordCache) Option {
	return func(s *serviceImpl) { s.cache = cache }
}

// WithPublisher publishes a RecordIndexedEvent for every indexed record.
func WithPublisher(p EventPublisher) Option {
	return func(s *serviceImpl) { s.publisher = p }
}

// WithMetrics records build, index and cache observations.
func WithMetrics(m Metrics) Option {
	return func(s *serviceImpl) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithIndexLock holds lock while indices are created or dropped.
func WithIndexLock(lock IndexLock) Option {
	return func(s *serviceImpl) { s.lock = lock }
}

type serviceImpl struct {
	store     RecordStore
	cache     RecordCache
	publisher EventPublisher
	metrics   Metrics
	lock      IndexLock
	cfg       Config
	logger    logging.Logger
	now       func() time.Time
}

// NewService creates the indexing service.
func NewService(store RecordStore, cfg Config, logger logging.Logger, opts ...Option) (Service, error) {
	if store == nil {
		return nil, errors.InvalidParam("record store is required")
	}
	if cfg.ErrorPolicy == "" {
		cfg.ErrorPolicy = PolicyPropagate
	}
	switch cfg.ErrorPolicy {
	case PolicyPropagate, PolicySkip, PolicyLog:
	default:
		return nil, errors.InvalidParam("unknown error policy").WithDetail("policy=" + cfg.ErrorPolicy)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	s := &serviceImpl{
		store:   store,
		metrics: nopMetrics{},
		cfg:     cfg,
		logger:  logger.Named("indexing"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// policy returns the construction policy for kind.
func (s *serviceImpl) policy(kind record.Kind) record.ErrorPolicy {
	switch s.cfg.ErrorPolicy {
	case PolicySkip:
		return record.Skip()
	case PolicyLog:
		return record.Custom(func(r *record.Record, err error) error {
			step := record.StepOf(err)
			s.metrics.ExtractionFailure(string(kind), string(step))
			s.logger.Warn("record extraction failed",
				logging.String(logging.FieldKind, string(kind)),
				logging.String(logging.FieldRecordID, r.ID()),
				logging.String(logging.FieldStep, string(step)),
				logging.ErrCode(err),
				logging.Err(err))
			return nil
		})
	default:
		return record.Propagate()
	}
}

func (s *serviceImpl) Build(kind record.Kind, obj structure.Object, opts ...record.Option) (*record.Record, error) {
	if obj == nil {
		return nil, errors.InvalidParam("structure is required")
	}
	opts = append([]record.Option{record.WithErrorPolicy(s.policy(kind))}, opts...)

	start := time.Now()
	r, err := record.New(kind, obj, opts...)
	s.metrics.ObserveBuild(string(kind), time.Since(start), err)
	if err != nil {
		if step := record.StepOf(err); step != "" && s.cfg.ErrorPolicy == PolicyPropagate {
			s.metrics.ExtractionFailure(string(kind), string(step))
		}
		return nil, err
	}
	return r, nil
}

func (s *serviceImpl) IndexStructure(ctx context.Context, kind record.Kind, obj structure.Object, opts ...record.Option) (*record.Record, error) {
	r, err := s.Build(kind, obj, opts...)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	err = s.store.Save(ctx, r)
	s.metrics.ObserveIndexOp("index", time.Since(start), err)
	if err != nil {
		s.metrics.DocumentsIndexed(string(kind), 0, 1)
		return nil, err
	}
	s.metrics.DocumentsIndexed(string(kind), 1, 0)

	if s.cache != nil {
		if err := s.cache.Set(ctx, r); err != nil {
			s.logger.Warn("failed to cache record",
				logging.String(logging.FieldRecordID, r.ID()), logging.Err(err))
		}
	}
	s.publish(ctx, r)

	s.logger.Debug("record indexed",
		logging.String(logging.FieldKind, string(kind)),
		logging.String(logging.FieldRecordID, r.ID()))
	return r, nil
}

func (s *serviceImpl) IngestBatch(ctx context.Context, kind record.Kind, loaders []StructureLoader) (*BatchReport, error) {
	if !kind.Valid() {
		return nil, errors.InvalidParam("unknown record kind").WithDetail("kind=" + string(kind))
	}
	start := time.Now()
	report := &BatchReport{Kind: kind, Total: len(loaders)}

	built := make([]*record.Record, len(loaders))
	failures := make([]error, len(loaders))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i, load := range loaders {
		i, load := i, load
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			obj, err := load()
			if err != nil {
				failures[i] = errors.Wrap(err, errors.ErrCodeStructureBackendFailure, "failed to load structure")
				return nil
			}
			r, err := s.Build(kind, obj)
			if err != nil {
				failures[i] = err
				return nil
			}
			built[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	records := make([]*record.Record, 0, len(loaders))
	positions := make(map[string]int, len(loaders))
	for i := range loaders {
		if failures[i] != nil {
			report.Errors = append(report.Errors, itemError(i, "", failures[i]))
			continue
		}
		records = append(records, built[i])
		positions[built[i].ID()] = i
	}
	report.Built = len(records)
	report.Failed = len(report.Errors)

	if len(records) > 0 {
		opStart := time.Now()
		res, err := s.store.SaveAll(ctx, kind, records)
		s.metrics.ObserveIndexOp("bulk", time.Since(opStart), err)
		if err != nil {
			report.Took = time.Since(start)
			return report, err
		}
		s.metrics.DocumentsIndexed(string(kind), res.Indexed, res.Failed)

		rejected := make(map[string]bool, len(res.Errors))
		for _, e := range res.Errors {
			if e.ID != "" {
				rejected[e.ID] = true
			}
			pos, ok := positions[e.ID]
			if !ok {
				pos = -1
			}
			report.Errors = append(report.Errors, ItemError{
				Position: pos,
				RecordID: e.ID,
				Code:     string(errors.ErrCodeIndexFailed),
				Message:  e.Type + ": " + e.Reason,
			})
		}
		report.Indexed = res.Indexed
		report.Failed += res.Failed

		indexed := make([]*record.Record, 0, len(records))
		for _, r := range records {
			if !rejected[r.ID()] {
				indexed = append(indexed, r)
			}
		}
		if len(rejected) < res.Failed {
			// A refused bulk batch reports no ids.
			indexed = nil
		}
		s.afterBulk(ctx, indexed)
	}

	sort.Slice(report.Errors, func(a, b int) bool { return report.Errors[a].Position < report.Errors[b].Position })
	report.Took = time.Since(start)
	s.logger.Info("batch ingested",
		logging.String(logging.FieldKind, string(kind)),
		logging.Int("total", report.Total),
		logging.Int("indexed", report.Indexed),
		logging.Int("failed", report.Failed),
		logging.Duration("took", report.Took))
	return report, nil
}

func (s *serviceImpl) afterBulk(ctx context.Context, indexed []*record.Record) {
	if len(indexed) == 0 {
		return
	}
	if s.cache != nil {
		if err := s.cache.SetMany(ctx, indexed); err != nil {
			s.logger.Warn("failed to cache batch", logging.Int("records", len(indexed)), logging.Err(err))
		}
	}
	for _, r := range indexed {
		s.publish(ctx, r)
	}
}

func itemError(pos int, id string, err error) ItemError {
	return ItemError{
		Position: pos,
		RecordID: id,
		Step:     string(record.StepOf(err)),
		Code:     string(errors.GetCode(err)),
		Message:  err.Error(),
	}
}

func (s *serviceImpl) publish(ctx context.Context, r *record.Record) {
	if s.publisher == nil || s.cfg.EventsTopic == "" {
		return
	}
	index, _ := s.store.IndexName(r.Kind())
	event := RecordIndexedEvent{
		RecordID:       r.ID(),
		Kind:           r.Kind(),
		Index:          index,
		Name:           r.Name,
		StructuralHash: r.StructuralHash,
		HasError:       r.HasError,
		IndexedAt:      s.now().UTC(),
	}
	err := s.publisher.PublishEvent(ctx, s.cfg.EventsTopic, r.ID(), EventRecordIndexed, event)
	s.metrics.EventPublished(s.cfg.EventsTopic, err)
	if err != nil {
		s.logger.Warn("failed to publish record event",
			logging.String(logging.FieldRecordID, r.ID()),
			logging.String(logging.FieldTopic, s.cfg.EventsTopic),
			logging.Err(err))
	}
}

func (s *serviceImpl) Get(ctx context.Context, kind record.Kind, id string) (*record.Record, error) {
	if id == "" {
		return nil, errors.InvalidParam("record id is required")
	}
	load := func(ctx context.Context) (*record.Record, error) {
		start := time.Now()
		r, err := s.store.Get(ctx, kind, id)
		opErr := err
		if errors.IsNotFound(err) {
			opErr = nil
		}
		s.metrics.ObserveIndexOp("get", time.Since(start), opErr)
		return r, err
	}
	if s.cache == nil {
		return load(ctx)
	}
	r, hit, err := s.cache.GetOrLoad(ctx, kind, id, load)
	s.metrics.CacheAccess(string(kind), hit)
	return r, err
}

func (s *serviceImpl) FindExact(ctx context.Context, kind record.Kind, obj structure.Object, size int) (common.CursorPage[*record.Record], error) {
	if obj == nil {
		return common.CursorPage[*record.Record]{}, errors.InvalidParam("structure is required")
	}
	q, err := record.New(kind, obj, record.WithSkipErrors())
	if err != nil {
		return common.CursorPage[*record.Record]{}, err
	}
	if len(q.StructuralHash) == 0 {
		return common.CursorPage[*record.Record]{}, ErrNoStructuralHash
	}
	return s.Page(ctx, kind, q.StructuralHash, nil, size)
}

func (s *serviceImpl) Page(ctx context.Context, kind record.Kind, hashes []int64, after []interface{}, size int) (common.CursorPage[*record.Record], error) {
	start := time.Now()
	page, err := s.store.FindByHash(ctx, kind, hashes, after, size)
	s.metrics.ObserveIndexOp("search", time.Since(start), err)
	return page, err
}

func (s *serviceImpl) Reconstruct(ctx context.Context, kind record.Kind, id string, session structure.Session) (structure.Object, error) {
	if session == nil {
		return nil, errors.InvalidParam("toolkit session is required")
	}
	r, err := s.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	return r.ToStructureObject(session)
}

func (s *serviceImpl) Count(ctx context.Context, kind record.Kind) (int64, error) {
	return s.store.Count(ctx, kind)
}

func (s *serviceImpl) EnsureIndices(ctx context.Context, kinds ...record.Kind) error {
	unlock, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer unlock()
	return s.store.EnsureIndices(ctx, kinds...)
}

func (s *serviceImpl) DropIndices(ctx context.Context, kinds ...record.Kind) error {
	unlock, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.store.DropIndices(ctx, kinds...); err != nil {
		return err
	}
	if s.cache == nil {
		return nil
	}
	if len(kinds) == 0 {
		kinds = record.Kinds()
	}
	for _, k := range kinds {
		n, err := s.cache.Flush(ctx, k)
		if err != nil {
			s.logger.Warn("failed to flush cache", logging.String(logging.FieldKind, string(k)), logging.Err(err))
			continue
		}
		s.logger.Info("cache flushed", logging.String(logging.FieldKind, string(k)), logging.Int64("keys", n))
	}
	return nil
}

func (s *serviceImpl) acquire(ctx context.Context) (func(), error) {
	if s.lock == nil {
		return func() {}, nil
	}
	if err := s.lock.Lock(ctx); err != nil {
		return nil, err
	}
	return func() {
		if err := s.lock.Unlock(context.Background()); err != nil {
			s.logger.Warn("failed to release index lock", logging.Err(err))
		}
	}, nil
}

//Personal.AI order the ending
