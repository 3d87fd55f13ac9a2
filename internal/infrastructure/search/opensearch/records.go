package opensearch

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/turtacn/chemindex/internal/domain/record"
	"github.com/turtacn/chemindex/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/chemindex/pkg/errors"
	"github.com/turtacn/chemindex/pkg/types/common"
)

// recordSort orders hits by record_id so search_after walks are stable.
var recordSort = []map[string]interface{}{
	{record.FieldRecordID: map[string]interface{}{"order": "asc"}},
}

// RecordStore reads and writes records, one index per record kind.
type RecordStore struct {
	indexer  *Indexer
	searcher *Searcher
	indices  map[record.Kind]string
	mapping  MappingOptions
	logger   logging.Logger
}

// NewRecordStore binds every record kind to its index. indices is keyed by
// kind name and must name an index for each kind.
func NewRecordStore(indexer *Indexer, searcher *Searcher, indices map[string]string, mapping MappingOptions, logger logging.Logger) (*RecordStore, error) {
	bound := make(map[record.Kind]string, len(indices))
	for _, kind := range record.Kinds() {
		name := indices[kind.String()]
		if name == "" {
			return nil, errors.New(errors.ErrCodeConfigInvalid, "no index configured for record kind").
				WithDetail("kind=" + kind.String())
		}
		bound[kind] = name
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &RecordStore{
		indexer:  indexer,
		searcher: searcher,
		indices:  bound,
		mapping:  mapping,
		logger:   logger.Named("records"),
	}, nil
}

// IndexName returns the index holding records of kind.
func (s *RecordStore) IndexName(kind record.Kind) (string, error) {
	name, ok := s.indices[kind]
	if !ok {
		return "", errors.InvalidParam("unknown record kind").WithDetail("kind=" + kind.String())
	}
	return name, nil
}

// EnsureIndices creates the indices of kinds (all kinds when empty) that do
// not exist yet.
func (s *RecordStore) EnsureIndices(ctx context.Context, kinds ...record.Kind) error {
	if len(kinds) == 0 {
		kinds = record.Kinds()
	}
	for _, kind := range kinds {
		name, err := s.IndexName(kind)
		if err != nil {
			return err
		}
		err = s.indexer.CreateIndex(ctx, name, RecordIndexMapping(kind, s.mapping))
		if err != nil && !errors.IsCode(err, errors.ErrCodeIndexAlreadyExist) {
			return err
		}
	}
	return nil
}

// DropIndices deletes the indices of kinds (all kinds when empty). Missing
// indices are skipped.
func (s *RecordStore) DropIndices(ctx context.Context, kinds ...record.Kind) error {
	if len(kinds) == 0 {
		kinds = record.Kinds()
	}
	for _, kind := range kinds {
		name, err := s.IndexName(kind)
		if err != nil {
			return err
		}
		if err := s.indexer.DeleteIndex(ctx, name); err != nil && !errors.IsNotFound(err) {
			return err
		}
	}
	return nil
}

// Save writes r into the index of its kind under its record id.
func (s *RecordStore) Save(ctx context.Context, r *record.Record) error {
	name, err := s.IndexName(r.Kind())
	if err != nil {
		return err
	}
	return s.indexer.IndexDocument(ctx, name, r.ID(), r)
}

// SaveAll bulk-writes records of kind.
func (s *RecordStore) SaveAll(ctx context.Context, kind record.Kind, records []*record.Record) (*common.BulkResult, error) {
	name, err := s.IndexName(kind)
	if err != nil {
		return nil, err
	}
	docs := make([]BulkDocument, 0, len(records))
	for _, r := range records {
		if r.Kind() != kind {
			return nil, errors.InvalidParam("record kind does not match bulk kind").
				WithDetail("id=" + r.ID() + " kind=" + r.Kind().String())
		}
		docs = append(docs, BulkDocument{ID: r.ID(), Source: r})
	}
	return s.indexer.BulkIndex(ctx, name, docs)
}

// Get loads the record of kind stored under id.
func (s *RecordStore) Get(ctx context.Context, kind record.Kind, id string) (*record.Record, error) {
	name, err := s.IndexName(kind)
	if err != nil {
		return nil, err
	}
	hit, err := s.searcher.GetDocument(ctx, name, id)
	if err != nil {
		if errors.IsCode(err, errors.CodeNotFound) {
			return nil, record.ErrRecordNotFound.WithDetail("id=" + id).WithCause(err)
		}
		return nil, err
	}
	return record.FromDocument(kind, toDocument(*hit))
}

// FindByHash returns one page of records of kind whose structural_hash
// contains every value of hashes, ordered by record_id. An empty hashes
// matches every record. after is the cursor returned with the previous page.
func (s *RecordStore) FindByHash(ctx context.Context, kind record.Kind, hashes []int64, after []interface{}, size int) (common.CursorPage[*record.Record], error) {
	var page common.CursorPage[*record.Record]
	name, err := s.IndexName(kind)
	if err != nil {
		return page, err
	}

	size = s.searcher.PageSize(size)
	res, err := s.searcher.Search(ctx, SearchRequest{
		Index:          name,
		Query:          hashQuery(hashes),
		Sort:           recordSort,
		SearchAfter:    after,
		Size:           size,
		TrackTotalHits: true,
	})
	if err != nil {
		return page, err
	}

	page.Total = res.Total
	page.Items = make([]*record.Record, 0, len(res.Hits))
	for _, hit := range res.Hits {
		r, err := record.FromDocument(kind, toDocument(hit))
		if err != nil {
			return page, err
		}
		page.Items = append(page.Items, r)
	}
	if len(page.Items) == size {
		page.Next = page.Items[len(page.Items)-1].SortCursor()
	}
	return page, nil
}

// Count returns the number of records of kind.
func (s *RecordStore) Count(ctx context.Context, kind record.Kind) (int64, error) {
	name, err := s.IndexName(kind)
	if err != nil {
		return 0, err
	}
	return s.searcher.Count(ctx, name, nil)
}

// Refresh makes recent writes of kind visible to search.
func (s *RecordStore) Refresh(ctx context.Context, kind record.Kind) error {
	name, err := s.IndexName(kind)
	if err != nil {
		return err
	}
	return s.indexer.Refresh(ctx, name)
}

func hashQuery(hashes []int64) map[string]interface{} {
	if len(hashes) == 0 {
		return map[string]interface{}{"match_all": map[string]interface{}{}}
	}
	filters := make([]interface{}, 0, len(hashes))
	for _, h := range hashes {
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{record.FieldStructuralHash: h},
		})
	}
	return map[string]interface{}{"bool": map[string]interface{}{"filter": filters}}
}

func toDocument(hit Hit) record.Document {
	return record.Document{ID: hit.ID, Index: hit.Index, Source: hit.Source, Sort: hit.Sort}
}

// ParseCursor decodes the textual form of a record_id cursor, as carried in
// query strings, back into a sort cursor.
func ParseCursor(after string) []interface{} {
	if after == "" {
		return nil
	}
	return []interface{}{after}
}

// FormatCursor renders a cursor returned by FindByHash as text.
func FormatCursor(cursor []interface{}) string {
	if len(cursor) == 0 {
		return ""
	}
	switch v := cursor[0].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return ""
	}
}

//Personal.AI order the ending
