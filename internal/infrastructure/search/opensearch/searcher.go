package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/turtacn/chemindex/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/chemindex/pkg/errors"
)

var ErrSearchFailed = errors.New(errors.ErrCodeSearchFailed, "search request failed")

// SearcherConfig holds configuration for the Searcher.
type SearcherConfig struct {
	DefaultPageSize int
	MaxPageSize     int
}

// SearchRequest is a query against one index. SearchAfter continues a walk
// sorted by Sort from the cursor of the previous page's last hit.
type SearchRequest struct {
	Index          string
	Query          map[string]interface{}
	Sort           []map[string]interface{}
	SearchAfter    []interface{}
	Size           int
	TrackTotalHits bool
}

// Hit is a single search hit in the shape the cluster returns it.
type Hit struct {
	ID     string          `json:"_id"`
	Index  string          `json:"_index"`
	Source json.RawMessage `json:"_source"`
	Sort   []interface{}   `json:"sort,omitempty"`
}

// SearchResult holds the hits of one page.
type SearchResult struct {
	Total int64
	Took  int64
	Hits  []Hit
}

// Searcher runs read requests against the cluster.
type Searcher struct {
	client *Client
	config SearcherConfig
	logger logging.Logger
}

// NewSearcher creates a new Searcher.
func NewSearcher(client *Client, cfg SearcherConfig, logger logging.Logger) *Searcher {
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 20
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = 1000
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Searcher{
		client: client,
		config: cfg,
		logger: logger.Named("searcher"),
	}
}

// PageSize clamps size into [1, MaxPageSize], using DefaultPageSize for
// non-positive values.
func (s *Searcher) PageSize(size int) int {
	switch {
	case size <= 0:
		return s.config.DefaultPageSize
	case size > s.config.MaxPageSize:
		return s.config.MaxPageSize
	default:
		return size
	}
}

func (s *Searcher) buildBody(req SearchRequest) map[string]interface{} {
	body := map[string]interface{}{
		"size": s.PageSize(req.Size),
	}
	if req.Query != nil {
		body["query"] = req.Query
	} else {
		body["query"] = map[string]interface{}{"match_all": map[string]interface{}{}}
	}
	if len(req.Sort) > 0 {
		body["sort"] = req.Sort
	}
	if len(req.SearchAfter) > 0 {
		body["search_after"] = req.SearchAfter
	}
	if req.TrackTotalHits {
		body["track_total_hits"] = true
	}
	return body
}

// Search executes req.
func (s *Searcher) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	if req.Index == "" {
		return nil, errors.InvalidParam("search index is required")
	}
	if len(req.SearchAfter) > 0 && len(req.Sort) == 0 {
		return nil, errors.InvalidParam("search_after requires a sort")
	}

	body, err := json.Marshal(s.buildBody(req))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal search body")
	}

	osReq := opensearchapi.SearchRequest{
		Index: []string{req.Index},
		Body:  bytes.NewReader(body),
	}
	resp, err := osReq.Do(ctx, s.client.GetClient())
	if err != nil {
		return nil, ErrSearchFailed.WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == 404 {
		return nil, ErrIndexNotFound.WithDetail("index=" + req.Index)
	}
	if resp.IsError() {
		return nil, responseError(resp, ErrSearchFailed)
	}

	result, err := parseSearchResponse(resp.Body)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("search completed",
		logging.String(logging.FieldIndex, req.Index),
		logging.Int("hits", len(result.Hits)),
		logging.Int64("total", result.Total))
	return result, nil
}

// GetDocument fetches one document by id.
func (s *Searcher) GetDocument(ctx context.Context, indexName, docID string) (*Hit, error) {
	req := opensearchapi.GetRequest{
		Index:      indexName,
		DocumentID: docID,
	}
	resp, err := req.Do(ctx, s.client.GetClient())
	if err != nil {
		return nil, ErrSearchFailed.WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == 404 {
		// 404 covers both a missing document and a missing index.
		eb := readErrorBody(resp)
		if eb.Error.Type == "index_not_found_exception" {
			return nil, ErrIndexNotFound.WithDetail("index=" + indexName)
		}
		return nil, ErrDocumentNotFound.WithDetail("id=" + docID)
	}
	if resp.IsError() {
		return nil, responseError(resp, ErrSearchFailed)
	}

	var hit struct {
		Hit
		Found bool `json:"found"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&hit); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode get response")
	}
	if !hit.Found {
		return nil, ErrDocumentNotFound.WithDetail("id=" + docID)
	}
	return &hit.Hit, nil
}

// Count returns the number of documents matching query.
func (s *Searcher) Count(ctx context.Context, indexName string, query map[string]interface{}) (int64, error) {
	var body io.Reader
	if query != nil {
		data, err := json.Marshal(map[string]interface{}{"query": query})
		if err != nil {
			return 0, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal count body")
		}
		body = bytes.NewReader(data)
	}

	req := opensearchapi.CountRequest{
		Index: []string{indexName},
		Body:  body,
	}
	resp, err := req.Do(ctx, s.client.GetClient())
	if err != nil {
		return 0, ErrSearchFailed.WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == 404 {
		return 0, ErrIndexNotFound.WithDetail("index=" + indexName)
	}
	if resp.IsError() {
		return 0, responseError(resp, ErrSearchFailed)
	}

	var cr struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode count response")
	}
	return cr.Count, nil
}

func parseSearchResponse(body io.Reader) (*SearchResult, error) {
	var raw struct {
		Took int64 `json:"took"`
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []Hit `json:"hits"`
		} `json:"hits"`
	}
	dec := json.NewDecoder(body)
	// Sort values stay json.Number so large longs survive the round trip.
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode search response")
	}
	return &SearchResult{
		Total: raw.Hits.Total.Value,
		Took:  raw.Took,
		Hits:  raw.Hits.Hits,
	}, nil
}

//Personal.AI order the ending
