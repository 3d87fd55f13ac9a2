package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/turtacn/chemindex/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/chemindex/pkg/errors"
	"github.com/turtacn/chemindex/pkg/types/common"
)

var (
	ErrIndexAlreadyExists  = errors.New(errors.ErrCodeIndexAlreadyExist, "index already exists")
	ErrIndexNotFound       = errors.New(errors.ErrCodeNotFound, "index not found")
	ErrIndexCreationFailed = errors.New(errors.ErrCodeIndexFailed, "index creation failed")
	ErrDocumentIndexFailed = errors.New(errors.ErrCodeIndexFailed, "document index failed")
	ErrDocumentNotFound    = errors.New(errors.ErrCodeNotFound, "document not found")
)

// IndexerConfig holds configuration for the Indexer.
type IndexerConfig struct {
	BulkBatchSize int
	// RefreshPolicy is passed as the refresh parameter of write requests:
	// "true", "false" or "wait_for". Empty leaves the cluster default.
	RefreshPolicy string
}

// BulkDocument is one document of a bulk request.
type BulkDocument struct {
	ID     string
	Source interface{}
}

// Indexer manages index lifecycle and document writes.
type Indexer struct {
	client *Client
	config IndexerConfig
	logger logging.Logger
}

// NewIndexer creates a new Indexer.
func NewIndexer(client *Client, cfg IndexerConfig, logger logging.Logger) *Indexer {
	if cfg.BulkBatchSize <= 0 {
		cfg.BulkBatchSize = 500
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Indexer{
		client: client,
		config: cfg,
		logger: logger.Named("indexer"),
	}
}

// CreateIndex creates indexName with the given mapping. An existing index
// is ErrIndexAlreadyExists.
func (i *Indexer) CreateIndex(ctx context.Context, indexName string, mapping common.IndexMapping) error {
	exists, err := i.IndexExists(ctx, indexName)
	if err != nil {
		return err
	}
	if exists {
		return ErrIndexAlreadyExists.WithDetail("index=" + indexName)
	}

	body, err := json.Marshal(mapping)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal index mapping")
	}

	req := opensearchapi.IndicesCreateRequest{
		Index: indexName,
		Body:  bytes.NewReader(body),
	}
	resp, err := req.Do(ctx, i.client.GetClient())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeIndexFailed, "create index request failed")
	}
	defer resp.Body.Close()

	if resp.IsError() {
		eb := readErrorBody(resp)
		if eb.Error.Type == "resource_already_exists_exception" {
			return ErrIndexAlreadyExists.WithDetail("index=" + indexName)
		}
		return eb.wrap(resp.StatusCode, ErrIndexCreationFailed)
	}

	i.logger.Info("index created", logging.String(logging.FieldIndex, indexName))
	return nil
}

// DeleteIndex deletes an index.
func (i *Indexer) DeleteIndex(ctx context.Context, indexName string) error {
	req := opensearchapi.IndicesDeleteRequest{Index: []string{indexName}}
	resp, err := req.Do(ctx, i.client.GetClient())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeIndexFailed, "delete index request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == 404 {
		return ErrIndexNotFound.WithDetail("index=" + indexName)
	}
	if resp.IsError() {
		return responseError(resp, errors.New(errors.ErrCodeIndexFailed, "delete index failed"))
	}

	i.logger.Warn("index deleted", logging.String(logging.FieldIndex, indexName))
	return nil
}

// IndexExists checks if an index exists.
func (i *Indexer) IndexExists(ctx context.Context, indexName string) (bool, error) {
	req := opensearchapi.IndicesExistsRequest{Index: []string{indexName}}
	resp, err := req.Do(ctx, i.client.GetClient())
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeSearchFailed, "index existence request failed")
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case 200:
		return true, nil
	case 404:
		return false, nil
	}
	return false, responseError(resp, errors.New(errors.ErrCodeSearchFailed, "check index existence failed"))
}

// IndexDocument writes a single document under docID.
func (i *Indexer) IndexDocument(ctx context.Context, indexName, docID string, document interface{}) error {
	body, err := json.Marshal(document)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal document")
	}

	req := opensearchapi.IndexRequest{
		Index:      indexName,
		DocumentID: docID,
		Body:       bytes.NewReader(body),
		Refresh:    i.config.RefreshPolicy,
	}
	resp, err := req.Do(ctx, i.client.GetClient())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeIndexFailed, "index document request failed")
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return responseError(resp, ErrDocumentIndexFailed)
	}
	return nil
}

// BulkIndex writes documents in batches of BulkBatchSize. Per-document
// rejections are reported in the result; a transport failure aborts the
// remaining batches.
func (i *Indexer) BulkIndex(ctx context.Context, indexName string, docs []BulkDocument) (*common.BulkResult, error) {
	start := time.Now()
	result := &common.BulkResult{}
	if len(docs) == 0 {
		return result, nil
	}

	for from := 0; from < len(docs); from += i.config.BulkBatchSize {
		to := from + i.config.BulkBatchSize
		if to > len(docs) {
			to = len(docs)
		}
		if err := i.bulkBatch(ctx, indexName, docs[from:to], result); err != nil {
			result.Took = time.Since(start)
			return result, err
		}
	}
	result.Took = time.Since(start)

	i.logger.Info("bulk index completed",
		logging.String(logging.FieldIndex, indexName),
		logging.Int("total", len(docs)),
		logging.Int("indexed", result.Indexed),
		logging.Int("failed", result.Failed),
		logging.Duration("took", result.Took))
	return result, nil
}

type bulkAction struct {
	Index struct {
		Index string `json:"_index"`
		ID    string `json:"_id"`
	} `json:"index"`
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		Index  string `json:"_index"`
		ID     string `json:"_id"`
		Status int    `json:"status"`
		Error  struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	} `json:"items"`
}

func (i *Indexer) bulkBatch(ctx context.Context, indexName string, batch []BulkDocument, result *common.BulkResult) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	sent := 0
	for _, doc := range batch {
		source, err := json.Marshal(doc.Source)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, common.BulkItemError{
				ID:     doc.ID,
				Index:  indexName,
				Type:   "serialization_error",
				Reason: err.Error(),
			})
			continue
		}
		var action bulkAction
		action.Index.Index = indexName
		action.Index.ID = doc.ID
		if err := enc.Encode(action); err != nil {
			return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode bulk action")
		}
		buf.Write(source)
		buf.WriteByte('\n')
		sent++
	}
	if sent == 0 {
		return nil
	}

	req := opensearchapi.BulkRequest{
		Body:    bytes.NewReader(buf.Bytes()),
		Refresh: i.config.RefreshPolicy,
	}
	resp, err := req.Do(ctx, i.client.GetClient())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeIndexFailed, "bulk request failed")
	}
	defer resp.Body.Close()

	if resp.IsError() {
		err := responseError(resp, errors.New(errors.ErrCodeIndexFailed, "bulk batch rejected"))
		result.Failed += sent
		result.Errors = append(result.Errors, common.BulkItemError{
			Index:  indexName,
			Status: resp.StatusCode,
			Type:   "http_error",
			Reason: err.Error(),
		})
		return nil
	}

	var br bulkResponse
	if err := json.NewDecoder(resp.Body).Decode(&br); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode bulk response")
	}
	for _, item := range br.Items {
		for _, info := range item {
			if info.Status >= 200 && info.Status < 300 {
				result.Indexed++
				continue
			}
			result.Failed++
			result.Errors = append(result.Errors, common.BulkItemError{
				ID:     info.ID,
				Index:  info.Index,
				Status: info.Status,
				Type:   info.Error.Type,
				Reason: info.Error.Reason,
			})
		}
	}
	return nil
}

// DeleteDocument deletes a document.
func (i *Indexer) DeleteDocument(ctx context.Context, indexName, docID string) error {
	req := opensearchapi.DeleteRequest{
		Index:      indexName,
		DocumentID: docID,
		Refresh:    i.config.RefreshPolicy,
	}
	resp, err := req.Do(ctx, i.client.GetClient())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeIndexFailed, "delete document request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == 404 {
		return ErrDocumentNotFound.WithDetail("id=" + docID)
	}
	if resp.IsError() {
		return responseError(resp, errors.New(errors.ErrCodeIndexFailed, "delete document failed"))
	}
	return nil
}

// Refresh makes recent writes to indexName visible to search.
func (i *Indexer) Refresh(ctx context.Context, indexName string) error {
	req := opensearchapi.IndicesRefreshRequest{Index: []string{indexName}}
	resp, err := req.Do(ctx, i.client.GetClient())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeIndexFailed, "refresh request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == 404 {
		return ErrIndexNotFound.WithDetail("index=" + indexName)
	}
	if resp.IsError() {
		return responseError(resp, errors.New(errors.ErrCodeIndexFailed, "refresh failed"))
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Error responses
// ─────────────────────────────────────────────────────────────────────────────

type errorBody struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
}

func readErrorBody(resp *opensearchapi.Response) errorBody {
	var eb errorBody
	data, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(data, &eb)
	return eb
}

// wrap attaches the cluster's error type and reason, or only the status
// code when the body has none, to base.
func (eb errorBody) wrap(status int, base *errors.AppError) error {
	if eb.Error.Reason != "" {
		return base.WithDetail(fmt.Sprintf("status=%d %s: %s", status, eb.Error.Type, eb.Error.Reason))
	}
	return base.WithDetail(fmt.Sprintf("status=%d", status))
}

func responseError(resp *opensearchapi.Response, base *errors.AppError) error {
	return readErrorBody(resp).wrap(resp.StatusCode, base)
}

//Personal.AI order the ending
