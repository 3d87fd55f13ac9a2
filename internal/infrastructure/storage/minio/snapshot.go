package minio

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/chemindex/internal/domain/record"
	"github.com/turtacn/chemindex/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/chemindex/pkg/errors"
)

var ErrSnapshotNotFound = errors.New(errors.ErrCodeNotFound, "snapshot not found")

const (
	snapshotExt         = ".ndjson"
	snapshotContentType = "application/x-ndjson"
	snapshotTimeLayout  = "20060102T150405.000Z"

	metaKind  = "Record-Kind"
	metaCount = "Record-Count"

	maxLineBytes = 16 << 20
)

// SnapshotInfo describes one stored snapshot.
type SnapshotInfo struct {
	Key          string      `json:"key" yaml:"key"`
	Kind         record.Kind `json:"kind" yaml:"kind"`
	Records      int         `json:"records" yaml:"records"`
	Size         int64       `json:"size" yaml:"size"`
	LastModified time.Time   `json:"last_modified" yaml:"last_modified"`
}

// SnapshotStore writes and reads record snapshots under
// <prefix><kind>/<timestamp>.ndjson.
type SnapshotStore struct {
	client *Client
	prefix string
	logger logging.Logger
	now    func() time.Time
}

// NewSnapshotStore creates a store rooted at prefix inside the client's
// bucket.
func NewSnapshotStore(client *Client, prefix string, log logging.Logger) *SnapshotStore {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &SnapshotStore{
		client: client,
		prefix: prefix,
		logger: log.Named("snapshots"),
		now:    time.Now,
	}
}

// Key names the snapshot of kind taken at t.
func (s *SnapshotStore) Key(kind record.Kind, t time.Time) string {
	return s.prefix + string(kind) + "/" + t.UTC().Format(snapshotTimeLayout) + snapshotExt
}

// EncodeNDJSON writes one index document per line.
func EncodeNDJSON(w io.Writer, records []*record.Record) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode record").
				WithDetail("id=" + r.ID())
		}
	}
	return nil
}

// Upload stores records as a new snapshot of kind. Every record must be of
// kind.
func (s *SnapshotStore) Upload(ctx context.Context, kind record.Kind, records []*record.Record) (*SnapshotInfo, error) {
	if s.client.closed.Load() {
		return nil, ErrClientClosed
	}
	if !kind.Valid() {
		return nil, errors.InvalidParam("unknown record kind").WithDetail("kind=" + string(kind))
	}
	for _, r := range records {
		if r.Kind() != kind {
			return nil, errors.InvalidParam("record kind does not match snapshot kind").
				WithDetail(fmt.Sprintf("id=%s kind=%s", r.ID(), r.Kind()))
		}
	}

	var buf bytes.Buffer
	if err := EncodeNDJSON(&buf, records); err != nil {
		return nil, err
	}

	key := s.Key(kind, s.now())
	size := int64(buf.Len())
	_, err := s.client.api.PutObject(ctx, s.client.Bucket(), key, &buf, size, minio.PutObjectOptions{
		ContentType: snapshotContentType,
		UserMetadata: map[string]string{
			metaKind:  string(kind),
			metaCount: strconv.Itoa(len(records)),
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageFailed, "failed to upload snapshot").
			WithDetail("key=" + key)
	}

	s.logger.Info("snapshot uploaded",
		logging.String(logging.FieldKind, string(kind)),
		logging.String("key", key),
		logging.Int("records", len(records)),
		logging.Int64("bytes", size))
	return &SnapshotInfo{
		Key:          key,
		Kind:         kind,
		Records:      len(records),
		Size:         size,
		LastModified: s.now(),
	}, nil
}

// Open streams the raw NDJSON of key.
func (s *SnapshotStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if s.client.closed.Load() {
		return nil, ErrClientClosed
	}
	rc, err := s.client.api.GetObject(ctx, s.client.Bucket(), key, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.objectError(err, key, "failed to open snapshot")
	}
	return rc, nil
}

// ReadRecords decodes every line of key as a record of kind and passes it
// to fn, stopping at the first error. It returns the number of records
// handed to fn.
func (s *SnapshotStore) ReadRecords(ctx context.Context, kind record.Kind, key string, fn func(*record.Record) error) (int, error) {
	rc, err := s.Open(ctx, key)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	sc := bufio.NewScanner(rc)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	n, line := 0, 0
	for sc.Scan() {
		line++
		data := bytes.TrimSpace(sc.Bytes())
		if len(data) == 0 {
			continue
		}
		src := make([]byte, len(data))
		copy(src, data)
		r, err := record.FromDocument(kind, record.Document{Source: src})
		if err != nil {
			return n, errors.Wrap(err, errors.ErrCodeInvalidDocument, "invalid snapshot line").
				WithDetail(fmt.Sprintf("key=%s line=%d", key, line))
		}
		if err := fn(r); err != nil {
			return n, err
		}
		n++
	}
	if err := sc.Err(); err != nil {
		return n, s.objectError(err, key, "failed to read snapshot")
	}
	return n, nil
}

// Stat returns the stored metadata of key.
func (s *SnapshotStore) Stat(ctx context.Context, key string) (*SnapshotInfo, error) {
	if s.client.closed.Load() {
		return nil, ErrClientClosed
	}
	obj, err := s.client.api.StatObject(ctx, s.client.Bucket(), key, minio.StatObjectOptions{})
	if err != nil {
		return nil, s.objectError(err, key, "failed to stat snapshot")
	}
	info := s.info(obj)
	if k := obj.UserMetadata[metaKind]; k != "" {
		info.Kind = record.Kind(k)
	}
	if c, err := strconv.Atoi(obj.UserMetadata[metaCount]); err == nil {
		info.Records = c
	}
	return info, nil
}

// List returns the snapshots of kind, oldest first. Record counts are not
// part of a listing.
func (s *SnapshotStore) List(ctx context.Context, kind record.Kind) ([]SnapshotInfo, error) {
	if s.client.closed.Load() {
		return nil, ErrClientClosed
	}
	prefix := s.prefix + string(kind) + "/"
	objects := s.client.api.ListObjects(ctx, s.client.Bucket(), minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	var out []SnapshotInfo
	for obj := range objects {
		if obj.Err != nil {
			return nil, errors.Wrap(obj.Err, errors.ErrCodeStorageFailed, "failed to list snapshots").
				WithDetail("prefix=" + prefix)
		}
		if !strings.HasSuffix(obj.Key, snapshotExt) {
			continue
		}
		out = append(out, *s.info(obj))
	}
	return out, nil
}

// Delete removes key.
func (s *SnapshotStore) Delete(ctx context.Context, key string) error {
	if s.client.closed.Load() {
		return ErrClientClosed
	}
	if err := s.client.api.RemoveObject(ctx, s.client.Bucket(), key, minio.RemoveObjectOptions{}); err != nil {
		return s.objectError(err, key, "failed to delete snapshot")
	}
	s.logger.Info("snapshot deleted", logging.String("key", key))
	return nil
}

func (s *SnapshotStore) info(obj minio.ObjectInfo) *SnapshotInfo {
	info := &SnapshotInfo{
		Key:          obj.Key,
		Size:         obj.Size,
		LastModified: obj.LastModified,
	}
	rest := strings.TrimPrefix(obj.Key, s.prefix)
	if i := strings.IndexByte(rest, '/'); i > 0 {
		info.Kind = record.Kind(rest[:i])
	}
	return info
}

func (s *SnapshotStore) objectError(err error, key, msg string) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		return ErrSnapshotNotFound.WithDetail("key=" + key).WithCause(err)
	}
	return errors.Wrap(err, errors.ErrCodeStorageFailed, msg).WithDetail("key=" + key)
}

//Personal.AI order the ending
