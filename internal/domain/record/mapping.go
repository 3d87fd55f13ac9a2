package record

import (
	"bytes"
	"encoding/json"

	"github.com/turtacn/chemindex/pkg/errors"
)

// Index document keys.
const (
	FieldRecordID                   = "record_id"
	FieldName                       = "name"
	FieldCanonicalForm              = "canonical_form"
	FieldSimilarityFingerprint      = "similarity_fingerprint"
	FieldSimilarityFingerprintLen   = "similarity_fingerprint_len"
	FieldSubstructureFingerprint    = "substructure_fingerprint"
	FieldSubstructureFingerprintLen = "substructure_fingerprint_len"
	FieldStructuralHash             = "structural_hash"
	FieldHasError                   = "has_error"
	FieldOriginalTemplateText       = "original_template_text"
)

// ToMapping returns the record as a flat index document. Policy, sort cursor
// and kind are never part of it. structural_hash and has_error are omitted
// while unset; has_error is encoded as 1 or 0.
func (r *Record) ToMapping() map[string]interface{} {
	m := map[string]interface{}{
		FieldRecordID:                   r.id,
		FieldName:                       r.Name,
		FieldCanonicalForm:              r.CanonicalForm,
		FieldSimilarityFingerprint:      nonNil(r.SimilarityFingerprint),
		FieldSimilarityFingerprintLen:   r.SimilarityFingerprintLen,
		FieldSubstructureFingerprint:    nonNil(r.SubstructureFingerprint),
		FieldSubstructureFingerprintLen: r.SubstructureFingerprintLen,
	}
	if r.StructuralHash != nil {
		m[FieldStructuralHash] = r.StructuralHash
	}
	if r.HasError != nil {
		if *r.HasError {
			m[FieldHasError] = 1
		} else {
			m[FieldHasError] = 0
		}
	}
	if r.kind == KindReactionTemplate || r.OriginalTemplateText != "" {
		m[FieldOriginalTemplateText] = r.OriginalTemplateText
	}
	return m
}

func nonNil(bits []int) []int {
	if bits == nil {
		return []int{}
	}
	return bits
}

// MarshalJSON encodes the index document of the record.
func (r *Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.ToMapping())
}

// ─────────────────────────────────────────────────────────────────────────────
// Rehydration
// ─────────────────────────────────────────────────────────────────────────────

// Document is a search-backend hit: the stored source plus its sort cursor.
type Document struct {
	ID     string          `json:"_id,omitempty"`
	Index  string          `json:"_index,omitempty"`
	Source json.RawMessage `json:"_source"`
	Sort   []interface{}   `json:"sort,omitempty"`
}

type source struct {
	RecordID                   string  `json:"record_id"`
	Name                       string  `json:"name"`
	CanonicalForm              string  `json:"canonical_form"`
	SimilarityFingerprint      []int   `json:"similarity_fingerprint"`
	SimilarityFingerprintLen   *int    `json:"similarity_fingerprint_len"`
	SubstructureFingerprint    []int   `json:"substructure_fingerprint"`
	SubstructureFingerprintLen *int    `json:"substructure_fingerprint_len"`
	StructuralHash             []int64 `json:"structural_hash"`
	HasError                   *flag   `json:"has_error"`
	OriginalTemplateText       string  `json:"original_template_text"`
}

// flag decodes 0/1 as well as false/true.
type flag bool

func (f *flag) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case "1", "true":
		*f = true
	case "0", "false":
		*f = false
	default:
		return errors.New(errors.ErrCodeInvalidDocument, "has_error must be 0, 1, true or false").
			WithDetail("value=" + string(data))
	}
	return nil
}

// FromDocument rebuilds a record from a search hit. The hit's sort cursor is
// kept for pagination. A source without record_id gets a fresh id.
func FromDocument(kind Kind, doc Document, opts ...Option) (*Record, error) {
	if !kind.Valid() {
		return nil, errors.InvalidParam("unknown record kind").WithDetail("kind=" + string(kind))
	}
	if len(bytes.TrimSpace(doc.Source)) == 0 || string(bytes.TrimSpace(doc.Source)) == "null" {
		return nil, errors.New(errors.ErrCodeInvalidDocument, "document has no _source").
			WithDetail("id=" + doc.ID)
	}

	var src source
	if err := json.Unmarshal(doc.Source, &src); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidDocument, "decode _source").
			WithDetail("id=" + doc.ID)
	}

	r := newRecord(kind, buildOptions(opts))
	src.apply(r)
	if len(doc.Sort) > 0 {
		r.sortCursor = append([]interface{}(nil), doc.Sort...)
	}
	return r, nil
}

// DecodeDocument parses a raw search hit and rebuilds the record.
func DecodeDocument(kind Kind, data []byte, opts ...Option) (*Record, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidDocument, "decode search hit")
	}
	return FromDocument(kind, doc, opts...)
}

// FromMapping rebuilds a record from a field set such as the output of
// ToMapping.
func FromMapping(kind Kind, m map[string]interface{}, opts ...Option) (*Record, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "encode field set")
	}
	return FromDocument(kind, Document{Source: raw}, opts...)
}

func (s *source) apply(r *Record) {
	if s.RecordID != "" {
		r.id = s.RecordID
	}
	r.Name = s.Name
	r.CanonicalForm = s.CanonicalForm
	if s.SimilarityFingerprint != nil {
		r.SimilarityFingerprint = s.SimilarityFingerprint
	}
	r.SimilarityFingerprintLen = len(r.SimilarityFingerprint)
	if s.SimilarityFingerprintLen != nil {
		r.SimilarityFingerprintLen = *s.SimilarityFingerprintLen
	}
	if s.SubstructureFingerprint != nil {
		r.SubstructureFingerprint = s.SubstructureFingerprint
	}
	r.SubstructureFingerprintLen = len(r.SubstructureFingerprint)
	if s.SubstructureFingerprintLen != nil {
		r.SubstructureFingerprintLen = *s.SubstructureFingerprintLen
	}
	r.StructuralHash = s.StructuralHash
	if s.HasError != nil {
		v := bool(*s.HasError)
		r.HasError = &v
	}
	r.OriginalTemplateText = s.OriginalTemplateText
}

//Personal.AI order the ending
