package opensearch

import (
	"github.com/turtacn/chemindex/internal/domain/record"
	"github.com/turtacn/chemindex/pkg/types/common"
)

// MappingOptions tunes the settings of created record indices.
type MappingOptions struct {
	Shards   int
	Replicas int
}

func field(typ string) map[string]interface{} {
	return map[string]interface{}{"type": typ}
}

// storedOnly keeps a value in _source without indexing it. Text fields have
// no doc_values setting.
func storedOnly(typ string) map[string]interface{} {
	m := map[string]interface{}{"type": typ, "index": false}
	if typ != "text" {
		m["doc_values"] = false
	}
	return m
}

// RecordIndexMapping returns the index body for records of kind. Fingerprint
// bits and structural hashes are indexed as numeric terms so exact and
// screening queries are plain term filters.
func RecordIndexMapping(kind record.Kind, opts MappingOptions) common.IndexMapping {
	if opts.Shards <= 0 {
		opts.Shards = 1
	}
	if opts.Replicas < 0 {
		opts.Replicas = 0
	}

	props := map[string]interface{}{
		record.FieldRecordID: field("keyword"),
		record.FieldName: map[string]interface{}{
			"type": "text",
			"fields": map[string]interface{}{
				"raw": map[string]interface{}{"type": "keyword", "ignore_above": 256},
			},
		},
		record.FieldCanonicalForm:              storedOnly("keyword"),
		record.FieldSimilarityFingerprint:      field("integer"),
		record.FieldSimilarityFingerprintLen:   field("integer"),
		record.FieldSubstructureFingerprint:    field("integer"),
		record.FieldSubstructureFingerprintLen: field("integer"),
		record.FieldStructuralHash:             field("long"),
		record.FieldHasError:                   field("byte"),
	}
	if kind == record.KindReactionTemplate {
		props[record.FieldOriginalTemplateText] = storedOnly("text")
	}

	return common.IndexMapping{
		Settings: map[string]interface{}{
			"number_of_shards":   opts.Shards,
			"number_of_replicas": opts.Replicas,
		},
		Mappings: map[string]interface{}{
			"dynamic":    "strict",
			"properties": props,
		},
	}
}

//Personal.AI order the ending
