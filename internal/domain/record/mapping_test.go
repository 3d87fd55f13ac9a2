package record_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/chemindex/internal/domain/record"
	"github.com/turtacn/chemindex/internal/testutil/chemfake"
	"github.com/turtacn/chemindex/pkg/errors"
)

func TestToMapping_Keys(t *testing.T) {
	s := chemfake.NewSession()
	r, err := record.NewMolecule(ethanolWithSalt(s), record.WithErrorHandler(func(*record.Record, error) error { return nil }))
	require.NoError(t, err)

	m := r.ToMapping()
	for _, key := range []string{"error_handler", "skip_errors", "policy", "sort", "kind"} {
		assert.NotContains(t, m, key)
	}
	assert.Equal(t, r.ID(), m[record.FieldRecordID])
	assert.Equal(t, r.Name, m[record.FieldName])
	assert.Equal(t, r.CanonicalForm, m[record.FieldCanonicalForm])
	assert.Equal(t, r.SimilarityFingerprint, m[record.FieldSimilarityFingerprint])
	assert.Equal(t, r.SimilarityFingerprintLen, m[record.FieldSimilarityFingerprintLen])
	assert.Equal(t, r.StructuralHash, m[record.FieldStructuralHash])
	assert.Equal(t, 0, m[record.FieldHasError])
	assert.NotContains(t, m, record.FieldOriginalTemplateText)
}

func TestToMapping_SkippedRecordHasNoNulls(t *testing.T) {
	s := chemfake.NewSession()
	mol := s.Molecule("x", chemfake.Frag("C"))
	s.FailOn(chemfake.PopulationOps...)

	r, err := record.NewMolecule(mol, record.WithSkipErrors())
	require.NoError(t, err)

	raw, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"record_id": "`+r.ID()+`",
		"name": "",
		"canonical_form": "",
		"similarity_fingerprint": [],
		"similarity_fingerprint_len": 0,
		"substructure_fingerprint": [],
		"substructure_fingerprint_len": 0
	}`, string(raw))
}

func TestFromDocument_RoundTrip(t *testing.T) {
	s := chemfake.NewSession()
	orig, err := record.NewMolecule(ethanolWithSalt(s).WithBadValence())
	require.NoError(t, err)

	source, err := json.Marshal(orig)
	require.NoError(t, err)
	hit := record.Document{ID: orig.ID(), Source: source, Sort: []interface{}{orig.ID()}}

	r, err := record.FromDocument(record.KindMolecule, hit)
	require.NoError(t, err)

	assert.Equal(t, orig.ID(), r.ID())
	assert.Equal(t, orig.Name, r.Name)
	assert.Equal(t, orig.CanonicalForm, r.CanonicalForm)
	assert.Equal(t, orig.SimilarityFingerprint, r.SimilarityFingerprint)
	assert.Equal(t, orig.SubstructureFingerprintLen, r.SubstructureFingerprintLen)
	assert.Equal(t, orig.StructuralHash, r.StructuralHash)
	require.NotNil(t, r.HasError)
	assert.True(t, *r.HasError)
	assert.Equal(t, []interface{}{orig.ID()}, r.SortCursor())
	assert.Equal(t, orig.ToMapping(), r.ToMapping())
}

func TestDecodeDocument_SearchHit(t *testing.T) {
	hit := `{
		"_index": "chem-reactions",
		"_id": "abc",
		"_source": {
			"record_id": "abc",
			"name": "esterification",
			"canonical_form": "1 2 3",
			"similarity_fingerprint": [1, 5],
			"structural_hash": [42],
			"has_error": false
		},
		"sort": ["abc"]
	}`

	r, err := record.DecodeDocument(record.KindReaction, []byte(hit))
	require.NoError(t, err)

	assert.Equal(t, "abc", r.ID())
	assert.Equal(t, record.KindReaction, r.Kind())
	assert.Equal(t, []int{1, 5}, r.SimilarityFingerprint)
	assert.Equal(t, 2, r.SimilarityFingerprintLen, "length derives from the list when absent")
	assert.Equal(t, []int{}, r.SubstructureFingerprint)
	assert.Equal(t, []int64{42}, r.StructuralHash)
	require.NotNil(t, r.HasError)
	assert.False(t, *r.HasError)
	assert.Equal(t, []interface{}{"abc"}, r.SortCursor())
}

func TestFromDocument_MissingRecordIDKeepsFreshID(t *testing.T) {
	r, err := record.FromDocument(record.KindMolecule, record.Document{Source: json.RawMessage(`{"name":"x"}`)})
	require.NoError(t, err)
	assert.Len(t, r.ID(), 32)
	assert.Nil(t, r.SortCursor())
	assert.Nil(t, r.HasError)
}

func TestFromDocument_Errors(t *testing.T) {
	cases := []struct {
		name string
		kind record.Kind
		doc  record.Document
		code errors.ErrorCode
	}{
		{"no source", record.KindMolecule, record.Document{ID: "a"}, errors.ErrCodeInvalidDocument},
		{"null source", record.KindMolecule, record.Document{Source: json.RawMessage(`null`)}, errors.ErrCodeInvalidDocument},
		{"bad json", record.KindMolecule, record.Document{Source: json.RawMessage(`{"name": 3}`)}, errors.ErrCodeInvalidDocument},
		{"bad flag", record.KindMolecule, record.Document{Source: json.RawMessage(`{"has_error": 7}`)}, errors.ErrCodeInvalidDocument},
		{"bad kind", record.Kind("x"), record.Document{Source: json.RawMessage(`{}`)}, errors.CodeInvalidParam},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := record.FromDocument(tc.kind, tc.doc)
			assert.True(t, errors.IsCode(err, tc.code), "got %v", err)
		})
	}

	_, err := record.DecodeDocument(record.KindMolecule, []byte("not json"))
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidDocument))
}

func TestFromMapping(t *testing.T) {
	r, err := record.FromMapping(record.KindReactionTemplate, map[string]interface{}{
		record.FieldRecordID:             "tmpl-1",
		record.FieldHasError:             1,
		record.FieldOriginalTemplateText: "$RXN",
	}, record.WithSkipErrors())
	require.NoError(t, err)

	assert.Equal(t, "tmpl-1", r.ID())
	assert.True(t, *r.HasError)
	assert.Equal(t, "$RXN", r.OriginalTemplateText)
	assert.Equal(t, "skip", r.Policy().String())
}

// ─────────────────────────────────────────────────────────────────────────────
// Reconstruction
// ─────────────────────────────────────────────────────────────────────────────

func TestToStructureObject_RoundTripPreservesHash(t *testing.T) {
	s := chemfake.NewSession()
	for _, kind := range []record.Kind{record.KindMolecule, record.KindReaction} {
		obj := ethanolWithSalt(s)
		if kind == record.KindReaction {
			obj = esterification(s)
		}
		orig, err := record.New(kind, obj)
		require.NoError(t, err)

		rebuilt, err := orig.ToStructureObject(chemfake.NewSession())
		require.NoError(t, err)

		again, err := record.New(kind, rebuilt)
		require.NoError(t, err)
		assert.Equal(t, orig.StructuralHash, again.StructuralHash, kind)
		assert.Equal(t, orig.CanonicalForm, again.CanonicalForm, kind)
	}
}

func TestToStructureObject_EmptyCanonicalForm(t *testing.T) {
	r, err := record.FromMapping(record.KindMolecule, map[string]interface{}{"record_id": "x"})
	require.NoError(t, err)

	obj, err := r.ToStructureObject(chemfake.NewSession())
	assert.Nil(t, obj)
	assert.True(t, errors.IsCode(err, errors.ErrCodeReconstructionFailed))
	assert.Contains(t, err.Error(), "unexpected empty canonical form")
}

func TestToStructureObject_MalformedCanonicalForm(t *testing.T) {
	for _, cmf := range []string{"1 2 x", "1 256", "-1"} {
		r, err := record.FromMapping(record.KindMolecule, map[string]interface{}{"canonical_form": cmf})
		require.NoError(t, err)

		_, err = r.ToStructureObject(chemfake.NewSession())
		assert.True(t, errors.IsCode(err, errors.ErrCodeReconstructionFailed), cmf)
	}
}

func TestToStructureObject_DeserializeFailure(t *testing.T) {
	s := chemfake.NewSession()
	r, err := record.NewMolecule(s.Molecule("x", chemfake.Frag("C")))
	require.NoError(t, err)

	_, err = r.ToStructureObject(chemfake.NewSession().FailOn(chemfake.OpDeserialize))
	assert.True(t, errors.IsCode(err, errors.ErrCodeReconstructionFailed))
	assert.True(t, errors.Is(err, chemfake.ErrInjected))
}

func TestCanonicalFormCodec(t *testing.T) {
	data := []byte{0, 7, 255, 16}
	text := record.EncodeCanonicalForm(data)
	assert.Equal(t, "0 7 255 16", text)

	back, err := record.DecodeCanonicalForm(text)
	require.NoError(t, err)
	assert.Equal(t, data, back)
	assert.Equal(t, "", record.EncodeCanonicalForm(nil))
}

//Personal.AI order the ending
