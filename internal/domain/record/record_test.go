package record_test

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/chemindex/internal/domain/record"
	"github.com/turtacn/chemindex/internal/domain/structure"
	"github.com/turtacn/chemindex/internal/testutil/chemfake"
	"github.com/turtacn/chemindex/pkg/errors"
)

func ethanolWithSalt(s *chemfake.Session) *chemfake.Object {
	return s.Molecule("ethanol sodium chloride",
		chemfake.Frag("C", "C", "O"),
		chemfake.Frag("Na"),
		chemfake.Frag("Cl"),
	)
}

func esterification(s *chemfake.Session) *chemfake.Object {
	return s.Reaction("esterification",
		[]*chemfake.Object{s.Molecule("acid", chemfake.Frag("C", "C", "O", "O")), s.Molecule("ethanol", chemfake.Frag("C", "C", "O"))},
		[]*chemfake.Object{s.Molecule("ester", chemfake.Frag("C", "C", "O", "O", "C", "C"))},
	)
}

// ─────────────────────────────────────────────────────────────────────────────
// Construction from structures
// ─────────────────────────────────────────────────────────────────────────────

func TestNewMolecule_PopulatesEveryDescriptor(t *testing.T) {
	s := chemfake.NewSession()

	r, err := record.NewMolecule(ethanolWithSalt(s))
	require.NoError(t, err)

	assert.Len(t, r.ID(), 32)
	assert.Equal(t, record.KindMolecule, r.Kind())
	assert.Equal(t, "ethanol sodium chloride", r.Name)
	assert.NotEmpty(t, r.CanonicalForm)
	assert.NotEmpty(t, r.SimilarityFingerprint)
	assert.Equal(t, len(r.SimilarityFingerprint), r.SimilarityFingerprintLen)
	assert.NotEmpty(t, r.SubstructureFingerprint)
	assert.Equal(t, len(r.SubstructureFingerprint), r.SubstructureFingerprintLen)
	assert.IsNonDecreasing(t, r.SimilarityFingerprint)
	require.Len(t, r.StructuralHash, 3)
	assert.IsIncreasing(t, r.StructuralHash)
	require.NotNil(t, r.HasError)
	assert.False(t, *r.HasError)
	assert.True(t, r.Valid())
	assert.Empty(t, r.OriginalTemplateText)
	assert.Equal(t, "propagate", r.Policy().String())
}

func TestNewMolecule_DoesNotModifyInput(t *testing.T) {
	s := chemfake.NewSession()
	mol := ethanolWithSalt(s)

	_, err := record.NewMolecule(mol)
	require.NoError(t, err)
	assert.False(t, mol.IsAromatic(), "aromatization must run on a clone")
}

func TestNewMolecule_IDsAreUnique(t *testing.T) {
	s := chemfake.NewSession()
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		r, err := record.NewMolecule(s.Molecule("water", chemfake.Frag("O")))
		require.NoError(t, err)
		assert.False(t, seen[r.ID()])
		seen[r.ID()] = true
	}
}

func TestNewMolecule_HashInvariantUnderComponentOrder(t *testing.T) {
	s := chemfake.NewSession()
	a := s.Molecule("salt", chemfake.Frag("Na"), chemfake.Frag("Cl"), chemfake.Frag("C", "O"))
	b := s.Molecule("salt", chemfake.Frag("C", "O"), chemfake.Frag("Cl"), chemfake.Frag("Na"))

	ra, err := record.NewMolecule(a)
	require.NoError(t, err)
	rb, err := record.NewMolecule(b)
	require.NoError(t, err)

	assert.Equal(t, ra.StructuralHash, rb.StructuralHash)
}

func TestNewMolecule_DuplicateComponentsHashOnce(t *testing.T) {
	s := chemfake.NewSession()
	r, err := record.NewMolecule(s.Molecule("2 NaCl",
		chemfake.Frag("Na"), chemfake.Frag("Cl"), chemfake.Frag("Na"), chemfake.Frag("Cl")))
	require.NoError(t, err)
	assert.Len(t, r.StructuralHash, 2)
}

func TestNewMolecule_BadValenceSetsFlag(t *testing.T) {
	s := chemfake.NewSession()
	r, err := record.NewMolecule(s.Molecule("pentavalent carbon", chemfake.Frag("C")).WithBadValence())
	require.NoError(t, err)
	require.NotNil(t, r.HasError)
	assert.True(t, *r.HasError)
	assert.False(t, r.Valid())
}

func TestNewMolecule_WithNameOverridesExtractedName(t *testing.T) {
	s := chemfake.NewSession()
	r, err := record.NewMolecule(s.Molecule("extracted", chemfake.Frag("C")), record.WithName("given"))
	require.NoError(t, err)
	assert.Equal(t, "given", r.Name)
}

func TestNewMolecule_WithIDGenerator(t *testing.T) {
	s := chemfake.NewSession()
	r, err := record.NewMolecule(s.Molecule("methane", chemfake.Frag("C")),
		record.WithIDGenerator(func() string { return "fixed-id" }))
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", r.ID())
}

func TestNewReaction_SingleHash(t *testing.T) {
	s := chemfake.NewSession()
	r, err := record.NewReaction(esterification(s))
	require.NoError(t, err)

	assert.Equal(t, record.KindReaction, r.Kind())
	assert.Len(t, r.StructuralHash, 1)
	assert.NotEmpty(t, r.SimilarityFingerprint)
	assert.Equal(t, "esterification", r.Name)
}

func TestNew_DispatchesByKind(t *testing.T) {
	s := chemfake.NewSession()

	r, err := record.New(record.KindReaction, esterification(s))
	require.NoError(t, err)
	assert.Equal(t, record.KindReaction, r.Kind())

	_, err = record.New(record.Kind("polymer"), esterification(s))
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
}

func TestNewMolecule_UnknownTypeTagLeavesHashUnset(t *testing.T) {
	s := chemfake.NewSession().OverrideInternalType("#09: <mapping>")
	r, err := record.NewMolecule(s.Molecule("x", chemfake.Frag("C")))
	require.NoError(t, err)
	assert.Nil(t, r.StructuralHash)
	_, present := r.ToMapping()[record.FieldStructuralHash]
	assert.False(t, present)
}

func TestNewMolecule_NumberedButUnknownTagLeavesHashUnset(t *testing.T) {
	s := chemfake.NewSession().OverrideInternalType("#02: <molecule v2>")
	r, err := record.NewMolecule(s.Molecule("x", chemfake.Frag("C")))
	require.NoError(t, err)
	assert.Nil(t, r.StructuralHash)
}

func TestNewMolecule_VerbatimQueryReactionTagIsMolecular(t *testing.T) {
	s := chemfake.NewSession().OverrideInternalType(structure.TagQueryReactionAlias)
	r, err := record.NewMolecule(s.Molecule("x", chemfake.Frag("C"), chemfake.Frag("O")))
	require.NoError(t, err)
	assert.Len(t, r.StructuralHash, 2)
}

func TestNewMolecule_EmptyFingerprintKeepsDefaults(t *testing.T) {
	s := chemfake.NewSession().OverrideFingerprint(structure.FingerprintSimilarity, "")
	r, err := record.NewMolecule(s.Molecule("x", chemfake.Frag("C")))
	require.NoError(t, err)
	assert.Equal(t, []int{}, r.SimilarityFingerprint)
	assert.Zero(t, r.SimilarityFingerprintLen)
	assert.NotEmpty(t, r.SubstructureFingerprint)
}

// ─────────────────────────────────────────────────────────────────────────────
// Reaction templates
// ─────────────────────────────────────────────────────────────────────────────

func TestNewReactionTemplate_SanitizesAndKeepsOriginal(t *testing.T) {
	s := chemfake.NewSession()
	tmpl := s.QueryReaction("amide coupling",
		[]*chemfake.Object{
			s.QueryMolecule("acid", chemfake.Fragment{chemfake.Q("C"), chemfake.A("O"), chemfake.RSite()}),
			s.QueryMolecule("amine", chemfake.Fragment{chemfake.A("N"), chemfake.A("*")}),
		},
		[]*chemfake.Object{
			s.QueryMolecule("amide", chemfake.Fragment{chemfake.A("C"), chemfake.A("N"), chemfake.Pseudo("Ph")}),
		},
	)
	original, err := tmpl.Rxnfile()
	require.NoError(t, err)

	r, err := record.NewReactionTemplate(tmpl)
	require.NoError(t, err)

	assert.Equal(t, record.KindReactionTemplate, r.Kind())
	assert.Equal(t, original, r.OriginalTemplateText)
	assert.Len(t, r.StructuralHash, 1)
	assert.NotEmpty(t, r.CanonicalForm)

	after, err := tmpl.Rxnfile()
	require.NoError(t, err)
	assert.Equal(t, original, after, "the caller's template must not change")

	m := r.ToMapping()
	assert.Equal(t, original, m[record.FieldOriginalTemplateText])
}

func TestNewReactionTemplate_AllWildcardsFails(t *testing.T) {
	s := chemfake.NewSession()
	tmpl := s.QueryReaction("nothing concrete",
		[]*chemfake.Object{s.QueryMolecule("r", chemfake.Fragment{chemfake.A("A"), chemfake.A("Q"), chemfake.RSite()})},
		[]*chemfake.Object{s.QueryMolecule("p", chemfake.Fragment{chemfake.A("*"), chemfake.A("[C,N]"), chemfake.Pseudo("Ar")})},
	)

	for _, opt := range []record.Option{record.WithSkipErrors(), record.WithErrorPolicy(record.Propagate())} {
		r, err := record.NewReactionTemplate(tmpl, opt)
		assert.Nil(t, r)
		assert.True(t, errors.IsCode(err, errors.ErrCodeSanitizationFailed))
		assert.True(t, errors.Is(err, structure.ErrNoUsableComponents))
	}
}

func TestNewReactionTemplate_OriginalTextFailure(t *testing.T) {
	s := chemfake.NewSession()
	tmpl := s.QueryReaction("t",
		[]*chemfake.Object{s.QueryMolecule("r", chemfake.Frag("C"))}, nil)

	// Sanitization itself renders rxnfile, so the failure surfaces there first.
	s.FailOn(chemfake.OpRxnfile)
	_, err := record.NewReactionTemplate(tmpl, record.WithSkipErrors())
	assert.True(t, errors.IsCode(err, errors.ErrCodeStructureBackendFailure))
}

// ─────────────────────────────────────────────────────────────────────────────
// Kinds and bit lists
// ─────────────────────────────────────────────────────────────────────────────

func TestParseKind(t *testing.T) {
	cases := map[string]record.Kind{
		"molecule":          record.KindMolecule,
		"MOL":               record.KindMolecule,
		"reactions":         record.KindReaction,
		"rxn":               record.KindReaction,
		"template":          record.KindReactionTemplate,
		"reaction-template": record.KindReactionTemplate,
	}
	for in, want := range cases {
		got, err := record.ParseKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := record.ParseKind("protein")
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
	assert.Len(t, record.Kinds(), 3)
}

func TestParseBitList(t *testing.T) {
	bits, err := record.ParseBitList("12 3  7\n")
	require.NoError(t, err)
	assert.Equal(t, []int{3, 7, 12}, bits)

	bits, err = record.ParseBitList("   ")
	require.NoError(t, err)
	assert.Nil(t, bits)

	_, err = record.ParseBitList("1 x 3")
	assert.Error(t, err)

	_, err = record.ParseBitList("1 -3")
	assert.ErrorIs(t, err, strconv.ErrRange)

	bits, err = record.ParseBitList("9 2 9")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 9, 9}, bits)
}

//Personal.AI order the ending
