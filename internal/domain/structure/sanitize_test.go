package structure_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/chemindex/internal/domain/structure"
	"github.com/turtacn/chemindex/internal/testutil/chemfake"
	"github.com/turtacn/chemindex/pkg/errors"
)

func TestIsAmbiguousSymbol(t *testing.T) {
	for _, sym := range []string{"A", "Q", "X", "M", "AH", "QH", "XH", "MH", "NOT", "R", "*", "[C,N]", "[#6]"} {
		assert.True(t, structure.IsAmbiguousSymbol(sym), sym)
	}
	for _, sym := range []string{"C", "N", "Cl", "Na", "[C", "C]", "Ar"} {
		assert.False(t, structure.IsAmbiguousSymbol(sym), sym)
	}
}

func TestSanitizeQueryMolecule_QueryAtomAndCarbon(t *testing.T) {
	s := chemfake.NewSession()
	mol := s.QueryMolecule("q", chemfake.Fragment{chemfake.A("Q"), chemfake.A("C")})

	out, err := structure.SanitizeQueryMolecule(mol)
	require.NoError(t, err)
	assert.Same(t, mol, out, "molecule is cleaned in place")
	assert.Equal(t, []string{"C"}, mol.Symbols())
}

func TestSanitizeQueryMolecule_RemovesEveryQueryFeature(t *testing.T) {
	s := chemfake.NewSession()
	mol := s.QueryMolecule("q", chemfake.Fragment{
		chemfake.A("*"),
		chemfake.Q("C"),
		chemfake.RSite(),
		chemfake.A("[C,N]"),
		chemfake.Pseudo("Ph"),
		chemfake.A("N"),
		chemfake.A("NOT"),
		chemfake.Q("O"),
	})

	_, err := structure.SanitizeQueryMolecule(mol)
	require.NoError(t, err)

	assert.Equal(t, []string{"C", "N", "O"}, mol.Symbols())
	for i := range mol.Symbols() {
		assert.Empty(t, mol.Constraints(i), "substituent constraints are dropped")
	}
}

func TestSanitizeQueryMolecule_ConsecutiveRemovals(t *testing.T) {
	s := chemfake.NewSession()
	mol := s.QueryMolecule("q", chemfake.Fragment{
		chemfake.A("A"), chemfake.A("A"), chemfake.A("C"), chemfake.A("X"), chemfake.A("X"),
	})

	_, err := structure.SanitizeQueryMolecule(mol)
	require.NoError(t, err)
	assert.Equal(t, []string{"C"}, mol.Symbols())
}

func TestSanitizeQueryMolecule_BackendFailure(t *testing.T) {
	for _, op := range []chemfake.Op{chemfake.OpAtoms, chemfake.OpRemoveAtoms} {
		s := chemfake.NewSession()
		mol := s.QueryMolecule("q", chemfake.Fragment{chemfake.A("Q"), chemfake.A("C")})
		s.FailOn(op)

		_, err := structure.SanitizeQueryMolecule(mol)
		assert.True(t, errors.IsCode(err, errors.ErrCodeStructureBackendFailure), op)
	}
}

func TestSanitizeQueryReaction_KeepsConcreteAtoms(t *testing.T) {
	s := chemfake.NewSession()
	rxn := s.QueryReaction("t",
		[]*chemfake.Object{
			s.QueryMolecule("r1", chemfake.Fragment{chemfake.A("C"), chemfake.A("O"), chemfake.RSite()}),
			s.QueryMolecule("r2", chemfake.Fragment{chemfake.A("*"), chemfake.A("A")}),
		},
		[]*chemfake.Object{
			s.QueryMolecule("p1", chemfake.Fragment{chemfake.A("C"), chemfake.Pseudo("Ar"), chemfake.A("N")}),
		},
	)
	before := countAtoms(t, rxn)

	out, err := structure.SanitizeQueryReaction(rxn)
	require.NoError(t, err)

	nr, _ := out.CountReactants()
	np, _ := out.CountProducts()
	assert.Equal(t, 1, nr, "the all-wildcard reactant is dropped")
	assert.Equal(t, 1, np)
	assert.LessOrEqual(t, countAtoms(t, out), before)

	tag, err := out.InternalType()
	require.NoError(t, err)
	assert.Equal(t, structure.TagReaction, tag)

	for _, side := range [][]structure.Object{mustSide(t, out.Reactants), mustSide(t, out.Products)} {
		for _, mol := range side {
			atoms, err := mol.Atoms()
			require.NoError(t, err)
			for _, a := range atoms {
				pseudo, _ := a.IsPseudoatom()
				rsite, _ := a.IsRSite()
				sym, _ := a.Symbol()
				assert.False(t, pseudo)
				assert.False(t, rsite)
				assert.False(t, structure.IsAmbiguousSymbol(sym), sym)
			}
		}
	}

	assert.Equal(t, before, countAtoms(t, rxn), "input reaction is untouched")
}

func TestSanitizeQueryReaction_OnlyProductsSurvive(t *testing.T) {
	s := chemfake.NewSession()
	rxn := s.QueryReaction("t",
		[]*chemfake.Object{s.QueryMolecule("r", chemfake.Fragment{chemfake.A("Q")})},
		[]*chemfake.Object{s.QueryMolecule("p", chemfake.Frag("C"))},
	)

	out, err := structure.SanitizeQueryReaction(rxn)
	require.NoError(t, err)
	nr, _ := out.CountReactants()
	assert.Zero(t, nr)
}

func TestSanitizeQueryReaction_NothingLeft(t *testing.T) {
	s := chemfake.NewSession()
	rxn := s.QueryReaction("t",
		[]*chemfake.Object{s.QueryMolecule("r", chemfake.Fragment{chemfake.A("A"), chemfake.RSite()})},
		[]*chemfake.Object{s.QueryMolecule("p", chemfake.Fragment{chemfake.Pseudo("Ph")})},
	)

	out, err := structure.SanitizeQueryReaction(rxn)
	assert.Nil(t, out)
	assert.Same(t, structure.ErrNoUsableComponents, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSanitizationFailed))
}

func TestSanitizeQueryReaction_BackendFailures(t *testing.T) {
	for _, op := range []chemfake.Op{
		chemfake.OpCreateQueryReaction, chemfake.OpReactants, chemfake.OpProducts,
		chemfake.OpClone, chemfake.OpCountAtoms, chemfake.OpAddComponent,
		chemfake.OpRxnfile, chemfake.OpLoad,
	} {
		s := chemfake.NewSession()
		rxn := s.QueryReaction("t",
			[]*chemfake.Object{s.QueryMolecule("r", chemfake.Frag("C"))},
			[]*chemfake.Object{s.QueryMolecule("p", chemfake.Frag("N"))},
		)
		s.FailOn(op)

		_, err := structure.SanitizeQueryReaction(rxn)
		assert.True(t, errors.IsCode(err, errors.ErrCodeStructureBackendFailure), op)
	}
}

func countAtoms(t *testing.T, rxn structure.Object) int {
	t.Helper()
	total := 0
	for _, side := range [][]structure.Object{mustSide(t, rxn.Reactants), mustSide(t, rxn.Products)} {
		for _, mol := range side {
			n, err := mol.CountAtoms()
			require.NoError(t, err)
			total += n
		}
	}
	return total
}

func mustSide(t *testing.T, fn func() ([]structure.Object, error)) []structure.Object {
	t.Helper()
	mols, err := fn()
	require.NoError(t, err)
	return mols
}

//Personal.AI order the ending
