package structure

import (
	"strings"

	"github.com/turtacn/chemindex/pkg/errors"
)

// ambiguousSymbols are generic and list atom symbols that cannot be indexed as
// concrete atoms.
var ambiguousSymbols = map[string]struct{}{
	"A": {}, "Q": {}, "X": {}, "M": {},
	"AH": {}, "QH": {}, "XH": {}, "MH": {},
	"NOT": {}, "R": {}, "*": {},
}

// ErrNoUsableComponents is returned when every reactant and product of a
// reaction template is emptied by sanitization.
var ErrNoUsableComponents = errors.New(errors.ErrCodeSanitizationFailed,
	"at least one reactant or product must contain a non-query atom in the reaction template")

// IsAmbiguousSymbol reports whether an atom symbol is a wildcard, a generic
// group or an atom list such as "[C,N]".
func IsAmbiguousSymbol(symbol string) bool {
	if _, ok := ambiguousSymbols[symbol]; ok {
		return true
	}
	return strings.Contains(symbol, "[") && strings.Contains(symbol, "]")
}

// SanitizeQueryMolecule removes pseudo-atoms, R-sites and ambiguous atoms from
// mol in place and returns it. Substituent-count constraints are dropped from
// the atoms that stay. Removal happens once, after every atom was inspected,
// so indices stay valid during the scan.
func SanitizeQueryMolecule(mol Object) (Object, error) {
	atoms, err := mol.Atoms()
	if err != nil {
		return nil, backendError(err, "iterate atoms")
	}

	var remove []int
	for _, atom := range atoms {
		drop, err := shouldDrop(atom)
		if err != nil {
			return nil, err
		}
		if drop {
			remove = append(remove, atom.Index())
		}
	}

	if len(remove) > 0 {
		if err := mol.RemoveAtoms(remove); err != nil {
			return nil, backendError(err, "remove atoms")
		}
	}
	return mol, nil
}

func shouldDrop(atom Atom) (bool, error) {
	pseudo, err := atom.IsPseudoatom()
	if err != nil {
		return false, backendError(err, "pseudoatom check")
	}
	if pseudo {
		return true, nil
	}
	rsite, err := atom.IsRSite()
	if err != nil {
		return false, backendError(err, "r-site check")
	}
	if rsite {
		return true, nil
	}

	for _, c := range []string{ConstraintSubstituents, ConstraintSubstituentsAsDrawn} {
		if err := atom.RemoveConstraints(c); err != nil {
			return false, backendError(err, "remove constraints "+c)
		}
	}
	symbol, err := atom.Symbol()
	if err != nil {
		return false, backendError(err, "atom symbol")
	}
	return IsAmbiguousSymbol(symbol), nil
}

// SanitizeQueryReaction builds a concrete-like copy of a reaction template.
// Every reactant and product is cloned and sanitized; components left without
// atoms are dropped. The result is round-tripped through rxnfile text so the
// returned object is a plain reaction of rxn's session. rxn is not modified.
func SanitizeQueryReaction(rxn Object) (Object, error) {
	session := rxn.Session()
	cleaned, err := session.CreateQueryReaction()
	if err != nil {
		return nil, backendError(err, "create query reaction")
	}

	reactants, err := rxn.Reactants()
	if err != nil {
		return nil, backendError(err, "iterate reactants")
	}
	if err := addSanitized(reactants, cleaned.AddReactant); err != nil {
		return nil, err
	}

	products, err := rxn.Products()
	if err != nil {
		return nil, backendError(err, "iterate products")
	}
	if err := addSanitized(products, cleaned.AddProduct); err != nil {
		return nil, err
	}

	nr, err := cleaned.CountReactants()
	if err != nil {
		return nil, backendError(err, "count reactants")
	}
	np, err := cleaned.CountProducts()
	if err != nil {
		return nil, backendError(err, "count products")
	}
	if nr == 0 && np == 0 {
		return nil, ErrNoUsableComponents
	}

	text, err := cleaned.Rxnfile()
	if err != nil {
		return nil, backendError(err, "render rxnfile")
	}
	loaded, err := session.LoadReaction(text)
	if err != nil {
		return nil, backendError(err, "reload reaction")
	}
	return loaded, nil
}

func addSanitized(mols []Object, add func(Object) error) error {
	for _, mol := range mols {
		clone, err := mol.Clone()
		if err != nil {
			return backendError(err, "clone component")
		}
		if _, err := SanitizeQueryMolecule(clone); err != nil {
			return err
		}
		n, err := clone.CountAtoms()
		if err != nil {
			return backendError(err, "count atoms")
		}
		if n == 0 {
			continue
		}
		if err := add(clone); err != nil {
			return backendError(err, "add component")
		}
	}
	return nil
}

func backendError(err error, op string) error {
	return errors.Wrap(err, errors.ErrCodeStructureBackendFailure, "sanitize: "+op)
}

//Personal.AI order the ending
