package chemfake

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/turtacn/chemindex/internal/domain/structure"
)

// Object is a molecule or a reaction of a chemfake Session. Exactly one of
// mol and rxn is set.
type Object struct {
	s   *Session
	mol *molData
	rxn *reactionData
}

var _ structure.Object = (*Object)(nil)

// WithBadValence marks a molecule, or every component of a reaction, as
// having an invalid valence.
func (o *Object) WithBadValence() *Object {
	if o.mol != nil {
		o.mol.BadValence = true
	}
	if o.rxn != nil {
		for _, m := range append(append([]*molData{}, o.rxn.Reactants...), o.rxn.Products...) {
			m.BadValence = true
		}
	}
	return o
}

// Symbols returns the atom symbols of a molecule in index order.
func (o *Object) Symbols() []string {
	if o.mol == nil {
		return nil
	}
	out := make([]string, len(o.mol.Atoms))
	for i, a := range o.mol.Atoms {
		out[i] = a.Symbol
	}
	return out
}

// IsAromatic reports whether Aromatize ran on this object.
func (o *Object) IsAromatic() bool {
	return o.mol != nil && o.mol.Aromatic
}

func (o *Object) errNotMolecule(op Op) error {
	return fmt.Errorf("chemfake: %s: object is not a molecule", op)
}

func (o *Object) errNotReaction(op Op) error {
	return fmt.Errorf("chemfake: %s: object is not a reaction", op)
}

func (o *Object) molecules() []*molData {
	if o.mol != nil {
		return []*molData{o.mol}
	}
	return append(append([]*molData{}, o.rxn.Reactants...), o.rxn.Products...)
}

func (o *Object) Session() structure.Session { return o.s }

func (o *Object) Clone() (structure.Object, error) {
	if err := o.s.fail(OpClone); err != nil {
		return nil, err
	}
	if o.mol != nil {
		return &Object{s: o.s, mol: o.mol.copy()}, nil
	}
	return &Object{s: o.s, rxn: o.rxn.copy()}, nil
}

func (o *Object) Aromatize() error {
	if err := o.s.fail(OpAromatize); err != nil {
		return err
	}
	for _, m := range o.molecules() {
		m.Aromatic = true
	}
	return nil
}

func (o *Object) Fingerprint(kind structure.FingerprintKind) (string, error) {
	if err := o.s.fail(Op("fingerprint." + string(kind))); err != nil {
		return "", err
	}
	if text, ok := o.s.fingerprintOverride(kind); ok {
		return text, nil
	}
	return fingerprintBits(kind, o.molecules()), nil
}

func (o *Object) Serialize() ([]byte, error) {
	if err := o.s.fail(OpSerialize); err != nil {
		return nil, err
	}
	return json.Marshal(payload{Molecule: o.mol, Reaction: o.rxn})
}

func (o *Object) Name() (string, error) {
	if err := o.s.fail(OpName); err != nil {
		return "", err
	}
	if o.mol != nil {
		return o.mol.Name, nil
	}
	return o.rxn.Name, nil
}

func (o *Object) InternalType() (string, error) {
	if err := o.s.fail(OpInternalType); err != nil {
		return "", err
	}
	if tag := o.s.tagOverride(); tag != "" {
		return tag, nil
	}
	switch {
	case o.mol != nil && o.mol.Query:
		return structure.TagQueryMolecule, nil
	case o.mol != nil:
		return structure.TagMolecule, nil
	case o.rxn.Query:
		return structure.TagQueryReaction, nil
	default:
		return structure.TagReaction, nil
	}
}

func (o *Object) Components() ([]structure.Object, error) {
	if err := o.s.fail(OpComponents); err != nil {
		return nil, err
	}
	if o.mol == nil {
		return nil, o.errNotMolecule(OpComponents)
	}
	var out []structure.Object
	for _, f := range o.mol.fragments() {
		m := &molData{Name: o.mol.Name, Query: o.mol.Query, Aromatic: o.mol.Aromatic, BadValence: o.mol.BadValence}
		for _, a := range f {
			a.Fragment = 0
			m.Atoms = append(m.Atoms, a)
		}
		out = append(out, &Object{s: o.s, mol: m})
	}
	return out, nil
}

func (o *Object) Hash() (int64, error) {
	if err := o.s.fail(OpHash); err != nil {
		return 0, err
	}
	if o.mol != nil {
		return hashKey(o.mol.key()), nil
	}
	return hashKey(o.rxn.key()), nil
}

func (o *Object) HasBadValence() (bool, error) {
	if err := o.s.fail(OpValence); err != nil {
		return false, err
	}
	for _, m := range o.molecules() {
		if m.BadValence {
			return true, nil
		}
	}
	return false, nil
}

func (o *Object) Atoms() ([]structure.Atom, error) {
	if err := o.s.fail(OpAtoms); err != nil {
		return nil, err
	}
	if o.mol == nil {
		return nil, o.errNotMolecule(OpAtoms)
	}
	out := make([]structure.Atom, len(o.mol.Atoms))
	for i := range o.mol.Atoms {
		out[i] = &atom{obj: o, idx: i}
	}
	return out, nil
}

func (o *Object) RemoveAtoms(indices []int) error {
	if err := o.s.fail(OpRemoveAtoms); err != nil {
		return err
	}
	if o.mol == nil {
		return o.errNotMolecule(OpRemoveAtoms)
	}
	drop := make(map[int]struct{}, len(indices))
	for _, i := range indices {
		if i < 0 || i >= len(o.mol.Atoms) {
			return fmt.Errorf("chemfake: atom index %d out of range", i)
		}
		drop[i] = struct{}{}
	}
	kept := o.mol.Atoms[:0:0]
	for i, a := range o.mol.Atoms {
		if _, ok := drop[i]; !ok {
			kept = append(kept, a)
		}
	}
	o.mol.Atoms = kept
	return nil
}

func (o *Object) CountAtoms() (int, error) {
	if err := o.s.fail(OpCountAtoms); err != nil {
		return 0, err
	}
	if o.mol == nil {
		return 0, o.errNotMolecule(OpCountAtoms)
	}
	return len(o.mol.Atoms), nil
}

func (o *Object) side(op Op, mols []*molData) ([]structure.Object, error) {
	if err := o.s.fail(op); err != nil {
		return nil, err
	}
	out := make([]structure.Object, len(mols))
	for i, m := range mols {
		out[i] = &Object{s: o.s, mol: m}
	}
	return out, nil
}

func (o *Object) Reactants() ([]structure.Object, error) {
	if o.rxn == nil {
		return nil, o.errNotReaction(OpReactants)
	}
	return o.side(OpReactants, o.rxn.Reactants)
}

func (o *Object) Products() ([]structure.Object, error) {
	if o.rxn == nil {
		return nil, o.errNotReaction(OpProducts)
	}
	return o.side(OpProducts, o.rxn.Products)
}

func (o *Object) add(mol structure.Object, to *[]*molData) error {
	if err := o.s.fail(OpAddComponent); err != nil {
		return err
	}
	if o.rxn == nil {
		return o.errNotReaction(OpAddComponent)
	}
	fm, ok := mol.(*Object)
	if !ok || fm.mol == nil {
		return fmt.Errorf("chemfake: can only add chemfake molecules")
	}
	*to = append(*to, fm.mol.copy())
	return nil
}

func (o *Object) AddReactant(mol structure.Object) error {
	if o.rxn == nil {
		return o.errNotReaction(OpAddComponent)
	}
	return o.add(mol, &o.rxn.Reactants)
}

func (o *Object) AddProduct(mol structure.Object) error {
	if o.rxn == nil {
		return o.errNotReaction(OpAddComponent)
	}
	return o.add(mol, &o.rxn.Products)
}

func (o *Object) CountReactants() (int, error) {
	if o.rxn == nil {
		return 0, o.errNotReaction(OpReactants)
	}
	return len(o.rxn.Reactants), nil
}

func (o *Object) CountProducts() (int, error) {
	if o.rxn == nil {
		return 0, o.errNotReaction(OpProducts)
	}
	return len(o.rxn.Products), nil
}

func (o *Object) Rxnfile() (string, error) {
	if err := o.s.fail(OpRxnfile); err != nil {
		return "", err
	}
	if o.rxn == nil {
		return "", o.errNotReaction(OpRxnfile)
	}
	return encodeRxn(o.rxn)
}

// ─────────────────────────────────────────────────────────────────────────────
// atom
// ─────────────────────────────────────────────────────────────────────────────

type atom struct {
	obj *Object
	idx int
}

func (a *atom) data() *atomData { return &a.obj.mol.Atoms[a.idx] }

func (a *atom) Index() int { return a.idx }

func (a *atom) IsPseudoatom() (bool, error) {
	if err := a.obj.s.fail(OpAtoms); err != nil {
		return false, err
	}
	return a.data().Pseudo, nil
}

func (a *atom) IsRSite() (bool, error) {
	if err := a.obj.s.fail(OpAtoms); err != nil {
		return false, err
	}
	return a.data().RSite, nil
}

func (a *atom) Symbol() (string, error) {
	if err := a.obj.s.fail(OpAtoms); err != nil {
		return "", err
	}
	return a.data().Symbol, nil
}

func (a *atom) RemoveConstraints(kind string) error {
	if err := a.obj.s.fail(OpAtoms); err != nil {
		return err
	}
	d := a.data()
	kept := d.Constraints[:0]
	for _, c := range d.Constraints {
		if c != kind {
			kept = append(kept, c)
		}
	}
	d.Constraints = kept
	return nil
}

// Constraints returns the remaining constraints of the atom at index i.
func (o *Object) Constraints(i int) []string {
	if o.mol == nil || i < 0 || i >= len(o.mol.Atoms) {
		return nil
	}
	out := append([]string(nil), o.mol.Atoms[i].Constraints...)
	sort.Strings(out)
	return out
}

//Personal.AI order the ending
