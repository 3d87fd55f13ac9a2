// Package chemfake is an in-memory structure toolkit with failure injection.
// It implements structure.Session and structure.Object over a tiny molecule
// model: atoms grouped into fragments, reactions as reactant and product
// lists. It exists for tests and for the "memory" toolkit name.
package chemfake

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/turtacn/chemindex/internal/domain/structure"
)

// Op names a toolkit call that can be made to fail.
type Op string

const (
	OpClone               Op = "clone"
	OpAromatize           Op = "aromatize"
	OpFingerprintSim      Op = "fingerprint.sim"
	OpFingerprintSub      Op = "fingerprint.sub"
	OpSerialize           Op = "serialize"
	OpName                Op = "name"
	OpInternalType        Op = "internal_type"
	OpComponents          Op = "components"
	OpHash                Op = "hash"
	OpValence             Op = "valence"
	OpAtoms               Op = "atoms"
	OpRemoveAtoms         Op = "remove_atoms"
	OpCountAtoms          Op = "count_atoms"
	OpReactants           Op = "reactants"
	OpProducts            Op = "products"
	OpAddComponent        Op = "add_component"
	OpRxnfile             Op = "rxnfile"
	OpCreateQueryReaction Op = "create_query_reaction"
	OpLoad                Op = "load"
	OpDeserialize         Op = "deserialize"
)

// AllOps lists every injectable operation.
var AllOps = []Op{
	OpClone, OpAromatize, OpFingerprintSim, OpFingerprintSub, OpSerialize, OpName,
	OpInternalType, OpComponents, OpHash, OpValence, OpAtoms, OpRemoveAtoms,
	OpCountAtoms, OpReactants, OpProducts, OpAddComponent, OpRxnfile,
	OpCreateQueryReaction, OpLoad, OpDeserialize,
}

// PopulationOps lists the calls made while extracting descriptors from an
// already constructed object.
var PopulationOps = []Op{
	OpClone, OpAromatize, OpFingerprintSim, OpFingerprintSub, OpSerialize,
	OpName, OpInternalType, OpComponents, OpHash, OpValence,
}

// ErrInjected is the default injected failure.
var ErrInjected = errors.New("chemfake: injected failure")

// ToolkitName is the registry name of the in-memory toolkit.
const ToolkitName = "memory"

var registerOnce sync.Once

// Register installs the in-memory toolkit under ToolkitName. It is idempotent.
func Register() {
	registerOnce.Do(func() {
		structure.Register(ToolkitName, func() (structure.Session, error) {
			return NewSession(), nil
		})
	})
}

// Session is an in-memory toolkit session. Failure injection applies to every
// object created from it.
type Session struct {
	mu           sync.RWMutex
	failures     map[Op]error
	fingerprints map[structure.FingerprintKind]string
	tag          string
}

var (
	_ structure.Session      = (*Session)(nil)
	_ structure.FormatLoader = (*Session)(nil)
)

// NewSession returns a session with no injected failures.
func NewSession() *Session {
	return &Session{
		failures:     map[Op]error{},
		fingerprints: map[structure.FingerprintKind]string{},
	}
}

// FailOn makes the listed operations return ErrInjected.
func (s *Session) FailOn(ops ...Op) *Session {
	for _, op := range ops {
		s.FailWith(op, ErrInjected)
	}
	return s
}

// FailWith makes op return err.
func (s *Session) FailWith(op Op, err error) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
	return s
}

// Heal removes every injected failure.
func (s *Session) Heal() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = map[Op]error{}
	return s
}

// OverrideFingerprint makes Fingerprint(kind) return text verbatim.
func (s *Session) OverrideFingerprint(kind structure.FingerprintKind, text string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fingerprints[kind] = text
	return s
}

// OverrideInternalType makes InternalType return tag for every object.
func (s *Session) OverrideInternalType(tag string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tag = tag
	return s
}

func (s *Session) fail(op Op) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err, ok := s.failures[op]; ok {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Session) fingerprintOverride(kind structure.FingerprintKind) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	text, ok := s.fingerprints[kind]
	return text, ok
}

func (s *Session) tagOverride() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tag
}

// ─────────────────────────────────────────────────────────────────────────────
// Fixture builders
// ─────────────────────────────────────────────────────────────────────────────

// Molecule builds a molecule with one connected component per fragment.
func (s *Session) Molecule(name string, fragments ...Fragment) *Object {
	return &Object{s: s, mol: newMolData(name, false, fragments)}
}

// QueryMolecule builds a query molecule.
func (s *Session) QueryMolecule(name string, fragments ...Fragment) *Object {
	return &Object{s: s, mol: newMolData(name, true, fragments)}
}

// Reaction builds a reaction from molecule objects.
func (s *Session) Reaction(name string, reactants, products []*Object) *Object {
	return &Object{s: s, rxn: buildReaction(name, false, reactants, products)}
}

// QueryReaction builds a reaction template from molecule objects.
func (s *Session) QueryReaction(name string, reactants, products []*Object) *Object {
	return &Object{s: s, rxn: buildReaction(name, true, reactants, products)}
}

func buildReaction(name string, query bool, reactants, products []*Object) *reactionData {
	r := &reactionData{Name: name, Query: query}
	for _, o := range reactants {
		r.Reactants = append(r.Reactants, o.mol.copy())
	}
	for _, o := range products {
		r.Products = append(r.Products, o.mol.copy())
	}
	return r
}

// ─────────────────────────────────────────────────────────────────────────────
// structure.Session
// ─────────────────────────────────────────────────────────────────────────────

func (s *Session) CreateQueryReaction() (structure.Object, error) {
	if err := s.fail(OpCreateQueryReaction); err != nil {
		return nil, err
	}
	return &Object{s: s, rxn: &reactionData{Query: true}}, nil
}

func (s *Session) LoadMolecule(text string) (structure.Object, error) {
	if err := s.fail(OpLoad); err != nil {
		return nil, err
	}
	m, err := parseMolecule(text)
	if err != nil {
		return nil, err
	}
	return &Object{s: s, mol: m}, nil
}

func (s *Session) LoadReaction(text string) (structure.Object, error) {
	return s.loadReaction(text, false)
}

func (s *Session) LoadQueryReaction(text string) (structure.Object, error) {
	return s.loadReaction(text, true)
}

func (s *Session) loadReaction(text string, query bool) (structure.Object, error) {
	if err := s.fail(OpLoad); err != nil {
		return nil, err
	}
	r, err := decodeRxn(text)
	if err != nil {
		return nil, err
	}
	return &Object{s: s, rxn: markQuery(r, query)}, nil
}

func markQuery(r *reactionData, query bool) *reactionData {
	r.Query = query
	for _, m := range append(append([]*molData{}, r.Reactants...), r.Products...) {
		m.Query = query
	}
	return r
}

// LoadMoleculeAs parses molecule text in an explicit format. "molfile" is
// the fixture notation read by LoadMolecule.
func (s *Session) LoadMoleculeAs(format, text string) (structure.Object, error) {
	if err := s.fail(OpLoad); err != nil {
		return nil, err
	}
	var (
		m   *molData
		err error
	)
	switch format {
	case structure.FormatSMILES, structure.FormatSMARTS:
		m, err = parseSMILES(text)
	case structure.FormatMolfile:
		m, err = parseMolecule(text)
	default:
		return nil, fmt.Errorf("chemfake: unsupported molecule format %q", format)
	}
	if err != nil {
		return nil, err
	}
	m.Query = format == structure.FormatSMARTS
	return &Object{s: s, mol: m}, nil
}

func (s *Session) LoadReactionAs(format, text string) (structure.Object, error) {
	return s.loadReactionAs(format, text, false)
}

func (s *Session) LoadQueryReactionAs(format, text string) (structure.Object, error) {
	return s.loadReactionAs(format, text, true)
}

func (s *Session) loadReactionAs(format, text string, query bool) (structure.Object, error) {
	switch format {
	case structure.FormatRxnfile:
		return s.loadReaction(text, query)
	case structure.FormatSMILES, structure.FormatSMARTS:
	default:
		return nil, fmt.Errorf("chemfake: unsupported reaction format %q", format)
	}
	if err := s.fail(OpLoad); err != nil {
		return nil, err
	}
	r, err := parseReactionSMILES(text)
	if err != nil {
		return nil, err
	}
	return &Object{s: s, rxn: markQuery(r, query)}, nil
}

func (s *Session) Deserialize(data []byte) (structure.Object, error) {
	if err := s.fail(OpDeserialize); err != nil {
		return nil, err
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("chemfake: bad serialization: %w", err)
	}
	switch {
	case p.Molecule != nil:
		return &Object{s: s, mol: p.Molecule}, nil
	case p.Reaction != nil:
		return &Object{s: s, rxn: p.Reaction}, nil
	default:
		return nil, fmt.Errorf("chemfake: empty serialization")
	}
}

//Personal.AI order the ending
