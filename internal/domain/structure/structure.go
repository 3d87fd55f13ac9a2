// Package structure defines the capability surface chemindex needs from a
// chemical structure toolkit, the registry through which toolkit bindings are
// plugged in, and the sanitizer that turns query reactions into indexable
// approximations.
//
// chemindex never implements chemistry itself. Fingerprints, canonical
// serialization, hashing and valence checks all come from the toolkit behind
// Session and Object.
package structure

// FingerprintKind selects the toolkit fingerprint family.
type FingerprintKind string

const (
	// FingerprintSimilarity is the fingerprint used for similarity scoring.
	FingerprintSimilarity FingerprintKind = "sim"
	// FingerprintSubstructure is the fingerprint used for substructure screening.
	FingerprintSubstructure FingerprintKind = "sub"
)

// Atom constraint kinds removed by the sanitizer.
const (
	ConstraintSubstituents        = "substituents"
	ConstraintSubstituentsAsDrawn = "substituents-as-drawn"
)

// Session is a toolkit session. Objects are bound to the session that created
// them and a session is not safe for concurrent use unless the toolkit says so.
type Session interface {
	// CreateQueryReaction returns a new empty query reaction.
	CreateQueryReaction() (Object, error)
	// LoadMolecule parses molfile or SMILES text.
	LoadMolecule(text string) (Object, error)
	// LoadReaction parses rxnfile or reaction SMILES text.
	LoadReaction(text string) (Object, error)
	// LoadQueryReaction parses a reaction template.
	LoadQueryReaction(text string) (Object, error)
	// Deserialize rebuilds an object from its canonical binary serialization.
	Deserialize(data []byte) (Object, error)
}

// Text formats a toolkit may accept through FormatLoader.
const (
	FormatSMILES  = "smiles"
	FormatSMARTS  = "smarts"
	FormatMolfile = "molfile"
	FormatRxnfile = "rxnfile"
)

// FormatLoader is implemented by sessions that parse text in a named format
// instead of detecting it. An unsupported format is an error.
type FormatLoader interface {
	LoadMoleculeAs(format, text string) (Object, error)
	LoadReactionAs(format, text string) (Object, error)
	LoadQueryReactionAs(format, text string) (Object, error)
}

// Object is a molecule, reaction or query variant thereof. Reaction-only and
// molecule-only methods return an error when called on the wrong variant.
type Object interface {
	// Session returns the owning session.
	Session() Session

	Clone() (Object, error)
	Aromatize() error

	// Fingerprint returns the set-bit list of the fingerprint as
	// space-separated decimal integers. An empty string means no bits set.
	Fingerprint(kind FingerprintKind) (string, error)

	// Serialize returns the canonical binary serialization.
	Serialize() ([]byte, error)
	Name() (string, error)

	// InternalType returns the toolkit type tag, for example "#02: <molecule>".
	InternalType() (string, error)

	// Components returns the connected components of a molecule.
	Components() ([]Object, error)
	Hash() (int64, error)
	HasBadValence() (bool, error)

	Atoms() ([]Atom, error)
	RemoveAtoms(indices []int) error
	CountAtoms() (int, error)

	Reactants() ([]Object, error)
	Products() ([]Object, error)
	AddReactant(mol Object) error
	AddProduct(mol Object) error
	CountReactants() (int, error)
	CountProducts() (int, error)

	// Rxnfile renders a reaction as MDL rxnfile text.
	Rxnfile() (string, error)
}

// Atom is an atom handle inside an Object.
type Atom interface {
	Index() int
	IsPseudoatom() (bool, error)
	IsRSite() (bool, error)
	Symbol() (string, error)
	RemoveConstraints(kind string) error
}

//Personal.AI order the ending
