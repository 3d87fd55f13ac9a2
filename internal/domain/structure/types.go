package structure

// Shape tells how a structural hash is derived for an object.
type Shape int

const (
	// ShapeUnknown objects get no structural hash.
	ShapeUnknown Shape = iota
	// ShapeMolecular objects are hashed per connected component.
	ShapeMolecular
	// ShapeReaction objects are hashed as a whole.
	ShapeReaction
)

func (s Shape) String() string {
	switch s {
	case ShapeMolecular:
		return "molecular"
	case ShapeReaction:
		return "reaction"
	default:
		return "unknown"
	}
}

// Toolkit internal type tags.
const (
	TagMolecule           = "#02: <molecule>"
	TagQueryMolecule      = "#03: <query molecule>"
	TagQueryReactionAlias = "#03: <query reaction>"
	TagReaction           = "#04: <reaction>"
	TagQueryReaction      = "#05: <query reaction>"
	TagRDFMolecule        = "#12: <RDFMolecule>"
)

var (
	molecularTags = map[string]struct{}{
		TagMolecule:           {},
		TagQueryMolecule:      {},
		TagQueryReactionAlias: {},
		TagRDFMolecule:        {},
	}
	reactionTags = map[string]struct{}{
		TagReaction:      {},
		TagQueryReaction: {},
	}
)

// Classify maps a toolkit type tag to a Shape. Only the known tags are
// recognised; any other tag is ShapeUnknown.
func Classify(tag string) Shape {
	if _, ok := molecularTags[tag]; ok {
		return ShapeMolecular
	}
	if _, ok := reactionTags[tag]; ok {
		return ShapeReaction
	}
	return ShapeUnknown
}

//Personal.AI order the ending
