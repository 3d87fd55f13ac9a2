// Package record turns chemical structures into flat, index-ready records and
// rebuilds structures from stored records.
//
// A Record is populated exactly once, at construction, from a clone of the
// caller's structure. Every descriptor (fingerprints, canonical form, name,
// structural hash, valence flag) is extracted independently; failures go
// through the record's ErrorPolicy.
package record

import (
	"strings"

	"github.com/google/uuid"

	"github.com/turtacn/chemindex/internal/domain/structure"
	"github.com/turtacn/chemindex/pkg/errors"
)

// ErrRecordNotFound is returned by stores and caches that hold no record
// under the requested id.
var ErrRecordNotFound = errors.New(errors.ErrCodeRecordNotFound, "record not found")

// Kind is the chemical entity a record describes.
type Kind string

const (
	KindMolecule         Kind = "molecule"
	KindReaction         Kind = "reaction"
	KindReactionTemplate Kind = "reaction_template"
)

// Kinds returns every record kind.
func Kinds() []Kind {
	return []Kind{KindMolecule, KindReaction, KindReactionTemplate}
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindMolecule, KindReaction, KindReactionTemplate:
		return true
	}
	return false
}

func (k Kind) String() string { return string(k) }

// ParseKind accepts the kind names plus the short forms "mol", "rxn" and "template".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "molecule", "molecules", "mol":
		return KindMolecule, nil
	case "reaction", "reactions", "rxn":
		return KindReaction, nil
	case "reaction_template", "reaction-template", "template", "templates":
		return KindReactionTemplate, nil
	}
	return "", errors.InvalidParam("unknown record kind").WithDetail("kind=" + s)
}

// Record is one indexable chemical entity.
type Record struct {
	id   string
	kind Kind

	Name                       string
	CanonicalForm              string
	SimilarityFingerprint      []int
	SimilarityFingerprintLen   int
	SubstructureFingerprint    []int
	SubstructureFingerprintLen int

	// StructuralHash is nil when the hash step did not produce a value.
	StructuralHash []int64

	// HasError is nil when the valence check did not run.
	HasError *bool

	// OriginalTemplateText is the untouched rxnfile of a reaction template.
	OriginalTemplateText string

	sortCursor []interface{}
	policy     ErrorPolicy
}

// ID returns the record id.
func (r *Record) ID() string { return r.id }

// Kind returns the record kind.
func (r *Record) Kind() Kind { return r.kind }

// Policy returns the error policy chosen at construction.
func (r *Record) Policy() ErrorPolicy { return r.policy }

// SortCursor returns the pagination cursor of the search hit this record was
// rehydrated from, or nil.
func (r *Record) SortCursor() []interface{} { return r.sortCursor }

// Valid reports whether the valence check ran and found no problem.
func (r *Record) Valid() bool { return r.HasError != nil && !*r.HasError }

// ─────────────────────────────────────────────────────────────────────────────
// Options
// ─────────────────────────────────────────────────────────────────────────────

type options struct {
	policy ErrorPolicy
	skip   bool
	name   *string
	newID  func() string
}

// Option configures record construction.
type Option func(*options)

// WithErrorPolicy sets the error policy.
func WithErrorPolicy(p ErrorPolicy) Option {
	return func(o *options) { o.policy = p }
}

// WithErrorHandler sets a Custom policy calling fn.
func WithErrorHandler(fn HandlerFunc) Option {
	return func(o *options) { o.policy = Custom(fn) }
}

// WithSkipErrors selects the Skip policy. It wins over any other policy option.
func WithSkipErrors() Option {
	return func(o *options) { o.skip = true }
}

// WithName overrides the extracted display name.
func WithName(name string) Option {
	return func(o *options) { o.name = &name }
}

// WithIDGenerator replaces the random id source.
func WithIDGenerator(fn func() string) Option {
	return func(o *options) {
		if fn != nil {
			o.newID = fn
		}
	}
}

func newID() string {
	u := uuid.New()
	return strings.ReplaceAll(u.String(), "-", "")
}

func buildOptions(opts []Option) options {
	o := options{newID: newID}
	for _, opt := range opts {
		opt(&o)
	}
	if o.skip {
		o.policy = Skip()
	}
	return o
}

func newRecord(kind Kind, o options) *Record {
	return &Record{
		id:                      o.newID(),
		kind:                    kind,
		SimilarityFingerprint:   []int{},
		SubstructureFingerprint: []int{},
		policy:                  o.policy,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Constructors from structures
// ─────────────────────────────────────────────────────────────────────────────

// New builds a record of the given kind from obj.
func New(kind Kind, obj structure.Object, opts ...Option) (*Record, error) {
	switch kind {
	case KindMolecule:
		return NewMolecule(obj, opts...)
	case KindReaction:
		return NewReaction(obj, opts...)
	case KindReactionTemplate:
		return NewReactionTemplate(obj, opts...)
	}
	return nil, errors.InvalidParam("unknown record kind").WithDetail("kind=" + string(kind))
}

// NewMolecule builds a molecule record from obj. obj is never modified.
// Under the default Propagate policy the first extraction failure is returned
// and no record is built.
func NewMolecule(obj structure.Object, opts ...Option) (*Record, error) {
	return fromStructure(KindMolecule, obj, buildOptions(opts))
}

// NewReaction builds a reaction record from obj.
func NewReaction(obj structure.Object, opts ...Option) (*Record, error) {
	return fromStructure(KindReaction, obj, buildOptions(opts))
}

// NewReactionTemplate sanitizes a query reaction and builds a record from the
// sanitized copy, keeping the original rxnfile text. Sanitization failures are
// returned whatever the policy.
func NewReactionTemplate(obj structure.Object, opts ...Option) (*Record, error) {
	cleaned, err := structure.SanitizeQueryReaction(obj)
	if err != nil {
		return nil, err
	}
	original, err := obj.Rxnfile()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStructureBackendFailure, "render original template")
	}

	o := buildOptions(opts)
	r := newRecord(KindReactionTemplate, o)
	r.OriginalTemplateText = original
	if err := r.populate(cleaned); err != nil {
		return nil, err
	}
	r.applyOverrides(o)
	return r, nil
}

func fromStructure(kind Kind, obj structure.Object, o options) (*Record, error) {
	r := newRecord(kind, o)
	if err := r.populate(obj); err != nil {
		return nil, err
	}
	r.applyOverrides(o)
	return r, nil
}

func (r *Record) applyOverrides(o options) {
	if o.name != nil {
		r.Name = *o.name
	}
}

//Personal.AI order the ending
