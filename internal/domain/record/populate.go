package record

import (
	"sort"
	"strconv"
	"strings"

	"github.com/turtacn/chemindex/internal/domain/structure"
)

// populate extracts every descriptor from a private clone of obj. It returns
// a non-nil error only when the policy chose to propagate a failure. A clone
// failure ends population whatever the policy says, since there is nothing
// left to extract from.
func (r *Record) populate(obj structure.Object) error {
	clone, err := obj.Clone()
	if err != nil {
		return r.report(backendFailure(StepClone, err))
	}

	if err := clone.Aromatize(); err != nil {
		if perr := r.report(backendFailure(StepAromatize, err)); perr != nil {
			return perr
		}
	}

	steps := []func(structure.Object) error{
		r.extractSimilarityFingerprint,
		r.extractSubstructureFingerprint,
		r.extractCanonicalForm,
		r.extractName,
		r.extractHash,
		r.extractValence,
	}
	for _, step := range steps {
		if err := step(clone); err != nil {
			return err
		}
	}
	return nil
}

func (r *Record) report(err *ExtractionError) error {
	return r.policy.Handle(r, err)
}

func (r *Record) extractSimilarityFingerprint(obj structure.Object) error {
	bits, err := fingerprint(obj, structure.FingerprintSimilarity, StepSimilarityFingerprint)
	if err != nil {
		return r.report(err)
	}
	if bits != nil {
		r.SimilarityFingerprint = bits
		r.SimilarityFingerprintLen = len(bits)
	}
	return nil
}

func (r *Record) extractSubstructureFingerprint(obj structure.Object) error {
	bits, err := fingerprint(obj, structure.FingerprintSubstructure, StepSubstructureFingerprint)
	if err != nil {
		return r.report(err)
	}
	if bits != nil {
		r.SubstructureFingerprint = bits
		r.SubstructureFingerprintLen = len(bits)
	}
	return nil
}

// fingerprint returns the ascending set bits, or nil when none are set.
func fingerprint(obj structure.Object, kind structure.FingerprintKind, step Step) ([]int, *ExtractionError) {
	text, err := obj.Fingerprint(kind)
	if err != nil {
		return nil, backendFailure(step, err)
	}
	bits, err := ParseBitList(text)
	if err != nil {
		return nil, parseFailure(step, err)
	}
	return bits, nil
}

// ParseBitList parses a whitespace-separated list of set-bit indices and
// normalises it: the result is sorted ascending whatever the input order,
// duplicates are kept and a negative index fails with strconv.ErrRange.
// Blank input yields nil.
func ParseBitList(text string) ([]int, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil, nil
	}
	bits := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, strconv.ErrRange
		}
		bits[i] = n
	}
	sort.Ints(bits)
	return bits, nil
}

func (r *Record) extractCanonicalForm(obj structure.Object) error {
	data, err := obj.Serialize()
	if err != nil {
		r.CanonicalForm = ""
		return r.report(backendFailure(StepSerialize, err))
	}
	r.CanonicalForm = EncodeCanonicalForm(data)
	return nil
}

func (r *Record) extractName(obj structure.Object) error {
	name, err := obj.Name()
	if err != nil {
		r.Name = ""
		return r.report(backendFailure(StepName, err))
	}
	r.Name = name
	return nil
}

func (r *Record) extractHash(obj structure.Object) error {
	tag, err := obj.InternalType()
	if err != nil {
		return r.report(backendFailure(StepHash, err))
	}

	switch structure.Classify(tag) {
	case structure.ShapeMolecular:
		hashes, err := componentHashes(obj)
		if err != nil {
			return r.report(backendFailure(StepHash, err))
		}
		r.StructuralHash = hashes
	case structure.ShapeReaction:
		h, err := obj.Hash()
		if err != nil {
			return r.report(backendFailure(StepHash, err))
		}
		r.StructuralHash = []int64{h}
	}
	return nil
}

// componentHashes hashes a clone of every connected component and returns the
// distinct values in ascending order.
func componentHashes(obj structure.Object) ([]int64, error) {
	components, err := obj.Components()
	if err != nil {
		return nil, err
	}
	seen := make(map[int64]struct{}, len(components))
	hashes := make([]int64, 0, len(components))
	for _, c := range components {
		cc, err := c.Clone()
		if err != nil {
			return nil, err
		}
		h, err := cc.Hash()
		if err != nil {
			return nil, err
		}
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		hashes = append(hashes, h)
	}
	sort.Slice(hashes, func(i, j int) bool { return hashes[i] < hashes[j] })
	return hashes, nil
}

func (r *Record) extractValence(obj structure.Object) error {
	bad, err := obj.HasBadValence()
	if err != nil {
		return r.report(backendFailure(StepValence, err))
	}
	r.HasError = &bad
	return nil
}

//Personal.AI order the ending
