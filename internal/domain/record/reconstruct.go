package record

import (
	"strconv"
	"strings"

	"github.com/turtacn/chemindex/internal/domain/structure"
	"github.com/turtacn/chemindex/pkg/errors"
)

// ErrEmptyCanonicalForm is returned when a record without canonical form is
// asked to rebuild its structure.
var ErrEmptyCanonicalForm = errors.New(errors.ErrCodeReconstructionFailed, "unexpected empty canonical form")

// EncodeCanonicalForm renders serialized bytes as space-separated integers.
func EncodeCanonicalForm(data []byte) string {
	var sb strings.Builder
	sb.Grow(len(data) * 4)
	for i, b := range data {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(strconv.Itoa(int(b)))
	}
	return sb.String()
}

// DecodeCanonicalForm parses the output of EncodeCanonicalForm.
func DecodeCanonicalForm(text string) ([]byte, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil, ErrEmptyCanonicalForm
	}
	data := make([]byte, len(fields))
	for i, f := range fields {
		n, err := strconv.ParseUint(f, 10, 8)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeReconstructionFailed, "malformed canonical form").
				WithDetail("position=" + strconv.Itoa(i))
		}
		data[i] = byte(n)
	}
	return data, nil
}

// ToStructureObject deserializes the canonical form in session. The record
// itself is not changed.
func (r *Record) ToStructureObject(session structure.Session) (structure.Object, error) {
	if r.CanonicalForm == "" {
		return nil, ErrEmptyCanonicalForm.WithDetail("record_id=" + r.id)
	}
	data, err := DecodeCanonicalForm(r.CanonicalForm)
	if err != nil {
		return nil, err
	}
	obj, err := session.Deserialize(data)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeReconstructionFailed, "deserialize canonical form").
			WithDetail("record_id=" + r.id)
	}
	return obj, nil
}

//Personal.AI order the ending
