package record

import (
	"fmt"

	"github.com/turtacn/chemindex/pkg/errors"
)

// Step names one descriptor extraction of the population pipeline.
type Step string

const (
	StepClone                   Step = "clone"
	StepAromatize               Step = "aromatize"
	StepSimilarityFingerprint   Step = "fingerprint.sim"
	StepSubstructureFingerprint Step = "fingerprint.sub"
	StepSerialize               Step = "serialize"
	StepName                    Step = "name"
	StepHash                    Step = "hash"
	StepValence                 Step = "valence"
)

// ExtractionError is the failure reported to the ErrorPolicy. Err is an
// *errors.AppError coded ErrCodeStructureBackendFailure or
// ErrCodeFingerprintParseFailed.
type ExtractionError struct {
	Step Step
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("record: %s: %v", e.Step, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// StepOf returns the step of the ExtractionError in err's chain, or "".
func StepOf(err error) Step {
	var ee *ExtractionError
	if errors.As(err, &ee) {
		return ee.Step
	}
	return ""
}

func backendFailure(step Step, err error) *ExtractionError {
	return &ExtractionError{
		Step: step,
		Err: errors.Wrap(err, errors.ErrCodeStructureBackendFailure, "toolkit call failed").
			WithDetail("step=" + string(step)),
	}
}

func parseFailure(step Step, err error) *ExtractionError {
	return &ExtractionError{
		Step: step,
		Err: errors.Wrap(err, errors.ErrCodeFingerprintParseFailed, "malformed fingerprint bit list").
			WithDetail("step=" + string(step)),
	}
}

// HandlerFunc receives the partially populated record and the failure. A nil
// return continues population; a non-nil return aborts it.
type HandlerFunc func(r *Record, err error) error

type policyMode int

const (
	modePropagate policyMode = iota
	modeSkip
	modeCustom
)

// ErrorPolicy decides what an extraction failure does. The zero value is
// Propagate.
type ErrorPolicy struct {
	mode    policyMode
	handler HandlerFunc
}

// Propagate returns every failure to the constructor, which then fails.
func Propagate() ErrorPolicy { return ErrorPolicy{mode: modePropagate} }

// Skip discards failures; the affected fields keep their defaults.
func Skip() ErrorPolicy { return ErrorPolicy{mode: modeSkip} }

// Custom hands every failure to fn. A nil fn behaves like Propagate.
func Custom(fn HandlerFunc) ErrorPolicy {
	if fn == nil {
		return Propagate()
	}
	return ErrorPolicy{mode: modeCustom, handler: fn}
}

func (p ErrorPolicy) String() string {
	switch p.mode {
	case modeSkip:
		return "skip"
	case modeCustom:
		return "custom"
	default:
		return "propagate"
	}
}

// Handle applies the policy to err.
func (p ErrorPolicy) Handle(r *Record, err error) error {
	switch p.mode {
	case modeSkip:
		return nil
	case modeCustom:
		return p.handler(r, err)
	default:
		return err
	}
}

//Personal.AI order the ending
