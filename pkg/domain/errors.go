package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Category sentinels for the platform error taxonomy. Structured error types
// below match these through errors.Is, so callers can branch on category
// without losing the detail carried by the concrete type.
var (
	// ErrNotFound indicates a referenced resource (dataset, example,
	// experiment, run) does not exist on the platform.
	ErrNotFound = errors.New("resource not found")

	// ErrDatasetMismatch indicates two experiments selected for comparison
	// reference different underlying datasets and cannot be aligned.
	ErrDatasetMismatch = errors.New("experiments reference different datasets")

	// ErrContractViolation indicates an evaluator returned a malformed
	// result, such as a scores map missing or exceeding the compared run IDs.
	ErrContractViolation = errors.New("evaluator result violates scoring contract")

	// ErrInvalidExample indicates an example failed structural validation.
	ErrInvalidExample = errors.New("invalid example")

	// ErrInvalidRun indicates a run failed structural validation.
	ErrInvalidRun = errors.New("invalid run")

	// ErrInvalidExperiment indicates an experiment failed structural validation.
	ErrInvalidExperiment = errors.New("invalid experiment")

	// ErrInvalidFeedback indicates a feedback record failed structural validation.
	ErrInvalidFeedback = errors.New("invalid feedback")

	// ErrInvalidDatasetRef indicates a dataset reference sets neither or both
	// of its ID and Name fields.
	ErrInvalidDatasetRef = errors.New("dataset ref must set exactly one of id or name")

	// ErrInvalidExperimentRef indicates an experiment reference sets neither
	// or both of its ID and Name fields.
	ErrInvalidExperimentRef = errors.New("experiment ref must set exactly one of id or name")
)

// NotFoundError reports a missing platform resource with enough context to
// identify what was looked up. Resolution failures are fatal to the request
// that triggered them; they are never retried.
type NotFoundError struct {
	// Resource names the resource kind, e.g. "experiment" or "dataset".
	Resource string

	// Ref is the identifier or name that failed to resolve.
	Ref string
}

// Error returns a formatted message identifying the missing resource.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.Ref)
}

// Is reports ErrNotFound as the category of this error.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// DatasetMismatchError reports that two experiments cannot be compared
// because they were built against different datasets. Runs are aligned by
// example ID, which is only meaningful within one dataset.
type DatasetMismatchError struct {
	ExperimentA string
	ExperimentB string
	DatasetA    string
	DatasetB    string
}

// Error returns a formatted message naming both experiments and datasets.
func (e *DatasetMismatchError) Error() string {
	return fmt.Sprintf("experiment %q uses dataset %q but experiment %q uses dataset %q",
		e.ExperimentA, e.DatasetA, e.ExperimentB, e.DatasetB)
}

// Is reports ErrDatasetMismatch as the category of this error.
func (e *DatasetMismatchError) Is(target error) bool { return target == ErrDatasetMismatch }

// ContractViolationError reports an evaluator result whose scores map does
// not cover exactly the run IDs it was asked to compare. It is recorded as
// that pair's failure and never aborts the rest of the batch.
type ContractViolationError struct {
	// EvaluatorKey is the metric key of the offending evaluator, if known.
	EvaluatorKey string

	// ExampleID identifies the example whose pair was being scored.
	ExampleID string

	// Missing lists expected run IDs absent from the scores map.
	Missing []string

	// Extra lists run IDs present in the scores map that were not part of
	// the compared pair.
	Extra []string
}

// Error returns a formatted message listing missing and unexpected run IDs.
func (e *ContractViolationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing run ids [%s]", strings.Join(e.Missing, ", ")))
	}
	if len(e.Extra) > 0 {
		parts = append(parts, fmt.Sprintf("unexpected run ids [%s]", strings.Join(e.Extra, ", ")))
	}
	detail := strings.Join(parts, "; ")
	if detail == "" {
		detail = "malformed scores"
	}
	return fmt.Sprintf("evaluator %q returned invalid scores for example %q: %s",
		e.EvaluatorKey, e.ExampleID, detail)
}

// Is reports ErrContractViolation as the category of this error.
func (e *ContractViolationError) Is(target error) bool { return target == ErrContractViolation }

// EvaluatorError wraps a failure raised by user evaluator code for one
// example. It is isolated to that example and recorded in the batch summary
// rather than propagated as a batch failure.
type EvaluatorError struct {
	// EvaluatorKey is the metric key of the evaluator that failed.
	EvaluatorKey string

	// ExampleID identifies the example being evaluated when the failure occurred.
	ExampleID string

	// Err is the underlying failure.
	Err error
}

// Error returns a formatted message with evaluator and example context.
func (e *EvaluatorError) Error() string {
	return fmt.Sprintf("evaluator %q failed for example %q: %v", e.EvaluatorKey, e.ExampleID, e.Err)
}

// Unwrap exposes the underlying evaluator failure for errors.Is/As matching.
func (e *EvaluatorError) Unwrap() error { return e.Err }
