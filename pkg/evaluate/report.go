package evaluate

import "github.com/Makoq/evalsmith/pkg/domain"

// Failure records one evaluator invocation that did not produce a persisted
// score: the evaluator errored, violated the scoring contract, or the
// feedback write failed. Failures never abort the rest of a batch.
type Failure struct {
	// ExampleID identifies the example whose evaluation failed.
	ExampleID string

	// EvaluatorKey names the evaluator's metric.
	EvaluatorKey string

	// Err is the recorded failure, matching the domain error taxonomy
	// through errors.Is/As.
	Err error
}

// PreferenceStats aggregates pairwise outcomes for one metric key.
type PreferenceStats struct {
	// Wins counts examples won, keyed by experiment ID. An experiment wins
	// an example when its run scored strictly higher than the other's.
	Wins map[string]int

	// Ties counts examples where both runs scored equally.
	Ties int
}

// ComparativeReport summarizes one comparative evaluation. Every evaluator
// invocation in scope is accounted for: Succeeded plus Failed equals Total
// unless the batch was cancelled, in which case the undispatched remainder
// is reported through the returned context error.
type ComparativeReport struct {
	// Experiment is the created comparative experiment record.
	Experiment *domain.ComparativeExperiment

	// Examples is the number of examples present in both experiments.
	Examples int

	// Total is the number of evaluator invocations in scope:
	// Examples × evaluators.
	Total int

	// Succeeded counts invocations whose scores were validated and persisted.
	Succeeded int

	// Failed counts invocations recorded as failures.
	Failed int

	// Failures lists each failed invocation, ordered by example then
	// evaluator key.
	Failures []Failure

	// Stats aggregates win/tie counts per metric key.
	Stats map[string]*PreferenceStats
}

// ScoreSummary aggregates one metric across a single-experiment evaluation.
type ScoreSummary struct {
	// Mean is the average score over all runs that received this metric.
	Mean float64

	// Count is the number of scores aggregated.
	Count int
}

// Report summarizes one single-experiment evaluation.
type Report struct {
	// Experiment is the created experiment session.
	Experiment *domain.Experiment

	// Examples is the number of examples evaluated.
	Examples int

	// Total is the number of evaluator invocations in scope:
	// Examples × evaluators.
	Total int

	// Succeeded counts invocations whose scores were validated and persisted.
	Succeeded int

	// Failed counts invocations recorded as failures.
	Failed int

	// TargetErrors counts examples whose target invocation failed. The runs
	// are persisted with error status and still evaluated, so judges can
	// score failures explicitly.
	TargetErrors int

	// Failures lists each failed invocation. Target failures appear with an
	// empty EvaluatorKey.
	Failures []Failure

	// Scores aggregates persisted scores per metric key.
	Scores map[string]*ScoreSummary
}
