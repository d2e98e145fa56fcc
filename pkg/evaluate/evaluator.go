package evaluate

import (
	"context"
	"math"

	"github.com/Makoq/evalsmith/pkg/domain"
)

// Result is one scored metric produced by an evaluator: a key naming the
// metric, a numeric score, and optional commentary or a corrected output.
type Result struct {
	// Key names the metric, e.g. "correctness". When empty, the evaluator's
	// own key is used.
	Key string

	// Score is the numeric judgment. Boolean judgments convert with
	// domain.BoolScore.
	Score float64

	// Comment carries the evaluator's reasoning.
	Comment string

	// Correction optionally holds a corrected output for the run.
	Correction map[string]any
}

// Results is an evaluator's verdict for one run: one result or several.
// Construct with Single or Multi; the zero value carries no entries and is
// rejected at the orchestrator boundary.
type Results struct {
	entries []Result
}

// Single builds a verdict carrying one scored metric.
func Single(key string, score float64) Results {
	return Results{entries: []Result{{Key: key, Score: score}}}
}

// SingleWithComment builds a one-metric verdict with reasoning attached.
func SingleWithComment(key string, score float64, comment string) Results {
	return Results{entries: []Result{{Key: key, Score: score, Comment: comment}}}
}

// Multi builds a verdict carrying several scored metrics, e.g. a judge that
// grades correctness and conciseness in one pass.
func Multi(results ...Result) Results {
	return Results{entries: results}
}

// Entries returns the individual results. The returned slice is a copy.
func (r Results) Entries() []Result {
	out := make([]Result, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of scored metrics in the verdict.
func (r Results) Len() int { return len(r.entries) }

// PairwiseResult is a pairwise evaluator's verdict for one example: a metric
// key and a score for each of the two compared runs, keyed by run ID.
type PairwiseResult struct {
	// Key names the metric. When empty, the evaluator's own key is used.
	Key string

	// Scores maps each compared run's ID to its score. The map must contain
	// exactly the two run IDs the evaluator was handed; anything else is a
	// contract violation recorded as that pair's failure.
	Scores map[string]float64

	// Comment carries the evaluator's reasoning.
	Comment string
}

// Evaluator scores a single run against its reference example.
type Evaluator interface {
	// Key names the metric this evaluator produces, used for reporting and
	// as the default feedback key.
	Key() string

	// EvaluateRun judges one run. The example carries the inputs the run was
	// produced from and, when present, reference outputs.
	EvaluateRun(ctx context.Context, run *domain.Run, example *domain.Example) (Results, error)
}

// PairwiseEvaluator scores two runs of the same example against each other.
type PairwiseEvaluator interface {
	// Key names the metric this evaluator produces.
	Key() string

	// EvaluatePair judges an ordered pair of runs, one from each compared
	// experiment. The order is either the caller's experiment order or the
	// per-pair randomization, fixed for the lifetime of the pair.
	EvaluatePair(ctx context.Context, pair [2]*domain.Run, example *domain.Example) (*PairwiseResult, error)
}

// EvaluatorFunc is the function form of a single-run evaluator.
type EvaluatorFunc func(ctx context.Context, run *domain.Run, example *domain.Example) (Results, error)

// PairwiseEvaluatorFunc is the function form of a pairwise evaluator.
type PairwiseEvaluatorFunc func(ctx context.Context, pair [2]*domain.Run, example *domain.Example) (*PairwiseResult, error)

// Func adapts a plain function into an Evaluator with the given metric key.
func Func(key string, fn EvaluatorFunc) Evaluator {
	return &funcEvaluator{key: key, fn: fn}
}

// PairwiseFunc adapts a plain function into a PairwiseEvaluator with the
// given metric key.
func PairwiseFunc(key string, fn PairwiseEvaluatorFunc) PairwiseEvaluator {
	return &funcPairwiseEvaluator{key: key, fn: fn}
}

type funcEvaluator struct {
	key string
	fn  EvaluatorFunc
}

func (f *funcEvaluator) Key() string { return f.key }

func (f *funcEvaluator) EvaluateRun(ctx context.Context, run *domain.Run, example *domain.Example) (Results, error) {
	return f.fn(ctx, run, example)
}

type funcPairwiseEvaluator struct {
	key string
	fn  PairwiseEvaluatorFunc
}

func (f *funcPairwiseEvaluator) Key() string { return f.key }

func (f *funcPairwiseEvaluator) EvaluatePair(ctx context.Context, pair [2]*domain.Run, example *domain.Example) (*PairwiseResult, error) {
	return f.fn(ctx, pair, example)
}

// validateResults checks a single-run verdict at the orchestrator boundary.
// Keys default to the evaluator's own; empty verdicts and non-finite scores
// are contract violations.
func validateResults(res Results, evaluatorKey, exampleID string) ([]Result, error) {
	if len(res.entries) == 0 {
		return nil, &domain.ContractViolationError{
			EvaluatorKey: evaluatorKey,
			ExampleID:    exampleID,
		}
	}
	out := make([]Result, len(res.entries))
	for i, entry := range res.entries {
		if entry.Key == "" {
			entry.Key = evaluatorKey
		}
		if entry.Key == "" || math.IsNaN(entry.Score) || math.IsInf(entry.Score, 0) {
			return nil, &domain.ContractViolationError{
				EvaluatorKey: evaluatorKey,
				ExampleID:    exampleID,
			}
		}
		out[i] = entry
	}
	return out, nil
}

// validatePairwiseResult checks a pairwise verdict at the orchestrator
// boundary: the scores map must cover exactly the two compared run IDs with
// finite values.
func validatePairwiseResult(res *PairwiseResult, pair [2]*domain.Run, evaluatorKey, exampleID string) error {
	violation := &domain.ContractViolationError{
		EvaluatorKey: evaluatorKey,
		ExampleID:    exampleID,
	}
	if res == nil || len(res.Scores) == 0 {
		violation.Missing = []string{pair[0].ID, pair[1].ID}
		return violation
	}

	for _, run := range pair {
		if _, ok := res.Scores[run.ID]; !ok {
			violation.Missing = append(violation.Missing, run.ID)
		}
	}
	for id, score := range res.Scores {
		if id != pair[0].ID && id != pair[1].ID {
			violation.Extra = append(violation.Extra, id)
		}
		if math.IsNaN(score) || math.IsInf(score, 0) {
			return violation
		}
	}
	if len(violation.Missing) > 0 || len(violation.Extra) > 0 {
		return violation
	}
	return nil
}
