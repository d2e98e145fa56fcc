package evaluate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/Makoq/evalsmith/pkg/domain"
)

// ErrNoEvaluators is returned when an orchestrator is invoked without any
// evaluators.
var ErrNoEvaluators = errors.New("at least one evaluator is required")

// pairJob is one evaluator invocation: a pairwise evaluator applied to one
// example's run pair. The pair's presentation order is decided before
// dispatch and shared by every evaluator of that example.
type pairJob struct {
	example   *domain.Example
	pair      [2]*domain.Run
	runA      *domain.Run // first experiment's run, regardless of pair order
	runB      *domain.Run // second experiment's run
	evaluator PairwiseEvaluator
}

// pairOutcome is the result of one evaluator invocation, reported back to
// the collector.
type pairOutcome struct {
	exampleID string
	key       string
	err       error
	skipped   bool   // abandoned before dispatch due to cancellation
	winner    string // winning experiment ID, empty on tie or failure
	tie       bool
}

// Comparative evaluates two experiments against each other. For every
// example present in both, each pairwise evaluator judges the two runs and
// its scores are persisted as feedback against both run IDs, grouped under a
// newly created comparative experiment.
//
// Resolution failures are fatal: a missing experiment or a dataset mismatch
// invalidates the whole request. Evaluator failures are not: they are
// isolated to their (example, evaluator) invocation and recorded in the
// report, which always accounts for every invocation in scope.
//
// Invocations run concurrently, bounded by WithMaxConcurrency (default 5).
// Cancelling the context halts dispatch of queued invocations; in-flight
// evaluator calls drain, and the partial report is returned together with
// the context's error. Re-running the same comparison creates a new,
// independent comparative experiment; prior results are never touched.
func Comparative(
	ctx context.Context,
	store ComparativeStore,
	refs [2]domain.ExperimentRef,
	evaluators []PairwiseEvaluator,
	opts ...Option,
) (*ComparativeReport, error) {
	o := buildOptions(opts)
	o.logger = o.logger.With("component", "comparative")

	if len(evaluators) == 0 {
		return nil, ErrNoEvaluators
	}
	for i := range refs {
		if err := refs[i].Validate(); err != nil {
			return nil, fmt.Errorf("experiment ref %d: %w", i, err)
		}
	}

	// Resolution failures are fatal: the request itself is invalid.
	expA, err := store.ResolveExperiment(ctx, refs[0])
	if err != nil {
		return nil, err
	}
	expB, err := store.ResolveExperiment(ctx, refs[1])
	if err != nil {
		return nil, err
	}
	if expA.DatasetID != expB.DatasetID {
		return nil, &domain.DatasetMismatchError{
			ExperimentA: expA.ID,
			ExperimentB: expB.ID,
			DatasetA:    expA.DatasetID,
			DatasetB:    expB.DatasetID,
		}
	}

	runsA, err := store.ListRuns(ctx, expA.ID, o.loadNested)
	if err != nil {
		return nil, fmt.Errorf("loading runs for experiment %q: %w", expA.ID, err)
	}
	runsB, err := store.ListRuns(ctx, expB.ID, o.loadNested)
	if err != nil {
		return nil, fmt.Errorf("loading runs for experiment %q: %w", expB.ID, err)
	}

	byExampleA := runsByExample(runsA)
	byExampleB := runsByExample(runsB)

	// Intersect example IDs in experiment A's run order, so dispatch order
	// is stable for a given platform state.
	common := make([]string, 0, len(byExampleA))
	seen := make(map[string]bool, len(byExampleA))
	for _, run := range runsA {
		id := run.ReferenceExampleID
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		if _, ok := byExampleB[id]; ok {
			common = append(common, id)
		}
	}

	ce := domain.NewComparativeExperiment(
		comparativeName(o.experimentPrefix, expA, expB),
		expA.DatasetID,
		[2]string{expA.ID, expB.ID},
	)
	ce.Metadata = o.metadata
	created, err := store.CreateComparativeExperiment(ctx, ce)
	if err != nil {
		return nil, fmt.Errorf("creating comparative experiment: %w", err)
	}

	report := &ComparativeReport{
		Experiment: created,
		Examples:   len(common),
		Total:      len(common) * len(evaluators),
		Stats:      make(map[string]*PreferenceStats),
	}
	o.logger.Debug("starting comparative evaluation",
		"comparative_experiment", created.ID,
		"experiment_a", expA.ID,
		"experiment_b", expB.ID,
		"examples", len(common),
		"evaluators", len(evaluators),
		"max_concurrency", o.maxConcurrency)

	// Zero common examples is an empty comparison, not an error.
	if report.Total == 0 {
		return report, nil
	}

	examples, err := fetchExamples(ctx, store, expA.DatasetID, common)
	if err != nil {
		return nil, err
	}

	jobs := buildPairJobs(&o, common, examples, byExampleA, byExampleB, expA.DatasetID, evaluators)
	collectOutcomes(report, &o, dispatchPairs(ctx, store, created.ID, expA.ID, expB.ID, jobs, o.maxConcurrency))

	sort.Slice(report.Failures, func(i, j int) bool {
		if report.Failures[i].ExampleID != report.Failures[j].ExampleID {
			return report.Failures[i].ExampleID < report.Failures[j].ExampleID
		}
		return report.Failures[i].EvaluatorKey < report.Failures[j].EvaluatorKey
	})

	o.logger.Info("comparative evaluation complete",
		"comparative_experiment", created.ID,
		"succeeded", report.Succeeded,
		"failed", report.Failed)

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// comparativeName derives the comparative experiment's display name. A short
// random suffix keeps repeated comparisons distinguishable.
func comparativeName(prefix string, expA, expB *domain.Experiment) string {
	base := prefix
	if base == "" {
		base = fmt.Sprintf("%s vs %s", expA.Name, expB.Name)
	}
	return fmt.Sprintf("%s-%s", base, uuid.NewString()[:8])
}

// runsByExample keys root runs by the example that produced them. Runs
// without a reference example are out of scope; duplicates keep the first
// run in platform order.
func runsByExample(runs []*domain.Run) map[string]*domain.Run {
	out := make(map[string]*domain.Run, len(runs))
	for _, run := range runs {
		id := run.ReferenceExampleID
		if id == "" {
			continue
		}
		if _, ok := out[id]; !ok {
			out[id] = run
		}
	}
	return out
}

// fetchExamples loads the example records for the intersecting IDs, keyed by
// ID.
func fetchExamples(ctx context.Context, store ComparativeStore, datasetID string, ids []string) (map[string]*domain.Example, error) {
	fetched, err := store.ListExamples(ctx, domain.DatasetByID(datasetID), &domain.ExampleFilter{IDs: ids})
	if err != nil {
		return nil, fmt.Errorf("loading examples for dataset %q: %w", datasetID, err)
	}
	out := make(map[string]*domain.Example, len(fetched))
	for _, ex := range fetched {
		out[ex.ID] = ex
	}
	return out, nil
}

// buildPairJobs expands the intersection into one job per (example,
// evaluator). Pair order is decided here, once per example, so every
// evaluator of an example sees the same presentation and no randomness is
// shared across goroutines.
func buildPairJobs(
	o *Options,
	common []string,
	examples map[string]*domain.Example,
	byExampleA, byExampleB map[string]*domain.Run,
	datasetID string,
	evaluators []PairwiseEvaluator,
) []pairJob {
	jobs := make([]pairJob, 0, len(common)*len(evaluators))
	for _, id := range common {
		runA, runB := byExampleA[id], byExampleB[id]
		pair := [2]*domain.Run{runA, runB}
		if o.randomizeOrder && o.flip() {
			pair[0], pair[1] = pair[1], pair[0]
		}

		example := examples[id]
		if example == nil {
			// The example row is gone from the dataset but both runs still
			// reference it; evaluators get an ID-only stub.
			example = &domain.Example{ID: id, DatasetID: datasetID}
		}

		for _, ev := range evaluators {
			jobs = append(jobs, pairJob{
				example:   example,
				pair:      pair,
				runA:      runA,
				runB:      runB,
				evaluator: ev,
			})
		}
	}
	return jobs
}

// dispatchPairs runs the jobs with bounded concurrency and streams outcomes.
// Queued jobs abandon as soon as the context ends; jobs already past the
// gate drain normally.
func dispatchPairs(
	ctx context.Context,
	store ComparativeStore,
	ceID, expAID, expBID string,
	jobs []pairJob,
	maxConcurrency int,
) <-chan pairOutcome {
	sem := make(chan struct{}, maxConcurrency)
	outcomes := make(chan pairOutcome, len(jobs))

	var wg sync.WaitGroup
	for _, job := range jobs {
		wg.Add(1)
		go func(j pairJob) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				outcomes <- pairOutcome{exampleID: j.example.ID, key: j.evaluator.Key(), skipped: true}
				return
			case sem <- struct{}{}:
			}
			defer func() { <-sem }()

			if ctx.Err() != nil {
				outcomes <- pairOutcome{exampleID: j.example.ID, key: j.evaluator.Key(), skipped: true}
				return
			}
			outcomes <- executePair(ctx, store, ceID, expAID, expBID, j)
		}(job)
	}

	go func() {
		wg.Wait()
		close(outcomes)
	}()
	return outcomes
}

// executePair invokes one evaluator on one pair, validates the verdict
// against the scoring contract, and persists one feedback record per
// compared run, linked by a shared group ID.
func executePair(ctx context.Context, store ComparativeStore, ceID, expAID, expBID string, j pairJob) pairOutcome {
	key := j.evaluator.Key()
	out := pairOutcome{exampleID: j.example.ID, key: key}

	res, err := j.evaluator.EvaluatePair(ctx, j.pair, j.example)
	if err != nil {
		out.err = &domain.EvaluatorError{EvaluatorKey: key, ExampleID: j.example.ID, Err: err}
		return out
	}
	if res != nil && res.Key != "" {
		key = res.Key
		out.key = key
	}
	if err := validatePairwiseResult(res, j.pair, key, j.example.ID); err != nil {
		out.err = err
		return out
	}

	groupID := uuid.NewString()
	rows := make([]*domain.Feedback, 0, len(j.pair))
	for _, run := range j.pair {
		fb := domain.NewScoredFeedback(run.ID, key, res.Scores[run.ID])
		if res.Comment != "" {
			fb = fb.WithComment(res.Comment)
		}
		rows = append(rows, fb.WithGroup(groupID, ceID))
	}
	if err := store.CreateFeedbackBatch(ctx, rows); err != nil {
		out.err = fmt.Errorf("persisting feedback for example %q: %w", j.example.ID, err)
		return out
	}

	scoreA, scoreB := res.Scores[j.runA.ID], res.Scores[j.runB.ID]
	switch {
	case scoreA > scoreB:
		out.winner = expAID
	case scoreB > scoreA:
		out.winner = expBID
	default:
		out.tie = true
	}
	return out
}

// collectOutcomes folds outcomes into the report. It runs on the caller's
// goroutine, so stats updates and progress callbacks are serialized.
func collectOutcomes(report *ComparativeReport, o *Options, outcomes <-chan pairOutcome) {
	done := 0
	for out := range outcomes {
		if out.skipped {
			continue
		}
		done++
		if o.progress != nil {
			o.progress(done, report.Total)
		}

		if out.err != nil {
			report.Failed++
			report.Failures = append(report.Failures, Failure{
				ExampleID:    out.exampleID,
				EvaluatorKey: out.key,
				Err:          out.err,
			})
			o.logger.Warn("pair evaluation failed",
				"example", out.exampleID,
				"evaluator", out.key,
				"error", out.err)
			continue
		}

		report.Succeeded++
		stats := report.Stats[out.key]
		if stats == nil {
			stats = &PreferenceStats{Wins: make(map[string]int)}
			report.Stats[out.key] = stats
		}
		if out.tie {
			stats.Ties++
		} else {
			stats.Wins[out.winner]++
		}
	}
}
