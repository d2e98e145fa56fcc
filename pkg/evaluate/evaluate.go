// Package evaluate orchestrates experiment evaluation against the platform.
//
// Two entry points cover the documented workflows: Evaluate runs a target
// over a dataset's examples, records the runs as a new experiment, and
// applies single-run evaluators; Comparative aligns the runs of two existing
// experiments by example and applies pairwise evaluators, producing a
// comparative experiment whose feedback scores both runs of every pair.
//
// Both orchestrators dispatch evaluator invocations concurrently under a
// configurable bound, isolate per-example evaluator failures from the batch,
// and report every invocation in scope: a summary always states how many
// succeeded and how many failed, and lists the failures. Only resolution
// problems abort a batch, such as a missing experiment or a dataset
// mismatch.
//
// Evaluators are trusted for judgment, not for shape: verdicts are validated
// at the orchestrator boundary, and a pairwise scores map must cover exactly
// the two compared run IDs.
package evaluate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Makoq/evalsmith/pkg/domain"
)

// ErrNilTarget is returned when Evaluate is invoked without a target.
var ErrNilTarget = errors.New("target function is required")

// Target produces a system's outputs for one example. Evaluate records each
// invocation as a run of the created experiment; a returned error marks the
// run failed without aborting the batch.
type Target func(ctx context.Context, example *domain.Example) (map[string]any, error)

// exampleOutcome carries one example's results back to the collector.
type exampleOutcome struct {
	exampleID     string
	targetErr     error
	runPersistErr error
	failures      []Failure
	scored        []Result
}

// Evaluate runs target over the dataset's examples, records the runs under a
// newly created experiment, applies each evaluator to each run, and persists
// the validated scores as feedback.
//
// Examples are processed concurrently, bounded by WithMaxConcurrency
// (default 5). Target and evaluator failures are isolated per example and
// recorded in the report; the runs of failed targets persist with error
// status and are still evaluated. Cancelling the context halts dispatch of
// queued examples, drains in-flight work, and returns the partial report
// together with the context's error.
func Evaluate(
	ctx context.Context,
	store ExperimentStore,
	target Target,
	dataset domain.DatasetRef,
	evaluators []Evaluator,
	opts ...Option,
) (*Report, error) {
	o := buildOptions(opts)
	o.logger = o.logger.With("component", "evaluate")

	if target == nil {
		return nil, ErrNilTarget
	}
	if len(evaluators) == 0 {
		return nil, ErrNoEvaluators
	}

	ds, err := store.GetDataset(ctx, dataset)
	if err != nil {
		return nil, err
	}
	examples, err := store.ListExamples(ctx, domain.DatasetByID(ds.ID), o.filter)
	if err != nil {
		return nil, fmt.Errorf("loading examples for dataset %q: %w", ds.ID, err)
	}

	name := o.experimentPrefix
	if name == "" {
		name = ds.Name
	}
	name = fmt.Sprintf("%s-%s", name, uuid.NewString()[:8])
	exp, err := store.CreateExperiment(ctx, name, ds.ID, o.metadata)
	if err != nil {
		return nil, fmt.Errorf("creating experiment: %w", err)
	}

	report := &Report{
		Experiment: exp,
		Examples:   len(examples),
		Total:      len(examples) * len(evaluators),
		Scores:     make(map[string]*ScoreSummary),
	}
	o.logger.Debug("starting evaluation",
		"experiment", exp.ID,
		"dataset", ds.ID,
		"examples", len(examples),
		"evaluators", len(evaluators),
		"max_concurrency", o.maxConcurrency)

	if len(examples) == 0 {
		return report, nil
	}

	// The group bounds concurrency; workers never return errors, because
	// per-example failures are data, not control flow.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.maxConcurrency)

	var mu sync.Mutex
	done := 0
	sums := make(map[string]*scoreAccumulator)

	for _, example := range examples {
		if gctx.Err() != nil {
			break
		}
		ex := example
		g.Go(func() error {
			outcome := evaluateExample(gctx, store, exp, target, evaluators, ex)

			mu.Lock()
			defer mu.Unlock()
			foldOutcome(report, sums, outcome, len(evaluators))
			if o.progress != nil {
				for range evaluators {
					done++
					o.progress(done, report.Total)
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	for key, acc := range sums {
		report.Scores[key] = &ScoreSummary{Mean: acc.sum / float64(acc.n), Count: acc.n}
	}
	sort.Slice(report.Failures, func(i, j int) bool {
		if report.Failures[i].ExampleID != report.Failures[j].ExampleID {
			return report.Failures[i].ExampleID < report.Failures[j].ExampleID
		}
		return report.Failures[i].EvaluatorKey < report.Failures[j].EvaluatorKey
	})

	o.logger.Info("evaluation complete",
		"experiment", exp.ID,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"target_errors", report.TargetErrors)

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

type scoreAccumulator struct {
	sum float64
	n   int
}

// evaluateExample runs the target for one example, persists the run, and
// applies every evaluator to it.
func evaluateExample(
	ctx context.Context,
	store ExperimentStore,
	exp *domain.Experiment,
	target Target,
	evaluators []Evaluator,
	ex *domain.Example,
) exampleOutcome {
	outcome := exampleOutcome{exampleID: ex.ID}

	run := domain.NewRun("target", domain.RunTypeChain, ex.Inputs)
	run.SessionID = exp.ID
	run.ReferenceExampleID = ex.ID

	outputs, err := target(ctx, ex)
	if err != nil {
		outcome.targetErr = err
		run.Fail(err.Error())
	} else {
		run.Complete(outputs)
	}

	if err := store.CreateRun(ctx, run); err != nil {
		outcome.runPersistErr = fmt.Errorf("persisting run for example %q: %w", ex.ID, err)
		return outcome
	}

	for _, ev := range evaluators {
		key := ev.Key()
		results, err := ev.EvaluateRun(ctx, run, ex)
		if err != nil {
			outcome.failures = append(outcome.failures, Failure{
				ExampleID:    ex.ID,
				EvaluatorKey: key,
				Err:          &domain.EvaluatorError{EvaluatorKey: key, ExampleID: ex.ID, Err: err},
			})
			continue
		}
		entries, err := validateResults(results, key, ex.ID)
		if err != nil {
			outcome.failures = append(outcome.failures, Failure{ExampleID: ex.ID, EvaluatorKey: key, Err: err})
			continue
		}

		rows := make([]*domain.Feedback, 0, len(entries))
		for _, entry := range entries {
			fb := domain.NewScoredFeedback(run.ID, entry.Key, entry.Score)
			if entry.Comment != "" {
				fb = fb.WithComment(entry.Comment)
			}
			fb.Correction = entry.Correction
			rows = append(rows, fb)
		}
		if err := store.CreateFeedbackBatch(ctx, rows); err != nil {
			outcome.failures = append(outcome.failures, Failure{
				ExampleID:    ex.ID,
				EvaluatorKey: key,
				Err:          fmt.Errorf("persisting feedback for example %q: %w", ex.ID, err),
			})
			continue
		}
		outcome.scored = append(outcome.scored, entries...)
	}
	return outcome
}

// foldOutcome merges one example's outcome into the report. Callers hold the
// collector lock.
func foldOutcome(report *Report, sums map[string]*scoreAccumulator, outcome exampleOutcome, evaluators int) {
	if outcome.runPersistErr != nil {
		// Nothing was scored; every invocation for this example failed.
		report.Failed += evaluators
		report.Failures = append(report.Failures, Failure{
			ExampleID: outcome.exampleID,
			Err:       outcome.runPersistErr,
		})
		if outcome.targetErr != nil {
			report.TargetErrors++
		}
		return
	}

	if outcome.targetErr != nil {
		report.TargetErrors++
		report.Failures = append(report.Failures, Failure{
			ExampleID: outcome.exampleID,
			Err:       fmt.Errorf("target failed: %w", outcome.targetErr),
		})
	}

	report.Failed += len(outcome.failures)
	report.Succeeded += evaluators - len(outcome.failures)
	report.Failures = append(report.Failures, outcome.failures...)

	for _, entry := range outcome.scored {
		acc := sums[entry.Key]
		if acc == nil {
			acc = &scoreAccumulator{}
			sums[entry.Key] = acc
		}
		acc.sum += entry.Score
		acc.n++
	}
}
