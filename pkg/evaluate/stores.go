package evaluate

import (
	"context"

	"github.com/Makoq/evalsmith/pkg/domain"
)

// The orchestrators talk to the platform through narrow interfaces so they
// run the same against the REST client and the in-memory platform. All
// stores are read-only during evaluation except the feedback sink and the
// experiment writers, which are append-only.

// DatasetResolver looks up dataset records.
type DatasetResolver interface {
	GetDataset(ctx context.Context, ref domain.DatasetRef) (*domain.Dataset, error)
}

// ExampleLister fetches dataset examples matching a filter.
type ExampleLister interface {
	ListExamples(ctx context.Context, ref domain.DatasetRef, filter *domain.ExampleFilter) ([]*domain.Example, error)
}

// ExperimentResolver resolves experiment references by ID or name.
type ExperimentResolver interface {
	ResolveExperiment(ctx context.Context, ref domain.ExperimentRef) (*domain.Experiment, error)
}

// ExperimentWriter creates experiment sessions.
type ExperimentWriter interface {
	CreateExperiment(ctx context.Context, name, datasetID string, metadata map[string]any) (*domain.Experiment, error)
}

// ComparativeExperimentWriter creates comparative experiment records.
type ComparativeExperimentWriter interface {
	CreateComparativeExperiment(ctx context.Context, ce *domain.ComparativeExperiment) (*domain.ComparativeExperiment, error)
}

// RunLister fetches the runs of an experiment, keyed to their reference
// examples. With loadNested each root run carries its full child tree.
type RunLister interface {
	ListRuns(ctx context.Context, experimentID string, loadNested bool) ([]*domain.Run, error)
}

// RunWriter persists run records.
type RunWriter interface {
	CreateRun(ctx context.Context, run *domain.Run) error
}

// FeedbackWriter persists evaluation feedback. The sink is append-friendly:
// concurrent writes for distinct (run, key, example) records need no
// coordination.
type FeedbackWriter interface {
	CreateFeedback(ctx context.Context, fb *domain.Feedback) error
	CreateFeedbackBatch(ctx context.Context, batch []*domain.Feedback) error
}

// ComparativeStore is the platform surface the comparative orchestrator
// needs. Both *client.Client and *inmem.Platform satisfy it.
type ComparativeStore interface {
	ExperimentResolver
	RunLister
	ExampleLister
	ComparativeExperimentWriter
	FeedbackWriter
}

// ExperimentStore is the platform surface the single-experiment orchestrator
// needs. Both *client.Client and *inmem.Platform satisfy it.
type ExperimentStore interface {
	DatasetResolver
	ExampleLister
	ExperimentWriter
	RunWriter
	FeedbackWriter
}
