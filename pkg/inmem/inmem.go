// Package inmem provides a thread-safe in-memory platform for tests and
// local development. It implements the evaluate store interfaces with the
// same reference-resolution and not-found semantics as the REST client, so
// orchestration code runs unchanged against either.
package inmem

import (
	"context"
	"sync"

	"github.com/Makoq/evalsmith/pkg/domain"
)

// Platform is an in-memory stand-in for the hosted platform. The zero value
// is not usable; construct with New. All methods are safe for concurrent
// use; feedback writes in particular tolerate concurrent writers, matching
// the append-only sink contract.
type Platform struct {
	mu sync.RWMutex

	datasets    map[string]*domain.Dataset
	examples    map[string][]*domain.Example // dataset ID, insertion order
	experiments map[string]*domain.Experiment
	runs        map[string][]*domain.Run // experiment ID, insertion order

	comparative      map[string]*domain.ComparativeExperiment
	comparativeOrder []string

	feedback []*domain.Feedback
}

// New creates an empty in-memory platform.
func New() *Platform {
	return &Platform{
		datasets:    make(map[string]*domain.Dataset),
		examples:    make(map[string][]*domain.Example),
		experiments: make(map[string]*domain.Experiment),
		runs:        make(map[string][]*domain.Run),
		comparative: make(map[string]*domain.ComparativeExperiment),
	}
}

// AddDataset seeds a dataset and returns it for chaining.
func (p *Platform) AddDataset(ds *domain.Dataset) *domain.Dataset {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.datasets[ds.ID] = ds
	return ds
}

// AddExample seeds an example into its dataset.
func (p *Platform) AddExample(ex *domain.Example) *domain.Example {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.examples[ex.DatasetID] = append(p.examples[ex.DatasetID], ex)
	return ex
}

// AddExperiment seeds an experiment session.
func (p *Platform) AddExperiment(exp *domain.Experiment) *domain.Experiment {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.experiments[exp.ID] = exp
	return exp
}

// AddRun seeds a run under an experiment, preserving insertion order.
func (p *Platform) AddRun(experimentID string, run *domain.Run) *domain.Run {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.runs[experimentID] = append(p.runs[experimentID], run)
	return run
}

// GetDataset resolves a dataset by ID or name.
func (p *Platform) GetDataset(_ context.Context, ref domain.DatasetRef) (*domain.Dataset, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lookupDataset(ref)
}

func (p *Platform) lookupDataset(ref domain.DatasetRef) (*domain.Dataset, error) {
	if ref.ID != "" {
		if ds, ok := p.datasets[ref.ID]; ok {
			return ds, nil
		}
	} else {
		for _, ds := range p.datasets {
			if ds.Name == ref.Name {
				return ds, nil
			}
		}
	}
	return nil, &domain.NotFoundError{Resource: "dataset", Ref: ref.String()}
}

// ListExamples returns the dataset's examples matching the filter, in
// insertion order. Version pinning is not modeled; AsOfVersion is ignored.
// Returned examples are copies, safe for the caller to hold.
func (p *Platform) ListExamples(_ context.Context, ref domain.DatasetRef, filter *domain.ExampleFilter) ([]*domain.Example, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	ds, err := p.lookupDataset(ref)
	if err != nil {
		return nil, err
	}
	var out []*domain.Example
	for _, ex := range p.examples[ds.ID] {
		if filter.Matches(ex) {
			out = append(out, ex.Clone())
		}
	}
	return out, nil
}

// ResolveExperiment resolves an experiment by ID or name.
func (p *Platform) ResolveExperiment(_ context.Context, ref domain.ExperimentRef) (*domain.Experiment, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	if ref.ID != "" {
		if exp, ok := p.experiments[ref.ID]; ok {
			return exp, nil
		}
	} else {
		for _, exp := range p.experiments {
			if exp.Name == ref.Name {
				return exp, nil
			}
		}
	}
	return nil, &domain.NotFoundError{Resource: "experiment", Ref: ref.String()}
}

// CreateExperiment creates an experiment session bound to an existing
// dataset.
func (p *Platform) CreateExperiment(_ context.Context, name, datasetID string, metadata map[string]any) (*domain.Experiment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.datasets[datasetID]; !ok {
		return nil, &domain.NotFoundError{Resource: "dataset", Ref: datasetID}
	}
	exp := domain.NewExperiment(name, datasetID)
	exp.Metadata = metadata
	if err := exp.Validate(); err != nil {
		return nil, err
	}
	p.experiments[exp.ID] = exp
	return exp, nil
}

// CreateComparativeExperiment records a comparative experiment. Both
// referenced experiments must exist.
func (p *Platform) CreateComparativeExperiment(_ context.Context, ce *domain.ComparativeExperiment) (*domain.ComparativeExperiment, error) {
	if err := ce.Validate(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, id := range ce.ExperimentIDs {
		if _, ok := p.experiments[id]; !ok {
			return nil, &domain.NotFoundError{Resource: "experiment", Ref: id}
		}
	}
	p.comparative[ce.ID] = ce
	p.comparativeOrder = append(p.comparativeOrder, ce.ID)
	return ce, nil
}

// ListRuns returns an experiment's runs in insertion order. Without
// loadNested each run is a root-level copy with its child tree stripped,
// matching the platform's shallow listing.
func (p *Platform) ListRuns(_ context.Context, experimentID string, loadNested bool) ([]*domain.Run, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if _, ok := p.experiments[experimentID]; !ok {
		return nil, &domain.NotFoundError{Resource: "experiment", Ref: experimentID}
	}
	runs := p.runs[experimentID]
	out := make([]*domain.Run, 0, len(runs))
	for _, run := range runs {
		if loadNested {
			out = append(out, run)
			continue
		}
		shallow := *run
		shallow.ChildRuns = nil
		out = append(out, &shallow)
	}
	return out, nil
}

// CreateRun records a run under the experiment named by its SessionID.
func (p *Platform) CreateRun(_ context.Context, run *domain.Run) error {
	if err := run.Validate(); err != nil {
		return err
	}
	if run.SessionID == "" {
		return domain.ErrInvalidRun
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.runs[run.SessionID] = append(p.runs[run.SessionID], run)
	return nil
}

// CreateFeedback appends one feedback record.
func (p *Platform) CreateFeedback(_ context.Context, fb *domain.Feedback) error {
	if err := fb.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.feedback = append(p.feedback, fb)
	return nil
}

// CreateFeedbackBatch appends a batch of feedback records. The batch is
// validated up front and rejected whole when any record is invalid,
// matching the REST client's behavior.
func (p *Platform) CreateFeedbackBatch(_ context.Context, batch []*domain.Feedback) error {
	for _, fb := range batch {
		if err := fb.Validate(); err != nil {
			return err
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.feedback = append(p.feedback, batch...)
	return nil
}

// Feedback returns every stored feedback record in write order.
func (p *Platform) Feedback() []*domain.Feedback {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*domain.Feedback, len(p.feedback))
	copy(out, p.feedback)
	return out
}

// FeedbackForRun returns the feedback recorded against one run, in write
// order.
func (p *Platform) FeedbackForRun(runID string) []*domain.Feedback {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []*domain.Feedback
	for _, fb := range p.feedback {
		if fb.RunID == runID {
			out = append(out, fb)
		}
	}
	return out
}

// FeedbackForComparative returns the feedback belonging to one comparative
// experiment, in write order.
func (p *Platform) FeedbackForComparative(ceID string) []*domain.Feedback {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []*domain.Feedback
	for _, fb := range p.feedback {
		if fb.ComparativeExperimentID == ceID {
			out = append(out, fb)
		}
	}
	return out
}

// ComparativeExperiments returns the recorded comparative experiments in
// creation order.
func (p *Platform) ComparativeExperiments() []*domain.ComparativeExperiment {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*domain.ComparativeExperiment, 0, len(p.comparativeOrder))
	for _, id := range p.comparativeOrder {
		out = append(out, p.comparative[id])
	}
	return out
}
