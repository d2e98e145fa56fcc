package domain

import (
	"time"

	"github.com/google/uuid"
)

// Experiment is one recorded evaluation of a target system against a
// dataset: a named session whose runs each reference the example that
// produced them. Comparative evaluation takes two experiments over the same
// dataset and scores their runs pairwise.
type Experiment struct {
	// ID uniquely identifies the experiment session.
	ID string `json:"id" validate:"required"`

	// Name is the human-readable experiment name, unique per workspace.
	Name string `json:"name" validate:"required"`

	// DatasetID is the dataset this experiment ran against.
	DatasetID string `json:"dataset_id" validate:"required"`

	// Description optionally documents the configuration under test.
	Description string `json:"description,omitempty"`

	// StartTime records when the experiment began.
	StartTime time.Time `json:"start_time"`

	// EndTime records completion, zero while in progress.
	EndTime time.Time `json:"end_time,omitempty"`

	// RunCount is the number of runs logged to the session, as reported by
	// the platform at read time.
	RunCount int `json:"run_count,omitempty" validate:"gte=0"`

	// Metadata carries arbitrary annotations, e.g. model and parameters.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewExperiment creates an experiment with a generated ID and current
// start time.
func NewExperiment(name, datasetID string) *Experiment {
	return &Experiment{
		ID:        uuid.New().String(),
		Name:      name,
		DatasetID: datasetID,
		StartTime: time.Now().UTC(),
	}
}

// MakeExperiment creates an experiment with caller-supplied identity, for
// fixtures and deterministic tests.
func MakeExperiment(id, name, datasetID string) *Experiment {
	return &Experiment{
		ID:        id,
		Name:      name,
		DatasetID: datasetID,
		StartTime: time.Now().UTC(),
	}
}

// Validate checks structural validity using the domain validation rules.
func (e *Experiment) Validate() error {
	return validate.Struct(e)
}

// WithMetadata returns a copy of the experiment with the given metadata
// merged over existing entries. The receiver is not modified.
func (e *Experiment) WithMetadata(meta map[string]any) *Experiment {
	clone := *e
	clone.Metadata = cloneAnyMap(e.Metadata)
	if clone.Metadata == nil {
		clone.Metadata = make(map[string]any, len(meta))
	}
	for k, v := range meta {
		clone.Metadata[k] = v
	}
	return &clone
}

// ComparativeExperiment groups the pairwise judgments of one comparative
// evaluation. Each invocation of the comparative orchestrator creates a new
// one; prior comparative experiments are never mutated, so re-running the
// same comparison yields an independent record.
type ComparativeExperiment struct {
	// ID uniquely identifies the comparative experiment.
	ID string `json:"id" validate:"required"`

	// Name is the display name, derived from the compared experiments when
	// the caller gives no prefix.
	Name string `json:"name" validate:"required"`

	// ExperimentIDs are the two compared experiment sessions, in the order
	// the caller supplied them.
	ExperimentIDs []string `json:"experiment_ids" validate:"required,len=2"`

	// DatasetID is the shared dataset both experiments ran against.
	DatasetID string `json:"dataset_id" validate:"required"`

	// CreatedAt records when the comparison was started.
	CreatedAt time.Time `json:"created_at"`

	// Metadata carries arbitrary annotations.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewComparativeExperiment creates a comparative experiment with a generated
// ID and current timestamp.
func NewComparativeExperiment(name, datasetID string, experimentIDs [2]string) *ComparativeExperiment {
	return &ComparativeExperiment{
		ID:            uuid.New().String(),
		Name:          name,
		ExperimentIDs: []string{experimentIDs[0], experimentIDs[1]},
		DatasetID:     datasetID,
		CreatedAt:     time.Now().UTC(),
	}
}

// Validate checks structural validity using the domain validation rules.
func (c *ComparativeExperiment) Validate() error {
	return validate.Struct(c)
}

// ExperimentRef identifies an experiment by ID or by name. Exactly one
// field must be set. Name resolution is a platform-side lookup and fails
// with a not-found error when no experiment matches.
type ExperimentRef struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// ExperimentByID builds a reference that resolves by experiment ID.
func ExperimentByID(id string) ExperimentRef { return ExperimentRef{ID: id} }

// ExperimentByName builds a reference that resolves by experiment name.
func ExperimentByName(name string) ExperimentRef { return ExperimentRef{Name: name} }

// Validate ensures exactly one of ID or Name is set.
func (r ExperimentRef) Validate() error {
	if (r.ID == "") == (r.Name == "") {
		return ErrInvalidExperimentRef
	}
	return nil
}

// String returns whichever identifier is set, for logging and error text.
func (r ExperimentRef) String() string {
	if r.ID != "" {
		return r.ID
	}
	return r.Name
}
