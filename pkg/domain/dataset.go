// Package domain defines the core entities of the evaluation platform:
// datasets and their examples, traced runs and run trees, experiments, and
// feedback records. Types here are transport-agnostic value objects with
// constructor functions, validation methods, and no I/O; the client and
// evaluate packages build on them.
//
// Constructors come in pairs where determinism matters: NewX generates
// identifiers and timestamps, MakeX accepts them from the caller so fixtures
// and replayed traffic produce identical values.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Dataset is a named collection of examples that experiments run against.
// Examples are versioned independently; the dataset itself carries only
// identity and descriptive metadata.
type Dataset struct {
	// ID uniquely identifies the dataset on the platform.
	ID string `json:"id" validate:"required"`

	// Name is the human-readable dataset name, unique per workspace.
	Name string `json:"name" validate:"required"`

	// Description optionally documents what the dataset covers.
	Description string `json:"description,omitempty"`

	// CreatedAt records when the dataset was created.
	CreatedAt time.Time `json:"created_at"`

	// ExampleCount is the number of examples currently in the dataset,
	// as reported by the platform at read time.
	ExampleCount int `json:"example_count,omitempty" validate:"gte=0"`

	// Metadata carries arbitrary key-value annotations.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewDataset creates a dataset with a generated ID and current timestamp.
func NewDataset(name, description string) *Dataset {
	return &Dataset{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
}

// Validate checks structural validity using the domain validation rules.
func (d *Dataset) Validate() error {
	return validate.Struct(d)
}

// WithMetadata returns a copy of the dataset with the given metadata merged
// over the existing entries. The receiver is not modified.
func (d *Dataset) WithMetadata(meta map[string]any) *Dataset {
	clone := *d
	clone.Metadata = cloneAnyMap(d.Metadata)
	if clone.Metadata == nil {
		clone.Metadata = make(map[string]any, len(meta))
	}
	for k, v := range meta {
		clone.Metadata[k] = v
	}
	return &clone
}

// DatasetRef identifies a dataset by ID or by name. Exactly one field must
// be set; resolution by name is a platform-side lookup.
type DatasetRef struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// DatasetByID builds a reference that resolves by dataset ID.
func DatasetByID(id string) DatasetRef { return DatasetRef{ID: id} }

// DatasetByName builds a reference that resolves by dataset name.
func DatasetByName(name string) DatasetRef { return DatasetRef{Name: name} }

// Validate ensures exactly one of ID or Name is set.
func (r DatasetRef) Validate() error {
	if (r.ID == "") == (r.Name == "") {
		return ErrInvalidDatasetRef
	}
	return nil
}

// String returns whichever identifier is set, for logging and error text.
func (r DatasetRef) String() string {
	if r.ID != "" {
		return r.ID
	}
	return r.Name
}
