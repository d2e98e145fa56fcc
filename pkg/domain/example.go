package domain

import (
	"reflect"
	"time"

	"github.com/google/uuid"
)

// Example is a single dataset entry: the inputs fed to the system under
// test and, optionally, reference outputs to score against. Inputs and
// outputs are free-form JSON objects; the platform does not interpret them.
type Example struct {
	// ID uniquely identifies the example within its dataset.
	ID string `json:"id" validate:"required"`

	// DatasetID is the owning dataset.
	DatasetID string `json:"dataset_id" validate:"required"`

	// Inputs is the payload handed to the target system.
	Inputs map[string]any `json:"inputs" validate:"required"`

	// Outputs optionally holds reference (gold) outputs.
	Outputs map[string]any `json:"outputs,omitempty"`

	// Metadata carries arbitrary annotations, e.g. source or difficulty.
	Metadata map[string]any `json:"metadata,omitempty"`

	// Splits lists the named splits this example belongs to.
	Splits []string `json:"splits,omitempty"`

	// CreatedAt records when the example was added to the dataset.
	CreatedAt time.Time `json:"created_at"`

	// ModifiedAt records the last edit, zero if never modified.
	ModifiedAt time.Time `json:"modified_at,omitempty"`
}

// NewExample creates an example with a generated ID and current timestamp.
func NewExample(datasetID string, inputs, outputs map[string]any) *Example {
	return &Example{
		ID:        uuid.New().String(),
		DatasetID: datasetID,
		Inputs:    cloneAnyMap(inputs),
		Outputs:   cloneAnyMap(outputs),
		CreatedAt: time.Now().UTC(),
	}
}

// MakeExample creates an example with caller-supplied identity, for fixtures
// and deterministic tests.
func MakeExample(id, datasetID string, inputs, outputs map[string]any) *Example {
	return &Example{
		ID:        id,
		DatasetID: datasetID,
		Inputs:    cloneAnyMap(inputs),
		Outputs:   cloneAnyMap(outputs),
		CreatedAt: time.Now().UTC(),
	}
}

// Validate checks structural validity using the domain validation rules.
func (e *Example) Validate() error {
	if err := validate.Struct(e); err != nil {
		return err
	}
	return nil
}

// Clone returns a deep-enough copy for safe mutation: maps and slices are
// copied one level deep, which covers every mutation the SDK performs.
func (e *Example) Clone() *Example {
	clone := *e
	clone.Inputs = cloneAnyMap(e.Inputs)
	clone.Outputs = cloneAnyMap(e.Outputs)
	clone.Metadata = cloneAnyMap(e.Metadata)
	clone.Splits = cloneStringSlice(e.Splits)
	return &clone
}

// InSplit reports whether the example belongs to the named split.
func (e *Example) InSplit(name string) bool {
	for _, s := range e.Splits {
		if s == name {
			return true
		}
	}
	return false
}

// ExampleFilter narrows an example listing. The zero value matches every
// example in the dataset.
type ExampleFilter struct {
	// IDs restricts the listing to specific examples.
	IDs []string

	// Splits restricts to examples in any of the named splits.
	Splits []string

	// Metadata restricts to examples whose metadata contains every given
	// key with an equal value.
	Metadata map[string]any

	// AsOfVersion pins the listing to a dataset version snapshot. Empty
	// means latest.
	AsOfVersion string

	// PageSize overrides the fetch page size, for tuning large listings.
	PageSize int
}

// Matches reports whether the example satisfies the filter. Version
// pinning is a store-side concern and is not evaluated here.
func (f *ExampleFilter) Matches(e *Example) bool {
	if f == nil {
		return true
	}
	if len(f.IDs) > 0 {
		found := false
		for _, id := range f.IDs {
			if e.ID == id {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(f.Splits) > 0 {
		found := false
		for _, s := range f.Splits {
			if e.InSplit(s) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for k, want := range f.Metadata {
		got, ok := e.Metadata[k]
		if !ok || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}
