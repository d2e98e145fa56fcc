package domain

import (
	"time"

	"github.com/google/uuid"
)

// RunType classifies what a traced run represents.
type RunType string

// Run type values. Chain is the default for composite traces.
const (
	RunTypeChain     RunType = "chain"
	RunTypeLLM       RunType = "llm"
	RunTypeTool      RunType = "tool"
	RunTypeRetriever RunType = "retriever"
	RunTypePrompt    RunType = "prompt"
	RunTypeParser    RunType = "parser"
)

// String returns the wire representation of the run type.
func (t RunType) String() string { return string(t) }

// Valid reports whether the run type is one of the recognized values.
func (t RunType) Valid() bool {
	switch t {
	case RunTypeChain, RunTypeLLM, RunTypeTool, RunTypeRetriever, RunTypePrompt, RunTypeParser:
		return true
	}
	return false
}

// RunStatus describes the lifecycle state of a run.
type RunStatus string

// Run status values.
const (
	RunStatusPending RunStatus = "pending"
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusError   RunStatus = "error"
)

// String returns the wire representation of the run status.
func (s RunStatus) String() string { return string(s) }

// Terminal reports whether the status is a final state.
func (s RunStatus) Terminal() bool {
	return s == RunStatusSuccess || s == RunStatusError
}

// Run is one traced execution: a root trace or a nested operation inside
// one. Runs form a tree through ChildRuns; experiment runs additionally
// reference the dataset example they were produced from, which is how
// comparative evaluation aligns runs across experiments.
type Run struct {
	// ID uniquely identifies the run.
	ID string `json:"id" validate:"required"`

	// Name is the operation name, e.g. "retrieve" or "generate_answer".
	Name string `json:"name" validate:"required"`

	// RunType classifies the operation.
	RunType RunType `json:"run_type" validate:"required,oneof=chain llm tool retriever prompt parser"`

	// Status is the lifecycle state.
	Status RunStatus `json:"status" validate:"required,oneof=pending running success error"`

	// Inputs is the payload the operation received.
	Inputs map[string]any `json:"inputs,omitempty"`

	// Outputs is the payload the operation produced, nil until completion.
	Outputs map[string]any `json:"outputs,omitempty"`

	// Error holds the failure message when Status is error.
	Error string `json:"error,omitempty"`

	// StartTime is when the operation began.
	StartTime time.Time `json:"start_time"`

	// EndTime is when the operation finished, zero while in flight.
	EndTime time.Time `json:"end_time,omitempty"`

	// ParentRunID links a nested run to its parent, empty for roots.
	ParentRunID string `json:"parent_run_id,omitempty"`

	// TraceID identifies the root of the tree this run belongs to.
	TraceID string `json:"trace_id,omitempty"`

	// SessionID is the project or experiment session the run was logged to.
	SessionID string `json:"session_id,omitempty"`

	// ReferenceExampleID links an experiment run to the dataset example it
	// was generated from. Empty for ad-hoc traces.
	ReferenceExampleID string `json:"reference_example_id,omitempty"`

	// Metadata carries arbitrary annotations.
	Metadata map[string]any `json:"metadata,omitempty"`

	// Tags are free-form labels for filtering.
	Tags []string `json:"tags,omitempty"`

	// ChildRuns are nested operations in insertion order. Populated only
	// when the run was fetched with nested loading.
	ChildRuns []*Run `json:"child_runs,omitempty"`
}

// NewRun creates a pending run with a generated ID and current start time.
// The run is its own trace root until attached to a parent.
func NewRun(name string, runType RunType, inputs map[string]any) *Run {
	id := uuid.New().String()
	return &Run{
		ID:        id,
		Name:      name,
		RunType:   runType,
		Status:    RunStatusPending,
		Inputs:    cloneAnyMap(inputs),
		StartTime: time.Now().UTC(),
		TraceID:   id,
	}
}

// MakeRun creates a run with caller-supplied identity, for fixtures and
// deterministic tests.
func MakeRun(id, name string, runType RunType) *Run {
	return &Run{
		ID:        id,
		Name:      name,
		RunType:   runType,
		Status:    RunStatusPending,
		StartTime: time.Now().UTC(),
		TraceID:   id,
	}
}

// Validate checks structural validity using the domain validation rules.
func (r *Run) Validate() error {
	return validate.Struct(r)
}

// AddChild attaches a child run, setting its parent and trace linkage.
// Children keep insertion order, which traversal relies on.
func (r *Run) AddChild(child *Run) *Run {
	child.ParentRunID = r.ID
	child.TraceID = r.TraceID
	r.ChildRuns = append(r.ChildRuns, child)
	return child
}

// Complete marks the run successful with the given outputs.
func (r *Run) Complete(outputs map[string]any) {
	r.Status = RunStatusSuccess
	r.Outputs = cloneAnyMap(outputs)
	r.EndTime = time.Now().UTC()
}

// Fail marks the run errored with the given message.
func (r *Run) Fail(msg string) {
	r.Status = RunStatusError
	r.Error = msg
	r.EndTime = time.Now().UTC()
}

// Duration returns the elapsed time between start and end, zero while the
// run is still in flight.
func (r *Run) Duration() time.Duration {
	if r.EndTime.IsZero() {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}
