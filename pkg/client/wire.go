package client

import (
	"time"

	"github.com/Makoq/evalsmith/pkg/domain"
)

// API paths, relative to the configured endpoint.
const (
	pathDatasets               = "/api/v1/datasets"
	pathExamples               = "/api/v1/examples"
	pathExperiments            = "/api/v1/experiments"
	pathRuns                   = "/api/v1/runs"
	pathFeedback               = "/api/v1/feedback"
	pathFeedbackBatch          = "/api/v1/feedback/batch"
	pathComparativeExperiments = "/api/v1/comparative-experiments"
)

// defaultPageSize is the page size for list endpoints when the caller does
// not override it.
const defaultPageSize = 100

// runPayload is the wire shape for run create and update calls. Child runs
// are logged as their own records, so the tree never travels inline; inputs
// and outputs carry the redacted payloads, not the caller's originals.
type runPayload struct {
	ID                 string         `json:"id"`
	Name               string         `json:"name"`
	RunType            string         `json:"run_type"`
	Status             string         `json:"status"`
	Inputs             map[string]any `json:"inputs"`
	Outputs            map[string]any `json:"outputs"`
	Error              string         `json:"error,omitempty"`
	StartTime          time.Time      `json:"start_time"`
	EndTime            *time.Time     `json:"end_time,omitempty"`
	ParentRunID        string         `json:"parent_run_id,omitempty"`
	TraceID            string         `json:"trace_id,omitempty"`
	SessionID          string         `json:"session_id,omitempty"`
	ReferenceExampleID string         `json:"reference_example_id,omitempty"`
	Metadata           map[string]any `json:"metadata,omitempty"`
	Tags               []string       `json:"tags,omitempty"`
}

// runUpdatePayload is the wire shape for PATCH; only completion fields.
type runUpdatePayload struct {
	Outputs  map[string]any `json:"outputs"`
	Status   string         `json:"status,omitempty"`
	Error    string         `json:"error,omitempty"`
	EndTime  *time.Time     `json:"end_time,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// experimentCreatePayload is the wire shape for experiment creation.
type experimentCreatePayload struct {
	Name        string         `json:"name"`
	DatasetID   string         `json:"dataset_id"`
	Description string         `json:"description,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// feedbackBatchPayload wraps a batch feedback write.
type feedbackBatchPayload struct {
	Feedback []*domain.Feedback `json:"feedback"`
}

// runPayloadFrom builds the wire record for a run with redaction applied.
func runPayloadFrom(run *domain.Run, inputs, outputs map[string]any) *runPayload {
	p := &runPayload{
		ID:                 run.ID,
		Name:               run.Name,
		RunType:            run.RunType.String(),
		Status:             run.Status.String(),
		Inputs:             inputs,
		Outputs:            outputs,
		Error:              run.Error,
		StartTime:          run.StartTime,
		ParentRunID:        run.ParentRunID,
		TraceID:            run.TraceID,
		SessionID:          run.SessionID,
		ReferenceExampleID: run.ReferenceExampleID,
		Metadata:           run.Metadata,
		Tags:               run.Tags,
	}
	if !run.EndTime.IsZero() {
		end := run.EndTime
		p.EndTime = &end
	}
	return p
}
