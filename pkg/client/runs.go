package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Makoq/evalsmith/pkg/domain"
	"github.com/Makoq/evalsmith/pkg/redact"
)

// RunOption customizes a single run create or update call.
type RunOption func(*runCallOptions)

type runCallOptions struct {
	inputProcessor  redact.Processor
	outputProcessor redact.Processor
}

// WithInputProcessor attaches a function-level transform for this call's
// input payload. It overrides the client-level anonymizer and hide flags.
func WithInputProcessor(fn redact.Processor) RunOption {
	return func(o *runCallOptions) { o.inputProcessor = fn }
}

// WithOutputProcessor attaches a function-level transform for this call's
// output payload. It overrides the client-level anonymizer and hide flags.
func WithOutputProcessor(fn redact.Processor) RunOption {
	return func(o *runCallOptions) { o.outputProcessor = fn }
}

// ListRuns fetches all runs of an experiment. With loadNested the platform
// returns each root run with its full child tree attached; otherwise only
// root-level run data travels. Runs are returned in the platform's stable
// creation order.
func (c *Client) ListRuns(ctx context.Context, experimentID string, loadNested bool) ([]*domain.Run, error) {
	if experimentID == "" {
		return nil, domain.ErrInvalidRun
	}

	var out []*domain.Run
	offset := 0
	for {
		query := url.Values{
			"experiment": []string{experimentID},
			"offset":     []string{strconv.Itoa(offset)},
			"limit":      []string{strconv.Itoa(defaultPageSize)},
		}
		if loadNested {
			query.Set("load_nested", "true")
		}

		var page []*domain.Run
		if err := c.do(ctx, http.MethodGet, pathRuns, query, nil, &page); err != nil {
			return nil, fmt.Errorf("listing runs for experiment %q: %w", experimentID, err)
		}
		out = append(out, page...)
		if len(page) < defaultPageSize {
			return out, nil
		}
		offset += len(page)
	}
}

// GetRun fetches a single run by ID. With loadNested the full child tree is
// attached.
func (c *Client) GetRun(ctx context.Context, id string, loadNested bool) (*domain.Run, error) {
	query := url.Values{}
	if loadNested {
		query.Set("load_nested", "true")
	}
	var run domain.Run
	err := c.do(ctx, http.MethodGet, pathRuns+"/"+url.PathEscape(id), query, nil, &run)
	if err != nil {
		return nil, notFound(err, "run", id)
	}
	return &run, nil
}

// CreateRun logs a run to the platform. The run's input and output payloads
// pass through the client's capture policy first: the anonymizer when
// configured, otherwise the hide flags. The caller's run is never mutated.
func (c *Client) CreateRun(ctx context.Context, run *domain.Run) error {
	return c.CreateRunWithOptions(ctx, run)
}

// CreateRunWithOptions logs a run with per-call capture overrides. A
// function-level processor given here wins over the client's anonymizer and
// hide flags for this call only.
func (c *Client) CreateRunWithOptions(ctx context.Context, run *domain.Run, opts ...RunOption) error {
	if err := run.Validate(); err != nil {
		return err
	}
	var o runCallOptions
	for _, opt := range opts {
		opt(&o)
	}

	payload := runPayloadFrom(run,
		c.redactInputs(run.Inputs, o.inputProcessor),
		c.redactOutputs(run.Outputs, o.outputProcessor),
	)
	if err := c.do(ctx, http.MethodPost, pathRuns, nil, payload, nil); err != nil {
		return fmt.Errorf("creating run %q: %w", run.ID, err)
	}
	return nil
}

// UpdateRun patches a run's completion fields: outputs, status, error, and
// end time. Output payloads pass through the same capture policy as
// CreateRun.
func (c *Client) UpdateRun(ctx context.Context, run *domain.Run) error {
	return c.UpdateRunWithOptions(ctx, run)
}

// UpdateRunWithOptions patches a run with per-call capture overrides.
func (c *Client) UpdateRunWithOptions(ctx context.Context, run *domain.Run, opts ...RunOption) error {
	if run.ID == "" {
		return domain.ErrInvalidRun
	}
	var o runCallOptions
	for _, opt := range opts {
		opt(&o)
	}

	payload := runUpdatePayload{
		Outputs:  c.redactOutputs(run.Outputs, o.outputProcessor),
		Status:   run.Status.String(),
		Error:    run.Error,
		Metadata: run.Metadata,
	}
	if !run.EndTime.IsZero() {
		end := run.EndTime
		payload.EndTime = &end
	}

	if err := c.do(ctx, http.MethodPatch, pathRuns+"/"+url.PathEscape(run.ID), nil, payload, nil); err != nil {
		return fmt.Errorf("updating run %q: %w", run.ID, err)
	}
	return nil
}
