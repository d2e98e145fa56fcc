package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Makoq/evalsmith/pkg/domain"
)

// ResolveExperiment resolves an experiment by ID or name. Name resolution
// matches the most recent experiment with that exact name. A reference that
// resolves to nothing yields an error matching domain.ErrNotFound; callers
// treat that as fatal for the request that needed the experiment.
func (c *Client) ResolveExperiment(ctx context.Context, ref domain.ExperimentRef) (*domain.Experiment, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	if ref.ID != "" {
		var exp domain.Experiment
		err := c.do(ctx, http.MethodGet, pathExperiments+"/"+url.PathEscape(ref.ID), nil, nil, &exp)
		if err != nil {
			return nil, notFound(err, "experiment", ref.ID)
		}
		return &exp, nil
	}

	query := url.Values{"name": []string{ref.Name}, "limit": []string{"1"}}
	var page []domain.Experiment
	if err := c.do(ctx, http.MethodGet, pathExperiments, query, nil, &page); err != nil {
		return nil, fmt.Errorf("resolving experiment %q: %w", ref.Name, err)
	}
	if len(page) == 0 {
		return nil, &domain.NotFoundError{Resource: "experiment", Ref: ref.Name}
	}
	return &page[0], nil
}

// CreateExperiment registers a new experiment session against a dataset and
// returns the platform's record, including the assigned ID.
func (c *Client) CreateExperiment(ctx context.Context, name, datasetID string, metadata map[string]any) (*domain.Experiment, error) {
	if name == "" || datasetID == "" {
		return nil, domain.ErrInvalidExperiment
	}

	payload := experimentCreatePayload{
		Name:      name,
		DatasetID: datasetID,
		Metadata:  metadata,
	}
	var exp domain.Experiment
	if err := c.do(ctx, http.MethodPost, pathExperiments, nil, payload, &exp); err != nil {
		return nil, fmt.Errorf("creating experiment %q: %w", name, err)
	}
	return &exp, nil
}

// CreateComparativeExperiment registers the container for one comparative
// evaluation's judgments. Each call creates an independent record; the
// platform never merges comparative experiments.
func (c *Client) CreateComparativeExperiment(ctx context.Context, ce *domain.ComparativeExperiment) (*domain.ComparativeExperiment, error) {
	if err := ce.Validate(); err != nil {
		return nil, err
	}

	var created domain.ComparativeExperiment
	if err := c.do(ctx, http.MethodPost, pathComparativeExperiments, nil, ce, &created); err != nil {
		return nil, fmt.Errorf("creating comparative experiment %q: %w", ce.Name, err)
	}
	return &created, nil
}
