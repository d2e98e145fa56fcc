package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Makoq/evalsmith/pkg/domain"
)

// GetDataset resolves a dataset by ID or name. A reference that resolves to
// nothing yields an error matching domain.ErrNotFound.
func (c *Client) GetDataset(ctx context.Context, ref domain.DatasetRef) (*domain.Dataset, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	if ref.ID != "" {
		var ds domain.Dataset
		err := c.do(ctx, http.MethodGet, pathDatasets+"/"+url.PathEscape(ref.ID), nil, nil, &ds)
		if err != nil {
			return nil, notFound(err, "dataset", ref.ID)
		}
		return &ds, nil
	}

	query := url.Values{"name": []string{ref.Name}, "limit": []string{"1"}}
	var page []domain.Dataset
	if err := c.do(ctx, http.MethodGet, pathDatasets, query, nil, &page); err != nil {
		return nil, fmt.Errorf("resolving dataset %q: %w", ref.Name, err)
	}
	if len(page) == 0 {
		return nil, &domain.NotFoundError{Resource: "dataset", Ref: ref.Name}
	}
	return &page[0], nil
}
