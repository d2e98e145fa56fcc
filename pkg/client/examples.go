package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Makoq/evalsmith/pkg/domain"
)

// GetExample fetches a single example by ID.
func (c *Client) GetExample(ctx context.Context, id string) (*domain.Example, error) {
	var ex domain.Example
	err := c.do(ctx, http.MethodGet, pathExamples+"/"+url.PathEscape(id), nil, nil, &ex)
	if err != nil {
		return nil, notFound(err, "example", id)
	}
	return &ex, nil
}

// ListExamples fetches every example of a dataset matching the filter. The
// full result is materialized; use ListExamplesAutoPaging to stream large
// datasets instead.
func (c *Client) ListExamples(ctx context.Context, ref domain.DatasetRef, filter *domain.ExampleFilter) ([]*domain.Example, error) {
	it := c.ListExamplesAutoPaging(ctx, ref, filter)
	var out []*domain.Example
	for it.Next() {
		out = append(out, it.Current())
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListExamplesAutoPaging returns a lazy iterator over a dataset's examples.
// Pages are fetched on demand as the caller advances. The sequence is
// restartable: every call builds a fresh iterator positioned at the start,
// so consuming one never affects another.
func (c *Client) ListExamplesAutoPaging(ctx context.Context, ref domain.DatasetRef, filter *domain.ExampleFilter) *ExampleIterator {
	it := &ExampleIterator{
		ctx:      ctx,
		client:   c,
		filter:   filter,
		pageSize: defaultPageSize,
	}
	if filter != nil && filter.PageSize > 0 {
		it.pageSize = filter.PageSize
	}

	if err := ref.Validate(); err != nil {
		it.err = err
		return it
	}

	// Name references resolve once, up front; the iterator then pages by ID.
	if ref.ID != "" {
		it.datasetID = ref.ID
	} else {
		ds, err := c.GetDataset(ctx, ref)
		if err != nil {
			it.err = err
			return it
		}
		it.datasetID = ds.ID
	}
	return it
}

// ExampleIterator streams a dataset's examples page by page. Use as:
//
//	it := client.ListExamplesAutoPaging(ctx, ref, nil)
//	for it.Next() {
//		ex := it.Current()
//		...
//	}
//	if err := it.Err(); err != nil { ... }
type ExampleIterator struct {
	ctx      context.Context
	client   *Client
	filter   *domain.ExampleFilter
	pageSize int

	datasetID string
	offset    int
	page      []domain.Example
	idx       int
	done      bool
	err       error
	current   *domain.Example
}

// Next advances to the next example, fetching the next page when the
// current one is exhausted. It returns false at the end of the sequence or
// on error; check Err afterwards to distinguish the two.
func (it *ExampleIterator) Next() bool {
	if it.err != nil || it.client == nil {
		return false
	}

	for it.idx >= len(it.page) {
		if it.done {
			return false
		}
		if !it.fetchPage() {
			return false
		}
	}

	ex := it.page[it.idx]
	it.idx++
	it.current = &ex
	return true
}

// Current returns the example Next advanced to. Only valid after a true
// Next.
func (it *ExampleIterator) Current() *domain.Example { return it.current }

// Err returns the error that terminated iteration, nil on clean exhaustion.
func (it *ExampleIterator) Err() error { return it.err }

// fetchPage loads the next page into the iterator. Returns false when no
// further examples are available or on error.
func (it *ExampleIterator) fetchPage() bool {
	query := url.Values{
		"dataset": []string{it.datasetID},
		"offset":  []string{strconv.Itoa(it.offset)},
		"limit":   []string{strconv.Itoa(it.pageSize)},
	}
	it.applyFilter(query)

	var page []domain.Example
	if err := it.client.do(it.ctx, http.MethodGet, pathExamples, query, nil, &page); err != nil {
		it.err = fmt.Errorf("listing examples for dataset %q: %w", it.datasetID, err)
		return false
	}

	it.offset += len(page)
	if len(page) < it.pageSize {
		it.done = true
	}
	it.page = page
	it.idx = 0
	return len(page) > 0
}

// applyFilter translates the filter into list query parameters.
func (it *ExampleIterator) applyFilter(query url.Values) {
	if it.filter == nil {
		return
	}
	for _, id := range it.filter.IDs {
		query.Add("id", id)
	}
	for _, split := range it.filter.Splits {
		query.Add("split", split)
	}
	if len(it.filter.Metadata) > 0 {
		if encoded, err := json.Marshal(it.filter.Metadata); err == nil {
			query.Set("metadata", string(encoded))
		}
	}
	if it.filter.AsOfVersion != "" {
		query.Set("as_of", it.filter.AsOfVersion)
	}
}
