package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Makoq/evalsmith/pkg/domain"
)

// CreateFeedback persists one feedback record against its run. Feedback is
// append-only: records for distinct (run, key, example) combinations never
// conflict, so concurrent writers need no coordination.
func (c *Client) CreateFeedback(ctx context.Context, fb *domain.Feedback) error {
	if err := fb.Validate(); err != nil {
		return err
	}
	if err := c.do(ctx, http.MethodPost, pathFeedback, nil, fb, nil); err != nil {
		return fmt.Errorf("creating feedback %q for run %q: %w", fb.Key, fb.RunID, err)
	}
	return nil
}

// CreateFeedbackBatch persists several feedback records in one request.
// The batch is validated up front and rejected whole on any invalid record;
// partial writes only occur if the platform itself fails mid-batch.
func (c *Client) CreateFeedbackBatch(ctx context.Context, batch []*domain.Feedback) error {
	if len(batch) == 0 {
		return nil
	}
	for _, fb := range batch {
		if err := fb.Validate(); err != nil {
			return fmt.Errorf("invalid feedback for run %q: %w", fb.RunID, err)
		}
	}
	if err := c.do(ctx, http.MethodPost, pathFeedbackBatch, nil, feedbackBatchPayload{Feedback: batch}, nil); err != nil {
		return fmt.Errorf("creating feedback batch of %d: %w", len(batch), err)
	}
	return nil
}
