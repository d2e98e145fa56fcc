package domain

import (
	"time"

	"github.com/google/uuid"
)

// Feedback is one scored observation attached to a run: a metric key plus a
// numeric score, a categorical value, or both. Comparative evaluation
// produces one feedback record per compared run, linked together through
// GroupID so readers can recover which records came from the same pairwise
// judgment.
type Feedback struct {
	// ID uniquely identifies the feedback record.
	ID string `json:"id" validate:"required"`

	// RunID is the run this feedback scores.
	RunID string `json:"run_id" validate:"required"`

	// Key names the metric, e.g. "ranked_preference" or "correctness".
	Key string `json:"key" validate:"required"`

	// Score is the numeric value. Nil means the feedback is categorical
	// only; zero is a real score and is persisted as such.
	Score *float64 `json:"score,omitempty"`

	// Value holds a categorical or free-form value when the metric is not
	// purely numeric.
	Value any `json:"value,omitempty"`

	// Comment carries the evaluator's reasoning or notes.
	Comment string `json:"comment,omitempty"`

	// Correction optionally holds the corrected output for the run.
	Correction map[string]any `json:"correction,omitempty"`

	// GroupID links feedback records produced by one comparative judgment.
	// All records of one pair share the same GroupID.
	GroupID string `json:"feedback_group_id,omitempty"`

	// ComparativeExperimentID identifies the comparative experiment the
	// judgment belongs to, empty for regular feedback.
	ComparativeExperimentID string `json:"comparative_experiment_id,omitempty"`

	// SourceRunID optionally identifies the evaluator run that produced
	// this feedback.
	SourceRunID string `json:"source_run_id,omitempty"`

	// CreatedAt records when the feedback was created.
	CreatedAt time.Time `json:"created_at"`
}

// NewFeedback creates a feedback record with a generated ID and current
// timestamp. Score and Value start unset; use the With helpers or set
// fields directly before persisting.
func NewFeedback(runID, key string) *Feedback {
	return &Feedback{
		ID:        uuid.New().String(),
		RunID:     runID,
		Key:       key,
		CreatedAt: time.Now().UTC(),
	}
}

// NewScoredFeedback creates a feedback record carrying a numeric score.
func NewScoredFeedback(runID, key string, score float64) *Feedback {
	f := NewFeedback(runID, key)
	f.Score = &score
	return f
}

// Validate checks structural validity using the domain validation rules.
func (f *Feedback) Validate() error {
	return validate.Struct(f)
}

// WithComment returns a copy of the feedback with the comment set.
func (f *Feedback) WithComment(comment string) *Feedback {
	clone := *f
	clone.Comment = comment
	return &clone
}

// WithGroup returns a copy of the feedback linked to a comparative judgment
// group and experiment.
func (f *Feedback) WithGroup(groupID, comparativeExperimentID string) *Feedback {
	clone := *f
	clone.GroupID = groupID
	clone.ComparativeExperimentID = comparativeExperimentID
	return &clone
}

// ScoreValue returns the numeric score and whether one is set.
func (f *Feedback) ScoreValue() (float64, bool) {
	if f.Score == nil {
		return 0, false
	}
	return *f.Score, true
}

// BoolScore converts a boolean judgment to the conventional numeric score:
// 1 for true, 0 for false.
func BoolScore(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
