// Package ingest turns raw client submissions into committed reviews.
// It owns input-shape detection and per-item validation; all durability
// and index assignment stays with the store.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/Aman-CERP/reviewsearch/internal/errors"
	"github.com/Aman-CERP/reviewsearch/internal/review"
	"github.com/Aman-CERP/reviewsearch/internal/store"
)

// Pipeline validates submissions and appends them to the store.
type Pipeline struct {
	store  *store.ReviewStore
	logger *slog.Logger
}

// NewPipeline creates an ingest pipeline over the given store.
func NewPipeline(s *store.ReviewStore, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{store: s, logger: logger}
}

// CreateReview validates a single submission and appends it. On a
// validation failure the store is never touched.
func (p *Pipeline) CreateReview(ctx context.Context, in review.Input) (review.Review, error) {
	if err := review.Validate(in); err != nil {
		return review.Review{}, err
	}
	return p.store.Append(ctx, in)
}

// BulkOutcome is the result of one bulk upload: the per-item summary
// plus the committed block of reviews in input order. Committed is empty
// when no item passed validation.
type BulkOutcome struct {
	Result    review.BulkResult
	Committed []review.Review
}

// StartingIndex returns the first assigned log position of the committed
// block, or false when nothing was committed.
func (o BulkOutcome) StartingIndex() (int, bool) {
	if len(o.Committed) == 0 {
		return 0, false
	}
	return o.Committed[0].VectorIndex, true
}

// EndingIndex returns the last assigned log position of the committed
// block, or false when nothing was committed.
func (o BulkOutcome) EndingIndex() (int, bool) {
	if len(o.Committed) == 0 {
		return 0, false
	}
	return o.Committed[len(o.Committed)-1].VectorIndex, true
}

// CreateReviewsBulk ingests a multi-item payload. Per-item decode and
// validation failures never fail the request: they are collected into
// the result with the item's 1-based input position and original data.
// All surviving items are appended in one batch so their log positions
// form a contiguous block. A store-level failure aborts the whole
// request and commits nothing.
func (p *Pipeline) CreateReviewsBulk(ctx context.Context, raw []byte) (BulkOutcome, error) {
	items, err := splitItems(raw)
	if err != nil {
		return BulkOutcome{}, err
	}

	result := review.BulkResult{
		TotalProcessed: len(items),
		Failed:         []review.BulkError{},
	}

	var valid []review.Input
	for i, item := range items {
		var in review.Input
		if err := json.Unmarshal(item, &in); err != nil {
			result.Failed = append(result.Failed, review.BulkError{
				LineNumber: i + 1,
				Error:      "Invalid JSON: " + err.Error(),
				Data:       item,
			})
			continue
		}
		if err := review.Validate(in); err != nil {
			result.Failed = append(result.Failed, review.BulkError{
				LineNumber: i + 1,
				Error:      errors.GetMessage(err),
				Data:       item,
			})
			continue
		}
		valid = append(valid, in)
	}

	committed, err := p.store.AppendBatch(ctx, valid)
	if err != nil {
		return BulkOutcome{}, err
	}
	result.Successful = len(committed)

	p.logger.Info("bulk ingest completed",
		slog.Int("total", result.TotalProcessed),
		slog.Int("successful", result.Successful),
		slog.Int("failed", len(result.Failed)))

	return BulkOutcome{Result: result, Committed: committed}, nil
}

// splitItems normalizes the three accepted payload shapes into one item
// list, tried in order: a JSON array of objects, a single JSON object,
// then newline-delimited JSON (either a JSON string containing JSONL or
// the bare JSONL text itself). Trailing blank lines are tolerated.
func splitItems(raw []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, nil
	}

	var asArray []json.RawMessage
	if err := json.Unmarshal(trimmed, &asArray); err == nil {
		return asArray, nil
	}

	if trimmed[0] == '{' {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err == nil {
			return []json.RawMessage{trimmed}, nil
		}
	}

	text := string(trimmed)
	var asString string
	if err := json.Unmarshal(trimmed, &asString); err == nil {
		text = asString
	}

	var items []json.RawMessage
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		items = append(items, json.RawMessage(line))
	}
	if len(items) == 0 {
		return nil, errors.New(errors.ErrCodeMalformedInput,
			"Invalid bulk payload: expected a JSON array, a JSON object, or newline-delimited JSON", nil)
	}
	return items, nil
}
