// Package review defines the review data model and its validation rules.
package review

import (
	"encoding/json"
	"time"
)

// Review is a persisted review record. It is immutable once appended:
// ID, Timestamp and VectorIndex are stamped by the store and never change.
type Review struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	ProductID string    `json:"product_id"`
	Rating    int       `json:"rating"`
	Timestamp time.Time `json:"timestamp"`

	// VectorIndex is the review's zero-based ordinal position in the
	// append log. Line N of reviews.jsonl holds the review with
	// VectorIndex N; a future vector index file relies on this parity.
	VectorIndex int `json:"vector_index"`
}

// Input is an unvalidated, unindexed review as submitted by a client.
type Input struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	ProductID string `json:"product_id"`
	Rating    int    `json:"rating"`
}

// SearchResult pairs a review with its normalized similarity score. The
// review serializes nested under "review" but its fields stay promoted
// for callers.
type SearchResult struct {
	Review          `json:"review"`
	SimilarityScore float64 `json:"similarity_score"`
}

// BulkError describes one rejected item of a bulk upload.
type BulkError struct {
	// LineNumber is the 1-based position of the item in the original
	// input batch, regardless of the detected input shape.
	LineNumber int `json:"line_number"`
	// Error is the human-readable validation message.
	Error string `json:"error"`
	// Data is the raw (possibly partial) input that failed.
	Data json.RawMessage `json:"data,omitempty"`
}

// BulkResult summarizes a bulk upload. It is transient: constructed once
// per request and never persisted.
type BulkResult struct {
	TotalProcessed int         `json:"total_processed"`
	Successful     int         `json:"successful"`
	Failed         []BulkError `json:"failed"`
}
