// Package mcp exposes the review service as Model Context Protocol tools
// over stdio, so agent clients can submit and search reviews without the
// HTTP surface.
package mcp

import (
	"context"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/reviewsearch/internal/ingest"
	"github.com/Aman-CERP/reviewsearch/internal/review"
	"github.com/Aman-CERP/reviewsearch/internal/search"
	"github.com/Aman-CERP/reviewsearch/internal/store"
	"github.com/Aman-CERP/reviewsearch/pkg/version"
)

// SubmitReviewInput is the submit_review tool input.
type SubmitReviewInput struct {
	Title     string `json:"title" jsonschema:"review title, 3-200 characters"`
	Body      string `json:"body" jsonschema:"review body, 10-2000 characters"`
	ProductID string `json:"product_id" jsonschema:"product identifier, up to 100 characters"`
	Rating    int    `json:"rating" jsonschema:"star rating, integer 1-5"`
}

// SubmitReviewOutput is the submit_review tool output.
type SubmitReviewOutput struct {
	ReviewID    string    `json:"review_id" jsonschema:"unique identifier of the stored review"`
	VectorIndex int       `json:"vector_index" jsonschema:"zero-based position of the review in the store"`
	Timestamp   time.Time `json:"timestamp" jsonschema:"creation time stamped by the store"`
}

// SearchReviewsInput is the search_reviews tool input.
type SearchReviewsInput struct {
	Query string `json:"query" jsonschema:"free-text search query, up to 500 characters"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 10, max 100"`
}

// SearchReviewsOutput is the search_reviews tool output.
type SearchReviewsOutput struct {
	Results      []review.SearchResult `json:"results" jsonschema:"matching reviews ordered by similarity"`
	TotalResults int                   `json:"total_results" jsonschema:"number of results returned"`
}

// StoreStatusOutput is the store_status tool output.
type StoreStatusOutput struct {
	ReviewCount int    `json:"review_count" jsonschema:"number of reviews in the store"`
	DataDir     string `json:"data_dir" jsonschema:"directory holding the review log"`
	Version     string `json:"version" jsonschema:"service version"`
}

// Server wires the review components to an MCP server over stdio.
type Server struct {
	pipeline *ingest.Pipeline
	engine   *search.Engine
	store    *store.ReviewStore
	logger   *slog.Logger
	mcp      *mcp.Server
}

// NewServer creates the MCP surface over the given components.
func NewServer(p *ingest.Pipeline, e *search.Engine, s *store.ReviewStore, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	srv := &Server{
		pipeline: p,
		engine:   e,
		store:    s,
		logger:   logger,
	}

	srv.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "reviewsearch",
			Version: version.Version,
		},
		nil,
	)
	srv.registerTools()

	return srv
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "submit_review",
		Description: "Submit a product review. The review is validated, appended to the durable store, and assigned a sequential position.",
	}, s.handleSubmitReview)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_reviews",
		Description: "Search stored reviews with a free-text query. Results are ranked by a deterministic similarity score combining phrase, word, coverage, and rating signals.",
	}, s.handleSearchReviews)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "store_status",
		Description: "Report the current review count and data directory of the store.",
	}, s.handleStoreStatus)

	s.logger.Info("MCP tools registered", slog.Int("count", 3))
}

// Run serves MCP over stdio until the client disconnects or ctx is
// cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("MCP server starting", slog.String("version", version.Version))
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) handleSubmitReview(ctx context.Context, req *mcp.CallToolRequest, input SubmitReviewInput) (
	*mcp.CallToolResult,
	SubmitReviewOutput,
	error,
) {
	rv, err := s.pipeline.CreateReview(ctx, review.Input{
		Title:     input.Title,
		Body:      input.Body,
		ProductID: input.ProductID,
		Rating:    input.Rating,
	})
	if err != nil {
		s.logger.Debug("submit_review rejected", slog.String("error", err.Error()))
		return nil, SubmitReviewOutput{}, err
	}

	return nil, SubmitReviewOutput{
		ReviewID:    rv.ID,
		VectorIndex: rv.VectorIndex,
		Timestamp:   rv.Timestamp,
	}, nil
}

func (s *Server) handleSearchReviews(ctx context.Context, req *mcp.CallToolRequest, input SearchReviewsInput) (
	*mcp.CallToolResult,
	SearchReviewsOutput,
	error,
) {
	results, err := s.engine.Search(ctx, input.Query, input.Limit)
	if err != nil {
		return nil, SearchReviewsOutput{}, err
	}

	return nil, SearchReviewsOutput{
		Results:      results,
		TotalResults: len(results),
	}, nil
}

func (s *Server) handleStoreStatus(ctx context.Context, req *mcp.CallToolRequest, _ struct{}) (
	*mcp.CallToolResult,
	StoreStatusOutput,
	error,
) {
	return nil, StoreStatusOutput{
		ReviewCount: s.store.Count(),
		DataDir:     s.store.Paths().DataDir,
		Version:     version.Short(),
	}, nil
}
