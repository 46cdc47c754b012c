package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Aman-CERP/reviewsearch/internal/errors"
	"github.com/Aman-CERP/reviewsearch/internal/review"
	"github.com/Aman-CERP/reviewsearch/pkg/version"
)

// maxRequestBody caps request bodies; bulk uploads dominate the sizing.
const maxRequestBody = 8 << 20

// errorResponse is the uniform failure envelope.
type errorResponse struct {
	Error     string            `json:"error"`
	Message   string            `json:"message"`
	Details   map[string]string `json:"details,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("failed to encode response", slog.String("error", err.Error()))
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", slog.String("error", err.Error()))
	}

	resp := errorResponse{
		Error:     errors.APIType(err),
		Message:   errors.GetMessage(err),
		Timestamp: time.Now().UTC(),
	}
	if ae, ok := err.(*errors.AppError); ok && len(ae.Details) > 0 {
		resp.Details = ae.Details
	}
	s.writeJSON(w, status, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": "reviewsearch",
		"version": version.Short(),
	})
}

func (s *Server) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	var in review.Input
	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(body).Decode(&in); err != nil {
		s.writeError(w, errors.New(errors.ErrCodeMalformedInput,
			"Invalid JSON: "+err.Error(), err))
		return
	}

	rv, err := s.pipeline.CreateReview(r.Context(), in)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"message":      "Review created successfully",
		"review_id":    rv.ID,
		"vector_index": rv.VectorIndex,
		"timestamp":    rv.Timestamp,
	})
}

func (s *Server) handleCreateReviewsBulk(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		s.writeError(w, errors.New(errors.ErrCodeMalformedInput,
			"Failed to read request body: "+err.Error(), err))
		return
	}

	out, err := s.pipeline.CreateReviewsBulk(r.Context(), raw)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := map[string]any{
		"success": true,
		"message": fmt.Sprintf("Processed %d reviews: %d successful, %d failed",
			out.Result.TotalProcessed, out.Result.Successful, len(out.Result.Failed)),
		"result": out.Result,
	}
	if first, ok := out.StartingIndex(); ok {
		last, _ := out.EndingIndex()
		resp["starting_vector_index"] = first
		resp["ending_vector_index"] = last
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// searchRequest is the /search request body.
type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		s.writeError(w, errors.New(errors.ErrCodeMalformedInput,
			"Invalid JSON: "+err.Error(), err))
		return
	}

	results, err := s.engine.Search(r.Context(), req.Query, req.Limit)
	if err != nil {
		s.writeError(w, err)
		return
	}

	limit := req.Limit
	if limit == 0 {
		limit = s.engine.DefaultLimit()
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"query":         req.Query,
		"results":       results,
		"total_results": len(results),
		"limit":         limit,
		"search_type":   "text_similarity",
	})
}
