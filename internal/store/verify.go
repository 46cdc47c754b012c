package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/Aman-CERP/reviewsearch/internal/review"
)

// LineError describes a log line that failed to parse.
type LineError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// VerifyResult reports the integrity of the review log.
type VerifyResult struct {
	IsValid    bool        `json:"is_valid"`
	TotalLines int         `json:"total_lines"`
	ValidLines int         `json:"valid_lines"`
	Errors     []LineError `json:"errors,omitempty"`
}

// Verify scans the review log and reports per-line integrity. Unlike
// ReadAll it does not stop at the first malformed line, so it can size
// the damage after a crash or an external edit.
func (s *ReviewStore) Verify(ctx context.Context) (VerifyResult, error) {
	var result VerifyResult
	err := s.withReadAccess(ctx, func() error {
		var err error
		result, err = verifyLogFile(s.paths.ReviewsLog)
		return err
	})
	return result, err
}

func verifyLogFile(path string) (VerifyResult, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return VerifyResult{IsValid: true}, nil
	}
	if err != nil {
		return VerifyResult{}, classifyIOError("failed to open review log", err)
	}
	defer func() { _ = f.Close() }()

	result := VerifyResult{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	line := 0
	for scanner.Scan() {
		line++
		result.TotalLines++

		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var rv review.Review
		if err := json.Unmarshal([]byte(text), &rv); err != nil {
			result.Errors = append(result.Errors, LineError{
				Line:   line,
				Reason: err.Error(),
			})
			continue
		}
		result.ValidLines++

		// Position parity check: record on (1-based) valid line K must
		// carry vector_index K-1.
		if rv.VectorIndex != result.ValidLines-1 {
			result.Errors = append(result.Errors, LineError{
				Line: line,
				Reason: fmt.Sprintf("vector_index %d does not match log position %d",
					rv.VectorIndex, result.ValidLines-1),
			})
		}
	}
	if err := scanner.Err(); err != nil {
		return VerifyResult{}, classifyIOError("failed to scan review log", err)
	}

	result.IsValid = len(result.Errors) == 0
	return result, nil
}
