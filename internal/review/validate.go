package review

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Aman-CERP/reviewsearch/internal/errors"
)

// Field bounds for review input.
const (
	TitleMinLen     = 3
	TitleMaxLen     = 200
	BodyMinLen      = 10
	BodyMaxLen      = 2000
	ProductIDMaxLen = 100
	RatingMin       = 1
	RatingMax       = 5
)

// Validate checks an Input against the field rules and returns nil or a
// validation error naming the first failing field. It is pure: the same
// input always yields the same verdict.
//
// Check order is fixed: presence of title, body, product_id, rating; then
// length bounds on title, body, product_id; then the rating range.
// Whitespace-only strings are treated as missing, not merely short.
func Validate(in Input) error {
	if strings.TrimSpace(in.Title) == "" {
		return missingField("title")
	}
	if strings.TrimSpace(in.Body) == "" {
		return missingField("body")
	}
	if strings.TrimSpace(in.ProductID) == "" {
		return missingField("product_id")
	}
	if in.Rating == 0 {
		return missingField("rating")
	}

	if n := utf8.RuneCountInString(in.Title); n < TitleMinLen {
		return tooShort("title", TitleMinLen)
	} else if n > TitleMaxLen {
		return tooLong("title", TitleMaxLen)
	}

	if n := utf8.RuneCountInString(in.Body); n < BodyMinLen {
		return tooShort("body", BodyMinLen)
	} else if n > BodyMaxLen {
		return tooLong("body", BodyMaxLen)
	}

	if utf8.RuneCountInString(in.ProductID) > ProductIDMaxLen {
		return tooLong("product_id", ProductIDMaxLen)
	}

	if in.Rating < RatingMin || in.Rating > RatingMax {
		return invalidRating()
	}

	return nil
}

func missingField(field string) error {
	return errors.New(errors.ErrCodeMissingField,
		fmt.Sprintf("Missing required field: %s", field), nil).
		WithDetail("field", field)
}

func tooShort(field string, min int) error {
	return errors.New(errors.ErrCodeFieldTooShort,
		fmt.Sprintf("Field too short: %s must be at least %d characters", field, min), nil).
		WithDetail("field", field).
		WithDetail("min_length", strconv.Itoa(min))
}

func tooLong(field string, max int) error {
	return errors.New(errors.ErrCodeFieldTooLong,
		fmt.Sprintf("Field too long: %s must be at most %d characters", field, max), nil).
		WithDetail("field", field).
		WithDetail("max_length", strconv.Itoa(max))
}

func invalidRating() error {
	return errors.New(errors.ErrCodeInvalidRating,
		fmt.Sprintf("Invalid rating: must be between %d and %d", RatingMin, RatingMax), nil).
		WithDetail("field", "rating")
}
