// Package search implements deterministic text-similarity ranking over
// the review store. Scores combine four signals (exact phrase, per-word
// matches, query coverage, rating preference) and are normalized to
// [0,1] against the best raw score for the query.
package search

import (
	"regexp"
	"strings"
)

// wordRegexp matches runs of letters and digits in any script;
// everything else is a word boundary.
var wordRegexp = regexp.MustCompile(`[\p{L}\p{N}]+`)

// Tokenize splits text into lowercase words on non-alphanumeric
// boundaries.
func Tokenize(text string) []string {
	return wordRegexp.FindAllString(strings.ToLower(text), -1)
}

// TokenSet returns the set of tokens in text.
func TokenSet(text string) map[string]struct{} {
	tokens := Tokenize(text)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// DistinctTokens returns the tokens of text with duplicates removed,
// preserving first-occurrence order so iteration stays deterministic.
func DistinctTokens(text string) []string {
	tokens := Tokenize(text)
	seen := make(map[string]struct{}, len(tokens))
	distinct := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		distinct = append(distinct, t)
	}
	return distinct
}
