package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Aman-CERP/reviewsearch/internal/errors"
	"github.com/Aman-CERP/reviewsearch/internal/review"
	"github.com/Aman-CERP/reviewsearch/internal/store"
)

// Query bounds.
const (
	QueryMaxLen = 500
)

// Scoring weights. The relative orderings are load-bearing: an exact
// phrase outweighs any single word, title matches outweigh body matches,
// and the rating bonus is small enough (≤0.25) that it can only break
// ties between reviews whose text signals are nearly identical.
const (
	phraseTitleBonus   = 3.0
	phraseBodyBonus    = 2.0
	wordTitleBonus     = 0.8
	wordBodyBonus      = 0.5
	coverageBonus      = 0.5
	ratingBonusPerStar = 0.05
)

// Engine scores and ranks reviews against free-text queries. It reads
// the full corpus from the store on every call, so results always
// reflect the latest committed reviews; only the per-review token sets
// are cached, which is safe because reviews are immutable.
type Engine struct {
	store        *store.ReviewStore
	terms        *lru.Cache[string, *reviewTerms]
	defaultLimit int
	maxLimit     int
	logger       *slog.Logger
}

// Options configures an Engine.
type Options struct {
	// DefaultLimit is used when Search is called with limit 0.
	DefaultLimit int
	// MaxLimit is the upper bound accepted for limit.
	MaxLimit int
	// TokenCacheSize is the LRU capacity for per-review token sets.
	TokenCacheSize int
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// reviewTerms is the tokenized, lowercased view of one review.
type reviewTerms struct {
	titleLower string
	bodyLower  string
	titleSet   map[string]struct{}
	bodySet    map[string]struct{}
}

// NewEngine creates a search engine over the given store.
func NewEngine(s *store.ReviewStore, opts Options) (*Engine, error) {
	if opts.DefaultLimit < 1 {
		opts.DefaultLimit = 10
	}
	if opts.MaxLimit < 1 {
		opts.MaxLimit = 100
	}
	if opts.TokenCacheSize < 1 {
		opts.TokenCacheSize = 4096
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	cache, err := lru.New[string, *reviewTerms](opts.TokenCacheSize)
	if err != nil {
		return nil, errors.InternalError("failed to create token cache", err)
	}

	return &Engine{
		store:        s,
		terms:        cache,
		defaultLimit: opts.DefaultLimit,
		maxLimit:     opts.MaxLimit,
		logger:       opts.Logger,
	}, nil
}

// DefaultLimit returns the limit applied when a request omits one.
func (e *Engine) DefaultLimit() int {
	return e.defaultLimit
}

// ValidateQuery checks the query and limit bounds. limit 0 means
// "unspecified" and is accepted.
func (e *Engine) ValidateQuery(query string, limit int) error {
	if strings.TrimSpace(query) == "" {
		return errors.New(errors.ErrCodeQueryEmpty,
			"Missing required field: query", nil).
			WithDetail("field", "query")
	}
	if utf8.RuneCountInString(query) > QueryMaxLen {
		return errors.New(errors.ErrCodeQueryTooLong,
			fmt.Sprintf("Field too long: query must be at most %d characters", QueryMaxLen), nil).
			WithDetail("field", "query")
	}
	if limit != 0 && (limit < 1 || limit > e.maxLimit) {
		return errors.New(errors.ErrCodeInvalidLimit,
			fmt.Sprintf("Invalid field value: limit - must be between 1 and %d", e.maxLimit), nil).
			WithDetail("field", "limit")
	}
	return nil
}

// Search scores every stored review against the query and returns at
// most limit results, ordered by normalized score descending with ties
// broken by higher rating, then lower vector index. A limit of 0 selects
// the default. Reviews with no text-signal match are excluded entirely;
// no matches at all yields an empty (non-error) result.
func (e *Engine) Search(ctx context.Context, query string, limit int) ([]review.SearchResult, error) {
	if err := e.ValidateQuery(query, limit); err != nil {
		return nil, err
	}
	if limit == 0 {
		limit = e.defaultLimit
	}

	start := time.Now()

	reviews, err := e.store.ReadAll(ctx)
	if err != nil {
		return nil, err
	}

	queryLower := strings.ToLower(strings.TrimSpace(query))
	queryWords := DistinctTokens(queryLower)
	if len(queryWords) == 0 {
		return []review.SearchResult{}, nil
	}

	type scored struct {
		rv  review.Review
		raw float64
	}
	var matches []scored
	var maxRaw float64
	for _, rv := range reviews {
		raw, ok := e.score(queryLower, queryWords, rv)
		if !ok {
			continue
		}
		if raw > maxRaw {
			maxRaw = raw
		}
		matches = append(matches, scored{rv: rv, raw: raw})
	}

	// Deterministic ranking: raw score descending (normalization below
	// is order-preserving), then rating, then earlier submission.
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].raw != matches[j].raw {
			return matches[i].raw > matches[j].raw
		}
		if matches[i].rv.Rating != matches[j].rv.Rating {
			return matches[i].rv.Rating > matches[j].rv.Rating
		}
		return matches[i].rv.VectorIndex < matches[j].rv.VectorIndex
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}

	results := make([]review.SearchResult, len(matches))
	for i, m := range matches {
		results[i] = review.SearchResult{
			Review:          m.rv,
			SimilarityScore: m.raw / maxRaw,
		}
	}

	e.logger.Debug("search completed",
		slog.String("query", query),
		slog.Int("corpus", len(reviews)),
		slog.Int("results", len(results)),
		slog.Duration("elapsed", time.Since(start)))

	return results, nil
}

// score computes the raw similarity of one review. ok is false when no
// text signal fired: such reviews are excluded from the result set
// rather than ranked at zero, and the rating bonus alone never
// qualifies a review.
func (e *Engine) score(queryLower string, queryWords []string, rv review.Review) (raw float64, ok bool) {
	terms := e.termsFor(rv)

	var text float64

	// Signal 1: exact phrase, title weighted above body.
	switch {
	case strings.Contains(terms.titleLower, queryLower):
		text += phraseTitleBonus
	case strings.Contains(terms.bodyLower, queryLower):
		text += phraseBodyBonus
	}

	// Signal 2: individual word matches, title weighted above body.
	matched := 0
	for _, w := range queryWords {
		if _, inTitle := terms.titleSet[w]; inTitle {
			text += wordTitleBonus
			matched++
			continue
		}
		if _, inBody := terms.bodySet[w]; inBody {
			text += wordBodyBonus
			matched++
		}
	}

	// Signal 3: coverage of distinct query words.
	text += coverageBonus * float64(matched) / float64(len(queryWords))

	if text == 0 {
		return 0, false
	}

	// Signal 4: rating preference, proportional to the rating.
	return text + ratingBonusPerStar*float64(rv.Rating), true
}

// termsFor returns the cached token view of a review, computing and
// caching it on first sight. Keyed by review ID: records are immutable,
// so a cached entry can never go stale.
func (e *Engine) termsFor(rv review.Review) *reviewTerms {
	if cached, ok := e.terms.Get(rv.ID); ok {
		return cached
	}

	t := &reviewTerms{
		titleLower: strings.ToLower(rv.Title),
		bodyLower:  strings.ToLower(rv.Body),
		titleSet:   TokenSet(rv.Title),
		bodySet:    TokenSet(rv.Body),
	}
	e.terms.Add(rv.ID, t)
	return t
}
