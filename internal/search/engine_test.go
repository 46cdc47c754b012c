package search

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/reviewsearch/internal/errors"
	"github.com/Aman-CERP/reviewsearch/internal/review"
	"github.com/Aman-CERP/reviewsearch/internal/store"
)

func newTestEngine(t *testing.T) (*Engine, *store.ReviewStore) {
	t.Helper()
	s, err := store.Open(store.Options{
		DataDir:     t.TempDir(),
		LockTimeout: 5 * time.Second,
		MaxReaders:  8,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	e, err := NewEngine(s, Options{DefaultLimit: 10, MaxLimit: 100, TokenCacheSize: 64})
	require.NoError(t, err)
	return e, s
}

func seed(t *testing.T, s *store.ReviewStore, inputs ...review.Input) {
	t.Helper()
	_, err := s.AppendBatch(context.Background(), inputs)
	require.NoError(t, err)
}

func TestSearch_RanksPhraseAndTitleMatchesFirst(t *testing.T) {
	e, s := newTestEngine(t)
	seed(t, s,
		review.Input{Title: "Decent camera quality overall", Body: "Photos come out fine in daylight.", ProductID: "p1", Rating: 3},
		review.Input{Title: "Solid phone", Body: "The camera quality surprised me, honestly excellent.", ProductID: "p1", Rating: 4},
		review.Input{Title: "Camera is acceptable", Body: "Build quality is what stands out here.", ProductID: "p1", Rating: 5},
		review.Input{Title: "Terrible battery", Body: "Drains overnight, would not recommend.", ProductID: "p1", Rating: 1},
	)

	results, err := e.Search(context.Background(), "camera quality", 10)
	require.NoError(t, err)

	// Phrase in title ranks above phrase in body, which ranks above
	// scattered word matches. The battery review matches nothing and is
	// excluded despite existing in the corpus.
	require.Len(t, results, 3)
	assert.Equal(t, "Decent camera quality overall", results[0].Title)
	assert.Equal(t, "Solid phone", results[1].Title)
	assert.Equal(t, "Camera is acceptable", results[2].Title)

	assert.Equal(t, 1.0, results[0].SimilarityScore)
	for _, r := range results {
		assert.Greater(t, r.SimilarityScore, 0.0)
		assert.LessOrEqual(t, r.SimilarityScore, 1.0)
	}
}

func TestSearch_TitleWordOutranksBodyWord(t *testing.T) {
	e, s := newTestEngine(t)
	seed(t, s,
		review.Input{Title: "Nothing special here", Body: "The shipping was fast at least.", ProductID: "p2", Rating: 3},
		review.Input{Title: "Shipping took forever", Body: "Product itself is okay though.", ProductID: "p2", Rating: 3},
	)

	results, err := e.Search(context.Background(), "shipping", 10)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "Shipping took forever", results[0].Title)
}

func TestSearch_TiesBrokenByRatingThenPosition(t *testing.T) {
	e, s := newTestEngine(t)
	seed(t, s,
		review.Input{Title: "Good speaker", Body: "Clear sound for the price point.", ProductID: "p3", Rating: 2},
		review.Input{Title: "Good speaker", Body: "Clear sound for the price point.", ProductID: "p3", Rating: 5},
		review.Input{Title: "Good speaker", Body: "Clear sound for the price point.", ProductID: "p3", Rating: 2},
	)

	results, err := e.Search(context.Background(), "speaker", 10)
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, 5, results[0].Rating)
	// Equal text score and equal rating: earlier submission wins.
	assert.Equal(t, 0, results[1].VectorIndex)
	assert.Equal(t, 2, results[2].VectorIndex)
}

func TestSearch_NoMatchesReturnsEmptyResult(t *testing.T) {
	e, s := newTestEngine(t)
	seed(t, s,
		review.Input{Title: "Lovely blender", Body: "Crushes ice without complaint.", ProductID: "p4", Rating: 5},
	)

	results, err := e.Search(context.Background(), "smartphone", 10)

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_RatingAloneNeverQualifies(t *testing.T) {
	e, s := newTestEngine(t)
	seed(t, s,
		review.Input{Title: "Five stars regardless", Body: "Absolutely no relation to the query.", ProductID: "p5", Rating: 5},
	)

	results, err := e.Search(context.Background(), "microwave", 10)

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_IsDeterministic(t *testing.T) {
	e, s := newTestEngine(t)
	seed(t, s,
		review.Input{Title: "Keyboard feels great", Body: "Keys have a satisfying travel distance.", ProductID: "p6", Rating: 4},
		review.Input{Title: "Mushy keyboard", Body: "Great layout but the keys feel cheap.", ProductID: "p6", Rating: 2},
		review.Input{Title: "Great value", Body: "Keyboard and mouse combo worth the money.", ProductID: "p6", Rating: 4},
	)

	first, err := e.Search(context.Background(), "great keyboard", 10)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := e.Search(context.Background(), "great keyboard", 10)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestSearch_LimitTruncatesResults(t *testing.T) {
	e, s := newTestEngine(t)
	inputs := make([]review.Input, 6)
	for i := range inputs {
		inputs[i] = review.Input{
			Title:     "Headphones review",
			Body:      "Comfortable headphones with decent bass.",
			ProductID: "p7",
			Rating:    (i % 5) + 1,
		}
	}
	seed(t, s, inputs...)

	results, err := e.Search(context.Background(), "headphones", 2)

	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearch_ZeroLimitUsesDefault(t *testing.T) {
	e, s := newTestEngine(t)
	seed(t, s,
		review.Input{Title: "Nice toaster", Body: "Evenly browns bread every time.", ProductID: "p8", Rating: 4},
	)

	results, err := e.Search(context.Background(), "toaster", 0)

	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearch_ValidationErrors(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		query    string
		limit    int
		wantCode string
	}{
		{"empty query", "", 10, errors.ErrCodeQueryEmpty},
		{"whitespace query", "   ", 10, errors.ErrCodeQueryEmpty},
		{"query too long", strings.Repeat("a", QueryMaxLen+1), 10, errors.ErrCodeQueryTooLong},
		{"negative limit", "camera", -1, errors.ErrCodeInvalidLimit},
		{"limit above max", "camera", 101, errors.ErrCodeInvalidLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Search(ctx, tt.query, tt.limit)

			require.Error(t, err)
			assert.Equal(t, tt.wantCode, errors.GetCode(err))
		})
	}
}

func TestSearch_UnicodeWordsMatchWhole(t *testing.T) {
	e, s := newTestEngine(t)
	seed(t, s,
		review.Input{Title: "Café press works great", Body: "Makes smooth coffee every morning.", ProductID: "p10", Rating: 4},
	)

	results, err := e.Search(context.Background(), "café", 10)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Café press works great", results[0].Title)
}

func TestSearch_CaseInsensitive(t *testing.T) {
	e, s := newTestEngine(t)
	seed(t, s,
		review.Input{Title: "GREAT CAMERA", Body: "All caps enthusiasm aside, it delivers.", ProductID: "p9", Rating: 5},
	)

	results, err := e.Search(context.Background(), "great camera", 10)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 1.0, results[0].SimilarityScore)
}
