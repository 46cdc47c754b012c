package store

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/reviewsearch/internal/errors"
	"github.com/Aman-CERP/reviewsearch/internal/review"
)

func testInput(i int) review.Input {
	return review.Input{
		Title:     fmt.Sprintf("Review number %d", i),
		Body:      fmt.Sprintf("This is the body of review number %d.", i),
		ProductID: "prod_test",
		Rating:    (i % 5) + 1,
	}
}

func openTestStore(t *testing.T, dir string) *ReviewStore {
	t.Helper()
	s, err := Open(Options{
		DataDir:     dir,
		LockTimeout: 5 * time.Second,
		MaxReaders:  8,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAppend_AssignsSequentialIndices(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		rv, err := s.Append(ctx, testInput(i))
		require.NoError(t, err)
		assert.Equal(t, i, rv.VectorIndex)
		assert.NotEmpty(t, rv.ID)
		assert.False(t, rv.Timestamp.IsZero())
	}

	assert.Equal(t, 5, s.Count())
}

func TestAppend_ConcurrentWritersKeepIndicesContiguous(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	ctx := context.Background()

	const writers = 20
	indices := make(chan int, writers)

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rv, err := s.Append(ctx, testInput(i))
			if assert.NoError(t, err) {
				indices <- rv.VectorIndex
			}
		}(i)
	}
	wg.Wait()
	close(indices)

	var got []int
	for idx := range indices {
		got = append(got, idx)
	}
	sort.Ints(got)

	// The index set must be exactly {0..N-1}: no duplicates, no gaps.
	require.Len(t, got, writers)
	for i, idx := range got {
		assert.Equal(t, i, idx)
	}
}

func TestAppendBatch_ContiguousBlockInInputOrder(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	ctx := context.Background()

	_, err := s.Append(ctx, testInput(0))
	require.NoError(t, err)

	batch := []review.Input{testInput(1), testInput(2), testInput(3)}
	reviews, err := s.AppendBatch(ctx, batch)
	require.NoError(t, err)

	require.Len(t, reviews, 3)
	for i, rv := range reviews {
		assert.Equal(t, 1+i, rv.VectorIndex)
		assert.Equal(t, batch[i].Title, rv.Title)
	}
	assert.Equal(t, 4, s.Count())
}

func TestAppendBatch_EmptyIsNoop(t *testing.T) {
	s := openTestStore(t, t.TempDir())

	reviews, err := s.AppendBatch(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, reviews)
	assert.Equal(t, 0, s.Count())
}

func TestReadAll_ReturnsRecordsInLogOrder(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := s.Append(ctx, testInput(i))
		require.NoError(t, err)
	}

	reviews, err := s.ReadAll(ctx)

	require.NoError(t, err)
	require.Len(t, reviews, 4)
	for i, rv := range reviews {
		assert.Equal(t, i, rv.VectorIndex)
	}
}

func TestReadAll_EmptyStore(t *testing.T) {
	s := openTestStore(t, t.TempDir())

	reviews, err := s.ReadAll(context.Background())

	require.NoError(t, err)
	assert.Empty(t, reviews)
}

func TestRestart_ContinuesIndexSequence(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s1 := openTestStore(t, dir)
	for i := 0; i < 3; i++ {
		_, err := s1.Append(ctx, testInput(i))
		require.NoError(t, err)
	}
	require.NoError(t, s1.Close())

	// Reopen: count is derived by scanning the log, and the next index
	// continues the prior sequence with no gap or reuse.
	s2 := openTestStore(t, dir)
	assert.Equal(t, 3, s2.Count())

	rv, err := s2.Append(ctx, testInput(3))
	require.NoError(t, err)
	assert.Equal(t, 3, rv.VectorIndex)
}

func TestAppend_ReconcilesExternalAppends(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s := openTestStore(t, dir)
	first, err := s.Append(ctx, testInput(0))
	require.NoError(t, err)
	require.Equal(t, 0, first.VectorIndex)

	// Simulate another process appending directly to the log.
	other := openTestStore(t, dir)
	_, err = other.Append(ctx, testInput(1))
	require.NoError(t, err)

	// The first store's cached count is stale, but the append path
	// reconciles under the lock: no duplicate index is assigned.
	rv, err := s.Append(ctx, testInput(2))
	require.NoError(t, err)
	assert.Equal(t, 2, rv.VectorIndex)
}

func TestGet_ReturnsRecordAtPosition(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.Append(ctx, testInput(i))
		require.NoError(t, err)
	}

	rv, found, err := s.Get(ctx, 1)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 1, rv.VectorIndex)
	assert.Equal(t, "Review number 1", rv.Title)

	_, found, err = s.Get(ctx, 99)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGetMany_ReturnsRequestedPositions(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := s.Append(ctx, testInput(i))
		require.NoError(t, err)
	}

	results, err := s.GetMany(ctx, []int{0, 3, 42})

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 0, results[0].VectorIndex)
	assert.Equal(t, 3, results[3].VectorIndex)
}

func TestAppend_LockTimeoutYieldsConcurrencyError(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(Options{
		DataDir:     dir,
		LockTimeout: 100 * time.Millisecond,
		MaxReaders:  8,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	// Hold the exclusive flock from "another process".
	blocker := NewFileLock(s.Paths().LockFile)
	require.NoError(t, blocker.Lock(context.Background()))
	defer func() { _ = blocker.Unlock() }()

	_, err = s.Append(context.Background(), testInput(0))

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeLockTimeout, errors.GetCode(err))
	assert.True(t, errors.IsRetryable(err))
}

func TestAppend_RepairsTornTailBeforeAssigningIndices(t *testing.T) {
	dir := t.TempDir()
	s := openTestStore(t, dir)
	ctx := context.Background()

	first, err := s.Append(ctx, testInput(0))
	require.NoError(t, err)
	require.Equal(t, 0, first.VectorIndex)

	// A write failure whose rollback also failed leaves torn bytes past
	// the last known-good length and the store latched.
	f, err := os.OpenFile(s.Paths().ReviewsLog, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"id":"torn`)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	s.mu.Lock()
	s.dirty = true
	s.mu.Unlock()

	// The next append must cut the torn tail first: no index may be
	// derived from a partial line.
	rv, err := s.Append(ctx, testInput(1))
	require.NoError(t, err)
	assert.Equal(t, 1, rv.VectorIndex)

	reviews, err := s.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, reviews, 2)

	result, err := s.Verify(ctx)
	require.NoError(t, err)
	assert.True(t, result.IsValid)
}

func TestVerify_CleanLog(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.Append(ctx, testInput(i))
		require.NoError(t, err)
	}

	result, err := s.Verify(ctx)

	require.NoError(t, err)
	assert.True(t, result.IsValid)
	assert.Equal(t, 3, result.TotalLines)
	assert.Equal(t, 3, result.ValidLines)
	assert.Empty(t, result.Errors)
}

func TestVerify_ReportsCorruptLines(t *testing.T) {
	dir := t.TempDir()
	s := openTestStore(t, dir)
	ctx := context.Background()

	_, err := s.Append(ctx, testInput(0))
	require.NoError(t, err)

	// Inject a torn record.
	f, err := os.OpenFile(s.Paths().ReviewsLog, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"id":"truncated`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	result, err := s.Verify(ctx)

	require.NoError(t, err)
	assert.False(t, result.IsValid)
	assert.Equal(t, 1, result.ValidLines)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 2, result.Errors[0].Line)
}

func TestWatch_RefreshesCountOnExternalAppend(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s := openTestStore(t, dir)
	require.NoError(t, s.Watch())

	other := openTestStore(t, dir)
	_, err := other.Append(ctx, testInput(0))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return s.Count() == 1
	}, 3*time.Second, 50*time.Millisecond)
}

func TestDataPaths_Layout(t *testing.T) {
	p := NewDataPaths("/srv/reviews")

	assert.Equal(t, "/srv/reviews/reviews.jsonl", p.ReviewsLog)
	assert.Equal(t, "/srv/reviews/reviews.index", p.ReviewsIndex)
	assert.Equal(t, "/srv/reviews/.lock", p.LockFile)
}
