package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"librarian/internal/domain"
)

func rec(id int64, vec []float32, format, status string) domain.IndexRecord {
	return domain.IndexRecord{ID: id, Vector: vec, Title: "t", Author: "a", Format: format, ReadingStatus: status}
}

func TestQueryOrdersByDescendingSimilarity(t *testing.T) {
	x := NewIndex()
	ctx := context.Background()
	require.NoError(t, x.Upsert(ctx, rec(1, []float32{1, 0}, "kindle", "unread")))
	require.NoError(t, x.Upsert(ctx, rec(2, []float32{0.7, 0.7}, "kindle", "unread")))
	require.NoError(t, x.Upsert(ctx, rec(3, []float32{0, 1}, "kindle", "unread")))

	matches, err := x.Query(ctx, []float32{1, 0}, 3, domain.SearchFilters{})
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, int64(1), matches[0].ID)
	assert.Equal(t, int64(2), matches[1].ID)
	assert.Equal(t, int64(3), matches[2].ID)
	assert.InDelta(t, 1.0, matches[0].Similarity, 1e-6)
}

func TestQueryBoundedResults(t *testing.T) {
	x := NewIndex()
	ctx := context.Background()
	for i := int64(1); i <= 5; i++ {
		require.NoError(t, x.Upsert(ctx, rec(i, []float32{1, 0}, "kindle", "unread")))
	}
	matches, err := x.Query(ctx, []float32{1, 0}, 2, domain.SearchFilters{})
	require.NoError(t, err)
	assert.Len(t, matches, 2)

	// fewer matches than k is not an error
	matches, err = x.Query(ctx, []float32{1, 0}, 50, domain.SearchFilters{})
	require.NoError(t, err)
	assert.Len(t, matches, 5)
}

func TestQueryEmptyIndex(t *testing.T) {
	x := NewIndex()
	matches, err := x.Query(context.Background(), []float32{1, 0}, 5, domain.SearchFilters{})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestQueryNativeFilters(t *testing.T) {
	x := NewIndex()
	ctx := context.Background()
	require.NoError(t, x.Upsert(ctx, rec(1, []float32{1, 0}, "kindle", "unread")))
	require.NoError(t, x.Upsert(ctx, rec(2, []float32{1, 0}, "physical", "unread")))
	require.NoError(t, x.Upsert(ctx, rec(3, []float32{1, 0}, "kindle", "completed")))

	matches, err := x.Query(ctx, []float32{1, 0}, 10, domain.SearchFilters{Format: "kindle"})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	for _, m := range matches {
		assert.Equal(t, "kindle", m.Format)
	}

	matches, err = x.Query(ctx, []float32{1, 0}, 10, domain.SearchFilters{Format: "kindle", ReadingStatus: "completed"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, int64(3), matches[0].ID)
}

func TestUpsertOverwrites(t *testing.T) {
	x := NewIndex()
	ctx := context.Background()
	require.NoError(t, x.Upsert(ctx, rec(1, []float32{1, 0}, "kindle", "unread")))
	require.NoError(t, x.Upsert(ctx, rec(1, []float32{0, 1}, "kindle", "unread")))

	n, err := x.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	matches, err := x.Query(ctx, []float32{0, 1}, 1, domain.SearchFilters{})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, matches[0].Similarity, 1e-6)
}

func TestDeleteRemovesRecord(t *testing.T) {
	x := NewIndex()
	ctx := context.Background()
	require.NoError(t, x.Upsert(ctx, rec(1, []float32{1, 0}, "kindle", "unread")))
	require.NoError(t, x.Delete(ctx, 1))

	matches, err := x.Query(ctx, []float32{1, 0}, 5, domain.SearchFilters{})
	require.NoError(t, err)
	assert.Empty(t, matches)

	ids, err := x.ListIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestListIDs(t *testing.T) {
	x := NewIndex()
	ctx := context.Background()
	require.NoError(t, x.Upsert(ctx, rec(1, []float32{1, 0}, "kindle", "unread")))
	require.NoError(t, x.Upsert(ctx, rec(2, []float32{0, 1}, "kindle", "unread")))

	ids, err := x.ListIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 2}, ids)
}
