package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"librarian/internal/canonical"
	"librarian/internal/domain"
	"librarian/internal/embedding"
	"librarian/internal/embedding/hash"
	"librarian/internal/vectorindex/memory"
)

type stubSource struct {
	books map[int64]*domain.Book
}

func (s *stubSource) GetBook(_ context.Context, id int64) (*domain.Book, error) {
	b, ok := s.books[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return b, nil
}

func (s *stubSource) ListBookIDs(_ context.Context) ([]int64, error) {
	ids := make([]int64, 0, len(s.books))
	for id := int64(1); id <= int64(len(s.books)); id++ {
		if _, ok := s.books[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func sourceWithBooks(n int) *stubSource {
	s := &stubSource{books: make(map[int64]*domain.Book)}
	for i := 1; i <= n; i++ {
		id := int64(i)
		s.books[id] = &domain.Book{
			ID:         id,
			Title:      fmt.Sprintf("Book %d", i),
			Author:     "Author",
			Format:     "physical",
			Categories: []string{"fiction"},
		}
	}
	return s
}

func hashProvider(t *testing.T) *embedding.Provider {
	t.Helper()
	return embedding.NewProvider(8, false, func() (domain.Embedder, error) {
		return hash.NewEmbedder(8)
	})
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestReconcileRepairsMissing(t *testing.T) {
	ctx := context.Background()
	src := sourceWithBooks(5)
	idx := memory.NewIndex()
	r := New(src, canonical.New(), hashProvider(t), idx, discard())

	repaired, err := r.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, repaired)

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestReconcileIsIdempotent(t *testing.T) {
	ctx := context.Background()
	src := sourceWithBooks(3)
	idx := memory.NewIndex()
	r := New(src, canonical.New(), hashProvider(t), idx, discard())

	repaired, err := r.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, repaired)

	repaired, err = r.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, repaired)
}

func TestReconcileOnlyRepairsMissing(t *testing.T) {
	ctx := context.Background()
	src := sourceWithBooks(4)
	idx := memory.NewIndex()
	require.NoError(t, idx.Upsert(ctx, domain.IndexRecord{ID: 2, Vector: make([]float32, 8)}))
	require.NoError(t, idx.Upsert(ctx, domain.IndexRecord{ID: 3, Vector: make([]float32, 8)}))

	r := New(src, canonical.New(), hashProvider(t), idx, discard())
	repaired, err := r.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, repaired)
}

func TestReconcileDisabled(t *testing.T) {
	ctx := context.Background()
	src := sourceWithBooks(3)
	idx := memory.NewIndex()
	r := New(src, canonical.New(), hashProvider(t), idx, discard(), WithEnabled(false))

	repaired, err := r.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, repaired)

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestReconcileEmbeddingsDisabled(t *testing.T) {
	ctx := context.Background()
	src := sourceWithBooks(3)
	idx := memory.NewIndex()
	disabled := embedding.NewProvider(8, true, func() (domain.Embedder, error) {
		t.Fatal("factory must not run when disabled")
		return nil, nil
	})
	r := New(src, canonical.New(), disabled, idx, discard())

	repaired, err := r.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, repaired)
}

func TestReconcileSkipsPerBookFailures(t *testing.T) {
	ctx := context.Background()
	src := sourceWithBooks(4)
	idx := memory.NewIndex()
	failOn := map[int64]bool{3: true}
	r := New(src, canonical.New(), hashProvider(t), &failingIndex{Index: idx, failOn: failOn}, discard())

	repaired, err := r.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, repaired)

	ids, err := idx.ListIDs(ctx)
	require.NoError(t, err)
	assert.NotContains(t, ids, int64(3))
}

func TestReconcileSmallBatches(t *testing.T) {
	ctx := context.Background()
	src := sourceWithBooks(7)
	idx := memory.NewIndex()
	r := New(src, canonical.New(), hashProvider(t), idx, discard(), WithBatchSize(2))

	repaired, err := r.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, repaired)
}

func TestReconcileIndexListFailure(t *testing.T) {
	ctx := context.Background()
	src := sourceWithBooks(2)
	r := New(src, canonical.New(), hashProvider(t), &failingIndex{Index: memory.NewIndex(), listErr: true}, discard())

	_, err := r.Reconcile(ctx)
	assert.Error(t, err)
}

type failingIndex struct {
	*memory.Index
	failOn  map[int64]bool
	listErr bool
}

func (f *failingIndex) Upsert(ctx context.Context, rec domain.IndexRecord) error {
	if f.failOn[rec.ID] {
		return errors.New("upsert refused")
	}
	return f.Index.Upsert(ctx, rec)
}

func (f *failingIndex) ListIDs(ctx context.Context) ([]int64, error) {
	if f.listErr {
		return nil, domain.ErrIndexUnavailable
	}
	return f.Index.ListIDs(ctx)
}
