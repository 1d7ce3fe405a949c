// Package reconcile detects drift between the authoritative book store and
// the vector index and repairs it by regenerating missing embeddings.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"librarian/internal/canonical"
	"librarian/internal/domain"
	"librarian/internal/embedding"
)

// Reconciler repairs books that lack a valid index record. It only ever adds
// missing records, so it is safe to run concurrently with read queries.
// Running it twice with no intervening writes does zero work the second time.
type Reconciler struct {
	books     domain.BookSource
	canon     *canonical.Canonicalizer
	provider  *embedding.Provider
	index     domain.VectorIndex
	batchSize int
	enabled   bool
	log       *slog.Logger
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithBatchSize sets how many repairs are committed per progress batch.
func WithBatchSize(n int) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// WithEnabled toggles reconciliation. When disabled, Reconcile is a no-op
// returning 0.
func WithEnabled(enabled bool) Option {
	return func(r *Reconciler) { r.enabled = enabled }
}

// New creates a Reconciler with a default batch size of 50.
func New(books domain.BookSource, canon *canonical.Canonicalizer, provider *embedding.Provider, index domain.VectorIndex, log *slog.Logger, opts ...Option) *Reconciler {
	if log == nil {
		log = slog.Default()
	}
	r := &Reconciler{
		books:     books,
		canon:     canon,
		provider:  provider,
		index:     index,
		batchSize: 50,
		enabled:   true,
		log:       log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile computes the set of book ids lacking an index record and
// regenerates each missing embedding. Per-book failures are logged and
// skipped; the returned count reflects only successful repairs.
func (r *Reconciler) Reconcile(ctx context.Context) (int, error) {
	if !r.enabled || !r.provider.Enabled() {
		r.log.Info("reconciliation disabled, skipping")
		return 0, nil
	}
	missing, err := r.missingIDs(ctx)
	if err != nil {
		return 0, err
	}
	if len(missing) == 0 {
		return 0, nil
	}

	repaired := 0
	for start := 0; start < len(missing); start += r.batchSize {
		end := start + r.batchSize
		if end > len(missing) {
			end = len(missing)
		}
		for _, id := range missing[start:end] {
			if err := r.repair(ctx, id); err != nil {
				r.log.Warn("failed to repair embedding", "book_id", id, "error", err)
				continue
			}
			repaired++
		}
		r.log.Info("reconcile progress", "repaired", repaired, "missing", len(missing))
	}
	return repaired, nil
}

// missingIDs is the set difference between all book ids and the ids present
// in the index. For the embedded variant the index lists rows with a non-null
// embedding column, so the same computation covers both variants.
func (r *Reconciler) missingIDs(ctx context.Context) ([]int64, error) {
	ids, err := r.books.ListBookIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	indexed, err := r.index.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list indexed: %w", err)
	}
	have := make(map[int64]struct{}, len(indexed))
	for _, id := range indexed {
		have[id] = struct{}{}
	}
	var missing []int64
	for _, id := range ids {
		if _, ok := have[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (r *Reconciler) repair(ctx context.Context, id int64) error {
	book, err := r.books.GetBook(ctx, id)
	if err != nil {
		return err
	}
	text := r.canon.Text(book.Title, book.Author, book.Description, book.Categories, book.Moods)
	vec, err := r.provider.Embed(ctx, text)
	if err != nil {
		return err
	}
	if len(vec) == 0 {
		return domain.ErrModelUnavailable
	}
	return r.index.Upsert(ctx, domain.IndexRecord{
		ID:            book.ID,
		Vector:        vec,
		Title:         book.Title,
		Author:        book.Author,
		Format:        book.Format,
		ReadingStatus: book.ReadingStatus,
		Categories:    book.Categories,
		Moods:         book.Moods,
	})
}
