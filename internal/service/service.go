// Package service wires the book store, canonicalizer, embedding provider,
// vector index and orchestrator into the application core. Writes to the
// store always succeed independently of embedding: a failed embedding is
// logged and repaired by the next reconcile run, never a reason to reject
// the book.
package service

import (
	"context"
	"log/slog"

	"librarian/internal/canonical"
	"librarian/internal/domain"
	"librarian/internal/embedding"
	"librarian/internal/rag"
	"librarian/internal/reconcile"
	"librarian/internal/suggest"
)

// Store is the write boundary with the authoritative book store.
type Store interface {
	domain.BookSource
	CreateBook(ctx context.Context, b *domain.Book) error
	UpdateBook(ctx context.Context, b *domain.Book) error
	DeleteBook(ctx context.Context, id int64) error
	ListBooks(ctx context.Context) ([]domain.Book, error)
}

// Library is the application service.
type Library struct {
	store      Store
	canon      *canonical.Canonicalizer
	provider   *embedding.Provider
	index      domain.VectorIndex
	rag        *rag.Orchestrator
	suggester  *suggest.Suggester
	reconciler *reconcile.Reconciler
	log        *slog.Logger
}

// NewLibrary assembles the application service.
func NewLibrary(store Store, canon *canonical.Canonicalizer, provider *embedding.Provider, index domain.VectorIndex, orchestrator *rag.Orchestrator, suggester *suggest.Suggester, reconciler *reconcile.Reconciler, log *slog.Logger) *Library {
	if log == nil {
		log = slog.Default()
	}
	return &Library{
		store:      store,
		canon:      canon,
		provider:   provider,
		index:      index,
		rag:        orchestrator,
		suggester:  suggester,
		reconciler: reconciler,
		log:        log,
	}
}

// CreateBook persists the book and indexes it best-effort.
func (l *Library) CreateBook(ctx context.Context, b *domain.Book) (*domain.Book, error) {
	if b.ReadingStatus == "" {
		b.ReadingStatus = "unread"
	}
	if err := l.store.CreateBook(ctx, b); err != nil {
		return nil, err
	}
	l.syncIndex(ctx, b)
	return b, nil
}

// UpdateBook persists the changed fields and regenerates the book's index
// record. Re-embedding runs after the store write commits; if it fails the
// stale vector is tolerated until the reconciler next runs.
func (l *Library) UpdateBook(ctx context.Context, b *domain.Book) error {
	if err := l.store.UpdateBook(ctx, b); err != nil {
		return err
	}
	l.syncIndex(ctx, b)
	return nil
}

// DeleteBook removes the book and cascades the deletion to the index so no
// orphaned vector can leak into later search results.
func (l *Library) DeleteBook(ctx context.Context, id int64) error {
	if err := l.store.DeleteBook(ctx, id); err != nil {
		return err
	}
	if err := l.index.Delete(ctx, id); err != nil {
		l.log.Warn("failed to delete index record", "book_id", id, "error", err)
	}
	return nil
}

// GetBook loads a single book.
func (l *Library) GetBook(ctx context.Context, id int64) (*domain.Book, error) {
	return l.store.GetBook(ctx, id)
}

// ListBooks returns all books.
func (l *Library) ListBooks(ctx context.Context) ([]domain.Book, error) {
	return l.store.ListBooks(ctx)
}

// Search answers a free-form query with ranked books and a grounded response.
func (l *Library) Search(ctx context.Context, query string, k int, filters domain.SearchFilters) (domain.Answer, error) {
	return l.rag.Answer(ctx, query, k, filters)
}

// SuggestTags proposes categories and moods for a book.
func (l *Library) SuggestTags(ctx context.Context, title, author, description string) suggest.Suggestion {
	return l.suggester.SuggestTags(ctx, title, author, description)
}

// Reconcile repairs index records missing for existing books.
func (l *Library) Reconcile(ctx context.Context) (int, error) {
	return l.reconciler.Reconcile(ctx)
}

// syncIndex regenerates the book's index record. Failure is absorbed: the
// book write has already committed and reconciliation retries later.
func (l *Library) syncIndex(ctx context.Context, b *domain.Book) {
	if !l.provider.Enabled() {
		return
	}
	text := l.canon.Text(b.Title, b.Author, b.Description, b.Categories, b.Moods)
	vec, err := l.provider.Embed(ctx, text)
	if err != nil {
		l.log.Warn("embedding failed, book left unindexed", "book_id", b.ID, "error", err)
		return
	}
	if len(vec) == 0 {
		return
	}
	rec := domain.IndexRecord{
		ID:            b.ID,
		Vector:        vec,
		Title:         b.Title,
		Author:        b.Author,
		Format:        b.Format,
		ReadingStatus: b.ReadingStatus,
		Categories:    b.Categories,
		Moods:         b.Moods,
	}
	if err := l.index.Upsert(ctx, rec); err != nil {
		l.log.Warn("index upsert failed, book left unindexed", "book_id", b.ID, "error", err)
	}
}
