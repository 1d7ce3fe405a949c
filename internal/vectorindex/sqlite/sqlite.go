// Package sqlite implements the embedded vector index variant: the vector
// lives in the embedding column of the books row, so upserts write that
// column, deletes are implied by the book's own delete, and queries apply
// every filter inside one consistent read of the same database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"librarian/internal/domain"
	"librarian/internal/vectorindex"
)

// Index is the embedded-in-row vector index over the library database.
type Index struct {
	db        *sql.DB
	dimension int
}

// NewIndex creates an embedded index over the given library database handle.
func NewIndex(db *sql.DB, dimension int) *Index {
	return &Index{db: db, dimension: dimension}
}

// Upsert stores the record's vector in the book row. Metadata is already
// denormalized in the row itself, so only the embedding column is written.
func (x *Index) Upsert(ctx context.Context, rec domain.IndexRecord) error {
	if len(rec.Vector) != x.dimension {
		return fmt.Errorf("%w: got %d, want %d", domain.ErrDimensionMismatch, len(rec.Vector), x.dimension)
	}
	res, err := x.db.ExecContext(ctx, `UPDATE books SET embedding=? WHERE id=?`,
		vectorindex.EncodeVector(rec.Vector), rec.ID)
	if err != nil {
		return fmt.Errorf("%w: upsert: %v", domain.ErrIndexUnavailable, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete is a no-op: the vector is a column of the book row and is removed
// with it.
func (x *Index) Delete(_ context.Context, _ int64) error { return nil }

// Query scans every embedded book matching the filters within one read,
// scores candidates by cosine similarity and returns the top k.
func (x *Index) Query(ctx context.Context, vector []float32, k int, filters domain.SearchFilters) ([]domain.BookMatch, error) {
	if k <= 0 {
		k = 10
	}
	query := `
		SELECT b.id, b.title, b.author, b.format, b.reading_status, b.embedding,
			COALESCE((SELECT group_concat(category, ',') FROM book_categories WHERE book_id = b.id), ''),
			COALESCE((SELECT group_concat(mood, ',') FROM book_moods WHERE book_id = b.id), '')
		FROM books b
		WHERE b.embedding IS NOT NULL`
	var args []any
	if filters.Format != "" {
		query += ` AND b.format = ?`
		args = append(args, filters.Format)
	}
	if filters.ReadingStatus != "" {
		query += ` AND b.reading_status = ?`
		args = append(args, filters.ReadingStatus)
	}
	if filters.Category != "" {
		query += ` AND EXISTS (SELECT 1 FROM book_categories c WHERE c.book_id = b.id AND c.category = ?)`
		args = append(args, filters.Category)
	}
	if filters.Mood != "" {
		query += ` AND EXISTS (SELECT 1 FROM book_moods m WHERE m.book_id = b.id AND m.mood = ?)`
		args = append(args, filters.Mood)
	}

	rows, err := x.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", domain.ErrIndexUnavailable, err)
	}
	defer rows.Close()

	var matches []domain.BookMatch
	for rows.Next() {
		var m domain.BookMatch
		var blob []byte
		var cats, moods string
		if err := rows.Scan(&m.ID, &m.Title, &m.Author, &m.Format, &m.ReadingStatus, &blob, &cats, &moods); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", domain.ErrIndexUnavailable, err)
		}
		vec, err := vectorindex.DecodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("%w: book %d: %v", domain.ErrIndexUnavailable, m.ID, err)
		}
		if len(vec) != x.dimension {
			return nil, fmt.Errorf("%w: book %d stored %d dimensions, index expects %d",
				domain.ErrDimensionMismatch, m.ID, len(vec), x.dimension)
		}
		m.Categories = splitTags(cats)
		m.Moods = splitTags(moods)
		m.Similarity = vectorindex.Similarity(vector, vec)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %v", domain.ErrIndexUnavailable, err)
	}
	vectorindex.SortMatches(matches)
	if k > len(matches) {
		k = len(matches)
	}
	return matches[:k], nil
}

// Count returns the number of books with an embedding.
func (x *Index) Count(ctx context.Context) (int, error) {
	var n int
	err := x.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books WHERE embedding IS NOT NULL`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: count: %v", domain.ErrIndexUnavailable, err)
	}
	return n, nil
}

// ListIDs returns the ids of all books with an embedding.
func (x *Index) ListIDs(ctx context.Context) ([]int64, error) {
	rows, err := x.db.QueryContext(ctx, `SELECT id FROM books WHERE embedding IS NOT NULL ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: list ids: %v", domain.ErrIndexUnavailable, err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
