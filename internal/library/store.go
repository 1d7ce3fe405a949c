// Package library implements the authoritative book store on SQLite. The
// optional embedding column on the books row is what the embedded vector
// index variant reads, so index records share the book's transaction and
// lifecycle: deleting a book deletes its vector, no separate sync needed.
package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"librarian/internal/domain"
	"librarian/internal/vectorindex"
)

// Store is the SQLite-backed book store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the library database at the given path.
func Open(path string) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	s := &Store{db: db}
	if err := s.createTables(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// DB exposes the underlying handle so the embedded index variant can share
// the same database.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) createTables(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS books (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		author TEXT NOT NULL,
		isbn TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		format TEXT NOT NULL,
		reading_status TEXT NOT NULL DEFAULT 'unread',
		rating INTEGER NOT NULL DEFAULT 0,
		notes TEXT NOT NULL DEFAULT '',
		page_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		embedding BLOB
	);

	CREATE TABLE IF NOT EXISTS book_categories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		book_id INTEGER NOT NULL REFERENCES books(id) ON DELETE CASCADE,
		category TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS book_moods (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		book_id INTEGER NOT NULL REFERENCES books(id) ON DELETE CASCADE,
		mood TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_book_categories_book_id ON book_categories(book_id);
	CREATE INDEX IF NOT EXISTS idx_book_moods_book_id ON book_moods(book_id);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

// CreateBook inserts a book and its tags in one transaction, assigning its id
// and timestamps.
func (s *Store) CreateBook(ctx context.Context, b *domain.Book) error {
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO books (title, author, isbn, description, format, reading_status, rating, notes, page_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Title, b.Author, b.ISBN, b.Description, b.Format, b.ReadingStatus, b.Rating, b.Notes, b.PageCount, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert book: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert book id: %w", err)
	}
	b.ID = id
	if err := insertTags(ctx, tx, id, b.Categories, b.Moods); err != nil {
		return err
	}
	return tx.Commit()
}

// UpdateBook overwrites the book row and replaces its tags. The stored
// embedding is left untouched; callers re-embed after the write commits and a
// transiently stale vector is repaired by reconciliation.
func (s *Store) UpdateBook(ctx context.Context, b *domain.Book) error {
	b.UpdatedAt = time.Now().UTC()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE books SET title=?, author=?, isbn=?, description=?, format=?, reading_status=?, rating=?, notes=?, page_count=?, updated_at=?
		WHERE id=?`,
		b.Title, b.Author, b.ISBN, b.Description, b.Format, b.ReadingStatus, b.Rating, b.Notes, b.PageCount, b.UpdatedAt, b.ID)
	if err != nil {
		return fmt.Errorf("update book: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM book_categories WHERE book_id=?`, b.ID); err != nil {
		return fmt.Errorf("clear categories: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM book_moods WHERE book_id=?`, b.ID); err != nil {
		return fmt.Errorf("clear moods: %w", err)
	}
	if err := insertTags(ctx, tx, b.ID, b.Categories, b.Moods); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteBook removes the book row; tags and the embedded vector go with it.
func (s *Store) DeleteBook(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM books WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetBook loads a book and its tags.
func (s *Store) GetBook(ctx context.Context, id int64) (*domain.Book, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, author, isbn, description, format, reading_status, rating, notes, page_count, created_at, updated_at
		FROM books WHERE id=?`, id)
	var b domain.Book
	err := row.Scan(&b.ID, &b.Title, &b.Author, &b.ISBN, &b.Description, &b.Format, &b.ReadingStatus,
		&b.Rating, &b.Notes, &b.PageCount, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	if b.Categories, err = s.listTags(ctx, `SELECT category FROM book_categories WHERE book_id=? ORDER BY id`, id); err != nil {
		return nil, err
	}
	if b.Moods, err = s.listTags(ctx, `SELECT mood FROM book_moods WHERE book_id=? ORDER BY id`, id); err != nil {
		return nil, err
	}
	return &b, nil
}

// ListBooks returns all books with their tags, ordered by id.
func (s *Store) ListBooks(ctx context.Context) ([]domain.Book, error) {
	ids, err := s.ListBookIDs(ctx)
	if err != nil {
		return nil, err
	}
	books := make([]domain.Book, 0, len(ids))
	for _, id := range ids {
		b, err := s.GetBook(ctx, id)
		if err != nil {
			return nil, err
		}
		books = append(books, *b)
	}
	return books, nil
}

// ListBookIDs returns all book ids, ordered by id.
func (s *Store) ListBookIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM books ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list book ids: %w", err)
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

// SetEmbedding stores the vector in the book's embedding column.
func (s *Store) SetEmbedding(ctx context.Context, id int64, vec []float32) error {
	res, err := s.db.ExecContext(ctx, `UPDATE books SET embedding=? WHERE id=?`, vectorindex.EncodeVector(vec), id)
	if err != nil {
		return fmt.Errorf("set embedding: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ClearEmbedding nulls the book's embedding column.
func (s *Store) ClearEmbedding(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE books SET embedding=NULL WHERE id=?`, id); err != nil {
		return fmt.Errorf("clear embedding: %w", err)
	}
	return nil
}

func (s *Store) listTags(ctx context.Context, query string, id int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()
	var tags []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func insertTags(ctx context.Context, tx *sql.Tx, bookID int64, categories, moods []string) error {
	for _, c := range categories {
		if _, err := tx.ExecContext(ctx, `INSERT INTO book_categories (book_id, category) VALUES (?, ?)`, bookID, c); err != nil {
			return fmt.Errorf("insert category: %w", err)
		}
	}
	for _, m := range moods {
		if _, err := tx.ExecContext(ctx, `INSERT INTO book_moods (book_id, mood) VALUES (?, ?)`, bookID, m); err != nil {
			return fmt.Errorf("insert mood: %w", err)
		}
	}
	return nil
}
