package closing

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerline/ledgerline/internal/book"
)

// ErrTemplateNotFound indicates a missing transfer template.
var ErrTemplateNotFound = errors.New("closing: template not found")

// Repository persists transfer templates.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListTemplates returns the book's custom transfer templates ordered by id.
func (r *Repository) ListTemplates(ctx context.Context, bookID int64) ([]Template, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, book_id, name, debit_code, credit_code, source_code
FROM transfer_templates WHERE book_id=$1 ORDER BY id`, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var templates []Template
	for rows.Next() {
		var t Template
		if err := rows.Scan(&t.ID, &t.BookID, &t.Name, &t.DebitCode, &t.CreditCode, &t.SourceCode); err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

// GetTemplate loads one template scoped to the book.
func (r *Repository) GetTemplate(ctx context.Context, bookID, templateID int64) (Template, error) {
	var t Template
	err := r.pool.QueryRow(ctx, `SELECT id, book_id, name, debit_code, credit_code, source_code
FROM transfer_templates WHERE book_id=$1 AND id=$2`, bookID, templateID).
		Scan(&t.ID, &t.BookID, &t.Name, &t.DebitCode, &t.CreditCode, &t.SourceCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Template{}, ErrTemplateNotFound
		}
		return Template{}, err
	}
	return t, nil
}

// InsertTemplate stores a new transfer template.
func (r *Repository) InsertTemplate(ctx context.Context, t Template) (Template, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO transfer_templates (book_id, name, debit_code, credit_code, source_code)
VALUES ($1,$2,$3,$4,$5) RETURNING id`, t.BookID, t.Name, t.DebitCode, t.CreditCode, t.SourceCode).Scan(&t.ID)
	if err != nil {
		return Template{}, err
	}
	return t, nil
}

// BookStoreAdapter exposes the book repository under the closing service's
// BookStore port.
type BookStoreAdapter struct {
	pool  *pgxpool.Pool
	books *book.Repository
}

// NewBookStoreAdapter constructs the adapter.
func NewBookStoreAdapter(pool *pgxpool.Pool) *BookStoreAdapter {
	return &BookStoreAdapter{pool: pool, books: book.NewRepository(pool)}
}

// Get loads the book.
func (a *BookStoreAdapter) Get(ctx context.Context, bookID int64) (book.AccountBook, error) {
	return a.books.Get(ctx, bookID)
}

// SetPeriods updates the period cursor and watermark in one transaction.
func (a *BookStoreAdapter) SetPeriods(ctx context.Context, bookID int64, currentPeriod, lastClosedPeriod string) error {
	tx, err := a.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	if _, err := a.books.GetForUpdate(ctx, tx, bookID); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := a.books.UpdatePeriods(ctx, tx, bookID, currentPeriod, lastClosedPeriod); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}
