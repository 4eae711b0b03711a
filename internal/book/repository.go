package book

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists account books.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const bookColumns = `id, name, opening_period, current_period, last_closed_period, tax_type, fiscal_year_start_month, created_at, updated_at`

func scanBook(row pgx.Row) (AccountBook, error) {
	var b AccountBook
	err := row.Scan(&b.ID, &b.Name, &b.OpeningPeriod, &b.CurrentPeriod, &b.LastClosedPeriod, &b.TaxType, &b.FiscalYearStartMonth, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

// Get loads one book.
func (r *Repository) Get(ctx context.Context, bookID int64) (AccountBook, error) {
	b, err := scanBook(r.pool.QueryRow(ctx, `SELECT `+bookColumns+` FROM account_books WHERE id=$1`, bookID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AccountBook{}, ErrNotFound
		}
		return AccountBook{}, err
	}
	return b, nil
}

// List returns every book, oldest first.
func (r *Repository) List(ctx context.Context) ([]AccountBook, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+bookColumns+` FROM account_books ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var books []AccountBook
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// GetForUpdate loads one book with a row lock inside the supplied transaction.
func (r *Repository) GetForUpdate(ctx context.Context, tx pgx.Tx, bookID int64) (AccountBook, error) {
	b, err := scanBook(tx.QueryRow(ctx, `SELECT `+bookColumns+` FROM account_books WHERE id=$1 FOR UPDATE`, bookID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AccountBook{}, ErrNotFound
		}
		return AccountBook{}, err
	}
	return b, nil
}

// UpdatePeriods persists the book's period cursor and watermark.
func (r *Repository) UpdatePeriods(ctx context.Context, tx pgx.Tx, bookID int64, currentPeriod, lastClosedPeriod string) error {
	cmd, err := tx.Exec(ctx, `UPDATE account_books SET current_period=$2, last_closed_period=$3, updated_at=NOW() WHERE id=$1`, bookID, currentPeriod, lastClosedPeriod)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
