package voucher

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerline/ledgerline/internal/book"
)

// Repository persists vouchers.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional voucher operations.
type TxRepository interface {
	GetBookForUpdate(ctx context.Context, bookID int64) (book.AccountBook, error)
	GetVoucher(ctx context.Context, bookID, voucherID int64) (Voucher, error)
	ListVouchers(ctx context.Context, bookID int64, period string) ([]Voucher, error)
	CountClosingVouchers(ctx context.Context, bookID int64, period, kind string) (int, error)
	NextSequence(ctx context.Context, bookID int64, voucherType string) (int64, error)
	InsertVoucher(ctx context.Context, v Voucher) (Voucher, error)
	ReplaceLines(ctx context.Context, voucherID int64, date time.Time, lines []Line) error
	UpdateStatus(ctx context.Context, voucherID int64, status Status, auditor string) error
	DeleteVoucher(ctx context.Context, voucherID int64) error
}

type txRepository struct {
	tx    pgx.Tx
	books *book.Repository
}

// WithTx executes fn within a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("voucher repository not initialised")
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txRepository{tx: tx, books: book.NewRepository(r.pool)}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

const voucherColumns = `id, book_id, date, type, sequence_no, status, origin, closing_kind, maker, auditor, created_at, updated_at`

func scanVoucher(row pgx.Row) (Voucher, error) {
	var v Voucher
	err := row.Scan(&v.ID, &v.BookID, &v.Date, &v.Type, &v.SequenceNo, &v.Status, &v.Origin, &v.ClosingKind, &v.Maker, &v.Auditor, &v.CreatedAt, &v.UpdatedAt)
	return v, err
}

func (r *txRepository) GetBookForUpdate(ctx context.Context, bookID int64) (book.AccountBook, error) {
	return r.books.GetForUpdate(ctx, r.tx, bookID)
}

func (r *txRepository) GetVoucher(ctx context.Context, bookID, voucherID int64) (Voucher, error) {
	v, err := scanVoucher(r.tx.QueryRow(ctx, `SELECT `+voucherColumns+` FROM vouchers WHERE book_id=$1 AND id=$2`, bookID, voucherID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Voucher{}, ErrNotFound
		}
		return Voucher{}, err
	}
	lines, err := loadLines(ctx, r.tx, v.ID)
	if err != nil {
		return Voucher{}, err
	}
	v.Lines = lines
	return v, nil
}

func (r *txRepository) ListVouchers(ctx context.Context, bookID int64, period string) ([]Voucher, error) {
	return listVouchers(ctx, r.tx, bookID, period)
}

func (r *txRepository) CountClosingVouchers(ctx context.Context, bookID int64, period, kind string) (int, error) {
	var count int
	err := r.tx.QueryRow(ctx, `SELECT COUNT(*) FROM vouchers WHERE book_id=$1 AND to_char(date, 'YYYY-MM')=$2 AND closing_kind=$3`, bookID, period, kind).Scan(&count)
	return count, err
}

// NextSequence allocates the next number for (book, type). The cursor table
// only ever moves forward, so numbers are never reused after deletion.
func (r *txRepository) NextSequence(ctx context.Context, bookID int64, voucherType string) (int64, error) {
	var next int64
	err := r.tx.QueryRow(ctx, `INSERT INTO voucher_sequences (book_id, voucher_type, next_no)
VALUES ($1, $2, 1)
ON CONFLICT (book_id, voucher_type) DO UPDATE SET next_no = voucher_sequences.next_no + 1
RETURNING next_no`, bookID, voucherType).Scan(&next)
	return next, err
}

func (r *txRepository) InsertVoucher(ctx context.Context, v Voucher) (Voucher, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO vouchers (book_id, date, type, sequence_no, status, origin, closing_kind, maker, auditor)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id, created_at, updated_at`,
		v.BookID, v.Date, v.Type, v.SequenceNo, v.Status, v.Origin, v.ClosingKind, v.Maker, v.Auditor)
	if err := row.Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return Voucher{}, err
	}
	for i := range v.Lines {
		line := &v.Lines[i]
		line.VoucherID = v.ID
		err := r.tx.QueryRow(ctx, `INSERT INTO voucher_lines (voucher_id, summary, subject_code, debit, credit, aux_dimension, aux_item_id)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
			v.ID, line.Summary, line.SubjectCode, line.Debit, line.Credit, line.AuxDimension, line.AuxItemID).Scan(&line.ID)
		if err != nil {
			return Voucher{}, err
		}
	}
	return v, nil
}

func (r *txRepository) ReplaceLines(ctx context.Context, voucherID int64, date time.Time, lines []Line) error {
	if _, err := r.tx.Exec(ctx, `UPDATE vouchers SET date=$2, updated_at=NOW() WHERE id=$1`, voucherID, date); err != nil {
		return err
	}
	if _, err := r.tx.Exec(ctx, `DELETE FROM voucher_lines WHERE voucher_id=$1`, voucherID); err != nil {
		return err
	}
	for _, line := range lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO voucher_lines (voucher_id, summary, subject_code, debit, credit, aux_dimension, aux_item_id)
VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			voucherID, line.Summary, line.SubjectCode, line.Debit, line.Credit, line.AuxDimension, line.AuxItemID); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) UpdateStatus(ctx context.Context, voucherID int64, status Status, auditor string) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE vouchers SET status=$2, auditor=$3, updated_at=NOW() WHERE id=$1`, voucherID, status, auditor)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteVoucher removes the voucher and releases any journal entries it was
// locking.
func (r *txRepository) DeleteVoucher(ctx context.Context, voucherID int64) error {
	if _, err := r.tx.Exec(ctx, `UPDATE journal_entries SET voucher_id=NULL, updated_at=NOW() WHERE voucher_id=$1`, voucherID); err != nil {
		return err
	}
	if _, err := r.tx.Exec(ctx, `DELETE FROM voucher_lines WHERE voucher_id=$1`, voucherID); err != nil {
		return err
	}
	cmd, err := r.tx.Exec(ctx, `DELETE FROM vouchers WHERE id=$1`, voucherID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListVouchers returns vouchers with lines, optionally filtered to one
// period, outside any transaction. Used by the aggregator.
func (r *Repository) ListVouchers(ctx context.Context, bookID int64, period string) ([]Voucher, error) {
	return listVouchers(ctx, r.pool, bookID, period)
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func listVouchers(ctx context.Context, q queryer, bookID int64, period string) ([]Voucher, error) {
	query := `SELECT ` + voucherColumns + ` FROM vouchers WHERE book_id=$1`
	args := []any{bookID}
	if period != "" {
		query += ` AND to_char(date, 'YYYY-MM')=$2`
		args = append(args, period)
	}
	query += ` ORDER BY date, type, sequence_no`
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var vouchers []Voucher
	index := map[int64]int{}
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, err
		}
		index[v.ID] = len(vouchers)
		vouchers = append(vouchers, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(vouchers) == 0 {
		return vouchers, nil
	}
	lineQuery := `SELECT l.id, l.voucher_id, l.summary, l.subject_code, l.debit, l.credit, l.aux_dimension, l.aux_item_id
FROM voucher_lines l JOIN vouchers v ON v.id = l.voucher_id WHERE v.book_id=$1`
	lineArgs := []any{bookID}
	if period != "" {
		lineQuery += ` AND to_char(v.date, 'YYYY-MM')=$2`
		lineArgs = append(lineArgs, period)
	}
	lineQuery += ` ORDER BY l.voucher_id, l.id`
	lineRows, err := q.Query(ctx, lineQuery, lineArgs...)
	if err != nil {
		return nil, err
	}
	defer lineRows.Close()
	for lineRows.Next() {
		var line Line
		if err := lineRows.Scan(&line.ID, &line.VoucherID, &line.Summary, &line.SubjectCode, &line.Debit, &line.Credit, &line.AuxDimension, &line.AuxItemID); err != nil {
			return nil, err
		}
		if i, ok := index[line.VoucherID]; ok {
			vouchers[i].Lines = append(vouchers[i].Lines, line)
		}
	}
	return vouchers, lineRows.Err()
}

func loadLines(ctx context.Context, q queryer, voucherID int64) ([]Line, error) {
	rows, err := q.Query(ctx, `SELECT id, voucher_id, summary, subject_code, debit, credit, aux_dimension, aux_item_id
FROM voucher_lines WHERE voucher_id=$1 ORDER BY id`, voucherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []Line
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.VoucherID, &line.Summary, &line.SubjectCode, &line.Debit, &line.Credit, &line.AuxDimension, &line.AuxItemID); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}
