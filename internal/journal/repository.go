package journal

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists fund accounts and journal entries in postgres. The
// voucher code shown on locked entries is derived by joining the voucher
// table, never stored on the entry.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const accountColumns = `id, book_id, name, subject_code, opening_balance, is_active, created_at, updated_at`

func scanAccount(row pgx.Row) (FundAccount, error) {
	var a FundAccount
	err := row.Scan(&a.ID, &a.BookID, &a.Name, &a.SubjectCode, &a.OpeningBalance, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return FundAccount{}, ErrAccountNotFound
	}
	return a, err
}

func (r *Repository) GetAccount(ctx context.Context, bookID, accountID int64) (FundAccount, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM fund_accounts WHERE book_id=$1 AND id=$2`, bookID, accountID)
	return scanAccount(row)
}

func (r *Repository) ListAccounts(ctx context.Context, bookID int64) ([]FundAccount, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+accountColumns+` FROM fund_accounts WHERE book_id=$1 ORDER BY id`, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []FundAccount
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// InsertAccount registers a fund account for a book.
func (r *Repository) InsertAccount(ctx context.Context, a FundAccount) (FundAccount, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO fund_accounts (book_id, name, subject_code, opening_balance, is_active)
VALUES ($1,$2,$3,$4,$5) RETURNING `+accountColumns, a.BookID, a.Name, a.SubjectCode, a.OpeningBalance, a.IsActive)
	return scanAccount(row)
}

const entrySelect = `SELECT e.id, e.book_id, e.account_id, e.date, e.summary, e.income, e.expense,
e.counterparty_code, e.transfer_no, COALESCE(e.voucher_id, 0),
COALESCE(v.type || '-' || v.sequence_no, ''), e.created_at, e.updated_at
FROM journal_entries e LEFT JOIN vouchers v ON v.id = e.voucher_id`

func scanEntry(row pgx.Row) (Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.BookID, &e.AccountID, &e.Date, &e.Summary, &e.Income, &e.Expense,
		&e.CounterpartyCode, &e.TransferNo, &e.VoucherID, &e.VoucherCode, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	return e, err
}

func (r *Repository) GetEntry(ctx context.Context, bookID, entryID int64) (Entry, error) {
	row := r.pool.QueryRow(ctx, entrySelect+` WHERE e.book_id=$1 AND e.id=$2`, bookID, entryID)
	return scanEntry(row)
}

func (r *Repository) ListEntries(ctx context.Context, bookID, accountID int64) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, entrySelect+` WHERE e.book_id=$1 AND e.account_id=$2 ORDER BY e.date, e.id`, bookID, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

const entryInsert = `INSERT INTO journal_entries (book_id, account_id, date, summary, income, expense, counterparty_code, transfer_no)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id, created_at, updated_at`

func (r *Repository) InsertEntry(ctx context.Context, e Entry) (Entry, error) {
	err := r.pool.QueryRow(ctx, entryInsert,
		e.BookID, e.AccountID, e.Date, e.Summary, e.Income, e.Expense, e.CounterpartyCode, e.TransferNo,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

// InsertPair writes both legs of an internal transfer in one transaction.
func (r *Repository) InsertPair(ctx context.Context, out, in Entry) (Entry, Entry, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Entry{}, Entry{}, err
	}
	defer tx.Rollback(ctx)
	for _, e := range []*Entry{&out, &in} {
		if err := tx.QueryRow(ctx, entryInsert,
			e.BookID, e.AccountID, e.Date, e.Summary, e.Income, e.Expense, e.CounterpartyCode, e.TransferNo,
		).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return Entry{}, Entry{}, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return Entry{}, Entry{}, err
	}
	return out, in, nil
}

func (r *Repository) UpdateEntry(ctx context.Context, e Entry) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE journal_entries
SET date=$1, summary=$2, income=$3, expense=$4, counterparty_code=$5, updated_at=NOW()
WHERE id=$6 AND voucher_id IS NULL`, e.Date, e.Summary, e.Income, e.Expense, e.CounterpartyCode, e.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteEntry(ctx context.Context, entryID int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM journal_entries WHERE id=$1 AND voucher_id IS NULL`, entryID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// LockEntries stamps the generated voucher onto the contributing entries.
func (r *Repository) LockEntries(ctx context.Context, ids []int64, voucherID int64, _ string) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE journal_entries SET voucher_id=$1, updated_at=NOW() WHERE id = ANY($2) AND voucher_id IS NULL`, voucherID, ids)
	if err != nil {
		return err
	}
	if int(cmd.RowsAffected()) != len(ids) {
		return ErrLockedByVoucher
	}
	return nil
}
