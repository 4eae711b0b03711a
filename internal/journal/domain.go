package journal

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FundAccount is a cash or bank account whose movements the journal tracks.
// SubjectCode ties it to the chart of accounts for voucher generation.
type FundAccount struct {
	ID             int64
	BookID         int64
	Name           string
	SubjectCode    string
	OpeningBalance int64
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Entry is one journal line. Exactly one of Income/Expense is positive.
// RunningBalance is derived on read, never stored as source of truth, so
// edits and deletes never require balance-chain repair. A non-zero VoucherID
// marks the entry as locked by a generated voucher.
type Entry struct {
	ID               int64
	BookID           int64
	AccountID        int64
	Date             time.Time
	Summary          string
	Income           int64
	Expense          int64
	CounterpartyCode string
	TransferNo       string
	VoucherID        int64
	VoucherCode      string
	RunningBalance   int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Locked reports whether a generated voucher holds this entry read-only.
func (e Entry) Locked() bool {
	return e.VoucherID != 0
}

// Amount is the signed movement: income positive, expense negative.
func (e Entry) Amount() int64 {
	return e.Income - e.Expense
}

// Classified reports whether the entry has a counterparty subject assigned,
// a precondition for voucher generation.
func (e Entry) Classified() bool {
	return e.CounterpartyCode != ""
}

// TaxConfig controls optional tax separation during voucher generation:
// net = total / (1 + rate), tax = total - net.
type TaxConfig struct {
	Enabled     bool
	Rate        decimal.Decimal
	SubjectCode string
}

var (
	// ErrNotFound indicates the entry does not exist.
	ErrNotFound = errors.New("journal: entry not found")
	// ErrAccountNotFound indicates the fund account does not exist.
	ErrAccountNotFound = errors.New("journal: fund account not found")
	// ErrExclusiveAmount indicates income and expense are not mutually
	// exclusive, or both are zero.
	ErrExclusiveAmount = errors.New("journal: exactly one of income/expense must be positive")
	// ErrLockedByVoucher indicates the entry is held by a generated voucher.
	ErrLockedByVoucher = errors.New("journal: entry locked by voucher")
	// ErrInconsistentMerge indicates merge candidates differ in date,
	// account, or direction.
	ErrInconsistentMerge = errors.New("journal: merge selection must share date, account, and direction")
	// ErrNotClassified indicates an entry without a counterparty subject.
	ErrNotClassified = errors.New("journal: entry has no counterparty subject")
	// ErrNoEntries indicates an empty generation selection.
	ErrNoEntries = errors.New("journal: no entries selected")
	// ErrSameAccount indicates a transfer where source and destination match.
	ErrSameAccount = errors.New("journal: transfer accounts must differ")
)

// LockedError names the voucher holding an entry.
type LockedError struct {
	EntryID     int64
	VoucherCode string
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("journal: entry %d locked by voucher %s", e.EntryID, e.VoucherCode)
}

// Is lets errors.Is match ErrLockedByVoucher.
func (e *LockedError) Is(target error) bool {
	return target == ErrLockedByVoucher
}

// CreateEntryInput carries the fields for a new journal entry.
type CreateEntryInput struct {
	BookID           int64
	AccountID        int64
	Date             time.Time
	Summary          string
	Income           int64
	Expense          int64
	CounterpartyCode string
}

// Validate checks structural fields and the income/expense exclusivity rule.
func (in CreateEntryInput) Validate() error {
	if in.BookID == 0 || in.AccountID == 0 {
		return errors.New("journal: book and account required")
	}
	if in.Date.IsZero() {
		return errors.New("journal: date required")
	}
	if strings.TrimSpace(in.Summary) == "" {
		return errors.New("journal: summary required")
	}
	if in.Income < 0 || in.Expense < 0 {
		return ErrExclusiveAmount
	}
	if (in.Income > 0) == (in.Expense > 0) {
		return ErrExclusiveAmount
	}
	return nil
}
