package voucher

import (
	"errors"
	"fmt"
	"time"

	"github.com/ledgerline/ledgerline/internal/book"
)

// Status enumerates voucher lifecycle values.
type Status string

const (
	StatusDraft    Status = "DRAFT"
	StatusApproved Status = "APPROVED"
)

// Origin tags who produced the voucher. System-generated closing vouchers
// are trusted by the aggregator regardless of approval status.
type Origin string

const (
	OriginUserEntered     Origin = "USER_ENTERED"
	OriginSystemGenerated Origin = "SYSTEM_GENERATED"
)

// Closing kinds tag system-generated closing vouchers. At most one live
// voucher exists per (period, kind).
const (
	KindCost           = "cost"
	KindVATTransfer    = "vat-transfer"
	KindVATSimple      = "vat-simple"
	KindSurtax         = "surtax"
	KindIncomeTax      = "income-tax"
	KindProfit         = "profit"
	KindYearTransfer   = "year-transfer"
	KindTemplatePrefix = "template:"
)

// Line is one side of a double entry. Exactly one of Debit or Credit is
// positive; amounts are cents.
type Line struct {
	ID          int64
	VoucherID   int64
	Summary     string
	SubjectCode string
	Debit       int64
	Credit      int64
	AuxDimension string
	AuxItemID    string
}

// Voucher is a double-entry journal voucher. SequenceNo is monotonic per
// (book, type) and never reused, even after deletion, so numbering gaps stay
// auditable.
type Voucher struct {
	ID          int64
	BookID      int64
	Date        time.Time
	Type        string
	SequenceNo  int64
	Status      Status
	Origin      Origin
	ClosingKind string
	Maker       string
	Auditor     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Lines       []Line
}

// Period returns the period id the voucher is dated in. It is always derived
// from the date, never stored separately.
func (v Voucher) Period() string {
	return book.PeriodOf(v.Date)
}

// DebitTotal sums the debit side in cents.
func (v Voucher) DebitTotal() int64 {
	var total int64
	for _, line := range v.Lines {
		total += line.Debit
	}
	return total
}

// CreditTotal sums the credit side in cents.
func (v Voucher) CreditTotal() int64 {
	var total int64
	for _, line := range v.Lines {
		total += line.Credit
	}
	return total
}

// IsClosing reports whether the voucher was synthesized by a closing
// generator.
func (v Voucher) IsClosing() bool {
	return v.ClosingKind != ""
}

var (
	// ErrImbalance indicates debit total != credit total.
	ErrImbalance = errors.New("voucher: debit and credit totals differ")
	// ErrTooFewLines indicates fewer than two lines.
	ErrTooFewLines = errors.New("voucher: at least two lines required")
	// ErrEmptyLine indicates a line missing summary or subject.
	ErrEmptyLine = errors.New("voucher: line missing summary or subject")
	// ErrExclusivity indicates a line with both or neither of debit/credit.
	ErrExclusivity = errors.New("voucher: line must carry exactly one of debit or credit")
	// ErrNegativeAmount indicates a negative line amount.
	ErrNegativeAmount = errors.New("voucher: negative amount")
	// ErrZeroTotal indicates a voucher whose total is zero.
	ErrZeroTotal = errors.New("voucher: total must be positive")
	// ErrMissingAuxiliary indicates a line on an auxiliary subject without a reference.
	ErrMissingAuxiliary = errors.New("voucher: auxiliary reference required by subject")
	// ErrUnknownSubject indicates a line referencing an unregistered subject code.
	ErrUnknownSubject = errors.New("voucher: unknown subject code")
	// ErrNotFound indicates a missing voucher.
	ErrNotFound = errors.New("voucher: not found")
	// ErrDuplicateClosing indicates a closing voucher already exists for the period/kind.
	ErrDuplicateClosing = errors.New("voucher: closing voucher already exists for period and kind")
	// ErrDeleteApproved indicates deletion of an approved voucher; un-approve first.
	ErrDeleteApproved = errors.New("voucher: approved voucher cannot be deleted")
	// ErrNotDraft indicates a mutation requiring draft status.
	ErrNotDraft = errors.New("voucher: voucher is not in draft status")
	// ErrNotApproved indicates un-approval of a non-approved voucher.
	ErrNotApproved = errors.New("voucher: voucher is not approved")
	// ErrPeriodLocked is the errors.Is target for PeriodLockedError.
	ErrPeriodLocked = errors.New("voucher: period locked")
)

// PeriodLockedError rejects mutations to vouchers dated within a closed
// period, naming the offending period.
type PeriodLockedError struct {
	Period string
}

func (e *PeriodLockedError) Error() string {
	return fmt.Sprintf("voucher: period %s is closed", e.Period)
}

// Is makes errors.Is(err, ErrPeriodLocked) match.
func (e *PeriodLockedError) Is(target error) bool {
	return target == ErrPeriodLocked
}
