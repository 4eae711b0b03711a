package book

import (
	"errors"
	"time"
)

// TaxType selects which VAT closing pattern applies to the book.
type TaxType string

const (
	TaxTypeGeneral    TaxType = "GENERAL"
	TaxTypeSmallScale TaxType = "SMALL_SCALE"
)

// AccountBook tracks one set of books: its current period, the closed-period
// watermark, and tax configuration. Vouchers dated on or before
// LastClosedPeriod are immutable until a reverse-close lowers the watermark.
type AccountBook struct {
	ID                   int64
	Name                 string
	OpeningPeriod        string
	CurrentPeriod        string
	LastClosedPeriod     string
	TaxType              TaxType
	FiscalYearStartMonth int
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// ErrNotFound indicates the book does not exist.
var ErrNotFound = errors.New("book: not found")

// PeriodLocked reports whether the supplied period falls at or before the
// book's closed watermark.
func (b AccountBook) PeriodLocked(period string) bool {
	return b.LastClosedPeriod != "" && period <= b.LastClosedPeriod
}

// FiscalYearEnd reports whether period is the last period of the book's
// fiscal year.
func (b AccountBook) FiscalYearEnd(period string) bool {
	_, month, err := ParsePeriod(period)
	if err != nil {
		return false
	}
	start := b.FiscalYearStartMonth
	if start < 1 || start > 12 {
		start = 1
	}
	end := start - 1
	if end == 0 {
		end = 12
	}
	return month == end
}

// FiscalYearStart returns the first period of the fiscal year containing
// period.
func (b AccountBook) FiscalYearStart(period string) string {
	year, month, err := ParsePeriod(period)
	if err != nil {
		return period
	}
	start := b.FiscalYearStartMonth
	if start < 1 || start > 12 {
		start = 1
	}
	if month < start {
		year--
	}
	return FormatPeriod(year, start)
}
