package book

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidPeriod indicates a malformed period id.
var ErrInvalidPeriod = errors.New("book: invalid period, want YYYY-MM")

// ParsePeriod splits a period id like "2025-11" into year and month.
func ParsePeriod(period string) (year, month int, err error) {
	t, err := time.Parse("2006-01", period)
	if err != nil {
		return 0, 0, ErrInvalidPeriod
	}
	return t.Year(), int(t.Month()), nil
}

// FormatPeriod renders year and month as a period id.
func FormatPeriod(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// PeriodOf returns the period id containing the date.
func PeriodOf(date time.Time) string {
	return date.Format("2006-01")
}

// NextPeriod returns the period immediately after the argument.
func NextPeriod(period string) (string, error) {
	year, month, err := ParsePeriod(period)
	if err != nil {
		return "", err
	}
	month++
	if month > 12 {
		month = 1
		year++
	}
	return FormatPeriod(year, month), nil
}

// PrevPeriod returns the period immediately before the argument.
func PrevPeriod(period string) (string, error) {
	year, month, err := ParsePeriod(period)
	if err != nil {
		return "", err
	}
	month--
	if month < 1 {
		month = 12
		year--
	}
	return FormatPeriod(year, month), nil
}
