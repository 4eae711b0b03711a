package journal

import (
	"github.com/ledgerline/ledgerline/internal/money"
	"github.com/ledgerline/ledgerline/internal/voucher"
)

// The draft builders are pure: they turn classified journal entries into
// balanced voucher line sets. Inflows debit the fund-account subject and
// credit the counterparty; outflows are the reverse. With tax separation the
// counterparty carries the net and the tax subject carries the remainder, so
// the two sides still match the gross movement exactly.

// SingleDraft builds the lines for one entry.
func SingleDraft(account FundAccount, entry Entry, tax TaxConfig) ([]voucher.Line, error) {
	if !entry.Classified() {
		return nil, ErrNotClassified
	}
	income := entry.Income > 0
	total := entry.Income
	if !income {
		total = entry.Expense
	}
	lines := []voucher.Line{fundLine(account, entry.Summary, total, income)}
	lines = append(lines, counterpartyLines(entry, tax, income)...)
	return lines, nil
}

// MergeDraft builds one voucher's lines from several entries: a single
// aggregated fund-account line against one counterparty line per entry. The
// entries must share date, account, and direction; the check is a hard
// precondition, not best-effort.
func MergeDraft(account FundAccount, entries []Entry, tax TaxConfig) ([]voucher.Line, error) {
	if len(entries) == 0 {
		return nil, ErrNoEntries
	}
	first := entries[0]
	income := first.Income > 0
	var total int64
	for _, e := range entries {
		if !e.Classified() {
			return nil, ErrNotClassified
		}
		if e.AccountID != first.AccountID || !e.Date.Equal(first.Date) || (e.Income > 0) != income {
			return nil, ErrInconsistentMerge
		}
		total += e.Income + e.Expense
	}
	lines := []voucher.Line{fundLine(account, first.Summary, total, income)}
	for _, e := range entries {
		lines = append(lines, counterpartyLines(e, tax, income)...)
	}
	return lines, nil
}

func fundLine(account FundAccount, summary string, total int64, income bool) voucher.Line {
	line := voucher.Line{Summary: summary, SubjectCode: account.SubjectCode}
	if income {
		line.Debit = total
	} else {
		line.Credit = total
	}
	return line
}

func counterpartyLines(entry Entry, tax TaxConfig, income bool) []voucher.Line {
	total := entry.Income + entry.Expense
	amount, taxAmount := total, int64(0)
	if tax.Enabled {
		amount, taxAmount = money.SplitTax(total, tax.Rate)
	}
	set := func(amount int64, code string) voucher.Line {
		line := voucher.Line{Summary: entry.Summary, SubjectCode: code}
		if income {
			line.Credit = amount
		} else {
			line.Debit = amount
		}
		return line
	}
	lines := []voucher.Line{set(amount, entry.CounterpartyCode)}
	if taxAmount > 0 {
		lines = append(lines, set(taxAmount, tax.SubjectCode))
	}
	return lines
}
