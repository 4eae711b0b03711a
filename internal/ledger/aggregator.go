// Package ledger derives subject balances from voucher sets. Balances are
// always recomputed from the vouchers on hand; no stored balance is ever
// authoritative.
package ledger

import (
	"strings"

	"github.com/ledgerline/ledgerline/internal/subject"
	"github.com/ledgerline/ledgerline/internal/voucher"
)

// Balance holds debit/credit accumulations and the direction-adjusted net.
type Balance struct {
	DebitTotal  int64
	CreditTotal int64
	Net         int64
}

// eligible reports whether a voucher contributes to balances: approved, or
// system-generated regardless of status. Closing vouchers are trusted the
// moment they are synthesized.
func eligible(v voucher.Voucher) bool {
	return v.Status == voucher.StatusApproved || v.Origin == voucher.OriginSystemGenerated
}

// Aggregate accumulates debit and credit for every line whose subject code
// equals codeOrPrefix or extends it, over vouchers dated in period. Prefix
// matching rolls child codes up into a parent query. Net is computed per the
// subject's normal direction.
func Aggregate(vouchers []voucher.Voucher, codeOrPrefix, period string, dir subject.Direction) Balance {
	return aggregateRange(vouchers, codeOrPrefix, period, period, dir, nil)
}

// AggregateRange is the year-to-date variant: it spans every period from
// fromPeriod through toPeriod inclusive.
func AggregateRange(vouchers []voucher.Voucher, codeOrPrefix, fromPeriod, toPeriod string, dir subject.Direction) Balance {
	return aggregateRange(vouchers, codeOrPrefix, fromPeriod, toPeriod, dir, nil)
}

func aggregateRange(vouchers []voucher.Voucher, codeOrPrefix, fromPeriod, toPeriod string, dir subject.Direction, excludeKinds map[string]bool) Balance {
	var b Balance
	for _, v := range vouchers {
		if !eligible(v) {
			continue
		}
		p := v.Period()
		if p < fromPeriod || p > toPeriod {
			continue
		}
		if excludeKinds != nil && excludeKinds[v.ClosingKind] {
			continue
		}
		for _, line := range v.Lines {
			if !strings.HasPrefix(line.SubjectCode, codeOrPrefix) {
				continue
			}
			b.DebitTotal += line.Debit
			b.CreditTotal += line.Credit
		}
	}
	if dir == subject.DirectionCredit {
		b.Net = b.CreditTotal - b.DebitTotal
	} else {
		b.Net = b.DebitTotal - b.CreditTotal
	}
	return b
}

// PeriodNet returns the net balance of one profit-and-loss subject within a
// single period, ignoring vouchers produced by the profit or year-end
// transfers so a regenerated transfer sees the pre-transfer figures.
func PeriodNet(vouchers []voucher.Voucher, subj subject.Subject, period string) int64 {
	return aggregateRange(vouchers, subj.Code, period, period, subj.Direction, map[string]bool{
		voucher.KindProfit:       true,
		voucher.KindYearTransfer: true,
	}).Net
}

// YearToDateProfit sums, across the fiscal year through toPeriod, the net of
// every profit-and-loss subject: revenue-class nets added, expense-class nets
// subtracted. Profit-transfer and year-end-transfer vouchers are excluded so
// the figure reflects operating activity only. Only leaf subjects (those not
// acting as a parent of another P&L subject) are counted to avoid doubling
// rolled-up parents.
func YearToDateProfit(vouchers []voucher.Voucher, subjects []subject.Subject, fromPeriod, toPeriod string) int64 {
	exclude := map[string]bool{
		voucher.KindProfit:       true,
		voucher.KindYearTransfer: true,
	}
	var profit int64
	for _, subj := range leafProfitSubjects(subjects) {
		net := aggregateRange(vouchers, subj.Code, fromPeriod, toPeriod, subj.Direction, exclude).Net
		if subj.IsRevenue() {
			profit += net
		} else {
			profit -= net
		}
	}
	return profit
}

// leafProfitSubjects filters to profit-and-loss subjects that no other
// subject declares as parent.
func leafProfitSubjects(subjects []subject.Subject) []subject.Subject {
	parents := make(map[string]bool)
	for _, s := range subjects {
		if s.ParentCode != "" {
			parents[s.ParentCode] = true
		}
	}
	var out []subject.Subject
	for _, s := range subjects {
		if s.Category != subject.CategoryProfitAndLoss {
			continue
		}
		if parents[s.Code] {
			continue
		}
		out = append(out, s)
	}
	return out
}
