package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/subject"
	"github.com/ledgerline/ledgerline/internal/voucher"
)

func dated(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func approved(date time.Time, lines ...voucher.Line) voucher.Voucher {
	return voucher.Voucher{BookID: 1, Date: date, Type: "J", Status: voucher.StatusApproved, Origin: voucher.OriginUserEntered, Lines: lines}
}

func line(code string, debit, credit int64) voucher.Line {
	return voucher.Line{Summary: "t", SubjectCode: code, Debit: debit, Credit: credit}
}

func TestAggregatePrefixRollUp(t *testing.T) {
	vouchers := []voucher.Voucher{
		approved(dated(2025, 11, 5), line("222101", 0, 130000), line("1001", 130000, 0)),
		approved(dated(2025, 11, 9), line("222102", 30000, 0), line("1001", 0, 30000)),
		approved(dated(2025, 12, 1), line("222101", 0, 99999), line("1001", 99999, 0)),
	}
	b := Aggregate(vouchers, "2221", "2025-11", subject.DirectionCredit)
	require.Equal(t, int64(30000), b.DebitTotal)
	require.Equal(t, int64(130000), b.CreditTotal)
	require.Equal(t, int64(100000), b.Net)

	// Exact-code query only sees its own lines.
	b = Aggregate(vouchers, "222102", "2025-11", subject.DirectionCredit)
	require.Equal(t, int64(30000), b.DebitTotal)
	require.Equal(t, int64(0), b.CreditTotal)
	require.Equal(t, int64(-30000), b.Net)
}

func TestAggregateDirectionConventions(t *testing.T) {
	vouchers := []voucher.Voucher{
		approved(dated(2025, 11, 5), line("1001", 50000, 0), line("6001", 0, 50000)),
	}
	debitNormal := Aggregate(vouchers, "1001", "2025-11", subject.DirectionDebit)
	require.Equal(t, int64(50000), debitNormal.Net)

	creditNormal := Aggregate(vouchers, "6001", "2025-11", subject.DirectionCredit)
	require.Equal(t, int64(50000), creditNormal.Net)
}

func TestAggregateEligibility(t *testing.T) {
	draft := voucher.Voucher{BookID: 1, Date: dated(2025, 11, 5), Status: voucher.StatusDraft, Origin: voucher.OriginUserEntered,
		Lines: []voucher.Line{line("1001", 100, 0), line("6001", 0, 100)}}
	systemDraft := voucher.Voucher{BookID: 1, Date: dated(2025, 11, 6), Status: voucher.StatusDraft, Origin: voucher.OriginSystemGenerated, ClosingKind: voucher.KindCost,
		Lines: []voucher.Line{line("6401", 200, 0), line("1405", 0, 200)}}

	require.Equal(t, int64(0), Aggregate([]voucher.Voucher{draft}, "1001", "2025-11", subject.DirectionDebit).DebitTotal)
	// System-generated vouchers are trusted regardless of status.
	require.Equal(t, int64(200), Aggregate([]voucher.Voucher{systemDraft}, "6401", "2025-11", subject.DirectionDebit).DebitTotal)
}

func TestAggregateDeterministicAndReDerivable(t *testing.T) {
	base := []voucher.Voucher{
		approved(dated(2025, 11, 5), line("6001", 0, 7000000), line("1001", 7000000, 0)),
	}
	before := Aggregate(base, "6001", "2025-11", subject.DirectionCredit)
	again := Aggregate(base, "6001", "2025-11", subject.DirectionCredit)
	require.Equal(t, before, again)

	extra := approved(dated(2025, 11, 20), line("6001", 0, 3000000), line("1001", 3000000, 0))
	withExtra := Aggregate(append(append([]voucher.Voucher{}, base...), extra), "6001", "2025-11", subject.DirectionCredit)
	require.Equal(t, before.Net+3000000, withExtra.Net)

	// Removing the voucher restores the prior balance.
	restored := Aggregate(base, "6001", "2025-11", subject.DirectionCredit)
	require.Equal(t, before, restored)
}

func TestYearToDateProfit(t *testing.T) {
	subjects := []subject.Subject{
		{Code: "6001", Name: "Main revenue", Category: subject.CategoryProfitAndLoss, Direction: subject.DirectionCredit},
		{Code: "6401", Name: "Cost of sales", Category: subject.CategoryProfitAndLoss, Direction: subject.DirectionDebit},
		{Code: "1001", Name: "Cash", Category: subject.CategoryAsset, Direction: subject.DirectionDebit},
	}
	vouchers := []voucher.Voucher{
		approved(dated(2025, 10, 5), line("1001", 10000000, 0), line("6001", 0, 10000000)),
		approved(dated(2025, 11, 8), line("6401", 8000000, 0), line("1001", 0, 8000000)),
	}
	require.Equal(t, int64(2000000), YearToDateProfit(vouchers, subjects, "2025-01", "2025-11"))

	// A prior profit-transfer voucher must not disturb the figure.
	transfer := voucher.Voucher{BookID: 1, Date: dated(2025, 10, 31), Status: voucher.StatusApproved, Origin: voucher.OriginSystemGenerated, ClosingKind: voucher.KindProfit,
		Lines: []voucher.Line{line("6001", 10000000, 0), line("4103", 0, 10000000)}}
	require.Equal(t, int64(2000000), YearToDateProfit(append(vouchers, transfer), subjects, "2025-01", "2025-11"))
}

func TestPeriodNetExcludesProfitTransfers(t *testing.T) {
	subj := subject.Subject{Code: "6001", Category: subject.CategoryProfitAndLoss, Direction: subject.DirectionCredit}
	vouchers := []voucher.Voucher{
		approved(dated(2025, 11, 5), line("6001", 0, 500000), line("1001", 500000, 0)),
		{BookID: 1, Date: dated(2025, 11, 30), Status: voucher.StatusApproved, Origin: voucher.OriginSystemGenerated, ClosingKind: voucher.KindProfit,
			Lines: []voucher.Line{line("6001", 500000, 0), line("4103", 0, 500000)}},
	}
	require.Equal(t, int64(500000), PeriodNet(vouchers, subj, "2025-11"))
}
