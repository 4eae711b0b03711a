package closing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/subject"
	"github.com/ledgerline/ledgerline/internal/voucher"
)

func rate(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func requireBalanced(t *testing.T, d Draft) {
	t.Helper()
	var debit, credit int64
	for _, line := range d.Lines {
		debit += line.Debit
		credit += line.Credit
	}
	require.Equal(t, debit, credit, "draft must balance")
	require.Positive(t, debit)
	require.GreaterOrEqual(t, len(d.Lines), 2)
}

func TestCostTransferExample(t *testing.T) {
	// Period revenue 100,000.00 at 80% transfer: debit 6401 / credit 1405
	// for 80,000.00.
	d, err := CostTransfer(RuleConfig{TransferPercent: rate("0.8")}, 10000000)
	require.NoError(t, err)
	requireBalanced(t, d)
	require.Equal(t, voucher.KindCost, d.Kind)
	require.Equal(t, "6401", d.Lines[0].SubjectCode)
	require.Equal(t, int64(8000000), d.Lines[0].Debit)
	require.Equal(t, "1405", d.Lines[1].SubjectCode)
	require.Equal(t, int64(8000000), d.Lines[1].Credit)
}

func TestCostTransferZeroRevenueRefused(t *testing.T) {
	_, err := CostTransfer(RuleConfig{TransferPercent: rate("0.8")}, 0)
	require.ErrorIs(t, err, ErrNothingToTransfer)
}

func TestVATTransfer(t *testing.T) {
	d, err := VATTransfer(RuleConfig{}, 130000, 50000)
	require.NoError(t, err)
	requireBalanced(t, d)
	require.Equal(t, int64(80000), d.Lines[0].Debit)
	require.Equal(t, DefaultVATTransferOutCode, d.Lines[0].SubjectCode)
	require.Equal(t, DefaultUnpaidVATCode, d.Lines[1].SubjectCode)

	// Input exceeding output leaves nothing to transfer.
	_, err = VATTransfer(RuleConfig{}, 50000, 130000)
	require.ErrorIs(t, err, ErrNothingToTransfer)
}

func TestSimpleVAT(t *testing.T) {
	d, err := SimpleVAT(RuleConfig{TaxRate: rate("0.03")}, 10000000)
	require.NoError(t, err)
	requireBalanced(t, d)
	require.Equal(t, voucher.KindVATSimple, d.Kind)
	require.Equal(t, int64(300000), d.Lines[0].Debit)
	require.Equal(t, DefaultVATPayableCode, d.Lines[0].SubjectCode)
	require.Equal(t, DefaultUnpaidVATCode, d.Lines[1].SubjectCode)
}

func TestSurtaxAccrual(t *testing.T) {
	cfg := RuleConfig{CityRate: rate("0.07"), EduRate: rate("0.03"), LocalEduRate: rate("0.02")}
	d, err := SurtaxAccrual(cfg, 100000)
	require.NoError(t, err)
	requireBalanced(t, d)
	require.Len(t, d.Lines, 4)
	require.Equal(t, int64(12000), d.Lines[0].Debit)
	require.Equal(t, DefaultSurtaxExpenseCode, d.Lines[0].SubjectCode)
	require.Equal(t, int64(7000), d.Lines[1].Credit)
	require.Equal(t, int64(3000), d.Lines[2].Credit)
	require.Equal(t, int64(2000), d.Lines[3].Credit)
}

func TestSurtaxAccrualSkipsZeroRates(t *testing.T) {
	cfg := RuleConfig{CityRate: rate("0.07")}
	d, err := SurtaxAccrual(cfg, 100000)
	require.NoError(t, err)
	requireBalanced(t, d)
	require.Len(t, d.Lines, 2)

	_, err = SurtaxAccrual(RuleConfig{}, 100000)
	require.ErrorIs(t, err, ErrNothingToTransfer)
}

func TestIncomeTaxAccrual(t *testing.T) {
	d, err := IncomeTaxAccrual(RuleConfig{IncomeTaxRate: rate("0.25")}, 2000000)
	require.NoError(t, err)
	requireBalanced(t, d)
	require.Equal(t, int64(500000), d.Lines[0].Debit)
	require.Equal(t, DefaultIncomeTaxExpense, d.Lines[0].SubjectCode)
	require.Equal(t, DefaultIncomeTaxPayable, d.Lines[1].SubjectCode)

	// Year-to-date losses accrue nothing.
	_, err = IncomeTaxAccrual(RuleConfig{IncomeTaxRate: rate("0.25")}, -100)
	require.ErrorIs(t, err, ErrNothingToTransfer)
}

func TestTemplateTransfer(t *testing.T) {
	tmpl := Template{ID: 7, Name: "Depreciation", DebitCode: "6602", CreditCode: "1602"}
	d, err := TemplateTransfer(tmpl, 45000)
	require.NoError(t, err)
	requireBalanced(t, d)
	require.Equal(t, "template:7", d.Kind)

	_, err = TemplateTransfer(tmpl, 0)
	require.ErrorIs(t, err, ErrNothingToTransfer)
}

func plSubject(code string, dir subject.Direction) subject.Subject {
	return subject.Subject{Code: code, Name: code, Category: subject.CategoryProfitAndLoss, Direction: dir}
}

func TestProfitTransferZeroesEachSubject(t *testing.T) {
	balances := []SubjectNet{
		{Subject: plSubject("6001", subject.DirectionCredit), Net: 10000000},
		{Subject: plSubject("6401", subject.DirectionDebit), Net: 8000000},
		{Subject: plSubject("6403", subject.DirectionDebit), Net: 0},
	}
	d, err := ProfitTransfer(RuleConfig{}, balances)
	require.NoError(t, err)
	requireBalanced(t, d)
	require.Equal(t, voucher.KindProfit, d.Kind)
	require.Len(t, d.Lines, 3)

	// Revenue zeroed with a debit, expense with a credit, remainder credited
	// to current-year profit.
	require.Equal(t, int64(10000000), d.Lines[0].Debit)
	require.Equal(t, "6001", d.Lines[0].SubjectCode)
	require.Equal(t, int64(8000000), d.Lines[1].Credit)
	require.Equal(t, "6401", d.Lines[1].SubjectCode)
	require.Equal(t, int64(2000000), d.Lines[2].Credit)
	require.Equal(t, DefaultProfitCode, d.Lines[2].SubjectCode)
}

func TestProfitTransferLossDebitsProfitSubject(t *testing.T) {
	balances := []SubjectNet{
		{Subject: plSubject("6001", subject.DirectionCredit), Net: 100000},
		{Subject: plSubject("6401", subject.DirectionDebit), Net: 250000},
	}
	d, err := ProfitTransfer(RuleConfig{}, balances)
	require.NoError(t, err)
	requireBalanced(t, d)
	last := d.Lines[len(d.Lines)-1]
	require.Equal(t, DefaultProfitCode, last.SubjectCode)
	require.Equal(t, int64(150000), last.Debit)
}

func TestProfitTransferAbnormalBalance(t *testing.T) {
	// Revenue with a net debit balance is zeroed from the credit side.
	balances := []SubjectNet{
		{Subject: plSubject("6001", subject.DirectionCredit), Net: -5000},
		{Subject: plSubject("6401", subject.DirectionDebit), Net: 20000},
	}
	d, err := ProfitTransfer(RuleConfig{}, balances)
	require.NoError(t, err)
	requireBalanced(t, d)
	require.Equal(t, int64(5000), d.Lines[0].Credit)
	require.Equal(t, "6001", d.Lines[0].SubjectCode)
}

func TestProfitTransferNothingToDo(t *testing.T) {
	balances := []SubjectNet{
		{Subject: plSubject("6001", subject.DirectionCredit), Net: 0},
	}
	_, err := ProfitTransfer(RuleConfig{}, balances)
	require.ErrorIs(t, err, ErrNothingToTransfer)
}

func TestYearEndTransfer(t *testing.T) {
	d, err := YearEndTransfer(RuleConfig{}, 2000000)
	require.NoError(t, err)
	requireBalanced(t, d)
	require.Equal(t, DefaultProfitCode, d.Lines[0].SubjectCode)
	require.Equal(t, int64(2000000), d.Lines[0].Debit)
	require.Equal(t, DefaultRetainedCode, d.Lines[1].SubjectCode)

	loss, err := YearEndTransfer(RuleConfig{}, -500000)
	require.NoError(t, err)
	requireBalanced(t, loss)
	require.Equal(t, DefaultRetainedCode, loss.Lines[0].SubjectCode)
	require.Equal(t, int64(500000), loss.Lines[0].Debit)

	_, err = YearEndTransfer(RuleConfig{}, 0)
	require.ErrorIs(t, err, ErrNothingToTransfer)
}
