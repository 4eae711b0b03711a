package closing

import (
	"fmt"

	"github.com/ledgerline/ledgerline/internal/money"
	"github.com/ledgerline/ledgerline/internal/subject"
	"github.com/ledgerline/ledgerline/internal/voucher"
)

// The generators are pure: they consume aggregated figures plus a rule
// config and emit a balanced draft. Validation against the voucher invariant
// engine happens before any draft is offered for persistence.

// CostTransfer books cost of sales as a percentage of period revenue:
// debit cost of sales, credit inventory.
func CostTransfer(cfg RuleConfig, periodRevenue int64) (Draft, error) {
	amount := money.ApplyRate(periodRevenue, cfg.TransferPercent)
	if amount <= 0 {
		return Draft{}, ErrNothingToTransfer
	}
	summary := "Carry forward cost of sales"
	return Draft{
		Kind:    voucher.KindCost,
		Summary: summary,
		Lines: []voucher.Line{
			{Summary: summary, SubjectCode: fallback(cfg.CostCode, DefaultCostCode), Debit: amount},
			{Summary: summary, SubjectCode: fallback(cfg.InventoryCode, DefaultInventoryCode), Credit: amount},
		},
	}, nil
}

// VATTransfer moves the period's net output VAT into the unpaid-VAT account
// for a general taxpayer: amount = max(0, outputTax - inputTax).
func VATTransfer(cfg RuleConfig, outputTax, inputTax int64) (Draft, error) {
	amount := outputTax - inputTax
	if amount <= 0 {
		return Draft{}, ErrNothingToTransfer
	}
	summary := "Transfer out unpaid VAT"
	return Draft{
		Kind:    voucher.KindVATTransfer,
		Summary: summary,
		Lines: []voucher.Line{
			{Summary: summary, SubjectCode: fallback(cfg.VATTransferOutCode, DefaultVATTransferOutCode), Debit: amount},
			{Summary: summary, SubjectCode: fallback(cfg.UnpaidVATCode, DefaultUnpaidVATCode), Credit: amount},
		},
	}, nil
}

// SimpleVAT accrues VAT for a small-scale taxpayer directly from period
// revenue. It mirrors the general-taxpayer transfer structure: debit VAT
// payable, credit unpaid VAT.
func SimpleVAT(cfg RuleConfig, periodRevenue int64) (Draft, error) {
	amount := money.ApplyRate(periodRevenue, cfg.TaxRate)
	if amount <= 0 {
		return Draft{}, ErrNothingToTransfer
	}
	summary := "Accrue VAT on period revenue"
	return Draft{
		Kind:    voucher.KindVATSimple,
		Summary: summary,
		Lines: []voucher.Line{
			{Summary: summary, SubjectCode: fallback(cfg.VATPayableCode, DefaultVATPayableCode), Debit: amount},
			{Summary: summary, SubjectCode: fallback(cfg.UnpaidVATCode, DefaultUnpaidVATCode), Credit: amount},
		},
	}, nil
}

// SurtaxAccrual books city maintenance, education surcharge, and local
// education surcharge on the period's VAT base: one expense debit against one
// credit per surtax liability.
func SurtaxAccrual(cfg RuleConfig, vatBase int64) (Draft, error) {
	city := money.ApplyRate(vatBase, cfg.CityRate)
	edu := money.ApplyRate(vatBase, cfg.EduRate)
	localEdu := money.ApplyRate(vatBase, cfg.LocalEduRate)
	total := city + edu + localEdu
	if total <= 0 {
		return Draft{}, ErrNothingToTransfer
	}
	summary := "Accrue taxes and surcharges"
	lines := []voucher.Line{
		{Summary: summary, SubjectCode: fallback(cfg.SurtaxExpenseCode, DefaultSurtaxExpenseCode), Debit: total},
	}
	if city > 0 {
		lines = append(lines, voucher.Line{Summary: summary, SubjectCode: fallback(cfg.CityTaxCode, DefaultCityTaxCode), Credit: city})
	}
	if edu > 0 {
		lines = append(lines, voucher.Line{Summary: summary, SubjectCode: fallback(cfg.EduTaxCode, DefaultEduTaxCode), Credit: edu})
	}
	if localEdu > 0 {
		lines = append(lines, voucher.Line{Summary: summary, SubjectCode: fallback(cfg.LocalEduTaxCode, DefaultLocalEduTaxCode), Credit: localEdu})
	}
	return Draft{Kind: voucher.KindSurtax, Summary: summary, Lines: lines}, nil
}

// IncomeTaxAccrual books income tax on year-to-date profit: debit income tax
// expense, credit income tax payable.
func IncomeTaxAccrual(cfg RuleConfig, yearToDateProfit int64) (Draft, error) {
	amount := money.ApplyRate(yearToDateProfit, cfg.IncomeTaxRate)
	if amount <= 0 {
		return Draft{}, ErrNothingToTransfer
	}
	summary := "Accrue income tax"
	return Draft{
		Kind:    voucher.KindIncomeTax,
		Summary: summary,
		Lines: []voucher.Line{
			{Summary: summary, SubjectCode: fallback(cfg.IncomeTaxExpense, DefaultIncomeTaxExpense), Debit: amount},
			{Summary: summary, SubjectCode: fallback(cfg.IncomeTaxPayable, DefaultIncomeTaxPayable), Credit: amount},
		},
	}, nil
}

// TemplateTransfer produces one debit/one credit line per the template
// definition, with the amount sourced from a subject balance or entered
// manually.
func TemplateTransfer(tmpl Template, amount int64) (Draft, error) {
	if amount <= 0 {
		return Draft{}, ErrNothingToTransfer
	}
	summary := fmt.Sprintf("Transfer per template %s", tmpl.Name)
	return Draft{
		Kind:    tmpl.Kind(),
		Summary: summary,
		Lines: []voucher.Line{
			{Summary: summary, SubjectCode: tmpl.DebitCode, Debit: amount},
			{Summary: summary, SubjectCode: tmpl.CreditCode, Credit: amount},
		},
	}, nil
}

// SubjectNet pairs a profit-and-loss subject with its period net balance.
type SubjectNet struct {
	Subject subject.Subject
	Net     int64
}

// ProfitTransfer zeroes every profit-and-loss subject with a nonzero period
// net and books the aggregate against the current-year-profit subject. The
// zeroing line sits opposite the subject's carried side; the single balancing
// line absorbs revenue minus expense. Refused when nothing carries a balance.
func ProfitTransfer(cfg RuleConfig, balances []SubjectNet) (Draft, error) {
	summary := "Carry forward profit and loss"
	var lines []voucher.Line
	var aggregate int64 // debit total minus credit total of the zeroing lines
	for _, b := range balances {
		if b.Net == 0 {
			continue
		}
		carriesCredit := b.Subject.Direction == subject.DirectionCredit
		net := b.Net
		if net < 0 {
			// Abnormal balance: zero it from its own normal side.
			carriesCredit = !carriesCredit
			net = -net
		}
		if carriesCredit {
			lines = append(lines, voucher.Line{Summary: summary, SubjectCode: b.Subject.Code, Debit: net})
			aggregate += net
		} else {
			lines = append(lines, voucher.Line{Summary: summary, SubjectCode: b.Subject.Code, Credit: net})
			aggregate -= net
		}
	}
	if len(lines) == 0 {
		return Draft{}, ErrNothingToTransfer
	}
	profitCode := fallback(cfg.ProfitCode, DefaultProfitCode)
	switch {
	case aggregate > 0:
		lines = append(lines, voucher.Line{Summary: summary, SubjectCode: profitCode, Credit: aggregate})
	case aggregate < 0:
		lines = append(lines, voucher.Line{Summary: summary, SubjectCode: profitCode, Debit: -aggregate})
	default:
		// Net-zero periods still need both sides to stay in balance, but a
		// zero line violates exclusivity, so the subject lines alone balance.
	}
	return Draft{Kind: voucher.KindProfit, Summary: summary, Lines: lines}, nil
}

// YearEndTransfer moves the current-year-profit balance into retained
// earnings at the fiscal year end: debit profit / credit retained earnings
// when positive, reversed when negative, refused at zero.
func YearEndTransfer(cfg RuleConfig, currentYearProfitNet int64) (Draft, error) {
	if currentYearProfitNet == 0 {
		return Draft{}, ErrNothingToTransfer
	}
	summary := "Transfer current-year profit to retained earnings"
	profitCode := fallback(cfg.ProfitCode, DefaultProfitCode)
	retainedCode := fallback(cfg.RetainedCode, DefaultRetainedCode)
	var lines []voucher.Line
	if currentYearProfitNet > 0 {
		lines = []voucher.Line{
			{Summary: summary, SubjectCode: profitCode, Debit: currentYearProfitNet},
			{Summary: summary, SubjectCode: retainedCode, Credit: currentYearProfitNet},
		}
	} else {
		lines = []voucher.Line{
			{Summary: summary, SubjectCode: retainedCode, Debit: -currentYearProfitNet},
			{Summary: summary, SubjectCode: profitCode, Credit: -currentYearProfitNet},
		}
	}
	return Draft{Kind: voucher.KindYearTransfer, Summary: summary, Lines: lines}, nil
}
