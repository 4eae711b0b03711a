package closing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/voucher"
)

// Default subject codes per the small-business chart of accounts. Every code
// can be overridden through the rule config.
const (
	DefaultRevenueCode        = "6001"
	DefaultCostCode           = "6401"
	DefaultInventoryCode      = "1405"
	DefaultOutputTaxCode      = "22210102"
	DefaultInputTaxCode       = "22210101"
	DefaultVATTransferOutCode = "22210103"
	DefaultUnpaidVATCode      = "222102"
	DefaultVATPayableCode     = "222101"
	DefaultSurtaxExpenseCode  = "6403"
	DefaultCityTaxCode        = "222103"
	DefaultEduTaxCode         = "222104"
	DefaultLocalEduTaxCode    = "222105"
	DefaultIncomeTaxExpense   = "6801"
	DefaultIncomeTaxPayable   = "222106"
	DefaultProfitCode         = "4103"
	DefaultRetainedCode       = "410415"
)

// Draft is a generator's output: a balanced line set ready for the voucher
// invariant engine, tagged with its closing kind.
type Draft struct {
	Kind    string
	Summary string
	Lines   []voucher.Line
}

// Card is one closing task on the period checklist.
type Card struct {
	Kind      string
	Label     string
	Generated bool
	VoucherID int64
}

// Template defines a custom transfer: one debit and one credit subject, with
// the amount sourced from a subject's period balance or entered manually.
type Template struct {
	ID         int64
	BookID     int64
	Name       string
	DebitCode  string
	CreditCode string
	SourceCode string // subject whose period balance supplies the amount; empty = manual
}

// Kind returns the closing kind tag for vouchers generated from the template.
func (t Template) Kind() string {
	return fmt.Sprintf("%s%d", voucher.KindTemplatePrefix, t.ID)
}

// RuleConfig carries the editable knobs a caller may adjust per generation.
// Zero-valued rates fall back to nothing; zero-valued codes fall back to the
// defaults above.
type RuleConfig struct {
	TransferPercent decimal.Decimal // cost transfer, e.g. 0.8 for 80%
	TaxRate         decimal.Decimal // simplified VAT
	CityRate        decimal.Decimal
	EduRate         decimal.Decimal
	LocalEduRate    decimal.Decimal
	IncomeTaxRate   decimal.Decimal
	ManualAmount    int64 // template transfers with manual source
	TemplateID      int64

	RevenueCode        string
	CostCode           string
	InventoryCode      string
	OutputTaxCode      string
	InputTaxCode       string
	VATTransferOutCode string
	UnpaidVATCode      string
	VATPayableCode     string
	SurtaxExpenseCode  string
	CityTaxCode        string
	EduTaxCode         string
	LocalEduTaxCode    string
	IncomeTaxExpense   string
	IncomeTaxPayable   string
	ProfitCode         string
	RetainedCode       string
}

func fallback(code, def string) string {
	if strings.TrimSpace(code) == "" {
		return def
	}
	return code
}

var (
	// ErrNothingToTransfer indicates a zero-amount closing attempt; reported,
	// not fatal.
	ErrNothingToTransfer = errors.New("closing: nothing to transfer")
	// ErrUnknownKind indicates an unrecognised closing kind.
	ErrUnknownKind = errors.New("closing: unknown closing kind")
	// ErrNotCurrentPeriod indicates close was requested for a period other
	// than the book's current one.
	ErrNotCurrentPeriod = errors.New("closing: period is not the book's current period")
	// ErrNotLastClosed indicates reverse-close was requested below the
	// watermark.
	ErrNotLastClosed = errors.New("closing: period is not the last closed period")
	// ErrNotFiscalYearEnd indicates a year-end transfer outside the fiscal
	// year-end period.
	ErrNotFiscalYearEnd = errors.New("closing: year-end transfer only applies to the fiscal year-end period")
	// ErrReverseIncomplete indicates reverse-close failed on one or more
	// vouchers; partial completion is not success.
	ErrReverseIncomplete = errors.New("closing: reverse-close incomplete")
	// ErrChecklist is the errors.Is target for ChecklistError.
	ErrChecklist = errors.New("closing: checklist not satisfied")
)

// ChecklistError itemizes exactly which closing-gate checks failed so the
// caller can present each one.
type ChecklistError struct {
	Items []string
}

func (e *ChecklistError) Error() string {
	return "closing: checklist not satisfied: " + strings.Join(e.Items, "; ")
}

// Is makes errors.Is(err, ErrChecklist) match.
func (e *ChecklistError) Is(target error) bool {
	return target == ErrChecklist
}
