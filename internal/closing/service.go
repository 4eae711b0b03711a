package closing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ledgerline/ledgerline/internal/book"
	"github.com/ledgerline/ledgerline/internal/ledger"
	"github.com/ledgerline/ledgerline/internal/shared"
	"github.com/ledgerline/ledgerline/internal/subject"
	"github.com/ledgerline/ledgerline/internal/voucher"
)

// VoucherSource supplies vouchers with lines; period "" means all.
type VoucherSource interface {
	ListVouchers(ctx context.Context, bookID int64, period string) ([]voucher.Voucher, error)
}

// SubjectSource supplies the chart of accounts.
type SubjectSource interface {
	List(ctx context.Context, bookID int64) ([]subject.Subject, error)
}

// BookStore reads and advances the book's period cursor.
type BookStore interface {
	Get(ctx context.Context, bookID int64) (book.AccountBook, error)
	SetPeriods(ctx context.Context, bookID int64, currentPeriod, lastClosedPeriod string) error
}

// TemplateStore supplies custom transfer templates.
type TemplateStore interface {
	ListTemplates(ctx context.Context, bookID int64) ([]Template, error)
	GetTemplate(ctx context.Context, bookID, templateID int64) (Template, error)
}

// VoucherCreator persists generated drafts through the voucher engine so the
// invariant checks, duplicate guard, and numbering all apply.
type VoucherCreator interface {
	Create(ctx context.Context, in voucher.CreateInput) (voucher.Voucher, error)
}

// AuditPort records closing events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// SystemMaker is recorded on synthesized closing vouchers. Trust decisions
// branch on the voucher's origin tag, never on this string.
const SystemMaker = "system"

// Service drives closing-voucher generation and the period state machine.
type Service struct {
	vouchers    VoucherSource
	subjects    SubjectSource
	books       BookStore
	templates   TemplateStore
	creator     VoucherCreator
	voucherRepo voucher.RepositoryPort
	audit       AuditPort
	locks       *shared.BookMutex
	bumper      voucher.CacheBumper
	now         func() time.Time
}

// NewService constructs the closing service.
func NewService(
	vouchers VoucherSource,
	subjects SubjectSource,
	books BookStore,
	templates TemplateStore,
	creator VoucherCreator,
	voucherRepo voucher.RepositoryPort,
	audit AuditPort,
	locks *shared.BookMutex,
) *Service {
	return &Service{
		vouchers:    vouchers,
		subjects:    subjects,
		books:       books,
		templates:   templates,
		creator:     creator,
		voucherRepo: voucherRepo,
		audit:       audit,
		locks:       locks,
		now:         time.Now,
	}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithCacheBumper attaches a balance-cache invalidator for the reverse-close
// path, which deletes vouchers without going through the voucher service.
func (s *Service) WithCacheBumper(bumper voucher.CacheBumper) {
	s.bumper = bumper
}

// GenerateInput selects the closing operation to synthesize.
type GenerateInput struct {
	BookID int64
	Period string
	Kind   string
	Rule   RuleConfig
}

// Generate aggregates the period figures for the requested kind, builds the
// draft, and persists it as an approved system voucher dated on the period's
// last day. Generation for one (book, period) is serialised through the book
// mutex to preserve the at-most-one-voucher invariant.
func (s *Service) Generate(ctx context.Context, in GenerateInput) (voucher.Voucher, error) {
	if _, _, err := book.ParsePeriod(in.Period); err != nil {
		return voucher.Voucher{}, err
	}
	bk, err := s.books.Get(ctx, in.BookID)
	if err != nil {
		return voucher.Voucher{}, err
	}
	release, err := s.locks.Acquire(ctx, shared.ClosingLockKey(in.BookID, in.Period))
	if err != nil {
		return voucher.Voucher{}, err
	}
	defer release()

	draft, err := s.buildDraft(ctx, bk, in)
	if err != nil {
		return voucher.Voucher{}, err
	}
	created, err := s.creator.Create(ctx, voucher.CreateInput{
		BookID:      in.BookID,
		Date:        periodEnd(in.Period),
		Type:        "J",
		Maker:       SystemMaker,
		Origin:      voucher.OriginSystemGenerated,
		ClosingKind: draft.Kind,
		Status:      voucher.StatusApproved,
		Auditor:     SystemMaker,
		Lines:       draft.Lines,
	})
	if err != nil {
		return voucher.Voucher{}, err
	}
	s.record(ctx, in.BookID, "closing.generate", created.ID, map[string]any{
		"period": in.Period,
		"kind":   draft.Kind,
	})
	return created, nil
}

func (s *Service) buildDraft(ctx context.Context, bk book.AccountBook, in GenerateInput) (Draft, error) {
	vouchers, err := s.vouchers.ListVouchers(ctx, in.BookID, "")
	if err != nil {
		return Draft{}, err
	}
	subjects, err := s.subjects.List(ctx, in.BookID)
	if err != nil {
		return Draft{}, err
	}
	cfg := in.Rule
	switch in.Kind {
	case voucher.KindCost:
		revenue := ledger.Aggregate(vouchers, fallback(cfg.RevenueCode, DefaultRevenueCode), in.Period, subject.DirectionCredit).Net
		return CostTransfer(cfg, revenue)
	case voucher.KindVATTransfer:
		output := ledger.Aggregate(vouchers, fallback(cfg.OutputTaxCode, DefaultOutputTaxCode), in.Period, subject.DirectionCredit).Net
		input := ledger.Aggregate(vouchers, fallback(cfg.InputTaxCode, DefaultInputTaxCode), in.Period, subject.DirectionDebit).Net
		return VATTransfer(cfg, output, input)
	case voucher.KindVATSimple:
		revenue := ledger.Aggregate(vouchers, fallback(cfg.RevenueCode, DefaultRevenueCode), in.Period, subject.DirectionCredit).Net
		return SimpleVAT(cfg, revenue)
	case voucher.KindSurtax:
		return SurtaxAccrual(cfg, vatBase(vouchers, in.Period))
	case voucher.KindIncomeTax:
		profit := ledger.YearToDateProfit(vouchers, subjects, bk.FiscalYearStart(in.Period), in.Period)
		return IncomeTaxAccrual(cfg, profit)
	case voucher.KindProfit:
		return ProfitTransfer(cfg, profitBalances(vouchers, subjects, in.Period))
	case voucher.KindYearTransfer:
		if !bk.FiscalYearEnd(in.Period) {
			return Draft{}, ErrNotFiscalYearEnd
		}
		profitCode := fallback(cfg.ProfitCode, DefaultProfitCode)
		net := ledger.AggregateRange(vouchers, profitCode, bk.FiscalYearStart(in.Period), in.Period, subject.DirectionCredit).Net
		return YearEndTransfer(cfg, net)
	default:
		if strings.HasPrefix(in.Kind, voucher.KindTemplatePrefix) || cfg.TemplateID != 0 {
			return s.templateDraft(ctx, vouchers, in)
		}
		return Draft{}, ErrUnknownKind
	}
}

func (s *Service) templateDraft(ctx context.Context, vouchers []voucher.Voucher, in GenerateInput) (Draft, error) {
	templateID := in.Rule.TemplateID
	if templateID == 0 {
		if _, err := fmt.Sscanf(in.Kind, voucher.KindTemplatePrefix+"%d", &templateID); err != nil {
			return Draft{}, ErrUnknownKind
		}
	}
	tmpl, err := s.templates.GetTemplate(ctx, in.BookID, templateID)
	if err != nil {
		return Draft{}, err
	}
	amount := in.Rule.ManualAmount
	if tmpl.SourceCode != "" {
		subjects, err := s.subjects.List(ctx, in.BookID)
		if err != nil {
			return Draft{}, err
		}
		subj, ok := subject.Map(subjects)[tmpl.SourceCode]
		if !ok {
			return Draft{}, subject.ErrNotFound
		}
		amount = ledger.Aggregate(vouchers, subj.Code, in.Period, subj.Direction).Net
	}
	return TemplateTransfer(tmpl, amount)
}

// vatBase reads the VAT amount off the period's VAT closing voucher; without
// one the surtax base is zero.
func vatBase(vouchers []voucher.Voucher, period string) int64 {
	for _, v := range vouchers {
		if v.Period() != period {
			continue
		}
		if v.ClosingKind == voucher.KindVATTransfer || v.ClosingKind == voucher.KindVATSimple {
			return v.DebitTotal()
		}
	}
	return 0
}

func profitBalances(vouchers []voucher.Voucher, subjects []subject.Subject, period string) []SubjectNet {
	parents := make(map[string]bool)
	for _, subj := range subjects {
		if subj.ParentCode != "" {
			parents[subj.ParentCode] = true
		}
	}
	var out []SubjectNet
	for _, subj := range subjects {
		if subj.Category != subject.CategoryProfitAndLoss || parents[subj.Code] {
			continue
		}
		out = append(out, SubjectNet{Subject: subj, Net: ledger.PeriodNet(vouchers, subj, period)})
	}
	return out
}

// Cards lists the period's closing checklist: the standard cards implied by
// the book's tax type plus every custom template, each flagged with whether
// its voucher exists.
func (s *Service) Cards(ctx context.Context, bookID int64, period string) ([]Card, error) {
	bk, err := s.books.Get(ctx, bookID)
	if err != nil {
		return nil, err
	}
	templates, err := s.templates.ListTemplates(ctx, bookID)
	if err != nil {
		return nil, err
	}
	vouchers, err := s.vouchers.ListVouchers(ctx, bookID, period)
	if err != nil {
		return nil, err
	}
	generated := make(map[string]int64)
	for _, v := range vouchers {
		if v.IsClosing() {
			generated[v.ClosingKind] = v.ID
		}
	}
	cards := standardCards(bk)
	for _, tmpl := range templates {
		cards = append(cards, Card{Kind: tmpl.Kind(), Label: tmpl.Name})
	}
	for i := range cards {
		if id, ok := generated[cards[i].Kind]; ok {
			cards[i].Generated = true
			cards[i].VoucherID = id
		}
	}
	return cards, nil
}

func standardCards(bk book.AccountBook) []Card {
	cards := []Card{{Kind: voucher.KindCost, Label: "Cost of sales transfer"}}
	if bk.TaxType == book.TaxTypeSmallScale {
		cards = append(cards, Card{Kind: voucher.KindVATSimple, Label: "VAT accrual (small-scale)"})
	} else {
		cards = append(cards, Card{Kind: voucher.KindVATTransfer, Label: "VAT transfer-out"})
	}
	cards = append(cards,
		Card{Kind: voucher.KindSurtax, Label: "Surtax accrual"},
		Card{Kind: voucher.KindIncomeTax, Label: "Income tax accrual"},
	)
	return cards
}

// AttemptClose validates the closing-gate checklist and, when fully
// satisfied, freezes the period and advances the book's current period.
// Failures are itemized so the caller sees exactly which check is unmet.
func (s *Service) AttemptClose(ctx context.Context, bookID int64, period string) error {
	bk, err := s.books.Get(ctx, bookID)
	if err != nil {
		return err
	}
	if bk.CurrentPeriod != period {
		return ErrNotCurrentPeriod
	}
	release, err := s.locks.Acquire(ctx, shared.ClosingLockKey(bookID, period))
	if err != nil {
		return err
	}
	defer release()

	cards, err := s.Cards(ctx, bookID, period)
	if err != nil {
		return err
	}
	vouchers, err := s.vouchers.ListVouchers(ctx, bookID, period)
	if err != nil {
		return err
	}
	var items []string
	for _, card := range cards {
		if !card.Generated {
			items = append(items, fmt.Sprintf("closing card %q has no generated voucher", card.Label))
		}
	}
	if !hasClosingKind(vouchers, voucher.KindProfit) {
		items = append(items, "profit-and-loss transfer voucher missing")
	}
	if bk.FiscalYearEnd(period) && !hasClosingKind(vouchers, voucher.KindYearTransfer) {
		items = append(items, "year-end retained-earnings transfer voucher missing")
	}
	for _, v := range vouchers {
		if v.Status == voucher.StatusDraft {
			items = append(items, fmt.Sprintf("voucher %s-%d is still in draft", v.Type, v.SequenceNo))
		}
	}
	if len(items) > 0 {
		return &ChecklistError{Items: items}
	}

	next, err := book.NextPeriod(period)
	if err != nil {
		return err
	}
	if err := s.books.SetPeriods(ctx, bookID, next, period); err != nil {
		return err
	}
	s.record(ctx, bookID, "period.close", bookID, map[string]any{"period": period})
	return nil
}

// ReverseClose reopens the most recently closed period: every closing-tagged
// voucher is un-approved then deleted, and the watermark drops back one
// period. The deletion loop is best-effort; any failure leaves the period
// closed and is reported per voucher so the caller can retry.
func (s *Service) ReverseClose(ctx context.Context, bookID int64, period string) (shared.BatchResult, error) {
	bk, err := s.books.Get(ctx, bookID)
	if err != nil {
		return shared.BatchResult{}, err
	}
	if bk.LastClosedPeriod != period {
		return shared.BatchResult{}, ErrNotLastClosed
	}
	release, err := s.locks.Acquire(ctx, shared.ClosingLockKey(bookID, period))
	if err != nil {
		return shared.BatchResult{}, err
	}
	defer release()

	vouchers, err := s.vouchers.ListVouchers(ctx, bookID, period)
	if err != nil {
		return shared.BatchResult{}, err
	}
	var result shared.BatchResult
	for _, v := range vouchers {
		if !v.IsClosing() {
			continue
		}
		id := v.ID
		status := v.Status
		err := s.voucherRepo.WithTx(ctx, func(ctx context.Context, tx voucher.TxRepository) error {
			if status == voucher.StatusApproved {
				if err := tx.UpdateStatus(ctx, id, voucher.StatusDraft, ""); err != nil {
					return err
				}
			}
			return tx.DeleteVoucher(ctx, id)
		})
		if err != nil {
			result.Failed = append(result.Failed, shared.BatchItemError{ID: id, Err: err})
			continue
		}
		result.Succeeded = append(result.Succeeded, id)
	}
	if s.bumper != nil && len(result.Succeeded) > 0 {
		_ = s.bumper.Bump(ctx, bookID)
	}
	if !result.OK() {
		return result, ErrReverseIncomplete
	}

	watermark := ""
	if period != bk.OpeningPeriod {
		prev, err := book.PrevPeriod(period)
		if err != nil {
			return result, err
		}
		if prev >= bk.OpeningPeriod {
			watermark = prev
		}
	}
	if err := s.books.SetPeriods(ctx, bookID, period, watermark); err != nil {
		return result, err
	}
	s.record(ctx, bookID, "period.reverse_close", bookID, map[string]any{"period": period})
	return result, nil
}

func periodEnd(period string) time.Time {
	year, month, _ := book.ParsePeriod(period)
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC)
}

func hasClosingKind(vouchers []voucher.Voucher, kind string) bool {
	for _, v := range vouchers {
		if v.ClosingKind == kind {
			return true
		}
	}
	return false
}

func (s *Service) record(ctx context.Context, bookID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		BookID:   bookID,
		Action:   action,
		Entity:   "period",
		EntityID: fmt.Sprintf("%d", entityID),
		Meta:     meta,
		At:       s.now(),
	})
}
