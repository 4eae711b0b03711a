package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerline/ledgerline/internal/shared"
	"github.com/ledgerline/ledgerline/internal/voucher"
)

// Store persists fund accounts and journal entries.
type Store interface {
	GetAccount(ctx context.Context, bookID, accountID int64) (FundAccount, error)
	ListAccounts(ctx context.Context, bookID int64) ([]FundAccount, error)
	GetEntry(ctx context.Context, bookID, entryID int64) (Entry, error)
	ListEntries(ctx context.Context, bookID, accountID int64) ([]Entry, error)
	InsertEntry(ctx context.Context, e Entry) (Entry, error)
	InsertPair(ctx context.Context, out, in Entry) (Entry, Entry, error)
	UpdateEntry(ctx context.Context, e Entry) error
	DeleteEntry(ctx context.Context, entryID int64) error
	LockEntries(ctx context.Context, ids []int64, voucherID int64, voucherCode string) error
}

// VoucherCreator runs generated drafts through the voucher engine so the
// invariant checks, watermark guard, and numbering all apply.
type VoucherCreator interface {
	Create(ctx context.Context, in voucher.CreateInput) (voucher.Voucher, error)
}

// AuditPort records journal events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service manages the cash/bank journal: entry CRUD under voucher locks,
// running balances, internal transfers, and voucher generation.
type Service struct {
	store   Store
	creator VoucherCreator
	audit   AuditPort
	now     func() time.Time
}

// NewService constructs the journal service.
func NewService(store Store, creator VoucherCreator, audit AuditPort) *Service {
	return &Service{store: store, creator: creator, audit: audit, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateEntry records a new journal entry.
func (s *Service) CreateEntry(ctx context.Context, in CreateEntryInput) (Entry, error) {
	if err := in.Validate(); err != nil {
		return Entry{}, err
	}
	if _, err := s.store.GetAccount(ctx, in.BookID, in.AccountID); err != nil {
		return Entry{}, err
	}
	created, err := s.store.InsertEntry(ctx, Entry{
		BookID:           in.BookID,
		AccountID:        in.AccountID,
		Date:             in.Date,
		Summary:          in.Summary,
		Income:           in.Income,
		Expense:          in.Expense,
		CounterpartyCode: in.CounterpartyCode,
	})
	if err != nil {
		return Entry{}, err
	}
	s.record(ctx, in.BookID, "journal.create", created.ID, nil)
	return created, nil
}

// UpdateEntryInput carries the mutable fields of an entry. The account is
// fixed at creation.
type UpdateEntryInput struct {
	BookID           int64
	EntryID          int64
	Date             time.Time
	Summary          string
	Income           int64
	Expense          int64
	CounterpartyCode string
}

// UpdateEntry replaces the entry's fields. Entries held by a generated
// voucher stay read-only until that voucher is deleted.
func (s *Service) UpdateEntry(ctx context.Context, in UpdateEntryInput) (Entry, error) {
	current, err := s.loadUnlocked(ctx, in.BookID, in.EntryID)
	if err != nil {
		return Entry{}, err
	}
	check := CreateEntryInput{
		BookID:    in.BookID,
		AccountID: current.AccountID,
		Date:      in.Date,
		Summary:   in.Summary,
		Income:    in.Income,
		Expense:   in.Expense,
	}
	if err := check.Validate(); err != nil {
		return Entry{}, err
	}
	current.Date = in.Date
	current.Summary = in.Summary
	current.Income = in.Income
	current.Expense = in.Expense
	current.CounterpartyCode = in.CounterpartyCode
	if err := s.store.UpdateEntry(ctx, current); err != nil {
		return Entry{}, err
	}
	s.record(ctx, in.BookID, "journal.update", current.ID, nil)
	return current, nil
}

// DeleteEntry removes an unlocked entry.
func (s *Service) DeleteEntry(ctx context.Context, bookID, entryID int64) error {
	if _, err := s.loadUnlocked(ctx, bookID, entryID); err != nil {
		return err
	}
	if err := s.store.DeleteEntry(ctx, entryID); err != nil {
		return err
	}
	s.record(ctx, bookID, "journal.delete", entryID, nil)
	return nil
}

func (s *Service) loadUnlocked(ctx context.Context, bookID, entryID int64) (Entry, error) {
	entry, err := s.store.GetEntry(ctx, bookID, entryID)
	if err != nil {
		return Entry{}, err
	}
	if entry.Locked() {
		return Entry{}, &LockedError{EntryID: entry.ID, VoucherCode: entry.VoucherCode}
	}
	return entry, nil
}

// EntryWindow restricts a listing to a date range; zero bounds are open.
type EntryWindow struct {
	From time.Time
	To   time.Time
}

// Entries lists an account's journal with running balances. The balance is
// folded over the account's full history so a windowed view still shows the
// true carried balance, then the window filter applies.
func (s *Service) Entries(ctx context.Context, bookID, accountID int64, window EntryWindow) ([]Entry, error) {
	account, err := s.store.GetAccount(ctx, bookID, accountID)
	if err != nil {
		return nil, err
	}
	entries, err := s.store.ListEntries(ctx, bookID, accountID)
	if err != nil {
		return nil, err
	}
	entries = Recompute(entries, account.OpeningBalance)
	if window.From.IsZero() && window.To.IsZero() {
		return entries, nil
	}
	var out []Entry
	for _, e := range entries {
		if !window.From.IsZero() && e.Date.Before(window.From) {
			continue
		}
		if !window.To.IsZero() && e.Date.After(window.To) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Accounts lists the book's fund accounts.
func (s *Service) Accounts(ctx context.Context, bookID int64) ([]FundAccount, error) {
	return s.store.ListAccounts(ctx, bookID)
}

// TransferInput describes an internal transfer between two fund accounts.
type TransferInput struct {
	BookID        int64
	FromAccountID int64
	ToAccountID   int64
	Date          time.Time
	Amount        int64
	Summary       string
}

// InternalTransfer atomically creates the outflow/inflow entry pair sharing
// one generated transfer number. Each side is classified against the other
// account's subject, so the pair is immediately voucher-ready.
func (s *Service) InternalTransfer(ctx context.Context, in TransferInput) (Entry, Entry, error) {
	if in.FromAccountID == in.ToAccountID {
		return Entry{}, Entry{}, ErrSameAccount
	}
	if in.Amount <= 0 {
		return Entry{}, Entry{}, ErrExclusiveAmount
	}
	from, err := s.store.GetAccount(ctx, in.BookID, in.FromAccountID)
	if err != nil {
		return Entry{}, Entry{}, err
	}
	to, err := s.store.GetAccount(ctx, in.BookID, in.ToAccountID)
	if err != nil {
		return Entry{}, Entry{}, err
	}
	transferNo := uuid.NewString()
	out := Entry{
		BookID:           in.BookID,
		AccountID:        from.ID,
		Date:             in.Date,
		Summary:          in.Summary,
		Expense:          in.Amount,
		CounterpartyCode: to.SubjectCode,
		TransferNo:       transferNo,
	}
	inflow := Entry{
		BookID:           in.BookID,
		AccountID:        to.ID,
		Date:             in.Date,
		Summary:          in.Summary,
		Income:           in.Amount,
		CounterpartyCode: from.SubjectCode,
		TransferNo:       transferNo,
	}
	out, inflow, err = s.store.InsertPair(ctx, out, inflow)
	if err != nil {
		return Entry{}, Entry{}, err
	}
	s.record(ctx, in.BookID, "journal.transfer", out.ID, map[string]any{"transfer_no": transferNo})
	return out, inflow, nil
}

// GenerateInput selects entries for voucher generation.
type GenerateInput struct {
	BookID   int64
	EntryIDs []int64
	Merge    bool
	Tax      TaxConfig
	Maker    string
}

// GenerateVouchers turns the selected entries into draft vouchers and locks
// them against further edits. With Merge set, all entries feed one voucher;
// otherwise one voucher per entry. Generation stops at the first failure:
// already-created vouchers and their locks stand, so the caller can inspect
// and retry the remainder.
func (s *Service) GenerateVouchers(ctx context.Context, in GenerateInput) ([]voucher.Voucher, error) {
	if len(in.EntryIDs) == 0 {
		return nil, ErrNoEntries
	}
	entries := make([]Entry, 0, len(in.EntryIDs))
	for _, id := range in.EntryIDs {
		entry, err := s.loadUnlocked(ctx, in.BookID, id)
		if err != nil {
			return nil, err
		}
		if !entry.Classified() {
			return nil, ErrNotClassified
		}
		entries = append(entries, entry)
	}

	if in.Merge && len(entries) > 1 {
		account, err := s.store.GetAccount(ctx, in.BookID, entries[0].AccountID)
		if err != nil {
			return nil, err
		}
		lines, err := MergeDraft(account, entries, in.Tax)
		if err != nil {
			return nil, err
		}
		created, err := s.createAndLock(ctx, in, entries[0].Date, in.EntryIDs, lines)
		if err != nil {
			return nil, err
		}
		return []voucher.Voucher{created}, nil
	}

	var vouchers []voucher.Voucher
	for _, entry := range entries {
		account, err := s.store.GetAccount(ctx, in.BookID, entry.AccountID)
		if err != nil {
			return vouchers, err
		}
		lines, err := SingleDraft(account, entry, in.Tax)
		if err != nil {
			return vouchers, err
		}
		created, err := s.createAndLock(ctx, in, entry.Date, []int64{entry.ID}, lines)
		if err != nil {
			return vouchers, err
		}
		vouchers = append(vouchers, created)
	}
	return vouchers, nil
}

func (s *Service) createAndLock(ctx context.Context, in GenerateInput, date time.Time, entryIDs []int64, lines []voucher.Line) (voucher.Voucher, error) {
	created, err := s.creator.Create(ctx, voucher.CreateInput{
		BookID: in.BookID,
		Date:   date,
		Type:   "J",
		Maker:  in.Maker,
		Origin: voucher.OriginUserEntered,
		Status: voucher.StatusDraft,
		Lines:  lines,
	})
	if err != nil {
		return voucher.Voucher{}, err
	}
	code := fmt.Sprintf("%s-%d", created.Type, created.SequenceNo)
	if err := s.store.LockEntries(ctx, entryIDs, created.ID, code); err != nil {
		return voucher.Voucher{}, err
	}
	s.record(ctx, in.BookID, "journal.generate_voucher", created.ID, map[string]any{
		"entry_ids": entryIDs,
	})
	return created, nil
}

func (s *Service) record(ctx context.Context, bookID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		BookID:   bookID,
		Action:   action,
		Entity:   "journal_entry",
		EntityID: fmt.Sprintf("%d", entityID),
		Meta:     meta,
		At:       s.now(),
	})
}
