package voucher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ledgerline/ledgerline/internal/book"
	"github.com/ledgerline/ledgerline/internal/shared"
	"github.com/ledgerline/ledgerline/internal/subject"
)

// RepositoryPort abstracts transactional repository behaviour.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// SubjectSource supplies the chart of accounts for validation.
type SubjectSource interface {
	List(ctx context.Context, bookID int64) ([]subject.Subject, error)
}

// AuditPort records voucher events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// CacheBumper invalidates derived balance caches after a voucher mutation.
type CacheBumper interface {
	Bump(ctx context.Context, bookID int64) error
}

// Service coordinates voucher creation, approval, and deletion under the
// period watermark rules.
type Service struct {
	repo     RepositoryPort
	subjects SubjectSource
	audit    AuditPort
	locks    *shared.BookMutex
	bumper   CacheBumper
	now      func() time.Time
}

// NewService constructs the voucher service.
func NewService(repo RepositoryPort, subjects SubjectSource, audit AuditPort, locks *shared.BookMutex) *Service {
	return &Service{repo: repo, subjects: subjects, audit: audit, locks: locks, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithCacheBumper attaches a balance-cache invalidator. Every successful
// mutation bumps the book so aggregated balances are recomputed.
func (s *Service) WithCacheBumper(bumper CacheBumper) {
	s.bumper = bumper
}

func (s *Service) bumpCache(ctx context.Context, bookID int64) {
	if s.bumper == nil {
		return
	}
	_ = s.bumper.Bump(ctx, bookID)
}

// CreateInput groups fields required to create a voucher.
type CreateInput struct {
	BookID      int64
	Date        time.Time
	Type        string
	Maker       string
	Origin      Origin
	ClosingKind string
	Status      Status
	Auditor     string
	Lines       []Line
}

// Validate checks structural fields before the line invariants run.
func (in CreateInput) Validate() error {
	if in.BookID == 0 {
		return errors.New("voucher: book id required")
	}
	if in.Date.IsZero() {
		return errors.New("voucher: date required")
	}
	if strings.TrimSpace(in.Type) == "" {
		return errors.New("voucher: type required")
	}
	if strings.TrimSpace(in.Maker) == "" {
		return errors.New("voucher: maker required")
	}
	return nil
}

// ValidateLines checks a line set against the book's chart of accounts
// without persisting anything.
func (s *Service) ValidateLines(ctx context.Context, bookID int64, lines []Line) error {
	subjects, err := s.subjects.List(ctx, bookID)
	if err != nil {
		return err
	}
	return ValidateLines(lines, subject.Map(subjects))
}

// Create validates, numbers, and persists a new voucher. Number allocation is
// serialised per (book, type) so concurrent creations never share a number.
func (s *Service) Create(ctx context.Context, in CreateInput) (Voucher, error) {
	if err := in.Validate(); err != nil {
		return Voucher{}, err
	}
	if in.Origin == "" {
		in.Origin = OriginUserEntered
	}
	if in.Status == "" {
		in.Status = StatusDraft
	}
	if err := s.ValidateLines(ctx, in.BookID, in.Lines); err != nil {
		return Voucher{}, err
	}
	release, err := s.locks.Acquire(ctx, shared.SequenceLockKey(in.BookID, in.Type))
	if err != nil {
		return Voucher{}, err
	}
	defer release()

	var created Voucher
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		bk, err := tx.GetBookForUpdate(ctx, in.BookID)
		if err != nil {
			return err
		}
		period := book.PeriodOf(in.Date)
		if bk.PeriodLocked(period) {
			return &PeriodLockedError{Period: period}
		}
		if in.ClosingKind != "" {
			count, err := tx.CountClosingVouchers(ctx, in.BookID, period, in.ClosingKind)
			if err != nil {
				return err
			}
			if count > 0 {
				return ErrDuplicateClosing
			}
		}
		seq, err := tx.NextSequence(ctx, in.BookID, in.Type)
		if err != nil {
			return err
		}
		created, err = tx.InsertVoucher(ctx, Voucher{
			BookID:      in.BookID,
			Date:        in.Date,
			Type:        in.Type,
			SequenceNo:  seq,
			Status:      in.Status,
			Origin:      in.Origin,
			ClosingKind: in.ClosingKind,
			Maker:       in.Maker,
			Auditor:     in.Auditor,
			Lines:       in.Lines,
		})
		return err
	})
	if err != nil {
		return Voucher{}, err
	}
	s.bumpCache(ctx, created.BookID)
	s.record(ctx, created.BookID, "voucher.create", created.ID, map[string]any{
		"type":         created.Type,
		"sequence_no":  created.SequenceNo,
		"closing_kind": created.ClosingKind,
	})
	return created, nil
}

// UpdateInput carries a voucher line replacement.
type UpdateInput struct {
	BookID    int64
	VoucherID int64
	Date      time.Time
	Actor     string
	Lines     []Line
}

// Update replaces a draft voucher's date and lines.
func (s *Service) Update(ctx context.Context, in UpdateInput) (Voucher, error) {
	if in.VoucherID == 0 {
		return Voucher{}, errors.New("voucher: voucher id required")
	}
	if in.Date.IsZero() {
		return Voucher{}, errors.New("voucher: date required")
	}
	if err := s.ValidateLines(ctx, in.BookID, in.Lines); err != nil {
		return Voucher{}, err
	}
	var updated Voucher
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, bk, err := loadGuarded(ctx, tx, in.BookID, in.VoucherID)
		if err != nil {
			return err
		}
		newPeriod := book.PeriodOf(in.Date)
		if bk.PeriodLocked(newPeriod) {
			return &PeriodLockedError{Period: newPeriod}
		}
		if current.Status != StatusDraft {
			return ErrNotDraft
		}
		if err := tx.ReplaceLines(ctx, current.ID, in.Date, in.Lines); err != nil {
			return err
		}
		updated, err = tx.GetVoucher(ctx, in.BookID, in.VoucherID)
		return err
	})
	if err != nil {
		return Voucher{}, err
	}
	s.bumpCache(ctx, in.BookID)
	s.record(ctx, in.BookID, "voucher.update", in.VoucherID, nil)
	return updated, nil
}

// Delete removes a draft voucher; approved vouchers must be un-approved
// first. Journal entries locked by the voucher are released.
func (s *Service) Delete(ctx context.Context, bookID, voucherID int64, actor string) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, _, err := loadGuarded(ctx, tx, bookID, voucherID)
		if err != nil {
			return err
		}
		if current.Status == StatusApproved {
			return ErrDeleteApproved
		}
		return tx.DeleteVoucher(ctx, current.ID)
	})
	if err != nil {
		return err
	}
	s.bumpCache(ctx, bookID)
	s.record(ctx, bookID, "voucher.delete", voucherID, map[string]any{"actor": actor})
	return nil
}

// Approve moves a draft voucher to approved and records the auditor.
func (s *Service) Approve(ctx context.Context, bookID, voucherID int64, auditor string) error {
	if strings.TrimSpace(auditor) == "" {
		return errors.New("voucher: auditor required")
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, _, err := loadGuarded(ctx, tx, bookID, voucherID)
		if err != nil {
			return err
		}
		if current.Status != StatusDraft {
			return ErrNotDraft
		}
		return tx.UpdateStatus(ctx, current.ID, StatusApproved, auditor)
	})
	if err != nil {
		return err
	}
	s.bumpCache(ctx, bookID)
	s.record(ctx, bookID, "voucher.approve", voucherID, map[string]any{"auditor": auditor})
	return nil
}

// Unapprove moves an approved voucher back to draft.
func (s *Service) Unapprove(ctx context.Context, bookID, voucherID int64, actor string) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, _, err := loadGuarded(ctx, tx, bookID, voucherID)
		if err != nil {
			return err
		}
		if current.Status != StatusApproved {
			return ErrNotApproved
		}
		return tx.UpdateStatus(ctx, current.ID, StatusDraft, "")
	})
	if err != nil {
		return err
	}
	s.bumpCache(ctx, bookID)
	s.record(ctx, bookID, "voucher.unapprove", voucherID, map[string]any{"actor": actor})
	return nil
}

// List returns vouchers of the book, optionally filtered to one period.
func (s *Service) List(ctx context.Context, bookID int64, period string) ([]Voucher, error) {
	var vouchers []Voucher
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		vouchers, err = tx.ListVouchers(ctx, bookID, period)
		return err
	})
	return vouchers, err
}

// Get loads one voucher with its lines.
func (s *Service) Get(ctx context.Context, bookID, voucherID int64) (Voucher, error) {
	var v Voucher
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		v, err = tx.GetVoucher(ctx, bookID, voucherID)
		return err
	})
	return v, err
}

// loadGuarded fetches the voucher and rejects the operation when its period
// sits at or below the book's closed watermark.
func loadGuarded(ctx context.Context, tx TxRepository, bookID, voucherID int64) (Voucher, book.AccountBook, error) {
	bk, err := tx.GetBookForUpdate(ctx, bookID)
	if err != nil {
		return Voucher{}, book.AccountBook{}, err
	}
	current, err := tx.GetVoucher(ctx, bookID, voucherID)
	if err != nil {
		return Voucher{}, book.AccountBook{}, err
	}
	if period := current.Period(); bk.PeriodLocked(period) {
		return Voucher{}, book.AccountBook{}, &PeriodLockedError{Period: period}
	}
	return current, bk, nil
}

func (s *Service) record(ctx context.Context, bookID int64, action string, voucherID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		BookID:   bookID,
		Action:   action,
		Entity:   "voucher",
		EntityID: fmt.Sprintf("%d", voucherID),
		Meta:     meta,
		At:       s.now(),
	})
}
