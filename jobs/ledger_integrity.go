package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ledgerline/ledgerline/internal/book"
	"github.com/ledgerline/ledgerline/internal/voucher"
)

// VoucherLister is the slice of the voucher store the integrity sweep needs.
type VoucherLister interface {
	ListVouchers(ctx context.Context, bookID int64, period string) ([]voucher.Voucher, error)
}

// BookLister enumerates books when a sweep payload does not name one.
type BookLister interface {
	List(ctx context.Context) ([]book.AccountBook, error)
}

// LedgerIntegrityJob re-verifies the double-entry invariant over stored
// vouchers. Persisted rows should never go out of balance; a hit here means
// a write path bypassed validation and needs investigation.
type LedgerIntegrityJob struct {
	Vouchers VoucherLister
	Books    BookLister
	Logger   *slog.Logger
	clock    func() time.Time
}

// NewLedgerIntegrityJob wires dependencies for the integrity handler.
func NewLedgerIntegrityJob(vouchers VoucherLister, books BookLister, logger *slog.Logger) *LedgerIntegrityJob {
	return &LedgerIntegrityJob{
		Vouchers: vouchers,
		Books:    books,
		Logger:   logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes TaskLedgerIntegrity tasks. A zero BookID sweeps every book.
func (j *LedgerIntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Vouchers == nil {
		return errors.New("ledger integrity: handler not configured")
	}
	var payload LedgerIntegrityPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	bookIDs := []int64{payload.BookID}
	if payload.BookID == 0 {
		if j.Books == nil {
			return asynq.SkipRetry
		}
		books, err := j.Books.List(ctx)
		if err != nil {
			j.logger().Error("list books", slog.Any("error", err))
			return err
		}
		bookIDs = bookIDs[:0]
		for _, b := range books {
			bookIDs = append(bookIDs, b.ID)
		}
	}

	started := j.now()
	checked := 0
	broken := 0
	for _, bookID := range bookIDs {
		c, b, err := j.sweep(ctx, bookID, payload.Period)
		if err != nil {
			return err
		}
		checked += c
		broken += b
	}

	j.logger().Info("completed ledger integrity sweep",
		slog.Int("books", len(bookIDs)),
		slog.Int("vouchers", checked),
		slog.Int("broken", broken),
		slog.Duration("duration", time.Since(started)))
	if broken > 0 {
		return fmt.Errorf("ledger integrity: %d voucher(s) out of balance", broken)
	}
	return nil
}

func (j *LedgerIntegrityJob) sweep(ctx context.Context, bookID int64, period string) (checked, broken int, err error) {
	logger := j.logger().With(slog.Int64("book_id", bookID))
	if period != "" {
		logger = logger.With(slog.String("period", period))
	}

	vouchers, err := j.Vouchers.ListVouchers(ctx, bookID, period)
	if err != nil {
		logger.Error("list vouchers", slog.Any("error", err))
		return 0, 0, err
	}

	periodImbalance := map[string]int64{}
	for _, v := range vouchers {
		diff := v.DebitTotal() - v.CreditTotal()
		periodImbalance[v.Period()] += diff
		if diff != 0 {
			broken++
			logger.Error("voucher out of balance",
				slog.Int64("voucher_id", v.ID),
				slog.String("code", fmt.Sprintf("%s-%d", v.Type, v.SequenceNo)),
				slog.Int64("debit_cents", v.DebitTotal()),
				slog.Int64("credit_cents", v.CreditTotal()))
		}
	}
	for p, diff := range periodImbalance {
		if diff != 0 {
			logger.Error("period out of balance", slog.String("period", p), slog.Int64("diff_cents", diff))
		}
	}
	return len(vouchers), broken, nil
}

func (j *LedgerIntegrityJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *LedgerIntegrityJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
