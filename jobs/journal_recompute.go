package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ledgerline/ledgerline/internal/book"
	"github.com/ledgerline/ledgerline/internal/journal"
	"github.com/ledgerline/ledgerline/internal/ledger"
)

// JournalReader is the slice of the journal service the recompute sweep needs.
type JournalReader interface {
	Accounts(ctx context.Context, bookID int64) ([]journal.FundAccount, error)
	Entries(ctx context.Context, bookID, accountID int64, window journal.EntryWindow) ([]journal.Entry, error)
}

// BalanceWarmer loads a book's trial balance through the caching read path,
// leaving the redis cache hot for the current period.
type BalanceWarmer interface {
	Trial(ctx context.Context, bookID int64, period string) (ledger.TrialBalance, error)
}

// JournalRecomputeJob walks every fund account, folds the full entry history
// into running balances, reports entries still waiting on voucher generation,
// and warms the aggregated-balance cache for the book's current period.
type JournalRecomputeJob struct {
	Journal JournalReader
	Books   BookLister
	Warmer  BalanceWarmer
	Logger  *slog.Logger
	clock   func() time.Time
}

// NewJournalRecomputeJob wires dependencies for the recompute handler.
func NewJournalRecomputeJob(reader JournalReader, books BookLister, warmer BalanceWarmer, logger *slog.Logger) *JournalRecomputeJob {
	return &JournalRecomputeJob{
		Journal: reader,
		Books:   books,
		Warmer:  warmer,
		Logger:  logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes TaskJournalRecompute tasks. A zero BookID sweeps every book.
func (j *JournalRecomputeJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Journal == nil || j.Books == nil {
		return errors.New("journal recompute: handler not configured")
	}
	var payload JournalRecomputePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	books, err := j.Books.List(ctx)
	if err != nil {
		j.logger().Error("list books", slog.Any("error", err))
		return err
	}
	if payload.BookID != 0 {
		scoped := books[:0:0]
		for _, b := range books {
			if b.ID == payload.BookID {
				scoped = append(scoped, b)
			}
		}
		books = scoped
	}

	started := j.now()
	for _, bk := range books {
		if err := j.sweep(ctx, bk); err != nil {
			return err
		}
	}
	j.logger().Info("completed journal recompute sweep",
		slog.Int("books", len(books)),
		slog.Duration("duration", time.Since(started)))
	return nil
}

func (j *JournalRecomputeJob) sweep(ctx context.Context, bk book.AccountBook) error {
	logger := j.logger().With(slog.Int64("book_id", bk.ID))

	accounts, err := j.Journal.Accounts(ctx, bk.ID)
	if err != nil {
		logger.Error("list fund accounts", slog.Any("error", err))
		return err
	}

	totalEntries := 0
	unvouchered := 0
	for _, account := range accounts {
		if !account.IsActive {
			continue
		}
		entries, err := j.Journal.Entries(ctx, bk.ID, account.ID, journal.EntryWindow{})
		if err != nil {
			logger.Error("load entries", slog.Int64("account_id", account.ID), slog.Any("error", err))
			return err
		}
		totalEntries += len(entries)
		closing := account.OpeningBalance
		pending := 0
		for _, entry := range entries {
			closing = entry.RunningBalance
			if !entry.Locked() {
				pending++
			}
		}
		unvouchered += pending
		logger.Info("account balance",
			slog.Int64("account_id", account.ID),
			slog.String("name", account.Name),
			slog.Int64("closing_cents", closing),
			slog.Int("entries", len(entries)),
			slog.Int("unvouchered", pending))
	}

	if j.Warmer != nil {
		if _, err := j.Warmer.Trial(ctx, bk.ID, bk.CurrentPeriod); err != nil {
			logger.Warn("warm balance cache", slog.String("period", bk.CurrentPeriod), slog.Any("error", err))
		}
	}

	logger.Info("journal sweep",
		slog.Int("accounts", len(accounts)),
		slog.Int("entries", totalEntries),
		slog.Int("unvouchered", unvouchered))
	return nil
}

func (j *JournalRecomputeJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *JournalRecomputeJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
