package ledger

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"golang.org/x/sync/singleflight"

	"github.com/ledgerline/ledgerline/internal/book"
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

// BookSource supplies book metadata.
type BookSource interface {
	Get(ctx context.Context, bookID int64) (book.AccountBook, error)
}

// Service answers balance queries. Concurrent identical queries are
// collapsed through singleflight and results are cached in redis per book;
// voucher mutations bump the book's cache version so stale aggregates are
// never served. The voucher set stays the source of truth.
type Service struct {
	vouchers VoucherSource
	subjects SubjectSource
	books    BookSource
	cache    *Cache
	group    singleflight.Group
}

// NewService constructs the ledger service. cache may be nil; every query
// then derives fresh from the voucher set.
func NewService(vouchers VoucherSource, subjects SubjectSource, books BookSource, cache *Cache) *Service {
	return &Service{vouchers: vouchers, subjects: subjects, books: books, cache: cache}
}

// BalanceQuery selects one subject (or code prefix) and period.
type BalanceQuery struct {
	BookID     int64
	Code       string
	Period     string
	YearToDate bool
}

// BalanceResult pairs the queried subject with its aggregation.
type BalanceResult struct {
	Subject subject.Subject
	Period  string
	Balance Balance
}

// Balance aggregates one subject's period (or year-to-date) balance.
func (s *Service) Balance(ctx context.Context, q BalanceQuery) (BalanceResult, error) {
	key := fmt.Sprintf("balance:%d:%s:%s:%t", q.BookID, q.Code, q.Period, q.YearToDate)
	result, err, _ := s.group.Do(key, func() (any, error) {
		cacheKey, err := s.cache.BuildKey(ctx, q.BookID, "balance", q.Code, q.Period, strconv.FormatBool(q.YearToDate))
		if err != nil {
			return BalanceResult{}, err
		}
		var res BalanceResult
		err = s.cache.FetchJSON(ctx, cacheKey, &res, func(ctx context.Context) (any, error) {
			return s.balance(ctx, q)
		})
		return res, err
	})
	if err != nil {
		return BalanceResult{}, err
	}
	return result.(BalanceResult), nil
}

func (s *Service) balance(ctx context.Context, q BalanceQuery) (BalanceResult, error) {
	subjects, err := s.subjects.List(ctx, q.BookID)
	if err != nil {
		return BalanceResult{}, err
	}
	subj, ok := subject.Map(subjects)[q.Code]
	if !ok {
		return BalanceResult{}, subject.ErrNotFound
	}
	from := q.Period
	listPeriod := q.Period
	if q.YearToDate {
		bk, err := s.books.Get(ctx, q.BookID)
		if err != nil {
			return BalanceResult{}, err
		}
		from = bk.FiscalYearStart(q.Period)
		listPeriod = ""
	}
	vouchers, err := s.vouchers.ListVouchers(ctx, q.BookID, listPeriod)
	if err != nil {
		return BalanceResult{}, err
	}
	return BalanceResult{
		Subject: subj,
		Period:  q.Period,
		Balance: AggregateRange(vouchers, subj.Code, from, q.Period, subj.Direction),
	}, nil
}

// TrialRow is one subject's aggregation in the trial balance listing.
type TrialRow struct {
	Code    string
	Name    string
	Debit   int64
	Credit  int64
	Net     int64
	IsLeaf  bool
}

// TrialBalance aggregates every subject of the book for one period. Parent
// subjects roll up their children by code prefix; totals count leaves only so
// nothing is doubled.
type TrialBalance struct {
	Period      string
	Rows        []TrialRow
	TotalDebit  int64
	TotalCredit int64
}

// Trial computes the full trial balance listing for a period.
func (s *Service) Trial(ctx context.Context, bookID int64, period string) (TrialBalance, error) {
	key := fmt.Sprintf("trial:%d:%s", bookID, period)
	result, err, _ := s.group.Do(key, func() (any, error) {
		cacheKey, err := s.cache.BuildKey(ctx, bookID, "trial", period)
		if err != nil {
			return TrialBalance{}, err
		}
		var tb TrialBalance
		err = s.cache.FetchJSON(ctx, cacheKey, &tb, func(ctx context.Context) (any, error) {
			return s.trial(ctx, bookID, period)
		})
		return tb, err
	})
	if err != nil {
		return TrialBalance{}, err
	}
	return result.(TrialBalance), nil
}

func (s *Service) trial(ctx context.Context, bookID int64, period string) (TrialBalance, error) {
	subjects, err := s.subjects.List(ctx, bookID)
	if err != nil {
		return TrialBalance{}, err
	}
	vouchers, err := s.vouchers.ListVouchers(ctx, bookID, period)
	if err != nil {
		return TrialBalance{}, err
	}
	parents := make(map[string]bool)
	for _, subj := range subjects {
		if subj.ParentCode != "" {
			parents[subj.ParentCode] = true
		}
	}
	tb := TrialBalance{Period: period}
	for _, subj := range subjects {
		b := Aggregate(vouchers, subj.Code, period, subj.Direction)
		row := TrialRow{
			Code:   subj.Code,
			Name:   subj.Name,
			Debit:  b.DebitTotal,
			Credit: b.CreditTotal,
			Net:    b.Net,
			IsLeaf: !parents[subj.Code],
		}
		tb.Rows = append(tb.Rows, row)
		if row.IsLeaf {
			tb.TotalDebit += row.Debit
			tb.TotalCredit += row.Credit
		}
	}
	sort.Slice(tb.Rows, func(i, j int) bool { return tb.Rows[i].Code < tb.Rows[j].Code })
	return tb, nil
}
