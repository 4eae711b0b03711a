package voucher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/book"
	"github.com/ledgerline/ledgerline/internal/subject"
)

type memRepo struct {
	book     book.AccountBook
	vouchers map[int64]*Voucher
	nextID   int64
	seq      map[string]int64
}

func newMemRepo(b book.AccountBook) *memRepo {
	return &memRepo{book: b, vouchers: make(map[int64]*Voucher), seq: make(map[string]int64)}
}

func (r *memRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memTx{repo: r})
}

type memTx struct {
	repo *memRepo
}

func (t *memTx) GetBookForUpdate(ctx context.Context, bookID int64) (book.AccountBook, error) {
	return t.repo.book, nil
}

func (t *memTx) GetVoucher(ctx context.Context, bookID, voucherID int64) (Voucher, error) {
	v, ok := t.repo.vouchers[voucherID]
	if !ok {
		return Voucher{}, ErrNotFound
	}
	return *v, nil
}

func (t *memTx) ListVouchers(ctx context.Context, bookID int64, period string) ([]Voucher, error) {
	var out []Voucher
	for _, v := range t.repo.vouchers {
		if period != "" && v.Period() != period {
			continue
		}
		out = append(out, *v)
	}
	return out, nil
}

func (t *memTx) CountClosingVouchers(ctx context.Context, bookID int64, period, kind string) (int, error) {
	count := 0
	for _, v := range t.repo.vouchers {
		if v.Period() == period && v.ClosingKind == kind {
			count++
		}
	}
	return count, nil
}

func (t *memTx) NextSequence(ctx context.Context, bookID int64, voucherType string) (int64, error) {
	t.repo.seq[voucherType]++
	return t.repo.seq[voucherType], nil
}

func (t *memTx) InsertVoucher(ctx context.Context, v Voucher) (Voucher, error) {
	t.repo.nextID++
	v.ID = t.repo.nextID
	for i := range v.Lines {
		v.Lines[i].VoucherID = v.ID
	}
	stored := v
	t.repo.vouchers[v.ID] = &stored
	return v, nil
}

func (t *memTx) ReplaceLines(ctx context.Context, voucherID int64, date time.Time, lines []Line) error {
	v, ok := t.repo.vouchers[voucherID]
	if !ok {
		return ErrNotFound
	}
	v.Date = date
	v.Lines = lines
	return nil
}

func (t *memTx) UpdateStatus(ctx context.Context, voucherID int64, status Status, auditor string) error {
	v, ok := t.repo.vouchers[voucherID]
	if !ok {
		return ErrNotFound
	}
	v.Status = status
	v.Auditor = auditor
	return nil
}

func (t *memTx) DeleteVoucher(ctx context.Context, voucherID int64) error {
	if _, ok := t.repo.vouchers[voucherID]; !ok {
		return ErrNotFound
	}
	delete(t.repo.vouchers, voucherID)
	return nil
}

type stubSubjects struct {
	subjects []subject.Subject
}

func (s stubSubjects) List(ctx context.Context, bookID int64) ([]subject.Subject, error) {
	return s.subjects, nil
}

func testService(b book.AccountBook) (*Service, *memRepo) {
	repo := newMemRepo(b)
	subjects := stubSubjects{subjects: []subject.Subject{
		{Code: "1001", Name: "Cash", Category: subject.CategoryAsset, Direction: subject.DirectionDebit},
		{Code: "6001", Name: "Main revenue", Category: subject.CategoryProfitAndLoss, Direction: subject.DirectionCredit},
	}}
	return NewService(repo, subjects, nil, nil), repo
}

func balancedLines(amount int64) []Line {
	return []Line{
		{Summary: "sale", SubjectCode: "1001", Debit: amount},
		{Summary: "sale", SubjectCode: "6001", Credit: amount},
	}
}

func openBook() book.AccountBook {
	return book.AccountBook{ID: 1, OpeningPeriod: "2025-01", CurrentPeriod: "2025-12"}
}

func TestCreateAssignsMonotonicSequence(t *testing.T) {
	svc, repo := testService(openBook())
	ctx := context.Background()
	date := time.Date(2025, 12, 5, 0, 0, 0, 0, time.UTC)

	first, err := svc.Create(ctx, CreateInput{BookID: 1, Date: date, Type: "J", Maker: "alice", Lines: balancedLines(1000)})
	require.NoError(t, err)
	require.Equal(t, int64(1), first.SequenceNo)
	require.Equal(t, StatusDraft, first.Status)
	require.Equal(t, OriginUserEntered, first.Origin)

	second, err := svc.Create(ctx, CreateInput{BookID: 1, Date: date, Type: "J", Maker: "alice", Lines: balancedLines(2000)})
	require.NoError(t, err)
	require.Equal(t, int64(2), second.SequenceNo)

	// Sequence numbers are never reused after deletion.
	require.NoError(t, svc.Delete(ctx, 1, second.ID, "alice"))
	third, err := svc.Create(ctx, CreateInput{BookID: 1, Date: date, Type: "J", Maker: "alice", Lines: balancedLines(3000)})
	require.NoError(t, err)
	require.Equal(t, int64(3), third.SequenceNo)

	require.Len(t, repo.vouchers, 2)
}

func TestCreateRejectsImbalance(t *testing.T) {
	svc, _ := testService(openBook())
	lines := []Line{
		{Summary: "a", SubjectCode: "1001", Debit: 1000},
		{Summary: "b", SubjectCode: "6001", Credit: 999},
	}
	_, err := svc.Create(context.Background(), CreateInput{BookID: 1, Date: time.Date(2025, 12, 5, 0, 0, 0, 0, time.UTC), Type: "J", Maker: "alice", Lines: lines})
	require.ErrorIs(t, err, ErrImbalance)
}

func TestWatermarkBlocksClosedPeriod(t *testing.T) {
	b := openBook()
	b.LastClosedPeriod = "2025-11"
	svc, repo := testService(b)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{BookID: 1, Date: time.Date(2025, 11, 15, 0, 0, 0, 0, time.UTC), Type: "J", Maker: "alice", Lines: balancedLines(1000)})
	require.ErrorIs(t, err, ErrPeriodLocked)
	var locked *PeriodLockedError
	require.ErrorAs(t, err, &locked)
	require.Equal(t, "2025-11", locked.Period)

	open, err := svc.Create(ctx, CreateInput{BookID: 1, Date: time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), Type: "J", Maker: "alice", Lines: balancedLines(1000)})
	require.NoError(t, err)

	// Mutations on a voucher inside the closed period are rejected too.
	sealed := &Voucher{ID: 99, BookID: 1, Date: time.Date(2025, 11, 15, 0, 0, 0, 0, time.UTC), Type: "J", Status: StatusDraft, Lines: balancedLines(500)}
	repo.vouchers[99] = sealed
	require.ErrorIs(t, svc.Approve(ctx, 1, 99, "bob"), ErrPeriodLocked)
	require.ErrorIs(t, svc.Delete(ctx, 1, 99, "bob"), ErrPeriodLocked)
	_, err = svc.Update(ctx, UpdateInput{BookID: 1, VoucherID: 99, Date: sealed.Date, Lines: balancedLines(500)})
	require.ErrorIs(t, err, ErrPeriodLocked)

	require.NoError(t, svc.Approve(ctx, 1, open.ID, "bob"))
}

func TestDuplicateClosingVoucherRejected(t *testing.T) {
	svc, _ := testService(openBook())
	ctx := context.Background()
	date := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)

	in := CreateInput{BookID: 1, Date: date, Type: "J", Maker: "system", Origin: OriginSystemGenerated, ClosingKind: "profit", Status: StatusApproved, Auditor: "system", Lines: balancedLines(1000)}
	_, err := svc.Create(ctx, in)
	require.NoError(t, err)

	_, err = svc.Create(ctx, in)
	require.ErrorIs(t, err, ErrDuplicateClosing)
}

func TestApproveLifecycle(t *testing.T) {
	svc, _ := testService(openBook())
	ctx := context.Background()
	date := time.Date(2025, 12, 5, 0, 0, 0, 0, time.UTC)

	v, err := svc.Create(ctx, CreateInput{BookID: 1, Date: date, Type: "J", Maker: "alice", Lines: balancedLines(1000)})
	require.NoError(t, err)

	require.ErrorIs(t, svc.Unapprove(ctx, 1, v.ID, "bob"), ErrNotApproved)
	require.NoError(t, svc.Approve(ctx, 1, v.ID, "bob"))
	require.ErrorIs(t, svc.Approve(ctx, 1, v.ID, "bob"), ErrNotDraft)

	// Approved vouchers cannot be deleted directly.
	require.ErrorIs(t, svc.Delete(ctx, 1, v.ID, "alice"), ErrDeleteApproved)

	require.NoError(t, svc.Unapprove(ctx, 1, v.ID, "bob"))
	require.NoError(t, svc.Delete(ctx, 1, v.ID, "alice"))

	_, err = svc.Get(ctx, 1, v.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateRequiresDraft(t *testing.T) {
	svc, _ := testService(openBook())
	ctx := context.Background()
	date := time.Date(2025, 12, 5, 0, 0, 0, 0, time.UTC)

	v, err := svc.Create(ctx, CreateInput{BookID: 1, Date: date, Type: "J", Maker: "alice", Lines: balancedLines(1000)})
	require.NoError(t, err)
	require.NoError(t, svc.Approve(ctx, 1, v.ID, "bob"))

	_, err = svc.Update(ctx, UpdateInput{BookID: 1, VoucherID: v.ID, Date: date, Lines: balancedLines(2000)})
	require.ErrorIs(t, err, ErrNotDraft)

	require.NoError(t, svc.Unapprove(ctx, 1, v.ID, "bob"))
	updated, err := svc.Update(ctx, UpdateInput{BookID: 1, VoucherID: v.ID, Date: date, Lines: balancedLines(2000)})
	require.NoError(t, err)
	require.Equal(t, int64(2000), updated.DebitTotal())
}

func TestCreateValidatesInput(t *testing.T) {
	svc, _ := testService(openBook())
	_, err := svc.Create(context.Background(), CreateInput{BookID: 1, Type: "J", Maker: "alice", Lines: balancedLines(1000)})
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrImbalance))
}

type stubBumper struct {
	bumps []int64
}

func (b *stubBumper) Bump(_ context.Context, bookID int64) error {
	b.bumps = append(b.bumps, bookID)
	return nil
}

func TestMutationsBumpBalanceCache(t *testing.T) {
	svc, _ := testService(openBook())
	bumper := &stubBumper{}
	svc.WithCacheBumper(bumper)
	ctx := context.Background()
	date := time.Date(2025, 12, 5, 0, 0, 0, 0, time.UTC)

	v, err := svc.Create(ctx, CreateInput{BookID: 1, Date: date, Type: "J", Maker: "alice", Lines: balancedLines(1000)})
	require.NoError(t, err)
	require.NoError(t, svc.Approve(ctx, 1, v.ID, "bob"))
	require.NoError(t, svc.Unapprove(ctx, 1, v.ID, "bob"))
	_, err = svc.Update(ctx, UpdateInput{BookID: 1, VoucherID: v.ID, Date: date, Lines: balancedLines(2000)})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, 1, v.ID, "alice"))

	// Every successful mutation invalidates the book's cached balances.
	require.Equal(t, []int64{1, 1, 1, 1, 1}, bumper.bumps)

	// Rejected mutations leave the cache untouched.
	_, err = svc.Update(ctx, UpdateInput{BookID: 1, VoucherID: v.ID, Date: date, Lines: balancedLines(500)})
	require.ErrorIs(t, err, ErrNotFound)
	require.Len(t, bumper.bumps, 5)
}
