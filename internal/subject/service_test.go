package subject

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type memStore struct {
	subjects map[string]Subject
	nextID   int64
}

func newMemStore() *memStore {
	return &memStore{subjects: map[string]Subject{}, nextID: 1}
}

func (m *memStore) List(_ context.Context, bookID int64) ([]Subject, error) {
	var out []Subject
	for _, s := range m.subjects {
		if s.BookID == bookID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memStore) GetByCode(_ context.Context, bookID int64, code string) (Subject, error) {
	s, ok := m.subjects[code]
	if !ok || s.BookID != bookID {
		return Subject{}, ErrNotFound
	}
	return s, nil
}

func (m *memStore) Insert(_ context.Context, in CreateInput) (Subject, error) {
	if _, ok := m.subjects[in.Code]; ok {
		return Subject{}, ErrDuplicateCode
	}
	s := Subject{
		ID:           m.nextID,
		BookID:       in.BookID,
		Code:         in.Code,
		Name:         in.Name,
		Category:     in.Category,
		Direction:    in.Direction,
		ParentCode:   in.ParentCode,
		AuxDimension: in.AuxDimension,
		IsActive:     true,
	}
	m.nextID++
	m.subjects[s.Code] = s
	return s, nil
}

func seedSubject(t *testing.T, svc *Service, in CreateInput) Subject {
	t.Helper()
	s, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	return s
}

func TestCreateSubjectWithParent(t *testing.T) {
	svc := NewService(newMemStore())

	seedSubject(t, svc, CreateInput{
		BookID: 1, Code: "2221", Name: "Taxes payable",
		Category: CategoryLiability, Direction: DirectionCredit,
	})
	child := seedSubject(t, svc, CreateInput{
		BookID: 1, Code: "222101", Name: "VAT payable",
		Category: CategoryLiability, Direction: DirectionCredit, ParentCode: "2221",
	})

	require.Equal(t, "2221", child.ParentCode)
	require.True(t, child.IsActive)
}

func TestCreateSubjectParentMustBeStrictPrefix(t *testing.T) {
	svc := NewService(newMemStore())

	seedSubject(t, svc, CreateInput{
		BookID: 1, Code: "1001", Name: "Cash",
		Category: CategoryAsset, Direction: DirectionDebit,
	})

	// Same length as the declared parent.
	_, err := svc.Create(context.Background(), CreateInput{
		BookID: 1, Code: "1002", Name: "Bank",
		Category: CategoryAsset, Direction: DirectionDebit, ParentCode: "1001",
	})
	require.ErrorIs(t, err, ErrInvalidParent)

	// Longer, but not prefixed by the parent.
	_, err = svc.Create(context.Background(), CreateInput{
		BookID: 1, Code: "100201", Name: "Bank deposits",
		Category: CategoryAsset, Direction: DirectionDebit, ParentCode: "1001",
	})
	require.ErrorIs(t, err, ErrInvalidParent)
}

func TestCreateSubjectParentMustExist(t *testing.T) {
	svc := NewService(newMemStore())

	_, err := svc.Create(context.Background(), CreateInput{
		BookID: 1, Code: "640101", Name: "Cost of goods sold",
		Category: CategoryProfitAndLoss, Direction: DirectionDebit, ParentCode: "6401",
	})
	require.ErrorIs(t, err, ErrInvalidParent)
}

func TestCreateSubjectChildCategoryMatchesParent(t *testing.T) {
	svc := NewService(newMemStore())

	seedSubject(t, svc, CreateInput{
		BookID: 1, Code: "6401", Name: "Cost of sales",
		Category: CategoryProfitAndLoss, Direction: DirectionDebit,
	})
	_, err := svc.Create(context.Background(), CreateInput{
		BookID: 1, Code: "640101", Name: "COGS materials",
		Category: CategoryAsset, Direction: DirectionDebit, ParentCode: "6401",
	})
	require.Error(t, err)
}

func TestCreateSubjectDuplicateCode(t *testing.T) {
	svc := NewService(newMemStore())

	seedSubject(t, svc, CreateInput{
		BookID: 1, Code: "1001", Name: "Cash",
		Category: CategoryAsset, Direction: DirectionDebit,
	})
	_, err := svc.Create(context.Background(), CreateInput{
		BookID: 1, Code: "1001", Name: "Cash again",
		Category: CategoryAsset, Direction: DirectionDebit,
	})
	require.ErrorIs(t, err, ErrDuplicateCode)
}

func TestCreateSubjectRejectsBadInput(t *testing.T) {
	svc := NewService(newMemStore())

	cases := []CreateInput{
		{BookID: 1, Name: "No code", Category: CategoryAsset, Direction: DirectionDebit},
		{BookID: 1, Code: "1001", Category: CategoryAsset, Direction: DirectionDebit},
		{BookID: 1, Code: "1001", Name: "Bad category", Category: "WEIRD", Direction: DirectionDebit},
		{BookID: 1, Code: "1001", Name: "Bad direction", Category: CategoryAsset, Direction: "SIDEWAYS"},
		{Code: "1001", Name: "No book", Category: CategoryAsset, Direction: DirectionDebit},
	}
	for _, in := range cases {
		_, err := svc.Create(context.Background(), in)
		require.Error(t, err, "input %+v", in)
	}
}

func TestRevenueExpenseClassification(t *testing.T) {
	revenue := Subject{Category: CategoryProfitAndLoss, Direction: DirectionCredit}
	expense := Subject{Category: CategoryProfitAndLoss, Direction: DirectionDebit}
	asset := Subject{Category: CategoryAsset, Direction: DirectionDebit}

	require.True(t, revenue.IsRevenue())
	require.False(t, revenue.IsExpense())
	require.True(t, expense.IsExpense())
	require.False(t, asset.IsRevenue())
	require.False(t, asset.IsExpense())
}

func TestMapIndexesByCode(t *testing.T) {
	byCode := Map([]Subject{{Code: "1001"}, {Code: "6401", AuxDimension: "customer"}})
	require.Len(t, byCode, 2)
	require.True(t, byCode["6401"].RequiresAuxiliary())
	require.False(t, byCode["1001"].RequiresAuxiliary())
}
