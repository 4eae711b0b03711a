package voucher

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/subject"
)

func testSubjects() map[string]subject.Subject {
	return subject.Map([]subject.Subject{
		{Code: "1001", Name: "Cash", Category: subject.CategoryAsset, Direction: subject.DirectionDebit},
		{Code: "6001", Name: "Main revenue", Category: subject.CategoryProfitAndLoss, Direction: subject.DirectionCredit},
		{Code: "2202", Name: "Accounts payable", Category: subject.CategoryLiability, Direction: subject.DirectionCredit, AuxDimension: "supplier"},
	})
}

func TestValidateLinesAccepted(t *testing.T) {
	lines := []Line{
		{Summary: "cash sale", SubjectCode: "1001", Debit: 80000},
		{Summary: "cash sale", SubjectCode: "6001", Credit: 80000},
	}
	require.NoError(t, ValidateLines(lines, testSubjects()))
}

func TestValidateLinesTooFew(t *testing.T) {
	lines := []Line{{Summary: "only one", SubjectCode: "1001", Debit: 100}}
	require.ErrorIs(t, ValidateLines(lines, testSubjects()), ErrTooFewLines)
}

func TestValidateLinesImbalance(t *testing.T) {
	lines := []Line{
		{Summary: "a", SubjectCode: "1001", Debit: 80000},
		{Summary: "b", SubjectCode: "6001", Credit: 79999},
	}
	require.ErrorIs(t, ValidateLines(lines, testSubjects()), ErrImbalance)
}

func TestValidateLinesExclusivity(t *testing.T) {
	both := []Line{
		{Summary: "a", SubjectCode: "1001", Debit: 100, Credit: 100},
		{Summary: "b", SubjectCode: "6001", Credit: 100},
	}
	require.ErrorIs(t, ValidateLines(both, testSubjects()), ErrExclusivity)

	neither := []Line{
		{Summary: "a", SubjectCode: "1001"},
		{Summary: "b", SubjectCode: "6001", Credit: 100},
	}
	require.ErrorIs(t, ValidateLines(neither, testSubjects()), ErrExclusivity)
}

func TestValidateLinesEmptyFields(t *testing.T) {
	lines := []Line{
		{Summary: "", SubjectCode: "1001", Debit: 100},
		{Summary: "b", SubjectCode: "6001", Credit: 100},
	}
	require.ErrorIs(t, ValidateLines(lines, testSubjects()), ErrEmptyLine)
}

func TestValidateLinesZeroTotal(t *testing.T) {
	lines := []Line{
		{Summary: "a", SubjectCode: "1001", Debit: 0, Credit: 1},
		{Summary: "b", SubjectCode: "6001", Debit: 1},
	}
	// Balanced at 1 cent is fine; balanced at zero is not expressible without
	// violating exclusivity, so drive the zero case through negative lines.
	require.NoError(t, ValidateLines(lines, testSubjects()))

	negative := []Line{
		{Summary: "a", SubjectCode: "1001", Debit: -5},
		{Summary: "b", SubjectCode: "6001", Credit: -5},
	}
	require.ErrorIs(t, ValidateLines(negative, testSubjects()), ErrNegativeAmount)
}

func TestValidateLinesAuxiliaryRequired(t *testing.T) {
	missing := []Line{
		{Summary: "supplier invoice", SubjectCode: "1001", Debit: 500},
		{Summary: "supplier invoice", SubjectCode: "2202", Credit: 500},
	}
	require.ErrorIs(t, ValidateLines(missing, testSubjects()), ErrMissingAuxiliary)

	present := []Line{
		{Summary: "supplier invoice", SubjectCode: "1001", Debit: 500},
		{Summary: "supplier invoice", SubjectCode: "2202", Credit: 500, AuxDimension: "supplier", AuxItemID: "S-9"},
	}
	require.NoError(t, ValidateLines(present, testSubjects()))
}

func TestValidateLinesUnknownSubject(t *testing.T) {
	lines := []Line{
		{Summary: "a", SubjectCode: "9999", Debit: 100},
		{Summary: "b", SubjectCode: "6001", Credit: 100},
	}
	require.ErrorIs(t, ValidateLines(lines, testSubjects()), ErrUnknownSubject)
}
