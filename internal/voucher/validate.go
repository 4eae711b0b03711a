package voucher

import (
	"fmt"
	"strings"

	"github.com/ledgerline/ledgerline/internal/subject"
)

// ValidateLines enforces the double-entry invariants on a line set: at least
// two lines, every line carries a summary and a registered subject, exactly
// one positive side per line, auxiliary presence matches the subject's
// declaration, and debit and credit totals match cent-exactly with a
// positive sum. Imbalances are reported, never silently corrected.
func ValidateLines(lines []Line, subjects map[string]subject.Subject) error {
	if len(lines) < 2 {
		return ErrTooFewLines
	}
	var debit, credit int64
	for idx, line := range lines {
		if strings.TrimSpace(line.Summary) == "" || strings.TrimSpace(line.SubjectCode) == "" {
			return fmt.Errorf("line %d: %w", idx, ErrEmptyLine)
		}
		if line.Debit < 0 || line.Credit < 0 {
			return fmt.Errorf("line %d: %w", idx, ErrNegativeAmount)
		}
		if (line.Debit > 0) == (line.Credit > 0) {
			return fmt.Errorf("line %d: %w", idx, ErrExclusivity)
		}
		if subjects != nil {
			subj, ok := subjects[line.SubjectCode]
			if !ok {
				return fmt.Errorf("line %d (%s): %w", idx, line.SubjectCode, ErrUnknownSubject)
			}
			if subj.RequiresAuxiliary() && (line.AuxDimension == "" || line.AuxItemID == "") {
				return fmt.Errorf("line %d (%s): %w", idx, line.SubjectCode, ErrMissingAuxiliary)
			}
		}
		debit += line.Debit
		credit += line.Credit
	}
	if debit != credit {
		return ErrImbalance
	}
	if debit == 0 {
		return ErrZeroTotal
	}
	return nil
}
