package subject

import (
	"errors"
	"strings"
	"time"
)

// Category enumerates subject (account) classes.
type Category string

const (
	CategoryAsset         Category = "ASSET"
	CategoryLiability     Category = "LIABILITY"
	CategoryEquity        Category = "EQUITY"
	CategoryCost          Category = "COST"
	CategoryProfitAndLoss Category = "PROFIT_AND_LOSS"
)

// Direction enumerates the normal balance side of a subject.
type Direction string

const (
	DirectionDebit  Direction = "DEBIT"
	DirectionCredit Direction = "CREDIT"
)

// Subject models a chart-of-accounts node. Codes are hierarchical strings;
// a parent code is always a strict prefix of its children. Balances of a
// parent with children are derived by prefix roll-up, never entered directly.
type Subject struct {
	ID           int64
	BookID       int64
	Code         string
	Name         string
	Category     Category
	Direction    Direction
	ParentCode   string
	AuxDimension string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

var (
	// ErrNotFound indicates the subject code is unknown.
	ErrNotFound = errors.New("subject: not found")
	// ErrDuplicateCode indicates the code already exists in the book.
	ErrDuplicateCode = errors.New("subject: code already exists")
	// ErrInvalidParent indicates the parent code is not a strict prefix.
	ErrInvalidParent = errors.New("subject: parent code must be a strict prefix")
)

// RequiresAuxiliary reports whether voucher lines on this subject must carry
// an auxiliary dimension reference.
func (s Subject) RequiresAuxiliary() bool {
	return s.AuxDimension != ""
}

// IsRevenue reports whether the subject accumulates revenue in the profit
// computation: a credit-normal profit-and-loss subject.
func (s Subject) IsRevenue() bool {
	return s.Category == CategoryProfitAndLoss && s.Direction == DirectionCredit
}

// IsExpense reports whether the subject accumulates expense in the profit
// computation: a debit-normal profit-and-loss subject.
func (s Subject) IsExpense() bool {
	return s.Category == CategoryProfitAndLoss && s.Direction == DirectionDebit
}

// CreateInput captures fields required to register a subject.
type CreateInput struct {
	BookID       int64
	Code         string
	Name         string
	Category     Category
	Direction    Direction
	ParentCode   string
	AuxDimension string
}

// Validate checks structural rules, including the parent prefix invariant.
// The prefix relationship is validated once here, not re-derived at every
// aggregation call.
func (in CreateInput) Validate() error {
	if in.BookID == 0 {
		return errors.New("subject: book id required")
	}
	if strings.TrimSpace(in.Code) == "" {
		return errors.New("subject: code required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return errors.New("subject: name required")
	}
	switch in.Category {
	case CategoryAsset, CategoryLiability, CategoryEquity, CategoryCost, CategoryProfitAndLoss:
	default:
		return errors.New("subject: unknown category")
	}
	switch in.Direction {
	case DirectionDebit, DirectionCredit:
	default:
		return errors.New("subject: unknown direction")
	}
	if in.ParentCode != "" {
		if len(in.ParentCode) >= len(in.Code) || !strings.HasPrefix(in.Code, in.ParentCode) {
			return ErrInvalidParent
		}
	}
	return nil
}
