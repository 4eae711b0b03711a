package subject

import (
	"context"
	"errors"
)

// Store abstracts subject persistence for the service.
type Store interface {
	List(ctx context.Context, bookID int64) ([]Subject, error)
	GetByCode(ctx context.Context, bookID int64, code string) (Subject, error)
	Insert(ctx context.Context, in CreateInput) (Subject, error)
}

// Service handles chart-of-accounts reads and registration.
type Service struct {
	store Store
}

// NewService constructs the subject service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// List returns the book's chart of accounts.
func (s *Service) List(ctx context.Context, bookID int64) ([]Subject, error) {
	return s.store.List(ctx, bookID)
}

// Get loads one subject by code.
func (s *Service) Get(ctx context.Context, bookID int64, code string) (Subject, error) {
	return s.store.GetByCode(ctx, bookID, code)
}

// Create validates and registers a subject. The declared parent must exist
// and be a strict prefix of the new code.
func (s *Service) Create(ctx context.Context, in CreateInput) (Subject, error) {
	if err := in.Validate(); err != nil {
		return Subject{}, err
	}
	if in.ParentCode != "" {
		parent, err := s.store.GetByCode(ctx, in.BookID, in.ParentCode)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return Subject{}, ErrInvalidParent
			}
			return Subject{}, err
		}
		if parent.Category != in.Category {
			return Subject{}, errors.New("subject: child category must match parent")
		}
	}
	return s.store.Insert(ctx, in)
}

// Map builds a code-indexed lookup used by voucher validation and the
// closing generators.
func Map(subjects []Subject) map[string]Subject {
	out := make(map[string]Subject, len(subjects))
	for _, s := range subjects {
		out[s.Code] = s
	}
	return out
}
