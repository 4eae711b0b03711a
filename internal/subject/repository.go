package subject

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists subjects.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const subjectColumns = `id, book_id, code, name, category, direction, parent_code, aux_dimension, is_active, created_at, updated_at`

func scanSubject(row pgx.Row) (Subject, error) {
	var s Subject
	err := row.Scan(&s.ID, &s.BookID, &s.Code, &s.Name, &s.Category, &s.Direction, &s.ParentCode, &s.AuxDimension, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// List returns every subject of the book ordered by code.
func (r *Repository) List(ctx context.Context, bookID int64) ([]Subject, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+subjectColumns+` FROM subjects WHERE book_id=$1 ORDER BY code`, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var subjects []Subject
	for rows.Next() {
		s, err := scanSubject(rows)
		if err != nil {
			return nil, err
		}
		subjects = append(subjects, s)
	}
	return subjects, rows.Err()
}

// GetByCode loads one subject by its code.
func (r *Repository) GetByCode(ctx context.Context, bookID int64, code string) (Subject, error) {
	s, err := scanSubject(r.pool.QueryRow(ctx, `SELECT `+subjectColumns+` FROM subjects WHERE book_id=$1 AND code=$2`, bookID, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Subject{}, ErrNotFound
		}
		return Subject{}, err
	}
	return s, nil
}

// Insert stores a new subject.
func (r *Repository) Insert(ctx context.Context, in CreateInput) (Subject, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO subjects (book_id, code, name, category, direction, parent_code, aux_dimension, is_active)
VALUES ($1,$2,$3,$4,$5,$6,$7,TRUE) RETURNING `+subjectColumns,
		in.BookID, in.Code, in.Name, in.Category, in.Direction, in.ParentCode, in.AuxDimension)
	s, err := scanSubject(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "uq_subjects_book_code" {
			return Subject{}, ErrDuplicateCode
		}
		return Subject{}, err
	}
	return s, nil
}
