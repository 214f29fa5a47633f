package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lalith-99/guardpost/internal/models"
	"github.com/lalith-99/guardpost/internal/repository"
)

type ReviewStore struct {
	conn *sql.DB
}

func NewReviewStore(conn *sql.DB) *ReviewStore {
	return &ReviewStore{conn: conn}
}

const reviewColumns = `id, reviewer_id, reviewed_id, job_id, rating, comment, created_at, updated_at`

func scanReview(row rowScanner) (*models.Review, error) {
	var (
		r                           models.Review
		id, reviewer, reviewed, job string
		createdAt, updatedAt        int64
	)
	if err := row.Scan(&id, &reviewer, &reviewed, &job, &r.Rating, &r.Comment, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if r.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse review id: %w", err)
	}
	if r.ReviewerID, err = uuid.Parse(reviewer); err != nil {
		return nil, fmt.Errorf("parse reviewer id: %w", err)
	}
	if r.ReviewedID, err = uuid.Parse(reviewed); err != nil {
		return nil, fmt.Errorf("parse reviewed id: %w", err)
	}
	if r.JobID, err = uuid.Parse(job); err != nil {
		return nil, fmt.Errorf("parse job id: %w", err)
	}
	r.CreatedAt = fromNanos(createdAt)
	r.UpdatedAt = fromNanos(updatedAt)
	return &r, nil
}

func (s *ReviewStore) Create(ctx context.Context, r *models.Review) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	r.CreatedAt = now()
	r.UpdatedAt = r.CreatedAt

	query := `
		INSERT INTO reviews (` + reviewColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.conn.ExecContext(ctx, query,
		r.ID.String(), r.ReviewerID.String(), r.ReviewedID.String(), r.JobID.String(),
		r.Rating, r.Comment, toNanos(r.CreatedAt), toNanos(r.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

func (s *ReviewStore) get(ctx context.Context, query string, args ...any) (*models.Review, error) {
	r, err := scanReview(s.conn.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get review: %w", err)
	}
	return r, nil
}

func (s *ReviewStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	return s.get(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id = ?`, id.String())
}

func (s *ReviewStore) GetByReviewerAndJob(ctx context.Context, reviewerID, jobID uuid.UUID) (*models.Review, error) {
	return s.get(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE reviewer_id = ? AND job_id = ?`,
		reviewerID.String(), jobID.String())
}

func (s *ReviewStore) Update(ctx context.Context, r *models.Review) error {
	r.UpdatedAt = now()
	res, err := s.conn.ExecContext(ctx,
		`UPDATE reviews SET rating = ?, comment = ?, updated_at = ? WHERE id = ?`,
		r.Rating, r.Comment, toNanos(r.UpdatedAt), r.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *ReviewStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM reviews WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *ReviewStore) ListByReviewed(ctx context.Context, userID uuid.UUID) ([]models.Review, error) {
	return s.list(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE reviewed_id = ? ORDER BY created_at DESC, rowid DESC`, userID.String())
}

func (s *ReviewStore) ListByJob(ctx context.Context, jobID uuid.UUID) ([]models.Review, error) {
	return s.list(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE job_id = ? ORDER BY created_at DESC, rowid DESC`, jobID.String())
}

func (s *ReviewStore) list(ctx context.Context, query string, args ...any) ([]models.Review, error) {
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	reviews := make([]models.Review, 0)
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reviews: %w", err)
	}
	return reviews, nil
}
