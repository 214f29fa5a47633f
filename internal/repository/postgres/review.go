package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/guardpost/internal/models"
	"github.com/lalith-99/guardpost/internal/repository"
)

type ReviewStore struct {
	pool *pgxpool.Pool
}

func NewReviewStore(pool *pgxpool.Pool) *ReviewStore {
	return &ReviewStore{pool: pool}
}

const reviewColumns = `id, reviewer_id, reviewed_id, job_id, rating, comment, created_at, updated_at`

func scanReview(row pgx.Row) (*models.Review, error) {
	var r models.Review
	err := row.Scan(
		&r.ID,
		&r.ReviewerID,
		&r.ReviewedID,
		&r.JobID,
		&r.Rating,
		&r.Comment,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *ReviewStore) Create(ctx context.Context, r *models.Review) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	query := `
		INSERT INTO reviews (id, reviewer_id, reviewed_id, job_id, rating, comment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING created_at, updated_at`

	err := s.pool.QueryRow(ctx, query, r.ID, r.ReviewerID, r.ReviewedID, r.JobID, r.Rating, r.Comment).
		Scan(&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

func (s *ReviewStore) get(ctx context.Context, query string, args ...any) (*models.Review, error) {
	r, err := scanReview(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get review: %w", err)
	}
	return r, nil
}

func (s *ReviewStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	return s.get(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id = $1`, id)
}

func (s *ReviewStore) GetByReviewerAndJob(ctx context.Context, reviewerID, jobID uuid.UUID) (*models.Review, error) {
	return s.get(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE reviewer_id = $1 AND job_id = $2`, reviewerID, jobID)
}

func (s *ReviewStore) Update(ctx context.Context, r *models.Review) error {
	query := `
		UPDATE reviews
		SET rating = $2, comment = $3, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	if err := s.pool.QueryRow(ctx, query, r.ID, r.Rating, r.Comment).Scan(&r.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("update review: %w", err)
	}
	return nil
}

func (s *ReviewStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *ReviewStore) ListByReviewed(ctx context.Context, userID uuid.UUID) ([]models.Review, error) {
	return s.list(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE reviewed_id = $1 ORDER BY created_at DESC, id`, userID)
}

func (s *ReviewStore) ListByJob(ctx context.Context, jobID uuid.UUID) ([]models.Review, error) {
	return s.list(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE job_id = $1 ORDER BY created_at DESC, id`, jobID)
}

func (s *ReviewStore) list(ctx context.Context, query string, args ...any) ([]models.Review, error) {
	rows, err := s.pool.Query(ctx, query, args...)
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
