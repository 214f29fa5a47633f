package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/lalith-99/guardpost/internal/apperr"
	"github.com/lalith-99/guardpost/internal/models"
	"github.com/lalith-99/guardpost/internal/repository"
	"go.uber.org/zap"
)

// ReviewSummary is a review list with its aggregate.
type ReviewSummary struct {
	Reviews       []models.Review
	AverageRating float64
	TotalReviews  int
}

// ReviewService is the review ledger. A reviewer gets one review per job;
// the reviewed party is always the job's client.
type ReviewService struct {
	reviews repository.ReviewRepository
	jobs    repository.JobRepository
	logger  *zap.Logger
}

func NewReviewService(reviews repository.ReviewRepository, jobs repository.JobRepository, logger *zap.Logger) *ReviewService {
	return &ReviewService{reviews: reviews, jobs: jobs, logger: logger}
}

func validateReview(rating int, comment string) error {
	if rating < 1 || rating > 5 {
		return apperr.Validation("rating must be between 1 and 5")
	}
	if blank(comment) {
		return apperr.Validation("comment is required")
	}
	return nil
}

func (s *ReviewService) Create(ctx context.Context, actor Actor, jobID uuid.UUID, rating int, comment string) (*models.Review, error) {
	if err := validateReview(rating, comment); err != nil {
		return nil, err
	}

	j, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if j == nil {
		return nil, apperr.NotFound("job not found")
	}

	existing, err := s.reviews.GetByReviewerAndJob(ctx, actor.UserID, jobID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.Conflict("you have already reviewed this job")
	}

	r := &models.Review{
		ReviewerID: actor.UserID,
		ReviewedID: j.ClientID,
		JobID:      jobID,
		Rating:     rating,
		Comment:    comment,
	}
	if err := s.reviews.Create(ctx, r); err != nil {
		// Lost the race against a concurrent create from the same reviewer.
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("you have already reviewed this job")
		}
		return nil, err
	}

	s.logger.Info("review created",
		zap.String("review_id", r.ID.String()),
		zap.String("job_id", jobID.String()),
	)
	return r, nil
}

func (s *ReviewService) owned(ctx context.Context, actor Actor, id uuid.UUID) (*models.Review, error) {
	r, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, apperr.NotFound("review not found")
	}
	if r.ReviewerID != actor.UserID {
		return nil, apperr.Authorization("not authorized to modify this review")
	}
	return r, nil
}

func (s *ReviewService) Update(ctx context.Context, actor Actor, id uuid.UUID, rating int, comment string) (*models.Review, error) {
	r, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := validateReview(rating, comment); err != nil {
		return nil, err
	}

	r.Rating = rating
	r.Comment = comment
	if err := s.reviews.Update(ctx, r); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("review not found")
		}
		return nil, err
	}
	return r, nil
}

func (s *ReviewService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	if _, err := s.owned(ctx, actor, id); err != nil {
		return err
	}
	if err := s.reviews.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("review not found")
		}
		return err
	}
	return nil
}

func (s *ReviewService) ForUser(ctx context.Context, userID uuid.UUID) (*ReviewSummary, error) {
	reviews, err := s.reviews.ListByReviewed(ctx, userID)
	if err != nil {
		return nil, err
	}
	return summarize(reviews), nil
}

func (s *ReviewService) ForJob(ctx context.Context, jobID uuid.UUID) (*ReviewSummary, error) {
	reviews, err := s.reviews.ListByJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return summarize(reviews), nil
}

// summarize computes the mean rating; an empty list averages to 0.
func summarize(reviews []models.Review) *ReviewSummary {
	out := &ReviewSummary{Reviews: reviews, TotalReviews: len(reviews)}
	if len(reviews) == 0 {
		return out
	}
	var sum int
	for _, r := range reviews {
		sum += r.Rating
	}
	out.AverageRating = float64(sum) / float64(len(reviews))
	return out
}
