package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/lalith-99/guardpost/internal/models"
)

// Conventions shared by every implementation:
//
//   - context.Context comes first on every method; it carries the request's
//     deadline down to the driver.
//   - Single-row reads return nil, nil when the row does not exist. The
//     service decides whether "missing" is an error.
//   - Writes that target a row that is gone return ErrNotFound.
//   - Unique-constraint violations come back as ErrDuplicate so callers
//     never have to know the driver's error codes.
//   - List methods return an empty slice, never nil, so JSON encodes [].

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// UserRepository handles account rows.
type UserRepository interface {
	// Create inserts u. ID and CreatedAt are filled in by the store.
	Create(ctx context.Context, u *models.User) error

	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// GetByEmail is used by login; emails are globally unique.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// ListByIDs batch-loads users for the presenter. Missing ids are
	// silently skipped; order of the result is unspecified.
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.User, error)

	// UpdateProfile writes the mutable profile columns of u.
	UpdateProfile(ctx context.Context, u *models.User) error
}

// JobRepository is the persistence side of the job workflow.
//
// Applications live in their own table but are always loaded into
// Job.Applications, ordered by the time each guard applied.
type JobRepository interface {
	Create(ctx context.Context, j *models.Job) error

	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)

	// List returns jobs matching filter, newest first.
	List(ctx context.Context, filter models.JobFilter) ([]models.Job, error)

	// ListByIDs batch-loads jobs (without applications) for the presenter.
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Job, error)

	// Save overwrites every mutable column of j in one statement. There is
	// no version check: the last Save wins.
	Save(ctx context.Context, j *models.Job) error

	// Delete removes the job and its applications.
	Delete(ctx context.Context, id uuid.UUID) error

	// AddApplication records guardID as an applicant. Applying twice is a
	// no-op, not an error.
	AddApplication(ctx context.Context, jobID, guardID uuid.UUID) error
}

// MessageRepository handles direct messages and the conversation rollup.
type MessageRepository interface {
	// Create persists m and fills in ID and CreatedAt.
	Create(ctx context.Context, m *models.Message) error

	// ListBetween returns every message exchanged between a and b in
	// either direction, oldest first.
	ListBetween(ctx context.Context, a, b uuid.UUID) ([]models.Message, error)

	// MarkRead flips read=true on messages from sender to receiver and
	// returns how many rows changed.
	MarkRead(ctx context.Context, senderID, receiverID uuid.UUID) (int64, error)

	// Conversations groups all of viewer's messages by counterparty and
	// returns, per group, the latest message and the unread count.
	Conversations(ctx context.Context, viewerID uuid.UUID) ([]models.ConversationSummary, error)
}

// ReviewRepository handles reviews. (reviewer, job) is unique.
type ReviewRepository interface {
	Create(ctx context.Context, r *models.Review) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error)
	GetByReviewerAndJob(ctx context.Context, reviewerID, jobID uuid.UUID) (*models.Review, error)
	Update(ctx context.Context, r *models.Review) error
	Delete(ctx context.Context, id uuid.UUID) error

	// ListByReviewed and ListByJob return newest first.
	ListByReviewed(ctx context.Context, userID uuid.UUID) ([]models.Review, error)
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]models.Review, error)
}

// Store bundles the repositories of one backend so main can pick Postgres
// or SQLite in one place.
type Store struct {
	Users    UserRepository
	Jobs     JobRepository
	Messages MessageRepository
	Reviews  ReviewRepository
}
