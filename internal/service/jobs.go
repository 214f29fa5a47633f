package service

import (
	"context"
	"errors"
	"math"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/guardpost/internal/apperr"
	"github.com/lalith-99/guardpost/internal/models"
	"github.com/lalith-99/guardpost/internal/repository"
	"go.uber.org/zap"
)

const defaultCurrency = "USD"

// JobService is the job workflow engine.
//
// Every mutation follows the same order of checks: the job must exist
// (NotFound), the actor must own it or, for Apply, be a guard
// (Authorization), and only then is the current status considered
// (Conflict). None of the read-check-write
// sequences run in a transaction; two concurrent hires can both pass their
// checks and the later Save wins.
type JobService struct {
	jobs   repository.JobRepository
	logger *zap.Logger
}

func NewJobService(jobs repository.JobRepository, logger *zap.Logger) *JobService {
	return &JobService{jobs: jobs, logger: logger}
}

// Create posts a new open job owned by actor. Workflow fields on draft are
// ignored.
func (s *JobService) Create(ctx context.Context, actor Actor, draft models.Job) (*models.Job, error) {
	if actor.Role != models.RoleClient {
		return nil, apperr.Authorization("only clients can post jobs")
	}

	j := draft
	j.ID = uuid.Nil
	j.ClientID = actor.UserID
	j.Status = models.JobStatusOpen
	j.Applications = []uuid.UUID{}
	j.SelectedGuard = nil
	j.Rating = nil
	normalizeJob(&j)

	if err := validateJob(&j); err != nil {
		return nil, err
	}
	if err := s.jobs.Create(ctx, &j); err != nil {
		return nil, err
	}

	s.logger.Info("job created",
		zap.String("job_id", j.ID.String()),
		zap.String("client_id", actor.UserID.String()),
	)
	return &j, nil
}

func (s *JobService) Get(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	j, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if j == nil {
		return nil, apperr.NotFound("job not found")
	}
	return j, nil
}

func (s *JobService) List(ctx context.Context, filter models.JobFilter) ([]models.Job, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, apperr.Validation("invalid status %q", *filter.Status)
	}
	return s.jobs.List(ctx, filter)
}

// owned loads the job and checks that actor is its client.
func (s *JobService) owned(ctx context.Context, actor Actor, id uuid.UUID) (*models.Job, error) {
	j, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if j.ClientID != actor.UserID {
		return nil, apperr.Authorization("not authorized to modify this job")
	}
	return j, nil
}

// save maps a vanished row to NotFound: the job was deleted between the
// read and the write.
func (s *JobService) save(ctx context.Context, j *models.Job) error {
	if err := s.jobs.Save(ctx, j); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("job not found")
		}
		return err
	}
	return nil
}

func (s *JobService) Update(ctx context.Context, actor Actor, id uuid.UUID, patch models.JobPatch) (*models.Job, error) {
	j, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	patch.Apply(j)
	normalizeJob(j)
	if err := validateJob(j); err != nil {
		return nil, err
	}
	if err := s.save(ctx, j); err != nil {
		return nil, err
	}
	return j, nil
}

func (s *JobService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	if _, err := s.owned(ctx, actor, id); err != nil {
		return err
	}
	if err := s.jobs.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("job not found")
		}
		return err
	}

	s.logger.Info("job deleted", zap.String("job_id", id.String()))
	return nil
}

// Apply adds actor to the applicant list. Applying twice is a no-op.
func (s *JobService) Apply(ctx context.Context, actor Actor, id uuid.UUID) error {
	j, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if actor.Role != models.RoleGuard {
		return apperr.Authorization("only guards can apply for jobs")
	}
	if j.Status != models.JobStatusOpen {
		return apperr.Conflict("job is not open for applications")
	}
	if j.HasApplicant(actor.UserID) {
		return nil
	}
	return s.jobs.AddApplication(ctx, id, actor.UserID)
}

// Applications returns applicant ids in the order they applied.
func (s *JobService) Applications(ctx context.Context, actor Actor, id uuid.UUID) ([]uuid.UUID, error) {
	j, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return j.Applications, nil
}

// Hire selects guardID and moves the job to in-progress. Hiring again while
// in-progress replaces the previous selection.
func (s *JobService) Hire(ctx context.Context, actor Actor, id, guardID uuid.UUID) (*models.Job, error) {
	j, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !j.HasApplicant(guardID) {
		return nil, apperr.Validation("guard did not apply for this job")
	}
	if j.Status == models.JobStatusCompleted || j.Status == models.JobStatusCancelled {
		return nil, apperr.Conflict("cannot hire for a %s job", j.Status)
	}

	j.SelectedGuard = &guardID
	j.Status = models.JobStatusInProgress
	if err := s.save(ctx, j); err != nil {
		return nil, err
	}

	s.logger.Info("guard hired",
		zap.String("job_id", id.String()),
		zap.String("guard_id", guardID.String()),
	)
	return j, nil
}

func (s *JobService) Complete(ctx context.Context, actor Actor, id uuid.UUID) (*models.Job, error) {
	j, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if j.Status != models.JobStatusInProgress {
		return nil, apperr.Conflict("job must be in progress to complete")
	}

	j.Status = models.JobStatusCompleted
	if err := s.save(ctx, j); err != nil {
		return nil, err
	}
	return j, nil
}

// Rate sets or replaces the rating of a completed job. A replaced rating
// keeps its original CreatedAt.
func (s *JobService) Rate(ctx context.Context, actor Actor, id uuid.UUID, score float64, comment string) (*models.Job, error) {
	j, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(score) || score < 0 || score > 5 {
		return nil, apperr.Validation("score must be between 0 and 5")
	}
	if j.Status != models.JobStatusCompleted {
		return nil, apperr.Conflict("job must be completed to rate")
	}

	now := time.Now().UTC()
	created := now
	if j.Rating != nil && !j.Rating.CreatedAt.IsZero() {
		created = j.Rating.CreatedAt
	}
	j.Rating = &models.Rating{Score: score, Comment: comment, CreatedAt: created, UpdatedAt: now}
	if err := s.save(ctx, j); err != nil {
		return nil, err
	}
	return j, nil
}

func normalizeJob(j *models.Job) {
	if j.Location.Type == "" {
		j.Location.Type = "Point"
	}
	if j.Rate.Currency == "" {
		j.Rate.Currency = defaultCurrency
	}
	if j.Requirements == nil {
		j.Requirements = []string{}
	}
	if j.ShiftDetails.DaysOfWeek == nil {
		j.ShiftDetails.DaysOfWeek = []string{}
	}
}

// validateJob checks the descriptive fields of j. It runs on create and
// again on the merged result of every update.
func validateJob(j *models.Job) error {
	switch {
	case blank(j.Title):
		return apperr.Validation("title is required")
	case blank(j.Description):
		return apperr.Validation("description is required")
	case j.Location.Type != "Point":
		return apperr.Validation("location type must be Point")
	case len(j.Location.Coordinates) != 2:
		return apperr.Validation("location coordinates must be [longitude, latitude]")
	}
	for _, c := range j.Location.Coordinates {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return apperr.Validation("location coordinates must be finite numbers")
		}
	}

	switch {
	case j.Duration.StartDate.IsZero() || j.Duration.EndDate.IsZero():
		return apperr.Validation("duration start and end dates are required")
	case j.Duration.EndDate.Before(j.Duration.StartDate):
		return apperr.Validation("duration end date must not be before start date")
	case j.Duration.HoursPerDay < 1 || j.Duration.HoursPerDay > 24:
		return apperr.Validation("hours per day must be between 1 and 24")
	case blank(j.ShiftDetails.StartTime) || blank(j.ShiftDetails.EndTime):
		return apperr.Validation("shift start and end times are required")
	case !j.SecurityType.Valid():
		return apperr.Validation("invalid security type %q", j.SecurityType)
	case j.NumberOfGuards < 1:
		return apperr.Validation("number of guards must be at least 1")
	case math.IsNaN(j.Rate.Amount) || j.Rate.Amount < 0:
		return apperr.Validation("rate amount must not be negative")
	case !j.Rate.PaymentSchedule.Valid():
		return apperr.Validation("invalid payment schedule %q", j.Rate.PaymentSchedule)
	}

	for _, d := range j.ShiftDetails.DaysOfWeek {
		if !slices.Contains(models.Weekdays, d) {
			return apperr.Validation("invalid day of week %q", d)
		}
	}
	for i, r := range j.Requirements {
		if blank(r) {
			return apperr.Validation("requirement %d is blank", i)
		}
	}
	return nil
}

// ParseStatus converts a query parameter into a filter value.
func ParseStatus(raw string) (*models.JobStatus, error) {
	if raw == "" {
		return nil, nil
	}
	st := models.JobStatus(raw)
	if !st.Valid() {
		return nil, apperr.Validation("invalid status %q", raw)
	}
	return &st, nil
}
