package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/guardpost/internal/models"
	"github.com/lalith-99/guardpost/internal/repository"
)

type JobStore struct {
	pool *pgxpool.Pool
}

func NewJobStore(pool *pgxpool.Pool) *JobStore {
	return &JobStore{pool: pool}
}

const jobColumns = `
	id, client_id, title, description, location_type, longitude, latitude, requirements,
	start_date, end_date, hours_per_day, shift_start, shift_end, days_of_week,
	security_type, number_of_guards, rate_amount, rate_currency, payment_schedule,
	status, selected_guard_id, rating_score, rating_comment, rating_created_at, rating_updated_at,
	created_at, updated_at`

func scanJob(row pgx.Row) (*models.Job, error) {
	var (
		j                models.Job
		lng, lat         float64
		selected         *uuid.UUID
		score            *float64
		comment          *string
		ratedAt, ratedUp *time.Time
	)
	err := row.Scan(
		&j.ID,
		&j.ClientID,
		&j.Title,
		&j.Description,
		&j.Location.Type,
		&lng,
		&lat,
		&j.Requirements,
		&j.Duration.StartDate,
		&j.Duration.EndDate,
		&j.Duration.HoursPerDay,
		&j.ShiftDetails.StartTime,
		&j.ShiftDetails.EndTime,
		&j.ShiftDetails.DaysOfWeek,
		&j.SecurityType,
		&j.NumberOfGuards,
		&j.Rate.Amount,
		&j.Rate.Currency,
		&j.Rate.PaymentSchedule,
		&j.Status,
		&selected,
		&score,
		&comment,
		&ratedAt,
		&ratedUp,
		&j.CreatedAt,
		&j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	j.Location.Coordinates = []float64{lng, lat}
	j.SelectedGuard = selected
	if score != nil {
		r := &models.Rating{Score: *score}
		if comment != nil {
			r.Comment = *comment
		}
		if ratedAt != nil {
			r.CreatedAt = *ratedAt
		}
		if ratedUp != nil {
			r.UpdatedAt = *ratedUp
		}
		j.Rating = r
	}
	j.Applications = []uuid.UUID{}
	return &j, nil
}

// ratingColumns splits an optional rating into nullable column values.
func ratingColumns(r *models.Rating) (score *float64, comment *string, createdAt, updatedAt *time.Time) {
	if r == nil {
		return nil, nil, nil, nil
	}
	return &r.Score, &r.Comment, &r.CreatedAt, &r.UpdatedAt
}

func coordinates(loc models.Location) (lng, lat float64) {
	if len(loc.Coordinates) >= 2 {
		return loc.Coordinates[0], loc.Coordinates[1]
	}
	return 0, 0
}

func (s *JobStore) Create(ctx context.Context, j *models.Job) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	lng, lat := coordinates(j.Location)
	score, comment, ratedAt, ratedUp := ratingColumns(j.Rating)

	query := `
		INSERT INTO jobs (
			id, client_id, title, description, location_type, longitude, latitude, requirements,
			start_date, end_date, hours_per_day, shift_start, shift_end, days_of_week,
			security_type, number_of_guards, rate_amount, rate_currency, payment_schedule,
			status, selected_guard_id, rating_score, rating_comment, rating_created_at, rating_updated_at,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19,
			$20, $21, $22, $23, $24, $25, now(), now())
		RETURNING created_at, updated_at`

	err := s.pool.QueryRow(ctx, query,
		j.ID, j.ClientID, j.Title, j.Description, j.Location.Type, lng, lat, nonNil(j.Requirements),
		j.Duration.StartDate, j.Duration.EndDate, j.Duration.HoursPerDay,
		j.ShiftDetails.StartTime, j.ShiftDetails.EndTime, nonNil(j.ShiftDetails.DaysOfWeek),
		j.SecurityType, j.NumberOfGuards, j.Rate.Amount, j.Rate.Currency, j.Rate.PaymentSchedule,
		j.Status, j.SelectedGuard, score, comment, ratedAt, ratedUp,
	).Scan(&j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	if j.Applications == nil {
		j.Applications = []uuid.UUID{}
	}
	return nil
}

func (s *JobStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`

	j, err := scanJob(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get job: %w", err)
	}

	apps, err := s.applications(ctx, []uuid.UUID{j.ID})
	if err != nil {
		return nil, err
	}
	if a, ok := apps[j.ID]; ok {
		j.Applications = a
	}
	return j, nil
}

// List builds the WHERE clause from whichever filter fields are set.
func (s *JobStore) List(ctx context.Context, filter models.JobFilter) ([]models.Job, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.ClientID != nil {
		args = append(args, *filter.ClientID)
		conds = append(conds, fmt.Sprintf("client_id = $%d", len(args)))
	}
	if filter.SelectedGuard != nil {
		args = append(args, *filter.SelectedGuard)
		conds = append(conds, fmt.Sprintf("selected_guard_id = $%d", len(args)))
	}

	query := `SELECT ` + jobColumns + ` FROM jobs`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY created_at DESC, id`

	jobs, err := s.queryJobs(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return jobs, nil
	}

	ids := make([]uuid.UUID, len(jobs))
	for i := range jobs {
		ids[i] = jobs[i].ID
	}
	apps, err := s.applications(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range jobs {
		if a, ok := apps[jobs[i].ID]; ok {
			jobs[i].Applications = a
		}
	}
	return jobs, nil
}

func (s *JobStore) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Job, error) {
	if len(ids) == 0 {
		return make([]models.Job, 0), nil
	}
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = ANY($1)`
	return s.queryJobs(ctx, query, ids)
}

func (s *JobStore) queryJobs(ctx context.Context, query string, args ...any) ([]models.Job, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]models.Job, 0)
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, *j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

// applications loads applicant ids for the given jobs, each list in the
// order the guards applied.
func (s *JobStore) applications(ctx context.Context, jobIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	query := `
		SELECT job_id, guard_id
		FROM job_applications
		WHERE job_id = ANY($1)
		ORDER BY seq`

	rows, err := s.pool.Query(ctx, query, jobIDs)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]uuid.UUID, len(jobIDs))
	for rows.Next() {
		var jobID, guardID uuid.UUID
		if err := rows.Scan(&jobID, &guardID); err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		out[jobID] = append(out[jobID], guardID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applications: %w", err)
	}
	return out, nil
}

// Save writes the whole document back. client_id and created_at are never
// touched: the owner of a job is fixed at creation.
func (s *JobStore) Save(ctx context.Context, j *models.Job) error {
	lng, lat := coordinates(j.Location)
	score, comment, ratedAt, ratedUp := ratingColumns(j.Rating)

	query := `
		UPDATE jobs SET
			title = $2, description = $3, location_type = $4, longitude = $5, latitude = $6,
			requirements = $7, start_date = $8, end_date = $9, hours_per_day = $10,
			shift_start = $11, shift_end = $12, days_of_week = $13, security_type = $14,
			number_of_guards = $15, rate_amount = $16, rate_currency = $17, payment_schedule = $18,
			status = $19, selected_guard_id = $20, rating_score = $21, rating_comment = $22,
			rating_created_at = $23, rating_updated_at = $24, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	err := s.pool.QueryRow(ctx, query,
		j.ID, j.Title, j.Description, j.Location.Type, lng, lat,
		nonNil(j.Requirements), j.Duration.StartDate, j.Duration.EndDate, j.Duration.HoursPerDay,
		j.ShiftDetails.StartTime, j.ShiftDetails.EndTime, nonNil(j.ShiftDetails.DaysOfWeek), j.SecurityType,
		j.NumberOfGuards, j.Rate.Amount, j.Rate.Currency, j.Rate.PaymentSchedule,
		j.Status, j.SelectedGuard, score, comment, ratedAt, ratedUp,
	).Scan(&j.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// Delete relies on ON DELETE CASCADE to drop the job's applications.
func (s *JobStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *JobStore) AddApplication(ctx context.Context, jobID, guardID uuid.UUID) error {
	// ON CONFLICT DO NOTHING makes applying twice a silent no-op, the same
	// way joining a channel twice is.
	query := `
		INSERT INTO job_applications (job_id, guard_id, applied_at)
		VALUES ($1, $2, now())
		ON CONFLICT (job_id, guard_id) DO NOTHING`

	if _, err := s.pool.Exec(ctx, query, jobID, guardID); err != nil {
		return fmt.Errorf("add application: %w", err)
	}
	return nil
}

// nonNil keeps NOT NULL array columns from receiving NULL.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
