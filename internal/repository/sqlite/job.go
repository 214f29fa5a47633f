package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lalith-99/guardpost/internal/models"
	"github.com/lalith-99/guardpost/internal/repository"
)

type JobStore struct {
	conn *sql.DB
}

func NewJobStore(conn *sql.DB) *JobStore {
	return &JobStore{conn: conn}
}

const jobColumns = `
	id, client_id, title, description, location_type, longitude, latitude, requirements,
	start_date, end_date, hours_per_day, shift_start, shift_end, days_of_week,
	security_type, number_of_guards, rate_amount, rate_currency, payment_schedule,
	status, selected_guard_id, rating_score, rating_comment, rating_created_at, rating_updated_at,
	created_at, updated_at`

func scanJob(row rowScanner) (*models.Job, error) {
	var (
		j                    models.Job
		id, clientID         string
		lng, lat             float64
		requirements, days   string
		start, end           int64
		selected             sql.NullString
		score                sql.NullFloat64
		comment              sql.NullString
		ratedAt, ratedUp     sql.NullInt64
		createdAt, updatedAt int64
	)
	err := row.Scan(
		&id, &clientID, &j.Title, &j.Description, &j.Location.Type, &lng, &lat, &requirements,
		&start, &end, &j.Duration.HoursPerDay, &j.ShiftDetails.StartTime, &j.ShiftDetails.EndTime, &days,
		&j.SecurityType, &j.NumberOfGuards, &j.Rate.Amount, &j.Rate.Currency, &j.Rate.PaymentSchedule,
		&j.Status, &selected, &score, &comment, &ratedAt, &ratedUp,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if j.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse job id: %w", err)
	}
	if j.ClientID, err = uuid.Parse(clientID); err != nil {
		return nil, fmt.Errorf("parse client id: %w", err)
	}
	if j.Requirements, err = decodeList(requirements); err != nil {
		return nil, err
	}
	if j.ShiftDetails.DaysOfWeek, err = decodeList(days); err != nil {
		return nil, err
	}
	if j.SelectedGuard, err = parseNullUUID(selected); err != nil {
		return nil, err
	}

	j.Location.Coordinates = []float64{lng, lat}
	j.Duration.StartDate = fromNanos(start)
	j.Duration.EndDate = fromNanos(end)
	if score.Valid {
		j.Rating = &models.Rating{
			Score:     score.Float64,
			Comment:   comment.String,
			CreatedAt: fromNanos(ratedAt.Int64),
			UpdatedAt: fromNanos(ratedUp.Int64),
		}
	}
	j.CreatedAt = fromNanos(createdAt)
	j.UpdatedAt = fromNanos(updatedAt)
	j.Applications = []uuid.UUID{}
	return &j, nil
}

// jobArgs flattens the mutable columns shared by INSERT and UPDATE, in
// jobColumns order from title through rating_updated_at.
func jobArgs(j *models.Job) ([]any, error) {
	requirements, err := encodeList(j.Requirements)
	if err != nil {
		return nil, err
	}
	days, err := encodeList(j.ShiftDetails.DaysOfWeek)
	if err != nil {
		return nil, err
	}

	var lng, lat float64
	if len(j.Location.Coordinates) >= 2 {
		lng, lat = j.Location.Coordinates[0], j.Location.Coordinates[1]
	}

	var score, comment, ratedAt, ratedUp any
	if j.Rating != nil {
		score = j.Rating.Score
		comment = j.Rating.Comment
		ratedAt = toNanos(j.Rating.CreatedAt)
		ratedUp = toNanos(j.Rating.UpdatedAt)
	}

	return []any{
		j.Title, j.Description, j.Location.Type, lng, lat, requirements,
		toNanos(j.Duration.StartDate), toNanos(j.Duration.EndDate), j.Duration.HoursPerDay,
		j.ShiftDetails.StartTime, j.ShiftDetails.EndTime, days,
		string(j.SecurityType), j.NumberOfGuards, j.Rate.Amount, j.Rate.Currency, string(j.Rate.PaymentSchedule),
		string(j.Status), nullableUUID(j.SelectedGuard), score, comment, ratedAt, ratedUp,
	}, nil
}

func (s *JobStore) Create(ctx context.Context, j *models.Job) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	j.CreatedAt = now()
	j.UpdatedAt = j.CreatedAt

	mutable, err := jobArgs(j)
	if err != nil {
		return err
	}
	args := append([]any{j.ID.String(), j.ClientID.String()}, mutable...)
	args = append(args, toNanos(j.CreatedAt), toNanos(j.UpdatedAt))

	query := `INSERT INTO jobs (` + jobColumns + `) VALUES (` + strings.TrimSuffix(strings.Repeat("?, ", len(args)), ", ") + `)`
	if _, err := s.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	if j.Applications == nil {
		j.Applications = []uuid.UUID{}
	}
	return nil
}

func (s *JobStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	j, err := scanJob(s.conn.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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

func (s *JobStore) List(ctx context.Context, filter models.JobFilter) ([]models.Job, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Status != nil {
		conds = append(conds, "status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.ClientID != nil {
		conds = append(conds, "client_id = ?")
		args = append(args, filter.ClientID.String())
	}
	if filter.SelectedGuard != nil {
		conds = append(conds, "selected_guard_id = ?")
		args = append(args, filter.SelectedGuard.String())
	}

	query := `SELECT ` + jobColumns + ` FROM jobs`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY created_at DESC, rowid DESC`

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
	in, args := inClause(ids)
	return s.queryJobs(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id IN (`+in+`)`, args...)
}

// queryJobs drains and closes its rows before returning: the handle has a
// single connection, so a follow-up query must not start while rows are open.
func (s *JobStore) queryJobs(ctx context.Context, query string, args ...any) ([]models.Job, error) {
	rows, err := s.conn.QueryContext(ctx, query, args...)
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

func (s *JobStore) applications(ctx context.Context, jobIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	in, args := inClause(jobIDs)
	rows, err := s.conn.QueryContext(ctx,
		`SELECT job_id, guard_id FROM job_applications WHERE job_id IN (`+in+`) ORDER BY seq`, args...)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]uuid.UUID, len(jobIDs))
	for rows.Next() {
		var jobRaw, guardRaw string
		if err := rows.Scan(&jobRaw, &guardRaw); err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		jobID, err := uuid.Parse(jobRaw)
		if err != nil {
			return nil, fmt.Errorf("parse job id: %w", err)
		}
		guardID, err := uuid.Parse(guardRaw)
		if err != nil {
			return nil, fmt.Errorf("parse guard id: %w", err)
		}
		out[jobID] = append(out[jobID], guardID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applications: %w", err)
	}
	return out, nil
}

func (s *JobStore) Save(ctx context.Context, j *models.Job) error {
	j.UpdatedAt = now()

	mutable, err := jobArgs(j)
	if err != nil {
		return err
	}
	args := append(mutable, toNanos(j.UpdatedAt), j.ID.String())

	query := `
		UPDATE jobs SET
			title = ?, description = ?, location_type = ?, longitude = ?, latitude = ?,
			requirements = ?, start_date = ?, end_date = ?, hours_per_day = ?,
			shift_start = ?, shift_end = ?, days_of_week = ?, security_type = ?,
			number_of_guards = ?, rate_amount = ?, rate_currency = ?, payment_schedule = ?,
			status = ?, selected_guard_id = ?, rating_score = ?, rating_comment = ?,
			rating_created_at = ?, rating_updated_at = ?, updated_at = ?
		WHERE id = ?`

	res, err := s.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *JobStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *JobStore) AddApplication(ctx context.Context, jobID, guardID uuid.UUID) error {
	query := `
		INSERT INTO job_applications (job_id, guard_id, applied_at)
		VALUES (?, ?, ?)
		ON CONFLICT (job_id, guard_id) DO NOTHING`

	if _, err := s.conn.ExecContext(ctx, query, jobID.String(), guardID.String(), toNanos(now())); err != nil {
		return fmt.Errorf("add application: %w", err)
	}
	return nil
}
