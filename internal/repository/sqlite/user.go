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

type UserStore struct {
	conn *sql.DB
}

func NewUserStore(conn *sql.DB) *UserStore {
	return &UserStore{conn: conn}
}

const userColumns = `id, email, password_hash, first_name, last_name, role, phone_number, created_at`

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u       models.User
		id      string
		created int64
	)
	if err := row.Scan(&id, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Role, &u.PhoneNumber, &created); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse user id: %w", err)
	}
	u.ID = parsed
	u.CreatedAt = fromNanos(created)
	return &u, nil
}

func (s *UserStore) Create(ctx context.Context, u *models.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CreatedAt = now()

	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.conn.ExecContext(ctx, query,
		u.ID.String(), u.Email, u.PasswordHash, u.FirstName, u.LastName, string(u.Role), u.PhoneNumber, toNanos(u.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *UserStore) get(ctx context.Context, query string, arg any) (*models.User, error) {
	u, err := scanUser(s.conn.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.get(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id.String())
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.get(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

func (s *UserStore) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.User, error) {
	users := make([]models.User, 0, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	in, args := inClause(ids)
	rows, err := s.conn.QueryContext(ctx, `SELECT `+userColumns+` FROM users WHERE id IN (`+in+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

func (s *UserStore) UpdateProfile(ctx context.Context, u *models.User) error {
	res, err := s.conn.ExecContext(ctx,
		`UPDATE users SET first_name = ?, last_name = ?, phone_number = ? WHERE id = ?`,
		u.FirstName, u.LastName, u.PhoneNumber, u.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
