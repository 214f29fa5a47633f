package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/lalith-99/guardpost/internal/apperr"
	"github.com/lalith-99/guardpost/internal/auth"
	"github.com/lalith-99/guardpost/internal/models"
	"github.com/lalith-99/guardpost/internal/repository"
	"go.uber.org/zap"
)

const minPasswordLength = 8

// Registration is the sign-up form.
type Registration struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	Role        models.Role
	PhoneNumber string
}

// UserService owns accounts: sign-up, credential checks and profile edits.
type UserService struct {
	users  repository.UserRepository
	logger *zap.Logger
}

func NewUserService(users repository.UserRepository, logger *zap.Logger) *UserService {
	return &UserService{users: users, logger: logger}
}

func (s *UserService) Register(ctx context.Context, reg Registration) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(reg.Email))
	switch {
	case email == "" || !strings.Contains(email, "@"):
		return nil, apperr.Validation("a valid email is required")
	case len(reg.Password) < minPasswordLength:
		return nil, apperr.Validation("password must be at least %d characters", minPasswordLength)
	case blank(reg.FirstName) || blank(reg.LastName):
		return nil, apperr.Validation("first and last name are required")
	case !reg.Role.Valid():
		return nil, apperr.Validation("role must be client or guard")
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.Conflict("email already registered")
	}

	hash, err := auth.HashPassword(reg.Password)
	if err != nil {
		return nil, err
	}

	u := &models.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(reg.FirstName),
		LastName:     strings.TrimSpace(reg.LastName),
		Role:         reg.Role,
		PhoneNumber:  strings.TrimSpace(reg.PhoneNumber),
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("email already registered")
		}
		return nil, err
	}

	s.logger.Info("user registered", zap.String("user_id", u.ID.String()), zap.String("role", string(u.Role)))
	return u, nil
}

// Authenticate checks credentials. Unknown email and wrong password fail
// with the same message so the response does not reveal which accounts exist.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperr.Unauthenticated("invalid email or password")
	}
	ok, err := auth.CheckPassword(u.PasswordHash, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Unauthenticated("invalid email or password")
	}
	return u, nil
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperr.NotFound("user not found")
	}
	return u, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, actor Actor, patch models.UserPatch) (*models.User, error) {
	u, err := s.Get(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	patch.Apply(u)
	if blank(u.FirstName) || blank(u.LastName) {
		return nil, apperr.Validation("first and last name are required")
	}
	if err := s.users.UpdateProfile(ctx, u); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, err
	}
	return u, nil
}
