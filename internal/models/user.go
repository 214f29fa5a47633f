package models

import (
	"time"

	"github.com/google/uuid"
)

// Role decides which side of the marketplace a user is on. It travels
// inside the JWT so handlers can gate routes without a DB lookup.
type Role string

const (
	RoleClient Role = "client"
	RoleGuard  Role = "guard"
)

func (r Role) Valid() bool {
	return r == RoleClient || r == RoleGuard
}

// User is an account holder. PasswordHash never leaves the server: the
// json:"-" tag keeps it out of every response.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Role         Role      `json:"role"`
	PhoneNumber  string    `json:"phoneNumber,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// UserPatch lists the profile fields a user may change about themselves.
// Nil means "leave as is".
type UserPatch struct {
	FirstName   *string `json:"firstName"`
	LastName    *string `json:"lastName"`
	PhoneNumber *string `json:"phoneNumber"`
}

func (p UserPatch) Apply(u *User) {
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.PhoneNumber != nil {
		u.PhoneNumber = *p.PhoneNumber
	}
}
