// Package service holds the marketplace rules: the job workflow, the
// conversation router and the review ledger.
//
// Services take an Actor resolved by the auth middleware and return
// apperr kinds for every rule violation. Anything else they return is an
// infrastructure failure the handler logs and reports as a 500.
package service

import (
	"strings"

	"github.com/google/uuid"
	"github.com/lalith-99/guardpost/internal/models"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID uuid.UUID
	Role   models.Role
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
