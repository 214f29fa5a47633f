package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lalith-99/guardpost/internal/apperr"
)

func TestKindsMatchWithErrorsIs(t *testing.T) {
	cases := []struct {
		err  error
		kind error
	}{
		{apperr.Validation("bad %s", "input"), apperr.ErrValidation},
		{apperr.Authorization("nope"), apperr.ErrAuthorization},
		{apperr.NotFound("job not found"), apperr.ErrNotFound},
		{apperr.Conflict("already reviewed"), apperr.ErrConflict},
		{apperr.Unauthenticated("invalid email or password"), apperr.ErrUnauthenticated},
	}
	for _, tc := range cases {
		if !errors.Is(tc.err, tc.kind) {
			t.Fatalf("expected %v to be %v", tc.err, tc.kind)
		}
		wrapped := fmt.Errorf("outer: %w", tc.err)
		if !errors.Is(wrapped, tc.kind) {
			t.Fatalf("expected wrapped %v to be %v", wrapped, tc.kind)
		}
	}
	if errors.Is(apperr.NotFound("x"), apperr.ErrConflict) {
		t.Fatalf("not found must not match conflict")
	}
}

func TestMessage(t *testing.T) {
	if got := apperr.Message(apperr.Validation("bad %d", 1), "fallback"); got != "bad 1" {
		t.Fatalf("unexpected message: %q", got)
	}
	if got := apperr.Message(errors.New("pg: connection reset"), "fallback"); got != "fallback" {
		t.Fatalf("infrastructure error leaked: %q", got)
	}
}
