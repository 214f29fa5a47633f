// Package sqlite implements the repositories on database/sql with the
// modernc.org/sqlite driver. Timestamps are stored as unix nanoseconds and
// string lists as JSON text.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/guardpost/internal/repository"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// NewStore wires every SQLite repository onto one handle.
func NewStore(conn *sql.DB) repository.Store {
	return repository.Store{
		Users:    NewUserStore(conn),
		Jobs:     NewJobStore(conn),
		Messages: NewMessageStore(conn),
		Reviews:  NewReviewStore(conn),
	}
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	code := se.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

func toNanos(t time.Time) int64 {
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

// now is truncated to microseconds so values survive a Postgres round trip
// the same way and compare equal in tests.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func encodeList(s []string) (string, error) {
	if s == nil {
		s = []string{}
	}
	b, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encode list: %w", err)
	}
	return string(b), nil
}

func decodeList(raw string) ([]string, error) {
	out := []string{}
	if raw == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}
	return out, nil
}

func nullableUUID(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}

func parseNullUUID(ns sql.NullString) (*uuid.UUID, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	id, err := uuid.Parse(ns.String)
	if err != nil {
		return nil, fmt.Errorf("parse uuid %q: %w", ns.String, err)
	}
	return &id, nil
}

// inClause returns "?, ?, ?" for the ids plus the ids as args.
func inClause(ids []uuid.UUID) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id.String()
	}
	return strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", "), args
}
