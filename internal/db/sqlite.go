package db

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLite wraps a database/sql handle on the pure-Go modernc driver. It is
// the backend for local development and for tests.
type SQLite struct {
	conn   *sql.DB
	logger *zap.Logger
}

// OpenSQLite opens path (":memory:" for a private in-memory database) with
// foreign keys enforced.
//
// The pool is pinned to one connection: SQLite allows a single writer, and
// an in-memory database lives only as long as its connection.
func OpenSQLite(ctx context.Context, path string, logger *zap.Logger) (*SQLite, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dsn := "file:" + path
	if path == ":memory:" {
		dsn = "file::memory:"
	}
	dsn += "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)
	conn.SetConnMaxIdleTime(0)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	logger.Info("sqlite database opened", zap.String("path", path))
	return &SQLite{conn: conn, logger: logger}, nil
}

func (s *SQLite) Close() error {
	s.logger.Info("closing sqlite database")
	return s.conn.Close()
}

func (s *SQLite) Conn() *sql.DB {
	return s.conn
}

func (s *SQLite) Health(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}
