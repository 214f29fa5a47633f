package db

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFS embed.FS

type migration struct {
	version string
	sql     string
}

// loadMigrations reads the .sql files of one dialect in lexical order. The
// file name without extension is the version key in schema_migrations.
func loadMigrations(dialect string) ([]migration, error) {
	dir := path.Join("migrations", dialect)
	entries, err := fs.ReadDir(migrationFS, dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".sql") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	out := make([]migration, 0, len(names))
	for _, name := range names {
		b, err := fs.ReadFile(migrationFS, path.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		out = append(out, migration{
			version: strings.TrimSuffix(name, path.Ext(name)),
			sql:     string(b),
		})
	}
	return out, nil
}

// Migrate applies pending Postgres migrations.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version text PRIMARY KEY, applied timestamptz NOT NULL DEFAULT now())`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}
	migrations, err := loadMigrations("postgres")
	if err != nil {
		return err
	}

	for _, m := range migrations {
		var applied bool
		err := db.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, m.version).Scan(&applied)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", m.version, err)
		}
		if applied {
			continue
		}
		if _, err := db.pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("exec migration %s: %w", m.version, err)
		}
		if _, err := db.pool.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, m.version); err != nil {
			return fmt.Errorf("record migration %s: %w", m.version, err)
		}
		db.logger.Info("migration applied", zap.String("version", m.version))
	}
	return nil
}

// Migrate applies pending SQLite migrations.
func (s *SQLite) Migrate(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}
	migrations, err := loadMigrations("sqlite")
	if err != nil {
		return err
	}

	for _, m := range migrations {
		var count int
		if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(1) FROM schema_migrations WHERE version = ?`, m.version).Scan(&count); err != nil {
			return fmt.Errorf("check migration %s: %w", m.version, err)
		}
		if count > 0 {
			continue
		}
		if _, err := s.conn.ExecContext(ctx, m.sql); err != nil {
			return fmt.Errorf("exec migration %s: %w", m.version, err)
		}
		if _, err := s.conn.ExecContext(ctx, `INSERT INTO schema_migrations (version, applied) VALUES (?, strftime('%s','now'))`, m.version); err != nil {
			return fmt.Errorf("record migration %s: %w", m.version, err)
		}
		s.logger.Debug("migration applied", zap.String("version", m.version))
	}
	return nil
}
