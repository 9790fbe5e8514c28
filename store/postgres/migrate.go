package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"slices"

	"github.com/jackc/pgx/v5"

	"github.com/xraph/tenancy"
)

//go:embed migrations/*.sql
var migrations embed.FS

// migrationLock is the advisory lock key held while migrating, so two
// processes starting together apply each file once.
const migrationLock = 0x74656e616e6379

// Migrate applies the embedded migrations not yet recorded in
// tenancy_migrations, in file name order, each in its own transaction.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS tenancy_migrations (
			filename   TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`); err != nil {
		return fmt.Errorf("%w: %w", tenancy.ErrMigrationFailed, err)
	}

	files, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("%w: %w", tenancy.ErrMigrationFailed, err)
	}
	slices.Sort(files)

	for _, file := range files {
		name := path.Base(file)
		applied, err := s.applyMigration(ctx, file, name)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", tenancy.ErrMigrationFailed, name, err)
		}
		if applied {
			s.logger.Info("applied migration", "file", name)
		}
	}
	return nil
}

func (s *Store) applyMigration(ctx context.Context, file, name string) (bool, error) {
	sql, err := fs.ReadFile(migrations, file)
	if err != nil {
		return false, err
	}

	applied := false
	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, migrationLock); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx,
			`INSERT INTO tenancy_migrations (filename) VALUES ($1) ON CONFLICT DO NOTHING`, name)
		if err != nil || tag.RowsAffected() == 0 {
			return err
		}
		if _, err := tx.Exec(ctx, string(sql)); err != nil {
			return err
		}
		applied = true
		return nil
	})
	return applied, err
}
