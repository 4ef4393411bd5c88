package migration

import (
	"context"

	"github.com/jmoiron/sqlx"

	"goinsight/internal/errors"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
	steps   []step
}

type step struct {
	name string
	sql  string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
		steps: []step{
			{"datasets table", createDatasetsTable},
			{"observations table", createObservationsTable},
			{"observations indexes", createObservationsIndexes},
		},
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Statements returns the DDL in execution order
func (r *MigrationRunner) Statements() []string {
	out := make([]string, len(r.steps))
	for i, s := range r.steps {
		out[i] = s.sql
	}
	return out
}

// Run executes all database migrations in order inside one transaction
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin migration")
	}
	defer tx.Rollback()

	for _, s := range r.steps {
		if _, err := tx.ExecContext(ctx, s.sql); err != nil {
			return errors.Wrapf(err, "failed to create %s", s.name)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit migration")
	}
	return nil
}

const createDatasetsTable = `
	CREATE TABLE IF NOT EXISTS datasets (
		name VARCHAR(100) PRIMARY KEY,
		columns JSONB NOT NULL,
		row_count INTEGER NOT NULL DEFAULT 0,
		loaded_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`

const createObservationsTable = `
	CREATE TABLE IF NOT EXISTS observations (
		dataset VARCHAR(100) NOT NULL REFERENCES datasets(name) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		attributes JSONB NOT NULL,
		measures JSONB NOT NULL,
		PRIMARY KEY (dataset, position)
	)`

const createObservationsIndexes = `
	CREATE INDEX IF NOT EXISTS idx_observations_attributes
		ON observations USING GIN (attributes)`
