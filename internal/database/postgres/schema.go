package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// schemaLockID serialises schema upgrades between servers sharing a database.
const schemaLockID = 0x6661636541

// schemaStep is one embedded SQL file named NNN_description.sql.
type schemaStep struct {
	Version int
	Name    string
	SQL     string
}

// loadSchemaSteps reads every .sql file in dir ordered by version. Files
// without a numeric prefix or with a repeated version are rejected.
func loadSchemaSteps(fsys fs.FS, dir string) ([]schemaStep, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read schema directory: %w", err)
	}

	var steps []schemaStep
	seen := make(map[int]string)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		prefix, desc, ok := strings.Cut(strings.TrimSuffix(e.Name(), ".sql"), "_")
		version, err := strconv.Atoi(prefix)
		if !ok || err != nil || version <= 0 || desc == "" {
			return nil, fmt.Errorf("schema file %s: want NNN_description.sql", e.Name())
		}
		if other, dup := seen[version]; dup {
			return nil, fmt.Errorf("schema version %d used by %s and %s", version, other, e.Name())
		}
		seen[version] = e.Name()

		body, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read schema file %s: %w", e.Name(), err)
		}
		steps = append(steps, schemaStep{Version: version, Name: desc, SQL: string(body)})
	}

	slices.SortFunc(steps, func(a, b schemaStep) int { return a.Version - b.Version })
	return steps, nil
}

// Migrate brings the expression log schema up to date in one transaction.
// Concurrent callers wait on an advisory lock, so each step runs once.
func (p *Pool) Migrate(ctx context.Context) error {
	steps, err := loadSchemaSteps(migrationsFS, "migrations")
	if err != nil {
		return err
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema upgrade: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", schemaLockID); err != nil {
		return fmt.Errorf("lock schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS expression_log_schema (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`); err != nil {
		return fmt.Errorf("create schema table: %w", err)
	}

	var current int
	if err := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(version), 0) FROM expression_log_schema").Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	applied := 0
	for _, step := range steps {
		if step.Version <= current {
			continue
		}
		if _, err := tx.ExecContext(ctx, step.SQL); err != nil {
			return fmt.Errorf("apply schema %03d_%s: %w", step.Version, step.Name, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO expression_log_schema (version, name) VALUES ($1, $2)", step.Version, step.Name); err != nil {
			return fmt.Errorf("record schema %03d: %w", step.Version, err)
		}
		p.logger.Info("schema upgraded", zap.Int("version", step.Version), zap.String("name", step.Name))
		applied++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema upgrade: %w", err)
	}
	if applied == 0 {
		p.logger.Debug("schema up to date", zap.Int("version", current))
	}
	return nil
}

// SchemaVersion returns the highest applied schema version, 0 for none.
func (p *Pool) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	err := p.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(version), 0) FROM expression_log_schema").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}
