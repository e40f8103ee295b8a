package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"specboard/migrations"
)

// Migrator applies the embedded schema migrations for one table prefix.
type Migrator struct {
	db     *sql.DB
	prefix string
	logger *slog.Logger
}

// NewMigrator wraps pool in a database/sql handle for goose.
// Close releases the handle; the pool stays open.
func NewMigrator(pool *pgxpool.Pool, prefix string, logger *slog.Logger) (*Migrator, error) {
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("set dialect: %w", err)
	}
	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(goose.NopLogger())
	goose.SetTableName(VersionTable(prefix))

	return &Migrator{
		db:     stdlib.OpenDBFromPool(pool),
		prefix: prefix,
		logger: logger,
	}, nil
}

// VersionTable returns the goose bookkeeping table for a prefix.
func VersionTable(prefix string) string {
	return prefix + "goose_db_version"
}

// Up applies all pending migrations.
func (m *Migrator) Up(ctx context.Context) error {
	if err := m.withPrefix(func() error { return goose.UpContext(ctx, m.db, ".") }); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	version, err := m.Version(ctx)
	if err == nil {
		m.logger.Info("migrations applied", "prefix", m.prefix, "version", version)
	}
	return nil
}

// Down rolls back the most recent migration.
func (m *Migrator) Down(ctx context.Context) error {
	if err := m.withPrefix(func() error { return goose.DownContext(ctx, m.db, ".") }); err != nil {
		return fmt.Errorf("roll back migration: %w", err)
	}
	return nil
}

// Status logs the applied state of every migration.
func (m *Migrator) Status(ctx context.Context) error {
	goose.SetLogger(slogGooseLogger{m.logger})
	defer goose.SetLogger(goose.NopLogger())

	if err := m.withPrefix(func() error { return goose.StatusContext(ctx, m.db, ".") }); err != nil {
		return fmt.Errorf("migration status: %w", err)
	}
	return nil
}

// Version returns the current schema version.
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	return goose.GetDBVersionContext(ctx, m.db)
}

// DropAll drops every table owned by the prefix, including the goose
// version table, so the next Up starts from an empty schema.
func (m *Migrator) DropAll(ctx context.Context) error {
	tables := NewTableNames(m.prefix)
	dropSQL := fmt.Sprintf(`
		DROP TABLE IF EXISTS %s CASCADE;
		DROP TABLE IF EXISTS %s CASCADE;
		DROP TABLE IF EXISTS %s CASCADE;
	`, tables.FieldChanges, tables.FeatureSpecs, VersionTable(m.prefix))

	if _, err := m.db.ExecContext(ctx, dropSQL); err != nil {
		return fmt.Errorf("drop tables: %w", err)
	}
	m.logger.Warn("dropped all tables", "prefix", m.prefix)
	return nil
}

// Close releases the database/sql handle.
func (m *Migrator) Close() error {
	return m.db.Close()
}

// withPrefix exposes the table prefix to ENVSUB while fn runs.
func (m *Migrator) withPrefix(fn func() error) error {
	previous, had := os.LookupEnv("TABLE_PREFIX")
	if err := os.Setenv("TABLE_PREFIX", m.prefix); err != nil {
		return err
	}
	defer func() {
		if had {
			_ = os.Setenv("TABLE_PREFIX", previous)
		} else {
			_ = os.Unsetenv("TABLE_PREFIX")
		}
	}()
	return fn()
}

// slogGooseLogger adapts slog to goose's logger interface.
type slogGooseLogger struct {
	logger *slog.Logger
}

func (l slogGooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, v...))
}

func (l slogGooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, v...))
	os.Exit(1)
}
