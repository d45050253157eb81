package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// SQLiteStorage implements Engine on top of a SQLite database
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage opens (or creates) the database at dbPath.
// Service tables are created separately with EnsureService.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ensureVersionTable(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to prepare schema_version: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for fixtures and maintenance.
func (s *SQLiteStorage) DB() *sql.DB {
	return s.db
}

// EnsureService creates the tables of a service and applies pending migrations.
func (s *SQLiteStorage) EnsureService(ctx context.Context, prefix string) error {
	if err := ValidatePrefix(prefix); err != nil {
		return err
	}
	return ApplyServiceMigrations(ctx, s.db, prefix)
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

// Query implements Engine. Every column is returned as text, NULL as "".
func (s *SQLiteStorage) Query(ctx context.Context, query string) ([]string, error) {
	return queryWithQuerier(ctx, s.querier(), query)
}

// Insert implements Engine.
func (s *SQLiteStorage) Insert(ctx context.Context, statement, table string) (int64, error) {
	return insertWithQuerier(ctx, s.querier(), statement, table)
}

// WithTx implements Transactor. fn's statements are committed together, or
// rolled back when fn returns an error.
func (s *SQLiteStorage) WithTx(ctx context.Context, fn func(Engine) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(&sqliteTx{tx: tx, storage: s}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// sqliteTx is an Engine bound to one transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Query(ctx context.Context, query string) ([]string, error) {
	return queryWithQuerier(ctx, t.tx, query)
}

func (t *sqliteTx) Insert(ctx context.Context, statement, table string) (int64, error) {
	return insertWithQuerier(ctx, t.tx, statement, table)
}

func (t *sqliteTx) Escape(text string) string {
	return t.storage.Escape(text)
}

func queryWithQuerier(ctx context.Context, q querier, query string) ([]string, error) {
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to run query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	values := make([]sql.NullString, len(cols))
	dest := make([]interface{}, len(cols))
	for i := range values {
		dest[i] = &values[i]
	}

	var out []string
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for _, v := range values {
			out = append(out, v.String)
		}
	}
	return out, rows.Err()
}

func insertWithQuerier(ctx context.Context, q querier, statement, table string) (int64, error) {
	result, err := q.ExecContext(ctx, statement)
	if err != nil {
		return 0, fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read id for %s: %w", table, err)
	}
	return id, nil
}

// Escape implements Engine by doubling single quotes.
func (s *SQLiteStorage) Escape(text string) string {
	return strings.ReplaceAll(text, "'", "''")
}

// ServiceStatus returns row counts and the schema version of a service.
func (s *SQLiteStorage) ServiceStatus(ctx context.Context, prefix string) (*ServiceStatus, error) {
	if err := ValidatePrefix(prefix); err != nil {
		return nil, err
	}

	version, err := currentServiceVersion(ctx, s.db, prefix)
	if err != nil {
		return nil, err
	}
	if version.String() == "0.0.0" {
		return nil, fmt.Errorf("service %s: %w", prefix, ErrNotFound)
	}

	status := &ServiceStatus{Prefix: prefix, SchemaVersion: version.String()}
	counts := []struct {
		table string
		dest  *int
	}{
		{TracksTable, &status.Tracks},
		{AlbumsTable, &status.Albums},
		{ArtistsTable, &status.Artists},
		{GenreTable, &status.Genres},
	}
	for _, c := range counts {
		query := "SELECT COUNT(*) FROM " + TableName(prefix, c.table)
		if err := s.db.QueryRowContext(ctx, query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", TableName(prefix, c.table), err)
		}
	}
	return status, nil
}
