package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

const (
	// CurrentSchemaVersion tracks the service schema version
	CurrentSchemaVersion = "1.1.0"

	prefixPlaceholder = "{{prefix}}"
)

// Migration represents a service schema migration. Up and Down are templates
// in which {{prefix}} is replaced by the service table prefix.
type Migration struct {
	Version string
	Up      string
	Down    string
}

// AllMigrations contains all service migrations in order
var AllMigrations = []Migration{
	{
		Version: "1.0.0",
		Up:      migrationV1Up,
		Down:    migrationV1Down,
	},
	{
		Version: "1.1.0",
		Up:      migrationV11Up,
		Down:    migrationV11Down,
	},
}

const versionTable = `
CREATE TABLE IF NOT EXISTS schema_version (
    service TEXT NOT NULL,
    version TEXT NOT NULL,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (service, version)
);
`

const migrationV1Up = `
CREATE TABLE IF NOT EXISTS {{prefix}}_artists (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    description TEXT
);

CREATE TABLE IF NOT EXISTS {{prefix}}_albums (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    description TEXT,
    artist_id INTEGER,
    is_compilation INTEGER NOT NULL DEFAULT 0,
    FOREIGN KEY (artist_id) REFERENCES {{prefix}}_artists(id)
);

CREATE TABLE IF NOT EXISTS {{prefix}}_genre (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    album_id INTEGER NOT NULL,
    FOREIGN KEY (album_id) REFERENCES {{prefix}}_albums(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS {{prefix}}_tracks (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    track_number INTEGER,
    disc_number INTEGER,
    length INTEGER,
    preview_url TEXT,
    album_id INTEGER,
    artist_id INTEGER,
    FOREIGN KEY (album_id) REFERENCES {{prefix}}_albums(id) ON DELETE CASCADE,
    FOREIGN KEY (artist_id) REFERENCES {{prefix}}_artists(id)
);
`

const migrationV1Down = `
DROP TABLE IF EXISTS {{prefix}}_tracks;
DROP TABLE IF EXISTS {{prefix}}_genre;
DROP TABLE IF EXISTS {{prefix}}_albums;
DROP TABLE IF EXISTS {{prefix}}_artists;
`

const migrationV11Up = `
CREATE INDEX IF NOT EXISTS idx_{{prefix}}_tracks_album ON {{prefix}}_tracks(album_id);
CREATE INDEX IF NOT EXISTS idx_{{prefix}}_tracks_artist ON {{prefix}}_tracks(artist_id);
CREATE INDEX IF NOT EXISTS idx_{{prefix}}_tracks_url ON {{prefix}}_tracks(preview_url);
CREATE INDEX IF NOT EXISTS idx_{{prefix}}_albums_artist ON {{prefix}}_albums(artist_id);
CREATE INDEX IF NOT EXISTS idx_{{prefix}}_genre_album ON {{prefix}}_genre(album_id);
CREATE INDEX IF NOT EXISTS idx_{{prefix}}_genre_name ON {{prefix}}_genre(name);
`

const migrationV11Down = `
DROP INDEX IF EXISTS idx_{{prefix}}_genre_name;
DROP INDEX IF EXISTS idx_{{prefix}}_genre_album;
DROP INDEX IF EXISTS idx_{{prefix}}_albums_artist;
DROP INDEX IF EXISTS idx_{{prefix}}_tracks_url;
DROP INDEX IF EXISTS idx_{{prefix}}_tracks_artist;
DROP INDEX IF EXISTS idx_{{prefix}}_tracks_album;
`

func expand(tmpl, prefix string) string {
	return strings.ReplaceAll(tmpl, prefixPlaceholder, prefix)
}

func ensureVersionTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, versionTable)
	return err
}

// currentServiceVersion returns the highest applied version for a service,
// or 0.0.0 when none was applied.
func currentServiceVersion(ctx context.Context, db *sql.DB, prefix string) (*semver.Version, error) {
	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_version WHERE service = ?", prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema_version: %w", err)
	}
	defer rows.Close()

	current := semver.MustParse("0.0.0")
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		v, err := semver.NewVersion(s)
		if err != nil {
			return nil, fmt.Errorf("invalid schema version %s for %s: %w", s, prefix, err)
		}
		if v.GreaterThan(current) {
			current = v
		}
	}
	return current, rows.Err()
}

// ApplyServiceMigrations runs all pending migrations for one service prefix
func ApplyServiceMigrations(ctx context.Context, db *sql.DB, prefix string) error {
	if err := ValidatePrefix(prefix); err != nil {
		return err
	}
	if err := ensureVersionTable(ctx, db); err != nil {
		return fmt.Errorf("failed to prepare schema_version: %w", err)
	}

	currentVersion, err := currentServiceVersion(ctx, db, prefix)
	if err != nil {
		return err
	}

	for _, migration := range AllMigrations {
		migrationVersion, err := semver.NewVersion(migration.Version)
		if err != nil {
			return fmt.Errorf("invalid migration version %s: %w", migration.Version, err)
		}

		if !currentVersion.LessThan(migrationVersion) {
			continue // Already applied
		}

		if _, err := db.ExecContext(ctx, expand(migration.Up, prefix)); err != nil {
			return fmt.Errorf("failed to apply migration %s to %s: %w", migration.Version, prefix, err)
		}

		_, err = db.ExecContext(ctx, "INSERT INTO schema_version (service, version) VALUES (?, ?)", prefix, migration.Version)
		if err != nil {
			return fmt.Errorf("failed to record migration %s for %s: %w", migration.Version, prefix, err)
		}

		currentVersion = migrationVersion
	}

	return nil
}

// RollbackServiceMigration rolls back the most recent migration of a service
func RollbackServiceMigration(ctx context.Context, db *sql.DB, prefix string) error {
	if err := ValidatePrefix(prefix); err != nil {
		return err
	}

	current, err := currentServiceVersion(ctx, db, prefix)
	if err != nil {
		return err
	}

	var migration *Migration
	for i := range AllMigrations {
		if semver.MustParse(AllMigrations[i].Version).Equal(current) {
			migration = &AllMigrations[i]
			break
		}
	}
	if migration == nil {
		return fmt.Errorf("no migrations to rollback for %s", prefix)
	}

	if _, err := db.ExecContext(ctx, expand(migration.Down, prefix)); err != nil {
		return fmt.Errorf("failed to rollback migration %s for %s: %w", migration.Version, prefix, err)
	}

	_, err = db.ExecContext(ctx, "DELETE FROM schema_version WHERE service = ? AND version = ?", prefix, migration.Version)
	if err != nil {
		return fmt.Errorf("failed to remove migration record %s for %s: %w", migration.Version, prefix, err)
	}

	return nil
}
