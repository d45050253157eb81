package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

var (
	// ErrNotFound is returned when a requested service has no schema
	ErrNotFound = errors.New("not found")
	// ErrInvalidPrefix is returned for table prefixes that are unsafe to splice into SQL
	ErrInvalidPrefix = errors.New("invalid table prefix")
)

// Engine is the storage capability consumed by service collections.
type Engine interface {
	// Query runs a statement and returns all result columns of all rows as
	// one flat buffer, row after row.
	Query(ctx context.Context, query string) ([]string, error)

	// Insert runs an insert statement and returns the id of the new row.
	// table names the target table and is only used for diagnostics.
	Insert(ctx context.Context, statement, table string) (int64, error)

	// Escape quotes text for use inside a single-quoted SQL literal.
	Escape(text string) string
}

// Transactor is implemented by engines that can apply a group of statements
// atomically. The Engine passed to fn is only valid until fn returns.
type Transactor interface {
	WithTx(ctx context.Context, fn func(Engine) error) error
}

// Table suffixes of a service schema
const (
	TracksTable  = "tracks"
	AlbumsTable  = "albums"
	ArtistsTable = "artists"
	GenreTable   = "genre"
)

var prefixPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ValidatePrefix checks that prefix is safe to use in table names.
func ValidatePrefix(prefix string) error {
	if !prefixPattern.MatchString(prefix) {
		return fmt.Errorf("%w: %q", ErrInvalidPrefix, prefix)
	}
	return nil
}

// TableName returns the full name of a service table, e.g. magnatune_tracks.
func TableName(prefix, table string) string {
	return prefix + "_" + table
}

// ServiceStatus contains row counts for one service schema
type ServiceStatus struct {
	Prefix        string
	SchemaVersion string
	Tracks        int
	Albums        int
	Artists       int
	Genres        int
}
