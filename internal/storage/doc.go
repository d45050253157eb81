// Package storage provides the relational engine that service collections
// read from.
//
// Collections consume storage through the narrow Engine contract:
//
//	rows, err := engine.Query(ctx, "SELECT id, name FROM magnatune_artists")
//	// rows is a flat buffer: row0col0, row0col1, row1col0, ...
//
//	id, err := engine.Insert(ctx, "INSERT INTO magnatune_artists (name) VALUES ('Kiss')", "magnatune_artists")
//
//	quoted := engine.Escape("Guns N' Roses") // Guns N'' Roses
//
// Query returns every column as text. NULL columns (for example the genre
// columns of an album without a genre row) come back as empty strings, so a
// result of N rows by C columns is always exactly N*C strings long.
//
// # Service Schema
//
// Every service owns a table prefix. EnsureService creates the four service
// tables for a prefix and applies pending migrations:
//
//	<prefix>_artists  (id, name, description)
//	<prefix>_albums   (id, name, description, artist_id, is_compilation)
//	<prefix>_genre    (id, name, album_id)
//	<prefix>_tracks   (id, name, track_number, disc_number, length,
//	                   preview_url, album_id, artist_id)
//
// Prefixes must match ^[a-z][a-z0-9_]*$ because they are spliced into SQL.
//
// # Build Tags
//
// Pure Go build (default):
//
//   - Uses modernc.org/sqlite
//
//   - No C compiler needed
//
//     CGO_ENABLED=0 go build ./...
//
// CGO build (sqlite_cgo tag):
//
//   - Uses github.com/mattn/go-sqlite3
//
//     CGO_ENABLED=1 go build -tags "sqlite_cgo" ./...
package storage
