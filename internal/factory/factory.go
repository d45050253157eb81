// Package factory describes how service result rows map onto entities.
//
// A Factory enumerates, per entity kind, the ordered list of columns a query
// must return and builds an entity from exactly that many strings. Query
// builders use the column lists to render return clauses and decoders use the
// widths to slice flat result buffers, so the two must stay in lock-step.
package factory

import (
	"strconv"
	"time"

	"github.com/dshills/servicecache/internal/storage"
	"github.com/dshills/servicecache/pkg/types"
)

// Factory builds entities of one service from row slices.
type Factory interface {
	// Prefix returns the table prefix of the service.
	Prefix() string

	// Columns returns the ordered, unqualified columns of kind.
	Columns(kind types.Kind) []string

	// Width returns len(Columns(kind)); 0 for kinds the service does not hydrate.
	Width(kind types.Kind) int

	CreateTrack(row []string) *types.Track
	CreateAlbum(row []string) *types.Album
	CreateArtist(row []string) *types.Artist
	CreateGenre(row []string) *types.Genre
}

var (
	trackColumns  = []string{"id", "name", "track_number", "disc_number", "length", "preview_url", "album_id", "artist_id"}
	albumColumns  = []string{"id", "name", "description", "artist_id", "is_compilation"}
	artistColumns = []string{"id", "name", "description"}
	genreColumns  = []string{"id", "name", "album_id"}
)

// SQLFactory is the Factory for services stored with the standard schema
// created by storage.EnsureService.
type SQLFactory struct {
	prefix string
}

// NewSQLFactory returns a factory for the given table prefix.
func NewSQLFactory(prefix string) (*SQLFactory, error) {
	if err := storage.ValidatePrefix(prefix); err != nil {
		return nil, err
	}
	return &SQLFactory{prefix: prefix}, nil
}

func (f *SQLFactory) Prefix() string {
	return f.prefix
}

func (f *SQLFactory) Columns(kind types.Kind) []string {
	var cols []string
	switch kind {
	case types.KindTrack:
		cols = trackColumns
	case types.KindAlbum:
		cols = albumColumns
	case types.KindArtist:
		cols = artistColumns
	case types.KindGenre:
		cols = genreColumns
	default:
		return nil
	}
	out := make([]string, len(cols))
	copy(out, cols)
	return out
}

func (f *SQLFactory) Width(kind types.Kind) int {
	switch kind {
	case types.KindTrack:
		return len(trackColumns)
	case types.KindAlbum:
		return len(albumColumns)
	case types.KindArtist:
		return len(artistColumns)
	case types.KindGenre:
		return len(genreColumns)
	}
	return 0
}

// TableFor returns the table holding entities of kind, or "" for kinds
// without a table.
func TableFor(prefix string, kind types.Kind) string {
	switch kind {
	case types.KindTrack:
		return storage.TableName(prefix, storage.TracksTable)
	case types.KindAlbum:
		return storage.TableName(prefix, storage.AlbumsTable)
	case types.KindArtist:
		return storage.TableName(prefix, storage.ArtistsTable)
	case types.KindGenre:
		return storage.TableName(prefix, storage.GenreTable)
	}
	return ""
}

func (f *SQLFactory) CreateTrack(row []string) *types.Track {
	return types.NewTrack(ParseID(row[0]), types.TrackFields{
		Name:        row[1],
		TrackNumber: parseInt(row[2]),
		DiscNumber:  parseInt(row[3]),
		Length:      time.Duration(parseInt(row[4])) * time.Second,
		URL:         row[5],
		AlbumID:     ParseID(row[6]),
		ArtistID:    ParseID(row[7]),
	})
}

func (f *SQLFactory) CreateAlbum(row []string) *types.Album {
	return types.NewAlbum(ParseID(row[0]), types.AlbumFields{
		Name:        row[1],
		Description: row[2],
		ArtistID:    ParseID(row[3]),
		Compilation: parseBool(row[4]),
	})
}

func (f *SQLFactory) CreateArtist(row []string) *types.Artist {
	return types.NewArtist(ParseID(row[0]), types.ArtistFields{
		Name:        row[1],
		Description: row[2],
	})
}

func (f *SQLFactory) CreateGenre(row []string) *types.Genre {
	return types.NewGenre(ParseID(row[0]), types.GenreFields{
		Name:    row[1],
		AlbumID: ParseID(row[2]),
	})
}

// ParseID converts an id column. Empty (NULL) or malformed ids yield 0,
// which callers treat as "no entity".
func ParseID(s string) int64 {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}

func parseInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func parseBool(s string) bool {
	switch s {
	case "1", "true", "TRUE", "t":
		return true
	}
	return false
}
