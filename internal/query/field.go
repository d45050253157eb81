package query

import (
	"fmt"
	"strings"

	"github.com/dshills/servicecache/pkg/types"
)

// Field names a filterable or sortable column.
type Field string

const (
	FieldTitle       Field = "title"
	FieldArtist      Field = "artist"
	FieldAlbum       Field = "album"
	FieldGenre       Field = "genre"
	FieldURL         Field = "url"
	FieldTrackNumber Field = "track_number"
	FieldDiscNumber  Field = "disc_number"
	FieldLength      Field = "length"
)

type column struct {
	kind    types.Kind
	name    string
	numeric bool
}

var fieldColumns = map[Field]column{
	FieldTitle:       {types.KindTrack, "name", false},
	FieldArtist:      {types.KindArtist, "name", false},
	FieldAlbum:       {types.KindAlbum, "name", false},
	FieldGenre:       {types.KindGenre, "name", false},
	FieldURL:         {types.KindTrack, "preview_url", false},
	FieldTrackNumber: {types.KindTrack, "track_number", true},
	FieldDiscNumber:  {types.KindTrack, "disc_number", true},
	FieldLength:      {types.KindTrack, "length", true},
}

// ParseField converts a field name, case-insensitively.
func ParseField(s string) (Field, error) {
	f := Field(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := fieldColumns[f]; !ok {
		return "", fmt.Errorf("unknown field %q", s)
	}
	return f, nil
}

// Numeric reports whether the field holds a number.
func (f Field) Numeric() bool {
	return fieldColumns[f].numeric
}

// Compare is the operator of a number filter.
type Compare int

const (
	Equals Compare = iota
	GreaterThan
	LessThan
)

// operator returns the SQL operator, inverted for exclusion filters.
func (c Compare) operator(exclude bool) string {
	switch c {
	case GreaterThan:
		if exclude {
			return "<="
		}
		return ">"
	case LessThan:
		if exclude {
			return ">="
		}
		return "<"
	}
	if exclude {
		return "<>"
	}
	return "="
}

// AlbumQueryMode restricts results by the album compilation flag.
type AlbumQueryMode int

const (
	AllAlbums AlbumQueryMode = iota
	OnlyCompilations
	OnlyNormalAlbums
)

// State is the lifecycle state of a Builder.
type State int

const (
	Unconfigured State = iota
	TypeSet
	Configuring
	Executing
	Delivered
	Aborted
)

func (s State) String() string {
	switch s {
	case Unconfigured:
		return "unconfigured"
	case TypeSet:
		return "type-set"
	case Configuring:
		return "configuring"
	case Executing:
		return "executing"
	case Delivered:
		return "delivered"
	case Aborted:
		return "aborted"
	}
	return fmt.Sprintf("state(%d)", int(s))
}
