package types

import "fmt"

// Kind identifies an entity kind and, for query builders, the query type.
type Kind string

const (
	KindNone     Kind = "none"
	KindTrack    Kind = "track"
	KindAlbum    Kind = "album"
	KindArtist   Kind = "artist"
	KindGenre    Kind = "genre"
	KindComposer Kind = "composer"
	KindYear     Kind = "year"
)

// AllKinds lists every kind a query may ask for, KindNone excluded.
var AllKinds = []Kind{KindTrack, KindAlbum, KindArtist, KindGenre, KindComposer, KindYear}

// ParseKind converts a kind name into a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindNone, KindTrack, KindAlbum, KindArtist, KindGenre, KindComposer, KindYear:
		return k, nil
	}
	return KindNone, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Hydrated reports whether services populate entities of this kind.
func (k Kind) Hydrated() bool {
	switch k {
	case KindTrack, KindAlbum, KindArtist, KindGenre:
		return true
	}
	return false
}

func (k Kind) String() string {
	return string(k)
}

// Entity is implemented by every node of the entity graph.
type Entity interface {
	ID() int64
	Name() string
	Kind() Kind
}
