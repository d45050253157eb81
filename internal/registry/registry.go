// Package registry is the identity cache of a service collection.
//
// For every hydrated kind the registry keeps one map from id to the single
// live instance. Lookups either return the cached instance, discarding the
// freshly supplied row, or construct the entity through the factory, link it
// to its neighbours and only then publish it. Entities are never evicted;
// they live as long as the registry.
//
// Each kind is guarded by its own mutex, held for one check-or-insert.
// Nested resolution always takes locks in the order
// track -> album -> artist and track -> genre.
package registry

import (
	"sync"

	"github.com/dshills/servicecache/internal/factory"
	"github.com/dshills/servicecache/pkg/types"
)

// TrackRecord is one track result row split per kind. Album, Artist and
// Genre may be empty slices or carry an empty id when the row has no such
// entity.
type TrackRecord struct {
	Track  []string
	Album  []string
	Artist []string
	Genre  []string
}

// AlbumRecord is one album result row; Artist holds the album artist columns.
type AlbumRecord struct {
	Album  []string
	Artist []string
}

// Stats counts registered entities per kind.
type Stats struct {
	Tracks  int
	Albums  int
	Artists int
	Genres  int
}

// Registry owns every entity hydrated for one service.
type Registry struct {
	factory factory.Factory

	trackMu sync.Mutex
	tracks  map[int64]*types.Track

	albumMu sync.Mutex
	albums  map[int64]*types.Album

	artistMu sync.Mutex
	artists  map[int64]*types.Artist

	genreMu sync.Mutex
	genres  map[int64]*types.Genre
}

// New creates an empty registry building entities with f.
func New(f factory.Factory) *Registry {
	return &Registry{
		factory: f,
		tracks:  make(map[int64]*types.Track),
		albums:  make(map[int64]*types.Album),
		artists: make(map[int64]*types.Artist),
		genres:  make(map[int64]*types.Genre),
	}
}

func rowID(row []string) int64 {
	if len(row) == 0 {
		return 0
	}
	return factory.ParseID(row[0])
}

// GetTrack returns the track of rec, hydrating and linking it on first sight.
// It returns nil when the row carries no track id.
func (r *Registry) GetTrack(rec TrackRecord) *types.Track {
	id := rowID(rec.Track)
	if id == 0 {
		return nil
	}

	r.trackMu.Lock()
	defer r.trackMu.Unlock()

	if track, ok := r.tracks[id]; ok {
		return track
	}

	track := r.factory.CreateTrack(rec.Track)

	artist := r.resolveArtist(rec.Artist)
	album := r.resolveAlbum(rec.Album, artist)
	genre := r.resolveGenre(rec.Genre)

	if album != nil {
		album.AddTrack(track)
		track.SetAlbum(album)
	}
	if artist != nil {
		artist.AddTrack(track)
		track.SetArtist(artist)
	}
	if genre != nil {
		genre.AddTrack(track)
		track.SetGenre(genre)
	}

	r.tracks[id] = track
	return track
}

// GetAlbum returns the album of rec. The album artist is linked when the
// artist columns match the album's artist id.
func (r *Registry) GetAlbum(rec AlbumRecord) *types.Album {
	var artist *types.Artist
	if rowID(rec.Artist) != 0 {
		artist = r.resolveArtist(rec.Artist)
	}
	return r.resolveAlbum(rec.Album, artist)
}

// GetArtist returns the artist of row.
func (r *Registry) GetArtist(row []string) *types.Artist {
	return r.resolveArtist(row)
}

// GetGenre returns the genre of row.
func (r *Registry) GetGenre(row []string) *types.Genre {
	return r.resolveGenre(row)
}

// resolveAlbum looks up or constructs an album. artist is a candidate album
// artist; it is linked only if its id is the album's artist id.
func (r *Registry) resolveAlbum(row []string, artist *types.Artist) *types.Album {
	id := rowID(row)
	if id == 0 {
		return nil
	}

	r.albumMu.Lock()
	defer r.albumMu.Unlock()

	album, ok := r.albums[id]
	if !ok {
		album = r.factory.CreateAlbum(row)
	}
	if artist != nil && album.AlbumArtist() == nil && album.AlbumArtistID() == artist.ID() {
		album.SetAlbumArtist(artist)
	}
	if !ok {
		r.albums[id] = album
	}
	return album
}

func (r *Registry) resolveArtist(row []string) *types.Artist {
	id := rowID(row)
	if id == 0 {
		return nil
	}

	r.artistMu.Lock()
	defer r.artistMu.Unlock()

	if artist, ok := r.artists[id]; ok {
		return artist
	}
	artist := r.factory.CreateArtist(row)
	r.artists[id] = artist
	return artist
}

func (r *Registry) resolveGenre(row []string) *types.Genre {
	id := rowID(row)
	if id == 0 {
		return nil
	}

	r.genreMu.Lock()
	defer r.genreMu.Unlock()

	if genre, ok := r.genres[id]; ok {
		return genre
	}
	genre := r.factory.CreateGenre(row)
	r.genres[id] = genre
	return genre
}

// Track returns the cached track with id, if any.
func (r *Registry) Track(id int64) (*types.Track, bool) {
	r.trackMu.Lock()
	defer r.trackMu.Unlock()
	t, ok := r.tracks[id]
	return t, ok
}

// Album returns the cached album with id, if any.
func (r *Registry) Album(id int64) (*types.Album, bool) {
	r.albumMu.Lock()
	defer r.albumMu.Unlock()
	a, ok := r.albums[id]
	return a, ok
}

// Artist returns the cached artist with id, if any.
func (r *Registry) Artist(id int64) (*types.Artist, bool) {
	r.artistMu.Lock()
	defer r.artistMu.Unlock()
	a, ok := r.artists[id]
	return a, ok
}

// Genre returns the cached genre with id, if any.
func (r *Registry) Genre(id int64) (*types.Genre, bool) {
	r.genreMu.Lock()
	defer r.genreMu.Unlock()
	g, ok := r.genres[id]
	return g, ok
}

// Contains reports whether e is the instance this registry holds for its
// kind and id. Entities built outside the registry, or owned by another
// registry, are not contained even when their ids collide.
func (r *Registry) Contains(e types.Entity) bool {
	if e == nil {
		return false
	}
	switch v := e.(type) {
	case *types.Track:
		if v == nil {
			return false
		}
		cached, ok := r.Track(v.ID())
		return ok && cached == v
	case *types.Album:
		if v == nil {
			return false
		}
		cached, ok := r.Album(v.ID())
		return ok && cached == v
	case *types.Artist:
		if v == nil {
			return false
		}
		cached, ok := r.Artist(v.ID())
		return ok && cached == v
	case *types.Genre:
		if v == nil {
			return false
		}
		cached, ok := r.Genre(v.ID())
		return ok && cached == v
	}
	return false
}

// Stats returns the number of cached entities per kind.
func (r *Registry) Stats() Stats {
	var s Stats
	r.trackMu.Lock()
	s.Tracks = len(r.tracks)
	r.trackMu.Unlock()
	r.albumMu.Lock()
	s.Albums = len(r.albums)
	r.albumMu.Unlock()
	r.artistMu.Lock()
	s.Artists = len(r.artists)
	r.artistMu.Unlock()
	r.genreMu.Lock()
	s.Genres = len(r.genres)
	r.genreMu.Unlock()
	return s
}
