package types

// AlbumFields holds the descriptive columns of an album row.
type AlbumFields struct {
	Name        string
	Description string
	ArtistID    int64 // Album artist, 0 when unknown
	Compilation bool
}

// Album groups tracks and optionally references an album artist.
type Album struct {
	base
	tracks trackList

	description string
	artistID    int64
	compilation bool
	albumArtist *Artist
}

// NewAlbum constructs an album without tracks.
func NewAlbum(id int64, f AlbumFields) *Album {
	return &Album{
		base:        base{id: id, name: f.Name},
		description: f.Description,
		artistID:    f.ArtistID,
		compilation: f.Compilation,
	}
}

func (a *Album) Kind() Kind { return KindAlbum }

// AlbumArtistID returns the album artist id read from the row.
func (a *Album) AlbumArtistID() int64 { return a.artistID }

func (a *Album) Description() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.description
}

func (a *Album) SetDescription(d string) {
	a.mu.Lock()
	a.description = d
	a.mu.Unlock()
}

func (a *Album) IsCompilation() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.compilation
}

func (a *Album) SetCompilation(c bool) {
	a.mu.Lock()
	a.compilation = c
	a.mu.Unlock()
}

// AlbumArtist returns the linked album artist, or nil.
func (a *Album) AlbumArtist() *Artist {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.albumArtist
}

func (a *Album) SetAlbumArtist(artist *Artist) {
	a.mu.Lock()
	a.albumArtist = artist
	a.mu.Unlock()
}

// Tracks returns a snapshot of the album's tracks in link order.
func (a *Album) Tracks() []*Track { return a.tracks.snapshot() }

// AddTrack links t to the album. Adding the same track twice is a no-op.
func (a *Album) AddTrack(t *Track) { a.tracks.add(t) }

// HasTrack reports whether t is linked to the album.
func (a *Album) HasTrack(t *Track) bool { return a.tracks.contains(t) }
