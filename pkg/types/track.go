package types

import "time"

// TrackFields holds the descriptive columns of a track row.
type TrackFields struct {
	Name        string
	TrackNumber int
	DiscNumber  int
	Length      time.Duration
	URL         string // Playable URL, also used for URL lookups
	AlbumID     int64
	ArtistID    int64
}

// Track is a playable item of a service catalog.
type Track struct {
	base

	trackNumber int
	discNumber  int
	length      time.Duration
	url         string

	// Foreign ids as read from the row; they never change.
	albumID  int64
	artistID int64

	album  *Album
	artist *Artist
	genre  *Genre
}

// NewTrack constructs an unlinked track.
func NewTrack(id int64, f TrackFields) *Track {
	return &Track{
		base:        base{id: id, name: f.Name},
		trackNumber: f.TrackNumber,
		discNumber:  f.DiscNumber,
		length:      f.Length,
		url:         f.URL,
		albumID:     f.AlbumID,
		artistID:    f.ArtistID,
	}
}

func (t *Track) Kind() Kind { return KindTrack }

func (t *Track) AlbumID() int64 { return t.albumID }
func (t *Track) ArtistID() int64 { return t.artistID }

func (t *Track) TrackNumber() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.trackNumber
}

func (t *Track) DiscNumber() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.discNumber
}

func (t *Track) Length() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.length
}

func (t *Track) URL() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.url
}

func (t *Track) SetTrackNumber(n int) {
	t.mu.Lock()
	t.trackNumber = n
	t.mu.Unlock()
}

func (t *Track) SetDiscNumber(n int) {
	t.mu.Lock()
	t.discNumber = n
	t.mu.Unlock()
}

func (t *Track) SetLength(d time.Duration) {
	t.mu.Lock()
	t.length = d
	t.mu.Unlock()
}

func (t *Track) SetURL(url string) {
	t.mu.Lock()
	t.url = url
	t.mu.Unlock()
}

// Album returns the owning album, or nil if the row carried none.
func (t *Track) Album() *Album {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.album
}

// Artist returns the performing artist, or nil.
func (t *Track) Artist() *Artist {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.artist
}

// Genre returns the genre, or nil.
func (t *Track) Genre() *Genre {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.genre
}

func (t *Track) SetAlbum(a *Album) {
	t.mu.Lock()
	t.album = a
	t.mu.Unlock()
}

func (t *Track) SetArtist(a *Artist) {
	t.mu.Lock()
	t.artist = a
	t.mu.Unlock()
}

func (t *Track) SetGenre(g *Genre) {
	t.mu.Lock()
	t.genre = g
	t.mu.Unlock()
}
