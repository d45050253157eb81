package types

// ArtistFields holds the descriptive columns of an artist row.
type ArtistFields struct {
	Name        string
	Description string
}

// Artist is a performer referenced by tracks and albums.
type Artist struct {
	base
	tracks trackList

	description string
}

func NewArtist(id int64, f ArtistFields) *Artist {
	return &Artist{
		base:        base{id: id, name: f.Name},
		description: f.Description,
	}
}

func (a *Artist) Kind() Kind { return KindArtist }

func (a *Artist) Description() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.description
}

func (a *Artist) SetDescription(d string) {
	a.mu.Lock()
	a.description = d
	a.mu.Unlock()
}

func (a *Artist) Tracks() []*Track { return a.tracks.snapshot() }
func (a *Artist) AddTrack(t *Track) { a.tracks.add(t) }
func (a *Artist) HasTrack(t *Track) bool { return a.tracks.contains(t) }
