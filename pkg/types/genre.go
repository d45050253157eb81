package types

// GenreFields holds the columns of a genre row. In service schemas a genre
// row is attached to one album.
type GenreFields struct {
	Name    string
	AlbumID int64
}

// Genre labels the tracks of an album.
type Genre struct {
	base
	tracks trackList

	albumID int64
}

func NewGenre(id int64, f GenreFields) *Genre {
	return &Genre{
		base:    base{id: id, name: f.Name},
		albumID: f.AlbumID,
	}
}

func (g *Genre) Kind() Kind { return KindGenre }
func (g *Genre) AlbumID() int64 { return g.albumID }

func (g *Genre) Tracks() []*Track { return g.tracks.snapshot() }
func (g *Genre) AddTrack(t *Track) { g.tracks.add(t) }
func (g *Genre) HasTrack(t *Track) bool { return g.tracks.contains(t) }
