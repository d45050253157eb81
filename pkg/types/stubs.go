package types

// Composer is present so that query types and result lists can name it.
// Services do not hydrate composers.
type Composer struct {
	base
	tracks trackList
}

func NewComposer(id int64, name string) *Composer {
	return &Composer{base: base{id: id, name: name}}
}

func (c *Composer) Kind() Kind { return KindComposer }
func (c *Composer) Tracks() []*Track { return c.tracks.snapshot() }
func (c *Composer) AddTrack(t *Track) { c.tracks.add(t) }

// Year mirrors Composer for release years.
type Year struct {
	base
	tracks trackList
}

func NewYear(id int64, name string) *Year {
	return &Year{base: base{id: id, name: name}}
}

func (y *Year) Kind() Kind { return KindYear }
func (y *Year) Tracks() []*Track { return y.tracks.snapshot() }
func (y *Year) AddTrack(t *Track) { y.tracks.add(t) }
