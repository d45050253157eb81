package factory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/servicecache/internal/storage"
	"github.com/dshills/servicecache/pkg/types"
)

func TestNewSQLFactory(t *testing.T) {
	f, err := NewSQLFactory("magnatune")
	require.NoError(t, err)
	assert.Equal(t, "magnatune", f.Prefix())

	_, err = NewSQLFactory("Bad Prefix")
	assert.ErrorIs(t, err, storage.ErrInvalidPrefix)
}

func TestWidthMatchesColumns(t *testing.T) {
	f, err := NewSQLFactory("magnatune")
	require.NoError(t, err)

	for _, kind := range types.AllKinds {
		assert.Equal(t, len(f.Columns(kind)), f.Width(kind), "kind %s", kind)
	}
	assert.Zero(t, f.Width(types.KindComposer))
	assert.Zero(t, f.Width(types.KindNone))
}

func TestColumnsAreCopies(t *testing.T) {
	f, _ := NewSQLFactory("magnatune")
	cols := f.Columns(types.KindTrack)
	cols[0] = "mutated"
	assert.Equal(t, "id", f.Columns(types.KindTrack)[0])
}

func TestCreateTrack(t *testing.T) {
	f, _ := NewSQLFactory("magnatune")
	track := f.CreateTrack([]string{"7", "Song One", "3", "1", "245", "http://magnatune.com/7.mp3", "2", "5"})

	assert.Equal(t, int64(7), track.ID())
	assert.Equal(t, "Song One", track.Name())
	assert.Equal(t, 3, track.TrackNumber())
	assert.Equal(t, 1, track.DiscNumber())
	assert.Equal(t, 245*time.Second, track.Length())
	assert.Equal(t, "http://magnatune.com/7.mp3", track.URL())
	assert.Equal(t, int64(2), track.AlbumID())
	assert.Equal(t, int64(5), track.ArtistID())
	assert.Nil(t, track.Album())
}

func TestCreateAlbum(t *testing.T) {
	f, _ := NewSQLFactory("magnatune")

	album := f.CreateAlbum([]string{"2", "Best Of", "liner notes", "", "1"})
	assert.Equal(t, int64(2), album.ID())
	assert.Equal(t, "Best Of", album.Name())
	assert.Equal(t, "liner notes", album.Description())
	assert.Zero(t, album.AlbumArtistID())
	assert.True(t, album.IsCompilation())

	album = f.CreateAlbum([]string{"3", "Debut", "", "9", "0"})
	assert.Equal(t, int64(9), album.AlbumArtistID())
	assert.False(t, album.IsCompilation())
}

func TestCreateArtistAndGenre(t *testing.T) {
	f, _ := NewSQLFactory("magnatune")

	artist := f.CreateArtist([]string{"5", "Test Artist", "bio"})
	assert.Equal(t, int64(5), artist.ID())
	assert.Equal(t, "bio", artist.Description())

	genre := f.CreateGenre([]string{"11", "Rock", "2"})
	assert.Equal(t, int64(11), genre.ID())
	assert.Equal(t, "Rock", genre.Name())
	assert.Equal(t, int64(2), genre.AlbumID())
}

func TestParseID(t *testing.T) {
	assert.Equal(t, int64(42), ParseID("42"))
	assert.Zero(t, ParseID(""))
	assert.Zero(t, ParseID("abc"))
	assert.Zero(t, ParseID("-1"))
}

func TestTableFor(t *testing.T) {
	assert.Equal(t, "magnatune_tracks", TableFor("magnatune", types.KindTrack))
	assert.Equal(t, "magnatune_genre", TableFor("magnatune", types.KindGenre))
	assert.Empty(t, TableFor("magnatune", types.KindYear))
}
