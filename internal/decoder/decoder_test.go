package decoder

import (
	"bytes"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/servicecache/internal/factory"
	"github.com/dshills/servicecache/internal/registry"
	"github.com/dshills/servicecache/pkg/types"
)

func newTestDecoder(t testing.TB, logger *slog.Logger) (*Decoder, *registry.Registry) {
	t.Helper()
	f, err := factory.NewSQLFactory("jamendo")
	require.NoError(t, err)
	reg := registry.New(f)
	return New(f, reg, logger), reg
}

// trackRow is one flat Track query record: track, album, artist, genre.
func trackRow(trackID, albumID, artistID int, title string) []string {
	row := []string{fmt.Sprint(trackID), title, "1", "1", "200", fmt.Sprintf("http://jamendo.com/%d", trackID), fmt.Sprint(albumID), fmt.Sprint(artistID)}
	row = append(row, fmt.Sprint(albumID), fmt.Sprintf("Album %d", albumID), "", fmt.Sprint(artistID), "0")
	row = append(row, fmt.Sprint(artistID), fmt.Sprintf("Artist %d", artistID), "")
	row = append(row, fmt.Sprint(albumID*10), "Jazz", fmt.Sprint(albumID))
	return row
}

func TestRecordWidth(t *testing.T) {
	d, _ := newTestDecoder(t, nil)

	assert.Equal(t, 19, d.RecordWidth(types.KindTrack))
	assert.Equal(t, 8, d.RecordWidth(types.KindAlbum))
	assert.Equal(t, 3, d.RecordWidth(types.KindArtist))
	assert.Equal(t, 3, d.RecordWidth(types.KindGenre))
	assert.Zero(t, d.RecordWidth(types.KindComposer))
	assert.Zero(t, d.RecordWidth(types.KindYear))
}

func TestDecode_TracksPreserveOrder(t *testing.T) {
	d, reg := newTestDecoder(t, nil)

	var rows []string
	rows = append(rows, trackRow(3, 1, 1, "Third")...)
	rows = append(rows, trackRow(1, 1, 1, "First")...)
	rows = append(rows, trackRow(2, 2, 1, "Second")...)

	res := d.Decode(types.KindTrack, rows, false)
	require.Len(t, res.Tracks, 3)
	assert.Equal(t, "Third", res.Tracks[0].Name())
	assert.Equal(t, "First", res.Tracks[1].Name())
	assert.Equal(t, "Second", res.Tracks[2].Name())

	// Shared neighbours resolve to one instance
	assert.Same(t, res.Tracks[0].Artist(), res.Tracks[2].Artist())
	assert.Same(t, res.Tracks[0].Album(), res.Tracks[1].Album())
	assert.NotSame(t, res.Tracks[0].Album(), res.Tracks[2].Album())

	stats := reg.Stats()
	assert.Equal(t, registry.Stats{Tracks: 3, Albums: 2, Artists: 1, Genres: 2}, stats)
}

func TestDecode_IdentityAcrossCalls(t *testing.T) {
	d, _ := newTestDecoder(t, nil)

	first := d.Decode(types.KindTrack, trackRow(7, 1, 1, "Seven"), false)
	second := d.Decode(types.KindTrack, trackRow(7, 1, 1, "Seven"), false)

	require.Len(t, first.Tracks, 1)
	require.Len(t, second.Tracks, 1)
	assert.Same(t, first.Tracks[0], second.Tracks[0])
}

func TestDecode_AlbumsWithArtist(t *testing.T) {
	d, _ := newTestDecoder(t, nil)

	rows := []string{
		"5", "Live", "", "9", "0", "9", "Band", "",
		"6", "Various", "", "", "1", "", "", "",
	}
	res := d.Decode(types.KindAlbum, rows, false)
	require.Len(t, res.Albums, 2)

	require.NotNil(t, res.Albums[0].AlbumArtist())
	assert.Equal(t, "Band", res.Albums[0].AlbumArtist().Name())
	assert.Nil(t, res.Albums[1].AlbumArtist())
	assert.True(t, res.Albums[1].IsCompilation())
}

func TestDecode_ArtistsAndGenres(t *testing.T) {
	d, _ := newTestDecoder(t, nil)

	artists := d.Decode(types.KindArtist, []string{"1", "A", "", "2", "B", ""}, false)
	require.Len(t, artists.Artists, 2)
	assert.Equal(t, "B", artists.Artists[1].Name())

	genres := d.Decode(types.KindGenre, []string{"1", "Rock", "4"}, false)
	require.Len(t, genres.Genres, 1)
	assert.Equal(t, int64(4), genres.Genres[0].AlbumID())
}

func TestDecode_AsData(t *testing.T) {
	d, _ := newTestDecoder(t, nil)

	res := d.Decode(types.KindArtist, []string{"1", "A", "", "2", "B", ""}, true)
	assert.True(t, res.AsData)
	assert.Nil(t, res.Artists)
	require.Len(t, res.Data, 2)
	assert.Equal(t, types.KindArtist, res.Data[0].Kind())
	assert.Equal(t, 2, res.Len())
}

func TestDecode_EmptyIsTyped(t *testing.T) {
	d, _ := newTestDecoder(t, nil)

	res := d.Decode(types.KindAlbum, nil, false)
	assert.Equal(t, types.KindAlbum, res.Kind)
	assert.NotNil(t, res.Albums)
	assert.Empty(t, res.Albums)
	assert.Nil(t, res.Tracks)

	for _, kind := range []types.Kind{types.KindComposer, types.KindYear} {
		res := d.Decode(kind, []string{"1", "x"}, false)
		assert.Equal(t, kind, res.Kind)
		assert.Zero(t, res.Len())
	}
	assert.NotNil(t, d.Decode(types.KindComposer, nil, false).Composers)
	assert.NotNil(t, d.Decode(types.KindYear, nil, false).Years)
}

func TestDecode_WidthMismatchTruncates(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	d, _ := newTestDecoder(t, logger)

	rows := []string{"1", "A", "", "2", "B"}
	res := d.Decode(types.KindArtist, rows, false)

	require.Len(t, res.Artists, 1)
	assert.Equal(t, "A", res.Artists[0].Name())
	assert.Contains(t, buf.String(), "result width mismatch")
}

func TestDecode_SkipsZeroIDs(t *testing.T) {
	d, reg := newTestDecoder(t, nil)

	res := d.Decode(types.KindArtist, []string{"", "ghost", "", "3", "Real", ""}, false)
	require.Len(t, res.Artists, 1)
	assert.Equal(t, int64(3), res.Artists[0].ID())
	assert.Equal(t, 1, reg.Stats().Artists)
}

func TestResultEntities(t *testing.T) {
	d, _ := newTestDecoder(t, nil)

	res := d.Decode(types.KindTrack, trackRow(1, 1, 1, "One"), false)
	ents := res.Entities()
	require.Len(t, ents, 1)
	assert.Equal(t, types.KindTrack, ents[0].Kind())
}
