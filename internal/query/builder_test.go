package query

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/servicecache/pkg/types"
)

func whereClause(q string) string {
	start := strings.Index(q, " WHERE ")
	end := strings.Index(q, " GROUP BY ")
	if start < 0 || end < 0 {
		return ""
	}
	return q[start+len(" WHERE ") : end]
}

func TestRender_BooleanGrouping(t *testing.T) {
	h := newHarness(t, &fakeEngine{})

	q := h.builder().
		SetQueryType(types.KindTrack).
		BeginAnd().
		AddFilter(FieldTitle, "a", false, false).
		BeginOr().
		AddFilter(FieldArtist, "X", false, false).
		AddFilter(FieldArtist, "Y", false, false).
		EndAndOr().
		EndAndOr().
		Render()

	assert.Equal(t,
		"1 AND (svc_tracks.name LIKE '%a%' ESCAPE '/' AND (svc_artists.name LIKE '%X%' ESCAPE '/' OR svc_artists.name LIKE '%Y%' ESCAPE '/'))",
		whereClause(q))
}

func TestRender_Idempotent(t *testing.T) {
	h := newHarness(t, &fakeEngine{})

	b := h.builder().
		SetQueryType(types.KindAlbum).
		AddFilter(FieldGenre, "rock", true, false).
		OrderBy(FieldAlbum, true).
		LimitMaxResultSize(10)

	first := b.Render()
	second := b.Render()
	assert.Equal(t, first, second)
	assert.Equal(t, Configuring, b.State())
}

func TestRender_Anchors(t *testing.T) {
	h := newHarness(t, &fakeEngine{})

	tests := []struct {
		name       string
		begin, end bool
		want       string
	}{
		{"contains", false, false, "LIKE '%abc%' ESCAPE '/'"},
		{"begins", true, false, "LIKE 'abc%' ESCAPE '/'"},
		{"ends", false, true, "LIKE '%abc' ESCAPE '/'"},
		{"exact", true, true, "= 'abc'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := h.builder().SetQueryType(types.KindTrack).AddFilter(FieldTitle, "abc", tt.begin, tt.end).Render()
			assert.Contains(t, q, "svc_tracks.name "+tt.want)
		})
	}
}

func TestRender_ExcludeAndNumbers(t *testing.T) {
	h := newHarness(t, &fakeEngine{})

	q := h.builder().
		SetQueryType(types.KindTrack).
		ExcludeFilter(FieldTitle, "live", false, false).
		AddNumberFilter(FieldLength, 300, GreaterThan).
		ExcludeNumberFilter(FieldTrackNumber, 1, Equals).
		ExcludeNumberFilter(FieldDiscNumber, 2, LessThan).
		Render()

	assert.Equal(t,
		"1 AND (svc_tracks.name NOT LIKE '%live%' ESCAPE '/' AND svc_tracks.length > 300 AND svc_tracks.track_number <> 1 AND svc_tracks.disc_number >= 2)",
		whereClause(q))
}

func TestRender_EscapesValues(t *testing.T) {
	h := newHarness(t, &fakeEngine{})

	q := h.builder().
		SetQueryType(types.KindTrack).
		AddFilter(FieldTitle, "it's", false, false).
		AddMatchArtist(types.NewArtist(99, types.ArtistFields{Name: "O'Brien"})).
		Render()

	assert.Contains(t, q, "svc_tracks.name LIKE '%it''s%' ESCAPE '/'")
	assert.Contains(t, q, "svc_artists.name = 'O''Brien'")
}

func TestRender_LikeWildcardsAreLiteral(t *testing.T) {
	h := newHarness(t, &fakeEngine{})

	tests := []struct {
		name       string
		value      string
		begin, end bool
		exclude    bool
		want       string
	}{
		{"underscore", "a_c", false, false, false, "svc_tracks.name LIKE '%a/_c%' ESCAPE '/'"},
		{"percent", "50%", true, false, false, "svc_tracks.name LIKE '50/%%' ESCAPE '/'"},
		{"escape char", "AC/DC", false, true, false, "svc_tracks.name LIKE '%AC//DC' ESCAPE '/'"},
		{"exact keeps wildcards", "a_c", true, true, false, "svc_tracks.name = 'a_c'"},
		{"exact exclude", "50%", true, true, true, "svc_tracks.name <> '50%'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := h.builder().SetQueryType(types.KindTrack)
			if tt.exclude {
				b.ExcludeFilter(FieldTitle, tt.value, tt.begin, tt.end)
			} else {
				b.AddFilter(FieldTitle, tt.value, tt.begin, tt.end)
			}
			assert.Equal(t, "1 AND ("+tt.want+")", whereClause(b.Render()))
		})
	}
}

func TestRender_LazyJoins(t *testing.T) {
	h := newHarness(t, &fakeEngine{})

	t.Run("artist without filters joins nothing", func(t *testing.T) {
		q := h.builder().SetQueryType(types.KindArtist).Render()
		assert.NotContains(t, q, "JOIN")
		assert.Contains(t, q, "FROM svc_artists WHERE 1 GROUP BY svc_artists.id")
	})

	t.Run("genre filter on artists goes through albums", func(t *testing.T) {
		q := h.builder().SetQueryType(types.KindArtist).AddFilter(FieldGenre, "rock", false, false).Render()
		assert.Contains(t, q, "LEFT JOIN svc_albums ON svc_albums.artist_id = svc_artists.id")
		assert.Contains(t, q, "LEFT JOIN svc_genre ON svc_genre.album_id = svc_albums.id")
		assert.NotContains(t, q, "JOIN svc_tracks")
		assert.Less(t, strings.Index(q, "JOIN svc_albums"), strings.Index(q, "JOIN svc_genre"))
	})

	t.Run("artist filter on genres goes through albums", func(t *testing.T) {
		q := h.builder().SetQueryType(types.KindGenre).AddFilter(FieldArtist, "x", false, false).Render()
		assert.Contains(t, q, "LEFT JOIN svc_albums ON svc_albums.id = svc_genre.album_id")
		assert.Contains(t, q, "LEFT JOIN svc_artists ON svc_artists.id = svc_albums.artist_id")
		assert.Less(t, strings.Index(q, "JOIN svc_albums"), strings.Index(q, "JOIN svc_artists"))
		assert.Contains(t, q, "GROUP BY svc_genre.name")
	})

	t.Run("album query always joins artists", func(t *testing.T) {
		q := h.builder().SetQueryType(types.KindAlbum).Render()
		assert.Contains(t, q, "LEFT JOIN svc_artists ON svc_albums.artist_id = svc_artists.id")
		assert.NotContains(t, q, "JOIN svc_tracks")
	})

	t.Run("order by references join", func(t *testing.T) {
		q := h.builder().SetQueryType(types.KindArtist).OrderBy(FieldTitle, false).Render()
		assert.Contains(t, q, "LEFT JOIN svc_tracks ON svc_tracks.artist_id = svc_artists.id")
		assert.Contains(t, q, "ORDER BY svc_tracks.name")
	})
}

func TestRender_OrderLimitAndAlbumMode(t *testing.T) {
	h := newHarness(t, &fakeEngine{})

	q := h.builder().
		SetQueryType(types.KindTrack).
		OrderBy(FieldTrackNumber, true).
		OrderByRandom().
		LimitMaxResultSize(5).
		SetAlbumQueryMode(OnlyCompilations).
		Render()

	assert.True(t, strings.HasSuffix(q, "GROUP BY svc_tracks.id ORDER BY svc_tracks.track_number DESC, RANDOM() LIMIT 5"), q)
	assert.Contains(t, q, "AND svc_albums.is_compilation = 1")

	q = h.builder().SetQueryType(types.KindArtist).SetAlbumQueryMode(OnlyNormalAlbums).Render()
	assert.Contains(t, q, "JOIN svc_albums")
	assert.Contains(t, q, "AND svc_albums.is_compilation = 0")
}

func TestRender_NothingToQuery(t *testing.T) {
	h := newHarness(t, &fakeEngine{})

	assert.Empty(t, h.builder().Render())
	assert.Empty(t, h.builder().SetQueryType(types.KindComposer).Render())
}

func TestSetQueryType_FirstCallWins(t *testing.T) {
	h := newHarness(t, &fakeEngine{})

	b := h.builder()
	assert.Equal(t, Unconfigured, b.State())

	b.SetQueryType(types.KindNone)
	assert.Equal(t, Unconfigured, b.State())

	b.SetQueryType(types.KindAlbum).SetQueryType(types.KindTrack)
	assert.Equal(t, types.KindAlbum, b.QueryType())
	assert.Equal(t, TypeSet, b.State())
	assert.Equal(t, 1, b.Misuses())
}

func TestMisuses(t *testing.T) {
	h := newHarness(t, &fakeEngine{})

	b := h.builder().
		SetQueryType(types.KindTrack).
		EndAndOr().
		AddMatchArtist(nil).
		AddNumberFilter(FieldTitle, 1, Equals).
		AddFilter(Field("bogus"), "x", false, false)

	assert.Equal(t, 4, b.Misuses())
	assert.Equal(t, "1", whereClause(b.Render()))
}

func TestReset(t *testing.T) {
	h := newHarness(t, &fakeEngine{})

	b := h.builder().
		SetQueryType(types.KindTrack).
		AddFilter(FieldTitle, "x", false, false).
		LimitMaxResultSize(3)
	b.Reset()

	assert.Equal(t, Unconfigured, b.State())
	assert.Equal(t, types.KindNone, b.QueryType())
	assert.Empty(t, b.Render())

	q := b.SetQueryType(types.KindArtist).Render()
	assert.NotContains(t, q, "LIMIT")
	assert.Equal(t, "1", whereClause(q))
}

func TestMatch_PrefersIDForResidentEntities(t *testing.T) {
	engine := &fakeEngine{rows: []string{"7", "Resident", ""}}
	h := newHarness(t, engine)

	res := h.builder().SetQueryType(types.KindArtist).Collect(context.Background())
	require.Len(t, res.Artists, 1)
	resident := res.Artists[0]

	q := h.builder().SetQueryType(types.KindTrack).AddMatchArtist(resident).Render()
	assert.Contains(t, q, "svc_artists.id = 7")

	stub := types.NewArtist(7, types.ArtistFields{Name: "Resident"})
	q = h.builder().SetQueryType(types.KindTrack).AddMatchArtist(stub).Render()
	assert.Contains(t, q, "svc_artists.name = 'Resident'")

	genre := types.NewGenre(3, types.GenreFields{Name: "Rock"})
	q = h.builder().SetQueryType(types.KindTrack).AddMatch(genre).Render()
	assert.Contains(t, q, "svc_genre.name = 'Rock'")
}

func TestRun_UnconfiguredIsNoop(t *testing.T) {
	engine := &fakeEngine{}
	h := newHarness(t, engine)

	job := h.builder().Run(context.Background())
	_, ok := job.Wait(context.Background())
	assert.False(t, ok)
	assert.Zero(t, engine.calls.Load())
}

func TestRun_ComposerDeliversTypedEmpty(t *testing.T) {
	engine := &fakeEngine{}
	h := newHarness(t, engine)

	res, ok := h.builder().SetQueryType(types.KindComposer).Run(context.Background()).Wait(context.Background())
	require.True(t, ok)
	assert.Equal(t, types.KindComposer, res.Kind)
	assert.NotNil(t, res.Composers)
	assert.Zero(t, engine.calls.Load())
}

func TestRun_StorageErrorIsTypedEmpty(t *testing.T) {
	engine := &fakeEngine{err: errors.New("disk on fire")}
	h := newHarness(t, engine)

	b := h.builder().SetQueryType(types.KindArtist)
	res, ok := b.Run(context.Background()).Wait(context.Background())
	require.True(t, ok)
	assert.Equal(t, types.KindArtist, res.Kind)
	assert.NotNil(t, res.Artists)
	assert.Empty(t, res.Artists)
	assert.Equal(t, Delivered, b.State())
}

func TestRun_AsData(t *testing.T) {
	engine := &fakeEngine{rows: []string{"1", "A", "", "2", "B", ""}}
	h := newHarness(t, engine)

	res := h.builder().SetQueryType(types.KindArtist).SetReturnResultAsDataPtrs(true).Collect(context.Background())
	assert.True(t, res.AsData)
	assert.Len(t, res.Data, 2)
	assert.Nil(t, res.Artists)
}

func TestAbortQuery_NoDelivery(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	engine := &fakeEngine{rows: []string{"1", "A", ""}, started: started, release: release}
	h := newHarness(t, engine)

	b := h.builder().SetQueryType(types.KindArtist)
	job := b.Run(context.Background())

	<-started
	b.AbortQuery()
	assert.Equal(t, Aborted, b.State())
	close(release)

	_, ok := job.Wait(context.Background())
	assert.False(t, ok)
	assert.Zero(t, h.registry.Stats().Artists, "aborted results are not decoded")
}

func TestRun_QueuesBehindOutstandingRun(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	engine := &fakeEngine{rows: []string{"1", "A", ""}, started: started, release: release}
	h := newHarness(t, engine)

	b := h.builder().SetQueryType(types.KindArtist)
	first := b.Run(context.Background())
	<-started

	second := b.Run(context.Background())
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), engine.calls.Load(), "second run must wait for the first")

	close(release)
	_, ok := first.Wait(context.Background())
	assert.True(t, ok)
	res, ok := second.Wait(context.Background())
	require.True(t, ok)
	assert.Equal(t, int32(2), engine.calls.Load())
	assert.Len(t, res.Artists, 1)
	assert.Equal(t, Delivered, b.State())
}
