package query

import (
	"fmt"
	"strings"

	"github.com/dshills/servicecache/internal/decoder"
	"github.com/dshills/servicecache/pkg/types"
)

// join describes how a secondary table attaches to a primary one. via names
// a table that must be joined first.
type join struct {
	kind types.Kind
	via  types.Kind
	on   func(b *Builder) string
}

func eq(b *Builder, lk types.Kind, lcol string, rk types.Kind, rcol string) string {
	return b.qualified(lk, lcol) + " = " + b.qualified(rk, rcol)
}

// joinGraph lists, per primary kind and in emission order, the joinable tables.
var joinGraph = map[types.Kind][]join{
	types.KindTrack: {
		{kind: types.KindAlbum, on: func(b *Builder) string {
			return eq(b, types.KindTrack, "album_id", types.KindAlbum, "id")
		}},
		{kind: types.KindArtist, on: func(b *Builder) string {
			return eq(b, types.KindTrack, "artist_id", types.KindArtist, "id")
		}},
		{kind: types.KindGenre, on: func(b *Builder) string {
			return eq(b, types.KindGenre, "album_id", types.KindTrack, "album_id")
		}},
	},
	types.KindAlbum: {
		{kind: types.KindArtist, on: func(b *Builder) string {
			return eq(b, types.KindAlbum, "artist_id", types.KindArtist, "id")
		}},
		{kind: types.KindTrack, on: func(b *Builder) string {
			return eq(b, types.KindTrack, "album_id", types.KindAlbum, "id")
		}},
		{kind: types.KindGenre, on: func(b *Builder) string {
			return eq(b, types.KindGenre, "album_id", types.KindAlbum, "id")
		}},
	},
	types.KindArtist: {
		{kind: types.KindAlbum, on: func(b *Builder) string {
			return eq(b, types.KindAlbum, "artist_id", types.KindArtist, "id")
		}},
		{kind: types.KindTrack, on: func(b *Builder) string {
			return eq(b, types.KindTrack, "artist_id", types.KindArtist, "id")
		}},
		{kind: types.KindGenre, via: types.KindAlbum, on: func(b *Builder) string {
			return eq(b, types.KindGenre, "album_id", types.KindAlbum, "id")
		}},
	},
	types.KindGenre: {
		{kind: types.KindAlbum, on: func(b *Builder) string {
			return eq(b, types.KindAlbum, "id", types.KindGenre, "album_id")
		}},
		{kind: types.KindTrack, on: func(b *Builder) string {
			return eq(b, types.KindTrack, "album_id", types.KindGenre, "album_id")
		}},
		{kind: types.KindArtist, via: types.KindAlbum, on: func(b *Builder) string {
			return eq(b, types.KindArtist, "id", types.KindAlbum, "artist_id")
		}},
	},
}

// groupColumn is the column results are grouped by, one record per entity.
// Genres group by name because genre rows exist per album.
func groupColumn(kind types.Kind) string {
	if kind == types.KindGenre {
		return "name"
	}
	return "id"
}

// Render returns the statement for the current configuration. It returns an
// empty string when there is nothing to query. Render has no side effects.
func (b *Builder) Render() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.render()
}

func (b *Builder) render() string {
	kind := b.kind
	if !kind.Hydrated() {
		return ""
	}

	referenced := make(map[types.Kind]bool, len(b.referenced)+4)
	for k, v := range b.referenced {
		referenced[k] = v
	}

	// Return columns
	var cols []string
	for _, k := range decoder.RecordKinds(kind) {
		referenced[k] = true
		for _, c := range b.factory.Columns(k) {
			cols = append(cols, b.qualified(k, c))
		}
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(cols, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(b.table(kind))

	// Lazy joins
	graph := joinGraph[kind]
	for _, j := range graph {
		if referenced[j.kind] && j.via != types.KindNone {
			referenced[j.via] = true
		}
	}
	for _, j := range graph {
		if !referenced[j.kind] {
			continue
		}
		fmt.Fprintf(&sb, " LEFT JOIN %s ON %s", b.table(j.kind), j.on(b))
	}

	sb.WriteString(" WHERE 1")
	for _, m := range b.matches {
		sb.WriteString(" AND ")
		sb.WriteString(m)
	}
	if expr, _ := b.root.render(); expr != "" {
		sb.WriteString(" AND (")
		sb.WriteString(expr)
		sb.WriteString(")")
	}
	switch b.albumMode {
	case OnlyCompilations:
		sb.WriteString(" AND " + b.qualified(types.KindAlbum, "is_compilation") + " = 1")
	case OnlyNormalAlbums:
		sb.WriteString(" AND " + b.qualified(types.KindAlbum, "is_compilation") + " = 0")
	}

	sb.WriteString(" GROUP BY ")
	sb.WriteString(b.qualified(kind, groupColumn(kind)))

	if len(b.order) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(b.order, ", "))
	}
	if b.limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", b.limit)
	}
	return sb.String()
}
