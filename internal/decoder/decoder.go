// Package decoder turns flat result buffers into registry-owned entities.
package decoder

import (
	"log/slog"

	"github.com/dshills/servicecache/internal/factory"
	"github.com/dshills/servicecache/internal/registry"
	"github.com/dshills/servicecache/pkg/types"
)

// RecordKinds returns, in column order, the entity kinds one result record of
// a query for kind is made of. Kinds that services do not hydrate have no
// record layout.
func RecordKinds(kind types.Kind) []types.Kind {
	switch kind {
	case types.KindTrack:
		return []types.Kind{types.KindTrack, types.KindAlbum, types.KindArtist, types.KindGenre}
	case types.KindAlbum:
		return []types.Kind{types.KindAlbum, types.KindArtist}
	case types.KindArtist:
		return []types.Kind{types.KindArtist}
	case types.KindGenre:
		return []types.Kind{types.KindGenre}
	}
	return nil
}

// Result is the typed outcome of one query. Exactly one of the typed lists
// matching Kind is non-nil, even when empty, unless AsData is set, in which
// case Data carries the entities instead.
type Result struct {
	Kind   types.Kind
	AsData bool

	Tracks    []*types.Track
	Albums    []*types.Album
	Artists   []*types.Artist
	Genres    []*types.Genre
	Composers []*types.Composer
	Years     []*types.Year

	Data []types.Entity
}

// Empty returns the typed empty result for kind.
func Empty(kind types.Kind, asData bool) Result {
	r := Result{Kind: kind, AsData: asData}
	if asData {
		r.Data = []types.Entity{}
		return r
	}
	switch kind {
	case types.KindTrack:
		r.Tracks = []*types.Track{}
	case types.KindAlbum:
		r.Albums = []*types.Album{}
	case types.KindArtist:
		r.Artists = []*types.Artist{}
	case types.KindGenre:
		r.Genres = []*types.Genre{}
	case types.KindComposer:
		r.Composers = []*types.Composer{}
	case types.KindYear:
		r.Years = []*types.Year{}
	}
	return r
}

// Len returns the number of decoded entities.
func (r Result) Len() int {
	if r.AsData {
		return len(r.Data)
	}
	switch r.Kind {
	case types.KindTrack:
		return len(r.Tracks)
	case types.KindAlbum:
		return len(r.Albums)
	case types.KindArtist:
		return len(r.Artists)
	case types.KindGenre:
		return len(r.Genres)
	case types.KindComposer:
		return len(r.Composers)
	case types.KindYear:
		return len(r.Years)
	}
	return 0
}

// Entities returns the result as untyped entities regardless of AsData.
func (r Result) Entities() []types.Entity {
	if r.AsData {
		return r.Data
	}
	out := make([]types.Entity, 0, r.Len())
	for _, t := range r.Tracks {
		out = append(out, t)
	}
	for _, a := range r.Albums {
		out = append(out, a)
	}
	for _, a := range r.Artists {
		out = append(out, a)
	}
	for _, g := range r.Genres {
		out = append(out, g)
	}
	return out
}

func (r *Result) add(e types.Entity) {
	if r.AsData {
		r.Data = append(r.Data, e)
		return
	}
	switch v := e.(type) {
	case *types.Track:
		r.Tracks = append(r.Tracks, v)
	case *types.Album:
		r.Albums = append(r.Albums, v)
	case *types.Artist:
		r.Artists = append(r.Artists, v)
	case *types.Genre:
		r.Genres = append(r.Genres, v)
	}
}

// Decoder slices result buffers with the factory's widths and resolves every
// record through the registry.
type Decoder struct {
	factory  factory.Factory
	registry *registry.Registry
	logger   *slog.Logger
}

// New creates a decoder. A nil logger means slog.Default().
func New(f factory.Factory, reg *registry.Registry, logger *slog.Logger) *Decoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Decoder{factory: f, registry: reg, logger: logger}
}

// RecordWidth returns the number of columns of one result record for kind.
func (d *Decoder) RecordWidth(kind types.Kind) int {
	width := 0
	for _, k := range RecordKinds(kind) {
		width += d.factory.Width(k)
	}
	return width
}

// Decode converts rows, the flat result of a query for kind, into entities
// preserving row order.
//
// A buffer whose length is not a multiple of the record width means the
// factory and the storage schema disagree. The trailing partial record is
// dropped and a warning is logged; no realignment is attempted.
func (d *Decoder) Decode(kind types.Kind, rows []string, asData bool) Result {
	result := Empty(kind, asData)

	width := d.RecordWidth(kind)
	if width == 0 || len(rows) == 0 {
		return result
	}

	if rem := len(rows) % width; rem != 0 {
		d.logger.Warn("result width mismatch",
			"prefix", d.factory.Prefix(),
			"kind", kind,
			"columns", len(rows),
			"record_width", width,
			"dropped", rem)
	}

	count := len(rows) / width
	for i := 0; i < count; i++ {
		record := rows[i*width : (i+1)*width]
		if e := d.decodeRecord(kind, record); e != nil {
			result.add(e)
		}
	}
	return result
}

// split cuts one record into per-kind slices in RecordKinds order.
func (d *Decoder) split(kind types.Kind, record []string) map[types.Kind][]string {
	parts := make(map[types.Kind][]string, 4)
	offset := 0
	for _, k := range RecordKinds(kind) {
		w := d.factory.Width(k)
		parts[k] = record[offset : offset+w]
		offset += w
	}
	return parts
}

func (d *Decoder) decodeRecord(kind types.Kind, record []string) types.Entity {
	parts := d.split(kind, record)

	switch kind {
	case types.KindTrack:
		if t := d.registry.GetTrack(registry.TrackRecord{
			Track:  parts[types.KindTrack],
			Album:  parts[types.KindAlbum],
			Artist: parts[types.KindArtist],
			Genre:  parts[types.KindGenre],
		}); t != nil {
			return t
		}
	case types.KindAlbum:
		if a := d.registry.GetAlbum(registry.AlbumRecord{
			Album:  parts[types.KindAlbum],
			Artist: parts[types.KindArtist],
		}); a != nil {
			return a
		}
	case types.KindArtist:
		if a := d.registry.GetArtist(parts[types.KindArtist]); a != nil {
			return a
		}
	case types.KindGenre:
		if g := d.registry.GetGenre(parts[types.KindGenre]); g != nil {
			return g
		}
	}
	return nil
}
