package query

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/dshills/servicecache/internal/decoder"
	"github.com/dshills/servicecache/internal/executor"
	"github.com/dshills/servicecache/internal/factory"
	"github.com/dshills/servicecache/internal/registry"
	"github.com/dshills/servicecache/internal/storage"
	"github.com/dshills/servicecache/pkg/types"
)

// Config wires a Builder to its collection.
type Config struct {
	Factory  factory.Factory
	Registry *registry.Registry
	Engine   storage.Engine
	Executor *executor.Executor
	Decoder  *decoder.Decoder // built from Factory and Registry when nil
	Logger   *slog.Logger
}

// Builder composes one query at a time against a single service.
// All methods are safe for concurrent use and return the builder for chaining.
type Builder struct {
	factory  factory.Factory
	registry *registry.Registry
	engine   storage.Engine
	executor *executor.Executor
	decoder  *decoder.Decoder
	logger   *slog.Logger

	mu sync.Mutex

	state   State
	misuses int

	kind      types.Kind
	asData    bool
	albumMode AlbumQueryMode
	limit     int

	// referenced holds the kinds whose tables predicates or ordering use
	referenced map[types.Kind]bool
	matches    []string
	root       *group
	stack      []*group
	order      []string

	last *executor.Job[decoder.Result]
	jobs []*executor.Job[decoder.Result]
}

// New creates an unconfigured builder.
func New(cfg Config) *Builder {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dec := cfg.Decoder
	if dec == nil {
		dec = decoder.New(cfg.Factory, cfg.Registry, logger)
	}
	exec := cfg.Executor
	if exec == nil {
		exec = executor.New(0, logger)
	}

	b := &Builder{
		factory:  cfg.Factory,
		registry: cfg.Registry,
		engine:   cfg.Engine,
		executor: exec,
		decoder:  dec,
		logger:   logger,
	}
	b.clear()
	return b
}

// clear drops all configuration. Job bookkeeping survives so that a new run
// still queues behind an abandoned one.
func (b *Builder) clear() {
	b.state = Unconfigured
	b.kind = types.KindNone
	b.asData = false
	b.albumMode = AllAlbums
	b.limit = 0
	b.referenced = make(map[types.Kind]bool)
	b.matches = nil
	b.root = newGroup("AND")
	b.stack = []*group{b.root}
	b.order = nil
}

// misuse records a call that was ignored.
func (b *Builder) misuse(op, reason string) {
	b.misuses++
	b.logger.Debug("query builder call ignored", "op", op, "reason", reason, "state", b.state)
}

// touch moves a typed builder into Configuring.
func (b *Builder) touch() {
	if b.kind != types.KindNone {
		b.state = Configuring
	}
}

func (b *Builder) table(kind types.Kind) string {
	return factory.TableFor(b.factory.Prefix(), kind)
}

func (b *Builder) qualified(kind types.Kind, col string) string {
	return b.table(kind) + "." + col
}

func (b *Builder) current() *group {
	return b.stack[len(b.stack)-1]
}

// SetQueryType chooses the entity kind to return. Only the first call that
// sets a kind takes effect; later calls are ignored and counted as misuse.
func (b *Builder) SetQueryType(kind types.Kind) *Builder {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.kind != types.KindNone {
		b.misuse("SetQueryType", "type already set")
		return b
	}
	if kind == types.KindNone {
		return b
	}
	b.kind = kind
	b.state = TypeSet
	return b
}

// QueryType returns the configured kind.
func (b *Builder) QueryType() types.Kind {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.kind
}

// matchOn adds "column = value" preferring the id when the entity is owned by
// this collection's registry.
func (b *Builder) matchOn(op string, kind types.Kind, e types.Entity, byID bool) *Builder {
	b.mu.Lock()
	defer b.mu.Unlock()

	if e == nil {
		b.misuse(op, "nil entity")
		return b
	}

	var pred string
	if byID && b.registry != nil && b.registry.Contains(e) {
		pred = fmt.Sprintf("%s = %d", b.qualified(kind, "id"), e.ID())
	} else {
		pred = fmt.Sprintf("%s = '%s'", b.qualified(kind, "name"), b.engine.Escape(e.Name()))
	}
	b.referenced[kind] = true
	b.matches = append(b.matches, pred)
	b.touch()
	return b
}

// AddMatchTrack restricts results to rows of track.
func (b *Builder) AddMatchTrack(track *types.Track) *Builder {
	if track == nil {
		return b.matchOn("AddMatchTrack", types.KindTrack, nil, true)
	}
	return b.matchOn("AddMatchTrack", types.KindTrack, track, true)
}

// AddMatchArtist restricts results to rows of artist.
func (b *Builder) AddMatchArtist(artist *types.Artist) *Builder {
	if artist == nil {
		return b.matchOn("AddMatchArtist", types.KindArtist, nil, true)
	}
	return b.matchOn("AddMatchArtist", types.KindArtist, artist, true)
}

// AddMatchAlbum restricts results to rows of album.
func (b *Builder) AddMatchAlbum(album *types.Album) *Builder {
	if album == nil {
		return b.matchOn("AddMatchAlbum", types.KindAlbum, nil, true)
	}
	return b.matchOn("AddMatchAlbum", types.KindAlbum, album, true)
}

// AddMatchGenre restricts results to rows of genre. Genres always match by
// name since each genre row belongs to a single album.
func (b *Builder) AddMatchGenre(genre *types.Genre) *Builder {
	if genre == nil {
		return b.matchOn("AddMatchGenre", types.KindGenre, nil, false)
	}
	return b.matchOn("AddMatchGenre", types.KindGenre, genre, false)
}

// AddMatch dispatches on the entity's kind.
func (b *Builder) AddMatch(e types.Entity) *Builder {
	switch v := e.(type) {
	case *types.Track:
		return b.AddMatchTrack(v)
	case *types.Artist:
		return b.AddMatchArtist(v)
	case *types.Album:
		return b.AddMatchAlbum(v)
	case *types.Genre:
		return b.AddMatchGenre(v)
	}
	b.mu.Lock()
	b.misuse("AddMatch", "unsupported entity")
	b.mu.Unlock()
	return b
}

func (b *Builder) substring(op string, field Field, value string, matchBegin, matchEnd, exclude bool) *Builder {
	b.mu.Lock()
	defer b.mu.Unlock()

	col, ok := fieldColumns[field]
	if !ok {
		b.misuse(op, "unknown field")
		return b
	}

	b.current().add(textCondition(b.qualified(col.kind, col.name), b.engine.Escape(value), matchBegin, matchEnd, exclude))
	b.referenced[col.kind] = true
	b.touch()
	return b
}

// AddFilter keeps rows whose field contains value. matchBegin and matchEnd
// anchor value at the start or end; both anchors mean an exact match.
// Unanchored and half-anchored matches ignore ASCII case.
func (b *Builder) AddFilter(field Field, value string, matchBegin, matchEnd bool) *Builder {
	return b.substring("AddFilter", field, value, matchBegin, matchEnd, false)
}

// ExcludeFilter drops rows that AddFilter with the same arguments would keep.
func (b *Builder) ExcludeFilter(field Field, value string, matchBegin, matchEnd bool) *Builder {
	return b.substring("ExcludeFilter", field, value, matchBegin, matchEnd, true)
}

func (b *Builder) number(op string, field Field, value int64, cmp Compare, exclude bool) *Builder {
	b.mu.Lock()
	defer b.mu.Unlock()

	col, ok := fieldColumns[field]
	if !ok || !col.numeric {
		b.misuse(op, "not a numeric field")
		return b
	}
	b.current().add(fmt.Sprintf("%s %s %d", b.qualified(col.kind, col.name), cmp.operator(exclude), value))
	b.referenced[col.kind] = true
	b.touch()
	return b
}

// AddNumberFilter keeps rows whose numeric field compares to value.
func (b *Builder) AddNumberFilter(field Field, value int64, cmp Compare) *Builder {
	return b.number("AddNumberFilter", field, value, cmp, false)
}

// ExcludeNumberFilter keeps rows whose numeric field fails the comparison.
func (b *Builder) ExcludeNumberFilter(field Field, value int64, cmp Compare) *Builder {
	return b.number("ExcludeNumberFilter", field, value, cmp, true)
}

func (b *Builder) begin(op string) *Builder {
	b.mu.Lock()
	defer b.mu.Unlock()

	g := newGroup(op)
	b.current().add(g)
	b.stack = append(b.stack, g)
	b.touch()
	return b
}

// BeginAnd opens a group whose filters must all hold.
func (b *Builder) BeginAnd() *Builder { return b.begin("AND") }

// BeginOr opens a group of which any filter may hold.
func (b *Builder) BeginOr() *Builder { return b.begin("OR") }

// EndAndOr closes the innermost group. Closing with no open group is ignored.
func (b *Builder) EndAndOr() *Builder {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.stack) == 1 {
		b.misuse("EndAndOr", "no open group")
		return b
	}
	b.stack = b.stack[:len(b.stack)-1]
	return b
}

// OrderBy appends a sort key.
func (b *Builder) OrderBy(field Field, descending bool) *Builder {
	b.mu.Lock()
	defer b.mu.Unlock()

	col, ok := fieldColumns[field]
	if !ok {
		b.misuse("OrderBy", "unknown field")
		return b
	}
	key := b.qualified(col.kind, col.name)
	if descending {
		key += " DESC"
	}
	b.order = append(b.order, key)
	b.referenced[col.kind] = true
	b.touch()
	return b
}

// OrderByRandom shuffles results.
func (b *Builder) OrderByRandom() *Builder {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.order = append(b.order, "RANDOM()")
	b.touch()
	return b
}

// LimitMaxResultSize caps the number of returned entities. n <= 0 removes
// the cap.
func (b *Builder) LimitMaxResultSize(n int) *Builder {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n < 0 {
		n = 0
	}
	b.limit = n
	b.touch()
	return b
}

// SetAlbumQueryMode restricts results by album compilation flag.
func (b *Builder) SetAlbumQueryMode(mode AlbumQueryMode) *Builder {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.albumMode = mode
	if mode != AllAlbums {
		b.referenced[types.KindAlbum] = true
	}
	b.touch()
	return b
}

// SetReturnResultAsDataPtrs delivers results as untyped entities instead of
// the kind-specific list.
func (b *Builder) SetReturnResultAsDataPtrs(asData bool) *Builder {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.asData = asData
	return b
}

// Reset returns the builder to its pristine state. Running jobs are
// abandoned, not aborted.
func (b *Builder) Reset() *Builder {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.clear()
	return b
}

// State returns the lifecycle state.
func (b *Builder) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == Executing && b.last != nil {
		select {
		case <-b.last.Done():
			if b.last.Delivered() {
				return Delivered
			}
			return Aborted
		default:
		}
	}
	return b.state
}

// Misuses counts calls that were ignored, such as a second SetQueryType.
func (b *Builder) Misuses() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.misuses
}
