// Package collection is the entry point to one service's cached metadata.
package collection

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/servicecache/internal/decoder"
	"github.com/dshills/servicecache/internal/executor"
	"github.com/dshills/servicecache/internal/factory"
	"github.com/dshills/servicecache/internal/query"
	"github.com/dshills/servicecache/internal/registry"
	"github.com/dshills/servicecache/internal/storage"
	"github.com/dshills/servicecache/pkg/types"
)

// DefaultLookupCacheSize bounds the URL lookup memo.
const DefaultLookupCacheSize = 1000

// Options configures a Collection. Zero values select defaults.
type Options struct {
	Executor        *executor.Executor
	Logger          *slog.Logger
	LookupCacheSize int
}

// Collection owns the factory and registry of one service and hands out
// query builders that share them.
type Collection struct {
	name     string
	factory  factory.Factory
	registry *registry.Registry
	engine   storage.Engine
	executor *executor.Executor
	decoder  *decoder.Decoder
	logger   *slog.Logger

	// urls maps a track URL to its track id. Evicting an entry never drops
	// the track from the registry.
	urls *lru.Cache[string, int64]
}

// New creates a collection named name over the service tables of f.
func New(name string, f factory.Factory, engine storage.Engine, opts Options) (*Collection, error) {
	if f == nil || engine == nil {
		return nil, fmt.Errorf("collection %q: factory and engine are required", name)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("collection", name, "prefix", f.Prefix())

	exec := opts.Executor
	if exec == nil {
		exec = executor.New(0, logger)
	}

	size := opts.LookupCacheSize
	if size <= 0 {
		size = DefaultLookupCacheSize
	}
	urls, err := lru.New[string, int64](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create lookup cache: %w", err)
	}

	reg := registry.New(f)
	return &Collection{
		name:     name,
		factory:  f,
		registry: reg,
		engine:   engine,
		executor: exec,
		decoder:  decoder.New(f, reg, logger),
		logger:   logger,
		urls:     urls,
	}, nil
}

// Name returns the collection's display name.
func (c *Collection) Name() string { return c.name }

// Prefix returns the service table prefix.
func (c *Collection) Prefix() string { return c.factory.Prefix() }

// Registry exposes the identity cache.
func (c *Collection) Registry() *registry.Registry { return c.registry }

// QueryMaker returns a new builder bound to this collection. Builders are
// independent and may run concurrently.
func (c *Collection) QueryMaker() *query.Builder {
	return query.New(query.Config{
		Factory:  c.factory,
		Registry: c.registry,
		Engine:   c.engine,
		Executor: c.executor,
		Decoder:  c.decoder,
		Logger:   c.logger,
	})
}

// PossiblyContainsTrack reports whether url could belong to this collection.
// No query is issued.
func (c *Collection) PossiblyContainsTrack(url string) bool {
	return strings.Contains(strings.ToLower(url), strings.ToLower(c.factory.Prefix()))
}

// TrackForURL returns the track whose URL is url, or nil.
func (c *Collection) TrackForURL(ctx context.Context, url string) *types.Track {
	if url == "" || !c.PossiblyContainsTrack(url) {
		return nil
	}

	if id, ok := c.urls.Get(url); ok {
		if t, ok := c.registry.Track(id); ok {
			return t
		}
	}

	res := c.QueryMaker().
		SetQueryType(types.KindTrack).
		AddFilter(query.FieldURL, url, true, true).
		LimitMaxResultSize(1).
		Collect(ctx)
	if len(res.Tracks) == 0 {
		return nil
	}

	t := res.Tracks[0]
	c.urls.Add(url, t.ID())
	return t
}

// Wait blocks until all queries submitted through this collection's
// executor have finished.
func (c *Collection) Wait() {
	c.executor.Wait()
}
