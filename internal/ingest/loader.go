package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/servicecache/internal/storage"
)

// ErrLoadInProgress is returned when a Loader is already loading
var ErrLoadInProgress = errors.New("load already in progress")

// Config contains configuration for a load
type Config struct {
	Workers   int // Number of concurrent track workers (default: runtime.NumCPU())
	BatchSize int // Number of tracks per batch (default: 100)
}

// Statistics contains statistics about a load
type Statistics struct {
	Artists       int
	Albums        int
	Genres        int
	Tracks        int
	TracksFailed  int
	Duration      time.Duration
	ErrorMessages []string
}

// serviceEnsurer is implemented by engines that can create service tables
type serviceEnsurer interface {
	EnsureService(ctx context.Context, prefix string) error
}

// Loader inserts catalogs into one service's tables
type Loader struct {
	engine storage.Engine
	prefix string
	logger *slog.Logger
	lock   loadLock
}

// New creates a loader for the service with the given table prefix.
func New(engine storage.Engine, prefix string, logger *slog.Logger) (*Loader, error) {
	if err := storage.ValidatePrefix(prefix); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		engine: engine,
		prefix: prefix,
		logger: logger.With("prefix", prefix),
	}, nil
}

// keyIDs maps catalog keys to row ids
type keyIDs map[string]int64

// Load inserts cat. cfg may be nil and is not modified.
func (l *Loader) Load(ctx context.Context, cat *Catalog, cfg *Config) (*Statistics, error) {
	if !l.lock.TryAcquire() {
		return nil, ErrLoadInProgress
	}
	defer l.lock.Release()

	c := Config{}
	if cfg != nil {
		c = *cfg
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}

	if err := cat.Validate(); err != nil {
		return nil, err
	}

	if e, ok := l.engine.(serviceEnsurer); ok {
		if err := e.EnsureService(ctx, l.prefix); err != nil {
			return nil, fmt.Errorf("failed to prepare service tables: %w", err)
		}
	}

	startTime := time.Now()
	stats := &Statistics{ErrorMessages: make([]string, 0)}

	// Artists and albums commit together; tracks follow and may fail one by one.
	var artists, albums keyIDs
	err := l.inTx(ctx, func(e storage.Engine) error {
		var err error
		if artists, err = l.insertArtists(ctx, e, cat.Artists); err != nil {
			return err
		}
		albums, stats.Genres, err = l.insertAlbums(ctx, e, cat.Albums, artists)
		return err
	})
	if err != nil {
		return nil, err
	}
	stats.Artists = len(artists)
	stats.Albums = len(albums)

	if err := l.insertTracks(ctx, cat.Tracks, albums, artists, &c, stats); err != nil {
		return nil, fmt.Errorf("failed to insert tracks: %w", err)
	}

	stats.Duration = time.Since(startTime)
	l.logger.Info("catalog loaded",
		"artists", stats.Artists,
		"albums", stats.Albums,
		"genres", stats.Genres,
		"tracks", stats.Tracks,
		"failed", stats.TracksFailed,
		"duration", stats.Duration)
	return stats, nil
}

func (l *Loader) table(name string) string {
	return storage.TableName(l.prefix, name)
}

func (l *Loader) quote(s string) string {
	return "'" + l.engine.Escape(s) + "'"
}

// inTx runs fn in a transaction when the engine supports one.
func (l *Loader) inTx(ctx context.Context, fn func(storage.Engine) error) error {
	if tx, ok := l.engine.(storage.Transactor); ok {
		return tx.WithTx(ctx, fn)
	}
	return fn(l.engine)
}

func (l *Loader) insertArtists(ctx context.Context, e storage.Engine, artists []CatalogArtist) (keyIDs, error) {
	table := l.table(storage.ArtistsTable)
	ids := make(keyIDs, len(artists))
	for _, a := range artists {
		stmt := fmt.Sprintf("INSERT INTO %s (name, description) VALUES (%s, %s)",
			table, l.quote(a.Name), l.quote(a.Description))
		id, err := e.Insert(ctx, stmt, table)
		if err != nil {
			return nil, fmt.Errorf("failed to insert artist %q: %w", a.Key, err)
		}
		ids[a.Key] = id
	}
	return ids, nil
}

// insertAlbums inserts albums and their genres and returns the album ids and
// the number of genre rows.
func (l *Loader) insertAlbums(ctx context.Context, e storage.Engine, albums []CatalogAlbum, artists keyIDs) (keyIDs, int, error) {
	albumTable := l.table(storage.AlbumsTable)
	genreTable := l.table(storage.GenreTable)

	ids := make(keyIDs, len(albums))
	genres := 0
	for _, a := range albums {
		artist := "NULL"
		if a.Artist != "" {
			id, ok := artists[a.Artist]
			if !ok {
				return nil, 0, fmt.Errorf("album %q references unknown artist %q", a.Key, a.Artist)
			}
			artist = fmt.Sprint(id)
		}
		compilation := 0
		if a.Compilation {
			compilation = 1
		}

		stmt := fmt.Sprintf("INSERT INTO %s (name, description, artist_id, is_compilation) VALUES (%s, %s, %s, %d)",
			albumTable, l.quote(a.Name), l.quote(a.Description), artist, compilation)
		albumID, err := e.Insert(ctx, stmt, albumTable)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to insert album %q: %w", a.Key, err)
		}
		ids[a.Key] = albumID

		for _, g := range a.Genres {
			g = strings.TrimSpace(g)
			if g == "" {
				continue
			}
			stmt := fmt.Sprintf("INSERT INTO %s (name, album_id) VALUES (%s, %d)", genreTable, l.quote(g), albumID)
			if _, err := e.Insert(ctx, stmt, genreTable); err != nil {
				return nil, 0, fmt.Errorf("failed to insert genre %q of album %q: %w", g, a.Key, err)
			}
			genres++
		}
	}
	return ids, genres, nil
}

// insertTracks inserts tracks in batches processed concurrently
func (l *Loader) insertTracks(ctx context.Context, tracks []CatalogTrack, albums, artists keyIDs, cfg *Config, stats *Statistics) error {
	// Create worker pool with semaphore
	semaphore := make(chan struct{}, cfg.Workers)

	var inserted, failed int32
	var mu sync.Mutex // Protect stats.ErrorMessages

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < len(tracks); i += cfg.BatchSize {
		end := min(i+cfg.BatchSize, len(tracks))
		batch := tracks[i:end]

		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case semaphore <- struct{}{}:
				// Acquire semaphore
			}
			defer func() { <-semaphore }()

			for _, t := range batch {
				if err := l.insertTrack(gctx, t, albums, artists); err != nil {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					atomic.AddInt32(&failed, 1)
					mu.Lock()
					stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s: %v", t.Name, err))
					mu.Unlock()
					continue
				}
				atomic.AddInt32(&inserted, 1)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	stats.Tracks = int(inserted)
	stats.TracksFailed = int(failed)
	return nil
}

func (l *Loader) insertTrack(ctx context.Context, t CatalogTrack, albums, artists keyIDs) error {
	albumID, ok := albums[t.Album]
	if !ok {
		return fmt.Errorf("unknown album %q", t.Album)
	}
	artistID, ok := artists[t.Artist]
	if !ok {
		return fmt.Errorf("unknown artist %q", t.Artist)
	}

	table := l.table(storage.TracksTable)
	stmt := fmt.Sprintf("INSERT INTO %s (name, track_number, disc_number, length, preview_url, album_id, artist_id) VALUES (%s, %d, %d, %d, %s, %d, %d)",
		table, l.quote(t.Name), t.TrackNumber, t.DiscNumber, t.Length, l.quote(t.URL), albumID, artistID)
	_, err := l.engine.Insert(ctx, stmt, table)
	return err
}
