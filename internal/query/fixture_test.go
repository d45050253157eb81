package query

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dshills/servicecache/internal/executor"
	"github.com/dshills/servicecache/internal/factory"
	"github.com/dshills/servicecache/internal/registry"
	"github.com/dshills/servicecache/internal/storage"
)

const testPrefix = "svc"

// fakeEngine records statements and returns canned rows.
type fakeEngine struct {
	mu      sync.Mutex
	rows    []string
	err     error
	queries []string
	calls   atomic.Int32

	// when set, the next Query signals started and blocks until release is closed
	started chan struct{}
	release chan struct{}
}

func (f *fakeEngine) Query(ctx context.Context, q string) ([]string, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.queries = append(f.queries, q)
	rows, err := f.rows, f.err
	started, release := f.started, f.release
	f.started, f.release = nil, nil
	f.mu.Unlock()

	if started != nil {
		close(started)
		<-release
	}
	return rows, err
}

func (f *fakeEngine) Insert(ctx context.Context, statement, table string) (int64, error) {
	return 0, nil
}

func (f *fakeEngine) Escape(text string) string {
	return strings.ReplaceAll(text, "'", "''")
}

type harness struct {
	factory  *factory.SQLFactory
	registry *registry.Registry
	executor *executor.Executor
	engine   storage.Engine
}

func newHarness(t testing.TB, engine storage.Engine) *harness {
	t.Helper()
	f, err := factory.NewSQLFactory(testPrefix)
	require.NoError(t, err)
	return &harness{
		factory:  f,
		registry: registry.New(f),
		executor: executor.New(4, nil),
		engine:   engine,
	}
}

func (h *harness) builder() *Builder {
	return New(Config{
		Factory:  h.factory,
		Registry: h.registry,
		Engine:   h.engine,
		Executor: h.executor,
	})
}

// setupTestDB creates an in-memory service schema.
func setupTestDB(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.EnsureService(context.Background(), testPrefix))
	return store
}

type fixture struct {
	store *storage.SQLiteStorage
}

func (fx fixture) insert(t *testing.T, table, stmt string, args ...any) int64 {
	t.Helper()
	id, err := fx.store.Insert(context.Background(), fmt.Sprintf(stmt, args...), table)
	require.NoError(t, err)
	return id
}

func (fx fixture) artist(t *testing.T, name string) int64 {
	table := storage.TableName(testPrefix, storage.ArtistsTable)
	return fx.insert(t, table, "INSERT INTO %s (name, description) VALUES ('%s', '')",
		table, fx.store.Escape(name))
}

func (fx fixture) album(t *testing.T, name string, artistID int64, compilation bool) int64 {
	table := storage.TableName(testPrefix, storage.AlbumsTable)
	comp := 0
	if compilation {
		comp = 1
	}
	artist := "NULL"
	if artistID != 0 {
		artist = fmt.Sprint(artistID)
	}
	return fx.insert(t, table, "INSERT INTO %s (name, description, artist_id, is_compilation) VALUES ('%s', '', %s, %d)",
		table, fx.store.Escape(name), artist, comp)
}

func (fx fixture) genre(t *testing.T, name string, albumID int64) int64 {
	table := storage.TableName(testPrefix, storage.GenreTable)
	return fx.insert(t, table, "INSERT INTO %s (name, album_id) VALUES ('%s', %d)",
		table, fx.store.Escape(name), albumID)
}

func (fx fixture) track(t *testing.T, title string, number int, albumID, artistID int64) int64 {
	table := storage.TableName(testPrefix, storage.TracksTable)
	return fx.insert(t, table, "INSERT INTO %s (name, track_number, disc_number, length, preview_url, album_id, artist_id) VALUES ('%s', %d, 1, %d, '%s', %d, %d)",
		table, fx.store.Escape(title), number, 100+number*10,
		fmt.Sprintf("http://svc.example.com/%s.mp3", strings.ReplaceAll(strings.ToLower(title), " ", "_")),
		albumID, artistID)
}

// sqliteHarness returns a harness over a fixture with
//
//	Test Artist / Test Album (Rock): Song One, Other, My Song
//	Someone Else / Elsewhere (Jazz, Blues): Song Two
//	Various / Mix (compilation): Mix A .. Mix E
func sqliteHarness(t *testing.T) (*harness, fixture) {
	t.Helper()
	store := setupTestDB(t)
	fx := fixture{store: store}

	testArtist := fx.artist(t, "Test Artist")
	other := fx.artist(t, "Someone Else")
	various := fx.artist(t, "Various")

	testAlbum := fx.album(t, "Test Album", testArtist, false)
	elsewhere := fx.album(t, "Elsewhere", other, false)
	mix := fx.album(t, "Mix", 0, true)

	fx.genre(t, "Rock", testAlbum)
	fx.genre(t, "Jazz", elsewhere)
	fx.genre(t, "Blues", elsewhere)

	fx.track(t, "Song One", 1, testAlbum, testArtist)
	fx.track(t, "Other", 2, testAlbum, testArtist)
	fx.track(t, "My Song", 3, testAlbum, testArtist)
	fx.track(t, "Song Two", 1, elsewhere, other)
	for i, name := range []string{"Mix A", "Mix B", "Mix C", "Mix D", "Mix E"} {
		fx.track(t, name, i+1, mix, various)
	}

	return newHarness(t, store), fx
}
