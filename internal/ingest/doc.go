// Package ingest mirrors a service catalog dump into the service's tables.
//
// A Catalog is the JSON export of a remote music service: artists, albums
// (with their genres) and tracks, cross-referenced by service-local keys.
// The Loader inserts it in dependency order through storage.Engine.Insert:
//
//  1. Artists, then albums, then genres, sequentially, recording the row id
//     assigned to every key
//  2. Tracks, in batches processed concurrently by a bounded worker pool
//
// Tracks whose album or artist key cannot be resolved are counted as failed
// and reported in Statistics.ErrorMessages; the load carries on.
//
// # Basic Usage
//
//	cat, err := ingest.LoadCatalogFile("magnatune.json")
//	loader, err := ingest.New(store, "magnatune", logger)
//	stats, err := loader.Load(ctx, cat, nil)
//	fmt.Printf("Loaded %d tracks in %v\n", stats.Tracks, stats.Duration)
//
// Only one load may run per Loader at a time; a concurrent Load returns
// ErrLoadInProgress.
package ingest
