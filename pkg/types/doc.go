// Package types defines the entity graph shared by every service collection.
//
// A service collection mirrors a remote music catalog into local relational
// tables and turns result rows into linked entities:
//
//	track.Album()        // owning album
//	track.Artist()       // performing artist
//	track.Genre()        // genre row of the owning album
//	album.Tracks()       // back-references, in hydration order
//	album.AlbumArtist()  // optional, nil for compilations
//
// Entities are created by a factory and owned by a registry. The registry is
// the only place that decides whether an id is new, so two lookups of the same
// kind and id always yield the same pointer. Cross references are plain
// pointers that stay valid for as long as the owning registry lives.
//
// The id of an entity never changes after construction. Descriptive fields
// (name, numbers, URL, ...) may be updated in place through setters so that
// every holder of the shared pointer observes the change. All accessors are
// safe for concurrent use.
//
// # Kinds
//
// Track, Album, Artist and Genre make up the hydrated graph. Composer and Year
// exist so that query types and result lists can name them, but services do
// not populate them.
package types
