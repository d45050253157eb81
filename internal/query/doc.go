// Package query builds and runs collection queries.
//
// A Builder is configured fluently: choose the entity kind once, add match
// and filter predicates (optionally grouped with BeginAnd / BeginOr /
// EndAndOr), ordering and a row limit, then Run. The rendered statement joins
// service tables only when one of their columns is referenced.
//
//	job := c.QueryMaker().
//		SetQueryType(types.KindTrack).
//		AddMatchArtist(artist).
//		AddFilter(query.FieldTitle, "song", false, false).
//		Run(ctx)
//	res, ok := job.Wait(ctx)
//
// Results are resolved through the collection's registry, so the same id
// always yields the same entity instance.
package query
