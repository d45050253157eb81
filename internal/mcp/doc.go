// Package mcp implements the Model Context Protocol (MCP) server for servicecache.
//
// The server exposes the configured service collections to MCP clients:
//   - query_collection: Query tracks, albums, artists or genres of one service
//   - track_for_url: Find the track a URL belongs to across all services
//   - collection_status: Row counts, schema version and cache statistics
//   - ingest_catalog: Load a JSON catalog dump into a service
//
// MCP is JSON-RPC 2.0 over stdio; stdout carries protocol messages only.
//
// # Tool: query_collection
//
//	Request:
//	{
//	  "name": "query_collection",
//	  "arguments": {
//	    "service": "magnatune",
//	    "type": "track",
//	    "artist": "Test Artist",
//	    "filters": [{"field": "title", "value": "song"}],
//	    "order_by": "track_number",
//	    "limit": 10
//	  }
//	}
//
//	Response:
//	{
//	  "service": "Magnatune",
//	  "type": "track",
//	  "count": 2,
//	  "results": [
//	    {"id": 1, "title": "Song One", "album": "Test Album", "artist": "Test Artist", ...}
//	  ]
//	}
//
// Filters are combined with AND, or with OR when "match_any" is true.
// Entities returned by successive calls are the same cached instances, so
// cross references stay consistent for the lifetime of the server.
//
// # Tool: track_for_url
//
//	Request:  {"name": "track_for_url", "arguments": {"url": "http://he3.magnatune.com/al1/01.mp3"}}
//	Response: {"found": true, "service": "Magnatune", "track": {...}}
//
// Only services whose prefix occurs in the URL are queried.
//
// # Errors
//
// Tool errors carry JSON-RPC codes: -32602 for invalid parameters, -32603 for
// internal failures, -32001 for an unknown service, -32002 when a catalog load
// is already running and -32003 when a service's tables are missing.
package mcp
