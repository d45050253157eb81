package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/servicecache/internal/collection"
	"github.com/dshills/servicecache/internal/decoder"
	"github.com/dshills/servicecache/internal/ingest"
	"github.com/dshills/servicecache/internal/query"
	"github.com/dshills/servicecache/internal/storage"
	"github.com/dshills/servicecache/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams    = -32602 // Invalid method parameters
	ErrorCodeInternalError    = -32603 // Internal JSON-RPC error
	ErrorCodeServiceNotFound  = -32001 // No service with that name or prefix
	ErrorCodeIngestInProgress = -32002 // Another catalog load is already running
	ErrorCodeServiceNotReady  = -32003 // Service tables missing
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// handleQueryCollection handles the query_collection tool invocation
func (s *Server) handleQueryCollection(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	// Extract and validate parameters
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	c, err := s.collectionArg(args)
	if err != nil {
		return nil, err
	}

	kind, err := types.ParseKind(getStringDefault(args, "type", ""))
	if err != nil || !kind.Hydrated() {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid type", map[string]interface{}{
			"param":   "type",
			"allowed": []string{"track", "album", "artist", "genre"},
		})
	}

	limit := getIntDefault(args, "limit", defaultLimit)
	if limit < 1 || limit > maxLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("limit must be between 1 and %d", maxLimit), map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	b := c.QueryMaker().SetQueryType(kind).LimitMaxResultSize(limit)

	// Exact-name matches
	if name := getStringDefault(args, "artist", ""); name != "" {
		b.AddMatchArtist(types.NewArtist(0, types.ArtistFields{Name: name}))
	}
	if name := getStringDefault(args, "album", ""); name != "" {
		b.AddMatchAlbum(types.NewAlbum(0, types.AlbumFields{Name: name}))
	}
	if name := getStringDefault(args, "genre", ""); name != "" {
		b.AddMatchGenre(types.NewGenre(0, types.GenreFields{Name: name}))
	}

	if err := applyFilters(b, args); err != nil {
		return nil, err
	}

	switch mode := getStringDefault(args, "albums", "all"); mode {
	case "all":
	case "compilations":
		b.SetAlbumQueryMode(query.OnlyCompilations)
	case "normal":
		b.SetAlbumQueryMode(query.OnlyNormalAlbums)
	default:
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid albums mode", map[string]interface{}{
			"param":   "albums",
			"value":   mode,
			"allowed": []string{"all", "compilations", "normal"},
		})
	}

	if orderBy := getStringDefault(args, "order_by", ""); orderBy != "" {
		if orderBy == "random" {
			b.OrderByRandom()
		} else {
			field, err := query.ParseField(orderBy)
			if err != nil {
				return nil, newMCPError(ErrorCodeInvalidParams, "invalid order_by", map[string]interface{}{
					"param":  "order_by",
					"reason": err.Error(),
				})
			}
			b.OrderBy(field, getBoolDefault(args, "descending", false))
		}
	}

	res := b.Collect(ctx)

	response := map[string]interface{}{
		"service": c.Name(),
		"type":    string(kind),
		"count":   res.Len(),
		"results": describeResult(res),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// applyFilters adds the "filters" argument to b, grouped with OR when
// match_any is set.
func applyFilters(b *query.Builder, args map[string]interface{}) error {
	raw, ok := args["filters"].([]interface{})
	if !ok || len(raw) == 0 {
		return nil
	}

	if getBoolDefault(args, "match_any", false) {
		b.BeginOr()
		defer b.EndAndOr()
	}

	for i, item := range raw {
		f, ok := item.(map[string]interface{})
		if !ok {
			return newMCPError(ErrorCodeInvalidParams, "filter must be an object", map[string]interface{}{
				"param": fmt.Sprintf("filters[%d]", i),
			})
		}
		field, err := query.ParseField(getStringDefault(f, "field", ""))
		if err != nil {
			return newMCPError(ErrorCodeInvalidParams, "invalid filter field", map[string]interface{}{
				"param":   fmt.Sprintf("filters[%d].field", i),
				"allowed": fieldEnum,
			})
		}
		value := getStringDefault(f, "value", "")
		begin := getBoolDefault(f, "match_begin", false)
		end := getBoolDefault(f, "match_end", false)
		if getBoolDefault(f, "exclude", false) {
			b.ExcludeFilter(field, value, begin, end)
		} else {
			b.AddFilter(field, value, begin, end)
		}
	}
	return nil
}

// handleTrackForURL handles the track_for_url tool invocation
func (s *Server) handleTrackForURL(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	url, ok := args["url"].(string)
	if !ok || url == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "url parameter is required", map[string]interface{}{
			"param":  "url",
			"reason": "missing or empty",
		})
	}

	track, owner := s.collections.TrackForURL(ctx, url)
	if track == nil {
		response := map[string]interface{}{
			"found": false,
			"url":   url,
		}
		return mcp.NewToolResultText(formatJSON(response)), nil
	}

	response := map[string]interface{}{
		"found":   true,
		"service": owner.Name(),
		"track":   describeTrack(track),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleCollectionStatus handles the collection_status tool invocation
func (s *Server) handleCollectionStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})

	collections := s.collections.All()
	if name := getStringDefault(args, "service", ""); name != "" {
		c, err := s.collectionArg(args)
		if err != nil {
			return nil, err
		}
		collections = []*collection.Collection{c}
	}

	services := make([]map[string]interface{}, 0, len(collections))
	for _, c := range collections {
		status, err := s.storage.ServiceStatus(ctx, c.Prefix())
		if errors.Is(err, storage.ErrNotFound) {
			return nil, newMCPError(ErrorCodeServiceNotReady, "service tables missing", map[string]interface{}{
				"service": c.Name(),
			})
		}
		if err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
				"error": err.Error(),
			})
		}

		cached := c.Registry().Stats()
		services = append(services, map[string]interface{}{
			"name":           c.Name(),
			"prefix":         c.Prefix(),
			"schema_version": status.SchemaVersion,
			"rows": map[string]interface{}{
				"tracks":  humanize.Comma(int64(status.Tracks)),
				"albums":  humanize.Comma(int64(status.Albums)),
				"artists": humanize.Comma(int64(status.Artists)),
				"genres":  humanize.Comma(int64(status.Genres)),
			},
			"cached": map[string]interface{}{
				"tracks":  humanize.Comma(int64(cached.Tracks)),
				"albums":  humanize.Comma(int64(cached.Albums)),
				"artists": humanize.Comma(int64(cached.Artists)),
				"genres":  humanize.Comma(int64(cached.Genres)),
			},
		})
	}

	jobs := s.executor.Stats()
	response := map[string]interface{}{
		"services": services,
		"queries": map[string]interface{}{
			"submitted": humanize.Comma(jobs.Submitted),
			"delivered": humanize.Comma(jobs.Delivered),
			"discarded": humanize.Comma(jobs.Discarded),
			"pending":   jobs.Pending,
		},
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleIngestCatalog handles the ingest_catalog tool invocation
func (s *Server) handleIngestCatalog(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	c, err := s.collectionArg(args)
	if err != nil {
		return nil, err
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}
	if err := validateCatalogPath(path); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	cat, err := ingest.LoadCatalogFile(path)
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid catalog", map[string]interface{}{
			"error": err.Error(),
		})
	}

	stats, err := s.loaders[c.Prefix()].Load(ctx, cat, &ingest.Config{
		Workers:   s.cfg.Ingest.Workers,
		BatchSize: s.cfg.Ingest.BatchSize,
	})
	if errors.Is(err, ingest.ErrLoadInProgress) {
		return nil, newMCPError(ErrorCodeIngestInProgress, "a catalog load is already running for this service", map[string]interface{}{
			"service": c.Name(),
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "ingest failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Format response
	response := map[string]interface{}{
		"ingested":      true,
		"service":       c.Name(),
		"artists":       stats.Artists,
		"albums":        stats.Albums,
		"genres":        stats.Genres,
		"tracks":        stats.Tracks,
		"tracks_failed": stats.TracksFailed,
		"duration_ms":   stats.Duration.Milliseconds(),
	}

	if len(stats.ErrorMessages) > 0 {
		// Include first few errors
		errorCount := len(stats.ErrorMessages)
		if errorCount > 5 {
			response["errors"] = stats.ErrorMessages[:5]
			response["error_count"] = errorCount
		} else {
			response["errors"] = stats.ErrorMessages
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// collectionArg resolves the "service" argument
func (s *Server) collectionArg(args map[string]interface{}) (*collection.Collection, error) {
	name, ok := args["service"].(string)
	if !ok || name == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "service parameter is required", map[string]interface{}{
			"param":  "service",
			"reason": "missing or empty",
		})
	}
	c, ok := s.collections.Get(name)
	if !ok {
		return nil, newMCPError(ErrorCodeServiceNotFound, "unknown service", map[string]interface{}{
			"param": "service",
			"value": name,
		})
	}
	return c, nil
}

func describeResult(res decoder.Result) []map[string]interface{} {
	ents := res.Entities()
	out := make([]map[string]interface{}, 0, len(ents))
	for _, e := range ents {
		out = append(out, describe(e))
	}
	return out
}

func describe(e types.Entity) map[string]interface{} {
	switch v := e.(type) {
	case *types.Track:
		return describeTrack(v)
	case *types.Album:
		m := map[string]interface{}{
			"id":          v.ID(),
			"name":        v.Name(),
			"compilation": v.IsCompilation(),
			"tracks":      len(v.Tracks()),
		}
		if a := v.AlbumArtist(); a != nil {
			m["album_artist"] = a.Name()
		}
		return m
	}
	return map[string]interface{}{
		"id":   e.ID(),
		"name": e.Name(),
	}
}

func describeTrack(t *types.Track) map[string]interface{} {
	m := map[string]interface{}{
		"id":           t.ID(),
		"title":        t.Name(),
		"track_number": t.TrackNumber(),
		"disc_number":  t.DiscNumber(),
		"length":       t.Length().String(),
		"url":          t.URL(),
	}
	if a := t.Album(); a != nil {
		m["album"] = a.Name()
	}
	if a := t.Artist(); a != nil {
		m["artist"] = a.Name()
	}
	if g := t.Genre(); g != nil {
		m["genre"] = g.Name()
	}
	return m
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validateCatalogPath checks that path is an absolute, readable JSON file
func validateCatalogPath(path string) error {
	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}
	if info.IsDir() {
		return ErrIsDirectory
	}
	if !strings.EqualFold(filepath.Ext(path), ".json") {
		return ErrNotJSON
	}
	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// Validation helpers

var (
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrIsDirectory     = errors.New("path is a directory")
	ErrNotJSON         = errors.New("catalog must be a .json file")
)
