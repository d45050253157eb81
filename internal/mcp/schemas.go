package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

var fieldEnum = []string{"title", "artist", "album", "genre", "url", "track_number", "disc_number", "length"}

// queryCollectionTool returns the tool definition for query_collection
func queryCollectionTool() mcp.Tool {
	return mcp.Tool{
		Name:        "query_collection",
		Description: "Query tracks, albums, artists or genres of a music service collection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"service": map[string]interface{}{
					"type":        "string",
					"description": "Service name or table prefix (e.g. 'magnatune')",
				},
				"type": map[string]interface{}{
					"type":        "string",
					"description": "Entity kind to return",
					"enum":        []string{"track", "album", "artist", "genre"},
				},
				"artist": map[string]interface{}{
					"type":        "string",
					"description": "Only rows of the artist with this exact name",
				},
				"album": map[string]interface{}{
					"type":        "string",
					"description": "Only rows of the album with this exact name",
				},
				"genre": map[string]interface{}{
					"type":        "string",
					"description": "Only rows of the genre with this exact name",
				},
				"filters": map[string]interface{}{
					"type":        "array",
					"description": "Substring filters on columns",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"field": map[string]interface{}{
								"type": "string",
								"enum": fieldEnum,
							},
							"value": map[string]interface{}{
								"type": "string",
							},
							"match_begin": map[string]interface{}{
								"type":    "boolean",
								"default": false,
							},
							"match_end": map[string]interface{}{
								"type":    "boolean",
								"default": false,
							},
							"exclude": map[string]interface{}{
								"type":    "boolean",
								"default": false,
							},
						},
						"required": []string{"field", "value"},
					},
				},
				"match_any": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, any filter may match instead of all",
					"default":     false,
				},
				"albums": map[string]interface{}{
					"type":        "string",
					"description": "Restrict by compilation flag",
					"enum":        []string{"all", "compilations", "normal"},
					"default":     "all",
				},
				"order_by": map[string]interface{}{
					"type":        "string",
					"description": "Sort field, or 'random'",
					"enum":        append(append([]string{}, fieldEnum...), "random"),
				},
				"descending": map[string]interface{}{
					"type":    "boolean",
					"default": false,
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results (1-500)",
					"default":     50,
					"minimum":     1,
					"maximum":     500,
				},
			},
			Required: []string{"service", "type"},
		},
	}
}

// trackForURLTool returns the tool definition for track_for_url
func trackForURLTool() mcp.Tool {
	return mcp.Tool{
		Name:        "track_for_url",
		Description: "Find the track a playable URL belongs to across all configured services",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"url": map[string]interface{}{
					"type":        "string",
					"description": "Track URL",
				},
			},
			Required: []string{"url"},
		},
	}
}

// collectionStatusTool returns the tool definition for collection_status
func collectionStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "collection_status",
		Description: "Row counts, schema version and cache statistics per service",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"service": map[string]interface{}{
					"type":        "string",
					"description": "Service name or prefix; all services when omitted",
				},
			},
		},
	}
}

// ingestCatalogTool returns the tool definition for ingest_catalog
func ingestCatalogTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ingest_catalog",
		Description: "Load a JSON catalog dump into a service's tables",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"service": map[string]interface{}{
					"type":        "string",
					"description": "Service name or table prefix",
				},
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the catalog JSON file",
				},
			},
			Required: []string{"service", "path"},
		},
	}
}
