package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrEmptyCatalog is returned when a catalog has no tracks
var ErrEmptyCatalog = errors.New("catalog has no tracks")

// Catalog is a service catalog dump
type Catalog struct {
	Service string          `json:"service,omitempty"`
	Artists []CatalogArtist `json:"artists"`
	Albums  []CatalogAlbum  `json:"albums"`
	Tracks  []CatalogTrack  `json:"tracks"`
}

// CatalogArtist is one artist of a catalog
type CatalogArtist struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// CatalogAlbum is one album of a catalog. Artist is an artist key and may be
// empty for compilations.
type CatalogAlbum struct {
	Key         string   `json:"key"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Artist      string   `json:"artist,omitempty"`
	Compilation bool     `json:"compilation,omitempty"`
	Genres      []string `json:"genres,omitempty"`
}

// CatalogTrack is one track of a catalog. Length is in seconds.
type CatalogTrack struct {
	Name        string `json:"name"`
	TrackNumber int    `json:"track_number,omitempty"`
	DiscNumber  int    `json:"disc_number,omitempty"`
	Length      int    `json:"length,omitempty"`
	URL         string `json:"url"`
	Album       string `json:"album"`
	Artist      string `json:"artist"`
}

// Validate checks the catalog for structural problems that would make
// loading pointless. Tracks with unknown references are not rejected here;
// the loader counts them as failed.
func (c *Catalog) Validate() error {
	if len(c.Tracks) == 0 {
		return ErrEmptyCatalog
	}

	seen := make(map[string]bool, len(c.Artists))
	for _, a := range c.Artists {
		if a.Key == "" {
			return fmt.Errorf("artist %q has no key", a.Name)
		}
		if seen[a.Key] {
			return fmt.Errorf("duplicate artist key %q", a.Key)
		}
		seen[a.Key] = true
	}

	artists := seen
	seen = make(map[string]bool, len(c.Albums))
	for _, a := range c.Albums {
		if a.Key == "" {
			return fmt.Errorf("album %q has no key", a.Name)
		}
		if seen[a.Key] {
			return fmt.Errorf("duplicate album key %q", a.Key)
		}
		if a.Artist != "" && !artists[a.Artist] {
			return fmt.Errorf("album %q references unknown artist %q", a.Key, a.Artist)
		}
		seen[a.Key] = true
	}
	return nil
}

// ParseCatalog decodes a JSON catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return &c, nil
}

// LoadCatalogFile reads and decodes a JSON catalog file.
func LoadCatalogFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return ParseCatalog(data)
}
