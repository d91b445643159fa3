// Package satellite acquires scene metadata and raster bands from imagery
// providers. The exported stack composes a caching decorator over a
// breaker-gated fallback chain over raw STAC clients.
package satellite

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Sentinel errors for provider failures.
var (
	ErrProviderUnavailable = errors.New("satellite provider unavailable")
	ErrSearchFailed        = errors.New("scene search failed")
	ErrDownloadFailed      = errors.New("band download failed")
)

// Scene is one catalog item returned by a scene search.
type Scene struct {
	ID         string                `json:"id"`
	Datetime   time.Time             `json:"datetime"`
	CloudCover float64               `json:"cloud_cover"`
	Platform   string                `json:"platform"`
	BBox       [4]float64            `json:"bbox"`
	Geometry   json.RawMessage       `json:"geometry,omitempty"`
	Assets     map[string]SceneAsset `json:"assets"`
}

// SceneAsset is a downloadable band or file attached to a scene.
type SceneAsset struct {
	Href  string `json:"href"`
	Title string `json:"title,omitempty"`
	Type  string `json:"type,omitempty"`
}

// SearchRequest defines parameters for a scene search.
type SearchRequest struct {
	Geometry      json.RawMessage
	Start         time.Time
	End           time.Time
	Collections   []string
	MaxCloudCover float64
}

// Provider is the raw satellite data capability. Never call concrete
// providers directly from jobs; inject the composed stack.
type Provider interface {
	// SearchScenes returns catalog items matching the request.
	SearchScenes(ctx context.Context, req SearchRequest) ([]Scene, error)
	// DownloadBand fetches one asset href clipped to the geometry and writes
	// it to outPath, returning the written path.
	DownloadBand(ctx context.Context, href string, geometry json.RawMessage, outPath string) (string, error)
	// HealthCheck reports whether the provider endpoint is reachable.
	HealthCheck(ctx context.Context) bool
}
