// Package tiler queries an external raster-statistics service (titiler-style)
// for per-index statistics over an AOI geometry.
package tiler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/agromonitor/fieldsight/pkg/models"
)

// Sentinel errors for tiler failures.
var (
	ErrTilerUnreachable = errors.New("tiler unreachable")
	ErrTilerQueryError  = errors.New("tiler query error")
)

// Index expressions evaluated server-side against mosaic bands.
const (
	ExpressionNDVI = "(B08-B04)/(B08+B04)"
	ExpressionNDRE = "(B08-B05)/(B08+B05)"
	ExpressionRVI  = "4*VH/(VV+VH)"
	ExpressionVVVH = "VV/VH"

	// DEM expressions, resolved server-side against the elevation band.
	ExpressionElevation = "data"
	ExpressionSlope     = "slope"
)

// StatsProvider fetches raster statistics for a geometry. A nil result with a
// nil error means the service computed no valid pixels for the geometry.
type StatsProvider interface {
	FetchStats(ctx context.Context, mosaicURL, expression string, geometry json.RawMessage) (*models.IndexStats, error)
	FetchTile(ctx context.Context, mosaicURL string, z, x, y int) error
}

// HTTPClient implements StatsProvider against the tiler's HTTP API.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a new tiler HTTP client.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) FetchStats(ctx context.Context, mosaicURL, expression string, geometry json.RawMessage) (*models.IndexStats, error) {
	params := url.Values{
		"url":        {mosaicURL},
		"expression": {expression},
		"p":          {"10", "50", "90"},
	}
	u := fmt.Sprintf("%s/statistics?%s", c.baseURL, params.Encode())

	feature, err := json.Marshal(map[string]any{
		"type":       "Feature",
		"geometry":   geometry,
		"properties": map[string]any{},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal geometry feature: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(feature))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTilerUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrTilerQueryError, resp.StatusCode)
	}

	var sr statsResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decoding tiler response: %w", err)
	}

	stats, ok := sr.Properties.Statistics[expression]
	if !ok || stats.ValidPixels == 0 {
		return nil, nil
	}

	return &models.IndexStats{
		Mean:         stats.Mean,
		Min:          stats.Min,
		Max:          stats.Max,
		Std:          stats.Std,
		P10:          stats.Percentile10,
		P50:          stats.Percentile50,
		P90:          stats.Percentile90,
		ValidPixels:  stats.ValidPixels,
		ValidPercent: stats.ValidPercent,
	}, nil
}

// FetchTile requests one tile to warm the tiler's internal cache. The body is
// discarded; only the status matters.
func (c *HTTPClient) FetchTile(ctx context.Context, mosaicURL string, z, x, y int) error {
	params := url.Values{"url": {mosaicURL}}
	u := fmt.Sprintf("%s/tiles/%d/%d/%d?%s", c.baseURL, z, x, y, params.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTilerUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("%w: status %d for tile %d/%d/%d", ErrTilerQueryError, resp.StatusCode, z, x, y)
	}
	return nil
}

// --- tiler response types ---

type statsResponse struct {
	Properties struct {
		Statistics map[string]bandStats `json:"statistics"`
	} `json:"properties"`
}

type bandStats struct {
	Mean         float64 `json:"mean"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	Std          float64 `json:"std"`
	Percentile10 float64 `json:"percentile_10"`
	Percentile50 float64 `json:"percentile_50"`
	Percentile90 float64 `json:"percentile_90"`
	ValidPixels  int     `json:"valid_pixels"`
	ValidPercent float64 `json:"valid_percent"`
}

// Compile-time check that HTTPClient implements StatsProvider.
var _ StatsProvider = (*HTTPClient)(nil)
