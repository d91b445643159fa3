package satellite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// STACClient implements Provider against a STAC API endpoint.
type STACClient struct {
	baseURL string
	name    string
	client  *http.Client
}

// NewSTACClient creates a raw STAC provider client.
func NewSTACClient(name, baseURL string, timeout time.Duration) *STACClient {
	return &STACClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		name:    name,
		client:  &http.Client{Timeout: timeout},
	}
}

// Name identifies this provider in logs and cache keys.
func (c *STACClient) Name() string { return c.name }

func (c *STACClient) SearchScenes(ctx context.Context, req SearchRequest) ([]Scene, error) {
	body := stacSearchRequest{
		Collections: req.Collections,
		Datetime:    fmt.Sprintf("%s/%s", req.Start.UTC().Format(time.RFC3339), req.End.UTC().Format(time.RFC3339)),
		Intersects:  req.Geometry,
		Limit:       100,
	}
	if req.MaxCloudCover > 0 {
		body.Query = map[string]map[string]float64{
			"eo:cloud_cover": {"lte": req.MaxCloudCover},
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", strings.NewReader(string(payload)))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned status %d", ErrSearchFailed, c.name, resp.StatusCode)
	}

	var fc stacFeatureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	return parseFeatures(fc.Features), nil
}

func (c *STACClient) DownloadBand(ctx context.Context, href string, geometry json.RawMessage, outPath string) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, href, nil)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d for %s", ErrDownloadFailed, resp.StatusCode, href)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	f, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(outPath)
		return "", fmt.Errorf("write band: %w", err)
	}

	return outPath, nil
}

func (c *STACClient) HealthCheck(ctx context.Context) bool {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: timeout: %v", ErrProviderUnavailable, err)
	}
	return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
}

// parseFeatures converts STAC features into Scene values.
func parseFeatures(features []stacFeature) []Scene {
	scenes := make([]Scene, 0, len(features))
	for _, f := range features {
		scene := Scene{
			ID:       f.ID,
			Geometry: f.Geometry,
			Assets:   make(map[string]SceneAsset, len(f.Assets)),
		}
		if ts, err := time.Parse(time.RFC3339, f.Properties.Datetime); err == nil {
			scene.Datetime = ts.UTC()
		}
		scene.CloudCover = f.Properties.CloudCover
		scene.Platform = f.Properties.Platform
		if len(f.BBox) >= 4 {
			copy(scene.BBox[:], f.BBox[:4])
		}
		for k, a := range f.Assets {
			scene.Assets[k] = SceneAsset{Href: a.Href, Title: a.Title, Type: a.Type}
		}
		scenes = append(scenes, scene)
	}
	return scenes
}

// --- STAC wire types ---

type stacSearchRequest struct {
	Collections []string                      `json:"collections"`
	Datetime    string                        `json:"datetime"`
	Intersects  json.RawMessage               `json:"intersects,omitempty"`
	Limit       int                           `json:"limit"`
	Query       map[string]map[string]float64 `json:"query,omitempty"`
}

type stacFeatureCollection struct {
	Features []stacFeature `json:"features"`
}

type stacFeature struct {
	ID         string          `json:"id"`
	BBox       []float64       `json:"bbox"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties struct {
		Datetime   string  `json:"datetime"`
		CloudCover float64 `json:"eo:cloud_cover"`
		Platform   string  `json:"platform"`
	} `json:"properties"`
	Assets map[string]struct {
		Href  string `json:"href"`
		Title string `json:"title"`
		Type  string `json:"type"`
	} `json:"assets"`
}

// Compile-time check that STACClient implements Provider.
var _ Provider = (*STACClient)(nil)
