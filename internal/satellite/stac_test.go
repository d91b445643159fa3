package satellite

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func searchRequestFixture() SearchRequest {
	return SearchRequest{
		Geometry:      json.RawMessage(`{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}`),
		Start:         time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC),
		End:           time.Date(2025, 3, 9, 23, 59, 59, 0, time.UTC),
		Collections:   []string{"sentinel-2-l2a"},
		MaxCloudCover: 60,
	}
}

func TestSearchScenes_ValidResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}

		var body struct {
			Collections []string                      `json:"collections"`
			Datetime    string                        `json:"datetime"`
			Limit       int                           `json:"limit"`
			Query       map[string]map[string]float64 `json:"query"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if len(body.Collections) != 1 || body.Collections[0] != "sentinel-2-l2a" {
			t.Errorf("unexpected collections: %v", body.Collections)
		}
		if body.Limit != 100 {
			t.Errorf("limit = %d, want 100", body.Limit)
		}
		if body.Query["eo:cloud_cover"]["lte"] != 60 {
			t.Errorf("unexpected cloud cover query: %v", body.Query)
		}

		w.Write([]byte(`{
			"features": [
				{
					"id": "S2A_20250304",
					"bbox": [115.8, -32.0, 115.9, -31.9],
					"properties": {
						"datetime": "2025-03-04T02:15:00Z",
						"eo:cloud_cover": 12.5,
						"platform": "sentinel-2a"
					},
					"assets": {
						"B04": {"href": "https://example.com/B04.tif", "type": "image/tiff"},
						"B08": {"href": "https://example.com/B08.tif", "type": "image/tiff"}
					}
				}
			]
		}`))
	}))
	defer ts.Close()

	c := NewSTACClient("primary", ts.URL, 5*time.Second)
	scenes, err := c.SearchScenes(context.Background(), searchRequestFixture())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(scenes) != 1 {
		t.Fatalf("scenes = %d, want 1", len(scenes))
	}
	scene := scenes[0]
	if scene.ID != "S2A_20250304" {
		t.Errorf("id = %q", scene.ID)
	}
	if scene.CloudCover != 12.5 {
		t.Errorf("cloud cover = %v, want 12.5", scene.CloudCover)
	}
	if scene.BBox[0] != 115.8 {
		t.Errorf("bbox = %v", scene.BBox)
	}
	if scene.Assets["B08"].Href != "https://example.com/B08.tif" {
		t.Errorf("assets = %+v", scene.Assets)
	}
}

func TestSearchScenes_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	c := NewSTACClient("primary", ts.URL, 5*time.Second)
	_, err := c.SearchScenes(context.Background(), searchRequestFixture())
	if !errors.Is(err, ErrSearchFailed) {
		t.Errorf("expected ErrSearchFailed, got %v", err)
	}
}

func TestSearchScenes_Unreachable(t *testing.T) {
	c := NewSTACClient("primary", "http://127.0.0.1:1", time.Second)
	_, err := c.SearchScenes(context.Background(), searchRequestFixture())
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Errorf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestDownloadBand_WritesFile(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("tiff-bytes"))
	}))
	defer ts.Close()

	c := NewSTACClient("primary", ts.URL, 5*time.Second)
	outPath := filepath.Join(t.TempDir(), "bands", "B04.tif")

	got, err := c.DownloadBand(context.Background(), ts.URL+"/B04.tif", nil, outPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != outPath {
		t.Errorf("path = %q, want %q", got, outPath)
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "tiff-bytes" {
		t.Errorf("file content = %q", data)
	}
}

func TestDownloadBand_NotFound(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	c := NewSTACClient("primary", ts.URL, 5*time.Second)
	_, err := c.DownloadBand(context.Background(), ts.URL+"/missing.tif", nil, filepath.Join(t.TempDir(), "out.tif"))
	if !errors.Is(err, ErrDownloadFailed) {
		t.Errorf("expected ErrDownloadFailed, got %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	c := NewSTACClient("primary", ts.URL, 5*time.Second)
	if !c.HealthCheck(context.Background()) {
		t.Error("expected healthy")
	}

	down := NewSTACClient("primary", "http://127.0.0.1:1", time.Second)
	if down.HealthCheck(context.Background()) {
		t.Error("expected unhealthy")
	}
}
