package satellite

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/agromonitor/fieldsight/internal/cache"
)

// CachedProvider wraps a provider with a durable snapshot of recent search
// results. Search never returns an error from this layer: a total upstream
// failure falls back to the last cached scene list, or an empty list on a
// cache miss, so downstream jobs can treat "no scenes" as a NO_DATA outcome
// rather than an infrastructure failure.
type CachedProvider struct {
	inner Provider
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedProvider wraps inner with the scene cache.
func NewCachedProvider(inner Provider, c cache.Cache, ttl time.Duration) *CachedProvider {
	return &CachedProvider{inner: inner, cache: c, ttl: ttl}
}

func (p *CachedProvider) SearchScenes(ctx context.Context, req SearchRequest) ([]Scene, error) {
	key := cache.SceneSearchKey(SearchContentHash(req))

	scenes, err := p.inner.SearchScenes(ctx, req)
	if err == nil {
		if data, merr := json.Marshal(scenes); merr == nil {
			if cerr := p.cache.Set(ctx, key, data, p.ttl); cerr != nil {
				slog.Warn("scene cache write failed", "error", cerr)
			}
		}
		return scenes, nil
	}

	slog.Warn("all providers failed, consulting scene cache", "error", err)

	data, found, cerr := p.cache.Get(ctx, key)
	if cerr != nil {
		slog.Warn("scene cache read failed", "error", cerr)
	}
	if found {
		var cached []Scene
		if uerr := json.Unmarshal(data, &cached); uerr == nil {
			slog.Info("serving scenes from cache", "count", len(cached))
			return cached, nil
		}
	}

	return []Scene{}, nil
}

// DownloadBand passes through without consulting the cache; raster payloads
// are not cached at this layer.
func (p *CachedProvider) DownloadBand(ctx context.Context, href string, geometry json.RawMessage, outPath string) (string, error) {
	return p.inner.DownloadBand(ctx, href, geometry, outPath)
}

func (p *CachedProvider) HealthCheck(ctx context.Context) bool {
	return p.inner.HealthCheck(ctx)
}

// SearchContentHash computes a stable content hash of the search parameters.
// Geometry bytes are compacted so formatting differences do not change the key.
func SearchContentHash(req SearchRequest) string {
	collections, _ := json.Marshal(req.Collections)
	geometry := compactJSON(req.Geometry)

	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%.1f|%s",
		collections,
		req.Start.UTC().Format(time.RFC3339),
		req.End.UTC().Format(time.RFC3339),
		req.MaxCloudCover,
		geometry)
	return fmt.Sprintf("%x", h.Sum(nil))
}

func compactJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	out, err := json.Marshal(v)
	if err != nil {
		return string(raw)
	}
	return string(out)
}

var _ Provider = (*CachedProvider)(nil)
