package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/agromonitor/fieldsight/internal/satellite"
	"github.com/agromonitor/fieldsight/internal/tiler"
	"github.com/agromonitor/fieldsight/pkg/models"
)

// HandleProcessTopography computes static DEM-derived statistics for the AOI.
// Topography does not vary week to week, so the job runs once per backfill
// and upserts a single row per AOI.
func (p *Pipeline) HandleProcessTopography(ctx context.Context, job *models.Job) error {
	from, to, err := rangePayload(job)
	if err != nil {
		return err
	}

	aoi, err := p.store.GetAOI(ctx, job.AOIID, job.TenantID)
	if err != nil {
		return fmt.Errorf("resolve aoi: %w", err)
	}

	scenes, err := p.provider.SearchScenes(ctx, satellite.SearchRequest{
		Geometry:    aoi.Geometry,
		Start:       from,
		End:         to,
		Collections: []string{p.satellite.DEMCollection},
	})
	if err != nil {
		return fmt.Errorf("search dem scenes: %w", err)
	}
	if len(scenes) == 0 {
		slog.Info("no dem coverage for aoi", "aoi_id", job.AOIID)
		return nil
	}

	// Keep a local clipped copy of the DEM tile for downstream consumers
	// (report rendering reads it off shared storage).
	if href := demAssetHref(scenes[0]); href != "" {
		outPath := filepath.Join(os.TempDir(), fmt.Sprintf("dem-%s.tif", job.AOIID))
		if _, err := p.provider.DownloadBand(ctx, href, aoi.Geometry, outPath); err != nil {
			slog.Warn("dem download failed, continuing with tiler stats", "error", err, "aoi_id", job.AOIID)
		}
	}

	mosaic := mosaicURL(p.satellite.DEMCollection, scenes)

	elevation, err := p.tiler.FetchStats(ctx, mosaic, tiler.ExpressionElevation, aoi.Geometry)
	if err != nil {
		return fmt.Errorf("fetch elevation stats: %w", err)
	}
	if elevation == nil {
		slog.Info("no valid dem pixels for aoi", "aoi_id", job.AOIID)
		return nil
	}

	slope, err := p.tiler.FetchStats(ctx, mosaic, tiler.ExpressionSlope, aoi.Geometry)
	if err != nil {
		return fmt.Errorf("fetch slope stats: %w", err)
	}

	now := time.Now().UTC()
	asset := &models.TopographyAsset{
		ID:            uuid.New(),
		TenantID:      job.TenantID,
		AOIID:         job.AOIID,
		ElevationMean: elevation.Mean,
		ElevationMin:  elevation.Min,
		ElevationMax:  elevation.Max,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if slope != nil {
		asset.SlopeMean = slope.Mean
	}

	return p.store.UpsertTopographyAsset(ctx, asset)
}

// demAssetHref picks the DEM raster from a scene's asset map, preferring the
// conventional "data" key.
func demAssetHref(scene satellite.Scene) string {
	if a, ok := scene.Assets["data"]; ok {
		return a.Href
	}
	for _, a := range scene.Assets {
		return a.Href
	}
	return ""
}
