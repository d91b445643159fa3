package jobs

import (
	"context"
	"log/slog"
	"math"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/agromonitor/fieldsight/pkg/models"
)

// warmTiles pre-fetches the AOI's tiles at the configured zoom so the first
// map view is served hot. Fetches run concurrently under a bounded gate;
// failures only affect the aggregate count, never the job outcome, and there
// is no per-tile ordering guarantee.
func (p *Pipeline) warmTiles(ctx context.Context, mosaic string, aoi *models.AOI) {
	tiles := tilesForPoint(aoi.CentroidLat, aoi.CentroidLon, p.tilerCfg.WarmZoom)
	if len(tiles) == 0 {
		return
	}

	var okCount, failCount atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.tilerCfg.WarmWorkers)
	for _, t := range tiles {
		t := t
		g.Go(func() error {
			if err := p.tiler.FetchTile(gctx, mosaic, t.z, t.x, t.y); err != nil {
				failCount.Add(1)
				return nil
			}
			okCount.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	slog.Info("tile cache warmed",
		"aoi_id", aoi.ID, "zoom", p.tilerCfg.WarmZoom,
		"ok", okCount.Load(), "failed", failCount.Load())
}

type tileCoord struct {
	z, x, y int
}

// tilesForPoint returns the 3x3 tile neighborhood around a point in Web
// Mercator tile coordinates.
func tilesForPoint(lat, lon float64, zoom int) []tileCoord {
	if zoom <= 0 || lat < -85 || lat > 85 {
		return nil
	}
	n := 1 << zoom
	x := int(float64(n) * (lon + 180) / 360)
	latRad := lat * math.Pi / 180
	y := int(float64(n) * (1 - math.Log(math.Tan(latRad)+1/math.Cos(latRad))/math.Pi) / 2)

	var tiles []tileCoord
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			tx, ty := x+dx, y+dy
			if tx < 0 || ty < 0 || tx >= n || ty >= n {
				continue
			}
			tiles = append(tiles, tileCoord{z: zoom, x: tx, y: ty})
		}
	}
	return tiles
}
