package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/agromonitor/fieldsight/pkg/models"
)

// HandleProcessWeather fetches daily weather history for the AOI centroid
// over the backfill range and bulk-upserts it. Future-dated ranges are
// clamped to the present by the weather client.
func (p *Pipeline) HandleProcessWeather(ctx context.Context, job *models.Job) error {
	from, to, err := rangePayload(job)
	if err != nil {
		return err
	}

	aoi, err := p.store.GetAOI(ctx, job.AOIID, job.TenantID)
	if err != nil {
		return fmt.Errorf("resolve aoi: %w", err)
	}

	history, err := p.weather.FetchHistory(ctx, aoi.CentroidLat, aoi.CentroidLon, from, to)
	if err != nil {
		return fmt.Errorf("fetch weather history: %w", err)
	}
	if history.Clamped {
		slog.Info("weather range clamped to present",
			"aoi_id", job.AOIID, "start", history.Start.Format("2006-01-02"), "end", history.End.Format("2006-01-02"))
	}
	if len(history.Days) == 0 {
		return nil
	}

	return p.store.SaveWeatherDays(ctx, job.TenantID, job.AOIID, history.Days)
}
