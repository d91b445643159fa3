package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/agromonitor/fieldsight/internal/satellite"
	"github.com/agromonitor/fieldsight/internal/tiler"
	"github.com/agromonitor/fieldsight/pkg/models"
)

// HandleProcessWeek acquires optical scenes for the AOI week and persists the
// week's index statistics. An empty scene list is a legitimate NO_DATA
// outcome, not a failure: the observation row records it and the job is done.
func (p *Pipeline) HandleProcessWeek(ctx context.Context, job *models.Job) error {
	yw, err := weekPayload(job)
	if err != nil {
		return err
	}

	aoi, err := p.store.GetAOI(ctx, job.AOIID, job.TenantID)
	if err != nil {
		return fmt.Errorf("resolve aoi: %w", err)
	}

	scenes, err := p.provider.SearchScenes(ctx, satellite.SearchRequest{
		Geometry:      aoi.Geometry,
		Start:         WeekStart(yw),
		End:           WeekEnd(yw),
		Collections:   []string{p.satellite.OpticalCollection},
		MaxCloudCover: p.satellite.MaxCloudCover,
	})
	if err != nil {
		// The provider stack absorbs upstream failures; an error here is a
		// programming bug, not an infra condition.
		return fmt.Errorf("search scenes: %w", err)
	}

	now := time.Now().UTC()
	obs := &models.WeeklyObservation{
		ID:              uuid.New(),
		TenantID:        job.TenantID,
		AOIID:           job.AOIID,
		Year:            yw.Year,
		Week:            yw.Week,
		PipelineVersion: p.pipeline.Version,
		SceneCount:      len(scenes),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if len(scenes) == 0 {
		obs.Status = models.ObservationStatusNoData
		slog.Info("no scenes for week, recording NO_DATA",
			"aoi_id", job.AOIID, "year", yw.Year, "week", yw.Week)
		return p.store.UpsertWeeklyObservation(ctx, obs)
	}

	mosaic := mosaicURL(p.satellite.OpticalCollection, scenes)

	ndvi, err := p.tiler.FetchStats(ctx, mosaic, tiler.ExpressionNDVI, aoi.Geometry)
	if err != nil {
		return fmt.Errorf("fetch ndvi stats: %w", err)
	}
	if ndvi == nil {
		// Scenes existed but every pixel was masked; still NO_DATA.
		obs.Status = models.ObservationStatusNoData
		return p.store.UpsertWeeklyObservation(ctx, obs)
	}

	ndre, err := p.tiler.FetchStats(ctx, mosaic, tiler.ExpressionNDRE, aoi.Geometry)
	if err != nil {
		return fmt.Errorf("fetch ndre stats: %w", err)
	}

	obs.Status = models.ObservationStatusOK
	obs.NDVI = ndvi
	obs.NDRE = ndre
	ratio := ndvi.ValidPercent / 100
	obs.ValidPixelRatio = &ratio

	if baseline, ok := p.weeklyBaseline(ctx, job, yw); ok {
		anomaly := ndvi.Mean - baseline
		obs.Baseline = &baseline
		obs.Anomaly = &anomaly
	}

	if err := p.store.UpsertWeeklyObservation(ctx, obs); err != nil {
		return err
	}

	p.warmTiles(ctx, mosaic, aoi)
	return nil
}

// weeklyBaseline is the mean NDVI of the stored trailing window, excluding
// the target week itself.
func (p *Pipeline) weeklyBaseline(ctx context.Context, job *models.Job, yw YearWeek) (float64, bool) {
	prior, err := p.store.ListObservationsThrough(ctx, p.weekKey(job, yw.Previous()), p.pipeline.BaselineWeeks)
	if err != nil {
		slog.Warn("baseline lookup failed", "error", err, "aoi_id", job.AOIID)
		return 0, false
	}

	var sum float64
	var n int
	for _, o := range prior {
		if o.Status != models.ObservationStatusOK || o.NDVI == nil {
			continue
		}
		sum += o.NDVI.Mean
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
