package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/agromonitor/fieldsight/internal/analysis"
	"github.com/agromonitor/fieldsight/internal/store"
	"github.com/agromonitor/fieldsight/pkg/models"
)

// HandleForecastWeek estimates season yield for the AOI. No active season or
// too few observations is a NO_DATA outcome: the job completes without a
// forecast row.
func (p *Pipeline) HandleForecastWeek(ctx context.Context, job *models.Job) error {
	yw, err := weekPayload(job)
	if err != nil {
		return err
	}

	season, err := p.store.GetActiveSeason(ctx, job.TenantID, job.AOIID)
	if errors.Is(err, store.ErrNotFound) {
		slog.Info("no active season, skipping forecast",
			"aoi_id", job.AOIID, "year", yw.Year, "week", yw.Week)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load active season: %w", err)
	}

	observations, err := p.store.ListObservationsThrough(ctx, p.weekKey(job, yw), p.pipeline.BaselineWeeks)
	if err != nil {
		return fmt.Errorf("load observation window: %w", err)
	}

	seasonStart := WeekOf(season.StartDate)
	var ndviMeans []float64
	for _, o := range observations {
		if o.Status != models.ObservationStatusOK || o.NDVI == nil {
			continue
		}
		if o.Year*100+o.Week < seasonStart.Year*100+seasonStart.Week {
			continue
		}
		ndviMeans = append(ndviMeans, o.NDVI.Mean)
	}

	yields, err := p.store.ListSeasonYields(ctx, job.TenantID, job.AOIID)
	if err != nil {
		return fmt.Errorf("load season yields: %w", err)
	}
	historical := make([]float64, 0, len(yields))
	for _, y := range yields {
		historical = append(historical, y.ActualYield)
	}

	result := analysis.EstimateYield(analysis.ForecastInput{
		SeasonNDVIMeans:  ndviMeans,
		HistoricalYields: historical,
		CropType:         season.CropType,
	})
	if result == nil {
		slog.Info("insufficient season observations, skipping forecast",
			"aoi_id", job.AOIID, "season_id", season.ID, "observations", len(ndviMeans))
		return nil
	}

	evidence, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal forecast evidence: %w", err)
	}

	now := time.Now().UTC()
	return p.store.UpsertYieldForecast(ctx, &models.YieldForecast{
		ID:             uuid.New(),
		TenantID:       job.TenantID,
		AOIID:          job.AOIID,
		SeasonID:       season.ID,
		Year:           yw.Year,
		Week:           yw.Week,
		EstimatedYield: result.EstimatedYield,
		Confidence:     result.Confidence,
		Method:         result.Method,
		Evidence:       evidence,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
}
