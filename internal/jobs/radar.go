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
	"github.com/agromonitor/fieldsight/internal/satellite"
	"github.com/agromonitor/fieldsight/internal/store"
	"github.com/agromonitor/fieldsight/internal/tiler"
	"github.com/agromonitor/fieldsight/pkg/models"
)

// HandleProcessRadarWeek acquires SAR scenes, persists the week's radar
// statistics, and then runs harvest detection against the previous ISO week.
func (p *Pipeline) HandleProcessRadarWeek(ctx context.Context, job *models.Job) error {
	yw, err := weekPayload(job)
	if err != nil {
		return err
	}

	aoi, err := p.store.GetAOI(ctx, job.AOIID, job.TenantID)
	if err != nil {
		return fmt.Errorf("resolve aoi: %w", err)
	}

	scenes, err := p.provider.SearchScenes(ctx, satellite.SearchRequest{
		Geometry:    aoi.Geometry,
		Start:       WeekStart(yw),
		End:         WeekEnd(yw),
		Collections: []string{p.satellite.RadarCollection},
	})
	if err != nil {
		return fmt.Errorf("search radar scenes: %w", err)
	}

	now := time.Now().UTC()
	asset := &models.RadarAsset{
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
		asset.Status = models.ObservationStatusNoData
		return p.store.UpsertRadarAsset(ctx, asset)
	}

	mosaic := mosaicURL(p.satellite.RadarCollection, scenes)

	rvi, err := p.tiler.FetchStats(ctx, mosaic, tiler.ExpressionRVI, aoi.Geometry)
	if err != nil {
		return fmt.Errorf("fetch rvi stats: %w", err)
	}
	if rvi == nil {
		asset.Status = models.ObservationStatusNoData
		return p.store.UpsertRadarAsset(ctx, asset)
	}

	ratio, err := p.tiler.FetchStats(ctx, mosaic, tiler.ExpressionVVVH, aoi.Geometry)
	if err != nil {
		return fmt.Errorf("fetch vv/vh stats: %w", err)
	}

	asset.Status = models.ObservationStatusOK
	asset.RVI = rvi
	asset.VVVHRatio = ratio

	if err := p.store.UpsertRadarAsset(ctx, asset); err != nil {
		return err
	}

	return p.detectHarvest(ctx, job, yw, rvi.Mean)
}

// detectHarvest compares this week's RVI mean against the previous week.
// Signal creation is insert-only: once detected, a harvest is never
// re-scored. A missing previous week is a NO_DATA outcome, not an error.
func (p *Pipeline) detectHarvest(ctx context.Context, job *models.Job, yw YearWeek, currentRVI float64) error {
	prev, err := p.store.GetRadarAsset(ctx, p.weekKey(job, yw.Previous()))
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load previous radar week: %w", err)
	}
	if prev.Status != models.ObservationStatusOK || prev.RVI == nil {
		return nil
	}

	detection := analysis.DetectHarvest(prev.RVI.Mean, currentRVI)
	if detection == nil {
		return nil
	}

	evidence, err := json.Marshal(map[string]float64{
		"previous_rvi": prev.RVI.Mean,
		"current_rvi":  currentRVI,
		"drop":         detection.Drop,
	})
	if err != nil {
		return fmt.Errorf("marshal harvest evidence: %w", err)
	}

	now := time.Now().UTC()
	created, err := p.store.CreateSignalIfAbsent(ctx, &models.OpportunitySignal{
		ID:                 uuid.New(),
		TenantID:           job.TenantID,
		AOIID:              job.AOIID,
		Year:               yw.Year,
		Week:               yw.Week,
		SignalType:         models.SignalTypeHarvestDetected,
		PipelineVersion:    p.pipeline.Version,
		Severity:           models.SeverityInfo,
		Confidence:         models.ConfidenceHigh,
		Score:              detection.Score,
		Evidence:           evidence,
		RecommendedActions: analysis.RecommendedActions(models.SignalTypeHarvestDetected),
		Status:             models.SignalStatusNew,
		CreatedAt:          now,
		UpdatedAt:          now,
	})
	if err != nil {
		return fmt.Errorf("create harvest signal: %w", err)
	}
	if created {
		slog.Info("harvest detected",
			"aoi_id", job.AOIID, "year", yw.Year, "week", yw.Week,
			"drop", detection.Drop, "score", detection.Score)
	}
	return nil
}
