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

// HandleAlertsWeek raises a threshold anomaly signal when the week's NDVI sits
// below the configured floor. Fan-out gives no ordering guarantee, so the
// stats job may not have landed yet; that is a NO_DATA outcome, not a failure.
func (p *Pipeline) HandleAlertsWeek(ctx context.Context, job *models.Job) error {
	yw, err := weekPayload(job)
	if err != nil {
		return err
	}

	obs, err := p.store.GetWeeklyObservation(ctx, p.weekKey(job, yw))
	if errors.Is(err, store.ErrNotFound) {
		slog.Info("observation not yet available, skipping alerts",
			"aoi_id", job.AOIID, "year", yw.Year, "week", yw.Week)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load observation: %w", err)
	}
	if obs.Status != models.ObservationStatusOK || obs.Anomaly == nil {
		return nil
	}

	anomaly := *obs.Anomaly
	if anomaly >= p.pipeline.AnomalyFloor {
		return nil
	}

	score := clampScore(-anomaly / 0.3)
	evidence, err := json.Marshal(map[string]float64{
		"anomaly":       anomaly,
		"anomaly_floor": p.pipeline.AnomalyFloor,
		"ndvi_mean":     obs.NDVI.Mean,
	})
	if err != nil {
		return fmt.Errorf("marshal alert evidence: %w", err)
	}

	update := store.SignalScoreUpdate{
		Score:              score,
		Severity:           analysis.SeverityFor(score),
		Confidence:         alertConfidence(obs.ValidPixelRatio),
		Evidence:           evidence,
		RecommendedActions: analysis.RecommendedActions(models.SignalTypeNDVIAnomaly),
	}

	return p.persistSignal(ctx, store.SignalKey{
		WeekKey:    p.weekKey(job, yw),
		SignalType: models.SignalTypeNDVIAnomaly,
	}, update)
}

// persistSignal applies the never-duplicate rule: update the existing row on
// the full key in place, or create a fresh NEW signal.
func (p *Pipeline) persistSignal(ctx context.Context, key store.SignalKey, update store.SignalScoreUpdate) error {
	existing, err := p.store.GetSignalByKey(ctx, key)
	if err == nil {
		return p.store.UpdateSignalScore(ctx, existing.ID, update)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("look up signal: %w", err)
	}

	now := time.Now().UTC()
	return p.store.CreateSignal(ctx, &models.OpportunitySignal{
		ID:                 uuid.New(),
		TenantID:           key.TenantID,
		AOIID:              key.AOIID,
		Year:               key.Year,
		Week:               key.Week,
		SignalType:         key.SignalType,
		PipelineVersion:    key.PipelineVersion,
		Severity:           update.Severity,
		Confidence:         update.Confidence,
		Score:              update.Score,
		Evidence:           update.Evidence,
		RecommendedActions: update.RecommendedActions,
		Status:             models.SignalStatusNew,
		CreatedAt:          now,
		UpdatedAt:          now,
	})
}

// alertConfidence buckets purely on pixel quality; the threshold rule has no
// history depth to discount by.
func alertConfidence(validPixelRatio *float64) string {
	if validPixelRatio == nil || *validPixelRatio < 0.5 {
		return models.ConfidenceLow
	}
	if *validPixelRatio < 0.7 {
		return models.ConfidenceMedium
	}
	return models.ConfidenceHigh
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
