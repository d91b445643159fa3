package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/agromonitor/fieldsight/internal/analysis"
	"github.com/agromonitor/fieldsight/internal/store"
	"github.com/agromonitor/fieldsight/pkg/models"
)

// signalEmitThreshold keeps uninteresting weeks out of the signals table; a
// week scoring below it leaves the table untouched.
const signalEmitThreshold = 0.35

// HandleSignalsWeek runs the full scoring pipeline over the AOI's trailing
// observation window: change detection, feature extraction, score fusion,
// classification, persistence on the full signal key.
func (p *Pipeline) HandleSignalsWeek(ctx context.Context, job *models.Job) error {
	yw, err := weekPayload(job)
	if err != nil {
		return err
	}

	aoi, err := p.store.GetAOI(ctx, job.AOIID, job.TenantID)
	if err != nil {
		return fmt.Errorf("resolve aoi: %w", err)
	}

	observations, err := p.store.ListObservationsThrough(ctx, p.weekKey(job, yw), p.pipeline.BaselineWeeks)
	if err != nil {
		return fmt.Errorf("load observation window: %w", err)
	}

	series := analysis.SeriesFromObservations(observations)
	if len(series) == 0 {
		slog.Info("no usable observations, skipping signal scoring",
			"aoi_id", job.AOIID, "year", yw.Year, "week", yw.Week)
		return nil
	}

	change := analysis.DetectChange(series, analysis.DetectorConfig{
		WindowSize:       p.pipeline.WindowSize,
		Threshold:        p.pipeline.ChangeThreshold,
		PersistenceWeeks: p.pipeline.PersistenceWeeks,
	})
	features := analysis.ExtractFeatures(series)

	ruleScore := analysis.RuleScore(features)
	changeScore := analysis.ChangeScore(change)
	mlScore := analysis.MLScore(features)
	finalScore := analysis.FuseScores(ruleScore, changeScore, mlScore)

	if finalScore < signalEmitThreshold {
		slog.Debug("score below emit threshold",
			"aoi_id", job.AOIID, "year", yw.Year, "week", yw.Week, "score", finalScore)
		return nil
	}

	latest := series[len(series)-1]
	var validPixelRatio *float64
	for i := len(observations) - 1; i >= 0; i-- {
		if observations[i].Year == latest.Year && observations[i].Week == latest.Week {
			validPixelRatio = observations[i].ValidPixelRatio
			break
		}
	}

	confidence, confidenceValue := analysis.ConfidenceFor(finalScore, validPixelRatio, len(series))
	signalType := analysis.ClassifySignalType(aoi.UseType, features)

	evidence, err := json.Marshal(signalEvidence{
		Features:    features,
		Change:      change,
		RuleScore:   ruleScore,
		ChangeScore: changeScore,
		MLScore:     mlScore,
		FinalScore:  finalScore,
		Confidence:  confidenceValue,
		History:     len(series),
	})
	if err != nil {
		return fmt.Errorf("marshal signal evidence: %w", err)
	}

	update := store.SignalScoreUpdate{
		Score:              finalScore,
		Severity:           analysis.SeverityFor(finalScore),
		Confidence:         confidence,
		Evidence:           evidence,
		RecommendedActions: analysis.RecommendedActions(signalType),
	}

	if err := p.persistSignal(ctx, store.SignalKey{
		WeekKey:    p.weekKey(job, yw),
		SignalType: signalType,
	}, update); err != nil {
		return err
	}

	slog.Info("signal scored",
		"aoi_id", job.AOIID, "year", yw.Year, "week", yw.Week,
		"signal_type", signalType, "score", finalScore, "severity", update.Severity)
	return nil
}

type signalEvidence struct {
	Features    map[string]float64    `json:"features"`
	Change      *analysis.ChangePoint `json:"change,omitempty"`
	RuleScore   float64               `json:"rule_score"`
	ChangeScore float64               `json:"change_score"`
	MLScore     float64               `json:"ml_score"`
	FinalScore  float64               `json:"final_score"`
	Confidence  float64               `json:"confidence"`
	History     int                   `json:"history_weeks"`
}
