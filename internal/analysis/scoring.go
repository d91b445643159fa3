package analysis

import (
	"log/slog"

	"github.com/agromonitor/fieldsight/pkg/models"
)

// Fixed, pre-calibrated logistic coefficients. There is no online training;
// recalibration ships as a code change.
var mlIntercept = -2.5

var mlCoefficients = map[string]float64{
	FeatureSlopeRecent:       -8.0,
	FeatureDropMagnitude:     3.5,
	FeatureCumulativeAnomaly: -0.8,
	FeatureRecoveryLag:       0.25,
	FeatureHeterogeneity:     2.0,
}

// RuleScore applies the additive expert rules, capped at 1. A feature absent
// from the map triggers nothing.
func RuleScore(features map[string]float64) float64 {
	score := 0.0
	if v, ok := features[FeatureSlopeRecent]; ok && v < -0.01 {
		score += 0.2
	}
	if v, ok := features[FeatureDropMagnitude]; ok && v > 0.15 {
		score += 0.3
	}
	if v, ok := features[FeatureCumulativeAnomaly]; ok && v < -0.5 {
		score += 0.2
	}
	if v, ok := features[FeatureRecoveryLag]; ok && v > 4 {
		score += 0.2
	}
	if v, ok := features[FeatureHeterogeneity]; ok && v > 0.15 {
		score += 0.1
	}
	return clamp(score, 0, 1)
}

// MLScore evaluates the fixed logistic model over the present features.
// Omitted features contribute nothing to the linear term.
func MLScore(features map[string]float64) float64 {
	x := mlIntercept
	for name, beta := range mlCoefficients {
		if v, ok := features[name]; ok {
			x += beta * v
		}
	}
	return sigmoid(x)
}

// FuseScores combines the three components into the final score in [0, 1].
func FuseScores(ruleScore, changeScore, mlScore float64) float64 {
	return clamp(0.4*ruleScore+0.3*changeScore+0.3*mlScore, 0, 1)
}

// SeverityFor buckets a final score.
func SeverityFor(score float64) string {
	switch {
	case score >= 0.8:
		return models.SeverityHigh
	case score >= 0.65:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// ConfidenceFor discounts the final score by data quality and history depth,
// then buckets it. validPixelRatio is nil when the stats job recorded none.
func ConfidenceFor(finalScore float64, validPixelRatio *float64, historyWeeks int) (string, float64) {
	confidence := finalScore
	if validPixelRatio != nil {
		if *validPixelRatio < 0.5 {
			confidence *= 0.7
		} else if *validPixelRatio < 0.7 {
			confidence *= 0.85
		}
	}
	if historyWeeks < 12 {
		confidence *= 0.8
	}

	switch {
	case confidence >= 0.75:
		return models.ConfidenceHigh, confidence
	case confidence >= 0.5:
		return models.ConfidenceMedium, confidence
	default:
		return models.ConfidenceLow, confidence
	}
}

// ClassifySignalType picks the signal type from the AOI use-type and the
// feature map. The decision order is fixed; the first matching rule wins.
func ClassifySignalType(useType string, features map[string]float64) string {
	slope, hasSlope := features[FeatureSlopeRecent]
	drop, hasDrop := features[FeatureDropMagnitude]
	het, hasHet := features[FeatureHeterogeneity]
	lag, hasLag := features[FeatureRecoveryLag]

	if useType == models.UseTypeCrop {
		if hasLag && lag > 4 {
			return models.SignalTypeRecoveryLag
		}
		return models.SignalTypeEarlyStress
	}

	// Pasture decision order.
	if hasSlope && hasDrop && slope < -0.01 && drop > 0.15 {
		return models.SignalTypeForageRisk
	}
	if hasHet && hasDrop && het > 0.15 && drop > 0.1 {
		return models.SignalTypeLocalDegradation
	}
	if hasLag && lag > 4 {
		return models.SignalTypeRecoveryLag
	}
	return models.SignalTypeForageRisk
}

const maxActionLength = 120

var recommendedActions = map[string][]string{
	models.SignalTypeForageRisk: {
		"Inspect the paddock on the ground within the next few days",
		"Reduce stocking density until NDVI recovers toward baseline",
		"Review grazing rotation for the affected paddock",
	},
	models.SignalTypeLocalDegradation: {
		"Walk the field edges where index variance is highest",
		"Check for localized waterlogging, compaction, or pest damage",
		"Consider a targeted soil sample in the degraded zone",
	},
	models.SignalTypeRecoveryLag: {
		"Extend the rest period for the affected area",
		"Verify irrigation and drainage are functioning",
		"Compare against nearby fields to rule out a regional driver",
	},
	models.SignalTypeEarlyStress: {
		"Scout the crop for early stress symptoms",
		"Cross-check recent rainfall and temperature records",
		"Plan a follow-up observation for the next clear pass",
	},
	models.SignalTypeNDVIAnomaly: {
		"Review the weekly NDVI series for the field",
		"Confirm the anomaly against recent weather",
	},
	models.SignalTypeHarvestDetected: {
		"Confirm harvest completion and record the date",
		"Close out the active season if harvest is finished",
	},
}

// RecommendedActions returns the static action list for a signal type.
// Overlong entries are logged, never rejected.
func RecommendedActions(signalType string) []string {
	actions := recommendedActions[signalType]
	for _, a := range actions {
		if len(a) > maxActionLength {
			slog.Warn("recommended action exceeds length limit", "signal_type", signalType, "length", len(a))
		}
	}
	return actions
}
