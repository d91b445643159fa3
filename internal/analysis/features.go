package analysis

// Feature names emitted by ExtractFeatures.
const (
	FeatureSlopeRecent       = "slope_recent"
	FeatureDropMagnitude     = "drop_magnitude"
	FeatureCumulativeAnomaly = "cumulative_anomaly"
	FeatureRecoveryLag       = "recovery_lag"
	FeatureHeterogeneity     = "heterogeneity"
	FeatureStability         = "stability"
)

const slopeWindow = 4

// ExtractFeatures computes the feature map over the series. A feature whose
// required inputs are missing is omitted from the map, never defaulted to
// zero; downstream scoring must be able to tell omission from a true zero.
func ExtractFeatures(series []SeriesPoint) map[string]float64 {
	features := make(map[string]float64)
	if len(series) == 0 {
		return features
	}

	values := ndviMeans(series)

	if len(values) >= slopeWindow {
		features[FeatureSlopeRecent] = olsSlope(values[len(values)-slopeWindow:])
	}

	var baselines []float64
	for _, p := range series {
		if p.Baseline != nil {
			baselines = append(baselines, *p.Baseline)
		}
	}
	if len(baselines) > 0 {
		baselineMean := mean(baselines)

		minNDVI := values[0]
		for _, v := range values[1:] {
			if v < minNDVI {
				minNDVI = v
			}
		}
		features[FeatureDropMagnitude] = baselineMean - minNDVI

		lag := 0
		for i := len(series) - 1; i >= 0; i-- {
			if series[i].NDVIMean >= baselineMean {
				break
			}
			lag++
		}
		features[FeatureRecoveryLag] = float64(lag)
	}

	anomalyPresent := false
	cumulative := 0.0
	for _, p := range series {
		if p.Anomaly == nil {
			continue
		}
		anomalyPresent = true
		if *p.Anomaly < 0 {
			cumulative += *p.Anomaly
		}
	}
	if anomalyPresent {
		features[FeatureCumulativeAnomaly] = cumulative
	}

	var stds []float64
	for _, p := range series {
		stds = append(stds, p.NDVIStd)
	}
	features[FeatureHeterogeneity] = mean(stds)

	if len(values) >= 2 {
		features[FeatureStability] = variance(values)
	}

	return features
}
