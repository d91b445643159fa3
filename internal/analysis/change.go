package analysis

import "math"

const (
	DirectionIncrease = "increase"
	DirectionDecrease = "decrease"
)

// magnitudeScale normalizes break magnitudes: a 0.3 NDVI step saturates
// confidence at 1.
const magnitudeScale = 0.3

// ChangePoint is a detected break in the observation series.
type ChangePoint struct {
	BreakYear  int     `json:"break_year"`
	BreakWeek  int     `json:"break_week"`
	Magnitude  float64 `json:"magnitude"`
	Direction  string  `json:"direction"`
	MeanBefore float64 `json:"mean_before"`
	MeanAfter  float64 `json:"mean_after"`
	Confidence float64 `json:"confidence"`
}

// DetectorConfig holds the rolling-window detector parameters.
type DetectorConfig struct {
	WindowSize       int
	Threshold        float64
	PersistenceWeeks int
}

// DetectChange finds the dominant persistent break in a chronologically
// ordered series, or nil when no break clears the threshold. Series long
// enough for two adjacent windows use the rolling-window detector; shorter
// histories fall back to a two-thirds split with a stricter threshold.
func DetectChange(series []SeriesPoint, cfg DetectorConfig) *ChangePoint {
	if len(series) >= 2*cfg.WindowSize {
		return detectRollingWindow(series, cfg)
	}
	return detectShortHistory(series, cfg)
}

// detectRollingWindow slides two adjacent windows over the series. Candidates
// below the threshold are discarded; survivors must persist, meaning every
// value in the next PersistenceWeeks positions stays within the threshold of
// the after-window mean. The persistent candidate of maximum magnitude wins.
func detectRollingWindow(series []SeriesPoint, cfg DetectorConfig) *ChangePoint {
	values := ndviMeans(series)
	w := cfg.WindowSize

	var best *ChangePoint
	for i := w; i+w <= len(values); i++ {
		meanBefore := mean(values[i-w : i])
		meanAfter := mean(values[i : i+w])
		magnitude := math.Abs(meanBefore - meanAfter)
		if magnitude < cfg.Threshold {
			continue
		}

		if i+cfg.PersistenceWeeks > len(values) {
			continue
		}
		persistent := true
		for p := i; p < i+cfg.PersistenceWeeks; p++ {
			if math.Abs(values[p]-meanAfter) > cfg.Threshold {
				persistent = false
				break
			}
		}
		if !persistent {
			continue
		}

		if best == nil || magnitude > best.Magnitude {
			best = newChangePoint(series[i], magnitude, meanBefore, meanAfter)
		}
	}
	return best
}

// detectShortHistory splits the series at the two-thirds point and compares
// the historical mean against the recent mean. The threshold is raised by
// half since there is no persistence evidence to lean on.
func detectShortHistory(series []SeriesPoint, cfg DetectorConfig) *ChangePoint {
	if len(series) < 4 {
		return nil
	}
	values := ndviMeans(series)
	split := (2 * len(values)) / 3
	if split == 0 || split == len(values) {
		return nil
	}

	meanBefore := mean(values[:split])
	meanAfter := mean(values[split:])
	magnitude := math.Abs(meanBefore - meanAfter)
	if magnitude < cfg.Threshold*1.5 {
		return nil
	}

	return newChangePoint(series[split], magnitude, meanBefore, meanAfter)
}

func newChangePoint(breakPoint SeriesPoint, magnitude, meanBefore, meanAfter float64) *ChangePoint {
	direction := DirectionIncrease
	if meanAfter < meanBefore {
		direction = DirectionDecrease
	}
	return &ChangePoint{
		BreakYear:  breakPoint.Year,
		BreakWeek:  breakPoint.Week,
		Magnitude:  magnitude,
		Direction:  direction,
		MeanBefore: meanBefore,
		MeanAfter:  meanAfter,
		Confidence: math.Min(magnitude/magnitudeScale, 1),
	}
}

// ChangeScore converts a detected break into a score component. Drops are
// weighted worse than rises.
func ChangeScore(cp *ChangePoint) float64 {
	if cp == nil {
		return 0
	}
	directionWeight := 0.8
	if cp.Direction == DirectionDecrease {
		directionWeight = 1.2
	}
	return math.Min(cp.Magnitude/magnitudeScale, 1) * cp.Confidence * directionWeight
}
