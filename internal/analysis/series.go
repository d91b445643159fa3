// Package analysis contains the pure scoring pipeline: change detection,
// feature extraction, score fusion, and the narrower harvest and yield rules.
// Everything here is deterministic over in-memory series; persistence and
// acquisition live elsewhere.
package analysis

import (
	"math"

	"github.com/agromonitor/fieldsight/pkg/models"
)

// SeriesPoint is one usable week of an AOI's observation series. Anomaly and
// Baseline stay pointers so a missing input remains distinguishable from zero.
type SeriesPoint struct {
	Year     int
	Week     int
	NDVIMean float64
	NDVIStd  float64
	Anomaly  *float64
	Baseline *float64
}

// SeriesFromObservations distills stored observations into the series the
// detectors operate on. NO_DATA weeks are skipped, not zero-filled.
func SeriesFromObservations(observations []models.WeeklyObservation) []SeriesPoint {
	series := make([]SeriesPoint, 0, len(observations))
	for _, o := range observations {
		if o.Status != models.ObservationStatusOK || o.NDVI == nil {
			continue
		}
		series = append(series, SeriesPoint{
			Year:     o.Year,
			Week:     o.Week,
			NDVIMean: o.NDVI.Mean,
			NDVIStd:  o.NDVI.Std,
			Anomaly:  o.Anomaly,
			Baseline: o.Baseline,
		})
	}
	return series
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func variance(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	var sum float64
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return sum / float64(len(values))
}

// olsSlope fits y = a + b*x over x = 0..n-1 and returns b.
func olsSlope(values []float64) float64 {
	n := float64(len(values))
	if n < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func ndviMeans(series []SeriesPoint) []float64 {
	out := make([]float64, len(series))
	for i, p := range series {
		out[i] = p.NDVIMean
	}
	return out
}
