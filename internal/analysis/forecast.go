package analysis

import "github.com/agromonitor/fieldsight/pkg/models"

// MinForecastObservations is the minimum weekly observation count before a
// yield estimate is attempted.
const MinForecastObservations = 4

// fullSeasonWeeks drives forecast confidence: season progress alone, not data
// quality, determines the bucket.
const fullSeasonWeeks = 12

// referenceNDVI anchors the scaling ratio: a season averaging 0.6 NDVI is
// treated as a nominal year.
const referenceNDVI = 0.6

const (
	MethodHistoricalScaled = "historical_scaled"
	MethodCropDefault      = "crop_default"
)

// Default base yields in kg/ha by crop type.
var baseYields = map[string]float64{
	"corn":    8000,
	"soybean": 3500,
	"wheat":   4000,
	"rice":    6000,
}

const defaultBaseYield = 5000

// ForecastInput carries the season data for one yield estimate.
type ForecastInput struct {
	SeasonNDVIMeans  []float64
	HistoricalYields []float64
	CropType         string
}

// ForecastResult is a computed yield estimate.
type ForecastResult struct {
	EstimatedYield float64 `json:"estimated_yield"`
	NDVIIndex      float64 `json:"ndvi_index"`
	Progress       float64 `json:"progress"`
	Confidence     string  `json:"confidence"`
	Method         string  `json:"method"`
}

// EstimateYield scales a base yield by the season's NDVI index. The base is
// the historical actual mean when any exists, else the crop-type default.
// Returns nil when fewer than MinForecastObservations weeks are available.
func EstimateYield(in ForecastInput) *ForecastResult {
	if len(in.SeasonNDVIMeans) < MinForecastObservations {
		return nil
	}

	ndviIndex := mean(in.SeasonNDVIMeans)
	ratio := ndviIndex / referenceNDVI

	var base float64
	method := MethodCropDefault
	if len(in.HistoricalYields) > 0 {
		base = mean(in.HistoricalYields)
		method = MethodHistoricalScaled
	} else if b, ok := baseYields[in.CropType]; ok {
		base = b
	} else {
		base = defaultBaseYield
	}

	progress := float64(len(in.SeasonNDVIMeans)) / fullSeasonWeeks

	return &ForecastResult{
		EstimatedYield: base * ratio,
		NDVIIndex:      ndviIndex,
		Progress:       progress,
		Confidence:     forecastConfidence(progress),
		Method:         method,
	}
}

// forecastConfidence buckets purely on season progress.
func forecastConfidence(progress float64) string {
	switch {
	case progress < 0.3:
		return models.ConfidenceLow
	case progress < 0.7:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceHigh
	}
}
