package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ObservationStatusOK     = "OK"
	ObservationStatusNoData = "NO_DATA"
)

// IndexStats holds per-index raster statistics returned by the tiler service.
type IndexStats struct {
	Mean         float64 `json:"mean"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	Std          float64 `json:"std"`
	P10          float64 `json:"p10"`
	P50          float64 `json:"p50"`
	P90          float64 `json:"p90"`
	ValidPixels  int     `json:"valid_pixels"`
	ValidPercent float64 `json:"valid_percent"`
}

// WeeklyObservation is one week of optical index statistics for an AOI.
// Keyed by (tenant_id, aoi_id, year, week, pipeline_version).
type WeeklyObservation struct {
	ID              uuid.UUID   `db:"id"                json:"id"`
	TenantID        uuid.UUID   `db:"tenant_id"         json:"tenant_id"`
	AOIID           uuid.UUID   `db:"aoi_id"            json:"aoi_id"`
	Year            int         `db:"year"              json:"year"`
	Week            int         `db:"week"              json:"week"`
	PipelineVersion string      `db:"pipeline_version"  json:"pipeline_version"`
	Status          string      `db:"status"            json:"status"`
	NDVI            *IndexStats `db:"ndvi"              json:"ndvi,omitempty"`
	NDRE            *IndexStats `db:"ndre"              json:"ndre,omitempty"`
	Baseline        *float64    `db:"baseline"          json:"baseline,omitempty"`
	Anomaly         *float64    `db:"anomaly"           json:"anomaly,omitempty"`
	ValidPixelRatio *float64    `db:"valid_pixel_ratio" json:"valid_pixel_ratio,omitempty"`
	SceneCount      int         `db:"scene_count"       json:"scene_count"`
	CreatedAt       time.Time   `db:"created_at"        json:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at"        json:"updated_at"`
}

// RadarAsset is one week of SAR-derived statistics for an AOI, same key shape
// as WeeklyObservation. RVI backs harvest detection.
type RadarAsset struct {
	ID              uuid.UUID   `db:"id"               json:"id"`
	TenantID        uuid.UUID   `db:"tenant_id"        json:"tenant_id"`
	AOIID           uuid.UUID   `db:"aoi_id"           json:"aoi_id"`
	Year            int         `db:"year"             json:"year"`
	Week            int         `db:"week"             json:"week"`
	PipelineVersion string      `db:"pipeline_version" json:"pipeline_version"`
	Status          string      `db:"status"           json:"status"`
	RVI             *IndexStats `db:"rvi"              json:"rvi,omitempty"`
	VVVHRatio       *IndexStats `db:"vv_vh_ratio"      json:"vv_vh_ratio,omitempty"`
	SceneCount      int         `db:"scene_count"      json:"scene_count"`
	CreatedAt       time.Time   `db:"created_at"       json:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at"       json:"updated_at"`
}

// WeatherDay is one day of weather history for an AOI centroid.
type WeatherDay struct {
	Date      time.Time `json:"date"`
	TempMax   float64   `json:"temp_max"`
	TempMin   float64   `json:"temp_min"`
	PrecipSum float64   `json:"precip_sum"`
	ET0FAO    float64   `json:"et0_fao"`
}

// TopographyAsset holds static DEM-derived statistics for an AOI.
type TopographyAsset struct {
	ID            uuid.UUID `db:"id"             json:"id"`
	TenantID      uuid.UUID `db:"tenant_id"      json:"tenant_id"`
	AOIID         uuid.UUID `db:"aoi_id"         json:"aoi_id"`
	ElevationMean float64   `db:"elevation_mean" json:"elevation_mean"`
	ElevationMin  float64   `db:"elevation_min"  json:"elevation_min"`
	ElevationMax  float64   `db:"elevation_max"  json:"elevation_max"`
	SlopeMean     float64   `db:"slope_mean"     json:"slope_mean"`
	CreatedAt     time.Time `db:"created_at"     json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"     json:"updated_at"`
}
