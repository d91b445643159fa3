// Package models contains shared data models used across the FieldSight codebase.
package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	UseTypePasture = "pasture"
	UseTypeCrop    = "crop"
)

// AOI is a georeferenced field polygon. The REST surface that manages AOIs
// lives elsewhere; the pipeline only reads them.
type AOI struct {
	ID             uuid.UUID       `db:"id"              json:"id"`
	TenantID       uuid.UUID       `db:"tenant_id"       json:"tenant_id"`
	Name           string          `db:"name"            json:"name"`
	UseType        string          `db:"use_type"        json:"use_type"`
	CropType       string          `db:"crop_type"       json:"crop_type"`
	SignalsEnabled bool            `db:"signals_enabled" json:"signals_enabled"`
	Geometry       json.RawMessage `db:"geometry"        json:"geometry"`
	CentroidLat    float64         `db:"centroid_lat"    json:"centroid_lat"`
	CentroidLon    float64         `db:"centroid_lon"    json:"centroid_lon"`
	CreatedAt      time.Time       `db:"created_at"      json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"      json:"updated_at"`
}

// Season is a growing season for an AOI. The forecaster requires an active one.
type Season struct {
	ID        uuid.UUID  `db:"id"         json:"id"`
	TenantID  uuid.UUID  `db:"tenant_id"  json:"tenant_id"`
	AOIID     uuid.UUID  `db:"aoi_id"     json:"aoi_id"`
	CropType  string     `db:"crop_type"  json:"crop_type"`
	StartDate time.Time  `db:"start_date" json:"start_date"`
	EndDate   *time.Time `db:"end_date"   json:"end_date,omitempty"`
	Active    bool       `db:"active"     json:"active"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// SeasonYield is a historical actual yield recorded for a closed season.
type SeasonYield struct {
	ID          uuid.UUID `db:"id"           json:"id"`
	TenantID    uuid.UUID `db:"tenant_id"    json:"tenant_id"`
	AOIID       uuid.UUID `db:"aoi_id"       json:"aoi_id"`
	SeasonID    uuid.UUID `db:"season_id"    json:"season_id"`
	ActualYield float64   `db:"actual_yield" json:"actual_yield"`
	CreatedAt   time.Time `db:"created_at"   json:"created_at"`
}
