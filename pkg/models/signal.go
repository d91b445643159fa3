package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	SignalStatusNew = "NEW"
	SignalStatusAck = "ACK"
)

const (
	SeverityHigh   = "HIGH"
	SeverityMedium = "MEDIUM"
	SeverityLow    = "LOW"
	SeverityInfo   = "INFO"
)

const (
	ConfidenceHigh   = "HIGH"
	ConfidenceMedium = "MEDIUM"
	ConfidenceLow    = "LOW"
)

// Signal types produced by the classifier and detectors.
const (
	SignalTypeForageRisk       = "FORAGE_RISK"
	SignalTypeLocalDegradation = "LOCAL_DEGRADATION"
	SignalTypeRecoveryLag      = "RECOVERY_LAG"
	SignalTypeEarlyStress      = "EARLY_STRESS"
	SignalTypeNDVIAnomaly      = "NDVI_ANOMALY"
	SignalTypeHarvestDetected  = "HARVEST_DETECTED"
)

// OpportunitySignal is a classified anomaly signal for one AOI week.
// At most one live row per (tenant_id, aoi_id, year, week, signal_type,
// pipeline_version); re-scoring updates score and evidence in place.
type OpportunitySignal struct {
	ID                 uuid.UUID       `db:"id"                  json:"id"`
	TenantID           uuid.UUID       `db:"tenant_id"           json:"tenant_id"`
	AOIID              uuid.UUID       `db:"aoi_id"              json:"aoi_id"`
	Year               int             `db:"year"                json:"year"`
	Week               int             `db:"week"                json:"week"`
	SignalType         string          `db:"signal_type"         json:"signal_type"`
	PipelineVersion    string          `db:"pipeline_version"    json:"pipeline_version"`
	Severity           string          `db:"severity"            json:"severity"`
	Confidence         string          `db:"confidence"          json:"confidence"`
	Score              float64         `db:"score"               json:"score"`
	Evidence           json.RawMessage `db:"evidence"            json:"evidence,omitempty"`
	RecommendedActions []string        `db:"recommended_actions" json:"recommended_actions"`
	Status             string          `db:"status"              json:"status"`
	CreatedAt          time.Time       `db:"created_at"          json:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at"          json:"updated_at"`
}

// YieldForecast is an upserted per-week yield estimate for an active season.
type YieldForecast struct {
	ID             uuid.UUID       `db:"id"              json:"id"`
	TenantID       uuid.UUID       `db:"tenant_id"       json:"tenant_id"`
	AOIID          uuid.UUID       `db:"aoi_id"          json:"aoi_id"`
	SeasonID       uuid.UUID       `db:"season_id"       json:"season_id"`
	Year           int             `db:"year"            json:"year"`
	Week           int             `db:"week"            json:"week"`
	EstimatedYield float64         `db:"estimated_yield" json:"estimated_yield"`
	Confidence     string          `db:"confidence"      json:"confidence"`
	Method         string          `db:"method"          json:"method"`
	Evidence       json.RawMessage `db:"evidence"        json:"evidence,omitempty"`
	CreatedAt      time.Time       `db:"created_at"      json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"      json:"updated_at"`
}
