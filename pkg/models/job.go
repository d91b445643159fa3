package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusPending   = "PENDING"
	JobStatusRunning   = "RUNNING"
	JobStatusDone      = "DONE"
	JobStatusFailed    = "FAILED"
	JobStatusCancelled = "CANCELLED"
)

// Pipeline job types dispatched through the queue.
const (
	JobTypeProcessWeek       = "PROCESS_WEEK"
	JobTypeProcessRadarWeek  = "PROCESS_RADAR_WEEK"
	JobTypeAlertsWeek        = "ALERTS_WEEK"
	JobTypeSignalsWeek       = "SIGNALS_WEEK"
	JobTypeForecastWeek      = "FORECAST_WEEK"
	JobTypeProcessWeather    = "PROCESS_WEATHER"
	JobTypeProcessTopography = "PROCESS_TOPOGRAPHY"
)

// Job tracks one unit of asynchronous pipeline work. JobKey is a content hash
// of the job's defining parameters, so resubmitting the same backfill collides
// with the existing row instead of duplicating it.
type Job struct {
	ID           uuid.UUID       `db:"id"            json:"id"`
	TenantID     uuid.UUID       `db:"tenant_id"     json:"tenant_id"`
	AOIID        uuid.UUID       `db:"aoi_id"        json:"aoi_id"`
	JobType      string          `db:"job_type"      json:"job_type"`
	JobKey       string          `db:"job_key"       json:"job_key"`
	Status       string          `db:"status"        json:"status"`
	Payload      json.RawMessage `db:"payload"       json:"payload,omitempty"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time       `db:"created_at"    json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"    json:"updated_at"`
}

// WeekPayload is the payload carried by per-week job messages.
type WeekPayload struct {
	Year int `json:"year"`
	Week int `json:"week"`
}

// RangePayload is the payload carried by whole-range jobs (weather, topography).
type RangePayload struct {
	FromDate string `json:"from_date"`
	ToDate   string `json:"to_date"`
}
