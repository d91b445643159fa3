package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"github.com/agromonitor/fieldsight/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")
var ErrInvalidTransition = errors.New("invalid job status transition")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	GetAOI(ctx context.Context, id, tenantID uuid.UUID) (*models.AOI, error)

	// UpsertJob inserts a job or, when (tenant_id, job_key) already exists,
	// returns the existing row's id. The insert-or-update is a single atomic
	// statement so concurrent identical requests never race into duplicates.
	UpsertJob(ctx context.Context, job *models.Job) (uuid.UUID, error)
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	MarkJobStatus(ctx context.Context, id uuid.UUID, status string, opts ...JobUpdateOption) error

	UpsertWeeklyObservation(ctx context.Context, obs *models.WeeklyObservation) error
	GetWeeklyObservation(ctx context.Context, key WeekKey) (*models.WeeklyObservation, error)
	// ListObservationsThrough returns observations for the AOI up to and
	// including the given ISO week, chronologically ordered, capped at limit.
	ListObservationsThrough(ctx context.Context, key WeekKey, limit int) ([]models.WeeklyObservation, error)

	UpsertRadarAsset(ctx context.Context, asset *models.RadarAsset) error
	GetRadarAsset(ctx context.Context, key WeekKey) (*models.RadarAsset, error)

	GetSignalByKey(ctx context.Context, key SignalKey) (*models.OpportunitySignal, error)
	CreateSignal(ctx context.Context, sig *models.OpportunitySignal) error
	// CreateSignalIfAbsent inserts and reports whether a row was written;
	// an existing row on the same key is left untouched.
	CreateSignalIfAbsent(ctx context.Context, sig *models.OpportunitySignal) (bool, error)
	UpdateSignalScore(ctx context.Context, id uuid.UUID, update SignalScoreUpdate) error
	ListSignals(ctx context.Context, tenantID, aoiID uuid.UUID) ([]models.OpportunitySignal, error)

	GetActiveSeason(ctx context.Context, tenantID, aoiID uuid.UUID) (*models.Season, error)
	ListSeasonYields(ctx context.Context, tenantID, aoiID uuid.UUID) ([]models.SeasonYield, error)
	UpsertYieldForecast(ctx context.Context, fc *models.YieldForecast) error

	SaveWeatherDays(ctx context.Context, tenantID, aoiID uuid.UUID, days []models.WeatherDay) error
	UpsertTopographyAsset(ctx context.Context, asset *models.TopographyAsset) error
}

// WeekKey identifies one AOI week within a pipeline version.
type WeekKey struct {
	TenantID        uuid.UUID
	AOIID           uuid.UUID
	Year            int
	Week            int
	PipelineVersion string
}

// SignalKey is the full opportunity-signal key; at most one live row per key.
type SignalKey struct {
	WeekKey
	SignalType string
}

// SignalScoreUpdate carries the re-scored fields applied in place.
type SignalScoreUpdate struct {
	Score              float64
	Severity           string
	Confidence         string
	Evidence           json.RawMessage
	RecommendedActions []string
}

type jobUpdateParams struct {
	ErrorMessage *string
}

type JobUpdateOption func(*jobUpdateParams)

func WithErrorMessage(msg string) JobUpdateOption {
	return func(p *jobUpdateParams) {
		p.ErrorMessage = &msg
	}
}
