package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agromonitor/fieldsight/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- AOIs ---

func (s *PostgresStore) GetAOI(ctx context.Context, id, tenantID uuid.UUID) (*models.AOI, error) {
	var a models.AOI
	err := s.pool.QueryRow(ctx,
		`SELECT id, tenant_id, name, use_type, crop_type, signals_enabled, geometry, centroid_lat, centroid_lon, created_at, updated_at
		 FROM aois WHERE id = $1 AND tenant_id = $2`, id, tenantID,
	).Scan(&a.ID, &a.TenantID, &a.Name, &a.UseType, &a.CropType, &a.SignalsEnabled,
		&a.Geometry, &a.CentroidLat, &a.CentroidLon, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get aoi: %w", err)
	}
	return &a, nil
}

// --- Jobs ---

func (s *PostgresStore) UpsertJob(ctx context.Context, job *models.Job) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx,
		`INSERT INTO jobs (id, tenant_id, aoi_id, job_type, job_key, status, payload, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (tenant_id, job_key) DO UPDATE SET updated_at = NOW()
		 RETURNING id`,
		job.ID, job.TenantID, job.AOIID, job.JobType, job.JobKey, job.Status,
		job.Payload, job.CreatedAt, job.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("upsert job: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var j models.Job
	err := s.pool.QueryRow(ctx,
		`SELECT id, tenant_id, aoi_id, job_type, job_key, status, payload, error_message, created_at, updated_at
		 FROM jobs WHERE id = $1`, id,
	).Scan(&j.ID, &j.TenantID, &j.AOIID, &j.JobType, &j.JobKey, &j.Status,
		&j.Payload, &j.ErrorMessage, &j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return &j, nil
}

var validTransitions = map[string][]string{
	models.JobStatusPending:   {models.JobStatusRunning, models.JobStatusCancelled},
	models.JobStatusRunning:   {models.JobStatusDone, models.JobStatusFailed, models.JobStatusCancelled},
	models.JobStatusFailed:    {models.JobStatusPending},
	models.JobStatusCancelled: {models.JobStatusPending},
}

func (s *PostgresStore) MarkJobStatus(ctx context.Context, id uuid.UUID, status string, opts ...JobUpdateOption) error {
	params := &jobUpdateParams{}
	for _, opt := range opts {
		opt(params)
	}

	var currentStatus string
	err := s.pool.QueryRow(ctx, `SELECT status FROM jobs WHERE id = $1`, id).Scan(&currentStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get job status: %w", err)
	}

	// Re-marking the current status is a no-op; queue redelivery may re-run
	// a job whose row already says RUNNING.
	if currentStatus == status {
		return nil
	}

	valid := false
	for _, a := range validTransitions[currentStatus] {
		if a == status {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, currentStatus, status)
	}

	now := time.Now().UTC()
	query := `UPDATE jobs SET status = $2, updated_at = $3`
	args := []any{id, status, now}
	argIdx := 4

	if params.ErrorMessage != nil {
		query += fmt.Sprintf(", error_message = $%d", argIdx)
		args = append(args, *params.ErrorMessage)
		argIdx++
	} else if status == models.JobStatusPending {
		// A retry clears the previous failure message.
		query += ", error_message = NULL"
	}

	query += " WHERE id = $1"

	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("mark job status: %w", err)
	}
	return nil
}

// --- Weekly observations ---

func (s *PostgresStore) UpsertWeeklyObservation(ctx context.Context, obs *models.WeeklyObservation) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO weekly_observations
		   (id, tenant_id, aoi_id, year, week, pipeline_version, status, ndvi, ndre, baseline, anomaly, valid_pixel_ratio, scene_count, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 ON CONFLICT (tenant_id, aoi_id, year, week, pipeline_version) DO UPDATE SET
		   status = EXCLUDED.status,
		   ndvi = EXCLUDED.ndvi,
		   ndre = EXCLUDED.ndre,
		   baseline = EXCLUDED.baseline,
		   anomaly = EXCLUDED.anomaly,
		   valid_pixel_ratio = EXCLUDED.valid_pixel_ratio,
		   scene_count = EXCLUDED.scene_count,
		   updated_at = NOW()`,
		obs.ID, obs.TenantID, obs.AOIID, obs.Year, obs.Week, obs.PipelineVersion,
		obs.Status, obs.NDVI, obs.NDRE, obs.Baseline, obs.Anomaly,
		obs.ValidPixelRatio, obs.SceneCount, obs.CreatedAt, obs.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert weekly observation: %w", err)
	}
	return nil
}

const observationColumns = `id, tenant_id, aoi_id, year, week, pipeline_version, status, ndvi, ndre, baseline, anomaly, valid_pixel_ratio, scene_count, created_at, updated_at`

func scanObservation(row pgx.Row) (*models.WeeklyObservation, error) {
	var o models.WeeklyObservation
	err := row.Scan(&o.ID, &o.TenantID, &o.AOIID, &o.Year, &o.Week, &o.PipelineVersion,
		&o.Status, &o.NDVI, &o.NDRE, &o.Baseline, &o.Anomaly, &o.ValidPixelRatio,
		&o.SceneCount, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *PostgresStore) GetWeeklyObservation(ctx context.Context, key WeekKey) (*models.WeeklyObservation, error) {
	o, err := scanObservation(s.pool.QueryRow(ctx,
		`SELECT `+observationColumns+` FROM weekly_observations
		 WHERE tenant_id = $1 AND aoi_id = $2 AND year = $3 AND week = $4 AND pipeline_version = $5`,
		key.TenantID, key.AOIID, key.Year, key.Week, key.PipelineVersion))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get weekly observation: %w", err)
	}
	return o, nil
}

func (s *PostgresStore) ListObservationsThrough(ctx context.Context, key WeekKey, limit int) ([]models.WeeklyObservation, error) {
	if limit <= 0 {
		limit = 52
	}
	// year*100+week orders ISO weeks correctly across year boundaries.
	rows, err := s.pool.Query(ctx,
		`SELECT `+observationColumns+` FROM (
		   SELECT `+observationColumns+` FROM weekly_observations
		   WHERE tenant_id = $1 AND aoi_id = $2 AND pipeline_version = $3
		     AND (year * 100 + week) <= $4
		   ORDER BY (year * 100 + week) DESC
		   LIMIT $5
		 ) trailing ORDER BY (year * 100 + week) ASC`,
		key.TenantID, key.AOIID, key.PipelineVersion, key.Year*100+key.Week, limit)
	if err != nil {
		return nil, fmt.Errorf("list observations: %w", err)
	}
	defer rows.Close()

	var out []models.WeeklyObservation
	for rows.Next() {
		o, err := scanObservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

// --- Radar assets ---

func (s *PostgresStore) UpsertRadarAsset(ctx context.Context, asset *models.RadarAsset) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO radar_assets
		   (id, tenant_id, aoi_id, year, week, pipeline_version, status, rvi, vv_vh_ratio, scene_count, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (tenant_id, aoi_id, year, week, pipeline_version) DO UPDATE SET
		   status = EXCLUDED.status,
		   rvi = EXCLUDED.rvi,
		   vv_vh_ratio = EXCLUDED.vv_vh_ratio,
		   scene_count = EXCLUDED.scene_count,
		   updated_at = NOW()`,
		asset.ID, asset.TenantID, asset.AOIID, asset.Year, asset.Week, asset.PipelineVersion,
		asset.Status, asset.RVI, asset.VVVHRatio, asset.SceneCount, asset.CreatedAt, asset.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert radar asset: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetRadarAsset(ctx context.Context, key WeekKey) (*models.RadarAsset, error) {
	var a models.RadarAsset
	err := s.pool.QueryRow(ctx,
		`SELECT id, tenant_id, aoi_id, year, week, pipeline_version, status, rvi, vv_vh_ratio, scene_count, created_at, updated_at
		 FROM radar_assets
		 WHERE tenant_id = $1 AND aoi_id = $2 AND year = $3 AND week = $4 AND pipeline_version = $5`,
		key.TenantID, key.AOIID, key.Year, key.Week, key.PipelineVersion,
	).Scan(&a.ID, &a.TenantID, &a.AOIID, &a.Year, &a.Week, &a.PipelineVersion,
		&a.Status, &a.RVI, &a.VVVHRatio, &a.SceneCount, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get radar asset: %w", err)
	}
	return &a, nil
}

// --- Opportunity signals ---

const signalColumns = `id, tenant_id, aoi_id, year, week, signal_type, pipeline_version, severity, confidence, score, evidence, recommended_actions, status, created_at, updated_at`

func (s *PostgresStore) GetSignalByKey(ctx context.Context, key SignalKey) (*models.OpportunitySignal, error) {
	var sig models.OpportunitySignal
	err := s.pool.QueryRow(ctx,
		`SELECT `+signalColumns+` FROM opportunity_signals
		 WHERE tenant_id = $1 AND aoi_id = $2 AND year = $3 AND week = $4 AND signal_type = $5 AND pipeline_version = $6`,
		key.TenantID, key.AOIID, key.Year, key.Week, key.SignalType, key.PipelineVersion,
	).Scan(&sig.ID, &sig.TenantID, &sig.AOIID, &sig.Year, &sig.Week, &sig.SignalType,
		&sig.PipelineVersion, &sig.Severity, &sig.Confidence, &sig.Score, &sig.Evidence,
		&sig.RecommendedActions, &sig.Status, &sig.CreatedAt, &sig.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get signal: %w", err)
	}
	return &sig, nil
}

func (s *PostgresStore) CreateSignal(ctx context.Context, sig *models.OpportunitySignal) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO opportunity_signals (`+signalColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		sig.ID, sig.TenantID, sig.AOIID, sig.Year, sig.Week, sig.SignalType,
		sig.PipelineVersion, sig.Severity, sig.Confidence, sig.Score, sig.Evidence,
		sig.RecommendedActions, sig.Status, sig.CreatedAt, sig.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create signal: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateSignalIfAbsent(ctx context.Context, sig *models.OpportunitySignal) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO opportunity_signals (`+signalColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 ON CONFLICT (tenant_id, aoi_id, year, week, signal_type, pipeline_version) DO NOTHING`,
		sig.ID, sig.TenantID, sig.AOIID, sig.Year, sig.Week, sig.SignalType,
		sig.PipelineVersion, sig.Severity, sig.Confidence, sig.Score, sig.Evidence,
		sig.RecommendedActions, sig.Status, sig.CreatedAt, sig.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("create signal if absent: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) UpdateSignalScore(ctx context.Context, id uuid.UUID, update SignalScoreUpdate) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE opportunity_signals
		 SET score = $2, severity = $3, confidence = $4, evidence = $5, recommended_actions = $6, updated_at = NOW()
		 WHERE id = $1`,
		id, update.Score, update.Severity, update.Confidence, update.Evidence, update.RecommendedActions)
	if err != nil {
		return fmt.Errorf("update signal score: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListSignals(ctx context.Context, tenantID, aoiID uuid.UUID) ([]models.OpportunitySignal, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+signalColumns+` FROM opportunity_signals
		 WHERE tenant_id = $1 AND aoi_id = $2
		 ORDER BY (year * 100 + week) DESC, signal_type`, tenantID, aoiID)
	if err != nil {
		return nil, fmt.Errorf("list signals: %w", err)
	}
	defer rows.Close()

	var out []models.OpportunitySignal
	for rows.Next() {
		var sig models.OpportunitySignal
		if err := rows.Scan(&sig.ID, &sig.TenantID, &sig.AOIID, &sig.Year, &sig.Week,
			&sig.SignalType, &sig.PipelineVersion, &sig.Severity, &sig.Confidence,
			&sig.Score, &sig.Evidence, &sig.RecommendedActions, &sig.Status,
			&sig.CreatedAt, &sig.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		out = append(out, sig)
	}
	return out, rows.Err()
}

// --- Seasons & yield forecasts ---

func (s *PostgresStore) GetActiveSeason(ctx context.Context, tenantID, aoiID uuid.UUID) (*models.Season, error) {
	var season models.Season
	err := s.pool.QueryRow(ctx,
		`SELECT id, tenant_id, aoi_id, crop_type, start_date, end_date, active, created_at
		 FROM seasons WHERE tenant_id = $1 AND aoi_id = $2 AND active ORDER BY start_date DESC LIMIT 1`,
		tenantID, aoiID,
	).Scan(&season.ID, &season.TenantID, &season.AOIID, &season.CropType,
		&season.StartDate, &season.EndDate, &season.Active, &season.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get active season: %w", err)
	}
	return &season, nil
}

func (s *PostgresStore) ListSeasonYields(ctx context.Context, tenantID, aoiID uuid.UUID) ([]models.SeasonYield, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, tenant_id, aoi_id, season_id, actual_yield, created_at
		 FROM season_yields WHERE tenant_id = $1 AND aoi_id = $2 ORDER BY created_at`, tenantID, aoiID)
	if err != nil {
		return nil, fmt.Errorf("list season yields: %w", err)
	}
	defer rows.Close()

	var out []models.SeasonYield
	for rows.Next() {
		var y models.SeasonYield
		if err := rows.Scan(&y.ID, &y.TenantID, &y.AOIID, &y.SeasonID, &y.ActualYield, &y.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan season yield: %w", err)
		}
		out = append(out, y)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpsertYieldForecast(ctx context.Context, fc *models.YieldForecast) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO yield_forecasts
		   (id, tenant_id, aoi_id, season_id, year, week, estimated_yield, confidence, method, evidence, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (tenant_id, aoi_id, season_id, year, week) DO UPDATE SET
		   estimated_yield = EXCLUDED.estimated_yield,
		   confidence = EXCLUDED.confidence,
		   method = EXCLUDED.method,
		   evidence = EXCLUDED.evidence,
		   updated_at = NOW()`,
		fc.ID, fc.TenantID, fc.AOIID, fc.SeasonID, fc.Year, fc.Week,
		fc.EstimatedYield, fc.Confidence, fc.Method, fc.Evidence, fc.CreatedAt, fc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert yield forecast: %w", err)
	}
	return nil
}

// --- Weather & topography ---

func (s *PostgresStore) SaveWeatherDays(ctx context.Context, tenantID, aoiID uuid.UUID, days []models.WeatherDay) error {
	if len(days) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, d := range days {
		batch.Queue(
			`INSERT INTO weather_observations (id, tenant_id, aoi_id, date, temp_max, temp_min, precip_sum, et0_fao, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
			 ON CONFLICT (tenant_id, aoi_id, date) DO UPDATE SET
			   temp_max = EXCLUDED.temp_max,
			   temp_min = EXCLUDED.temp_min,
			   precip_sum = EXCLUDED.precip_sum,
			   et0_fao = EXCLUDED.et0_fao`,
			uuid.New(), tenantID, aoiID, d.Date, d.TempMax, d.TempMin, d.PrecipSum, d.ET0FAO)
	}
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range days {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("save weather day: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) UpsertTopographyAsset(ctx context.Context, asset *models.TopographyAsset) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO topography_assets (id, tenant_id, aoi_id, elevation_mean, elevation_min, elevation_max, slope_mean, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (tenant_id, aoi_id) DO UPDATE SET
		   elevation_mean = EXCLUDED.elevation_mean,
		   elevation_min = EXCLUDED.elevation_min,
		   elevation_max = EXCLUDED.elevation_max,
		   slope_mean = EXCLUDED.slope_mean,
		   updated_at = NOW()`,
		asset.ID, asset.TenantID, asset.AOIID, asset.ElevationMean, asset.ElevationMin,
		asset.ElevationMax, asset.SlopeMean, asset.CreatedAt, asset.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert topography asset: %w", err)
	}
	return nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)
