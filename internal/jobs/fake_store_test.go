package jobs

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/agromonitor/fieldsight/internal/store"
	"github.com/agromonitor/fieldsight/pkg/models"
)

// fakeStore is an in-memory store.Store for handler and orchestrator tests.
// Job identity follows the same (tenant_id, job_key) rule as the real store.
type fakeStore struct {
	mu sync.Mutex

	aois         map[uuid.UUID]*models.AOI
	jobs         map[uuid.UUID]*models.Job
	jobKeys      map[string]uuid.UUID
	observations map[store.WeekKey]*models.WeeklyObservation
	radar        map[store.WeekKey]*models.RadarAsset
	signals      map[store.SignalKey]*models.OpportunitySignal
	seasons      map[uuid.UUID]*models.Season
	yields       []models.SeasonYield
	forecasts    []*models.YieldForecast
	weatherDays  []models.WeatherDay
	topography   []*models.TopographyAsset
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		aois:         make(map[uuid.UUID]*models.AOI),
		jobs:         make(map[uuid.UUID]*models.Job),
		jobKeys:      make(map[string]uuid.UUID),
		observations: make(map[store.WeekKey]*models.WeeklyObservation),
		radar:        make(map[store.WeekKey]*models.RadarAsset),
		signals:      make(map[store.SignalKey]*models.OpportunitySignal),
		seasons:      make(map[uuid.UUID]*models.Season),
	}
}

func (s *fakeStore) Ping(ctx context.Context) error { return nil }

func (s *fakeStore) GetAOI(ctx context.Context, id, tenantID uuid.UUID) (*models.AOI, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	aoi, ok := s.aois[id]
	if !ok || aoi.TenantID != tenantID {
		return nil, store.ErrNotFound
	}
	return aoi, nil
}

func (s *fakeStore) UpsertJob(ctx context.Context, job *models.Job) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keyID := job.TenantID.String() + "|" + job.JobKey
	if existing, ok := s.jobKeys[keyID]; ok {
		return existing, nil
	}
	cp := *job
	s.jobs[job.ID] = &cp
	s.jobKeys[keyID] = job.ID
	return job.ID, nil
}

func (s *fakeStore) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (s *fakeStore) MarkJobStatus(ctx context.Context, id uuid.UUID, status string, opts ...store.JobUpdateOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return store.ErrNotFound
	}
	job.Status = status
	return nil
}

func (s *fakeStore) UpsertWeeklyObservation(ctx context.Context, obs *models.WeeklyObservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *obs
	s.observations[store.WeekKey{
		TenantID: obs.TenantID, AOIID: obs.AOIID,
		Year: obs.Year, Week: obs.Week, PipelineVersion: obs.PipelineVersion,
	}] = &cp
	return nil
}

func (s *fakeStore) GetWeeklyObservation(ctx context.Context, key store.WeekKey) (*models.WeeklyObservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obs, ok := s.observations[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *obs
	return &cp, nil
}

func (s *fakeStore) ListObservationsThrough(ctx context.Context, key store.WeekKey, limit int) ([]models.WeeklyObservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.WeeklyObservation
	for k, obs := range s.observations {
		if k.TenantID != key.TenantID || k.AOIID != key.AOIID || k.PipelineVersion != key.PipelineVersion {
			continue
		}
		if k.Year*100+k.Week > key.Year*100+key.Week {
			continue
		}
		out = append(out, *obs)
	}
	// chronological order
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].Year*100+out[j].Week < out[i].Year*100+out[i].Week {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *fakeStore) UpsertRadarAsset(ctx context.Context, asset *models.RadarAsset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *asset
	s.radar[store.WeekKey{
		TenantID: asset.TenantID, AOIID: asset.AOIID,
		Year: asset.Year, Week: asset.Week, PipelineVersion: asset.PipelineVersion,
	}] = &cp
	return nil
}

func (s *fakeStore) GetRadarAsset(ctx context.Context, key store.WeekKey) (*models.RadarAsset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	asset, ok := s.radar[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *asset
	return &cp, nil
}

func (s *fakeStore) GetSignalByKey(ctx context.Context, key store.SignalKey) (*models.OpportunitySignal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sig, ok := s.signals[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *sig
	return &cp, nil
}

func (s *fakeStore) CreateSignal(ctx context.Context, sig *models.OpportunitySignal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := signalKeyOf(sig)
	if _, ok := s.signals[key]; ok {
		return store.ErrDuplicateKey
	}
	cp := *sig
	s.signals[key] = &cp
	return nil
}

func (s *fakeStore) CreateSignalIfAbsent(ctx context.Context, sig *models.OpportunitySignal) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := signalKeyOf(sig)
	if _, ok := s.signals[key]; ok {
		return false, nil
	}
	cp := *sig
	s.signals[key] = &cp
	return true, nil
}

func (s *fakeStore) UpdateSignalScore(ctx context.Context, id uuid.UUID, update store.SignalScoreUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sig := range s.signals {
		if sig.ID == id {
			sig.Score = update.Score
			sig.Severity = update.Severity
			sig.Confidence = update.Confidence
			sig.Evidence = update.Evidence
			sig.RecommendedActions = update.RecommendedActions
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *fakeStore) ListSignals(ctx context.Context, tenantID, aoiID uuid.UUID) ([]models.OpportunitySignal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.OpportunitySignal
	for _, sig := range s.signals {
		if sig.TenantID == tenantID && sig.AOIID == aoiID {
			out = append(out, *sig)
		}
	}
	return out, nil
}

func (s *fakeStore) GetActiveSeason(ctx context.Context, tenantID, aoiID uuid.UUID) (*models.Season, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, season := range s.seasons {
		if season.TenantID == tenantID && season.AOIID == aoiID && season.Active {
			cp := *season
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *fakeStore) ListSeasonYields(ctx context.Context, tenantID, aoiID uuid.UUID) ([]models.SeasonYield, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.SeasonYield
	for _, y := range s.yields {
		if y.TenantID == tenantID && y.AOIID == aoiID {
			out = append(out, y)
		}
	}
	return out, nil
}

func (s *fakeStore) UpsertYieldForecast(ctx context.Context, fc *models.YieldForecast) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *fc
	s.forecasts = append(s.forecasts, &cp)
	return nil
}

func (s *fakeStore) SaveWeatherDays(ctx context.Context, tenantID, aoiID uuid.UUID, days []models.WeatherDay) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.weatherDays = append(s.weatherDays, days...)
	return nil
}

func (s *fakeStore) UpsertTopographyAsset(ctx context.Context, asset *models.TopographyAsset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *asset
	s.topography = append(s.topography, &cp)
	return nil
}

func signalKeyOf(sig *models.OpportunitySignal) store.SignalKey {
	return store.SignalKey{
		WeekKey: store.WeekKey{
			TenantID: sig.TenantID, AOIID: sig.AOIID,
			Year: sig.Year, Week: sig.Week, PipelineVersion: sig.PipelineVersion,
		},
		SignalType: sig.SignalType,
	}
}

var _ store.Store = (*fakeStore)(nil)
