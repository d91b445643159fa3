package jobs

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/agromonitor/fieldsight/internal/config"
	"github.com/agromonitor/fieldsight/internal/satellite"
	"github.com/agromonitor/fieldsight/internal/store"
	"github.com/agromonitor/fieldsight/internal/tiler"
	"github.com/agromonitor/fieldsight/internal/weather"
	"github.com/agromonitor/fieldsight/pkg/models"
)

// Pipeline holds the dependencies shared by all job handlers.
type Pipeline struct {
	store     store.Store
	provider  satellite.Provider
	tiler     tiler.StatsProvider
	weather   weather.Client
	satellite config.SatelliteConfig
	tilerCfg  config.TilerConfig
	pipeline  config.PipelineConfig
}

// NewPipeline wires the job handlers' shared dependencies.
func NewPipeline(st store.Store, provider satellite.Provider, tl tiler.StatsProvider, wc weather.Client, cfg *config.Config) *Pipeline {
	return &Pipeline{
		store:     st,
		provider:  provider,
		tiler:     tl,
		weather:   wc,
		satellite: cfg.Satellite,
		tilerCfg:  cfg.Tiler,
		pipeline:  cfg.Pipeline,
	}
}

// RegisterHandlers binds every pipeline job type on the runner.
func (p *Pipeline) RegisterHandlers(r *Runner) {
	r.Register(models.JobTypeProcessWeek, p.HandleProcessWeek)
	r.Register(models.JobTypeProcessRadarWeek, p.HandleProcessRadarWeek)
	r.Register(models.JobTypeAlertsWeek, p.HandleAlertsWeek)
	r.Register(models.JobTypeSignalsWeek, p.HandleSignalsWeek)
	r.Register(models.JobTypeForecastWeek, p.HandleForecastWeek)
	r.Register(models.JobTypeProcessWeather, p.HandleProcessWeather)
	r.Register(models.JobTypeProcessTopography, p.HandleProcessTopography)
}

func (p *Pipeline) weekKey(job *models.Job, yw YearWeek) store.WeekKey {
	return store.WeekKey{
		TenantID:        job.TenantID,
		AOIID:           job.AOIID,
		Year:            yw.Year,
		Week:            yw.Week,
		PipelineVersion: p.pipeline.Version,
	}
}

func weekPayload(job *models.Job) (YearWeek, error) {
	var wp models.WeekPayload
	if err := json.Unmarshal(job.Payload, &wp); err != nil {
		return YearWeek{}, fmt.Errorf("decode week payload: %w", err)
	}
	if wp.Week < 1 || wp.Week > 53 {
		return YearWeek{}, fmt.Errorf("week %d out of range", wp.Week)
	}
	return YearWeek{Year: wp.Year, Week: wp.Week}, nil
}

func rangePayload(job *models.Job) (time.Time, time.Time, error) {
	var rp models.RangePayload
	if err := json.Unmarshal(job.Payload, &rp); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("decode range payload: %w", err)
	}
	from, err := time.Parse("2006-01-02", rp.FromDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse from_date: %w", err)
	}
	to, err := time.Parse("2006-01-02", rp.ToDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse to_date: %w", err)
	}
	return from, to, nil
}

// mosaicURL addresses the week's scene set on the tiler: a STAC mosaic over
// explicit item ids, so re-runs with the same scenes hit the same key.
func mosaicURL(collection string, scenes []satellite.Scene) string {
	ids := make([]string, len(scenes))
	for i, s := range scenes {
		ids[i] = s.ID
	}
	return fmt.Sprintf("stac://%s?items=%s", collection, strings.Join(ids, ","))
}
