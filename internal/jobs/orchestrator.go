package jobs

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/agromonitor/fieldsight/internal/queue"
	"github.com/agromonitor/fieldsight/internal/store"
	"github.com/agromonitor/fieldsight/pkg/models"
)

// ErrInvalidDateRange rejects a backfill whose from-date follows its to-date.
var ErrInvalidDateRange = errors.New("from_date must not be after to_date")

// BackfillCommand is a bulk historical reprocessing request for one AOI.
type BackfillCommand struct {
	TenantID uuid.UUID
	AOIID    uuid.UUID
	FromDate time.Time
	ToDate   time.Time
}

// BackfillResult reports the jobs created (or re-found) by a backfill.
type BackfillResult struct {
	JobIDs []uuid.UUID
	Weeks  int
}

// Orchestrator turns one backfill command into a deterministic set of
// per-week job records and queue messages. Job identity is content-hashed, so
// resubmitting an identical command collides with the existing rows.
type Orchestrator struct {
	store           store.Store
	publisher       queue.Publisher
	pipelineVersion string
}

// NewOrchestrator creates a backfill orchestrator.
func NewOrchestrator(st store.Store, pub queue.Publisher, pipelineVersion string) *Orchestrator {
	return &Orchestrator{store: st, publisher: pub, pipelineVersion: pipelineVersion}
}

// Backfill validates the command, fans out per-week jobs plus the two
// whole-AOI batch jobs, and enqueues a message per job. For W weeks it
// creates 4W + 2 jobs: per week PROCESS_WEEK, PROCESS_RADAR_WEEK,
// ALERTS_WEEK, and exactly one of SIGNALS_WEEK or FORECAST_WEEK depending on
// the AOI's signals flag, plus one PROCESS_WEATHER and one PROCESS_TOPOGRAPHY.
func (o *Orchestrator) Backfill(ctx context.Context, cmd BackfillCommand) (*BackfillResult, error) {
	if cmd.FromDate.After(cmd.ToDate) {
		return nil, ErrInvalidDateRange
	}

	aoi, err := o.store.GetAOI(ctx, cmd.AOIID, cmd.TenantID)
	if err != nil {
		return nil, fmt.Errorf("resolve aoi: %w", err)
	}

	weeks := WeeksInRange(cmd.FromDate, cmd.ToDate)
	result := &BackfillResult{Weeks: len(weeks)}

	for _, yw := range weeks {
		payload, err := json.Marshal(models.WeekPayload{Year: yw.Year, Week: yw.Week})
		if err != nil {
			return nil, fmt.Errorf("marshal week payload: %w", err)
		}

		weekJobTypes := []string{
			models.JobTypeProcessWeek,
			models.JobTypeProcessRadarWeek,
			models.JobTypeAlertsWeek,
		}
		// Anomaly-signal and yield-forecast modes are mutually exclusive
		// per AOI; the flag picks which weekly analysis job runs.
		if aoi.SignalsEnabled {
			weekJobTypes = append(weekJobTypes, models.JobTypeSignalsWeek)
		} else {
			weekJobTypes = append(weekJobTypes, models.JobTypeForecastWeek)
		}

		for _, jobType := range weekJobTypes {
			keyPart := fmt.Sprintf("%04d-W%02d", yw.Year, yw.Week)
			id, err := o.createAndEnqueue(ctx, cmd, jobType, keyPart, payload)
			if err != nil {
				return nil, err
			}
			result.JobIDs = append(result.JobIDs, id)
		}
	}

	rangePayload, err := json.Marshal(models.RangePayload{
		FromDate: cmd.FromDate.Format("2006-01-02"),
		ToDate:   cmd.ToDate.Format("2006-01-02"),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal range payload: %w", err)
	}

	rangeKey := fmt.Sprintf("%s..%s", cmd.FromDate.Format("2006-01-02"), cmd.ToDate.Format("2006-01-02"))
	for _, jobType := range []string{models.JobTypeProcessWeather, models.JobTypeProcessTopography} {
		id, err := o.createAndEnqueue(ctx, cmd, jobType, rangeKey, rangePayload)
		if err != nil {
			return nil, err
		}
		result.JobIDs = append(result.JobIDs, id)
	}

	slog.Info("backfill fanned out",
		"tenant_id", cmd.TenantID, "aoi_id", cmd.AOIID,
		"weeks", result.Weeks, "jobs", len(result.JobIDs))

	return result, nil
}

func (o *Orchestrator) createAndEnqueue(ctx context.Context, cmd BackfillCommand, jobType, keyPart string, payload json.RawMessage) (uuid.UUID, error) {
	now := time.Now().UTC()
	job := &models.Job{
		ID:        uuid.New(),
		TenantID:  cmd.TenantID,
		AOIID:     cmd.AOIID,
		JobType:   jobType,
		JobKey:    JobKey(cmd.TenantID, cmd.AOIID, jobType, keyPart, o.pipelineVersion),
		Status:    models.JobStatusPending,
		Payload:   payload,
		CreatedAt: now,
		UpdatedAt: now,
	}

	id, err := o.store.UpsertJob(ctx, job)
	if err != nil {
		return uuid.Nil, fmt.Errorf("upsert %s job: %w", jobType, err)
	}

	msg := queue.Message{JobID: id, JobType: jobType, Payload: payload}
	if err := o.publisher.Enqueue(ctx, msg); err != nil {
		return uuid.Nil, fmt.Errorf("enqueue %s job: %w", jobType, err)
	}

	return id, nil
}

// JobKey is the content hash of a job's defining parameters. Identical
// requests produce identical keys and collide on the (tenant_id, job_key)
// unique constraint instead of duplicating.
func JobKey(tenantID, aoiID uuid.UUID, jobType, keyPart, pipelineVersion string) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s|%s|%s", tenantID, aoiID, jobType, keyPart, pipelineVersion)))
	return fmt.Sprintf("%x", h)
}
