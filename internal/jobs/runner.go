package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/agromonitor/fieldsight/internal/queue"
	"github.com/agromonitor/fieldsight/internal/store"
	"github.com/agromonitor/fieldsight/pkg/models"
)

// HandlerFunc processes one job. A returned error marks the job FAILED and is
// propagated to the queue consumer.
type HandlerFunc func(ctx context.Context, job *models.Job) error

// Runner wraps every handler in the job lifecycle envelope: mark RUNNING, do
// the work, mark DONE on success or FAILED with the error message, then
// re-raise. The durable job state always reflects the last known outcome,
// even across a crash or panic.
type Runner struct {
	store    store.Store
	handlers map[string]HandlerFunc
}

// NewRunner creates a Runner with no handlers registered.
func NewRunner(st store.Store) *Runner {
	return &Runner{store: st, handlers: make(map[string]HandlerFunc)}
}

// Register binds a job type to its handler.
func (r *Runner) Register(jobType string, h HandlerFunc) {
	r.handlers[jobType] = h
}

// Handle is the queue.Handler entry point.
func (r *Runner) Handle(ctx context.Context, msg queue.Message) (err error) {
	job, err := r.store.GetJob(ctx, msg.JobID)
	if err != nil {
		return fmt.Errorf("load job %s: %w", msg.JobID, err)
	}

	handler, ok := r.handlers[job.JobType]
	if !ok {
		return fmt.Errorf("no handler registered for job type %q", job.JobType)
	}

	if err := r.store.MarkJobStatus(ctx, job.ID, models.JobStatusRunning); err != nil {
		return fmt.Errorf("mark job running: %w", err)
	}

	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			msg := fmt.Sprintf("panic: %v", rec)
			slog.Error("panic in job handler", "job_id", job.ID, "job_type", job.JobType, "error", rec)
			_ = r.store.MarkJobStatus(ctx, job.ID, models.JobStatusFailed, store.WithErrorMessage(msg))
			err = fmt.Errorf("job %s panicked: %v", job.ID, rec)
		}
	}()

	if herr := handler(ctx, job); herr != nil {
		_ = r.store.MarkJobStatus(ctx, job.ID, models.JobStatusFailed, store.WithErrorMessage(herr.Error()))
		return fmt.Errorf("job %s (%s): %w", job.ID, job.JobType, herr)
	}

	if err := r.store.MarkJobStatus(ctx, job.ID, models.JobStatusDone); err != nil {
		return fmt.Errorf("mark job done: %w", err)
	}

	slog.Info("job completed",
		"job_id", job.ID, "job_type", job.JobType,
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}
