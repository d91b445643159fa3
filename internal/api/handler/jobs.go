package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	mw "github.com/agromonitor/fieldsight/internal/api/middleware"
	"github.com/agromonitor/fieldsight/internal/api/response"
	"github.com/agromonitor/fieldsight/internal/queue"
	"github.com/agromonitor/fieldsight/internal/store"
	"github.com/agromonitor/fieldsight/pkg/models"
)

// JobReader loads jobs for status polling.
type JobReader interface {
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
}

// JobRetrier resets a terminal job and re-dispatches it.
type JobRetrier interface {
	JobReader
	MarkJobStatus(ctx context.Context, id uuid.UUID, status string, opts ...store.JobUpdateOption) error
}

// NewGetJobHandler returns an http.HandlerFunc for GET /api/v1/jobs/{jobID}.
func NewGetJobHandler(st JobReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := mw.GetTenantID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "MISSING_TENANT", "Missing tenant", nil)
			return
		}

		job, ok := loadTenantJob(w, r, st, tenantID)
		if !ok {
			return
		}
		response.JSON(w, job)
	}
}

// NewRetryJobHandler returns an http.HandlerFunc for POST
// /api/v1/jobs/{jobID}/retry. Only FAILED and CANCELLED jobs are retryable;
// the reset clears the stored error message and re-enqueues the original
// payload.
func NewRetryJobHandler(st JobRetrier, pub queue.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := mw.GetTenantID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "MISSING_TENANT", "Missing tenant", nil)
			return
		}

		job, ok := loadTenantJob(w, r, st, tenantID)
		if !ok {
			return
		}

		if job.Status != models.JobStatusFailed && job.Status != models.JobStatusCancelled {
			response.Error(w, http.StatusConflict, "NOT_RETRYABLE",
				"Only FAILED or CANCELLED jobs can be retried", map[string]string{"status": job.Status})
			return
		}

		if err := st.MarkJobStatus(r.Context(), job.ID, models.JobStatusPending); err != nil {
			if errors.Is(err, store.ErrInvalidTransition) {
				response.Error(w, http.StatusConflict, "NOT_RETRYABLE",
					"Job state changed concurrently", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		msg := queue.Message{JobID: job.ID, JobType: job.JobType, Payload: job.Payload}
		if err := pub.Enqueue(r.Context(), msg); err != nil {
			response.Error(w, http.StatusInternalServerError, "ENQUEUE_FAILED",
				"Job was reset but could not be enqueued", nil)
			return
		}

		response.Accepted(w, map[string]any{
			"job_id": job.ID,
			"status": models.JobStatusPending,
		})
	}
}

// loadTenantJob resolves the path id and enforces tenant ownership. A job
// belonging to another tenant reads as not found.
func loadTenantJob(w http.ResponseWriter, r *http.Request, st JobReader, tenantID uuid.UUID) (*models.Job, bool) {
	jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "jobID must be a UUID", nil)
		return nil, false
	}

	job, err := st.GetJob(r.Context(), jobID)
	if errors.Is(err, store.ErrNotFound) {
		response.Error(w, http.StatusNotFound, "JOB_NOT_FOUND", "No such job", nil)
		return nil, false
	}
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"An unexpected error occurred", nil)
		return nil, false
	}
	if job.TenantID != tenantID {
		response.Error(w, http.StatusNotFound, "JOB_NOT_FOUND", "No such job", nil)
		return nil, false
	}
	return job, true
}
