package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	mw "github.com/agromonitor/fieldsight/internal/api/middleware"
	"github.com/agromonitor/fieldsight/internal/api/response"
	"github.com/agromonitor/fieldsight/internal/jobs"
	"github.com/agromonitor/fieldsight/internal/store"
)

// Backfiller defines the orchestrator capability the handler depends on.
type Backfiller interface {
	Backfill(ctx context.Context, cmd jobs.BackfillCommand) (*jobs.BackfillResult, error)
}

// NewBackfillHandler returns an http.HandlerFunc for POST /api/v1/backfills.
func NewBackfillHandler(svc Backfiller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := mw.GetTenantID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "MISSING_TENANT", "Missing tenant", nil)
			return
		}

		var req struct {
			AOIID    string `json:"aoi_id"`
			FromDate string `json:"from_date"`
			ToDate   string `json:"to_date"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		aoiID, err := uuid.Parse(req.AOIID)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "aoi_id must be a UUID", nil)
			return
		}

		from, err := time.Parse("2006-01-02", req.FromDate)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "from_date must be YYYY-MM-DD", nil)
			return
		}
		to, err := time.Parse("2006-01-02", req.ToDate)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "to_date must be YYYY-MM-DD", nil)
			return
		}

		result, err := svc.Backfill(r.Context(), jobs.BackfillCommand{
			TenantID: tenantID,
			AOIID:    aoiID,
			FromDate: from,
			ToDate:   to,
		})
		if err != nil {
			switch {
			case errors.Is(err, jobs.ErrInvalidDateRange):
				response.Error(w, http.StatusBadRequest, "INVALID_DATE_RANGE",
					"from_date must not be after to_date", nil)
			case errors.Is(err, store.ErrNotFound):
				response.Error(w, http.StatusNotFound, "AOI_NOT_FOUND",
					"No such AOI for this tenant", nil)
			default:
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
					"An unexpected error occurred", nil)
			}
			return
		}

		response.Accepted(w, backfillResponse{
			Weeks:     result.Weeks,
			JobsTotal: len(result.JobIDs),
			JobIDs:    result.JobIDs,
		})
	}
}

type backfillResponse struct {
	Weeks     int         `json:"weeks"`
	JobsTotal int         `json:"jobs_total"`
	JobIDs    []uuid.UUID `json:"job_ids"`
}
