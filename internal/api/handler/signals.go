package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	mw "github.com/agromonitor/fieldsight/internal/api/middleware"
	"github.com/agromonitor/fieldsight/internal/api/response"
	"github.com/agromonitor/fieldsight/pkg/models"
)

// SignalLister reads persisted signals for one AOI.
type SignalLister interface {
	ListSignals(ctx context.Context, tenantID, aoiID uuid.UUID) ([]models.OpportunitySignal, error)
}

// NewListSignalsHandler returns an http.HandlerFunc for GET
// /api/v1/aois/{aoiID}/signals.
func NewListSignalsHandler(st SignalLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := mw.GetTenantID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "MISSING_TENANT", "Missing tenant", nil)
			return
		}

		aoiID, err := uuid.Parse(chi.URLParam(r, "aoiID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "aoiID must be a UUID", nil)
			return
		}

		signals, err := st.ListSignals(r.Context(), tenantID, aoiID)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		// An AOI with no signals is an empty collection, not a 404.
		if signals == nil {
			signals = []models.OpportunitySignal{}
		}
		response.Collection(w, signals, response.CollectionMeta{Count: len(signals)})
	}
}
