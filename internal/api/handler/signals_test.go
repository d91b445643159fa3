package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/agromonitor/fieldsight/pkg/models"
)

type mockSignalStore struct {
	signals   []models.OpportunitySignal
	err       error
	gotAOI    uuid.UUID
	gotTenant uuid.UUID
}

func (m *mockSignalStore) ListSignals(_ context.Context, tenantID, aoiID uuid.UUID) ([]models.OpportunitySignal, error) {
	m.gotTenant = tenantID
	m.gotAOI = aoiID
	return m.signals, m.err
}

func signalsReq(t *testing.T, aoiID string, tenantID uuid.UUID) *http.Request {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/aois/"+aoiID+"/signals", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("aoiID", aoiID)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(setTenantCtx(ctx, tenantID))
}

func TestListSignalsHandler_Success(t *testing.T) {
	tid := uuid.New()
	aoiID := uuid.New()
	st := &mockSignalStore{signals: []models.OpportunitySignal{
		{ID: uuid.New(), TenantID: tid, AOIID: aoiID, Year: 2025, Week: 10, SignalType: models.SignalTypeForageRisk, Severity: models.SeverityHigh, Score: 0.82},
		{ID: uuid.New(), TenantID: tid, AOIID: aoiID, Year: 2025, Week: 11, SignalType: models.SignalTypeNDVIAnomaly, Severity: models.SeverityMedium, Score: 0.55},
	}}
	h := NewListSignalsHandler(st)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, signalsReq(t, aoiID.String(), tid))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var env struct {
		Data []models.OpportunitySignal `json:"data"`
		Meta struct {
			Count int `json:"count"`
		} `json:"meta"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(env.Data) != 2 {
		t.Errorf("data = %d signals, want 2", len(env.Data))
	}
	if env.Meta.Count != 2 {
		t.Errorf("meta.count = %d, want 2", env.Meta.Count)
	}
	if st.gotTenant != tid || st.gotAOI != aoiID {
		t.Errorf("store called with tenant=%s aoi=%s", st.gotTenant, st.gotAOI)
	}
}

func TestListSignalsHandler_EmptyIsCollection(t *testing.T) {
	h := NewListSignalsHandler(&mockSignalStore{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, signalsReq(t, uuid.NewString(), uuid.New()))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	var env struct {
		Data []models.OpportunitySignal `json:"data"`
		Meta struct {
			Count int `json:"count"`
		} `json:"meta"`
	}
	if err := json.Unmarshal([]byte(body), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Data == nil {
		t.Errorf("data should be an empty array, not null: %s", body)
	}
	if env.Meta.Count != 0 {
		t.Errorf("meta.count = %d, want 0", env.Meta.Count)
	}
}

func TestListSignalsHandler_BadAOIID(t *testing.T) {
	h := NewListSignalsHandler(&mockSignalStore{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, signalsReq(t, "not-a-uuid", uuid.New()))

	status, code := parseErr(t, rec)
	if status != http.StatusBadRequest || code != "INVALID_REQUEST" {
		t.Errorf("got %d %q, want 400 INVALID_REQUEST", status, code)
	}
}

func TestListSignalsHandler_StoreError(t *testing.T) {
	h := NewListSignalsHandler(&mockSignalStore{err: errors.New("boom")})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, signalsReq(t, uuid.NewString(), uuid.New()))

	status, code := parseErr(t, rec)
	if status != http.StatusInternalServerError || code != "INTERNAL_ERROR" {
		t.Errorf("got %d %q, want 500 INTERNAL_ERROR", status, code)
	}
}
