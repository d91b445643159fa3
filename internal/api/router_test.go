package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agromonitor/fieldsight/internal/api"
	"github.com/agromonitor/fieldsight/internal/api/handler"
	mw "github.com/agromonitor/fieldsight/internal/api/middleware"
	"github.com/agromonitor/fieldsight/internal/api/response"
	"github.com/agromonitor/fieldsight/internal/jobs"
	"github.com/agromonitor/fieldsight/pkg/models"
)

// --- stubs ---

type stubBackfiller struct {
	result *jobs.BackfillResult
	err    error
}

func (s *stubBackfiller) Backfill(_ context.Context, _ jobs.BackfillCommand) (*jobs.BackfillResult, error) {
	return s.result, s.err
}

type stubSignals struct{}

func (s *stubSignals) ListSignals(_ context.Context, _, _ uuid.UUID) ([]models.OpportunitySignal, error) {
	return nil, nil
}

// --- harness ---

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	deps := api.Dependencies{
		HealthHandler: func(w http.ResponseWriter, _ *http.Request) {
			response.JSON(w, map[string]string{"status": "OK"})
		},
		BackfillHandler: handler.NewBackfillHandler(&stubBackfiller{
			result: &jobs.BackfillResult{JobIDs: []uuid.UUID{uuid.New()}, Weeks: 1},
		}),
		GetJobHandler: func(w http.ResponseWriter, _ *http.Request) {
			response.Error(w, http.StatusNotFound, "JOB_NOT_FOUND", "No such job", nil)
		},
		ListSignalsHandler: handler.NewListSignalsHandler(&stubSignals{}),
		// RetryJobHandler left nil to exercise the 501 placeholder.
	}

	srv := httptest.NewServer(api.NewRouter(deps))
	t.Cleanup(srv.Close)
	return srv
}

func tenantRequest(t *testing.T, srv *httptest.Server, method, path string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(mw.TenantHeader, uuid.NewString())
	return req
}

// --- tests ---

func TestRouter_HealthIsPublic(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_TenantRoutesRequireHeader(t *testing.T) {
	srv := newTestServer(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/backfills"},
		{http.MethodGet, "/api/v1/jobs/" + uuid.NewString()},
		{http.MethodPost, "/api/v1/jobs/" + uuid.NewString() + "/retry"},
		{http.MethodGet, "/api/v1/aois/" + uuid.NewString() + "/signals"},
	}

	for _, p := range paths {
		req, err := http.NewRequest(p.method, srv.URL+p.path, nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "%s %s", p.method, p.path)
	}
}

func TestRouter_BackfillThroughStack(t *testing.T) {
	srv := newTestServer(t)

	req := tenantRequest(t, srv, http.MethodPost, "/api/v1/backfills", map[string]string{
		"aoi_id":    uuid.NewString(),
		"from_date": "2025-03-03",
		"to_date":   "2025-03-09",
	})
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	var env struct {
		Data struct {
			Weeks  int         `json:"weeks"`
			JobIDs []uuid.UUID `json:"job_ids"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	assert.Equal(t, 1, env.Data.Weeks)
	assert.Len(t, env.Data.JobIDs, 1)
}

func TestRouter_SignalsEmptyCollection(t *testing.T) {
	srv := newTestServer(t)

	req := tenantRequest(t, srv, http.MethodGet, "/api/v1/aois/"+uuid.NewString()+"/signals", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var env struct {
		Data []json.RawMessage `json:"data"`
		Meta struct {
			Count int `json:"count"`
		} `json:"meta"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	assert.NotNil(t, env.Data)
	assert.Equal(t, 0, env.Meta.Count)
}

func TestRouter_NilHandlerIs501(t *testing.T) {
	srv := newTestServer(t)

	req := tenantRequest(t, srv, http.MethodPost, "/api/v1/jobs/"+uuid.NewString()+"/retry", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
}
