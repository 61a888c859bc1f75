package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relay/timesheet-bot/api"
	"github.com/relay/timesheet-bot/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) (*httptest.Server, *sqlite.Store) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	srv := httptest.NewServer(api.NewRouter(api.NewHandler(store)))
	t.Cleanup(srv.Close)
	return srv, store
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

// =============================================================================
// ENDPOINT TESTS
// =============================================================================

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	var body map[string]string
	status := getJSON(t, srv.URL+"/healthz", &body)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestStatus_ReflectsStoreCounters(t *testing.T) {
	srv, store := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, store.SaveSession(ctx, sqlite.SessionRecord{
		UserID: "u1", ChannelID: "c1", Step: "period",
	}))
	require.NoError(t, store.SaveCredentials(ctx, sqlite.CredentialRecord{
		UserID: "u1", EmailCipher: "a", APITokenCipher: "b",
	}))
	require.NoError(t, store.RecordReportRun(ctx, sqlite.ReportRun{
		ID: "run-1", UserID: "u1", Projects: "PORT",
		PeriodStart: "2024-05-01", PeriodEnd: "2024-05-31",
		RowCount: 3, TotalHours: "4,5", Filename: "trudozatraty.xlsx",
	}))

	var body api.StatusResponse
	status := getJSON(t, srv.URL+"/api/status", &body)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, body.ActiveSessions)
	assert.Equal(t, 1, body.AuthenticatedUsers)
	assert.Equal(t, 1, body.ReportsGenerated)
	assert.GreaterOrEqual(t, body.UptimeSeconds, int64(0))
}

func TestListReports(t *testing.T) {
	srv, store := newTestServer(t)
	ctx := context.Background()

	for _, id := range []string{"run-1", "run-2"} {
		require.NoError(t, store.RecordReportRun(ctx, sqlite.ReportRun{
			ID: id, UserID: "u1", Projects: "PORT",
			PeriodStart: "2024-05-01", PeriodEnd: "2024-05-31",
			RowCount: 1, TotalHours: "1", Filename: "trudozatraty.xlsx",
		}))
	}

	var runs []api.ReportRunResponse
	status := getJSON(t, srv.URL+"/api/reports", &runs)
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, runs, 2)
	assert.Equal(t, "PORT", runs[0].Projects)
	assert.NotEmpty(t, runs[0].CreatedAt)

	// limit caps the result
	status = getJSON(t, srv.URL+"/api/reports?limit=1", &runs)
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, runs, 1)
}

func TestListReports_BadLimit(t *testing.T) {
	srv, _ := newTestServer(t)

	var body api.ErrorResponse
	status := getJSON(t, srv.URL+"/api/reports?limit=zero", &body)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.NotEmpty(t, body.Error)
}
