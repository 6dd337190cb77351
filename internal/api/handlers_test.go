package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yegors/flightrecon/internal/config"
	"github.com/yegors/flightrecon/internal/pipeline"
	"github.com/yegors/flightrecon/internal/refdata"
	"github.com/yegors/flightrecon/internal/websocket"
	"github.com/yegors/flightrecon/pkg/logger"
)

const aircraftCSV = `,Manufacturer,Company,Aircraft_type,Aircraft_family,Registration,Line_number,Classification,Emitter
0,Boeing,,737-823,737,N3KUAA,1,L2J,1
1,,Airbus,A321-231,A320,N171US,2,L2J,1
2,,,Boeing 777-223ER,,N407AS,3,L2J,1
3,Embraer,,E175,E-Jet,N600QX,4,L2J,1
`

const flightsCSV = `YEAR,MONTH,DAY,AIRLINE,FLIGHT_NUMBER,TAIL_NUMBER,ORIGIN_AIRPORT,DESTINATION_AIRPORT,SCHEDULED_DEPARTURE,TAXI_OUT,ELAPSED_TIME,AIR_TIME,TAXI_IN,SCHEDULED_ARRIVAL,ARRIVAL_DELAY,DIVERTED,CANCELLED,CANCELLATION_REASON
2015,1,1,AA,1,N3KUAA,LAX,PBI,0010,12,279,263,4,0750,70,0,0,
2015,1,2,US,2,N171US,SFO,CLT,0020,16,293,266,11,0806,5,1,0,
2015,1,3,AS,3,N407AS,ANC,SEA,0005,21,194,169,4,0430,-22,0,0,
2015,1,4,DL,4,N999DL,ATL,JFK,0600,10,120,100,8,0800,20,0,0,
2015,2,30,AA,5,N3KUAA,LAX,MIA,0020,,,,,0805,,0,1,B
`

type stubReference struct {
	data any
	err  error
}

func (s *stubReference) Get(_ context.Context, kind refdata.Kind) (any, error) {
	if s.err != nil {
		return nil, s.err
	}
	return map[string]any{"kind": string(kind), "items": s.data}, nil
}

type testEnv struct {
	server      *httptest.Server
	service     *pipeline.Service
	reportDir   string
	flightsPath string
}

func newTestEnv(t *testing.T, reference ReferenceSource) *testEnv {
	t.Helper()
	dir := t.TempDir()
	aircraftPath := filepath.Join(dir, "aircraft.csv")
	flightsPath := filepath.Join(dir, "flights.csv")
	require.NoError(t, os.WriteFile(aircraftPath, []byte(aircraftCSV), 0644))
	require.NoError(t, os.WriteFile(flightsPath, []byte(flightsCSV), 0644))

	cfg := &config.Config{
		Sources: config.SourcesConfig{AircraftPath: aircraftPath, FlightsPath: flightsPath},
		Flights: config.FlightsConfig{InvalidDatePolicy: config.DatePolicyExclude},
		Fleet:   config.FleetConfig{Tails: []string{"N3KUAA", "N171US"}},
	}

	log := logger.NewNop()
	reportDir := filepath.Join(dir, "reports")
	require.NoError(t, os.MkdirAll(reportDir, 0755))

	service := pipeline.NewService(pipeline.New(cfg, log),
		pipeline.WithReports(config.ReportConfig{PDFDir: reportDir}, nil))
	handler := NewHandler(service, reference, websocket.NewServer(log), "test", log)

	server := httptest.NewServer(NewRouter(handler, reportDir, log).Routes())
	t.Cleanup(server.Close)

	return &testEnv{server: server, service: service, reportDir: reportDir, flightsPath: flightsPath}
}

func (e *testEnv) trigger(t *testing.T) {
	t.Helper()
	_, err := e.service.Trigger(context.Background())
	require.NoError(t, err)
}

func (e *testEnv) post(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Post(e.server.URL+path, "application/json", nil)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *testEnv) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(e.server.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestHealthBeforeAndAfterRun(t *testing.T) {
	env := newTestEnv(t, nil)

	body := decode(t, env.get(t, "/api/v1/health"))
	assert.Equal(t, "waiting", body["status"])
	assert.Equal(t, "test", body["version"])

	env.trigger(t)
	body = decode(t, env.get(t, "/api/v1/health"))
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["last_run_id"])
}

func TestEndpointsRequireRun(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, path := range []string{
		"/api/v1/runs/latest",
		"/api/v1/aircraft",
		"/api/v1/merged",
		"/api/v1/reports/missing.pdf",
		"/api/v1/analysis/delay-status",
	} {
		resp := env.get(t, path)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode, path)
	}
}

func TestTriggerRun(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, err := http.Post(env.server.URL+"/api/v1/runs", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode(t, resp)
	runID := body["run_id"]
	assert.NotEmpty(t, runID)
	assert.EqualValues(t, 2, body["fleet_size"])

	latest := decode(t, env.get(t, "/api/v1/runs/latest"))
	assert.Equal(t, runID, latest["run_id"])
}

func TestGetAircraftFilter(t *testing.T) {
	env := newTestEnv(t, nil)
	env.trigger(t)

	body := decode(t, env.get(t, "/api/v1/aircraft"))
	assert.EqualValues(t, 3, body["total"])

	body = decode(t, env.get(t, "/api/v1/aircraft?manufacturer=BOEING"))
	assert.EqualValues(t, 2, body["total"])
	aircraft := body["aircraft"].([]any)
	require.Len(t, aircraft, 2)
	assert.Equal(t, "BOEING", aircraft[0].(map[string]any)["manufacturer"])
}

func TestGetFlightsPagination(t *testing.T) {
	env := newTestEnv(t, nil)
	env.trigger(t)

	body := decode(t, env.get(t, "/api/v1/flights?limit=2&offset=1"))
	assert.EqualValues(t, 4, body["total"])
	assert.EqualValues(t, 2, body["count"])

	body = decode(t, env.get(t, "/api/v1/flights?offset=10"))
	assert.EqualValues(t, 0, body["count"])
	assert.Empty(t, body["flights"])
}

func TestGetMergedByTail(t *testing.T) {
	env := newTestEnv(t, nil)
	env.trigger(t)

	body := decode(t, env.get(t, "/api/v1/merged?tail=N3KUAA"))
	assert.EqualValues(t, 1, body["total"])
	row := body["merged"].([]any)[0].(map[string]any)
	assert.Equal(t, "N3KUAA", row["registration"])
	assert.Equal(t, "737-823", row["aircraft_type"])
	assert.EqualValues(t, 16, row["block_variance"])
}

func TestMissingReports(t *testing.T) {
	env := newTestEnv(t, nil)
	env.trigger(t)

	body := decode(t, env.get(t, "/api/v1/reports/missing"))
	assert.Len(t, body["reports"], 4)

	resp := env.get(t, "/api/v1/reports/missing.pdf")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF"))
}

func TestBlockVarianceRanking(t *testing.T) {
	env := newTestEnv(t, nil)
	env.trigger(t)

	body := decode(t, env.get(t, "/api/v1/analysis/variance?by=airline&top=1"))
	groups := body["groups"].([]any)
	require.Len(t, groups, 1)
	assert.Equal(t, "US", groups[0].(map[string]any)["key"])

	body = decode(t, env.get(t, "/api/v1/analysis/variance?by=airline&bottom=1"))
	groups = body["groups"].([]any)
	require.Len(t, groups, 1)
	assert.Equal(t, "AA", groups[0].(map[string]any)["key"])

	body = decode(t, env.get(t, "/api/v1/analysis/variance"))
	assert.Equal(t, "aircraft_type", body["by"])
	assert.Len(t, body["groups"], 3)

	resp := env.get(t, "/api/v1/analysis/variance?by=colour")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAnalysisEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)
	env.trigger(t)

	for path, field := range map[string]string{
		"/api/v1/analysis/delay-status":          "statuses",
		"/api/v1/analysis/cancellations":         "reasons",
		"/api/v1/analysis/monthly-delays":        "months",
		"/api/v1/analysis/utilisation":           "utilisation",
		"/api/v1/analysis/day-of-week":           "days",
		"/api/v1/analysis/manufacturers":         "manufacturers",
		"/api/v1/analysis/families":              "families",
		"/api/v1/analysis/months":                "months",
		"/api/v1/analysis/cancellations-by-date": "dates",
	} {
		resp := env.get(t, path)
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		body := decode(t, resp)
		assert.Contains(t, body, field, path)
	}

	body := decode(t, env.get(t, "/api/v1/analysis/utilisation"))
	assert.Equal(t, []any{"N3KUAA", "N171US"}, body["fleet"])

	body = decode(t, env.get(t, "/api/v1/analysis/manufacturers"))
	manufacturers := body["manufacturers"].([]any)
	require.NotEmpty(t, manufacturers)
	assert.Equal(t, map[string]any{"key": "BOEING", "count": float64(2)}, manufacturers[0])
}

func TestReferenceDisabled(t *testing.T) {
	env := newTestEnv(t, nil)
	resp := env.get(t, "/api/v1/reference/airlines")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestReference(t *testing.T) {
	env := newTestEnv(t, &stubReference{data: []any{"AA"}})

	body := decode(t, env.get(t, "/api/v1/reference/airlines"))
	assert.Equal(t, "airlines", body["kind"])
	assert.Equal(t, "airlines", body["data"].(map[string]any)["kind"])

	resp := env.get(t, "/api/v1/reference/runways")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestReferenceUpstreamFailure(t *testing.T) {
	env := newTestEnv(t, &stubReference{err: errors.New("unreachable")})
	resp := env.get(t, "/api/v1/reference/airports")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestReportFiles(t *testing.T) {
	env := newTestEnv(t, nil)
	require.NoError(t, os.WriteFile(filepath.Join(env.reportDir, "aircraft-before.pdf"), []byte("%PDF-1.3"), 0644))

	resp := env.get(t, "/api/v1/reports/files/aircraft-before.pdf")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "no-cache, no-store, must-revalidate", resp.Header.Get("Cache-Control"))
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.3", string(data))

	resp = env.get(t, "/api/v1/reports/files/flights-after.pdf")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTriggerRewritesReportFiles(t *testing.T) {
	env := newTestEnv(t, nil)
	const file = "/api/v1/reports/files/missing-flights-after.pdf"

	require.NoError(t, os.WriteFile(env.flightsPath, []byte("YEAR,MONTH,DAY\n2015,1,1\n"), 0644))
	assert.Equal(t, http.StatusInternalServerError, env.post(t, "/api/v1/runs").StatusCode)
	assert.Equal(t, http.StatusNotFound, env.get(t, file).StatusCode)

	require.NoError(t, os.WriteFile(env.flightsPath, []byte(flightsCSV), 0644))
	require.Equal(t, http.StatusOK, env.post(t, "/api/v1/runs").StatusCode)
	resp := env.get(t, file)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(first), "%PDF"))

	more := flightsCSV + "2015,1,5,AA,6,N3KUAA,LAX,MIA,0020,,,,,0805,,0,1,B\n"
	require.NoError(t, os.WriteFile(env.flightsPath, []byte(more), 0644))
	require.Equal(t, http.StatusOK, env.post(t, "/api/v1/runs").StatusCode)
	resp = env.get(t, file)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	second, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.NotEqual(t, first, second, "the second run re-renders the report")
}

func TestGetAircraftManufacturerIgnoresCase(t *testing.T) {
	env := newTestEnv(t, nil)
	env.trigger(t)

	body := decode(t, env.get(t, "/api/v1/aircraft?manufacturer=airbus"))
	assert.EqualValues(t, 1, body["total"])
	body = decode(t, env.get(t, "/api/v1/aircraft?manufacturer=%20Boeing%20"))
	assert.EqualValues(t, 2, body["total"])
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	assert.Equal(t, []int{2, 3}, paginate(items, 2, 1))
	assert.Equal(t, []int{5}, paginate(items, 10, 4))
	assert.Equal(t, []int{}, paginate(items, 10, 5))
}
