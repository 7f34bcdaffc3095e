package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"IrrigationSentinel/internal/config"
	"IrrigationSentinel/internal/export"
	"IrrigationSentinel/internal/recorder"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memRecorder struct {
	mu   sync.Mutex
	runs []*recorder.RunSnapshot
	err  error
}

func (m *memRecorder) RecordRun(snap *recorder.RunSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.runs = append(m.runs, snap)
	return nil
}

func (m *memRecorder) Close() error { return nil }

func (m *memRecorder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.runs)
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestServer(rec *memRecorder) *Server {
	return New(config.DefaultParameters(), 2, rec)
}

func do(t *testing.T, s *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decodeResult(t *testing.T, w *httptest.ResponseRecorder) EvaluateResult {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body %s)", err, w.Body.String())
	}
	var res EvaluateResult
	if err := json.Unmarshal(env.Data, &res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	return res
}

const dryRow = `{"timestamp":"2024-06-01 06:00:00","ndvi":0.5,"soil_moisture":20,"et0":5,"forecast_rain":0}`
const wetRow = `{"timestamp":"2024-06-02 06:00:00","ndvi":0.8,"soil_moisture":35,"et0":2,"forecast_rain":6}`

func TestHealthz(t *testing.T) {
	s := newTestServer(&memRecorder{})
	w := do(t, s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Header().Get(RequestIDHeader) == "" {
		t.Error("expected a generated request id")
	}
}

func TestRequestID_ReusesClientValue(t *testing.T) {
	s := newTestServer(&memRecorder{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc123")
	w := do(t, s, req)
	if got := w.Header().Get(RequestIDHeader); got != "abc123" {
		t.Errorf("expected abc123, got %q", got)
	}
}

func TestParameters(t *testing.T) {
	s := newTestServer(&memRecorder{})
	w := do(t, s, httptest.NewRequest(http.MethodGet, "/api/parameters", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	var view struct {
		NDVIThreshold         float64 `json:"ndvi_threshold"`
		SoilMoistureThreshold float64 `json:"soil_moisture_threshold"`
	}
	if err := json.Unmarshal(env.Data, &view); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	p := config.DefaultParameters()
	if view.NDVIThreshold != p.NDVIThreshold || view.SoilMoistureThreshold != p.SoilMoistureThreshold() {
		t.Errorf("unexpected parameters view: %+v", view)
	}
}

func TestEvaluateJSON(t *testing.T) {
	rec := &memRecorder{}
	s := newTestServer(rec)
	body := `{"observations":[` + dryRow + `,` + wetRow + `]}`
	w := do(t, s, httptest.NewRequest(http.MethodPost, "/api/evaluate", strings.NewReader(body)))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	res := decodeResult(t, w)
	if res.Status != StatusOK || res.RunID == "" {
		t.Errorf("unexpected status %q run %q", res.Status, res.RunID)
	}
	if len(res.Decisions) != 2 {
		t.Fatalf("expected 2 decisions, got %d", len(res.Decisions))
	}
	first := res.Decisions[0]
	if !first.Irrigate || math.Abs(first.IrrigationMM-5.75) > 1e-9 {
		t.Errorf("first row: irrigate=%v mm=%v", first.Irrigate, first.IrrigationMM)
	}
	if res.Decisions[1].Irrigate {
		t.Error("second row should not irrigate")
	}
	if res.Summary == nil || res.Summary.IrrigationEvents != 1 {
		t.Errorf("unexpected summary: %+v", res.Summary)
	}
	if rec.count() != 1 {
		t.Errorf("expected 1 recorded run, got %d", rec.count())
	}
}

func TestEvaluateJSON_ParameterOverride(t *testing.T) {
	s := newTestServer(&memRecorder{})
	body := `{"parameters":{"ndvi_threshold":0.4},"observations":[` + dryRow + `]}`
	w := do(t, s, httptest.NewRequest(http.MethodPost, "/api/evaluate", strings.NewReader(body)))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	res := decodeResult(t, w)
	if res.Decisions[0].Irrigate {
		t.Error("NDVI 0.5 is not below 0.4, expected no irrigation")
	}
	if res.Parameters.NDVIThreshold != 0.4 {
		t.Errorf("expected echoed threshold 0.4, got %v", res.Parameters.NDVIThreshold)
	}
}

func TestEvaluateJSON_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"observations":`},
		{"no observations key", `{"parameters":{}}`},
		{"missing soil moisture", `{"observations":[{"timestamp":"2024-06-01","ndvi":0.5,"et0":5,"forecast_rain":0}]}`},
		{"bad timestamp", `{"observations":[{"timestamp":"yesterday","ndvi":0.5,"soil_moisture":20,"et0":5,"forecast_rain":0}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &memRecorder{}
			s := newTestServer(rec)
			w := do(t, s, httptest.NewRequest(http.MethodPost, "/api/evaluate", strings.NewReader(tt.body)))
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
			if rec.count() != 0 {
				t.Error("nothing should be recorded for a rejected request")
			}
		})
	}
}

func TestEvaluateJSON_Empty(t *testing.T) {
	rec := &memRecorder{}
	s := newTestServer(rec)
	w := do(t, s, httptest.NewRequest(http.MethodPost, "/api/evaluate", strings.NewReader(`{"observations":[]}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	res := decodeResult(t, w)
	if res.Status != StatusNoData || len(res.Decisions) != 0 || res.Summary != nil {
		t.Errorf("expected neutral no-data result, got %+v", res)
	}
	if rec.count() != 0 {
		t.Error("empty evaluations are not recorded")
	}
}

func TestEvaluateJSON_RecorderFailureStillAnswers(t *testing.T) {
	s := newTestServer(&memRecorder{err: errors.New("disk full")})
	body := `{"observations":[` + dryRow + `]}`
	w := do(t, s, httptest.NewRequest(http.MethodPost, "/api/evaluate", strings.NewReader(body)))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 despite recorder failure, got %d", w.Code)
	}
}

const sampleCSV = "timestamp,NDVI,soil_moisture,ET0,forecast_rain\n" +
	"2024-06-01 06:00:00,0.5,20,5,0\n" +
	"2024-06-02 06:00:00,0.8,35,2,6\n"

func TestEvaluateCSV_RawBodyAsCSV(t *testing.T) {
	s := newTestServer(&memRecorder{})
	req := httptest.NewRequest(http.MethodPost, "/api/evaluate/csv?format=csv", strings.NewReader(sampleCSV))
	req.Header.Set("Content-Type", "text/csv")
	w := do(t, s, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, export.DefaultFileName) {
		t.Errorf("unexpected Content-Disposition %q", cd)
	}
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines", len(lines))
	}
	if lines[0] != strings.Join(export.Header, ",") {
		t.Errorf("unexpected header %q", lines[0])
	}
	if !strings.Contains(lines[1], ",True,") || !strings.Contains(lines[2], ",False,") {
		t.Errorf("unexpected rows: %q / %q", lines[1], lines[2])
	}
}

func TestEvaluateCSV_Multipart(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "plot.csv")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	fw.Write([]byte(sampleCSV))
	mw.Close()

	s := newTestServer(&memRecorder{})
	req := httptest.NewRequest(http.MethodPost, "/api/evaluate/csv", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := do(t, s, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	res := decodeResult(t, w)
	if len(res.Decisions) != 2 || !res.Decisions[0].Irrigate {
		t.Errorf("unexpected decisions: %+v", res.Decisions)
	}
}

func TestEvaluateCSV_QueryOverride(t *testing.T) {
	s := newTestServer(&memRecorder{})
	req := httptest.NewRequest(http.MethodPost, "/api/evaluate/csv?rain_threshold=0", strings.NewReader(sampleCSV))
	w := do(t, s, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	res := decodeResult(t, w)
	if res.Decisions[0].Irrigate {
		t.Error("rain 0 is not below 0, expected no irrigation")
	}
}

func TestEvaluateCSV_BadRequests(t *testing.T) {
	tests := []struct {
		name  string
		query string
		body  string
	}{
		{"non-numeric parameter", "?crop_coefficient=abc", sampleCSV},
		{"non-finite parameter", "?ndvi_threshold=NaN", sampleCSV},
		{"missing column", "", "timestamp,NDVI,soil_moisture,ET0\n2024-06-01,0.5,20,5\n"},
		{"non-numeric cell", "", "timestamp,NDVI,soil_moisture,ET0,forecast_rain\n2024-06-01,x,20,5,0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&memRecorder{})
			req := httptest.NewRequest(http.MethodPost, "/api/evaluate/csv"+tt.query, strings.NewReader(tt.body))
			w := do(t, s, req)
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestEvaluateCSV_EmptyIsNoData(t *testing.T) {
	for _, body := range []string{"", "timestamp,NDVI,soil_moisture,ET0,forecast_rain\n"} {
		s := newTestServer(&memRecorder{})
		req := httptest.NewRequest(http.MethodPost, "/api/evaluate/csv?format=csv", strings.NewReader(body))
		w := do(t, s, req)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if res := decodeResult(t, w); res.Status != StatusNoData {
			t.Errorf("body %q: expected no_data, got %q", body, res.Status)
		}
	}
}

func TestLatestRun(t *testing.T) {
	rec, err := recorder.NewSQLiteRecorder(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("open recorder: %v", err)
	}
	defer rec.Close()
	s := New(config.DefaultParameters(), 1, rec)

	w := do(t, s, httptest.NewRequest(http.MethodGet, "/api/runs/latest", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on empty history, got %d", w.Code)
	}

	body := `{"observations":[` + dryRow + `]}`
	w = do(t, s, httptest.NewRequest(http.MethodPost, "/api/evaluate", strings.NewReader(body)))
	runID := decodeResult(t, w).RunID

	w = do(t, s, httptest.NewRequest(http.MethodGet, "/api/runs/latest", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	var snap recorder.RunSnapshot
	if err := json.Unmarshal(env.Data, &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.RunID != runID || len(snap.Decisions) != 1 {
		t.Errorf("unexpected latest run: id %q, %d decisions", snap.RunID, len(snap.Decisions))
	}
}

func TestLatestRun_WithoutHistory(t *testing.T) {
	s := newTestServer(&memRecorder{})
	w := do(t, s, httptest.NewRequest(http.MethodGet, "/api/runs/latest", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestEvaluateCSV_ExtraColumnsPassThrough(t *testing.T) {
	s := newTestServer(&memRecorder{})
	in := "timestamp,NDVI,soil_moisture,ET0,forecast_rain,plot\n" +
		"2024-06-01 06:00:00,0.5,20,5,0,T4\n"
	w := do(t, s, httptest.NewRequest(http.MethodPost, "/api/evaluate/csv?format=csv", strings.NewReader(in)))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0] != "timestamp,NDVI,soil_moisture,ET0,forecast_rain,plot,irrigate,ETc,irrigation_mm" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if !strings.Contains(lines[1], ",T4,True,") {
		t.Errorf("expected plot cell before the decision, got %q", lines[1])
	}
}
