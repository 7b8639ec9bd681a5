package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lai/trackfix/trajectory"
)

// mockProducer implements Producer for testing.
type mockProducer struct {
	written []TrajectorySubmission
	err     error
}

func (m *mockProducer) Write(ctx context.Context, sub TrajectorySubmission) error {
	if m.err != nil {
		return m.err
	}
	m.written = append(m.written, sub)
	return nil
}

func (m *mockProducer) Close() error {
	return nil
}

func validSubmission() TrajectorySubmission {
	return TrajectorySubmission{
		DeviceID: "tracker-17",
		Points: []trajectory.Coordinate{
			{Lat: 49.588396, Lon: 34.569212, Time: 1746025730},
			{Lat: 49.588400, Lon: 34.569220, Time: 1746025740},
			{Lat: 49.588410, Lon: 34.569230, Time: 1746025750},
		},
	}
}

func TestIngestHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		body       any
		prodErr    error
		wantStatus int
	}{
		{
			name:       "valid submission",
			method:     http.MethodPost,
			body:       validSubmission(),
			wantStatus: http.StatusAccepted,
		},
		{
			name:   "empty points accepted",
			method: http.MethodPost,
			body: TrajectorySubmission{
				DeviceID: "tracker-17",
				Points:   []trajectory.Coordinate{},
			},
			wantStatus: http.StatusAccepted,
		},
		{
			name:       "wrong method GET",
			method:     http.MethodGet,
			body:       nil,
			wantStatus: http.StatusMethodNotAllowed,
		},
		{
			name:       "wrong method PUT",
			method:     http.MethodPut,
			body:       validSubmission(),
			wantStatus: http.StatusMethodNotAllowed,
		},
		{
			name:       "invalid JSON",
			method:     http.MethodPost,
			body:       "{broken",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "empty device_id",
			method:     http.MethodPost,
			body:       `{"device_id": "", "points": []}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "point missing time field",
			method:     http.MethodPost,
			body:       `{"device_id": "tracker-17", "points": [{"lat": 49.5, "lon": 34.5}]}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "point missing lat field",
			method:     http.MethodPost,
			body:       `{"device_id": "tracker-17", "points": [{"lon": 34.5, "time": 1}]}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			// Ranges are intentionally not validated at ingestion.
			name:       "out of range coordinates accepted",
			method:     http.MethodPost,
			body:       `{"device_id": "tracker-17", "points": [{"lat": 49588396, "lon": 34569212, "time": 1746025730}]}`,
			wantStatus: http.StatusAccepted,
		},
		{
			name:       "producer error",
			method:     http.MethodPost,
			body:       validSubmission(),
			prodErr:    errors.New("kafka unavailable"),
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockProducer{err: tt.prodErr}
			h := NewIngestHandler(mock)

			var body []byte
			switch v := tt.body.(type) {
			case string:
				body = []byte(v)
			case nil:
				body = nil
			default:
				var err error
				body, err = json.Marshal(v)
				if err != nil {
					t.Fatalf("failed to marshal body: %v", err)
				}
			}

			req := httptest.NewRequest(tt.method, "/track", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("got status %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestIngestHandler_ForwardsSubmission(t *testing.T) {
	mock := &mockProducer{}
	h := NewIngestHandler(mock)

	sub := validSubmission()
	body, _ := json.Marshal(sub)
	req := httptest.NewRequest(http.MethodPost, "/track", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusAccepted)
	}
	if len(mock.written) != 1 {
		t.Fatalf("got %d written submissions, want 1", len(mock.written))
	}
	got := mock.written[0]
	if got.DeviceID != sub.DeviceID {
		t.Errorf("got DeviceID %q, want %q", got.DeviceID, sub.DeviceID)
	}
	if len(got.Points) != len(sub.Points) {
		t.Errorf("got %d points, want %d", len(got.Points), len(sub.Points))
	}
}

func TestCorrectHandler_ServeHTTP(t *testing.T) {
	h := NewCorrectHandler(trajectory.NewCorrector(trajectory.DefaultConfig()))

	tests := []struct {
		name       string
		method     string
		body       string
		wantStatus int
	}{
		{
			name:       "valid trajectory",
			method:     http.MethodPost,
			body:       `[{"lat": 0, "lon": 0, "time": 0}, {"lat": 1.0, "lon": 0, "time": 1}, {"lat": 0, "lon": 0, "time": 2}]`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "empty array",
			method:     http.MethodPost,
			body:       `[]`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "wrong method",
			method:     http.MethodGet,
			body:       "",
			wantStatus: http.StatusMethodNotAllowed,
		},
		{
			name:       "invalid JSON",
			method:     http.MethodPost,
			body:       `{not json`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "object instead of array",
			method:     http.MethodPost,
			body:       `{"lat": 0, "lon": 0, "time": 0}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "record missing field",
			method:     http.MethodPost,
			body:       `[{"lat": 0, "lon": 0}]`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/correct", bytes.NewReader([]byte(tt.body)))
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("got status %d, want %d; body=%s", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestCorrectHandler_WireContract(t *testing.T) {
	h := NewCorrectHandler(trajectory.NewCorrector(trajectory.DefaultConfig()))

	// Middle point jumps ~111km in one second and must come back as the
	// midpoint of its neighbors with its own timestamp.
	body := `[{"lat": 0, "lon": 0, "time": 0}, {"lat": 1.0, "lon": 0, "time": 1}, {"lat": 0, "lon": 0, "time": 2}]`
	req := httptest.NewRequest(http.MethodPost, "/api/correct", bytes.NewReader([]byte(body)))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusOK)
	}

	var resp struct {
		CorrectedPoints []struct {
			Lat  float64 `json:"lat"`
			Lon  float64 `json:"lon"`
			Time int64   `json:"time"`
		} `json:"corrected_points"`
		AnomaliesDetected  int `json:"anomalies_detected"`
		AnomaliesCorrected int `json:"anomalies_corrected"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if len(resp.CorrectedPoints) != 3 {
		t.Fatalf("got %d corrected points, want 3", len(resp.CorrectedPoints))
	}
	if resp.AnomaliesDetected != 1 || resp.AnomaliesCorrected != 1 {
		t.Errorf("counters = (%d, %d), want (1, 1)", resp.AnomaliesDetected, resp.AnomaliesCorrected)
	}
	mid := resp.CorrectedPoints[1]
	if mid.Lat != 0 || mid.Lon != 0 || mid.Time != 1 {
		t.Errorf("interpolated point = %+v, want (0, 0, 1)", mid)
	}
}
