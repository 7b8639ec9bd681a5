package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/lai/trackfix/trajectory"
)

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// Producer accepts raw trajectory submissions for asynchronous processing.
type Producer interface {
	Write(ctx context.Context, sub TrajectorySubmission) error
	Close() error
}

// IngestHandler accepts trajectory uploads and forwards them to Kafka.
type IngestHandler struct {
	producer Producer
}

// NewIngestHandler creates a handler with the given producer.
func NewIngestHandler(p Producer) *IngestHandler {
	return &IngestHandler{producer: p}
}

// ServeHTTP handles POST /track.
// The body is a single submission: {"device_id": "...", "points": [...]}.
// GPS devices buffer fixes locally and upload whole trajectories at once,
// so the unit of ingestion is the ordered batch, never a lone point.
func (h *IngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}

	var sub TrajectorySubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := sub.Valid(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.producer.Write(r.Context(), sub); err != nil {
		slog.Error("kafka write failed",
			"error", err,
			"device_id", sub.DeviceID,
			"request_id", r.Header.Get("X-Request-ID"),
		)
		writeError(w, http.StatusServiceUnavailable, "service temporarily unavailable")
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// CorrectHandler runs the anomaly corrector synchronously over a posted
// trajectory. It exists for callers that want cleaned points back
// immediately instead of going through the pipeline.
type CorrectHandler struct {
	corrector *trajectory.Corrector
}

// NewCorrectHandler creates a handler backed by the given corrector.
func NewCorrectHandler(c *trajectory.Corrector) *CorrectHandler {
	return &CorrectHandler{corrector: c}
}

// ServeHTTP handles POST /api/correct.
// The body is a bare JSON array of coordinate records; the response carries
// corrected_points plus the two anomaly counters.
func (h *CorrectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}

	var points []trajectory.Coordinate
	if err := json.NewDecoder(r.Body).Decode(&points); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	res := h.corrector.Correct(points)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}
