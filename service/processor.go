package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lai/trackfix/db"
	"github.com/lai/trackfix/trajectory"
)

// PointStore persists corrected track points.
type PointStore interface {
	BulkInsertTrackPoints(ctx context.Context, points []db.TrackPoint) error
}

// EventPublisher forwards correction events downstream.
type EventPublisher interface {
	Publish(ctx context.Context, evt CorrectionEvent) error
}

// Broadcaster pushes correction events to live subscribers.
type Broadcaster interface {
	Broadcast(deviceID string, msg WSMessage)
}

// Processor runs the anomaly corrector over incoming submissions and fans
// the results out to storage, the corrected topic and WebSocket clients.
type Processor struct {
	corrector *trajectory.Corrector
	store     PointStore
	events    EventPublisher
	hub       Broadcaster
}

// NewProcessor wires a processor from its collaborators.
func NewProcessor(c *trajectory.Corrector, store PointStore, events EventPublisher, hub Broadcaster) *Processor {
	return &Processor{corrector: c, store: store, events: events, hub: hub}
}

// HandleBatch processes a batch of raw submissions. A failure on one
// submission never blocks the rest of the batch.
func (p *Processor) HandleBatch(ctx context.Context, subs []TrajectorySubmission) {
	for _, sub := range subs {
		if err := sub.Valid(); err != nil {
			slog.Warn("dropping invalid submission", "error", err)
			continue
		}
		p.process(ctx, sub)
	}
}

func (p *Processor) process(ctx context.Context, sub TrajectorySubmission) {
	res := p.corrector.Correct(sub.Points)

	if err := p.store.BulkInsertTrackPoints(ctx, toRows(sub, res)); err != nil {
		// Storage is the source of truth; don't advertise points we failed
		// to persist.
		slog.Error("bulk insert failed",
			"error", err,
			"device_id", sub.DeviceID,
			"count", len(res.CorrectedPoints),
		)
		return
	}

	evt := NewCorrectionEvent(sub.DeviceID, res)
	if err := p.events.Publish(ctx, evt); err != nil {
		slog.Error("publish correction event failed",
			"error", err,
			"device_id", sub.DeviceID,
		)
	}

	p.hub.Broadcast(sub.DeviceID, WSMessage{
		Type: "trajectory",
		Data: evt,
	})

	slog.Info("corrected trajectory",
		"device_id", sub.DeviceID,
		"points", len(res.CorrectedPoints),
		"anomalies", res.AnomaliesDetected,
	)
}

// toRows converts a correction result into storable rows, flagging the
// points the corrector replaced.
func toRows(sub TrajectorySubmission, res trajectory.Result) []db.TrackPoint {
	rows := make([]db.TrackPoint, len(res.CorrectedPoints))
	for i, pt := range res.CorrectedPoints {
		rows[i] = db.TrackPoint{
			Time:         pgtype.Timestamptz{Time: time.Unix(pt.Time, 0).UTC(), Valid: true},
			DeviceID:     sub.DeviceID,
			Lat:          pt.Lat,
			Lon:          pt.Lon,
			Interpolated: pt != sub.Points[i],
		}
	}
	return rows
}
