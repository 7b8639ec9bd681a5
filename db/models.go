package db

import "github.com/jackc/pgx/v5/pgtype"

// TrackPoint is a row in the track_points table. Interpolated marks
// points whose position was replaced by the anomaly corrector.
type TrackPoint struct {
	Time         pgtype.Timestamptz
	DeviceID     string
	Lat          float64
	Lon          float64
	Interpolated bool
}

// AlertRecipient is a row in alert_recipients: who gets emailed when a
// device's trajectory shows anomalies.
type AlertRecipient struct {
	DeviceID string
	Email    string
}
