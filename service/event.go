package service

import "github.com/lai/trackfix/trajectory"

// CorrectionEvent is published to the corrected trajectory topic after a
// submission has been cleaned. The corrected_points / anomalies_detected /
// anomalies_corrected field names are the wire contract with downstream
// consumers.
type CorrectionEvent struct {
	DeviceID           string                  `json:"device_id"`
	CorrectedPoints    []trajectory.Coordinate `json:"corrected_points"`
	AnomaliesDetected  int                     `json:"anomalies_detected"`
	AnomaliesCorrected int                     `json:"anomalies_corrected"`
}

// NewCorrectionEvent wraps a correction result with its device identity.
func NewCorrectionEvent(deviceID string, res trajectory.Result) CorrectionEvent {
	return CorrectionEvent{
		DeviceID:           deviceID,
		CorrectedPoints:    res.CorrectedPoints,
		AnomaliesDetected:  res.AnomaliesDetected,
		AnomaliesCorrected: res.AnomaliesCorrected,
	}
}
