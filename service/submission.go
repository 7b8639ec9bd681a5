package service

import (
	"errors"

	"github.com/lai/trackfix/trajectory"
)

// TrajectorySubmission is a batch of time-ordered GPS fixes uploaded by a
// device. It is the message format on the raw trajectory topic.
type TrajectorySubmission struct {
	DeviceID string                  `json:"device_id"`
	Points   []trajectory.Coordinate `json:"points"`
}

// Valid returns an error if the submission is structurally invalid.
// Field presence on individual points is enforced during JSON decoding;
// coordinate ranges are deliberately not checked.
func (s TrajectorySubmission) Valid() error {
	if s.DeviceID == "" {
		return errors.New("device_id required")
	}
	return nil
}
