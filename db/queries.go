package db

import "context"

const getRecipientsByDevice = `
SELECT device_id, email FROM alert_recipients WHERE device_id = $1
`

// GetRecipientsByDevice returns everyone subscribed to anomaly alerts for
// the given device.
func (q *Queries) GetRecipientsByDevice(ctx context.Context, deviceID string) ([]AlertRecipient, error) {
	rows, err := q.db.Query(ctx, getRecipientsByDevice, deviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recipients []AlertRecipient
	for rows.Next() {
		var r AlertRecipient
		if err := rows.Scan(&r.DeviceID, &r.Email); err != nil {
			return nil, err
		}
		recipients = append(recipients, r)
	}
	return recipients, rows.Err()
}

const recordAlert = `
INSERT INTO alerts_sent (device_id, anomalies_detected, recipient_email, subject)
VALUES ($1, $2, $3, $4)
`

// RecordAlertParams are the values logged for every alert email sent.
type RecordAlertParams struct {
	DeviceID          string
	AnomaliesDetected int
	RecipientEmail    string
	Subject           string
}

// RecordAlert logs a sent alert for auditing and dedup checks.
func (q *Queries) RecordAlert(ctx context.Context, arg RecordAlertParams) error {
	_, err := q.db.Exec(ctx, recordAlert,
		arg.DeviceID, arg.AnomaliesDetected, arg.RecipientEmail, arg.Subject)
	return err
}
