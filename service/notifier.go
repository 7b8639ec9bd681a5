package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nikoksr/notify"
	"github.com/nikoksr/notify/service/mail"

	"github.com/lai/trackfix/db"
)

// Notifier emails subscribers when a device's trajectory shows enough
// anomalies to be worth a look.
type Notifier struct {
	queries      *db.Queries
	smtpHost     string
	smtpPort     int
	smtpUser     string
	smtpPassword string
	minAnomalies int
}

// NewNotifier creates a notifier. Events with fewer than minAnomalies
// detected anomalies are ignored.
func NewNotifier(queries *db.Queries, smtpHost string, smtpPort int, smtpUser, smtpPassword string, minAnomalies int) *Notifier {
	return &Notifier{
		queries:      queries,
		smtpHost:     smtpHost,
		smtpPort:     smtpPort,
		smtpUser:     smtpUser,
		smtpPassword: smtpPassword,
		minAnomalies: minAnomalies,
	}
}

// HandleBatch processes a batch of correction events.
func (n *Notifier) HandleBatch(ctx context.Context, events []CorrectionEvent) {
	for _, evt := range events {
		if err := n.handleEvent(ctx, evt); err != nil {
			slog.Error("handle event failed",
				"device_id", evt.DeviceID,
				"anomalies", evt.AnomaliesDetected,
				"error", err,
			)
		}
	}
}

func (n *Notifier) handleEvent(ctx context.Context, evt CorrectionEvent) error {
	if evt.AnomaliesDetected < n.minAnomalies {
		return nil
	}

	recipients, err := n.queries.GetRecipientsByDevice(ctx, evt.DeviceID)
	if err != nil {
		return fmt.Errorf("get recipients: %w", err)
	}
	if len(recipients) == 0 {
		slog.Debug("no recipients for device", "device_id", evt.DeviceID)
		return nil
	}

	subject := alertSubject(evt)
	body := alertBody(evt)

	emails := make([]string, len(recipients))
	for i, r := range recipients {
		emails[i] = r.Email
	}

	// Fresh mail service per event: the mail service accumulates receivers
	// across AddReceivers calls, so reusing one would cause duplicate sends.
	mailSvc := mail.New(n.smtpUser, fmt.Sprintf("%s:%d", n.smtpHost, n.smtpPort))
	mailSvc.AuthenticateSMTP("", n.smtpUser, n.smtpPassword, n.smtpHost)
	mailSvc.AddReceivers(emails...)

	notifier := notify.New()
	notifier.UseServices(mailSvc)

	if err := notifier.Send(ctx, subject, body); err != nil {
		slog.Error("send email failed", "error", err, "recipients", emails)
		return fmt.Errorf("send email: %w", err)
	}

	for _, r := range recipients {
		if err := n.queries.RecordAlert(ctx, db.RecordAlertParams{
			DeviceID:          evt.DeviceID,
			AnomaliesDetected: evt.AnomaliesDetected,
			RecipientEmail:    r.Email,
			Subject:           subject,
		}); err != nil {
			slog.Error("record alert failed", "recipient", r.Email, "error", err)
		}
	}

	slog.Info("alert sent",
		"device_id", evt.DeviceID,
		"anomalies", evt.AnomaliesDetected,
		"recipients", len(recipients),
	)

	return nil
}

func alertSubject(evt CorrectionEvent) string {
	return fmt.Sprintf("[trackfix] Device %s: %d anomalous GPS fixes corrected",
		evt.DeviceID, evt.AnomaliesCorrected)
}

func alertBody(evt CorrectionEvent) string {
	body := fmt.Sprintf(
		"Device: %s\nPoints in trajectory: %d\nAnomalies detected: %d\nAnomalies corrected: %d",
		evt.DeviceID,
		len(evt.CorrectedPoints),
		evt.AnomaliesDetected,
		evt.AnomaliesCorrected,
	)
	if len(evt.CorrectedPoints) > 0 {
		first := evt.CorrectedPoints[0]
		last := evt.CorrectedPoints[len(evt.CorrectedPoints)-1]
		body += fmt.Sprintf("\nSpan: %.6f, %.6f -> %.6f, %.6f", first.Lat, first.Lon, last.Lat, last.Lon)
	}
	return body
}
